package api

import (
	"context"
	"fmt"
)

// Provider REST paths.
const (
	SymbolsGlobalPath = "/constants/symbols/global"
	TicketPath        = "/websocket/get_ticket"
)

// SymbolsResponse from GET /constants/symbols/global
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}

// TicketResponse from GET /websocket/get_ticket
type TicketResponse struct {
	Ticket string `json:"ticket"`
}

// GetGlobalSymbols returns the symbols (e.g., "BTCUSD") the provider prices.
func (c *Client) GetGlobalSymbols(ctx context.Context) ([]string, error) {
	var resp SymbolsResponse
	if err := c.get(ctx, SymbolsGlobalPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("get global symbols: %w", err)
	}
	return resp.Symbols, nil
}

// GetWebsocketTicket obtains a single-use ticket for a websocket connection.
func (c *Client) GetWebsocketTicket(ctx context.Context) (string, error) {
	var resp TicketResponse
	if err := c.get(ctx, TicketPath, nil, &resp); err != nil {
		return "", fmt.Errorf("get websocket ticket: %w", err)
	}
	if resp.Ticket == "" {
		return "", fmt.Errorf("get websocket ticket: empty ticket")
	}
	return resp.Ticket, nil
}
