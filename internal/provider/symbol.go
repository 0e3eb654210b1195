package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rickgao/altrates/internal/cache"
	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/rates"
)

// Provider websocket event names.
const (
	EventMessage = "message"
	EventStatus  = "status"
)

// Frame is one provider websocket frame.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type subscribeData struct {
	Operation string           `json:"operation"`
	Options   subscribeOptions `json:"options"`
}

type subscribeOptions struct {
	Currency  string `json:"currency"`
	SymbolSet string `json:"symbol_set"`
}

// SubscribeFrame returns the subscription request for symbol.
func SubscribeFrame(symbol string) []byte {
	data, _ := json.Marshal(subscribeData{
		Operation: "subscribe",
		Options:   subscribeOptions{Currency: symbol, SymbolSet: SymbolSet},
	})
	b, _ := json.Marshal(Frame{Event: EventMessage, Data: data})
	return b
}

// symbolHandler caches the ticker payloads of one symbol session.
type symbolHandler struct {
	hook   *BitcoinHook
	symbol string
}

func (s *symbolHandler) Connected(ctx context.Context, send func([]byte) error) error {
	s.hook.logger.Info("provider open", "symbol", s.symbol)
	if err := send(SubscribeFrame(s.symbol)); err != nil {
		return fmt.Errorf("subscribe %s: %w", s.symbol, err)
	}
	return nil
}

func (s *symbolHandler) Message(ctx context.Context, ev connection.Event) error {
	var f Frame
	if err := json.Unmarshal(ev.Data, &f); err != nil {
		s.hook.engine.Report(&rates.ValidationError{
			Source: "provider:" + s.symbol,
			Reason: fmt.Sprintf("decode frame: %v", err),
		})
		return nil
	}

	switch f.Event {
	case EventMessage:
		if len(f.Data) == 0 {
			return nil
		}
		s.hook.cache.Set(cache.TickerKey(s.symbol), json.RawMessage(append([]byte(nil), f.Data...)))
	case EventStatus:
		s.hook.logger.Info("provider status", "symbol", s.symbol, "data", string(f.Data))
	default:
		s.hook.logger.Debug("provider event", "symbol", s.symbol, "event", f.Event)
	}
	return nil
}

func (s *symbolHandler) Disconnected(ev connection.Event) {
	if ev.Err != nil {
		s.hook.engine.Report(&rates.TransportError{Service: "provider:" + s.symbol, Err: ev.Err})
		return
	}
	s.hook.logger.Info("provider close",
		"symbol", s.symbol,
		"code", ev.Code,
		"clean", ev.WasClean,
		"delay", CloseDelay(ev),
	)
}
