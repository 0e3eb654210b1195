package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// TickerEntry is one coin from the aggregator's ticker list.
type TickerEntry struct {
	ID     string
	Symbol string

	// Prices maps an upper-case currency code to the price of one coin in
	// that currency, taken from the price_<code> fields. Null or
	// non-numeric fields are omitted.
	Prices map[string]float64
}

// Price returns the price of the coin in currency.
func (e TickerEntry) Price(currency string) (float64, bool) {
	v, ok := e.Prices[currency]
	return v, ok
}

const pricePrefix = "price_"

// tickerQuery is the query for one fiat conversion.
func tickerQuery(fiat string) url.Values {
	return url.Values{
		"convert": []string{fiat},
		"limit":   []string{"0"},
	}
}

// TickerURL returns the full aggregator URL for fiat, used as a cache key.
func (c *Client) TickerURL(fiat string) string {
	return c.resolve("", tickerQuery(fiat))
}

// GetTicker fetches all coins priced in fiat.
func (c *Client) GetTicker(ctx context.Context, fiat string) ([]TickerEntry, error) {
	var raw []map[string]json.RawMessage
	if err := c.get(ctx, "", tickerQuery(fiat), &raw); err != nil {
		return nil, fmt.Errorf("get ticker: %w", err)
	}

	entries := make([]TickerEntry, 0, len(raw))
	for _, fields := range raw {
		entries = append(entries, parseTickerEntry(fields))
	}
	return entries, nil
}

func parseTickerEntry(fields map[string]json.RawMessage) TickerEntry {
	e := TickerEntry{Prices: make(map[string]float64)}
	for key, value := range fields {
		switch {
		case key == "id":
			e.ID = parseString(value)
		case key == "symbol":
			e.Symbol = parseString(value)
		case strings.HasPrefix(key, pricePrefix):
			if v, ok := parseNumber(value); ok {
				e.Prices[strings.ToUpper(strings.TrimPrefix(key, pricePrefix))] = v
			}
		}
	}
	return e
}

func parseString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		return v, err == nil
	}

	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}
