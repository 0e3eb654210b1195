package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickerBody = `[
  {"id": "bitcoin", "symbol": "BTC", "price_usd": "10000.5", "price_btc": "1.0", "price_eur": 9000, "rank": "1"},
  {"id": "basic-attention-token", "symbol": "BAT", "price_usd": "0.25", "price_btc": "0.000025", "price_eur": null}
]`

func TestGetTicker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "EUR", r.URL.Query().Get("convert"))
		assert.Equal(t, "0", r.URL.Query().Get("limit"))
		w.Write([]byte(tickerBody))
	}))
	defer server.Close()

	c := NewClient(server.URL + "/v1/ticker/")
	entries, err := c.GetTicker(context.Background(), "EUR")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	btc := entries[0]
	assert.Equal(t, "bitcoin", btc.ID)
	assert.Equal(t, "BTC", btc.Symbol)
	assert.Equal(t, map[string]float64{"USD": 10000.5, "BTC": 1, "EUR": 9000}, btc.Prices)

	bat := entries[1]
	_, ok := bat.Price("EUR")
	assert.False(t, ok, "null price is omitted")
	usd, ok := bat.Price("USD")
	assert.True(t, ok)
	assert.Equal(t, 0.25, usd)
}

func TestTickerURL(t *testing.T) {
	c := NewClient("https://api.example.com/v1/ticker/")
	assert.Equal(t, "https://api.example.com/v1/ticker/?convert=GBP&limit=0", c.TickerURL("GBP"))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{`"1.5"`, 1.5, true},
		{`2`, 2, true},
		{`null`, 0, false},
		{`"abc"`, 0, false},
		{`true`, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseNumber([]byte(tt.raw))
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestGetGlobalSymbols(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, SymbolsGlobalPath, r.URL.Path)
		assert.Equal(t, "sig", r.Header.Get("X-signature"))
		w.Write([]byte(`{"symbols": ["BTCUSD", "BTCEUR", "ETHUSD"]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL, WithSigner(staticSigner{"X-signature": "sig"}))
	symbols, err := c.GetGlobalSymbols(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"BTCUSD", "BTCEUR", "ETHUSD"}, symbols)
}

func TestGetWebsocketTicket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != TicketPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"ticket": "abc123"}`))
	}))
	defer server.Close()

	c := NewClient(server.URL)
	ticket, err := c.GetWebsocketTicket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc123", ticket)
}
