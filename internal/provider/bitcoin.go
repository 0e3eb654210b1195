package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync"

	"github.com/rickgao/altrates/internal/cache"
	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// ErrNotSetup is returned by Refresh before Setup has recorded eligible fiats.
var ErrNotSetup = errors.New("setup has not run")

// SymbolSet is the provider's symbol set for fiat tickers.
const SymbolSet = "global"

// RESTClient is the provider's REST surface.
type RESTClient interface {
	GetGlobalSymbols(ctx context.Context) ([]string, error)
	GetWebsocketTicket(ctx context.Context) (string, error)
}

// BitcoinConfig configures the Bitcoin hook.
type BitcoinConfig struct {
	WSURL     string // Provider websocket endpoint
	PublicKey string // Sent with every websocket ticket
}

// BitcoinHook prices BTC from the provider's per-fiat ticker streams.
type BitcoinHook struct {
	cfg     BitcoinConfig
	client  RESTClient
	engine  Engine
	cache   *cache.Cache
	dialer  connection.Dialer
	metrics *metrics.Collector
	logger  *slog.Logger

	mu       sync.Mutex
	started  bool
	sessions []*connection.Session
	wg       sync.WaitGroup
}

// NewBitcoinHook creates the BTC hook.
func NewBitcoinHook(cfg BitcoinConfig, client RESTClient, engine Engine, c *cache.Cache, dialer connection.Dialer, m *metrics.Collector, logger *slog.Logger) *BitcoinHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &BitcoinHook{
		cfg:     cfg,
		client:  client,
		engine:  engine,
		cache:   c,
		dialer:  dialer,
		metrics: m,
		logger:  logger.With("component", "provider", "altcoin", model.BTC),
	}
}

// Altcoin returns BTC.
func (h *BitcoinHook) Altcoin() model.Code {
	return model.BTC
}

// Source is the merge source name of this hook.
func (h *BitcoinHook) Source() string {
	return "provider:" + string(h.Altcoin())
}

// Setup finds the eligible fiats and starts one session per symbol. The
// sessions run until ctx is cancelled. Later calls do nothing.
func (h *BitcoinHook) Setup(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.started {
		return nil
	}

	symbols, err := h.client.GetGlobalSymbols(ctx)
	if err != nil {
		return &rates.TransportError{Service: h.Source(), Err: err}
	}

	alt := h.Altcoin()
	var eligible []model.Code
	for _, fiat := range h.engine.Currencies().Fiats() {
		if slices.Contains(symbols, string(alt)+string(fiat)) {
			eligible = append(eligible, fiat)
		}
	}
	h.cache.SetWithTTL(cache.FiatsKey(string(alt)), eligible, 0)
	h.logger.Info("provider fiats", "fiats", model.JoinCodes(eligible))

	for _, fiat := range eligible {
		symbol := string(alt) + string(fiat)
		s := connection.NewSession(connection.SessionConfig{
			Name:   "provider:" + symbol,
			Target: h.target,
			Delay:  CloseDelay,
		}, h.dialer, &symbolHandler{hook: h, symbol: symbol}, h.metrics, h.logger)
		h.sessions = append(h.sessions, s)

		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			s.Run(ctx)
		}()
	}

	h.started = true
	return nil
}

// Sessions returns the running symbol sessions.
func (h *BitcoinHook) Sessions() []*connection.Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.sessions)
}

// Wait blocks until every session started by Setup has returned.
func (h *BitcoinHook) Wait() {
	h.wg.Wait()
}

// target obtains a fresh ticket and builds the websocket URL for one dial.
func (h *BitcoinHook) target(ctx context.Context) (string, error) {
	ticket, err := h.client.GetWebsocketTicket(ctx)
	if err != nil {
		return "", err
	}
	q := url.Values{}
	q.Set("public_key", h.cfg.PublicKey)
	q.Set("ticket", ticket)
	return h.cfg.WSURL + "?" + q.Encode(), nil
}

// Refresh submits the cached last price of every eligible fiat. Nothing is
// submitted unless every eligible fiat has a price.
func (h *BitcoinHook) Refresh(ctx context.Context) error {
	alt := h.Altcoin()

	v, ok := h.cache.Get(cache.FiatsKey(string(alt)))
	if !ok {
		return &rates.UnavailableError{Subject: string(alt) + " fiats", Err: ErrNotSetup}
	}
	eligible, _ := v.([]model.Code)
	if len(eligible) == 0 {
		return nil
	}

	row := make(map[model.Code]float64, len(eligible))
	var missing []model.Code
	for _, fiat := range eligible {
		last, err := h.lastPrice(string(alt) + string(fiat))
		if err != nil {
			return err
		}
		if last == nil {
			missing = append(missing, fiat)
			continue
		}
		row[fiat] = *last
	}
	if len(missing) > 0 {
		return &rates.UnavailableError{Subject: string(alt) + " fiat", Codes: missing}
	}

	return h.engine.Submit(h.Source(), rates.Table{alt: row})
}

// tickerData is the part of a ticker payload the hook reads.
type tickerData struct {
	Last *float64 `json:"last"`
}

// lastPrice returns the cached last price for symbol, or nil if none is cached.
func (h *BitcoinHook) lastPrice(symbol string) (*float64, error) {
	v, ok := h.cache.Get(cache.TickerKey(symbol))
	if !ok {
		return nil, nil
	}
	raw, _ := v.(json.RawMessage)

	var data tickerData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, &rates.ValidationError{Source: h.Source(), Reason: fmt.Sprintf("%s: %v", symbol, err)}
	}
	if data.Last == nil || !(*data.Last > 0) {
		return nil, &rates.ValidationError{Source: h.Source(), Reason: fmt.Sprintf("%s: last must be positive", symbol)}
	}
	return data.Last, nil
}
