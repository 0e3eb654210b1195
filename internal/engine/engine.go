package engine

import (
	"errors"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
	"github.com/rickgao/altrates/internal/report"
)

// ErrStatic is returned by Submit when the engine runs without feeds.
var ErrStatic = errors.New("engine is static")

// DefaultInformWindow spaces out the "fiat rates" change logs.
const DefaultInformWindow = time.Minute

// informClass is the gate class for store change logs.
const informClass = "inform"

// Config holds engine configuration.
type Config struct {
	Static        bool          // No feeds; reads only
	InformWindow  time.Duration // Min spacing of change logs (default: 1m)
	WarningWindow time.Duration // Min spacing of forwarded reports per class (default: 15m)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		InformWindow:  DefaultInformWindow,
		WarningWindow: report.DefaultWarningWindow,
	}
}

// MergeEvent describes one accepted candidate.
type MergeEvent struct {
	ID     uuid.UUID
	Source string
	At     time.Time
	Rates  rates.Table // Published store after the merge; read-only
}

// MergeListener is notified after every accepted merge. It must not block.
type MergeListener interface {
	HandleMerge(ev MergeEvent)
}

// MergeListenerFunc is a function adapter for MergeListener.
type MergeListenerFunc func(MergeEvent)

func (f MergeListenerFunc) HandleMerge(ev MergeEvent) {
	f(ev)
}

// Engine is the rate engine context. Create one per process with New.
type Engine struct {
	cs      model.Currencies
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Collector
	now     func() time.Time

	sink     report.Reporter
	reporter *report.Limited
	informs  *report.Gate
	listener MergeListener

	// Serializes Submit.
	mergeMu sync.Mutex

	store   atomic.Pointer[rates.Table]
	tickers atomic.Pointer[rates.Table]
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the time source for gates and merge timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithMetrics records merges and rejections on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithReporter sets the external error sink.
func WithReporter(r report.Reporter) Option {
	return func(e *Engine) {
		e.sink = r
	}
}

// WithMergeListener registers l for merge notifications.
func WithMergeListener(l MergeListener) Option {
	return func(e *Engine) {
		e.listener = l
	}
}

// New creates an Engine for the currency universe cs.
func New(cs model.Currencies, cfg Config, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.InformWindow == 0 {
		cfg.InformWindow = DefaultInformWindow
	}
	if cfg.WarningWindow == 0 {
		cfg.WarningWindow = report.DefaultWarningWindow
	}

	e := &Engine{
		cs:     cs,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.reporter = report.NewLimited(e.sink, cfg.WarningWindow, logger, report.WithClock(e.now))
	e.informs = report.NewGate(cfg.InformWindow)

	empty := rates.Table{}
	e.store.Store(&empty)
	return e
}

// Currencies returns the engine's currency universe.
func (e *Engine) Currencies() model.Currencies {
	return e.cs
}

// Static reports whether the engine runs without feeds.
func (e *Engine) Static() bool {
	return e.cfg.Static
}

// Report logs err and forwards it through the warning gate of its kind.
func (e *Engine) Report(err error, attrs ...any) bool {
	return e.reporter.Report(string(rates.KindOf(err)), err, attrs...)
}

// SetTickers replaces the reference ticker table. t must not be modified afterwards.
func (e *Engine) SetTickers(t rates.Table) {
	e.tickers.Store(&t)
}

// Tickers returns the current reference table. The result is read-only.
func (e *Engine) Tickers() (rates.Table, bool) {
	t := e.tickers.Load()
	if t == nil {
		return nil, false
	}
	return *t, true
}

// Snapshot returns a copy of the canonical store.
func (e *Engine) Snapshot() rates.Table {
	return e.current().Clone()
}

func (e *Engine) current() rates.Table {
	return *e.store.Load()
}

// GetRate returns the canonical rate from src to dst.
func (e *Engine) GetRate(src, dst model.Code) (float64, bool) {
	return e.current().Get(src, dst)
}

// Submit normalizes, validates and merges a candidate table from source.
// Candidates are applied one at a time in arrival order. A rejected
// candidate leaves the store untouched.
func (e *Engine) Submit(source string, candidate rates.Table) error {
	e.mergeMu.Lock()
	defer e.mergeMu.Unlock()

	if e.cfg.Static {
		return ErrStatic
	}

	tickers, ok := e.Tickers()
	if !ok {
		err := &rates.UnavailableError{Subject: "ticker table", Err: rates.ErrNoReference}
		e.metrics.RecordRejection(source, string(rates.KindUnavailable))
		return err
	}

	normalized := rates.Normalize(candidate, tickers, e.cs)
	if err := rates.Validate(normalized, tickers, e.cs); err != nil {
		e.metrics.RecordRejection(source, string(rates.KindOf(err)))
		return err
	}

	e.merge(source, normalized, tickers)
	return nil
}

// merge overlays the altcoin rows of candidate onto the store and publishes
// the re-normalized result. Callers hold mergeMu.
func (e *Engine) merge(source string, candidate, tickers rates.Table) {
	now := e.now()
	next := e.current().Clone()

	var changed []model.Code
	for _, alt := range e.cs.Altcoins() {
		row := candidate[alt]
		if len(row) == 0 {
			continue
		}

		before := next.Row(alt)
		for dst, v := range row {
			if dst == alt {
				continue
			}
			next.SetPair(alt, dst, v)
		}
		if !maps.Equal(before, next[alt]) {
			changed = append(changed, alt)
		}
	}

	next = rates.Normalize(next, tickers, e.cs)
	e.store.Store(&next)

	e.metrics.RecordMerge(source)
	for _, alt := range e.cs.Altcoins() {
		for _, fiat := range e.cs.Fiats() {
			if v, ok := next.Get(alt, fiat); ok {
				e.metrics.RecordRate(string(alt), string(fiat), v)
			}
		}
	}

	if len(changed) > 0 && e.informs.TryArm(informClass, now) {
		for _, alt := range changed {
			e.logger.Info(string(alt)+" fiat rates", "source", source, "rates", e.fiatRow(next, alt))
		}
	}

	if e.listener != nil {
		e.listener.HandleMerge(MergeEvent{
			ID:     uuid.New(),
			Source: source,
			At:     now,
			Rates:  next,
		})
	}
}

// fiatRow returns the fiat slice of alt's row.
func (e *Engine) fiatRow(t rates.Table, alt model.Code) map[model.Code]float64 {
	out := make(map[model.Code]float64)
	for _, fiat := range e.cs.Fiats() {
		if v, ok := t.Get(alt, fiat); ok {
			out[fiat] = v
		}
	}
	return out
}
