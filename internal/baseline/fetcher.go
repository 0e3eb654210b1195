package baseline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/rickgao/altrates/internal/api"
	"github.com/rickgao/altrates/internal/cache"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// Service names the aggregator in errors.
const Service = "aggregator"

var symbolPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// TickerSource fetches aggregator ticker lists.
type TickerSource interface {
	TickerURL(fiat string) string
	GetTicker(ctx context.Context, fiat string) ([]api.TickerEntry, error)
}

// Reporter receives non-fatal entry problems.
type Reporter interface {
	Report(err error, attrs ...any) bool
}

// Fetcher builds the baseline ticker table.
type Fetcher struct {
	cs       model.Currencies
	source   TickerSource
	cache    *cache.Cache
	reporter Reporter
	metrics  *metrics.Collector
	logger   *slog.Logger
}

// New creates a Fetcher. reporter and m may be nil.
func New(cs model.Currencies, source TickerSource, c *cache.Cache, reporter Reporter, m *metrics.Collector, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		cs:       cs,
		source:   source,
		cache:    c,
		reporter: reporter,
		metrics:  m,
		logger:   logger.With("component", "baseline"),
	}
}

// Fetch returns a normalized ticker table covering every configured fiat.
func (f *Fetcher) Fetch(ctx context.Context) (rates.Table, error) {
	start := time.Now()
	t, err := f.fetch(ctx)
	f.metrics.RecordBaselineFetch(time.Since(start), err)
	return t, err
}

func (f *Fetcher) fetch(ctx context.Context) (rates.Table, error) {
	t := rates.Table{}

	// Every response also carries default-fiat prices, so other fiats go first.
	fiats := f.cs.Fiats()
	for i := len(fiats) - 1; i >= 0; i-- {
		fiat := fiats[i]
		if fiat == model.DefaultFiat || len(t[fiat]) > 0 {
			continue
		}
		if err := f.fetchFiat(ctx, t, fiat); err != nil {
			return nil, fmt.Errorf("%s: %w", fiat, err)
		}
	}
	if len(t[model.DefaultFiat]) == 0 {
		if err := f.fetchFiat(ctx, t, model.DefaultFiat); err != nil {
			return nil, fmt.Errorf("%s: %w", model.DefaultFiat, err)
		}
	}

	var missing []model.Code
	for _, fiat := range fiats {
		if len(t[fiat]) == 0 {
			missing = append(missing, fiat)
		}
	}
	if len(missing) > 0 {
		return nil, &rates.UnavailableError{Subject: "fiats", Codes: missing}
	}

	f.logger.Debug("baseline fetched", "currencies", t.Len())
	return rates.Normalize(t, t, f.cs), nil
}

// fetchFiat adds the entries of one aggregator response to t.
func (f *Fetcher) fetchFiat(ctx context.Context, t rates.Table, fiat model.Code) error {
	key := cache.URLKey(f.source.TickerURL(string(fiat)))
	v, err := f.cache.Load(ctx, key, func(ctx context.Context) (any, error) {
		return f.source.GetTicker(ctx, string(fiat))
	})
	if err != nil {
		return &rates.TransportError{Service: Service, Err: err}
	}
	entries, ok := v.([]api.TickerEntry)
	if !ok {
		return fmt.Errorf("unexpected cached value %T for %s", v, key)
	}

	for _, e := range entries {
		f.addEntry(t, e)
	}
	return nil
}

func (f *Fetcher) addEntry(t rates.Table, e api.TickerEntry) {
	sym := model.Code(e.Symbol)
	if !f.cs.Contains(sym) {
		return
	}

	info, ok := model.LookupAltcoin(sym)
	if !ok {
		f.report(&rates.ValidationError{Source: Service, Reason: fmt.Sprintf("no altcoin info for %s", sym)})
		return
	}
	if e.ID != info.ID {
		return
	}
	if err := validateEntry(e); err != nil {
		f.report(err, "id", e.ID)
		return
	}

	for cur, p := range e.Prices {
		dst := model.Code(cur)
		if dst == sym || !(p > 0) {
			continue
		}
		t.Set(sym, dst, p)
		t.Set(dst, sym, 1/p)
	}
}

func validateEntry(e api.TickerEntry) error {
	if !symbolPattern.MatchString(e.Symbol) {
		return &rates.ValidationError{Source: Service, Reason: fmt.Sprintf("bad symbol %q", e.Symbol)}
	}
	for _, cur := range []string{"BTC", "USD"} {
		if p, ok := e.Price(cur); !ok || !(p > 0) {
			return &rates.ValidationError{Source: Service, Reason: fmt.Sprintf("%s: price_%s must be positive", e.Symbol, cur)}
		}
	}
	return nil
}

func (f *Fetcher) report(err error, attrs ...any) {
	if f.reporter != nil {
		f.reporter.Report(err, attrs...)
		return
	}
	f.logger.Warn("baseline entry skipped", append([]any{"error", err}, attrs...)...)
}
