package engine

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func testCurrencies() model.Currencies {
	return model.NewCurrencies([]string{"ETH"}, "BTC")
}

func baseline(cs model.Currencies) rates.Table {
	t := rates.Table{
		model.BTC: {model.USD: 10000, model.EUR: 9000},
		model.ETH: {model.USD: 500, model.EUR: 450},
	}
	return rates.Normalize(t, t, cs)
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	e := New(testCurrencies(), DefaultConfig(), logger, opts...)
	e.SetTickers(baseline(e.Currencies()))
	return e, &buf
}

// streamObservation mirrors a BTC-ETH summary delta with the given last price.
func streamObservation(last float64) rates.Table {
	return rates.Table{
		model.BTC: {model.ETH: 1 / last},
		model.ETH: {model.BTC: last},
	}
}

func TestEngine_SubmitWithoutTickers(t *testing.T) {
	e := New(testCurrencies(), DefaultConfig(), nil)

	err := e.Submit("stream", streamObservation(0.05))
	require.Error(t, err)

	var unavailable *rates.UnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.ErrorIs(t, err, rates.ErrNoReference)
	assert.Equal(t, 0, e.Snapshot().Len())
}

func TestEngine_StaticRejectsSubmit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Static = true
	e := New(testCurrencies(), cfg, nil)
	e.SetTickers(baseline(e.Currencies()))

	assert.ErrorIs(t, e.Submit("stream", streamObservation(0.05)), ErrStatic)
	assert.True(t, e.Static())

	_, ok := e.GetRate(model.BTC, model.USD)
	assert.False(t, ok)
}

func TestEngine_StreamDeltaEndToEnd(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Submit("stream", streamObservation(0.05)))

	ethUsd, ok := e.GetRate(model.ETH, model.USD)
	require.True(t, ok)
	assert.InDelta(t, 500, ethUsd, 1e-9)

	btcEth, ok := e.GetRate(model.BTC, model.ETH)
	require.True(t, ok)
	assert.InDelta(t, 20, btcEth, 1e-12)

	btcUsd, ok := e.GetRate(model.BTC, model.USD)
	require.True(t, ok)
	assert.InDelta(t, 10000, btcUsd, 1e-6)

	usdEth, ok := e.GetRate(model.USD, model.ETH)
	require.True(t, ok)
	assert.InDelta(t, 1.0/500, usdEth, 1e-12)
}

func TestEngine_RejectsInvertedQuote(t *testing.T) {
	e, _ := newTestEngine(t)

	err := e.Submit("stream", streamObservation(20))
	require.Error(t, err)
	assert.Equal(t, rates.KindConsistency, rates.KindOf(err))
	assert.Equal(t, 0, e.Snapshot().Len())
}

func TestEngine_RejectionLeavesStoreUntouched(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Submit("stream", streamObservation(0.05)))
	before := e.Snapshot()

	err := e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 11001}})
	require.Error(t, err)

	var consistency *rates.ConsistencyError
	require.ErrorAs(t, err, &consistency)
	assert.Equal(t, model.BTC, consistency.Altcoin)
	assert.Equal(t, "BTC error: USD 11001 vs. 10000", err.Error())

	assert.Equal(t, before, e.Snapshot())
}

func TestEngine_MergeIdempotent(t *testing.T) {
	e, _ := newTestEngine(t)
	candidate := rates.Table{model.BTC: {model.USD: 10100}}

	require.NoError(t, e.Submit("provider:BTC", candidate))
	first := e.Snapshot()
	require.NoError(t, e.Submit("provider:BTC", candidate))

	assert.True(t, rates.Equal(first, e.Snapshot(), 0))
}

func TestEngine_ReciprocalInvariant(t *testing.T) {
	e, _ := newTestEngine(t)

	require.NoError(t, e.Submit("stream", streamObservation(0.05)))
	require.NoError(t, e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 10200}}))
	require.NoError(t, e.Submit("stream", streamObservation(0.051)))

	store := e.Snapshot()
	for src, row := range store {
		for dst, v := range row {
			back, ok := store.Get(dst, src)
			require.True(t, ok, "%s->%s has no reverse", src, dst)
			assert.InDelta(t, 1, v*back, 1e-9, "%s<->%s", src, dst)
		}
	}

	for _, a := range e.Currencies().Fiats() {
		for _, b := range e.Currencies().Fiats() {
			_, ok := store.Get(a, b)
			assert.False(t, ok, "unexpected fiat pair %s->%s", a, b)
		}
	}
}

func TestEngine_ProviderOverlayWins(t *testing.T) {
	e, _ := newTestEngine(t)
	require.NoError(t, e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 10200}}))

	btcUsd, ok := e.GetRate(model.BTC, model.USD)
	require.True(t, ok)
	assert.Equal(t, 10200.0, btcUsd)

	usdBtc, ok := e.GetRate(model.USD, model.BTC)
	require.True(t, ok)
	assert.InDelta(t, 1.0/10200, usdBtc, 1e-15)
}

func TestEngine_MergeListener(t *testing.T) {
	var events []MergeEvent
	clock := newFakeClock()
	e, _ := newTestEngine(t,
		WithClock(clock.Now),
		WithMergeListener(MergeListenerFunc(func(ev MergeEvent) {
			events = append(events, ev)
		})),
	)

	require.NoError(t, e.Submit("stream", streamObservation(0.05)))
	require.Error(t, e.Submit("stream", streamObservation(20)))

	require.Len(t, events, 1)
	assert.Equal(t, "stream", events[0].Source)
	assert.NotEqual(t, uuid.Nil, events[0].ID)
	assert.Equal(t, clock.Now(), events[0].At)

	v, ok := events[0].Rates.Get(model.ETH, model.USD)
	require.True(t, ok)
	assert.InDelta(t, 500, v, 1e-9)
}

func TestEngine_InformGate(t *testing.T) {
	clock := newFakeClock()
	e, buf := newTestEngine(t, WithClock(clock.Now))

	require.NoError(t, e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 10100}}))
	require.NoError(t, e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 10200}}))
	assert.Equal(t, 1, strings.Count(buf.String(), "BTC fiat rates"))

	clock.Advance(DefaultInformWindow + time.Second)
	require.NoError(t, e.Submit("provider:BTC", rates.Table{model.BTC: {model.USD: 10300}}))
	assert.Equal(t, 2, strings.Count(buf.String(), "BTC fiat rates"))
}

func TestEngine_ReportGatedPerKind(t *testing.T) {
	var forwarded []error
	clock := newFakeClock()
	e := New(testCurrencies(), DefaultConfig(), nil,
		WithClock(clock.Now),
		WithReporter(reporterFunc(func(err error) { forwarded = append(forwarded, err) })),
	)

	consistency := &rates.ConsistencyError{Altcoin: model.BTC, Fiat: model.USD, Candidate: 11001, Reference: 10000}
	transport := &rates.TransportError{Service: "stream", Err: assert.AnError}

	assert.True(t, e.Report(consistency))
	assert.False(t, e.Report(consistency))
	assert.True(t, e.Report(transport))

	clock.Advance(16 * time.Minute)
	assert.True(t, e.Report(consistency))
	assert.Len(t, forwarded, 3)
}

type reporterFunc func(error)

func (f reporterFunc) Report(err error, _ ...any) {
	f(err)
}
