package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func TestCache_Expiry(t *testing.T) {
	clock := newClock()
	c := New(60*time.Second, WithClock(clock.Now))

	c.Set(URLKey("https://example.com/ticker?convert=EUR"), "body")

	clock.Advance(59 * time.Second)
	v, ok := c.Get(URLKey("https://example.com/ticker?convert=EUR"))
	require.True(t, ok)
	assert.Equal(t, "body", v)

	clock.Advance(2 * time.Second)
	_, ok = c.Get(URLKey("https://example.com/ticker?convert=EUR"))
	assert.False(t, ok, "entry must be absent after 61s")
	assert.Equal(t, 0, c.Len(), "expired entry is pruned on read")
}

func TestCache_NoExpiry(t *testing.T) {
	clock := newClock()
	c := New(time.Second, WithClock(clock.Now))

	c.SetWithTTL(FiatsKey("BTC"), []string{"USD"}, 0)
	clock.Advance(24 * time.Hour)

	v, ok := c.Get(FiatsKey("BTC"))
	require.True(t, ok)
	assert.Equal(t, []string{"USD"}, v)
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)
	c.Set(TickerKey("BTCUSD"), 1)
	c.Delete(TickerKey("BTCUSD"))
	_, ok := c.Get(TickerKey("BTCUSD"))
	assert.False(t, ok)
}

func TestCache_Load(t *testing.T) {
	clock := newClock()
	c := New(time.Minute, WithClock(clock.Now))
	var calls atomic.Int32

	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		return "fresh", nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.Load(context.Background(), URLKey("a"), loader)
		require.NoError(t, err)
		assert.Equal(t, "fresh", v)
	}
	assert.Equal(t, int32(1), calls.Load())

	clock.Advance(2 * time.Minute)
	_, err := c.Load(context.Background(), URLKey("a"), loader)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCache_LoadErrorNotCached(t *testing.T) {
	c := New(time.Minute)
	boom := errors.New("boom")

	_, err := c.Load(context.Background(), URLKey("a"), func(ctx context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	_, ok := c.Get(URLKey("a"))
	assert.False(t, ok)
}

func TestCache_LoadSingleFlight(t *testing.T) {
	c := New(time.Minute)
	var calls atomic.Int32
	release := make(chan struct{})

	loader := func(ctx context.Context) (any, error) {
		calls.Add(1)
		<-release
		return 42, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Load(context.Background(), URLKey("shared"), loader)
			assert.NoError(t, err)
			assert.Equal(t, 42, v)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
}

func TestFamily(t *testing.T) {
	assert.Equal(t, "url", family(URLKey("x")))
	assert.Equal(t, "ticker", family(TickerKey("BTCUSD")))
	assert.Equal(t, "fiats", family(FiatsKey("BTC")))
	assert.Equal(t, "other", family("plain"))
}
