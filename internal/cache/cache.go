package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rickgao/altrates/internal/metrics"
)

// DefaultTTL is the lifetime of an entry stored with Set.
const DefaultTTL = 60 * time.Second

// Key families.
const (
	FamilyURL    = "url"
	FamilyTicker = "ticker"
	FamilyFiats  = "fiats"
)

// URLKey is the key for a cached HTTP response.
func URLKey(url string) string {
	return FamilyURL + ":" + url
}

// TickerKey is the key for a provider's latest ticker payload.
func TickerKey(symbol string) string {
	return FamilyTicker + ":" + symbol
}

// FiatsKey is the key for an altcoin's eligible fiat list.
func FiatsKey(altcoin string) string {
	return FamilyFiats + ":" + altcoin
}

type entry struct {
	value      any
	insertedAt time.Time
	ttl        time.Duration // <= 0 never expires
}

func (e entry) expired(now time.Time) bool {
	return e.ttl > 0 && !now.Before(e.insertedAt.Add(e.ttl))
}

// Cache is a concurrency-safe TTL key/value store.
type Cache struct {
	ttl     time.Duration
	now     func() time.Time
	metrics *metrics.Collector

	mu      sync.Mutex
	entries map[string]entry

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock sets the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithMetrics records lookups on m.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Cache) {
		c.metrics = m
	}
}

// New creates a cache whose Set entries live for ttl.
func New(ttl time.Duration, opts ...Option) *Cache {
	if ttl == 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the live value for key.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.get(key)
	c.metrics.RecordCacheLookup(family(key), ok)
	return v, ok
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(c.now()) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.SetWithTTL(key, value, c.ttl)
}

// SetWithTTL stores value under key. A ttl <= 0 never expires.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, insertedAt: c.now(), ttl: ttl}
}

// Delete removes key.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Load returns the live value for key, or calls loader and caches its result.
// Concurrent Loads of the same key share one loader call. Errors are not cached.
func (c *Cache) Load(ctx context.Context, key string, loader func(context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.get(key); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	return v, err
}

func family(key string) string {
	if i := strings.IndexByte(key, ':'); i > 0 {
		return key[:i]
	}
	return "other"
}
