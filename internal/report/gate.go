package report

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultWarningWindow is the minimum spacing between reports of one class.
const DefaultWarningWindow = 15 * time.Minute

// Gate tracks, per class, the earliest time the next warning may be emitted.
// Callers pass the current time so tests can drive it without sleeping.
type Gate struct {
	window time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewGate creates a gate with the given window.
func NewGate(window time.Duration) *Gate {
	return &Gate{
		window:   window,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Window returns the configured spacing.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Allow reports whether a warning of class may be emitted at now.
func (g *Gate) Allow(class string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.allow(class, now)
}

// Arm blocks class until now plus the window.
func (g *Gate) Arm(class string, now time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.arm(class, now)
}

// TryArm checks and arms in one step. It returns true if the caller may emit.
func (g *Gate) TryArm(class string, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.allow(class, now) {
		return false
	}
	g.arm(class, now)
	return true
}

func (g *Gate) allow(class string, now time.Time) bool {
	if g.window <= 0 {
		return true
	}
	l, ok := g.limiters[class]
	if !ok {
		return true
	}
	return l.TokensAt(now) >= 1
}

func (g *Gate) arm(class string, now time.Time) {
	// One token per window, spent immediately.
	l := rate.NewLimiter(rate.Every(g.window), 1)
	l.AllowN(now, 1)
	g.limiters[class] = l
}
