package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/altrates/internal/provider"
	"github.com/rickgao/altrates/internal/rates"
)

// DefaultInterval is the time between maintenance cycles.
const DefaultInterval = 5 * time.Minute

// Fetcher produces the baseline ticker table.
type Fetcher interface {
	Fetch(ctx context.Context) (rates.Table, error)
}

// Engine receives the ticker table and failure reports.
type Engine interface {
	SetTickers(t rates.Table)
	Report(err error, attrs ...any) bool
}

// waiter is implemented by hooks whose Setup starts goroutines.
type waiter interface {
	Wait()
}

// Config holds scheduler configuration.
type Config struct {
	Interval time.Duration // Cycle interval (default: 5m)
	Timeout  time.Duration // Per-cycle timeout (default: interval)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval: DefaultInterval,
		Timeout:  DefaultInterval,
	}
}

// Scheduler periodically refreshes the ticker table and provider hooks.
type Scheduler struct {
	cfg     Config
	fetcher Fetcher
	engine  Engine
	hooks   []provider.Hook
	logger  *slog.Logger

	mu    sync.Mutex
	ready map[provider.Hook]bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Scheduler. hooks run in the given order.
func New(cfg Config, fetcher Fetcher, engine Engine, hooks []provider.Hook, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = cfg.Interval
	}
	return &Scheduler{
		cfg:     cfg,
		fetcher: fetcher,
		engine:  engine,
		hooks:   hooks,
		logger:  logger.With("component", "maintenance"),
		ready:   make(map[provider.Hook]bool),
	}
}

// Start begins the maintenance loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("maintenance scheduler started",
		"interval", s.cfg.Interval,
		"hooks", len(s.hooks),
	)

	return nil
}

// Stop cancels the loop and every hook session, and waits for them.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		for _, h := range s.hooks {
			if w, ok := h.(waiter); ok {
				w.Wait()
			}
		}
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("maintenance scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run is the main maintenance loop.
func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// Run immediately on start.
	s.cycle()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.cycle()
		}
	}
}

func (s *Scheduler) cycle() {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.Timeout)
	defer cancel()
	s.runOnce(ctx, s.ctx)
}

// RunOnce runs a single cycle. Hook sessions started by setup live until ctx ends.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	return s.runOnce(ctx, ctx)
}

// runOnce bounds the cycle work by ctx; hook sessions are bound to life.
func (s *Scheduler) runOnce(ctx, life context.Context) error {
	start := time.Now()

	s.setupHooks(life)

	t, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.engine.Report(err, "stage", "baseline")
		s.logger.Info("maintenance cycle aborted", "error", err, "duration", time.Since(start))
		return err
	}
	s.engine.SetTickers(t)

	var failed int
	for _, h := range s.hooks {
		if !s.isReady(h) {
			continue
		}
		if err := h.Refresh(ctx); err != nil {
			s.engine.Report(err, "stage", "refresh", "altcoin", h.Altcoin())
			failed++
		}
	}

	s.logger.Info("maintenance cycle complete",
		"currencies", t.Len(),
		"hooks", len(s.hooks),
		"errors", failed,
		"duration", time.Since(start),
	)
	return nil
}

// setupHooks runs Setup on every hook that has not yet succeeded. Sessions
// started by Setup are bound to ctx, so it is the scheduler's lifetime.
func (s *Scheduler) setupHooks(ctx context.Context) {
	for _, h := range s.hooks {
		if s.isReady(h) {
			continue
		}
		if err := h.Setup(ctx); err != nil {
			s.engine.Report(err, "stage", "setup", "altcoin", h.Altcoin())
			continue
		}
		s.mu.Lock()
		s.ready[h] = true
		s.mu.Unlock()
	}
}

func (s *Scheduler) isReady(h provider.Hook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready[h]
}
