package connection

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/altrates/internal/metrics"
)

// Handler receives the application side of a Session.
type Handler interface {
	// Connected runs after each successful dial. An error aborts the connection.
	Connected(ctx context.Context, send func([]byte) error) error

	// Message handles one data frame. An error is fatal for the connection
	// and forces a reconnect.
	Message(ctx context.Context, ev Event) error

	// Disconnected is told why the connection ended, before the reconnect wait.
	Disconnected(ev Event)
}

// DelayPolicy chooses the wait before reconnecting after ev.
type DelayPolicy func(ev Event) time.Duration

// FixedDelay waits d regardless of cause.
func FixedDelay(d time.Duration) DelayPolicy {
	return func(Event) time.Duration { return d }
}

// Target resolves the URL for the next dial.
type Target func(ctx context.Context) (string, error)

// StaticURL always dials url.
func StaticURL(url string) Target {
	return func(context.Context) (string, error) { return url, nil }
}

// SessionConfig configures a Session.
type SessionConfig struct {
	Name   string // Feed name for logs and metrics (e.g., "stream", "provider:BTCUSD")
	Target Target
	Delay  DelayPolicy
}

// transitions is the complete state machine. Pairs not listed leave the state unchanged.
var transitions = map[State]map[EventType]State{
	StateDisconnected: {
		EventDial: StateConnecting,
	},
	StateConnecting: {
		EventConnected:  StateConnected,
		EventDialFailed: StateError,
		EventReset:      StateDisconnected,
	},
	StateConnected: {
		EventMessage: StateConnected,
		EventError:   StateError,
		EventLost:    StateLost,
		EventClosed:  StateClosed,
		EventReset:   StateDisconnected,
	},
	StateError: {
		EventReset: StateDisconnected,
	},
	StateLost: {
		EventReset: StateDisconnected,
	},
	StateClosed: {
		EventReset: StateDisconnected,
	},
}

// Transition returns the state after ev in state s.
func Transition(s State, ev EventType) State {
	if next, ok := transitions[s][ev]; ok {
		return next
	}
	return s
}

// Session keeps one feed connected until its context is cancelled.
type Session struct {
	cfg     SessionConfig
	dialer  Dialer
	handler Handler
	logger  *slog.Logger
	metrics *metrics.Collector

	mu        sync.RWMutex
	state     State
	lastErr   error
	nextRetry time.Time
}

// NewSession creates a Session. A nil Delay defaults to 15 seconds.
func NewSession(cfg SessionConfig, dialer Dialer, handler Handler, m *metrics.Collector, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Delay == nil {
		cfg.Delay = FixedDelay(15 * time.Second)
	}
	return &Session{
		cfg:     cfg,
		dialer:  dialer,
		handler: handler,
		logger:  logger.With("feed", cfg.Name),
		metrics: m,
	}
}

// Name returns the feed name.
func (s *Session) Name() string {
	return s.cfg.Name
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError returns the cause of the most recent disconnect.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// NextRetryAt returns when the next reconnect is scheduled, or zero.
func (s *Session) NextRetryAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextRetry
}

func (s *Session) apply(ev Event) State {
	s.mu.Lock()
	prev := s.state
	s.state = Transition(prev, ev.Type)
	if ev.Err != nil {
		s.lastErr = ev.Err
	}
	next := s.state
	s.mu.Unlock()

	if next != prev {
		s.logger.Debug("state change", "from", prev, "to", next, "event", ev.Type)
		s.metrics.RecordFeedState(s.cfg.Name, int(next))
	}
	return next
}

// Run connects, serves and reconnects until ctx is cancelled. It always
// returns ctx.Err().
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("feed session started")
	defer s.logger.Info("feed session stopped")

	for {
		s.apply(Event{Type: EventDial})

		last, ok := s.connectAndServe(ctx)
		if !ok {
			s.apply(Event{Type: EventReset})
			return ctx.Err()
		}

		s.handler.Disconnected(last)

		delay := s.cfg.Delay(last)
		s.apply(Event{Type: EventReset})
		s.mu.Lock()
		s.nextRetry = time.Now().Add(delay)
		s.mu.Unlock()

		s.logger.Info("reconnecting",
			"cause", last.Type,
			"code", last.Code,
			"error", last.Err,
			"delay", delay,
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		s.mu.Lock()
		s.nextRetry = time.Time{}
		s.mu.Unlock()
		s.metrics.RecordFeedReconnect(s.cfg.Name)
	}
}

// connectAndServe runs one connection to completion. It returns the terminal
// event and false if ctx was cancelled instead.
func (s *Session) connectAndServe(ctx context.Context) (Event, bool) {
	url, err := s.cfg.Target(ctx)
	var conn Conn
	if err == nil {
		conn, err = s.dialer.Dial(ctx, url)
	}
	if err != nil {
		if ctx.Err() != nil {
			return Event{}, false
		}
		ev := Event{Type: EventDialFailed, Err: err, At: time.Now()}
		s.apply(ev)
		return ev, true
	}
	defer conn.Close()

	s.apply(Event{Type: EventConnected, At: time.Now()})

	if err := s.handler.Connected(ctx, conn.Send); err != nil {
		ev := Event{Type: EventError, Err: err, At: time.Now()}
		s.apply(ev)
		return ev, true
	}

	for {
		select {
		case <-ctx.Done():
			return Event{}, false

		case ev := <-conn.Events():
			switch ev.Type {
			case EventMessage:
				s.metrics.RecordFeedMessage(s.cfg.Name)
				if err := s.handler.Message(ctx, ev); err != nil {
					fatal := Event{Type: EventError, Err: err, At: time.Now()}
					s.apply(fatal)
					return fatal, true
				}
			case EventError, EventLost, EventClosed:
				s.apply(ev)
				return ev, true
			}
		}
	}
}
