package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/altrates/internal/connection"
	"github.com/rickgao/altrates/internal/metrics"
	"github.com/rickgao/altrates/internal/model"
	"github.com/rickgao/altrates/internal/rates"
)

// Source is the merge source name of stream observations.
const Source = "stream"

// DefaultReconnectDelay is the fixed wait between stream connections.
const DefaultReconnectDelay = 15 * time.Second

// Engine is the part of the rate engine the watcher needs.
type Engine interface {
	Currencies() model.Currencies
	Submit(source string, candidate rates.Table) error
	Report(err error, attrs ...any) bool
}

// Config holds watcher configuration.
type Config struct {
	URL               string        // Stream websocket URL
	ReconnectDelay    time.Duration // Wait before reconnecting (default: 15s)
	ReconnectOnReject bool          // Drop the connection when a candidate is rejected
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconnectDelay: DefaultReconnectDelay,
	}
}

// Watcher turns stream summary deltas into engine submissions.
type Watcher struct {
	cfg      Config
	engine   Engine
	logger   *slog.Logger
	observer func(rates.Table)
}

// NewWatcher creates a Watcher.
func NewWatcher(cfg Config, engine Engine, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Watcher{
		cfg:    cfg,
		engine: engine,
		logger: logger.With("component", "feed"),
	}
}

// OnObserved registers fn to see every extracted observation before it is submitted.
func (w *Watcher) OnObserved(fn func(rates.Table)) {
	w.observer = fn
}

// Session returns a connection session driving this watcher.
func (w *Watcher) Session(dialer connection.Dialer, m *metrics.Collector) *connection.Session {
	return connection.NewSession(connection.SessionConfig{
		Name:   Source,
		Target: connection.StaticURL(w.cfg.URL),
		Delay:  connection.FixedDelay(w.cfg.ReconnectDelay),
	}, dialer, w, m, w.logger)
}

// Connected subscribes to summary deltas.
func (w *Watcher) Connected(ctx context.Context, send func([]byte) error) error {
	w.logger.Info("stream connected", "url", w.cfg.URL)
	if err := send(SubscribeFrame()); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// Message handles one stream frame. Shape violations are returned and end the connection.
func (w *Watcher) Message(ctx context.Context, ev connection.Event) error {
	observed, handled, err := ParseDeltas(ev.Data, w.engine.Currencies())
	if err != nil {
		w.engine.Report(err)
		return err
	}
	if !handled || observed.Len() == 0 {
		return nil
	}

	if w.observer != nil {
		w.observer(observed)
	}

	if err := w.engine.Submit(Source, observed); err != nil {
		w.engine.Report(err, "source", Source)
		if w.cfg.ReconnectOnReject {
			return err
		}
	}
	return nil
}

// Disconnected reports transport failures. Errors the watcher raised itself
// were reported when they happened.
func (w *Watcher) Disconnected(ev connection.Event) {
	switch {
	case ev.Err != nil && rates.KindOf(ev.Err) != rates.KindOther:
		return
	case ev.Err != nil:
		w.engine.Report(&rates.TransportError{Service: Source, Err: ev.Err})
	case ev.Type == connection.EventClosed:
		w.engine.Report(&rates.TransportError{
			Service: Source,
			Err:     fmt.Errorf("closed with code %d", ev.Code),
		})
	default:
		w.engine.Report(&rates.TransportError{Service: Source, Err: errors.New(ev.Type.String())})
	}
}
