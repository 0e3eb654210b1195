package report

import (
	"log/slog"
	"time"
)

// Reporter is the external error sink. Reports are fire-and-forget.
type Reporter interface {
	Report(err error, attrs ...any)
}

// ReporterFunc is a function adapter for Reporter.
type ReporterFunc func(err error, attrs ...any)

func (f ReporterFunc) Report(err error, attrs ...any) {
	f(err, attrs...)
}

// LogReporter reports errors by logging them at error level.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a Reporter backed by logger.
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(err error, attrs ...any) {
	r.logger.Error("reported error", append([]any{"error", err, "report", true}, attrs...)...)
}

// Limited logs every error and forwards at most one per class per window.
type Limited struct {
	sink   Reporter
	gate   *Gate
	logger *slog.Logger
	now    func() time.Time
}

// LimitedOption configures a Limited reporter.
type LimitedOption func(*Limited)

// WithClock sets the time source.
func WithClock(now func() time.Time) LimitedOption {
	return func(l *Limited) {
		l.now = now
	}
}

// NewLimited wraps sink with a per-class gate of the given window.
func NewLimited(sink Reporter, window time.Duration, logger *slog.Logger, opts ...LimitedOption) *Limited {
	if logger == nil {
		logger = slog.Default()
	}
	if sink == nil {
		sink = NewLogReporter(logger)
	}
	l := &Limited{
		sink:   sink,
		gate:   NewGate(window),
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Report logs err and forwards it to the sink if the class gate allows.
// It returns true when the error was forwarded.
func (l *Limited) Report(class string, err error, attrs ...any) bool {
	if err == nil {
		return false
	}

	l.logger.Warn("error", append([]any{"class", class, "error", err}, attrs...)...)

	if !l.gate.TryArm(class, l.now()) {
		return false
	}
	l.sink.Report(err, append([]any{"class", class}, attrs...)...)
	return true
}

// Gate exposes the underlying gate.
func (l *Limited) Gate() *Gate {
	return l.gate
}
