package interp

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Observer receives apply results. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	ObserveApply(edits int, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveApply(int, time.Duration, error) {}

// Option configures an Interpreter.
type Option func(*config)

type config struct {
	budget   time.Duration
	logger   *slog.Logger
	observer Observer
	clock    func() time.Time
	tracer   trace.Tracer
}

func defaultConfig() config {
	return config{
		logger:   slog.Default(),
		observer: nopObserver{},
		clock:    time.Now,
		tracer:   otel.Tracer("editstream/interp"),
	}
}

// WithBudget fails any Apply that runs longer than d with
// protocol.ErrBudgetExceeded. Zero disables the budget.
func WithBudget(d time.Duration) Option {
	return func(c *config) {
		c.budget = d
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithObserver sets the apply observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithClock overrides the clock used for the budget. Tests use it to make
// budget failures deterministic.
func WithClock(now func() time.Time) Option {
	return func(c *config) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithTracer sets the tracer. Default: the global provider's
// "editstream/interp" tracer.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}
