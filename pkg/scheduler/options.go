package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Observer receives loop activity. Implementations must be safe for
// concurrent use and must not block.
type Observer interface {
	// ObserveDelivery is called after an event ("event") or internal task
	// ("task") was handed to the model.
	ObserveDelivery(source string, err error)

	// ObserveCancel is called when a diff generation is abandoned.
	ObserveCancel()

	// ObserveCycle is called after a generated or rebuilt stream was applied.
	ObserveCycle(edits int, d time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) ObserveDelivery(string, error)          {}
func (nopObserver) ObserveCancel()                         {}
func (nopObserver) ObserveCycle(int, time.Duration, error) {}

// Recorder receives every stream the renderer applied successfully.
// *journal.Journal implements it.
type Recorder interface {
	Record(ctx context.Context, s protocol.EditStream) error
}

// Option configures a Scheduler.
type Option func(*config)

type config struct {
	logger       *slog.Logger
	observer     Observer
	recorder     Recorder
	tracer       trace.Tracer
	mountOnStart bool
}

func defaultConfig() config {
	return config{
		logger:       slog.Default(),
		observer:     nopObserver{},
		tracer:       otel.Tracer("editstream/scheduler"),
		mountOnStart: true,
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

// WithObserver sets the loop observer.
func WithObserver(o Observer) Option {
	return func(c *config) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithJournal records applied streams with r.
func WithJournal(r Recorder) Option {
	return func(c *config) {
		c.recorder = r
	}
}

// WithTracer sets the tracer. Default: the global otel tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(c *config) {
		if t != nil {
			c.tracer = t
		}
	}
}

// WithoutInitialMount skips the rebuild Run otherwise applies before waiting
// for input, for renderers that already hold the model's tree.
func WithoutInitialMount() Option {
	return func(c *config) {
		c.mountOnStart = false
	}
}
