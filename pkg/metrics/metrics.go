// Package metrics exports Prometheus collectors for the interpreter,
// scheduler, event bridge, and transport observer hooks.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/editstream/pkg/protocol"
)

// Config configures the collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "editstream").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "editstream",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements interp.Observer, scheduler.Observer,
// bridge.Observer, and transport.Observer.
type Collector struct {
	applies        *prometheus.CounterVec
	applyDuration  prometheus.Histogram
	applyEdits     prometheus.Histogram
	deliveries     *prometheus.CounterVec
	cancellations  prometheus.Counter
	cycles         *prometheus.CounterVec
	cycleDuration  prometheus.Histogram
	translations   *prometheus.CounterVec
	activeSessions prometheus.Gauge
	frames         *prometheus.CounterVec
	frameBytes     *prometheus.CounterVec
}

// New registers the collectors.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		applies: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "applies_total",
			Help:        "Total number of edit streams applied by interpreters",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		applyDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_duration_seconds",
			Help:        "Time spent applying one edit stream",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		applyEdits: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "apply_edits",
			Help:        "Number of edits per applied stream",
			ConstLabels: config.ConstLabels,
			Buckets:     prometheus.ExponentialBuckets(1, 4, 8),
		}),

		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deliveries_total",
			Help:        "Total number of events and tasks handed to models",
			ConstLabels: config.ConstLabels,
		}, []string{"source", "status"}),

		cancellations: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_cancellations_total",
			Help:        "Total number of diff generations abandoned for newer input",
			ConstLabels: config.ConstLabels,
		}),

		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycles_total",
			Help:        "Total number of scheduler apply cycles",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "cycle_duration_seconds",
			Help:        "Time from handing a stream to the renderer until it was applied",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		translations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_translations_total",
			Help:        "Total number of native events translated or dropped",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of connected transport sessions",
			ConstLabels: config.ConstLabels,
		}),

		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frames_total",
			Help:        "Total number of transport frames",
			ConstLabels: config.ConstLabels,
		}, []string{"direction", "type"}),

		frameBytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "frame_bytes_total",
			Help:        "Total transport payload bytes",
			ConstLabels: config.ConstLabels,
		}, []string{"direction"}),
	}
}

func code(err error) string {
	return protocol.CodeOf(err).String()
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveApply records an interpreter apply.
func (c *Collector) ObserveApply(edits int, d time.Duration, err error) {
	c.applies.WithLabelValues(code(err)).Inc()
	c.applyDuration.Observe(d.Seconds())
	c.applyEdits.Observe(float64(edits))
}

// ObserveDelivery records an event or task handed to a model.
func (c *Collector) ObserveDelivery(source string, err error) {
	c.deliveries.WithLabelValues(source, status(err)).Inc()
}

// ObserveCancel records an abandoned diff generation.
func (c *Collector) ObserveCancel() {
	c.cancellations.Inc()
}

// ObserveCycle records a scheduler apply cycle.
func (c *Collector) ObserveCycle(_ int, d time.Duration, err error) {
	c.cycles.WithLabelValues(code(err)).Inc()
	c.cycleDuration.Observe(d.Seconds())
}

// ObserveTranslate records a bridge translation. Native type names are not
// used as labels; they are unbounded.
func (c *Collector) ObserveTranslate(_ string, err error) {
	c.translations.WithLabelValues(code(err)).Inc()
}

// ObserveSession records a session opening (open) or closing.
func (c *Collector) ObserveSession(open bool) {
	if open {
		c.activeSessions.Inc()
	} else {
		c.activeSessions.Dec()
	}
}

// ObserveFrame records a transport frame. direction is "in" or "out".
func (c *Collector) ObserveFrame(direction string, ft protocol.FrameType, bytes int) {
	c.frames.WithLabelValues(direction, ft.String()).Inc()
	c.frameBytes.WithLabelValues(direction).Add(float64(bytes))
}
