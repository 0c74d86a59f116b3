// Package metrics exports scheduler measurements to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/cascade/pkg/cascade"
)

// Config configures the Prometheus collector.
type Config struct {
	// Namespace is the metrics namespace (default: "cascade").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for pass duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// Option configures the collector.
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

// WithBuckets sets the pass duration histogram buckets.
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
		Namespace: "cascade",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Collector implements cascade.Metrics on top of Prometheus.
type Collector struct {
	passesTotal  prometheus.Counter
	passDuration prometheus.Histogram
	passNodes    prometheus.Histogram
	hooksTotal   *prometheus.CounterVec
	followUps    prometheus.Counter
	warnings     *prometheus.CounterVec
	errors       *prometheus.CounterVec
}

var _ cascade.Metrics = (*Collector)(nil)

// New registers the scheduler metrics and returns their collector.
//
// Metrics collected:
//   - cascade_passes_total: Counter of render passes
//   - cascade_pass_duration_seconds: Histogram of pass duration
//   - cascade_pass_nodes: Histogram of nodes rendered per pass
//   - cascade_hooks_total: Counter of lifecycle notifications by hook
//   - cascade_follow_ups_total: Counter of in-place re-renders requested from completion hooks
//   - cascade_deprecated_mutations_total: Counter of deprecated-mutation warnings by hook
//   - cascade_errors_total: Counter of failed runs by error kind
//
// Registering twice against the same registry panics, like promauto does.
func New(opts ...Option) *Collector {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}
	factory := promauto.With(config.Registry)

	return &Collector{
		passesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "passes_total",
			Help:        "Total number of render passes",
			ConstLabels: config.ConstLabels,
		}),

		passDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_duration_seconds",
			Help:        "Render pass duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		passNodes: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "pass_nodes",
			Help:        "Nodes rendered per pass",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{1, 2, 5, 10, 25, 50, 100, 250, 1000},
		}),

		hooksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "hooks_total",
			Help:        "Total lifecycle notifications by hook",
			ConstLabels: config.ConstLabels,
		}, []string{"hook"}),

		followUps: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "follow_ups_total",
			Help:        "Total in-place re-renders requested from completion hooks",
			ConstLabels: config.ConstLabels,
		}),

		warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "deprecated_mutations_total",
			Help:        "Total state changes made inside completion hooks",
			ConstLabels: config.ConstLabels,
		}, []string{"hook"}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "errors_total",
			Help:        "Total failed runs by error kind",
			ConstLabels: config.ConstLabels,
		}, []string{"kind"}),
	}
}

// ObservePass records one render pass.
func (c *Collector) ObservePass(nodes int, d time.Duration) {
	c.passesTotal.Inc()
	c.passDuration.Observe(d.Seconds())
	c.passNodes.Observe(float64(nodes))
}

// ObserveHook counts one notification.
func (c *Collector) ObserveHook(h cascade.Hook) {
	c.hooksTotal.WithLabelValues(h.String()).Inc()
}

// ObserveFollowUp counts one in-place re-render.
func (c *Collector) ObserveFollowUp() {
	c.followUps.Inc()
}

// ObserveWarning counts one deprecated mutation.
func (c *Collector) ObserveWarning(h cascade.Hook) {
	c.warnings.WithLabelValues(h.String()).Inc()
}

// ObserveError counts one failed run.
func (c *Collector) ObserveError(kind string) {
	c.errors.WithLabelValues(kind).Inc()
}
