package observe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/minstate/pkg/events"
)

// MetricsConfig holds the naming and registration settings of Metrics.
// NewMetrics starts from namespace "minstate", prometheus.DefBuckets and
// prometheus.DefaultRegisterer before applying options.
type MetricsConfig struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels

	// Buckets bound the emit_duration_seconds histogram. Emissions usually
	// take microseconds, so finer buckets than the default often help.
	Buckets []float64

	Registry prometheus.Registerer
}

// MetricsOption adjusts a MetricsConfig.
type MetricsOption func(*MetricsConfig)

// WithNamespace prefixes every metric name, "minstate" unless set.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels tags every series, e.g. with the application name when
// several apps share one registry.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets replaces the emission duration buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry registers the metrics on registry instead of the global
// one. Tests and the inspector use a private registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "minstate",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics is an events.Observer that records emissions as Prometheus
// metrics:
//
//   - minstate_emits_total: emissions by registry and channel
//   - minstate_listener_calls_total: listener invocations by registry
//   - minstate_listener_panics_total: recovered panics by registry and channel
//   - minstate_emit_duration_seconds: emission duration by registry
//
// Channel labels are field names, so keep field names out of user input.
type Metrics struct {
	emitsTotal   *prometheus.CounterVec
	callsTotal   *prometheus.CounterVec
	panicsTotal  *prometheus.CounterVec
	emitDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers the metrics. Registering twice on the
// same registry panics, like any promauto metric.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)

	return &Metrics{
		emitsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "emits_total",
			Help:        "Total number of emissions that reached at least one listener",
			ConstLabels: config.ConstLabels,
		}, []string{"registry", "channel"}),

		callsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_calls_total",
			Help:        "Total number of listener invocations",
			ConstLabels: config.ConstLabels,
		}, []string{"registry"}),

		panicsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listener_panics_total",
			Help:        "Total number of recovered listener panics",
			ConstLabels: config.ConstLabels,
		}, []string{"registry", "channel"}),

		emitDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "emit_duration_seconds",
			Help:        "Time spent running the listeners of one emission",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"registry"}),
	}
}

// ObserveEmit implements events.Observer.
func (m *Metrics) ObserveEmit(info events.EmitInfo) {
	m.emitsTotal.WithLabelValues(info.Registry, info.Channel).Inc()
	m.callsTotal.WithLabelValues(info.Registry).Add(float64(info.Listeners))
	m.emitDuration.WithLabelValues(info.Registry).Observe(info.Duration.Seconds())
}

// ObservePanic implements events.Observer.
func (m *Metrics) ObservePanic(info events.PanicInfo) {
	m.panicsTotal.WithLabelValues(info.Registry, info.Channel).Inc()
}
