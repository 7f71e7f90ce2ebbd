// Package telemetry holds the Prometheus metrics recorded by the graph,
// the dependency monitor, and the change feed.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "pathwatch").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for read-set sizes.
	// Default: 1, 2, 4 ... 512
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "pathwatch",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the collectors. A nil *Metrics is valid and records nothing,
// so components can take one unconditionally.
type Metrics struct {
	eventsTotal     *prometheus.CounterVec
	nodeLinks       *prometheus.CounterVec
	liveNodes       prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	sessionReadSize prometheus.Histogram
	liveSessions    prometheus.Gauge
	writesFiltered  *prometheus.CounterVec
	feedClients     prometheus.Gauge
	feedDropped     prometheus.Counter
}

// NewMetrics registers the collectors with the configured registry.
// Registering twice against the same registry panics, as with promauto.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}

	factory := promauto.With(config.Registry)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		})
	}
	counterVec := func(name, help string, labels ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}, labels)
	}

	return &Metrics{
		eventsTotal:   counterVec("events_total", "Access events emitted at node level", "kind"),
		nodeLinks:     counterVec("node_links_total", "Forwarding links installed and removed", "op"),
		liveNodes:     gauge("live_nodes", "Instrumented nodes tracked by graphs"),
		sessionsTotal: counterVec("monitor_runs_total", "Monitored runs by outcome", "outcome"),
		sessionReadSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "monitor_read_paths",
			Help:        "Distinct paths read per monitored run",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),
		liveSessions:   gauge("monitor_live_sessions", "Sessions whose derived channel is still attached"),
		writesFiltered: counterVec("monitor_writes_total", "Writes seen by sessions by result", "result"),
		feedClients:    gauge("feed_clients", "Connected change feed clients"),
		feedDropped:    counter("feed_dropped_total", "Feed messages dropped for slow clients"),
	}
}

// EventEmitted counts one node-level event. Bubbled copies are not counted.
func (m *Metrics) EventEmitted(kind string) {
	if m == nil {
		return
	}
	m.eventsTotal.WithLabelValues(kind).Inc()
}

// LinkAttached counts a forwarding link installed from child to parent.
func (m *Metrics) LinkAttached() {
	if m == nil {
		return
	}
	m.nodeLinks.WithLabelValues("attach").Inc()
}

// LinkDetached counts a forwarding link removed.
func (m *Metrics) LinkDetached() {
	if m == nil {
		return
	}
	m.nodeLinks.WithLabelValues("detach").Inc()
}

// NodeTracked adjusts the live node gauge by delta.
func (m *Metrics) NodeTracked(delta int) {
	if m == nil {
		return
	}
	m.liveNodes.Add(float64(delta))
}

// RunFinished records a monitored run. outcome is "ok", "error" or "panic".
func (m *Metrics) RunFinished(outcome string, readPaths int) {
	if m == nil {
		return
	}
	m.sessionsTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.sessionReadSize.Observe(float64(readPaths))
	}
}

// SessionOpened increments the live session gauge.
func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.liveSessions.Inc()
}

// SessionClosed decrements the live session gauge.
func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.liveSessions.Dec()
}

// WriteFiltered records whether a session forwarded or dropped a write.
func (m *Metrics) WriteFiltered(forwarded bool) {
	if m == nil {
		return
	}
	if forwarded {
		m.writesFiltered.WithLabelValues("forwarded").Inc()
	} else {
		m.writesFiltered.WithLabelValues("dropped").Inc()
	}
}

// FeedClients adjusts the connected client gauge by delta.
func (m *Metrics) FeedClients(delta int) {
	if m == nil {
		return
	}
	m.feedClients.Add(float64(delta))
}

// FeedDropped counts a message dropped for a slow client.
func (m *Metrics) FeedDropped() {
	if m == nil {
		return
	}
	m.feedDropped.Inc()
}
