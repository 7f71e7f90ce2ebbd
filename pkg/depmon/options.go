package depmon

import (
	"log/slog"

	"github.com/vango-dev/pathwatch/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for monitored runs.
const defaultTracerName = "github.com/vango-dev/pathwatch/pkg/depmon"

// Option configures a monitored run.
type Option func(*config)

type config struct {
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer
}

// WithLogger sets the logger for session lifecycle debug output.
// If nil, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMetrics records runs and filtered writes on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(c *config) {
		c.metrics = m
	}
}

// WithTracer sets the tracer used for the span around each run.
// If nil, the global tracer provider is used.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *config) {
		c.tracer = tracer
	}
}

func newConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.tracer == nil {
		c.tracer = otel.Tracer(defaultTracerName)
	}
	return c
}
