// Package middleware provides net/http middleware for the pathwatch feed.
//
// This package includes:
//   - OpenTelemetry tracing middleware
//   - Prometheus request metrics middleware
//
// Both take the route pattern from chi after routing, so labels and span
// names stay low-cardinality ("/doc/*", not "/doc/b/c").
//
// # OpenTelemetry Middleware
//
//	r := chi.NewRouter()
//	r.Use(middleware.OpenTelemetry(
//	    middleware.WithTracerName("pathwatch-feed"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/metrics"
//	    }),
//	))
//
// The span is stored in the request context, so handlers can annotate it:
//
//	span := trace.SpanFromContext(r.Context())
//
// # Prometheus Metrics
//
//   - pathwatch_http_requests_total: Requests by route, method and status
//   - pathwatch_http_request_duration_seconds: Request duration histogram
//
//	r.Use(middleware.Prometheus(middleware.WithRegistry(reg)))
package middleware
