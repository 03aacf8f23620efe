package middleware

import (
	"context"
	"time"

	"github.com/flowstart/douyin-web/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

type httpMetrics struct {
	requests *telemetry.Counter
	latency  *telemetry.Histogram
	bodySize *telemetry.Histogram
	inFlight *telemetry.UpDownCounter
}

// uploadSizeBuckets cover JSON bodies up to full order exports
var uploadSizeBuckets = []float64{100, 1000, 10000, 100000, 1000000, 10000000, 50000000}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	in := telemetry.NewInstruments(meter)
	m := &httpMetrics{
		requests: in.Counter("http_server_request_total",
			"Requests served, by route and status", "{request}"),
		latency: in.Histogram("http_server_request_duration_seconds",
			"Request latency", "s", telemetry.HTTPDurationBuckets),
		bodySize: in.Histogram("http_server_request_size_bytes",
			"Request body size", "By", uploadSizeBuckets),
		inFlight: in.UpDownCounter("http_server_active_requests",
			"Requests being served", "{request}"),
	}
	return m, in.Err()
}

// HTTPMetrics returns a Gin middleware that records request count, latency,
// body size and in-flight requests. A nil meter disables it.
func HTTPMetrics(meter metric.Meter, logger *zap.Logger) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	metrics, err := newHTTPMetrics(meter)
	if err != nil {
		if logger != nil {
			logger.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		ctx := c.Request.Context()
		start := time.Now()
		size := c.Request.ContentLength

		metrics.inFlight.Add(ctx, 1)
		defer metrics.inFlight.Add(ctx, -1)
		c.Next()

		metrics.record(ctx, c.Request.Method, getRoutePattern(c), c.Writer.Status(), time.Since(start), size)
	}
}

// getRoutePattern returns the matched route (e.g. "/api/v1/orders/:order_id")
// so that order and task ids do not become label values.
func getRoutePattern(c *gin.Context) string {
	if route := c.FullPath(); route != "" {
		return route
	}
	return "unknown"
}

func (m *httpMetrics) record(ctx context.Context, method, route string, status int, elapsed time.Duration, size int64) {
	attrs := []attribute.KeyValue{
		telemetry.AttrHTTPMethod.String(method),
		telemetry.AttrHTTPRoute.String(route),
	}
	m.requests.Inc(ctx, append(attrs, telemetry.AttrHTTPStatusCode.Int(status))...)
	m.latency.RecordDuration(ctx, elapsed, append(attrs, telemetry.AttrHTTPStatusClass.String(HTTPMetricsStatusGroup(status)))...)
	if size > 0 {
		m.bodySize.Record(ctx, float64(size), attrs...)
	}
}

// HTTPMetricsStatusGroup groups status codes into classes (2xx, 4xx, 5xx).
func HTTPMetricsStatusGroup(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "other"
	}
}
