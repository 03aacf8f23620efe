package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is given.
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// Instruments creates instruments on one meter and keeps the first error,
// so a constructor can declare all of its instruments before checking.
type Instruments struct {
	meter metric.Meter
	err   error
}

// NewInstruments returns a builder for meter.
func NewInstruments(meter metric.Meter) *Instruments {
	b := &Instruments{meter: meter}
	if meter == nil {
		b.err = ErrMeterNil
	}
	return b
}

// Err returns the first instrument creation error.
func (b *Instruments) Err() error { return b.err }

func (b *Instruments) fail(name string, err error) {
	if b.err == nil {
		b.err = fmt.Errorf("instrument %s: %w", name, err)
	}
}

// Counter declares a monotonic int64 counter.
func (b *Instruments) Counter(name, description, unit string) *Counter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Counter{c: c}
}

// UpDownCounter declares an int64 counter that may decrease.
func (b *Instruments) UpDownCounter(name, description, unit string) *UpDownCounter {
	if b.err != nil {
		return nil
	}
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &UpDownCounter{c: c}
}

// Histogram declares a float64 histogram. Empty bounds keep the SDK defaults.
func (b *Instruments) Histogram(name, description, unit string, bounds []float64) *Histogram {
	if b.err != nil {
		return nil
	}
	opts := []metric.Float64HistogramOption{metric.WithDescription(description), metric.WithUnit(unit)}
	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}
	h, err := b.meter.Float64Histogram(name, opts...)
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Histogram{h: h}
}

// Gauge declares an int64 gauge.
func (b *Instruments) Gauge(name, description, unit string) *Gauge {
	if b.err != nil {
		return nil
	}
	g, err := b.meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.fail(name, err)
		return nil
	}
	return &Gauge{g: g}
}

// Counter wraps an int64 counter.
type Counter struct{ c metric.Int64Counter }

func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) { c.Add(ctx, 1, attrs...) }

// UpDownCounter wraps an int64 up-down counter.
type UpDownCounter struct{ c metric.Int64UpDownCounter }

func (c *UpDownCounter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Histogram wraps a float64 histogram.
type Histogram struct{ h metric.Float64Histogram }

func (h *Histogram) Record(ctx context.Context, v float64, attrs ...attribute.KeyValue) {
	h.h.Record(ctx, v, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// Gauge wraps an int64 gauge.
type Gauge struct{ g metric.Int64Gauge }

func (g *Gauge) Record(ctx context.Context, v int64, attrs ...attribute.KeyValue) {
	g.g.Record(ctx, v, metric.WithAttributes(attrs...))
}

// Attribute keys used across the service metrics.
var (
	AttrJobType = attribute.Key("job_type")
	AttrStatus  = attribute.Key("status")
	AttrKind    = attribute.Key("kind")
	AttrOutcome = attribute.Key("outcome")

	AttrHTTPMethod      = attribute.Key("http.method")
	AttrHTTPRoute       = attribute.Key("http.route")
	AttrHTTPStatusCode  = attribute.Key("http.status_code")
	AttrHTTPStatusClass = attribute.Key("http.status_class")

	AttrDBOperation = attribute.Key("db.operation")
	AttrDBTable     = attribute.Key("db.table")
	AttrDBState     = attribute.Key("db.pool.state")
)

// Bucket boundaries in seconds.
var (
	// HTTPDurationBuckets: uploads and live KD100 lookups land in the tail.
	HTTPDurationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

	DBDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	// PipelineDurationBuckets span single-file imports up to hour-long scans.
	PipelineDurationBuckets = []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900, 3600}
)
