// Package telemetry wires OpenTelemetry metrics, traces and logs for the service.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported as service.version on every signal
const ServiceVersion = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Collector is the OTLP gRPC endpoint a signal exports to.
type Collector struct {
	Endpoint    string
	ServiceName string
	Insecure    bool
}

func (c Collector) resource() (*resource.Resource, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

// signal is the lifecycle shared by the three providers. A nil stop means
// the signal is disabled and the global no-op implementation is in use.
type signal struct {
	name string
	log  *zap.Logger
	stop func(context.Context) error
}

func newSignal(name string, log *zap.Logger) signal {
	if log == nil {
		log = zap.NewNop()
	}
	return signal{name: name, log: log.With(zap.String("signal", name))}
}

// IsEnabled reports whether the signal is exported.
func (s *signal) IsEnabled() bool {
	return s != nil && s.stop != nil
}

// Shutdown flushes buffered data and closes the exporter.
func (s *signal) Shutdown(ctx context.Context) error {
	if !s.IsEnabled() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.stop(ctx); err != nil {
		s.log.Error("Telemetry shutdown failed", zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", s.name, err)
	}
	s.log.Info("Telemetry flushed")
	return nil
}

func (s *signal) started(c Collector, fields ...zap.Field) {
	s.log.Info("Telemetry export started", append([]zap.Field{
		zap.String("collector_endpoint", c.Endpoint),
		zap.String("service_name", c.ServiceName),
	}, fields...)...)
}
