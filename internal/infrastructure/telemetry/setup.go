package telemetry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/infrastructure/config"
)

// Providers groups the three signal providers created at startup.
type Providers struct {
	Meter  *MeterProvider
	Tracer *TracerProvider
	Logs   *LoggerProvider
}

// Setup creates the providers described by cfg. Disabled signals fall back
// to the global no-op implementations.
func Setup(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*Providers, error) {
	collector := Collector{
		Endpoint:    cfg.CollectorEndpoint,
		ServiceName: cfg.ServiceName,
		Insecure:    cfg.Insecure,
	}

	p := &Providers{}
	var err error
	if p.Meter, err = NewMeterProvider(ctx, MetricsConfig{
		Collector:      collector,
		Enabled:        cfg.MetricsEnabled,
		ExportInterval: cfg.ExportInterval,
	}, logger); err != nil {
		return nil, err
	}
	if p.Tracer, err = NewTracerProvider(ctx, TracingConfig{
		Collector:     collector,
		Enabled:       cfg.TracingEnabled,
		SamplingRatio: cfg.SamplingRatio,
	}, logger); err != nil {
		_ = p.Meter.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, LogsConfig{
		Collector: collector,
		Enabled:   cfg.LogsEnabled,
	}, logger); err != nil {
		_ = p.Meter.Shutdown(ctx)
		_ = p.Tracer.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Shutdown flushes every provider and joins their errors.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
		p.Logs.Shutdown(ctx),
	)
}
