package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBMetricsConfig holds configuration for database metrics collection.
type DBMetricsConfig struct {
	SlowQueryThreshold time.Duration // default 200ms
}

// DBMetrics records query counts and latencies. Pool usage is observed at
// collection time once a database has been instrumented.
type DBMetrics struct {
	meter          metric.Meter
	poolConns      metric.Int64ObservableGauge
	poolConnsMax   metric.Int64ObservableGauge
	queryTotal     *Counter
	queryDuration  *Histogram
	slowQueryTotal *Counter

	slowThreshold time.Duration
	logger        *zap.Logger

	mu   sync.Mutex
	pool *sql.DB
	reg  metric.Registration
}

// NewDBMetrics creates the database instruments on meter.
func NewDBMetrics(meter metric.Meter, cfg DBMetricsConfig, logger *zap.Logger) (*DBMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SlowQueryThreshold == 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}

	in := NewInstruments(meter)
	m := &DBMetrics{
		meter: meter,
		queryTotal: in.Counter("db_query_total",
			"Statements by operation", "{query}"),
		queryDuration: in.Histogram("db_query_duration_seconds",
			"Statement latency", "s", DBDurationBuckets),
		slowQueryTotal: in.Counter("db_slow_query_total",
			"Statements slower than the threshold, by table", "{query}"),
		slowThreshold: cfg.SlowQueryThreshold,
		logger:        logger,
	}
	var connsErr, maxErr error
	m.poolConns, connsErr = meter.Int64ObservableGauge("db_pool_connections",
		metric.WithDescription("Pool connections by state"), metric.WithUnit("{connection}"))
	m.poolConnsMax, maxErr = meter.Int64ObservableGauge("db_pool_connections_max",
		metric.WithDescription("Configured pool size"), metric.WithUnit("{connection}"))
	if err := errors.Join(in.Err(), connsErr, maxErr); err != nil {
		return nil, err
	}
	return m, nil
}

// Instrument registers the query callbacks on db and starts observing its
// connection pool.
func (m *DBMetrics) Instrument(db *gorm.DB) error {
	pool, err := db.DB()
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reg != nil {
		return errors.New("db metrics: database already instrumented")
	}
	if err := gormHooks(db, "db_metrics", "db_metrics_start_time", func(db *gorm.DB, operation string, elapsed time.Duration) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		m.RecordQuery(ctx, operation, db.Statement.Table, elapsed)
	}); err != nil {
		return err
	}
	reg, err := m.meter.RegisterCallback(m.observePool, m.poolConns, m.poolConnsMax)
	if err != nil {
		return err
	}
	m.pool, m.reg = pool, reg
	return nil
}

func (m *DBMetrics) observePool(_ context.Context, o metric.Observer) error {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		return nil
	}
	stats := pool.Stats()
	o.ObserveInt64(m.poolConnsMax, int64(stats.MaxOpenConnections))
	for state, n := range map[string]int{
		"idle":   stats.Idle,
		"in_use": stats.InUse,
		"open":   stats.OpenConnections,
	} {
		o.ObserveInt64(m.poolConns, int64(n), metric.WithAttributes(AttrDBState.String(state)))
	}
	return nil
}

// RecordQuery records one executed statement.
func (m *DBMetrics) RecordQuery(ctx context.Context, operation, table string, duration time.Duration) {
	operation = strings.ToUpper(operation)
	if operation == "" {
		operation = "UNKNOWN"
	}
	m.queryTotal.Inc(ctx, AttrDBOperation.String(operation))
	m.queryDuration.RecordDuration(ctx, duration, AttrDBOperation.String(operation))

	if duration > m.slowThreshold {
		if table == "" {
			table = "unknown"
		}
		m.slowQueryTotal.Inc(ctx, AttrDBTable.String(table))
	}
}

// Stop unregisters the pool observer. Safe to call multiple times.
func (m *DBMetrics) Stop() {
	m.mu.Lock()
	reg := m.reg
	m.reg, m.pool = nil, nil
	m.mu.Unlock()
	if reg == nil {
		return
	}
	if err := reg.Unregister(); err != nil {
		m.logger.Warn("Failed to unregister pool observer", zap.Error(err))
	}
}
