package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/application/queue"
	"github.com/flowstart/douyin-web/internal/application/reconcile"
	"github.com/flowstart/douyin-web/internal/application/stats"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/scan"
)

// PipelineMetrics records the import queue, the statistics engine and the
// logistics scanner.
type PipelineMetrics struct {
	logger *zap.Logger

	importJobs        *Counter
	importJobDuration *Histogram
	importRows        *Counter

	statsRuns     *Counter
	statsDuration *Histogram
	statsSkus     *Gauge

	scans         *Counter
	scanDuration  *Histogram
	scannedOrders *Counter
}

var (
	_ queue.Recorder     = (*PipelineMetrics)(nil)
	_ stats.Recorder     = (*PipelineMetrics)(nil)
	_ reconcile.Recorder = (*PipelineMetrics)(nil)
)

// NewPipelineMetrics creates the instruments on meter.
func NewPipelineMetrics(meter metric.Meter, logger *zap.Logger) (*PipelineMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	in := NewInstruments(meter)
	pm := &PipelineMetrics{
		logger: logger,

		importJobs: in.Counter("douyin_import_jobs_total",
			"Import jobs finished, by type and final status", "{jobs}"),
		importJobDuration: in.Histogram("douyin_import_job_duration_seconds",
			"Time spent processing one import job", "s", PipelineDurationBuckets),
		importRows: in.Counter("douyin_import_rows_total",
			"Rows read from export files, by kind and outcome", "{rows}"),

		statsRuns: in.Counter("douyin_stats_runs_total",
			"SKU statistics recomputations", "{runs}"),
		statsDuration: in.Histogram("douyin_stats_run_duration_seconds",
			"Time spent recomputing SKU statistics", "s", PipelineDurationBuckets),
		statsSkus: in.Gauge("douyin_stats_sku_count",
			"SKUs written by the last statistics run", "{skus}"),

		scans: in.Counter("douyin_logistics_scans_total",
			"Logistics scans finished, by final status", "{scans}"),
		scanDuration: in.Histogram("douyin_logistics_scan_duration_seconds",
			"Time spent on one logistics scan", "s", PipelineDurationBuckets),
		scannedOrders: in.Counter("douyin_logistics_scanned_orders_total",
			"Orders visited by logistics scans, by outcome", "{orders}"),
	}
	if err := in.Err(); err != nil {
		return nil, err
	}
	return pm, nil
}

// RecordJob records a finished import job.
func (pm *PipelineMetrics) RecordJob(ctx context.Context, jobType, status string, duration time.Duration) {
	pm.importJobs.Inc(ctx, AttrJobType.String(jobType), AttrStatus.String(status))
	pm.importJobDuration.RecordDuration(ctx, duration, AttrJobType.String(jobType))
}

// RecordRows records the row counters of one imported file.
func (pm *PipelineMetrics) RecordRows(ctx context.Context, kind string, c importjob.Counters) {
	add := func(outcome string, n int) {
		if n > 0 {
			pm.importRows.Add(ctx, int64(n), AttrKind.String(kind), AttrOutcome.String(outcome))
		}
	}
	add("created", c.Created)
	add("updated", c.Updated)
	add("skipped", c.Skipped)
	add("failed", c.Failed)
}

// RecordStatsRun records a statistics recomputation.
func (pm *PipelineMetrics) RecordStatsRun(ctx context.Context, skus int, duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
	} else {
		pm.statsSkus.Record(ctx, int64(skus))
	}
	pm.statsRuns.Inc(ctx, AttrStatus.String(status))
	pm.statsDuration.RecordDuration(ctx, duration, AttrStatus.String(status))
}

// RecordScan records a finished logistics scan.
func (pm *PipelineMetrics) RecordScan(ctx context.Context, p *scan.Progress, duration time.Duration) {
	if p == nil {
		return
	}
	pm.scans.Inc(ctx, AttrStatus.String(p.Status))
	pm.scanDuration.RecordDuration(ctx, duration, AttrStatus.String(p.Status))

	add := func(outcome string, n int) {
		if n > 0 {
			pm.scannedOrders.Add(ctx, int64(n), AttrOutcome.String(outcome))
		}
	}
	add("signed", p.Signed)
	add("unsigned", p.Checked-p.Signed)
	add("skipped", p.Skipped)
	add("failed", p.Failed)

	pm.logger.Debug("Logistics scan recorded",
		zap.String("task_id", p.TaskID),
		zap.String("status", p.Status),
		zap.Duration("duration", duration),
	)
}
