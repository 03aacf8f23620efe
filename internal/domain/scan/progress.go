// Package scan describes logistics reconciliation runs and where their
// progress is kept while clients poll it.
package scan

import (
	"context"
	"time"
)

// TaskPrefix starts every scan task id, e.g. logistics_20240501_120000
const TaskPrefix = "logistics"

// Status of a scan run
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress texts
const (
	ProgressChecking    = "正在检查物流状态..."
	ProgressRecalculate = "正在重新计算统计..."
	ProgressCompleted   = "完成"
)

// Progress is the pollable snapshot of one scan
type Progress struct {
	TaskID          string     `json:"task_id"`
	Status          Status     `json:"status"`
	Progress        string     `json:"progress"`
	Total           int        `json:"total"`
	Checked         int        `json:"checked"`
	Signed          int        `json:"signed"`
	Skipped         int        `json:"skipped"`
	Failed          int        `json:"failed"`
	IntervalMinutes int        `json:"interval_minutes"`
	Limit           int        `json:"limit"`
	SkuStatsCount   int        `json:"sku_stats_count,omitempty"`
	Error           string     `json:"error,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewProgress starts a running snapshot
func NewProgress(taskID string, total, intervalMinutes, limit int, startedAt time.Time) *Progress {
	return &Progress{
		TaskID:          taskID,
		Status:          StatusProcessing,
		Progress:        ProgressChecking,
		Total:           total,
		IntervalMinutes: intervalMinutes,
		Limit:           limit,
		StartedAt:       startedAt,
	}
}

// Complete marks the run finished
func (p *Progress) Complete(skuStats int, at time.Time) {
	p.Status = StatusCompleted
	p.Progress = ProgressCompleted
	p.SkuStatsCount = skuStats
	p.CompletedAt = &at
}

// Fail marks the run aborted
func (p *Progress) Fail(err error, at time.Time) {
	p.Status = StatusFailed
	p.Error = err.Error()
	p.CompletedAt = &at
}

// Clone returns an independent copy
func (p *Progress) Clone() *Progress {
	c := *p
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// Registry keeps progress snapshots. Entries are not durable.
type Registry interface {
	// Save stores or replaces the snapshot of p.TaskID
	Save(ctx context.Context, p *Progress) error

	// Get returns the snapshot, or shared.ErrNotFound
	Get(ctx context.Context, taskID string) (*Progress, error)
}
