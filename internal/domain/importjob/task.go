package importjob

import (
	"time"
)

// Progress texts shown to operators
const (
	ProgressQueued    = "排队中"
	ProgressCompleted = "完成"
	ProgressFailed    = "失败"
)

// Counters are the cumulative results of an import
type Counters struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed,omitempty"`
}

// Add accumulates other into c
func (c *Counters) Add(other Counters) {
	c.Total += other.Total
	c.Created += other.Created
	c.Updated += other.Updated
	c.Skipped += other.Skipped
	c.Failed += other.Failed
}

// Task is the human readable status record of a job, keyed by TaskID
type Task struct {
	ID             int64
	TaskID         string
	Type           JobType
	Status         Status
	Progress       string
	Filename       string
	OrderStats     *Counters
	AfterSaleStats *Counters
	SkuStatsCount  int
	Error          string
	StartedAt      time.Time
	CompletedAt    *time.Time
}

// NewTask creates the task record paired with a queued job
func NewTask(taskID string, jobType JobType, filename string) *Task {
	return &Task{
		TaskID:    taskID,
		Type:      jobType,
		Status:    StatusQueued,
		Progress:  ProgressQueued,
		Filename:  filename,
		StartedAt: time.Now(),
	}
}

// TaskPatch lists the task fields a processing step may change.
// Nil fields are left untouched.
type TaskPatch struct {
	Status         *Status
	Progress       *string
	OrderStats     *Counters
	AfterSaleStats *Counters
	SkuStatsCount  *int
	Error          *string
	CompletedAt    *time.Time
}

// Apply applies the patch to t
func (p TaskPatch) Apply(t *Task) {
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Progress != nil {
		t.Progress = *p.Progress
	}
	if p.OrderStats != nil {
		t.OrderStats = p.OrderStats
	}
	if p.AfterSaleStats != nil {
		t.AfterSaleStats = p.AfterSaleStats
	}
	if p.SkuStatsCount != nil {
		t.SkuStatsCount = *p.SkuStatsCount
	}
	if p.Error != nil {
		t.Error = *p.Error
	}
	if p.CompletedAt != nil {
		t.CompletedAt = p.CompletedAt
	}
}

// ProgressPatch only updates the progress text
func ProgressPatch(text string) TaskPatch {
	return TaskPatch{Progress: &text}
}

// ProcessingPatch marks the task as picked up
func ProcessingPatch(text string) TaskPatch {
	status := StatusProcessing
	return TaskPatch{Status: &status, Progress: &text}
}

// CompletedPatch marks the task done with the number of refreshed SKU snapshots
func CompletedPatch(skuCount int, at time.Time) TaskPatch {
	status := StatusCompleted
	progress := ProgressCompleted
	return TaskPatch{Status: &status, Progress: &progress, SkuStatsCount: &skuCount, CompletedAt: &at}
}

// FailedPatch marks the task failed with the error text
func FailedPatch(errText string, at time.Time) TaskPatch {
	status := StatusFailed
	progress := ProgressFailed
	return TaskPatch{Status: &status, Progress: &progress, Error: &errText, CompletedAt: &at}
}
