package importjob

import (
	"fmt"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/shared"
)

// JobType selects what a job imports
type JobType string

const (
	JobTypeOrders     JobType = "orders"
	JobTypeAfterSales JobType = "aftersales"
	JobTypeAll        JobType = "all"
	JobTypeDouyinSync JobType = "douyin_sync"
)

// IsValid checks if the job type is valid
func (t JobType) IsValid() bool {
	switch t {
	case JobTypeOrders, JobTypeAfterSales, JobTypeAll, JobTypeDouyinSync:
		return true
	}
	return false
}

// Status is the queue state of a job
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// IsTerminal returns true if this is a terminal state
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Payload keys
const (
	PayloadOrdersFile     = "orders_filename"
	PayloadAfterSalesFile = "aftersales_filename"
	PayloadStartTime      = "start_time"
	PayloadEndTime        = "end_time"
	PayloadSyncScope      = "scope"
)

// Job is a queue entry. Jobs are never re-queued: a failed job stays failed.
type Job struct {
	ID        int64
	TaskID    string
	Type      JobType
	Status    Status
	Payload   map[string]string
	PickedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewJob creates a queued job
func NewJob(taskID string, jobType JobType, payload map[string]string) (*Job, error) {
	if taskID == "" {
		return nil, shared.NewDomainError("INVALID_TASK_ID", "Task ID cannot be empty")
	}
	if !jobType.IsValid() {
		return nil, shared.NewDomainError("INVALID_JOB_TYPE", fmt.Sprintf("Invalid job type: %s", jobType))
	}
	if payload == nil {
		payload = map[string]string{}
	}
	now := time.Now()
	return &Job{
		TaskID:    taskID,
		Type:      jobType,
		Status:    StatusQueued,
		Payload:   payload,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Complete marks a processing job as completed
func (j *Job) Complete() error {
	if j.Status != StatusProcessing {
		return shared.NewDomainError("INVALID_STATE", "Can only complete a processing job")
	}
	j.Status = StatusCompleted
	j.UpdatedAt = time.Now()
	return nil
}

// Fail marks a job as failed
func (j *Job) Fail() error {
	if j.Status.IsTerminal() {
		return shared.NewDomainError("INVALID_STATE", "Job already finished")
	}
	j.Status = StatusFailed
	j.UpdatedAt = time.Now()
	return nil
}

// NewTaskID builds a task id such as "orders_20240501_120000"
func NewTaskID(prefix string, at time.Time) string {
	return prefix + "_" + at.Format("20060102_150405")
}
