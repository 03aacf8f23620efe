package importjob

import (
	"context"
	"time"
)

// JobRepository is the durable queue
type JobRepository interface {
	// Create stores a queued job
	Create(ctx context.Context, job *Job) error

	// OldestQueued returns the oldest queued job, or nil when the queue is empty
	OldestQueued(ctx context.Context) (*Job, error)

	// TryClaim atomically moves the job from queued to processing.
	// It returns false when another consumer claimed it first.
	TryClaim(ctx context.Context, id int64, at time.Time) (bool, error)

	// FindByID loads a job
	FindByID(ctx context.Context, id int64) (*Job, error)

	// FindByTaskID loads a job by its task id
	FindByTaskID(ctx context.Context, taskID string) (*Job, error)

	// UpdateStatus sets the job status
	UpdateStatus(ctx context.Context, id int64, status Status) error

	// DeleteByTaskIDs removes the jobs of pruned tasks
	DeleteByTaskIDs(ctx context.Context, taskIDs []string) error
}

// TaskRepository stores the human readable task records
type TaskRepository interface {
	Create(ctx context.Context, task *Task) error
	FindByTaskID(ctx context.Context, taskID string) (*Task, error)
	Update(ctx context.Context, taskID string, patch TaskPatch) error

	// Recent returns the most recent tasks by start time
	Recent(ctx context.Context, limit int) ([]*Task, error)

	// PruneKeep deletes completed and failed tasks older than the keep most
	// recent ones and returns the deleted task ids
	PruneKeep(ctx context.Context, keep int) ([]string, error)
}
