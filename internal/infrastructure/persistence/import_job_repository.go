package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormImportJobRepository implements the durable job queue on GORM
type GormImportJobRepository struct {
	db *gorm.DB
}

// NewGormImportJobRepository creates a new GormImportJobRepository
func NewGormImportJobRepository(db *gorm.DB) *GormImportJobRepository {
	return &GormImportJobRepository{db: db}
}

// Create stores a queued job
func (r *GormImportJobRepository) Create(ctx context.Context, job *importjob.Job) error {
	m := models.ImportJobModelFromDomain(job)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	job.ID = m.ID
	return nil
}

// OldestQueued returns the oldest queued job or nil
func (r *GormImportJobRepository) OldestQueued(ctx context.Context) (*importjob.Job, error) {
	var rows []models.ImportJobModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", string(importjob.StatusQueued)).
		Order("created_at ASC, id ASC").
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0].ToDomain(), nil
}

// TryClaim moves the job to processing with a single conditional UPDATE.
// Only the caller whose statement affected the row owns the job.
func (r *GormImportJobRepository) TryClaim(ctx context.Context, id int64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ImportJobModel{}).
		Where("id = ? AND status = ?", id, string(importjob.StatusQueued)).
		Updates(map[string]any{
			"status":     string(importjob.StatusProcessing),
			"picked_at":  at,
			"updated_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// FindByID loads a job
func (r *GormImportJobRepository) FindByID(ctx context.Context, id int64) (*importjob.Job, error) {
	var m models.ImportJobModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByTaskID loads a job by its task id
func (r *GormImportJobRepository) FindByTaskID(ctx context.Context, taskID string) (*importjob.Job, error) {
	var m models.ImportJobModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// UpdateStatus sets the status of a job
func (r *GormImportJobRepository) UpdateStatus(ctx context.Context, id int64, status importjob.Status) error {
	result := r.db.WithContext(ctx).
		Model(&models.ImportJobModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": string(status), "updated_at": time.Now()})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteByTaskIDs removes the jobs of the given tasks
func (r *GormImportJobRepository) DeleteByTaskIDs(ctx context.Context, taskIDs []string) error {
	if len(taskIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("task_id IN ?", taskIDs).Delete(&models.ImportJobModel{}).Error
}

// GormImportTaskRepository stores the human readable task records
type GormImportTaskRepository struct {
	db *gorm.DB
}

// NewGormImportTaskRepository creates a new GormImportTaskRepository
func NewGormImportTaskRepository(db *gorm.DB) *GormImportTaskRepository {
	return &GormImportTaskRepository{db: db}
}

// Create stores a task
func (r *GormImportTaskRepository) Create(ctx context.Context, task *importjob.Task) error {
	m := models.ImportTaskModelFromDomain(task)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	task.ID = m.ID
	return nil
}

// FindByTaskID loads a task
func (r *GormImportTaskRepository) FindByTaskID(ctx context.Context, taskID string) (*importjob.Task, error) {
	var m models.ImportTaskModel
	if err := r.db.WithContext(ctx).Where("task_id = ?", taskID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// Update writes the fields set in patch
func (r *GormImportTaskRepository) Update(ctx context.Context, taskID string, patch importjob.TaskPatch) error {
	var (
		m    models.ImportTaskModel
		cols []string
	)
	if patch.Status != nil {
		m.Status = string(*patch.Status)
		cols = append(cols, "status")
	}
	if patch.Progress != nil {
		m.Progress = *patch.Progress
		cols = append(cols, "progress")
	}
	if patch.OrderStats != nil {
		m.OrderStats = patch.OrderStats
		cols = append(cols, "order_stats")
	}
	if patch.AfterSaleStats != nil {
		m.AfterSaleStats = patch.AfterSaleStats
		cols = append(cols, "aftersale_stats")
	}
	if patch.SkuStatsCount != nil {
		m.SkuStatsCount = *patch.SkuStatsCount
		cols = append(cols, "sku_stats_count")
	}
	if patch.Error != nil {
		m.Error = *patch.Error
		cols = append(cols, "error")
	}
	if patch.CompletedAt != nil {
		m.CompletedAt = patch.CompletedAt
		cols = append(cols, "completed_at")
	}
	if len(cols) == 0 {
		return nil
	}

	result := r.db.WithContext(ctx).
		Model(&models.ImportTaskModel{}).
		Where("task_id = ?", taskID).
		Select(cols).
		Updates(&m)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Recent returns the most recent tasks
func (r *GormImportTaskRepository) Recent(ctx context.Context, limit int) ([]*importjob.Task, error) {
	var rows []models.ImportTaskModel
	if err := r.db.WithContext(ctx).
		Order("started_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*importjob.Task, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// PruneKeep deletes finished tasks older than the keep most recent ones.
// Queued and processing tasks are never pruned, however old.
func (r *GormImportTaskRepository) PruneKeep(ctx context.Context, keep int) ([]string, error) {
	var rows []struct {
		TaskID string
		Status string
	}
	if err := r.db.WithContext(ctx).
		Model(&models.ImportTaskModel{}).
		Select("task_id", "status").
		Order("started_at DESC, id DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) <= keep {
		return nil, nil
	}
	var stale []string
	for _, row := range rows[keep:] {
		if importjob.Status(row.Status).IsTerminal() {
			stale = append(stale, row.TaskID)
		}
	}
	if len(stale) == 0 {
		return nil, nil
	}
	if err := r.db.WithContext(ctx).Where("task_id IN ?", stale).Delete(&models.ImportTaskModel{}).Error; err != nil {
		return nil, err
	}
	return stale, nil
}

// Compile-time interface compliance check
var (
	_ importjob.JobRepository  = (*GormImportJobRepository)(nil)
	_ importjob.TaskRepository = (*GormImportTaskRepository)(nil)
)
