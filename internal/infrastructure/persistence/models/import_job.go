package models

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
)

// ImportJobModel is the persistence model for the import_jobs queue table
type ImportJobModel struct {
	ID        int64             `gorm:"primaryKey;autoIncrement"`
	TaskID    string            `gorm:"type:varchar(64);not null;uniqueIndex"`
	TaskType  string            `gorm:"type:varchar(20);not null"`
	Status    string            `gorm:"type:varchar(20);not null;default:queued;index"`
	Payload   map[string]string `gorm:"type:text;serializer:json"`
	PickedAt  *time.Time
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ImportJobModel) TableName() string {
	return "import_jobs"
}

// ToDomain converts the model to a domain job
func (m *ImportJobModel) ToDomain() *importjob.Job {
	payload := m.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	return &importjob.Job{
		ID:        m.ID,
		TaskID:    m.TaskID,
		Type:      importjob.JobType(m.TaskType),
		Status:    importjob.Status(m.Status),
		Payload:   payload,
		PickedAt:  m.PickedAt,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ImportJobModelFromDomain converts a domain job to the model
func ImportJobModelFromDomain(j *importjob.Job) *ImportJobModel {
	return &ImportJobModel{
		ID:        j.ID,
		TaskID:    j.TaskID,
		TaskType:  string(j.Type),
		Status:    string(j.Status),
		Payload:   j.Payload,
		PickedAt:  j.PickedAt,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	}
}

// ImportTaskModel is the persistence model for the import_tasks table
type ImportTaskModel struct {
	ID             int64               `gorm:"primaryKey;autoIncrement"`
	TaskID         string              `gorm:"type:varchar(64);not null;uniqueIndex"`
	TaskType       string              `gorm:"type:varchar(20);not null"`
	Status         string              `gorm:"type:varchar(20);not null"`
	Progress       string              `gorm:"type:varchar(200)"`
	Filename       string              `gorm:"type:varchar(500)"`
	OrderStats     *importjob.Counters `gorm:"type:text;serializer:json"`
	AfterSaleStats *importjob.Counters `gorm:"column:aftersale_stats;type:text;serializer:json"`
	SkuStatsCount  int                 `gorm:"not null;default:0"`
	Error          string              `gorm:"type:text"`
	StartedAt      time.Time           `gorm:"not null;index"`
	CompletedAt    *time.Time
}

// TableName returns the table name for GORM
func (ImportTaskModel) TableName() string {
	return "import_tasks"
}

// ToDomain converts the model to a domain task
func (m *ImportTaskModel) ToDomain() *importjob.Task {
	return &importjob.Task{
		ID:             m.ID,
		TaskID:         m.TaskID,
		Type:           importjob.JobType(m.TaskType),
		Status:         importjob.Status(m.Status),
		Progress:       m.Progress,
		Filename:       m.Filename,
		OrderStats:     m.OrderStats,
		AfterSaleStats: m.AfterSaleStats,
		SkuStatsCount:  m.SkuStatsCount,
		Error:          m.Error,
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
	}
}

// ImportTaskModelFromDomain converts a domain task to the model
func ImportTaskModelFromDomain(t *importjob.Task) *ImportTaskModel {
	return &ImportTaskModel{
		ID:             t.ID,
		TaskID:         t.TaskID,
		TaskType:       string(t.Type),
		Status:         string(t.Status),
		Progress:       t.Progress,
		Filename:       t.Filename,
		OrderStats:     t.OrderStats,
		AfterSaleStats: t.AfterSaleStats,
		SkuStatsCount:  t.SkuStatsCount,
		Error:          t.Error,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
	}
}

// SystemConfigModel is a key/value setting
type SystemConfigModel struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	ConfigKey   string `gorm:"type:varchar(100);not null;uniqueIndex"`
	ConfigValue string `gorm:"type:text"`
	Description string `gorm:"type:varchar(500)"`
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (SystemConfigModel) TableName() string {
	return "system_configs"
}

// All returns every model, in dependency order, for AutoMigrate
func All() []any {
	return []any{
		&OrderModel{},
		&OrderLineModel{},
		&AfterSaleModel{},
		&SkuStatsModel{},
		&ImportJobModel{},
		&ImportTaskModel{},
		&SystemConfigModel{},
	}
}
