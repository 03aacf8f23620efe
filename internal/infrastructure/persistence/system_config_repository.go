package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// ConfigItem is one row of system_configs
type ConfigItem struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// GormSystemConfigRepository stores key/value settings
type GormSystemConfigRepository struct {
	db *gorm.DB
}

// NewGormSystemConfigRepository creates a new GormSystemConfigRepository
func NewGormSystemConfigRepository(db *gorm.DB) *GormSystemConfigRepository {
	return &GormSystemConfigRepository{db: db}
}

// Get returns a value and whether it exists
func (r *GormSystemConfigRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var m models.SystemConfigModel
	if err := r.db.WithContext(ctx).Where("config_key = ?", key).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.ConfigValue, true, nil
}

// Set inserts or replaces a value. An empty description keeps the stored one.
func (r *GormSystemConfigRepository) Set(ctx context.Context, key, value, description string) error {
	m := &models.SystemConfigModel{ConfigKey: key, ConfigValue: value, Description: description}
	cols := []string{"config_value", "updated_at"}
	if description != "" {
		cols = append(cols, "description")
	}
	return upsertMany(r.db.WithContext(ctx), []*models.SystemConfigModel{m}, "config_key", cols)
}

// SetMany writes several values in one transaction
func (r *GormSystemConfigRepository) SetMany(ctx context.Context, values map[string]string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewGormSystemConfigRepository(tx)
		for k, v := range values {
			if err := repo.Set(ctx, k, v, ""); err != nil {
				return err
			}
		}
		return nil
	})
}

// SeedDefaults inserts the given values for keys that do not exist yet
func (r *GormSystemConfigRepository) SeedDefaults(ctx context.Context, defaults []ConfigItem) error {
	for _, d := range defaults {
		m := &models.SystemConfigModel{ConfigKey: d.Key, ConfigValue: d.Value, Description: d.Description}
		if err := r.db.WithContext(ctx).
			Where(models.SystemConfigModel{ConfigKey: d.Key}).
			FirstOrCreate(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// List returns every setting ordered by key
func (r *GormSystemConfigRepository) List(ctx context.Context) ([]ConfigItem, error) {
	var rows []models.SystemConfigModel
	if err := r.db.WithContext(ctx).Order("config_key ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]ConfigItem, len(rows))
	for i, m := range rows {
		out[i] = ConfigItem{Key: m.ConfigKey, Value: m.ConfigValue, Description: m.Description, UpdatedAt: m.UpdatedAt}
	}
	return out, nil
}

// DefaultSettings are seeded at startup
func DefaultSettings() []ConfigItem {
	return []ConfigItem{
		{Key: setting.KeyLogisticsInterval, Value: "35", Description: "物流查询间隔（分钟）"},
		{Key: setting.KeyKD100Customer, Value: "", Description: "快递100 customer"},
		{Key: setting.KeyKD100Key, Value: "", Description: "快递100 授权key"},
	}
}

// Compile-time interface compliance check
var _ setting.Repository = (*GormSystemConfigRepository)(nil)
