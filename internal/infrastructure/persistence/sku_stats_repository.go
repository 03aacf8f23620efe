package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// skuStatsCounterColumns are taken from the fresh snapshot on every save
var skuStatsCounterColumns = []string{
	"sku_id", "pending_ship_count", "aftersale_pending_count", "signed_count",
	"signed_return_count", "in_transit_count", "quality_return_count",
	"quality_return_rate", "last_calculated_at", "updated_at",
}

// skuStatsUpsert merges a fresh snapshot into the stored row. A stored
// manual rate wins and the estimate and gap are derived from it, so an
// override landing while a refresh is in flight is never lost.
func skuStatsUpsert(tx *gorm.DB) clause.Set {
	const manual = "sku_stats.is_rate_manual"
	estimate := floorExpr(tx, "excluded.in_transit_count * sku_stats.estimated_return_rate")

	set := clause.AssignmentColumns(skuStatsCounterColumns)
	for _, a := range [][2]string{
		{"sku_name", "COALESCE(NULLIF(excluded.sku_name, ''), sku_stats.sku_name)"},
		{"product_name", "COALESCE(NULLIF(excluded.product_name, ''), sku_stats.product_name)"},
		{"estimated_return_rate", "CASE WHEN " + manual +
			" THEN sku_stats.estimated_return_rate ELSE excluded.estimated_return_rate END"},
		{"in_transit_return_estimate", "CASE WHEN " + manual +
			" THEN " + estimate + " ELSE excluded.in_transit_return_estimate END"},
		{"stock_gap", "CASE WHEN " + manual +
			" THEN excluded.pending_ship_count - excluded.aftersale_pending_count - " + estimate +
			" ELSE excluded.stock_gap END"},
	} {
		set = append(set, clause.Assignment{Column: clause.Column{Name: a[0]}, Value: gorm.Expr(a[1])})
	}
	return set
}

// GormSkuStatsRepository persists SKU snapshots
type GormSkuStatsRepository struct {
	db *gorm.DB
}

// NewGormSkuStatsRepository creates a new GormSkuStatsRepository
func NewGormSkuStatsRepository(db *gorm.DB) *GormSkuStatsRepository {
	return &GormSkuStatsRepository{db: db}
}

// FindByCode loads a snapshot by SKU code
func (r *GormSkuStatsRepository) FindByCode(ctx context.Context, skuCode string) (*skustats.SkuStats, error) {
	var m models.SkuStatsModel
	if err := r.db.WithContext(ctx).Where("sku_code = ?", skuCode).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("SKU %s not found", skuCode))
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// SaveAll upserts freshly calculated snapshots by SKU code in one
// transaction. The manual flag is never written here.
func (r *GormSkuStatsRepository) SaveAll(ctx context.Context, stats []*skustats.SkuStats) error {
	if len(stats) == 0 {
		return nil
	}
	rows := make([]*models.SkuStatsModel, len(stats))
	for i, s := range stats {
		rows[i] = models.SkuStatsModelFromDomain(s)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertWith(tx, rows, "sku_code", skuStatsUpsert(tx)); err != nil {
			return fmt.Errorf("upsert sku stats: %w", err)
		}
		return nil
	})
}

// SetManualRate pins the return rate of one SKU and rederives the estimate
// and gap from the stored counters in a single statement.
func (r *GormSkuStatsRepository) SetManualRate(ctx context.Context, skuCode string, rate float64, at time.Time) (*skustats.SkuStats, error) {
	db := r.db.WithContext(ctx)
	estimate := floorExpr(db, "in_transit_count * CAST(? AS DOUBLE PRECISION)")
	res := db.Model(&models.SkuStatsModel{}).Where("sku_code = ?", skuCode).Updates(map[string]any{
		"estimated_return_rate":      rate,
		"is_rate_manual":             true,
		"in_transit_return_estimate": gorm.Expr(estimate, rate),
		"stock_gap":                  gorm.Expr("pending_ship_count - aftersale_pending_count - "+estimate, rate),
		"updated_at":                 at,
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, shared.ErrNotFound.WithMessage(fmt.Sprintf("SKU %s not found", skuCode))
	}
	return r.FindByCode(ctx, skuCode)
}

// List returns cached snapshots. TopN takes precedence over paging.
func (r *GormSkuStatsRepository) List(ctx context.Context, filter skustats.ListFilter) (*skustats.ListResult, error) {
	q := r.db.WithContext(ctx).Model(&models.SkuStatsModel{})
	if filter.Keyword != "" {
		q = q.Where("sku_code LIKE ?", "%"+filter.Keyword+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, err
	}

	q = q.Order(sortColumn(filter.SortBy, filter.SortOrder, models.SkuStatsSortFields, "pending_ship_count")).
		Order("sku_code ASC")

	if filter.TopN > 0 {
		q = q.Limit(filter.TopN)
	} else {
		page, size := filter.Page, filter.PageSize
		if page < 1 {
			page = 1
		}
		if size < 1 {
			size = 20
		}
		q = q.Offset((page - 1) * size).Limit(size)
	}

	var rows []models.SkuStatsModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	items := make([]*skustats.SkuStats, len(rows))
	for i := range rows {
		items[i] = rows[i].ToDomain()
	}
	return &skustats.ListResult{Items: items, Total: total}, nil
}

// Compile-time interface compliance check
var _ skustats.Repository = (*GormSkuStatsRepository)(nil)
