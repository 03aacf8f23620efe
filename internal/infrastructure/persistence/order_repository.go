package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderRepository serves order lookups and logistics reconciliation
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// eligible restricts a query to orders needing a logistics check at threshold
func eligible(q *gorm.DB, threshold time.Time) *gorm.DB {
	return q.Where("logistics_code IS NOT NULL AND logistics_code <> ''").
		Where("order_status = ? AND is_signed = ?", int(order.StatusShipped), false).
		Where("(logistics_checked = ? OR updated_at < ?)", false, threshold)
}

// CountEligible counts orders needing a logistics check
func (r *GormOrderRepository) CountEligible(ctx context.Context, threshold time.Time) (int64, error) {
	var n int64
	err := eligible(r.db.WithContext(ctx).Model(&models.OrderModel{}), threshold).Count(&n).Error
	return n, err
}

// FindEligible returns the next page of eligible orders after afterID
func (r *GormOrderRepository) FindEligible(ctx context.Context, threshold time.Time, afterID int64, limit int) ([]*order.Order, error) {
	var rows []models.OrderModel
	if err := eligible(r.db.WithContext(ctx), threshold).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// FindByID loads a single order by row id
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*order.Order, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// ApplyLogistics persists the result of a logistics query
func (r *GormOrderRepository) ApplyLogistics(ctx context.Context, id int64, patch order.LogisticsPatch) error {
	updates := map[string]any{
		"logistics_checked":     true,
		"is_signed":             patch.IsSigned,
		"logistics_status":      patch.LogisticsStatus,
		"logistics_status_desc": patch.LogisticsStatusDesc,
		"updated_at":            patch.CheckedAt,
	}
	if patch.SignTime != nil {
		updates["sign_time"] = *patch.SignTime
	}
	result := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Stats returns logistics tracking counters
func (r *GormOrderRepository) Stats(ctx context.Context, threshold time.Time) (*order.LogisticsStats, error) {
	db := r.db.WithContext(ctx)
	base := func() *gorm.DB { return db.Model(&models.OrderModel{}) }
	withCode := func() *gorm.DB {
		return base().Where("logistics_code IS NOT NULL AND logistics_code <> ''")
	}

	var s order.LogisticsStats
	if err := base().Count(&s.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := withCode().Count(&s.WithLogistics).Error; err != nil {
		return nil, err
	}
	if err := withCode().Where("logistics_checked = ?", true).Count(&s.Checked).Error; err != nil {
		return nil, err
	}
	if err := base().Where("is_signed = ?", true).Count(&s.Signed).Error; err != nil {
		return nil, err
	}
	pending, err := r.CountEligible(ctx, threshold)
	if err != nil {
		return nil, err
	}
	s.PendingCheck = pending
	return &s, nil
}

// List returns a page of orders
func (r *GormOrderRepository) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.OrderModel{})
	if filter.Status != nil {
		q = q.Where("order_status = ?", int(*filter.Status))
	}
	if filter.ProvinceName != "" {
		q = q.Where("province_name = ?", filter.ProvinceName)
	}
	if filter.PaidFrom != nil {
		q = q.Where("pay_time >= ?", *filter.PaidFrom)
	}
	if filter.PaidTo != nil {
		q = q.Where("pay_time <= ?", *filter.PaidTo)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, size := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}

	var rows []models.OrderModel
	if err := q.Order("create_time DESC, id DESC").
		Offset((page - 1) * size).
		Limit(size).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*order.Order, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, total, nil
}

// FindByOrderID returns an order with its lines
func (r *GormOrderRepository) FindByOrderID(ctx context.Context, orderID string) (*order.Order, []*order.Line, error) {
	var m models.OrderModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, shared.ErrNotFound
		}
		return nil, nil, err
	}
	var lineRows []models.OrderLineModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&lineRows).Error; err != nil {
		return nil, nil, err
	}
	lines := make([]*order.Line, len(lineRows))
	for i := range lineRows {
		lines[i] = lineRows[i].ToDomain()
	}
	return m.ToDomain(), lines, nil
}

// Compile-time interface compliance check
var (
	_ order.LogisticsRepository = (*GormOrderRepository)(nil)
	_ order.QueryRepository     = (*GormOrderRepository)(nil)
)
