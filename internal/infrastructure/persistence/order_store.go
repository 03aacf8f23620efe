package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormOrderStore implements order.Store on GORM
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a new GormOrderStore
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// ExistingOrderIDs returns the order ids already stored
func (s *GormOrderStore) ExistingOrderIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found, err := existingKeys(s.db.WithContext(ctx), &models.OrderModel{}, "order_id", ids)
	if err != nil {
		return nil, fmt.Errorf("query existing orders: %w", err)
	}
	return found, nil
}

// ExistingAfterSaleIDs returns the after-sale ids already stored
func (s *GormOrderStore) ExistingAfterSaleIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	found, err := existingKeys(s.db.WithContext(ctx), &models.AfterSaleModel{}, "aftersale_id", ids)
	if err != nil {
		return nil, fmt.Errorf("query existing after-sales: %w", err)
	}
	return found, nil
}

// WithinBatch runs fn inside a single transaction
func (s *GormOrderStore) WithinBatch(ctx context.Context, fn func(w order.BatchWriter) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormBatchWriter{tx: tx})
	})
}

type gormBatchWriter struct {
	tx *gorm.DB
}

func (w *gormBatchWriter) UpsertOrders(orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	rows := make([]*models.OrderModel, len(orders))
	for i, o := range orders {
		rows[i] = models.OrderModelFromDomain(o)
	}
	if err := upsertMany(w.tx, rows, "order_id", models.OrderUpsertColumns); err != nil {
		return fmt.Errorf("upsert orders: %w", err)
	}
	return nil
}

func (w *gormBatchWriter) ReplaceLines(orderIDs []string, lines []*order.Line) error {
	if len(orderIDs) == 0 {
		return nil
	}
	if err := w.tx.Where("order_id IN ?", orderIDs).Delete(&models.OrderLineModel{}).Error; err != nil {
		return fmt.Errorf("delete order lines: %w", err)
	}
	if len(lines) == 0 {
		return nil
	}
	rows := make([]*models.OrderLineModel, len(lines))
	for i, l := range lines {
		rows[i] = models.OrderLineModelFromDomain(l)
	}
	if err := w.tx.CreateInBatches(rows, upsertChunkSize).Error; err != nil {
		return fmt.Errorf("insert order lines: %w", err)
	}
	return nil
}

func (w *gormBatchWriter) UpsertAfterSales(sales []*order.AfterSale) error {
	if len(sales) == 0 {
		return nil
	}
	rows := make([]*models.AfterSaleModel, len(sales))
	for i, a := range sales {
		rows[i] = models.AfterSaleModelFromDomain(a)
	}
	if err := upsertMany(w.tx, rows, "aftersale_id", models.AfterSaleUpsertColumns); err != nil {
		return fmt.Errorf("upsert after-sales: %w", err)
	}
	return nil
}

func (w *gormBatchWriter) ProvincesOf(orderIDs []string) (map[string]order.Province, error) {
	out := make(map[string]order.Province, len(orderIDs))
	if len(orderIDs) == 0 {
		return out, nil
	}
	var rows []struct {
		OrderID      string
		ProvinceID   string
		ProvinceName string
	}
	if err := w.tx.Model(&models.OrderModel{}).
		Select("order_id, province_id, province_name").
		Where("order_id IN ?", orderIDs).
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("load order provinces: %w", err)
	}
	for _, r := range rows {
		out[r.OrderID] = order.Province{ID: r.ProvinceID, Name: r.ProvinceName}
	}
	return out, nil
}

func (w *gormBatchWriter) MarkSigned(orderIDs []string) (int64, error) {
	if len(orderIDs) == 0 {
		return 0, nil
	}
	result := w.tx.Model(&models.OrderModel{}).
		Where("order_id IN ? AND is_signed = ?", orderIDs, false).
		Updates(map[string]any{"is_signed": true, "updated_at": time.Now()})
	if result.Error != nil {
		return 0, fmt.Errorf("mark orders signed: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Compile-time interface compliance check
var (
	_ order.Store       = (*GormOrderStore)(nil)
	_ order.BatchWriter = (*gormBatchWriter)(nil)
)
