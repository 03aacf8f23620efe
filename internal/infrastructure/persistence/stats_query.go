package persistence

import (
	"context"
	"sort"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormStatsQuery runs the aggregate queries behind the SKU statistics
type GormStatsQuery struct {
	db *gorm.DB
}

// NewGormStatsQuery creates a new GormStatsQuery
func NewGormStatsQuery(db *gorm.DB) *GormStatsQuery {
	return &GormStatsQuery{db: db}
}

type skuCount struct {
	SkuCode string
	N       int64
}

// inWindow restricts a query joined with orders (aliased o) to the payment window
func inWindow(q *gorm.DB, w skustats.Window) *gorm.DB {
	q = q.Where("o.pay_time >= ?", w.Start)
	if w.End != nil {
		q = q.Where("o.pay_time <= ?", *w.End)
	}
	return q
}

func (s *GormStatsQuery) afterSalesJoinOrders(ctx context.Context, w skustats.Window) *gorm.DB {
	q := s.db.WithContext(ctx).
		Table("after_sales AS a").
		Joins("JOIN orders AS o ON o.order_id = a.order_id").
		Where("a.sku_code IS NOT NULL AND a.sku_code <> ''")
	return inWindow(q, w)
}

func collect(q *gorm.DB) (map[string]int64, error) {
	var rows []skuCount
	if err := q.Select("a.sku_code AS sku_code, COUNT(DISTINCT o.order_id) AS n").
		Group("a.sku_code").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.SkuCode] = r.N
	}
	return out, nil
}

// OrderCounts aggregates order lines per SKU: pending shipment, signed and in transit orders
func (s *GormStatsQuery) OrderCounts(ctx context.Context, w skustats.Window) ([]skustats.OrderCounts, error) {
	q := s.db.WithContext(ctx).
		Table("order_skus AS l").
		Joins("JOIN orders AS o ON o.order_id = l.order_id").
		Where("l.sku_code IS NOT NULL AND l.sku_code <> ''")
	q = inWindow(q, w)

	var rows []skustats.OrderCounts
	err := q.Select(`l.sku_code AS sku_code,
		COALESCE(MAX(l.sku_name), '') AS sku_name,
		COALESCE(MAX(l.product_name), '') AS product_name,
		COUNT(DISTINCT CASE WHEN o.order_status = ? THEN o.order_id END) AS pending_ship,
		COUNT(DISTINCT CASE WHEN o.is_signed THEN o.order_id END) AS signed_via_lines,
		COUNT(DISTINCT CASE WHEN o.order_status = ? AND NOT o.is_signed THEN o.order_id END) AS in_transit`,
		int(order.StatusPendingShip), int(order.StatusShipped)).
		Group("l.sku_code").
		Scan(&rows).Error
	return rows, err
}

// AfterSalePending counts orders per SKU with an after-sale still waiting for goods
func (s *GormStatsQuery) AfterSalePending(ctx context.Context, w skustats.Window) (map[string]int64, error) {
	statuses := make([]int, len(order.PendingAfterSaleStatuses))
	for i, st := range order.PendingAfterSaleStatuses {
		statuses[i] = int(st)
	}
	return collect(s.afterSalesJoinOrders(ctx, w).Where("a.aftersale_status IN ?", statuses))
}

// SignedReturns counts signed orders per SKU with a return-refund after-sale
func (s *GormStatsQuery) SignedReturns(ctx context.Context, w skustats.Window) (map[string]int64, error) {
	return collect(s.afterSalesJoinOrders(ctx, w).
		Where("o.is_signed AND a.aftersale_type = ?", int(order.AfterSaleTypeReturnRefund)))
}

// SignedViaAfterSales counts signed orders per SKU as recorded on after-sales
func (s *GormStatsQuery) SignedViaAfterSales(ctx context.Context, w skustats.Window) (map[string]int64, error) {
	return collect(s.afterSalesJoinOrders(ctx, w).Where("o.is_signed"))
}

// SignedOverlap counts signed orders per SKU recorded on both an after-sale and a line
func (s *GormStatsQuery) SignedOverlap(ctx context.Context, w skustats.Window) (map[string]int64, error) {
	return collect(s.afterSalesJoinOrders(ctx, w).
		Joins("JOIN order_skus AS l ON l.order_id = o.order_id AND l.sku_code = a.sku_code").
		Where("o.is_signed"))
}

// QualityCandidates lists distinct (sku, order, reason) triples with a reason text
func (s *GormStatsQuery) QualityCandidates(ctx context.Context, w skustats.Window) ([]skustats.QualityCandidate, error) {
	var rows []skustats.QualityCandidate
	err := s.afterSalesJoinOrders(ctx, w).
		Where("a.reason_text IS NOT NULL AND a.reason_text <> ''").
		Select("DISTINCT a.sku_code AS sku_code, o.order_id AS order_id, a.reason_text AS reason_text").
		Scan(&rows).Error
	return rows, err
}

// ProvinceReturns computes the return rate per receiver province
func (s *GormStatsQuery) ProvinceReturns(ctx context.Context, w skustats.Window, skuCode string) ([]skustats.ProvinceReturn, error) {
	if w.End == nil {
		now := time.Now()
		w.End = &now
	}

	type provinceCount struct {
		ProvinceName string
		N            int64
	}

	returnsQ := s.db.WithContext(ctx).
		Table("after_sales AS a").
		Joins("JOIN orders AS o ON o.order_id = a.order_id").
		Where("a.aftersale_type = ?", int(order.AfterSaleTypeReturnRefund)).
		Where("a.province_name IS NOT NULL AND a.province_name <> ''")
	if skuCode != "" {
		returnsQ = returnsQ.Where("a.sku_code = ?", skuCode)
	}
	var returns []provinceCount
	if err := inWindow(returnsQ, w).
		Select("a.province_name AS province_name, COUNT(*) AS n").
		Group("a.province_name").
		Scan(&returns).Error; err != nil {
		return nil, err
	}
	returnMap := make(map[string]int64, len(returns))
	for _, r := range returns {
		returnMap[r.ProvinceName] = r.N
	}

	var orders []provinceCount
	if err := inWindow(s.db.WithContext(ctx).Table("orders AS o"), w).
		Where("o.province_name IS NOT NULL AND o.province_name <> ''").
		Select("o.province_name AS province_name, COUNT(*) AS n").
		Group("o.province_name").
		Scan(&orders).Error; err != nil {
		return nil, err
	}

	out := make([]skustats.ProvinceReturn, 0, len(orders))
	for _, o := range orders {
		ret := returnMap[o.ProvinceName]
		rate := 0.0
		if o.N > 0 {
			rate = skustats.Round4(float64(ret) / float64(o.N))
		}
		out = append(out, skustats.ProvinceReturn{
			ProvinceName: o.ProvinceName,
			OrderCount:   o.N,
			ReturnCount:  ret,
			ReturnRate:   rate,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ReturnRate != out[j].ReturnRate {
			return out[i].ReturnRate > out[j].ReturnRate
		}
		return out[i].ProvinceName < out[j].ProvinceName
	})
	return out, nil
}

// Summary returns the dashboard overview
func (s *GormStatsQuery) Summary(ctx context.Context) (*skustats.Summary, error) {
	db := s.db.WithContext(ctx)
	var sum skustats.Summary

	if err := db.Model(&models.OrderModel{}).Count(&sum.TotalOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.OrderModel{}).
		Where("order_status = ?", int(order.StatusPendingShip)).
		Count(&sum.PendingShipOrders).Error; err != nil {
		return nil, err
	}
	statuses := make([]int, len(order.PendingAfterSaleStatuses))
	for i, st := range order.PendingAfterSaleStatuses {
		statuses[i] = int(st)
	}
	if err := db.Model(&models.AfterSaleModel{}).
		Where("aftersale_status IN ?", statuses).
		Count(&sum.AfterSalePendingCount).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.OrderModel{}).
		Where("is_signed = ?", true).
		Count(&sum.SignedOrders).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.SkuStatsModel{}).
		Select("COALESCE(SUM(stock_gap), 0)").
		Scan(&sum.TotalStockGap).Error; err != nil {
		return nil, err
	}

	var lastImport []time.Time
	if err := db.Model(&models.OrderModel{}).
		Order("updated_at DESC").
		Limit(1).
		Pluck("updated_at", &lastImport).Error; err != nil {
		return nil, err
	}
	if len(lastImport) == 1 {
		sum.LastImportTime = &lastImport[0]
	}

	var lastCalc []time.Time
	if err := db.Model(&models.SkuStatsModel{}).
		Where("last_calculated_at IS NOT NULL").
		Order("last_calculated_at DESC").
		Limit(1).
		Pluck("last_calculated_at", &lastCalc).Error; err != nil {
		return nil, err
	}
	if len(lastCalc) == 1 {
		sum.LastCalculatedAt = &lastCalc[0]
	}

	return &sum, nil
}

// Compile-time interface compliance check
var _ skustats.SourceQuery = (*GormStatsQuery)(nil)
