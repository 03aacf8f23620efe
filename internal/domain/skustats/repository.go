package skustats

import (
	"context"
	"time"
)

// Window bounds the statistics by order payment time
type Window struct {
	Start time.Time
	End   *time.Time
}

// OrderCounts are the per-SKU counters derived from order lines
type OrderCounts struct {
	SkuCode        string
	SkuName        string
	ProductName    string
	PendingShip    int64
	SignedViaLines int64
	InTransit      int64
}

// QualityCandidate is a distinct (sku, order, reason) triple from after-sales
type QualityCandidate struct {
	SkuCode    string
	OrderID    string
	ReasonText string
}

// SourceQuery runs the aggregate queries the statistics engine unions together.
// Every query is restricted to orders paid inside the window.
type SourceQuery interface {
	OrderCounts(ctx context.Context, w Window) ([]OrderCounts, error)
	AfterSalePending(ctx context.Context, w Window) (map[string]int64, error)
	SignedReturns(ctx context.Context, w Window) (map[string]int64, error)
	SignedViaAfterSales(ctx context.Context, w Window) (map[string]int64, error)
	SignedOverlap(ctx context.Context, w Window) (map[string]int64, error)
	QualityCandidates(ctx context.Context, w Window) ([]QualityCandidate, error)
	ProvinceReturns(ctx context.Context, w Window, skuCode string) ([]ProvinceReturn, error)
	Summary(ctx context.Context) (*Summary, error)
}

// ProvinceReturn is the return rate of one receiver province
type ProvinceReturn struct {
	ProvinceName string  `json:"province_name"`
	OrderCount   int64   `json:"order_count"`
	ReturnCount  int64   `json:"return_count"`
	ReturnRate   float64 `json:"return_rate"`
}

// Summary is the dashboard overview
type Summary struct {
	TotalOrders           int64      `json:"total_orders"`
	PendingShipOrders     int64      `json:"pending_ship_orders"`
	AfterSalePendingCount int64      `json:"aftersale_pending_count"`
	SignedOrders          int64      `json:"signed_orders"`
	TotalStockGap         int64      `json:"total_stock_gap"`
	LastImportTime        *time.Time `json:"last_import_time"`
	LastCalculatedAt      *time.Time `json:"last_calculated_at"`
}

// ListFilter selects cached snapshots
type ListFilter struct {
	Keyword   string
	SortBy    string
	SortOrder string
	TopN      int
	Page      int
	PageSize  int
}

// ListResult is a page of snapshots
type ListResult struct {
	Items []*SkuStats
	Total int64
}

// Repository persists SKU snapshots. SaveAll merges fresh snapshots the way
// SkuStats.Merge does and SetManualRate applies SkuStats.SetManualRate, both
// against the stored row in one statement.
type Repository interface {
	FindByCode(ctx context.Context, skuCode string) (*SkuStats, error)
	SaveAll(ctx context.Context, stats []*SkuStats) error
	SetManualRate(ctx context.Context, skuCode string, rate float64, at time.Time) (*SkuStats, error)
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
}
