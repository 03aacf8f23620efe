package order

import (
	"context"
	"time"
)

// Province is the receiver location of an order
type Province struct {
	ID   string
	Name string
}

// BatchWriter writes one import batch. All calls made on a BatchWriter share a
// single transaction that commits when the surrounding WithinBatch returns nil.
type BatchWriter interface {
	// UpsertOrders inserts new orders and updates existing ones by order_id
	UpsertOrders(orders []*Order) error

	// ReplaceLines deletes every line of the given orders and inserts lines
	ReplaceLines(orderIDs []string, lines []*Line) error

	// UpsertAfterSales inserts or updates after-sales by aftersale_id
	UpsertAfterSales(sales []*AfterSale) error

	// ProvincesOf returns the receiver province of the given orders
	ProvincesOf(orderIDs []string) (map[string]Province, error)

	// MarkSigned flags the given orders as signed. Orders already signed are untouched.
	MarkSigned(orderIDs []string) (int64, error)
}

// Store is the natural-key upsert store for orders, lines and after-sales
type Store interface {
	// ExistingOrderIDs returns the subset of ids already stored
	ExistingOrderIDs(ctx context.Context, ids []string) (map[string]struct{}, error)

	// ExistingAfterSaleIDs returns the subset of ids already stored
	ExistingAfterSaleIDs(ctx context.Context, ids []string) (map[string]struct{}, error)

	// WithinBatch runs fn in one transaction
	WithinBatch(ctx context.Context, fn func(w BatchWriter) error) error
}

// LogisticsStats summarises logistics tracking across all orders
type LogisticsStats struct {
	TotalOrders   int64 `json:"total_orders"`
	WithLogistics int64 `json:"with_logistics"`
	Checked       int64 `json:"checked"`
	Signed        int64 `json:"signed"`
	PendingCheck  int64 `json:"pending_check"`
}

// LogisticsRepository is used by the reconciliation scanner
type LogisticsRepository interface {
	// CountEligible counts orders needing a logistics check at threshold
	CountEligible(ctx context.Context, threshold time.Time) (int64, error)

	// FindEligible returns up to limit eligible orders with id greater than afterID, ascending by id
	FindEligible(ctx context.Context, threshold time.Time, afterID int64, limit int) ([]*Order, error)

	// FindByID reloads a single order
	FindByID(ctx context.Context, id int64) (*Order, error)

	// ApplyLogistics persists a logistics patch for one order
	ApplyLogistics(ctx context.Context, id int64, patch LogisticsPatch) error

	// Stats returns tracking counters, pending_check evaluated at threshold
	Stats(ctx context.Context, threshold time.Time) (*LogisticsStats, error)
}

// ListFilter selects orders for the listing API
type ListFilter struct {
	Status       *Status
	ProvinceName string
	PaidFrom     *time.Time
	PaidTo       *time.Time
	Page         int
	PageSize     int
}

// QueryRepository serves read-only order lookups
type QueryRepository interface {
	// List returns a page of orders, newest first, and the total match count
	List(ctx context.Context, filter ListFilter) ([]*Order, int64, error)

	// FindByOrderID returns an order with its lines
	FindByOrderID(ctx context.Context, orderID string) (*Order, []*Line, error)
}
