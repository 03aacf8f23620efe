// Package platformsync pulls orders and after-sales from the Douyin open
// platform and writes them through the same upsert path as file imports.
package platformsync

import (
	"context"
	"fmt"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"go.uber.org/zap"
)

// Scope selects what a sync pulls
type Scope string

const (
	ScopeOrders     Scope = "orders"
	ScopeAfterSales Scope = "aftersales"
	ScopeAll        Scope = "all"
)

// IsValid checks if the scope is valid
func (s Scope) IsValid() bool {
	return s == ScopeOrders || s == ScopeAfterSales || s == ScopeAll
}

// MaxRange is the longest time range one sync may cover
const MaxRange = 90 * 24 * time.Hour

// DefaultRange is the range used when the caller gives no start time
const DefaultRange = 7 * 24 * time.Hour

// Request describes one sync run
type Request struct {
	Scope Scope
	Start time.Time
	End   time.Time
}

// Result holds the counters of both halves of a sync
type Result struct {
	Orders     importjob.Counters
	AfterSales importjob.Counters
}

// Platform is the remote order platform
type Platform interface {
	// SearchOrders returns one page of order ids created inside the range
	SearchOrders(ctx context.Context, start, end time.Time, page, size int) ([]string, error)

	// OrderDetail returns an order and its lines
	OrderDetail(ctx context.Context, orderID string) (*order.Order, []*order.Line, error)

	// SearchAfterSales returns one page of after-sale ids applied for inside the range
	SearchAfterSales(ctx context.Context, start, end time.Time, page, size int) ([]string, error)

	// AfterSaleDetail returns one after-sale
	AfterSaleDetail(ctx context.Context, afterSaleID string) (*order.AfterSale, error)
}

// Writer persists pulled records one page at a time
type Writer interface {
	WriteOrders(ctx context.Context, orders []*order.Order, lines []*order.Line) (importjob.Counters, error)
	WriteAfterSales(ctx context.Context, sales []*order.AfterSale) (importjob.Counters, error)
}

const (
	defaultPageSize = 100
	maxPages        = 1000
)

// Service runs platform syncs
type Service struct {
	platform Platform
	writer   Writer
	pageSize int
	logger   *zap.Logger
}

// Option configures a Service
type Option func(*Service)

// WithPageSize sets how many ids are requested per search page
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService creates a Service
func NewService(platform Platform, writer Writer, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{platform: platform, writer: writer, pageSize: defaultPageSize, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sync pulls the requested scope. Records whose detail cannot be fetched are
// counted as failed; a page that cannot be written aborts the sync.
func (s *Service) Sync(ctx context.Context, req Request) (*Result, error) {
	if !req.Scope.IsValid() {
		return nil, fmt.Errorf("invalid sync scope %q", req.Scope)
	}
	res := &Result{}
	if req.Scope == ScopeOrders || req.Scope == ScopeAll {
		if err := s.syncOrders(ctx, req, &res.Orders); err != nil {
			return res, err
		}
	}
	if req.Scope == ScopeAfterSales || req.Scope == ScopeAll {
		if err := s.syncAfterSales(ctx, req, &res.AfterSales); err != nil {
			return res, err
		}
	}
	s.logger.Info("Douyin sync finished",
		zap.String("scope", string(req.Scope)),
		zap.Int("orders", res.Orders.Total),
		zap.Int("aftersales", res.AfterSales.Total),
	)
	return res, nil
}

func (s *Service) syncOrders(ctx context.Context, req Request, c *importjob.Counters) error {
	for page := 0; page < maxPages; page++ {
		ids, err := s.platform.SearchOrders(ctx, req.Start, req.End, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("search orders page %d: %w", page, err)
		}
		if len(ids) == 0 {
			return nil
		}

		orders := make([]*order.Order, 0, len(ids))
		var lines []*order.Line
		for _, id := range ids {
			o, ls, err := s.platform.OrderDetail(ctx, id)
			if err != nil {
				s.logger.Warn("Order detail failed", zap.String("order_id", id), zap.Error(err))
				c.Failed++
				continue
			}
			orders = append(orders, o)
			lines = append(lines, ls...)
		}

		written, err := s.writer.WriteOrders(ctx, orders, lines)
		if err != nil {
			return fmt.Errorf("write orders page %d: %w", page, err)
		}
		c.Add(written)

		if len(ids) < s.pageSize {
			return nil
		}
	}
	return nil
}

func (s *Service) syncAfterSales(ctx context.Context, req Request, c *importjob.Counters) error {
	for page := 0; page < maxPages; page++ {
		ids, err := s.platform.SearchAfterSales(ctx, req.Start, req.End, page, s.pageSize)
		if err != nil {
			return fmt.Errorf("search after-sales page %d: %w", page, err)
		}
		if len(ids) == 0 {
			return nil
		}

		sales := make([]*order.AfterSale, 0, len(ids))
		for _, id := range ids {
			a, err := s.platform.AfterSaleDetail(ctx, id)
			if err != nil {
				s.logger.Warn("After-sale detail failed", zap.String("aftersale_id", id), zap.Error(err))
				c.Failed++
				continue
			}
			sales = append(sales, a)
		}

		written, err := s.writer.WriteAfterSales(ctx, sales)
		if err != nil {
			return fmt.Errorf("write after-sales page %d: %w", page, err)
		}
		c.Add(written)

		if len(ids) < s.pageSize {
			return nil
		}
	}
	return nil
}
