// Package importer writes order and after-sale rows to the store in
// transactional batches with natural-key upserts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/infrastructure/sheet"
	"go.uber.org/zap"
)

// DefaultBatchSize is the number of rows written per transaction
const DefaultBatchSize = 1000

// Importer writes orders and after-sales batch by batch. Each batch commits
// on its own; a failing batch rolls back alone and stops the import.
type Importer struct {
	store     order.Store
	batchSize int
	location  *time.Location
	logger    *zap.Logger
}

// Option configures an Importer
type Option func(*Importer)

// WithBatchSize overrides the number of rows per transaction
func WithBatchSize(n int) Option {
	return func(im *Importer) {
		if n > 0 {
			im.batchSize = n
		}
	}
}

// WithLocation sets the time zone of export timestamps
func WithLocation(loc *time.Location) Option {
	return func(im *Importer) {
		if loc != nil {
			im.location = loc
		}
	}
}

// New creates an Importer
func New(store order.Store, logger *zap.Logger, opts ...Option) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	im := &Importer{
		store:     store,
		batchSize: DefaultBatchSize,
		location:  time.Local,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Result is the outcome of one import
type Result struct {
	Counters importjob.Counters
	Errors   *sheet.RowErrors
}

// ImportOrders reads every row of r as an order export
func (im *Importer) ImportOrders(ctx context.Context, r sheet.Reader) (*Result, error) {
	res := &Result{Errors: sheet.NewRowErrors(100)}
	for batch := 1; ; batch++ {
		rows, err := sheet.ReadBatch(r, im.batchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read orders: %w", err)
		}

		var (
			orders []*order.Order
			lines  []*order.Line
			local  importjob.Counters
		)
		for _, row := range rows {
			o, line, ok, rowErr := OrderFromRow(row, im.location)
			switch {
			case !ok:
				local.Skipped++
			case rowErr != nil:
				local.Failed++
				res.Errors.Add(*rowErr)
			default:
				orders = append(orders, o)
				if line != nil {
					lines = append(lines, line)
				}
			}
		}

		written, err := im.WriteOrders(ctx, orders, lines)
		if err != nil {
			im.logger.Error("Order batch failed", zap.Int("batch", batch), zap.Error(err))
			return res, fmt.Errorf("order batch %d: %w", batch, err)
		}
		written.Skipped += local.Skipped
		written.Failed += local.Failed
		res.Counters.Add(written)
		im.logger.Debug("Order batch written",
			zap.Int("batch", batch),
			zap.Int("rows", len(rows)),
			zap.Int("created", written.Created),
			zap.Int("updated", written.Updated),
		)
	}
	return res, nil
}

// ImportAfterSales reads every row of r as an after-sale export
func (im *Importer) ImportAfterSales(ctx context.Context, r sheet.Reader) (*Result, error) {
	res := &Result{Errors: sheet.NewRowErrors(100)}
	for batch := 1; ; batch++ {
		rows, err := sheet.ReadBatch(r, im.batchSize)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, fmt.Errorf("read after-sales: %w", err)
		}

		var (
			sales   []*order.AfterSale
			skipped int
		)
		for _, row := range rows {
			a, ok := AfterSaleFromRow(row, im.location)
			if !ok {
				skipped++
				continue
			}
			sales = append(sales, a)
		}

		written, err := im.WriteAfterSales(ctx, sales)
		if err != nil {
			im.logger.Error("After-sale batch failed", zap.Int("batch", batch), zap.Error(err))
			return res, fmt.Errorf("after-sale batch %d: %w", batch, err)
		}
		written.Skipped += skipped
		res.Counters.Add(written)
	}
	return res, nil
}

// WriteOrders upserts one batch of orders and replaces the lines of every
// order in it, in a single transaction.
func (im *Importer) WriteOrders(ctx context.Context, orders []*order.Order, lines []*order.Line) (importjob.Counters, error) {
	var c importjob.Counters
	if len(orders) == 0 {
		return c, nil
	}

	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.OrderID)
	}
	existing, err := im.store.ExistingOrderIDs(ctx, ids)
	if err != nil {
		return c, err
	}
	c = classify(ids, existing)

	unique, orderIDs := dedupeOrders(orders)
	err = im.store.WithinBatch(ctx, func(w order.BatchWriter) error {
		if err := w.UpsertOrders(unique); err != nil {
			return err
		}
		return w.ReplaceLines(orderIDs, dedupeLines(lines))
	})
	if err != nil {
		return importjob.Counters{}, err
	}
	return c, nil
}

// WriteAfterSales upserts one batch of after-sales. Provinces are copied from
// the referenced orders and return-refund requests mark their order signed.
func (im *Importer) WriteAfterSales(ctx context.Context, sales []*order.AfterSale) (importjob.Counters, error) {
	var c importjob.Counters
	if len(sales) == 0 {
		return c, nil
	}

	ids := make([]string, 0, len(sales))
	for _, a := range sales {
		ids = append(ids, a.AfterSaleID)
	}
	existing, err := im.store.ExistingAfterSaleIDs(ctx, ids)
	if err != nil {
		return c, err
	}
	c = classify(ids, existing)

	unique := dedupeAfterSales(sales)
	var referenced, returned []string
	seenRef := make(map[string]struct{})
	seenRet := make(map[string]struct{})
	for _, a := range unique {
		if a.OrderID == "" {
			continue
		}
		if _, ok := seenRef[a.OrderID]; !ok {
			seenRef[a.OrderID] = struct{}{}
			referenced = append(referenced, a.OrderID)
		}
		if a.IsReturn() {
			if _, ok := seenRet[a.OrderID]; !ok {
				seenRet[a.OrderID] = struct{}{}
				returned = append(returned, a.OrderID)
			}
		}
	}

	err = im.store.WithinBatch(ctx, func(w order.BatchWriter) error {
		provinces, err := w.ProvincesOf(referenced)
		if err != nil {
			return err
		}
		for _, a := range unique {
			if p, ok := provinces[a.OrderID]; ok {
				a.ProvinceID = p.ID
				a.ProvinceName = p.Name
			}
		}
		if err := w.UpsertAfterSales(unique); err != nil {
			return err
		}
		marked, err := w.MarkSigned(returned)
		if err != nil {
			return err
		}
		if marked > 0 {
			im.logger.Debug("Orders marked signed by return requests", zap.Int64("count", marked))
		}
		return nil
	})
	if err != nil {
		return importjob.Counters{}, err
	}
	return c, nil
}

// classify counts keys as created or updated. A key seen earlier in the same
// batch counts as updated.
func classify(keys []string, existing map[string]struct{}) importjob.Counters {
	c := importjob.Counters{Total: len(keys)}
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		_, inStore := existing[k]
		_, inBatch := seen[k]
		if inStore || inBatch {
			c.Updated++
		} else {
			c.Created++
		}
		seen[k] = struct{}{}
	}
	return c
}

// dedupeOrders keeps the last occurrence of each order id, in first-seen order
func dedupeOrders(orders []*order.Order) ([]*order.Order, []string) {
	index := make(map[string]int, len(orders))
	out := make([]*order.Order, 0, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		if i, ok := index[o.OrderID]; ok {
			out[i] = o
			continue
		}
		index[o.OrderID] = len(out)
		out = append(out, o)
		ids = append(ids, o.OrderID)
	}
	return out, ids
}

type lineKey struct{ orderID, skuCode string }

func dedupeLines(lines []*order.Line) []*order.Line {
	index := make(map[lineKey]int, len(lines))
	out := make([]*order.Line, 0, len(lines))
	for _, l := range lines {
		k := lineKey{l.OrderID, l.SkuCode}
		if i, ok := index[k]; ok {
			out[i] = l
			continue
		}
		index[k] = len(out)
		out = append(out, l)
	}
	return out
}

func dedupeAfterSales(sales []*order.AfterSale) []*order.AfterSale {
	index := make(map[string]int, len(sales))
	out := make([]*order.AfterSale, 0, len(sales))
	for _, a := range sales {
		if i, ok := index[a.AfterSaleID]; ok {
			out[i] = a
			continue
		}
		index[a.AfterSaleID] = len(out)
		out = append(out, a)
	}
	return out
}
