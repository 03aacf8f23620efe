package platformsync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlatform struct {
	orderIDs     []string
	afterSaleIDs []string
	brokenDetail map[string]bool
	searchErr    error
	pagesServed  int
}

func page(ids []string, p, size int) []string {
	start := p * size
	if start >= len(ids) {
		return nil
	}
	return ids[start:min(start+size, len(ids))]
}

func (f *fakePlatform) SearchOrders(_ context.Context, _, _ time.Time, p, size int) ([]string, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	f.pagesServed++
	return page(f.orderIDs, p, size), nil
}

func (f *fakePlatform) OrderDetail(_ context.Context, id string) (*order.Order, []*order.Line, error) {
	if f.brokenDetail[id] {
		return nil, nil, errors.New("detail unavailable")
	}
	return &order.Order{OrderID: id}, []*order.Line{{OrderID: id, SkuCode: "X1", Quantity: 1}}, nil
}

func (f *fakePlatform) SearchAfterSales(_ context.Context, _, _ time.Time, p, size int) ([]string, error) {
	return page(f.afterSaleIDs, p, size), nil
}

func (f *fakePlatform) AfterSaleDetail(_ context.Context, id string) (*order.AfterSale, error) {
	if f.brokenDetail[id] {
		return nil, errors.New("detail unavailable")
	}
	return &order.AfterSale{AfterSaleID: id, OrderID: "O1"}, nil
}

type recordingWriter struct {
	orders     []*order.Order
	lines      []*order.Line
	sales      []*order.AfterSale
	writeCalls int
	err        error
}

func (w *recordingWriter) WriteOrders(_ context.Context, orders []*order.Order, lines []*order.Line) (importjob.Counters, error) {
	w.writeCalls++
	if w.err != nil {
		return importjob.Counters{}, w.err
	}
	w.orders = append(w.orders, orders...)
	w.lines = append(w.lines, lines...)
	return importjob.Counters{Total: len(orders), Created: len(orders)}, nil
}

func (w *recordingWriter) WriteAfterSales(_ context.Context, sales []*order.AfterSale) (importjob.Counters, error) {
	w.writeCalls++
	w.sales = append(w.sales, sales...)
	return importjob.Counters{Total: len(sales), Updated: len(sales)}, nil
}

func ids(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return out
}

func newRequest(scope Scope) Request {
	end := time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)
	return Request{Scope: scope, Start: end.Add(-DefaultRange), End: end}
}

func TestService_SyncOrders_Pages(t *testing.T) {
	platform := &fakePlatform{orderIDs: ids("O", 5), brokenDetail: map[string]bool{"O3": true}}
	writer := &recordingWriter{}
	svc := NewService(platform, writer, nil)
	svc.pageSize = 2

	res, err := svc.Sync(context.Background(), newRequest(ScopeOrders))
	require.NoError(t, err)

	assert.Equal(t, 3, writer.writeCalls, "pages of 2, 2 and 1")
	assert.Len(t, writer.orders, 4)
	assert.Len(t, writer.lines, 4)
	assert.Equal(t, 4, res.Orders.Total)
	assert.Equal(t, 4, res.Orders.Created)
	assert.Equal(t, 1, res.Orders.Failed)
	assert.Zero(t, res.AfterSales.Total)
}

func TestService_SyncAll(t *testing.T) {
	platform := &fakePlatform{orderIDs: ids("O", 2), afterSaleIDs: ids("S", 3)}
	writer := &recordingWriter{}
	svc := NewService(platform, writer, nil)

	res, err := svc.Sync(context.Background(), newRequest(ScopeAll))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Orders.Total)
	assert.Equal(t, 3, res.AfterSales.Total)
	assert.Equal(t, 3, res.AfterSales.Updated)
	assert.Len(t, writer.sales, 3)
}

func TestService_Sync_ExactPageBoundary(t *testing.T) {
	platform := &fakePlatform{orderIDs: ids("O", 4)}
	svc := NewService(platform, &recordingWriter{}, nil)
	svc.pageSize = 2

	_, err := svc.Sync(context.Background(), newRequest(ScopeOrders))
	require.NoError(t, err)
	assert.Equal(t, 3, platform.pagesServed, "an empty page ends the loop")
}

func TestService_Sync_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(&fakePlatform{}, &recordingWriter{}, nil).Sync(ctx, newRequest("products"))
	assert.Error(t, err)

	_, err = NewService(&fakePlatform{searchErr: errors.New("HTTP 502")}, &recordingWriter{}, nil).
		Sync(ctx, newRequest(ScopeOrders))
	assert.ErrorContains(t, err, "HTTP 502")

	writer := &recordingWriter{err: errors.New("constraint")}
	res, err := NewService(&fakePlatform{orderIDs: ids("O", 1)}, writer, nil).Sync(ctx, newRequest(ScopeAll))
	assert.ErrorContains(t, err, "write orders page 0")
	require.NotNil(t, res)
	assert.Empty(t, writer.sales, "after-sales are not pulled once orders failed")
}

func TestScope_IsValid(t *testing.T) {
	assert.True(t, ScopeOrders.IsValid())
	assert.True(t, ScopeAfterSales.IsValid())
	assert.True(t, ScopeAll.IsValid())
	assert.False(t, Scope("").IsValid())
}
