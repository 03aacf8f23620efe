package handler

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrders struct {
	filter order.ListFilter
	orders []*order.Order
	total  int64
	lines  map[string][]*order.Line
}

func (f *fakeOrders) List(_ context.Context, filter order.ListFilter) ([]*order.Order, int64, error) {
	f.filter = filter
	return f.orders, f.total, nil
}

func (f *fakeOrders) FindByOrderID(_ context.Context, orderID string) (*order.Order, []*order.Line, error) {
	for _, o := range f.orders {
		if o.OrderID == orderID {
			return o, f.lines[orderID], nil
		}
	}
	return nil, nil, shared.ErrNotFound
}

func newOrderRouter(f *fakeOrders) *gin.Engine {
	h := NewOrderHandler(f)
	r := gin.New()
	r.GET("/orders", h.List)
	r.GET("/orders/:order_id", h.Get)
	return r
}

func sampleOrders() *fakeOrders {
	paid := time.Date(2024, 3, 2, 9, 30, 0, 0, time.Local)
	return &fakeOrders{
		total: 41,
		orders: []*order.Order{
			{
				OrderID:      "6920001",
				Status:       order.StatusShipped,
				StatusDesc:   "已发货",
				PayTime:      &paid,
				ProvinceName: "浙江省",
				TotalAmount:  decimal.RequireFromString("59.9"),
				PayAmount:    decimal.RequireFromString("49.9"),
			},
		},
		lines: map[string][]*order.Line{
			"6920001": {
				{OrderID: "6920001", SkuCode: "A-1", SkuName: "Red", Quantity: 2, Price: decimal.RequireFromString("24.95")},
			},
		},
	}
}

func TestOrderHandler_List(t *testing.T) {
	f := sampleOrders()
	w, resp := performRequest(t, newOrderRouter(f), http.MethodGet,
		"/orders?page=3&page_size=20&order_status=3&province_name="+url.QueryEscape("浙江省")+"&start_date=2024-03-01&end_date=2024-03-31", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(41), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)

	data := dataMap(t, resp)
	assert.Equal(t, float64(41), data["total"])
	items := data["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	assert.Equal(t, "59.90", item["total_amount"])
	assert.Equal(t, float64(3), item["order_status"])
	assert.NotContains(t, item, "sku_list")

	require.NotNil(t, f.filter.Status)
	assert.Equal(t, order.StatusShipped, *f.filter.Status)
	assert.Equal(t, "浙江省", f.filter.ProvinceName)
	assert.Equal(t, 3, f.filter.Page)
	require.NotNil(t, f.filter.PaidFrom)
	require.NotNil(t, f.filter.PaidTo)
	assert.Equal(t, "2024-03-01", f.filter.PaidFrom.Format(dto.DateLayout))
	assert.Equal(t, "2024-03-31", f.filter.PaidTo.Format(dto.DateLayout))
	assert.Equal(t, 23, f.filter.PaidTo.Hour())
}

func TestOrderHandler_ListDefaults(t *testing.T) {
	f := &fakeOrders{}
	w, resp := performRequest(t, newOrderRouter(f), http.MethodGet, "/orders", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, f.filter.Page)
	assert.Equal(t, dto.DefaultPageSize, f.filter.PageSize)
	assert.Nil(t, f.filter.Status)
	assert.Nil(t, f.filter.PaidFrom)
	assert.Equal(t, []any{}, dataMap(t, resp)["items"])
}

func TestOrderHandler_ListValidation(t *testing.T) {
	for _, q := range []string{"page_size=500", "order_status=9", "start_date=yesterday", "page=-1"} {
		t.Run(q, func(t *testing.T) {
			w, resp := performRequest(t, newOrderRouter(&fakeOrders{}), http.MethodGet, "/orders?"+q, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		})
	}
}

func TestOrderHandler_Get(t *testing.T) {
	r := newOrderRouter(sampleOrders())

	w, resp := performRequest(t, r, http.MethodGet, "/orders/6920001", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	data := dataMap(t, resp)
	assert.Equal(t, "6920001", data["order_id"])
	lines := data["sku_list"].([]any)
	require.Len(t, lines, 1)
	assert.Equal(t, "24.95", lines[0].(map[string]any)["price"])

	w, resp = performRequest(t, r, http.MethodGet, "/orders/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "订单不存在", resp.Error.Message)
}
