package ecommerce

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowstart/douyin-web/internal/domain/order"
	infraconfig "github.com/flowstart/douyin-web/internal/infrastructure/config"
)

// ---------------------------------------------------------------------------
// Config Tests
// ---------------------------------------------------------------------------

func TestDouyinConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  *DouyinConfig
		wantErr error
	}{
		{
			name:   "valid config",
			config: &DouyinConfig{AppKey: "test_app_key", AppSecret: "test_app_secret"},
		},
		{
			name:    "missing app key",
			config:  &DouyinConfig{AppSecret: "test_app_secret"},
			wantErr: ErrDouyinConfigMissingAppKey,
		},
		{
			name:    "missing app secret",
			config:  &DouyinConfig{AppKey: "test_app_key"},
			wantErr: ErrDouyinConfigMissingAppSecret,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, DouyinProductionAPIURL, tt.config.APIBaseURL)
			assert.Equal(t, 30, tt.config.TimeoutSeconds)
		})
	}

	t.Run("sandbox default url", func(t *testing.T) {
		config := &DouyinConfig{AppKey: "k", AppSecret: "s", IsSandbox: true}
		require.NoError(t, config.Validate())
		assert.Equal(t, DouyinSandboxAPIURL, config.APIBaseURL)
	})
}

func TestDouyinConfig_Sign(t *testing.T) {
	config := &DouyinConfig{AppKey: "test_key", AppSecret: "test_secret"}

	sign1 := config.Sign("order.searchList", `{"page":0,"size":50}`, "1704067200", "2")
	sign2 := config.Sign("order.searchList", `{"page":0,"size":50}`, "1704067200", "2")
	assert.Equal(t, sign1, sign2)
	assert.Len(t, sign1, 64)

	assert.NotEqual(t, sign1, config.Sign("order.searchList", `{"page":1,"size":50}`, "1704067200", "2"))
}

func TestDouyinConfigFrom(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		dc := DouyinConfigFrom(infraconfig.DouyinConfig{AppKey: "k", AppSecret: "s", ShopID: "shop", TimeoutSeconds: 12})
		assert.Equal(t, DouyinProductionAPIURL, dc.APIBaseURL)
		assert.Equal(t, 12, dc.TimeoutSeconds)
		assert.Equal(t, "shop", dc.ShopID)
		assert.False(t, dc.IsSandbox)
	})

	t.Run("sandbox", func(t *testing.T) {
		dc := DouyinConfigFrom(infraconfig.DouyinConfig{AppKey: "k", AppSecret: "s", Sandbox: true})
		require.NoError(t, dc.Validate())
		assert.True(t, dc.IsSandbox)
		assert.Equal(t, DouyinSandboxAPIURL, dc.APIBaseURL)
		assert.Equal(t, 30, dc.TimeoutSeconds)
	})
}

// ---------------------------------------------------------------------------
// Adapter Tests
// ---------------------------------------------------------------------------

// capturedRequest is the decoded body of one API call
type capturedRequest struct {
	Path        string
	AppKey      string `json:"app_key"`
	AccessToken string `json:"access_token"`
	Method      string `json:"method"`
	ParamJSON   string `json:"param_json"`
	Timestamp   string `json:"timestamp"`
	V           string `json:"v"`
	Sign        string `json:"sign"`
}

func newTestAdapter(t *testing.T, handler func(req capturedRequest) any) (*DouyinAdapter, *[]capturedRequest) {
	t.Helper()
	var calls []capturedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		req.Path = r.URL.Path
		calls = append(calls, req)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(server.Close)

	config := NewDouyinConfig("app", "secret", "token", "shop123")
	config.APIBaseURL = server.URL
	adapter, err := NewDouyinAdapter(config, nil)
	require.NoError(t, err)
	adapter.now = func() time.Time { return time.Unix(1714536000, 0) }
	return adapter, &calls
}

func TestNewDouyinAdapter(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		adapter, err := NewDouyinAdapter(NewDouyinConfig("app", "secret", "", ""), nil)
		require.NoError(t, err)
		assert.NotNil(t, adapter)
	})

	t.Run("invalid config", func(t *testing.T) {
		adapter, err := NewDouyinAdapter(&DouyinConfig{}, nil)
		assert.Error(t, err)
		assert.Nil(t, adapter)
	})
}

func TestDouyinAdapter_SearchOrders(t *testing.T) {
	adapter, calls := newTestAdapter(t, func(req capturedRequest) any {
		return map[string]any{
			"err_no":  0,
			"message": "success",
			"data": map[string]any{
				"total": 2,
				"shop_order_list": []map[string]any{
					{"order_id": "6920000000000001"},
					{"order_id": 6920000000000002},
				},
			},
		}
	})

	start := time.Unix(1714000000, 0)
	end := time.Unix(1714500000, 0)
	ids, err := adapter.SearchOrders(context.Background(), start, end, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"6920000000000001", "6920000000000002"}, ids)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, "/order/searchList", call.Path)
	assert.Equal(t, "order.searchList", call.Method)
	assert.Equal(t, "app", call.AppKey)
	assert.Equal(t, "token", call.AccessToken)
	assert.Equal(t, "1714536000", call.Timestamp)
	assert.Equal(t, adapter.config.Sign(call.Method, call.ParamJSON, call.Timestamp, call.V), call.Sign)

	var params map[string]any
	require.NoError(t, json.Unmarshal([]byte(call.ParamJSON), &params))
	assert.EqualValues(t, 1, params["page"])
	assert.EqualValues(t, 100, params["size"])
	assert.EqualValues(t, 1714000000, params["create_time_start"])
	assert.EqualValues(t, 1714500000, params["create_time_end"])
}

func TestDouyinAdapter_OrderDetail(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(req capturedRequest) any {
		return map[string]any{
			"err_no":  0,
			"message": "success",
			"data": map[string]any{
				"shop_order_detail": map[string]any{
					"order_id":          "A100",
					"order_status":      3,
					"order_status_desc": "已发货",
					"create_time":       1714000000,
					"pay_time":          1714000100,
					"total_amount":      12990,
					"pay_amount":        9990,
					"post_receiver":     "张*",
					"post_addr": map[string]any{
						"province": map[string]any{"id": "32", "name": "江苏省"},
						"city":     map[string]any{"id": "3201", "name": "南京市"},
					},
					"logistics_info": []map[string]any{
						{"tracking_no": "YT123", "company_name": "圆通速递"},
					},
					"sku_order_list": []map[string]any{
						{"sku_id": 1001, "code": "X1（红色）", "product_id": 77, "product_name": "杯子", "item_num": 2, "price": 4995},
						{"sku_id": 1002, "code": "", "out_sku_id": "X2", "product_name": "盖子", "origin_amount": 300},
					},
				},
			},
		}
	})

	o, lines, err := adapter.OrderDetail(context.Background(), "A100")
	require.NoError(t, err)

	assert.Equal(t, "A100", o.OrderID)
	assert.Equal(t, order.StatusShipped, o.Status)
	assert.Equal(t, "已发货", o.StatusDesc)
	assert.Equal(t, "32", o.ProvinceID)
	assert.Equal(t, "江苏省", o.ProvinceName)
	assert.Equal(t, "南京市", o.CityName)
	assert.Equal(t, "张*", o.ReceiverName)
	assert.Equal(t, "YT123", o.LogisticsCode)
	assert.Equal(t, "圆通速递", o.LogisticsCompany)
	assert.True(t, o.TotalAmount.Equal(decimal.RequireFromString("129.9")))
	assert.True(t, o.PayAmount.Equal(decimal.RequireFromString("99.9")))
	require.NotNil(t, o.PayTime)
	assert.Equal(t, int64(1714000100), o.PayTime.Unix())
	assert.Nil(t, o.UpdateTime)

	require.Len(t, lines, 2)
	assert.Equal(t, "1001", lines[0].SkuID)
	assert.Equal(t, "X1", lines[0].SkuCode)
	assert.Equal(t, "X1（红色）", lines[0].SkuCodeRaw)
	assert.Equal(t, "77", lines[0].ProductID)
	assert.Equal(t, 2, lines[0].Quantity)
	assert.True(t, lines[0].Price.Equal(decimal.RequireFromString("49.95")))
	assert.Equal(t, "A100", lines[0].OrderID)

	assert.Equal(t, "X2", lines[1].SkuCode)
	assert.Equal(t, 1, lines[1].Quantity)
	assert.True(t, lines[1].Price.Equal(decimal.NewFromInt(3)))
}

func TestDouyinAdapter_AfterSales(t *testing.T) {
	adapter, calls := newTestAdapter(t, func(req capturedRequest) any {
		switch req.Method {
		case "afterSale.List":
			return map[string]any{
				"err_no": 0,
				"data": map[string]any{
					"aftersale_list": []map[string]any{{"aftersale_id": 7001}},
				},
			}
		default:
			return map[string]any{
				"err_no": 0,
				"data": map[string]any{
					"aftersale_id":     7001,
					"order_id":         "A100",
					"sku_id":           1001,
					"out_sku_id":       "X1(赠品)",
					"aftersale_type":   0,
					"aftersale_status": 2,
					"reason_code":      "damaged_goods",
					"reason_text":      "收到商品破损",
					"refund_amount":    4995,
					"apply_time":       1714100000,
				},
			}
		}
	})
	ctx := context.Background()

	ids, err := adapter.SearchAfterSales(ctx, time.Unix(1714000000, 0), time.Unix(1714500000, 0), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, []string{"7001"}, ids)

	sale, err := adapter.AfterSaleDetail(ctx, "7001")
	require.NoError(t, err)
	assert.Equal(t, "7001", sale.AfterSaleID)
	assert.Equal(t, "A100", sale.OrderID)
	assert.Equal(t, "X1", sale.SkuCode)
	assert.Equal(t, order.AfterSaleTypeReturnRefund, sale.Type)
	assert.Equal(t, order.AfterSaleStatusAwaitingGoods, sale.Status)
	assert.True(t, sale.IsQualityIssue)
	assert.True(t, sale.RefundAmount.Equal(decimal.RequireFromString("49.95")))
	require.NotNil(t, sale.ApplyTime)
	assert.Nil(t, sale.FinishTime)

	require.Len(t, *calls, 2)
	assert.Equal(t, "/afterSale/List", (*calls)[0].Path)
	assert.Equal(t, "/afterSale/Detail", (*calls)[1].Path)
}

func TestDouyinAdapter_Errors(t *testing.T) {
	t.Run("api error", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(req capturedRequest) any {
			return map[string]any{"err_no": 30002, "message": "access_token已过期"}
		})
		_, err := adapter.SearchOrders(context.Background(), time.Now().Add(-time.Hour), time.Now(), 0, 100)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDouyinRequestFailed))
		assert.Contains(t, err.Error(), "30002")
	})

	t.Run("empty detail", func(t *testing.T) {
		adapter, _ := newTestAdapter(t, func(req capturedRequest) any {
			return map[string]any{"err_no": 0, "data": map[string]any{}}
		})
		_, _, err := adapter.OrderDetail(context.Background(), "A1")
		assert.ErrorIs(t, err, ErrDouyinEmptyDetail)
	})

	t.Run("http error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		config := NewDouyinConfig("app", "secret", "", "")
		config.APIBaseURL = server.URL
		adapter, err := NewDouyinAdapter(config, nil)
		require.NoError(t, err)

		_, err = adapter.AfterSaleDetail(context.Background(), "1")
		assert.ErrorIs(t, err, ErrDouyinRequestFailed)
	})

	t.Run("unreachable", func(t *testing.T) {
		config := NewDouyinConfig("app", "secret", "", "")
		config.APIBaseURL = "http://127.0.0.1:1"
		adapter, err := NewDouyinAdapter(config, nil)
		require.NoError(t, err)

		_, err = adapter.SearchAfterSales(context.Background(), time.Now().Add(-time.Hour), time.Now(), 0, 10)
		assert.ErrorIs(t, err, ErrDouyinUnavailable)
	})
}

func TestMapDouyinStatuses(t *testing.T) {
	assert.Equal(t, order.StatusPendingShip, mapDouyinOrderStatus(2))
	assert.Equal(t, order.StatusCompleted, mapDouyinOrderStatus(5))
	assert.Equal(t, order.StatusUnknown, mapDouyinOrderStatus(6))

	assert.Equal(t, order.AfterSaleTypeRefundOnly, mapDouyinAfterSaleType(1))
	assert.Equal(t, order.AfterSaleTypeRefundOnly, mapDouyinAfterSaleType(2))
	assert.Equal(t, order.AfterSaleTypeExchange, mapDouyinAfterSaleType(3))
	assert.Equal(t, order.AfterSaleTypeUnknown, mapDouyinAfterSaleType(9))

	assert.Equal(t, order.AfterSaleStatusApplied, mapDouyinAfterSaleStatus(1))
	assert.Equal(t, order.AfterSaleStatusReceiving, mapDouyinAfterSaleStatus(4))
	assert.Equal(t, order.AfterSaleStatusSucceeded, mapDouyinAfterSaleStatus(5))
	assert.Equal(t, order.AfterSaleStatusClosed, mapDouyinAfterSaleStatus(6))
}
