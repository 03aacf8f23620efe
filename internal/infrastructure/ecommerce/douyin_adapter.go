package ecommerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/flowstart/douyin-web/internal/application/platformsync"
	"github.com/flowstart/douyin-web/internal/domain/order"
)

const (
	// maxDouyinResponseSize limits the response body size
	maxDouyinResponseSize = 10 * 1024 * 1024
	// centsPerYuan is the conversion factor for Chinese currency
	centsPerYuan = 100
	apiVersion   = "2"
)

// Douyin API methods
const (
	methodOrderSearchList = "order.searchList"
	methodOrderDetail     = "order.orderDetail"
	methodAfterSaleList   = "afterSale.List"
	methodAfterSaleDetail = "afterSale.Detail"
)

// Errors returned by the Douyin adapter
var (
	ErrDouyinUnavailable   = errors.New("douyin: platform unavailable")
	ErrDouyinRequestFailed = errors.New("douyin: request failed")
	ErrDouyinEmptyDetail   = errors.New("douyin: empty detail")
)

// Quality reason codes reported by the after-sale API
var qualityReasonCodes = []string{"quality", "fake", "damaged"}

// DouyinAdapter pulls orders and after-sales from the Douyin shop open API
type DouyinAdapter struct {
	config     *DouyinConfig
	httpClient *http.Client
	now        func() time.Time
	logger     *zap.Logger
}

// NewDouyinAdapter creates a new Douyin adapter with the given configuration
func NewDouyinAdapter(config *DouyinConfig, logger *zap.Logger) (*DouyinAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DouyinAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		now:    time.Now,
		logger: logger,
	}, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// SearchOrders returns the ids of one page of orders created in [start, end]
func (a *DouyinAdapter) SearchOrders(ctx context.Context, start, end time.Time, page, size int) ([]string, error) {
	body, err := a.doRequest(ctx, methodOrderSearchList, rangeParams(start, end, page, size))
	if err != nil {
		return nil, err
	}

	var resp DouyinOrderListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("douyin: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, responseError(&resp.DouyinResponse)
	}
	if resp.Data == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Data.ShopOrderList))
	for _, o := range resp.Data.ShopOrderList {
		if id := o.OrderID.String(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// OrderDetail returns an order with its SKU lines
func (a *DouyinAdapter) OrderDetail(ctx context.Context, orderID string) (*order.Order, []*order.Line, error) {
	body, err := a.doRequest(ctx, methodOrderDetail, map[string]any{"shop_order_id": orderID})
	if err != nil {
		return nil, nil, err
	}

	var resp DouyinOrderDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("douyin: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, nil, responseError(&resp.DouyinResponse)
	}
	if resp.Data == nil || resp.Data.ShopOrderDetail == nil {
		return nil, nil, fmt.Errorf("%w: order %s", ErrDouyinEmptyDetail, orderID)
	}

	o, lines := convertDouyinOrder(resp.Data.ShopOrderDetail)
	if o.OrderID == "" {
		o.OrderID = orderID
		for _, l := range lines {
			l.OrderID = orderID
		}
	}
	return o, lines, nil
}

// ---------------------------------------------------------------------------
// After-sales
// ---------------------------------------------------------------------------

// SearchAfterSales returns the ids of one page of after-sales applied for in [start, end]
func (a *DouyinAdapter) SearchAfterSales(ctx context.Context, start, end time.Time, page, size int) ([]string, error) {
	body, err := a.doRequest(ctx, methodAfterSaleList, rangeParams(start, end, page, size))
	if err != nil {
		return nil, err
	}

	var resp DouyinAfterSaleListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("douyin: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, responseError(&resp.DouyinResponse)
	}
	if resp.Data == nil {
		return nil, nil
	}

	ids := make([]string, 0, len(resp.Data.AfterSaleList))
	for _, s := range resp.Data.AfterSaleList {
		if id := s.AfterSaleID.String(); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// AfterSaleDetail returns one after-sale request
func (a *DouyinAdapter) AfterSaleDetail(ctx context.Context, afterSaleID string) (*order.AfterSale, error) {
	body, err := a.doRequest(ctx, methodAfterSaleDetail, map[string]any{"aftersale_id": afterSaleID})
	if err != nil {
		return nil, err
	}

	var resp DouyinAfterSaleDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("douyin: failed to parse response: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, responseError(&resp.DouyinResponse)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("%w: after-sale %s", ErrDouyinEmptyDetail, afterSaleID)
	}

	sale := convertDouyinAfterSale(resp.Data)
	if sale.AfterSaleID == "" {
		sale.AfterSaleID = afterSaleID
	}
	return sale, nil
}

// ---------------------------------------------------------------------------
// Internal Helpers
// ---------------------------------------------------------------------------

func rangeParams(start, end time.Time, page, size int) map[string]any {
	return map[string]any{
		"page":              page,
		"size":              size,
		"create_time_start": start.Unix(),
		"create_time_end":   end.Unix(),
	}
}

func responseError(r *DouyinResponse) error {
	return fmt.Errorf("%w: %d - %s", ErrDouyinRequestFailed, r.ErrNo, r.Message)
}

// doRequest performs a signed call of an API method. The method name maps to
// the URL path with dots replaced by slashes.
func (a *DouyinAdapter) doRequest(ctx context.Context, method string, params map[string]any) ([]byte, error) {
	paramJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("douyin: failed to marshal params: %w", err)
	}

	timestamp := strconv.FormatInt(a.now().Unix(), 10)
	sign := a.config.Sign(method, string(paramJSON), timestamp, apiVersion)

	url := a.config.APIBaseURL + "/" + strings.ReplaceAll(method, ".", "/")

	requestBody := map[string]any{
		"app_key":     a.config.AppKey,
		"method":      method,
		"param_json":  string(paramJSON),
		"timestamp":   timestamp,
		"v":           apiVersion,
		"sign":        sign,
		"sign_method": "hmac-sha256",
	}
	if a.config.AccessToken != "" {
		requestBody["access_token"] = a.config.AccessToken
	}
	if a.config.ShopID != "" {
		requestBody["shop_id"] = a.config.ShopID
	}

	bodyBytes, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("douyin: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("douyin: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDouyinUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDouyinResponseSize))
	if err != nil {
		return nil, fmt.Errorf("douyin: failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: HTTP %d", ErrDouyinRequestFailed, resp.StatusCode)
	}

	a.logger.Debug("douyin call", zap.String("method", method), zap.Int("bytes", len(body)))
	return body, nil
}

// convertDouyinOrder maps a shop order to the domain order and its lines
func convertDouyinOrder(d *DouyinOrder) (*order.Order, []*order.Line) {
	o := &order.Order{
		OrderID:      d.OrderID.String(),
		Status:       mapDouyinOrderStatus(d.OrderStatus),
		StatusDesc:   d.OrderStatusDesc,
		CreateTime:   unixTime(d.CreateTime),
		PayTime:      unixTime(d.PayTime),
		UpdateTime:   unixTime(d.UpdateTime),
		ReceiverName: d.PostReceiver,
		TotalAmount:  fenToYuan(d.TotalAmount),
		PayAmount:    fenToYuan(d.PayAmount),
	}
	if o.StatusDesc == "" {
		o.StatusDesc = o.Status.String()
	}
	if o.TotalAmount.IsZero() && d.OrderAmount != 0 {
		o.TotalAmount = fenToYuan(d.OrderAmount)
	}
	if d.PostAddr != nil {
		o.ProvinceID = d.PostAddr.Province.ID.String()
		o.ProvinceName = d.PostAddr.Province.Name
		o.CityName = d.PostAddr.City.Name
	}
	for _, l := range d.LogisticsInfo {
		if l.TrackingNo == "" {
			continue
		}
		o.LogisticsCode = l.TrackingNo
		o.LogisticsCompany = l.CompanyName
		if o.LogisticsCompany == "" {
			o.LogisticsCompany = l.Company
		}
		break
	}

	lines := make([]*order.Line, 0, len(d.SkuOrderList))
	for _, s := range d.SkuOrderList {
		raw := s.Code
		if raw == "" {
			raw = s.OutSkuID
		}
		qty := s.ItemNum
		if qty <= 0 {
			qty = 1
		}
		name := s.SkuName
		if name == "" {
			name = s.ProductName
		}
		price := s.Price
		if price == 0 && s.OriginAmount != 0 {
			price = s.OriginAmount / int64(qty)
		}
		lines = append(lines, &order.Line{
			OrderID:     o.OrderID,
			SkuID:       s.SkuID.String(),
			SkuCode:     order.NormalizeSkuCode(raw),
			SkuCodeRaw:  raw,
			SkuName:     name,
			ProductID:   s.ProductID.String(),
			ProductName: s.ProductName,
			Quantity:    qty,
			Price:       fenToYuan(price),
		})
	}
	return o, lines
}

// convertDouyinAfterSale maps an after-sale request to the domain type
func convertDouyinAfterSale(d *DouyinAfterSale) *order.AfterSale {
	reasonCode := d.ReasonCode.String()
	sale := &order.AfterSale{
		AfterSaleID:  d.AfterSaleID.String(),
		OrderID:      d.OrderID.String(),
		SkuID:        d.SkuID.String(),
		SkuCode:      order.NormalizeSkuCode(d.OutSkuID),
		SkuCodeRaw:   d.OutSkuID,
		Type:         mapDouyinAfterSaleType(d.AfterSaleType),
		Status:       mapDouyinAfterSaleStatus(d.AfterSaleStatus),
		ReasonCode:   reasonCode,
		ReasonText:   d.ReasonText,
		RefundAmount: fenToYuan(d.RefundAmount),
		ApplyTime:    unixTime(d.ApplyTime),
		FinishTime:   unixTime(d.FinishTime),
	}
	sale.IsQualityIssue = order.IsQualityReason(d.ReasonText) || isQualityReasonCode(reasonCode)
	return sale
}

func isQualityReasonCode(code string) bool {
	code = strings.ToLower(code)
	for _, c := range qualityReasonCodes {
		if strings.Contains(code, c) {
			return true
		}
	}
	return false
}

// mapDouyinOrderStatus keeps the platform codes that the domain knows
func mapDouyinOrderStatus(status int) order.Status {
	switch s := order.Status(status); s {
	case order.StatusPendingPay, order.StatusPendingShip, order.StatusShipped,
		order.StatusClosed, order.StatusCompleted:
		return s
	}
	return order.StatusUnknown
}

// mapDouyinAfterSaleType maps 0 return-refund, 1/2 refund-only (shipped or not), 3 exchange
func mapDouyinAfterSaleType(t int) order.AfterSaleType {
	switch t {
	case 0:
		return order.AfterSaleTypeReturnRefund
	case 1, 2:
		return order.AfterSaleTypeRefundOnly
	case 3:
		return order.AfterSaleTypeExchange
	}
	return order.AfterSaleTypeUnknown
}

// mapDouyinAfterSaleStatus maps 2 awaiting buyer shipment, 3/4 awaiting merchant
// receipt or refund, 5 succeeded, 6 closed; anything else is a fresh application
func mapDouyinAfterSaleStatus(s int) order.AfterSaleStatus {
	switch s {
	case 2:
		return order.AfterSaleStatusAwaitingGoods
	case 3, 4:
		return order.AfterSaleStatusReceiving
	case 5:
		return order.AfterSaleStatusSucceeded
	case 6:
		return order.AfterSaleStatusClosed
	}
	return order.AfterSaleStatusApplied
}

func unixTime(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0)
	return &t
}

func fenToYuan(fen int64) decimal.Decimal {
	return decimal.NewFromInt(fen).Div(decimal.NewFromInt(centsPerYuan))
}

// Ensure DouyinAdapter implements platformsync.Platform
var _ platformsync.Platform = (*DouyinAdapter)(nil)
