package ecommerce

import (
	"bytes"
	"encoding/json"
)

// DouyinResponse is the base response wrapper for all Douyin API calls
type DouyinResponse struct {
	// ErrNo is the error code (0 for success)
	ErrNo int `json:"err_no"`
	// Message is the error message
	Message string `json:"message"`
	// LogID is the request trace ID for debugging
	LogID string `json:"log_id,omitempty"`
}

// IsSuccess returns true if the response indicates success
func (r *DouyinResponse) IsSuccess() bool {
	return r.ErrNo == 0
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// DouyinOrderListResponse is the response for order.searchList
type DouyinOrderListResponse struct {
	DouyinResponse
	Data *DouyinOrderListData `json:"data,omitempty"`
}

// DouyinOrderListData contains one page of order summaries
type DouyinOrderListData struct {
	Total         int64                `json:"total"`
	Page          int                  `json:"page"`
	Size          int                  `json:"size"`
	ShopOrderList []DouyinOrderSummary `json:"shop_order_list,omitempty"`
}

// DouyinOrderSummary is a list entry of order.searchList
type DouyinOrderSummary struct {
	OrderID flexString `json:"order_id"`
}

// DouyinOrderDetailResponse is the response for order.orderDetail
type DouyinOrderDetailResponse struct {
	DouyinResponse
	Data *DouyinOrderDetailData `json:"data,omitempty"`
}

// DouyinOrderDetailData wraps the order detail
type DouyinOrderDetailData struct {
	ShopOrderDetail *DouyinOrder `json:"shop_order_detail,omitempty"`
}

// DouyinOrder is a shop order. Timestamps are Unix seconds, amounts are fen.
type DouyinOrder struct {
	OrderID         flexString `json:"order_id"`
	OrderStatus     int        `json:"order_status"`
	OrderStatusDesc string     `json:"order_status_desc"`

	CreateTime int64 `json:"create_time"`
	UpdateTime int64 `json:"update_time"`
	PayTime    int64 `json:"pay_time"`

	OrderAmount int64 `json:"order_amount"`
	TotalAmount int64 `json:"total_amount"`
	PayAmount   int64 `json:"pay_amount"`

	PostReceiver string           `json:"post_receiver,omitempty"`
	PostAddr     *DouyinPostAddr  `json:"post_addr,omitempty"`
	SkuOrderList []DouyinSkuOrder `json:"sku_order_list,omitempty"`

	LogisticsInfo []DouyinLogisticsInfo `json:"logistics_info,omitempty"`
}

// DouyinPostAddr is the receiver address
type DouyinPostAddr struct {
	Province DouyinArea `json:"province"`
	City     DouyinArea `json:"city"`
	Town     DouyinArea `json:"town"`
	Detail   string     `json:"detail,omitempty"`
}

// DouyinArea is one administrative level of an address
type DouyinArea struct {
	ID   flexString `json:"id"`
	Name string     `json:"name"`
}

// DouyinLogisticsInfo is one shipment of an order
type DouyinLogisticsInfo struct {
	TrackingNo  string `json:"tracking_no"`
	Company     string `json:"company"`
	CompanyName string `json:"company_name"`
	ShipTime    int64  `json:"ship_time"`
}

// DouyinSkuOrder is one SKU line of an order
type DouyinSkuOrder struct {
	SkuOrderID   flexString `json:"sku_order_id"`
	ProductID    flexString `json:"product_id"`
	ProductName  string     `json:"product_name"`
	SkuID        flexString `json:"sku_id"`
	SkuName      string     `json:"sku_name,omitempty"`
	Code         string     `json:"code"`
	OutSkuID     string     `json:"out_sku_id"`
	ItemNum      int        `json:"item_num"`
	Price        int64      `json:"price"`
	OriginAmount int64      `json:"origin_amount"`
}

// ---------------------------------------------------------------------------
// After-sales
// ---------------------------------------------------------------------------

// DouyinAfterSaleListResponse is the response for afterSale.List
type DouyinAfterSaleListResponse struct {
	DouyinResponse
	Data *DouyinAfterSaleListData `json:"data,omitempty"`
}

// DouyinAfterSaleListData contains one page of after-sale summaries
type DouyinAfterSaleListData struct {
	Total         int64                    `json:"total"`
	AfterSaleList []DouyinAfterSaleSummary `json:"aftersale_list,omitempty"`
}

// DouyinAfterSaleSummary is a list entry of afterSale.List
type DouyinAfterSaleSummary struct {
	AfterSaleID flexString `json:"aftersale_id"`
}

// DouyinAfterSaleDetailResponse is the response for afterSale.Detail
type DouyinAfterSaleDetailResponse struct {
	DouyinResponse
	Data *DouyinAfterSale `json:"data,omitempty"`
}

// DouyinAfterSale is an after-sale request. Timestamps are Unix seconds, amounts are fen.
type DouyinAfterSale struct {
	AfterSaleID     flexString `json:"aftersale_id"`
	OrderID         flexString `json:"order_id"`
	SkuID           flexString `json:"sku_id"`
	OutSkuID        string     `json:"out_sku_id"`
	AfterSaleType   int        `json:"aftersale_type"`
	AfterSaleStatus int        `json:"aftersale_status"`
	ReasonCode      flexString `json:"reason_code"`
	ReasonText      string     `json:"reason_text"`
	RefundAmount    int64      `json:"refund_amount"`
	ApplyTime       int64      `json:"apply_time"`
	FinishTime      int64      `json:"finish_time"`
}

// flexString decodes ids that the API sends either as strings or as numbers
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	*s = flexString(b)
	return nil
}

func (s flexString) String() string {
	return string(s)
}
