package order

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// AfterSaleType classifies an after-sale request
type AfterSaleType int

const (
	AfterSaleTypeUnknown      AfterSaleType = 0
	AfterSaleTypeReturnRefund AfterSaleType = 1
	AfterSaleTypeRefundOnly   AfterSaleType = 2
	AfterSaleTypeExchange     AfterSaleType = 3
)

// ParseAfterSaleTypeText maps the type column of an after-sale export
func ParseAfterSaleTypeText(text string) AfterSaleType {
	switch {
	case strings.Contains(text, "退货"):
		return AfterSaleTypeReturnRefund
	case strings.Contains(text, "退款"):
		return AfterSaleTypeRefundOnly
	case strings.Contains(text, "换货"):
		return AfterSaleTypeExchange
	}
	return AfterSaleTypeUnknown
}

// AfterSaleStatus is the after-sale processing status code
type AfterSaleStatus int

const (
	AfterSaleStatusApplied       AfterSaleStatus = 1
	AfterSaleStatusAwaitingGoods AfterSaleStatus = 2
	AfterSaleStatusReceiving     AfterSaleStatus = 3
	AfterSaleStatusSucceeded     AfterSaleStatus = 5
	AfterSaleStatusClosed        AfterSaleStatus = 6
)

// PendingAfterSaleStatuses are the statuses counted as "after-sale pending"
var PendingAfterSaleStatuses = []AfterSaleStatus{AfterSaleStatusAwaitingGoods, AfterSaleStatusReceiving}

// IsPending returns true if the after-sale is still waiting for goods to come back
func (s AfterSaleStatus) IsPending() bool {
	return s == AfterSaleStatusAwaitingGoods || s == AfterSaleStatusReceiving
}

// ParseAfterSaleStatusText maps the status column of an after-sale export
func ParseAfterSaleStatusText(text string) AfterSaleStatus {
	switch {
	case strings.Contains(text, "待买家退货"),
		strings.Contains(text, "待商家收货"),
		strings.Contains(text, "待商家处理"):
		return AfterSaleStatusAwaitingGoods
	case strings.Contains(text, "成功"), strings.Contains(text, "退款"):
		return AfterSaleStatusSucceeded
	case strings.Contains(text, "关闭"), strings.Contains(text, "拒绝"):
		return AfterSaleStatusClosed
	}
	return AfterSaleStatusApplied
}

var qualityKeywords = []string{"质量", "破损", "与描述不符", "假货", "品质"}

// IsQualityReason reports whether a free-text reason points at a product quality problem
func IsQualityReason(reason string) bool {
	for _, kw := range qualityKeywords {
		if strings.Contains(reason, kw) {
			return true
		}
	}
	return false
}

// AfterSale is an after-sale request identified by AfterSaleID.
// OrderID may reference an order that has not been imported yet.
type AfterSale struct {
	ID             int64
	AfterSaleID    string
	OrderID        string
	SkuID          string
	SkuCode        string
	SkuCodeRaw     string
	Type           AfterSaleType
	Status         AfterSaleStatus
	StatusDesc     string
	ReasonCode     string
	ReasonText     string
	IsQualityIssue bool
	RefundAmount   decimal.Decimal
	ApplyTime      *time.Time
	FinishTime     *time.Time
	ProvinceID     string
	ProvinceName   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsReturn returns true for return-and-refund requests
func (a *AfterSale) IsReturn() bool {
	return a.Type == AfterSaleTypeReturnRefund
}
