package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the platform order status code
type Status int

const (
	StatusUnknown     Status = 0
	StatusPendingPay  Status = 1
	StatusPendingShip Status = 2
	StatusShipped     Status = 3
	StatusClosed      Status = 4
	StatusCompleted   Status = 5
)

// String returns the display text of the status
func (s Status) String() string {
	switch s {
	case StatusPendingPay:
		return "待支付"
	case StatusPendingShip:
		return "待发货"
	case StatusShipped:
		return "已发货"
	case StatusClosed:
		return "已关闭"
	case StatusCompleted:
		return "已完成"
	}
	return ""
}

// ParseStatusText maps the status column of an order export to a Status.
// Unrecognised text yields StatusUnknown.
func ParseStatusText(text string) Status {
	switch text {
	case "待发货":
		return StatusPendingShip
	case "已发货":
		return StatusShipped
	case "已完成":
		return StatusCompleted
	case "已关闭":
		return StatusClosed
	}
	return StatusUnknown
}

// Order is a platform order identified by its natural key OrderID
type Order struct {
	ID                  int64
	OrderID             string
	Status              Status
	StatusDesc          string
	CreateTime          *time.Time
	PayTime             *time.Time
	UpdateTime          *time.Time
	ReceiverName        string
	ProvinceID          string
	ProvinceName        string
	CityName            string
	LogisticsCode       string
	LogisticsCompany    string
	LogisticsStatus     *int
	LogisticsStatusDesc string
	IsSigned            bool
	SignTime            *time.Time
	LogisticsChecked    bool
	TotalAmount         decimal.Decimal
	PayAmount           decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// HasTracking returns true if the order carries a tracking code
func (o *Order) HasTracking() bool {
	return o.LogisticsCode != ""
}

// NeedsLogisticsCheck reports whether the order is eligible for a logistics
// status query at the given threshold. threshold is now minus the query interval.
func (o *Order) NeedsLogisticsCheck(threshold time.Time) bool {
	if !o.HasTracking() || o.Status != StatusShipped || o.IsSigned {
		return false
	}
	return !o.LogisticsChecked || o.UpdatedAt.Before(threshold)
}

// Line is a single SKU line of an order. Lines are owned by their order and
// are replaced wholesale whenever the order is re-imported.
type Line struct {
	ID          int64
	OrderID     string
	SkuID       string
	SkuCode     string
	SkuCodeRaw  string
	SkuName     string
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
	CreatedAt   time.Time
}

// LogisticsPatch carries the fields the reconciliation scanner may change on an order
type LogisticsPatch struct {
	IsSigned            bool
	LogisticsStatus     *int
	LogisticsStatusDesc string
	SignTime            *time.Time
	CheckedAt           time.Time
}

// Apply applies the patch to the order
func (p LogisticsPatch) Apply(o *Order) {
	o.LogisticsChecked = true
	o.IsSigned = p.IsSigned
	o.LogisticsStatus = p.LogisticsStatus
	o.LogisticsStatusDesc = p.LogisticsStatusDesc
	if p.SignTime != nil {
		o.SignTime = p.SignTime
	}
	o.UpdatedAt = p.CheckedAt
}
