package models

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the orders table
type OrderModel struct {
	ID                  int64  `gorm:"primaryKey;autoIncrement"`
	OrderID             string `gorm:"type:varchar(64);not null;uniqueIndex"`
	OrderStatus         int    `gorm:"not null;default:0;index"`
	OrderStatusDesc     string `gorm:"type:varchar(50)"`
	CreateTime          *time.Time
	PayTime             *time.Time `gorm:"index"`
	UpdateTime          *time.Time
	ReceiverName        string `gorm:"type:varchar(100)"`
	ProvinceID          string `gorm:"type:varchar(20)"`
	ProvinceName        string `gorm:"type:varchar(50);index"`
	CityName            string `gorm:"type:varchar(50)"`
	LogisticsCode       string `gorm:"type:varchar(64)"`
	LogisticsCompany    string `gorm:"type:varchar(50)"`
	LogisticsStatus     *int
	LogisticsStatusDesc string `gorm:"type:varchar(100)"`
	IsSigned            bool   `gorm:"not null;default:false;index"`
	SignTime            *time.Time
	LogisticsChecked    bool            `gorm:"not null;default:false"`
	TotalAmount         decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	PayAmount           decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	CreatedAt           time.Time       `gorm:"not null"`
	UpdatedAt           time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderUpsertColumns are overwritten when an order is re-imported.
// Logistics reconciliation fields are owned by the scanner and never reset here.
var OrderUpsertColumns = []string{
	"order_status", "order_status_desc", "create_time", "pay_time", "update_time",
	"receiver_name", "province_id", "province_name", "city_name",
	"logistics_code", "logistics_company", "total_amount", "pay_amount", "updated_at",
}

// ToDomain converts the model to a domain order
func (m *OrderModel) ToDomain() *order.Order {
	return &order.Order{
		ID:                  m.ID,
		OrderID:             m.OrderID,
		Status:              order.Status(m.OrderStatus),
		StatusDesc:          m.OrderStatusDesc,
		CreateTime:          m.CreateTime,
		PayTime:             m.PayTime,
		UpdateTime:          m.UpdateTime,
		ReceiverName:        m.ReceiverName,
		ProvinceID:          m.ProvinceID,
		ProvinceName:        m.ProvinceName,
		CityName:            m.CityName,
		LogisticsCode:       m.LogisticsCode,
		LogisticsCompany:    m.LogisticsCompany,
		LogisticsStatus:     m.LogisticsStatus,
		LogisticsStatusDesc: m.LogisticsStatusDesc,
		IsSigned:            m.IsSigned,
		SignTime:            m.SignTime,
		LogisticsChecked:    m.LogisticsChecked,
		TotalAmount:         m.TotalAmount,
		PayAmount:           m.PayAmount,
		CreatedAt:           m.CreatedAt,
		UpdatedAt:           m.UpdatedAt,
	}
}

// OrderModelFromDomain converts a domain order to the model
func OrderModelFromDomain(o *order.Order) *OrderModel {
	return &OrderModel{
		ID:                  o.ID,
		OrderID:             o.OrderID,
		OrderStatus:         int(o.Status),
		OrderStatusDesc:     o.StatusDesc,
		CreateTime:          o.CreateTime,
		PayTime:             o.PayTime,
		UpdateTime:          o.UpdateTime,
		ReceiverName:        o.ReceiverName,
		ProvinceID:          o.ProvinceID,
		ProvinceName:        o.ProvinceName,
		CityName:            o.CityName,
		LogisticsCode:       o.LogisticsCode,
		LogisticsCompany:    o.LogisticsCompany,
		LogisticsStatus:     o.LogisticsStatus,
		LogisticsStatusDesc: o.LogisticsStatusDesc,
		IsSigned:            o.IsSigned,
		SignTime:            o.SignTime,
		LogisticsChecked:    o.LogisticsChecked,
		TotalAmount:         o.TotalAmount,
		PayAmount:           o.PayAmount,
		CreatedAt:           o.CreatedAt,
		UpdatedAt:           o.UpdatedAt,
	}
}

// OrderLineModel is the persistence model for the order_skus table
type OrderLineModel struct {
	ID          int64           `gorm:"primaryKey;autoIncrement"`
	OrderID     string          `gorm:"type:varchar(64);not null;index"`
	SkuID       string          `gorm:"type:varchar(64)"`
	SkuCode     string          `gorm:"type:varchar(100);index"`
	SkuCodeRaw  string          `gorm:"type:varchar(200)"`
	SkuName     string          `gorm:"type:varchar(500)"`
	ProductID   string          `gorm:"type:varchar(64)"`
	ProductName string          `gorm:"type:varchar(500)"`
	Quantity    int             `gorm:"not null;default:1"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_skus"
}

// ToDomain converts the model to a domain line
func (m *OrderLineModel) ToDomain() *order.Line {
	return &order.Line{
		ID:          m.ID,
		OrderID:     m.OrderID,
		SkuID:       m.SkuID,
		SkuCode:     m.SkuCode,
		SkuCodeRaw:  m.SkuCodeRaw,
		SkuName:     m.SkuName,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		Quantity:    m.Quantity,
		Price:       m.Price,
		CreatedAt:   m.CreatedAt,
	}
}

// OrderLineModelFromDomain converts a domain line to the model
func OrderLineModelFromDomain(l *order.Line) *OrderLineModel {
	return &OrderLineModel{
		ID:          l.ID,
		OrderID:     l.OrderID,
		SkuID:       l.SkuID,
		SkuCode:     l.SkuCode,
		SkuCodeRaw:  l.SkuCodeRaw,
		SkuName:     l.SkuName,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		Quantity:    l.Quantity,
		Price:       l.Price,
		CreatedAt:   l.CreatedAt,
	}
}
