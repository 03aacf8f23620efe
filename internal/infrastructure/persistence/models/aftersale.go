package models

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/shopspring/decimal"
)

// AfterSaleModel is the persistence model for the after_sales table
type AfterSaleModel struct {
	ID                  int64           `gorm:"primaryKey;autoIncrement"`
	AfterSaleID         string          `gorm:"column:aftersale_id;type:varchar(64);not null;uniqueIndex"`
	OrderID             string          `gorm:"type:varchar(64);index"`
	SkuID               string          `gorm:"type:varchar(64)"`
	SkuCode             string          `gorm:"type:varchar(100);index"`
	SkuCodeRaw          string          `gorm:"type:varchar(200)"`
	AfterSaleType       int             `gorm:"column:aftersale_type;not null;default:0"`
	AfterSaleStatus     int             `gorm:"column:aftersale_status;not null;default:0"`
	AfterSaleStatusDesc string          `gorm:"column:aftersale_status_desc;type:varchar(50)"`
	ReasonCode          string          `gorm:"type:varchar(50)"`
	ReasonText          string          `gorm:"type:varchar(500)"`
	IsQualityIssue      bool            `gorm:"not null;default:false"`
	RefundAmount        decimal.Decimal `gorm:"type:decimal(12,2);default:0"`
	ApplyTime           *time.Time
	FinishTime          *time.Time
	ProvinceID          string    `gorm:"type:varchar(20)"`
	ProvinceName        string    `gorm:"type:varchar(50)"`
	CreatedAt           time.Time `gorm:"not null"`
	UpdatedAt           time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (AfterSaleModel) TableName() string {
	return "after_sales"
}

// AfterSaleUpsertColumns are overwritten when an after-sale is re-imported
var AfterSaleUpsertColumns = []string{
	"order_id", "sku_id", "sku_code", "sku_code_raw", "aftersale_type", "aftersale_status",
	"aftersale_status_desc", "reason_code", "reason_text", "is_quality_issue", "refund_amount",
	"apply_time", "finish_time", "province_id", "province_name", "updated_at",
}

// ToDomain converts the model to a domain after-sale
func (m *AfterSaleModel) ToDomain() *order.AfterSale {
	return &order.AfterSale{
		ID:             m.ID,
		AfterSaleID:    m.AfterSaleID,
		OrderID:        m.OrderID,
		SkuID:          m.SkuID,
		SkuCode:        m.SkuCode,
		SkuCodeRaw:     m.SkuCodeRaw,
		Type:           order.AfterSaleType(m.AfterSaleType),
		Status:         order.AfterSaleStatus(m.AfterSaleStatus),
		StatusDesc:     m.AfterSaleStatusDesc,
		ReasonCode:     m.ReasonCode,
		ReasonText:     m.ReasonText,
		IsQualityIssue: m.IsQualityIssue,
		RefundAmount:   m.RefundAmount,
		ApplyTime:      m.ApplyTime,
		FinishTime:     m.FinishTime,
		ProvinceID:     m.ProvinceID,
		ProvinceName:   m.ProvinceName,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// AfterSaleModelFromDomain converts a domain after-sale to the model
func AfterSaleModelFromDomain(a *order.AfterSale) *AfterSaleModel {
	return &AfterSaleModel{
		ID:                  a.ID,
		AfterSaleID:         a.AfterSaleID,
		OrderID:             a.OrderID,
		SkuID:               a.SkuID,
		SkuCode:             a.SkuCode,
		SkuCodeRaw:          a.SkuCodeRaw,
		AfterSaleType:       int(a.Type),
		AfterSaleStatus:     int(a.Status),
		AfterSaleStatusDesc: a.StatusDesc,
		ReasonCode:          a.ReasonCode,
		ReasonText:          a.ReasonText,
		IsQualityIssue:      a.IsQualityIssue,
		RefundAmount:        a.RefundAmount,
		ApplyTime:           a.ApplyTime,
		FinishTime:          a.FinishTime,
		ProvinceID:          a.ProvinceID,
		ProvinceName:        a.ProvinceName,
		CreatedAt:           a.CreatedAt,
		UpdatedAt:           a.UpdatedAt,
	}
}
