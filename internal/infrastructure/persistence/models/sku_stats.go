package models

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/skustats"
)

// SkuStatsModel is the persistence model for the sku_stats snapshot table
type SkuStatsModel struct {
	ID                      int64   `gorm:"primaryKey;autoIncrement"`
	SkuID                   string  `gorm:"type:varchar(64)"`
	SkuCode                 string  `gorm:"type:varchar(100);not null;uniqueIndex"`
	SkuName                 string  `gorm:"type:varchar(500)"`
	ProductName             string  `gorm:"type:varchar(500)"`
	PendingShipCount        int64   `gorm:"not null;default:0"`
	AfterSalePendingCount   int64   `gorm:"column:aftersale_pending_count;not null;default:0"`
	SignedCount             int64   `gorm:"not null;default:0"`
	SignedReturnCount       int64   `gorm:"not null;default:0"`
	EstimatedReturnRate     float64 `gorm:"not null"`
	InTransitCount          int64   `gorm:"not null;default:0"`
	InTransitReturnEstimate int64   `gorm:"not null;default:0"`
	StockGap                int64   `gorm:"not null;default:0"`
	QualityReturnCount      int64   `gorm:"not null;default:0"`
	QualityReturnRate       float64 `gorm:"not null;default:0"`
	IsRateManual            bool    `gorm:"not null;default:false"`
	ImageURL                string  `gorm:"type:varchar(500)"`
	LastCalculatedAt        *time.Time
	CreatedAt               time.Time `gorm:"not null"`
	UpdatedAt               time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (SkuStatsModel) TableName() string {
	return "sku_stats"
}

// SkuStatsSortFields are the columns a listing may be sorted by
var SkuStatsSortFields = map[string]bool{
	"sku_code":                   true,
	"pending_ship_count":         true,
	"aftersale_pending_count":    true,
	"signed_count":               true,
	"signed_return_count":        true,
	"estimated_return_rate":      true,
	"in_transit_count":           true,
	"in_transit_return_estimate": true,
	"stock_gap":                  true,
	"quality_return_count":       true,
	"quality_return_rate":        true,
	"last_calculated_at":         true,
}

// ToDomain converts the model to a domain snapshot
func (m *SkuStatsModel) ToDomain() *skustats.SkuStats {
	return &skustats.SkuStats{
		ID:                      m.ID,
		SkuID:                   m.SkuID,
		SkuCode:                 m.SkuCode,
		SkuName:                 m.SkuName,
		ProductName:             m.ProductName,
		PendingShipCount:        m.PendingShipCount,
		AfterSalePendingCount:   m.AfterSalePendingCount,
		SignedCount:             m.SignedCount,
		SignedReturnCount:       m.SignedReturnCount,
		EstimatedReturnRate:     m.EstimatedReturnRate,
		InTransitCount:          m.InTransitCount,
		InTransitReturnEstimate: m.InTransitReturnEstimate,
		StockGap:                m.StockGap,
		QualityReturnCount:      m.QualityReturnCount,
		QualityReturnRate:       m.QualityReturnRate,
		IsRateManual:            m.IsRateManual,
		ImageURL:                m.ImageURL,
		LastCalculatedAt:        m.LastCalculatedAt,
		CreatedAt:               m.CreatedAt,
		UpdatedAt:               m.UpdatedAt,
	}
}

// SkuStatsModelFromDomain converts a domain snapshot to the model
func SkuStatsModelFromDomain(s *skustats.SkuStats) *SkuStatsModel {
	return &SkuStatsModel{
		ID:                      s.ID,
		SkuID:                   s.SkuID,
		SkuCode:                 s.SkuCode,
		SkuName:                 s.SkuName,
		ProductName:             s.ProductName,
		PendingShipCount:        s.PendingShipCount,
		AfterSalePendingCount:   s.AfterSalePendingCount,
		SignedCount:             s.SignedCount,
		SignedReturnCount:       s.SignedReturnCount,
		EstimatedReturnRate:     s.EstimatedReturnRate,
		InTransitCount:          s.InTransitCount,
		InTransitReturnEstimate: s.InTransitReturnEstimate,
		StockGap:                s.StockGap,
		QualityReturnCount:      s.QualityReturnCount,
		QualityReturnRate:       s.QualityReturnRate,
		IsRateManual:            s.IsRateManual,
		ImageURL:                s.ImageURL,
		LastCalculatedAt:        s.LastCalculatedAt,
		CreatedAt:               s.CreatedAt,
		UpdatedAt:               s.UpdatedAt,
	}
}
