package handler

import (
	"time"

	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
)

// SkuStatsResponse is one SKU snapshot
type SkuStatsResponse struct {
	SkuID                   string     `json:"sku_id"`
	SkuCode                 string     `json:"sku_code"`
	SkuName                 string     `json:"sku_name"`
	ProductName             string     `json:"product_name"`
	PendingShipCount        int64      `json:"pending_ship_count"`
	AfterSalePendingCount   int64      `json:"aftersale_pending_count"`
	SignedCount             int64      `json:"signed_count"`
	SignedReturnCount       int64      `json:"signed_return_count"`
	EstimatedReturnRate     float64    `json:"estimated_return_rate"`
	InTransitCount          int64      `json:"in_transit_count"`
	InTransitReturnEstimate int64      `json:"in_transit_return_estimate"`
	StockGap                int64      `json:"stock_gap"`
	QualityReturnCount      int64      `json:"quality_return_count"`
	QualityReturnRate       float64    `json:"quality_return_rate"`
	IsRateManual            bool       `json:"is_rate_manual"`
	ImageURL                string     `json:"image_url,omitempty"`
	LastCalculatedAt        *time.Time `json:"last_calculated_at"`
}

// SkuStatsListResponse is a page of snapshots
type SkuStatsListResponse struct {
	Total      int64              `json:"total"`
	Items      []SkuStatsResponse `json:"items"`
	IsRealtime bool               `json:"is_realtime"`
}

// SkuStatsQuery holds the SKU listing parameters
type SkuStatsQuery struct {
	Keyword   string `form:"keyword"`
	SortBy    string `form:"sort_by"`
	SortOrder string `form:"sort_order" binding:"omitempty,oneof=asc desc"`
	TopN      int    `form:"top_n" binding:"omitempty,min=1"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	PageSize  int    `form:"page_size" binding:"omitempty,min=1,max=500"`
	StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

// ReturnRateRequest sets a manual return rate
type ReturnRateRequest struct {
	Rate *float64 `json:"rate" binding:"required,gte=0,lte=1"`
}

// CalculateRequest bounds a recalculation
type CalculateRequest struct {
	StartDate string `json:"start_date" binding:"omitempty,datetime=2006-01-02"`
	EndDate   string `json:"end_date" binding:"omitempty,datetime=2006-01-02"`
}

func toSkuStatsResponse(s *skustats.SkuStats) SkuStatsResponse {
	return SkuStatsResponse{
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
	}
}

// TaskResponse is the pollable status of an import or sync task
type TaskResponse struct {
	TaskID         string              `json:"task_id"`
	Type           string              `json:"type"`
	Status         string              `json:"status"`
	Progress       string              `json:"progress"`
	Filename       string              `json:"filename,omitempty"`
	OrderStats     *importjob.Counters `json:"order_stats,omitempty"`
	AfterSaleStats *importjob.Counters `json:"aftersale_stats,omitempty"`
	SkuStatsCount  int                 `json:"sku_stats_count"`
	Error          string              `json:"error,omitempty"`
	StartedAt      time.Time           `json:"started_at"`
	CompletedAt    *time.Time          `json:"completed_at,omitempty"`
}

func toTaskResponse(t *importjob.Task) TaskResponse {
	return TaskResponse{
		TaskID:         t.TaskID,
		Type:           string(t.Type),
		Status:         string(t.Status),
		Progress:       t.Progress,
		Filename:       t.Filename,
		OrderStats:     t.OrderStats,
		AfterSaleStats: t.AfterSaleStats,
		SkuStatsCount:  t.SkuStatsCount,
		Error:          t.Error,
		StartedAt:      t.StartedAt,
		CompletedAt:    t.CompletedAt,
	}
}

// EnqueuedResponse acknowledges a queued job
type EnqueuedResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}
