package handler

import (
	"context"
	"time"

	"github.com/flowstart/douyin-web/internal/application/stats"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/gin-gonic/gin"
)

// StatsService is the part of the aggregation engine the API uses
type StatsService interface {
	Window(startDate, endDate *time.Time) skustats.Window
	RefreshWindow(ctx context.Context, w skustats.Window) (int, error)
	List(ctx context.Context, q stats.ListQuery) (*stats.ListResult, error)
	UpdateReturnRate(ctx context.Context, skuCode string, rate float64) (*skustats.SkuStats, error)
	Provinces(ctx context.Context, startDate, endDate *time.Time, skuCode string) ([]skustats.ProvinceReturn, error)
	Summary(ctx context.Context) (*skustats.Summary, error)
}

var _ StatsService = (*stats.Engine)(nil)

// StatsHandler serves the SKU statistics endpoints
type StatsHandler struct {
	BaseHandler
	engine StatsService
}

// NewStatsHandler creates a StatsHandler
func NewStatsHandler(engine StatsService) *StatsHandler {
	return &StatsHandler{engine: engine}
}

// Calculate handles POST /stats/calculate. The body is optional; without
// dates the default trailing window is used.
func (h *StatsHandler) Calculate(c *gin.Context) {
	var req CalculateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	n, err := h.engine.RefreshWindow(c.Request.Context(), h.engine.Window(start, end))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"count": n, "message": "统计计算完成"})
}

// ListSkus handles GET /stats/skus
func (h *StatsHandler) ListSkus(c *gin.Context) {
	var q SkuStatsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	start, end, err := parseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	res, err := h.engine.List(c.Request.Context(), stats.ListQuery{
		ListFilter: skustats.ListFilter{
			Keyword:   q.Keyword,
			SortBy:    q.SortBy,
			SortOrder: q.SortOrder,
			TopN:      q.TopN,
			Page:      q.Page,
			PageSize:  q.PageSize,
		},
		StartDate: start,
		EndDate:   end,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]SkuStatsResponse, len(res.Items))
	for i, s := range res.Items {
		items[i] = toSkuStatsResponse(s)
	}
	h.Success(c, SkuStatsListResponse{Total: res.Total, Items: items, IsRealtime: res.IsRealtime})
}

// UpdateReturnRate handles PUT /stats/skus/:sku_code/return-rate
func (h *StatsHandler) UpdateReturnRate(c *gin.Context) {
	var req ReturnRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	s, err := h.engine.UpdateReturnRate(c.Request.Context(), c.Param("sku_code"), *req.Rate)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toSkuStatsResponse(s))
}

// Provinces handles GET /stats/provinces
func (h *StatsHandler) Provinces(c *gin.Context) {
	var q struct {
		StartDate string `form:"start_date" binding:"omitempty,datetime=2006-01-02"`
		EndDate   string `form:"end_date" binding:"omitempty,datetime=2006-01-02"`
		SkuCode   string `form:"sku_code"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	start, end, err := parseDateRange(q.StartDate, q.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	rows, err := h.engine.Provinces(c.Request.Context(), start, end, q.SkuCode)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if rows == nil {
		rows = []skustats.ProvinceReturn{}
	}
	h.Success(c, rows)
}

// Summary handles GET /stats/summary
func (h *StatsHandler) Summary(c *gin.Context) {
	sum, err := h.engine.Summary(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, sum)
}
