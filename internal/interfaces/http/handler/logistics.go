package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/flowstart/douyin-web/internal/application/reconcile"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/flowstart/douyin-web/internal/infrastructure/logistics"
	"github.com/gin-gonic/gin"
)

// ScanService starts logistics scans and reports on them
type ScanService interface {
	Start(ctx context.Context, limit int) (*reconcile.StartResult, error)
	Progress(ctx context.Context, taskID string) (*scan.Progress, error)
	Overview(ctx context.Context) (*reconcile.Overview, error)
}

var _ ScanService = (*reconcile.Scanner)(nil)

// TrackingQuerier runs a live KD100 lookup
type TrackingQuerier interface {
	Query(ctx context.Context, creds setting.KD100Credentials, trackingNumber, carrier string) (*logistics.QueryResponse, error)
	ParseStatus(resp *logistics.QueryResponse) *order.TrackingResult
}

var _ TrackingQuerier = (*logistics.KD100Client)(nil)

// SettingsStore reads and writes system settings
type SettingsStore interface {
	setting.Repository
	SetMany(ctx context.Context, values map[string]string) error
}

// LogisticsHandler serves the logistics reconciliation endpoints
type LogisticsHandler struct {
	BaseHandler
	scanner  ScanService
	kd100    TrackingQuerier
	settings SettingsStore
}

// NewLogisticsHandler creates a LogisticsHandler
func NewLogisticsHandler(scanner ScanService, kd100 TrackingQuerier, settings SettingsStore) *LogisticsHandler {
	return &LogisticsHandler{scanner: scanner, kd100: kd100, settings: settings}
}

// ScanRequest starts a scan. Limit 0 checks every eligible order.
type ScanRequest struct {
	Limit int `json:"limit" form:"limit" binding:"omitempty,min=0"`
}

// LogisticsConfigResponse is the logistics settings view. The KD100 key is masked.
type LogisticsConfigResponse struct {
	QueryIntervalMinutes int    `json:"query_interval_minutes"`
	KD100Customer        string `json:"kd100_customer"`
	KD100Key             string `json:"kd100_key"`
	KD100Configured      bool   `json:"kd100_configured"`
}

// UpdateLogisticsConfigRequest changes logistics settings. Absent fields are kept.
type UpdateLogisticsConfigRequest struct {
	QueryIntervalMinutes *int    `json:"query_interval_minutes" binding:"omitempty,min=1,max=10080"`
	KD100Customer        *string `json:"kd100_customer"`
	KD100Key             *string `json:"kd100_key"`
}

// TrackingStatusResponse is the parsed KD100 state of one parcel
type TrackingStatusResponse struct {
	IsSigned      bool       `json:"is_signed"`
	State         *int       `json:"state"`
	Status        string     `json:"status"`
	StatusDesc    string     `json:"status_desc"`
	LatestTime    *time.Time `json:"latest_time"`
	LatestContext string     `json:"latest_context"`
	TrackCount    int        `json:"track_count"`
}

// StartScan handles POST /logistics/scan. The limit may come as JSON body or query.
func (h *LogisticsHandler) StartScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	res, err := h.scanner.Start(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if res.TaskID == "" {
		h.Success(c, res)
		return
	}
	h.Accepted(c, res)
}

// ScanProgress handles GET /logistics/scan/:task_id
func (h *LogisticsHandler) ScanProgress(c *gin.Context) {
	p, err := h.scanner.Progress(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, p)
}

// Stats handles GET /logistics/stats
func (h *LogisticsHandler) Stats(c *gin.Context) {
	ov, err := h.scanner.Overview(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ov)
}

// GetConfig handles GET /logistics/config
func (h *LogisticsHandler) GetConfig(c *gin.Context) {
	ctx := c.Request.Context()
	interval, err := setting.LogisticsInterval(ctx, h.settings, setting.DefaultLogisticsInterval)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	creds, err := setting.LoadKD100Credentials(ctx, h.settings)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, LogisticsConfigResponse{
		QueryIntervalMinutes: interval,
		KD100Customer:        creds.Customer,
		KD100Key:             maskSecret(creds.Key),
		KD100Configured:      creds.IsComplete(),
	})
}

// UpdateConfig handles PUT /logistics/config
func (h *LogisticsHandler) UpdateConfig(c *gin.Context) {
	var req UpdateLogisticsConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	values := map[string]string{}
	if req.QueryIntervalMinutes != nil {
		values[setting.KeyLogisticsInterval] = strconv.Itoa(*req.QueryIntervalMinutes)
	}
	if req.KD100Customer != nil {
		values[setting.KeyKD100Customer] = strings.TrimSpace(*req.KD100Customer)
	}
	// the masked key echoed back by the dashboard is not a new key
	if req.KD100Key != nil && !strings.Contains(*req.KD100Key, "*") {
		values[setting.KeyKD100Key] = strings.TrimSpace(*req.KD100Key)
	}
	if len(values) > 0 {
		if err := h.settings.SetMany(c.Request.Context(), values); err != nil {
			h.HandleError(c, err)
			return
		}
	}
	h.GetConfig(c)
}

// Query handles GET /logistics/query/:tracking_number?company_name=
func (h *LogisticsHandler) Query(c *gin.Context) {
	ctx := c.Request.Context()
	trackingNumber := strings.TrimSpace(c.Param("tracking_number"))
	company := c.Query("company_name")
	if trackingNumber == "" {
		h.BadRequest(c, "tracking_number is required")
		return
	}

	creds, err := setting.LoadKD100Credentials(ctx, h.settings)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if !creds.IsComplete() {
		h.HandleError(c, reconcile.ErrNotConfigured)
		return
	}

	// a rejected query still carries the KD100 body, which is shown as is
	resp, err := h.kd100.Query(ctx, creds, trackingNumber, company)
	if err != nil && !errors.Is(err, logistics.ErrKD100Rejected) {
		if errors.Is(err, logistics.ErrKD100Unavailable) {
			h.ServiceUnavailable(c, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}
	parsed := h.kd100.ParseStatus(resp)
	h.Success(c, gin.H{
		"tracking_number": trackingNumber,
		"company_name":    company,
		"raw_result":      resp.Raw,
		"parsed_status": TrackingStatusResponse{
			IsSigned:      parsed.IsSigned,
			State:         parsed.State,
			Status:        parsed.Status,
			StatusDesc:    parsed.StatusDesc,
			LatestTime:    parsed.LatestTime,
			LatestContext: parsed.LatestContext,
			TrackCount:    parsed.TrackCount,
		},
	})
}

// maskSecret keeps the first and last four characters
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + strings.Repeat("*", len(s)-8) + s[len(s)-4:]
}
