package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// DatabaseProbe reports database reachability
type DatabaseProbe interface {
	Ping(ctx context.Context) error
	Stats() persistence.PoolStats
}

var _ DatabaseProbe = (*persistence.Database)(nil)

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	BaseHandler
	db      DatabaseProbe
	version string
	started time.Time
}

// NewHealthHandler creates a HealthHandler
func NewHealthHandler(db DatabaseProbe, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version, started: time.Now()}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string                 `json:"status"`
	Version  string                 `json:"version"`
	Uptime   string                 `json:"uptime"`
	Database string                 `json:"database"`
	Pool     *persistence.PoolStats `json:"pool,omitempty"`
}

// Health handles GET /health. An unreachable database answers 503.
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:   "healthy",
		Version:  h.version,
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Database: "up",
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		resp.Status = "unhealthy"
		resp.Database = "down"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	stats := h.db.Stats()
	resp.Pool = &stats
	h.Success(c, resp)
}
