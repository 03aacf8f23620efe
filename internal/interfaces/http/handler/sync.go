package handler

import (
	"context"
	"time"

	"github.com/flowstart/douyin-web/internal/application/platformsync"
	"github.com/flowstart/douyin-web/internal/application/queue"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SyncQueue enqueues platform pulls
type SyncQueue interface {
	SyncEnabled() bool
	EnqueueSync(ctx context.Context, scope platformsync.Scope, start, end time.Time) (*importjob.Job, error)
}

var _ SyncQueue = (*queue.Service)(nil)

// SyncHandler starts background pulls from the Douyin open platform
type SyncHandler struct {
	BaseHandler
	queue SyncQueue
	now   func() time.Time
}

// NewSyncHandler creates a SyncHandler
func NewSyncHandler(q SyncQueue) *SyncHandler {
	return &SyncHandler{queue: q, now: time.Now}
}

// SyncOrders handles POST /sync/orders
func (h *SyncHandler) SyncOrders(c *gin.Context) {
	h.enqueue(c, platformsync.ScopeOrders)
}

// SyncAfterSales handles POST /sync/aftersales
func (h *SyncHandler) SyncAfterSales(c *gin.Context) {
	h.enqueue(c, platformsync.ScopeAfterSales)
}

// SyncAll handles POST /sync/all
func (h *SyncHandler) SyncAll(c *gin.Context) {
	h.enqueue(c, platformsync.ScopeAll)
}

// enqueue resolves the window: end defaults to now, an end date covers
// its whole day, and start defaults to DefaultRange before end.
func (h *SyncHandler) enqueue(c *gin.Context, scope platformsync.Scope) {
	if !h.queue.SyncEnabled() {
		h.ServiceUnavailable(c, "抖店开放平台同步未启用")
		return
	}

	var req dto.DateRangeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}
	startDate, endDate, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	end := h.now()
	if endDate != nil {
		end = dto.EndOfDay(*endDate)
	}
	start := end.Add(-platformsync.DefaultRange)
	if startDate != nil {
		start = *startDate
	}

	job, err := h.queue.EnqueueSync(c.Request.Context(), scope, start, end)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, EnqueuedResponse{
		TaskID:  job.TaskID,
		Status:  string(job.Status),
		Message: "同步任务已创建，正在后台执行",
	})
}
