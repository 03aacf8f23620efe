package handler

import (
	"context"
	"errors"
	"mime/multipart"
	"net/http"

	"github.com/flowstart/douyin-web/internal/application/queue"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Multipart field names of the upload endpoints
const (
	formFile           = "file"
	formOrdersFile     = "orders_file"
	formAfterSalesFile = "aftersales_file"
)

// ImportQueue is the part of the job queue the upload API uses
type ImportQueue interface {
	EnqueueUpload(ctx context.Context, jobType importjob.JobType, orders, afterSales *queue.Upload) (*importjob.Job, error)
	GetTaskStatus(ctx context.Context, taskID string) (*importjob.Task, error)
	RecentTasks(ctx context.Context) ([]*importjob.Task, error)
}

var _ ImportQueue = (*queue.Service)(nil)

// UploadHandler accepts order and after-sale exports and reports task status
type UploadHandler struct {
	BaseHandler
	queue ImportQueue
}

// NewUploadHandler creates an UploadHandler
func NewUploadHandler(q ImportQueue) *UploadHandler {
	return &UploadHandler{queue: q}
}

// UploadOrders handles POST /upload/orders
func (h *UploadHandler) UploadOrders(c *gin.Context) {
	h.enqueue(c, importjob.JobTypeOrders, formFile, "")
}

// UploadAfterSales handles POST /upload/aftersales
func (h *UploadHandler) UploadAfterSales(c *gin.Context) {
	h.enqueue(c, importjob.JobTypeAfterSales, "", formFile)
}

// UploadAll handles POST /upload/all with both exports in one request
func (h *UploadHandler) UploadAll(c *gin.Context) {
	h.enqueue(c, importjob.JobTypeAll, formOrdersFile, formAfterSalesFile)
}

func (h *UploadHandler) enqueue(c *gin.Context, jobType importjob.JobType, ordersField, afterSalesField string) {
	var (
		orders, afterSales *queue.Upload
		closers            []multipart.File
	)
	defer func() {
		for _, f := range closers {
			_ = f.Close()
		}
	}()

	open := func(field string) (*queue.Upload, bool) {
		if field == "" {
			return nil, true
		}
		file, header, err := c.Request.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				// a missing part is reported by the queue with the right message
				return nil, true
			}
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodePayloadTooLarge, "Uploaded file exceeds the size limit")
				return nil, false
			}
			h.BadRequest(c, "Invalid multipart form: "+err.Error())
			return nil, false
		}
		closers = append(closers, file)
		return &queue.Upload{Filename: header.Filename, Content: file}, true
	}

	var ok bool
	if orders, ok = open(ordersField); !ok {
		return
	}
	if afterSales, ok = open(afterSalesField); !ok {
		return
	}

	job, err := h.queue.EnqueueUpload(c.Request.Context(), jobType, orders, afterSales)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Accepted(c, EnqueuedResponse{
		TaskID:  job.TaskID,
		Status:  string(job.Status),
		Message: "文件已上传，正在后台处理",
	})
}

// GetTask handles GET /upload/tasks/:task_id
func (h *UploadHandler) GetTask(c *gin.Context) {
	task, err := h.queue.GetTaskStatus(c.Request.Context(), c.Param("task_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, toTaskResponse(task))
}

// ListTasks handles GET /upload/tasks
func (h *UploadHandler) ListTasks(c *gin.Context) {
	tasks, err := h.queue.RecentTasks(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items := make([]TaskResponse, len(tasks))
	for i, t := range tasks {
		items[i] = toTaskResponse(t)
	}
	h.Success(c, items)
}
