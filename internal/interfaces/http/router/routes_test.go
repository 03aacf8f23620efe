package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/flowstart/douyin-web/internal/application/platformsync"
	"github.com/flowstart/douyin-web/internal/application/queue"
	"github.com/flowstart/douyin-web/internal/application/reconcile"
	"github.com/flowstart/douyin-web/internal/application/stats"
	"github.com/flowstart/douyin-web/internal/domain/importjob"
	"github.com/flowstart/douyin-web/internal/domain/order"
	"github.com/flowstart/douyin-web/internal/domain/scan"
	"github.com/flowstart/douyin-web/internal/domain/setting"
	"github.com/flowstart/douyin-web/internal/domain/shared"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/flowstart/douyin-web/internal/infrastructure/logger"
	"github.com/flowstart/douyin-web/internal/infrastructure/logistics"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/flowstart/douyin-web/internal/interfaces/http/handler"
	"github.com/flowstart/douyin-web/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubBackend answers every service interface with empty results
type stubBackend struct{}

func (stubBackend) Ping(context.Context) error   { return nil }
func (stubBackend) Stats() persistence.PoolStats { return persistence.PoolStats{} }

func (stubBackend) EnqueueUpload(context.Context, importjob.JobType, *queue.Upload, *queue.Upload) (*importjob.Job, error) {
	return &importjob.Job{TaskID: "orders_1", Status: importjob.StatusQueued}, nil
}
func (stubBackend) GetTaskStatus(context.Context, string) (*importjob.Task, error) {
	return nil, shared.ErrNotFound
}
func (stubBackend) RecentTasks(context.Context) ([]*importjob.Task, error) { return nil, nil }

func (stubBackend) Window(_, end *time.Time) skustats.Window { return skustats.Window{End: end} }
func (stubBackend) RefreshWindow(context.Context, skustats.Window) (int, error) {
	return 0, nil
}
func (stubBackend) List(context.Context, stats.ListQuery) (*stats.ListResult, error) {
	return &stats.ListResult{}, nil
}
func (stubBackend) UpdateReturnRate(context.Context, string, float64) (*skustats.SkuStats, error) {
	return nil, shared.ErrNotFound
}
func (stubBackend) Provinces(context.Context, *time.Time, *time.Time, string) ([]skustats.ProvinceReturn, error) {
	return nil, nil
}
func (stubBackend) Summary(context.Context) (*skustats.Summary, error) {
	return &skustats.Summary{}, nil
}

func (stubBackend) Start(context.Context, int) (*reconcile.StartResult, error) {
	return &reconcile.StartResult{}, nil
}
func (stubBackend) Progress(context.Context, string) (*scan.Progress, error) {
	return nil, shared.ErrNotFound
}
func (stubBackend) Overview(context.Context) (*reconcile.Overview, error) {
	return &reconcile.Overview{}, nil
}

func (stubBackend) Query(context.Context, setting.KD100Credentials, string, string) (*logistics.QueryResponse, error) {
	return &logistics.QueryResponse{Message: "ok"}, nil
}
func (stubBackend) ParseStatus(*logistics.QueryResponse) *order.TrackingResult {
	return &order.TrackingResult{}
}

func (stubBackend) SyncEnabled() bool { return false }
func (stubBackend) EnqueueSync(context.Context, platformsync.Scope, time.Time, time.Time) (*importjob.Job, error) {
	return nil, shared.ErrUnavailable
}

type stubOrders struct{}

func (stubOrders) List(context.Context, order.ListFilter) ([]*order.Order, int64, error) {
	return nil, 0, nil
}
func (stubOrders) FindByOrderID(context.Context, string) (*order.Order, []*order.Line, error) {
	return nil, nil, shared.ErrNotFound
}

type stubSettings struct{}

func (stubSettings) Get(context.Context, string) (string, bool, error)      { return "", false, nil }
func (stubSettings) Set(context.Context, string, string, string) error      { return nil }
func (stubSettings) SetMany(context.Context, map[string]string) error       { return nil }
func (stubSettings) List(context.Context) ([]persistence.ConfigItem, error) { return nil, nil }

func newTestEngine(limiter *middleware.RateLimiter) *gin.Engine {
	b := stubBackend{}
	return New(Options{
		CORSOrigins:   []string{"https://dash.example.com"},
		MaxBodySize:   64,
		MaxUploadSize: 4096,
		QueryLimiter:  limiter,
	}, Handlers{
		Health:    handler.NewHealthHandler(b, "test"),
		Upload:    handler.NewUploadHandler(b),
		Stats:     handler.NewStatsHandler(b),
		Orders:    handler.NewOrderHandler(stubOrders{}),
		Logistics: handler.NewLogisticsHandler(b, b, stubSettings{}),
		Config:    handler.NewConfigHandler(stubSettings{}),
		Sync:      handler.NewSyncHandler(b),
	})
}

func TestNew_Routes(t *testing.T) {
	engine := newTestEngine(nil)

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/api/v1/upload/tasks", http.StatusOK},
		{http.MethodGet, "/api/v1/upload/tasks/unknown", http.StatusNotFound},
		{http.MethodPost, "/api/v1/stats/calculate", http.StatusOK},
		{http.MethodGet, "/api/v1/stats/skus", http.StatusOK},
		{http.MethodGet, "/api/v1/stats/provinces", http.StatusOK},
		{http.MethodGet, "/api/v1/stats/summary", http.StatusOK},
		{http.MethodGet, "/api/v1/orders", http.StatusOK},
		{http.MethodGet, "/api/v1/orders/123", http.StatusNotFound},
		{http.MethodGet, "/api/v1/logistics/stats", http.StatusOK},
		{http.MethodGet, "/api/v1/logistics/config", http.StatusOK},
		{http.MethodGet, "/api/v1/logistics/scan/logistics_1", http.StatusNotFound},
		{http.MethodGet, "/api/v1/logistics/query/SF1", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/config", http.StatusOK},
		{http.MethodGet, "/api/v1/config/theme", http.StatusNotFound},
		{http.MethodPost, "/api/v1/sync/orders", http.StatusServiceUnavailable},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := serve(engine, tt.method, tt.path)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestNew_CommonHeaders(t *testing.T) {
	engine := newTestEngine(nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(logger.RequestIDHeader, "req-42")
	req.Header.Set("Origin", "https://dash.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, "req-42", w.Header().Get(logger.RequestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(engine, http.MethodGet, "/health")
	assert.NotEmpty(t, w.Header().Get(logger.RequestIDHeader))

	w = serve(engine, http.MethodOptions, "/api/v1/stats/skus")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestNew_BodyLimits(t *testing.T) {
	engine := newTestEngine(nil)

	body := `{"start_date":"2024-03-01","end_date":"2024-03-31","padding":"` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/stats/calculate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// the same size is fine for uploads, which have their own limit
	req = httptest.NewRequest(http.MethodPost, "/api/v1/upload/orders", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNew_QueryRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(1, time.Minute)
	defer limiter.Close()
	engine := newTestEngine(limiter)

	first := serve(engine, http.MethodGet, "/api/v1/logistics/query/SF1")
	require.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := serve(engine, http.MethodGet, "/api/v1/logistics/query/SF2")
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))

	// other logistics endpoints are not limited
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/logistics/stats").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/logistics/stats").Code)
}
