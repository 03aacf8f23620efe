package router

import (
	"github.com/flowstart/douyin-web/internal/infrastructure/logger"
	"github.com/flowstart/douyin-web/internal/interfaces/http/handler"
	"github.com/flowstart/douyin-web/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the endpoint groups served by the API
type Handlers struct {
	Health    *handler.HealthHandler
	Upload    *handler.UploadHandler
	Stats     *handler.StatsHandler
	Orders    *handler.OrderHandler
	Logistics *handler.LogisticsHandler
	Config    *handler.ConfigHandler
	Sync      *handler.SyncHandler
}

// Options configure the engine middleware stack
type Options struct {
	Logger         *zap.Logger
	Meter          metric.Meter // nil disables HTTP metrics
	Tracing        middleware.TracingConfig
	CORSOrigins    []string
	TrustedProxies []string
	MaxBodySize    int64
	MaxUploadSize  int64
	QueryLimiter   *middleware.RateLimiter // nil disables the KD100 lookup limit
}

// New builds the gin engine with the middleware stack and every route.
// JSON endpoints share MaxBodySize; the upload group allows MaxUploadSize.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(opts.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
			opts.Logger.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(logger.GinMiddleware(opts.Logger))
	engine.Use(logger.Recovery(opts.Logger))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(middleware.DefaultCORSConfig(opts.CORSOrigins)))
	engine.Use(middleware.Tracing(opts.Tracing)...)
	engine.Use(middleware.HTTPMetrics(opts.Meter, opts.Logger))

	engine.GET("/health", h.Health.Health)

	jsonLimit := middleware.BodyLimit(opts.MaxBodySize)

	r := NewRouter(engine, WithAPIVersion("v1"))

	upload := r.Group("/upload", middleware.BodyLimit(opts.MaxUploadSize))
	upload.POST("/orders", h.Upload.UploadOrders)
	upload.POST("/aftersales", h.Upload.UploadAfterSales)
	upload.POST("/all", h.Upload.UploadAll)
	upload.GET("/tasks", h.Upload.ListTasks)
	upload.GET("/tasks/:task_id", h.Upload.GetTask)

	stats := r.Group("/stats", jsonLimit)
	stats.POST("/calculate", h.Stats.Calculate)
	stats.GET("/skus", h.Stats.ListSkus)
	stats.PUT("/skus/:sku_code/return-rate", h.Stats.UpdateReturnRate)
	stats.GET("/provinces", h.Stats.Provinces)
	stats.GET("/summary", h.Stats.Summary)

	orders := r.Group("/orders")
	orders.GET("", h.Orders.List)
	orders.GET("/:order_id", h.Orders.Get)

	logistics := r.Group("/logistics", jsonLimit)
	logistics.POST("/scan", h.Logistics.StartScan)
	logistics.GET("/scan/:task_id", h.Logistics.ScanProgress)
	logistics.GET("/stats", h.Logistics.Stats)
	logistics.GET("/config", h.Logistics.GetConfig)
	logistics.PUT("/config", h.Logistics.UpdateConfig)
	if opts.QueryLimiter != nil {
		logistics.GET("/query/:tracking_number", middleware.RateLimit(opts.QueryLimiter), h.Logistics.Query)
	} else {
		logistics.GET("/query/:tracking_number", h.Logistics.Query)
	}

	cfg := r.Group("/config", jsonLimit)
	cfg.GET("", h.Config.List)
	cfg.POST("/batch", h.Config.Batch)
	cfg.GET("/:key", h.Config.Get)
	cfg.PUT("/:key", h.Config.Set)

	sync := r.Group("/sync", jsonLimit)
	sync.POST("/orders", h.Sync.SyncOrders)
	sync.POST("/aftersales", h.Sync.SyncAfterSales)
	sync.POST("/all", h.Sync.SyncAll)

	r.Setup()
	return engine
}
