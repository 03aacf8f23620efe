package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flowstart/douyin-web/internal/application/importer"
	"github.com/flowstart/douyin-web/internal/application/platformsync"
	"github.com/flowstart/douyin-web/internal/application/queue"
	"github.com/flowstart/douyin-web/internal/application/reconcile"
	"github.com/flowstart/douyin-web/internal/application/stats"
	"github.com/flowstart/douyin-web/internal/domain/skustats"
	"github.com/flowstart/douyin-web/internal/infrastructure/cache"
	"github.com/flowstart/douyin-web/internal/infrastructure/config"
	"github.com/flowstart/douyin-web/internal/infrastructure/ecommerce"
	"github.com/flowstart/douyin-web/internal/infrastructure/logger"
	"github.com/flowstart/douyin-web/internal/infrastructure/logistics"
	"github.com/flowstart/douyin-web/internal/infrastructure/migration"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence"
	"github.com/flowstart/douyin-web/internal/infrastructure/storage"
	"github.com/flowstart/douyin-web/internal/infrastructure/telemetry"
	"github.com/flowstart/douyin-web/internal/interfaces/http/handler"
	"github.com/flowstart/douyin-web/internal/interfaces/http/middleware"
	"github.com/flowstart/douyin-web/internal/interfaces/http/router"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Telemetry providers fall back to no-ops when disabled
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	log = providers.Logs.Bridge(log, zapcore.InfoLevel)
	meter := providers.Meter.Meter("douyin-web")

	log.Info("Starting douyin-web",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	db, err := openDatabase(cfg, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully", zap.String("driver", cfg.Database.Driver))

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		DBSystem:        cfg.Database.Driver,
		SlowQueryThresh: cfg.Database.SlowThreshold,
	}, log); err != nil {
		log.Warn("Database tracing disabled", zap.Error(err))
	}
	dbMetrics, err := telemetry.NewDBMetrics(meter, telemetry.DBMetricsConfig{
		SlowQueryThreshold: cfg.Database.SlowThreshold,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database metrics", zap.Error(err))
	}
	if err := dbMetrics.Instrument(db.DB); err != nil {
		log.Warn("Database metrics disabled", zap.Error(err))
	}
	defer dbMetrics.Stop()

	pipelineMetrics, err := telemetry.NewPipelineMetrics(meter, log)
	if err != nil {
		log.Fatal("Failed to create pipeline metrics", zap.Error(err))
	}

	// Repositories
	orderStore := persistence.NewGormOrderStore(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	skuStatsRepo := persistence.NewGormSkuStatsRepository(db.DB)
	statsQuery := persistence.NewGormStatsQuery(db.DB)
	jobRepo := persistence.NewGormImportJobRepository(db.DB)
	taskRepo := persistence.NewGormImportTaskRepository(db.DB)
	settingsRepo := persistence.NewGormSystemConfigRepository(db.DB)

	if err := settingsRepo.SeedDefaults(ctx, persistence.DefaultSettings()); err != nil {
		log.Fatal("Failed to seed default settings", zap.Error(err))
	}

	// Application services
	imp := importer.New(orderStore, log, importer.WithBatchSize(cfg.Import.BatchSize))

	statsEngine := stats.NewEngine(statsQuery, skuStatsRepo, log,
		stats.WithPolicy(skustats.Policy{
			MinSample:         int64(cfg.Stats.MinSample),
			DefaultReturnRate: cfg.Stats.DefaultReturnRate,
		}),
		stats.WithWindowDays(cfg.Stats.WindowDays),
		stats.WithRecorder(pipelineMetrics),
	)

	files, err := openFileStore(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize file storage", zap.Error(err))
	}

	queueOpts := []queue.Option{
		queue.WithRecorder(pipelineMetrics),
		queue.WithMaxTasks(cfg.Import.MaxTasks),
	}
	if cfg.Douyin.Enabled {
		syncer, err := newPlatformSync(cfg, imp, log)
		if err != nil {
			log.Fatal("Failed to initialize Douyin sync", zap.Error(err))
		}
		queueOpts = append(queueOpts, queue.WithSyncer(syncer))
	}
	queueSvc := queue.NewService(jobRepo, taskRepo, files, imp, statsEngine, log, queueOpts...)

	worker := queue.NewWorker(queueSvc, queue.WorkerConfig{
		PollInterval: cfg.Import.PollInterval,
		ErrorBackoff: cfg.Import.ErrorBackoff,
	}, log)
	if err := worker.Start(ctx); err != nil {
		log.Fatal("Failed to start import worker", zap.Error(err))
	}

	kd100Cfg := logistics.DefaultKD100Config()
	kd100Cfg.Endpoint = cfg.Logistics.KD100Endpoint
	kd100Cfg.TimeoutSeconds = int(cfg.Logistics.Timeout / time.Second)
	kd100 := logistics.NewKD100Client(kd100Cfg, log)

	registryOpts := []cache.ProgressRegistryFactoryOption{
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	}
	if cfg.Redis.ProgressTTL > 0 {
		registryOpts = append(registryOpts, cache.WithTTL(cfg.Redis.ProgressTTL))
	}
	registry, err := cache.NewProgressRegistryFactory(cfg.Redis, registryOpts...).Create()
	if err != nil {
		log.Fatal("Failed to create scan progress registry", zap.Error(err))
	}
	defer func() {
		if err := registry.Close(); err != nil {
			log.Error("Error closing progress registry", zap.Error(err))
		}
	}()

	scanner := reconcile.NewScanner(orderRepo, settingsRepo, kd100, statsEngine, registry, log,
		reconcile.WithBatchSize(cfg.Logistics.BatchSize),
		reconcile.WithDefaultInterval(cfg.Logistics.DefaultInterval),
		reconcile.WithRecorder(pipelineMetrics),
	)

	queryLimiter := middleware.NewRateLimiter(cfg.HTTP.QueryRateLimit, time.Minute)
	defer queryLimiter.Close()

	// HTTP
	engine := router.New(router.Options{
		Logger: log,
		Meter:  meter,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.TracingEnabled,
		},
		CORSOrigins:   cfg.HTTP.CORSOrigins,
		MaxBodySize:   cfg.HTTP.MaxBodySize,
		MaxUploadSize: cfg.HTTP.MaxUploadSize,
		QueryLimiter:  queryLimiter,
	}, router.Handlers{
		Health:    handler.NewHealthHandler(db, version),
		Upload:    handler.NewUploadHandler(queueSvc),
		Stats:     handler.NewStatsHandler(statsEngine),
		Orders:    handler.NewOrderHandler(orderRepo),
		Logistics: handler.NewLogisticsHandler(scanner, kd100, settingsRepo),
		Config:    handler.NewConfigHandler(settingsRepo),
		Sync:      handler.NewSyncHandler(queueSvc),
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	// the worker finishes its current job before the pool closes
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Warn("Import worker did not stop in time", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	stop()
	scanner.Wait()

	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown failed", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// openDatabase connects and brings the schema up to date: golang-migrate
// for PostgreSQL, AutoMigrate for a local sqlite file.
func openDatabase(cfg *config.Config, log *zap.Logger) (*persistence.Database, error) {
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Database.SlowThreshold))

	if cfg.Database.Driver == "postgres" {
		if err := migration.Apply(cfg.Database.DSN(), log); err != nil {
			return nil, err
		}
	}

	db, err := persistence.NewDatabase(&cfg.Database, gormLog)
	if err != nil {
		return nil, err
	}
	if cfg.Database.Driver != "postgres" {
		if err := db.AutoMigrate(); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func openFileStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (queue.FileStore, error) {
	if cfg.Storage.Driver == "s3" {
		s3, err := storage.NewS3FileStore(&cfg.Storage,
			storage.WithLogger(log),
			storage.WithKeyPrefix("uploads/"),
			storage.WithTempDir(cfg.Import.UploadDir),
		)
		if err != nil {
			return nil, err
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("Upload storage ready", zap.String("bucket", s3.Bucket()))
		return s3, nil
	}
	local, err := storage.NewLocalFileStore(cfg.Import.UploadDir)
	if err != nil {
		return nil, err
	}
	return local, nil
}

func newPlatformSync(cfg *config.Config, writer platformsync.Writer, log *zap.Logger) (*platformsync.Service, error) {
	adapter, err := ecommerce.NewDouyinAdapter(ecommerce.DouyinConfigFrom(cfg.Douyin), log)
	if err != nil {
		return nil, err
	}
	return platformsync.NewService(adapter, writer, log, platformsync.WithPageSize(cfg.Douyin.PageSize)), nil
}
