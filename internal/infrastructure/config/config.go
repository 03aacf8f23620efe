package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Import    ImportConfig
	Logistics LogisticsConfig
	Stats     StatsConfig
	Douyin    DouyinConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string // postgres or sqlite
	Path            string // sqlite file path
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	SlowThreshold   time.Duration
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool // share logistics scan progress through Redis
	Host     string
	Port     int
	Password string
	DB       int

	ProgressTTL time.Duration // how long scan snapshots stay pollable
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	MaxHeaderBytes  int
	MaxUploadSize   int64
	MaxBodySize     int64
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	QueryRateLimit  int // KD100 lookups per client per minute
}

// ImportConfig controls the file import queue
type ImportConfig struct {
	UploadDir    string
	BatchSize    int
	MaxTasks     int
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// LogisticsConfig controls the reconciliation scanner and the KD100 client
type LogisticsConfig struct {
	BatchSize       int
	DefaultInterval int // minutes
	KD100Endpoint   string
	Timeout         time.Duration
}

// StatsConfig holds the statistics window and return-rate policy
type StatsConfig struct {
	WindowDays        int
	MinSample         int
	DefaultReturnRate float64
}

// DouyinConfig holds the Douyin shop API credentials
type DouyinConfig struct {
	Enabled        bool
	AppKey         string
	AppSecret      string
	AccessToken    string
	ShopID         string
	Sandbox        bool
	TimeoutSeconds int
	PageSize       int
}

// StorageConfig selects where uploaded files are kept
type StorageConfig struct {
	Driver       string // local or s3
	Endpoint     string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Region       string
	UseSSL       bool
	UsePathStyle bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	MetricsEnabled    bool
	TracingEnabled    bool
	LogsEnabled       bool
	SamplingRatio     float64
	CollectorEndpoint string // OTEL Collector endpoint (e.g., "localhost:4317")
	ExportInterval    time.Duration
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with DOUYIN_ prefix (e.g., DOUYIN_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("DOUYIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Driver:          v.GetString("database.driver"),
			Path:            v.GetString("database.path"),
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			SlowThreshold:   v.GetDuration("database.slow_threshold"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),

			ProgressTTL: v.GetDuration("redis.progress_ttl"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:     v.GetDuration("http.read_timeout"),
			WriteTimeout:    v.GetDuration("http.write_timeout"),
			IdleTimeout:     v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:  v.GetInt("http.max_header_bytes"),
			MaxUploadSize:   v.GetInt64("http.max_upload_size"),
			MaxBodySize:     v.GetInt64("http.max_body_size"),
			ShutdownTimeout: v.GetDuration("http.shutdown_timeout"),
			CORSOrigins:     v.GetStringSlice("http.cors_origins"),
			QueryRateLimit:  v.GetInt("http.query_rate_limit"),
		},
		Import: ImportConfig{
			UploadDir:    v.GetString("import.upload_dir"),
			BatchSize:    v.GetInt("import.batch_size"),
			MaxTasks:     v.GetInt("import.max_tasks"),
			PollInterval: v.GetDuration("import.poll_interval"),
			ErrorBackoff: v.GetDuration("import.error_backoff"),
		},
		Logistics: LogisticsConfig{
			BatchSize:       v.GetInt("logistics.batch_size"),
			DefaultInterval: v.GetInt("logistics.default_interval_minutes"),
			KD100Endpoint:   v.GetString("logistics.kd100_endpoint"),
			Timeout:         v.GetDuration("logistics.timeout"),
		},
		Stats: StatsConfig{
			WindowDays:        v.GetInt("stats.window_days"),
			MinSample:         v.GetInt("stats.min_sample"),
			DefaultReturnRate: v.GetFloat64("stats.default_return_rate"),
		},
		Douyin: DouyinConfig{
			Enabled:        v.GetBool("douyin.enabled"),
			AppKey:         v.GetString("douyin.app_key"),
			AppSecret:      v.GetString("douyin.app_secret"),
			AccessToken:    v.GetString("douyin.access_token"),
			ShopID:         v.GetString("douyin.shop_id"),
			Sandbox:        v.GetBool("douyin.sandbox"),
			TimeoutSeconds: v.GetInt("douyin.timeout_seconds"),
			PageSize:       v.GetInt("douyin.page_size"),
		},
		Storage: StorageConfig{
			Driver:       v.GetString("storage.driver"),
			Endpoint:     v.GetString("storage.endpoint"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			Region:       v.GetString("storage.region"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			TracingEnabled:    v.GetBool("telemetry.tracing_enabled"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "douyin-web"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/douyin.db"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "douyin"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.SlowThreshold == 0 {
		cfg.Database.SlowThreshold = 500 * time.Millisecond
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 60 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 120 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxUploadSize == 0 {
		cfg.HTTP.MaxUploadSize = 100 << 20 // 100MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if len(cfg.HTTP.CORSOrigins) == 0 {
		cfg.HTTP.CORSOrigins = []string{"*"}
	}
	if cfg.HTTP.QueryRateLimit == 0 {
		cfg.HTTP.QueryRateLimit = 30
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Import.UploadDir == "" {
		cfg.Import.UploadDir = "uploads"
	}
	if cfg.Import.BatchSize == 0 {
		cfg.Import.BatchSize = 1000
	}
	if cfg.Import.MaxTasks == 0 {
		cfg.Import.MaxTasks = 15
	}
	if cfg.Import.PollInterval == 0 {
		cfg.Import.PollInterval = time.Second
	}
	if cfg.Import.ErrorBackoff == 0 {
		cfg.Import.ErrorBackoff = 5 * time.Second
	}
	if cfg.Logistics.BatchSize == 0 {
		cfg.Logistics.BatchSize = 500
	}
	if cfg.Logistics.DefaultInterval == 0 {
		cfg.Logistics.DefaultInterval = 35
	}
	if cfg.Logistics.KD100Endpoint == "" {
		cfg.Logistics.KD100Endpoint = "https://poll.kuaidi100.com/poll/query.do"
	}
	if cfg.Logistics.Timeout == 0 {
		cfg.Logistics.Timeout = 30 * time.Second
	}
	if cfg.Stats.WindowDays == 0 {
		cfg.Stats.WindowDays = 90
	}
	if cfg.Stats.MinSample == 0 {
		cfg.Stats.MinSample = 10
	}
	if cfg.Stats.DefaultReturnRate == 0 {
		cfg.Stats.DefaultReturnRate = 0.3
	}
	if cfg.Douyin.TimeoutSeconds == 0 {
		cfg.Douyin.TimeoutSeconds = 30
	}
	if cfg.Douyin.PageSize == 0 {
		cfg.Douyin.PageSize = 100
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "local"
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
	if cfg.Telemetry.SamplingRatio <= 0 || cfg.Telemetry.SamplingRatio > 1 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "douyin-web"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Import.BatchSize < 0 || c.Logistics.BatchSize < 0 {
		return fmt.Errorf("batch sizes cannot be negative")
	}
	if c.Stats.DefaultReturnRate < 0 || c.Stats.DefaultReturnRate > 1 {
		return fmt.Errorf("stats.default_return_rate must be between 0 and 1, got %f", c.Stats.DefaultReturnRate)
	}
	switch c.Storage.Driver {
	case "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required when storage.driver is s3")
		}
	default:
		return fmt.Errorf("storage.driver must be local or s3, got %q", c.Storage.Driver)
	}
	if c.Douyin.Enabled && (c.Douyin.AppKey == "" || c.Douyin.AppSecret == "") {
		return fmt.Errorf("douyin.app_key and douyin.app_secret are required when douyin.enabled is true")
	}

	if c.App.Env == "production" && c.Database.Driver == "postgres" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the Redis host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
