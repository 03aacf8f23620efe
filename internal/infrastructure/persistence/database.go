package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/flowstart/douyin-web/internal/infrastructure/config"
	"github.com/flowstart/douyin-web/internal/infrastructure/persistence/models"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// sqlite allows a single writer; the busy timeout covers short overlaps
// between the import worker and the scanner.
const sqliteParams = "?_busy_timeout=5000&_journal_mode=WAL"

// Database is the shared GORM handle plus its connection pool.
type Database struct {
	DB   *gorm.DB
	pool *sql.DB
}

// NewDatabase opens and pings the database described by cfg. A nil logger
// silences SQL logging.
func NewDatabase(cfg *config.DatabaseConfig, logger gormlogger.Interface) (*Database, error) {
	if logger == nil {
		logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger,
		SkipDefaultTransaction: true,
		PrepareStmt:            cfg.Driver == "postgres",
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", cfg.Driver, err)
	}
	d, err := wrap(db)
	if err != nil {
		return nil, err
	}
	d.configurePool(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Ping(ctx); err != nil {
		_ = d.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func wrap(db *gorm.DB) (*Database, error) {
	pool, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database pool: %w", err)
	}
	return &Database{DB: db, pool: pool}, nil
}

func (d *Database) configurePool(cfg *config.DatabaseConfig) {
	if cfg.Driver == "sqlite" {
		d.pool.SetMaxOpenConns(1)
		return
	}
	d.pool.SetMaxOpenConns(cfg.MaxOpenConns)
	d.pool.SetMaxIdleConns(cfg.MaxIdleConns)
	d.pool.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	d.pool.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "postgres", "":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		return sqlite.Open(cfg.Path + sqliteParams), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// AutoMigrate creates or updates every table. PostgreSQL runs the SQL
// migrations instead; this serves sqlite and tests.
func (d *Database) AutoMigrate() error {
	return d.DB.AutoMigrate(models.All()...)
}

func (d *Database) Ping(ctx context.Context) error {
	return d.pool.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.pool.Close()
}

// PoolStats is the pool snapshot reported by the health endpoint.
type PoolStats struct {
	MaxOpen  int           `json:"max_open_connections"`
	Open     int           `json:"open_connections"`
	InUse    int           `json:"in_use"`
	Idle     int           `json:"idle"`
	Waits    int64         `json:"wait_count"`
	WaitTime time.Duration `json:"wait_duration"`
}

func (d *Database) Stats() PoolStats {
	s := d.pool.Stats()
	return PoolStats{
		MaxOpen:  s.MaxOpenConnections,
		Open:     s.OpenConnections,
		InUse:    s.InUse,
		Idle:     s.Idle,
		Waits:    s.WaitCount,
		WaitTime: s.WaitDuration,
	}
}
