package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/flowstart/douyin-web/migrations"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// engine is the part of *migrate.Migrate the Migrator drives.
type engine interface {
	Up() error
	Down() error
	Steps(n int) error
	Migrate(version uint) error
	Version() (uint, bool, error)
	Force(version int) error
	Drop() error
	Close() (error, error)
}

var _ engine = (*migrate.Migrate)(nil)

// Migrator applies the PostgreSQL schema with golang-migrate.
type Migrator struct {
	engine engine
	log    *zap.Logger
}

type Option func(*options)

type options struct {
	source fs.FS
}

// WithDir reads migrations from dir instead of the embedded set. An empty
// dir keeps the embedded set.
func WithDir(dir string) Option {
	return func(o *options) {
		if dir != "" {
			o.source = os.DirFS(dir)
		}
	}
}

func WithFS(fsys fs.FS) Option {
	return func(o *options) { o.source = fsys }
}

// New wraps an open PostgreSQL connection. Close closes db too.
func New(db *sql.DB, log *zap.Logger, opts ...Option) (*Migrator, error) {
	o := options{source: migrations.FS}
	for _, opt := range opts {
		opt(&o)
	}

	src, err := iofs.New(o.source, ".")
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance: %w", err)
	}
	return newMigrator(m, log), nil
}

func newMigrator(e engine, log *zap.Logger) *Migrator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Migrator{engine: e, log: log.Named("migrate")}
}

// Apply brings the schema at dsn up to date over its own connection, so the
// application pool survives the Migrator closing its database.
func Apply(dsn string, log *zap.Logger, opts ...Option) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	m, err := New(db, log, opts...)
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()
	return m.Up()
}

// run executes one schema change. ErrNoChange is success; otherwise the
// resulting version is logged.
func (m *Migrator) run(action string, fn func() error, fields ...zap.Field) error {
	m.log.Info("Migrating", append([]zap.Field{zap.String("action", action)}, fields...)...)
	err := fn()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("Schema unchanged", zap.String("action", action))
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", action, err)
	}
	version, dirty, err := m.Version()
	if err != nil {
		return err
	}
	m.log.Info("Migration finished", zap.String("action", action), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Up applies every pending migration.
func (m *Migrator) Up() error { return m.run("up", m.engine.Up) }

// Down rolls every migration back.
func (m *Migrator) Down() error { return m.run("down", m.engine.Down) }

// Steps applies n migrations; a negative n rolls back.
func (m *Migrator) Steps(n int) error {
	return m.run("step", func() error { return m.engine.Steps(n) }, zap.Int("steps", n))
}

// GoTo migrates up or down to version.
func (m *Migrator) GoTo(version uint) error {
	return m.run("goto", func() error { return m.engine.Migrate(version) }, zap.Uint("target", version))
}

// Version returns the applied version; an empty schema is version 0.
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.engine.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, false, nil
	case err != nil:
		return 0, false, fmt.Errorf("read migration version: %w", err)
	}
	return version, dirty, nil
}

// Force marks version applied and clears the dirty flag without running SQL.
func (m *Migrator) Force(version int) error {
	m.log.Warn("Forcing migration version", zap.Int("version", version))
	if err := m.engine.Force(version); err != nil {
		return fmt.Errorf("force version %d: %w", version, err)
	}
	return nil
}

// Drop removes every table, migrations bookkeeping included.
func (m *Migrator) Drop() error {
	m.log.Warn("Dropping every table")
	if err := m.engine.Drop(); err != nil {
		return fmt.Errorf("drop schema: %w", err)
	}
	return nil
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.engine.Close()
	return errors.Join(srcErr, dbErr)
}
