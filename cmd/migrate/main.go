package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/flowstart/douyin-web/internal/infrastructure/config"
	"github.com/flowstart/douyin-web/internal/infrastructure/logger"
	"github.com/flowstart/douyin-web/internal/infrastructure/migration"
	"github.com/flowstart/douyin-web/migrations"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// schemaCommand runs against the configured database. args excludes the
// command name.
type schemaCommand struct {
	usage string
	nargs int
	run   func(m *migration.Migrator, args []string, log *zap.Logger) error
}

var schemaCommands = map[string]schemaCommand{
	"up":   {run: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Up() }},
	"down": {run: func(m *migration.Migrator, _ []string, _ *zap.Logger) error { return m.Down() }},
	"step": {usage: "migrate step <n>", nargs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}},
	"goto": {usage: "migrate goto <version>", nargs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.GoTo(uint(v))
	}},
	"force": {usage: "migrate force <version>", nargs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(v)
	}},
	"version": {run: func(m *migration.Migrator, _ []string, log *zap.Logger) error {
		v, dirty, err := m.Version()
		if err != nil {
			return err
		}
		log.Info("Current migration version", zap.Uint("version", v), zap.Bool("dirty", dirty))
		return nil
	}},
	"drop": {usage: "migrate drop -confirm", nargs: 1, run: func(m *migration.Migrator, args []string, _ *zap.Logger) error {
		if args[0] != "-confirm" && args[0] != "--confirm" {
			return errors.New("drop cancelled, pass -confirm")
		}
		return m.Drop()
	}},
}

func main() {
	dir := flag.String("path", "", "Read migrations from this directory instead of the embedded set")
	level := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: *level, Format: "console", TimeFormat: "2006-01-02 15:04:05"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	command, rest := args[0], args[1:]
	switch command {
	case "create":
		err = create(*dir, rest, log)
	case "list":
		err = list(*dir, log)
	default:
		cmd, ok := schemaCommands[command]
		if !ok {
			log.Error("Unknown command", zap.String("command", command))
			printUsage()
			os.Exit(2)
		}
		if len(rest) < cmd.nargs {
			log.Fatal("Missing argument", zap.String("usage", cmd.usage))
		}
		err = withMigrator(*dir, log, func(m *migration.Migrator) error { return cmd.run(m, rest, log) })
	}
	if err != nil {
		log.Fatal("Migration command failed", zap.String("command", command), zap.Error(err))
	}
}

func create(dir string, args []string, log *zap.Logger) error {
	if len(args) == 0 {
		return errors.New("usage: migrate -path migrations create <name> [description]")
	}
	if dir == "" {
		dir = "migrations"
	}
	var description string
	if len(args) > 1 {
		description = args[1]
	}
	mf, err := migration.CreateMigration(dir, args[0], description)
	if err != nil {
		return err
	}
	log.Info("Migration created",
		zap.String("version", mf.Version),
		zap.String("up_file", mf.UpPath),
		zap.String("down_file", mf.DownPath),
	)
	return nil
}

func list(dir string, log *zap.Logger) error {
	var fsys fs.FS = migrations.FS
	if dir != "" {
		fsys = os.DirFS(dir)
	}
	names, err := migration.ListMigrations(fsys)
	if err != nil {
		return err
	}
	log.Info("Available migrations", zap.Int("count", len(names)))
	for _, n := range names {
		fmt.Println("  -", n)
	}
	return nil
}

// withMigrator connects to the configured PostgreSQL database and hands a
// Migrator to fn.
func withMigrator(dir string, log *zap.Logger, fn func(*migration.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return fmt.Errorf("migrations target PostgreSQL; database.driver is %q and sqlite schemas are created by the server", cfg.Database.Driver)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping database: %w", err)
	}
	m, err := migration.New(db, log, migration.WithDir(dir))
	if err != nil {
		_ = db.Close()
		return err
	}
	defer m.Close()
	return fn(m)
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `douyin-web database migrations

Usage:
  migrate [flags] <command> [arguments]

Commands:
  up                    Apply all pending migrations
  down                  Roll back all migrations
  step <n>              Apply n migrations (negative rolls back)
  goto <version>        Migrate to a specific version
  version               Show the applied version
  force <version>       Mark a version as applied (repairs a dirty schema)
  drop -confirm         Drop every table
  create <name> [desc]  Write a new up/down pair into -path (default ./migrations)
  list                  List available migrations

Flags:
  -path string          Migrations directory; the embedded set is used when empty
  -log-level string     debug, info, warn, error (default: info)

The database is read from config.toml and DOUYIN_DATABASE_* variables.`)
}
