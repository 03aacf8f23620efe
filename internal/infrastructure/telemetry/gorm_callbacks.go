package telemetry

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
)

type startTimeKey string

// gormHooks registers before and after callbacks on every GORM processor.
// after receives the SQL operation name and the elapsed time.
func gormHooks(db *gorm.DB, prefix string, key startTimeKey, after func(db *gorm.DB, operation string, elapsed time.Duration)) error {
	before := func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		db.Statement.Context = context.WithValue(ctx, key, time.Now())
	}
	finish := func(operation string) func(*gorm.DB) {
		return func(db *gorm.DB) {
			op := operation
			if op == "" {
				op = detectOperationType(db.Statement.SQL.String())
			}
			var elapsed time.Duration
			if db.Statement.Context != nil {
				if started, ok := db.Statement.Context.Value(key).(time.Time); ok {
					elapsed = time.Since(started)
				}
			}
			after(db, op, elapsed)
		}
	}

	cb := db.Callback()
	regs := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register(prefix+":before_create", before) },
		func() error {
			return cb.Create().After("gorm:create").Register(prefix+":after_create", finish("INSERT"))
		},
		func() error { return cb.Query().Before("gorm:query").Register(prefix+":before_query", before) },
		func() error { return cb.Query().After("gorm:query").Register(prefix+":after_query", finish("SELECT")) },
		func() error { return cb.Update().Before("gorm:update").Register(prefix+":before_update", before) },
		func() error {
			return cb.Update().After("gorm:update").Register(prefix+":after_update", finish("UPDATE"))
		},
		func() error { return cb.Delete().Before("gorm:delete").Register(prefix+":before_delete", before) },
		func() error {
			return cb.Delete().After("gorm:delete").Register(prefix+":after_delete", finish("DELETE"))
		},
		func() error { return cb.Row().Before("gorm:row").Register(prefix+":before_row", before) },
		func() error { return cb.Row().After("gorm:row").Register(prefix+":after_row", finish("")) },
		func() error { return cb.Raw().Before("gorm:raw").Register(prefix+":before_raw", before) },
		func() error { return cb.Raw().After("gorm:raw").Register(prefix+":after_raw", finish("")) },
	}
	for _, register := range regs {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

// detectOperationType reads the statement verb of a raw query.
func detectOperationType(sql string) string {
	sql = strings.TrimSpace(strings.ToUpper(sql))
	for _, op := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.HasPrefix(sql, op) {
			return op
		}
	}
	return "OTHER"
}
