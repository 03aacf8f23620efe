// Package migrations embeds the PostgreSQL schema migrations so the server
// and the migrate command share one source.
package migrations

import "embed"

// FS holds the *.up.sql and *.down.sql pairs
//
//go:embed *.sql
var FS embed.FS
