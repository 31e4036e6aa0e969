// Package migrations embeds the SQL schema migrations for the history
// database. Files are named NNN_description.sql and applied in order.
package migrations

import "embed"

// FS contains all SQL migration files embedded at compile time.
//
//go:embed *.sql
var FS embed.FS
