package migrations

import "embed"

// FS contains embedded SQLite migrations for user data storage.
//
//go:embed *.sql
var FS embed.FS
