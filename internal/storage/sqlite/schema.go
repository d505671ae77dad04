// Package sqlite is the embedded single-file storage.Backend adapter,
// opened with Open (no storage URL is parsed to select it). It favours single-writer
// SQLite with WAL mode, FTS5 full-text search, and self-healing recovery
// from stale WAL files left behind by a crashed process.
package sqlite

import "embed"

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"
