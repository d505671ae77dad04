// Package postgres is the server-backed storage.Backend adapter, opened
// with Open (no storage URL is parsed to select it). It favours the lib/pq
// driver, tsvector full-text search, and, when the server has the pgvector
// extension installed, a vector copy of each embedding; no query in this
// package reads that copy back, so similarity search does not run in SQL.
package postgres

import "embed"

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationsDir = "migrations"
