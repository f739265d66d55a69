// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
)

// PostgresStore keeps snapshots in a PostgreSQL table.
type PostgresStore struct {
	sqlStore
}

// OpenPostgresStore connects with the given DSN and creates the table if needed.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open failed: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: ping failed: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS ingest_snapshots (
		rundown_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		updated_at_ms BIGINT NOT NULL
	)`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: create schema: %w", err)
	}

	return &PostgresStore{sqlStore: sqlStore{db: db, q: sqlQueries{
		load:   "SELECT data::text FROM ingest_snapshots WHERE rundown_id = $1",
		save:   "INSERT INTO ingest_snapshots (rundown_id, data, updated_at_ms) VALUES ($1, $2::jsonb, $3) ON CONFLICT (rundown_id) DO UPDATE SET data = EXCLUDED.data, updated_at_ms = EXCLUDED.updated_at_ms",
		delete: "DELETE FROM ingest_snapshots WHERE rundown_id = $1",
	}}}, nil
}
