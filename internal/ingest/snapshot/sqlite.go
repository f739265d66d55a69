// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"fmt"
	"strings"

	"github.com/ManuGH/rundownd/internal/persistence/sqlite"
)

const sqliteSchemaVersion = 1

// SQLiteStore keeps snapshots in a SQLite database.
type SQLiteStore struct {
	sqlStore
	path string
}

// OpenSQLiteStore opens (and migrates) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlite.Open(path, sqlite.DefaultConfig())
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{
		sqlStore: sqlStore{db: db, q: sqlQueries{
			load:   "SELECT data FROM ingest_snapshots WHERE rundown_id = ?",
			save:   "INSERT INTO ingest_snapshots (rundown_id, data, updated_at_ms) VALUES (?, ?, ?) ON CONFLICT(rundown_id) DO UPDATE SET data = excluded.data, updated_at_ms = excluded.updated_at_ms",
			delete: "DELETE FROM ingest_snapshots WHERE rundown_id = ?",
		}},
		path: path,
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("snapshot store: migration failed: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	var currentVersion int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&currentVersion); err != nil {
		return err
	}
	if currentVersion >= sqliteSchemaVersion {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	schema := `
	CREATE TABLE IF NOT EXISTS ingest_snapshots (
		rundown_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		updated_at_ms INTEGER NOT NULL
	);
	`
	if _, err := tx.Exec(schema); err != nil {
		return err
	}
	if _, err := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", sqliteSchemaVersion)); err != nil {
		return err
	}
	return tx.Commit()
}

// Health runs a quick integrity check on top of the connectivity probe.
func (s *SQLiteStore) Health(ctx context.Context) error {
	if err := s.sqlStore.Health(ctx); err != nil {
		return err
	}
	issues, err := sqlite.VerifyIntegrity(ctx, s.path, "quick")
	if err != nil {
		return err
	}
	if len(issues) > 0 {
		return fmt.Errorf("snapshot store: integrity check: %s", strings.Join(issues, "; "))
	}
	return nil
}
