// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
)

type sqlQueries struct {
	load   string
	save   string
	delete string
}

// sqlStore is the database/sql implementation shared by the sqlite and
// postgres backends.
type sqlStore struct {
	db *sql.DB
	q  sqlQueries
}

func (s *sqlStore) Load(ctx context.Context, id rundown.RundownID) (*ingest.Rundown, error) {
	var buf []byte
	err := s.db.QueryRowContext(ctx, s.q.load, string(id)).Scan(&buf)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", id, err)
	}
	return decode(buf)
}

func (s *sqlStore) Save(ctx context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	buf, err := encode(r)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, s.q.save, string(id), string(buf), time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("snapshot: save %s: %w", id, err)
	}
	return nil
}

func (s *sqlStore) Delete(ctx context.Context, id rundown.RundownID) error {
	if _, err := s.db.ExecContext(ctx, s.q.delete, string(id)); err != nil {
		return fmt.Errorf("snapshot: delete %s: %w", id, err)
	}
	return nil
}

func (s *sqlStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
