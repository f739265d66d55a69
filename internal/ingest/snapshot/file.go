// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// FileStore keeps one JSON file per rundown in a directory. Writes are
// atomic and durable.
type FileStore struct {
	dir string
}

// OpenFileStore creates dir if needed.
func OpenFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("file store: directory not set")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("file store: create %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id rundown.RundownID) string {
	return filepath.Join(s.dir, url.PathEscape(string(id))+".json")
}

func (s *FileStore) Load(_ context.Context, id rundown.RundownID) (*ingest.Rundown, error) {
	buf, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", id, err)
	}
	return decode(buf)
}

func (s *FileStore) Save(_ context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	buf, err := encode(r)
	if err != nil {
		return err
	}
	pendingFile, err := renameio.NewPendingFile(s.path(id))
	if err != nil {
		return fmt.Errorf("create pending snapshot file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			log.L().Debug().Err(err).Str(log.FieldPath, s.path(id)).Msg("cleanup pending snapshot file")
		}
	}()

	if _, err := pendingFile.Write(buf); err != nil {
		return fmt.Errorf("write snapshot data: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("atomically replace snapshot file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(_ context.Context, id rundown.RundownID) error {
	err := os.Remove(s.path(id))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("snapshot: delete %s: %w", id, err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }
