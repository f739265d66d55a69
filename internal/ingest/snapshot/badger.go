// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// BadgerStore keeps snapshots as JSON values under "snap:<rundownID>".
type BadgerStore struct {
	db *badger.DB
}

// OpenBadgerStore opens a badger database in dir. An empty dir opens an
// in-memory database.
func OpenBadgerStore(dir string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open failed: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

func badgerKey(id rundown.RundownID) []byte {
	return []byte("snap:" + string(id))
}

func (s *BadgerStore) Load(_ context.Context, id rundown.RundownID) (*ingest.Rundown, error) {
	var out *ingest.Rundown
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			r, err := decode(val)
			out = r
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: load %s: %w", id, err)
	}
	return out, nil
}

func (s *BadgerStore) Save(_ context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	buf, err := encode(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(badgerKey(id), buf)
	})
}

func (s *BadgerStore) Delete(_ context.Context, id rundown.RundownID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(badgerKey(id))
	})
}

func (s *BadgerStore) Close() error { return s.db.Close() }
