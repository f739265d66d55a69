// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"sync"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[rundown.RundownID]*ingest.Rundown
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[rundown.RundownID]*ingest.Rundown)}
}

func (s *MemoryStore) Load(_ context.Context, id rundown.RundownID) (*ingest.Rundown, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items[id].Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	if _, err := encode(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[id] = r.Clone()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id rundown.RundownID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

func (s *MemoryStore) Close() error { return nil }
