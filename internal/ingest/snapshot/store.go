// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package snapshot caches the last accepted ingest snapshot of every rundown.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// Store persists ingest snapshots keyed by rundown id. Load of an absent key
// returns (nil, nil). Every Load returns a copy the caller may modify.
type Store interface {
	Load(ctx context.Context, id rundown.RundownID) (*ingest.Rundown, error)
	Save(ctx context.Context, id rundown.RundownID, r *ingest.Rundown) error
	Delete(ctx context.Context, id rundown.RundownID) error
	Close() error
}

// HealthChecker is implemented by stores that can probe their backend.
type HealthChecker interface {
	Health(ctx context.Context) error
}

func encode(r *ingest.Rundown) ([]byte, error) {
	if r == nil {
		return nil, fmt.Errorf("snapshot: nil rundown")
	}
	buf, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	return buf, nil
}

func decode(buf []byte) (*ingest.Rundown, error) {
	var r ingest.Rundown
	if err := json.Unmarshal(buf, &r); err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	return &r, nil
}
