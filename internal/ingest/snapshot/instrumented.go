// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// instrumented counts every store operation by backend and outcome.
type instrumented struct {
	Store
	backend string
}

// Instrument wraps s with operation counters labelled by backend.
func Instrument(s Store, backend string) Store {
	return &instrumented{Store: s, backend: backend}
}

func (s *instrumented) Load(ctx context.Context, id rundown.RundownID) (*ingest.Rundown, error) {
	r, err := s.Store.Load(ctx, id)
	metrics.RecordSnapshotOp(s.backend, "load", err)
	return r, err
}

func (s *instrumented) Save(ctx context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	err := s.Store.Save(ctx, id, r)
	metrics.RecordSnapshotOp(s.backend, "save", err)
	return err
}

func (s *instrumented) Delete(ctx context.Context, id rundown.RundownID) error {
	err := s.Store.Delete(ctx, id)
	metrics.RecordSnapshotOp(s.backend, "delete", err)
	return err
}

func (s *instrumented) Health(ctx context.Context) error {
	if hc, ok := s.Store.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
