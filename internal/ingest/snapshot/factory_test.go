// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rundownd/internal/metrics"
)

func TestOpen_Backends(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	cases := []Config{
		{},
		{Backend: "memory"},
		{Backend: "sqlite", Path: filepath.Join(dir, "snap.db")},
		{Backend: "badger"},
		{Backend: "redis", Redis: RedisConfig{Addr: mr.Addr()}},
		{Backend: "file", Path: filepath.Join(dir, "files")},
	}
	for _, cfg := range cases {
		t.Run("backend="+cfg.Backend, func(t *testing.T) {
			s, err := Open(context.Background(), cfg)
			require.NoError(t, err)
			defer func() { _ = s.Close() }()
			runStoreContract(t, s)

			hc, ok := s.(HealthChecker)
			require.True(t, ok)
			assert.NoError(t, hc.Health(context.Background()))
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Config{Backend: "bolt"})
	assert.ErrorContains(t, err, "unknown snapshot backend")
}

func TestOpen_ArchiveRequiresSettings(t *testing.T) {
	_, err := Open(context.Background(), Config{Archive: ArchiveConfig{Enabled: true}})
	assert.Error(t, err)
}

func TestInstrument_CountsOperations(t *testing.T) {
	s := Instrument(NewMemoryStore(), "unit")
	before := testutil.ToFloat64(metrics.SnapshotStoreOpsTotal.WithLabelValues("unit", "save", "success"))
	require.NoError(t, s.Save(context.Background(), "rd-1", sampleRundown()))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SnapshotStoreOpsTotal.WithLabelValues("unit", "save", "success")))
}
