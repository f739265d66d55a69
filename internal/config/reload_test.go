// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/rundownd/internal/metrics"
)

func newHolder(t *testing.T, content string) (*ConfigHolder, string) {
	t.Helper()
	path := writeConfig(t, t.TempDir(), content)
	loader := NewLoader(path, "", "test")
	cfg, err := loader.Load()
	require.NoError(t, err)
	return NewConfigHolder(cfg, loader), path
}

func TestConfigHolder_ReloadSuccess(t *testing.T) {
	h, path := newHolder(t, "timing:\n  refreshInterval: 20ms\n")
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	before := testutil.ToFloat64(metrics.ConfigReloadsTotal.WithLabelValues("success"))
	require.NoError(t, os.WriteFile(path, []byte("timing:\n  refreshInterval: 40ms\n"), 0o600))
	require.NoError(t, h.Reload(context.Background()))

	assert.Equal(t, 40*time.Millisecond, h.Get().Timing.RefreshInterval)
	select {
	case got := <-ch:
		assert.Equal(t, 40*time.Millisecond, got.Timing.RefreshInterval)
	default:
		t.Fatal("listener not notified")
	}
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.ConfigReloadsTotal.WithLabelValues("success")))
}

func TestConfigHolder_ReloadFailureKeepsConfig(t *testing.T) {
	h, path := newHolder(t, "logLevel: debug\n")
	ch := make(chan AppConfig, 1)
	h.RegisterListener(ch)

	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0o600))
	require.Error(t, h.Reload(context.Background()))
	assert.Equal(t, "debug", h.Get().LogLevel)
	assert.Empty(t, ch)
}

func TestConfigHolder_FullListenerIsSkipped(t *testing.T) {
	h, _ := newHolder(t, "")
	ch := make(chan AppConfig)
	h.RegisterListener(ch)
	done := make(chan error, 1)
	go func() { done <- h.Reload(context.Background()) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reload blocked on listener")
	}
}

func TestConfigHolder_WatchReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, path := newHolder(t, "logLevel: info\n")
	ch := make(chan AppConfig, 4)
	h.RegisterListener(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.Watch(ctx) }()

	// give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("logLevel: warn\n"), 0o600))
	// unrelated files in the directory are ignored
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), "other.yaml"), []byte("x"), 0o600))

	select {
	case got := <-ch:
		assert.Equal(t, "warn", got.LogLevel)
	case <-time.After(3 * time.Second):
		t.Fatal("config was not reloaded")
	}

	cancel()
	require.NoError(t, <-done)
}

func TestConfigHolder_WatchWithoutFile(t *testing.T) {
	h := NewConfigHolder(Defaults(), NewLoader("", "", "test"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.NoError(t, h.Watch(ctx))
}
