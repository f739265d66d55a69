// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rundownd/internal/validate"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader("", "", "v1.2.3").Load()
	require.NoError(t, err)

	want := Defaults()
	want.Version = "v1.2.3"
	want.Telemetry.ServiceVersion = "v1.2.3"
	assert.Equal(t, want, cfg)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
logLevel: debug
studioId: studioA
http:
  listenAddr: "127.0.0.1:9000"
timing:
  refreshInterval: 50ms
snapshot:
  backend: sqlite
  path: `+filepath.Join(dir, "snapshots.db")+`
`)
	cfg, err := NewLoader(path, "", "test").Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "studioA", cfg.StudioID)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.ListenAddr)
	assert.Equal(t, 50*time.Millisecond, cfg.Timing.RefreshInterval)
	assert.Equal(t, "sqlite", cfg.Snapshot.Backend)
	// untouched values keep their defaults
	assert.Equal(t, Defaults().HTTP.RateLimit, cfg.HTTP.RateLimit)
	assert.Equal(t, Defaults().Timing.DefaultDisplayDuration, cfg.Timing.DefaultDisplayDuration)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "logLevel: debug\nhttp:\n  rateLimit: 10\n")
	t.Setenv("RUNDOWND_LOG_LEVEL", "warn")
	t.Setenv("RUNDOWND_RATE_LIMIT", "not-a-number")
	t.Setenv("RUNDOWND_TIMING_REFRESH_INTERVAL", "100ms")
	t.Setenv("RUNDOWND_TRACING_SAMPLING_RATE", "0.25")

	cfg, err := NewLoader(path, "", "test").Load()
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, 10, cfg.HTTP.RateLimit, "invalid env keeps file value")
	assert.Equal(t, 100*time.Millisecond, cfg.Timing.RefreshInterval)
	assert.InDelta(t, 0.25, cfg.Telemetry.SamplingRate, 1e-9)
}

func TestLoad_DotEnvFillsUnsetVariables(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RUNDOWND_STUDIO_ID=fromdotenv\nRUNDOWND_LOG_LEVEL=error\n"), 0o600))
	t.Setenv("RUNDOWND_LOG_LEVEL", "debug")
	t.Cleanup(func() { _ = os.Unsetenv("RUNDOWND_STUDIO_ID") })

	cfg, err := NewLoader("", envFile, "test").Load()
	require.NoError(t, err)
	assert.Equal(t, "fromdotenv", cfg.StudioID)
	assert.Equal(t, "debug", cfg.LogLevel, "process env wins over dotenv")

	_, err = NewLoader("", filepath.Join(dir, "missing.env"), "test").Load()
	assert.NoError(t, err)
}

func TestLoad_StrictFile(t *testing.T) {
	tests := map[string]string{
		"unknown field":   "logLevel: info\nbogus: true\n",
		"multi document":  "logLevel: info\n---\nlogLevel: debug\n",
		"wrong type":      "http:\n  rateLimit: many\n",
		"invalid backend": "snapshot:\n  backend: etcd\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			path := writeConfig(t, t.TempDir(), content)
			_, err := NewLoader(path, "", "test").Load()
			assert.Error(t, err)
		})
	}

	_, err := NewLoader(filepath.Join(t.TempDir(), "config.json"), "", "test").Load()
	assert.ErrorContains(t, err, "only YAML supported")
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "")
	cfg, err := NewLoader(path, "", "test").Load()
	require.NoError(t, err)
	assert.Equal(t, Defaults().HTTP, cfg.HTTP)
}

func TestValidate(t *testing.T) {
	valid := Defaults()
	require.NoError(t, Validate(valid))

	fields := func(err error) []string {
		var verr validate.ValidationError
		require.ErrorAs(t, err, &verr)
		var out []string
		for _, e := range verr.Errors() {
			out = append(out, e.Field)
		}
		return out
	}

	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.StudioID = ""
	cfg.Timing.RefreshInterval = 0
	cfg.Snapshot.Backend = "redis"
	assert.ElementsMatch(t,
		[]string{"logLevel", "studioId", "timing.refreshInterval", "snapshot.redis.addr"},
		fields(Validate(cfg)))

	cfg = Defaults()
	cfg.Snapshot.Archive.Enabled = true
	cfg.Telemetry.Enabled = true
	cfg.Telemetry.ExporterType = "zipkin"
	cfg.Telemetry.SamplingRate = 2
	assert.ElementsMatch(t,
		[]string{"snapshot.archive", "telemetry.exporter", "telemetry.samplingRate"},
		fields(Validate(cfg)))

	cfg = Defaults()
	cfg.Spool.Dir = filepath.Join(t.TempDir(), "spool")
	require.NoError(t, Validate(cfg))
	assert.DirExists(t, cfg.Spool.Dir)
}
