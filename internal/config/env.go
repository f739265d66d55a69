// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ManuGH/rundownd/internal/log"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "RUNDOWND_"

func isSensitive(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "secret") ||
		strings.Contains(lower, "token") || strings.Contains(lower, "dsn")
}

// parseEnv reads key and converts it with parse. Unset, empty and
// unparsable values give defaultValue; the chosen source is logged.
func parseEnv[T any](key string, defaultValue T, parse func(string) (T, error)) T {
	logger := log.WithComponent("config")
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		logger.Debug().
			Str("key", key).
			Interface("default", defaultValue).
			Str("source", "default").
			Msg("using default value")
		return defaultValue
	}
	parsed, err := parse(v)
	if err != nil {
		logger.Warn().
			Str("key", key).
			Str("value", v).
			Interface("default", defaultValue).
			Msg("invalid value in environment variable, using default")
		return defaultValue
	}
	ev := logger.Debug().Str("key", key).Str("source", "environment")
	if isSensitive(key) {
		ev = ev.Bool("sensitive", true)
	} else {
		ev = ev.Str("value", v)
	}
	ev.Msg("using environment variable")
	return parsed
}

// ParseString reads a string from environment variable or returns default value.
func ParseString(key, defaultValue string) string {
	return parseEnv(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// ParseInt reads an integer from environment variable or returns default value.
func ParseInt(key string, defaultValue int) int {
	return parseEnv(key, defaultValue, strconv.Atoi)
}

// ParseFloat reads a float64 from environment variable or returns default value.
func ParseFloat(key string, defaultValue float64) float64 {
	return parseEnv(key, defaultValue, func(s string) (float64, error) { return strconv.ParseFloat(s, 64) })
}

// ParseDuration reads a duration in Go format (e.g. "5s").
func ParseDuration(key string, defaultValue time.Duration) time.Duration {
	return parseEnv(key, defaultValue, time.ParseDuration)
}

// ParseBool reads a boolean. It accepts "true", "false", "1", "0", "yes",
// "no" (case-insensitive).
func ParseBool(key string, defaultValue bool) bool {
	return parseEnv(key, defaultValue, func(s string) (bool, error) {
		switch strings.ToLower(s) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return false, strconv.ErrSyntax
	})
}

// mergeEnv overrides cfg with RUNDOWND_* variables.
func mergeEnv(cfg *AppConfig) {
	e := func(name string) string { return EnvPrefix + name }

	cfg.LogLevel = ParseString(e("LOG_LEVEL"), cfg.LogLevel)
	cfg.StudioID = ParseString(e("STUDIO_ID"), cfg.StudioID)

	cfg.HTTP.ListenAddr = ParseString(e("LISTEN_ADDR"), cfg.HTTP.ListenAddr)
	cfg.HTTP.RateLimit = ParseInt(e("RATE_LIMIT"), cfg.HTTP.RateLimit)
	cfg.HTTP.ShutdownTimeout = ParseDuration(e("SHUTDOWN_TIMEOUT"), cfg.HTTP.ShutdownTimeout)

	cfg.Timing.RefreshInterval = ParseDuration(e("TIMING_REFRESH_INTERVAL"), cfg.Timing.RefreshInterval)
	cfg.Timing.DefaultDisplayDuration = ParseDuration(e("TIMING_DEFAULT_DISPLAY_DURATION"), cfg.Timing.DefaultDisplayDuration)

	s := &cfg.Snapshot
	s.Backend = ParseString(e("SNAPSHOT_BACKEND"), s.Backend)
	s.Path = ParseString(e("SNAPSHOT_PATH"), s.Path)
	s.DSN = ParseString(e("SNAPSHOT_DSN"), s.DSN)
	s.Redis.Addr = ParseString(e("REDIS_ADDR"), s.Redis.Addr)
	s.Redis.Password = ParseString(e("REDIS_PASSWORD"), s.Redis.Password)
	s.Redis.DB = ParseInt(e("REDIS_DB"), s.Redis.DB)
	s.Archive.Enabled = ParseBool(e("ARCHIVE_ENABLED"), s.Archive.Enabled)
	s.Archive.Endpoint = ParseString(e("ARCHIVE_ENDPOINT"), s.Archive.Endpoint)
	s.Archive.AccessKey = ParseString(e("ARCHIVE_ACCESS_KEY"), s.Archive.AccessKey)
	s.Archive.SecretKey = ParseString(e("ARCHIVE_SECRET_KEY"), s.Archive.SecretKey)
	s.Archive.Bucket = ParseString(e("ARCHIVE_BUCKET"), s.Archive.Bucket)

	cfg.Spool.Dir = ParseString(e("SPOOL_DIR"), cfg.Spool.Dir)

	t := &cfg.Telemetry
	t.Enabled = ParseBool(e("TRACING_ENABLED"), t.Enabled)
	t.ExporterType = ParseString(e("TRACING_EXPORTER"), t.ExporterType)
	t.Endpoint = ParseString(e("TRACING_ENDPOINT"), t.Endpoint)
	t.SamplingRate = ParseFloat(e("TRACING_SAMPLING_RATE"), t.SamplingRate)
}
