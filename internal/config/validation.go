// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"time"

	"github.com/ManuGH/rundownd/internal/ingest/snapshot"
	"github.com/ManuGH/rundownd/internal/validate"
)

// Validate checks a resolved configuration.
func Validate(cfg AppConfig) error {
	v := validate.New()

	if _, err := validate.ParseLogLevel(cfg.LogLevel); err != nil {
		v.AddError("logLevel", err.Error(), cfg.LogLevel)
	}
	v.NotEmpty("studioId", cfg.StudioID)

	v.ListenAddr("http.listenAddr", cfg.HTTP.ListenAddr)
	v.NonNegative("http.rateLimit", cfg.HTTP.RateLimit)
	v.DurationRange("http.shutdownTimeout", cfg.HTTP.ShutdownTimeout, 0, time.Minute)

	v.DurationRange("timing.refreshInterval", cfg.Timing.RefreshInterval, time.Millisecond, 10*time.Second)
	v.DurationRange("timing.defaultDisplayDuration", cfg.Timing.DefaultDisplayDuration, 0, time.Hour)

	s := cfg.Snapshot
	v.OneOf("snapshot.backend", s.Backend, snapshot.Backends)
	switch s.Backend {
	case "sqlite", "badger", "file":
		v.NotEmpty("snapshot.path", s.Path)
	case "postgres":
		v.NotEmpty("snapshot.dsn", s.DSN)
	case "redis":
		v.NotEmpty("snapshot.redis.addr", s.Redis.Addr)
	}
	if s.Archive.Enabled {
		if err := s.Archive.Validate(); err != nil {
			v.AddError("snapshot.archive", err.Error(), s.Archive.Endpoint)
		}
	}

	if cfg.Spool.Dir != "" {
		v.Directory("spool.dir", cfg.Spool.Dir, false)
	}

	if t := cfg.Telemetry; t.Enabled {
		v.OneOf("telemetry.exporter", t.ExporterType, []string{"grpc", "http"})
		v.NotEmpty("telemetry.endpoint", t.Endpoint)
		v.Fraction("telemetry.samplingRate", t.SamplingRate)
	}

	return v.Err()
}
