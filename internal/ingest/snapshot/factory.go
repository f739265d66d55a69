// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"fmt"
)

// Config selects and configures the snapshot backend.
type Config struct {
	Backend string        `yaml:"backend"`
	Path    string        `yaml:"path"`
	DSN     string        `yaml:"dsn"`
	Redis   RedisConfig   `yaml:"redis"`
	Archive ArchiveConfig `yaml:"archive"`
}

// Backends lists the accepted Config.Backend values.
var Backends = []string{"memory", "sqlite", "badger", "redis", "postgres", "file"}

// Open returns the configured store wrapped with metrics and, when enabled,
// the object storage archive.
func Open(ctx context.Context, cfg Config) (Store, error) {
	backend := cfg.Backend
	if backend == "" {
		backend = "memory"
	}

	var (
		s   Store
		err error
	)
	switch backend {
	case "memory":
		s = NewMemoryStore()
	case "sqlite":
		s, err = OpenSQLiteStore(cfg.Path)
	case "badger":
		s, err = OpenBadgerStore(cfg.Path)
	case "redis":
		s, err = OpenRedisStore(ctx, cfg.Redis)
	case "postgres":
		s, err = OpenPostgresStore(ctx, cfg.DSN)
	case "file":
		s, err = OpenFileStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown snapshot backend: %s", backend)
	}
	if err != nil {
		return nil, err
	}

	if cfg.Archive.Enabled {
		client, err := NewMinIOClient(cfg.Archive)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("snapshot archive: %w", err)
		}
		if err := EnsureBucket(ctx, client, cfg.Archive); err != nil {
			_ = s.Close()
			return nil, err
		}
		s = NewArchivingStore(s, client, cfg.Archive)
	}
	return Instrument(s, backend), nil
}
