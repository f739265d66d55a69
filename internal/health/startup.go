// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/ManuGH/rundownd/internal/config"
	"github.com/ManuGH/rundownd/internal/log"
)

// PerformStartupChecks verifies the directories the configuration points at
// before any component is started.
func PerformStartupChecks(_ context.Context, cfg config.AppConfig) error {
	logger := log.WithComponent("startup-check")

	if cfg.Spool.Dir != "" {
		if err := checkWritableDir(logger, cfg.Spool.Dir); err != nil {
			return fmt.Errorf("spool directory check failed: %w", err)
		}
	}

	switch cfg.Snapshot.Backend {
	case "file", "badger":
		if err := os.MkdirAll(cfg.Snapshot.Path, 0o750); err != nil {
			return fmt.Errorf("snapshot directory: %w", err)
		}
		if err := checkWritableDir(logger, cfg.Snapshot.Path); err != nil {
			return fmt.Errorf("snapshot directory check failed: %w", err)
		}
	case "sqlite":
		if err := checkWritableDir(logger, filepath.Dir(cfg.Snapshot.Path)); err != nil {
			return fmt.Errorf("snapshot database directory check failed: %w", err)
		}
	case "memory":
		logger.Warn().
			Str(log.FieldBackend, cfg.Snapshot.Backend).
			Msg("ingest snapshots are not persistent across restarts")
	}

	logger.Info().Str(log.FieldEvent, "startup.checks_passed").Msg("startup checks passed")
	return nil
}

func checkWritableDir(logger zerolog.Logger, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", path)
		}
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

	testFile := filepath.Join(path, ".write_test")
	if err := os.WriteFile(testFile, []byte("ok"), 0o600); err != nil {
		return fmt.Errorf("directory is not writable: %s (error: %v)", path, err)
	}
	_ = os.Remove(testFile)

	logger.Debug().Str(log.FieldPath, path).Msg("directory is writable")
	return nil
}
