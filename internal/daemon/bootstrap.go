// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package daemon

import (
	"context"
	"fmt"
	"net"
	"os"

	"github.com/ManuGH/rundownd/internal/api"
	"github.com/ManuGH/rundownd/internal/bus"
	"github.com/ManuGH/rundownd/internal/config"
	"github.com/ManuGH/rundownd/internal/health"
	"github.com/ManuGH/rundownd/internal/ingest/pipeline"
	"github.com/ManuGH/rundownd/internal/ingest/snapshot"
	"github.com/ManuGH/rundownd/internal/ingest/spool"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/playout"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
	"github.com/ManuGH/rundownd/internal/timing"
)

// Options override parts of the wiring, mostly for tests.
type Options struct {
	// Listener replaces binding HTTP.ListenAddr.
	Listener net.Listener
	// Hangup replaces the SIGHUP subscription.
	Hangup <-chan os.Signal
}

// Bootstrap opens the snapshot store and builds every component from the
// current configuration of holder. The store is closed by a shutdown hook.
func Bootstrap(ctx context.Context, holder *config.ConfigHolder, opts Options) (*App, error) {
	cfg := holder.Get()
	logger := log.WithComponent("daemon")

	store, err := snapshot.Open(ctx, cfg.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("open snapshot store: %w", err)
	}
	logger.Info().
		Str(log.FieldEvent, "snapshot.opened").
		Str(log.FieldBackend, cfg.Snapshot.Backend).
		Bool("archive", cfg.Snapshot.Archive.Enabled).
		Msg("snapshot store ready")

	st := state.NewStore()
	events := bus.NewMemoryBus()
	p := pipeline.New(pipeline.Deps{
		Snapshots: store,
		State:     st,
		Bus:       events,
	})
	studio := rundown.StudioID(cfg.StudioID)

	ticker := timing.NewTicker(st, events, timing.TickerConfig{
		Interval:               cfg.Timing.RefreshInterval,
		DefaultDisplayDuration: cfg.Timing.DefaultDisplayDuration.Milliseconds(),
	})

	checks := health.NewManager(cfg.Version)
	if hc, ok := store.(snapshot.HealthChecker); ok {
		checks.RegisterChecker(health.NewPingChecker("snapshot_store", hc))
	}
	checks.RegisterChecker(health.NewTickChecker(ticker.LastTick, ticker.Interval))
	checks.RegisterChecker(health.NewDirChecker("spool_dir", cfg.Spool.Dir))

	server := api.New(api.Deps{
		Studio:         studio,
		Timing:         ticker,
		Playlists:      st,
		Snapshots:      store,
		Playout:        playout.New(st, p.PlaylistLocks(), nil),
		Health:         checks,
		RateLimit:      cfg.HTTP.RateLimit,
		TracingService: tracingService(cfg),
	})

	app := &App{
		holder:   holder,
		ticker:   ticker,
		handler:  server.Router(),
		events:   events,
		listener: opts.Listener,
		hangup:   opts.Hangup,
		logger:   logger,
	}
	if cfg.Spool.Dir != "" {
		app.spool = spool.New(cfg.Spool.Dir, p.RunningOrders(studio, nil), cfg.Spool.Debounce)
	}
	app.RegisterShutdownHook("snapshot-store", func(context.Context) error { return store.Close() })
	return app, nil
}

func tracingService(cfg config.AppConfig) string {
	if !cfg.Telemetry.Enabled {
		return ""
	}
	return cfg.Telemetry.ServiceName
}
