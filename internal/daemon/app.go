// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package daemon wires the rundown services together and runs them.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ManuGH/rundownd/internal/bus"
	"github.com/ManuGH/rundownd/internal/config"
	"github.com/ManuGH/rundownd/internal/ingest/pipeline"
	"github.com/ManuGH/rundownd/internal/ingest/spool"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/timing"
)

// ShutdownHook releases a resource once every component has stopped.
type ShutdownHook func(ctx context.Context) error

type namedHook struct {
	name string
	hook ShutdownHook
}

// App runs the ticker, the HTTP surface, the spool watcher and the config
// watcher until its context is done or one of them fails.
type App struct {
	holder   *config.ConfigHolder
	ticker   *timing.Ticker
	handler  http.Handler
	spool    *spool.Watcher
	events   bus.Bus
	listener net.Listener
	hangup   <-chan os.Signal

	hooks  []namedHook
	logger zerolog.Logger
}

// Addr is the bound address of the HTTP server once Run has started.
func (a *App) Addr() string {
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// RegisterShutdownHook adds a hook; hooks run in reverse registration order.
func (a *App) RegisterShutdownHook(name string, hook ShutdownHook) {
	a.hooks = append(a.hooks, namedHook{name: name, hook: hook})
}

// Listen binds the HTTP listener ahead of Run.
func (a *App) Listen() error {
	if a.listener != nil {
		return nil
	}
	addr := a.holder.Get().HTTP.ListenAddr
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	a.listener = ln
	return nil
}

// Run blocks until ctx is done. A nil error means a clean shutdown.
func (a *App) Run(ctx context.Context) error {
	if err := a.Listen(); err != nil {
		return err
	}
	cfg := a.holder.Get()

	server := &http.Server{
		Handler:           a.handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout / 2,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return a.ticker.Run(gctx) })

	g.Go(func() error {
		a.logger.Info().
			Str(log.FieldEvent, "api.server.start").
			Str("addr", a.Addr()).
			Msg("HTTP server listening")
		if err := server.Serve(a.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.holder.Get().HTTP.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	})

	if a.spool != nil {
		g.Go(func() error { return a.spool.Run(gctx) })
	}

	g.Go(func() error { return a.holder.Watch(gctx) })
	g.Go(func() error { return a.applyReloads(gctx) })
	g.Go(func() error { return a.reloadOnHangup(gctx) })

	if a.events != nil {
		sub, err := a.events.Subscribe(gctx, bus.TopicIngestCommitted)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", bus.TopicIngestCommitted, err)
		}
		g.Go(func() error { return a.logCommits(gctx, sub) })
	}

	err := g.Wait()
	a.shutdown(ctx)
	if err != nil {
		a.logger.Error().Err(err).Str(log.FieldEvent, "daemon.failed").Msg("daemon stopped with error")
		return err
	}
	a.logger.Info().Str(log.FieldEvent, "daemon.stopped").Msg("daemon stopped")
	return nil
}

// applyReloads pushes reloaded settings into the running components.
func (a *App) applyReloads(ctx context.Context) error {
	ch := make(chan config.AppConfig, 1)
	a.holder.RegisterListener(ch)
	for {
		select {
		case <-ctx.Done():
			return nil
		case cfg := <-ch:
			log.Configure(log.Config{
				Level:   cfg.LogLevel,
				Service: cfg.Telemetry.ServiceName,
				Version: cfg.Version,
			})
			a.ticker.SetInterval(cfg.Timing.RefreshInterval)
			a.logger.Info().
				Str(log.FieldEvent, "config.applied").
				Dur("refresh_interval", cfg.Timing.RefreshInterval).
				Str("log_level", cfg.LogLevel).
				Msg("reloaded configuration applied")
		}
	}
}

func (a *App) reloadOnHangup(ctx context.Context) error {
	hangup := a.hangup
	if hangup == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, syscall.SIGHUP)
		defer signal.Stop(ch)
		hangup = ch
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hangup:
			a.logger.Info().Str(log.FieldEvent, "config.sighup").Msg("SIGHUP received, reloading configuration")
			if err := a.holder.Reload(ctx); err != nil {
				a.logger.Error().Err(err).Str(log.FieldEvent, "config.reload_failed").Msg("configuration reload failed")
			}
		}
	}
}

func (a *App) logCommits(ctx context.Context, sub bus.Subscriber) error {
	defer func() { _ = sub.Close() }()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.C():
			if !ok {
				return nil
			}
			ev, ok := msg.(pipeline.CommittedEvent)
			if !ok {
				continue
			}
			a.logger.Debug().
				Str(log.FieldEvent, "ingest.committed").
				Str(log.FieldOperation, ev.Operation).
				Str(log.FieldStudioID, string(ev.StudioID)).
				Str(log.FieldPlaylistID, string(ev.PlaylistID)).
				Str(log.FieldRundownID, string(ev.RundownID)).
				Msg("ingest change committed")
		}
	}
}

func (a *App) shutdown(ctx context.Context) {
	hookCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	for i := len(a.hooks) - 1; i >= 0; i-- {
		h := a.hooks[i]
		if err := h.hook(hookCtx); err != nil {
			a.logger.Warn().Err(err).
				Str(log.FieldEvent, "daemon.shutdown_hook_failed").
				Str("hook", h.name).
				Msg("shutdown hook failed")
		}
	}
}
