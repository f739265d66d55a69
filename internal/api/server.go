// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the operations HTTP surface of the daemon.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/rundownd/internal/api/middleware"
	"github.com/ManuGH/rundownd/internal/health"
	"github.com/ManuGH/rundownd/internal/ingest/snapshot"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/timing"
)

// TimingSource exposes the latest published timing context per playlist.
type TimingSource interface {
	Latest(id rundown.PlaylistID) (*timing.Context, bool)
}

// Playlists lists the playlists known to the daemon.
type Playlists interface {
	Playlists() []*rundown.Playlist
}

// Playout drives the on-air state of a playlist.
type Playout interface {
	Activate(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID, rehearsal bool) error
	Deactivate(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID) error
	SetNext(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID, partID rundown.PartID) error
	Take(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID) error
}

// Deps are the collaborators of the HTTP surface. Playout may be nil, which
// leaves the surface read-only.
type Deps struct {
	Studio    rundown.StudioID
	Timing    TimingSource
	Playlists Playlists
	Snapshots snapshot.Store
	Playout   Playout
	// Health serves /healthz and /readyz. Nil probes the snapshot store only.
	Health *health.Manager

	// RateLimit is requests per minute and client IP; 0 disables limiting.
	RateLimit int
	// TracingService names the otelhttp handler; empty disables tracing.
	TracingService string
}

// Server holds the handlers.
type Server struct {
	deps Deps
}

func New(deps Deps) *Server {
	if deps.Health == nil {
		deps.Health = health.NewManager("")
		if p, ok := deps.Snapshots.(snapshot.HealthChecker); ok {
			deps.Health.RegisterChecker(health.NewPingChecker("snapshot_store", p))
		}
	}
	return &Server{deps: deps}
}

// Router builds the chi router with the full middleware stack.
func (s *Server) Router() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:  true,
		EnableLogging:  true,
		TracingService: s.deps.TracingService,
		RateLimit:      s.deps.RateLimit,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/playlists", s.handleListPlaylists)
		r.Get("/playlists/{playlistID}/timing", s.handleTiming)
		r.Get("/rundowns/{rundownID}/snapshot", s.handleSnapshot)
		if s.deps.Playout != nil {
			r.Post("/playlists/{playlistID}/activate", s.handleActivate)
			r.Post("/playlists/{playlistID}/deactivate", s.handleDeactivate)
			r.Post("/playlists/{playlistID}/take", s.handleTake)
			r.Post("/playlists/{playlistID}/next", s.handleSetNext)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusNotFound, "no such route")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, r, http.StatusMethodNotAllowed, "")
	})
	return r
}
