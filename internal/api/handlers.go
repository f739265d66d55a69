// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/rundownd/internal/rundown"
)

type playlistSummary struct {
	ID                    rundown.PlaylistID     `json:"id"`
	ExternalID            string                 `json:"externalId"`
	Name                  string                 `json:"name"`
	Active                bool                   `json:"active"`
	Rehearsal             bool                   `json:"rehearsal,omitempty"`
	RundownIDs            []rundown.RundownID    `json:"rundownIds"`
	CurrentPartInstanceID rundown.PartInstanceID `json:"currentPartInstanceId,omitempty"`
	NextPartInstanceID    rundown.PartInstanceID `json:"nextPartInstanceId,omitempty"`
}

func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	out := make([]playlistSummary, 0)
	for _, pl := range s.deps.Playlists.Playlists() {
		if s.deps.Studio != "" && pl.StudioID != s.deps.Studio {
			continue
		}
		out = append(out, playlistSummary{
			ID:                    pl.ID,
			ExternalID:            pl.ExternalID,
			Name:                  pl.Name,
			Active:                pl.Active,
			Rehearsal:             pl.Rehearsal,
			RundownIDs:            pl.RundownIDs,
			CurrentPartInstanceID: pl.CurrentPartInstanceID,
			NextPartInstanceID:    pl.NextPartInstanceID,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTiming(w http.ResponseWriter, r *http.Request) {
	id := rundown.PlaylistID(chi.URLParam(r, "playlistID"))
	tc, ok := s.deps.Timing.Latest(id)
	if !ok {
		writeProblem(w, r, http.StatusNotFound, "no timing published for playlist "+string(id))
		return
	}
	writeJSON(w, http.StatusOK, tc)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	id := rundown.RundownID(chi.URLParam(r, "rundownID"))
	snap, err := s.deps.Snapshots.Load(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if snap == nil {
		writeProblem(w, r, http.StatusNotFound, "no snapshot for rundown "+string(id))
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	rehearsal := false
	if v := r.URL.Query().Get("rehearsal"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeProblem(w, r, http.StatusBadRequest, "rehearsal must be a boolean")
			return
		}
		rehearsal = b
	}
	s.playout(w, r, func(ctx context.Context, id rundown.PlaylistID) error {
		return s.deps.Playout.Activate(ctx, s.deps.Studio, id, rehearsal)
	})
}

func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	s.playout(w, r, func(ctx context.Context, id rundown.PlaylistID) error {
		return s.deps.Playout.Deactivate(ctx, s.deps.Studio, id)
	})
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	s.playout(w, r, func(ctx context.Context, id rundown.PlaylistID) error {
		return s.deps.Playout.Take(ctx, s.deps.Studio, id)
	})
}

type setNextRequest struct {
	PartID rundown.PartID `json:"partId"`
}

func (s *Server) handleSetNext(w http.ResponseWriter, r *http.Request) {
	var req setNextRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil || req.PartID == "" {
		writeProblem(w, r, http.StatusBadRequest, "body must be {\"partId\": \"...\"}")
		return
	}
	s.playout(w, r, func(ctx context.Context, id rundown.PlaylistID) error {
		return s.deps.Playout.SetNext(ctx, s.deps.Studio, id, req.PartID)
	})
}

func (s *Server) playout(w http.ResponseWriter, r *http.Request, op func(context.Context, rundown.PlaylistID) error) {
	id := rundown.PlaylistID(chi.URLParam(r, "playlistID"))
	if err := op(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
