// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playout owns the on-air state of playlists: activation, the next
// part and takes. Every operation runs under the playlist lock shared with
// ingest.
package playout

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/rundownd/internal/lock"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
	"github.com/ManuGH/rundownd/internal/telemetry"
)

// Service runs playout operations against the runtime state.
type Service struct {
	state  *state.Store
	locks  *lock.PlaylistLocks
	clock  func() time.Time
	logger zerolog.Logger
	tracer trace.Tracer
}

// New returns a playout service. locks must be the set the ingest pipeline
// uses. A nil clock means time.Now.
func New(st *state.Store, locks *lock.PlaylistLocks, clock func() time.Time) *Service {
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		state:  st,
		locks:  locks,
		clock:  clock,
		logger: log.WithComponent("playout"),
		tracer: telemetry.Tracer("rundownd/playout"),
	}
}

func (s *Service) loggerFor(ctx context.Context) *zerolog.Logger {
	logger := log.WithContext(ctx, s.logger)
	return &logger
}

type opFunc func(ctx context.Context, pl *rundown.Playlist, now int64) error

func (s *Service) run(ctx context.Context, name string, studio rundown.StudioID, id rundown.PlaylistID, fn opFunc) (err error) {
	defer func() { metrics.RecordPlayoutOperation(name, err) }()

	ctx, span := s.tracer.Start(ctx, "playout."+name,
		trace.WithAttributes(telemetry.PlayoutAttributes(name, string(id))...))
	defer func() { telemetry.EndSpan(span, err) }()

	err = s.locks.Run(ctx, nil, studio, id, func(*lock.PlaylistLock) error {
		pl, ok := s.state.Playlist(id)
		if !ok || pl.StudioID != studio {
			return rundown.NotFound("playlist %q not found", id)
		}
		if err := fn(ctx, pl, s.clock().UnixMilli()); err != nil {
			return err
		}
		s.state.PutPlaylist(pl)
		return nil
	})
	if err != nil {
		s.loggerFor(ctx).Warn().Err(err).
			Str(log.FieldEvent, "playout."+name+".failed").
			Str(log.FieldPlaylistID, string(id)).
			Msg("playout operation failed")
	}
	return err
}

// Activate puts a playlist on air. Instances of earlier activations are
// reset and the first playable part becomes next.
func (s *Service) Activate(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID, rehearsal bool) error {
	return s.run(ctx, "activate", studio, id, func(ctx context.Context, pl *rundown.Playlist, now int64) error {
		if pl.Active {
			return rundown.Conflict("playlist %q is already active", id)
		}
		reset := s.state.ResetInstances(id)
		pl.Active = true
		pl.Rehearsal = rehearsal
		pl.CurrentPartInstanceID = ""
		pl.PreviousPartInstanceID = ""
		pl.NextPartInstanceID = ""
		pl.Modified = now
		if next, ok := firstPlayable(s.state.OrderedParts(id), 0); ok {
			pl.NextPartInstanceID = s.newInstance(next).ID
		}
		s.loggerFor(ctx).Info().
			Str(log.FieldEvent, "playout.activated").
			Str(log.FieldPlaylistID, string(id)).
			Bool("rehearsal", rehearsal).
			Int("reset_instances", reset).
			Msg("playlist activated")
		return nil
	})
}

// Deactivate takes a playlist off air. The playing instance is finalised and
// every instance is reset.
func (s *Service) Deactivate(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID) error {
	return s.run(ctx, "deactivate", studio, id, func(ctx context.Context, pl *rundown.Playlist, now int64) error {
		if !pl.Active {
			return nil
		}
		s.finalise(pl.CurrentPartInstanceID, now)
		s.state.ResetInstances(id)
		pl.Active = false
		pl.Rehearsal = false
		pl.CurrentPartInstanceID = ""
		pl.PreviousPartInstanceID = ""
		pl.NextPartInstanceID = ""
		pl.Modified = now
		s.loggerFor(ctx).Info().
			Str(log.FieldEvent, "playout.deactivated").
			Str(log.FieldPlaylistID, string(id)).
			Msg("playlist deactivated")
		return nil
	})
}

// SetNext queues a part to be taken next.
func (s *Service) SetNext(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID, partID rundown.PartID) error {
	return s.run(ctx, "setNext", studio, id, func(ctx context.Context, pl *rundown.Playlist, now int64) error {
		if !pl.Active {
			return rundown.Conflict("playlist %q is not active", id)
		}
		var part *rundown.Part
		for _, p := range s.state.OrderedParts(id) {
			if p.ID == partID {
				part = &p
				break
			}
		}
		if part == nil {
			return rundown.NotFound("part %q not found in playlist %q", partID, id)
		}
		if part.Invalid {
			return rundown.BadRequest("part %q is invalid", partID)
		}
		s.replaceNext(pl, part)
		pl.Modified = now
		s.loggerFor(ctx).Debug().
			Str(log.FieldEvent, "playout.next_set").
			Str(log.FieldPlaylistID, string(id)).
			Str(log.FieldPartID, string(partID)).
			Msg("next part set")
		return nil
	})
}

// Take ends the current part, starts the next one and queues the following
// playable part.
func (s *Service) Take(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID) error {
	return s.run(ctx, "take", studio, id, func(ctx context.Context, pl *rundown.Playlist, now int64) error {
		if !pl.Active {
			return rundown.Conflict("playlist %q is not active", id)
		}
		next, ok := s.state.Instance(pl.NextPartInstanceID)
		if pl.NextPartInstanceID == "" || !ok {
			return rundown.Conflict("playlist %q has no next part", id)
		}

		s.finalise(pl.CurrentPartInstanceID, now)
		next.Timings.StartedPlayback = now
		next.Timings.Duration = 0
		s.state.PutInstance(next)

		pl.PreviousPartInstanceID = pl.CurrentPartInstanceID
		pl.CurrentPartInstanceID = next.ID
		pl.NextPartInstanceID = ""
		pl.Modified = now

		parts := s.state.OrderedParts(id)
		from := len(parts)
		for i, p := range parts {
			if p.ID == next.Part.ID {
				from = i + 1
				break
			}
		}
		following, ok := firstPlayable(parts, from)
		if !ok && pl.Loop {
			following, ok = firstPlayable(parts, 0)
		}
		if ok {
			pl.NextPartInstanceID = s.newInstance(following).ID
		}

		s.loggerFor(ctx).Info().
			Str(log.FieldEvent, "playout.take").
			Str(log.FieldPlaylistID, string(id)).
			Str(log.FieldPartID, string(next.Part.ID)).
			Str(log.FieldInstanceID, string(next.ID)).
			Msg("part taken")
		return nil
	})
}

// finalise stores the played duration of a playing instance.
func (s *Service) finalise(id rundown.PartInstanceID, now int64) {
	if id == "" {
		return
	}
	inst, ok := s.state.Instance(id)
	if !ok || !inst.Timings.Playing() {
		return
	}
	inst.Timings.Duration = max(now-inst.Timings.StartedPlayback, 1)
	s.state.PutInstance(inst)
}

// replaceNext drops the queued instance, which never played, and queues part.
func (s *Service) replaceNext(pl *rundown.Playlist, part *rundown.Part) {
	if pl.NextPartInstanceID != "" && pl.NextPartInstanceID != pl.CurrentPartInstanceID {
		if old, ok := s.state.Instance(pl.NextPartInstanceID); ok {
			old.Reset = true
			s.state.PutInstance(old)
		}
	}
	pl.NextPartInstanceID = s.newInstance(*part).ID
}

func (s *Service) newInstance(p rundown.Part) *rundown.PartInstance {
	inst := &rundown.PartInstance{
		ID:        rundown.NewPartInstanceID(),
		RundownID: p.RundownID,
		SegmentID: p.SegmentID,
		Part:      p,
	}
	s.state.PutInstance(inst)
	return inst
}

// firstPlayable returns the first part at or after from that can be taken.
func firstPlayable(parts []rundown.Part, from int) (rundown.Part, bool) {
	for _, p := range parts[min(from, len(parts)):] {
		if !p.Floated && !p.Invalid {
			return p, true
		}
	}
	return rundown.Part{}, false
}
