// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package pipeline runs ingest operations one rundown at a time: update the
// cached snapshot, compute the change against live state and commit it under
// the playlist lock.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/ManuGH/rundownd/internal/bus"
	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/ingest/snapshot"
	"github.com/ManuGH/rundownd/internal/lock"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
	"github.com/ManuGH/rundownd/internal/telemetry"
)

// ModifiedTouchInterval is how old a rundown's Modified may get before a
// commit refreshes it.
const ModifiedTouchInterval = time.Hour

const publishTimeout = 2 * time.Second

// CommitData describes the playout relevant effects of an ingest change.
type CommitData struct {
	// ChangedSegmentIDs had any change and were regenerated.
	ChangedSegmentIDs []rundown.SegmentID
	// RemovedSegmentIDs are removed, or orphaned when on air.
	RemovedSegmentIDs []rundown.SegmentID
	// RenamedSegments maps an old segment id to its new id.
	RenamedSegments map[rundown.SegmentID]rundown.SegmentID
	// RemoveRundown removes the rundown, or orphans it when on air.
	RemoveRundown bool

	// ShowStyle and Blueprint name references already resolved during the
	// calc step, so downstream consumers need not look them up again.
	ShowStyle string
	Blueprint string
}

// CalcFunc applies the change between prev and next to ws. A nil CommitData
// means nothing playout relevant changed and ws is discarded.
type CalcFunc func(ctx context.Context, ws *state.Workspace, next, prev *ingest.Rundown) (*CommitData, error)

// Operation is one ingest mutation of a rundown.
type Operation struct {
	Name              string
	StudioID          rundown.StudioID
	RundownExternalID string
	UpdateCache       ingest.UpdateCacheFunc
	Calc              CalcFunc
	// PlaylistLock is set when the caller already holds the playlist lock.
	PlaylistLock *lock.PlaylistLock
}

// CommittedEvent is published on bus.TopicIngestCommitted after a commit.
type CommittedEvent struct {
	Operation  string
	StudioID   rundown.StudioID
	PlaylistID rundown.PlaylistID
	RundownID  rundown.RundownID
	Commit     CommitData
}

// Deps are the collaborators of a Pipeline.
type Deps struct {
	Snapshots     snapshot.Store
	State         *state.Store
	PlaylistLocks *lock.PlaylistLocks
	Bus           bus.Bus
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// Pipeline serializes ingest operations per rundown.
type Pipeline struct {
	snapshots     snapshot.Store
	state         *state.Store
	rundownLocks  *lock.Keyed
	playlistLocks *lock.PlaylistLocks
	bus           bus.Bus
	clock         func() time.Time
	tracer        trace.Tracer
	logger        zerolog.Logger
}

func New(d Deps) *Pipeline {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.PlaylistLocks == nil {
		d.PlaylistLocks = lock.NewPlaylistLocks()
	}
	return &Pipeline{
		snapshots:     d.Snapshots,
		state:         d.State,
		rundownLocks:  lock.NewKeyed("rundown"),
		playlistLocks: d.PlaylistLocks,
		bus:           d.Bus,
		clock:         d.Clock,
		tracer:        telemetry.Tracer("rundownd/ingest"),
		logger:        log.WithComponent("ingest"),
	}
}

// PlaylistLocks returns the lock set shared with playout.
func (p *Pipeline) PlaylistLocks() *lock.PlaylistLocks { return p.playlistLocks }

// Now returns the pipeline clock in milliseconds.
func (p *Pipeline) Now() int64 { return p.clock().UnixMilli() }

func rundownLockKey(studio rundown.StudioID, externalID string) string {
	return "rundown_ingest_" + string(studio) + "_" + externalID
}

// Run executes op. ctx only bounds the wait for the rundown lock; once the
// operation's turn begins it runs to completion. The commit event is
// published after the rundown lock is released.
func (p *Pipeline) Run(ctx context.Context, op Operation) error {
	ev, err := p.run(ctx, op)
	if ev != nil {
		p.publish(context.WithoutCancel(ctx), *ev)
	}
	return err
}

// run holds the rundown lock for op and returns the event to publish once a
// commit has been applied, even when the snapshot save failed.
func (p *Pipeline) run(ctx context.Context, op Operation) (ev *CommittedEvent, err error) {
	start := time.Now()
	outcome := "error"
	defer func() {
		if err == nil && outcome == "error" {
			outcome = "success"
		}
		metrics.RecordIngestOperation(op.Name, outcome, time.Since(start))
	}()

	if op.PlaylistLock != nil && op.PlaylistLock.StudioID() != op.StudioID {
		return nil, rundown.Internal("%s called for studio %q with playlist lock from %q", op.Name, op.StudioID, op.PlaylistLock.StudioID())
	}
	rundownID, err := rundown.RundownIDFor(op.StudioID, op.RundownExternalID)
	if err != nil {
		return nil, err
	}

	release, err := p.rundownLocks.Acquire(ctx, rundownLockKey(op.StudioID, op.RundownExternalID))
	if err != nil {
		outcome = "canceled"
		return nil, err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	ctx, span := p.tracer.Start(ctx, "ingest."+op.Name,
		trace.WithAttributes(telemetry.IngestAttributes(op.Name, string(op.StudioID), op.RundownExternalID)...))
	defer func() { telemetry.EndSpan(span, err) }()

	logger := log.WithContext(ctx, p.logger).With().
		Str(log.FieldOperation, op.Name).
		Str(log.FieldRundownID, string(rundownID)).
		Str(log.FieldRundownExtID, op.RundownExternalID).
		Logger()

	prev, err := p.snapshots.Load(ctx, rundownID)
	if err != nil {
		return nil, err
	}
	next, err := op.UpdateCache(prev.Clone())
	if errors.Is(err, ingest.ErrRejectChange) {
		outcome = "rejected"
		logger.Debug().Str(log.FieldEvent, "ingest.rejected").Msg("ingest change rejected")
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	saved := make(chan error, 1)
	go func(next *ingest.Rundown) {
		if next == nil {
			saved <- p.snapshots.Delete(ctx, rundownID)
			return
		}
		saved <- p.snapshots.Save(ctx, rundownID, next)
	}(next.Clone())
	defer func() {
		if serr := <-saved; serr != nil {
			logger.Error().Err(serr).Str(log.FieldEvent, "ingest.snapshot_save_failed").Msg("failed to save ingest snapshot")
			err = errors.Join(err, serr)
		}
	}()

	ws, err := p.state.LoadWorkspace(op.StudioID, op.RundownExternalID)
	if err != nil {
		return nil, err
	}
	commit, err := op.Calc(ctx, ws, next, prev)
	if err != nil {
		return nil, err
	}
	if commit == nil {
		outcome = "noop"
		return nil, nil
	}
	if ws.Rundown == nil {
		return nil, rundown.NotFound("rundown %q (%q) not found", rundownID, op.RundownExternalID)
	}

	playlistID := ws.Rundown.PlaylistID
	err = p.playlistLocks.Run(ctx, op.PlaylistLock, op.StudioID, playlistID, func(*lock.PlaylistLock) error {
		return p.commit(ctx, ws, commit)
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str(log.FieldEvent, "ingest.committed").
		Str(log.FieldPlaylistID, string(playlistID)).
		Int("changed_segments", len(commit.ChangedSegmentIDs)).
		Int("removed_segments", len(commit.RemovedSegmentIDs)).
		Bool("remove_rundown", commit.RemoveRundown).
		Msg("ingest change committed")

	return &CommittedEvent{
		Operation:  op.Name,
		StudioID:   op.StudioID,
		PlaylistID: playlistID,
		RundownID:  rundownID,
		Commit:     *commit,
	}, nil
}

func (p *Pipeline) publish(ctx context.Context, ev CommittedEvent) {
	if p.bus == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := p.bus.Publish(pubCtx, bus.TopicIngestCommitted, ev); err != nil {
		p.logger.Warn().Err(err).
			Str(log.FieldEvent, "ingest.publish_failed").
			Str(log.FieldRundownID, string(ev.RundownID)).
			Msg("failed to publish commit event")
	}
}

// RundownOnlyFunc changes a rundown without playout relevant effects.
type RundownOnlyFunc func(ctx context.Context, ws *state.Workspace) error

// RunRundownOnly runs fn under the rundown lock and saves the workspace under
// the playlist lock. fn must not move the rundown to another playlist.
func (p *Pipeline) RunRundownOnly(ctx context.Context, name string, studio rundown.StudioID, externalID string, held *lock.PlaylistLock, fn RundownOnlyFunc) (err error) {
	start := time.Now()
	defer func() {
		metrics.RecordIngestOperation(name, outcomeOf(err), time.Since(start))
	}()

	if held != nil && held.StudioID() != studio {
		return rundown.Internal("%s called for studio %q with playlist lock from %q", name, studio, held.StudioID())
	}
	release, err := p.rundownLocks.Acquire(ctx, rundownLockKey(studio, externalID))
	if err != nil {
		return err
	}
	defer release()

	ctx = context.WithoutCancel(ctx)
	ctx, span := p.tracer.Start(ctx, "ingest."+name,
		trace.WithAttributes(telemetry.IngestAttributes(name, string(studio), externalID)...))
	defer func() { telemetry.EndSpan(span, err) }()

	ws, err := p.state.LoadWorkspace(studio, externalID)
	if err != nil {
		return err
	}
	if ws.Rundown == nil {
		return rundown.NotFound("rundown %q (%q) not found", ws.RundownID, externalID)
	}
	before := ws.Rundown.PlaylistID

	if err := fn(ctx, ws); err != nil {
		return err
	}
	if ws.Rundown == nil || ws.Rundown.PlaylistID != before {
		return rundown.Internal("playlist of rundown %q cannot be changed during %s", ws.RundownID, name)
	}

	return p.playlistLocks.Run(ctx, held, studio, before, func(*lock.PlaylistLock) error {
		return p.state.ApplyWorkspace(ws)
	})
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
