// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
	"github.com/ManuGH/rundownd/internal/telemetry"
)

// DiffAndApplyChanges diffs prev against next and the live segments of ws,
// then updates ws: rank-only changes, renamed segments, emptied removed
// segments and regenerated added and changed segments. It returns nil when
// no segment changed.
func DiffAndApplyChanges(ctx context.Context, gen SegmentGenerator, ws *state.Workspace, prev, next *ingest.Rundown) (*CommitData, error) {
	if next == nil {
		return nil, rundown.Internal("diff of rundown %q lost the new snapshot", ws.RundownID)
	}
	if ws.Rundown == nil {
		return nil, rundown.NotFound("rundown %q (%q) not found", ws.RundownID, ws.RundownExternalID)
	}

	_, span := telemetry.Tracer("rundownd/ingest").Start(ctx, "ingest.diffAndApplyChanges")
	var err error
	defer func() { telemetry.EndSpan(span, err) }()

	var prevSegments []ingest.Segment
	if prev != nil {
		prevSegments = prev.Segments
	}
	oldEntries, err := ingest.CompileSegmentEntries(prevSegments)
	if err != nil {
		return nil, err
	}
	newEntries, err := ingest.CompileSegmentEntries(next.Segments)
	if err != nil {
		return nil, err
	}
	diff := ingest.DiffSegmentEntries(oldEntries, newEntries, ws.SegmentsByRank())

	metrics.RecordDiff(diff.Added.Len(), diff.Changed.Len(), diff.Removed.Len(), diff.Unchanged.Len(),
		len(diff.OnlyRankChanged), len(diff.ExternalIDChanged))
	span.SetAttributes(telemetry.DiffAttributes(diff.Added.Len(), diff.Changed.Len(), diff.Removed.Len(),
		diff.Unchanged.Len(), len(diff.ExternalIDChanged))...)

	if diff.Added.Len() == 0 && diff.Changed.Len() == 0 && diff.Removed.Len() == 0 {
		return nil, nil
	}

	segmentID := func(externalID string) rundown.SegmentID {
		// external ids were validated by CompileSegmentEntries
		id, _ := rundown.SegmentIDFor(ws.RundownID, externalID)
		return id
	}

	for ext, rank := range diff.OnlyRankChanged {
		ws.SetRank(segmentID(ext), rank)
	}

	commit := &CommitData{RenamedSegments: make(map[rundown.SegmentID]rundown.SegmentID)}
	for oldExt, newExt := range diff.ExternalIDChanged {
		from, to := segmentID(oldExt), segmentID(newExt)
		if seg, ok := ws.Segments[from]; ok {
			if _, exists := ws.Segments[to]; !exists {
				moved := *seg
				moved.ID = to
				moved.ExternalID = newExt
				ws.PutSegment(moved)
			}
		}
		ws.MoveSegmentContents(from, to)
		commit.RenamedSegments[from] = to
	}

	for _, ext := range diff.Removed.Keys() {
		id := segmentID(ext)
		ws.RemoveSegmentParts(id)
		commit.RemovedSegmentIDs = append(commit.RemovedSegmentIDs, id)
	}

	for _, seg := range ingest.SortedByRank(diff.Added, diff.Changed) {
		live, parts, genErr := gen.Generate(ws.RundownID, seg)
		if genErr != nil {
			err = genErr
			return nil, err
		}
		ws.PutSegment(live)
		ws.ReplaceSegmentParts(live.ID, parts)
		commit.ChangedSegmentIDs = append(commit.ChangedSegmentIDs, live.ID)
	}

	return commit, nil
}

// UpdateRundown creates the rundown and its playlist from next when they do
// not exist, and diffs and applies it otherwise. A nil next removes the
// rundown. Unsynced rundowns only accept a create.
func UpdateRundown(gen SegmentGenerator, now func() int64, isCreate bool) CalcFunc {
	return func(ctx context.Context, ws *state.Workspace, next, prev *ingest.Rundown) (*CommitData, error) {
		if next == nil {
			if ws.Rundown == nil {
				return nil, nil
			}
			return &CommitData{RemoveRundown: true}, nil
		}

		touched := false
		if ws.Rundown != nil && ws.Rundown.Unsynced {
			if !isCreate {
				logger := log.WithContext(ctx, log.WithComponent("ingest"))
				logger.Info().
					Str(log.FieldEvent, "ingest.rundown_unsynced").
					Str(log.FieldRundownID, string(ws.RundownID)).
					Msg("rundown has been unsynced and needs to be synced before it can be updated")
				return nil, nil
			}
			ws.Rundown.Unsynced = false
			touched = true
		}

		if ws.Rundown == nil {
			ts := now()
			playlistID := rundown.PlaylistIDFor(ws.StudioID, ws.RundownExternalID)
			ws.Rundown = &rundown.Rundown{
				ID:         ws.RundownID,
				ExternalID: ws.RundownExternalID,
				StudioID:   ws.StudioID,
				PlaylistID: playlistID,
				Name:       next.Name,
				Created:    ts,
				Modified:   ts,
			}
			ws.Playlist = &rundown.Playlist{
				ID:         playlistID,
				ExternalID: ws.RundownExternalID,
				StudioID:   ws.StudioID,
				Name:       next.Name,
				Modified:   ts,
			}
			// nothing live to diff against
			prev = nil
			touched = true
		}
		if ws.Rundown.Name != next.Name {
			ws.Rundown.Name = next.Name
			touched = true
		}

		commit, err := DiffAndApplyChanges(ctx, gen, ws, prev, next)
		if err != nil {
			return nil, err
		}
		if commit == nil && touched {
			commit = &CommitData{}
		}
		return commit, nil
	}
}
