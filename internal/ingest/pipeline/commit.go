// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"

	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
)

// commit applies data to ws and writes it back. The caller holds the
// playlist lock.
func (p *Pipeline) commit(ctx context.Context, ws *state.Workspace, data *CommitData) error {
	logger := log.WithContext(ctx, p.logger)
	info := p.state.PlayoutInfo(ws.Rundown.PlaylistID)

	onAir := onAirSegments(info, ws.RundownID, data.RenamedSegments)

	if data.RemoveRundown {
		if len(onAir) > 0 {
			logger.Info().
				Str(log.FieldEvent, "ingest.rundown_orphaned").
				Str(log.FieldRundownID, string(ws.RundownID)).
				Msg("rundown is on air, unsyncing instead of removing")
			ws.Rundown.Unsynced = true
		} else {
			ws.DeleteRundown()
		}
		return p.state.ApplyWorkspace(ws)
	}

	for _, id := range data.RemovedSegmentIDs {
		seg, ok := ws.Segments[id]
		if !ok {
			continue
		}
		if onAir[id] {
			logger.Info().
				Str(log.FieldEvent, "ingest.segment_orphaned").
				Str(log.FieldSegmentID, string(id)).
				Msg("segment is on air, unsyncing instead of removing")
			seg.Unsynced = true
			continue
		}
		ws.RemoveSegment(id)
	}

	if now := p.Now(); now-ws.Rundown.Modified > ModifiedTouchInterval.Milliseconds() {
		ws.Rundown.Modified = now
	}
	return p.state.ApplyWorkspace(ws)
}

// onAirSegments returns the segments of rundownID holding the current or
// next part instance, following renames.
func onAirSegments(info *state.PlayoutInfo, rundownID rundown.RundownID, renamed map[rundown.SegmentID]rundown.SegmentID) map[rundown.SegmentID]bool {
	out := make(map[rundown.SegmentID]bool)
	if info == nil || !info.Playlist.Active {
		return out
	}
	for _, inst := range []*rundown.PartInstance{info.Current, info.Next} {
		if inst != nil && !inst.Reset && inst.RundownID == rundownID {
			id := inst.SegmentID
			if to, ok := renamed[id]; ok {
				id = to
			}
			out[id] = true
		}
	}
	return out
}
