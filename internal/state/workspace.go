// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package state

import (
	"maps"
	"slices"

	"github.com/ManuGH/rundownd/internal/rundown"
)

// Workspace is an isolated copy of one rundown's documents. Changes are only
// visible to others after ApplyWorkspace.
type Workspace struct {
	StudioID          rundown.StudioID
	RundownExternalID string
	RundownID         rundown.RundownID

	// Rundown is nil when the rundown does not exist (yet).
	Rundown *rundown.Rundown
	// Playlist is the playlist of Rundown, created alongside a new rundown.
	Playlist *rundown.Playlist

	Segments  map[rundown.SegmentID]*rundown.Segment
	Parts     map[rundown.PartID]*rundown.Part
	Instances map[rundown.PartInstanceID]*rundown.PartInstance

	removeRundown bool
	partsChanged  bool
}

// LoadWorkspace copies the documents of the rundown identified by
// studio and external id.
func (s *Store) LoadWorkspace(studio rundown.StudioID, externalID string) (*Workspace, error) {
	rid, err := rundown.RundownIDFor(studio, externalID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	ws := &Workspace{
		StudioID:          studio,
		RundownExternalID: externalID,
		RundownID:         rid,
		Segments:          make(map[rundown.SegmentID]*rundown.Segment),
		Parts:             make(map[rundown.PartID]*rundown.Part),
		Instances:         make(map[rundown.PartInstanceID]*rundown.PartInstance),
	}
	r, ok := s.rundowns[rid]
	if !ok {
		return ws, nil
	}
	ws.Rundown = clonePtr(r)
	ws.Playlist = s.playlists[r.PlaylistID].Clone()
	for id, seg := range s.segments {
		if seg.RundownID == rid {
			ws.Segments[id] = clonePtr(seg)
		}
	}
	for id, p := range s.parts {
		if p.RundownID == rid {
			ws.Parts[id] = clonePtr(p)
		}
	}
	for id, inst := range s.instances {
		if inst.RundownID == rid {
			ws.Instances[id] = clonePtr(inst)
		}
	}
	return ws, nil
}

// SegmentsByRank returns the segments ordered by rank.
func (w *Workspace) SegmentsByRank() []rundown.Segment {
	out := make([]rundown.Segment, 0, len(w.Segments))
	for _, seg := range w.Segments {
		out = append(out, *seg)
	}
	slices.SortFunc(out, compareSegments)
	return out
}

// SegmentParts returns the parts of a segment ordered by rank.
func (w *Workspace) SegmentParts(id rundown.SegmentID) []rundown.Part {
	out := make([]rundown.Part, 0)
	for _, p := range w.Parts {
		if p.SegmentID == id {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, compareParts)
	return out
}

// PutSegment stores a copy of seg.
func (w *Workspace) PutSegment(seg rundown.Segment) {
	w.Segments[seg.ID] = &seg
}

// ReplaceSegmentParts swaps the parts of a segment for parts.
func (w *Workspace) ReplaceSegmentParts(id rundown.SegmentID, parts []rundown.Part) {
	w.RemoveSegmentParts(id)
	for _, p := range parts {
		p.SegmentID = id
		w.Parts[p.ID] = &p
	}
	w.partsChanged = true
}

// RemoveSegmentParts deletes every part of a segment and keeps the segment.
func (w *Workspace) RemoveSegmentParts(id rundown.SegmentID) {
	for pid, p := range w.Parts {
		if p.SegmentID == id {
			delete(w.Parts, pid)
			w.partsChanged = true
		}
	}
}

// RemoveSegment deletes a segment with its parts.
func (w *Workspace) RemoveSegment(id rundown.SegmentID) {
	w.RemoveSegmentParts(id)
	delete(w.Segments, id)
}

// MoveSegmentContents reassigns the parts and instances of from to to.
func (w *Workspace) MoveSegmentContents(from, to rundown.SegmentID) {
	for _, p := range w.Parts {
		if p.SegmentID == from {
			p.SegmentID = to
			w.partsChanged = true
		}
	}
	for _, inst := range w.Instances {
		if inst.SegmentID == from {
			inst.SegmentID = to
			inst.Part.SegmentID = to
		}
	}
}

// SetRank updates the rank of a segment if it exists.
func (w *Workspace) SetRank(id rundown.SegmentID, rank int) bool {
	seg, ok := w.Segments[id]
	if !ok {
		return false
	}
	if seg.Rank != rank {
		seg.Rank = rank
		w.partsChanged = true
	}
	return true
}

// DeleteRundown marks the whole rundown for removal on apply.
func (w *Workspace) DeleteRundown() {
	w.removeRundown = true
}

// RemovesRundown reports whether DeleteRundown was called.
func (w *Workspace) RemovesRundown() bool { return w.removeRundown }

// ApplyWorkspace writes the workspace back. Segments and parts of the
// rundown that are absent from the workspace are deleted.
func (s *Store) ApplyWorkspace(w *Workspace) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w.removeRundown {
		s.removeRundown(w.RundownID)
		return nil
	}
	if w.Rundown == nil {
		return rundown.NotFound("rundown %q (%q) not found", w.RundownID, w.RundownExternalID)
	}

	if w.Playlist != nil {
		pl := w.Playlist.Clone()
		if cur, ok := s.playlists[pl.ID]; ok {
			// playout owns current/next state
			pl.Active = cur.Active
			pl.Rehearsal = cur.Rehearsal
			pl.CurrentPartInstanceID = cur.CurrentPartInstanceID
			pl.NextPartInstanceID = cur.NextPartInstanceID
			pl.PreviousPartInstanceID = cur.PreviousPartInstanceID
			for _, rid := range cur.RundownIDs {
				if !slices.Contains(pl.RundownIDs, rid) {
					pl.RundownIDs = append(pl.RundownIDs, rid)
				}
			}
		}
		if !slices.Contains(pl.RundownIDs, w.RundownID) {
			pl.RundownIDs = append(pl.RundownIDs, w.RundownID)
		}
		s.playlists[pl.ID] = pl
	}
	s.rundowns[w.RundownID] = clonePtr(w.Rundown)

	syncDocs(s.segments, w.Segments, func(seg *rundown.Segment) bool { return seg.RundownID == w.RundownID })
	syncDocs(s.parts, w.Parts, func(p *rundown.Part) bool { return p.RundownID == w.RundownID })
	// Instances belong to playout; only segment moves are carried over.
	for id, inst := range w.Instances {
		if cur, ok := s.instances[id]; ok && cur.SegmentID != inst.SegmentID {
			cur.SegmentID = inst.SegmentID
			cur.Part.SegmentID = inst.SegmentID
		}
	}

	if w.partsChanged || w.Playlist != nil {
		s.bumpGeneration(w.Rundown.PlaylistID)
	}
	return nil
}

func syncDocs[K comparable, V any](dst, src map[K]*V, owned func(*V) bool) {
	maps.DeleteFunc(dst, func(k K, v *V) bool {
		_, keep := src[k]
		return owned(v) && !keep
	})
	for k, v := range src {
		dst[k] = clonePtr(v)
	}
}
