// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package state holds the live rundown and playout documents in memory.
package state

import (
	"cmp"
	"slices"
	"sync"

	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/timing"
)

// Store is the in-memory document store shared by ingest, playout and timing.
type Store struct {
	mu sync.RWMutex

	playlists map[rundown.PlaylistID]*rundown.Playlist
	rundowns  map[rundown.RundownID]*rundown.Rundown
	segments  map[rundown.SegmentID]*rundown.Segment
	parts     map[rundown.PartID]*rundown.Part
	instances map[rundown.PartInstanceID]*rundown.PartInstance

	// generations changes whenever the part list of a playlist changes
	generations map[rundown.PlaylistID]uint64
}

func NewStore() *Store {
	return &Store{
		playlists:   make(map[rundown.PlaylistID]*rundown.Playlist),
		rundowns:    make(map[rundown.RundownID]*rundown.Rundown),
		segments:    make(map[rundown.SegmentID]*rundown.Segment),
		parts:       make(map[rundown.PartID]*rundown.Part),
		instances:   make(map[rundown.PartInstanceID]*rundown.PartInstance),
		generations: make(map[rundown.PlaylistID]uint64),
	}
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

// Playlist returns a copy of the playlist.
func (s *Store) Playlist(id rundown.PlaylistID) (*rundown.Playlist, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.playlists[id]
	return p.Clone(), ok
}

// Playlists returns copies of every playlist ordered by id.
func (s *Store) Playlists() []*rundown.Playlist {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*rundown.Playlist, 0, len(s.playlists))
	for _, p := range s.playlists {
		out = append(out, p.Clone())
	}
	slices.SortFunc(out, func(a, b *rundown.Playlist) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// PutPlaylist stores a copy of p.
func (s *Store) PutPlaylist(p *rundown.Playlist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playlists[p.ID] = p.Clone()
}

// Rundown returns a copy of the rundown.
func (s *Store) Rundown(id rundown.RundownID) (*rundown.Rundown, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rundowns[id]
	return clonePtr(r), ok
}

// Segments returns the segments of a rundown ordered by rank.
func (s *Store) Segments(id rundown.RundownID) []rundown.Segment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.segmentsOf(id)
}

func (s *Store) segmentsOf(id rundown.RundownID) []rundown.Segment {
	out := make([]rundown.Segment, 0)
	for _, seg := range s.segments {
		if seg.RundownID == id {
			out = append(out, *seg)
		}
	}
	slices.SortFunc(out, compareSegments)
	return out
}

func compareSegments(a, b rundown.Segment) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func compareParts(a, b rundown.Part) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// Parts returns the parts of a rundown ordered by segment rank, then rank.
func (s *Store) Parts(id rundown.RundownID) []rundown.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rank := make(map[rundown.SegmentID]int)
	for _, seg := range s.segmentsOf(id) {
		rank[seg.ID] = seg.Rank
	}
	out := make([]rundown.Part, 0)
	for _, p := range s.parts {
		if p.RundownID == id {
			out = append(out, *p)
		}
	}
	slices.SortFunc(out, func(a, b rundown.Part) int {
		if c := cmp.Compare(rank[a.SegmentID], rank[b.SegmentID]); c != 0 {
			return c
		}
		return compareParts(a, b)
	})
	return out
}

// OrderedParts returns the parts of a playlist in playout order: rundowns in
// playlist order, segments and parts by rank.
func (s *Store) OrderedParts(id rundown.PlaylistID) []rundown.Part {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.orderedParts(id)
}

func (s *Store) orderedParts(id rundown.PlaylistID) []rundown.Part {
	pl, ok := s.playlists[id]
	if !ok {
		return nil
	}
	bySegment := make(map[rundown.SegmentID][]rundown.Part)
	for _, p := range s.parts {
		bySegment[p.SegmentID] = append(bySegment[p.SegmentID], *p)
	}
	out := make([]rundown.Part, 0, len(s.parts))
	for _, rid := range pl.RundownIDs {
		for _, seg := range s.segmentsOf(rid) {
			parts := bySegment[seg.ID]
			slices.SortFunc(parts, compareParts)
			out = append(out, parts...)
		}
	}
	return out
}

// Instance returns a copy of the part instance.
func (s *Store) Instance(id rundown.PartInstanceID) (*rundown.PartInstance, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.instances[id]
	return clonePtr(inst), ok
}

// PutInstance stores a copy of inst.
func (s *Store) PutInstance(inst *rundown.PartInstance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instances[inst.ID] = clonePtr(inst)
}

// ResetInstances flags every instance of the playlist's rundowns as reset.
func (s *Store) ResetInstances(id rundown.PlaylistID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.playlists[id]
	if !ok {
		return 0
	}
	n := 0
	for _, inst := range s.instances {
		if !inst.Reset && slices.Contains(pl.RundownIDs, inst.RundownID) {
			inst.Reset = true
			n++
		}
	}
	return n
}

// PlayoutInfo is the playout state an ingest commit needs to respect.
type PlayoutInfo struct {
	Playlist *rundown.Playlist
	Rundowns []rundown.Rundown
	Current  *rundown.PartInstance
	Next     *rundown.PartInstance
}

// PlayoutInfo returns the playout state of a playlist, or nil when the
// playlist does not exist.
func (s *Store) PlayoutInfo(id rundown.PlaylistID) *PlayoutInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pl, ok := s.playlists[id]
	if !ok {
		return nil
	}
	info := &PlayoutInfo{Playlist: pl.Clone()}
	for _, rid := range pl.RundownIDs {
		if r, ok := s.rundowns[rid]; ok {
			info.Rundowns = append(info.Rundowns, *r)
		}
	}
	if pl.CurrentPartInstanceID != "" {
		info.Current = clonePtr(s.instances[pl.CurrentPartInstanceID])
	}
	if pl.NextPartInstanceID != "" {
		info.Next = clonePtr(s.instances[pl.NextPartInstanceID])
	}
	return info
}

// Generation returns the part list generation of a playlist.
func (s *Store) Generation(id rundown.PlaylistID) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generations[id]
}

// TimingInputs returns one timing input per playlist. Now and
// IsLowResolution are left for the caller.
func (s *Store) TimingInputs() []timing.Input {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]rundown.PlaylistID, 0, len(s.playlists))
	for id := range s.playlists {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]timing.Input, 0, len(ids))
	for _, id := range ids {
		pl := s.playlists[id]
		out = append(out, timing.Input{
			Playlist:   pl.Clone(),
			Parts:      s.orderedParts(id),
			Instances:  s.activeInstances(pl),
			Generation: s.generations[id],
		})
	}
	return out
}

// activeInstances maps each part to its live instance. The current and next
// instances win over older ones of the same part.
func (s *Store) activeInstances(pl *rundown.Playlist) map[rundown.PartID]*rundown.PartInstance {
	out := make(map[rundown.PartID]*rundown.PartInstance)
	for _, inst := range s.instances {
		if inst.Reset || !slices.Contains(pl.RundownIDs, inst.RundownID) {
			continue
		}
		prev, ok := out[inst.Part.ID]
		if ok && prev.Timings.StartedPlayback >= inst.Timings.StartedPlayback {
			continue
		}
		out[inst.Part.ID] = clonePtr(inst)
	}
	for _, id := range []rundown.PartInstanceID{pl.NextPartInstanceID, pl.CurrentPartInstanceID} {
		if inst, ok := s.instances[id]; ok && id != "" && !inst.Reset {
			out[inst.Part.ID] = clonePtr(inst)
		}
	}
	return out
}

func (s *Store) bumpGeneration(id rundown.PlaylistID) {
	if id != "" {
		s.generations[id]++
	}
}

// RemoveRundown deletes a rundown with its segments, parts and instances,
// and detaches it from its playlist. An emptied playlist is deleted.
func (s *Store) RemoveRundown(id rundown.RundownID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeRundown(id)
}

func (s *Store) removeRundown(id rundown.RundownID) {
	r, ok := s.rundowns[id]
	if !ok {
		return
	}
	delete(s.rundowns, id)
	for sid, seg := range s.segments {
		if seg.RundownID == id {
			delete(s.segments, sid)
		}
	}
	for pid, p := range s.parts {
		if p.RundownID == id {
			delete(s.parts, pid)
		}
	}
	for iid, inst := range s.instances {
		if inst.RundownID == id {
			delete(s.instances, iid)
		}
	}
	if pl, ok := s.playlists[r.PlaylistID]; ok {
		pl.RundownIDs = slices.DeleteFunc(pl.RundownIDs, func(x rundown.RundownID) bool { return x == id })
		if len(pl.RundownIDs) == 0 {
			delete(s.playlists, pl.ID)
			delete(s.generations, pl.ID)
			return
		}
	}
	s.bumpGeneration(r.PlaylistID)
}
