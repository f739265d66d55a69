// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"cmp"
	"slices"

	"github.com/ManuGH/rundownd/internal/rundown"
)

// SegmentEntries is a set of segments keyed by external id that remembers
// insertion order.
type SegmentEntries struct {
	order []string
	byID  map[string]Segment
}

// NewSegmentEntries returns an empty set.
func NewSegmentEntries() *SegmentEntries {
	return &SegmentEntries{byID: make(map[string]Segment)}
}

// CompileSegmentEntries copies segs into a set. Duplicate external ids are an error.
func CompileSegmentEntries(segs []Segment) (*SegmentEntries, error) {
	out := &SegmentEntries{
		order: make([]string, 0, len(segs)),
		byID:  make(map[string]Segment, len(segs)),
	}
	for _, s := range segs {
		if _, dup := out.byID[s.ExternalID]; dup {
			return nil, &rundown.Error{
				Code:    500,
				Message: "non-unique segment external id: \"" + s.ExternalID + "\"",
				Err:     rundown.ErrDuplicateExternalID,
			}
		}
		out.put(s.ExternalID, s.Clone())
	}
	return out, nil
}

func (e *SegmentEntries) put(id string, s Segment) {
	if _, ok := e.byID[id]; !ok {
		e.order = append(e.order, id)
	}
	e.byID[id] = s
}

// Get returns the segment with the given external id.
func (e *SegmentEntries) Get(id string) (Segment, bool) {
	if e == nil {
		return Segment{}, false
	}
	s, ok := e.byID[id]
	return s, ok
}

// Has reports whether id is present.
func (e *SegmentEntries) Has(id string) bool {
	_, ok := e.Get(id)
	return ok
}

// Len returns the number of segments.
func (e *SegmentEntries) Len() int {
	if e == nil {
		return 0
	}
	return len(e.order)
}

// Keys returns the external ids in insertion order.
func (e *SegmentEntries) Keys() []string {
	if e == nil {
		return nil
	}
	return slices.Clone(e.order)
}

// Values returns the segments in insertion order.
func (e *SegmentEntries) Values() []Segment {
	if e == nil {
		return nil
	}
	out := make([]Segment, 0, len(e.order))
	for _, id := range e.order {
		out = append(out, e.byID[id])
	}
	return out
}

// SortedByRank merges the given sets and orders the result by rank. Ties keep
// the order in which the sets and their entries were given.
func SortedByRank(sets ...*SegmentEntries) []Segment {
	var out []Segment
	for _, s := range sets {
		out = append(out, s.Values()...)
	}
	slices.SortStableFunc(out, func(a, b Segment) int { return cmp.Compare(a.Rank, b.Rank) })
	return out
}
