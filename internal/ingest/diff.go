// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"slices"

	gocmp "github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ManuGH/rundownd/internal/rundown"
)

// SegmentDiff classifies every segment of an old and a new snapshot.
//
// Every key of OnlyRankChanged is also in Changed. Both sides of every
// ExternalIDChanged entry are in Removed and Added respectively.
type SegmentDiff struct {
	Added     *SegmentEntries
	Changed   *SegmentEntries
	Removed   *SegmentEntries
	Unchanged *SegmentEntries

	// OnlyRankChanged maps an external id to its new rank.
	OnlyRankChanged map[string]int
	// ExternalIDChanged maps a removed external id to the added segment that
	// appears to be the same segment renumbered by the source.
	ExternalIDChanged map[string]string
}

var contentOpts = gocmp.Options{
	cmpopts.IgnoreFields(Segment{}, "Rank"),
	cmpopts.EquateEmpty(),
}

func contentEqual(a, b Segment) bool {
	return gocmp.Equal(a, b, contentOpts)
}

// DiffSegmentEntries compares two snapshots. persisted holds the live segment
// records of the rundown; a nil slice skips the comparison against them, an
// empty one means no segment exists yet.
func DiffSegmentEntries(oldEntries, newEntries *SegmentEntries, persisted []rundown.Segment) SegmentDiff {
	diff := SegmentDiff{
		Added:             NewSegmentEntries(),
		Changed:           NewSegmentEntries(),
		Removed:           NewSegmentEntries(),
		Unchanged:         NewSegmentEntries(),
		OnlyRankChanged:   make(map[string]int),
		ExternalIDChanged: make(map[string]string),
	}

	var persistedByExt map[string]rundown.Segment
	if persisted != nil {
		persistedByExt = make(map[string]rundown.Segment, len(persisted))
		for _, s := range persisted {
			persistedByExt[s.ExternalID] = s
		}
	}

	for _, id := range newEntries.Keys() {
		next, _ := newEntries.Get(id)

		var live *rundown.Segment
		if persistedByExt != nil {
			s, ok := persistedByExt[id]
			if !ok {
				diff.Added.put(id, next)
				continue
			}
			live = &s
		}

		prev, ok := oldEntries.Get(id)
		if !ok {
			diff.Added.put(id, next)
			continue
		}

		modifiedEqual := next.Modified == prev.Modified
		rankEqual := next.Rank == prev.Rank
		if live != nil {
			modifiedEqual = next.Modified == live.ExternalModified
			rankEqual = next.Rank == live.Rank
		}
		sameContent := contentEqual(next, prev)

		if modifiedEqual && sameContent && rankEqual {
			diff.Unchanged.put(id, next)
			continue
		}
		diff.Changed.put(id, next)
		if sameContent && !rankEqual {
			diff.OnlyRankChanged[id] = next.Rank
		}
	}

	for _, id := range oldEntries.Keys() {
		if !newEntries.Has(id) {
			prev, _ := oldEntries.Get(id)
			diff.Removed.put(id, prev)
		}
	}

	// Match removed segments to added ones by name first, then by any shared
	// part. Added segments are searched in insertion order.
	added := diff.Added.Values()
	for _, id := range diff.Removed.Keys() {
		gone, _ := diff.Removed.Get(id)
		idx := slices.IndexFunc(added, func(s Segment) bool { return s.Name == gone.Name })
		if idx < 0 {
			idx = slices.IndexFunc(added, func(s Segment) bool { return sharesPart(gone, s) })
		}
		if idx >= 0 {
			diff.ExternalIDChanged[id] = added[idx].ExternalID
		}
	}

	return diff
}

func sharesPart(a, b Segment) bool {
	for _, p := range a.Parts {
		if slices.ContainsFunc(b.Parts, func(q Part) bool { return q.ExternalID == p.ExternalID }) {
			return true
		}
	}
	return false
}
