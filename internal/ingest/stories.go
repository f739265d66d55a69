// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"encoding/json"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// Story is one entry of a newsroom running order.
type Story struct {
	ID      string          `json:"id"`
	Slug    string          `json:"slug"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RunningOrder is a full newsroom running order.
type RunningOrder struct {
	ID      string          `json:"id"`
	Slug    string          `json:"slug"`
	Stories []Story         `json:"stories"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// RundownType tags snapshots built from running orders.
const RundownType = "running-order"

var emptyPayload = json.RawMessage("{}")

type annotatedPart struct {
	externalID  string
	segmentName string
	ingest      Part
}

// SegmentName returns the segment a story slug belongs to: the text before
// the first ';', NFC normalised.
func SegmentName(slug string) string {
	name, _, _ := strings.Cut(norm.NFC.String(slug), ";")
	return name
}

// SegmentExternalID is the external id of a segment whose first part is first.
func SegmentExternalID(rundownID rundown.RundownID, first Part) string {
	return string(rundownID) + "_" + SegmentName(first.Name) + "_" + first.ExternalID
}

// Stories converts running order stories into ingest parts. Modified is
// carried over from an existing part with the same external id.
type Stories struct {
	RundownID rundown.RundownID
	// Now returns the current time in milliseconds. Defaults to the wall clock.
	Now func() int64
}

func (s Stories) now() int64 {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UnixMilli()
}

func (s Stories) toParts(stories []Story, undefinedPayload bool, existing []annotatedPart) []annotatedPart {
	byID := make(map[string]annotatedPart, len(existing))
	for _, p := range existing {
		byID[p.externalID] = p
	}
	now := s.now()
	out := make([]annotatedPart, 0, len(stories))
	for i, st := range stories {
		name := norm.NFC.String(st.Slug)
		payload := slices.Clone(st.Payload)
		if payload == nil && !undefinedPayload {
			payload = slices.Clone(emptyPayload)
		}
		modified := now
		if prev, ok := byID[st.ID]; ok {
			modified = prev.ingest.Modified
		}
		out = append(out, annotatedPart{
			externalID:  st.ID,
			segmentName: SegmentName(name),
			ingest: Part{
				ExternalID: st.ID,
				Name:       name,
				Rank:       i,
				Payload:    payload,
				Modified:   modified,
			},
		})
	}
	return out
}

type partGroup struct {
	name  string
	parts []Part
}

// groupParts joins consecutive parts with the same segment name and
// renumbers part ranks within each group.
func groupParts(parts []annotatedPart) []partGroup {
	var groups []partGroup
	for _, p := range parts {
		if n := len(groups); n > 0 && groups[n-1].name == p.segmentName {
			groups[n-1].parts = append(groups[n-1].parts, p.ingest)
			continue
		}
		groups = append(groups, partGroup{name: p.segmentName, parts: []Part{p.ingest}})
	}
	for gi := range groups {
		for i := range groups[gi].parts {
			groups[gi].parts[i].Rank = i
		}
	}
	return groups
}

func (s Stories) groupsToSegments(groups []partGroup) []Segment {
	out := make([]Segment, 0, len(groups))
	for i, g := range groups {
		var modified int64
		for _, p := range g.parts {
			modified = max(modified, p.Modified)
		}
		out = append(out, Segment{
			ExternalID: SegmentExternalID(s.RundownID, g.parts[0]),
			Name:       g.name,
			Rank:       i,
			Parts:      g.parts,
			Modified:   modified,
		})
	}
	return out
}

func (s Stories) toSegments(parts []annotatedPart) []Segment {
	return s.groupsToSegments(groupParts(parts))
}

func annotate(r *Rundown) []annotatedPart {
	var out []annotatedPart
	for _, seg := range r.Segments {
		for _, p := range seg.Parts {
			out = append(out, annotatedPart{externalID: p.ExternalID, segmentName: seg.Name, ingest: clonePart(p)})
		}
	}
	return out
}

func partIDs(seg Segment) []string {
	ids := make([]string, len(seg.Parts))
	for i, p := range seg.Parts {
		ids[i] = p.ExternalID
	}
	return ids
}

// makeChange applies modify to the flat part list and regroups the result.
// A segment's Modified is bumped when it is new or its part sequence changed.
func (s Stories) makeChange(parts []annotatedPart, modify func([]annotatedPart) ([]annotatedPart, error)) ([]Segment, error) {
	reference := s.toSegments(slices.Clone(parts))

	modified, err := modify(parts)
	if err != nil {
		return nil, err
	}

	segs := s.toSegments(modified)
	now := s.now()
	for i := range segs {
		seg := &segs[i]
		if seg.Modified == 0 {
			seg.Modified = now
			continue
		}
		idx := slices.IndexFunc(reference, func(r Segment) bool { return r.ExternalID == seg.ExternalID })
		if idx < 0 || !slices.Equal(partIDs(reference[idx]), partIDs(*seg)) {
			seg.Modified = now
		}
	}
	return segs, nil
}

// ReplaceRundown creates or reloads a rundown from a full running order. A
// reload keeps cached payloads for stories that arrive without one.
func (s Stories) ReplaceRundown(ro RunningOrder, isCreate bool) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		parts := s.toParts(ro.Stories, !isCreate, nil)

		if !isCreate && old != nil {
			cached := make(map[string]Part)
			for _, seg := range old.Segments {
				for _, p := range seg.Parts {
					cached[p.ExternalID] = p
				}
			}
			for i := range parts {
				if c, ok := cached[parts[i].externalID]; ok && parts[i].ingest.Payload == nil {
					parts[i].ingest.Payload = slices.Clone(c.Payload)
				}
			}
		}

		return &Rundown{
			ExternalID: ro.ID,
			Name:       norm.NFC.String(ro.Slug),
			Type:       RundownType,
			Segments:   s.toSegments(parts),
			Payload:    slices.Clone(ro.Payload),
			Modified:   s.now(),
		}, nil
	}
}

// UpdateRundownMetadata replaces the rundown name and payload.
func (s Stories) UpdateRundownMetadata(ro RunningOrder) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if old == nil {
			return nil, rundown.NotFound("rundown %q not found", ro.ID)
		}
		if ro.Slug != "" {
			old.Name = norm.NFC.String(ro.Slug)
		}
		if ro.Payload != nil {
			old.Payload = slices.Clone(ro.Payload)
		}
		old.Modified = s.now()
		return old, nil
	}
}

// UpdateStoryPayload stores the full payload of one story.
func (s Stories) UpdateStoryPayload(rundownExternalID string, story Story) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if old == nil {
			return nil, ErrRejectChange
		}
		p, _ := old.FindPart(story.ID)
		if p == nil {
			log.L().Warn().
				Str(log.FieldEvent, "ingest.story.missing").
				Str(log.FieldRundownExtID, rundownExternalID).
				Str("story_id", story.ID).
				Msg("story missing from cached ingest data")
			return nil, ErrRejectChange
		}
		p.Payload = slices.Clone(story.Payload)
		return old, nil
	}
}

// DeleteStories removes stories. Every id must exist.
func (s Stories) DeleteStories(rundownExternalID string, storyIDs []string) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if old == nil {
			return nil, ErrRejectChange
		}
		parts := annotate(old)
		if missing := missingIDs(parts, storyIDs); len(missing) > 0 {
			return nil, rundown.NotFound("parts %s in rundown %s were not found", strings.Join(missing, ", "), rundownExternalID)
		}
		segs, err := s.makeChange(parts, func(in []annotatedPart) ([]annotatedPart, error) {
			return slices.DeleteFunc(in, func(p annotatedPart) bool { return slices.Contains(storyIDs, p.externalID) }), nil
		})
		if err != nil {
			return nil, err
		}
		old.Segments = segs
		return old, nil
	}
}

// InsertStories inserts stories before the story beforeID, or at the end
// when beforeID is empty. With replace the anchor story is replaced.
func (s Stories) InsertStories(rundownExternalID, beforeID string, replace bool, stories []Story) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if old == nil {
			return nil, ErrRejectChange
		}
		parts := annotate(old)

		insertAt := len(parts)
		if beforeID != "" {
			insertAt = slices.IndexFunc(parts, func(p annotatedPart) bool { return p.externalID == beforeID })
			if insertAt < 0 {
				return nil, rundown.NotFound("part %s in rundown %s not found", beforeID, rundownExternalID)
			}
		}

		added := s.toParts(stories, true, parts)
		addedIDs := make([]string, len(added))
		for i, p := range added {
			addedIDs[i] = p.externalID
		}

		segs, err := s.makeChange(parts, func(in []annotatedPart) ([]annotatedPart, error) {
			out := slices.Clone(in)
			if replace && insertAt < len(out) {
				out = slices.Delete(out, insertAt, insertAt+1)
			}
			var colliding []string
			for _, p := range out {
				if slices.Contains(addedIDs, p.externalID) {
					colliding = append(colliding, p.externalID)
				}
			}
			if len(colliding) > 0 {
				return nil, rundown.Internal("parts %s already exist in rundown %s", strings.Join(colliding, ", "), rundownExternalID)
			}
			return slices.Insert(out, insertAt, added...), nil
		})
		if err != nil {
			return nil, err
		}
		old.Segments = segs
		return old, nil
	}
}

// SwapStories exchanges the positions of two stories.
func (s Stories) SwapStories(rundownExternalID, a, b string) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if a == b {
			return nil, rundown.BadRequest("cannot swap part %s with itself in rundown %s", a, rundownExternalID)
		}
		if old == nil {
			return nil, ErrRejectChange
		}
		segs, err := s.makeChange(annotate(old), func(in []annotatedPart) ([]annotatedPart, error) {
			ia := slices.IndexFunc(in, func(p annotatedPart) bool { return p.externalID == a })
			if ia < 0 {
				return nil, rundown.NotFound("story %s not found in rundown %s", a, rundownExternalID)
			}
			ib := slices.IndexFunc(in, func(p annotatedPart) bool { return p.externalID == b })
			if ib < 0 {
				return nil, rundown.NotFound("story %s not found in rundown %s", b, rundownExternalID)
			}
			in[ia], in[ib] = in[ib], in[ia]
			return in, nil
		})
		if err != nil {
			return nil, err
		}
		old.Segments = segs
		return old, nil
	}
}

// MoveStories moves stories, in the given order, before the story beforeID
// or to the end when beforeID is empty.
func (s Stories) MoveStories(rundownExternalID, beforeID string, storyIDs []string) UpdateCacheFunc {
	return func(old *Rundown) (*Rundown, error) {
		if old == nil {
			return nil, ErrRejectChange
		}
		segs, err := s.makeChange(annotate(old), func(in []annotatedPart) ([]annotatedPart, error) {
			if missing := missingIDs(in, storyIDs); len(missing) > 0 {
				return nil, rundown.NotFound("parts %s were not found in rundown %s", strings.Join(missing, ", "), rundownExternalID)
			}
			var moving, rest []annotatedPart
			for _, p := range in {
				if slices.Contains(storyIDs, p.externalID) {
					moving = append(moving, p)
				} else {
					rest = append(rest, p)
				}
			}
			slices.SortStableFunc(moving, func(x, y annotatedPart) int {
				return slices.Index(storyIDs, x.externalID) - slices.Index(storyIDs, y.externalID)
			})

			insertAt := len(rest)
			if beforeID != "" {
				insertAt = slices.IndexFunc(rest, func(p annotatedPart) bool { return p.externalID == beforeID })
				if insertAt < 0 {
					return nil, rundown.NotFound("part %s was not found in rundown %s", beforeID, rundownExternalID)
				}
			}
			return slices.Insert(rest, insertAt, moving...), nil
		})
		if err != nil {
			return nil, err
		}
		old.Segments = segs
		return old, nil
	}
}

func missingIDs(parts []annotatedPart, ids []string) []string {
	var missing []string
	for _, id := range ids {
		if !slices.ContainsFunc(parts, func(p annotatedPart) bool { return p.externalID == id }) {
			missing = append(missing, id)
		}
	}
	return missing
}
