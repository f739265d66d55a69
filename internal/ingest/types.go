// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package ingest holds the locally cached ingest representation of a rundown,
// the segment diff used to reconcile it with live state, and the story level
// mutations applied to it.
package ingest

import (
	"encoding/json"
	"errors"
	"slices"
)

// ErrRejectChange is returned by an UpdateCacheFunc to abandon an operation
// without any effect.
var ErrRejectChange = errors.New("ingest change rejected")

// UpdateCacheFunc derives the new snapshot from the cached one (nil when no
// snapshot exists). Returning (nil, nil) deletes the snapshot. It may modify
// old in place.
type UpdateCacheFunc func(old *Rundown) (*Rundown, error)

// Part is one ingest part. Payload is opaque and never inspected.
type Part struct {
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Rank       int             `json:"rank"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Modified   int64           `json:"modified"`
}

// Segment groups consecutive parts. Modified is the latest Modified of its parts.
type Segment struct {
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Rank       int             `json:"rank"`
	Parts      []Part          `json:"parts"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Modified   int64           `json:"modified"`
}

// Rundown is the cached ingest snapshot of one rundown.
type Rundown struct {
	ExternalID string          `json:"externalId"`
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Segments   []Segment       `json:"segments"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Modified   int64           `json:"modified"`
}

func clonePart(p Part) Part {
	p.Payload = slices.Clone(p.Payload)
	return p
}

// Clone returns a deep copy of s.
func (s Segment) Clone() Segment {
	out := s
	out.Payload = slices.Clone(s.Payload)
	if s.Parts != nil {
		out.Parts = make([]Part, len(s.Parts))
		for i, p := range s.Parts {
			out.Parts[i] = clonePart(p)
		}
	}
	return out
}

// Clone returns a deep copy of r.
func (r *Rundown) Clone() *Rundown {
	if r == nil {
		return nil
	}
	out := *r
	out.Payload = slices.Clone(r.Payload)
	if r.Segments != nil {
		out.Segments = make([]Segment, len(r.Segments))
		for i, s := range r.Segments {
			out.Segments[i] = s.Clone()
		}
	}
	return &out
}

// FindPart returns the part with the given external id.
func (r *Rundown) FindPart(externalID string) (*Part, *Segment) {
	if r == nil {
		return nil, nil
	}
	for si := range r.Segments {
		seg := &r.Segments[si]
		for pi := range seg.Parts {
			if seg.Parts[pi].ExternalID == externalID {
				return &seg.Parts[pi], seg
			}
		}
	}
	return nil, nil
}
