// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package rundown holds the plan and playout data model shared by the timing
// engine and the ingest pipeline. Durations and timestamps are integer
// milliseconds; a zero value means "not set".
package rundown

// Part is a schedulable unit of a rundown.
type Part struct {
	ID                   PartID    `json:"id"`
	ExternalID           string    `json:"externalId"`
	RundownID            RundownID `json:"rundownId"`
	SegmentID            SegmentID `json:"segmentId"`
	Rank                 float64   `json:"rank"`
	Title                string    `json:"title"`
	ExpectedDuration     int64     `json:"expectedDuration,omitempty"`
	DisplayDuration      int64     `json:"displayDuration,omitempty"`
	DisplayDurationGroup string    `json:"displayDurationGroup,omitempty"`
	Floated              bool      `json:"floated,omitempty"`
	Invalid              bool      `json:"invalid,omitempty"`
	Gap                  bool      `json:"gap,omitempty"`
	AutoNext             bool      `json:"autoNext,omitempty"`
}

// PartInstanceTimings records the playback of one part instance.
type PartInstanceTimings struct {
	StartedPlayback int64 `json:"startedPlayback,omitempty"`
	Duration        int64 `json:"duration,omitempty"`
	PlayOffset      int64 `json:"playOffset,omitempty"`
}

// Playing reports whether playback started and has not been finalised.
func (t PartInstanceTimings) Playing() bool {
	return t.StartedPlayback != 0 && t.Duration == 0
}

// PartInstance is a live realisation of a Part.
type PartInstance struct {
	ID        PartInstanceID      `json:"id"`
	RundownID RundownID           `json:"rundownId"`
	SegmentID SegmentID           `json:"segmentId"`
	Part      Part                `json:"part"`
	Timings   PartInstanceTimings `json:"timings"`
	Temporary bool                `json:"temporary,omitempty"`
	Reset     bool                `json:"reset,omitempty"`
}

// WrapPartToTemporaryInstance builds a not-persisted instance for a part that
// has no active instance.
func WrapPartToTemporaryInstance(p Part) *PartInstance {
	return &PartInstance{
		ID:        PartInstanceID(string(p.ID) + "_tmp_instance"),
		RundownID: p.RundownID,
		SegmentID: p.SegmentID,
		Part:      p,
		Temporary: true,
	}
}

// Segment is a named group of consecutive parts.
type Segment struct {
	ID               SegmentID `json:"id"`
	ExternalID       string    `json:"externalId"`
	RundownID        RundownID `json:"rundownId"`
	Name             string    `json:"name"`
	Rank             int       `json:"rank"`
	ExternalModified int64     `json:"externalModified"`
	Unsynced         bool      `json:"unsynced,omitempty"`
}

// Rundown is the ordered segment list of one programme.
type Rundown struct {
	ID         RundownID  `json:"id"`
	ExternalID string     `json:"externalId"`
	StudioID   StudioID   `json:"studioId"`
	PlaylistID PlaylistID `json:"playlistId"`
	Name       string     `json:"name"`
	Rank       int        `json:"rank"`
	Created    int64      `json:"created"`
	Modified   int64      `json:"modified"`
	Unsynced   bool       `json:"unsynced,omitempty"`
}

// Playlist groups the rundowns loaded for playout and carries on-air state.
type Playlist struct {
	ID                     PlaylistID     `json:"id"`
	ExternalID             string         `json:"externalId"`
	StudioID               StudioID       `json:"studioId"`
	Name                   string         `json:"name"`
	RundownIDs             []RundownID    `json:"rundownIds"`
	Active                 bool           `json:"active"`
	Rehearsal              bool           `json:"rehearsal,omitempty"`
	Loop                   bool           `json:"loop,omitempty"`
	OutOfOrderTiming       bool           `json:"outOfOrderTiming,omitempty"`
	CurrentPartInstanceID  PartInstanceID `json:"currentPartInstanceId,omitempty"`
	NextPartInstanceID     PartInstanceID `json:"nextPartInstanceId,omitempty"`
	PreviousPartInstanceID PartInstanceID `json:"previousPartInstanceId,omitempty"`
	Modified               int64          `json:"modified"`
}

// Clone returns a copy that shares no slices with p.
func (p *Playlist) Clone() *Playlist {
	if p == nil {
		return nil
	}
	out := *p
	out.RundownIDs = append([]RundownID(nil), p.RundownIDs...)
	return &out
}
