// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rundown

import (
	"github.com/google/uuid"
)

// Typed identifiers. Keeping one type per entity kind stops a segment id
// from being used where a part id is expected.
type (
	StudioID       string
	PlaylistID     string
	RundownID      string
	SegmentID      string
	PartID         string
	PartInstanceID string
)

var idNamespace = uuid.MustParse("5b8f3c2e-7a71-4f0e-9d55-2d8c6a1e4b90")

func hashID(name string) string {
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}

// RundownIDFor derives the stable rundown id for an external id within a studio.
func RundownIDFor(studio StudioID, externalID string) (RundownID, error) {
	if studio == "" {
		return "", Internal("rundown id: studio not set")
	}
	if externalID == "" {
		return "", BadRequest("rundown id: external id must be set")
	}
	return RundownID(hashID(string(studio) + "_" + externalID)), nil
}

// SegmentIDFor derives the stable segment id for an external id within a rundown.
func SegmentIDFor(rundownID RundownID, externalID string) (SegmentID, error) {
	if rundownID == "" {
		return "", BadRequest("segment id: rundown id must be set")
	}
	if externalID == "" {
		return "", BadRequest("segment id: external id must be set")
	}
	return SegmentID(hashID(string(rundownID) + "_segment_" + externalID)), nil
}

// PartIDFor derives the stable part id for an external id within a rundown.
func PartIDFor(rundownID RundownID, externalID string) (PartID, error) {
	if rundownID == "" {
		return "", BadRequest("part id: rundown id must be set")
	}
	if externalID == "" {
		return "", BadRequest("part id: external id must be set")
	}
	return PartID(hashID(string(rundownID) + "_part_" + externalID)), nil
}

// PlaylistIDFor derives the playlist id used when a rundown creates its own playlist.
func PlaylistIDFor(studio StudioID, externalID string) PlaylistID {
	return PlaylistID(hashID(string(studio) + "_playlist_" + externalID))
}

// NewPartInstanceID returns a fresh random part instance id.
func NewPartInstanceID() PartInstanceID {
	return PartInstanceID(uuid.NewString())
}
