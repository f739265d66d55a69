// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"encoding/json"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// SegmentGenerator turns an ingest segment into live segment and part
// documents.
type SegmentGenerator interface {
	Generate(rundownID rundown.RundownID, seg ingest.Segment) (rundown.Segment, []rundown.Part, error)
}

// PayloadGenerator reads part timing hints from the part payloads. Payloads
// that are not JSON objects, or lack the fields, give zero values.
type PayloadGenerator struct{}

type partHints struct {
	Title                string `json:"title"`
	Duration             int64  `json:"duration"`
	DisplayDuration      int64  `json:"displayDuration"`
	DisplayDurationGroup string `json:"displayDurationGroup"`
	Floated              bool   `json:"floated"`
	Invalid              bool   `json:"invalid"`
	Gap                  bool   `json:"gap"`
	AutoNext             bool   `json:"autoNext"`
}

func (PayloadGenerator) Generate(rundownID rundown.RundownID, seg ingest.Segment) (rundown.Segment, []rundown.Part, error) {
	segID, err := rundown.SegmentIDFor(rundownID, seg.ExternalID)
	if err != nil {
		return rundown.Segment{}, nil, err
	}
	out := rundown.Segment{
		ID:               segID,
		ExternalID:       seg.ExternalID,
		RundownID:        rundownID,
		Name:             seg.Name,
		Rank:             seg.Rank,
		ExternalModified: seg.Modified,
	}

	parts := make([]rundown.Part, 0, len(seg.Parts))
	for _, p := range seg.Parts {
		partID, err := rundown.PartIDFor(rundownID, p.ExternalID)
		if err != nil {
			return rundown.Segment{}, nil, err
		}
		var hints partHints
		if len(p.Payload) > 0 {
			// not our data to validate
			_ = json.Unmarshal(p.Payload, &hints)
		}
		title := hints.Title
		if title == "" {
			title = p.Name
		}
		parts = append(parts, rundown.Part{
			ID:                   partID,
			ExternalID:           p.ExternalID,
			RundownID:            rundownID,
			SegmentID:            segID,
			Rank:                 float64(p.Rank),
			Title:                title,
			ExpectedDuration:     hints.Duration,
			DisplayDuration:      hints.DisplayDuration,
			DisplayDurationGroup: hints.DisplayDurationGroup,
			Floated:              hints.Floated,
			Invalid:              hints.Invalid,
			Gap:                  hints.Gap,
			AutoNext:             hints.AutoNext,
		})
	}
	return out, parts, nil
}
