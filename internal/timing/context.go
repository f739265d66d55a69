// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package timing computes live rundown timing for a playlist on every tick.
//
// All values are integer milliseconds. Per-part maps are keyed by the ids of
// the ordered part list the context was computed from, and every Compute
// returns new maps so a published Context is never mutated afterwards.
package timing

import "github.com/ManuGH/rundownd/internal/rundown"

// Context is the timing snapshot of one playlist at one instant.
type Context struct {
	// TotalRundownDuration is the sum of planned durations of all parts.
	TotalRundownDuration int64 `json:"totalRundownDuration"`
	// RemainingRundownDuration is the planned remainder of counted parts that
	// have not started plus what is left of the part on air.
	RemainingRundownDuration int64 `json:"remainingRundownDuration"`
	// AsPlayedRundownDuration uses actual durations where known and planned
	// durations for parts that still count.
	AsPlayedRundownDuration int64 `json:"asPlayedRundownDuration"`
	// AsDisplayedRundownDuration is like AsPlayedRundownDuration but counts every part.
	AsDisplayedRundownDuration int64 `json:"asDisplayedRundownDuration"`

	PartDurations                  map[rundown.PartID]int64 `json:"partDurations"`
	PartPlayed                     map[rundown.PartID]int64 `json:"partPlayed"`
	PartStartsAt                   map[rundown.PartID]int64 `json:"partStartsAt"`
	PartDisplayStartsAt            map[rundown.PartID]int64 `json:"partDisplayStartsAt"`
	PartExpectedDurations          map[rundown.PartID]int64 `json:"partExpectedDurations"`
	PartDisplayDurations           map[rundown.PartID]int64 `json:"partDisplayDurations"`
	PartDisplayDurationsNoPlayback map[rundown.PartID]int64 `json:"partDisplayDurationsNoPlayback"`
	// PartCountdown is the time until each part goes on air if playout
	// proceeds in order. Nil means the part will not play in order.
	PartCountdown map[rundown.PartID]*int64 `json:"partCountdown"`

	CurrentTime int64 `json:"currentTime"`
	// RemainingTimeOnCurrentPart is negative while the current part still has
	// time left. Nil when nothing is on air.
	RemainingTimeOnCurrentPart *int64 `json:"remainingTimeOnCurrentPart,omitempty"`
	CurrentPartWillAutoNext    bool   `json:"currentPartWillAutoNext"`
	IsLowResolution            bool   `json:"isLowResolution"`
}

func newContext(size int) *Context {
	return &Context{
		PartDurations:                  make(map[rundown.PartID]int64, size),
		PartPlayed:                     make(map[rundown.PartID]int64, size),
		PartStartsAt:                   make(map[rundown.PartID]int64, size),
		PartDisplayStartsAt:            make(map[rundown.PartID]int64, size),
		PartExpectedDurations:          make(map[rundown.PartID]int64, size),
		PartDisplayDurations:           make(map[rundown.PartID]int64, size),
		PartDisplayDurationsNoPlayback: make(map[rundown.PartID]int64, size),
		PartCountdown:                  make(map[rundown.PartID]*int64, size),
	}
}

// TimeEvent is the payload of the time update notifications.
type TimeEvent struct {
	CurrentTime int64 `json:"currentTime"`
}
