// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timing

import (
	"github.com/ManuGH/rundownd/internal/rundown"
)

const (
	// MinimalNonzeroDuration is the floor for gap parts inside a display
	// duration group, so their countdown compresses without reaching zero.
	MinimalNonzeroDuration int64 = 1

	// DefaultDisplayDuration is used for parts that have no duration at all.
	DefaultDisplayDuration int64 = 3000
)

// Input is everything one recompute reads. The caller pre-fetches it; Compute
// performs no I/O.
type Input struct {
	Now             int64
	IsLowResolution bool
	Playlist        *rundown.Playlist
	// Parts in playout order across all rundowns of the playlist.
	Parts []rundown.Part
	// Instances maps a part to its active instance, if any.
	Instances map[rundown.PartID]*rundown.PartInstance
	// Generation changes whenever Parts changes. Temporary instances built
	// for an older generation are discarded.
	Generation uint64
}

type linearEntry struct {
	id   rundown.PartID
	wait *int64
}

// Calculator owns the scratch state of the timing pass for one playlist.
// It is not safe for concurrent use.
type Calculator struct {
	defaultDuration int64

	generation uint64
	temporary  map[rundown.PartID]*rundown.PartInstance
	groups     map[string]int64
	linear     []linearEntry
}

// NewCalculator returns a Calculator. A non-positive defaultDuration selects
// DefaultDisplayDuration.
func NewCalculator(defaultDuration int64) *Calculator {
	if defaultDuration <= 0 {
		defaultDuration = DefaultDisplayDuration
	}
	return &Calculator{
		defaultDuration: defaultDuration,
		temporary:       make(map[rundown.PartID]*rundown.PartInstance),
		groups:          make(map[string]int64),
	}
}

func firstNonZero(vals ...int64) int64 {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func ptr(v int64) *int64 { return &v }

func (c *Calculator) instanceFor(in Input, p rundown.Part) *rundown.PartInstance {
	if pi, ok := in.Instances[p.ID]; ok && pi != nil {
		return pi
	}
	if pi, ok := c.temporary[p.ID]; ok {
		return pi
	}
	pi := rundown.WrapPartToTemporaryInstance(p)
	c.temporary[p.ID] = pi
	return pi
}

// Compute runs one forward pass over the parts followed by the countdown
// correction pass.
func (c *Calculator) Compute(in Input) *Context {
	if in.Generation != c.generation {
		c.temporary = make(map[rundown.PartID]*rundown.PartInstance)
		c.generation = in.Generation
	}
	clear(c.groups)
	c.linear = c.linear[:0]

	// Fresh maps each run: a published Context is never mutated afterwards.
	out := newContext(len(in.Parts))
	out.CurrentTime = in.Now
	out.IsLowResolution = in.IsLowResolution

	var (
		totalRundownDuration       int64
		remainingRundownDuration   int64
		asPlayedRundownDuration    int64
		asDisplayedRundownDuration int64
		waitAccumulator            int64
		currentRemaining           int64
		startsAtAccumulator        int64
		displayStartsAtAccumulator int64
	)
	nextAIndex, currentAIndex := -1, -1
	now := in.Now
	pl := in.Playlist

	if pl != nil {
		for itIndex, orig := range in.Parts {
			pi := c.instanceFor(in, orig)
			part := pi.Part
			timings := pi.Timings
			id := orig.ID

			c.linear = append(c.linear, linearEntry{id: id, wait: ptr(waitAccumulator)})
			aIndex := len(c.linear) - 1

			if pl.NextPartInstanceID != "" && pl.NextPartInstanceID == pi.ID {
				nextAIndex = aIndex
			} else if pl.CurrentPartInstanceID != "" && pl.CurrentPartInstanceID == pi.ID {
				currentAIndex = aIndex
			}
			isCurrent := pl.CurrentPartInstanceID != "" && pl.CurrentPartInstanceID == pi.ID

			partCounts := pl.OutOfOrderTiming ||
				!pl.Active ||
				(itIndex >= currentAIndex && currentAIndex >= 0) ||
				(itIndex >= nextAIndex && nextAIndex >= 0 && currentAIndex == -1)

			totalRundownDuration += part.ExpectedDuration

			started := timings.StartedPlayback
			playOffset := timings.PlayOffset
			playing := started != 0 && timings.Duration == 0
			elapsed := now - started

			var (
				partDuration                  int64
				partDisplayDuration           int64
				partDisplayDurationNoPlayback int64
				displayDurationFromGroup      int64
			)

			// Expected durations of group members are pooled; members with a
			// display duration take that much, the rest share what is left.
			group := part.DisplayDurationGroup
			memberOfGroup := false
			if group != "" && !part.Floated {
				_, seen := c.groups[group]
				followedByMember := itIndex+1 < len(in.Parts) && in.Parts[itIndex+1].DisplayDurationGroup == group
				if seen || followedByMember {
					c.groups[group] += part.ExpectedDuration
					floor := c.defaultDuration
					if part.Gap {
						floor = MinimalNonzeroDuration
					}
					displayDurationFromGroup = firstNonZero(part.DisplayDuration, max(0, c.groups[group], floor))
					memberOfGroup = true
				}
			}

			planned := part.ExpectedDuration
			if memberOfGroup {
				planned = displayDurationFromGroup
			}

			if playing {
				currentRemaining = max(0, firstNonZero(timings.Duration, planned)-elapsed)
				partDuration = max(firstNonZero(timings.Duration, part.ExpectedDuration), elapsed) - playOffset
				// Group members have no timing of their own, so the countdown
				// needs the duration as if the part were not playing.
				partDisplayDurationNoPlayback = firstNonZero(timings.Duration, planned, c.defaultDuration)
				partDisplayDuration = max(partDisplayDurationNoPlayback, elapsed)
				out.PartPlayed[id] = elapsed
			} else {
				partDuration = firstNonZero(timings.Duration, part.ExpectedDuration) - playOffset
				var finished int64
				if timings.Duration != 0 {
					finished = timings.Duration + playOffset
				}
				partDisplayDuration = max(0, firstNonZero(finished, displayDurationFromGroup, part.ExpectedDuration, c.defaultDuration))
				partDisplayDurationNoPlayback = partDisplayDuration
				out.PartPlayed[id] = timings.Duration - playOffset
			}

			onAirEstimate := part.ExpectedDuration
			if memberOfGroup {
				onAirEstimate = max(displayDurationFromGroup, part.ExpectedDuration)
			}

			// As played: parts that do not count are ignored.
			switch {
			case playing:
				asPlayedRundownDuration += max(onAirEstimate, elapsed)
			case timings.Duration != 0:
				asPlayedRundownDuration += timings.Duration
			case partCounts:
				asPlayedRundownDuration += part.ExpectedDuration
			}

			// As displayed: every part is counted.
			if playing {
				asDisplayedRundownDuration += max(onAirEstimate, elapsed)
			} else {
				asDisplayedRundownDuration += firstNonZero(timings.Duration, part.ExpectedDuration)
			}

			if isCurrent && started == 0 {
				currentRemaining = partDisplayDuration
			}

			if part.Invalid && !part.Gap {
				partDisplayDuration = c.defaultDuration
				out.PartPlayed[id] = 0
			}

			if memberOfGroup && !part.Invalid && (timings.Duration != 0 || partCounts) {
				c.groups[group] -= partDisplayDuration
			}

			out.PartExpectedDurations[id] = firstNonZero(part.ExpectedDuration, timings.Duration)
			out.PartStartsAt[id] = startsAtAccumulator
			out.PartDisplayStartsAt[id] = displayStartsAtAccumulator
			out.PartDurations[id] = partDuration
			out.PartDisplayDurations[id] = partDisplayDuration
			out.PartDisplayDurationsNoPlayback[id] = partDisplayDurationNoPlayback
			startsAtAccumulator += partDuration
			displayStartsAtAccumulator += partDisplayDuration

			// Always add the full duration, a part may be played twice.
			if memberOfGroup {
				waitAccumulator += firstNonZero(timings.Duration, partDisplayDuration, part.ExpectedDuration)
			} else {
				waitAccumulator += firstNonZero(timings.Duration, part.ExpectedDuration)
			}

			// Remaining and partCounts overlap but are kept as separate predicates.
			if started == 0 && !part.Floated && partCounts {
				remainingRundownDuration += part.ExpectedDuration
			} else if playing && isCurrent && started+part.ExpectedDuration > now {
				remainingRundownDuration += part.ExpectedDuration - elapsed
			}
		}

		c.correctCountdowns(nextAIndex, currentRemaining, waitAccumulator, pl.Loop)
	}

	for _, e := range c.linear {
		out.PartCountdown[e.id] = e.wait
	}

	if currentAIndex >= 0 {
		cur := in.Parts[currentAIndex]
		pi := c.instanceFor(in, cur)
		started := pi.Timings.StartedPlayback

		onAirPartDuration := firstNonZero(pi.Timings.Duration, cur.ExpectedDuration)
		if cur.DisplayDurationGroup != "" && cur.DisplayDuration == 0 {
			onAirPartDuration = firstNonZero(out.PartDisplayDurationsNoPlayback[cur.ID], onAirPartDuration)
		}

		var remaining int64
		if started != 0 {
			remaining = now - (started + onAirPartDuration)
		} else {
			remaining = -onAirPartDuration
		}
		out.RemainingTimeOnCurrentPart = &remaining
		out.CurrentPartWillAutoNext = cur.AutoNext && cur.ExpectedDuration != 0
	}

	out.TotalRundownDuration = totalRundownDuration
	out.RemainingRundownDuration = remainingRundownDuration
	out.AsPlayedRundownDuration = asPlayedRundownDuration
	out.AsDisplayedRundownDuration = asDisplayedRundownDuration
	return out
}

// correctCountdowns rebases the forward-pass wait values on the next part.
func (c *Calculator) correctCountdowns(nextAIndex int, currentRemaining, waitAccumulator int64, loop bool) {
	var localAccum int64
	for i := range c.linear {
		e := &c.linear[i]
		switch {
		case i < nextAIndex:
			localAccum = deref(e.wait)
			if !loop {
				e.wait = nil
			}
		case i == nextAIndex:
			// No current part: following parts are rebased on the next part.
			localAccum = deref(e.wait)
			e.wait = ptr(currentRemaining)
		default:
			e.wait = ptr(deref(e.wait) - localAccum + currentRemaining)
		}
	}
	if loop {
		// Parts before the next one wrap around the end of the playlist.
		for i := 0; i < nextAIndex; i++ {
			c.linear[i].wait = ptr(deref(c.linear[i].wait) + waitAccumulator - localAccum + currentRemaining)
		}
	}
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
