// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package timing

import (
	"maps"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rundownd/internal/rundown"
)

const testNow int64 = 10_000

func part(id string, expected int64) rundown.Part {
	return rundown.Part{ID: rundown.PartID(id), RundownID: "r1", SegmentID: "s1", ExpectedDuration: expected}
}

func threePartLoop(loop bool) Input {
	parts := []rundown.Part{part("p0", 1000), part("p1", 1000), part("p2", 1000)}
	return Input{
		Now: testNow,
		Playlist: &rundown.Playlist{
			ID:                    "pl",
			Active:                true,
			Loop:                  loop,
			CurrentPartInstanceID: "i1",
			NextPartInstanceID:    "i2",
		},
		Parts: parts,
		Instances: map[rundown.PartID]*rundown.PartInstance{
			"p1": {ID: "i1", Part: parts[1], Timings: rundown.PartInstanceTimings{StartedPlayback: testNow - 400}},
			"p2": {ID: "i2", Part: parts[2]},
		},
		Generation: 1,
	}
}

func countdown(t *testing.T, ctx *Context, id rundown.PartID) *int64 {
	t.Helper()
	v, ok := ctx.PartCountdown[id]
	require.True(t, ok, "no countdown entry for %s", id)
	return v
}

func TestComputePlainPartsWithoutPlayback(t *testing.T) {
	parts := []rundown.Part{part("a", 1000), part("b", 2000)}
	in := Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl"},
		Parts:    parts,
		Instances: map[rundown.PartID]*rundown.PartInstance{
			"b": {ID: "ib", Part: parts[1], Timings: rundown.PartInstanceTimings{PlayOffset: 500}},
		},
	}

	ctx := NewCalculator(0).Compute(in)

	assert.Equal(t, int64(3000), ctx.TotalRundownDuration)
	assert.Equal(t, int64(3000), ctx.RemainingRundownDuration)
	assert.Equal(t, int64(3000), ctx.AsPlayedRundownDuration)
	assert.Equal(t, int64(3000), ctx.AsDisplayedRundownDuration)

	assert.Equal(t, int64(1000), ctx.PartDurations["a"])
	assert.Equal(t, int64(1500), ctx.PartDurations["b"], "duration is expected minus play offset")
	assert.Equal(t, int64(0), ctx.PartStartsAt["a"])
	assert.Equal(t, int64(1000), ctx.PartStartsAt["b"])
	assert.Equal(t, int64(2000), ctx.PartDisplayDurations["b"])
	assert.Equal(t, int64(2000), ctx.PartExpectedDurations["b"])

	assert.Equal(t, int64(0), *countdown(t, ctx, "a"))
	assert.Equal(t, int64(1000), *countdown(t, ctx, "b"))
	assert.Nil(t, ctx.RemainingTimeOnCurrentPart)
	assert.False(t, ctx.CurrentPartWillAutoNext)
}

func TestComputeLoopingCountdownWrapsAround(t *testing.T) {
	ctx := NewCalculator(0).Compute(threePartLoop(true))

	// Forward-pass waits are 0, 1000 and 2000; the next part rebases on 2000
	// and the current part has 600 ms left.
	assert.Equal(t, int64(0+3000-2000+600), *countdown(t, ctx, "p0"))
	assert.Equal(t, int64(1000+3000-2000+600), *countdown(t, ctx, "p1"))
	assert.Equal(t, int64(600), *countdown(t, ctx, "p2"))

	assert.Equal(t, int64(3000), ctx.TotalRundownDuration)
	assert.Equal(t, int64(600+1000), ctx.RemainingRundownDuration)
	assert.Equal(t, int64(2000), ctx.AsPlayedRundownDuration, "unplayed part before current does not count")
	assert.Equal(t, int64(3000), ctx.AsDisplayedRundownDuration)
	assert.Equal(t, int64(400), ctx.PartPlayed["p1"])

	require.NotNil(t, ctx.RemainingTimeOnCurrentPart)
	assert.Equal(t, int64(-600), *ctx.RemainingTimeOnCurrentPart)
}

func TestComputeWithoutLoopNullsPartsBeforeNext(t *testing.T) {
	ctx := NewCalculator(0).Compute(threePartLoop(false))

	assert.Nil(t, countdown(t, ctx, "p0"))
	assert.Nil(t, countdown(t, ctx, "p1"))
	assert.Equal(t, int64(600), *countdown(t, ctx, "p2"))
}

func TestComputeOutOfOrderTimingCountsEarlierParts(t *testing.T) {
	in := threePartLoop(false)
	in.Playlist.OutOfOrderTiming = true

	ctx := NewCalculator(0).Compute(in)

	assert.Equal(t, int64(3000), ctx.AsPlayedRundownDuration)
	assert.Equal(t, int64(1000+600+1000), ctx.RemainingRundownDuration)
}

func TestComputeCurrentPartNotStarted(t *testing.T) {
	parts := []rundown.Part{part("p0", 1000), part("p1", 2000)}
	parts[0].AutoNext = true
	in := Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl", Active: true, CurrentPartInstanceID: "i0", NextPartInstanceID: "i1"},
		Parts:    parts,
		Instances: map[rundown.PartID]*rundown.PartInstance{
			"p0": {ID: "i0", Part: parts[0]},
			"p1": {ID: "i1", Part: parts[1]},
		},
	}

	ctx := NewCalculator(0).Compute(in)

	require.NotNil(t, ctx.RemainingTimeOnCurrentPart)
	assert.Equal(t, int64(-1000), *ctx.RemainingTimeOnCurrentPart)
	assert.True(t, ctx.CurrentPartWillAutoNext)
	assert.Equal(t, int64(1000), *countdown(t, ctx, "p1"))
}

func TestComputeAutoNextNeedsExpectedDuration(t *testing.T) {
	parts := []rundown.Part{part("p0", 0)}
	parts[0].AutoNext = true
	in := Input{
		Now:       testNow,
		Playlist:  &rundown.Playlist{ID: "pl", Active: true, CurrentPartInstanceID: "i0"},
		Parts:     parts,
		Instances: map[rundown.PartID]*rundown.PartInstance{"p0": {ID: "i0", Part: parts[0]}},
	}

	ctx := NewCalculator(0).Compute(in)
	assert.False(t, ctx.CurrentPartWillAutoNext)
}

func TestComputeDisplayDurationGroupPoolsExpectedDurations(t *testing.T) {
	a := part("a", 3000)
	a.DisplayDurationGroup = "g"
	a.DisplayDuration = 1000
	b := part("b", 0)
	b.DisplayDurationGroup = "g"

	ctx := NewCalculator(500).Compute(Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl"},
		Parts:    []rundown.Part{a, b},
	})

	assert.Equal(t, int64(1000), ctx.PartDisplayDurations["a"])
	assert.Equal(t, int64(2000), ctx.PartDisplayDurations["b"], "b takes what is left of the pool")
	assert.Equal(t, int64(1000), ctx.PartDisplayStartsAt["b"])
	assert.Equal(t, int64(1000), *countdown(t, ctx, "b"))
}

func TestComputeLoneGroupMemberIsNotGrouped(t *testing.T) {
	a := part("a", 0)
	a.DisplayDurationGroup = "g"

	ctx := NewCalculator(0).Compute(Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl"},
		Parts:    []rundown.Part{a, part("b", 1000)},
	})

	assert.Equal(t, DefaultDisplayDuration, ctx.PartDisplayDurations["a"])
}

func TestComputeGapPartInGroupIsFlooredAtMinimalDuration(t *testing.T) {
	a := part("a", 1000)
	a.DisplayDurationGroup = "g"
	a.DisplayDuration = 1000
	gap := part("gap", 0)
	gap.DisplayDurationGroup = "g"
	gap.Gap = true

	ctx := NewCalculator(0).Compute(Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl"},
		Parts:    []rundown.Part{a, gap},
	})

	assert.Equal(t, MinimalNonzeroDuration, ctx.PartDisplayDurations["gap"])
	assert.Equal(t, MinimalNonzeroDuration, ctx.PartDisplayDurationsNoPlayback["gap"])
}

func TestComputeInvalidPartUsesDefaultDisplayDuration(t *testing.T) {
	bad := part("bad", 5000)
	bad.Invalid = true
	gap := part("gap", 5000)
	gap.Invalid = true
	gap.Gap = true

	ctx := NewCalculator(0).Compute(Input{
		Now:      testNow,
		Playlist: &rundown.Playlist{ID: "pl"},
		Parts:    []rundown.Part{bad, gap},
	})

	assert.Equal(t, DefaultDisplayDuration, ctx.PartDisplayDurations["bad"])
	assert.Equal(t, int64(0), ctx.PartPlayed["bad"])
	assert.Equal(t, int64(5000), ctx.PartDisplayDurations["gap"])
	assert.Equal(t, int64(5000), ctx.PartDurations["bad"])
}

func TestComputeTotalIsSumOfExpectedDurations(t *testing.T) {
	in := threePartLoop(true)
	in.Parts = append(in.Parts, part("p3", 1234), part("p4", 0))

	ctx := NewCalculator(0).Compute(in)

	var sum int64
	for _, p := range in.Parts {
		sum += p.ExpectedDuration
	}
	assert.Equal(t, sum, ctx.TotalRundownDuration)
}

func TestComputeMapKeysMatchPartList(t *testing.T) {
	calc := NewCalculator(0)
	in := threePartLoop(false)
	first := calc.Compute(in)

	in.Parts = in.Parts[1:]
	in.Generation++
	second := calc.Compute(in)

	want := []rundown.PartID{"p1", "p2"}
	for name, m := range map[string]map[rundown.PartID]int64{
		"durations":         second.PartDurations,
		"played":            second.PartPlayed,
		"startsAt":          second.PartStartsAt,
		"displayStartsAt":   second.PartDisplayStartsAt,
		"expected":          second.PartExpectedDurations,
		"display":           second.PartDisplayDurations,
		"displayNoPlayback": second.PartDisplayDurationsNoPlayback,
	} {
		assert.ElementsMatch(t, want, keysOf(m), name)
	}
	assert.Len(t, second.PartCountdown, 2)
	assert.Len(t, first.PartDurations, 3, "earlier contexts are not mutated")
}

func keysOf(m map[rundown.PartID]int64) []rundown.PartID {
	out := make([]rundown.PartID, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestComputeIsDeterministic(t *testing.T) {
	calc := NewCalculator(0)
	in := threePartLoop(true)

	a := calc.Compute(in)
	in.IsLowResolution = true
	b := calc.Compute(in)

	assert.True(t, b.IsLowResolution)
	if diff := cmp.Diff(a, b, cmpopts.IgnoreFields(Context{}, "CurrentTime", "IsLowResolution")); diff != "" {
		t.Fatalf("recompute differs (-first +second):\n%s", diff)
	}
}

func TestTemporaryInstancesAreMemoisedPerGeneration(t *testing.T) {
	calc := NewCalculator(0)
	in := threePartLoop(false)

	calc.Compute(in)
	tmp := calc.temporary["p0"]
	require.NotNil(t, tmp)
	assert.True(t, tmp.Temporary)

	calc.Compute(in)
	assert.Same(t, tmp, calc.temporary["p0"])

	in.Generation++
	calc.Compute(in)
	assert.NotSame(t, tmp, calc.temporary["p0"])
	assert.NotContains(t, calc.temporary, rundown.PartID("p1"), "active instances are never wrapped")
}

func TestComputeWithoutPlaylistReturnsEmptyContext(t *testing.T) {
	ctx := NewCalculator(0).Compute(Input{Now: testNow, Parts: []rundown.Part{part("a", 1000)}})
	assert.Empty(t, ctx.PartDurations)
	assert.Empty(t, ctx.PartCountdown)
	assert.Equal(t, testNow, ctx.CurrentTime)
}

func TestComputeLeavesEarlierContextUntouched(t *testing.T) {
	calc := NewCalculator(0)
	in := threePartLoop(true)
	first := calc.Compute(in)
	before := *first
	before.PartPlayed = maps.Clone(first.PartPlayed)
	before.PartStartsAt = maps.Clone(first.PartStartsAt)

	in.Now += 250
	second := calc.Compute(in)

	assert.Equal(t, before.PartPlayed, first.PartPlayed)
	assert.Equal(t, before.PartStartsAt, first.PartStartsAt)
	assert.NotEqual(t, first.PartPlayed["p1"], second.PartPlayed["p1"])
}
