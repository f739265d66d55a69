// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package ingest

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rundownd/internal/rundown"
)

type fakeClock struct{ now int64 }

func (c *fakeClock) Now() int64 { return c.now }

func newStories() (Stories, *fakeClock) {
	clk := &fakeClock{now: 1000}
	return Stories{RundownID: "r1", Now: clk.Now}, clk
}

func runningOrder() RunningOrder {
	return RunningOrder{
		ID:   "RO1",
		Slug: "Evening news",
		Stories: []Story{
			{ID: "a", Slug: "Intro;Open"},
			{ID: "b", Slug: "Intro;Headlines"},
			{ID: "c", Slug: "Weather"},
		},
	}
}

func created(t *testing.T, s Stories) *Rundown {
	t.Helper()
	r, err := s.ReplaceRundown(runningOrder(), true)(nil)
	require.NoError(t, err)
	return r
}

func segmentParts(r *Rundown) map[string][]string {
	out := make(map[string][]string)
	for _, s := range r.Segments {
		out[s.ExternalID] = partIDs(s)
	}
	return out
}

func TestReplaceRundownGroupsStoriesIntoSegments(t *testing.T) {
	s, _ := newStories()
	r := created(t, s)

	require.Len(t, r.Segments, 2)
	assert.Equal(t, "r1_Intro_a", r.Segments[0].ExternalID)
	assert.Equal(t, "Intro", r.Segments[0].Name)
	assert.Equal(t, 0, r.Segments[0].Rank)
	assert.Equal(t, []string{"a", "b"}, partIDs(r.Segments[0]))
	assert.Equal(t, 1, r.Segments[0].Parts[1].Rank)
	assert.Equal(t, "r1_Weather_c", r.Segments[1].ExternalID)
	assert.Equal(t, int64(1000), r.Segments[1].Modified)
	assert.JSONEq(t, "{}", string(r.Segments[0].Parts[0].Payload))
	assert.Equal(t, RundownType, r.Type)
}

func TestReplaceRundownReloadKeepsCachedPayloads(t *testing.T) {
	s, _ := newStories()
	old := created(t, s)
	old.Segments[0].Parts[0].Payload = json.RawMessage(`{"script":"hello"}`)

	ro := runningOrder()
	ro.Stories = append(ro.Stories, Story{ID: "d", Slug: "Sport"})
	r, err := s.ReplaceRundown(ro, false)(old)
	require.NoError(t, err)

	p, _ := r.FindPart("a")
	require.NotNil(t, p)
	assert.JSONEq(t, `{"script":"hello"}`, string(p.Payload))
	d, _ := r.FindPart("d")
	require.NotNil(t, d)
	assert.Nil(t, d.Payload)
}

func TestSegmentNameIsNormalised(t *testing.T) {
	assert.Equal(t, "Caf\u00e9", SegmentName("Cafe\u0301;rest"))
	assert.Equal(t, "Plain", SegmentName("Plain"))
}

func TestDeleteStories(t *testing.T) {
	s, clk := newStories()

	_, err := s.DeleteStories("RO1", []string{"zz"})(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	base := created(t, s)
	clk.now = 2000
	r, err := s.DeleteStories("RO1", []string{"b"})(base)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"r1_Intro_a": {"a"}, "r1_Weather_c": {"c"}}, segmentParts(r))
	assert.Equal(t, int64(2000), r.Segments[0].Modified, "part sequence changed")
	assert.Equal(t, int64(1000), r.Segments[1].Modified)
}

func TestDeleteStoriesRejectsWithoutSnapshot(t *testing.T) {
	s, _ := newStories()
	_, err := s.DeleteStories("RO1", []string{"a"})(nil)
	assert.ErrorIs(t, err, ErrRejectChange)
}

func TestInsertStories(t *testing.T) {
	s, clk := newStories()

	_, err := s.InsertStories("RO1", "missing", false, []Story{{ID: "x", Slug: "Weather;Map"}})(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	_, err = s.InsertStories("RO1", "c", false, []Story{{ID: "a", Slug: "Dup"}})(created(t, s))
	assert.Equal(t, 500, rundown.CodeOf(err))

	base := created(t, s)
	clk.now = 3000
	r, err := s.InsertStories("RO1", "c", false, []Story{{ID: "x", Slug: "Weather;Map"}})(base)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"r1_Intro_a": {"a", "b"}, "r1_Weather_x": {"x", "c"}}, segmentParts(r))
	assert.Equal(t, int64(1000), r.Segments[0].Modified)
	assert.Equal(t, int64(3000), r.Segments[1].Modified)

	r, err = s.InsertStories("RO1", "", false, []Story{{ID: "y", Slug: "Sport"}})(created(t, s))
	require.NoError(t, err)
	assert.Equal(t, "r1_Sport_y", r.Segments[2].ExternalID)
}

func TestInsertStoriesReplacesAnchor(t *testing.T) {
	s, _ := newStories()
	r, err := s.InsertStories("RO1", "b", true, []Story{{ID: "b2", Slug: "Intro;Headlines v2"}})(created(t, s))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b2"}, partIDs(r.Segments[0]))

	_, err = s.InsertStories("RO1", "b", true, []Story{{ID: "b", Slug: "Intro;Same id"}})(created(t, s))
	require.NoError(t, err, "the replaced story may reuse its id")
}

func TestSwapStories(t *testing.T) {
	s, _ := newStories()

	_, err := s.SwapStories("RO1", "a", "a")(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrBadRequest)

	_, err = s.SwapStories("RO1", "a", "zz")(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	r, err := s.SwapStories("RO1", "a", "b")(created(t, s))
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"r1_Intro_b": {"b", "a"}, "r1_Weather_c": {"c"}}, segmentParts(r))
}

func TestMoveStories(t *testing.T) {
	s, _ := newStories()

	_, err := s.MoveStories("RO1", "", []string{"zz"})(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	_, err = s.MoveStories("RO1", "zz", []string{"c"})(created(t, s))
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	r, err := s.MoveStories("RO1", "a", []string{"c"})(created(t, s))
	require.NoError(t, err)
	require.Len(t, r.Segments, 2)
	assert.Equal(t, "r1_Weather_c", r.Segments[0].ExternalID)
	assert.Equal(t, 0, r.Segments[0].Rank)

	r, err = s.MoveStories("RO1", "", []string{"b", "a"})(created(t, s))
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, partIDs(r.Segments[1]))
}

func TestUpdateStoryPayload(t *testing.T) {
	s, _ := newStories()

	_, err := s.UpdateStoryPayload("RO1", Story{ID: "zz"})(created(t, s))
	assert.ErrorIs(t, err, ErrRejectChange)

	r, err := s.UpdateStoryPayload("RO1", Story{ID: "c", Payload: json.RawMessage(`{"body":1}`)})(created(t, s))
	require.NoError(t, err)
	p, _ := r.FindPart("c")
	assert.JSONEq(t, `{"body":1}`, string(p.Payload))
}

func TestUpdateRundownMetadata(t *testing.T) {
	s, clk := newStories()

	_, err := s.UpdateRundownMetadata(RunningOrder{ID: "RO1"})(nil)
	assert.ErrorIs(t, err, rundown.ErrNotFound)

	clk.now = 5000
	r, err := s.UpdateRundownMetadata(RunningOrder{ID: "RO1", Slug: "Late news"})(created(t, s))
	require.NoError(t, err)
	assert.Equal(t, "Late news", r.Name)
	assert.Equal(t, int64(5000), r.Modified)
	assert.Len(t, r.Segments, 2)
}

func TestStoryDiffAfterRenumbering(t *testing.T) {
	s, _ := newStories()
	before := created(t, s)
	after, err := s.SwapStories("RO1", "a", "b")(created(t, s))
	require.NoError(t, err)

	d := DiffSegmentEntries(compile(t, before.Segments...), compile(t, after.Segments...), nil)

	assert.Equal(t, map[string]string{"r1_Intro_a": "r1_Intro_b"}, d.ExternalIDChanged)
	assert.True(t, d.Unchanged.Has("r1_Weather_c"))
}
