// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package rundown

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDDerivationIsStableAndScoped(t *testing.T) {
	a, err := RundownIDFor("studio0", "RO1")
	require.NoError(t, err)
	b, err := RundownIDFor("studio0", "RO1")
	require.NoError(t, err)
	c, err := RundownIDFor("studio1", "RO1")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	seg, err := SegmentIDFor(a, "S1")
	require.NoError(t, err)
	part, err := PartIDFor(a, "S1")
	require.NoError(t, err)
	assert.NotEqual(t, string(seg), string(part))
}

func TestIDDerivationRejectsEmptyInput(t *testing.T) {
	_, err := RundownIDFor("", "RO1")
	assert.Equal(t, 500, CodeOf(err))

	_, err = RundownIDFor("studio0", "")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = SegmentIDFor("", "x")
	assert.ErrorIs(t, err, ErrBadRequest)

	_, err = PartIDFor("r", "")
	assert.ErrorIs(t, err, ErrBadRequest)
}

func TestErrorClassification(t *testing.T) {
	err := fmt.Errorf("delete stories: %w", NotFound("part %q not found", "p1"))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 404, CodeOf(err))
	assert.Contains(t, err.Error(), "[404] part \"p1\" not found")

	assert.Equal(t, 409, CodeOf(Conflict("x")))
	assert.Equal(t, 500, CodeOf(errors.New("plain")))
	assert.Equal(t, 0, CodeOf(nil))
}

func TestTemporaryInstanceWrapsPart(t *testing.T) {
	p := Part{ID: "p1", RundownID: "r1", SegmentID: "s1", ExpectedDuration: 1000}
	pi := WrapPartToTemporaryInstance(p)
	assert.True(t, pi.Temporary)
	assert.Equal(t, PartInstanceID("p1_tmp_instance"), pi.ID)
	assert.Equal(t, p, pi.Part)
	assert.False(t, pi.Timings.Playing())
}

func TestPlaylistCloneIsolatesRundownIDs(t *testing.T) {
	pl := &Playlist{ID: "pl", RundownIDs: []RundownID{"a"}}
	cp := pl.Clone()
	cp.RundownIDs[0] = "b"
	assert.Equal(t, RundownID("a"), pl.RundownIDs[0])
	assert.Nil(t, (*Playlist)(nil).Clone())
}
