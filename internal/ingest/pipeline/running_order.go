// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package pipeline

import (
	"context"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/rundown"
	"github.com/ManuGH/rundownd/internal/state"
)

// RunningOrders applies newsroom running order messages of one studio.
type RunningOrders struct {
	p      *Pipeline
	gen    SegmentGenerator
	studio rundown.StudioID
}

// RunningOrders returns the running order handler for studio. A nil gen
// selects PayloadGenerator.
func (p *Pipeline) RunningOrders(studio rundown.StudioID, gen SegmentGenerator) *RunningOrders {
	if gen == nil {
		gen = PayloadGenerator{}
	}
	return &RunningOrders{p: p, gen: gen, studio: studio}
}

func (r *RunningOrders) stories(externalID string) (ingest.Stories, error) {
	rid, err := rundown.RundownIDFor(r.studio, externalID)
	if err != nil {
		return ingest.Stories{}, err
	}
	return ingest.Stories{RundownID: rid, Now: r.p.Now}, nil
}

func (r *RunningOrders) diffAndApply(ctx context.Context, ws *state.Workspace, next, prev *ingest.Rundown) (*CommitData, error) {
	return DiffAndApplyChanges(ctx, r.gen, ws, prev, next)
}

func (r *RunningOrders) run(ctx context.Context, name, externalID string, build func(ingest.Stories) ingest.UpdateCacheFunc, calc CalcFunc) error {
	st, err := r.stories(externalID)
	if err != nil {
		return err
	}
	return r.p.Run(ctx, Operation{
		Name:              name,
		StudioID:          r.studio,
		RundownExternalID: externalID,
		UpdateCache:       build(st),
		Calc:              calc,
	})
}

// Replace creates (isCreate) or reloads a rundown from a full running order.
func (r *RunningOrders) Replace(ctx context.Context, ro ingest.RunningOrder, isCreate bool) error {
	return r.run(ctx, "replaceRundown", ro.ID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.ReplaceRundown(ro, isCreate) },
		UpdateRundown(r.gen, r.p.Now, isCreate))
}

// UpdateMetadata replaces the name and payload of a rundown.
func (r *RunningOrders) UpdateMetadata(ctx context.Context, ro ingest.RunningOrder) error {
	return r.run(ctx, "updateRundownMetadata", ro.ID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.UpdateRundownMetadata(ro) },
		UpdateRundown(r.gen, r.p.Now, false))
}

// Delete removes a rundown and its cached snapshot.
func (r *RunningOrders) Delete(ctx context.Context, externalID string) error {
	return r.run(ctx, "deleteRundown", externalID,
		func(ingest.Stories) ingest.UpdateCacheFunc {
			return func(*ingest.Rundown) (*ingest.Rundown, error) { return nil, nil }
		},
		UpdateRundown(r.gen, r.p.Now, false))
}

// UpdateStory stores the full payload of one story.
func (r *RunningOrders) UpdateStory(ctx context.Context, externalID string, story ingest.Story) error {
	return r.run(ctx, "updateStory", externalID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.UpdateStoryPayload(externalID, story) },
		r.diffAndApply)
}

// DeleteStories removes stories from a rundown.
func (r *RunningOrders) DeleteStories(ctx context.Context, externalID string, storyIDs []string) error {
	return r.run(ctx, "deleteStories", externalID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.DeleteStories(externalID, storyIDs) },
		r.diffAndApply)
}

// InsertStories inserts stories before beforeID, optionally replacing it.
func (r *RunningOrders) InsertStories(ctx context.Context, externalID, beforeID string, replace bool, stories []ingest.Story) error {
	return r.run(ctx, "insertStories", externalID,
		func(st ingest.Stories) ingest.UpdateCacheFunc {
			return st.InsertStories(externalID, beforeID, replace, stories)
		},
		r.diffAndApply)
}

// SwapStories swaps two stories.
func (r *RunningOrders) SwapStories(ctx context.Context, externalID, a, b string) error {
	return r.run(ctx, "swapStories", externalID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.SwapStories(externalID, a, b) },
		r.diffAndApply)
}

// MoveStories moves stories in front of beforeID.
func (r *RunningOrders) MoveStories(ctx context.Context, externalID, beforeID string, storyIDs []string) error {
	return r.run(ctx, "moveStories", externalID,
		func(st ingest.Stories) ingest.UpdateCacheFunc { return st.MoveStories(externalID, beforeID, storyIDs) },
		r.diffAndApply)
}
