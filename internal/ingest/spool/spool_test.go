// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package spool

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/rundownd/internal/ingest"
)

type call struct {
	op       string
	id       string
	isCreate bool
	stories  int
}

type recorder struct {
	mu    sync.Mutex
	calls []call
}

func (r *recorder) Replace(_ context.Context, ro ingest.RunningOrder, isCreate bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "replace", id: ro.ID, isCreate: isCreate, stories: len(ro.Stories)})
	return nil
}

func (r *recorder) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{op: "delete", id: id})
	return nil
}

func (r *recorder) snapshot() []call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]call(nil), r.calls...)
}

const show = `{"id":"RO1","slug":"Evening","stories":[{"id":"s1","slug":"Intro;cam","payload":{"duration":1000}},{"id":"s2","slug":"News;lead"}]}`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestParseRunningOrder(t *testing.T) {
	ro, err := ParseRunningOrder([]byte(show))
	require.NoError(t, err)
	assert.Equal(t, "RO1", ro.ID)
	assert.Equal(t, "Evening", ro.Slug)
	require.Len(t, ro.Stories, 2)
	assert.JSONEq(t, `{"duration":1000}`, string(ro.Stories[0].Payload))

	for name, doc := range map[string]string{
		"not json":      `{`,
		"missing id":    `{"slug":"x"}`,
		"story no id":   `{"id":"RO1","stories":[{"slug":"x"}]}`,
		"unknown field": `{"id":"RO1","extra":true}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRunningOrder([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestIngestFile_CreateThenReload(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, rec, 0)
	path := filepath.Join(dir, "evening.json")
	writeFile(t, path, show)

	ctx := context.Background()
	require.NoError(t, w.IngestFile(ctx, path))
	require.NoError(t, w.IngestFile(ctx, path))

	assert.Equal(t, []call{
		{op: "replace", id: "RO1", isCreate: true, stories: 2},
		{op: "replace", id: "RO1", isCreate: false, stories: 2},
	}, rec.snapshot())
}

func TestIngestFile_IDChangeDeletesOld(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w := New(dir, rec, 0)
	path := filepath.Join(dir, "evening.json")
	ctx := context.Background()

	writeFile(t, path, show)
	require.NoError(t, w.IngestFile(ctx, path))
	writeFile(t, path, `{"id":"RO2","slug":"Late","stories":[]}`)
	require.NoError(t, w.IngestFile(ctx, path))
	require.NoError(t, w.RemoveFile(ctx, path))
	require.NoError(t, w.RemoveFile(ctx, path))

	assert.Equal(t, []call{
		{op: "replace", id: "RO1", isCreate: true, stories: 2},
		{op: "delete", id: "RO1"},
		{op: "replace", id: "RO2", isCreate: true},
		{op: "delete", id: "RO2"},
	}, rec.snapshot())
}

func TestScan_SkipsBrokenAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.json"), show)
	writeFile(t, filepath.Join(dir, "b.json"), `{broken`)
	writeFile(t, filepath.Join(dir, ".c.json"), show)
	writeFile(t, filepath.Join(dir, "notes.txt"), show)

	rec := &recorder{}
	require.NoError(t, New(dir, rec, 0).Scan(context.Background()))
	assert.Equal(t, []call{{op: "replace", id: "RO1", isCreate: true, stories: 2}}, rec.snapshot())
}

func TestRun_FollowsDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "first.json"), `{"id":"RO0","slug":"Morning","stories":[]}`)

	rec := &recorder{}
	w := New(dir, rec, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 5*time.Millisecond)

	path := filepath.Join(dir, "evening.json")
	writeFile(t, path, show)
	require.Eventually(t, func() bool {
		for _, c := range rec.snapshot() {
			if c.op == "replace" && c.id == "RO1" {
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		calls := rec.snapshot()
		return calls[len(calls)-1] == call{op: "delete", id: "RO1"}
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
	assert.Equal(t, call{op: "replace", id: "RO0", isCreate: true}, rec.snapshot()[0])
}

func TestRun_MissingDirectory(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing"), &recorder{}, 0)
	assert.Error(t, w.Run(context.Background()))
}
