// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/rundownd/internal/metrics"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string][]byte
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.err != nil {
		return minio.UploadInfo{}, f.err
	}
	buf, err := io.ReadAll(r)
	if err != nil {
		return minio.UploadInfo{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[bucket+"/"+object] = buf
	return minio.UploadInfo{Bucket: bucket, Key: object, Size: size}, nil
}

func TestArchivingStore_MirrorsSaves(t *testing.T) {
	putter := &fakePutter{}
	s := newArchivingStore(NewMemoryStore(), putter, "rundowns", "")

	require.NoError(t, s.Save(context.Background(), "rd-1", sampleRundown()))

	buf, ok := putter.objects["rundowns/snapshots/rd-1/1700000000000.json"]
	require.True(t, ok, "archived object missing: %v", putter.objects)
	got, err := decode(buf)
	require.NoError(t, err)
	assertSameSnapshot(t, sampleRundown(), got)

	loaded, err := s.Load(context.Background(), "rd-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestArchivingStore_FailureDoesNotFailSave(t *testing.T) {
	before := testutil.ToFloat64(metrics.SnapshotStoreOpsTotal.WithLabelValues("archive", "put", "error"))

	s := newArchivingStore(NewMemoryStore(), &fakePutter{err: errors.New("bucket gone")}, "rundowns", "p/")
	require.NoError(t, s.Save(context.Background(), "rd-1", sampleRundown()))

	after := testutil.ToFloat64(metrics.SnapshotStoreOpsTotal.WithLabelValues("archive", "put", "error"))
	assert.Equal(t, before+1, after)

	loaded, err := s.Load(context.Background(), "rd-1")
	require.NoError(t, err)
	assert.NotNil(t, loaded)
}

func TestArchiveConfig_Validate(t *testing.T) {
	assert.Error(t, ArchiveConfig{}.Validate())
	assert.Error(t, ArchiveConfig{Endpoint: "localhost:9000"}.Validate())
	assert.Error(t, ArchiveConfig{Endpoint: "localhost:9000", Bucket: "b"}.Validate())
	assert.NoError(t, ArchiveConfig{Endpoint: "localhost:9000", Bucket: "b", AccessKey: "a", SecretKey: "s"}.Validate())
}
