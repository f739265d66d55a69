// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/log"
	"github.com/ManuGH/rundownd/internal/metrics"
	"github.com/ManuGH/rundownd/internal/rundown"
)

// ArchiveConfig configures the S3-compatible snapshot archive.
type ArchiveConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// Validate reports missing mandatory settings.
func (c ArchiveConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("archive endpoint is required")
	}
	if c.Bucket == "" {
		return fmt.Errorf("archive bucket is required")
	}
	if c.AccessKey == "" || c.SecretKey == "" {
		return fmt.Errorf("archive credentials are required")
	}
	return nil
}

type objectPutter interface {
	PutObject(ctx context.Context, bucket, object string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ArchivingStore mirrors every saved snapshot to object storage. Archive
// failures are logged and counted but never fail the Save.
type ArchivingStore struct {
	Store
	client objectPutter
	bucket string
	prefix string
	logger zerolog.Logger
}

// NewMinIOClient builds a minio client for the archive endpoint.
func NewMinIOClient(cfg ArchiveConfig) (*minio.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	return minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			DialContext:         dialer.DialContext,
			ForceAttemptHTTP2:   true,
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	})
}

// EnsureBucket creates the archive bucket when it does not exist yet.
func EnsureBucket(ctx context.Context, client *minio.Client, cfg ArchiveConfig) error {
	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return fmt.Errorf("archive bucket exists: %w", err)
	}
	if exists {
		return nil
	}
	return client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region})
}

// NewArchivingStore wraps inner so that every Save is also uploaded.
func NewArchivingStore(inner Store, client *minio.Client, cfg ArchiveConfig) *ArchivingStore {
	return newArchivingStore(inner, client, cfg.Bucket, cfg.Prefix)
}

func newArchivingStore(inner Store, client objectPutter, bucket, prefix string) *ArchivingStore {
	if prefix == "" {
		prefix = "snapshots/"
	}
	return &ArchivingStore{
		Store:  inner,
		client: client,
		bucket: bucket,
		prefix: prefix,
		logger: log.WithComponent("snapshot-archive"),
	}
}

func (s *ArchivingStore) objectName(id rundown.RundownID, r *ingest.Rundown) string {
	return s.prefix + string(id) + "/" + strconv.FormatInt(r.Modified, 10) + ".json"
}

func (s *ArchivingStore) Save(ctx context.Context, id rundown.RundownID, r *ingest.Rundown) error {
	if err := s.Store.Save(ctx, id, r); err != nil {
		return err
	}
	s.archive(ctx, id, r)
	return nil
}

func (s *ArchivingStore) archive(ctx context.Context, id rundown.RundownID, r *ingest.Rundown) {
	buf, err := encode(r)
	if err == nil {
		_, err = s.client.PutObject(ctx, s.bucket, s.objectName(id, r), bytes.NewReader(buf), int64(len(buf)),
			minio.PutObjectOptions{ContentType: "application/json"})
	}
	metrics.RecordSnapshotOp("archive", "put", err)
	if err != nil {
		s.logger.Warn().Err(err).
			Str(log.FieldEvent, "snapshot.archive.failed").
			Str(log.FieldRundownID, string(id)).
			Msg("failed to archive ingest snapshot")
	}
}

// Health forwards to the wrapped store when it can probe its backend.
func (s *ArchivingStore) Health(ctx context.Context) error {
	if hc, ok := s.Store.(HealthChecker); ok {
		return hc.Health(ctx)
	}
	return nil
}
