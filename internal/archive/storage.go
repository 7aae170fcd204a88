package archive

import (
	"bytes"
	"context"
	"fmt"

	"permitleads_backend/internal/events"
	"permitleads_backend/platform/config"
	"permitleads_backend/platform/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStore is the object storage the archive writes to.
type ObjectStore interface {
	EnsureBucketExists(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error
}

// MinIOStore implements ObjectStore using MinIO.
type MinIOStore struct {
	client *minio.Client
}

// NewMinIOStore creates a new MinIO object store.
func NewMinIOStore(cfg config.MinIOConfig) (*MinIOStore, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOStore{client: client}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOStore) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
		}
	}

	return nil
}

// PutObject writes data under key.
func (s *MinIOStore) PutObject(ctx context.Context, bucket, key, contentType string, data []byte) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

var _ ObjectStore = (*MinIOStore)(nil)

// Setup subscribes an archiver to bus when MinIO is configured. Ingestion
// works without it, so every failure here is logged and skipped.
func Setup(ctx context.Context, cfg config.MinIOConfig, bus events.Bus, log *logger.Logger) {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; ingest archive disabled")
		return
	}

	store, err := NewMinIOStore(cfg)
	if err != nil {
		log.Error("failed to initialize archive storage", "error", err)
		return
	}

	bucket := cfg.GetMinioBucketIngestArchive()
	if err := store.EnsureBucketExists(ctx, bucket); err != nil {
		log.Error("failed to ensure storage bucket exists", "error", err, "bucket", bucket)
		return
	}

	NewArchiver(store, bucket, log).Subscribe(bus)
	log.Info("ingest archive enabled", "bucket", bucket)
}
