package services

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	appConfig "github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	apperrors "github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// MinioDatasetStore keeps uploaded dataset files in a MinIO bucket
type MinioDatasetStore struct {
	client  *minio.Client
	bucket  string
	logger  *logger.Logger
	metrics *metrics.Metrics
}

// NewMinioDatasetStore connects to MinIO and creates the bucket if needed
func NewMinioDatasetStore(ctx context.Context, cfg appConfig.StorageConfig, m *metrics.Metrics, log *logger.Logger) (*MinioDatasetStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	store := &MinioDatasetStore{
		client:  client,
		bucket:  cfg.Bucket,
		logger:  log.WithService("minio_storage"),
		metrics: m,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := store.ensureBucket(checkCtx, cfg.Region); err != nil {
		return nil, err
	}

	store.logger.Info("MinIO dataset store initialized",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)
	return store, nil
}

func (s *MinioDatasetStore) ensureBucket(ctx context.Context, region string) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check MinIO bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		return fmt.Errorf("failed to create MinIO bucket: %w", err)
	}
	s.logger.Info("Created MinIO bucket", zap.String("bucket", s.bucket))
	return nil
}

// Upload stores a dataset file
func (s *MinioDatasetStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	start := time.Now()
	info, err := s.client.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"uploaded-by": "aether-insights",
		},
	})
	s.metrics.RecordStorageOperation("minio", "upload", err, info.Size)

	if err != nil {
		s.logger.Error("Failed to upload dataset to MinIO",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Error(err),
		)
		return apperrors.PersistenceFailure("Failed to upload dataset", err).WithDetails("storage_key", key)
	}

	s.logger.Info("Dataset uploaded to MinIO",
		zap.String("key", key),
		zap.Int64("size_bytes", info.Size),
		zap.Float64("duration_ms", time.Since(start).Seconds()*1000),
	)
	return nil
}

// ReadDataset opens a stored dataset file. The object is stat'ed first so a
// missing key surfaces here rather than on the first read.
func (s *MinioDatasetStore) ReadDataset(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err == nil {
		var stat minio.ObjectInfo
		stat, err = obj.Stat()
		if err == nil {
			s.metrics.RecordStorageOperation("minio", "download", nil, stat.Size)
			return obj, nil
		}
		obj.Close()
	}

	s.metrics.RecordStorageOperation("minio", "download", err, 0)
	if isMinioNotFound(err) {
		return nil, apperrors.NotFound("Dataset file not found").WithDetails("storage_key", key)
	}
	s.logger.Error("Failed to download dataset from MinIO",
		zap.String("key", key),
		zap.String("bucket", s.bucket),
		zap.Error(err),
	)
	return nil, apperrors.PersistenceFailure("Failed to download dataset", err).WithDetails("storage_key", key)
}

// Exists checks if a dataset file exists
func (s *MinioDatasetStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if isMinioNotFound(err) {
			return false, nil
		}
		s.metrics.RecordStorageOperation("minio", "head", err, 0)
		return false, apperrors.PersistenceFailure("Failed to check dataset file", err)
	}
	s.metrics.RecordStorageOperation("minio", "head", nil, 0)
	return true, nil
}

// Delete removes a dataset file
func (s *MinioDatasetStore) Delete(ctx context.Context, key string) error {
	err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
	s.metrics.RecordStorageOperation("minio", "delete", err, 0)
	if err != nil {
		s.logger.Error("Failed to delete dataset from MinIO",
			zap.String("key", key),
			zap.Error(err),
		)
		return apperrors.PersistenceFailure("Failed to delete dataset file", err)
	}
	return nil
}

// HealthCheck verifies the bucket is reachable
func (s *MinioDatasetStore) HealthCheck(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("MinIO connection test failed: %w", err)
	}
	if !exists {
		return fmt.Errorf("MinIO bucket %q does not exist", s.bucket)
	}
	return nil
}

func isMinioNotFound(err error) bool {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return true
	}
	return false
}
