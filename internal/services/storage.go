package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	appConfig "github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	apperrors "github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// S3DatasetStore keeps uploaded dataset files in an S3 bucket
type S3DatasetStore struct {
	client  *s3.Client
	bucket  string
	logger  *logger.Logger
	config  appConfig.StorageConfig
	metrics *metrics.Metrics
}

// NewS3DatasetStore creates a new S3 dataset store and checks the bucket
func NewS3DatasetStore(ctx context.Context, cfg appConfig.StorageConfig, m *metrics.Metrics, log *logger.Logger) (*S3DatasetStore, error) {
	awsConfig, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Override credentials if provided
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		awsConfig.Credentials = aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
			return aws.Credentials{
				AccessKeyID:     cfg.AccessKeyID,
				SecretAccessKey: cfg.SecretAccessKey,
			}, nil
		})
	}

	s3Client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	store := &S3DatasetStore{
		client:  s3Client,
		bucket:  cfg.Bucket,
		logger:  log.WithService("s3_storage"),
		config:  cfg,
		metrics: m,
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := store.HealthCheck(checkCtx); err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	store.logger.Info("S3 dataset store initialized",
		zap.String("bucket", cfg.Bucket),
		zap.String("region", cfg.Region),
		zap.String("endpoint", cfg.Endpoint),
	)

	return store, nil
}

// Upload stores a dataset file. Non-seekable bodies are buffered so the
// request can be signed over plain HTTP endpoints.
func (s *S3DatasetStore) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	start := time.Now()

	seeker, ok := body.(io.ReadSeeker)
	if !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return apperrors.PersistenceFailure("Failed to buffer dataset", err)
		}
		seeker = bytes.NewReader(data)
		size = int64(len(data))
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          seeker,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
		Metadata: map[string]string{
			"uploaded-by": "aether-insights",
			"upload-time": time.Now().Format(time.RFC3339),
		},
	})
	duration := time.Since(start).Seconds() * 1000
	s.metrics.RecordStorageOperation("s3", "upload", err, size)

	if err != nil {
		s.logger.Error("Failed to upload dataset to S3",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Int64("size_bytes", size),
			zap.Float64("duration_ms", duration),
			zap.Error(err),
		)
		return apperrors.PersistenceFailure("Failed to upload dataset", err).WithDetails("storage_key", key)
	}

	s.logger.Info("Dataset uploaded to S3",
		zap.String("key", key),
		zap.String("bucket", s.bucket),
		zap.Int64("size_bytes", size),
		zap.Float64("duration_ms", duration),
	)
	return nil
}

// ReadDataset opens a stored dataset file
func (s *S3DatasetStore) ReadDataset(ctx context.Context, key string) (io.ReadCloser, error) {
	start := time.Now()

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	duration := time.Since(start).Seconds() * 1000

	if err != nil {
		s.metrics.RecordStorageOperation("s3", "download", err, 0)
		if isS3NotFound(err) {
			return nil, apperrors.NotFound("Dataset file not found").WithDetails("storage_key", key)
		}
		s.logger.Error("Failed to download dataset from S3",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Float64("duration_ms", duration),
			zap.Error(err),
		)
		return nil, apperrors.PersistenceFailure("Failed to download dataset", err).WithDetails("storage_key", key)
	}

	s.metrics.RecordStorageOperation("s3", "download", nil, aws.ToInt64(result.ContentLength))
	s.logger.Debug("Dataset opened from S3",
		zap.String("key", key),
		zap.Int64("size_bytes", aws.ToInt64(result.ContentLength)),
		zap.Float64("duration_ms", duration),
	)
	return result.Body, nil
}

// Exists checks if a dataset file exists
func (s *S3DatasetStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		s.metrics.RecordStorageOperation("s3", "head", err, 0)
		return false, apperrors.PersistenceFailure("Failed to check dataset file", err)
	}
	s.metrics.RecordStorageOperation("s3", "head", nil, 0)
	return true, nil
}

// Delete removes a dataset file. Deleting a missing key succeeds.
func (s *S3DatasetStore) Delete(ctx context.Context, key string) error {
	start := time.Now()

	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	duration := time.Since(start).Seconds() * 1000
	s.metrics.RecordStorageOperation("s3", "delete", err, 0)

	if err != nil {
		s.logger.Error("Failed to delete dataset from S3",
			zap.String("key", key),
			zap.String("bucket", s.bucket),
			zap.Float64("duration_ms", duration),
			zap.Error(err),
		)
		return apperrors.PersistenceFailure("Failed to delete dataset file", err)
	}

	s.logger.Info("Dataset deleted from S3",
		zap.String("key", key),
		zap.Float64("duration_ms", duration),
	)
	return nil
}

// HealthCheck verifies the bucket is reachable
func (s *S3DatasetStore) HealthCheck(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		s.logger.Error("S3 connection test failed",
			zap.String("bucket", s.bucket),
			zap.Error(err),
		)
		return fmt.Errorf("S3 connection test failed: %w", err)
	}
	return nil
}

// GetBucketName returns the configured bucket name
func (s *S3DatasetStore) GetBucketName() string {
	return s.bucket
}

func isS3NotFound(err error) bool {
	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	if errors.As(err, &noSuchKey) || errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
