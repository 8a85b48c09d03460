package database

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

// RedisClient wraps the Redis client and stores run status records
type RedisClient struct {
	client  redis.UniversalClient
	logger  *logger.Logger
	config  config.RedisConfig
	metrics *metrics.DatabaseMetricsWrapper
}

// NewRedisClient creates a new Redis client
func NewRedisClient(cfg config.RedisConfig, m *metrics.Metrics, log *logger.Logger) (*RedisClient, error) {
	options := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 4,
		MaxRetries:   3,
		DialTimeout:  time.Second * 5,
		ReadTimeout:  time.Second * 3,
		WriteTimeout: time.Second * 3,
		PoolTimeout:  time.Second * 4,
	}

	redisClient := NewRedisClientWithClient(redis.NewClient(options), cfg, m, log)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx); err != nil {
		redisClient.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	redisClient.logger.Info("Connected to Redis",
		zap.String("addr", cfg.Addr),
		zap.Int("db", cfg.DB),
		zap.Int("pool_size", cfg.PoolSize),
	)

	return redisClient, nil
}

// NewRedisClientWithClient wraps an existing client without probing it
func NewRedisClientWithClient(client redis.UniversalClient, cfg config.RedisConfig, m *metrics.Metrics, log *logger.Logger) *RedisClient {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "insights"
	}
	var wrapper *metrics.DatabaseMetricsWrapper
	if m != nil {
		wrapper = metrics.NewDatabaseMetricsWrapper(m, "redis")
	}
	return &RedisClient{
		client:  client,
		logger:  log.WithService("redis"),
		config:  cfg,
		metrics: wrapper,
	}
}

// Ping tests the connection to Redis
func (r *RedisClient) Ping(ctx context.Context) error {
	start := time.Now()
	err := r.client.Ping(ctx).Err()
	duration := time.Since(start).Seconds() * 1000
	r.logger.LogServiceCall("redis", "ping", duration, err)
	return err
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	return r.client.Close()
}

// HealthCheck performs a health check on the Redis connection
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.Ping(ctx)
}

// StatusKey returns the key holding the status of a (dataset, run kind)
func (r *RedisClient) StatusKey(datasetID string, kind models.RunKind) string {
	return fmt.Sprintf("%s:status:%s:%s", r.config.KeyPrefix, datasetID, kind)
}

// GetStatus returns the status record, or not_started when the key is absent
func (r *RedisClient) GetStatus(ctx context.Context, datasetID string, kind models.RunKind) (*models.StatusRecord, error) {
	key := r.StatusKey(datasetID, kind)

	var raw string
	err := r.record("get_status", func() error {
		start := time.Now()
		var err error
		raw, err = r.client.Get(ctx, key).Result()
		r.logger.LogServiceCall("redis", "get:"+key, time.Since(start).Seconds()*1000, ignoreNil(err))
		return ignoreNil(err)
	})
	if err != nil {
		return nil, errors.PersistenceFailure("Failed to read run status", err)
	}
	if raw == "" {
		return models.NotStarted(datasetID, kind), nil
	}

	var rec models.StatusRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errors.PersistenceFailure("Stored run status is corrupt", err).WithDetails("key", key)
	}
	return &rec, nil
}

// SetStatus replaces the status record of its key
func (r *RedisClient) SetStatus(ctx context.Context, record *models.StatusRecord) error {
	key := r.StatusKey(record.DatasetID, record.Kind)
	payload, err := json.Marshal(record)
	if err != nil {
		return errors.PersistenceFailure("Failed to encode run status", err)
	}

	err = r.record("set_status", func() error {
		start := time.Now()
		err := r.client.Set(ctx, key, payload, r.config.StatusTTL).Err()
		r.logger.LogServiceCall("redis", "set:"+key, time.Since(start).Seconds()*1000, err)
		return err
	})
	if err != nil {
		return errors.PersistenceFailure("Failed to write run status", err)
	}
	return nil
}

// DeleteStatuses removes the status records of every run kind of a dataset
func (r *RedisClient) DeleteStatuses(ctx context.Context, datasetID string) error {
	keys := make([]string, 0, len(models.AllRunKinds))
	for _, kind := range models.AllRunKinds {
		keys = append(keys, r.StatusKey(datasetID, kind))
	}

	err := r.record("delete_status", func() error {
		start := time.Now()
		err := r.client.Del(ctx, keys...).Err()
		r.logger.LogServiceCall("redis", fmt.Sprintf("del:%v", keys), time.Since(start).Seconds()*1000, err)
		return err
	})
	if err != nil {
		return errors.PersistenceFailure("Failed to delete run statuses", err)
	}
	return nil
}

// GetStats returns Redis client statistics
func (r *RedisClient) GetStats() *redis.PoolStats {
	return r.client.PoolStats()
}

func (r *RedisClient) record(operation string, fn func() error) error {
	return r.metrics.RecordQuery(operation, fn)
}

func ignoreNil(err error) error {
	if stderrors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
