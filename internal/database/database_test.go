package database

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/config"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

func TestValidateNeo4jParameters(t *testing.T) {
	t.Run("primitives and lists", func(t *testing.T) {
		err := validateNeo4jParameters(map[string]interface{}{
			"id":    "abc",
			"count": 3,
			"score": 0.5,
			"ok":    true,
			"names": []string{"a", "b"},
			"none":  nil,
		})
		assert.NoError(t, err)
	})

	t.Run("unwind batches of maps", func(t *testing.T) {
		err := validateNeo4jParameters(map[string]interface{}{
			"columns": []map[string]interface{}{
				{"name": "sales", "position": 1, "tags": []string{"x"}},
			},
		})
		assert.NoError(t, err)
	})

	t.Run("maps nested in maps are rejected", func(t *testing.T) {
		err := validateNeo4jParameters(map[string]interface{}{
			"columns": []map[string]interface{}{
				{"stats": map[string]interface{}{"min": 1}},
			},
		})
		assert.Error(t, err)
	})

	t.Run("structs are rejected", func(t *testing.T) {
		err := validateNeo4jParameters(map[string]interface{}{
			"dataset": models.Dataset{ID: "x"},
		})
		assert.Error(t, err)
	})
}

func TestDatasetParamsRoundTrip(t *testing.T) {
	created := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	ds := &models.Dataset{
		ID:          "ds-1",
		Name:        "Sales",
		FileName:    "sales.csv",
		StorageKey:  "datasets/ds-1/sales.csv",
		SizeBytes:   1024,
		ContentType: "text/csv",
		CreatedAt:   created,
	}

	params := datasetParams(ds)
	require.NoError(t, validateNeo4jParameters(params))

	got := datasetFromProps(params)
	assert.Equal(t, ds.ID, got.ID)
	assert.Equal(t, ds.Name, got.Name)
	assert.Equal(t, ds.StorageKey, got.StorageKey)
	assert.Equal(t, ds.SizeBytes, got.SizeBytes)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestResultParams(t *testing.T) {
	profile := &models.DatasetProfile{
		DatasetID: "ds-1",
		Columns: []models.ColumnProfile{
			{Name: "day", Position: 0, DetectedType: models.TypeDate, Completeness: 1},
			{Name: "sales", Position: 1, DetectedType: models.TypeInteger, NullCount: 2},
		},
	}

	cols := columnParams(profile)
	require.Len(t, cols, 2)
	assert.Equal(t, "date", cols[0]["detected_type"])
	assert.Equal(t, 2, cols[1]["null_count"])
	assert.Equal(t, []string{"day", "sales"}, columnNames(profile))

	corrs := correlationParams([]models.Correlation{{
		ColumnX: "sales", ColumnY: "units", Value: 0.92,
		Strength: models.StrengthStrong, Direction: models.DirectionPositive,
	}})
	assert.Equal(t, "strong", corrs[0]["strength"])

	classes := classificationParams([]models.ColumnClassification{{
		ColumnName: "email", SemanticType: models.SemanticEmail, Confidence: 0.9,
	}})
	assert.Equal(t, "email", classes[0]["semantic_type"])

	for _, p := range []map[string]interface{}{
		{"columns": cols},
		{"correlations": corrs},
		{"classifications": classes},
	} {
		assert.NoError(t, validateNeo4jParameters(p))
	}
}

func TestPersistErr(t *testing.T) {
	notFound := errors.NotFound("Dataset not found")
	assert.Same(t, notFound, persistErr("profile", notFound))

	err := persistErr("profile", assert.AnError)
	assert.True(t, errors.IsPersistenceFailure(err))
}

func unreachableRedis(t *testing.T) *RedisClient {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 200 * time.Millisecond,
	})
	r := NewRedisClientWithClient(client, config.RedisConfig{StatusTTL: time.Hour}, nil, logger.NewNop())
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisStatusKey(t *testing.T) {
	r := unreachableRedis(t)
	assert.Equal(t, "insights:status:ds-1:profiling", r.StatusKey("ds-1", models.RunProfiling))
}

func TestRedisUnavailable(t *testing.T) {
	r := unreachableRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := r.GetStatus(ctx, "ds-1", models.RunProfiling)
	assert.True(t, errors.IsPersistenceFailure(err))

	err = r.SetStatus(ctx, models.NotStarted("ds-1", models.RunProfiling))
	assert.True(t, errors.IsPersistenceFailure(err))

	err = r.DeleteStatuses(ctx, "ds-1")
	assert.True(t, errors.IsPersistenceFailure(err))

	assert.Error(t, r.HealthCheck(ctx))
}
