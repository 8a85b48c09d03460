package pipeline

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/logger"
	"github.com/Tributary-ai-services/aether-insights/internal/metrics"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
	"github.com/Tributary-ai-services/aether-insights/pkg/errors"
)

const salesCSV = `day,sales,units
2024-01-01,10,1
2024-01-02,20,2
2024-01-03,30,3
2024-01-04,40,4
`

func seed(t *testing.T, store *MemoryStore, id, content string) *models.Dataset {
	t.Helper()
	ds := &models.Dataset{
		ID:         id,
		Name:       id,
		FileName:   id + ".csv",
		StorageKey: models.BuildStorageKey(id, id+".csv"),
		SizeBytes:  int64(len(content)),
	}
	ctx := context.Background()
	require.NoError(t, store.Upload(ctx, ds.StorageKey, strings.NewReader(content), ds.SizeBytes, "text/csv"))
	require.NoError(t, store.SaveDataset(ctx, ds))
	return ds
}

func newTestEngine(store *MemoryStore, results ResultStore) *Engine {
	if results == nil {
		results = store
	}
	log := logger.NewNop()
	return NewEngine(store, results, nil, DefaultEngineOptions(), metrics.NewMetrics(log), log)
}

func TestEngineExecute(t *testing.T) {
	ctx := context.Background()

	t.Run("profiling persists the profile", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", salesCSV)
		e := newTestEngine(store, nil)

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunProfiling})
		require.NoError(t, err)
		assert.Equal(t, []string{models.StageRead, models.StageProfile, models.StagePersist}, outcome.CompletedStages)
		assert.Empty(t, outcome.FailedStage)

		profile, err := store.GetProfile(ctx, "ds-1")
		require.NoError(t, err)
		assert.Equal(t, 4, profile.RowCount)
		col, ok := profile.Column("sales")
		require.True(t, ok)
		assert.Equal(t, models.TypeInteger, col.DetectedType)
	})

	t.Run("insight generation persists the report", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", salesCSV)
		e := newTestEngine(store, nil)

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunInsightGeneration})
		require.NoError(t, err)
		assert.Contains(t, outcome.CompletedStages, models.StageMine)

		report, err := store.GetInsights(ctx, "ds-1")
		require.NoError(t, err)
		require.NotEmpty(t, report.Correlations)
		assert.Equal(t, models.StrengthStrong, report.Correlations[0].Strength)
	})

	t.Run("dashboard generation runs every stage", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", salesCSV)
		e := newTestEngine(store, nil)

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunDashboardGeneration})
		require.NoError(t, err)
		assert.Equal(t, []string{
			models.StageRead, models.StageProfile, models.StageMine,
			models.StageRecommend, models.StageLayout, models.StagePersist,
		}, outcome.CompletedStages)

		dash, err := store.GetDashboard(ctx, "ds-1")
		require.NoError(t, err)
		p, ok := dash.Layout.Placement("line.day.sales")
		require.True(t, ok)
		assert.Equal(t, 12, p.W)
	})

	t.Run("semantic analysis uses the classifier", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", "customer_id,email\n1,a@example.com\n2,b@example.com\n")
		e := newTestEngine(store, nil)

		_, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunSemanticAnalysis})
		require.NoError(t, err)

		report, err := store.GetClassifications(ctx, "ds-1")
		require.NoError(t, err)
		assert.Equal(t, "local", report.Classifier)
		require.Len(t, report.Classifications, 2)
		assert.Equal(t, models.SemanticIdentifier, report.Classifications[0].SemanticType)
		assert.Equal(t, models.SemanticEmail, report.Classifications[1].SemanticType)
	})

	t.Run("classifier failure is partial", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", salesCSV)
		cls := new(MockClassifier)
		cls.On("Classify", mock.Anything, mock.Anything).Return(nil, stderrors.New("exit status 3"))
		log := logger.NewNop()
		e := NewEngine(store, store, cls, DefaultEngineOptions(), nil, log)

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunSemanticAnalysis})
		require.Error(t, err)
		assert.True(t, errors.IsDelegationFailure(err))
		assert.Equal(t, models.StageClassify, outcome.FailedStage)
		assert.True(t, outcome.Partial())
		cls.AssertExpectations(t)
	})

	t.Run("unknown dataset", func(t *testing.T) {
		e := newTestEngine(NewMemoryStore(), nil)

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "missing", Kind: models.RunProfiling})
		assert.True(t, errors.IsNotFound(err))
		assert.Equal(t, models.StageRead, outcome.FailedStage)
		assert.False(t, outcome.Partial())
	})

	t.Run("unreadable file is a parse error", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", "")
		e := newTestEngine(store, nil)

		_, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunProfiling})
		assert.True(t, errors.IsParse(err))
	})

	t.Run("header only dataset completes", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", "a,b\n")
		e := newTestEngine(store, nil)

		_, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunDashboardGeneration})
		require.NoError(t, err)

		dash, err := store.GetDashboard(ctx, "ds-1")
		require.NoError(t, err)
		assert.Empty(t, dash.Charts)
	})

	t.Run("store failure is a persistence failure", func(t *testing.T) {
		store := NewMemoryStore()
		seed(t, store, "ds-1", salesCSV)
		e := newTestEngine(store, failingResults{store})

		outcome, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunInsightGeneration})
		assert.True(t, errors.IsPersistenceFailure(err))
		assert.Equal(t, models.StagePersist, outcome.FailedStage)
		assert.True(t, outcome.Partial())
	})

	t.Run("engine without stores", func(t *testing.T) {
		log := logger.NewNop()
		e := NewEngine(nil, nil, nil, DefaultEngineOptions(), nil, log)
		_, err := e.Execute(ctx, &models.Run{ID: "r1", DatasetID: "ds-1", Kind: models.RunProfiling})
		assert.Error(t, err)
	})
}

func TestEngineAnalyze(t *testing.T) {
	ds, err := dataset.ReadString(salesCSV)
	require.NoError(t, err)
	ds.ID = "local"

	log := logger.NewNop()
	e := NewEngine(nil, nil, nil, DefaultEngineOptions(), nil, log)

	out, err := e.Analyze(context.Background(), ds, true)
	require.NoError(t, err)
	assert.Equal(t, "local", out.Profile.DatasetID)
	assert.Equal(t, "local", out.Insights.DatasetID)
	assert.NotEmpty(t, out.Dashboard.Charts)
	require.NotNil(t, out.Semantics)
	assert.Len(t, out.Semantics.Classifications, 3)

	out, err = e.Analyze(context.Background(), ds, false)
	require.NoError(t, err)
	assert.Nil(t, out.Semantics)
}
