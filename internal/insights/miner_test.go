package insights

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

func load(t *testing.T, csv string) (*models.Dataset, *models.DatasetProfile) {
	t.Helper()
	ds, err := dataset.ReadString(csv)
	require.NoError(t, err)
	prof, err := analysis.NewProfiler(nil, 2).Profile(context.Background(), ds)
	require.NoError(t, err)
	return ds, prof
}

func mine(t *testing.T, csv string) *models.InsightReport {
	t.Helper()
	ds, prof := load(t, csv)
	report, err := NewMiner(DefaultMinerOptions()).Mine(context.Background(), ds, prof)
	require.NoError(t, err)
	return report
}

func TestCorrelations(t *testing.T) {
	t.Run("perfectly correlated columns", func(t *testing.T) {
		report := mine(t, "a,b\n1,10\n2,20\n3,30\n")

		require.Len(t, report.Correlations, 1)
		c := report.Correlations[0]
		assert.Equal(t, "a", c.ColumnX)
		assert.Equal(t, "b", c.ColumnY)
		assert.InDelta(t, 1.0, c.Value, 1e-9)
		assert.Equal(t, models.DirectionPositive, c.Direction)
		assert.Equal(t, models.StrengthStrong, c.Strength)
		assert.True(t, c.VeryStrong)
	})

	t.Run("symmetric and self correlated", func(t *testing.T) {
		ds, prof := load(t, "x,y\n1,3\n4,1\n2,4\n8,1\n5,5\n")
		cols := numericSeries(ds, prof)
		require.Len(t, cols, 2)

		xs, ys := paired(cols[0], cols[1])
		assert.InDelta(t, analysis.Pearson(xs, ys), analysis.Pearson(ys, xs), 1e-12)

		self := correlate(cols[0], cols[0])
		require.NotNil(t, self)
		assert.InDelta(t, 1.0, self.Value, 1e-9)
	})

	t.Run("weak and constant pairs are dropped", func(t *testing.T) {
		report := mine(t, "a,b,c\n1,5,7\n2,1,7\n3,4,7\n4,2,7\n5,3,7\n")
		for _, c := range report.Correlations {
			assert.NotEqual(t, "c", c.ColumnY)
			assert.GreaterOrEqual(t, abs(c.Value), moderateThreshold)
		}
	})

	t.Run("sorted by absolute value", func(t *testing.T) {
		report := mine(t, "a,b,c\n1,2,9\n2,4,7\n3,5,8\n4,8,3\n5,9,4\n")
		for i := 1; i < len(report.Correlations); i++ {
			assert.GreaterOrEqual(t, abs(report.Correlations[i-1].Value), abs(report.Correlations[i].Value))
		}
	})

	t.Run("missing cells are skipped pairwise", func(t *testing.T) {
		report := mine(t, "a,b\n1,10\n2,\n3,30\n4,40\n")
		require.Len(t, report.Correlations, 1)
		assert.Equal(t, 3, report.Correlations[0].SampleSize)
	})
}

func TestOutliers(t *testing.T) {
	t.Run("single extreme value", func(t *testing.T) {
		report := mine(t, "x\n1\n2\n3\n100\n")

		require.Len(t, report.Outliers, 1)
		o := report.Outliers[0]
		assert.Equal(t, "x", o.Column)
		assert.Equal(t, 1, o.Count)
		assert.Equal(t, []float64{100}, o.Values)
		assert.InDelta(t, 1.75, o.Q1, 1e-9)
		assert.InDelta(t, 27.25, o.Q3, 1e-9)
		assert.Greater(t, 100.0, o.UpperBound)
		assert.Equal(t, 25.0, o.Percentage)
		assert.NotEmpty(t, o.Interpretation)
	})

	t.Run("no outliers in a uniform column", func(t *testing.T) {
		report := mine(t, "x\n1\n2\n3\n4\n5\n")
		assert.Empty(t, report.Outliers)
	})
}

func TestTrends(t *testing.T) {
	report := mine(t, "day,sales\n2024-01-03,30\n2024-01-01,10\n2024-01-02,20\n2024-01-04,40\n")

	require.Len(t, report.Trends, 1)
	tr := report.Trends[0]
	assert.Equal(t, "day", tr.DateColumn)
	assert.Equal(t, "sales", tr.ValueColumn)
	assert.Equal(t, models.TrendIncreasing, tr.Direction)
	assert.InDelta(t, 10.0, tr.Slope, 1e-9)
	assert.InDelta(t, 10.0/25.0, tr.ChangeRate, 1e-9)
	assert.Equal(t, 10.0, tr.StartValue)
	assert.Equal(t, 40.0, tr.EndValue)
	assert.InDelta(t, 300.0, tr.PercentageChange, 1e-9)
	assert.InDelta(t, 1.0, tr.RSquared, 1e-9)
	require.Len(t, tr.Forecast, forecastHorizon)
	assert.InDelta(t, 50.0, tr.Forecast[0], 1e-9)

	assert.InDelta(t, 10.0, tr.TrendStrength, 1e-9)
	assert.InDelta(t, 0.0, tr.PValue, 1e-9)
	assert.True(t, tr.IsSignificant)
	assert.Nil(t, tr.Seasonality, "too short for seasonality")
	assert.NotNil(t, tr.Changepoints)
	assert.Empty(t, tr.Changepoints)

	t.Run("flat series is stable", func(t *testing.T) {
		report := mine(t, "day,v\n2024-01-01,5\n2024-01-02,5\n2024-01-03,5\n")
		require.Len(t, report.Trends, 1)
		assert.Equal(t, models.TrendStable, report.Trends[0].Direction)
		assert.False(t, report.Trends[0].IsSignificant)
	})

	t.Run("small magnitude series keeps its direction", func(t *testing.T) {
		report := mine(t, "d,growth_rate\n2024-01-01,0.001\n2024-01-02,0.0015\n2024-01-03,0.002\n2024-01-04,0.0025\n")
		require.Len(t, report.Trends, 1)
		tr := report.Trends[0]
		assert.Equal(t, models.TrendIncreasing, tr.Direction)
		assert.InDelta(t, 0.0005/0.00175, tr.ChangeRate, 1e-9)
	})

	t.Run("negative mean series", func(t *testing.T) {
		report := mine(t, "day,balance\n2024-01-01,-10\n2024-01-02,-9\n2024-01-03,-8\n")
		require.Len(t, report.Trends, 1)
		tr := report.Trends[0]
		assert.Equal(t, models.TrendIncreasing, tr.Direction)
		assert.InDelta(t, 1.0/9.0, tr.ChangeRate, 1e-9)
	})

	t.Run("large level with tiny relative drift is stable", func(t *testing.T) {
		report := mine(t, "day,v\n2024-01-01,100000\n2024-01-02,100001\n2024-01-03,100002\n")
		require.Len(t, report.Trends, 1)
		assert.Equal(t, models.TrendStable, report.Trends[0].Direction)
	})
}

func TestMine(t *testing.T) {
	t.Run("empty dataset yields empty categories", func(t *testing.T) {
		report := mine(t, "a,b\n")

		assert.Empty(t, report.Insights)
		assert.NotNil(t, report.Correlations)
		assert.NotNil(t, report.Outliers)
		assert.NotNil(t, report.Trends)
		assert.NotEmpty(t, report.Summary)
	})

	t.Run("insights are ordered by priority after the overview", func(t *testing.T) {
		report := mine(t, "a,b,region\n1,10,north\n2,20,south\n3,30,north\n4,,east\n100,50,north\n")

		require.NotEmpty(t, report.Insights)
		assert.Equal(t, models.InsightSummary, report.Insights[0].Type)
		rest := report.Insights[1:]
		for i := 1; i < len(rest); i++ {
			assert.LessOrEqual(t, rest[i-1].Priority.Rank(), rest[i].Priority.Rank())
		}
	})

	t.Run("missing values raise priority", func(t *testing.T) {
		report := mine(t, "a,b\n1,\n2,\n3,x\n4,y\n5,z\n")
		found := findInsight(report, models.InsightMissingValues, "b")
		require.NotNil(t, found)
		assert.Equal(t, models.PriorityHigh, found.Priority)
	})

	t.Run("top contributor", func(t *testing.T) {
		report := mine(t, "region,sales\nnorth,100\nsouth,10\nnorth,80\neast,5\n")
		found := findInsight(report, models.InsightFeatureImportance, "region")
		require.NotNil(t, found)
		assert.Equal(t, "north", found.Metadata["category"])
	})

	t.Run("variability uses the signed mean", func(t *testing.T) {
		report := mine(t, "gain,loss\n1,-1\n2,-2\n100,-100\n")
		require.NotNil(t, findInsight(report, models.InsightVariability, "gain"))
		assert.Nil(t, findInsight(report, models.InsightVariability, "loss"))
	})

	t.Run("duplicates are reported", func(t *testing.T) {
		report := mine(t, "a,b\n1,x\n1,x\n2,y\n")
		assert.NotNil(t, findInsightID(report, "data_quality_duplicates"))
	})
}

func findInsight(report *models.InsightReport, typ models.InsightType, column string) *models.Insight {
	for i, in := range report.Insights {
		if in.Type != typ {
			continue
		}
		for _, c := range in.Columns {
			if c == column {
				return &report.Insights[i]
			}
		}
	}
	return nil
}

func findInsightID(report *models.InsightReport, id string) *models.Insight {
	for i, in := range report.Insights {
		if in.ID == id {
			return &report.Insights[i]
		}
	}
	return nil
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
