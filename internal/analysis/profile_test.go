package analysis

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tributary-ai-services/aether-insights/internal/dataset"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

func profileOf(t *testing.T, csv string) *models.DatasetProfile {
	t.Helper()
	ds, err := dataset.ReadString(csv)
	require.NoError(t, err)
	prof, err := NewProfiler(nil, 4).Profile(context.Background(), ds)
	require.NoError(t, err)
	return prof
}

func TestProfile(t *testing.T) {
	t.Run("integer column with full completeness", func(t *testing.T) {
		prof := profileOf(t, "a,b\n1,10\n2,20\n3,30\n")

		a, ok := prof.Column("a")
		require.True(t, ok)
		assert.Equal(t, models.TypeInteger, a.DetectedType)
		assert.Equal(t, 3, a.UniqueCount)
		assert.Equal(t, 100.0, a.Completeness)
		require.NotNil(t, a.Statistics)
		assert.Equal(t, 1.0, a.Statistics.Min)
		assert.Equal(t, 3.0, a.Statistics.Max)
		assert.Equal(t, 2.0, a.Statistics.Mean)
		assert.Equal(t, 2.0, a.Statistics.Median)
	})

	t.Run("all missing column", func(t *testing.T) {
		prof := profileOf(t, "id,note\n1,\n2,\n3,\n")

		note, ok := prof.Column("note")
		require.True(t, ok)
		assert.Equal(t, models.TypeUnknown, note.DetectedType)
		assert.Equal(t, models.StorageString, note.OriginalStorageType)
		assert.Equal(t, 3, note.NullCount)
		assert.Equal(t, 0.0, note.Completeness)
		assert.Nil(t, note.Statistics)
		assert.Empty(t, note.SampleValues)
	})

	t.Run("header only dataset", func(t *testing.T) {
		prof := profileOf(t, "a,b\n")

		assert.Equal(t, 0, prof.RowCount)
		assert.Equal(t, 2, prof.ColumnCount)
		assert.Equal(t, 0.0, prof.Quality.Score)
		assert.Equal(t, models.QualityPoor, prof.Quality.Label)
		for _, c := range prof.Columns {
			assert.Equal(t, models.TypeUnknown, c.DetectedType)
		}
	})

	t.Run("columns keep header order", func(t *testing.T) {
		prof := profileOf(t, "z,y,x\n1,a,2024-01-01\n2,b,2024-01-02\n")
		names := make([]string, 0, len(prof.Columns))
		for i, c := range prof.Columns {
			names = append(names, c.Name)
			assert.Equal(t, i, c.Position)
		}
		assert.Equal(t, []string{"z", "y", "x"}, names)
	})

	t.Run("categorical top values", func(t *testing.T) {
		prof := profileOf(t, "region\nnorth\nsouth\nnorth\nnorth\neast\n")
		region, _ := prof.Column("region")
		require.NotEmpty(t, region.TopValues)
		assert.Equal(t, "north", region.TopValues[0].Value)
		assert.Equal(t, 3, region.TopValues[0].Count)
	})

	t.Run("coefficient of variation keeps the sign of the mean", func(t *testing.T) {
		prof := profileOf(t, "gain,loss\n1,-1\n2,-2\n100,-100\n")
		gain, _ := prof.Column("gain")
		loss, _ := prof.Column("loss")
		require.NotNil(t, gain.Statistics)
		require.NotNil(t, loss.Statistics)
		assert.Greater(t, gain.Statistics.CoefficientOfVariation, 1.0)
		assert.InDelta(t, -gain.Statistics.CoefficientOfVariation, loss.Statistics.CoefficientOfVariation, 1e-9)
	})

	t.Run("date column statistics", func(t *testing.T) {
		prof := profileOf(t, "day,n\n2023-03-05,1\n2024-01-10,2\n2024-03-01,3\n2023-01-20,4\n")
		day, ok := prof.Column("day")
		require.True(t, ok)
		assert.True(t, day.DetectedType.IsTemporal())
		assert.Nil(t, day.Statistics)

		ds := day.DateStatistics
		require.NotNil(t, ds)
		assert.Equal(t, 4, ds.Count)
		assert.Equal(t, "2023-01-20", ds.MinDate.Format("2006-01-02"))
		assert.Equal(t, "2024-03-01", ds.MaxDate.Format("2006-01-02"))
		assert.Equal(t, 406, ds.RangeDays)
		assert.Equal(t, "2023 - 2024", ds.YearRange)
		assert.Equal(t, 2023, ds.MostCommonYear, "ties resolve to the earlier year")
		assert.Equal(t, 1, ds.MostCommonMonth, "ties resolve to the earlier month")

		n, _ := prof.Column("n")
		assert.Nil(t, n.DateStatistics)
	})

	t.Run("sample values are capped", func(t *testing.T) {
		var b strings.Builder
		b.WriteString("n\n")
		for i := 0; i < 50; i++ {
			fmt.Fprintf(&b, "%d\n", i)
		}
		prof := profileOf(t, b.String())
		assert.Len(t, prof.Columns[0].SampleValues, maxSampleValues)
	})
}

func TestProfileProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 25; trial++ {
		var b strings.Builder
		b.WriteString("x,label\n")
		rows := 1 + rng.Intn(60)
		for i := 0; i < rows; i++ {
			if rng.Intn(6) == 0 {
				b.WriteString(",")
			} else {
				fmt.Fprintf(&b, "%.2f,", rng.NormFloat64()*100)
			}
			fmt.Fprintf(&b, "l%d\n", rng.Intn(4))
		}

		prof := profileOf(t, b.String())
		for _, c := range prof.Columns {
			assert.GreaterOrEqual(t, c.NullCount, 0)
			assert.LessOrEqual(t, c.NullCount, prof.RowCount)
			if s := c.Statistics; s != nil {
				assert.LessOrEqual(t, s.Min, s.Median)
				assert.LessOrEqual(t, s.Median, s.Max)
				assert.LessOrEqual(t, s.Q1, s.Median)
				assert.LessOrEqual(t, s.Median, s.Q3)
			}
		}
		assert.GreaterOrEqual(t, prof.Quality.Score, 0.0)
		assert.LessOrEqual(t, prof.Quality.Score, 100.0)
	}
}

func TestQuality(t *testing.T) {
	t.Run("duplicates lower consistency", func(t *testing.T) {
		clean := profileOf(t, "a,b\n1,x\n2,y\n3,z\n")
		dup := profileOf(t, "a,b\n1,x\n1,x\n3,z\n")

		assert.Equal(t, 0, clean.Quality.DuplicateRowCount)
		assert.Equal(t, 1, dup.Quality.DuplicateRowCount)
		assert.Less(t, dup.Quality.Consistency, clean.Quality.Consistency)
		assert.Less(t, dup.Quality.Score, clean.Quality.Score)
	})

	t.Run("complete unique data is excellent", func(t *testing.T) {
		prof := profileOf(t, "a,b\n1,x\n2,y\n3,z\n")
		assert.Equal(t, 100.0, prof.Quality.Score)
		assert.Equal(t, models.QualityExcellent, prof.Quality.Label)
	})
}
