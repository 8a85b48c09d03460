package insights

import (
	"fmt"
	"math"
	"sort"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const (
	minOutlierValues = 4
	maxOutlierValues = 10
	iqrMultiplier    = 1.5
	zScoreLimit      = 3.0
)

// Outliers applies Tukey's fences to every numeric column. Columns without
// any value beyond the fences are omitted.
func Outliers(cols []series) []models.Outlier {
	var out []models.Outlier
	for _, s := range cols {
		if o, ok := detectOutliers(s.name(), s.dense()); ok {
			out = append(out, o)
		}
	}
	return out
}

func detectOutliers(column string, values []float64) (models.Outlier, bool) {
	if len(values) < minOutlierValues {
		return models.Outlier{}, false
	}
	sorted := analysis.Sorted(values)
	q1 := analysis.LinearQuantile(sorted, 0.25)
	q3 := analysis.LinearQuantile(sorted, 0.75)
	iqr := q3 - q1
	lower := q1 - iqrMultiplier*iqr
	upper := q3 + iqrMultiplier*iqr

	var flagged []float64
	for _, v := range values {
		if v < lower || v > upper {
			flagged = append(flagged, v)
		}
	}
	if len(flagged) == 0 {
		return models.Outlier{}, false
	}

	mean := analysis.Mean(values)
	std := analysis.PopulationStdDev(values)
	zCount := 0
	if std > 0 {
		for _, v := range values {
			if math.Abs(v-mean)/std > zScoreLimit {
				zCount++
			}
		}
	}

	// most extreme first
	mid := (q1 + q3) / 2
	sort.SliceStable(flagged, func(i, j int) bool {
		return math.Abs(flagged[i]-mid) > math.Abs(flagged[j]-mid)
	})
	if len(flagged) > maxOutlierValues {
		flagged = flagged[:maxOutlierValues]
	}

	count := 0
	for _, v := range values {
		if v < lower || v > upper {
			count++
		}
	}
	pct := float64(count) / float64(len(values)) * 100

	return models.Outlier{
		Column:         column,
		Count:          count,
		Percentage:     math.Round(pct*100) / 100,
		LowerBound:     lower,
		UpperBound:     upper,
		Q1:             q1,
		Q3:             q3,
		IQR:            iqr,
		ZScoreCount:    zCount,
		Values:         flagged,
		Interpretation: interpretOutliers(pct),
	}, true
}

func interpretOutliers(pct float64) string {
	switch {
	case pct > 10:
		return fmt.Sprintf("%.1f%% of values are outliers, which suggests a heavy-tailed or mixed distribution", pct)
	case pct > 5:
		return fmt.Sprintf("%.1f%% of values are outliers and may distort averages", pct)
	case pct > 1:
		return fmt.Sprintf("%.1f%% of values are outliers worth reviewing", pct)
	default:
		return fmt.Sprintf("%.1f%% of values are outliers, likely isolated extremes", pct)
	}
}
