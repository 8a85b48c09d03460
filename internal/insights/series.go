// Package insights mines correlations, outliers, trends and narrative
// findings from a profiled dataset.
package insights

import (
	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// series holds the parsed values of one numeric column. Present marks the
// rows whose cell parsed, so pairs can be aligned by row.
type series struct {
	profile models.ColumnProfile
	values  []float64
	present []bool
}

func (s series) name() string { return s.profile.Name }

// dense returns only the parsed values in row order
func (s series) dense() []float64 {
	out := make([]float64, 0, len(s.values))
	for i, ok := range s.present {
		if ok {
			out = append(out, s.values[i])
		}
	}
	return out
}

// numericSeries parses every numeric column of ds in header order
func numericSeries(ds *models.Dataset, profile *models.DatasetProfile) []series {
	var out []series
	for _, col := range profile.Columns {
		if !col.DetectedType.IsNumeric() {
			continue
		}
		idx := ds.ColumnIndex(col.Name)
		if idx < 0 {
			continue
		}
		s := series{
			profile: col,
			values:  make([]float64, ds.RowCount()),
			present: make([]bool, ds.RowCount()),
		}
		currency := col.DetectedType == models.TypeCurrency
		percentage := col.DetectedType == models.TypePercentage
		for r, row := range ds.Rows {
			raw := row.Get(idx)
			if analysis.IsMissing(raw) {
				continue
			}
			if f, ok := analysis.NumericValue(raw, currency, percentage); ok {
				s.values[r] = f
				s.present[r] = true
			}
		}
		out = append(out, s)
	}
	return out
}

// paired returns the values of two series on rows where both are present
func paired(x, y series) ([]float64, []float64) {
	xs := make([]float64, 0, len(x.values))
	ys := make([]float64, 0, len(y.values))
	for i := range x.values {
		if x.present[i] && y.present[i] {
			xs = append(xs, x.values[i])
			ys = append(ys, y.values[i])
		}
	}
	return xs, ys
}
