package insights

import (
	"math"
	"sort"
	"time"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const (
	minTrendPoints    = 3
	forecastHorizon   = 3
	significanceLevel = 0.05

	// stableChangeRate bounds |slope / mean| for a stable series
	stableChangeRate = 0.001
)

type point struct {
	at    time.Time
	value float64
}

// Trends fits a line through each numeric column ordered by each date column
func Trends(ds *models.Dataset, profile *models.DatasetProfile, cols []series) []models.Trend {
	var out []models.Trend
	for _, dc := range profile.ColumnsOfKind(models.DetectedType.IsTemporal) {
		idx := ds.ColumnIndex(dc.Name)
		if idx < 0 {
			continue
		}
		dates := make([]time.Time, ds.RowCount())
		parsed := make([]bool, ds.RowCount())
		for r, row := range ds.Rows {
			raw := row.Get(idx)
			if analysis.IsMissing(raw) {
				continue
			}
			dates[r], parsed[r] = analysis.ParseDate(raw, dc.Format)
		}

		for _, s := range cols {
			var pts []point
			for r := range ds.Rows {
				if parsed[r] && s.present[r] {
					pts = append(pts, point{at: dates[r], value: s.values[r]})
				}
			}
			if t, ok := fitTrend(dc.Name, s.name(), pts); ok {
				out = append(out, t)
			}
		}
	}
	return out
}

func fitTrend(dateColumn, valueColumn string, pts []point) (models.Trend, bool) {
	if len(pts) < minTrendPoints {
		return models.Trend{}, false
	}
	sort.SliceStable(pts, func(i, j int) bool { return pts[i].at.Before(pts[j].at) })

	ys := make([]float64, len(pts))
	for i, p := range pts {
		ys[i] = p.value
	}
	fit := analysis.FitIndex(ys)
	mean := analysis.Mean(ys)

	t := models.Trend{
		DateColumn:  dateColumn,
		ValueColumn: valueColumn,
		Slope:       fit.Slope,
		RSquared:    fit.RSquared,
		DataPoints:  len(ys),
		StartValue:  ys[0],
		EndValue:    ys[len(ys)-1],
		Forecast:    make([]float64, 0, forecastHorizon),
	}
	if mean != 0 {
		t.ChangeRate = fit.Slope / math.Abs(mean)
	}
	if t.StartValue != 0 {
		t.PercentageChange = (t.EndValue - t.StartValue) / math.Abs(t.StartValue) * 100
	}
	t.Direction = direction(fit.Slope, mean)
	t.TrendStrength = math.Abs(fit.Slope) * fit.RSquared
	t.PValue = fit.PValue()
	t.IsSignificant = t.PValue < significanceLevel
	for k := 0; k < forecastHorizon; k++ {
		t.Forecast = append(t.Forecast, fit.Predict(float64(len(ys)+k)))
	}

	if len(ys) >= minSeasonalPoints {
		t.Seasonality = detectSeasonality(ys, fit)
	}
	t.Changepoints = make([]models.Changepoint, 0)
	for _, cp := range detectChangepoints(ys) {
		cp.At = pts[cp.Index].at
		t.Changepoints = append(t.Changepoints, cp)
	}
	return t, true
}

// direction compares the slope with the series level. A zero-mean series is
// stable only when exactly flat.
func direction(slope, mean float64) models.TrendDirection {
	switch {
	case slope == 0:
		return models.TrendStable
	case mean != 0 && math.Abs(slope/mean) < stableChangeRate:
		return models.TrendStable
	case slope > 0:
		return models.TrendIncreasing
	default:
		return models.TrendDecreasing
	}
}
