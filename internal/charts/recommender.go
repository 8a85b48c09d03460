// Package charts recommends chart types for column pairs and assembles chart
// configurations for a dashboard.
package charts

import (
	"fmt"
	"sort"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// pieCardinalityLimit is the largest category count a pie chart is offered for
const pieCardinalityLimit = 10

// Recommend ranks chart types for plotting y against x. It is pure: the same
// profiles always give the same list, highest priority first.
func Recommend(x, y models.ColumnProfile) []models.ChartRecommendation {
	var recs []models.ChartRecommendation
	if !y.DetectedType.IsNumeric() {
		return recs
	}

	xt := x.DetectedType
	switch {
	case xt.IsTemporal():
		recs = append(recs,
			models.ChartRecommendation{ChartType: models.ChartLine, Priority: 10, Reason: fmt.Sprintf("%s over time", y.Name)},
			models.ChartRecommendation{ChartType: models.ChartArea, Priority: 8, Reason: fmt.Sprintf("Cumulative %s over time", y.Name)},
		)
	case xt.IsCategorical():
		recs = append(recs, models.ChartRecommendation{ChartType: models.ChartBar, Priority: 9, Reason: fmt.Sprintf("Compare %s across %s", y.Name, x.Name)})
		if x.UniqueCount <= pieCardinalityLimit {
			recs = append(recs, models.ChartRecommendation{ChartType: models.ChartPie, Priority: 7, Reason: fmt.Sprintf("Share of %s by %s", y.Name, x.Name)})
		}
	}

	if xt.IsCoordinate() {
		recs = append(recs, models.ChartRecommendation{ChartType: models.ChartMap, Priority: 9, Reason: fmt.Sprintf("%s by location", y.Name)})
	}
	if xt.IsNumeric() && x.Name != y.Name {
		recs = append(recs, models.ChartRecommendation{ChartType: models.ChartScatter, Priority: 8, Reason: fmt.Sprintf("Relationship between %s and %s", x.Name, y.Name)})
	}

	sort.SliceStable(recs, func(i, j int) bool { return recs[i].Priority > recs[j].Priority })
	return recs
}
