package analysis

import (
	"fmt"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const secondsPerDay = 24 * 60 * 60

// SummarizeDates parses values with the detected layout and reports their
// span and most frequent year and month. Nil when nothing parses.
func SummarizeDates(values []string, layout string) *models.DateStatistics {
	var stats *models.DateStatistics
	years := make(map[int]int)
	months := make(map[int]int)
	for _, v := range values {
		t, ok := ParseDate(v, layout)
		if !ok {
			continue
		}
		if stats == nil {
			stats = &models.DateStatistics{MinDate: t, MaxDate: t}
		}
		stats.Count++
		if t.Before(stats.MinDate) {
			stats.MinDate = t
		}
		if t.After(stats.MaxDate) {
			stats.MaxDate = t
		}
		years[t.Year()]++
		months[int(t.Month())]++
	}
	if stats == nil {
		return nil
	}

	stats.RangeDays = int((stats.MaxDate.Unix() - stats.MinDate.Unix()) / secondsPerDay)
	stats.YearRange = fmt.Sprintf("%d - %d", stats.MinDate.Year(), stats.MaxDate.Year())
	stats.MostCommonYear = mode(years)
	stats.MostCommonMonth = mode(months)
	return stats
}

// mode returns the most frequent key, the smallest on ties
func mode(counts map[int]int) int {
	best, bestCount := 0, 0
	for k, c := range counts {
		if c > bestCount || (c == bestCount && k < best) {
			best, bestCount = k, c
		}
	}
	return best
}
