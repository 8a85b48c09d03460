package insights

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// MinerOptions tune insight generation
type MinerOptions struct {
	// Workers bounds the correlation pool.
	Workers int
	// MaxCorrelationInsights caps narrative insights derived from correlations.
	MaxCorrelationInsights int
	// ContributorShare is the share of a numeric total above which a category
	// is reported as a top contributor.
	ContributorShare float64
}

// DefaultMinerOptions returns the standard settings
func DefaultMinerOptions() MinerOptions {
	return MinerOptions{Workers: 4, MaxCorrelationInsights: 10, ContributorShare: 0.3}
}

// Miner derives an insight report from a dataset and its profile
type Miner struct {
	opt MinerOptions
}

// NewMiner creates a miner, filling unset options with defaults
func NewMiner(opt MinerOptions) *Miner {
	def := DefaultMinerOptions()
	if opt.Workers <= 0 {
		opt.Workers = def.Workers
	}
	if opt.MaxCorrelationInsights <= 0 {
		opt.MaxCorrelationInsights = def.MaxCorrelationInsights
	}
	if opt.ContributorShare <= 0 || opt.ContributorShare >= 1 {
		opt.ContributorShare = def.ContributorShare
	}
	return &Miner{opt: opt}
}

// Mine computes correlations, outliers and trends and turns them into
// prioritized insights. Categories that cannot be computed come back empty.
func (m *Miner) Mine(ctx context.Context, ds *models.Dataset, profile *models.DatasetProfile) (*models.InsightReport, error) {
	report := &models.InsightReport{
		DatasetID:    profile.DatasetID,
		Insights:     []models.Insight{},
		Correlations: []models.Correlation{},
		Outliers:     []models.Outlier{},
		Trends:       []models.Trend{},
		GeneratedAt:  time.Now(),
	}
	if ds.IsEmpty() {
		report.Summary = "Dataset is empty; no insights can be generated."
		return report, nil
	}

	cols := numericSeries(ds, profile)

	corrs, err := Correlations(ctx, cols, m.opt.Workers)
	if err != nil {
		return nil, err
	}
	if corrs != nil {
		report.Correlations = corrs
	}
	if o := Outliers(cols); o != nil {
		report.Outliers = o
	}
	if t := Trends(ds, profile, cols); t != nil {
		report.Trends = t
	}

	var ins []models.Insight
	ins = append(ins, qualityInsights(profile)...)
	ins = append(ins, m.correlationInsights(report.Correlations)...)
	ins = append(ins, outlierInsights(report.Outliers)...)
	ins = append(ins, trendInsights(report.Trends)...)
	ins = append(ins, columnInsights(profile)...)
	ins = append(ins, m.contributorInsights(ds, profile, cols)...)
	ins = append(ins, driverInsights(report.Correlations)...)

	sort.SliceStable(ins, func(i, j int) bool {
		return ins[i].Priority.Rank() < ins[j].Priority.Rank()
	})
	report.Summary = summarize(profile, report)
	report.Insights = append([]models.Insight{summaryInsight(report.Summary, profile)}, ins...)
	return report, nil
}

func insightID(t models.InsightType, parts ...string) string {
	return strings.Join(append([]string{string(t)}, parts...), "_")
}

func qualityInsights(profile *models.DatasetProfile) []models.Insight {
	var out []models.Insight
	q := profile.Quality

	priority := models.PriorityLow
	switch {
	case q.Score < 60:
		priority = models.PriorityHigh
	case q.Score < 75:
		priority = models.PriorityMedium
	}
	out = append(out, models.Insight{
		ID:          insightID(models.InsightDataQuality, "score"),
		Type:        models.InsightDataQuality,
		Priority:    priority,
		Title:       fmt.Sprintf("Data quality is %s", q.Label),
		Description: fmt.Sprintf("Overall quality score is %.1f/100 (completeness %.1f%%, uniqueness %.1f%%, consistency %.1f%%).", q.Score, q.Completeness, q.Uniqueness, q.Consistency),
		Actionable:  "Review missing values and duplicate rows before relying on aggregates.",
		Confidence:  1,
		Metadata:    map[string]interface{}{"score": q.Score, "label": q.Label},
	})

	if q.DuplicateRowCount > 0 {
		out = append(out, models.Insight{
			ID:          insightID(models.InsightDataQuality, "duplicates"),
			Type:        models.InsightDataQuality,
			Priority:    models.PriorityMedium,
			Title:       "Duplicate rows detected",
			Description: fmt.Sprintf("%d rows repeat an earlier row exactly.", q.DuplicateRowCount),
			Actionable:  "Deduplicate the dataset or confirm the repeats are expected.",
			Confidence:  1,
			Metadata:    map[string]interface{}{"duplicate_rows": q.DuplicateRowCount},
		})
	}

	for _, c := range profile.Columns {
		if c.Completeness >= 100 {
			continue
		}
		priority := models.PriorityLow
		switch {
		case c.Completeness < 80:
			priority = models.PriorityHigh
		case c.Completeness < 95:
			priority = models.PriorityMedium
		}
		out = append(out, models.Insight{
			ID:          insightID(models.InsightMissingValues, c.Name),
			Type:        models.InsightMissingValues,
			Priority:    priority,
			Title:       fmt.Sprintf("Missing values in %s", c.Name),
			Description: fmt.Sprintf("%s is %.1f%% complete with %d missing values.", c.Name, c.Completeness, c.NullCount),
			Actionable:  "Impute, backfill or exclude rows with missing values.",
			Columns:     []string{c.Name},
			Confidence:  1,
			Metadata:    map[string]interface{}{"null_count": c.NullCount, "completeness": c.Completeness},
		})
	}
	return out
}

func (m *Miner) correlationInsights(corrs []models.Correlation) []models.Insight {
	var out []models.Insight
	for i, c := range corrs {
		if i >= m.opt.MaxCorrelationInsights {
			break
		}
		priority := models.PriorityMedium
		if c.Strength == models.StrengthStrong {
			priority = models.PriorityHigh
		}
		label := string(c.Strength)
		if c.VeryStrong {
			label = "very strong"
		}
		out = append(out, models.Insight{
			ID:          insightID(models.InsightCorrelation, c.ColumnX, c.ColumnY),
			Type:        models.InsightCorrelation,
			Priority:    priority,
			Title:       fmt.Sprintf("%s %s correlation between %s and %s", capitalize(label), c.Direction, c.ColumnX, c.ColumnY),
			Description: fmt.Sprintf("%s and %s have a Pearson correlation of %.2f over %d rows.", c.ColumnX, c.ColumnY, c.Value, c.SampleSize),
			Actionable:  fmt.Sprintf("Use %s to explain or predict %s, and check for a shared cause.", c.ColumnX, c.ColumnY),
			Columns:     []string{c.ColumnX, c.ColumnY},
			Confidence:  math.Abs(c.Value),
			Metadata:    map[string]interface{}{"correlation": c.Value, "strength": c.Strength, "direction": c.Direction},
		})
	}
	return out
}

func outlierInsights(outliers []models.Outlier) []models.Insight {
	out := make([]models.Insight, 0, len(outliers))
	for _, o := range outliers {
		priority := models.PriorityLow
		switch {
		case o.Percentage > 5:
			priority = models.PriorityHigh
		case o.Percentage > 1:
			priority = models.PriorityMedium
		}
		out = append(out, models.Insight{
			ID:          insightID(models.InsightOutlier, o.Column),
			Type:        models.InsightOutlier,
			Priority:    priority,
			Title:       fmt.Sprintf("Outliers in %s", o.Column),
			Description: fmt.Sprintf("%d values fall outside [%.2f, %.2f]. %s.", o.Count, o.LowerBound, o.UpperBound, capitalize(o.Interpretation)),
			Actionable:  "Verify the extreme values and consider capping or excluding them.",
			Columns:     []string{o.Column},
			Confidence:  0.9,
			Metadata:    map[string]interface{}{"count": o.Count, "percentage": o.Percentage},
		})
	}
	return out
}

func trendInsights(trends []models.Trend) []models.Insight {
	out := make([]models.Insight, 0, len(trends))
	for _, t := range trends {
		priority := models.PriorityLow
		if t.Direction != models.TrendStable {
			priority = models.PriorityMedium
			if t.RSquared >= 0.7 {
				priority = models.PriorityHigh
			}
		}
		insight := models.Insight{
			ID:          insightID(models.InsightTrend, t.DateColumn, t.ValueColumn),
			Type:        models.InsightTrend,
			Priority:    priority,
			Title:       fmt.Sprintf("%s is %s over %s", t.ValueColumn, t.Direction, t.DateColumn),
			Description: fmt.Sprintf("%s changed %.1f%% from %.2f to %.2f across %d points (R² %.2f).", t.ValueColumn, t.PercentageChange, t.StartValue, t.EndValue, t.DataPoints, t.RSquared),
			Actionable:  "Track this series over time and plan for the projected values.",
			Columns:     []string{t.DateColumn, t.ValueColumn},
			Confidence:  t.RSquared,
			Metadata: map[string]interface{}{
				"slope":          t.Slope,
				"change_rate":    t.ChangeRate,
				"forecast":       t.Forecast,
				"trend_strength": t.TrendStrength,
				"p_value":        t.PValue,
				"is_significant": t.IsSignificant,
				"changepoints":   len(t.Changepoints),
			},
		}
		if t.Seasonality != nil && t.Seasonality.Detected {
			insight.Metadata["seasonal_period"] = t.Seasonality.Period
		}
		out = append(out, insight)
	}
	return out
}

// columnInsights covers per-column observations: variability, skew,
// identifier columns and dominant categories.
func columnInsights(profile *models.DatasetProfile) []models.Insight {
	var out []models.Insight
	for _, c := range profile.Columns {
		if s := c.Statistics; s != nil {
			if s.CoefficientOfVariation > 1 {
				out = append(out, models.Insight{
					ID:          insightID(models.InsightVariability, c.Name),
					Type:        models.InsightVariability,
					Priority:    models.PriorityMedium,
					Title:       fmt.Sprintf("High variability in %s", c.Name),
					Description: fmt.Sprintf("The standard deviation of %s is %.1f times its mean.", c.Name, s.CoefficientOfVariation),
					Actionable:  "Segment the data or use the median instead of the mean.",
					Columns:     []string{c.Name},
					Confidence:  0.8,
					Metadata:    map[string]interface{}{"coefficient_of_variation": s.CoefficientOfVariation},
				})
			}
			if math.Abs(s.Skewness) > 1 {
				side := "right"
				if s.Skewness < 0 {
					side = "left"
				}
				out = append(out, models.Insight{
					ID:          insightID(models.InsightDistribution, c.Name),
					Type:        models.InsightDistribution,
					Priority:    models.PriorityLow,
					Title:       fmt.Sprintf("%s is %s-skewed", c.Name, side),
					Description: fmt.Sprintf("%s has a skewness of %.2f.", c.Name, s.Skewness),
					Actionable:  "Consider a log transform or percentile-based summaries.",
					Columns:     []string{c.Name},
					Confidence:  0.8,
					Metadata:    map[string]interface{}{"skewness": s.Skewness},
				})
			}
		}

		switch {
		case c.DetectedType == models.TypeIdentifier || c.DetectedType == models.TypeUUID ||
			(c.Uniqueness == 100 && profile.RowCount > 1 && c.NullCount == 0 && !c.DetectedType.IsNumeric() && !c.DetectedType.IsTemporal()):
			out = append(out, models.Insight{
				ID:          insightID(models.InsightUniqueIdentifier, c.Name),
				Type:        models.InsightUniqueIdentifier,
				Priority:    models.PriorityLow,
				Title:       fmt.Sprintf("%s looks like an identifier", c.Name),
				Description: fmt.Sprintf("%s has %d distinct values across %d rows.", c.Name, c.UniqueCount, profile.RowCount),
				Actionable:  "Use it as a key for joins and exclude it from aggregations.",
				Columns:     []string{c.Name},
				Confidence:  c.Uniqueness / 100,
			})
		case c.DetectedType == models.TypeCategorical && len(c.TopValues) > 0:
			top := c.TopValues[0]
			present := profile.RowCount - c.NullCount
			share := 0.0
			if present > 0 {
				share = float64(top.Count) / float64(present) * 100
			}
			out = append(out, models.Insight{
				ID:          insightID(models.InsightCategorical, c.Name),
				Type:        models.InsightCategorical,
				Priority:    models.PriorityLow,
				Title:       fmt.Sprintf("%s has %d categories", c.Name, c.UniqueCount),
				Description: fmt.Sprintf("The most common value of %s is %q at %.1f%% of rows.", c.Name, top.Value, share),
				Actionable:  "Compare numeric measures across these categories.",
				Columns:     []string{c.Name},
				Confidence:  c.Confidence,
				Metadata:    map[string]interface{}{"top_value": top.Value, "share": share},
			})
		}
	}
	return out
}

// contributorInsights reports categories holding a large share of a
// non-negative numeric total.
func (m *Miner) contributorInsights(ds *models.Dataset, profile *models.DatasetProfile, cols []series) []models.Insight {
	var out []models.Insight
	for _, cat := range profile.ColumnsOfKind(models.DetectedType.IsCategorical) {
		if cat.UniqueCount < 2 {
			continue
		}
		idx := ds.ColumnIndex(cat.Name)
		for _, s := range cols {
			totals := make(map[string]float64)
			var order []string
			grand := 0.0
			negative := false
			for r, row := range ds.Rows {
				if !s.present[r] {
					continue
				}
				key := strings.TrimSpace(row.Get(idx))
				if analysis.IsMissing(key) {
					continue
				}
				v := s.values[r]
				if v < 0 {
					negative = true
					break
				}
				if _, ok := totals[key]; !ok {
					order = append(order, key)
				}
				totals[key] += v
				grand += v
			}
			if negative || grand == 0 || len(order) < 2 {
				continue
			}

			best := order[0]
			for _, k := range order[1:] {
				if totals[k] > totals[best] {
					best = k
				}
			}
			share := totals[best] / grand
			if share <= m.opt.ContributorShare {
				continue
			}
			out = append(out, models.Insight{
				ID:          insightID(models.InsightFeatureImportance, cat.Name, s.name()),
				Type:        models.InsightFeatureImportance,
				Priority:    models.PriorityMedium,
				Title:       fmt.Sprintf("%s is the top contributor to %s", best, s.name()),
				Description: fmt.Sprintf("%s = %q accounts for %.1f%% of total %s.", cat.Name, best, share*100, s.name()),
				Actionable:  fmt.Sprintf("Focus analysis of %s on the %q segment.", s.name(), best),
				Columns:     []string{cat.Name, s.name()},
				Confidence:  share,
				Metadata:    map[string]interface{}{"category": best, "share": share},
			})
		}
	}
	return out
}

// driverInsights names the numeric column with the most strong correlations
func driverInsights(corrs []models.Correlation) []models.Insight {
	links := make(map[string]int)
	var order []string
	for _, c := range corrs {
		if c.Strength != models.StrengthStrong {
			continue
		}
		for _, col := range []string{c.ColumnX, c.ColumnY} {
			if links[col] == 0 {
				order = append(order, col)
			}
			links[col]++
		}
	}
	if len(order) == 0 {
		return nil
	}
	driver := order[0]
	for _, col := range order[1:] {
		if links[col] > links[driver] {
			driver = col
		}
	}
	if links[driver] < 2 {
		return nil
	}
	return []models.Insight{{
		ID:          insightID(models.InsightFeatureImportance, "driver", driver),
		Type:        models.InsightFeatureImportance,
		Priority:    models.PriorityMedium,
		Title:       fmt.Sprintf("%s is a key driver", driver),
		Description: fmt.Sprintf("%s is strongly correlated with %d other columns.", driver, links[driver]),
		Actionable:  fmt.Sprintf("Prioritize %s when modelling related measures.", driver),
		Columns:     []string{driver},
		Confidence:  0.8,
		Metadata:    map[string]interface{}{"strong_links": links[driver]},
	}}
}

func summarize(profile *models.DatasetProfile, report *models.InsightReport) string {
	numeric := len(profile.ColumnsOfKind(models.DetectedType.IsNumeric))
	categorical := len(profile.ColumnsOfKind(models.DetectedType.IsCategorical))
	temporal := len(profile.ColumnsOfKind(models.DetectedType.IsTemporal))

	strong := 0
	for _, c := range report.Correlations {
		if c.Strength == models.StrengthStrong {
			strong++
		}
	}
	return fmt.Sprintf(
		"Dataset has %d rows and %d columns (%d numeric, %d categorical, %d temporal). Data quality is %s (%.1f/100). Found %d correlations (%d strong), outliers in %d columns and %d trends.",
		profile.RowCount, profile.ColumnCount, numeric, categorical, temporal,
		profile.Quality.Label, profile.Quality.Score,
		len(report.Correlations), strong, len(report.Outliers), len(report.Trends),
	)
}

func summaryInsight(summary string, profile *models.DatasetProfile) models.Insight {
	return models.Insight{
		ID:          insightID(models.InsightSummary, "dataset"),
		Type:        models.InsightSummary,
		Priority:    models.PriorityHigh,
		Title:       "Dataset overview",
		Description: summary,
		Actionable:  "Start with the high priority insights below.",
		Confidence:  1,
		Metadata:    map[string]interface{}{"rows": profile.RowCount, "columns": profile.ColumnCount},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
