package charts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

// BuildOptions bound the generated chart set
type BuildOptions struct {
	MaxCharts       int
	MaxCorrelations int
	MaxKPIs         int
}

// DefaultBuildOptions returns the standard limits
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{MaxCharts: 15, MaxCorrelations: 5, MaxKPIs: 5}
}

// Builder turns column profiles and mined insights into chart configurations
type Builder struct {
	opt BuildOptions
}

// NewBuilder creates a builder, filling unset options with defaults
func NewBuilder(opt BuildOptions) *Builder {
	def := DefaultBuildOptions()
	if opt.MaxCharts <= 0 {
		opt.MaxCharts = def.MaxCharts
	}
	if opt.MaxCorrelations <= 0 {
		opt.MaxCorrelations = def.MaxCorrelations
	}
	if opt.MaxKPIs <= 0 {
		opt.MaxKPIs = def.MaxKPIs
	}
	return &Builder{opt: opt}
}

// Build returns charts ordered by priority. Ids are derived from chart type
// and columns so rebuilding the same inputs gives the same charts. A nil
// report skips correlation charts.
func (b *Builder) Build(profile *models.DatasetProfile, report *models.InsightReport) []models.ChartConfig {
	set := newChartSet()
	if profile == nil || profile.RowCount == 0 {
		return set.charts
	}

	numeric := profile.ColumnsOfKind(func(t models.DetectedType) bool {
		return t.IsNumeric() && !t.IsCoordinate()
	})
	temporal := profile.ColumnsOfKind(models.DetectedType.IsTemporal)
	categorical := profile.ColumnsOfKind(models.DetectedType.IsCategorical)

	for _, x := range temporal {
		for _, y := range numeric {
			b.addTop(set, x, y, "sum")
		}
	}
	for _, x := range categorical {
		for _, y := range numeric {
			b.addTop(set, x, y, "sum")
		}
	}
	if pie, ok := b.categoryPie(categorical, numeric); ok {
		set.add(pie)
	}
	if m, ok := b.mapChart(profile, numeric); ok {
		set.add(m)
	}
	if report != nil {
		for _, c := range report.TopCorrelations(b.opt.MaxCorrelations) {
			set.add(models.ChartConfig{
				ID:          chartID("correlation", c.ColumnX, c.ColumnY),
				Type:        models.ChartScatter,
				Title:       fmt.Sprintf("%s vs %s", c.ColumnX, c.ColumnY),
				XAxis:       c.ColumnX,
				YAxis:       c.ColumnY,
				Aggregation: "none",
				Filters:     []models.ChartFilter{},
				ChartOptions: map[string]interface{}{
					"correlation": c.Value,
					"trend_line":  true,
				},
				Priority: 8,
				Reason:   fmt.Sprintf("%s %s correlation (r=%.2f)", c.Strength, c.Direction, c.Value),
			})
		}
	}
	if grouped, ok := b.groupedBar(categorical, numeric); ok {
		set.add(grouped)
	}
	for _, y := range numeric {
		set.add(models.ChartConfig{
			ID:          chartID(string(models.ChartHistogram), y.Name),
			Type:        models.ChartHistogram,
			Title:       fmt.Sprintf("Distribution of %s", y.Name),
			XAxis:       y.Name,
			Aggregation: "count",
			Filters:     []models.ChartFilter{},
			ChartOptions: map[string]interface{}{
				"bins": 20,
			},
			Priority: 6,
			Reason:   fmt.Sprintf("Distribution of %s", y.Name),
		})
	}
	for i, y := range numeric {
		if i >= b.opt.MaxKPIs {
			break
		}
		agg := "avg"
		if y.DetectedType == models.TypeCurrency {
			agg = "sum"
		}
		set.add(models.ChartConfig{
			ID:          chartID(string(models.ChartKPI), y.Name),
			Type:        models.ChartKPI,
			Title:       fmt.Sprintf("%s of %s", kpiLabels[agg], y.Name),
			XAxis:       y.Name,
			Aggregation: agg,
			Filters:     []models.ChartFilter{},
			Priority:    5,
			Reason:      fmt.Sprintf("Headline %s of %s", agg, y.Name),
		})
	}

	charts := set.charts
	sort.SliceStable(charts, func(i, j int) bool { return charts[i].Priority > charts[j].Priority })
	if len(charts) > b.opt.MaxCharts {
		charts = charts[:b.opt.MaxCharts]
	}
	return charts
}

// addTop adds the highest ranked recommendation for a pair
func (b *Builder) addTop(set *chartSet, x, y models.ColumnProfile, agg string) {
	recs := Recommend(x, y)
	if len(recs) == 0 {
		return
	}
	top := recs[0]
	set.add(models.ChartConfig{
		ID:          chartID(string(top.ChartType), x.Name, y.Name),
		Type:        top.ChartType,
		Title:       fmt.Sprintf("%s by %s", y.Name, x.Name),
		XAxis:       x.Name,
		YAxis:       y.Name,
		Aggregation: agg,
		Filters:     []models.ChartFilter{},
		Priority:    top.Priority,
		Reason:      top.Reason,
	})
}

func (b *Builder) categoryPie(categorical, numeric []models.ColumnProfile) (models.ChartConfig, bool) {
	for _, x := range categorical {
		if x.UniqueCount < 2 || x.UniqueCount > pieCardinalityLimit {
			continue
		}
		cfg := models.ChartConfig{
			ID:          chartID(string(models.ChartPie), x.Name, "count"),
			Type:        models.ChartPie,
			Title:       fmt.Sprintf("Share of rows by %s", x.Name),
			XAxis:       x.Name,
			Aggregation: "count",
			Filters:     []models.ChartFilter{},
			Priority:    7,
			Reason:      fmt.Sprintf("%s has %d categories", x.Name, x.UniqueCount),
		}
		if len(numeric) > 0 {
			cfg.ID = chartID(string(models.ChartPie), x.Name, numeric[0].Name)
			cfg.Title = fmt.Sprintf("Share of %s by %s", numeric[0].Name, x.Name)
			cfg.YAxis = numeric[0].Name
			cfg.Aggregation = "sum"
		}
		return cfg, true
	}
	return models.ChartConfig{}, false
}

func (b *Builder) mapChart(profile *models.DatasetProfile, numeric []models.ColumnProfile) (models.ChartConfig, bool) {
	lat := profile.ColumnsOfKind(func(t models.DetectedType) bool { return t == models.TypeLatitude })
	lon := profile.ColumnsOfKind(func(t models.DetectedType) bool { return t == models.TypeLongitude })
	if len(lat) == 0 || len(lon) == 0 {
		return models.ChartConfig{}, false
	}
	cfg := models.ChartConfig{
		ID:          chartID(string(models.ChartMap), lat[0].Name, lon[0].Name),
		Type:        models.ChartMap,
		Title:       "Locations",
		XAxis:       lon[0].Name,
		YAxis:       lat[0].Name,
		Aggregation: "none",
		Filters:     []models.ChartFilter{},
		ChartOptions: map[string]interface{}{
			"latitude":  lat[0].Name,
			"longitude": lon[0].Name,
		},
		Priority: 9,
		Reason:   "Dataset contains coordinates",
	}
	if len(numeric) > 0 {
		cfg.ChartOptions["value"] = numeric[0].Name
		cfg.Title = fmt.Sprintf("%s by location", numeric[0].Name)
	}
	return cfg, true
}

// groupedBar needs two low-cardinality categorical columns and a measure
func (b *Builder) groupedBar(categorical, numeric []models.ColumnProfile) (models.ChartConfig, bool) {
	if len(numeric) == 0 {
		return models.ChartConfig{}, false
	}
	var primary, group *models.ColumnProfile
	for i := range categorical {
		c := &categorical[i]
		switch {
		case primary == nil && c.UniqueCount <= 10:
			primary = c
		case primary != nil && group == nil && c.UniqueCount <= 5:
			group = c
		}
	}
	if primary == nil || group == nil {
		return models.ChartConfig{}, false
	}
	y := numeric[0]
	return models.ChartConfig{
		ID:          chartID("grouped_bar", primary.Name, group.Name, y.Name),
		Type:        models.ChartBar,
		Title:       fmt.Sprintf("%s by %s and %s", y.Name, primary.Name, group.Name),
		XAxis:       primary.Name,
		YAxis:       y.Name,
		Aggregation: "sum",
		Filters:     []models.ChartFilter{},
		ChartOptions: map[string]interface{}{
			"group_by": group.Name,
			"stacked":  false,
		},
		Priority: 7,
		Reason:   fmt.Sprintf("Compare %s across %s split by %s", y.Name, primary.Name, group.Name),
	}, true
}

var kpiLabels = map[string]string{"avg": "Average", "sum": "Total"}

// chartID joins the kind and slugged columns with a separator slug never
// emits, so ("a_b", "c") and ("a", "b_c") stay distinct.
func chartID(kind string, columns ...string) string {
	parts := make([]string, 0, len(columns)+1)
	parts = append(parts, kind)
	for _, c := range columns {
		parts = append(parts, slug(c))
	}
	return strings.Join(parts, ".")
}

func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, s)
}

// chartSet keeps insertion order and drops repeated ids
type chartSet struct {
	charts []models.ChartConfig
	seen   map[string]struct{}
}

func newChartSet() *chartSet {
	return &chartSet{charts: []models.ChartConfig{}, seen: map[string]struct{}{}}
}

func (s *chartSet) add(c models.ChartConfig) {
	if _, ok := s.seen[c.ID]; ok {
		return
	}
	s.seen[c.ID] = struct{}{}
	s.charts = append(s.charts, c)
}
