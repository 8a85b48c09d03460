package analysis

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const (
	maxSampleValues = 10
	maxTopValues    = 10
)

// Profiler computes column profiles and dataset quality
type Profiler struct {
	inferencer *Inferencer
	workers    int
}

// NewProfiler creates a profiler. Workers bounds per-column parallelism.
func NewProfiler(inferencer *Inferencer, workers int) *Profiler {
	if inferencer == nil {
		inferencer = NewInferencer(DefaultInferOptions())
	}
	if workers <= 0 {
		workers = 1
	}
	return &Profiler{inferencer: inferencer, workers: workers}
}

// Profile infers and profiles every column of ds. Columns are independent so
// they are processed on a bounded pool; output order follows the header.
func (p *Profiler) Profile(ctx context.Context, ds *models.Dataset) (*models.DatasetProfile, error) {
	columns := make([]models.ColumnProfile, ds.ColumnCount())

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, name := range ds.Header {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			columns[i] = p.ProfileColumn(name, i, ds.Column(i))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.DatasetProfile{
		DatasetID:   ds.ID,
		RowCount:    ds.RowCount(),
		ColumnCount: ds.ColumnCount(),
		RaggedRows:  ds.RaggedRows,
		Columns:     columns,
		Quality:     Quality(ds, columns),
		GeneratedAt: time.Now(),
	}, nil
}

// ProfileColumn infers the type of one column and computes its metadata
func (p *Profiler) ProfileColumn(name string, position int, raw []string) models.ColumnProfile {
	ct := p.inferencer.Infer(name, raw)
	present := NonMissing(raw)

	prof := models.ColumnProfile{
		Name:                name,
		Position:            position,
		DetectedType:        ct.Type,
		Subtype:             ct.Subtype,
		Confidence:          ct.Confidence,
		Format:              ct.Format,
		OriginalStorageType: ct.StorageType,
		NullCount:           len(raw) - len(present),
		SampleValues:        []string{},
	}

	counts := make(map[string]int, len(present))
	order := make([]string, 0)
	for _, v := range present {
		if counts[v] == 0 {
			order = append(order, v)
			if len(prof.SampleValues) < maxSampleValues {
				prof.SampleValues = append(prof.SampleValues, v)
			}
		}
		counts[v]++
	}
	prof.UniqueCount = len(counts)

	if len(raw) > 0 {
		prof.Completeness = round(float64(len(present))/float64(len(raw))*100, 2)
	}
	if len(present) > 0 {
		prof.Uniqueness = round(float64(prof.UniqueCount)/float64(len(present))*100, 2)
	}

	if ct.Type.IsCategorical() {
		prof.TopValues = topValues(counts, order, maxTopValues)
	}
	if ct.Type.IsNumeric() {
		nums := NumericValues(present, ct.Type)
		if len(nums) > 0 {
			prof.Statistics = Summarize(nums)
		}
	}
	if ct.Type.IsTemporal() {
		prof.DateStatistics = SummarizeDates(present, ct.Format)
	}
	return prof
}

// NumericValues parses the values of a numeric-like column, skipping the
// ones that do not parse.
func NumericValues(values []string, t models.DetectedType) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if f, ok := NumericValue(v, t == models.TypeCurrency, t == models.TypePercentage); ok {
			out = append(out, f)
		}
	}
	return out
}

// Summarize computes numeric statistics for a non-empty slice
func Summarize(nums []float64) *models.ColumnStatistics {
	sorted := Sorted(nums)
	mean := Mean(nums)
	std := PopulationStdDev(nums)
	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	stats := &models.ColumnStatistics{
		Count:    len(nums),
		Min:      sorted[0],
		Max:      sorted[len(sorted)-1],
		Mean:     safe(mean),
		Median:   Median(sorted),
		StdDev:   safe(std),
		Q1:       OrderQuantile(sorted, 0.25),
		Q3:       OrderQuantile(sorted, 0.75),
		Sum:      safe(sum),
		Skewness: Skewness(nums),
	}
	if mean != 0 {
		stats.CoefficientOfVariation = safe(std / mean)
	}
	return stats
}

// Quality blends completeness, uniqueness and consistency into a 0-100 score
func Quality(ds *models.Dataset, columns []models.ColumnProfile) models.DataQualityMetrics {
	totalCells := ds.RowCount() * ds.ColumnCount()
	missing := 0
	uniqueness := 0.0
	for _, c := range columns {
		missing += c.NullCount
		uniqueness += math.Min(c.Uniqueness, 100)
	}
	duplicates := DuplicateRows(ds)

	q := models.DataQualityMetrics{
		MissingValueCount: missing,
		DuplicateRowCount: duplicates,
		TotalCells:        totalCells,
	}
	if totalCells > 0 {
		q.Completeness = float64(totalCells-missing) / float64(totalCells) * 100
		q.Consistency = clamp(100*(1-float64(missing+duplicates)/float64(totalCells)), 0, 100)
	}
	if len(columns) > 0 && ds.RowCount() > 0 {
		q.Uniqueness = uniqueness / float64(len(columns))
	}

	score := q.Completeness*0.4 + math.Min(q.Uniqueness, 100)*0.3 + q.Consistency*0.3
	q.Score = round(clamp(score, 0, 100), 2)
	q.Completeness = round(clamp(q.Completeness, 0, 100), 2)
	q.Uniqueness = round(q.Uniqueness, 2)
	q.Consistency = round(q.Consistency, 2)
	q.Label = models.LabelForScore(q.Score)
	return q
}

// DuplicateRows counts rows equal to an earlier row across all fields
func DuplicateRows(ds *models.Dataset) int {
	seen := make(map[string]struct{}, len(ds.Rows))
	dups := 0
	for _, row := range ds.Rows {
		key := strings.Join(row, "\x1f")
		if _, ok := seen[key]; ok {
			dups++
			continue
		}
		seen[key] = struct{}{}
	}
	return dups
}

func topValues(counts map[string]int, order []string, limit int) []models.ValueCount {
	out := make([]models.ValueCount, 0, len(order))
	for _, v := range order {
		out = append(out, models.ValueCount{Value: v, Count: counts[v]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}
