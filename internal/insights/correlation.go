package insights

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const (
	moderateThreshold   = 0.5
	strongThreshold     = 0.7
	veryStrongThreshold = 0.9
	minCorrelationPairs = 3
)

// Correlations computes Pearson coefficients for every numeric column pair
// and keeps those with |r| >= 0.5, strongest first. Pairs are computed on a
// bounded pool and stored with ColumnX before ColumnY in header order.
func Correlations(ctx context.Context, cols []series, workers int) ([]models.Correlation, error) {
	type pair struct{ i, j int }
	var pairs []pair
	for i := 0; i < len(cols); i++ {
		for j := i + 1; j < len(cols); j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	results := make([]*models.Correlation, len(pairs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for k, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[k] = correlate(cols[p.i], cols[p.j])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]models.Correlation, 0, len(results))
	for _, c := range results {
		if c != nil {
			out = append(out, *c)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return math.Abs(out[a].Value) > math.Abs(out[b].Value)
	})
	return out, nil
}

// correlate returns nil when the pair is not at least moderately correlated
func correlate(x, y series) *models.Correlation {
	xs, ys := paired(x, y)
	if len(xs) < minCorrelationPairs {
		return nil
	}
	r := analysis.Pearson(xs, ys)
	abs := math.Abs(r)
	if abs < moderateThreshold {
		return nil
	}

	c := &models.Correlation{
		ColumnX:    x.name(),
		ColumnY:    y.name(),
		Value:      math.Round(r*10000) / 10000,
		Strength:   models.StrengthModerate,
		Direction:  models.DirectionPositive,
		VeryStrong: abs >= veryStrongThreshold,
		SampleSize: len(xs),
	}
	if abs >= strongThreshold {
		c.Strength = models.StrengthStrong
	}
	if r < 0 {
		c.Direction = models.DirectionNegative
	}
	return c
}
