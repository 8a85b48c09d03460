package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Mean returns the arithmetic mean, or 0 for no values
func Mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return safe(stat.Mean(vals, nil))
}

// PopulationStdDev returns the population standard deviation, or 0 for no
// values.
func PopulationStdDev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	_, std := stat.PopMeanStdDev(vals, nil)
	return safe(std)
}

// Sorted returns a sorted copy
func Sorted(vals []float64) []float64 {
	cp := make([]float64, len(vals))
	copy(cp, vals)
	sort.Float64s(cp)
	return cp
}

// Median averages the two middle order statistics on even counts
func Median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// OrderQuantile returns the order statistic at index floor(n*p)
func OrderQuantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(float64(n) * p))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// LinearQuantile interpolates between the neighbouring order statistics at
// position p*(n-1). gonum's LinInterp places x[k] at (k+1)/n, so p is
// mapped onto that grid first.
func LinearQuantile(sorted []float64, p float64) float64 {
	n := float64(len(sorted))
	if n == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	q := math.Min(((n-1)*p+1)/n, 1)
	return safe(stat.Quantile(q, stat.LinInterp, sorted, nil))
}

// Skewness returns the bias-adjusted sample skewness, or 0 when fewer than
// three values or no spread exist.
func Skewness(vals []float64) float64 {
	if len(vals) < 3 {
		return 0
	}
	return safe(stat.Skew(vals, nil))
}

// Pearson returns the correlation coefficient over paired values. Zero
// variance yields 0 and the result is clamped to [-1, 1].
func Pearson(xs, ys []float64) float64 {
	n := min(len(xs), len(ys))
	if n < 2 {
		return 0
	}
	r := safe(stat.Correlation(xs[:n], ys[:n], nil))
	return math.Max(-1, math.Min(1, r))
}

// LinearFit is a least squares line of y against index 0..n-1
type LinearFit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	// StdErr is the standard error of the slope
	StdErr float64
	N      int
}

// Predict returns the fitted value at index x
func (f LinearFit) Predict(x float64) float64 {
	return f.Intercept + f.Slope*x
}

// PValue is the two-sided p-value of the slope's t statistic with n-2
// degrees of freedom. An exact fit is significant unless it is flat.
func (f LinearFit) PValue() float64 {
	if f.N < 3 {
		return 1
	}
	if f.StdErr == 0 {
		if f.Slope == 0 {
			return 1
		}
		return 0
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(f.N - 2)}
	return safe(math.Min(1, 2*dist.Survival(math.Abs(f.Slope)/f.StdErr)))
}

// FitIndex fits ys against their index positions
func FitIndex(ys []float64) LinearFit {
	switch len(ys) {
	case 0:
		return LinearFit{}
	case 1:
		return LinearFit{Intercept: ys[0], N: 1}
	}

	xs := make([]float64, len(ys))
	for i := range xs {
		xs[i] = float64(i)
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	fit := LinearFit{
		Slope:     safe(beta),
		Intercept: safe(alpha),
		RSquared:  safe(stat.RSquared(xs, ys, nil, alpha, beta)),
		N:         len(ys),
	}

	if len(ys) > 2 {
		var sse float64
		for i, y := range ys {
			r := y - fit.Predict(xs[i])
			sse += r * r
		}
		sxx := stat.PopVariance(xs, nil) * float64(len(xs))
		fit.StdErr = safe(math.Sqrt(sse / float64(len(ys)-2) / sxx))
	}
	return fit
}

// TTest is Student's two-sample t-test with pooled variance. ok is false
// when the samples are too small or both constant and equal.
func TTest(a, b []float64) (p float64, ok bool) {
	if len(a) < 2 || len(b) < 2 {
		return 1, false
	}
	ma, va := stat.MeanVariance(a, nil)
	mb, vb := stat.MeanVariance(b, nil)
	na, nb := float64(len(a)), float64(len(b))
	df := na + nb - 2
	pooled := ((na-1)*va + (nb-1)*vb) / df
	if pooled == 0 {
		if ma == mb {
			return 1, false
		}
		return 0, true
	}
	t := (ma - mb) / math.Sqrt(pooled*(1/na+1/nb))
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return safe(math.Min(1, 2*dist.Survival(math.Abs(t)))), true
}

// safe maps NaN and infinities to 0
func safe(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
