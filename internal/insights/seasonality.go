package insights

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/Tributary-ai-services/aether-insights/internal/analysis"
	"github.com/Tributary-ai-services/aether-insights/internal/models"
)

const (
	minSeasonalPoints = 12
	// seasonalPowerRatio is how far the dominant frequency must stand above
	// the mean spectral power
	seasonalPowerRatio = 10

	minChangepointPoints = 10
	changepointWindow    = 5
	changepointAlpha     = 0.01
	maxChangepoints      = 5
)

// detectSeasonality looks for one dominant frequency in the residuals of the
// linear fit.
func detectSeasonality(ys []float64, fit analysis.LinearFit) *models.Seasonality {
	n := len(ys)
	residuals := make([]float64, n)
	var energy, scale float64
	for i, y := range ys {
		residuals[i] = y - fit.Predict(float64(i))
		energy += residuals[i] * residuals[i]
		scale += y * y
	}
	if energy <= 1e-12*(1+scale) {
		return &models.Seasonality{}
	}

	// the real transform returns the non-negative half of the spectrum;
	// every bin other than DC and Nyquist stands for two
	coeffs := fourier.NewFFT(n).Coefficients(nil, residuals)
	power := make([]float64, len(coeffs))
	var total float64
	for k, c := range coeffs {
		power[k] = real(c)*real(c) + imag(c)*imag(c)
		weight := 2.0
		if k == 0 || (n%2 == 0 && k == n/2) {
			weight = 1
		}
		total += weight * power[k]
	}

	best := 1
	for k := 2; k < n/2; k++ {
		if power[k] > power[best] {
			best = k
		}
	}
	if total == 0 || power[best] <= seasonalPowerRatio*total/float64(n) {
		return &models.Seasonality{}
	}
	return &models.Seasonality{
		Detected: true,
		Period:   n / best,
		Strength: power[best] / total,
	}
}

// detectChangepoints compares the windows either side of each index and
// keeps the first shifts whose means differ significantly.
func detectChangepoints(ys []float64) []models.Changepoint {
	if len(ys) < minChangepointPoints {
		return nil
	}
	var out []models.Changepoint
	for i := changepointWindow; i < len(ys)-changepointWindow; i++ {
		before := ys[i-changepointWindow : i]
		after := ys[i : i+changepointWindow]
		p, ok := analysis.TTest(before, after)
		if !ok || p >= changepointAlpha {
			continue
		}
		cp := models.Changepoint{
			Index:        i,
			BeforeMean:   analysis.Mean(before),
			AfterMean:    analysis.Mean(after),
			Significance: 1 - p,
		}
		if cp.BeforeMean != 0 {
			cp.ChangePercentage = (cp.AfterMean - cp.BeforeMean) / math.Abs(cp.BeforeMean) * 100
		}
		out = append(out, cp)
		if len(out) == maxChangepoints {
			break
		}
	}
	return out
}
