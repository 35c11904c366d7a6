package forecast

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNBLogPMFNormalizes(t *testing.T) {
	cases := []struct{ lambda, phi float64 }{
		{5, 2},
		{20, 5},
		{100, 5},
		{0.5, 1},
		{100, 1000}, // near-Poisson
	}
	for _, c := range cases {
		var total, mean float64
		limit := int(c.lambda + 15*math.Sqrt(nbVariance(c.lambda, c.phi)) + 20)
		for k := 0; k <= limit; k++ {
			p := math.Exp(nbLogPMF(float64(k), c.lambda, c.phi))
			total += p
			mean += float64(k) * p
		}
		assert.InDelta(t, 1.0, total, 1e-8, "pmf mass for λ=%v φ=%v", c.lambda, c.phi)
		assert.InDelta(t, c.lambda, mean, 1e-6*c.lambda+1e-8, "pmf mean for λ=%v φ=%v", c.lambda, c.phi)
	}
}

func TestNBLogPMFDegenerateInputs(t *testing.T) {
	assert.True(t, math.IsInf(nbLogPMF(5, 0, 2), -1))
	assert.True(t, math.IsInf(nbLogPMF(5, 10, 0), -1))
	assert.True(t, math.IsInf(nbLogPMF(-1, 10, 2), -1))
}

// nbCDF computes the CDF directly from the log-pmf, independently of the
// recurrence the quantile walk uses.
func nbCDF(k int, lambda, phi float64) float64 {
	var cdf float64
	for i := 0; i <= k; i++ {
		cdf += math.Exp(nbLogPMF(float64(i), lambda, phi))
	}
	return cdf
}

func TestNBQuantileInvertsCDF(t *testing.T) {
	cases := []struct{ lambda, phi float64 }{
		{10, 3},
		{100, 5},
		{50, 1},
	}
	quantiles := []float64{0.05, 0.10, 0.50, 0.90, 0.95}

	for _, c := range cases {
		for _, q := range quantiles {
			k := int(nbQuantile(q, c.lambda, c.phi))
			require.GreaterOrEqual(t, nbCDF(k, c.lambda, c.phi), q,
				"CDF at the quantile must reach q (λ=%v φ=%v q=%v)", c.lambda, c.phi, q)
			if k > 0 {
				assert.Less(t, nbCDF(k-1, c.lambda, c.phi), q,
					"quantile must be the smallest such k (λ=%v φ=%v q=%v)", c.lambda, c.phi, q)
			}
		}
	}
}

func TestNBQuantileMonotone(t *testing.T) {
	prev := -1.0
	for _, q := range []float64{0.01, 0.1, 0.25, 0.5, 0.75, 0.9, 0.99} {
		k := nbQuantile(q, 40, 5)
		assert.GreaterOrEqual(t, k, prev)
		prev = k
	}
}

func TestNBQuantileClampsNearZeroMean(t *testing.T) {
	// degenerate means are clamped, not rejected
	assert.Equal(t, 0.0, nbQuantile(0.10, 0, 5))
	assert.Equal(t, 0.0, nbQuantile(0, 100, 5))
}

func TestNBVariance(t *testing.T) {
	assert.InDelta(t, 100+2000, nbVariance(100, 5), 1e-9)
	assert.InDelta(t, 10+100, nbVariance(10, 1), 1e-9)
}
