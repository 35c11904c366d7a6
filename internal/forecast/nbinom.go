package forecast

import "math"

// Negative-Binomial helpers parameterized by mean λ and dispersion φ,
// where φ is the size parameter: variance = λ + λ²/φ and the success
// probability is φ/(φ+λ). φ → ∞ recovers the Poisson limit.

// nbLogPMF returns log P(Y = y) for Y ~ NB(mean λ, dispersion φ)
func nbLogPMF(y, lambda, phi float64) float64 {
	if lambda <= 0 || phi <= 0 || y < 0 {
		return math.Inf(-1)
	}
	lg1, _ := math.Lgamma(y + phi)
	lg2, _ := math.Lgamma(phi)
	lg3, _ := math.Lgamma(y + 1)
	return lg1 - lg2 - lg3 +
		phi*math.Log(phi/(phi+lambda)) +
		y*math.Log(lambda/(phi+lambda))
}

// nbVariance returns the NB variance λ + λ²/φ
func nbVariance(lambda, phi float64) float64 {
	return lambda + lambda*lambda/phi
}

// nbQuantile returns the smallest integer k with CDF(k) ≥ q, by walking
// the pmf recurrence
//
//	pmf(0)   = (φ/(φ+λ))^φ
//	pmf(k+1) = pmf(k) · (k+φ)/(k+1) · λ/(φ+λ)
//
// and accumulating. The walk is exact over the discrete support, needs no
// continuity correction, and is reproducible across platforms. λ is
// clamped to LambdaFloor first so near-zero means keep a proper
// distribution.
func nbQuantile(q, lambda, phi float64) float64 {
	if q <= 0 {
		return 0
	}
	lambda = math.Max(lambda, LambdaFloor)

	// pmf(0) in log space to survive large φ
	pmf := math.Exp(phi * math.Log(phi/(phi+lambda)))
	cdf := pmf
	ratio := lambda / (phi + lambda)

	// support cap well past any reachable quantile
	limit := int(math.Ceil(lambda+12*math.Sqrt(nbVariance(lambda, phi)))) + 64

	for k := 0; k < limit; k++ {
		if cdf >= q {
			return float64(k)
		}
		pmf *= (float64(k) + phi) / float64(k+1) * ratio
		cdf += pmf
	}
	return float64(limit)
}
