package forecast

import "math"

// Accuracy metrics over aligned actual/predicted series. All functions
// return NaN for empty or mismatched inputs rather than panicking so
// callers can propagate "not measurable" explicitly.

// SMAPE returns the symmetric mean absolute percentage error in percent.
// Points where both actual and predicted are zero are masked out of the
// average, matching the convention that a correctly predicted zero day is
// neither reward nor penalty.
func SMAPE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return math.NaN()
	}
	var sum float64
	var n int
	for i := range actual {
		denom := math.Abs(actual[i]) + math.Abs(predicted[i])
		if denom == 0 {
			continue
		}
		sum += math.Abs(actual[i]-predicted[i]) / denom
		n++
	}
	if n == 0 {
		return 0
	}
	return 200 * sum / float64(n)
}

// MASE returns the mean absolute error scaled by the in-sample seasonal
// naive error with the given period (7 for weekly retail seasonality).
func MASE(actual, predicted []float64, period int) float64 {
	if len(actual) <= period || len(actual) != len(predicted) || period < 1 {
		return math.NaN()
	}
	var scale float64
	for i := period; i < len(actual); i++ {
		scale += math.Abs(actual[i] - actual[i-period])
	}
	scale /= float64(len(actual) - period)
	if scale == 0 {
		return math.NaN()
	}
	var mae float64
	for i := range actual {
		mae += math.Abs(actual[i] - predicted[i])
	}
	mae /= float64(len(actual))
	return mae / scale
}

// RMSE returns the root mean squared error
func RMSE(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		d := actual[i] - predicted[i]
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(actual)))
}

// Bias returns the mean signed error (predicted minus actual); positive
// bias means systematic over-forecasting.
func Bias(actual, predicted []float64) float64 {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return math.NaN()
	}
	var sum float64
	for i := range actual {
		sum += predicted[i] - actual[i]
	}
	return sum / float64(len(actual))
}

// DirectionalAccuracy returns the fraction of steps where the predicted
// day-over-day direction matches the actual direction.
func DirectionalAccuracy(actual, predicted []float64) float64 {
	if len(actual) < 2 || len(actual) != len(predicted) {
		return math.NaN()
	}
	var hits, total int
	for i := 1; i < len(actual); i++ {
		da := actual[i] - actual[i-1]
		dp := predicted[i] - actual[i-1]
		if da == 0 && dp == 0 {
			hits++
		} else if da*dp > 0 {
			hits++
		}
		total++
	}
	return float64(hits) / float64(total)
}

// IntervalCoverage returns the fraction of actuals falling inside the
// corresponding [lower, upper] interval, inclusive.
func IntervalCoverage(actual, lower, upper []float64) float64 {
	if len(actual) == 0 || len(actual) != len(lower) || len(actual) != len(upper) {
		return math.NaN()
	}
	var inside int
	for i := range actual {
		if actual[i] >= lower[i] && actual[i] <= upper[i] {
			inside++
		}
	}
	return float64(inside) / float64(len(actual))
}
