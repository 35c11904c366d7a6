package forecast

// Reference forecasters the quality gates and backtests compare against.
// Both produce one-step-ahead predictions aligned with the input series,
// using only values strictly before each index.

// BaselineWindow is the moving-average span of the reference baseline
const BaselineWindow = 7

// MovingAverageForecasts predicts each point as the mean of the previous
// window observations. Early points with fewer than window predecessors
// use the available prefix; the first point is backfilled with itself so
// the output aligns index-for-index with the input.
func MovingAverageForecasts(series []float64, window int) []float64 {
	if window < 1 {
		window = 1
	}
	out := make([]float64, len(series))
	var sum float64
	for i := range series {
		if i == 0 {
			out[0] = series[0]
			sum = series[0]
			continue
		}
		n := i
		if n > window {
			sum -= series[i-window-1]
			n = window
		}
		out[i] = sum / float64(n)
		sum += series[i]
	}
	return out
}

// NaiveForecasts predicts each point as the previous observation; the
// first point is backfilled with itself.
func NaiveForecasts(series []float64) []float64 {
	out := make([]float64, len(series))
	for i := range series {
		if i == 0 {
			out[0] = series[0]
			continue
		}
		out[i] = series[i-1]
	}
	return out
}
