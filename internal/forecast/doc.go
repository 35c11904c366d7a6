// Package forecast implements the StorePulse NB-INGARCH engine for daily
// retail foot-traffic forecasting.
//
// The engine models a non-negative count series with a Negative-Binomial
// Integer-GARCH recursion: the conditional mean follows
//
//	log λ_t = β0 + Σ β_i·y_{t-i} + Σ α_j·log λ_{t-j} + γ·x_t
//
// and each observed count is Negative-Binomial with mean λ_t and dispersion
// φ (variance λ + λ²/φ). Parameters are fitted by maximum likelihood over
// the full recursive sequence, forecasts roll the recursion forward with
// plug-in means, and prediction intervals come from inverting the discrete
// NB distribution at configurable quantiles.
//
// # Core Components
//
//   - types.go: value objects (VisitRecord, FeatureRow, ModelParameters,
//     ForecastPoint, QualityGateReport) and configuration
//   - calendar.go: deterministic calendar collaborator (weekend, holiday,
//     payday flags)
//   - encoding.go: versioned categorical encodings for promo and weather
//   - features.go: design-matrix construction with gap policies
//   - nbinom.go: Negative-Binomial log-pmf and quantile inversion
//   - optimizer.go: Minimizer interface and the L-BFGS implementation
//   - estimator.go: constrained MLE with restarts and cancellation
//   - forecaster.go: multi-step plug-in forecasting with intervals
//   - metrics.go: accuracy metrics (sMAPE, MASE, RMSE, bias, coverage)
//   - baselines.go: moving-average and naive reference forecasters
//   - gates.go: the four deployability quality gates
//   - calibration.go: interval calibration diagnostics
//   - backtest.go: rolling-origin backtesting
//   - state.go: model lifecycle state machine
//
// # Usage Example
//
//	est := NewEstimator(DefaultFitConfig(), slog.Default())
//	params, diag, err := est.Fit(ctx, history)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gen := NewGenerator(DefaultForecastConfig(), NewRegionalCalendar(), slog.Default())
//	points, err := gen.Forecast(params, history, 7, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// All entry points are pure over their inputs: Fit works on its own copies
// and returns a new immutable ModelParameters value, while Forecast and
// Validate may run concurrently across goroutines without locking.
package forecast
