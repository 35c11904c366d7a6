package forecast

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "storepulse/internal/errors"
)

// FoldMetrics is one forecaster's accuracy over one backtest fold
type FoldMetrics struct {
	SMAPE               float64 `json:"smape"`
	MASE                float64 `json:"mase"`
	RMSE                float64 `json:"rmse"`
	Bias                float64 `json:"bias"`
	DirectionalAccuracy float64 `json:"directional_accuracy"`
}

// BacktestFold is one rolling-origin evaluation: a model trained on data
// strictly before the holdout, scored against the holdout actuals next to
// the reference baselines.
type BacktestFold struct {
	TrainEnd     time.Time   `json:"train_end"`
	HoldoutStart time.Time   `json:"holdout_start"`
	HoldoutEnd   time.Time   `json:"holdout_end"`
	TrainDays    int         `json:"train_days"`
	HoldoutDays  int         `json:"holdout_days"`
	Model        FoldMetrics `json:"model"`
	MovingAvg    FoldMetrics `json:"moving_avg"`
	Naive        FoldMetrics `json:"naive"`
	Coverage     float64     `json:"coverage"`
	Converged    bool        `json:"converged"`
}

// BacktestReport aggregates rolling-origin folds
type BacktestReport struct {
	Folds     []BacktestFold `json:"folds"`
	Model     FoldMetrics    `json:"model"`
	MovingAvg FoldMetrics    `json:"moving_avg"`
	Naive     FoldMetrics    `json:"naive"`
	Coverage  float64        `json:"coverage"`
}

// DefaultHoldoutDays is the standard rolling-origin fold length
const DefaultHoldoutDays = 28

// Backtester runs rolling-origin backtests: the history is split into
// consecutive holdout folds counted back from its end, and for each fold a
// fresh model is fitted on everything before it. Folds run in parallel;
// chronology inside each fold is strict so no future data leaks into
// training.
type Backtester struct {
	fit    FitConfig
	fcfg   ForecastConfig
	cal    Calendar
	logger *slog.Logger
}

// NewBacktester creates a backtester sharing the training configuration
func NewBacktester(fit FitConfig, fcfg ForecastConfig, cal Calendar, logger *slog.Logger) *Backtester {
	if cal == nil {
		cal = NewRegionalCalendar()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backtester{fit: fit, fcfg: fcfg, cal: cal, logger: logger}
}

// Run evaluates folds rolling-origin folds of holdoutDays each. The
// earliest fold still needs enough training data for the configured lag
// order plus a sane minimum window.
func (b *Backtester) Run(ctx context.Context, history []VisitRecord, folds, holdoutDays int) (*BacktestReport, error) {
	if folds < 1 {
		return nil, newConfigError("backtest needs at least one fold")
	}
	if holdoutDays < 7 {
		return nil, newConfigError("holdout fold must cover at least one week")
	}
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}

	p := b.fit.Features.P
	minTrain := p + 1 + 2*BaselineWindow
	if len(history)-folds*holdoutDays < minTrain {
		return nil, apperrors.ErrInsufficientHistory.WithDetails(map[string]int{
			"records":  len(history),
			"required": minTrain + folds*holdoutDays,
		})
	}

	b.logger.InfoContext(ctx, "backtest started",
		"folds", folds, "holdout_days", holdoutDays, "records", len(history))

	results := make([]BacktestFold, folds)
	g, gctx := errgroup.WithContext(ctx)
	for f := 0; f < folds; f++ {
		g.Go(func() error {
			cut := len(history) - (folds-f)*holdoutDays
			train := history[:cut]
			// include p records of context so one-step rows cover
			// the whole holdout
			holdout := history[cut-p : cut+holdoutDays]

			fold, err := b.evaluateFold(gctx, train, holdout)
			if err != nil {
				return err
			}
			results[f] = *fold
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &BacktestReport{Folds: results}
	report.Model = meanFoldMetrics(results, func(f BacktestFold) FoldMetrics { return f.Model })
	report.MovingAvg = meanFoldMetrics(results, func(f BacktestFold) FoldMetrics { return f.MovingAvg })
	report.Naive = meanFoldMetrics(results, func(f BacktestFold) FoldMetrics { return f.Naive })
	var cov float64
	for _, f := range results {
		cov += f.Coverage
	}
	report.Coverage = cov / float64(len(results))

	b.logger.InfoContext(ctx, "backtest finished",
		"model_smape", report.Model.SMAPE,
		"moving_avg_smape", report.MovingAvg.SMAPE,
		"coverage", report.Coverage)
	return report, nil
}

// evaluateFold fits on train and scores one-step forecasts over holdout
func (b *Backtester) evaluateFold(ctx context.Context, train, holdout []VisitRecord) (*BacktestFold, error) {
	est := NewEstimator(b.fit, b.logger)
	params, diag, err := est.Fit(ctx, train)
	if err != nil {
		return nil, err
	}

	rows, lams, err := OneStepForecasts(params, holdout, b.cal)
	if err != nil {
		return nil, err
	}

	actuals := make([]float64, len(rows))
	lower := make([]float64, len(rows))
	upper := make([]float64, len(rows))
	for i := range rows {
		actuals[i] = rows[i].Count
		lower[i] = nbQuantile(b.fcfg.LowerQuantile, lams[i], params.Dispersion)
		upper[i] = nbQuantile(b.fcfg.UpperQuantile, lams[i], params.Dispersion)
	}

	return &BacktestFold{
		TrainEnd:     train[len(train)-1].Date,
		HoldoutStart: rows[0].Date,
		HoldoutEnd:   rows[len(rows)-1].Date,
		TrainDays:    len(train),
		HoldoutDays:  len(rows),
		Model:        scoreSeries(actuals, lams),
		MovingAvg:    scoreSeries(actuals, MovingAverageForecasts(actuals, BaselineWindow)),
		Naive:        scoreSeries(actuals, NaiveForecasts(actuals)),
		Coverage:     IntervalCoverage(actuals, lower, upper),
		Converged:    diag.Converged,
	}, nil
}

// scoreSeries computes the full metric set for one predicted series
func scoreSeries(actuals, predicted []float64) FoldMetrics {
	return FoldMetrics{
		SMAPE:               SMAPE(actuals, predicted),
		MASE:                MASE(actuals, predicted, BaselineWindow),
		RMSE:                RMSE(actuals, predicted),
		Bias:                Bias(actuals, predicted),
		DirectionalAccuracy: DirectionalAccuracy(actuals, predicted),
	}
}

// meanFoldMetrics averages finite metric values across folds
func meanFoldMetrics(folds []BacktestFold, pick func(BacktestFold) FoldMetrics) FoldMetrics {
	var out FoldMetrics
	avg := func(get func(FoldMetrics) float64) float64 {
		var sum float64
		var n int
		for _, f := range folds {
			v := get(pick(f))
			if !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			return math.NaN()
		}
		return sum / float64(n)
	}
	out.SMAPE = avg(func(m FoldMetrics) float64 { return m.SMAPE })
	out.MASE = avg(func(m FoldMetrics) float64 { return m.MASE })
	out.RMSE = avg(func(m FoldMetrics) float64 { return m.RMSE })
	out.Bias = avg(func(m FoldMetrics) float64 { return m.Bias })
	out.DirectionalAccuracy = avg(func(m FoldMetrics) float64 { return m.DirectionalAccuracy })
	return out
}
