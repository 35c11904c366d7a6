package forecast

import (
	"math"
	"time"

	apperrors "storepulse/internal/errors"
)

// CalibrationReport summarises how well the prediction intervals cover
// held-out actuals, overall and per fold, against the acceptance band the
// coverage gate enforces.
type CalibrationReport struct {
	NominalLevel float64        `json:"nominal_level"` // upper minus lower quantile
	Coverage     float64        `json:"coverage"`
	BandLow      float64        `json:"band_low"`
	BandHigh     float64        `json:"band_high"`
	WithinBand   bool           `json:"within_band"`
	Points       int            `json:"points"`
	Folds        []FoldCoverage `json:"folds,omitempty"`
}

// FoldCoverage is the coverage over one contiguous chunk of the holdout
type FoldCoverage struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Coverage float64   `json:"coverage"`
	Points   int       `json:"points"`
}

// calibrationFoldDays is the default chunk length for per-fold coverage
const calibrationFoldDays = 28

// AssessCalibration measures interval coverage of the fitted model over a
// holdout window with known actuals. Per-fold coverages expose drift: a
// model can hit the aggregate band while being badly calibrated in one
// stretch of the window.
func AssessCalibration(params *ModelParameters, holdout []VisitRecord, cal Calendar, fcfg ForecastConfig, gcfg GateConfig) (*CalibrationReport, error) {
	if err := fcfg.Validate(); err != nil {
		return nil, err
	}
	rows, lams, err := OneStepForecasts(params, holdout, cal)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, apperrors.ErrInsufficientHistory
	}

	actuals := make([]float64, len(rows))
	lower := make([]float64, len(rows))
	upper := make([]float64, len(rows))
	for i := range rows {
		actuals[i] = rows[i].Count
		lower[i] = nbQuantile(fcfg.LowerQuantile, lams[i], params.Dispersion)
		upper[i] = nbQuantile(fcfg.UpperQuantile, lams[i], params.Dispersion)
	}

	cov := IntervalCoverage(actuals, lower, upper)
	report := &CalibrationReport{
		NominalLevel: fcfg.UpperQuantile - fcfg.LowerQuantile,
		Coverage:     cov,
		BandLow:      gcfg.CoverageLow,
		BandHigh:     gcfg.CoverageHigh,
		WithinBand:   !math.IsNaN(cov) && cov >= gcfg.CoverageLow && cov <= gcfg.CoverageHigh,
		Points:       len(rows),
	}

	for start := 0; start < len(rows); start += calibrationFoldDays {
		end := start + calibrationFoldDays
		if end > len(rows) {
			end = len(rows)
		}
		report.Folds = append(report.Folds, FoldCoverage{
			Start:    rows[start].Date,
			End:      rows[end-1].Date,
			Coverage: IntervalCoverage(actuals[start:end], lower[start:end], upper[start:end]),
			Points:   end - start,
		})
	}
	return report, nil
}
