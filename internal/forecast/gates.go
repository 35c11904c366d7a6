package forecast

import (
	"context"
	"log/slog"
	"math"
	"time"

	apperrors "storepulse/internal/errors"
)

// Gate names as reported in QualityGateReport
const (
	GateBaselineLift = "baseline_lift"
	GateWeekendGain  = "weekend_gain"
	GateCoverage     = "calibration_coverage"
	GateColdStart    = "cold_start"
)

// Validator runs the four deployability checks against holdout data. Like
// the generator it is stateless and safe for concurrent use; a failing
// report never deletes or mutates the fitted parameters, it only blocks
// automatic promotion.
type Validator struct {
	cfg    GateConfig
	fcfg   ForecastConfig
	cal    Calendar
	logger *slog.Logger
}

// NewValidator creates a validator. The forecast configuration supplies
// the interval quantiles the coverage gate measures against.
func NewValidator(cfg GateConfig, fcfg ForecastConfig, cal Calendar, logger *slog.Logger) *Validator {
	if cal == nil {
		cal = NewRegionalCalendar()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{cfg: cfg, fcfg: fcfg, cal: cal, logger: logger}
}

// Validate evaluates params against a holdout window with known actuals.
//
// reference is the simpler model the weekend-gain gate compares against;
// the gate applies only when params is a Pro model and a Lite reference is
// supplied, and is reported as skipped otherwise. Skipped gates never
// block deployment.
func (v *Validator) Validate(ctx context.Context, params *ModelParameters, holdout []VisitRecord, reference *ModelParameters) QualityGateReport {
	if params == nil {
		v.logger.WarnContext(ctx, "validation requested without model parameters")
		return v.failClosed("", apperrors.ErrMissingParameters)
	}

	report := QualityGateReport{
		Mode:        params.Mode,
		EvaluatedAt: time.Now().UTC(),
	}

	rows, lams, err := OneStepForecasts(params, holdout, v.cal)
	if err != nil {
		v.logger.WarnContext(ctx, "holdout evaluation failed", "error", err.Error())
		return v.failClosed(params.Mode, err)
	}

	actuals := make([]float64, len(rows))
	for i, r := range rows {
		actuals[i] = r.Count
	}

	report.Checks = append(report.Checks,
		v.baselineLiftGate(actuals, lams),
		v.weekendGainGate(params, reference, holdout, rows, actuals, lams),
		v.coverageGate(actuals, lams, params.Dispersion),
		v.coldStartGate(params, holdout),
	)

	report.Deployable = true
	for _, c := range report.Checks {
		if !c.Skipped && !c.Passed {
			report.Deployable = false
		}
	}

	v.logger.InfoContext(ctx, "quality gates evaluated",
		"mode", string(params.Mode),
		"deployable", report.Deployable,
		"holdout_days", len(holdout))
	return report
}

// failClosed builds the report for a run that never measured anything:
// every measurable gate fails, and the weekend gate is skipped unless the
// model is known to be Pro.
func (v *Validator) failClosed(mode Mode, err error) QualityGateReport {
	return QualityGateReport{
		Mode:        mode,
		EvaluatedAt: time.Now().UTC(),
		Checks: []GateResult{
			{Check: GateBaselineLift, Threshold: v.cfg.BaselineLiftPct, Detail: err.Error()},
			{Check: GateWeekendGain, Threshold: v.cfg.WeekendGainPct, Skipped: mode != ModePro},
			{Check: GateCoverage, Threshold: v.cfg.CoverageLow, Detail: err.Error()},
			{Check: GateColdStart, Threshold: v.cfg.ColdStartBudget.Seconds(), Detail: err.Error()},
		},
	}
}

// baselineLiftGate requires the model sMAPE to beat the 7-day moving
// average baseline by the configured margin.
func (v *Validator) baselineLiftGate(actuals, lams []float64) GateResult {
	modelSMAPE := SMAPE(actuals, lams)
	baseSMAPE := SMAPE(actuals, MovingAverageForecasts(actuals, BaselineWindow))

	res := GateResult{Check: GateBaselineLift, Threshold: v.cfg.BaselineLiftPct}
	if math.IsNaN(modelSMAPE) || math.IsNaN(baseSMAPE) || baseSMAPE == 0 {
		res.Detail = "baseline error not measurable"
		return res
	}
	res.Measured = (baseSMAPE - modelSMAPE) / baseSMAPE * 100
	res.Passed = res.Measured >= v.cfg.BaselineLiftPct
	return res
}

// weekendGainGate requires the Pro model to beat the Lite reference on
// weekend days by the configured margin. Lite models and Pro models
// without a reference skip the gate.
func (v *Validator) weekendGainGate(params, reference *ModelParameters, holdout []VisitRecord, rows []FeatureRow, actuals, lams []float64) GateResult {
	res := GateResult{Check: GateWeekendGain, Threshold: v.cfg.WeekendGainPct}
	if params.Mode != ModePro {
		res.Skipped = true
		res.Detail = "applies to pro models only"
		return res
	}
	if reference == nil {
		res.Skipped = true
		res.Detail = "no reference model supplied"
		return res
	}

	refRows, refLams, err := OneStepForecasts(reference, holdout, v.cal)
	if err != nil {
		res.Detail = "reference model evaluation failed"
		return res
	}
	refByDate := make(map[string]float64, len(refRows))
	for i, r := range refRows {
		refByDate[truncateDay(r.Date).Format(calendarDateLayout)] = refLams[i]
	}

	// the two models may have different lag orders; compare only the
	// weekend dates both forecast
	var wActual, wModel, wRef []float64
	for i, r := range rows {
		if !IsWeekend(r.Date) {
			continue
		}
		ref, ok := refByDate[truncateDay(r.Date).Format(calendarDateLayout)]
		if !ok {
			continue
		}
		wActual = append(wActual, actuals[i])
		wModel = append(wModel, lams[i])
		wRef = append(wRef, ref)
	}
	if len(wActual) == 0 {
		res.Detail = "holdout contains no comparable weekend days"
		return res
	}

	proSMAPE := SMAPE(wActual, wModel)
	refSMAPE := SMAPE(wActual, wRef)
	if math.IsNaN(proSMAPE) || math.IsNaN(refSMAPE) || refSMAPE == 0 {
		res.Detail = "weekend error not measurable"
		return res
	}
	res.Measured = (refSMAPE - proSMAPE) / refSMAPE * 100
	res.Passed = res.Measured >= v.cfg.WeekendGainPct
	return res
}

// coverageGate requires the fraction of actuals inside the prediction
// interval to land in the calibrated band, inclusive on both ends.
func (v *Validator) coverageGate(actuals, lams []float64, phi float64) GateResult {
	lower := make([]float64, len(lams))
	upper := make([]float64, len(lams))
	for i, lam := range lams {
		lower[i] = nbQuantile(v.fcfg.LowerQuantile, lam, phi)
		upper[i] = nbQuantile(v.fcfg.UpperQuantile, lam, phi)
	}
	cov := IntervalCoverage(actuals, lower, upper)

	res := GateResult{Check: GateCoverage, Threshold: v.cfg.CoverageLow, Measured: cov}
	if math.IsNaN(cov) {
		res.Detail = "coverage not measurable"
		return res
	}
	res.Passed = cov >= v.cfg.CoverageLow && cov <= v.cfg.CoverageHigh
	return res
}

// coldStartGate checks the recorded fit time plus one real forecast call
// against the cold-start budget.
func (v *Validator) coldStartGate(params *ModelParameters, holdout []VisitRecord) GateResult {
	res := GateResult{Check: GateColdStart, Threshold: v.cfg.ColdStartBudget.Seconds()}

	gen := NewGenerator(v.fcfg, v.cal, v.logger)
	start := time.Now()
	_, err := gen.Forecast(params, holdout, 1, nil)
	forecastElapsed := time.Since(start)
	if err != nil {
		res.Detail = "first forecast failed: " + err.Error()
		return res
	}

	total := params.Diagnostics.Elapsed + forecastElapsed
	res.Measured = total.Seconds()
	res.Passed = total <= v.cfg.ColdStartBudget
	return res
}
