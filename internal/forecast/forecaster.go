package forecast

import (
	"log/slog"
	"math"

	apperrors "storepulse/internal/errors"
)

// maxForecastMean caps the conditional mean at inference time. Quantile
// inversion walks the discrete support, so its cost grows with the mean;
// a mean past this cap signals a corrupt artifact or inputs far outside
// the training range, not a store with a million daily visitors.
const maxForecastMean = 1e6

// Generator produces multi-step forecasts from fitted parameters. It is a
// pure function over its inputs and safe for concurrent use.
type Generator struct {
	cfg    ForecastConfig
	cal    Calendar
	logger *slog.Logger
}

// NewGenerator creates a forecast generator. The calendar must match the
// one used at training time so date encodings stay consistent.
func NewGenerator(cfg ForecastConfig, cal Calendar, logger *slog.Logger) *Generator {
	if cal == nil {
		cal = NewRegionalCalendar()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{cfg: cfg, cal: cal, logger: logger}
}

// Forecast rolls the fitted recursion horizon days past the end of tail.
//
// Forecasting is plug-in: lagged counts beyond the observed tail are
// replaced by previously forecasted conditional means, never by simulated
// draws, so identical inputs always yield identical output. Interval
// bounds invert the NB distribution at the configured quantiles around
// each step's mean.
//
// future carries per-date covariate outlooks; dates without an outlook use
// the reference covariates (no promo, normal weather). Calendar flags are
// always derived from the generator's calendar.
func (g *Generator) Forecast(params *ModelParameters, tail []VisitRecord, horizon int, future []ExogenousOutlook) ([]ForecastPoint, error) {
	if err := g.cfg.Validate(); err != nil {
		return nil, err
	}
	if params == nil {
		return nil, apperrors.ErrMissingParameters
	}
	if !params.IsValid() {
		return nil, apperrors.ErrCorruptParameters
	}
	if horizon < MinHorizon || horizon > MaxHorizon {
		return nil, apperrors.ErrInvalidHorizon.WithDetails(map[string]int{"horizon": horizon})
	}
	if err := ValidateHistory(tail); err != nil {
		return nil, err
	}
	order := params.P
	if params.Q > order {
		order = params.Q
	}
	if len(tail) < order {
		return nil, apperrors.ErrInsufficientTail.WithDetails(map[string]int{
			"tail":     len(tail),
			"required": order,
		})
	}
	for i := 1; i < len(tail); i++ {
		if daysBetween(tail[i-1].Date, tail[i].Date) != 1 {
			return nil, apperrors.ErrNonContiguousDates.WithDetails(
				"forecast tail must be gap-free")
		}
	}

	fcfg, err := featureConfigFor(params, g.cal)
	if err != nil {
		return nil, err
	}

	seedLog := math.Log(params.SeedMean)

	// observed counts followed by forecasted means as the recursion
	// outruns the tail
	series := make([]float64, len(tail), len(tail)+horizon)
	for i, rec := range tail {
		series[i] = float64(rec.VisitCount)
	}

	// filtered log-means over the tail; indexes align with series.
	// Positions before the filter window fall back to the seed mean.
	logMeans := make([]float64, len(tail), len(tail)+horizon)
	for i := range logMeans {
		logMeans[i] = seedLog
	}
	if len(tail) >= params.P+1 {
		rows, err := BuildFeatures(tail, fcfg)
		if err != nil {
			return nil, err
		}
		filtered := meanRecursion(params, rows, seedLog)
		for i, lm := range filtered {
			logMeans[params.P+i] = lm
		}
	}

	outlooks := make(map[string]ExogenousOutlook, len(future))
	for _, o := range future {
		outlooks[truncateDay(o.Date).Format(calendarDateLayout)] = o
	}

	lastDate := truncateDay(tail[len(tail)-1].Date)
	points := make([]ForecastPoint, 0, horizon)

	for h := 1; h <= horizon; h++ {
		date := lastDate.AddDate(0, 0, h)
		rec := outlookRecord(date, outlooks)

		lm := params.Intercept
		for i, b := range params.AR {
			lm += b * series[len(series)-1-i]
		}
		for j, a := range params.Feedback {
			idx := len(logMeans) - 1 - j
			if idx >= 0 {
				lm += a * logMeans[idx]
			} else {
				lm += a * seedLog
			}
		}
		exog := encodeExog(rec, fcfg)
		for i, gc := range params.Exog {
			lm += gc * exog[i]
		}
		if lm > math.Log(maxForecastMean) {
			return nil, apperrors.ErrCorruptParameters.WithDetails(map[string]float64{
				"log_mean": lm,
				"limit":    math.Log(maxForecastMean),
			})
		}
		lm = math.Max(lm, -maxLogMean)

		lambda := math.Max(math.Exp(lm), LambdaFloor)
		lower := nbQuantile(g.cfg.LowerQuantile, lambda, params.Dispersion)
		upper := nbQuantile(g.cfg.UpperQuantile, lambda, params.Dispersion)
		// discrete quantiles can straddle a sub-unit mean
		lower = math.Min(lower, lambda)
		upper = math.Max(upper, lambda)

		points = append(points, ForecastPoint{
			Date:            date,
			PredictedVisits: lambda,
			LowerBound:      lower,
			UpperBound:      upper,
			LowerQuantile:   g.cfg.LowerQuantile,
			UpperQuantile:   g.cfg.UpperQuantile,
			IsWeekend:       IsWeekend(date),
			IsHoliday:       rec.IsHoliday || g.cal.IsHoliday(date),
			IsPayday:        rec.IsPayday || g.cal.IsPayday(date),
			ConfidenceLevel: g.confidence(lambda, lower, upper),
		})

		series = append(series, lambda)
		logMeans = append(logMeans, lm)
	}

	return points, nil
}

// confidence classifies the interval width relative to the mean
func (g *Generator) confidence(lambda, lower, upper float64) string {
	if (upper-lower)/math.Max(lambda, LambdaFloor) <= g.cfg.WidthThreshold {
		return ConfidenceHigh
	}
	return ConfidenceLow
}

// OneStepForecasts returns feature rows built from history together with
// the fitted one-step-ahead conditional means λ_t for each row, using the
// true lagged counts at every step. Holdout evaluation and the quality
// gates consume this.
func OneStepForecasts(params *ModelParameters, history []VisitRecord, cal Calendar) ([]FeatureRow, []float64, error) {
	if params == nil {
		return nil, nil, apperrors.ErrMissingParameters
	}
	if !params.IsValid() {
		return nil, nil, apperrors.ErrCorruptParameters
	}
	fcfg, err := featureConfigFor(params, cal)
	if err != nil {
		return nil, nil, err
	}
	rows, err := BuildFeatures(history, fcfg)
	if err != nil {
		return nil, nil, err
	}
	means := meanRecursion(params, rows, math.Log(params.SeedMean))
	lams := make([]float64, len(means))
	for i, lm := range means {
		if lm > math.Log(maxForecastMean) {
			return nil, nil, apperrors.ErrCorruptParameters.WithDetails(map[string]float64{
				"log_mean": lm,
				"limit":    math.Log(maxForecastMean),
			})
		}
		lams[i] = math.Max(math.Exp(lm), LambdaFloor)
	}
	return rows, lams, nil
}

// meanRecursion fills the log conditional-mean arena over the rows
func meanRecursion(params *ModelParameters, rows []FeatureRow, seedLog float64) []float64 {
	logLam := make([]float64, len(rows))
	for t := range rows {
		lm := params.Intercept
		for i, b := range params.AR {
			lm += b * rows[t].LagCounts[i]
		}
		for j, a := range params.Feedback {
			if t-j-1 >= 0 {
				lm += a * logLam[t-j-1]
			} else {
				lm += a * seedLog
			}
		}
		for i, g := range params.Exog {
			lm += g * rows[t].Exog[i]
		}
		logLam[t] = clamp(lm, -maxLogMean, maxLogMean)
	}
	return logLam
}

// featureConfigFor rebuilds the feature configuration a model was trained
// under, resolving the encoding by version.
func featureConfigFor(params *ModelParameters, cal Calendar) (FeatureConfig, error) {
	enc, ok := EncodingForVersion(params.EncodingVersion)
	if !ok {
		return FeatureConfig{}, apperrors.ErrCorruptParameters.WithDetails(map[string]int{
			"encoding_version": params.EncodingVersion,
		})
	}
	if len(params.Exog) != enc.ExogDims(params.Mode) {
		return FeatureConfig{}, apperrors.ErrCorruptParameters.WithDetails(map[string]int{
			"exog_coefficients": len(params.Exog),
			"expected":          enc.ExogDims(params.Mode),
		})
	}
	if cal == nil {
		cal = NewRegionalCalendar()
	}
	return FeatureConfig{
		Mode:      params.Mode,
		P:         params.P,
		Q:         params.Q,
		GapPolicy: GapReject,
		Calendar:  cal,
		Encoding:  enc,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
