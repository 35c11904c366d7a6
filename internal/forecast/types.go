package forecast

import (
	"math"
	"time"
)

// Mode selects the feature richness of the model.
type Mode string

const (
	// ModeLite uses calendar and promotional covariates only
	ModeLite Mode = "lite"
	// ModePro additionally uses the sales signal as a covariate
	ModePro Mode = "pro"
)

// IsValid checks if the mode is a known value
func (m Mode) IsValid() bool {
	return m == ModeLite || m == ModePro
}

// GapPolicy controls how missing calendar days in a history are handled
type GapPolicy string

const (
	// GapReject fails feature construction on any missing day
	GapReject GapPolicy = "reject"
	// GapForwardFill repeats the previous day's count across the gap
	GapForwardFill GapPolicy = "forward_fill"
	// GapZeroFill inserts zero-count days across the gap
	GapZeroFill GapPolicy = "zero_fill"
)

// IsValid checks if the gap policy is a known value
func (g GapPolicy) IsValid() bool {
	return g == GapReject || g == GapForwardFill || g == GapZeroFill
}

const (
	// MinHorizon is the shortest supported forecast horizon in days
	MinHorizon = 1
	// MaxHorizon is the longest supported forecast horizon in days
	MaxHorizon = 30

	// MaxAROrder bounds the autoregressive order p
	MaxAROrder = 30
	// MaxFeedbackOrder bounds the feedback order q
	MaxFeedbackOrder = 30

	// LambdaFloor is the smallest conditional mean used for interval
	// inversion; near-zero means degenerate the discrete distribution
	LambdaFloor = 1e-3

	// DefaultLowerQuantile labels the default lower interval bound
	DefaultLowerQuantile = 0.10
	// DefaultUpperQuantile labels the default upper interval bound
	DefaultUpperQuantile = 0.90

	// ConfidenceHigh marks a narrow interval relative to the mean
	ConfidenceHigh = "high"
	// ConfidenceLow marks a wide interval relative to the mean
	ConfidenceLow = "low"
)

// VisitRecord is one observed day of store traffic. Records arrive from an
// external storage collaborator already ordered by date; the engine only
// reads them.
type VisitRecord struct {
	Date        time.Time `json:"date"`
	VisitCount  int       `json:"visit_count"`
	IsHoliday   bool      `json:"is_holiday,omitempty"`
	IsPayday    bool      `json:"is_payday,omitempty"`
	PromoType   string    `json:"promo_type,omitempty"`
	PriceChange float64   `json:"price_change,omitempty"` // percent vs. regular price
	Weather     string    `json:"weather,omitempty"`
	Sales       float64   `json:"sales,omitempty"` // currency, Pro mode only
}

// IsValid checks if the record can enter a training or holdout window
func (r VisitRecord) IsValid() bool {
	return !r.Date.IsZero() && r.VisitCount >= 0 && r.Sales >= 0
}

// FeatureRow is one trainable or forecastable time index: the target count,
// its lagged counts and the exogenous covariate vector. Lagged conditional
// means are not stored here; they are filled in during the likelihood
// recursion.
type FeatureRow struct {
	Date      time.Time `json:"date"`
	Count     float64   `json:"count"`
	LagCounts []float64 `json:"lag_counts"` // y_{t-1} .. y_{t-p}
	Exog      []float64 `json:"exog"`
}

// Diagnostics summarises a completed fit
type Diagnostics struct {
	LogLikelihood float64       `json:"log_likelihood"`
	AIC           float64       `json:"aic"`
	BIC           float64       `json:"bic"`
	Converged     bool          `json:"converged"`
	Iterations    int           `json:"iterations"`
	Restarts      int           `json:"restarts"`
	Elapsed       time.Duration `json:"elapsed"`
}

// ModelParameters is the immutable result of a successful fit. A later
// training run produces a new value; existing ones are never mutated.
type ModelParameters struct {
	Mode      Mode      `json:"mode"`
	P         int       `json:"p"`
	Q         int       `json:"q"`
	Intercept float64   `json:"intercept"`
	AR        []float64 `json:"ar"`       // β_1 .. β_p on lagged counts
	Feedback  []float64 `json:"feedback"` // α_1 .. α_q on lagged log-means
	Exog      []float64 `json:"exog"`     // γ, one per covariate
	// Dispersion is the NB size parameter φ; variance = λ + λ²/φ
	Dispersion float64 `json:"dispersion"`
	Link       string  `json:"link"`
	// SeedMean seeds the recursion for unobserved pre-sample means
	SeedMean           float64     `json:"seed_mean"`
	EncodingVersion    int         `json:"encoding_version"`
	TrainedAt          time.Time   `json:"trained_at"`
	TrainedRecordCount int         `json:"trained_record_count"`
	Diagnostics        Diagnostics `json:"diagnostics"`
}

// NumParams returns k, the free parameter count of the fit
func (p *ModelParameters) NumParams() int {
	return 1 + len(p.AR) + len(p.Feedback) + len(p.Exog) + 1 // β0 .. γ, φ
}

// IsValid checks the invariants a usable parameter set must satisfy
func (p *ModelParameters) IsValid() bool {
	if p == nil || !p.Mode.IsValid() || p.Link != "log" {
		return false
	}
	if p.P != len(p.AR) || p.Q != len(p.Feedback) {
		return false
	}
	if p.Dispersion <= 0 || p.SeedMean <= 0 {
		return false
	}
	if math.IsNaN(p.Intercept) || math.IsInf(p.Intercept, 0) {
		return false
	}
	for _, c := range p.AR {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	for _, c := range p.Feedback {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	for _, c := range p.Exog {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// ForecastPoint is one future day's point forecast and prediction interval
type ForecastPoint struct {
	Date            time.Time `json:"date"`
	PredictedVisits float64   `json:"predicted_visits"`
	LowerBound      float64   `json:"lower_bound"`
	UpperBound      float64   `json:"upper_bound"`
	LowerQuantile   float64   `json:"lower_quantile"`
	UpperQuantile   float64   `json:"upper_quantile"`
	IsWeekend       bool      `json:"is_weekend"`
	IsHoliday       bool      `json:"is_holiday"`
	IsPayday        bool      `json:"is_payday"`
	ConfidenceLevel string    `json:"confidence_level"`
}

// IsValid checks the interval ordering invariant
func (fp ForecastPoint) IsValid() bool {
	return !fp.Date.IsZero() &&
		fp.LowerBound <= fp.PredictedVisits &&
		fp.PredictedVisits <= fp.UpperBound &&
		fp.LowerBound >= 0
}

// ExogenousOutlook carries the known future covariates for one forecast
// date. Weekend flags come from the date itself; holiday and payday flags
// come from the calendar collaborator when left unset.
type ExogenousOutlook struct {
	Date        time.Time `json:"date"`
	PromoType   string    `json:"promo_type,omitempty"`
	PriceChange float64   `json:"price_change,omitempty"`
	Weather     string    `json:"weather,omitempty"`
	Sales       float64   `json:"sales,omitempty"`
}

// GateResult is one quality gate outcome
type GateResult struct {
	Check     string  `json:"check"`
	Measured  float64 `json:"measured"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
	// Skipped marks gates that do not apply to the evaluated mode;
	// skipped gates never block deployment
	Skipped bool   `json:"skipped,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// QualityGateReport aggregates the four deployability checks
type QualityGateReport struct {
	Mode        Mode         `json:"mode"`
	Checks      []GateResult `json:"checks"`
	Deployable  bool         `json:"deployable"`
	EvaluatedAt time.Time    `json:"evaluated_at"`
}

// Check returns the named gate result, if present
func (r QualityGateReport) Check(name string) (GateResult, bool) {
	for _, c := range r.Checks {
		if c.Check == name {
			return c, true
		}
	}
	return GateResult{}, false
}

// FeatureConfig controls design-matrix construction
type FeatureConfig struct {
	Mode      Mode
	P         int
	Q         int
	GapPolicy GapPolicy
	Calendar  Calendar
	Encoding  *CategoryEncoding
}

// DefaultFeatureConfig returns the standard Lite-mode feature settings
func DefaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		Mode:      ModeLite,
		P:         2,
		Q:         1,
		GapPolicy: GapReject,
		Calendar:  NewRegionalCalendar(),
		Encoding:  DefaultEncoding(),
	}
}

// Validate checks the feature configuration
func (c FeatureConfig) Validate() error {
	if !c.Mode.IsValid() {
		return newConfigError("mode must be lite or pro")
	}
	if c.P < 0 || c.P > MaxAROrder {
		return newConfigError("ar order p out of range")
	}
	if c.Q < 0 || c.Q > MaxFeedbackOrder {
		return newConfigError("feedback order q out of range")
	}
	if c.P == 0 && c.Q == 0 {
		return newConfigError("at least one of p, q must be positive")
	}
	if !c.GapPolicy.IsValid() {
		return newConfigError("unknown gap policy")
	}
	return nil
}

// withDefaults fills nil collaborators with the standard ones
func (c FeatureConfig) withDefaults() FeatureConfig {
	if c.Calendar == nil {
		c.Calendar = NewRegionalCalendar()
	}
	if c.Encoding == nil {
		c.Encoding = DefaultEncoding()
	}
	return c
}

// FitConfig controls the maximum-likelihood search
type FitConfig struct {
	Features      FeatureConfig
	MaxIterations int
	Tolerance     float64 // objective improvement tolerance
	GradTolerance float64 // gradient norm tolerance
	Restarts      int     // total starts including the deterministic one
	Seed          int64
}

// DefaultFitConfig returns the standard training settings
func DefaultFitConfig() FitConfig {
	return FitConfig{
		Features:      DefaultFeatureConfig(),
		MaxIterations: 400,
		Tolerance:     1e-8,
		GradTolerance: 1e-6,
		Restarts:      2,
		Seed:          42,
	}
}

// Validate checks the fit configuration
func (c FitConfig) Validate() error {
	if err := c.Features.Validate(); err != nil {
		return err
	}
	if c.MaxIterations < 1 {
		return newConfigError("max iterations must be positive")
	}
	if c.Tolerance <= 0 || c.GradTolerance <= 0 {
		return newConfigError("tolerances must be positive")
	}
	if c.Restarts < 1 {
		return newConfigError("restarts must be at least 1")
	}
	return nil
}

// ForecastConfig controls interval quantiles and confidence labelling
type ForecastConfig struct {
	LowerQuantile float64
	UpperQuantile float64
	// WidthThreshold splits high from low confidence on relative width
	WidthThreshold float64
}

// DefaultForecastConfig returns the standard P10/P90 interval settings
func DefaultForecastConfig() ForecastConfig {
	return ForecastConfig{
		LowerQuantile:  DefaultLowerQuantile,
		UpperQuantile:  DefaultUpperQuantile,
		WidthThreshold: 0.75,
	}
}

// Validate checks the forecast configuration
func (c ForecastConfig) Validate() error {
	if c.LowerQuantile <= 0 || c.UpperQuantile >= 1 ||
		c.LowerQuantile >= c.UpperQuantile {
		return newConfigError("quantiles must satisfy 0 < lower < upper < 1")
	}
	if c.WidthThreshold <= 0 {
		return newConfigError("width threshold must be positive")
	}
	return nil
}

// GateConfig holds the deployability thresholds
type GateConfig struct {
	BaselineLiftPct float64       // required sMAPE improvement vs. MA7
	WeekendGainPct  float64       // required Pro weekend sMAPE gain vs. Lite
	CoverageLow     float64       // inclusive lower bound on interval coverage
	CoverageHigh    float64       // inclusive upper bound on interval coverage
	ColdStartBudget time.Duration // fit through first forecast
}

// DefaultGateConfig returns the standard gate thresholds
func DefaultGateConfig() GateConfig {
	return GateConfig{
		BaselineLiftPct: 8.0,
		WeekendGainPct:  20.0,
		CoverageLow:     0.80,
		CoverageHigh:    0.95,
		ColdStartBudget: 90 * time.Second,
	}
}
