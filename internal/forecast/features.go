package forecast

import (
	"fmt"
	"math"
	"time"

	apperrors "storepulse/internal/errors"
)

// newConfigError builds the typed error for invalid engine configuration
func newConfigError(msg string) error {
	return apperrors.NewData(apperrors.CodeInvalidConfig, msg)
}

// BuildFeatures turns an ordered history of daily records into the design
// matrix the estimator consumes: one row per trainable index t carrying the
// target count, its p lagged counts and the exogenous covariate vector.
//
// The history must be strictly date-ordered with non-negative counts.
// Date gaps are handled per the configured policy: rejected, bridged by
// repeating the previous count, or bridged with zero-count days. A typed
// DataError is returned for every invalid input; BuildFeatures never
// panics on caller data.
func BuildFeatures(history []VisitRecord, cfg FeatureConfig) ([]FeatureRow, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateHistory(history); err != nil {
		return nil, err
	}

	filled, err := applyGapPolicy(history, cfg.GapPolicy)
	if err != nil {
		return nil, err
	}

	if len(filled) < cfg.P+1 {
		return nil, apperrors.ErrInsufficientHistory.WithDetails(map[string]int{
			"records":  len(filled),
			"required": cfg.P + 1,
		})
	}

	rows := make([]FeatureRow, 0, len(filled)-cfg.P)
	for t := cfg.P; t < len(filled); t++ {
		lags := make([]float64, cfg.P)
		for i := 1; i <= cfg.P; i++ {
			lags[i-1] = float64(filled[t-i].VisitCount)
		}
		rows = append(rows, FeatureRow{
			Date:      filled[t].Date,
			Count:     float64(filled[t].VisitCount),
			LagCounts: lags,
			Exog:      encodeExog(filled[t], cfg),
		})
	}
	return rows, nil
}

// ValidateHistory checks the record-sequence invariants: non-empty, valid
// schema, non-negative counts, strictly increasing unique dates.
func ValidateHistory(history []VisitRecord) error {
	if len(history) == 0 {
		return apperrors.ErrEmptyHistory
	}
	for i, rec := range history {
		if rec.Date.IsZero() {
			return apperrors.ErrMalformedSchema.WithDetails(map[string]int{"index": i})
		}
		if rec.VisitCount < 0 {
			return apperrors.ErrNegativeCount.WithDetails(map[string]any{
				"index": i,
				"date":  rec.Date.Format(calendarDateLayout),
				"count": rec.VisitCount,
			})
		}
		if rec.Sales < 0 || math.IsNaN(rec.PriceChange) || math.IsInf(rec.PriceChange, 0) {
			return apperrors.ErrMalformedSchema.WithDetails(map[string]int{"index": i})
		}
		if i == 0 {
			continue
		}
		gap := daysBetween(history[i-1].Date, rec.Date)
		switch {
		case gap == 0:
			return apperrors.ErrDuplicateDate.WithDetails(map[string]string{
				"date": rec.Date.Format(calendarDateLayout),
			})
		case gap < 0:
			return apperrors.ErrUnorderedDates.WithDetails(map[string]string{
				"previous": history[i-1].Date.Format(calendarDateLayout),
				"next":     rec.Date.Format(calendarDateLayout),
			})
		}
	}
	return nil
}

// applyGapPolicy returns a daily-contiguous record sequence. Synthetic
// bridge days carry default covariates; only the count differs by policy.
func applyGapPolicy(history []VisitRecord, policy GapPolicy) ([]VisitRecord, error) {
	contiguous := true
	total := len(history)
	for i := 1; i < len(history); i++ {
		gap := daysBetween(history[i-1].Date, history[i].Date)
		if gap > 1 {
			contiguous = false
			total += gap - 1
		}
	}
	if contiguous {
		return history, nil
	}
	if policy == GapReject {
		return nil, apperrors.ErrNonContiguousDates.WithDetails(map[string]string{
			"policy": string(GapReject),
		})
	}

	filled := make([]VisitRecord, 0, total)
	filled = append(filled, history[0])
	for i := 1; i < len(history); i++ {
		prev := history[i-1]
		for d := truncateDay(prev.Date).AddDate(0, 0, 1); d.Before(truncateDay(history[i].Date)); d = d.AddDate(0, 0, 1) {
			bridge := VisitRecord{Date: d}
			if policy == GapForwardFill {
				bridge.VisitCount = prev.VisitCount
			}
			filled = append(filled, bridge)
		}
		filled = append(filled, history[i])
	}
	return filled, nil
}

// encodeExog builds the covariate vector for one record. The layout is
// fixed per encoding version: weekend, holiday, payday flags, the promo
// one-hot, the relative price change, the weather one-hot and, in Pro
// mode, the log-scaled sales signal.
func encodeExog(rec VisitRecord, cfg FeatureConfig) []float64 {
	vec := make([]float64, cfg.Encoding.ExogDims(cfg.Mode))
	dst := vec

	dst[0] = boolToFloat(IsWeekend(rec.Date))
	dst[1] = boolToFloat(rec.IsHoliday || cfg.Calendar.IsHoliday(rec.Date))
	dst[2] = boolToFloat(rec.IsPayday || cfg.Calendar.IsPayday(rec.Date))
	dst = dst[3:]

	dst = cfg.Encoding.EncodePromo(rec.PromoType, dst)
	dst[0] = rec.PriceChange / 100
	dst = cfg.Encoding.EncodeWeather(rec.Weather, dst[1:])

	if cfg.Mode == ModePro {
		dst[0] = math.Log1p(rec.Sales)
	}
	return vec
}

// outlookRecord converts a future-covariate outlook into a record so the
// forecast-time encoding matches the training-time encoding exactly.
func outlookRecord(date time.Time, outlooks map[string]ExogenousOutlook) VisitRecord {
	rec := VisitRecord{Date: date}
	if o, ok := outlooks[date.Format(calendarDateLayout)]; ok {
		rec.PromoType = o.PromoType
		rec.PriceChange = o.PriceChange
		rec.Weather = o.Weather
		rec.Sales = o.Sales
	}
	return rec
}

// daysBetween returns the whole calendar days from a to b
func daysBetween(a, b time.Time) int {
	return int(truncateDay(b).Sub(truncateDay(a)) / (24 * time.Hour))
}

// truncateDay drops the time-of-day component in UTC
func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// describeWindow formats the date span of a history for log attributes
func describeWindow(history []VisitRecord) string {
	if len(history) == 0 {
		return "empty"
	}
	return fmt.Sprintf("%s..%s",
		history[0].Date.Format(calendarDateLayout),
		history[len(history)-1].Date.Format(calendarDateLayout))
}
