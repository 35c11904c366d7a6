package forecast

// CategoryEncoding is the versioned category-to-index mapping for the
// promotional and weather covariates. The mapping is fixed per version so
// forecasts stay reproducible as new categories appear in later data;
// unseen values fall into a designated bucket instead of failing.
type CategoryEncoding struct {
	Version int

	// promo one-hot slots; "none" is the reference level with no slot
	promoIndex map[string]int
	promoOther int

	// weather one-hot slots; "normal" is the reference level
	weatherIndex   map[string]int
	weatherUnknown int
}

// Encoding version 1 category order. The reference levels carry no slot so
// an all-zero vector means "no promo, normal weather".
const (
	promoNone       = "none"
	weatherNormal   = "normal"
	encodingVersion = 1
)

// EncodingForVersion returns the encoding a model was trained with, so
// forecast-time vectors match training-time vectors byte for byte.
func EncodingForVersion(version int) (*CategoryEncoding, bool) {
	if version == encodingVersion {
		return DefaultEncoding(), true
	}
	return nil, false
}

// DefaultEncoding returns the current (version 1) encoding
func DefaultEncoding() *CategoryEncoding {
	return &CategoryEncoding{
		Version: encodingVersion,
		promoIndex: map[string]int{
			"bogo":        0,
			"percent_off": 1,
			"bundle":      2,
			"flash":       3,
			"other":       4,
		},
		promoOther: 4,
		weatherIndex: map[string]int{
			"sunny":   0,
			"cloudy":  1,
			"rainy":   2,
			"storm":   3,
			"humid":   4,
			"unknown": 5,
		},
		weatherUnknown: 5,
	}
}

// PromoDims returns the number of promotional one-hot slots
func (e *CategoryEncoding) PromoDims() int { return len(e.promoIndex) }

// WeatherDims returns the number of weather one-hot slots
func (e *CategoryEncoding) WeatherDims() int { return len(e.weatherIndex) }

// EncodePromo writes the promo one-hot for category into dst and returns
// the slice advanced past the written slots. Unseen categories map to the
// "other" bucket; the empty string and "none" are the reference level.
func (e *CategoryEncoding) EncodePromo(category string, dst []float64) []float64 {
	slots := dst[:e.PromoDims()]
	for i := range slots {
		slots[i] = 0
	}
	if category != "" && category != promoNone {
		idx, ok := e.promoIndex[category]
		if !ok {
			idx = e.promoOther
		}
		slots[idx] = 1
	}
	return dst[e.PromoDims():]
}

// EncodeWeather writes the weather one-hot for condition into dst and
// returns the slice advanced past the written slots. Unseen conditions map
// to the "unknown" bucket; the empty string and "normal" are the reference
// level.
func (e *CategoryEncoding) EncodeWeather(condition string, dst []float64) []float64 {
	slots := dst[:e.WeatherDims()]
	for i := range slots {
		slots[i] = 0
	}
	if condition != "" && condition != weatherNormal {
		idx, ok := e.weatherIndex[condition]
		if !ok {
			idx = e.weatherUnknown
		}
		slots[idx] = 1
	}
	return dst[e.WeatherDims():]
}

// ExogDims returns the exogenous vector length for the mode: three calendar
// flags, the promo and weather one-hots, the price-change signal and, in
// Pro mode, the sales signal.
func (e *CategoryEncoding) ExogDims(mode Mode) int {
	n := 3 + e.PromoDims() + 1 + e.WeatherDims()
	if mode == ModePro {
		n++
	}
	return n
}
