// Package guidance turns calibrated forecasts into operational advice:
// staffing plans sized from expected traffic and interval width, inventory
// alerts driven by demand against stock on hand, and what-if scenario
// adjustments over a baseline forecast. Everything here is deterministic
// arithmetic over ForecastPoint values; no model internals are touched.
package guidance

import (
	"math"
	"time"

	"storepulse/internal/forecast"
)

// StaffingConfig sizes staff against forecast traffic
type StaffingConfig struct {
	CustomersPerStaff float64 // visits one staffer can serve per day
	MinStaff          int
	HourlyWage        float64
	ShiftHours        float64
	// BufferWeight converts relative interval width into extra staff
	BufferWeight float64
}

// DefaultStaffingConfig returns the standard staffing assumptions
func DefaultStaffingConfig() StaffingConfig {
	return StaffingConfig{
		CustomersPerStaff: 25,
		MinStaff:          2,
		HourlyWage:        16,
		ShiftHours:        8,
		BufferWeight:      0.5,
	}
}

// RoleBreakdown splits a day's staff across store roles
type RoleBreakdown struct {
	Registers int `json:"registers"`
	Floor     int `json:"floor"`
	Stockroom int `json:"stockroom"`
}

// StaffingPlan is one day's staffing recommendation
type StaffingPlan struct {
	Date           time.Time     `json:"date"`
	ExpectedVisits float64       `json:"expected_visits"`
	BaseStaff      int           `json:"base_staff"`
	BufferStaff    int           `json:"buffer_staff"`
	TotalStaff     int           `json:"total_staff"`
	Roles          RoleBreakdown `json:"roles"`
	LaborCost      float64       `json:"labor_cost"`
}

// PlanStaffing derives a per-day staffing plan from a forecast. Wider
// prediction intervals add buffer staff: uncertainty is paid for in
// coverage, not ignored.
func PlanStaffing(points []forecast.ForecastPoint, cfg StaffingConfig) []StaffingPlan {
	if cfg.CustomersPerStaff <= 0 {
		cfg.CustomersPerStaff = DefaultStaffingConfig().CustomersPerStaff
	}
	plans := make([]StaffingPlan, 0, len(points))
	for _, pt := range points {
		base := int(math.Ceil(pt.PredictedVisits / cfg.CustomersPerStaff))
		if base < cfg.MinStaff {
			base = cfg.MinStaff
		}

		relWidth := 0.0
		if pt.PredictedVisits > 0 {
			relWidth = (pt.UpperBound - pt.LowerBound) / pt.PredictedVisits
		}
		buffer := int(math.Ceil(cfg.BufferWeight * relWidth * float64(base) / 2))

		total := base + buffer
		plans = append(plans, StaffingPlan{
			Date:           pt.Date,
			ExpectedVisits: pt.PredictedVisits,
			BaseStaff:      base,
			BufferStaff:    buffer,
			TotalStaff:     total,
			Roles:          splitRoles(total),
			LaborCost:      float64(total) * cfg.HourlyWage * cfg.ShiftHours,
		})
	}
	return plans
}

// splitRoles allocates roughly half the staff to registers, a third to the
// floor and the remainder to the stockroom, keeping at least one register.
func splitRoles(total int) RoleBreakdown {
	registers := total / 2
	if registers < 1 {
		registers = 1
	}
	floor := total / 3
	stock := total - registers - floor
	if stock < 0 {
		stock = 0
	}
	return RoleBreakdown{Registers: registers, Floor: floor, Stockroom: stock}
}

// Stockout risk labels
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// InventoryConfig converts traffic into unit demand
type InventoryConfig struct {
	ConversionRate      float64 // fraction of visitors who buy
	UnitsPerTransaction float64
	LeadTimeDays        int // replenishment lead time
}

// DefaultInventoryConfig returns the standard conversion assumptions
func DefaultInventoryConfig() InventoryConfig {
	return InventoryConfig{
		ConversionRate:      0.35,
		UnitsPerTransaction: 1.8,
		LeadTimeDays:        3,
	}
}

// InventoryAlert is one day's demand outlook against stock on hand
type InventoryAlert struct {
	Date           time.Time `json:"date"`
	ExpectedDemand float64   `json:"expected_demand"`
	PeakDemand     float64   `json:"peak_demand"` // from the interval upper bound
	ProjectedStock float64   `json:"projected_stock"`
	StockoutRisk   string    `json:"stockout_risk"`
}

// InventoryOutlook summarises the horizon
type InventoryOutlook struct {
	Alerts       []InventoryAlert `json:"alerts"`
	DaysOfCover  int              `json:"days_of_cover"`
	StockoutDate *time.Time       `json:"stockout_date,omitempty"`
	ReorderQty   float64          `json:"reorder_qty"`
}

// AssessInventory walks the forecast horizon drawing expected demand from
// stock on hand. Risk per day is classified against the interval: high
// when even expected demand exhausts stock, medium when the upper bound
// (peak traffic) would.
func AssessInventory(points []forecast.ForecastPoint, stockOnHand float64, cfg InventoryConfig) InventoryOutlook {
	if cfg.ConversionRate <= 0 {
		cfg = DefaultInventoryConfig()
	}

	outlook := InventoryOutlook{Alerts: make([]InventoryAlert, 0, len(points))}
	stock := stockOnHand
	cover := len(points)

	var leadDemand float64
	for i, pt := range points {
		expected := pt.PredictedVisits * cfg.ConversionRate * cfg.UnitsPerTransaction
		peak := pt.UpperBound * cfg.ConversionRate * cfg.UnitsPerTransaction
		if i < cfg.LeadTimeDays {
			leadDemand += peak
		}

		stock -= expected
		risk := RiskLow
		switch {
		case stock <= 0:
			risk = RiskHigh
		case stock < peak:
			risk = RiskMedium
		}

		if stock <= 0 && outlook.StockoutDate == nil {
			d := pt.Date
			outlook.StockoutDate = &d
			cover = i
		}

		outlook.Alerts = append(outlook.Alerts, InventoryAlert{
			Date:           pt.Date,
			ExpectedDemand: expected,
			PeakDemand:     peak,
			ProjectedStock: math.Max(stock, 0),
			StockoutRisk:   risk,
		})
	}

	outlook.DaysOfCover = cover
	// reorder enough to survive the lead time at peak demand
	if deficit := leadDemand - stockOnHand; deficit > 0 {
		outlook.ReorderQty = math.Ceil(deficit)
	}
	return outlook
}

// Competitor actions a scenario can model
const (
	CompetitorNone    = "none"
	CompetitorPromo   = "promo"
	CompetitorClosure = "closure"
)

// Scenario describes a hypothetical condition applied on top of a
// baseline forecast.
type Scenario struct {
	PromoType        string  `json:"promo_type,omitempty"`
	Weather          string  `json:"weather,omitempty"`
	PriceChangePct   float64 `json:"price_change_pct,omitempty"`
	CompetitorAction string  `json:"competitor_action,omitempty"`
}

// scenario effect tables; multiplicative on the forecast mean and bounds
var (
	promoLift = map[string]float64{
		"bogo":        1.25,
		"percent_off": 1.15,
		"bundle":      1.10,
		"flash":       1.30,
	}
	weatherImpact = map[string]float64{
		"sunny":  1.05,
		"cloudy": 0.95,
		"rainy":  0.85,
		"humid":  0.90,
		"storm":  0.60,
	}
	competitorImpact = map[string]float64{
		CompetitorPromo:   0.90,
		CompetitorClosure: 1.15,
	}
)

// priceElasticity scales traffic response to price moves: a 10% price
// increase with elasticity 0.8 costs 8% of traffic.
const priceElasticity = 0.8

// Multiplier returns the combined scenario effect on daily traffic
func (s Scenario) Multiplier() float64 {
	m := 1.0
	if lift, ok := promoLift[s.PromoType]; ok {
		m *= lift
	}
	if impact, ok := weatherImpact[s.Weather]; ok {
		m *= impact
	}
	if impact, ok := competitorImpact[s.CompetitorAction]; ok {
		m *= impact
	}
	m *= 1 - priceElasticity*s.PriceChangePct/100
	if m < 0 {
		m = 0
	}
	return m
}

// ApplyScenario returns a copy of the baseline forecast with the scenario
// effect applied to means and bounds. The baseline is never mutated, so
// several scenarios can branch from one forecast.
func ApplyScenario(points []forecast.ForecastPoint, s Scenario) []forecast.ForecastPoint {
	m := s.Multiplier()
	out := make([]forecast.ForecastPoint, len(points))
	for i, pt := range points {
		pt.PredictedVisits *= m
		pt.LowerBound *= m
		pt.UpperBound *= m
		out[i] = pt
	}
	return out
}
