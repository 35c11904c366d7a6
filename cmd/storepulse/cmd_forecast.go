package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"storepulse/internal/cli"
	"storepulse/internal/forecast"
	"storepulse/internal/guidance"
	"storepulse/internal/infrastructure"
	"storepulse/internal/registry"
)

var (
	forecastModelID     string
	forecastHistoryPath string
	forecastOutlookPath string
	forecastHorizon     int
	forecastStaffing    bool
	forecastStock       float64
	forecastPromo       string
	forecastWeather     string
	forecastPricePct    float64
	forecastCompetitor  string
)

// forecastOutput is the full JSON document a forecast run emits
type forecastOutput struct {
	Version   string                     `json:"version"`
	Mode      forecast.Mode              `json:"mode"`
	Horizon   int                        `json:"horizon"`
	Points    []forecast.ForecastPoint   `json:"points"`
	Scenario  *guidance.Scenario         `json:"scenario,omitempty"`
	Staffing  []guidance.StaffingPlan    `json:"staffing,omitempty"`
	Inventory *guidance.InventoryOutlook `json:"inventory,omitempty"`
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Generate a multi-day forecast from a registered model",
	Long: `Generate a forecast with prediction intervals from a registered
model. The history file supplies the recent tail the recursion is seeded
from; an optional outlook file supplies known future covariates such as
planned promotions.

Example usage:
  storepulse forecast --history visits.csv --horizon 7
  storepulse forecast --history visits.csv --model 01J5 --outlook promos.csv
  storepulse forecast --history visits.csv --staffing --stock 450
  storepulse forecast --history visits.csv --promo flash --weather rainy`,
	RunE: runForecast,
}

func init() {
	forecastCmd.Flags().StringVar(&forecastModelID, "model", "", "Model version to use (default: latest deployed for the mode)")
	forecastCmd.Flags().StringVar(&forecastHistoryPath, "history", "", "Path to visit history CSV (required)")
	forecastCmd.Flags().StringVar(&forecastOutlookPath, "outlook", "", "Path to future covariates CSV")
	forecastCmd.Flags().IntVar(&forecastHorizon, "horizon", 0, "Days ahead to forecast (default from config)")
	forecastCmd.Flags().BoolVar(&forecastStaffing, "staffing", false, "Include a staffing plan")
	forecastCmd.Flags().Float64Var(&forecastStock, "stock", 0, "Units on hand; enables inventory alerts")
	forecastCmd.Flags().StringVar(&forecastPromo, "promo", "", "What-if promotion type")
	forecastCmd.Flags().StringVar(&forecastWeather, "weather", "", "What-if weather condition")
	forecastCmd.Flags().Float64Var(&forecastPricePct, "price-change", 0, "What-if price change percent")
	forecastCmd.Flags().StringVar(&forecastCompetitor, "competitor", "", "What-if competitor action: promo or closure")
	forecastCmd.MarkFlagRequired("history")
}

func runForecast(cmd *cobra.Command, args []string) error {
	ctx := infrastructure.EnsureTraceID(cmd.Context())
	log := infrastructure.LoggerWithContext(ctx)

	history, err := cli.LoadHistory(forecastHistoryPath)
	if err != nil {
		return err
	}
	rec, err := resolveModel(forecastModelID)
	if err != nil {
		return err
	}

	var outlook []forecast.ExogenousOutlook
	if forecastOutlookPath != "" {
		if outlook, err = cli.LoadOutlook(forecastOutlookPath); err != nil {
			return err
		}
	}

	horizon := forecastHorizon
	if horizon == 0 {
		horizon = cfg.Forecast.DefaultHorizon
	}

	gen := forecast.NewGenerator(cli.ForecastConfigFrom(cfg), forecast.NewRegionalCalendar(), log)
	started := time.Now()
	points, err := gen.Forecast(rec.Params, history, horizon, outlook)
	if err != nil {
		return fmt.Errorf("forecast failed: %w", err)
	}
	metrics.ObserveForecast(rec.Mode, len(points), time.Since(started))

	out := forecastOutput{
		Version: rec.VersionID,
		Mode:    rec.Mode,
		Horizon: horizon,
		Points:  points,
	}

	scenario := guidance.Scenario{
		PromoType:        forecastPromo,
		Weather:          forecastWeather,
		PriceChangePct:   forecastPricePct,
		CompetitorAction: forecastCompetitor,
	}
	if scenario != (guidance.Scenario{}) {
		out.Points = guidance.ApplyScenario(points, scenario)
		out.Scenario = &scenario
	}
	if forecastStaffing {
		out.Staffing = guidance.PlanStaffing(out.Points, guidance.DefaultStaffingConfig())
	}
	if forecastStock > 0 {
		inv := guidance.AssessInventory(out.Points, forecastStock, guidance.DefaultInventoryConfig())
		out.Inventory = &inv
	}

	log.Info("forecast generated",
		"version", rec.VersionID,
		"horizon", horizon,
		"first_date", points[0].Date.Format("2006-01-02"))
	return writeJSON(out)
}

// resolveModel loads a specific version or falls back to the latest
// deployed model for the configured mode.
func resolveModel(versionID string) (*registry.Record, error) {
	store, err := registry.NewStore(cfg.Paths.ArtifactsDir, logger)
	if err != nil {
		return nil, err
	}
	if versionID != "" {
		rec, err := store.Get(versionID)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", versionID, err)
		}
		return rec, nil
	}
	rec, err := store.Latest(forecast.Mode(cfg.Model.Mode))
	if err != nil {
		return nil, fmt.Errorf("no deployed %s model; train and deploy one first: %w", cfg.Model.Mode, err)
	}
	return rec, nil
}
