package composite

import (
	"fmt"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
)

// Target band of the calibration harness, percent of daily volume
const (
	HarnessMinPct = 10.0
	HarnessMaxPct = 15.0
)

// DefaultHarnessVolumes are the daily volumes the harness sweeps
var DefaultHarnessVolumes = []float64{500_000, 1_000_000, 2_000_000, 5_000_000, 10_000_000}

// HarnessScenario builds the parameters of a typical small crypto project:
// 100→60 bps spread, 80% volatility, market maker adding 30% volume and
// depth equal to 5% of daily volume on each side.
func HarnessScenario(dailyVolume float64) (valuation.MarketParameters, distribution.Spec) {
	return valuation.MarketParameters{
		AssetPrice:    10,
		Volatility:    0.8,
		RiskFreeRate:  0.001,
		Spread0:       100,
		Spread1:       60,
		Volume0:       dailyVolume,
		VolumeMM:      dailyVolume * 0.3,
		Depth0:        dailyVolume * 0.05,
		DepthMM:       dailyVolume * 0.05,
		DailyVolume0:  dailyVolume,
		DailyVolumeMM: dailyVolume * 0.3,
		AvgReturn:     0.001,
	}, distribution.Harness(dailyVolume)
}

// HarnessRow is one calibration harness outcome
type HarnessRow struct {
	DailyVolume float64 `json:"daily_volume"`
	TotalValue  float64 `json:"total_value"`
	Pct         float64 `json:"pct_of_volume"`
	TargetPct   float64 `json:"target_pct"`
	Correction  float64 `json:"correction"`
	InRange     bool    `json:"in_range"`
}

// RunHarness values the harness scenario at each daily volume with the crypto preset
func (v *Valuator) RunHarness(volumes []float64) ([]HarnessRow, error) {
	rows := make([]HarnessRow, 0, len(volumes))

	for _, volume := range volumes {
		params, spec := HarnessScenario(volume)
		dist, err := distribution.Generate(spec)
		if err != nil {
			return nil, fmt.Errorf("harness distribution at %.0f: %w", volume, err)
		}

		result, err := v.Valuate(params, dist, DefaultOptions())
		if err != nil {
			return nil, fmt.Errorf("harness valuation at %.0f: %w", volume, err)
		}

		pct := result.PercentOfDailyVolume()
		rows = append(rows, HarnessRow{
			DailyVolume: volume,
			TotalValue:  result.TotalValue,
			Pct:         pct,
			TargetPct:   result.Calibration.TargetPct,
			Correction:  result.Calibration.Correction,
			InRange:     pct >= HarnessMinPct && pct <= HarnessMaxPct,
		})
	}

	return rows, nil
}
