// Package valuation holds the value objects shared by the market-maker
// valuation models, the composite orchestrator and its callers.
package valuation

// MarketParameters is the full input set for one valuation call.
// Spreads are quoted in basis points.
type MarketParameters struct {
	AssetPrice    float64 `json:"asset_price" yaml:"asset_price"`
	Volatility    float64 `json:"volatility" yaml:"volatility"`         // annualized, decimal
	RiskFreeRate  float64 `json:"risk_free_rate" yaml:"risk_free_rate"` // passed through to option pricing
	Spread0       float64 `json:"spread_0" yaml:"spread_0"`             // bps before market making
	Spread1       float64 `json:"spread_1" yaml:"spread_1"`             // bps with market making
	Volume0       float64 `json:"volume_0" yaml:"volume_0"`
	VolumeMM      float64 `json:"volume_mm" yaml:"volume_mm"`
	Depth0        float64 `json:"depth_0" yaml:"depth_0"`
	DepthMM       float64 `json:"depth_mm" yaml:"depth_mm"`
	DailyVolume0  float64 `json:"daily_volume_0" yaml:"daily_volume_0"`
	DailyVolumeMM float64 `json:"daily_volume_mm" yaml:"daily_volume_mm"`
	AvgReturn     float64 `json:"avg_return" yaml:"avg_return"`
}

// Validate rejects negative or non-finite market parameters
func (p MarketParameters) Validate() error {
	const op = "market_parameters"

	nonNegative := []struct {
		name  string
		value float64
	}{
		{"asset_price", p.AssetPrice},
		{"volatility", p.Volatility},
		{"spread_0", p.Spread0},
		{"spread_1", p.Spread1},
		{"volume_0", p.Volume0},
		{"volume_mm", p.VolumeMM},
		{"depth_0", p.Depth0},
		{"depth_mm", p.DepthMM},
		{"daily_volume_0", p.DailyVolume0},
		{"daily_volume_mm", p.DailyVolumeMM},
	}
	for _, f := range nonNegative {
		if err := RequireNonNegative(op, f.name, f.value); err != nil {
			return err
		}
	}

	if err := RequireFinite(op, "risk_free_rate", p.RiskFreeRate); err != nil {
		return err
	}
	return RequireFinite(op, "avg_return", p.AvgReturn)
}

// Factor is one named number in an ordered breakdown or parameter echo
type Factor struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// BreakdownEntry is one per-trade-size (or per-factor) contribution
type BreakdownEntry struct {
	TradeSize    float64  `json:"trade_size,omitempty"`
	Probability  float64  `json:"probability,omitempty"`
	Factors      []Factor `json:"factors"`
	Contribution float64  `json:"contribution"`
}

// ModelResult is the output of a single valuation model
type ModelResult struct {
	Model      ModelKind        `json:"model"`
	Name       string           `json:"name"`
	TotalValue float64          `json:"total_value"`
	Enabled    bool             `json:"enabled"`
	Breakdown  []BreakdownEntry `json:"breakdown"`
	Parameters []Factor         `json:"parameters"`
}

// DisabledResult is the zero-value stub used for models with weight 0
func DisabledResult(kind ModelKind) ModelResult {
	return ModelResult{
		Model:      kind,
		Name:       kind.String() + " (disabled)",
		TotalValue: 0,
		Enabled:    false,
		Breakdown:  []BreakdownEntry{},
		Parameters: []Factor{},
	}
}

// CalibrationInfo records how the blended raw value was mapped to dollars
type CalibrationInfo struct {
	BaseScaling  float64 `json:"base_scaling"`
	RawValue     float64 `json:"raw_value"`
	ScaledValue  float64 `json:"scaled_value"`
	CurrentPct   float64 `json:"current_pct"`
	TargetPct    float64 `json:"target_pct"`
	BracketBoost float64 `json:"bracket_boost"`
	Correction   float64 `json:"correction"`
	Clamped      bool    `json:"clamped"`
	Fallback     bool    `json:"fallback"`
}

// CompositeResult is the calibrated blend of all eight models
type CompositeResult struct {
	TotalValue      float64                    `json:"total_value"`
	Label           string                     `json:"label"`
	Models          [NumModelKinds]ModelResult `json:"models"`
	Weights         ModelWeights               `json:"weights"`
	Calibration     CalibrationInfo            `json:"calibration"`
	CryptoOptimized bool                       `json:"crypto_optimized"`
	Parameters      MarketParameters           `json:"parameters"`
}

// Model returns the result for kind
func (c *CompositeResult) Model(kind ModelKind) ModelResult {
	return c.Models[kind]
}

// PercentOfDailyVolume returns the final value as a percentage of daily volume
func (c *CompositeResult) PercentOfDailyVolume() float64 {
	if c.Parameters.DailyVolume0 <= 0 {
		return 0
	}
	return c.TotalValue / c.Parameters.DailyVolume0 * 100
}
