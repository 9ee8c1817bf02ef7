package microstructure

import "time"

// OrderBookSnapshot is a point-in-time view of one venue's book
type OrderBookSnapshot struct {
	Symbol    string       `json:"symbol"`
	Venue     string       `json:"venue"`
	Timestamp time.Time    `json:"timestamp"`
	Bids      []PriceLevel `json:"bids"` // Descending by price
	Asks      []PriceLevel `json:"asks"` // Ascending by price
	LastPrice float64      `json:"last_price"`
}

// PriceLevel represents a single order book level
type PriceLevel struct {
	Price float64 `json:"price"` // Price per unit
	Size  float64 `json:"size"`  // Quantity available
}

// DepthAdjustments are the seven multiplicative factors of the effective-depth chain
type DepthAdjustments struct {
	BaseEfficiency  float64 `json:"base_efficiency"`
	VolAdjustment   float64 `json:"vol_adjustment"`
	SpreadAdjust    float64 `json:"spread_adjustment"`
	LiquidityBonus  float64 `json:"liquidity_bonus"`
	ExchangeQuality float64 `json:"exchange_quality"`
	MEVAdjustment   float64 `json:"mev_adjustment"`
	CascadeBonus    float64 `json:"cascade_bonus"`
}

// Product multiplies the seven factors in chain order
func (a DepthAdjustments) Product() float64 {
	return a.BaseEfficiency * a.VolAdjustment * a.SpreadAdjust * a.LiquidityBonus *
		a.ExchangeQuality * a.MEVAdjustment * a.CascadeBonus
}

// DepthTierResult is the effective depth of one liquidity tier
type DepthTierResult struct {
	Tier            string            `json:"tier"`
	RawDepth        float64           `json:"raw_depth"`
	EffectiveDepth  float64           `json:"effective_depth"`
	EfficiencyRatio float64           `json:"efficiency_ratio"`
	Breakdown       *DepthAdjustments `json:"breakdown,omitempty"` // nil when raw depth is zero
}

// EntityDepthResult aggregates the three tiers of an entity on one venue
type EntityDepthResult struct {
	Exchange            string                     `json:"exchange"`
	TotalRawDepth       float64                    `json:"total_raw_depth"`
	TotalEffectiveDepth float64                    `json:"total_effective_depth"`
	OverallEfficiency   float64                    `json:"overall_efficiency"`
	Tiers               map[string]DepthTierResult `json:"tiers"`
	Methodology         string                     `json:"methodology"`
}

// MethodEstimate is one method's effective depth estimate
type MethodEstimate struct {
	EffectiveDepth float64 `json:"effective_depth"`
	Efficiency     float64 `json:"efficiency"`
	Method         string  `json:"method"`
}

// MethodComparison contrasts the crypto-empirical chain with flat tier multipliers
type MethodComparison struct {
	Simple         MethodEstimate     `json:"simple_method"`
	Crypto         MethodEstimate     `json:"crypto_method"`
	ImprovementAbs float64            `json:"improvement_absolute"`
	ImprovementPct float64            `json:"improvement_percentage"`
	Better         bool               `json:"better"`
	Entity         *EntityDepthResult `json:"tier_breakdown"`
}
