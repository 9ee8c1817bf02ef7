package tuning

import "strings"

// Liquidity tier labels
const (
	Tier50  = "50bps"
	Tier100 = "100bps"
	Tier200 = "200bps"
)

// Tiers lists the liquidity tiers in ascending width
var Tiers = []string{Tier50, Tier100, Tier200}

// OtherExchange is the fallback quality bucket
const OtherExchange = "Other"

// SimpleMethodConfig parameterizes the legacy tier-multiplier estimate
type SimpleMethodConfig struct {
	Multipliers map[string]float64 `yaml:"multipliers"`
	VolFloor    float64            `yaml:"vol_floor"`
	VolFactor   float64            `yaml:"vol_factor"`
}

// DepthConfig holds the crypto effective-depth tuning constants
type DepthConfig struct {
	ExchangeQuality        map[string]float64 `yaml:"exchange_quality"`
	TierEfficiency         map[string]float64 `yaml:"tier_efficiency"`
	UnknownTierEfficiency  float64            `yaml:"unknown_tier_efficiency"`
	TargetSpreads          map[string]float64 `yaml:"target_spreads"`
	UnknownTargetSpread    float64            `yaml:"unknown_target_spread"`
	VolImpactFactor        float64            `yaml:"vol_impact_factor"`
	VolFloor               float64            `yaml:"vol_floor"`
	SpreadBonusFactor      float64            `yaml:"spread_bonus_factor"`
	SpreadAdjustmentMin    float64            `yaml:"spread_adjustment_min"`
	SpreadAdjustmentMax    float64            `yaml:"spread_adjustment_max"`
	LiquidityThreshold     float64            `yaml:"liquidity_threshold"`
	LiquidityLogMultiplier float64            `yaml:"liquidity_log_multiplier"`
	MaxLiquidityBonus      float64            `yaml:"max_liquidity_bonus"`
	MEVSpreadThresholdBps  float64            `yaml:"mev_spread_threshold_bps"`
	MEVPenalty             float64            `yaml:"mev_penalty"`
	CascadeBonus           float64            `yaml:"cascade_bonus"`
	SimpleMethod           SimpleMethodConfig `yaml:"simple_method"`
}

// DefaultDepthConfig returns the empirically tuned crypto depth constants
func DefaultDepthConfig() DepthConfig {
	return DepthConfig{
		ExchangeQuality: map[string]float64{
			"Binance":     0.90,
			"Coinbase":    0.88,
			"OKX":         0.85,
			"Bybit":       0.82,
			"KuCoin":      0.75,
			"MEXC":        0.72,
			"Gate":        0.70,
			"Bitget":      0.68,
			"Bitvavo":     0.60,
			OtherExchange: 0.50,
		},
		TierEfficiency: map[string]float64{
			Tier50:  0.95,
			Tier100: 0.78,
			Tier200: 0.55,
		},
		UnknownTierEfficiency: 0.5,
		TargetSpreads: map[string]float64{
			Tier50:  60,
			Tier100: 110,
			Tier200: 210,
		},
		UnknownTargetSpread:    100,
		VolImpactFactor:        1.5,
		VolFloor:               0.25,
		SpreadBonusFactor:      1000,
		SpreadAdjustmentMin:    0.7,
		SpreadAdjustmentMax:    1.3,
		LiquidityThreshold:     100000,
		LiquidityLogMultiplier: 0.25,
		MaxLiquidityBonus:      1.25,
		MEVSpreadThresholdBps:  25,
		MEVPenalty:             0.95,
		CascadeBonus:           1.1,
		SimpleMethod: SimpleMethodConfig{
			Multipliers: map[string]float64{
				Tier50:  1.0,
				Tier100: 0.75,
				Tier200: 0.50,
			},
			VolFloor:  0.3,
			VolFactor: 2,
		},
	}
}

// Quality returns the exchange quality multiplier. Names match
// case-insensitively; unknown venues get the "Other" bucket.
func (c DepthConfig) Quality(exchange string) float64 {
	name := strings.TrimSpace(exchange)
	if q, ok := c.ExchangeQuality[name]; ok {
		return q
	}
	for known, q := range c.ExchangeQuality {
		if strings.EqualFold(known, name) {
			return q
		}
	}
	return c.ExchangeQuality[OtherExchange]
}

// KnownExchange reports whether exchange has its own quality entry
func (c DepthConfig) KnownExchange(exchange string) bool {
	name := strings.TrimSpace(exchange)
	for known := range c.ExchangeQuality {
		if known != OtherExchange && strings.EqualFold(known, name) {
			return true
		}
	}
	return false
}

// BaseEfficiency returns the fixed efficiency of tier
func (c DepthConfig) BaseEfficiency(tier string) float64 {
	if e, ok := c.TierEfficiency[tier]; ok {
		return e
	}
	return c.UnknownTierEfficiency
}

// TargetSpread returns the reference spread in bps for tier
func (c DepthConfig) TargetSpread(tier string) float64 {
	if s, ok := c.TargetSpreads[tier]; ok {
		return s
	}
	return c.UnknownTargetSpread
}
