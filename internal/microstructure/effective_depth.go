package microstructure

import (
	"math"
	"strings"
	"sync"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

// MethodologyCryptoEmpirical labels entity results of the factor chain
const MethodologyCryptoEmpirical = "Crypto-Empirical"

// EffectiveDepthCalculator turns quoted depth into executable depth for crypto
// venues by chaining seven multiplicative adjustments:
// base efficiency × volatility × spread tightness × size bonus × exchange
// quality × MEV penalty × cascade bonus.
type EffectiveDepthCalculator struct {
	cfg tuning.DepthConfig

	mu      sync.Mutex
	spreads map[string]*SpreadCalculator // venue/symbol -> spread history
}

// NewEffectiveDepthCalculator creates a calculator; nil selects the tuned defaults
func NewEffectiveDepthCalculator(cfg *tuning.DepthConfig) *EffectiveDepthCalculator {
	c := &EffectiveDepthCalculator{spreads: make(map[string]*SpreadCalculator)}
	if cfg == nil {
		c.cfg = tuning.DefaultDepthConfig()
	} else {
		c.cfg = *cfg
	}
	return c
}

// ExchangeQuality returns the venue multiplier, 0.50 for unknown venues
func (c *EffectiveDepthCalculator) ExchangeQuality(exchange string) float64 {
	return c.cfg.Quality(exchange)
}

// VolatilityAdjustment returns max(floor, 1/(1+σ·impact))
func (c *EffectiveDepthCalculator) VolatilityAdjustment(volatility float64) float64 {
	return math.Max(c.cfg.VolFloor, 1/(1+volatility*c.cfg.VolImpactFactor))
}

// SpreadAdjustment rewards spreads tighter than the tier target, clamped to [0.7, 1.3]
func (c *EffectiveDepthCalculator) SpreadAdjustment(spreadBps, targetBps float64) float64 {
	factor := 1 + (targetBps-spreadBps)/c.cfg.SpreadBonusFactor
	return math.Max(c.cfg.SpreadAdjustmentMin, math.Min(c.cfg.SpreadAdjustmentMax, factor))
}

// LiquidityBonus is a logarithmic size bonus above the threshold, capped
func (c *EffectiveDepthCalculator) LiquidityBonus(depth float64) float64 {
	if depth <= 0 {
		return 1.0
	}
	ratio := math.Max(1.0, depth/c.cfg.LiquidityThreshold)
	return math.Min(c.cfg.MaxLiquidityBonus, 1+math.Log10(ratio)*c.cfg.LiquidityLogMultiplier)
}

// MEVAdjustment penalizes tight spreads that attract sandwich attacks
func (c *EffectiveDepthCalculator) MEVAdjustment(spreadBps float64) float64 {
	if spreadBps < c.cfg.MEVSpreadThresholdBps {
		return c.cfg.MEVPenalty
	}
	return 1.0
}

// Adjustments evaluates the seven factors for one tier. depth must be positive.
func (c *EffectiveDepthCalculator) Adjustments(depth float64, tier string, spreadBps, volatility float64, exchange string, includeCascade bool) DepthAdjustments {
	cascade := 1.0
	if includeCascade {
		cascade = c.cfg.CascadeBonus
	}
	return DepthAdjustments{
		BaseEfficiency:  c.cfg.BaseEfficiency(tier),
		VolAdjustment:   c.VolatilityAdjustment(volatility),
		SpreadAdjust:    c.SpreadAdjustment(spreadBps, c.cfg.TargetSpread(tier)),
		LiquidityBonus:  c.LiquidityBonus(depth),
		ExchangeQuality: c.ExchangeQuality(exchange),
		MEVAdjustment:   c.MEVAdjustment(spreadBps),
		CascadeBonus:    cascade,
	}
}

// CalculateCryptoEffectiveDepth applies the factor chain to one tier. Zero
// depth short-circuits to a zero result without evaluating any factor.
func (c *EffectiveDepthCalculator) CalculateCryptoEffectiveDepth(depth float64, tier string, spreadBps, volatility float64, exchange string, includeCascade bool) (*DepthTierResult, error) {
	if err := validateDepthInputs(spreadBps, volatility, depth); err != nil {
		return nil, err
	}

	if depth == 0 {
		return &DepthTierResult{Tier: tier}, nil
	}

	adj := c.Adjustments(depth, tier, spreadBps, volatility, exchange, includeCascade)
	effective := depth * adj.Product()

	return &DepthTierResult{
		Tier:            tier,
		RawDepth:        depth,
		EffectiveDepth:  effective,
		EfficiencyRatio: effective / depth,
		Breakdown:       &adj,
	}, nil
}

// CalculateEntityEffectiveDepth evaluates the three tiers of one venue quote
// and aggregates them. Every tier is present in the result, zero or not.
func (c *EffectiveDepthCalculator) CalculateEntityEffectiveDepth(depth50, depth100, depth200, spreadBps, volatility float64, exchange string) (*EntityDepthResult, error) {
	depths := map[string]float64{
		tuning.Tier50:  depth50,
		tuning.Tier100: depth100,
		tuning.Tier200: depth200,
	}

	result := &EntityDepthResult{
		Exchange:    exchange,
		Tiers:       make(map[string]DepthTierResult, len(tuning.Tiers)),
		Methodology: MethodologyCryptoEmpirical,
	}

	for _, tier := range tuning.Tiers {
		tr, err := c.CalculateCryptoEffectiveDepth(depths[tier], tier, spreadBps, volatility, exchange, true)
		if err != nil {
			return nil, err
		}
		result.Tiers[tier] = *tr
		result.TotalRawDepth += tr.RawDepth
		result.TotalEffectiveDepth += tr.EffectiveDepth
	}

	if result.TotalRawDepth > 0 {
		result.OverallEfficiency = result.TotalEffectiveDepth / result.TotalRawDepth
	}

	return result, nil
}

// CompareWithSimpleMethod contrasts the factor chain with the legacy flat
// tier multipliers scaled by max(floor, 1−σ·factor).
func (c *EffectiveDepthCalculator) CompareWithSimpleMethod(depth50, depth100, depth200, spreadBps, volatility float64, exchange string) (*MethodComparison, error) {
	entity, err := c.CalculateEntityEffectiveDepth(depth50, depth100, depth200, spreadBps, volatility, exchange)
	if err != nil {
		return nil, err
	}

	sm := c.cfg.SimpleMethod
	volAdj := math.Max(sm.VolFloor, 1.0-volatility*sm.VolFactor)
	simple := (depth50*sm.Multipliers[tuning.Tier50] +
		depth100*sm.Multipliers[tuning.Tier100] +
		depth200*sm.Multipliers[tuning.Tier200]) * volAdj

	simpleEfficiency := 0.0
	if entity.TotalRawDepth > 0 {
		simpleEfficiency = simple / entity.TotalRawDepth
	}

	improvement := entity.TotalEffectiveDepth - simple
	improvementPct := 0.0
	if simple > 0 {
		improvementPct = improvement / simple * 100
	}

	return &MethodComparison{
		Simple: MethodEstimate{
			EffectiveDepth: simple,
			Efficiency:     simpleEfficiency,
			Method:         "Simple Tier Multipliers",
		},
		Crypto: MethodEstimate{
			EffectiveDepth: entity.TotalEffectiveDepth,
			Efficiency:     entity.OverallEfficiency,
			Method:         "Crypto-Empirical Optimization",
		},
		ImprovementAbs: improvement,
		ImprovementPct: improvementPct,
		Better:         improvement > 0,
		Entity:         entity,
	}, nil
}

// validateDepthInputs rejects negative and non-finite inputs alike as invalid
func validateDepthInputs(spreadBps, volatility, depth float64) error {
	for _, in := range []struct {
		field string
		value float64
	}{
		{"spread_bps", spreadBps},
		{"volatility", volatility},
		{"depth", depth},
	} {
		if !valuation.IsFinite(in.value) || in.value < 0 {
			return valuation.NewDomainError("effective_depth", in.field, in.value, valuation.ErrInvalidInput)
		}
	}
	return nil
}

const (
	spreadWindowSeconds = 60
	// Rolling spread deviation under which a venue's quote counts as stable
	stableSpreadStdDevBps = 5.0
)

// SnapshotEvaluation is the entity chain run on one order book snapshot,
// with the spread history it was fed and the sweep cost of the 50 bps
// effective depth on both sides.
type SnapshotEvaluation struct {
	Entity       *EntityDepthResult `json:"entity"`
	Spread       *SpreadResult      `json:"spread"`
	SpreadStable bool               `json:"spread_stable"`
	Impact       []MarketImpact     `json:"impact,omitempty"`
}

// EvaluateSnapshot derives tier depths from an order book snapshot and runs
// the entity chain on them. The spread is recorded in the venue/symbol
// history kept by the calculator, so consecutive snapshots of one book are
// valued on the rolling average spread.
func (c *EffectiveDepthCalculator) EvaluateSnapshot(orderbook *OrderBookSnapshot, volatility float64) (*SnapshotEvaluation, error) {
	if err := validateDepthInputs(0, volatility, 0); err != nil {
		return nil, err
	}

	tc := NewTierDepthCalculator()
	depths, err := tc.CalculateTierDepths(orderbook)
	if err != nil {
		return nil, err
	}

	sc := c.spreadHistory(orderbook.Venue, orderbook.Symbol)
	c.mu.Lock()
	spread, err := sc.CalculateSpread(orderbook)
	stable := err == nil && sc.IsSpreadStable(spread, stableSpreadStdDevBps)
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}

	entity, err := c.CalculateEntityEffectiveDepth(
		depths.Depth(tuning.Tier50),
		depths.Depth(tuning.Tier100),
		depths.Depth(tuning.Tier200),
		spread.QuotedBps(), volatility, orderbook.Venue)
	if err != nil {
		return nil, err
	}

	eval := &SnapshotEvaluation{Entity: entity, Spread: spread, SpreadStable: stable}
	if size := entity.Tiers[tuning.Tier50].EffectiveDepth; size > 0 {
		for _, side := range []string{"buy", "sell"} {
			if impact, err := tc.EstimateMarketImpact(orderbook, size, side); err == nil {
				eval.Impact = append(eval.Impact, *impact)
			}
		}
	}
	return eval, nil
}

// ResetSpreadHistory forgets the recorded spreads of one venue/symbol book
func (c *EffectiveDepthCalculator) ResetSpreadHistory(venue, symbol string) {
	sc := c.spreadHistory(venue, symbol)
	c.mu.Lock()
	sc.ClearHistory()
	c.mu.Unlock()
}

func (c *EffectiveDepthCalculator) spreadHistory(venue, symbol string) *SpreadCalculator {
	key := strings.ToLower(strings.TrimSpace(venue)) + "/" + strings.ToUpper(strings.TrimSpace(symbol))

	c.mu.Lock()
	defer c.mu.Unlock()
	sc, ok := c.spreads[key]
	if !ok {
		sc = NewSpreadCalculator(spreadWindowSeconds)
		c.spreads[key] = sc
	}
	return sc
}
