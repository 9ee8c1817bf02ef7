// Package service runs portfolio-level analysis on top of the valuation
// engine: effective depth per venue quote and per entity, market-maker value
// per quote net of spread cost, and entity summaries with a depth-coverage
// risk score.
package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/valuation/composite"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
)

// Assumptions of the per-quote market-maker valuation
const (
	DefaultDepthVolatility = 0.25
	AssumedDailyVolume     = 1_000_000.0
	AssumedMMVolume        = 500_000.0
	SpreadReductionFactor  = 0.5
	DepthIncreaseFactor    = 0.5
	AdverseSelectionRate   = 0.3
	TradeSizeSampleSize    = 10
)

// Depth coverage thresholds of the risk score
const (
	LowRiskCoverage    = 10.0
	MediumRiskCoverage = 5.0
	HighRiskCoverage   = 2.0
)

// DepthQuote is one entity's quoted liquidity on one venue
type DepthQuote struct {
	Entity    string  `json:"entity"`
	Exchange  string  `json:"exchange"`
	Depth50   float64 `json:"depth_50"`
	Depth100  float64 `json:"depth_100"`
	Depth200  float64 `json:"depth_200"`
	SpreadBps float64 `json:"spread_bps"`
}

// TotalRawDepth sums the three tiers
func (q DepthQuote) TotalRawDepth() float64 {
	return q.Depth50 + q.Depth100 + q.Depth200
}

// MarketSnapshot carries the market-wide inputs of an analysis
type MarketSnapshot struct {
	Volatility   float64 `json:"volatility"`
	TokenPrice   float64 `json:"token_price"`
	RiskFreeRate float64 `json:"risk_free_rate"`
}

// EffectiveDepth is the effective depth of one quote
type EffectiveDepth struct {
	Entity              string  `json:"entity"`
	Exchange            string  `json:"exchange"`
	TotalRawDepth       float64 `json:"total_raw_depth"`
	TotalEffectiveDepth float64 `json:"total_effective_depth"`
	OverallEfficiency   float64 `json:"overall_efficiency"`
}

// EntityDepth is the cumulative effective depth of one entity across venues
type EntityDepth struct {
	RawDepth          float64  `json:"raw_depth"`
	EffectiveDepth    float64  `json:"effective_depth"`
	Exchanges         []string `json:"exchanges"`
	OverallEfficiency float64  `json:"overall_efficiency"`
}

// EffectiveDepthService evaluates quotes with the crypto effective-depth chain
type EffectiveDepthService struct {
	calc *microstructure.EffectiveDepthCalculator
}

// NewEffectiveDepthService wraps calc; nil selects the default calculator
func NewEffectiveDepthService(calc *microstructure.EffectiveDepthCalculator) *EffectiveDepthService {
	if calc == nil {
		calc = microstructure.NewEffectiveDepthCalculator(nil)
	}
	return &EffectiveDepthService{calc: calc}
}

// EntityEffectiveDepth evaluates one quote; non-positive volatility selects the default
func (s *EffectiveDepthService) EntityEffectiveDepth(q DepthQuote, volatility float64) (*EffectiveDepth, error) {
	if volatility <= 0 {
		volatility = DefaultDepthVolatility
	}
	r, err := s.calc.CalculateEntityEffectiveDepth(q.Depth50, q.Depth100, q.Depth200, q.SpreadBps, volatility, q.Exchange)
	if err != nil {
		return nil, fmt.Errorf("effective depth %s@%s: %w", q.Entity, q.Exchange, err)
	}
	return &EffectiveDepth{
		Entity:              q.Entity,
		Exchange:            q.Exchange,
		TotalRawDepth:       r.TotalRawDepth,
		TotalEffectiveDepth: r.TotalEffectiveDepth,
		OverallEfficiency:   r.OverallEfficiency,
	}, nil
}

// CumulativeByEntity sums effective depth per entity
func (s *EffectiveDepthService) CumulativeByEntity(quotes []DepthQuote, volatility float64) (map[string]*EntityDepth, error) {
	out := make(map[string]*EntityDepth)
	for _, q := range quotes {
		r, err := s.EntityEffectiveDepth(q, volatility)
		if err != nil {
			return nil, err
		}
		e, ok := out[q.Entity]
		if !ok {
			e = &EntityDepth{Exchanges: []string{}}
			out[q.Entity] = e
		}
		e.RawDepth += r.TotalRawDepth
		e.EffectiveDepth += r.TotalEffectiveDepth
		e.Exchanges = append(e.Exchanges, q.Exchange)
	}
	for _, e := range out {
		if e.RawDepth > 0 {
			e.OverallEfficiency = e.EffectiveDepth / e.RawDepth
		}
	}
	return out, nil
}

// MarketMakerValuation is the composite value of one quote net of spread cost
type MarketMakerValuation struct {
	Entity     string                     `json:"entity"`
	Exchange   string                     `json:"exchange"`
	TotalValue float64                    `json:"total_value"`
	SpreadCost float64                    `json:"spread_cost"`
	NetValue   float64                    `json:"net_value_after_spread"`
	Composite  *valuation.CompositeResult `json:"model_components"`
}

// EntitySummary rolls up one entity's market-making economics
type EntitySummary struct {
	Entity          string   `json:"entity"`
	Exchanges       []string `json:"exchanges"`
	TotalMMValue    float64  `json:"total_mm_value"`
	TotalSpreadCost float64  `json:"total_spread_cost"`
	TotalNetValue   float64  `json:"total_net_value"`
	OptionValue     float64  `json:"option_value"`
	EffectiveDepth  float64  `json:"effective_depth"`
	MMEfficiency    float64  `json:"mm_efficiency"`
	DepthCoverage   float64  `json:"depth_coverage"`
	RiskScore       int      `json:"risk_score"`
}

// MarketMakerService values quotes with the composite model
type MarketMakerService struct {
	valuator *composite.Valuator
	dist     valuation.TradeSizeDistribution
}

// NewMarketMakerService builds the service over the default log-normal
// distribution truncated to its smallest buckets.
func NewMarketMakerService(valuator *composite.Valuator) (*MarketMakerService, error) {
	if valuator == nil {
		valuator = composite.NewValuator(nil, nil)
	}
	full, err := distribution.Generate(distribution.DefaultSpec())
	if err != nil {
		return nil, err
	}
	dist, err := full.Head(TradeSizeSampleSize)
	if err != nil {
		return nil, err
	}
	return &MarketMakerService{valuator: valuator, dist: dist}, nil
}

// Parameters maps one quote onto composite inputs under the fixed volume assumptions
func Parameters(q DepthQuote, market MarketSnapshot) valuation.MarketParameters {
	depth0 := q.TotalRawDepth()
	return valuation.MarketParameters{
		AssetPrice:    market.TokenPrice,
		Volatility:    market.Volatility,
		RiskFreeRate:  market.RiskFreeRate,
		Spread0:       q.SpreadBps,
		Spread1:       q.SpreadBps * SpreadReductionFactor,
		Volume0:       AssumedDailyVolume,
		VolumeMM:      AssumedMMVolume,
		Depth0:        depth0,
		DepthMM:       depth0 * DepthIncreaseFactor,
		DailyVolume0:  AssumedDailyVolume,
		DailyVolumeMM: AssumedMMVolume,
		AvgReturn:     0.001,
	}
}

// SpreadCost is the adverse-selection cost of quoting half the spread on the informed share of volume
func SpreadCost(spreadBps float64) float64 {
	return spreadBps / 10000 / 2 * AssumedDailyVolume * AdverseSelectionRate
}

// Valuate values one quote with the crypto weights
func (s *MarketMakerService) Valuate(q DepthQuote, market MarketSnapshot) (*MarketMakerValuation, error) {
	result, err := s.valuator.Valuate(Parameters(q, market), s.dist, composite.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("market maker valuation %s@%s: %w", q.Entity, q.Exchange, err)
	}

	cost := SpreadCost(q.SpreadBps)
	return &MarketMakerValuation{
		Entity:     q.Entity,
		Exchange:   q.Exchange,
		TotalValue: result.TotalValue,
		SpreadCost: cost,
		NetValue:   result.TotalValue - cost,
		Composite:  result,
	}, nil
}

// RiskScore grades depth coverage: 1 at 10x and above, 2 from 5x, 3 from 2x, else 4
func RiskScore(coverage float64) int {
	switch {
	case coverage >= LowRiskCoverage:
		return 1
	case coverage >= MediumRiskCoverage:
		return 2
	case coverage >= HighRiskCoverage:
		return 3
	default:
		return 4
	}
}

// EntitySummaries groups valuations by entity, in order of first appearance.
// An entity without an option value is measured against 1. A zero option
// value yields zero efficiency and coverage, the highest risk score.
func (s *MarketMakerService) EntitySummaries(valuations []*MarketMakerValuation, optionValues, effectiveDepths map[string]float64) []EntitySummary {
	index := map[string]int{}
	var summaries []EntitySummary
	seen := map[string]map[string]bool{}

	for _, v := range valuations {
		i, ok := index[v.Entity]
		if !ok {
			i = len(summaries)
			index[v.Entity] = i
			summaries = append(summaries, EntitySummary{Entity: v.Entity, Exchanges: []string{}})
			seen[v.Entity] = map[string]bool{}
		}
		sum := &summaries[i]
		if !seen[v.Entity][v.Exchange] {
			seen[v.Entity][v.Exchange] = true
			sum.Exchanges = append(sum.Exchanges, v.Exchange)
		}
		sum.TotalMMValue += v.TotalValue
		sum.TotalSpreadCost += v.SpreadCost
		sum.TotalNetValue += v.NetValue
	}

	for i := range summaries {
		sum := &summaries[i]
		option, ok := optionValues[sum.Entity]
		if !ok {
			option = 1
		}
		sum.OptionValue = option
		sum.EffectiveDepth = effectiveDepths[sum.Entity]
		sum.MMEfficiency = ratio(sum.TotalNetValue, option) * 100
		sum.DepthCoverage = ratio(sum.EffectiveDepth, option)
		sum.RiskScore = RiskScore(sum.DepthCoverage)
		sort.Strings(sum.Exchanges)
	}

	return summaries
}

// ratio is num/den, 0 when den is zero or the quotient is not finite
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	q := num / den
	if math.IsNaN(q) || math.IsInf(q, 0) {
		return 0
	}
	return q
}

// OptionPricer prices an entity's option book. Black-Scholes lives outside
// this module; callers plug their pricer in here.
type OptionPricer interface {
	EntityOptionValue(ctx context.Context, entity string) (float64, error)
}

// Analysis is the result of one portfolio run
type Analysis struct {
	RunID           string                  `json:"run_id"`
	Timestamp       time.Time               `json:"timestamp"`
	OptionValues    map[string]float64      `json:"option_values"`
	EffectiveDepths map[string]*EntityDepth `json:"effective_depths"`
	Valuations      []*MarketMakerValuation `json:"mm_valuations"`
	Summaries       []EntitySummary         `json:"entity_summaries"`
	TotalMMValue    float64                 `json:"total_mm_value"`
}

// Orchestrator runs the depth, valuation and summary services together
type Orchestrator struct {
	depth *EffectiveDepthService
	mm    *MarketMakerService
}

// NewOrchestrator wires the services
func NewOrchestrator(depth *EffectiveDepthService, mm *MarketMakerService) *Orchestrator {
	return &Orchestrator{depth: depth, mm: mm}
}

// Analyze values every quote and summarizes per entity. A nil pricer leaves
// option values empty; pricing failures are logged and the entity falls back to 1.
func (o *Orchestrator) Analyze(ctx context.Context, quotes []DepthQuote, market MarketSnapshot, pricer OptionPricer) (*Analysis, error) {
	a := &Analysis{
		RunID:        uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		OptionValues: map[string]float64{},
		Valuations:   make([]*MarketMakerValuation, 0, len(quotes)),
	}
	logger := log.With().Str("run_id", a.RunID).Logger()

	if pricer != nil {
		for _, entity := range entities(quotes) {
			value, err := pricer.EntityOptionValue(ctx, entity)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				logger.Warn().Err(err).Str("entity", entity).Msg("Option pricing failed")
				continue
			}
			a.OptionValues[entity] = value
		}
	}

	depths, err := o.depth.CumulativeByEntity(quotes, 0)
	if err != nil {
		return nil, err
	}
	a.EffectiveDepths = depths

	effective := make(map[string]float64, len(depths))
	for entity, d := range depths {
		effective[entity] = d.EffectiveDepth
	}

	for _, q := range quotes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v, err := o.mm.Valuate(q, market)
		if err != nil {
			return nil, err
		}
		a.Valuations = append(a.Valuations, v)
		a.TotalMMValue += v.NetValue
	}

	a.Summaries = o.mm.EntitySummaries(a.Valuations, a.OptionValues, effective)

	logger.Info().
		Int("quotes", len(quotes)).
		Int("entities", len(a.Summaries)).
		Float64("total_mm_value", a.TotalMMValue).
		Msg("Analysis complete")

	return a, nil
}

func entities(quotes []DepthQuote) []string {
	seen := map[string]bool{}
	var out []string
	for _, q := range quotes {
		if !seen[q.Entity] {
			seen[q.Entity] = true
			out = append(out, q.Entity)
		}
	}
	return out
}
