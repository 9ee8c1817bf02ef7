// Package models implements the eight market-impact frameworks used to value
// a market maker's contribution to an order book. Every method is a pure
// function of its inputs; the Engine only carries immutable coefficients.
package models

import (
	"fmt"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

// Engine evaluates the valuation models with a fixed coefficient set
type Engine struct {
	cfg tuning.ModelConfig
}

// NewEngine creates an engine; nil selects the calibrated defaults
func NewEngine(cfg *tuning.ModelConfig) *Engine {
	if cfg == nil {
		return &Engine{cfg: tuning.DefaultModelConfig()}
	}
	c := *cfg
	c.CrossVenue.OtherVenueDepthRatios = append([]float64(nil), cfg.CrossVenue.OtherVenueDepthRatios...)
	return &Engine{cfg: c}
}

// Config returns a copy of the engine coefficients
func (e *Engine) Config() tuning.ModelConfig {
	c := e.cfg
	c.CrossVenue.OtherVenueDepthRatios = append([]float64(nil), e.cfg.CrossVenue.OtherVenueDepthRatios...)
	return c
}

// Evaluate runs the model identified by kind against the full parameter set
func (e *Engine) Evaluate(kind valuation.ModelKind, p valuation.MarketParameters, dist valuation.TradeSizeDistribution) (valuation.ModelResult, error) {
	switch kind {
	case valuation.AlmgrenChriss:
		return e.AlmgrenChriss(AlmgrenChrissInputFrom(p), dist)
	case valuation.KyleLambda:
		return e.KyleLambda(KyleInputFrom(p), dist)
	case valuation.BouchaudPower:
		return e.BouchaudPowerLaw(BouchaudInputFrom(p), dist)
	case valuation.Amihud:
		return e.AmihudIlliquidity(AmihudInputFrom(p))
	case valuation.Resilience:
		return e.OrderBookResilience(ResilienceInputFrom(p))
	case valuation.AdverseSelection:
		return e.AdverseSelectionPIN(PINInputFrom(p), dist)
	case valuation.CrossVenue:
		return e.CrossVenueArbitrage(CrossVenueInputFrom(p, e.cfg.CrossVenue.OtherVenueDepthRatios))
	case valuation.HawkesCascade:
		return e.HawkesCascade(HawkesInputFrom(p))
	}
	return valuation.ModelResult{}, fmt.Errorf("%w: model kind %d", valuation.ErrInvalidInput, int(kind))
}

// perTrade iterates the distribution, skipping non-positive pairs, and
// accumulates size·probability·perUnit with one breakdown entry per size.
func perTrade(dist valuation.TradeSizeDistribution, perUnit func(q float64) (float64, []valuation.Factor)) (float64, []valuation.BreakdownEntry) {
	total := 0.0
	breakdown := make([]valuation.BreakdownEntry, 0, dist.Len())

	for i := 0; i < dist.Len(); i++ {
		q, p := dist.At(i)
		if q <= 0 || p <= 0 {
			continue
		}

		unit, factors := perUnit(q)
		contribution := q * p * unit
		total += contribution

		breakdown = append(breakdown, valuation.BreakdownEntry{
			TradeSize:    q,
			Probability:  p,
			Factors:      factors,
			Contribution: contribution,
		})
	}

	return total, breakdown
}

// finish rejects any non-finite number in the result before it escapes
func finish(r valuation.ModelResult) (valuation.ModelResult, error) {
	op := r.Model.Key()

	if err := valuation.RequireFinite(op, "total_value", r.TotalValue); err != nil {
		return valuation.ModelResult{}, err
	}
	for _, b := range r.Breakdown {
		if err := valuation.RequireFinite(op, "contribution", b.Contribution); err != nil {
			return valuation.ModelResult{}, err
		}
		for _, f := range b.Factors {
			if err := valuation.RequireFinite(op, f.Name, f.Value); err != nil {
				return valuation.ModelResult{}, err
			}
		}
	}

	r.Enabled = true
	return r, nil
}

func fac(name string, value float64) valuation.Factor {
	return valuation.Factor{Name: name, Value: value}
}

type field struct {
	name  string
	value float64
}

func requireNonNegative(op string, fields ...field) error {
	for _, f := range fields {
		if err := valuation.RequireNonNegative(op, f.name, f.value); err != nil {
			return err
		}
	}
	return nil
}
