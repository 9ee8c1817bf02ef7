package models

import (
	"math"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

// HawkesCascade values dampened order-flow clustering: the market maker's
// share of volume reduces the self-excitation intensity μ·σ, which lowers
// liquidation-cascade probability, clustering and social momentum.
func (e *Engine) HawkesCascade(in HawkesInput) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.Hawkes
	reduction := 0.0
	if in.DailyVolume0+in.VolumeMM > 0 {
		reduction = in.VolumeMM / (in.DailyVolume0 + in.VolumeMM)
	}

	baseIntensity := c.Mu * in.Volatility
	spike := in.Volatility * c.VolumeSpikeMultiplier
	cascade0 := 1 - math.Exp(-baseIntensity*spike)
	cascade1 := 1 - math.Exp(-baseIntensity*spike*(1-reduction))

	clustering0 := baseIntensity * (1 + in.Volatility)
	clustering1 := clustering0 * (1 - reduction)

	liquidation := (cascade0 - cascade1) * in.AssetPrice * in.DailyVolume0 * c.LiquidationScale * c.LiquidationFraction
	cascadeValue := (clustering0 - clustering1) * (in.Spread0 - in.Spread1) * in.DailyVolume0 * c.TimeHorizon * c.CascadeScale
	social := in.Volatility * reduction * in.DailyVolume0 * c.SocialScale * c.SocialFraction

	total := cascadeValue + liquidation + social

	return finish(valuation.ModelResult{
		Model:      valuation.HawkesCascade,
		Name:       valuation.HawkesCascade.String(),
		TotalValue: total,
		Breakdown: []valuation.BreakdownEntry{
			{Factors: []valuation.Factor{
				fac("clustering_intensity_0", clustering0),
				fac("clustering_intensity_1", clustering1),
			}, Contribution: cascadeValue},
			{Factors: []valuation.Factor{
				fac("cascade_probability_0", cascade0),
				fac("cascade_probability_1", cascade1),
			}, Contribution: liquidation},
			{Factors: []valuation.Factor{
				fac("clustering_reduction", reduction),
			}, Contribution: social},
		},
		Parameters: []valuation.Factor{
			fac("beta", c.Beta),
			fac("mu", c.Mu),
			fac("base_intensity", baseIntensity),
			fac("volume_spike_factor", spike),
			fac("spread_0", in.Spread0),
			fac("spread_1", in.Spread1),
			fac("volatility", in.Volatility),
			fac("volume_mm", in.VolumeMM),
			fac("daily_volume_0", in.DailyVolume0),
			fac("time_horizon", c.TimeHorizon),
		},
	})
}

// OrderBookResilience values faster post-trade recovery. Recovery speed
// scales with depth/(depth+denominator); the decay integral over the
// horizon is (1−e^(−ρ̄T))/ρ̄, or T when ρ̄ is zero.
func (e *Engine) OrderBookResilience(in ResilienceInput) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.Resilience
	rhoWithout := c.FallbackRho
	if in.Depth0 > 0 {
		rhoWithout = c.Rho * in.Depth0 / (in.Depth0 + c.RecoveryDenominator)
	}
	withMM := in.Depth0 + in.DepthMM
	rhoWith := c.Rho * withMM / (withMM + c.RecoveryDenominator)

	avg := (rhoWith + rhoWithout) / 2
	integral := c.TimeHorizonHours
	if avg > 0 {
		integral = (1 - math.Exp(-avg*c.TimeHorizonHours)) / avg
	}

	improvement := (rhoWith - rhoWithout) * in.Spread0
	recovery := in.DailyVolume * c.RecoveryVolumeFraction * improvement * integral * c.RecoveryScale
	permanentReduction := (in.Spread0 - in.Spread1) * c.PermanentImpactFraction
	permanent := in.DailyVolume * c.PermanentVolumeFraction * permanentReduction * in.AssetPrice * c.PermanentScale

	total := recovery + permanent

	return finish(valuation.ModelResult{
		Model:      valuation.Resilience,
		Name:       valuation.Resilience.String(),
		TotalValue: total,
		Breakdown: []valuation.BreakdownEntry{
			{Factors: []valuation.Factor{
				fac("rho_without", rhoWithout),
				fac("rho_with", rhoWith),
				fac("integral_factor", integral),
			}, Contribution: recovery},
			{Factors: []valuation.Factor{
				fac("permanent_impact_reduction", permanentReduction),
			}, Contribution: permanent},
		},
		Parameters: []valuation.Factor{
			fac("rho", c.Rho),
			fac("spread_0", in.Spread0),
			fac("spread_1", in.Spread1),
			fac("depth_0", in.Depth0),
			fac("depth_mm", in.DepthMM),
			fac("daily_volume", in.DailyVolume),
			fac("time_horizon", c.TimeHorizonHours),
		},
	})
}
