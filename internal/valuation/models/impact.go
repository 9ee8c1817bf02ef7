package models

import (
	"math"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

const bpsPerUnit = 1e4

// AlmgrenChriss values spread savings plus temporary-impact reduction:
// savings(Q) = Δspread + α·σ·(√(Q/V0) − √(Q/(V0+Vmm))).
// An impact side whose volume denominator is zero contributes nothing.
func (e *Engine) AlmgrenChriss(in AlmgrenChrissInput, dist valuation.TradeSizeDistribution) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	alpha := e.cfg.AlmgrenChriss.Alpha
	spread := (in.Spread0 - in.Spread1) / bpsPerUnit
	withMM := in.Volume0 + in.VolumeMM

	total, breakdown := perTrade(dist, func(q float64) (float64, []valuation.Factor) {
		impact0, impact1 := 0.0, 0.0
		if in.Volume0 > 0 {
			impact0 = alpha * in.Volatility * math.Sqrt(q/in.Volume0)
		}
		if withMM > 0 {
			impact1 = alpha * in.Volatility * math.Sqrt(q/withMM)
		}
		return spread + impact0 - impact1, []valuation.Factor{
			fac("spread_component", spread),
			fac("impact_0", impact0),
			fac("impact_1", impact1),
		}
	})

	return finish(valuation.ModelResult{
		Model:      valuation.AlmgrenChriss,
		Name:       valuation.AlmgrenChriss.String(),
		TotalValue: total,
		Breakdown:  breakdown,
		Parameters: []valuation.Factor{
			fac("alpha", alpha),
			fac("spread_0", in.Spread0),
			fac("spread_1", in.Spread1),
			fac("volatility", in.Volatility),
			fac("volume_0", in.Volume0),
			fac("volume_mm", in.VolumeMM),
		},
	})
}

// KyleLambda values the linear impact reduction (λ0 − λ1)·Q² with
// λ = impact_factor/depth, falling back to a fixed λ on empty books.
func (e *Engine) KyleLambda(in KyleInput, dist valuation.TradeSizeDistribution) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	lambda0 := e.lambda(in.Depth0)
	lambda1 := e.lambda(in.Depth0 + in.DepthMM)

	total, breakdown := perTrade(dist, func(q float64) (float64, []valuation.Factor) {
		reduction := (lambda0 - lambda1) * q
		return reduction, []valuation.Factor{fac("impact_reduction", reduction)}
	})

	return finish(valuation.ModelResult{
		Model:      valuation.KyleLambda,
		Name:       valuation.KyleLambda.String(),
		TotalValue: total,
		Breakdown:  breakdown,
		Parameters: []valuation.Factor{
			fac("depth_0", in.Depth0),
			fac("depth_mm", in.DepthMM),
			fac("lambda_0", lambda0),
			fac("lambda_1", lambda1),
		},
	})
}

func (e *Engine) lambda(depth float64) float64 {
	if depth <= 0 {
		return e.cfg.Kyle.FallbackLambda
	}
	return e.cfg.Kyle.ImpactFactor / depth
}

// BouchaudPowerLaw values the concave impact reduction Y·scale·σ·(Q/V)^δ
// between pre-MM and post-MM daily volume.
func (e *Engine) BouchaudPowerLaw(in BouchaudInput, dist valuation.TradeSizeDistribution) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.Bouchaud
	coeff := c.Y * c.ImpactScale * in.Volatility
	withMM := in.DailyVolume0 + in.DailyVolumeMM

	total := 0.0
	breakdown := []valuation.BreakdownEntry{}
	if in.DailyVolume0 > 0 {
		total, breakdown = perTrade(dist, func(q float64) (float64, []valuation.Factor) {
			impact0 := coeff * math.Pow(q/in.DailyVolume0, c.Delta)
			impact1 := coeff * math.Pow(q/withMM, c.Delta)
			return impact0 - impact1, []valuation.Factor{
				fac("impact_0", impact0),
				fac("impact_1", impact1),
			}
		})
	}

	return finish(valuation.ModelResult{
		Model:      valuation.BouchaudPower,
		Name:       valuation.BouchaudPower.String(),
		TotalValue: total,
		Breakdown:  breakdown,
		Parameters: []valuation.Factor{
			fac("y", c.Y),
			fac("delta", c.Delta),
			fac("volatility", in.Volatility),
			fac("daily_volume_0", in.DailyVolume0),
			fac("daily_volume_mm", in.DailyVolumeMM),
		},
	})
}

// AmihudIlliquidity values the drop in |return|/volume illiquidity the
// market maker's volume brings. Worsening illiquidity is clamped to zero.
func (e *Engine) AmihudIlliquidity(in AmihudInput) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.Amihud
	withMM := in.DailyVolume0 + in.DailyVolumeMM
	illiq0 := e.illiquidity(in.AvgReturn, in.DailyVolume0)
	illiq1 := e.illiquidity(in.AvgReturn, withMM)
	reduction := math.Max(0, illiq0-illiq1)
	total := c.VolumeFraction * withMM * reduction * c.ValueScale

	return finish(valuation.ModelResult{
		Model:      valuation.Amihud,
		Name:       valuation.Amihud.String(),
		TotalValue: total,
		Breakdown: []valuation.BreakdownEntry{{
			Factors: []valuation.Factor{
				fac("illiq_0", illiq0),
				fac("illiq_1", illiq1),
				fac("illiq_reduction", reduction),
				fac("daily_volume_total", withMM),
			},
			Contribution: total,
		}},
		Parameters: []valuation.Factor{
			fac("daily_volume_0", in.DailyVolume0),
			fac("daily_volume_mm", in.DailyVolumeMM),
			fac("asset_price", in.AssetPrice),
			fac("avg_return", in.AvgReturn),
		},
	})
}

func (e *Engine) illiquidity(avgReturn, volume float64) float64 {
	if volume <= 0 {
		return e.cfg.Amihud.FallbackIlliquidity
	}
	return math.Abs(avgReturn) / (volume / e.cfg.Amihud.VolumeUnit)
}
