package models

import "github.com/sawpanic/mmvalue/internal/domain/valuation"

// PIN returns the probability of informed trading αμ/(αμ+εb+εs), 0 when no flow
func (e *Engine) PIN() float64 {
	c := e.cfg.PIN
	informed := c.Alpha * c.Mu
	denom := informed + c.EpsilonBuy + c.EpsilonSell
	if denom <= 0 {
		return 0
	}
	return informed / denom
}

// AdverseSelectionPIN values flow discrimination: toxic losses avoided by a
// PIN-scaled spread premium, minus profit lost on benign flow. Only the
// capture factor share of the gross is attributed to the market maker.
func (e *Engine) AdverseSelectionPIN(in PINInput, dist valuation.TradeSizeDistribution) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.PIN
	pin := e.PIN()
	toxicPremium := pin * in.Spread0 * c.ToxicSpreadMultiplier
	benignDiscount := (1 - pin) * in.Spread0 * c.BenignSpreadDiscount

	gross, breakdown := perTrade(dist, func(q float64) (float64, []valuation.Factor) {
		toxic := pin * toxicPremium
		benign := (1 - pin) * benignDiscount * c.BenignLossRate
		return toxic - benign, []valuation.Factor{
			fac("toxic_loss_avoided", toxic),
			fac("benign_profit_lost", benign),
		}
	})

	return finish(valuation.ModelResult{
		Model:      valuation.AdverseSelection,
		Name:       valuation.AdverseSelection.String(),
		TotalValue: gross * c.CaptureFactor,
		Breakdown:  breakdown,
		Parameters: []valuation.Factor{
			fac("pin", pin),
			fac("alpha", c.Alpha),
			fac("mu", c.Mu),
			fac("epsilon_buy", c.EpsilonBuy),
			fac("epsilon_sell", c.EpsilonSell),
			fac("toxic_spread_premium", toxicPremium),
			fac("benign_spread_discount", benignDiscount),
			fac("capture_factor", c.CaptureFactor),
			fac("daily_volume", in.DailyVolume),
		},
	})
}

// CrossVenueArbitrage values the impact dampening that competing venues
// provide once arbitrageurs link them. Efficiency is β·other/total depth.
func (e *Engine) CrossVenueArbitrage(in CrossVenueInput) (valuation.ModelResult, error) {
	if err := in.validate(); err != nil {
		return valuation.ModelResult{}, err
	}

	c := e.cfg.CrossVenue
	others := 0.0
	for _, d := range in.OtherVenueDepths {
		others += d
	}
	total := in.LocalDepth + others

	efficiency := 0.0
	if total > 0 {
		efficiency = c.Beta * others / total
	}

	effective0 := in.Spread0 * (1 - efficiency*c.MaxImpactReduction)
	effective1 := in.Spread1 * (1 - efficiency*c.MMImpactReduction)
	arbitrage := (effective0 - effective1) * in.DailyVolume * in.AssetPrice * c.ArbValueScale
	discovery := efficiency * in.DailyVolume * c.DiscoveryVolumeFraction * (in.Spread0 - in.Spread1) * c.DiscoveryScale

	return finish(valuation.ModelResult{
		Model:      valuation.CrossVenue,
		Name:       valuation.CrossVenue.String(),
		TotalValue: arbitrage + discovery,
		Breakdown: []valuation.BreakdownEntry{
			{Factors: []valuation.Factor{
				fac("arb_efficiency", efficiency),
				fac("effective_impact_0", effective0),
				fac("effective_impact_1", effective1),
			}, Contribution: arbitrage},
			{Factors: []valuation.Factor{
				fac("total_depth", total),
				fac("other_venue_depth", others),
			}, Contribution: discovery},
		},
		Parameters: []valuation.Factor{
			fac("beta", c.Beta),
			fac("local_depth", in.LocalDepth),
			fac("spread_0", in.Spread0),
			fac("spread_1", in.Spread1),
			fac("daily_volume", in.DailyVolume),
			fac("asset_price", in.AssetPrice),
		},
	})
}
