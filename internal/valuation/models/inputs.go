package models

import "github.com/sawpanic/mmvalue/internal/domain/valuation"

// AlmgrenChrissInput is the parameter subset of the Almgren-Chriss model
type AlmgrenChrissInput struct {
	Spread0    float64 // bps
	Spread1    float64 // bps
	Volatility float64
	Volume0    float64
	VolumeMM   float64
}

// AlmgrenChrissInputFrom extracts the Almgren-Chriss inputs
func AlmgrenChrissInputFrom(p valuation.MarketParameters) AlmgrenChrissInput {
	return AlmgrenChrissInput{
		Spread0:    p.Spread0,
		Spread1:    p.Spread1,
		Volatility: p.Volatility,
		Volume0:    p.Volume0,
		VolumeMM:   p.VolumeMM,
	}
}

func (in AlmgrenChrissInput) validate() error {
	return requireNonNegative(valuation.AlmgrenChriss.Key(),
		field{"spread_0", in.Spread0},
		field{"spread_1", in.Spread1},
		field{"volatility", in.Volatility},
		field{"volume_0", in.Volume0},
		field{"volume_mm", in.VolumeMM},
	)
}

// KyleInput is the parameter subset of Kyle's lambda model
type KyleInput struct {
	Depth0  float64
	DepthMM float64
}

// KyleInputFrom extracts the Kyle lambda inputs
func KyleInputFrom(p valuation.MarketParameters) KyleInput {
	return KyleInput{Depth0: p.Depth0, DepthMM: p.DepthMM}
}

func (in KyleInput) validate() error {
	return requireNonNegative(valuation.KyleLambda.Key(),
		field{"depth_0", in.Depth0},
		field{"depth_mm", in.DepthMM},
	)
}

// BouchaudInput is the parameter subset of the Bouchaud power-law model
type BouchaudInput struct {
	Volatility    float64
	DailyVolume0  float64
	DailyVolumeMM float64
}

// BouchaudInputFrom extracts the Bouchaud inputs
func BouchaudInputFrom(p valuation.MarketParameters) BouchaudInput {
	return BouchaudInput{
		Volatility:    p.Volatility,
		DailyVolume0:  p.DailyVolume0,
		DailyVolumeMM: p.DailyVolumeMM,
	}
}

func (in BouchaudInput) validate() error {
	return requireNonNegative(valuation.BouchaudPower.Key(),
		field{"volatility", in.Volatility},
		field{"daily_volume_0", in.DailyVolume0},
		field{"daily_volume_mm", in.DailyVolumeMM},
	)
}

// AmihudInput is the parameter subset of the Amihud illiquidity model
type AmihudInput struct {
	DailyVolume0  float64
	DailyVolumeMM float64
	AssetPrice    float64
	AvgReturn     float64
}

// AmihudInputFrom extracts the Amihud inputs
func AmihudInputFrom(p valuation.MarketParameters) AmihudInput {
	return AmihudInput{
		DailyVolume0:  p.DailyVolume0,
		DailyVolumeMM: p.DailyVolumeMM,
		AssetPrice:    p.AssetPrice,
		AvgReturn:     p.AvgReturn,
	}
}

func (in AmihudInput) validate() error {
	op := valuation.Amihud.Key()
	if err := requireNonNegative(op,
		field{"daily_volume_0", in.DailyVolume0},
		field{"daily_volume_mm", in.DailyVolumeMM},
		field{"asset_price", in.AssetPrice},
	); err != nil {
		return err
	}
	return valuation.RequireFinite(op, "avg_return", in.AvgReturn)
}

// HawkesInput is the parameter subset of the Hawkes cascade model
type HawkesInput struct {
	Spread0      float64
	Spread1      float64
	Volatility   float64
	VolumeMM     float64
	DailyVolume0 float64
	AssetPrice   float64
}

// HawkesInputFrom extracts the Hawkes cascade inputs
func HawkesInputFrom(p valuation.MarketParameters) HawkesInput {
	return HawkesInput{
		Spread0:      p.Spread0,
		Spread1:      p.Spread1,
		Volatility:   p.Volatility,
		VolumeMM:     p.VolumeMM,
		DailyVolume0: p.DailyVolume0,
		AssetPrice:   p.AssetPrice,
	}
}

func (in HawkesInput) validate() error {
	return requireNonNegative(valuation.HawkesCascade.Key(),
		field{"spread_0", in.Spread0},
		field{"spread_1", in.Spread1},
		field{"volatility", in.Volatility},
		field{"volume_mm", in.VolumeMM},
		field{"daily_volume_0", in.DailyVolume0},
		field{"asset_price", in.AssetPrice},
	)
}

// ResilienceInput is the parameter subset of the order-book resilience model
type ResilienceInput struct {
	Spread0     float64
	Spread1     float64
	Depth0      float64
	DepthMM     float64
	DailyVolume float64
	AssetPrice  float64
}

// ResilienceInputFrom extracts the resilience inputs
func ResilienceInputFrom(p valuation.MarketParameters) ResilienceInput {
	return ResilienceInput{
		Spread0:     p.Spread0,
		Spread1:     p.Spread1,
		Depth0:      p.Depth0,
		DepthMM:     p.DepthMM,
		DailyVolume: p.DailyVolume0,
		AssetPrice:  p.AssetPrice,
	}
}

func (in ResilienceInput) validate() error {
	return requireNonNegative(valuation.Resilience.Key(),
		field{"spread_0", in.Spread0},
		field{"spread_1", in.Spread1},
		field{"depth_0", in.Depth0},
		field{"depth_mm", in.DepthMM},
		field{"daily_volume", in.DailyVolume},
		field{"asset_price", in.AssetPrice},
	)
}

// PINInput is the parameter subset of the adverse-selection model
type PINInput struct {
	Spread0     float64
	Spread1     float64
	DailyVolume float64
}

// PINInputFrom extracts the adverse-selection inputs
func PINInputFrom(p valuation.MarketParameters) PINInput {
	return PINInput{Spread0: p.Spread0, Spread1: p.Spread1, DailyVolume: p.DailyVolume0}
}

func (in PINInput) validate() error {
	return requireNonNegative(valuation.AdverseSelection.Key(),
		field{"spread_0", in.Spread0},
		field{"spread_1", in.Spread1},
		field{"daily_volume", in.DailyVolume},
	)
}

// CrossVenueInput is the parameter subset of the cross-venue arbitrage model
type CrossVenueInput struct {
	LocalDepth       float64
	OtherVenueDepths []float64
	Spread0          float64
	Spread1          float64
	DailyVolume      float64
	AssetPrice       float64
}

// CrossVenueInputFrom extracts the cross-venue inputs. Local depth includes the
// market maker; competing venues are simulated as ratios of pre-MM depth.
func CrossVenueInputFrom(p valuation.MarketParameters, otherVenueRatios []float64) CrossVenueInput {
	others := make([]float64, len(otherVenueRatios))
	for i, r := range otherVenueRatios {
		others[i] = p.Depth0 * r
	}
	return CrossVenueInput{
		LocalDepth:       p.Depth0 + p.DepthMM,
		OtherVenueDepths: others,
		Spread0:          p.Spread0,
		Spread1:          p.Spread1,
		DailyVolume:      p.DailyVolume0,
		AssetPrice:       p.AssetPrice,
	}
}

func (in CrossVenueInput) validate() error {
	op := valuation.CrossVenue.Key()
	if err := requireNonNegative(op,
		field{"local_depth", in.LocalDepth},
		field{"spread_0", in.Spread0},
		field{"spread_1", in.Spread1},
		field{"daily_volume", in.DailyVolume},
		field{"asset_price", in.AssetPrice},
	); err != nil {
		return err
	}
	for _, d := range in.OtherVenueDepths {
		if err := valuation.RequireNonNegative(op, "other_venue_depth", d); err != nil {
			return err
		}
	}
	return nil
}
