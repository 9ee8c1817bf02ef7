// Package tuning holds the static parameter tables of the valuation engine:
// model coefficients, composite calibration brackets, crypto depth constants
// and validation bounds. Defaults are built fresh on every call; a YAML file
// may overlay them.
package tuning

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// VolumeBracket maps daily volumes up to MaxVolume onto a target percentage.
// A zero MaxVolume marks the open-ended last bracket.
type VolumeBracket struct {
	MaxVolume float64 `yaml:"max_volume"`
	TargetPct float64 `yaml:"target_pct"`
}

// VolumeBoost multiplies the correction factor once volume reaches MinVolume
type VolumeBoost struct {
	MinVolume  float64 `yaml:"min_volume"`
	Multiplier float64 `yaml:"multiplier"`
}

// CalibrationConfig drives the composite two-stage calibration
type CalibrationConfig struct {
	BaseScaling     float64         `yaml:"base_scaling"`
	Brackets        []VolumeBracket `yaml:"brackets"`
	Boosts          []VolumeBoost   `yaml:"boosts"` // first match wins, highest threshold first
	ClampMin        float64         `yaml:"clamp_min"`
	ClampMax        float64         `yaml:"clamp_max"`
	ClampMaxLarge   float64         `yaml:"clamp_max_large"`
	LargeVolumeFrom float64         `yaml:"large_volume_from"`
}

// DefaultCalibrationConfig returns the empirically reverse-engineered calibration
func DefaultCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		BaseScaling: 35.0,
		Brackets: []VolumeBracket{
			{MaxVolume: 1_000_000, TargetPct: 12.5},
			{MaxVolume: 5_000_000, TargetPct: 11.0},
			{MaxVolume: 0, TargetPct: 10.0},
		},
		Boosts: []VolumeBoost{
			{MinVolume: 10_000_000, Multiplier: 2.0},
			{MinVolume: 5_000_000, Multiplier: 1.3},
			{MinVolume: 3_000_000, Multiplier: 1.2},
		},
		ClampMin:        0.2,
		ClampMax:        5.0,
		ClampMaxLarge:   10.0,
		LargeVolumeFrom: 5_000_000,
	}
}

// TargetPct returns the target percentage of daily volume for dailyVolume
func (c CalibrationConfig) TargetPct(dailyVolume float64) float64 {
	for _, b := range c.Brackets {
		if b.MaxVolume <= 0 || dailyVolume <= b.MaxVolume {
			return b.TargetPct
		}
	}
	return c.Brackets[len(c.Brackets)-1].TargetPct
}

// Boost returns the multiplier of the first boost whose threshold is met, or 1
func (c CalibrationConfig) Boost(dailyVolume float64) float64 {
	for _, b := range c.Boosts {
		if dailyVolume >= b.MinVolume {
			return b.Multiplier
		}
	}
	return 1.0
}

// Clamp bounds the correction factor for dailyVolume; reports whether it moved
func (c CalibrationConfig) Clamp(dailyVolume, correction float64) (float64, bool) {
	upper := c.ClampMax
	if dailyVolume >= c.LargeVolumeFrom {
		upper = c.ClampMaxLarge
	}
	switch {
	case correction < c.ClampMin:
		return c.ClampMin, true
	case correction > upper:
		return upper, true
	}
	return correction, false
}

// Range is an inclusive [Min, Max] bound
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Contains reports whether v lies within r
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// MarketBounds are the validation bounds of one market type
type MarketBounds struct {
	Volatility   Range `yaml:"volatility"`
	RiskFreeRate Range `yaml:"risk_free_rate"`
	SpreadBps    Range `yaml:"spread_bps"`
}

// Bounds groups validation bounds shared by all market types and per type
type Bounds struct {
	Crypto      MarketBounds `yaml:"crypto"`
	Traditional MarketBounds `yaml:"traditional"`
	Depth       Range        `yaml:"depth"`
	DailyVolume Range        `yaml:"daily_volume"`
	AssetPrice  Range        `yaml:"asset_price"`
}

// DefaultBounds returns realistic market input bounds
func DefaultBounds() Bounds {
	return Bounds{
		Crypto: MarketBounds{
			Volatility:   Range{Min: 0.001, Max: 5.0},
			RiskFreeRate: Range{Min: -0.05, Max: 0.15},
			SpreadBps:    Range{Min: 0.1, Max: 10000},
		},
		Traditional: MarketBounds{
			Volatility:   Range{Min: 0.05, Max: 2.0},
			RiskFreeRate: Range{Min: -0.01, Max: 0.20},
			SpreadBps:    Range{Min: 0.1, Max: 1000},
		},
		Depth:       Range{Min: 1.0, Max: 1e9},
		DailyVolume: Range{Min: 1000, Max: 1e10},
		AssetPrice:  Range{Min: 0.0001, Max: 1e8},
	}
}

// Tuning is the full set of engine constants
type Tuning struct {
	Models      ModelConfig       `yaml:"models"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Depth       DepthConfig       `yaml:"depth"`
	Bounds      Bounds            `yaml:"bounds"`
}

// Default returns a fresh copy of the calibrated constants
func Default() *Tuning {
	return &Tuning{
		Models:      DefaultModelConfig(),
		Calibration: DefaultCalibrationConfig(),
		Depth:       DefaultDepthConfig(),
		Bounds:      DefaultBounds(),
	}
}

// LoadFile overlays the YAML file at path onto the defaults and validates the result
func LoadFile(path string) (*Tuning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read tuning file %s: %w", path, err)
	}

	t := Default()
	if err := yaml.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to parse tuning file: %w", err)
	}

	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning: %w", err)
	}

	return t, nil
}

// Validate ensures the constants are internally consistent
func (t *Tuning) Validate() error {
	c := t.Calibration
	if c.BaseScaling <= 0 {
		return fmt.Errorf("calibration base_scaling must be positive, got %f", c.BaseScaling)
	}
	if len(c.Brackets) == 0 {
		return fmt.Errorf("calibration brackets cannot be empty")
	}
	for i, b := range c.Brackets {
		if b.TargetPct <= 0 {
			return fmt.Errorf("calibration bracket %d target_pct must be positive, got %f", i, b.TargetPct)
		}
		if i > 0 && b.MaxVolume > 0 && b.MaxVolume <= c.Brackets[i-1].MaxVolume {
			return fmt.Errorf("calibration brackets must be ascending at %d", i)
		}
	}
	for i, b := range c.Boosts {
		if b.Multiplier <= 0 {
			return fmt.Errorf("calibration boost %d multiplier must be positive, got %f", i, b.Multiplier)
		}
	}
	if c.ClampMin <= 0 || c.ClampMin > c.ClampMax || c.ClampMax > c.ClampMaxLarge {
		return fmt.Errorf("calibration clamps inverted: min %.2f max %.2f large %.2f",
			c.ClampMin, c.ClampMax, c.ClampMaxLarge)
	}

	d := t.Depth
	if _, ok := d.ExchangeQuality[OtherExchange]; !ok {
		return fmt.Errorf("depth exchange_quality must define %q", OtherExchange)
	}
	for name, q := range d.ExchangeQuality {
		if q <= 0 || q > 1 {
			return fmt.Errorf("depth exchange_quality %s %.2f outside (0, 1]", name, q)
		}
	}
	if d.SpreadAdjustmentMin > d.SpreadAdjustmentMax {
		return fmt.Errorf("depth spread adjustment clamp inverted: [%.2f, %.2f]",
			d.SpreadAdjustmentMin, d.SpreadAdjustmentMax)
	}
	if d.LiquidityThreshold <= 0 || d.SpreadBonusFactor <= 0 {
		return fmt.Errorf("depth liquidity_threshold and spread_bonus_factor must be positive")
	}

	m := t.Models
	if m.Kyle.ImpactFactor <= 0 || m.Kyle.FallbackLambda <= 0 {
		return fmt.Errorf("kyle_lambda impact_factor and fallback_lambda must be positive")
	}
	if m.Resilience.RecoveryDenominator <= 0 || m.Resilience.TimeHorizonHours <= 0 {
		return fmt.Errorf("resilience recovery_denominator and time_horizon_hours must be positive")
	}
	if m.Amihud.VolumeUnit <= 0 {
		return fmt.Errorf("amihud volume_unit must be positive, got %f", m.Amihud.VolumeUnit)
	}
	for _, r := range m.CrossVenue.OtherVenueDepthRatios {
		if r < 0 {
			return fmt.Errorf("cross_venue other_venue_depth_ratios cannot be negative, got %f", r)
		}
	}

	return nil
}

// DefaultConfigPath returns the conventional tuning file location
func DefaultConfigPath() string {
	return filepath.Join("config", "tuning.yaml")
}
