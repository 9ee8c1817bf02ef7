package tuning

// AlmgrenChrissConfig holds the temporary impact coefficient
type AlmgrenChrissConfig struct {
	Alpha float64 `yaml:"alpha"`
}

// KyleConfig holds Kyle's lambda parameters. Lambda = ImpactFactor / depth.
type KyleConfig struct {
	ImpactFactor   float64 `yaml:"impact_factor"`
	FallbackLambda float64 `yaml:"fallback_lambda"` // used when depth is zero
}

// BouchaudConfig holds the square-root-law style power-law parameters
type BouchaudConfig struct {
	Delta       float64 `yaml:"delta"`
	Y           float64 `yaml:"y"`
	ImpactScale float64 `yaml:"impact_scale"`
}

// AmihudConfig holds the illiquidity ratio scaling
type AmihudConfig struct {
	VolumeUnit          float64 `yaml:"volume_unit"`
	FallbackIlliquidity float64 `yaml:"fallback_illiquidity"`
	VolumeFraction      float64 `yaml:"volume_fraction"`
	ValueScale          float64 `yaml:"value_scale"`
}

// HawkesConfig holds the cascade/liquidation model parameters
type HawkesConfig struct {
	Beta                  float64 `yaml:"beta"`
	Mu                    float64 `yaml:"mu"`
	VolumeSpikeMultiplier float64 `yaml:"volume_spike_multiplier"`
	LiquidationScale      float64 `yaml:"liquidation_scale"`
	LiquidationFraction   float64 `yaml:"liquidation_fraction"`
	CascadeScale          float64 `yaml:"cascade_scale"`
	SocialScale           float64 `yaml:"social_scale"`
	SocialFraction        float64 `yaml:"social_fraction"`
	TimeHorizon           float64 `yaml:"time_horizon"`
}

// ResilienceConfig holds order-book recovery parameters
type ResilienceConfig struct {
	Rho                     float64 `yaml:"rho"`
	TimeHorizonHours        float64 `yaml:"time_horizon_hours"`
	RecoveryDenominator     float64 `yaml:"recovery_denominator"`
	FallbackRho             float64 `yaml:"fallback_rho"`
	RecoveryVolumeFraction  float64 `yaml:"recovery_volume_fraction"`
	RecoveryScale           float64 `yaml:"recovery_scale"`
	PermanentVolumeFraction float64 `yaml:"permanent_volume_fraction"`
	PermanentImpactFraction float64 `yaml:"permanent_impact_fraction"`
	PermanentScale          float64 `yaml:"permanent_scale"`
}

// PINConfig holds the probability-of-informed-trading parameters
type PINConfig struct {
	Alpha                 float64 `yaml:"alpha"`
	Mu                    float64 `yaml:"mu"`
	EpsilonBuy            float64 `yaml:"epsilon_buy"`
	EpsilonSell           float64 `yaml:"epsilon_sell"`
	ToxicSpreadMultiplier float64 `yaml:"toxic_spread_multiplier"`
	BenignSpreadDiscount  float64 `yaml:"benign_spread_discount"`
	BenignLossRate        float64 `yaml:"benign_loss_rate"`
	CaptureFactor         float64 `yaml:"capture_factor"`
}

// CrossVenueConfig holds arbitrage parameters. OtherVenueDepthRatios
// simulates competing venues as fractions of local pre-MM depth.
type CrossVenueConfig struct {
	Beta                    float64   `yaml:"beta"`
	MaxImpactReduction      float64   `yaml:"max_impact_reduction"`
	MMImpactReduction       float64   `yaml:"mm_impact_reduction"`
	ArbValueScale           float64   `yaml:"arb_value_scale"`
	DiscoveryVolumeFraction float64   `yaml:"discovery_volume_fraction"`
	DiscoveryScale          float64   `yaml:"discovery_scale"`
	OtherVenueDepthRatios   []float64 `yaml:"other_venue_depth_ratios"`
}

// ModelConfig groups the coefficients of all eight valuation models
type ModelConfig struct {
	AlmgrenChriss AlmgrenChrissConfig `yaml:"almgren_chriss"`
	Kyle          KyleConfig          `yaml:"kyle_lambda"`
	Bouchaud      BouchaudConfig      `yaml:"bouchaud"`
	Amihud        AmihudConfig        `yaml:"amihud"`
	Hawkes        HawkesConfig        `yaml:"hawkes_cascade"`
	Resilience    ResilienceConfig    `yaml:"resilience"`
	PIN           PINConfig           `yaml:"pin"`
	CrossVenue    CrossVenueConfig    `yaml:"cross_venue"`
}

// DefaultModelConfig returns the calibrated model coefficients
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		AlmgrenChriss: AlmgrenChrissConfig{Alpha: 0.1},
		Kyle: KyleConfig{
			ImpactFactor:   0.5,
			FallbackLambda: 0.01,
		},
		Bouchaud: BouchaudConfig{
			Delta:       0.6,
			Y:           1.0,
			ImpactScale: 10,
		},
		Amihud: AmihudConfig{
			VolumeUnit:          1e6,
			FallbackIlliquidity: 0.01,
			VolumeFraction:      0.1,
			ValueScale:          100,
		},
		Hawkes: HawkesConfig{
			Beta:                  2.0,
			Mu:                    0.1,
			VolumeSpikeMultiplier: 2.0,
			LiquidationScale:      0.01,
			LiquidationFraction:   0.001,
			CascadeScale:          0.01,
			SocialScale:           0.05,
			SocialFraction:        0.001,
			TimeHorizon:           1.0,
		},
		Resilience: ResilienceConfig{
			Rho:                     0.3,
			TimeHorizonHours:        24,
			RecoveryDenominator:     1e5,
			FallbackRho:             0.01,
			RecoveryVolumeFraction:  0.1,
			RecoveryScale:           0.001,
			PermanentVolumeFraction: 0.2,
			PermanentImpactFraction: 0.3,
			PermanentScale:          1e-4,
		},
		PIN: PINConfig{
			Alpha:                 0.2,
			Mu:                    0.1,
			EpsilonBuy:            0.3,
			EpsilonSell:           0.3,
			ToxicSpreadMultiplier: 2.0,
			BenignSpreadDiscount:  0.5,
			BenignLossRate:        0.3,
			CaptureFactor:         0.1,
		},
		CrossVenue: CrossVenueConfig{
			Beta:                    0.5,
			MaxImpactReduction:      0.5,
			MMImpactReduction:       0.7,
			ArbValueScale:           1e-4,
			DiscoveryVolumeFraction: 0.1,
			DiscoveryScale:          0.001,
			OtherVenueDepthRatios:   []float64{0.8, 0.6, 0.4},
		},
	}
}
