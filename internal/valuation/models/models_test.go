package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
)

func harnessParams(daily float64) valuation.MarketParameters {
	return valuation.MarketParameters{
		AssetPrice:    10,
		Volatility:    0.8,
		RiskFreeRate:  0.001,
		Spread0:       100,
		Spread1:       60,
		Volume0:       daily,
		VolumeMM:      daily * 0.3,
		Depth0:        daily * 0.05,
		DepthMM:       daily * 0.05,
		DailyVolume0:  daily,
		DailyVolumeMM: daily * 0.3,
		AvgReturn:     0.001,
	}
}

func harnessDist(t *testing.T, daily float64) valuation.TradeSizeDistribution {
	t.Helper()
	d, err := distribution.Generate(distribution.Harness(daily))
	require.NoError(t, err)
	return d
}

func singleTrade(t *testing.T, size float64) valuation.TradeSizeDistribution {
	t.Helper()
	d, err := valuation.NewTradeSizeDistribution([]float64{size}, []float64{1})
	require.NoError(t, err)
	return d
}

func TestHarnessModelValues(t *testing.T) {
	e := NewEngine(nil)
	p := harnessParams(1_000_000)
	d := harnessDist(t, 1_000_000)

	expected := map[valuation.ModelKind]float64{
		valuation.AlmgrenChriss:    3.8131935478376406,
		valuation.KyleLambda:       5.0,
		valuation.BouchaudPower:    17.04783225840532,
		valuation.Amihud:           3000.0,
		valuation.Resilience:       6200.851726528544,
		valuation.AdverseSelection: -1221.3594483597012,
		valuation.CrossVenue:       39052.63157894736,
		valuation.HawkesCascade:    13304.176178320506,
	}

	for _, kind := range valuation.AllModelKinds() {
		t.Run(kind.Key(), func(t *testing.T) {
			r, err := e.Evaluate(kind, p, d)
			require.NoError(t, err)
			assert.Equal(t, kind, r.Model)
			assert.True(t, r.Enabled)
			assert.InEpsilon(t, expected[kind], r.TotalValue, 1e-6)
			assert.NotEmpty(t, r.Parameters)
		})
	}
}

func TestModelsIdempotent(t *testing.T) {
	e := NewEngine(nil)
	p := harnessParams(2_000_000)
	d := harnessDist(t, 2_000_000)

	for _, kind := range valuation.AllModelKinds() {
		first, err := e.Evaluate(kind, p, d)
		require.NoError(t, err)
		second, err := e.Evaluate(kind, p, d)
		require.NoError(t, err)
		assert.Equal(t, first.TotalValue, second.TotalValue, kind.Key())
	}
}

func TestAlmgrenChriss(t *testing.T) {
	e := NewEngine(nil)

	t.Run("spread only when no volume", func(t *testing.T) {
		in := AlmgrenChrissInput{Spread0: 100, Spread1: 60, Volatility: 0.5}
		r, err := e.AlmgrenChriss(in, singleTrade(t, 1000))
		require.NoError(t, err)
		// 1000 · 1 · 40bps
		assert.InDelta(t, 4.0, r.TotalValue, 1e-12)
	})

	t.Run("zero pre-MM volume drops impact_0 only", func(t *testing.T) {
		in := AlmgrenChrissInput{Spread0: 60, Spread1: 60, Volatility: 1, VolumeMM: 10000}
		r, err := e.AlmgrenChriss(in, singleTrade(t, 100))
		require.NoError(t, err)
		// 100 · (0 − 0.1·1·√(100/10000))
		assert.InDelta(t, -1.0, r.TotalValue, 1e-12)
	})

	t.Run("rejects negative spread", func(t *testing.T) {
		_, err := e.AlmgrenChriss(AlmgrenChrissInput{Spread0: -1}, singleTrade(t, 100))
		assert.ErrorIs(t, err, valuation.ErrInvalidInput)
	})
}

func TestKyleLambda(t *testing.T) {
	e := NewEngine(nil)

	r, err := e.KyleLambda(KyleInput{Depth0: 100, DepthMM: 100}, singleTrade(t, 100))
	require.NoError(t, err)
	// (0.005 − 0.0025) · 100²
	assert.InDelta(t, 25.0, r.TotalValue, 1e-9)

	empty, err := e.KyleLambda(KyleInput{}, singleTrade(t, 100))
	require.NoError(t, err)
	assert.Zero(t, empty.TotalValue)
	assert.Equal(t, 0.01, empty.Parameters[2].Value)
}

func TestKyleLambdaMonotoneInMMDepth(t *testing.T) {
	e := NewEngine(nil)
	d := harnessDist(t, 1_000_000)

	prev := -1e300
	for _, depthMM := range []float64{0, 1, 10, 1000, 25_000, 50_000, 100_000, 1e6, 1e9} {
		r, err := e.KyleLambda(KyleInput{Depth0: 50_000, DepthMM: depthMM}, d)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.TotalValue, prev, "depth_mm %.0f", depthMM)
		prev = r.TotalValue
	}
}

func TestBouchaudSkipsWithoutDailyVolume(t *testing.T) {
	e := NewEngine(nil)
	r, err := e.BouchaudPowerLaw(BouchaudInput{Volatility: 0.8, DailyVolumeMM: 1000}, singleTrade(t, 100))
	require.NoError(t, err)
	assert.Zero(t, r.TotalValue)
	assert.Empty(t, r.Breakdown)
}

func TestAmihud(t *testing.T) {
	e := NewEngine(nil)

	t.Run("fallback illiquidity on zero volume", func(t *testing.T) {
		r, err := e.AmihudIlliquidity(AmihudInput{AvgReturn: 0.001})
		require.NoError(t, err)
		assert.Zero(t, r.TotalValue)
		assert.Equal(t, 0.01, r.Breakdown[0].Factors[0].Value)
	})

	t.Run("worsening is clamped", func(t *testing.T) {
		// fallback 0.01 before, |r|/(V/1e6) = 0.5 after
		r, err := e.AmihudIlliquidity(AmihudInput{DailyVolumeMM: 2e6, AvgReturn: 1})
		require.NoError(t, err)
		assert.Zero(t, r.TotalValue)
	})

	t.Run("negative return uses magnitude", func(t *testing.T) {
		pos, err := e.AmihudIlliquidity(AmihudInputFrom(harnessParams(1e6)))
		require.NoError(t, err)
		in := AmihudInputFrom(harnessParams(1e6))
		in.AvgReturn = -in.AvgReturn
		neg, err := e.AmihudIlliquidity(in)
		require.NoError(t, err)
		assert.Equal(t, pos.TotalValue, neg.TotalValue)
	})
}

func TestHawkesWithoutMarketMaker(t *testing.T) {
	e := NewEngine(nil)
	in := HawkesInputFrom(harnessParams(1e6))
	in.VolumeMM = 0

	r, err := e.HawkesCascade(in)
	require.NoError(t, err)
	assert.Zero(t, r.TotalValue)

	empty, err := e.HawkesCascade(HawkesInput{})
	require.NoError(t, err)
	assert.Zero(t, empty.TotalValue)
}

func TestResilience(t *testing.T) {
	e := NewEngine(nil)

	r, err := e.OrderBookResilience(ResilienceInputFrom(harnessParams(1e6)))
	require.NoError(t, err)
	require.Len(t, r.Breakdown, 2)
	assert.InEpsilon(t, 3800.8517265285436, r.Breakdown[0].Contribution, 1e-9)
	assert.InEpsilon(t, 2400.0, r.Breakdown[1].Contribution, 1e-9)

	t.Run("zero average rate uses horizon", func(t *testing.T) {
		cfg := tuning.DefaultModelConfig()
		cfg.Resilience.Rho = 0
		cfg.Resilience.FallbackRho = 0
		zero := NewEngine(&cfg)

		r, err := zero.OrderBookResilience(ResilienceInput{Spread0: 10, DailyVolume: 1000})
		require.NoError(t, err)
		assert.Equal(t, 24.0, r.Breakdown[0].Factors[2].Value)
		assert.Zero(t, r.TotalValue)
	})
}

func TestAdverseSelectionPIN(t *testing.T) {
	e := NewEngine(nil)
	assert.InDelta(t, 0.02/0.62, e.PIN(), 1e-12)

	cfg := tuning.DefaultModelConfig()
	cfg.PIN.Alpha, cfg.PIN.EpsilonBuy, cfg.PIN.EpsilonSell = 0, 0, 0
	r, err := NewEngine(&cfg).AdverseSelectionPIN(PINInput{Spread0: 100}, singleTrade(t, 1000))
	require.NoError(t, err)
	// PIN 0: only the benign loss remains, 1000 · 100·0.5·0.3 · 0.1
	assert.InDelta(t, -1500.0, r.TotalValue, 1e-9)
}

func TestCrossVenue(t *testing.T) {
	e := NewEngine(nil)

	r, err := e.CrossVenueArbitrage(CrossVenueInput{Spread0: 100, Spread1: 60, DailyVolume: 1000, AssetPrice: 1})
	require.NoError(t, err)
	assert.Zero(t, r.Breakdown[0].Factors[0].Value)
	// no venues: (100 − 60) · 1000 · 1 · 1e-4
	assert.InDelta(t, 4.0, r.TotalValue, 1e-12)

	in := CrossVenueInputFrom(harnessParams(1e6), []float64{0.8, 0.6, 0.4})
	assert.Equal(t, 100_000.0, in.LocalDepth)
	assert.InDeltaSlice(t, []float64{40_000, 30_000, 20_000}, in.OtherVenueDepths, 1e-9)

	in.OtherVenueDepths[0] = -1
	_, err = e.CrossVenueArbitrage(in)
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}

func TestNonFiniteResultRejected(t *testing.T) {
	cfg := tuning.DefaultModelConfig()
	cfg.CrossVenue.ArbValueScale = 1e308
	e := NewEngine(&cfg)

	_, err := e.CrossVenueArbitrage(CrossVenueInput{Spread0: 1e10, DailyVolume: 1e10, AssetPrice: 1e10})
	assert.ErrorIs(t, err, valuation.ErrNonFinite)
}

func TestNewEngineCopiesConfig(t *testing.T) {
	cfg := tuning.DefaultModelConfig()
	e := NewEngine(&cfg)
	cfg.CrossVenue.OtherVenueDepthRatios[0] = 5
	cfg.Kyle.ImpactFactor = 9

	got := e.Config()
	assert.Equal(t, 0.8, got.CrossVenue.OtherVenueDepthRatios[0])
	assert.Equal(t, 0.5, got.Kyle.ImpactFactor)
}

func TestEvaluateUnknownKind(t *testing.T) {
	_, err := NewEngine(nil).Evaluate(valuation.ModelKind(42), harnessParams(1e6), singleTrade(t, 10))
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}
