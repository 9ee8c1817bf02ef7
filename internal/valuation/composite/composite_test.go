package composite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
)

type countingRecorder struct {
	results []*valuation.CompositeResult
}

func (c *countingRecorder) RecordComposite(r *valuation.CompositeResult) {
	c.results = append(c.results, r)
}

func harness(t *testing.T, volume float64) (valuation.MarketParameters, valuation.TradeSizeDistribution) {
	t.Helper()
	params, spec := HarnessScenario(volume)
	dist, err := distribution.Generate(spec)
	require.NoError(t, err)
	return params, dist
}

func TestHarnessScenarioOneMillion(t *testing.T) {
	params, dist := harness(t, 1_000_000)

	result, err := NewValuator(nil, nil).Valuate(params, dist, DefaultOptions())
	require.NoError(t, err)

	pct := result.TotalValue / params.DailyVolume0 * 100
	assert.GreaterOrEqual(t, pct, 10.0)
	assert.LessOrEqual(t, pct, 15.0)
	assert.InEpsilon(t, 125_000.0, result.TotalValue, 1e-9)

	assert.Equal(t, LabelCrypto, result.Label)
	assert.True(t, result.CryptoOptimized)
	assert.Equal(t, 35.0, result.Calibration.BaseScaling)
	assert.Equal(t, 12.5, result.Calibration.TargetPct)
	assert.Equal(t, 1.0, result.Calibration.BracketBoost)
	assert.InEpsilon(t, 3580.342675232425, result.Calibration.RawValue, 1e-6)
	assert.False(t, result.Calibration.Clamped)
	assert.False(t, result.Calibration.Fallback)

	for _, kind := range valuation.AllModelKinds() {
		assert.True(t, result.Model(kind).Enabled, kind.Key())
	}
}

func TestAllZeroWeightsFallBackToTarget(t *testing.T) {
	params, dist := harness(t, 1_000_000)
	zero := valuation.ModelWeights{}

	result, err := NewValuator(nil, nil).Valuate(params, dist, Options{Weights: &zero})
	require.NoError(t, err)

	assert.Equal(t, params.DailyVolume0*12.5/100, result.TotalValue)
	assert.True(t, result.Calibration.Fallback)
	assert.Equal(t, LabelCustom, result.Label)
	for _, kind := range valuation.AllModelKinds() {
		m := result.Model(kind)
		assert.False(t, m.Enabled)
		assert.Zero(t, m.TotalValue)
		assert.Equal(t, kind, m.Model)
	}
}

func TestNetNegativeBlendFallsBack(t *testing.T) {
	params, dist := harness(t, 2_000_000)
	pinOnly := valuation.ModelWeights{}.With(valuation.AdverseSelection, 1)

	result, err := NewValuator(nil, nil).Valuate(params, dist, Options{Weights: &pinOnly})
	require.NoError(t, err)
	assert.Less(t, result.Calibration.RawValue, 0.0)
	assert.True(t, result.Calibration.Fallback)
	assert.Equal(t, 2_000_000*11.0/100, result.TotalValue)
}

func TestTraditionalPresetClamps(t *testing.T) {
	params, dist := harness(t, 1_000_000)

	result, err := NewValuator(nil, nil).Valuate(params, dist, Options{UseCryptoWeights: false})
	require.NoError(t, err)

	assert.Equal(t, LabelTraditional, result.Label)
	assert.False(t, result.CryptoOptimized)
	assert.True(t, result.Calibration.Clamped)
	assert.Equal(t, 5.0, result.Calibration.Correction)
	assert.InEpsilon(t, 5.362609767739283, result.PercentOfDailyVolume(), 1e-6)

	for _, kind := range []valuation.ModelKind{
		valuation.Resilience, valuation.AdverseSelection, valuation.CrossVenue, valuation.HawkesCascade,
	} {
		m := result.Model(kind)
		assert.False(t, m.Enabled)
		assert.Contains(t, m.Name, "(disabled)")
	}
}

func TestValuateRejects(t *testing.T) {
	params, dist := harness(t, 1_000_000)
	v := NewValuator(nil, nil)

	t.Run("zero daily volume", func(t *testing.T) {
		p := params
		p.DailyVolume0 = 0
		_, err := v.Valuate(p, dist, DefaultOptions())
		assert.ErrorIs(t, err, valuation.ErrInvalidInput)
	})

	t.Run("negative depth", func(t *testing.T) {
		p := params
		p.DepthMM = -5
		_, err := v.Valuate(p, dist, DefaultOptions())
		assert.ErrorIs(t, err, valuation.ErrInvalidInput)
	})

	t.Run("weights not summing to one", func(t *testing.T) {
		w := valuation.ModelWeights{0.5, 0.2}
		_, err := v.Valuate(params, dist, Options{Weights: &w})
		assert.ErrorIs(t, err, valuation.ErrInvalidWeights)
	})

	t.Run("empty distribution", func(t *testing.T) {
		_, err := v.Valuate(params, valuation.TradeSizeDistribution{}, DefaultOptions())
		assert.ErrorIs(t, err, valuation.ErrInvalidInput)
	})
}

func TestRecorderNotified(t *testing.T) {
	params, dist := harness(t, 1_000_000)
	rec := &countingRecorder{}

	v := NewValuator(nil, nil).WithRecorder(rec)
	_, err := v.Valuate(params, dist, DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rec.results, 1)
	assert.Equal(t, LabelCrypto, rec.results[0].Label)
}

func TestRunHarness(t *testing.T) {
	rows, err := NewValuator(nil, nil).RunHarness(DefaultHarnessVolumes)
	require.NoError(t, err)
	require.Len(t, rows, len(DefaultHarnessVolumes))

	byVolume := map[float64]HarnessRow{}
	for _, r := range rows {
		byVolume[r.DailyVolume] = r
	}

	assert.InDelta(t, 12.5, byVolume[500_000].Pct, 1e-9)
	assert.InDelta(t, 12.5, byVolume[1_000_000].Pct, 1e-9)
	assert.InDelta(t, 11.0, byVolume[2_000_000].Pct, 1e-9)
	assert.InDelta(t, 14.3, byVolume[5_000_000].Pct, 1e-9)
	assert.True(t, byVolume[1_000_000].InRange)

	// the 2x large-volume boost is kept as calibrated, lifting 10M above the band
	assert.InDelta(t, 20.0, byVolume[10_000_000].Pct, 1e-9)
	assert.False(t, byVolume[10_000_000].InRange)
}
