package valuation

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelKindKeysRoundTrip(t *testing.T) {
	for _, kind := range AllModelKinds() {
		parsed, err := ParseModelKind(kind.Key())
		require.NoError(t, err)
		assert.Equal(t, kind, parsed)
	}

	_, err := ParseModelKind("hawkes_momentum")
	assert.Error(t, err)
	assert.Equal(t, "ModelKind(9)", ModelKind(9).String())
}

func TestModelResultEncodesKindAsKey(t *testing.T) {
	data, err := json.Marshal(DisabledResult(CrossVenue))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"model":"cross_venue"`)
	assert.Contains(t, string(data), `"enabled":false`)
}

func TestModelWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights ModelWeights
		wantErr bool
	}{
		{"sums to one", ModelWeights{0.4, 0.3, 0.2, 0.1}, false},
		{"within tolerance", ModelWeights{0.4, 0.3, 0.2, 0.1 + 5e-7}, false},
		{"drifts", ModelWeights{0.4, 0.3, 0.2, 0.11}, true},
		{"negative", ModelWeights{1.1, -0.1}, true},
		{"above one", ModelWeights{1.5}, true},
		{"nan", ModelWeights{math.NaN()}, true},
		{"all zero", ModelWeights{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrInvalidWeights))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestModelWeightsJSON(t *testing.T) {
	w := ModelWeights{}.With(KyleLambda, 0.6).With(HawkesCascade, 0.4)

	data, err := json.Marshal(w)
	require.NoError(t, err)

	var decoded ModelWeights
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, w, decoded)
	assert.True(t, decoded.Enabled(HawkesCascade))
	assert.False(t, decoded.Enabled(Amihud))

	err = json.Unmarshal([]byte(`{"kyle_lambda":1,"legacy":0}`), &decoded)
	assert.ErrorIs(t, err, ErrInvalidWeights)
}

func TestNewTradeSizeDistribution(t *testing.T) {
	t.Run("length mismatch", func(t *testing.T) {
		_, err := NewTradeSizeDistribution([]float64{1, 2}, []float64{1})
		assert.ErrorIs(t, err, ErrLengthMismatch)
	})

	t.Run("non increasing sizes", func(t *testing.T) {
		_, err := NewTradeSizeDistribution([]float64{2, 2}, []float64{0.5, 0.5})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("negative probability", func(t *testing.T) {
		_, err := NewTradeSizeDistribution([]float64{1, 2}, []float64{1.5, -0.5})
		var domainErr *DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "probability", domainErr.Field)
	})

	t.Run("renormalizes drifted sum", func(t *testing.T) {
		d, err := NewTradeSizeDistribution([]float64{1, 2}, []float64{1, 3})
		require.NoError(t, err)
		assert.InDelta(t, 0.25, d.Probabilities()[0], 1e-12)
		assert.InDelta(t, 0.75, d.Probabilities()[1], 1e-12)
	})

	t.Run("zero sum falls back to uniform", func(t *testing.T) {
		d, err := NewTradeSizeDistribution([]float64{1, 2, 3, 4}, []float64{0, 0, 0, 0})
		require.NoError(t, err)
		for i := 0; i < d.Len(); i++ {
			_, p := d.At(i)
			assert.Equal(t, 0.25, p)
		}
	})

	t.Run("accessors copy", func(t *testing.T) {
		d, err := NewTradeSizeDistribution([]float64{1, 2}, []float64{0.5, 0.5})
		require.NoError(t, err)
		sizes := d.Sizes()
		sizes[0] = 99
		s, _ := d.At(0)
		assert.Equal(t, 1.0, s)
		assert.InDelta(t, 1.5, d.ExpectedSize(), 1e-12)
	})
}

func TestTradeSizeDistributionHead(t *testing.T) {
	d, err := NewTradeSizeDistribution([]float64{1, 2, 3, 4}, []float64{0.1, 0.1, 0.3, 0.5})
	require.NoError(t, err)

	head, err := d.Head(2)
	require.NoError(t, err)
	assert.Equal(t, 2, head.Len())
	assert.InDelta(t, 0.5, head.Probabilities()[0], 1e-12)

	_, err = d.Head(0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestMarketParametersValidate(t *testing.T) {
	valid := MarketParameters{
		AssetPrice: 10, Volatility: 0.8, Spread0: 100, Spread1: 60,
		Volume0: 1e6, VolumeMM: 3e5, Depth0: 5e4, DepthMM: 5e4,
		DailyVolume0: 1e6, DailyVolumeMM: 3e5, AvgReturn: -0.002, RiskFreeRate: -0.001,
	}
	require.NoError(t, valid.Validate())

	negSpread := valid
	negSpread.Spread1 = -1
	err := negSpread.Validate()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "spread_1")

	infVol := valid
	infVol.Volatility = math.Inf(1)
	assert.ErrorIs(t, infVol.Validate(), ErrNonFinite)
}

func TestCompositeResultPercent(t *testing.T) {
	r := CompositeResult{TotalValue: 125000, Parameters: MarketParameters{DailyVolume0: 1e6}}
	assert.InDelta(t, 12.5, r.PercentOfDailyVolume(), 1e-12)

	r.Parameters.DailyVolume0 = 0
	assert.Zero(t, r.PercentOfDailyVolume())
}
