package tuning

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValidAndFresh(t *testing.T) {
	a := Default()
	require.NoError(t, a.Validate())

	a.Depth.ExchangeQuality["Binance"] = 0.1
	a.Models.CrossVenue.OtherVenueDepthRatios[0] = 9

	b := Default()
	assert.Equal(t, 0.90, b.Depth.ExchangeQuality["Binance"])
	assert.Equal(t, 0.8, b.Models.CrossVenue.OtherVenueDepthRatios[0])
}

func TestCalibrationBrackets(t *testing.T) {
	c := DefaultCalibrationConfig()

	tests := []struct {
		volume float64
		target float64
		boost  float64
		upper  float64
	}{
		{500_000, 12.5, 1.0, 5},
		{1_000_000, 12.5, 1.0, 5},
		{2_000_000, 11.0, 1.0, 5},
		{3_000_000, 11.0, 1.2, 5},
		{5_000_000, 11.0, 1.3, 10},
		{7_500_000, 10.0, 1.3, 10},
		{10_000_000, 10.0, 2.0, 10},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.target, c.TargetPct(tt.volume), "target at %.0f", tt.volume)
		assert.Equal(t, tt.boost, c.Boost(tt.volume), "boost at %.0f", tt.volume)

		clamped, moved := c.Clamp(tt.volume, 100)
		assert.True(t, moved)
		assert.Equal(t, tt.upper, clamped)
	}

	v, moved := c.Clamp(1e6, 0.01)
	assert.True(t, moved)
	assert.Equal(t, 0.2, v)

	v, moved = c.Clamp(1e6, 1.7)
	assert.False(t, moved)
	assert.Equal(t, 1.7, v)
}

func TestDepthLookups(t *testing.T) {
	d := DefaultDepthConfig()

	assert.Equal(t, 0.90, d.Quality("Binance"))
	assert.Equal(t, 0.90, d.Quality("binance"))
	assert.Equal(t, 0.50, d.Quality("SomeDEX"))
	assert.True(t, d.KnownExchange("okx"))
	assert.False(t, d.KnownExchange("Other"))

	assert.Equal(t, 0.78, d.BaseEfficiency(Tier100))
	assert.Equal(t, 0.5, d.BaseEfficiency("500bps"))
	assert.Equal(t, 210.0, d.TargetSpread(Tier200))
	assert.Equal(t, 100.0, d.TargetSpread("500bps"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlays defaults", func(t *testing.T) {
		path := filepath.Join(dir, "ok.yaml")
		content := `
calibration:
  base_scaling: 40
models:
  kyle_lambda:
    impact_factor: 0.25
depth:
  exchange_quality:
    Kraken: 0.86
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		tn, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, 40.0, tn.Calibration.BaseScaling)
		assert.Equal(t, 0.25, tn.Models.Kyle.ImpactFactor)
		assert.Equal(t, 0.01, tn.Models.Kyle.FallbackLambda)
		assert.Equal(t, 0.86, tn.Depth.Quality("Kraken"))
		assert.Len(t, tn.Calibration.Brackets, 3)
	})

	t.Run("rejects inverted clamps", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("calibration:\n  clamp_min: 6\n"), 0o644))

		_, err := LoadFile(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clamps inverted")
	})

	t.Run("rejects quality above one", func(t *testing.T) {
		path := filepath.Join(dir, "quality.yaml")
		require.NoError(t, os.WriteFile(path, []byte("depth:\n  exchange_quality:\n    Binance: 1.4\n"), 0o644))

		_, err := LoadFile(path)
		require.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "nope.yaml"))
		require.Error(t, err)
	})
}
