package weights

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

func TestPresetsSumToOne(t *testing.T) {
	for _, name := range []string{PresetCrypto, PresetTraditional} {
		t.Run(name, func(t *testing.T) {
			w, err := Preset(name)
			require.NoError(t, err)
			assert.InDelta(t, 1.0, w.Sum(), 1e-6)
			assert.NoError(t, w.Validate())
		})
	}

	_, err := Preset("aggressive")
	assert.Error(t, err)
}

func TestTraditionalDisablesCryptoModels(t *testing.T) {
	w := Traditional()
	for _, kind := range []valuation.ModelKind{
		valuation.Resilience, valuation.AdverseSelection, valuation.CrossVenue, valuation.HawkesCascade,
	} {
		assert.Zero(t, w.Get(kind), kind.Key())
	}
	assert.Equal(t, 0.4, w.Get(valuation.AlmgrenChriss))
}

func TestLoaderFromFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("adds presets", func(t *testing.T) {
		path := filepath.Join(dir, "weights.yaml")
		content := `
presets:
  kyle_only:
    kyle_lambda: 1.0
  Balanced:
    almgren_chriss: 0.5
    amihud: 0.5
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		l := NewLoader()
		require.NoError(t, l.LoadFromFile(path))
		assert.Equal(t, []string{"balanced", "crypto", "kyle_only", "traditional"}, l.Names())

		w, err := l.Get("balanced")
		require.NoError(t, err)
		assert.Equal(t, 0.5, w.Get(valuation.Amihud))
	})

	t.Run("rejects drifting sum", func(t *testing.T) {
		path := filepath.Join(dir, "drift.yaml")
		content := "presets:\n  drift:\n    kyle_lambda: 0.6\n    amihud: 0.3\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		l := NewLoader()
		err := l.LoadFromFile(path)
		assert.ErrorIs(t, err, valuation.ErrInvalidWeights)
		_, err = l.Get("drift")
		assert.Error(t, err)
	})

	t.Run("rejects unknown model key", func(t *testing.T) {
		path := filepath.Join(dir, "unknown.yaml")
		content := "presets:\n  legacy:\n    hawkes_momentum: 1.0\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		assert.ErrorIs(t, NewLoader().LoadFromFile(path), valuation.ErrInvalidWeights)
	})

	t.Run("tolerance cannot be loosened", func(t *testing.T) {
		path := filepath.Join(dir, "loose.yaml")
		content := "validation:\n  weight_sum_tolerance: 0.1\npresets:\n  loose:\n    kyle_lambda: 0.95\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		assert.Error(t, NewLoader().LoadFromFile(path))
	})
}

func TestSummary(t *testing.T) {
	out, err := NewLoader().Summary(PresetTraditional)
	require.NoError(t, err)
	assert.Contains(t, out, "Almgren-Chriss")
	assert.Contains(t, out, "Hawkes Cascade/Liquidation")
	assert.Contains(t, out, "(disabled)")
	assert.Contains(t, out, "100.0%")
}
