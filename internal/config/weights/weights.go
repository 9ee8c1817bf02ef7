package weights

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

// Preset names
const (
	PresetCrypto      = "crypto"
	PresetTraditional = "traditional"
)

// Crypto returns the eight-model crypto-optimized preset
func Crypto() valuation.ModelWeights {
	var w valuation.ModelWeights
	w[valuation.AlmgrenChriss] = 0.25
	w[valuation.KyleLambda] = 0.20
	w[valuation.BouchaudPower] = 0.15
	w[valuation.Amihud] = 0.05
	w[valuation.Resilience] = 0.15
	w[valuation.AdverseSelection] = 0.10
	w[valuation.CrossVenue] = 0.05
	w[valuation.HawkesCascade] = 0.05
	return w
}

// Traditional returns the four-model preset; the crypto-specific models are disabled
func Traditional() valuation.ModelWeights {
	var w valuation.ModelWeights
	w[valuation.AlmgrenChriss] = 0.4
	w[valuation.KyleLambda] = 0.3
	w[valuation.BouchaudPower] = 0.2
	w[valuation.Amihud] = 0.1
	return w
}

// Preset returns a built-in preset by name
func Preset(name string) (valuation.ModelWeights, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case PresetCrypto:
		return Crypto(), nil
	case PresetTraditional:
		return Traditional(), nil
	}
	return valuation.ModelWeights{}, fmt.Errorf("unknown weights preset: %s", name)
}

// File is the on-disk layout of a weights preset file
type File struct {
	Presets    map[string]map[string]float64 `yaml:"presets"`
	Validation ValidationConfig              `yaml:"validation"`
}

// ValidationConfig defines preset validation parameters
type ValidationConfig struct {
	WeightSumTolerance float64 `yaml:"weight_sum_tolerance"`
}

// Loader handles loading and validation of model weight presets
type Loader struct {
	presets map[string]valuation.ModelWeights
}

// NewLoader creates a loader seeded with the built-in presets
func NewLoader() *Loader {
	return &Loader{
		presets: map[string]valuation.ModelWeights{
			PresetCrypto:      Crypto(),
			PresetTraditional: Traditional(),
		},
	}
}

// LoadFromFile adds the presets of a YAML file, replacing built-ins of the same name
func (l *Loader) LoadFromFile(configPath string) error {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to read weights file %s: %w", configPath, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse YAML weights: %w", err)
	}

	tolerance := file.Validation.WeightSumTolerance
	if tolerance <= 0 || tolerance > valuation.WeightSumTolerance {
		tolerance = valuation.WeightSumTolerance
	}

	loaded := make(map[string]valuation.ModelWeights, len(file.Presets))
	for name, raw := range file.Presets {
		w, err := valuation.WeightsFromMap(raw)
		if err != nil {
			return fmt.Errorf("preset %s: %w", name, err)
		}
		if err := validatePreset(name, w, tolerance); err != nil {
			return err
		}
		loaded[strings.ToLower(name)] = w
	}

	for name, w := range loaded {
		l.presets[name] = w
	}
	return nil
}

// Get returns the named preset
func (l *Loader) Get(name string) (valuation.ModelWeights, error) {
	w, ok := l.presets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return valuation.ModelWeights{}, fmt.Errorf("unknown weights preset: %s", name)
	}
	return w, nil
}

// Names returns the configured preset names in sorted order
func (l *Loader) Names() []string {
	names := make([]string, 0, len(l.presets))
	for name := range l.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Summary returns a formatted summary of a preset
func (l *Loader) Summary(name string) (string, error) {
	w, err := l.Get(name)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s weights:\n", name)
	for _, kind := range valuation.AllModelKinds() {
		status := ""
		if !w.Enabled(kind) {
			status = " (disabled)"
		}
		fmt.Fprintf(&sb, "  %-28s %5.1f%%%s\n", kind.String(), w.Get(kind)*100, status)
	}
	fmt.Fprintf(&sb, "  %-28s %5.1f%%\n", "Total", w.Sum()*100)
	return sb.String(), nil
}

func validatePreset(name string, w valuation.ModelWeights, tolerance float64) error {
	for _, kind := range valuation.AllModelKinds() {
		v := w.Get(kind)
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: preset %s weight for %s (%.3f) outside [0, 1]",
				valuation.ErrInvalidWeights, name, kind.Key(), v)
		}
	}

	sum := w.Sum()
	if math.Abs(sum-1.0) > tolerance {
		return fmt.Errorf("%w: preset %s weights sum to %.6f, expected 1.0 ± %g",
			valuation.ErrInvalidWeights, name, sum, tolerance)
	}
	return nil
}

// DefaultConfigPath returns the conventional weights file location
func DefaultConfigPath() string {
	return filepath.Join("config", "model_weights.yaml")
}
