// Package distribution generates the trade-size distributions the valuation
// models integrate over.
package distribution

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

// Type selects the bucket spacing and density shape
type Type string

const (
	LogNormal Type = "log_normal"
	PowerLaw  Type = "power_law"
	Uniform   Type = "uniform"
)

const (
	logNormalSigma = 0.5
	powerLawAlpha  = 2.0
)

// ParseType resolves a distribution name
func ParseType(name string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(name))); t {
	case LogNormal, PowerLaw, Uniform:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", valuation.ErrUnknownDistribution, name)
}

// Spec describes a distribution to generate
type Spec struct {
	MinSize float64 `json:"min_size" yaml:"min_size"`
	MaxSize float64 `json:"max_size" yaml:"max_size"`
	Buckets int     `json:"buckets" yaml:"buckets"`
	Type    Type    `json:"type" yaml:"type"`
}

// DefaultSpec is the distribution used when callers supply none
func DefaultSpec() Spec {
	return Spec{MinSize: 100, MaxSize: 10000, Buckets: 20, Type: LogNormal}
}

// Harness is the calibration-harness distribution: trades up to 1% of daily volume
func Harness(dailyVolume float64) Spec {
	return Spec{MinSize: 100, MaxSize: dailyVolume * 0.01, Buckets: 20, Type: LogNormal}
}

// Validate rejects ranges that cannot produce strictly increasing positive sizes
func (s Spec) Validate() error {
	const op = "distribution"

	if !valuation.IsFinite(s.MinSize) || s.MinSize <= 0 {
		return valuation.NewDomainError(op, "min_size", s.MinSize, valuation.ErrInvalidInput)
	}
	if !valuation.IsFinite(s.MaxSize) || s.MaxSize < s.MinSize {
		return valuation.NewDomainError(op, "max_size", s.MaxSize, valuation.ErrInvalidInput)
	}
	if s.Buckets < 1 {
		return valuation.NewDomainError(op, "buckets", float64(s.Buckets), valuation.ErrInvalidInput)
	}
	if s.MaxSize == s.MinSize && s.Buckets > 1 {
		return valuation.NewDomainError(op, "max_size", s.MaxSize, valuation.ErrInvalidInput)
	}
	t, err := ParseType(string(s.Type))
	if err != nil {
		return err
	}
	// ranges narrower than float resolution collapse adjacent buckets
	sizes := spacing(t, s.MinSize, s.MaxSize, s.Buckets)
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			return valuation.NewDomainError(op, "max_size", s.MaxSize,
				fmt.Errorf("%w: range too narrow for %d buckets", valuation.ErrInvalidInput, s.Buckets))
		}
	}
	return nil
}

func spacing(t Type, lo, hi float64, n int) []float64 {
	if t == LogNormal {
		return logSpace(lo, hi, n)
	}
	return linSpace(lo, hi, n)
}

// Generate builds the distribution described by s. Output is deterministic.
func Generate(s Spec) (valuation.TradeSizeDistribution, error) {
	if err := s.Validate(); err != nil {
		return valuation.TradeSizeDistribution{}, err
	}

	t, _ := ParseType(string(s.Type))
	sizes := spacing(t, s.MinSize, s.MaxSize, s.Buckets)

	var probs []float64
	switch t {
	case LogNormal:
		probs = logNormalProbabilities(sizes, s.MinSize, s.MaxSize)
	case PowerLaw:
		probs = make([]float64, len(sizes))
		for i, size := range sizes {
			probs[i] = math.Pow(size, -powerLawAlpha)
		}
		probs = normalize(probs)
	case Uniform:
		probs = uniform(len(sizes))
	}

	return valuation.NewTradeSizeDistribution(sizes, probs)
}

func logNormalProbabilities(sizes []float64, minSize, maxSize float64) []float64 {
	mu := math.Log(math.Sqrt(minSize * maxSize))
	norm := logNormalSigma * math.Sqrt(2*math.Pi)

	raw := make([]float64, len(sizes))
	for i, size := range sizes {
		z := math.Log(size) - mu
		raw[i] = math.Exp(-(z*z)/(2*logNormalSigma*logNormalSigma)) / (size * norm)
	}

	sum := 0.0
	for _, p := range raw {
		sum += p
	}
	if sum <= 0 || !valuation.IsFinite(sum) {
		log.Warn().Int("buckets", len(sizes)).Msg("Degenerate log-normal density, using uniform distribution")
		return uniform(len(sizes))
	}

	probs := normalize(raw)

	// Fold float drift into the largest bucket so the sum is exactly 1.0
	largest, total := 0, 0.0
	for i, p := range probs {
		total += p
		if p > probs[largest] {
			largest = i
		}
	}
	probs[largest] += 1.0 - total
	return probs
}

func normalize(values []float64) []float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	if sum <= 0 || !valuation.IsFinite(sum) {
		return uniform(len(values))
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v / sum
	}
	return out
}

func uniform(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1.0 / float64(n)
	}
	return out
}

func linSpace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + step*float64(i)
	}
	out[n-1] = hi
	return out
}

func logSpace(lo, hi float64, n int) []float64 {
	if n == 1 {
		return []float64{lo}
	}
	a, b := math.Log10(lo), math.Log10(hi)
	step := (b - a) / float64(n-1)
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Pow(10, a+step*float64(i))
	}
	out[0], out[n-1] = lo, hi
	return out
}
