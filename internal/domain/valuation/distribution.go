package valuation

import (
	"encoding/json"
	"math"

	"github.com/rs/zerolog/log"
)

// ProbabilityTolerance is the allowed drift of a probability sum away from 1.0
const ProbabilityTolerance = 1e-3

// TradeSizeDistribution pairs ascending, strictly positive trade sizes with
// probabilities that sum to 1.0. It is immutable once constructed.
type TradeSizeDistribution struct {
	sizes         []float64
	probabilities []float64
}

// NewTradeSizeDistribution validates and copies sizes and probabilities.
// A probability sum outside tolerance is renormalized rather than rejected.
func NewTradeSizeDistribution(sizes, probabilities []float64) (TradeSizeDistribution, error) {
	const op = "trade_size_distribution"

	if len(sizes) != len(probabilities) {
		return TradeSizeDistribution{}, NewDomainError(op, "len", float64(len(probabilities)), ErrLengthMismatch)
	}
	if len(sizes) == 0 {
		return TradeSizeDistribution{}, NewDomainError(op, "len", 0, ErrInvalidInput)
	}

	sum := 0.0
	for i := range sizes {
		if !IsFinite(sizes[i]) || sizes[i] <= 0 {
			return TradeSizeDistribution{}, NewDomainError(op, "size", sizes[i], ErrInvalidInput)
		}
		if i > 0 && sizes[i] <= sizes[i-1] {
			return TradeSizeDistribution{}, NewDomainError(op, "size", sizes[i], ErrInvalidInput)
		}
		if err := RequireNonNegative(op, "probability", probabilities[i]); err != nil {
			return TradeSizeDistribution{}, err
		}
		sum += probabilities[i]
	}

	probs := make([]float64, len(probabilities))
	switch {
	case sum <= 0:
		log.Warn().Int("buckets", len(sizes)).Msg("Trade size probabilities sum to zero, using uniform distribution")
		for i := range probs {
			probs[i] = 1.0 / float64(len(probs))
		}
	case math.Abs(sum-1.0) > ProbabilityTolerance:
		log.Warn().Float64("sum", sum).Msg("Trade size probabilities renormalized")
		for i, p := range probabilities {
			probs[i] = p / sum
		}
	default:
		copy(probs, probabilities)
	}

	return TradeSizeDistribution{
		sizes:         append([]float64(nil), sizes...),
		probabilities: probs,
	}, nil
}

// Len returns the number of buckets
func (d TradeSizeDistribution) Len() int {
	return len(d.sizes)
}

// At returns the size and probability of bucket i
func (d TradeSizeDistribution) At(i int) (size, probability float64) {
	return d.sizes[i], d.probabilities[i]
}

// Sizes returns a copy of the trade sizes
func (d TradeSizeDistribution) Sizes() []float64 {
	return append([]float64(nil), d.sizes...)
}

// Probabilities returns a copy of the probabilities
func (d TradeSizeDistribution) Probabilities() []float64 {
	return append([]float64(nil), d.probabilities...)
}

// Head returns a distribution over the first n buckets, renormalized
func (d TradeSizeDistribution) Head(n int) (TradeSizeDistribution, error) {
	if n >= d.Len() {
		return d, nil
	}
	if n < 1 {
		return TradeSizeDistribution{}, NewDomainError("trade_size_distribution", "head", float64(n), ErrInvalidInput)
	}
	return NewTradeSizeDistribution(d.sizes[:n], d.probabilities[:n])
}

// ExpectedSize returns Σ size·probability
func (d TradeSizeDistribution) ExpectedSize() float64 {
	total := 0.0
	for i := range d.sizes {
		total += d.sizes[i] * d.probabilities[i]
	}
	return total
}

type distributionJSON struct {
	Sizes         []float64 `json:"sizes"`
	Probabilities []float64 `json:"probabilities"`
}

// MarshalJSON encodes the distribution as parallel arrays
func (d TradeSizeDistribution) MarshalJSON() ([]byte, error) {
	return json.Marshal(distributionJSON{Sizes: d.sizes, Probabilities: d.probabilities})
}

// UnmarshalJSON decodes parallel arrays through the validating constructor
func (d *TradeSizeDistribution) UnmarshalJSON(data []byte) error {
	var raw distributionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := NewTradeSizeDistribution(raw.Sizes, raw.Probabilities)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
