package valuation

import (
	"encoding/json"
	"fmt"
	"math"
)

// WeightSumTolerance is the allowed drift of a weight set away from 1.0
const WeightSumTolerance = 1e-6

// ModelWeights holds one weight in [0,1] per model. Disabling a model is
// expressed as weight 0, never by omission.
type ModelWeights [NumModelKinds]float64

// Get returns the weight for kind
func (w ModelWeights) Get(kind ModelKind) float64 {
	if !kind.Valid() {
		return 0
	}
	return w[kind]
}

// With returns a copy of w with kind set to weight
func (w ModelWeights) With(kind ModelKind, weight float64) ModelWeights {
	if kind.Valid() {
		w[kind] = weight
	}
	return w
}

// Sum adds the weights in model order
func (w ModelWeights) Sum() float64 {
	sum := 0.0
	for _, v := range w {
		sum += v
	}
	return sum
}

// IsZero reports whether every model is disabled
func (w ModelWeights) IsZero() bool {
	for _, v := range w {
		if v != 0 {
			return false
		}
	}
	return true
}

// Enabled reports whether kind carries a positive weight
func (w ModelWeights) Enabled(kind ModelKind) bool {
	return w.Get(kind) > 0
}

// Validate checks every weight lies in [0,1] and the set sums to 1.0
func (w ModelWeights) Validate() error {
	for _, kind := range AllModelKinds() {
		v := w[kind]
		if !IsFinite(v) || v < 0 || v > 1 {
			return fmt.Errorf("%w: %s weight %.4f outside [0, 1]", ErrInvalidWeights, kind.Key(), v)
		}
	}

	sum := w.Sum()
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("%w: weights sum to %.8f, expected 1.0 ± %g", ErrInvalidWeights, sum, WeightSumTolerance)
	}
	return nil
}

// Map returns the weights keyed by configuration key
func (w ModelWeights) Map() map[string]float64 {
	out := make(map[string]float64, NumModelKinds)
	for _, kind := range AllModelKinds() {
		out[kind.Key()] = w[kind]
	}
	return out
}

// WeightsFromMap builds weights from configuration keys; missing keys are 0
func WeightsFromMap(m map[string]float64) (ModelWeights, error) {
	var w ModelWeights
	for key, v := range m {
		kind, err := ParseModelKind(key)
		if err != nil {
			return ModelWeights{}, fmt.Errorf("%w: %v", ErrInvalidWeights, err)
		}
		w[kind] = v
	}
	return w, nil
}

// MarshalJSON encodes the weights as a key→weight object
func (w ModelWeights) MarshalJSON() ([]byte, error) {
	return json.Marshal(w.Map())
}

// UnmarshalJSON decodes a key→weight object
func (w *ModelWeights) UnmarshalJSON(data []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	parsed, err := WeightsFromMap(m)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}
