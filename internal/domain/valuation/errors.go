package valuation

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidInput marks inputs outside the model domain (negative spreads, volumes, depths...)
	ErrInvalidInput = errors.New("invalid input")

	// ErrLengthMismatch is returned when trade sizes and probabilities differ in length
	ErrLengthMismatch = errors.New("trade sizes and probabilities length mismatch")

	// ErrNonFinite is returned when a computation would surface NaN or Inf
	ErrNonFinite = errors.New("non-finite result")

	// ErrInvalidWeights is returned when model weights break the sum-to-one contract
	ErrInvalidWeights = errors.New("invalid model weights")

	// ErrUnknownDistribution is returned for unsupported trade size distribution types
	ErrUnknownDistribution = errors.New("unknown distribution type")
)

// DomainError tags a rejected input with the operation and field that failed
type DomainError struct {
	Op    string
	Field string
	Value float64
	Err   error
}

func (e *DomainError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: %s=%g: %v", e.Op, e.Field, e.Value, e.Err)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError builds a DomainError wrapping err
func NewDomainError(op, field string, value float64, err error) *DomainError {
	return &DomainError{Op: op, Field: field, Value: value, Err: err}
}

// IsFinite reports whether v is neither NaN nor ±Inf
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// RequireNonNegative rejects negative or non-finite values for field
func RequireNonNegative(op, field string, v float64) error {
	if !IsFinite(v) {
		return NewDomainError(op, field, v, ErrNonFinite)
	}
	if v < 0 {
		return NewDomainError(op, field, v, ErrInvalidInput)
	}
	return nil
}

// RequireFinite rejects NaN/Inf values for field
func RequireFinite(op, field string, v float64) error {
	if !IsFinite(v) {
		return NewDomainError(op, field, v, ErrNonFinite)
	}
	return nil
}
