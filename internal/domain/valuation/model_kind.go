package valuation

import "fmt"

// ModelKind enumerates the eight valuation models
type ModelKind int

const (
	AlmgrenChriss ModelKind = iota
	KyleLambda
	BouchaudPower
	Amihud
	Resilience
	AdverseSelection
	CrossVenue
	HawkesCascade

	NumModelKinds = 8
)

var modelKeys = [NumModelKinds]string{
	"almgren_chriss",
	"kyle_lambda",
	"bouchaud_power",
	"amihud",
	"resilience",
	"adverse_selection",
	"cross_venue",
	"hawkes_cascade",
}

var modelNames = [NumModelKinds]string{
	"Almgren-Chriss",
	"Kyle Lambda",
	"Bouchaud Power Law",
	"Amihud Illiquidity",
	"Order Book Resilience",
	"Adverse Selection/PIN",
	"Cross-Venue Arbitrage",
	"Hawkes Cascade/Liquidation",
}

// AllModelKinds returns every model kind in evaluation order
func AllModelKinds() []ModelKind {
	kinds := make([]ModelKind, NumModelKinds)
	for i := range kinds {
		kinds[i] = ModelKind(i)
	}
	return kinds
}

// Valid reports whether k is one of the eight models
func (k ModelKind) Valid() bool {
	return k >= 0 && int(k) < NumModelKinds
}

// Key returns the snake_case configuration key
func (k ModelKind) Key() string {
	if !k.Valid() {
		return fmt.Sprintf("model_%d", int(k))
	}
	return modelKeys[k]
}

// String returns the display name
func (k ModelKind) String() string {
	if !k.Valid() {
		return fmt.Sprintf("ModelKind(%d)", int(k))
	}
	return modelNames[k]
}

// ParseModelKind resolves a configuration key such as "kyle_lambda"
func ParseModelKind(key string) (ModelKind, error) {
	for i, k := range modelKeys {
		if k == key {
			return ModelKind(i), nil
		}
	}
	return -1, fmt.Errorf("unknown model %q", key)
}

// MarshalText encodes the kind as its configuration key
func (k ModelKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("invalid model kind %d", int(k))
	}
	return []byte(k.Key()), nil
}

// UnmarshalText decodes a configuration key
func (k *ModelKind) UnmarshalText(text []byte) error {
	parsed, err := ParseModelKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
