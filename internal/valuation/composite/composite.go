// Package composite blends the eight valuation models into one calibrated
// dollar figure using a fixed base scaling followed by a volume-bracket
// correction toward an empirical percentage of daily volume.
package composite

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/config/weights"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/valuation/models"
)

// Labels of composite results
const (
	LabelCrypto      = "Composite (Crypto-Optimized)"
	LabelTraditional = "Composite (Traditional)"
	LabelCustom      = "Composite (Custom)"
)

// Recorder receives every completed composite valuation
type Recorder interface {
	RecordComposite(result *valuation.CompositeResult)
}

// Options selects the model weights of one valuation
type Options struct {
	Weights          *valuation.ModelWeights `json:"weights,omitempty"` // overrides the presets when set
	UseCryptoWeights bool                    `json:"use_crypto_weights"`
}

// DefaultOptions selects the crypto preset
func DefaultOptions() Options {
	return Options{UseCryptoWeights: true}
}

// Valuator runs composite valuations
type Valuator struct {
	engine   *models.Engine
	calib    tuning.CalibrationConfig
	recorder Recorder
}

// NewValuator creates a valuator; nil arguments select defaults
func NewValuator(engine *models.Engine, calib *tuning.CalibrationConfig) *Valuator {
	if engine == nil {
		engine = models.NewEngine(nil)
	}
	c := tuning.DefaultCalibrationConfig()
	if calib != nil {
		c = *calib
	}
	return &Valuator{engine: engine, calib: c}
}

// WithRecorder attaches a recorder and returns the valuator
func (v *Valuator) WithRecorder(r Recorder) *Valuator {
	v.recorder = r
	return v
}

// Engine returns the underlying model engine
func (v *Valuator) Engine() *models.Engine {
	return v.engine
}

// Valuate blends the enabled models and calibrates the result
func (v *Valuator) Valuate(params valuation.MarketParameters, dist valuation.TradeSizeDistribution, opts Options) (*valuation.CompositeResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.DailyVolume0 <= 0 {
		return nil, valuation.NewDomainError("composite", "daily_volume_0", params.DailyVolume0, valuation.ErrInvalidInput)
	}
	if dist.Len() == 0 {
		return nil, valuation.NewDomainError("composite", "distribution", 0, valuation.ErrInvalidInput)
	}

	w, label, err := resolveWeights(opts)
	if err != nil {
		return nil, err
	}

	result := &valuation.CompositeResult{
		Label:           label,
		Weights:         w,
		CryptoOptimized: opts.Weights == nil && opts.UseCryptoWeights,
		Parameters:      params,
	}

	raw := 0.0
	for _, kind := range valuation.AllModelKinds() {
		if !w.Enabled(kind) {
			result.Models[kind] = valuation.DisabledResult(kind)
			continue
		}

		r, err := v.engine.Evaluate(kind, params, dist)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", kind.Key(), err)
		}
		result.Models[kind] = r
		raw += w.Get(kind) * r.TotalValue
	}

	result.Calibration = v.calibrate(raw, params.DailyVolume0)
	result.TotalValue = result.Calibration.ScaledValue * result.Calibration.Correction
	if result.Calibration.Fallback {
		result.TotalValue = params.DailyVolume0 * result.Calibration.TargetPct / 100
	}

	log.Debug().
		Str("label", label).
		Float64("raw", raw).
		Float64("current_pct", result.Calibration.CurrentPct).
		Float64("correction", result.Calibration.Correction).
		Bool("fallback", result.Calibration.Fallback).
		Float64("total_value", result.TotalValue).
		Msg("Composite valuation")

	if v.recorder != nil {
		v.recorder.RecordComposite(result)
	}

	return result, nil
}

// calibrate maps the blended raw value to dollars. dailyVolume must be positive.
func (v *Valuator) calibrate(raw, dailyVolume float64) valuation.CalibrationInfo {
	info := valuation.CalibrationInfo{
		BaseScaling:  v.calib.BaseScaling,
		RawValue:     raw,
		ScaledValue:  raw * v.calib.BaseScaling,
		TargetPct:    v.calib.TargetPct(dailyVolume),
		BracketBoost: 1.0,
	}
	info.CurrentPct = info.ScaledValue / dailyVolume * 100

	if info.CurrentPct <= 0 || !valuation.IsFinite(info.CurrentPct) {
		log.Warn().
			Float64("current_pct", info.CurrentPct).
			Float64("daily_volume", dailyVolume).
			Msg("Composite models produced no positive value, using target percentage")
		info.Fallback = true
		info.Correction = 0
		return info
	}

	info.BracketBoost = v.calib.Boost(dailyVolume)
	correction := info.TargetPct / info.CurrentPct * info.BracketBoost
	info.Correction, info.Clamped = v.calib.Clamp(dailyVolume, correction)
	return info
}

func resolveWeights(opts Options) (valuation.ModelWeights, string, error) {
	if opts.Weights != nil {
		w := *opts.Weights
		if !w.IsZero() {
			if err := w.Validate(); err != nil {
				return valuation.ModelWeights{}, "", err
			}
		}
		return w, LabelCustom, nil
	}
	if opts.UseCryptoWeights {
		return weights.Crypto(), LabelCrypto, nil
	}
	return weights.Traditional(), LabelTraditional, nil
}
