// Package validation checks valuation inputs against realistic market bounds.
// Unlike the domain validation in the model packages, which only rejects
// inputs that would break the math, it grades every input as an error, a
// warning or an informational note so callers can surface questionable data.
package validation

import (
	"fmt"
	"math"
	"strings"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
)

// Severity grades one check
type Severity string

const (
	SeverityError   Severity = "error"   // input rejected
	SeverityWarning Severity = "warning" // questionable, allowed
	SeverityInfo    Severity = "info"
)

// MarketType selects the bounds set
type MarketType string

const (
	MarketCrypto      MarketType = "crypto"
	MarketTraditional MarketType = "traditional"
)

// Result is the outcome of one check
type Result struct {
	Check          string        `json:"check"`
	Valid          bool          `json:"valid"`
	Severity       Severity      `json:"severity"`
	Message        string        `json:"message"`
	SuggestedRange *tuning.Range `json:"suggested_range,omitempty"`
}

// Summary collects the results of a validation pass
type Summary struct {
	Valid       bool     `json:"valid"`
	Errors      []Result `json:"errors"`
	Warnings    []Result `json:"warnings"`
	Infos       []Result `json:"infos"`
	TotalChecks int      `json:"total_checks"`
}

func newSummary() *Summary {
	return &Summary{Valid: true, Errors: []Result{}, Warnings: []Result{}, Infos: []Result{}}
}

// Add files r under its severity; any error invalidates the summary
func (s *Summary) Add(r Result) {
	switch r.Severity {
	case SeverityError:
		s.Errors = append(s.Errors, r)
		s.Valid = false
	case SeverityWarning:
		s.Warnings = append(s.Warnings, r)
	default:
		s.Infos = append(s.Infos, r)
	}
	s.TotalChecks++
}

// Messages flattens errors then warnings into strings
func (s *Summary) Messages() []string {
	out := make([]string, 0, len(s.Errors)+len(s.Warnings))
	for _, r := range s.Errors {
		out = append(out, fmt.Sprintf("%s: %s", r.Check, r.Message))
	}
	for _, r := range s.Warnings {
		out = append(out, fmt.Sprintf("%s: %s", r.Check, r.Message))
	}
	return out
}

var majorExchanges = map[string]bool{
	"Binance": true, "Coinbase": true, "Kraken": true, "Bitstamp": true, "OKX": true,
	"Bybit": true, "KuCoin": true, "Huobi": true, "Gate": true, "MEXC": true,
	tuning.OtherExchange: true,
}

// Validator grades inputs against tuning.Bounds
type Validator struct {
	market MarketType
	bounds tuning.Bounds
}

// NewValidator creates a validator; nil bounds select the defaults
func NewValidator(market MarketType, bounds *tuning.Bounds) *Validator {
	b := tuning.DefaultBounds()
	if bounds != nil {
		b = *bounds
	}
	if market != MarketTraditional {
		market = MarketCrypto
	}
	return &Validator{market: market, bounds: b}
}

func (v *Validator) marketBounds() tuning.MarketBounds {
	if v.market == MarketTraditional {
		return v.bounds.Traditional
	}
	return v.bounds.Crypto
}

// ValidateDepth grades one venue depth quote
func (v *Validator) ValidateDepth(spreadBps, depth50, depth100, depth200, assetPrice float64, exchange string) *Summary {
	s := newSummary()
	s.Add(v.checkSpread(spreadBps, exchange))
	for _, d := range []struct {
		tier  string
		value float64
	}{
		{tuning.Tier50, depth50},
		{tuning.Tier100, depth100},
		{tuning.Tier200, depth200},
	} {
		s.Add(v.checkDepth(d.tier, d.value, assetPrice))
	}
	s.Add(checkDepthStructure(depth50, depth100, depth200))
	s.Add(v.checkExchange(exchange))
	return s
}

// ValidateMarketMaker grades the market-level inputs of a valuation
func (v *Validator) ValidateMarketMaker(dailyVolume, assetPrice, volatility, mmVolume float64) *Summary {
	s := newSummary()
	s.Add(v.checkDailyVolume(dailyVolume, assetPrice))
	s.Add(v.checkPrice(assetPrice))
	s.Add(v.checkVolatility(volatility))
	s.Add(checkMMVolume(mmVolume, dailyVolume))
	return s
}

func errorResult(check, format string, args ...interface{}) Result {
	return Result{Check: check, Valid: false, Severity: SeverityError, Message: fmt.Sprintf(format, args...)}
}

func warn(check string, valid bool, format string, args ...interface{}) Result {
	return Result{Check: check, Valid: valid, Severity: SeverityWarning, Message: fmt.Sprintf(format, args...)}
}

func info(check, format string, args ...interface{}) Result {
	return Result{Check: check, Valid: true, Severity: SeverityInfo, Message: fmt.Sprintf(format, args...)}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (v *Validator) checkSpread(spreadBps float64, exchange string) Result {
	const check = "spread"
	bounds := v.marketBounds().SpreadBps

	if !finite(spreadBps) || spreadBps <= 0 {
		r := errorResult(check, "bid-ask spread must be positive")
		r.SuggestedRange = &bounds
		return r
	}
	if spreadBps < bounds.Min {
		r := warn(check, false, "spread %.2fbps is extremely tight, possibly subsidized or bad data", spreadBps)
		r.SuggestedRange = &bounds
		return r
	}
	if spreadBps > bounds.Max {
		r := warn(check, false, "spread %.0fbps is extremely wide, illiquid or stressed market", spreadBps)
		r.SuggestedRange = &bounds
		return r
	}

	if v.market == MarketCrypto {
		switch {
		case strings.Contains(exchange, "Binance") && spreadBps > 50:
			return warn(check, true, "spread %.1fbps is high for Binance (typically <20bps)", spreadBps)
		case strings.Contains(exchange, "Coinbase") && spreadBps > 100:
			return warn(check, true, "spread %.1fbps is high for Coinbase", spreadBps)
		}
	}
	return info(check, "spread %.2fbps is valid for %s", spreadBps, exchange)
}

func (v *Validator) checkDepth(tier string, depth, assetPrice float64) Result {
	check := "depth_" + tier
	if !finite(depth) || depth < 0 {
		return errorResult(check, "depth %s cannot be negative", tier)
	}
	if depth == 0 {
		return warn(check, true, "depth %s is zero, no liquidity at this level", tier)
	}
	if depth > v.bounds.Depth.Max {
		r := warn(check, true, "depth %s $%.0f is beyond realistic bounds", tier, depth)
		r.SuggestedRange = &v.bounds.Depth
		return r
	}
	if assetPrice > 0 && depth/assetPrice > 10000 {
		return warn(check, true, "depth %s ($%.0f) is %.0fx the asset price", tier, depth, depth/assetPrice)
	}
	return info(check, "depth %s $%.0f is valid", tier, depth)
}

func checkDepthStructure(d50, d100, d200 float64) Result {
	const check = "depth_structure"
	if d50 < 0 || d100 < 0 || d200 < 0 {
		return errorResult(check, "all depth values must be non-negative")
	}
	if d50 > 0 && d100 > 0 && d50 > d100*2 {
		return warn(check, true, "depth at 50bps ($%.0f) is more than 2x depth at 100bps ($%.0f)", d50, d100)
	}
	if d100 > 0 && d200 > 0 && d100 > d200*1.5 {
		return warn(check, true, "depth at 100bps ($%.0f) is more than 1.5x depth at 200bps ($%.0f)", d100, d200)
	}
	if (d50 > 0 && d100/d50 > 10) || (d100 > 0 && d200/d100 > 10) {
		return info(check, "large depth increases between levels, liquidity may be concentrated")
	}
	return info(check, "depth structure appears reasonable")
}

func (v *Validator) checkExchange(exchange string) Result {
	const check = "exchange"
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return warn(check, false, "exchange name is empty")
	}
	if v.market == MarketCrypto && !majorExchanges[exchange] {
		return info(check, "exchange %q not in list of major crypto exchanges", exchange)
	}
	return info(check, "exchange %q is valid", exchange)
}

func (v *Validator) checkDailyVolume(dailyVolume, assetPrice float64) Result {
	const check = "daily_volume"
	if !finite(dailyVolume) || dailyVolume < 0 {
		return errorResult(check, "daily volume cannot be negative")
	}
	if dailyVolume == 0 {
		return warn(check, true, "daily volume is zero, no trading activity")
	}
	if dailyVolume < v.bounds.DailyVolume.Min || dailyVolume > v.bounds.DailyVolume.Max {
		r := warn(check, true, "daily volume $%.0f is outside realistic bounds", dailyVolume)
		r.SuggestedRange = &v.bounds.DailyVolume
		return r
	}
	if assetPrice > 0 && dailyVolume/assetPrice > 1000 {
		return warn(check, true, "daily volume $%.0f is %.0fx the asset price, extremely high turnover",
			dailyVolume, dailyVolume/assetPrice)
	}
	return info(check, "daily volume $%.0f is valid", dailyVolume)
}

func (v *Validator) checkPrice(price float64) Result {
	const check = "asset_price"
	bounds := v.bounds.AssetPrice
	if !finite(price) || price <= 0 {
		return errorResult(check, "asset price must be positive")
	}
	if price < bounds.Min {
		r := warn(check, false, "asset price %.6f is very small, may cause numerical instability", price)
		r.SuggestedRange = &bounds
		return r
	}
	if price > bounds.Max {
		r := warn(check, false, "asset price %.0f is extremely large", price)
		r.SuggestedRange = &bounds
		return r
	}
	return info(check, "asset price %.4f is valid", price)
}

func (v *Validator) checkVolatility(vol float64) Result {
	const check = "volatility"
	bounds := v.marketBounds().Volatility
	if !finite(vol) || vol <= 0 {
		r := errorResult(check, "volatility must be positive")
		r.SuggestedRange = &bounds
		return r
	}
	if !bounds.Contains(vol) {
		r := warn(check, false, "volatility %.1f%% is outside the typical %.1f%%-%.1f%% range",
			vol*100, bounds.Min*100, bounds.Max*100)
		r.SuggestedRange = &bounds
		return r
	}
	if vol > 3.0 {
		return warn(check, true, "extreme volatility %.1f%%, models may be unreliable", vol*100)
	}
	if vol < 0.01 {
		return warn(check, true, "very low volatility %.2f%%", vol*100)
	}
	return info(check, "volatility %.1f%% is valid", vol*100)
}

func checkMMVolume(mmVolume, dailyVolume float64) Result {
	const check = "mm_volume"
	if !finite(mmVolume) || mmVolume < 0 {
		return errorResult(check, "market maker volume cannot be negative")
	}
	if dailyVolume > 0 {
		share := mmVolume / dailyVolume
		switch {
		case share > 1:
			return warn(check, false, "market maker volume $%.0f exceeds daily volume $%.0f", mmVolume, dailyVolume)
		case share > 0.5:
			return warn(check, true, "market maker contributes %.1f%% of daily volume", share*100)
		case share < 0.01 && mmVolume > 0:
			return info(check, "market maker contributes only %.2f%% of daily volume", share*100)
		}
	}
	return info(check, "market maker volume $%.0f is valid", mmVolume)
}
