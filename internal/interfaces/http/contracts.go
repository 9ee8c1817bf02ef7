package http

import (
	"time"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/validation"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
	"github.com/sawpanic/mmvalue/internal/valuation/service"
)

// CompositeRequest asks for one composite market-maker valuation
type CompositeRequest struct {
	Parameters   valuation.MarketParameters `json:"parameters"`
	Distribution *distribution.Spec         `json:"distribution,omitempty"` // default 100..10000, 20 log-normal buckets
	Preset       string                     `json:"preset,omitempty"`       // named weights preset, default crypto
	Weights      *valuation.ModelWeights    `json:"weights,omitempty"`      // overrides Preset
	Market       string                     `json:"market,omitempty"`       // crypto or traditional, selects validation bounds
}

// CompositeResponse wraps a composite result with its validation grades
type CompositeResponse struct {
	Result           *valuation.CompositeResult `json:"result"`
	PctOfDailyVolume float64                    `json:"pct_of_daily_volume"`
	Validation       *validation.Summary        `json:"validation"`
	Cached           bool                       `json:"cached"`
}

// EffectiveDepthRequest asks for the effective depth of one tier
type EffectiveDepthRequest struct {
	Depth          float64 `json:"depth"`
	Tier           string  `json:"tier"`
	SpreadBps      float64 `json:"spread_bps"`
	Volatility     float64 `json:"volatility"`
	Exchange       string  `json:"exchange"`
	IncludeCascade *bool   `json:"include_cascade,omitempty"` // default true
}

// EntityDepthRequest asks for the three-tier effective depth of one entity
type EntityDepthRequest struct {
	Depth50    float64 `json:"depth_50"`
	Depth100   float64 `json:"depth_100"`
	Depth200   float64 `json:"depth_200"`
	SpreadBps  float64 `json:"spread_bps"`
	Volatility float64 `json:"volatility"`
	Exchange   string  `json:"exchange"`
	AssetPrice float64 `json:"asset_price,omitempty"` // enables the depth sanity checks
	Compare    bool    `json:"compare,omitempty"`
}

// EntityDepthResponse is the entity result, optionally with the flat-multiplier comparison
type EntityDepthResponse struct {
	Entity     *microstructure.EntityDepthResult `json:"entity"`
	Comparison *microstructure.MethodComparison  `json:"comparison,omitempty"`
	Validation *validation.Summary               `json:"validation"`
	Cached     bool                              `json:"cached"`
}

// DepthSnapshotRequest values one order book snapshot. Snapshots of the same
// venue/symbol accumulate into the rolling spread the chain is fed.
type DepthSnapshotRequest struct {
	Book       microstructure.OrderBookSnapshot `json:"book"`
	Volatility *float64                         `json:"volatility,omitempty"` // default 0.25
}

// WeightsResponse describes one weights preset
type WeightsResponse struct {
	Preset  string                 `json:"preset"`
	Weights valuation.ModelWeights `json:"weights"`
	Sum     float64                `json:"sum"`
	Presets []string               `json:"available_presets"`
}

// AnalysisRequest runs the portfolio analysis. Option values are priced
// outside the service and passed in per entity.
type AnalysisRequest struct {
	Quotes       []service.DepthQuote   `json:"quotes"`
	Market       service.MarketSnapshot `json:"market"`
	OptionValues map[string]float64     `json:"option_values,omitempty"`
}

// ErrorResponse represents standardized error responses
type ErrorResponse struct {
	Error     string    `json:"error"`
	Message   string    `json:"message"`
	Code      string    `json:"code"`
	RequestID string    `json:"request_id"`
	Timestamp time.Time `json:"timestamp"`
}
