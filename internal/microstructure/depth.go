package microstructure

import (
	"fmt"
	"math"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
)

// TierWidthBps maps each liquidity tier to its half-width around mid
var TierWidthBps = map[string]float64{
	tuning.Tier50:  50,
	tuning.Tier100: 100,
	tuning.Tier200: 200,
}

// TierDepthCalculator measures quoted USD depth inside the liquidity tiers
type TierDepthCalculator struct {
	tiers []string
}

// NewTierDepthCalculator creates a calculator over the standard 50/100/200 bps tiers
func NewTierDepthCalculator() *TierDepthCalculator {
	return &TierDepthCalculator{tiers: tuning.Tiers}
}

// TierDepth is the cumulative two-sided depth within one tier
type TierDepth struct {
	Tier      string  `json:"tier"`
	BidBound  float64 `json:"bid_bound"`
	AskBound  float64 `json:"ask_bound"`
	BidUSD    float64 `json:"bid_usd"`
	AskUSD    float64 `json:"ask_usd"`
	TotalUSD  float64 `json:"total_usd"`
	BidLevels int     `json:"bid_levels"`
	AskLevels int     `json:"ask_levels"`
}

// TierDepths holds the depth of every tier of one snapshot
type TierDepths struct {
	Symbol   string               `json:"symbol"`
	Venue    string               `json:"venue"`
	MidPrice float64              `json:"mid_price"`
	Tiers    map[string]TierDepth `json:"tiers"`
}

// Depth returns the total USD depth of tier, 0 when absent
func (d *TierDepths) Depth(tier string) float64 {
	if d == nil {
		return 0
	}
	return d.Tiers[tier].TotalUSD
}

// CalculateTierDepths sums USD depth within ±50/100/200 bps of mid. Tiers are
// cumulative: the 200bps tier includes everything inside 50bps.
func (tc *TierDepthCalculator) CalculateTierDepths(orderbook *OrderBookSnapshot) (*TierDepths, error) {
	if orderbook == nil {
		return nil, fmt.Errorf("order book snapshot is nil")
	}

	mid, err := midPrice(orderbook)
	if err != nil {
		return nil, err
	}

	result := &TierDepths{
		Symbol:   orderbook.Symbol,
		Venue:    orderbook.Venue,
		MidPrice: mid,
		Tiers:    make(map[string]TierDepth, len(tc.tiers)),
	}

	for _, tier := range tc.tiers {
		width := TierWidthBps[tier] / 10000
		td := TierDepth{
			Tier:     tier,
			BidBound: mid * (1 - width),
			AskBound: mid * (1 + width),
		}

		// Bids descend, asks ascend: stop at the first level outside the band
		for _, bid := range orderbook.Bids {
			if bid.Price < td.BidBound {
				break
			}
			td.BidUSD += bid.Price * bid.Size
			td.BidLevels++
		}
		for _, ask := range orderbook.Asks {
			if ask.Price > td.AskBound {
				break
			}
			td.AskUSD += ask.Price * ask.Size
			td.AskLevels++
		}

		td.TotalUSD = td.BidUSD + td.AskUSD
		result.Tiers[tier] = td
	}

	return result, nil
}

// midPrice uses the best bid/ask, falling back to the last trade on a one-sided book
func midPrice(orderbook *OrderBookSnapshot) (float64, error) {
	if len(orderbook.Bids) > 0 && len(orderbook.Asks) > 0 {
		bid, ask := orderbook.Bids[0].Price, orderbook.Asks[0].Price
		if bid > 0 && ask > bid {
			return (bid + ask) / 2, nil
		}
		return 0, fmt.Errorf("crossed or invalid book for %s: bid=%.6f ask=%.6f", orderbook.Symbol, bid, ask)
	}

	if len(orderbook.Bids) == 0 && len(orderbook.Asks) == 0 {
		return 0, fmt.Errorf("empty order book for %s", orderbook.Symbol)
	}
	if orderbook.LastPrice <= 0 {
		return 0, fmt.Errorf("one-sided book for %s without last price", orderbook.Symbol)
	}
	return orderbook.LastPrice, nil
}

// MarketImpact is the outcome of walking one side of the book
type MarketImpact struct {
	Side                  string  `json:"side"` // "buy" or "sell"
	RequestedUSD          float64 `json:"requested_usd"`
	FilledUSD             float64 `json:"filled_usd"`
	StartPrice            float64 `json:"start_price"`
	AveragePrice          float64 `json:"average_price"`
	SlippageBps           float64 `json:"slippage_bps"`
	LevelsConsumed        int     `json:"levels_consumed"`
	InsufficientLiquidity bool    `json:"insufficient_liquidity"`
	ShortfallUSD          float64 `json:"shortfall_usd,omitempty"`
}

// EstimateMarketImpact walks the book for a trade of tradeSizeUSD and reports
// the realized slippage against mid. Used to sanity-check effective depth
// against what a sweep would actually fill.
func (tc *TierDepthCalculator) EstimateMarketImpact(orderbook *OrderBookSnapshot, tradeSizeUSD float64, side string) (*MarketImpact, error) {
	if orderbook == nil {
		return nil, fmt.Errorf("order book snapshot is nil")
	}
	if tradeSizeUSD <= 0 {
		return nil, fmt.Errorf("invalid trade size: %.2f", tradeSizeUSD)
	}

	var levels []PriceLevel
	switch side {
	case "buy":
		levels = orderbook.Asks
	case "sell":
		levels = orderbook.Bids
	default:
		return nil, fmt.Errorf("invalid side: %s (must be 'buy' or 'sell')", side)
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no %s side liquidity", side)
	}

	mid, err := midPrice(orderbook)
	if err != nil {
		return nil, err
	}

	impact := &MarketImpact{Side: side, RequestedUSD: tradeSizeUSD, StartPrice: mid}
	remaining := tradeSizeUSD
	quantity := 0.0

	for i, level := range levels {
		if remaining <= 0 {
			break
		}
		take := math.Min(remaining, level.Price*level.Size)
		impact.FilledUSD += take
		quantity += take / level.Price
		remaining -= take
		impact.LevelsConsumed = i + 1
	}

	if remaining > 0 {
		impact.InsufficientLiquidity = true
		impact.ShortfallUSD = remaining
	}
	if quantity > 0 {
		impact.AveragePrice = impact.FilledUSD / quantity
		impact.SlippageBps = math.Abs(impact.AveragePrice-mid) / mid * 10000
	}

	return impact, nil
}
