package microstructure

import (
	"fmt"
	"math"
	"time"
)

// SpreadCalculator computes bid-ask spreads in bps with a rolling window
type SpreadCalculator struct {
	windowSeconds int
	history       []SpreadPoint
	maxHistory    int
}

// NewSpreadCalculator creates a spread calculator over windowSeconds
func NewSpreadCalculator(windowSeconds int) *SpreadCalculator {
	if windowSeconds <= 0 {
		windowSeconds = 60
	}
	maxHistory := windowSeconds * 2
	if maxHistory < 100 {
		maxHistory = 100
	}

	return &SpreadCalculator{
		windowSeconds: windowSeconds,
		maxHistory:    maxHistory,
		history:       make([]SpreadPoint, 0, maxHistory),
	}
}

// SpreadPoint is one top-of-book spread observation
type SpreadPoint struct {
	Timestamp time.Time `json:"timestamp"`
	BidPrice  float64   `json:"bid_price"`
	AskPrice  float64   `json:"ask_price"`
	SpreadBps float64   `json:"spread_bps"`
	MidPrice  float64   `json:"mid_price"`
}

// SpreadResult is the current spread plus rolling statistics
type SpreadResult struct {
	Current       SpreadPoint `json:"current"`
	RollingAvgBps float64     `json:"rolling_avg_bps"`
	MinBps        float64     `json:"min_bps"`
	MaxBps        float64     `json:"max_bps"`
	StdDevBps     float64     `json:"std_dev_bps"`
	SampleCount   int         `json:"sample_count"`
	WindowSeconds int         `json:"window_seconds"`
}

// QuotedBps is the spread to feed the effective-depth chain: the rolling
// average once there is history, the current spread otherwise.
func (r *SpreadResult) QuotedBps() float64 {
	if r.SampleCount <= 1 {
		return r.Current.SpreadBps
	}
	return r.RollingAvgBps
}

// CalculateSpread records the snapshot's top-of-book spread and returns rolling stats
func (sc *SpreadCalculator) CalculateSpread(orderbook *OrderBookSnapshot) (*SpreadResult, error) {
	if orderbook == nil {
		return nil, fmt.Errorf("order book snapshot is nil")
	}

	if len(orderbook.Bids) == 0 || len(orderbook.Asks) == 0 {
		return nil, fmt.Errorf("incomplete order book: %d bids, %d asks",
			len(orderbook.Bids), len(orderbook.Asks))
	}

	bestBid := orderbook.Bids[0]
	bestAsk := orderbook.Asks[0]

	if bestBid.Price <= 0 || bestAsk.Price <= 0 {
		return nil, fmt.Errorf("invalid prices: bid=%.6f, ask=%.6f", bestBid.Price, bestAsk.Price)
	}
	if bestAsk.Price <= bestBid.Price {
		return nil, fmt.Errorf("crossed book: bid=%.6f >= ask=%.6f", bestBid.Price, bestAsk.Price)
	}

	mid := (bestBid.Price + bestAsk.Price) / 2.0
	point := SpreadPoint{
		Timestamp: orderbook.Timestamp,
		BidPrice:  bestBid.Price,
		AskPrice:  bestAsk.Price,
		SpreadBps: (bestAsk.Price - bestBid.Price) / mid * 10000.0,
		MidPrice:  mid,
	}

	sc.history = append(sc.history, point)
	if len(sc.history) > sc.maxHistory {
		sc.history = sc.history[1:]
	}

	return sc.rollingStats(point), nil
}

func (sc *SpreadCalculator) rollingStats(current SpreadPoint) *SpreadResult {
	cutoff := current.Timestamp.Add(-time.Duration(sc.windowSeconds) * time.Second)

	var window []SpreadPoint
	for _, point := range sc.history {
		if point.Timestamp.After(cutoff) {
			window = append(window, point)
		}
	}

	if len(window) == 0 {
		return &SpreadResult{
			Current:       current,
			RollingAvgBps: current.SpreadBps,
			MinBps:        current.SpreadBps,
			MaxBps:        current.SpreadBps,
			SampleCount:   1,
			WindowSeconds: sc.windowSeconds,
		}
	}

	sum := 0.0
	minBps, maxBps := math.Inf(1), math.Inf(-1)
	for _, point := range window {
		sum += point.SpreadBps
		minBps = math.Min(minBps, point.SpreadBps)
		maxBps = math.Max(maxBps, point.SpreadBps)
	}
	avg := sum / float64(len(window))

	sumSquares := 0.0
	for _, point := range window {
		diff := point.SpreadBps - avg
		sumSquares += diff * diff
	}

	return &SpreadResult{
		Current:       current,
		RollingAvgBps: avg,
		MinBps:        minBps,
		MaxBps:        maxBps,
		StdDevBps:     math.Sqrt(sumSquares / float64(len(window))),
		SampleCount:   len(window),
		WindowSeconds: sc.windowSeconds,
	}
}

// IsSpreadStable needs at least 10 samples with a standard deviation within maxStdDevBps
func (sc *SpreadCalculator) IsSpreadStable(result *SpreadResult, maxStdDevBps float64) bool {
	if result == nil || result.SampleCount < 10 {
		return false
	}
	return result.StdDevBps <= maxStdDevBps
}

// ClearHistory drops all recorded observations
func (sc *SpreadCalculator) ClearHistory() {
	sc.history = sc.history[:0]
}
