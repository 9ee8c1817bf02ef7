package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sawpanic/mmvalue/internal/domain/valuation"
)

type stubPricer struct {
	values map[string]float64
	calls  int
}

func (p *stubPricer) EntityOptionValue(_ context.Context, entity string) (float64, error) {
	p.calls++
	v, ok := p.values[entity]
	if !ok {
		return 0, errors.New("no option book")
	}
	return v, nil
}

func quotes() []DepthQuote {
	return []DepthQuote{
		{Entity: "Wintermute", Exchange: "Binance", Depth50: 200_000, Depth100: 300_000, Depth200: 500_000, SpreadBps: 8},
		{Entity: "Wintermute", Exchange: "OKX", Depth50: 50_000, Depth100: 80_000, Depth200: 120_000, SpreadBps: 25},
		{Entity: "GSR", Exchange: "Binance", Depth50: 20_000, Depth100: 40_000, Depth200: 60_000, SpreadBps: 60},
	}
}

func market() MarketSnapshot {
	return MarketSnapshot{Volatility: 0.8, TokenPrice: 1.5, RiskFreeRate: 0.05}
}

func TestSpreadCost(t *testing.T) {
	assert.InDelta(t, 900.0, SpreadCost(60), 1e-9)
	assert.InDelta(t, 120.0, SpreadCost(8), 1e-9)
	assert.Zero(t, SpreadCost(0))
}

func TestRiskScore(t *testing.T) {
	tests := []struct {
		coverage float64
		want     int
	}{
		{25, 1},
		{10, 1},
		{9.99, 2},
		{5, 2},
		{2, 3},
		{1.99, 4},
		{0, 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RiskScore(tt.coverage), "coverage %v", tt.coverage)
	}
}

func TestParametersMapping(t *testing.T) {
	p := Parameters(quotes()[0], market())
	assert.Equal(t, 8.0, p.Spread0)
	assert.Equal(t, 4.0, p.Spread1)
	assert.Equal(t, 1_000_000.0, p.Depth0)
	assert.Equal(t, 500_000.0, p.DepthMM)
	assert.Equal(t, AssumedDailyVolume, p.DailyVolume0)
	assert.Equal(t, AssumedMMVolume, p.VolumeMM)
	assert.Equal(t, 1.5, p.AssetPrice)
	assert.NoError(t, p.Validate())
}

func TestEffectiveDepthService(t *testing.T) {
	svc := NewEffectiveDepthService(nil)

	single, err := svc.EntityEffectiveDepth(quotes()[0], 0.2)
	require.NoError(t, err)
	assert.InEpsilon(t, 645226.5368625016, single.TotalEffectiveDepth, 1e-9)

	totals, err := svc.CumulativeByEntity(quotes(), 0)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	wm := totals["Wintermute"]
	assert.Equal(t, []string{"Binance", "OKX"}, wm.Exchanges)
	assert.Equal(t, 1_250_000.0, wm.RawDepth)
	assert.InEpsilon(t, wm.EffectiveDepth/wm.RawDepth, wm.OverallEfficiency, 1e-12)

	_, err = svc.EntityEffectiveDepth(DepthQuote{Entity: "X", Exchange: "Y", Depth50: -1}, 0.2)
	assert.ErrorIs(t, err, valuation.ErrInvalidInput)
}

func TestMarketMakerValuate(t *testing.T) {
	svc, err := NewMarketMakerService(nil)
	require.NoError(t, err)
	assert.Equal(t, TradeSizeSampleSize, svc.dist.Len())

	v, err := svc.Valuate(quotes()[2], market())
	require.NoError(t, err)
	assert.Greater(t, v.TotalValue, 0.0)
	assert.InDelta(t, 900.0, v.SpreadCost, 1e-9)
	assert.InDelta(t, v.TotalValue-900, v.NetValue, 1e-9)
	require.NotNil(t, v.Composite)
	assert.True(t, v.Composite.CryptoOptimized)
}

func TestEntitySummaries(t *testing.T) {
	svc, err := NewMarketMakerService(nil)
	require.NoError(t, err)

	vals := []*MarketMakerValuation{
		{Entity: "A", Exchange: "OKX", TotalValue: 1000, SpreadCost: 100, NetValue: 900},
		{Entity: "A", Exchange: "Binance", TotalValue: 500, SpreadCost: 50, NetValue: 450},
		{Entity: "A", Exchange: "Binance", TotalValue: 100, SpreadCost: 0, NetValue: 100},
		{Entity: "B", Exchange: "Kraken", TotalValue: 10, SpreadCost: 5, NetValue: 5},
		{Entity: "Z", Exchange: "OKX", TotalValue: 20, SpreadCost: 1, NetValue: 19},
	}

	sums := svc.EntitySummaries(vals,
		map[string]float64{"A": 10_000, "Z": 0},
		map[string]float64{"A": 60_000, "B": 3, "Z": 50})
	require.Len(t, sums, 3)

	a := sums[0]
	assert.Equal(t, "A", a.Entity)
	assert.Equal(t, []string{"Binance", "OKX"}, a.Exchanges)
	assert.Equal(t, 1600.0, a.TotalMMValue)
	assert.Equal(t, 1450.0, a.TotalNetValue)
	assert.InDelta(t, 14.5, a.MMEfficiency, 1e-9)
	assert.InDelta(t, 6.0, a.DepthCoverage, 1e-9)
	assert.Equal(t, 2, a.RiskScore)

	b := sums[1]
	assert.Equal(t, 1.0, b.OptionValue)
	assert.Equal(t, 3.0, b.DepthCoverage)
	assert.Equal(t, 3, b.RiskScore)

	// a priced-at-zero option book is not the same as a missing one
	z := sums[2]
	assert.Equal(t, 0.0, z.OptionValue)
	assert.Equal(t, 50.0, z.EffectiveDepth)
	assert.Equal(t, 0.0, z.MMEfficiency)
	assert.Equal(t, 0.0, z.DepthCoverage)
	assert.Equal(t, 4, z.RiskScore)
}

func TestOrchestratorAnalyze(t *testing.T) {
	mm, err := NewMarketMakerService(nil)
	require.NoError(t, err)
	o := NewOrchestrator(NewEffectiveDepthService(nil), mm)
	pricer := &stubPricer{values: map[string]float64{"Wintermute": 250_000}}

	a, err := o.Analyze(context.Background(), quotes(), market(), pricer)
	require.NoError(t, err)

	_, err = uuid.Parse(a.RunID)
	assert.NoError(t, err)
	assert.Equal(t, 2, pricer.calls)
	assert.Equal(t, map[string]float64{"Wintermute": 250_000}, a.OptionValues)
	assert.Len(t, a.Valuations, 3)
	require.Len(t, a.Summaries, 2)
	assert.Equal(t, "Wintermute", a.Summaries[0].Entity)
	assert.Equal(t, 1.0, a.Summaries[1].OptionValue)

	total := 0.0
	for _, v := range a.Valuations {
		total += v.NetValue
	}
	assert.InDelta(t, total, a.TotalMMValue, 1e-6)
}

func TestOrchestratorCancelled(t *testing.T) {
	mm, err := NewMarketMakerService(nil)
	require.NoError(t, err)
	o := NewOrchestrator(NewEffectiveDepthService(nil), mm)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = o.Analyze(ctx, quotes(), market(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}
