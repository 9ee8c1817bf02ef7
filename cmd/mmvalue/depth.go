package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sawpanic/mmvalue/internal/config/tuning"
	"github.com/sawpanic/mmvalue/internal/microstructure"
	"github.com/sawpanic/mmvalue/internal/validation"
)

type depthOptions struct {
	depth50, depth100, depth200 float64
	spreadBps                   float64
	volatility                  float64
	price                       float64
	exchange                    string
	orderbooks                  []string
	compare                     bool
}

func newDepthCmd(a *app) *cobra.Command {
	o := &depthOptions{}

	cmd := &cobra.Command{
		Use:   "depth",
		Short: "Compute crypto effective depth for one venue quote",
		Long: `Apply the crypto-empirical factor chain to the 50/100/200 bps depth tiers of
one venue quote. With --orderbook the tiers and spread are measured from a
JSON order book snapshot instead of flags. Repeat --orderbook to replay a
sequence of snapshots: each one is valued on the rolling spread of the
snapshots before it, and the last evaluation is reported.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runDepth(cmd, o)
		},
	}

	f := cmd.Flags()
	f.Float64Var(&o.depth50, "d50", 0, "Depth within 50 bps (USD)")
	f.Float64Var(&o.depth100, "d100", 0, "Depth within 100 bps (USD)")
	f.Float64Var(&o.depth200, "d200", 0, "Depth within 200 bps (USD)")
	f.Float64Var(&o.spreadBps, "spread", 0, "Quoted spread (bps)")
	f.Float64Var(&o.volatility, "volatility", 0.25, "Annualized volatility (decimal)")
	f.Float64Var(&o.price, "price", 0, "Asset price, enables depth sanity checks")
	f.StringVar(&o.exchange, "exchange", tuning.OtherExchange, "Venue name")
	f.StringArrayVar(&o.orderbooks, "orderbook", nil, "JSON order book snapshot file, repeatable")
	f.BoolVar(&o.compare, "compare", false, "Compare with flat tier multipliers")
	return cmd
}

func (a *app) runDepth(cmd *cobra.Command, o *depthOptions) error {
	calc := a.depthCalculator()
	out := cmd.OutOrStdout()

	if len(o.orderbooks) > 0 {
		var (
			book *microstructure.OrderBookSnapshot
			eval *microstructure.SnapshotEvaluation
		)
		for _, path := range o.orderbooks {
			var err error
			if book, err = readOrderBook(path); err != nil {
				return err
			}
			if eval, err = calc.EvaluateSnapshot(book, o.volatility); err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
		}
		if a.jsonOut {
			return writeJSON(out, eval)
		}
		printEntity(out, book.Venue+" "+book.Symbol, eval.Entity)
		printSnapshot(out, eval)
		return nil
	}

	summary := validation.NewValidator(validation.MarketCrypto, &a.tuning.Bounds).
		ValidateDepth(o.spreadBps, o.depth50, o.depth100, o.depth200, o.price, o.exchange)

	if o.compare {
		cmp, err := calc.CompareWithSimpleMethod(o.depth50, o.depth100, o.depth200, o.spreadBps, o.volatility, o.exchange)
		if err != nil {
			return err
		}
		if a.jsonOut {
			return writeJSON(out, cmp)
		}
		printEntity(out, o.exchange, cmp.Entity)
		fmt.Fprintf(out, "\n%s\n", header("Method comparison"))
		fmt.Fprintf(out, "  %-22s %16s  %s\n", cmp.Simple.Method, usd(cmp.Simple.EffectiveDepth), pct(cmp.Simple.Efficiency*100, 1))
		fmt.Fprintf(out, "  %-22s %16s  %s\n", cmp.Crypto.Method, usd(cmp.Crypto.EffectiveDepth), pct(cmp.Crypto.Efficiency*100, 1))
		fmt.Fprintf(out, "  improvement %s (%s)\n", usd(cmp.ImprovementAbs), pct(cmp.ImprovementPct, 1))
		printValidation(out, summary)
		return nil
	}

	result, err := calc.CalculateEntityEffectiveDepth(o.depth50, o.depth100, o.depth200, o.spreadBps, o.volatility, o.exchange)
	if err != nil {
		return err
	}
	if a.jsonOut {
		return writeJSON(out, struct {
			Entity     *microstructure.EntityDepthResult `json:"entity"`
			Validation *validation.Summary               `json:"validation"`
		}{result, summary})
	}
	printEntity(out, o.exchange, result)
	printValidation(out, summary)
	return nil
}

func readOrderBook(path string) (*microstructure.OrderBookSnapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order book: %w", err)
	}
	var book microstructure.OrderBookSnapshot
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to parse order book: %w", err)
	}
	return &book, nil
}

func printEntity(out io.Writer, title string, r *microstructure.EntityDepthResult) {
	fmt.Fprintf(out, "%s %s effective of %s raw (%s)\n\n",
		header(title), usd(r.TotalEffectiveDepth), usd(r.TotalRawDepth), pct(r.OverallEfficiency*100, 1))

	for _, tier := range tuning.Tiers {
		t := r.Tiers[tier]
		fmt.Fprintf(out, "  %-7s %16s -> %16s  %s\n", tier, usd(t.RawDepth), usd(t.EffectiveDepth), pct(t.EfficiencyRatio*100, 1))
		if b := t.Breakdown; b != nil {
			fmt.Fprintf(out, "          base %.2f  vol %.3f  spread %.3f  size %.3f  venue %.2f  mev %.2f  cascade %.2f\n",
				b.BaseEfficiency, b.VolAdjustment, b.SpreadAdjust, b.LiquidityBonus, b.ExchangeQuality, b.MEVAdjustment, b.CascadeBonus)
		}
	}
}

func printSnapshot(out io.Writer, e *microstructure.SnapshotEvaluation) {
	sp := e.Spread
	fmt.Fprintf(out, "\n%s\n", header("Spread"))
	fmt.Fprintf(out, "  current %.2f bps  rolling %.2f bps over %d samples  min %.2f  max %.2f  stddev %.2f  %s\n",
		sp.Current.SpreadBps, sp.RollingAvgBps, sp.SampleCount, sp.MinBps, sp.MaxBps, sp.StdDevBps, stableBadge(e.SpreadStable))

	if len(e.Impact) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s\n", header("Sweep of 50 bps effective depth"))
	for _, m := range e.Impact {
		line := fmt.Sprintf("  %-4s %16s filled over %d levels, avg %.6f, slippage %.2f bps",
			m.Side, usd(m.FilledUSD), m.LevelsConsumed, m.AveragePrice, m.SlippageBps)
		if m.InsufficientLiquidity {
			line += "  short " + usd(m.ShortfallUSD)
		}
		fmt.Fprintln(out, line)
	}
}
