package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/sawpanic/mmvalue/internal/config/weights"
	"github.com/sawpanic/mmvalue/internal/domain/valuation"
	"github.com/sawpanic/mmvalue/internal/validation"
	"github.com/sawpanic/mmvalue/internal/valuation/composite"
	"github.com/sawpanic/mmvalue/internal/valuation/distribution"
)

type valueOptions struct {
	params  valuation.MarketParameters
	spec    distribution.Spec
	dist    string
	input   string
	preset  string
	market  string
	harness float64
}

func newValueCmd(a *app) *cobra.Command {
	o := &valueOptions{spec: distribution.DefaultSpec()}

	cmd := &cobra.Command{
		Use:   "value",
		Short: "Run a composite market-maker valuation",
		Long: `Blend the eight valuation models with a weights preset and calibrate the
result against daily volume. Parameters come from flags, a YAML file
(--input) or the calibration scenario at a given daily volume (--harness).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runValue(cmd, o)
		},
	}

	addMarketFlags(cmd.Flags(), &o.params)
	cmd.Flags().Float64Var(&o.spec.MinSize, "min-size", o.spec.MinSize, "Smallest trade size (USD)")
	cmd.Flags().Float64Var(&o.spec.MaxSize, "max-size", o.spec.MaxSize, "Largest trade size (USD)")
	cmd.Flags().IntVar(&o.spec.Buckets, "buckets", o.spec.Buckets, "Number of trade size buckets")
	cmd.Flags().StringVar(&o.dist, "dist", string(o.spec.Type), "Trade size distribution (log_normal|power_law|uniform)")
	cmd.Flags().StringVar(&o.input, "input", "", "YAML file with market parameters")
	cmd.Flags().StringVar(&o.preset, "preset", "crypto", "Weights preset")
	cmd.Flags().StringVar(&o.market, "market", "crypto", "Validation bounds (crypto|traditional)")
	cmd.Flags().Float64Var(&o.harness, "harness", 0, "Use the calibration scenario at this daily volume")
	return cmd
}

// addMarketFlags binds one flag per market parameter
func addMarketFlags(fs *pflag.FlagSet, p *valuation.MarketParameters) {
	fs.Float64Var(&p.AssetPrice, "price", 0, "Asset price")
	fs.Float64Var(&p.Volatility, "volatility", 0, "Annualized volatility (decimal)")
	fs.Float64Var(&p.RiskFreeRate, "risk-free-rate", 0, "Risk-free rate (decimal)")
	fs.Float64Var(&p.Spread0, "spread0", 0, "Spread without market making (bps)")
	fs.Float64Var(&p.Spread1, "spread1", 0, "Spread with market making (bps)")
	fs.Float64Var(&p.Volume0, "volume0", 0, "Volume without market making")
	fs.Float64Var(&p.VolumeMM, "volume-mm", 0, "Volume added by the market maker")
	fs.Float64Var(&p.Depth0, "depth0", 0, "Depth without market making (USD)")
	fs.Float64Var(&p.DepthMM, "depth-mm", 0, "Depth added by the market maker (USD)")
	fs.Float64Var(&p.DailyVolume0, "daily-volume", 0, "Daily volume without market making (USD)")
	fs.Float64Var(&p.DailyVolumeMM, "daily-volume-mm", 0, "Daily volume added by the market maker (USD)")
	fs.Float64Var(&p.AvgReturn, "avg-return", 0, "Average absolute daily return (decimal)")
}

func (a *app) runValue(cmd *cobra.Command, o *valueOptions) error {
	params, spec := o.params, o.spec

	switch {
	case o.harness > 0:
		params, spec = composite.HarnessScenario(o.harness)
	case o.input != "":
		data, err := os.ReadFile(o.input)
		if err != nil {
			return fmt.Errorf("failed to read parameters: %w", err)
		}
		if err := yaml.Unmarshal(data, &params); err != nil {
			return fmt.Errorf("failed to parse parameters: %w", err)
		}
	}
	if cmd.Flags().Changed("dist") || o.harness == 0 {
		t, err := distribution.ParseType(o.dist)
		if err != nil {
			return err
		}
		spec.Type = t
	}

	dist, err := distribution.Generate(spec)
	if err != nil {
		return err
	}

	w, err := a.weights.Get(o.preset)
	if err != nil {
		return err
	}
	opts := composite.Options{Weights: &w}
	switch w {
	case weights.Crypto():
		opts = composite.Options{UseCryptoWeights: true}
	case weights.Traditional():
		opts = composite.Options{}
	}

	result, err := a.valuator().Valuate(params, dist, opts)
	if err != nil {
		return err
	}
	summary := validation.NewValidator(validation.MarketType(o.market), &a.tuning.Bounds).
		ValidateMarketMaker(params.DailyVolume0, params.AssetPrice, params.Volatility, params.DailyVolumeMM)

	out := cmd.OutOrStdout()
	if a.jsonOut {
		return writeJSON(out, struct {
			Result     *valuation.CompositeResult `json:"result"`
			Validation *validation.Summary        `json:"validation"`
		}{result, summary})
	}

	fmt.Fprintf(out, "%s %s\n\n", header(result.Label), usd(result.TotalValue))
	for _, r := range result.Models {
		if !r.Enabled {
			fmt.Fprintf(out, "  %-34s %16s\n", r.Name, "-")
			continue
		}
		fmt.Fprintf(out, "  %-34s %16s  weight %s\n", r.Name, usd(r.TotalValue), pct(result.Weights.Get(r.Model)*100, 1))
	}

	c := result.Calibration
	fmt.Fprintf(out, "\n%s\n", header("Calibration"))
	fmt.Fprintf(out, "  raw %.6g  scaled %s  current %s  target %s  correction %.4f\n",
		c.RawValue, usd(c.ScaledValue), pct(c.CurrentPct, 2), pct(c.TargetPct, 2), c.Correction)
	if c.Fallback {
		fmt.Fprintf(out, "  %s blended value was not positive, using the target percentage\n", warnBadge("fallback"))
	}
	if c.Clamped {
		fmt.Fprintf(out, "  %s correction hit its bounds\n", warnBadge("clamped"))
	}
	fmt.Fprintf(out, "  %s of daily volume\n", pct(result.PercentOfDailyVolume(), 2))

	printValidation(out, summary)
	return nil
}
