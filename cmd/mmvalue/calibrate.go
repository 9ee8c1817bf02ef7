package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sawpanic/mmvalue/internal/valuation/composite"
)

func newCalibrateCmd(a *app) *cobra.Command {
	var volumes []float64

	cmd := &cobra.Command{
		Use:   "calibrate",
		Short: "Run the calibration harness",
		Long: fmt.Sprintf(`Value the reference small-cap scenario at each daily volume with the crypto
preset and check the result lands in the %.0f-%.0f%% band of daily volume.`,
			composite.HarnessMinPct, composite.HarnessMaxPct),
		RunE: func(cmd *cobra.Command, _ []string) error {
			rows, err := a.valuator().RunHarness(volumes)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if a.jsonOut {
				return writeJSON(out, rows)
			}

			fmt.Fprintf(out, "%s\n\n", header("Calibration harness"))
			fmt.Fprintf(out, "  %16s %16s %9s %9s %10s\n", "daily volume", "value", "pct", "target", "correction")
			failed := 0
			for _, r := range rows {
				fmt.Fprintf(out, "  %16s %16s %9s %9s %10.4f  %s\n",
					usd(r.DailyVolume), usd(r.TotalValue), pct(r.Pct, 2), pct(r.TargetPct, 2), r.Correction, rangeBadge(r.InRange))
				if !r.InRange {
					failed++
				}
			}
			if failed > 0 {
				fmt.Fprintf(out, "\n  %d of %d volumes outside the target band\n", failed, len(rows))
			}
			return nil
		},
	}

	cmd.Flags().Float64SliceVar(&volumes, "volumes", composite.DefaultHarnessVolumes, "Daily volumes to sweep")
	return cmd
}
