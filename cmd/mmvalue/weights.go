package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newWeightsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "weights [preset]",
		Short: "Show model weights presets",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := a.weights.Names()
			if len(args) == 1 {
				names = args
			}

			if a.jsonOut {
				presets := make(map[string]interface{}, len(names))
				for _, name := range names {
					w, err := a.weights.Get(name)
					if err != nil {
						return err
					}
					presets[name] = w
				}
				return writeJSON(out, presets)
			}

			for i, name := range names {
				summary, err := a.weights.Summary(name)
				if err != nil {
					return err
				}
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprint(out, summary)
			}
			return nil
		},
	}
}
