// SPDX-License-Identifier: MIT
package cmd

import (
	"fmt"
	"math"
	"text/tabwriter"

	"pav/internal/analysis"

	"github.com/spf13/cobra"
)

func newMelCommand(opts *options) *cobra.Command {
	var minFreq, maxFreq float64

	melCmd := &cobra.Command{
		Use:   "mel",
		Short: "Print the Mel filter bank layout",
		Long: `Mel prints the edges and center of every triangular filter.

The bank spans --min to --max Hz, by default 0 to half the sample rate
rounded down, and has --bands filters.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := opts.cfg.Analysis
			if !cmd.Flags().Changed("max") {
				// Same upper edge as the banks the engine builds.
				maxFreq = math.Floor(a.SampleRate / 2)
				if maxFreq <= minFreq {
					return fmt.Errorf("%w: sample rate %v Hz is too low for a Mel filter bank above %v Hz",
						analysis.ErrInvalidArgument, a.SampleRate, minFreq)
				}
			}
			bank, err := analysis.NewMelFilterBank(minFreq, maxFreq, a.MelBands)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "band\tmin Hz\tcenter Hz\tmax Hz\t")
			for i, f := range bank.Filters() {
				fmt.Fprintf(w, "%d\t%.1f\t%.1f\t%.1f\t\n", i,
					analysis.MelToFreq(f.MelMin),
					analysis.MelToFreq(f.MelCenter),
					analysis.MelToFreq(f.MelMax))
			}
			return w.Flush()
		},
	}
	melCmd.Flags().Float64Var(&minFreq, "min", 0, "Lower edge of the bank in Hz")
	melCmd.Flags().Float64Var(&maxFreq, "max", 0, "Upper edge of the bank in Hz. Default is half the sample rate")
	return melCmd
}
