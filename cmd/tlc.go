package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dcxht/LOOPAVGER/internal/app"
)

var (
	// TLC command flags
	tlcValues    []float64
	tlcRunConfig string
	tlcCombined  bool
	tlcSeparate  bool
)

// tlcCmd represents the tlc command
var tlcCmd = &cobra.Command{
	Use:   "tlc [vol-bin-tables...]",
	Short: "Normalize averaged loops by total lung capacity",
	Long: `Convert averaged volume-bin tables into flow-volume loops with volume
expressed as a percentage of each subject's total lung capacity (TLC).

Inputs are the _vol_bins tables written by analyze. TLC values pair with
files positionally via --tlc (one value per file, or a single shared
value), or come from a run configuration keyed by subject ID.

The default combined layout writes four comparison tables: individual
loops side by side, the cross-subject average, the average rescaled to
absolute liters, and the normalized average with per-row SD. With
--separate each subject gets its own table instead.

Examples:
  # Two subjects with explicit TLC values
  loopavg tlc --tlc 5.32,4.87 001_vol_bins.csv 002_vol_bins.csv

  # TLC values from a run configuration
  loopavg tlc --run-config run.yaml results/*_vol_bins.csv

  # Per-subject tables instead of the comparison set
  loopavg tlc --separate --tlc 5.32 001_vol_bins.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTLC,
}

func init() {
	rootCmd.AddCommand(tlcCmd)

	tlcCmd.Flags().Float64SliceVar(&tlcValues, "tlc", nil,
		"total lung capacity in liters, one per file or a single shared value")
	tlcCmd.Flags().StringVar(&tlcRunConfig, "run-config", "",
		"run configuration file with per-subject TLC values")
	tlcCmd.Flags().BoolVar(&tlcCombined, "combined", false,
		"write the combined comparison tables (the default layout)")
	tlcCmd.Flags().BoolVar(&tlcSeparate, "separate", false,
		"write one table per subject instead of the comparison set")
}

func runTLC(cmd *cobra.Command, args []string) error {
	ctx := appContext(cmd)
	ctx.RunConfigFile = tlcRunConfig
	ctx.Combined = tlcCombined
	ctx.Separate = tlcSeparate

	application, err := app.NewApp(ctx)
	if err != nil {
		return err
	}

	return application.RunTLC(args, tlcValues)
}
