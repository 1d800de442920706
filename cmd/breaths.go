package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dcxht/LOOPAVGER/internal/app"
)

// breathsCmd represents the breaths command
var breathsCmd = &cobra.Command{
	Use:   "breaths [recording]",
	Short: "List detected breaths in a single recording",
	Long: `Detect breaths in one recording and print a per-breath table of phase
durations and tidal volumes. Only the breath summary file is written;
the bin pipeline outputs are skipped.

Examples:
  # Inspect breath detection on one recording
  loopavg breaths session1.csv

  # Tuned detection windows via a config file
  loopavg breaths --config strict.yaml session1.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runBreaths,
}

func init() {
	rootCmd.AddCommand(breathsCmd)
}

func runBreaths(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(appContext(cmd))
	if err != nil {
		return err
	}

	return application.RunBreaths(cmd.Context(), args[0])
}
