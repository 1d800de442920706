package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dcxht/LOOPAVGER/internal/app"
)

// formatCmd represents the format command
var formatCmd = &cobra.Command{
	Use:   "format [files...]",
	Short: "Reshape raw spirometry exports into recording tables",
	Long: `Convert raw acquisition exports into Time,Vol,Flow recording tables.

Raw exports stack a flow block and a volume block vertically, each
introduced by a unit marker row. The blocks are paired sample by sample
and written side by side under a synthetic time column.

Examples:
  # Reshape one export next to the original
  loopavg format subject_001.csv

  # Reshape a batch into a separate directory
  loopavg format --output-dir formatted/ raw/*.csv`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFormat,
}

func init() {
	rootCmd.AddCommand(formatCmd)
}

func runFormat(cmd *cobra.Command, args []string) error {
	application, err := app.NewApp(appContext(cmd))
	if err != nil {
		return err
	}

	return application.RunFormat(args)
}
