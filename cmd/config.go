package cmd

import (
	"github.com/spf13/cobra"

	"github.com/dcxht/LOOPAVGER/internal/app"
)

var (
	// Config command flags
	configExampleOutput string
	configExampleRun    bool
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and scaffold configuration files",
}

// configValidateCmd validates an application configuration file
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate an application configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidate,
}

// configValidateRunCmd validates a run configuration file
var configValidateRunCmd = &cobra.Command{
	Use:   "validate-run [run-config-file]",
	Short: "Validate a run configuration file",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigValidateRun,
}

// configExampleCmd writes example configuration files
var configExampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Write an example configuration file",
	Long: `Write an example configuration file with every setting at its default.

With --run an example run configuration is written instead, showing the
recording list and per-subject TLC map.`,
	RunE: runConfigExample,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configValidateRunCmd)
	configCmd.AddCommand(configExampleCmd)

	configExampleCmd.Flags().StringVarP(&configExampleOutput, "output-file", "o", "loopavg.yaml",
		"where to write the example file")
	configExampleCmd.Flags().BoolVar(&configExampleRun, "run", false,
		"write an example run configuration instead")
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	return app.ValidateAppConfig(args[0])
}

func runConfigValidateRun(cmd *cobra.Command, args []string) error {
	return app.ValidateRunConfig(args[0])
}

func runConfigExample(cmd *cobra.Command, args []string) error {
	output := configExampleOutput
	if configExampleRun {
		if !cmd.Flags().Changed("output-file") {
			output = "run.yaml"
		}
		return app.GenerateExampleRunConfig(output)
	}
	return app.GenerateExampleConfig(output)
}
