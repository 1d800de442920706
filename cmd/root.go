package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dcxht/LOOPAVGER/configs"
	"github.com/dcxht/LOOPAVGER/internal/app"
)

var (
	configFile   string
	verbose      bool
	quiet        bool
	logLevel     string
	outputDir    string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "loopavg",
	Short: "Flow-volume loop averaging for respiratory recordings",
	Long: `Breath detection and averaging for respiratory flow/volume recordings.

Recordings are segmented into breaths at flow zero crossings, every
breath is resampled onto fixed time and volume grids, and the grids are
averaged across breaths with their spread per bin.

Key features:
- Zero-crossing breath detection with noise-tolerant hold windows
- Per-phase resampling onto time bins and volume bins
- Cross-breath averaging with SD and SEM per bin
- Raw spirometry export reshaping into analyzable tables
- Averaged loop normalization by total lung capacity (TLC)`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initializeConfig(cmd)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global persistent flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"config file (default is $HOME/.config/loopavg/loopavg.yaml)")

	// Output and logging flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress console output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "d", "",
		"directory for result tables (default is next to each recording)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "summary",
		"session report format (summary, json, yaml)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("output.directory", rootCmd.PersistentFlags().Lookup("output-dir"))
}

// initConfig reads in config file and ENV variables if set
func initConfig() {
	if configFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(configFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		// Search config in the working directory, home and /etc
		viper.AddConfigPath(".")
		viper.AddConfigPath(filepath.Join(home, ".config", "loopavg"))
		viper.AddConfigPath("/etc/loopavg")
		viper.AddConfigPath("./configs")
		viper.SetConfigName("loopavg")
		viper.SetConfigType("yaml")
	}

	// Environment variable support
	viper.SetEnvPrefix("LOOPAVG")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Fill defaults for everything the file left unset. This must run
	// after reading so the IsSet guards see the file's values.
	configs.SetDefaults(viper.GetViper())
}

// initializeConfig initializes configuration after flags are parsed
func initializeConfig(cmd *cobra.Command) error {
	// Bind all flags to viper
	return bindFlags(cmd, viper.GetViper())
}

// bindFlags binds each cobra flag to its associated viper configuration
func bindFlags(cmd *cobra.Command, v *viper.Viper) error {
	var lastErr error

	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variable name
		envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))

		// Apply the viper config value to the flag when the flag is not set and viper has a value
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if err := cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val)); err != nil {
				lastErr = err
			}
		}

		// Bind the flag to viper
		if err := v.BindPFlag(f.Name, f); err != nil {
			lastErr = err
		}

		// Bind to environment variable
		if err := v.BindEnv(f.Name, "LOOPAVG_"+envVarSuffix); err != nil {
			lastErr = err
		}
	})

	return lastErr
}

// appContext assembles the shared application context from the
// persistent flags. Values also flow in through viper; only explicitly
// changed flags are carried here so config file settings survive.
func appContext(cmd *cobra.Command) *app.Context {
	ctx := &app.Context{
		ConfigFile: configFile,
		Verbose:    verbose || viper.GetBool("verbose"),
		Quiet:      quiet,
	}

	flags := cmd.Flags()
	if flags.Changed("output-dir") {
		ctx.OutputDir = outputDir
	}
	if flags.Changed("format") {
		ctx.OutputFormat = outputFormat
	}

	return ctx
}
