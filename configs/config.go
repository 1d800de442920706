package configs

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	// Application settings
	Verbose      bool   `mapstructure:"verbose" yaml:"verbose"`
	LogLevel     string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`

	// Breath detection configuration
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`

	// Bin resampling configuration
	Resampling ResamplingConfig `mapstructure:"resampling" yaml:"resampling"`

	// Recording column detection configuration
	Input InputConfig `mapstructure:"input" yaml:"input"`

	// Result table configuration
	Output OutputConfig `mapstructure:"output" yaml:"output"`

	// Raw export reshaping configuration. The section is named
	// "formatter" so the --format flag cannot shadow it in viper.
	Format FormatConfig `mapstructure:"formatter" yaml:"formatter"`

	// TLC normalization configuration, named "tlc_output" to keep clear
	// of the tlc command's --tlc flag.
	TLC TLCConfig `mapstructure:"tlc_output" yaml:"tlc_output"`
}

// AnalysisConfig contains breath detection settings
type AnalysisConfig struct {
	LookAhead           int  `mapstructure:"look_ahead" yaml:"look_ahead"`
	LookBackWidth       int  `mapstructure:"look_back_width" yaml:"look_back_width"`
	LookBackOffset      int  `mapstructure:"look_back_offset" yaml:"look_back_offset"`
	MinPhaseSamples     int  `mapstructure:"min_phase_samples" yaml:"min_phase_samples"`
	InspirationPositive bool `mapstructure:"inspiration_positive" yaml:"inspiration_positive"`
	MaxConcurrent       int  `mapstructure:"max_concurrent" yaml:"max_concurrent"`
}

// ResamplingConfig contains bin resampling settings
type ResamplingConfig struct {
	Intervals int `mapstructure:"intervals" yaml:"intervals"`
}

// InputConfig contains column detection settings for recording tables
type InputConfig struct {
	TimePatterns   []string `mapstructure:"time_patterns" yaml:"time_patterns"`
	VolumePatterns []string `mapstructure:"volume_patterns" yaml:"volume_patterns"`
	FlowPatterns   []string `mapstructure:"flow_patterns" yaml:"flow_patterns"`
}

// OutputConfig contains result table settings
type OutputConfig struct {
	Directory      string `mapstructure:"directory" yaml:"directory"`
	Precision      int    `mapstructure:"precision" yaml:"precision"`
	IncludeRawData bool   `mapstructure:"include_raw_data" yaml:"include_raw_data"`
}

// FormatConfig contains raw export reshaping settings
type FormatConfig struct {
	FlowMarker     string  `mapstructure:"flow_marker" yaml:"flow_marker"`
	VolumeMarker   string  `mapstructure:"volume_marker" yaml:"volume_marker"`
	SampleInterval float64 `mapstructure:"sample_interval" yaml:"sample_interval"`
	OutputSuffix   string  `mapstructure:"output_suffix" yaml:"output_suffix"`
}

// TLCConfig contains TLC normalization settings
type TLCConfig struct {
	OutputSuffix string `mapstructure:"output_suffix" yaml:"output_suffix"`
	Combined     bool   `mapstructure:"combined" yaml:"combined"`
}

// LoadConfig loads configuration from viper
func LoadConfig() (*Config, error) {
	config := &Config{}

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// LoadConfigFromFile loads configuration from a specific file using a
// private viper instance, leaving the global one untouched
func LoadConfigFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %w", err)
	}

	SetDefaults(v)

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode configuration: %w", err)
	}

	return config, nil
}

// ValidateConfig validates the configuration
func ValidateConfig(config *Config) error {
	if config.Resampling.Intervals <= 0 {
		return fmt.Errorf("resampling intervals must be positive")
	}

	if config.Analysis.LookAhead <= 0 {
		return fmt.Errorf("look-ahead window must be positive")
	}

	if config.Analysis.LookBackWidth <= 0 {
		return fmt.Errorf("look-back width must be positive")
	}

	if config.Analysis.LookBackOffset < config.Analysis.LookBackWidth {
		return fmt.Errorf("look-back offset must be at least the look-back width")
	}

	if config.Analysis.MinPhaseSamples < 1 {
		return fmt.Errorf("minimum phase samples must be at least 1")
	}

	if config.Analysis.MaxConcurrent < 0 {
		return fmt.Errorf("max concurrent recordings cannot be negative")
	}

	if config.Output.Precision < -1 {
		return fmt.Errorf("output precision must be -1 or a digit count")
	}

	if config.Format.SampleInterval <= 0 {
		return fmt.Errorf("format sample interval must be positive")
	}

	if len(config.Input.TimePatterns) == 0 ||
		len(config.Input.VolumePatterns) == 0 ||
		len(config.Input.FlowPatterns) == 0 {
		return fmt.Errorf("input column patterns cannot be empty")
	}

	switch config.OutputFormat {
	case "summary", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output format: %s", config.OutputFormat)
	}

	return nil
}
