package configs

import (
	"github.com/spf13/viper"
)

// SetDefaults fills in default values for every key the configuration
// file left unset. Keys bound to command-line flags report as set and
// keep their flag values.
func SetDefaults(v *viper.Viper) {
	// Application defaults
	if !v.IsSet("verbose") {
		v.Set("verbose", false)
	}
	if !v.IsSet("log_level") {
		v.Set("log_level", "info")
	}
	if !v.IsSet("output_format") {
		v.Set("output_format", "summary")
	}

	// Breath detection defaults
	if !v.IsSet("analysis.look_ahead") {
		v.Set("analysis.look_ahead", 30)
	}
	if !v.IsSet("analysis.look_back_width") {
		v.Set("analysis.look_back_width", 20)
	}
	if !v.IsSet("analysis.look_back_offset") {
		v.Set("analysis.look_back_offset", 41)
	}
	if !v.IsSet("analysis.min_phase_samples") {
		v.Set("analysis.min_phase_samples", 2)
	}
	if !v.IsSet("analysis.inspiration_positive") {
		v.Set("analysis.inspiration_positive", false)
	}
	if !v.IsSet("analysis.max_concurrent") {
		v.Set("analysis.max_concurrent", 4)
	}

	// Resampling defaults
	if !v.IsSet("resampling.intervals") {
		v.Set("resampling.intervals", 100)
	}

	// Column detection defaults
	if !v.IsSet("input.time_patterns") {
		v.Set("input.time_patterns", []string{"time"})
	}
	if !v.IsSet("input.volume_patterns") {
		v.Set("input.volume_patterns", []string{"vol"})
	}
	if !v.IsSet("input.flow_patterns") {
		v.Set("input.flow_patterns", []string{"flow"})
	}

	// Result table defaults
	if !v.IsSet("output.directory") {
		v.Set("output.directory", "")
	}
	if !v.IsSet("output.precision") {
		v.Set("output.precision", 6)
	}
	if !v.IsSet("output.include_raw_data") {
		v.Set("output.include_raw_data", false)
	}

	// Raw export reshaping defaults
	if !v.IsSet("formatter.flow_marker") {
		v.Set("formatter.flow_marker", "ltr/s")
	}
	if !v.IsSet("formatter.volume_marker") {
		v.Set("formatter.volume_marker", "ltr")
	}
	if !v.IsSet("formatter.sample_interval") {
		v.Set("formatter.sample_interval", 0.01)
	}
	if !v.IsSet("formatter.output_suffix") {
		v.Set("formatter.output_suffix", "_formatted")
	}

	// TLC normalization defaults
	if !v.IsSet("tlc_output.output_suffix") {
		v.Set("tlc_output.output_suffix", "_TLC_percent")
	}
	if !v.IsSet("tlc_output.combined") {
		v.Set("tlc_output.combined", true)
	}
}

// GetDefaultConfig returns a Config struct with all default values set
func GetDefaultConfig() *Config {
	return &Config{
		// Application settings defaults
		Verbose:      false,
		LogLevel:     "info",
		OutputFormat: "summary",

		// Breath detection defaults
		Analysis: GetDefaultAnalysisConfig(),

		// Bin resampling defaults
		Resampling: GetDefaultResamplingConfig(),

		// Column detection defaults
		Input: GetDefaultInputConfig(),

		// Result table defaults
		Output: GetDefaultOutputConfig(),

		// Raw export reshaping defaults
		Format: GetDefaultFormatConfig(),

		// TLC normalization defaults
		TLC: GetDefaultTLCConfig(),
	}
}

// GetDefaultAnalysisConfig returns default breath detection settings
func GetDefaultAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		LookAhead:           30,
		LookBackWidth:       20,
		LookBackOffset:      41,
		MinPhaseSamples:     2,
		InspirationPositive: false,
		MaxConcurrent:       4,
	}
}

// GetDefaultResamplingConfig returns default bin resampling settings
func GetDefaultResamplingConfig() ResamplingConfig {
	return ResamplingConfig{
		Intervals: 100,
	}
}

// GetDefaultInputConfig returns default column detection settings
func GetDefaultInputConfig() InputConfig {
	return InputConfig{
		TimePatterns:   []string{"time"},
		VolumePatterns: []string{"vol"},
		FlowPatterns:   []string{"flow"},
	}
}

// GetDefaultOutputConfig returns default result table settings
func GetDefaultOutputConfig() OutputConfig {
	return OutputConfig{
		Directory:      "",
		Precision:      6,
		IncludeRawData: false,
	}
}

// GetDefaultFormatConfig returns default raw export reshaping settings
func GetDefaultFormatConfig() FormatConfig {
	return FormatConfig{
		FlowMarker:     "ltr/s",
		VolumeMarker:   "ltr",
		SampleInterval: 0.01,
		OutputSuffix:   "_formatted",
	}
}

// GetDefaultTLCConfig returns default TLC normalization settings
func GetDefaultTLCConfig() TLCConfig {
	return TLCConfig{
		OutputSuffix: "_TLC_percent",
		Combined:     true,
	}
}

// StrictAnalysisConfig returns detection settings tuned for noisy
// recordings, holding crossings to longer sign runs before accepting them
func StrictAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		LookAhead:           50,
		LookBackWidth:       30,
		LookBackOffset:      61,
		MinPhaseSamples:     4,
		InspirationPositive: false,
		MaxConcurrent:       4,
	}
}

// RelaxedAnalysisConfig returns detection settings for clean bench
// recordings where short sign runs are trustworthy
func RelaxedAnalysisConfig() AnalysisConfig {
	return AnalysisConfig{
		LookAhead:           10,
		LookBackWidth:       8,
		LookBackOffset:      17,
		MinPhaseSamples:     2,
		InspirationPositive: false,
		MaxConcurrent:       4,
	}
}

// HighResolutionResamplingConfig returns fine-grained bin settings for
// averaging long steady recordings
func HighResolutionResamplingConfig() ResamplingConfig {
	return ResamplingConfig{
		Intervals: 1000,
	}
}

// ScreeningResamplingConfig returns coarse bin settings for quick looks
func ScreeningResamplingConfig() ResamplingConfig {
	return ResamplingConfig{
		Intervals: 20,
	}
}

// GetDefaultOutputConfigForFormat returns output config optimized for specific format
func GetDefaultOutputConfigForFormat(format string) OutputConfig {
	base := GetDefaultOutputConfig()

	switch format {
	case "json", "yaml":
		base.Precision = 6
	case "summary":
		base.Precision = 3
	default:
		// Keep defaults
	}

	return base
}
