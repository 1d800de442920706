package configs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaults(t *testing.T) {
	t.Run("fills every key on a fresh instance", func(t *testing.T) {
		v := viper.New()
		SetDefaults(v)

		config := &Config{}
		require.NoError(t, v.Unmarshal(config))
		assert.Equal(t, GetDefaultConfig(), config)
	})

	t.Run("keeps values that are already set", func(t *testing.T) {
		v := viper.New()
		v.Set("analysis.look_ahead", 12)
		v.Set("output_format", "json")
		SetDefaults(v)

		config := &Config{}
		require.NoError(t, v.Unmarshal(config))
		assert.Equal(t, 12, config.Analysis.LookAhead)
		assert.Equal(t, "json", config.OutputFormat)
		assert.Equal(t, 20, config.Analysis.LookBackWidth)
	})
}

func TestLoadConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("log_level", "warn")
	viper.Set("resampling.intervals", 25)

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "warn", config.LogLevel)
	assert.Equal(t, 25, config.Resampling.Intervals)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Run("merges file values over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "loopavg.yaml")
		content := `log_level: debug
analysis:
  look_ahead: 12
  look_back_width: 6
  look_back_offset: 13
resampling:
  intervals: 40
formatter:
  sample_interval: 0.02
tlc_output:
  combined: false
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		config, err := LoadConfigFromFile(path)
		require.NoError(t, err)

		assert.Equal(t, "debug", config.LogLevel)
		assert.Equal(t, 12, config.Analysis.LookAhead)
		assert.Equal(t, 6, config.Analysis.LookBackWidth)
		assert.Equal(t, 40, config.Resampling.Intervals)
		assert.Equal(t, 0.02, config.Format.SampleInterval)

		// An explicit false in the file counts as set and must not be
		// overwritten by the true default.
		assert.False(t, config.TLC.Combined)

		// Keys the file never mentions fall back to defaults.
		assert.Equal(t, "summary", config.OutputFormat)
		assert.Equal(t, 2, config.Analysis.MinPhaseSamples)
		assert.Equal(t, "_formatted", config.Format.OutputSuffix)
		assert.Equal(t, []string{"time"}, config.Input.TimePatterns)

		require.NoError(t, ValidateConfig(config))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read configuration file")
	})
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "default configuration passes",
			mutate: func(c *Config) {},
		},
		{
			name:    "zero resampling intervals",
			mutate:  func(c *Config) { c.Resampling.Intervals = 0 },
			wantErr: "resampling intervals must be positive",
		},
		{
			name:    "zero look-ahead window",
			mutate:  func(c *Config) { c.Analysis.LookAhead = 0 },
			wantErr: "look-ahead window must be positive",
		},
		{
			name:    "zero look-back width",
			mutate:  func(c *Config) { c.Analysis.LookBackWidth = 0 },
			wantErr: "look-back width must be positive",
		},
		{
			name:    "look-back window extending past the crossing",
			mutate:  func(c *Config) { c.Analysis.LookBackOffset = 10 },
			wantErr: "look-back offset must be at least the look-back width",
		},
		{
			name:    "zero minimum phase samples",
			mutate:  func(c *Config) { c.Analysis.MinPhaseSamples = 0 },
			wantErr: "minimum phase samples must be at least 1",
		},
		{
			name:    "negative max concurrent",
			mutate:  func(c *Config) { c.Analysis.MaxConcurrent = -1 },
			wantErr: "max concurrent recordings cannot be negative",
		},
		{
			name:    "precision below the shortest-form sentinel",
			mutate:  func(c *Config) { c.Output.Precision = -2 },
			wantErr: "output precision must be -1 or a digit count",
		},
		{
			name:    "zero sample interval",
			mutate:  func(c *Config) { c.Format.SampleInterval = 0 },
			wantErr: "format sample interval must be positive",
		},
		{
			name:    "empty volume patterns",
			mutate:  func(c *Config) { c.Input.VolumePatterns = nil },
			wantErr: "input column patterns cannot be empty",
		},
		{
			name:    "unsupported output format",
			mutate:  func(c *Config) { c.OutputFormat = "xml" },
			wantErr: "unsupported output format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := GetDefaultConfig()
			tt.mutate(config)

			err := ValidateConfig(config)
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestGetDefaultOutputConfigForFormat(t *testing.T) {
	assert.Equal(t, 3, GetDefaultOutputConfigForFormat("summary").Precision)
	assert.Equal(t, 6, GetDefaultOutputConfigForFormat("json").Precision)
	assert.Equal(t, 6, GetDefaultOutputConfigForFormat("yaml").Precision)
	assert.Equal(t, 6, GetDefaultOutputConfigForFormat("unknown").Precision)
}

func TestAnalysisPresets(t *testing.T) {
	t.Run("strict widens every validation window", func(t *testing.T) {
		cfg := StrictAnalysisConfig()
		assert.Equal(t, 50, cfg.LookAhead)
		assert.Equal(t, 30, cfg.LookBackWidth)
		assert.Equal(t, 61, cfg.LookBackOffset)
		assert.Equal(t, 4, cfg.MinPhaseSamples)
	})

	t.Run("relaxed narrows them for clean recordings", func(t *testing.T) {
		cfg := RelaxedAnalysisConfig()
		assert.Equal(t, 10, cfg.LookAhead)
		assert.Equal(t, 8, cfg.LookBackWidth)
		assert.Equal(t, 17, cfg.LookBackOffset)
		assert.Equal(t, 2, cfg.MinPhaseSamples)
	})

	t.Run("resampling presets bracket the default", func(t *testing.T) {
		assert.Equal(t, 1000, HighResolutionResamplingConfig().Intervals)
		assert.Equal(t, 20, ScreeningResamplingConfig().Intervals)
	})
}
