package app

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dcxht/LOOPAVGER/configs"
	"gopkg.in/yaml.v3"
)

// RunConfig describes one analysis run: the recordings to process and
// per-subject constants that are awkward to carry on flags
type RunConfig struct {
	Version     string    `json:"version" yaml:"version"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`

	// Recordings lists input files; entries may contain glob patterns.
	Recordings []string `json:"recordings,omitempty" yaml:"recordings,omitempty"`

	// TLC maps subject identifiers or recording paths to total lung
	// capacity in liters.
	TLC map[string]float64 `json:"tlc,omitempty" yaml:"tlc,omitempty"`

	// MeanShift replaces the per-recording computed junction shift
	// when set.
	MeanShift *float64 `json:"mean_shift,omitempty" yaml:"mean_shift,omitempty"`
}

// Validate checks the run configuration for consistency
func (c *RunConfig) Validate() error {
	for subject, tlc := range c.TLC {
		if tlc <= 0 {
			return fmt.Errorf("TLC for subject %s must be positive, got %g", subject, tlc)
		}
	}

	return nil
}

// loadRunConfigFromFile loads a run configuration from a file
func loadRunConfigFromFile(filePath string) (*RunConfig, error) {
	// Check if file exists
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("run configuration file does not exist: %s", filePath)
	}

	// Determine file format
	ext := filepath.Ext(filePath)
	switch ext {
	case ".yaml", ".yml":
		return loadRunConfigFromYAML(filePath)
	case ".json":
		return loadRunConfigFromJSON(filePath)
	default:
		// Try YAML first, then JSON
		if cfg, err := loadRunConfigFromYAML(filePath); err == nil {
			return cfg, nil
		}
		return loadRunConfigFromJSON(filePath)
	}
}

// loadRunConfigFromYAML loads a run config from YAML file
func loadRunConfigFromYAML(filePath string) (*RunConfig, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open YAML run config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read YAML run config file: %w", err)
	}

	var config RunConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML run config: %w", err)
	}

	return &config, nil
}

// loadRunConfigFromJSON loads a run config from JSON file
func loadRunConfigFromJSON(filePath string) (*RunConfig, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open JSON run config file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read JSON run config file: %w", err)
	}

	var config RunConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse JSON run config: %w", err)
	}

	return &config, nil
}

// GenerateExampleConfig generates an example application configuration file
func GenerateExampleConfig(outputFile string) error {
	exampleConfig := configs.GetDefaultConfig()

	// Write to YAML file
	data, err := yaml.Marshal(exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("✅ Example application configuration written to: %s\n", outputFile)
	return nil
}

// GenerateExampleRunConfig generates an example run configuration file
func GenerateExampleRunConfig(outputFile string) error {
	exampleConfig := &RunConfig{
		Version:     "1.0",
		Description: "Example flow-volume averaging run",
		UpdatedAt:   time.Now().UTC(),
		Recordings: []string{
			"recordings/001_formatted.csv",
			"recordings/002_formatted.csv",
			"recordings/session2/*_formatted.csv",
		},
		TLC: map[string]float64{
			"001": 5.32,
			"002": 4.87,
		},
	}

	// Write to YAML file
	data, err := yaml.Marshal(exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example run config: %w", err)
	}

	header := `# Flow-volume averaging run configuration.
# Recordings may use glob patterns. TLC values are total lung capacity
# in liters, keyed by subject ID or by recording path. Add mean_shift
# to pin the junction alignment instead of computing it per recording.

`

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, append([]byte(header), data...), 0644); err != nil {
		return fmt.Errorf("failed to write run config file: %w", err)
	}

	fmt.Printf("✅ Example run configuration written to: %s\n", outputFile)
	return nil
}

// ValidateAppConfig validates an application configuration file
func ValidateAppConfig(configFile string) error {
	config, err := configs.LoadConfigFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Printf("✅ Application configuration is valid: %s\n", configFile)
	fmt.Printf("   - Resampling intervals: %d\n", config.Resampling.Intervals)
	fmt.Printf("   - Look-ahead window: %d samples\n", config.Analysis.LookAhead)
	fmt.Printf("   - Output format: %s\n", config.OutputFormat)

	return nil
}

// ValidateRunConfig validates a run configuration file
func ValidateRunConfig(configFile string) error {
	config, err := loadRunConfigFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load run config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("run configuration validation failed: %w", err)
	}

	fmt.Printf("✅ Run configuration is valid: %s\n", configFile)
	fmt.Printf("   - %d recordings listed\n", len(config.Recordings))
	fmt.Printf("   - %d TLC entries\n", len(config.TLC))
	if config.MeanShift != nil {
		fmt.Printf("   - Fixed mean shift: %g L\n", *config.MeanShift)
	}

	return nil
}
