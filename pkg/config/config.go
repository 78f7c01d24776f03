// Package config provides configuration loading and management for roi2bb.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Label strategy names
const (
	StrategyDynamic = "dynamic"
	StrategyStatic  = "static"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Mode selects the coordinate transform: 3d-center-size, 2d-corner or 2d-projection
		Mode string `yaml:"mode"`

		// ContinueOnError keeps converting remaining files after a failure
		// instead of aborting the batch
		ContinueOnError bool `yaml:"continueOnError"`
	} `yaml:"processing"`

	// Class label parameters
	Labels struct {
		// Strategy is "dynamic" (built from the batch filenames) or "static" (Classes table)
		Strategy string `yaml:"strategy"`

		// IndexBase is the first index assigned by the dynamic strategy
		IndexBase int `yaml:"indexBase"`

		// Classes is the fixed name to index table used by the static strategy
		Classes map[string]int `yaml:"classes"`
	} `yaml:"labels"`

	// Image parameters
	Image struct {
		// Format forces a metadata provider instead of detecting it from the extension
		Format string `yaml:"format"`
	} `yaml:"image"`

	// Output parameters
	Output struct {
		// Precision is the number of decimals written per coordinate
		Precision int `yaml:"precision"`

		// ClassNamesFile, when set, receives the class names one per line in index order
		ClassNamesFile string `yaml:"classNamesFile"`

		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Mode = "3d-center-size"
	cfg.Processing.ContinueOnError = false

	cfg.Labels.Strategy = StrategyDynamic
	cfg.Labels.IndexBase = 0
	cfg.Labels.Classes = map[string]int{
		"left_atrium": 0,
		"trachea":     1,
		"lymph_node":  2,
	}

	cfg.Output.Precision = 6
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks values that YAML decoding cannot
func (c *Config) Validate() error {
	switch c.Labels.Strategy {
	case StrategyDynamic, StrategyStatic:
	default:
		return fmt.Errorf("labels.strategy must be %q or %q, got %q", StrategyDynamic, StrategyStatic, c.Labels.Strategy)
	}
	if c.Labels.IndexBase != 0 && c.Labels.IndexBase != 1 {
		return fmt.Errorf("labels.indexBase must be 0 or 1, got %d", c.Labels.IndexBase)
	}
	if c.Labels.Strategy == StrategyStatic && len(c.Labels.Classes) == 0 {
		return fmt.Errorf("labels.classes must not be empty for the static strategy")
	}
	if c.Output.Precision < 0 || c.Output.Precision > 17 {
		return fmt.Errorf("output.precision must be between 0 and 17, got %d", c.Output.Precision)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// A classes table in the file replaces the default table instead of merging into it
	cfg.Labels.Classes = nil

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}
	if cfg.Labels.Classes == nil {
		cfg.Labels.Classes = DefaultConfig().Labels.Classes
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
