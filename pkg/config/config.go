// Package config loads RawKey settings from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ImportConfig controls the raw file importer.
type ImportConfig struct {
	Workers             int     `yaml:"workers"`
	CancelCheckInterval int     `yaml:"cancel_check_interval"`
	ProgressStep        float64 `yaml:"progress_step"`
}

// FilterConfig controls peak filtering before scans are stored.
type FilterConfig struct {
	TopN                int     `yaml:"top_n"`
	IntensityCutoff     float64 `yaml:"intensity_cutoff"`
	RemoveZeroIntensity bool    `yaml:"remove_zero_intensity"`
}

type OutputConfig struct {
	Database string `yaml:"database"`
}

type StandardsConfig struct {
	SheetIndex int `yaml:"sheet_index"`
}

type LogConfig struct {
	Debug bool `yaml:"debug"`
}

// Config is the top-level structure of rawkey.yaml.
type Config struct {
	Import    ImportConfig    `yaml:"import"`
	Filter    FilterConfig    `yaml:"filter"`
	Output    OutputConfig    `yaml:"output"`
	Standards StandardsConfig `yaml:"standards"`
	Log       LogConfig       `yaml:"log"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Import: ImportConfig{
			Workers:             4,
			CancelCheckInterval: 256,
			ProgressStep:        0.10,
		},
	}
}

// Load reads path over the defaults. Keys missing from the file keep their
// default values.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the importer cannot run with.
func (c *Config) Validate() error {
	if c.Import.Workers < 1 {
		return fmt.Errorf("import.workers must be at least 1, got %d", c.Import.Workers)
	}
	if c.Import.CancelCheckInterval < 1 {
		return fmt.Errorf("import.cancel_check_interval must be at least 1, got %d", c.Import.CancelCheckInterval)
	}
	if c.Import.ProgressStep <= 0 || c.Import.ProgressStep > 1 {
		return fmt.Errorf("import.progress_step must be in (0, 1], got %g", c.Import.ProgressStep)
	}
	if c.Filter.TopN < 0 {
		return fmt.Errorf("filter.top_n must not be negative")
	}
	if c.Filter.IntensityCutoff < 0 || c.Filter.IntensityCutoff > 100 {
		return fmt.Errorf("filter.intensity_cutoff must be a percentage, got %g", c.Filter.IntensityCutoff)
	}
	if c.Standards.SheetIndex < 0 {
		return fmt.Errorf("standards.sheet_index must not be negative")
	}
	return nil
}
