// Package config loads the YAML configuration shared by the CLI commands.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"github.com/1F47E/rider-index/pkg/logging"
)

// DefaultPath is where commands look for configuration when no path is given
const DefaultPath = "config.yaml"

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// DefaultSQLiteFile is the database created under io.output_dir when the
// sqlite store has no dsn
const DefaultSQLiteFile = "results.db"

// Config mirrors config.yaml. The model section and io.show_display belong to
// the detector/tracker process that produces recordings; they are validated
// here so both processes can share one file, and logged at the start of a run.
type Config struct {
	Model struct {
		Weights             string  `yaml:"weights"`
		ConfidenceThreshold float64 `yaml:"confidence_threshold"`
		IOUThreshold        float64 `yaml:"iou_threshold"`
		TargetClasses       []int   `yaml:"target_classes"`
		Tracker             string  `yaml:"tracker"`
	} `yaml:"model"`
	IO struct {
		InputSource string `yaml:"input_source"`
		SaveResults bool   `yaml:"save_results"`
		OutputDir   string `yaml:"output_dir"`
		FrameSkip   int    `yaml:"frame_skip"`
		ShowDisplay bool   `yaml:"show_display"`
	} `yaml:"io"`
	Pipeline struct {
		Workers    int `yaml:"workers"`
		StatsEvery int `yaml:"stats_every"`
	} `yaml:"pipeline"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
	Store struct {
		Driver string `yaml:"driver"`
		DSN    string `yaml:"dsn"`
	} `yaml:"store"`
}

// Default returns a config with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills unset fields. Call it again after overriding fields
// from flags so derived values follow.
func (c *Config) ApplyDefaults() {
	if c.Model.IOUThreshold == 0 {
		c.Model.IOUThreshold = 0.45
	}
	if c.Model.Tracker == "" {
		c.Model.Tracker = "bytetrack.yaml"
	}
	if c.IO.OutputDir == "" {
		c.IO.OutputDir = "data/output/"
	}
	if c.IO.FrameSkip == 0 {
		c.IO.FrameSkip = 1
	}
	if c.Pipeline.Workers == 0 {
		c.Pipeline.Workers = runtime.NumCPU()
	}
	if c.Pipeline.StatsEvery == 0 {
		c.Pipeline.StatsEvery = 30
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Store.Driver == "sqlite" && c.Store.DSN == "" {
		c.Store.DSN = filepath.Join(c.IO.OutputDir, DefaultSQLiteFile)
	}
}

// Load reads and validates a YAML config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML, applies defaults and validates the result
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("%w: model.confidence_threshold %v outside [0,1]", ErrInvalidConfig, c.Model.ConfidenceThreshold)
	}
	if c.Model.IOUThreshold < 0 || c.Model.IOUThreshold > 1 {
		return fmt.Errorf("%w: model.iou_threshold %v outside [0,1]", ErrInvalidConfig, c.Model.IOUThreshold)
	}
	if c.IO.FrameSkip < 1 {
		return fmt.Errorf("%w: io.frame_skip must be at least 1, got %d", ErrInvalidConfig, c.IO.FrameSkip)
	}
	if c.Pipeline.Workers < 1 {
		return fmt.Errorf("%w: pipeline.workers must be at least 1, got %d", ErrInvalidConfig, c.Pipeline.Workers)
	}
	if c.Pipeline.StatsEvery < 1 {
		return fmt.Errorf("%w: pipeline.stats_every must be at least 1, got %d", ErrInvalidConfig, c.Pipeline.StatsEvery)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("%w: logging.level: %v", ErrInvalidConfig, err)
	}
	switch c.Store.Driver {
	case "", "postgres", "sqlite":
	default:
		return fmt.Errorf("%w: unknown store.driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	if c.Store.Driver != "" && c.Store.DSN == "" {
		return fmt.Errorf("%w: store.dsn is required for driver %q", ErrInvalidConfig, c.Store.Driver)
	}
	return nil
}
