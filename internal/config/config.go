// Package config loads the daemon's tunable thresholds from a YAML
// file. Every value has a default; a config file only needs the keys
// it wants to override.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/pulse-sensor/internal/monitor"
)

// File is the full on-disk configuration.
type File struct {
	// SampleRateHz is the acquisition tick rate.
	SampleRateHz int `yaml:"sample_rate_hz"`

	// Monitor tunes the whole processing session.
	Monitor monitor.Config `yaml:"monitor"`

	// EnvInterval is how often the daemon samples the simulated
	// environment and feeds the calibrator.
	EnvInterval time.Duration `yaml:"env_interval"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		SampleRateHz: 25,
		Monitor:      monitor.DefaultConfig(),
		EnvInterval:  5 * time.Second,
	}
}

// Load reads the YAML file at path over the defaults, so absent keys
// keep their default values.
func Load(path string) (File, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if cfg.SampleRateHz <= 0 {
		return cfg, fmt.Errorf("config %s: sample_rate_hz must be positive", path)
	}
	return cfg, nil
}
