// Package config handles converter configuration loading and validation.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Mesh    MeshConfig    `yaml:"mesh"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds the conversion options.
type ConvertConfig struct {
	IncludePhysics   bool    `yaml:"include_physics"`
	IncludeCollision bool    `yaml:"include_collision"`
	MergeFixedJoints bool    `yaml:"merge_fixed_joints"`
	Scale            float64 `yaml:"scale"`
	UpAxis           string  `yaml:"up_axis"`
}

// MeshConfig holds mesh asset handling settings.
type MeshConfig struct {
	// Workers bounds concurrent mesh conversions.
	Workers int `yaml:"workers"`
	// ModelPaths maps model:// package names to their roots.
	ModelPaths map[string]string `yaml:"model_paths"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			IncludePhysics:   true,
			IncludeCollision: true,
			MergeFixedJoints: false,
			Scale:            1.0,
			UpAxis:           "Z",
		},
		Mesh: MeshConfig{
			Workers: 4,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// LoadFile loads configuration from a YAML file, merging over defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the loaded options are usable.
func (c *Config) Validate() error {
	if c.Convert.Scale <= 0 {
		return fmt.Errorf("scale must be > 0, got %v", c.Convert.Scale)
	}
	if c.Convert.UpAxis != "Y" && c.Convert.UpAxis != "Z" {
		return fmt.Errorf("up_axis must be Y or Z, got %q", c.Convert.UpAxis)
	}
	if c.Mesh.Workers < 1 {
		return fmt.Errorf("mesh workers must be >= 1, got %d", c.Mesh.Workers)
	}
	return nil
}
