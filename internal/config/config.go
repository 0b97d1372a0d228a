// Package config loads the YAML documents that drive a terrain build.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// ConfigurationError reports a missing or unusable required input.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// FootprintConfig drives the footprint rasterizer.
type FootprintConfig struct {
	MapJSON    string    `mapstructure:"map_json"`
	Origin     []float64 `mapstructure:"origin"`
	Size       int       `mapstructure:"size"`
	Resolution float64   `mapstructure:"resolution"`
	Image      string    `mapstructure:"image"`
	// Optional metric system footprint vertices are reprojected into
	Srid int `mapstructure:"srid"`
}

// HasOrigin reports whether an explicit origin offset was configured.
func (c *FootprintConfig) HasOrigin() bool {
	return len(c.Origin) == 2
}

func (c *FootprintConfig) Validate() error {
	var errs []string

	if c.MapJSON == "" {
		errs = append(errs, "map_json is required")
	}
	if c.Image == "" {
		errs = append(errs, "image is required")
	}
	if c.Size <= 0 {
		errs = append(errs, fmt.Sprintf("size must be positive, got %d", c.Size))
	}
	if c.Resolution <= 0 {
		errs = append(errs, fmt.Sprintf("resolution must be positive, got %g", c.Resolution))
	}
	if len(c.Origin) != 0 && len(c.Origin) != 2 {
		errs = append(errs, fmt.Sprintf("origin must be [x, y], got %d values", len(c.Origin)))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoadFootprintConfig reads a footprint config document. A missing file is fatal.
func LoadFootprintConfig(path string) (*FootprintConfig, error) {
	v, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	v.SetDefault("resolution", 1.0)

	var cfg FootprintConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	return &cfg, nil
}

func readDocument(path string) (*viper.Viper, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigurationError{Path: path, Err: os.ErrNotExist}
		}
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	return v, nil
}
