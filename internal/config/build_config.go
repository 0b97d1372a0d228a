package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultElevationService = "https://elevation.nationalmap.gov/arcgis/rest/services/3DEPElevation/ImageServer/exportImage"
	DefaultImageryService   = "https://imagery.nationalmap.gov/arcgis/rest/services/USGSNAIPImagery/ImageServer/exportImage"
	DefaultWorldFile        = "usgs_simulation_environment.world"
)

// BuildConfig describes a full terrain build around a center point.
type BuildConfig struct {
	Center       CenterConfig   `mapstructure:"center"`
	Size         float64        `mapstructure:"size"`
	RequestSrid  int            `mapstructure:"request_srid"`
	HeightmapPx  int            `mapstructure:"heightmap_px"`
	TexturePx    int            `mapstructure:"texture_px"`
	TextureScale int            `mapstructure:"texture_scale"`
	Output       string         `mapstructure:"output"`
	WorldFile    string         `mapstructure:"world_file"`
	Timeout      int            `mapstructure:"timeout_seconds"`
	ResponseMode string         `mapstructure:"response_mode"`
	// Fixed heightmap z; when absent the offset is measured from the heightmap
	ZOffset      *float64       `mapstructure:"zoffset"`
	Services     ServicesConfig `mapstructure:"services"`
	Footprints   FootprintsJob  `mapstructure:"footprints"`
}

type CenterConfig struct {
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
	Srid int     `mapstructure:"srid"`
}

type ServicesConfig struct {
	Elevation  string `mapstructure:"elevation"`
	Imagery    string `mapstructure:"imagery"`
	Footprints string `mapstructure:"footprints"`
}

// FootprintsJob configures the footprint mask produced during a build.
type FootprintsJob struct {
	Srid       int     `mapstructure:"srid"`
	Resolution float64 `mapstructure:"resolution"`
	Image      string  `mapstructure:"image"`
}

func (c *BuildConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

func (c *BuildConfig) Validate() error {
	var errs []string

	if c.Size <= 0 {
		errs = append(errs, fmt.Sprintf("size must be positive, got %g", c.Size))
	}
	if c.HeightmapPx <= 0 {
		errs = append(errs, fmt.Sprintf("heightmap_px must be positive, got %d", c.HeightmapPx))
	}
	if c.TexturePx <= 0 {
		errs = append(errs, fmt.Sprintf("texture_px must be positive, got %d", c.TexturePx))
	}
	if c.TextureScale < 0 {
		errs = append(errs, fmt.Sprintf("texture_scale must not be negative, got %d", c.TextureScale))
	}
	if c.Output == "" {
		errs = append(errs, "output is required")
	}
	if c.WorldFile == "" {
		errs = append(errs, "world_file is required")
	}
	if c.Services.Elevation == "" {
		errs = append(errs, "services.elevation is required")
	}
	if c.Timeout <= 0 {
		errs = append(errs, "timeout_seconds must be positive")
	}
	if c.ResponseMode != "image" && c.ResponseMode != "json" {
		errs = append(errs, fmt.Sprintf("response_mode must be image or json, got %q", c.ResponseMode))
	}
	if c.Services.Footprints != "" && c.Footprints.Resolution <= 0 {
		errs = append(errs, "footprints.resolution must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func setBuildDefaults(v *viper.Viper) {
	v.SetDefault("center.srid", 4326)
	v.SetDefault("request_srid", 4326)
	v.SetDefault("heightmap_px", 513)
	v.SetDefault("texture_px", 1024)
	v.SetDefault("texture_scale", 0)
	v.SetDefault("output", "worlds")
	v.SetDefault("world_file", DefaultWorldFile)
	v.SetDefault("timeout_seconds", 120)
	v.SetDefault("response_mode", "image")
	v.SetDefault("services.elevation", DefaultElevationService)
	v.SetDefault("services.imagery", DefaultImageryService)
	v.SetDefault("services.footprints", "")
	v.SetDefault("footprints.srid", 3857)
	v.SetDefault("footprints.resolution", 1.0)
	v.SetDefault("footprints.image", "footprints.png")
}

// LoadBuildConfig reads a build document; USGS_TERRAIN_* environment variables
// override its values (USGS_TERRAIN_CENTER_X -> center.x).
func LoadBuildConfig(path string) (*BuildConfig, error) {
	v, err := readDocument(path)
	if err != nil {
		return nil, err
	}
	setBuildDefaults(v)

	v.SetEnvPrefix("USGS_TERRAIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// keys without defaults are only seen by Unmarshal when bound explicitly
	_ = v.BindEnv("center.x")
	_ = v.BindEnv("center.y")
	_ = v.BindEnv("zoffset")

	var cfg BuildConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, &ConfigurationError{Path: path, Err: fmt.Errorf("unmarshal config: %w", err)}
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ConfigurationError{Path: path, Err: err}
	}

	return &cfg, nil
}
