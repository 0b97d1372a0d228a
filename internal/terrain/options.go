package terrain

import (
	"strings"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
)

type Stage string

const (
	StageHeightmap  Stage = "HEIGHTMAP"
	StageTexture    Stage = "TEXTURE"
	StageFootprints Stage = "FOOTPRINTS"
	StageWorld      Stage = "WORLD"
)

// AllStages lists the build stages in execution order
var AllStages = []Stage{StageHeightmap, StageTexture, StageFootprints, StageWorld}

func (s Stage) String() string {
	return strings.ToLower(string(s))
}

func ParseStage(value string) Stage {
	normalizedValue := Stage(strings.Trim(strings.ToUpper(value), " "))
	for _, stage := range AllStages {
		if stage == normalizedValue {
			return stage
		}
	}
	return ""
}

// ParseStages parses a comma separated stage list. An empty list selects every
// stage; unknown names are returned separately.
func ParseStages(value string) ([]Stage, []string) {
	if strings.TrimSpace(value) == "" {
		return append([]Stage(nil), AllStages...), nil
	}

	var stages []Stage
	var unknown []string
	for _, part := range strings.Split(value, ",") {
		stage := ParseStage(part)
		if stage == "" {
			unknown = append(unknown, strings.TrimSpace(part))
			continue
		}
		stages = append(stages, stage)
	}
	return stages, unknown
}

// Contains the options needed for a terrain build
type TerrainOptions struct {
	Center       geometry.Coordinate // Center of the area to build
	CenterSrid   int                 // EPSG code of Center
	Size         float64             // Edge length of the area in Web Mercator meters
	RequestSrid  int                 // EPSG code the service is queried and answers in
	HeightmapPx  int                 // Heightmap edge length in pixels
	TexturePx    int                 // Texture edge length in pixels
	TextureScale int                 // Texture tile size, 0 derives it from the heightmap
	Output       string              // Output folder for every produced asset
	WorldFile    string              // World file name inside Output
	ResponseMode string              // Response mode used for raster requests, json or image
	Stages       []Stage             // Stages to run
	DryRun       bool                // Print request URLs instead of fetching
	// Fixed world elevation instead of the heightmap center
	ElevationOffset *float64

	ServiceOptions    *ServiceOptions
	FootprintsOptions *FootprintsOptions
}

type ServiceOptions struct {
	Elevation  string
	Imagery    string
	Footprints string
	Timeout    int // seconds
}

type FootprintsOptions struct {
	Srid       int     // metric EPSG code footprints are requested in
	Resolution float64 // ground units per pixel
	Image      string  // mask file name inside Output
}

func (opt *TerrainOptions) HasStage(stage Stage) bool {
	for _, s := range opt.Stages {
		if s == stage {
			return true
		}
	}
	return false
}

func (opt *TerrainOptions) Copy() *TerrainOptions {
	newOpt := *opt
	newOpt.Stages = append([]Stage(nil), opt.Stages...)

	if opt.ElevationOffset != nil {
		offset := *opt.ElevationOffset
		newOpt.ElevationOffset = &offset
	}

	if opt.ServiceOptions != nil {
		serviceOpt := *opt.ServiceOptions
		newOpt.ServiceOptions = &serviceOpt
	}

	if opt.FootprintsOptions != nil {
		footprintsOpt := *opt.FootprintsOptions
		newOpt.FootprintsOptions = &footprintsOpt
	}

	return &newOpt
}
