package pkg

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"

	"github.com/ecopia-map/usgs_terrain/internal/config"
	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/usgs_terrain/internal/footprints"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/ecopia-map/usgs_terrain/internal/io"
	"github.com/ecopia-map/usgs_terrain/internal/mapservice"
	"github.com/ecopia-map/usgs_terrain/internal/scene"
	"github.com/ecopia-map/usgs_terrain/internal/terrain"
	"github.com/ecopia-map/usgs_terrain/pkg/algorithm_manager"
	"github.com/ecopia-map/usgs_terrain/tools"
	"github.com/golang/glog"
)

// Logical asset names, also used as output file stems
const (
	HeightmapName  = "heightmap"
	TextureName    = "texture"
	FootprintsName = "footprints"
)

const (
	heightmapFormat = "tiff"
	textureFormat   = "jpgpng"
)

type ITerrainBuilder interface {
	RunBuilder(opts *terrain.TerrainOptions) error
}

type TerrainBuilder struct {
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewTerrainBuilder(algorithmManager algorithm_manager.AlgorithmManager) *TerrainBuilder {
	return &TerrainBuilder{
		algorithmManager: algorithmManager,
	}
}

// Plan holds the bounding box of a build and the fetches it needs
type Plan struct {
	BoundingBox *geometry.BoundingBox
	Units       []*io.WorkUnit
}

// Starts the build: bounding box, fetches, footprint mask and world file, in this order
func (builder *TerrainBuilder) RunBuilder(opts *terrain.TerrainOptions) error {
	defer builder.algorithmManager.GetCoordinateConverterAlgorithm().Cleanup()

	opts = withDefaults(opts)
	plan, err := builder.Plan(opts)
	if err != nil {
		return err
	}
	tools.LogOutput(fmt.Sprintf("> bounding box EPSG:%d [%f, %f, %f, %f]",
		plan.BoundingBox.Srid, plan.BoundingBox.Xmin, plan.BoundingBox.Ymin, plan.BoundingBox.Xmax, plan.BoundingBox.Ymax))

	if opts.DryRun {
		fetcher := builder.algorithmManager.GetMapFetcher()
		for _, unit := range plan.Units {
			fmt.Printf("%s: %s\n", unit.Name, fetcher.RequestURL(unit.Request))
		}
		return nil
	}

	if err := tools.CreateDirectoryIfDoesNotExist(opts.Output); err != nil {
		return err
	}

	if len(plan.Units) > 0 {
		tools.LogOutput(fmt.Sprintf("> fetching %d assets...", len(plan.Units)))
		if err := io.FetchAll(builder.algorithmManager.GetMapFetcher(), opts.Output, plan.Units); err != nil {
			return err
		}
	}

	if opts.HasStage(terrain.StageFootprints) && builder.hasFootprintService(opts) {
		tools.LogOutput("> rasterizing footprints...")
		if err := builder.buildFootprints(opts); err != nil {
			return err
		}
	}

	if opts.HasStage(terrain.StageWorld) {
		tools.LogOutput("> updating world file...")
		if err := builder.updateWorld(opts); err != nil {
			return err
		}
	}

	return nil
}

// Plan computes the bounding box around the center and the requests of every
// selected fetch stage.
func (builder *TerrainBuilder) Plan(opts *terrain.TerrainOptions) (*Plan, error) {
	opts = withDefaults(opts)
	bbox, err := converters.ComputeWebMercatorBoundingBox(
		builder.algorithmManager.GetCoordinateConverterAlgorithm(),
		opts.Center, opts.CenterSrid, opts.Size, opts.RequestSrid,
	)
	if err != nil {
		return nil, fmt.Errorf("computing bounding box: %w", err)
	}

	plan := &Plan{BoundingBox: bbox}
	services := opts.ServiceOptions

	if opts.HasStage(terrain.StageHeightmap) && services.Elevation != "" {
		plan.Units = append(plan.Units, &io.WorkUnit{
			Name:     HeightmapName,
			Request:  mapservice.NewExportImageRequest(services.Elevation, bbox, opts.HeightmapPx, opts.RequestSrid, heightmapFormat, opts.ResponseMode),
			Filename: HeightmapName,
		})
	}

	if opts.HasStage(terrain.StageTexture) && services.Imagery != "" {
		plan.Units = append(plan.Units, &io.WorkUnit{
			Name:     TextureName,
			Request:  mapservice.NewExportImageRequest(services.Imagery, bbox, opts.TexturePx, opts.RequestSrid, textureFormat, opts.ResponseMode),
			Filename: TextureName,
		})
	}

	if opts.HasStage(terrain.StageFootprints) && builder.hasFootprintService(opts) {
		plan.Units = append(plan.Units, &io.WorkUnit{
			Name:     FootprintsName,
			Request:  mapservice.NewFootprintQueryRequest(services.Footprints, bbox, footprintsSrid(opts)),
			Filename: FootprintsName,
		})
	}

	return plan, nil
}

func (builder *TerrainBuilder) hasFootprintService(opts *terrain.TerrainOptions) bool {
	return opts.ServiceOptions != nil && opts.ServiceOptions.Footprints != ""
}

func (builder *TerrainBuilder) buildFootprints(opts *terrain.TerrainOptions) error {
	cfg := &config.FootprintConfig{
		MapJSON:    filepath.Join(opts.Output, FootprintsName+".json"),
		Size:       int(math.Ceil(opts.Size)),
		Resolution: 1,
		Image:      filepath.Join(opts.Output, FootprintsName+".png"),
		Srid:       footprintsSrid(opts),
	}
	if fp := opts.FootprintsOptions; fp != nil {
		if fp.Resolution > 0 {
			cfg.Resolution = fp.Resolution
		}
		if fp.Image != "" {
			cfg.Image = outputPath(opts.Output, fp.Image)
		}
	}

	return footprints.BuildFootprints(cfg, builder.algorithmManager.GetCoordinateConverterAlgorithm())
}

func (builder *TerrainBuilder) updateWorld(opts *terrain.TerrainOptions) error {
	world := scene.NewWorldFileUpdater(
		opts.Output,
		opts.WorldFile,
		builder.algorithmManager.GetCoordinateConverterAlgorithm(),
		builder.algorithmManager.GetRasterOpener(),
	)
	world.HeightmapSrid = opts.RequestSrid

	heightmapPath := filepath.Join(opts.Output, HeightmapName+"."+mapservice.FormatExtension(heightmapFormat))
	texturePath := filepath.Join(opts.Output, TextureName+"."+mapservice.FormatExtension(textureFormat))

	var err error
	if opts.ElevationOffset != nil {
		err = world.SetElevation(offset_elevation_corrector.NewOffsetElevationCorrector(*opts.ElevationOffset))
	} else {
		err = world.SetElevationOffset(heightmapPath)
	}
	if err != nil {
		return fmt.Errorf("setting elevation offset: %w", err)
	}

	if err := world.SetTextureScale(opts.TextureScale, heightmapPath); err != nil {
		return fmt.Errorf("setting texture scale: %w", err)
	}

	if err := world.SetTextureReference(texturePath); err != nil {
		return fmt.Errorf("setting texture reference: %w", err)
	}

	glog.Infof("updated %s", world.Path())
	return nil
}

// withDefaults returns a copy of opts with the optional settings filled in, leaving
// the caller's options untouched.
func withDefaults(opts *terrain.TerrainOptions) *terrain.TerrainOptions {
	opts = opts.Copy()
	if opts.ResponseMode == "" {
		opts.ResponseMode = mapservice.ResponseModeImage
	}
	if opts.ServiceOptions == nil {
		opts.ServiceOptions = &terrain.ServiceOptions{}
	}
	return opts
}

func footprintsSrid(opts *terrain.TerrainOptions) int {
	if opts.FootprintsOptions != nil && opts.FootprintsOptions.Srid != 0 {
		return opts.FootprintsOptions.Srid
	}
	return converters.WebMercatorSrid
}

func outputPath(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// ValidateOptions reports options a build cannot run with
func ValidateOptions(opts *terrain.TerrainOptions) error {
	var errs []error
	if opts.Size <= 0 {
		errs = append(errs, fmt.Errorf("size must be positive, got %g", opts.Size))
	}
	if opts.HeightmapPx <= 0 || opts.TexturePx <= 0 {
		errs = append(errs, fmt.Errorf("image sizes must be positive, got %d and %d", opts.HeightmapPx, opts.TexturePx))
	}
	if opts.TextureScale < 0 {
		errs = append(errs, fmt.Errorf("texture scale must not be negative, got %d", opts.TextureScale))
	}
	if opts.Output == "" {
		errs = append(errs, errors.New("output folder is required"))
	}
	if len(opts.Stages) == 0 {
		errs = append(errs, errors.New("no stage selected"))
	}
	switch opts.ResponseMode {
	case "", mapservice.ResponseModeImage, mapservice.ResponseModeJSON:
	default:
		errs = append(errs, fmt.Errorf("response mode must be json or image, got %q", opts.ResponseMode))
	}
	return errors.Join(errs...)
}
