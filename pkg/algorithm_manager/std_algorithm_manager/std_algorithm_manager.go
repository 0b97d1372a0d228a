package std_algorithm_manager

import (
	"time"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/converters/proj4_coordinate_converter"
	"github.com/ecopia-map/usgs_terrain/internal/mapservice"
	"github.com/ecopia-map/usgs_terrain/internal/raster"
	"github.com/ecopia-map/usgs_terrain/internal/terrain"
	"github.com/ecopia-map/usgs_terrain/pkg/algorithm_manager"
)

const defaultTimeout = 120 * time.Second

type StandardAlgorithmManager struct {
	options             *terrain.TerrainOptions
	coordinateConverter converters.CoordinateConverter
	rasterOpener        raster.Opener
	mapFetcher          *mapservice.MapFetcher
}

func NewAlgorithmManager(opts *terrain.TerrainOptions) (algorithm_manager.AlgorithmManager, error) {
	coordinateConverter, err := proj4_coordinate_converter.NewProj4CoordinateConverter()
	if err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if opts.ServiceOptions != nil && opts.ServiceOptions.Timeout > 0 {
		timeout = time.Duration(opts.ServiceOptions.Timeout) * time.Second
	}

	return &StandardAlgorithmManager{
		options:             opts,
		coordinateConverter: coordinateConverter,
		rasterOpener:        raster.NewGdalOpener(),
		mapFetcher:          mapservice.NewMapFetcher(timeout),
	}, nil
}

func (sam *StandardAlgorithmManager) GetCoordinateConverterAlgorithm() converters.CoordinateConverter {
	return sam.coordinateConverter
}

func (sam *StandardAlgorithmManager) GetRasterOpener() raster.Opener {
	return sam.rasterOpener
}

func (sam *StandardAlgorithmManager) GetMapFetcher() *mapservice.MapFetcher {
	return sam.mapFetcher
}
