package algorithm_manager

import (
	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/mapservice"
	"github.com/ecopia-map/usgs_terrain/internal/raster"
)

type AlgorithmManager interface {
	GetCoordinateConverterAlgorithm() converters.CoordinateConverter
	GetRasterOpener() raster.Opener
	GetMapFetcher() *mapservice.MapFetcher
}
