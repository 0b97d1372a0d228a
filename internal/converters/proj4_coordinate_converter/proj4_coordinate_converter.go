package proj4_coordinate_converter

import (
	"errors"
	"math"
	"sync"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/golang/glog"
	proj "github.com/xeonx/proj4"
)

const toRadians = math.Pi / 180
const toDeg = 180 / math.Pi

var errNonFiniteResult = errors.New("transformation produced a non finite coordinate")

type proj4CoordinateConverter struct {
	EpsgDatabase map[int]*epsgProjection
	sync.Mutex
}

func NewProj4CoordinateConverter() (converters.CoordinateConverter, error) {
	database, err := loadEpsgDatabase()
	if err != nil {
		return nil, err
	}

	return &proj4CoordinateConverter{
		EpsgDatabase: database,
	}, nil
}

// Converts the given coordinate from the given source Srid to the given target srid.
func (cc *proj4CoordinateConverter) ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord geometry.Coordinate) (geometry.Coordinate, error) {
	cc.Lock()
	defer cc.Unlock()

	src, err := cc.initProjection(sourceSrid)
	if err != nil {
		return coord, err
	}

	dst, err := cc.initProjection(targetSrid)
	if err != nil {
		return coord, err
	}

	if sourceSrid == targetSrid {
		return coord, nil
	}

	result, err := executeConversion(&coord, src, dst)
	if err != nil {
		return coord, &converters.TransformError{
			SourceSrid: sourceSrid,
			TargetSrid: targetSrid,
			Coordinate: coord,
			Err:        err,
		}
	}

	return result, nil
}

// Releases all projection objects from memory
func (cc *proj4CoordinateConverter) Cleanup() {
	cc.Lock()
	defer cc.Unlock()

	for _, val := range cc.EpsgDatabase {
		if val.Projection != nil {
			val.Projection.Close()
			val.Projection = nil
		}
	}
}

// Returns the projection corresponding to the given EPSG code, initializing it on first use
func (cc *proj4CoordinateConverter) initProjection(code int) (*proj.Proj, error) {
	val, ok := cc.EpsgDatabase[code]
	if !ok {
		return nil, &converters.ReferenceSystemError{Srid: code}
	}

	if val.Projection == nil {
		projection, err := proj.InitPlus(val.Proj4)
		if err != nil {
			return nil, &converters.ReferenceSystemError{Srid: code, Err: err}
		}
		glog.V(2).Infof("initialized projection EPSG:%d (%s)", code, val.Description)
		val.Projection = projection
	}

	return val.Projection, nil
}

func executeConversion(coord *geometry.Coordinate, sourceProj *proj.Proj, destinationProj *proj.Proj) (geometry.Coordinate, error) {
	x, y, z := getCoordinateArraysForConversion(coord, sourceProj)

	if err := proj.TransformRaw(sourceProj, destinationProj, x, y, z); err != nil {
		return *coord, err
	}

	converted := geometry.Coordinate{X: x[0], Y: y[0], Z: z[0]}
	if destinationProj.IsLatLong() {
		converted.X = converted.X * toDeg
		converted.Y = converted.Y * toDeg
	}

	if !isFinite(converted.X) || !isFinite(converted.Y) || !isFinite(converted.Z) {
		return *coord, errNonFiniteResult
	}

	return converted, nil
}

// Returns the input coordinate expressed in the given source projection as three arrays
// containing X, Y, Z coordinates, converting degrees to radians for geographic systems.
func getCoordinateArraysForConversion(coord *geometry.Coordinate, srcProj *proj.Proj) ([]float64, []float64, []float64) {
	x, y := coord.X, coord.Y
	if srcProj.IsLatLong() {
		x = x * toRadians
		y = y * toRadians
	}

	return []float64{x}, []float64{y}, []float64{coord.Z}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e30
}
