package converters

import (
	"fmt"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
)

const (
	// Geographic WGS84, the system GPS positions and raster geotransforms are given in
	WGS84Srid = 4326
	// Metric system accepted by the map service, used to interpret sizes in meters
	WebMercatorSrid = 3857
)

type CoordinateConverter interface {
	ConvertCoordinateSrid(sourceSrid int, targetSrid int, coord geometry.Coordinate) (geometry.Coordinate, error)
	Cleanup()
}

// ReferenceSystemError reports an EPSG code the converter cannot define.
type ReferenceSystemError struct {
	Srid int
	Err  error
}

func (e *ReferenceSystemError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported reference system EPSG:%d: %v", e.Srid, e.Err)
	}
	return fmt.Sprintf("unsupported reference system EPSG:%d", e.Srid)
}

func (e *ReferenceSystemError) Unwrap() error {
	return e.Err
}

// TransformError reports a reprojection that is undefined for the given point.
type TransformError struct {
	SourceSrid int
	TargetSrid int
	Coordinate geometry.Coordinate
	Err        error
}

func (e *TransformError) Error() string {
	msg := fmt.Sprintf(
		"cannot transform (%f, %f) from EPSG:%d to EPSG:%d",
		e.Coordinate.X, e.Coordinate.Y, e.SourceSrid, e.TargetSrid,
	)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransformError) Unwrap() error {
	return e.Err
}
