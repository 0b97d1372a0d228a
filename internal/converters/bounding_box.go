package converters

import (
	"errors"
	"math"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/ecopia-map/usgs_terrain/tools"
)

var errDegenerateBox = errors.New("corners collapse onto each other")

// ComputeBoundingBox returns the box of side sideLength (in intermediateSrid units)
// centered on center, expressed in targetSrid.
//
// The center is reprojected into intermediateSrid and floored to whole units. The
// upper right corner sits ceil(side/2) away from it and the lower left corner
// floor(side/2) away, so odd sides put the extra unit on the upper right.
// Corners that coincide on either axis once reprojected give a TransformError.
func ComputeBoundingBox(
	converter CoordinateConverter,
	center geometry.Coordinate,
	centerSrid int,
	sideLength float64,
	targetSrid int,
	intermediateSrid int,
) (*geometry.BoundingBox, error) {
	interim, err := converter.ConvertCoordinateSrid(centerSrid, intermediateSrid, center)
	if err != nil {
		return nil, err
	}
	interim.X = math.Floor(interim.X)
	interim.Y = math.Floor(interim.Y)

	upper := math.Ceil(sideLength / 2)
	lower := math.Floor(sideLength / 2)

	corners := [2]geometry.Coordinate{
		{X: interim.X + upper, Y: interim.Y + upper},
		{X: interim.X - lower, Y: interim.Y - lower},
	}

	for i, corner := range corners {
		converted, err := converter.ConvertCoordinateSrid(intermediateSrid, targetSrid, corner)
		if err != nil {
			return nil, err
		}
		corners[i] = converted
	}

	if tools.IsFloatEqual(corners[0].X, corners[1].X) || tools.IsFloatEqual(corners[0].Y, corners[1].Y) {
		return nil, &TransformError{
			SourceSrid: intermediateSrid,
			TargetSrid: targetSrid,
			Coordinate: center,
			Err:        errDegenerateBox,
		}
	}

	return geometry.NewBoundingBoxFromCorners(corners[0], corners[1], targetSrid), nil
}

// ComputeWebMercatorBoundingBox is ComputeBoundingBox routed through EPSG:3857.
func ComputeWebMercatorBoundingBox(
	converter CoordinateConverter,
	center geometry.Coordinate,
	centerSrid int,
	sideLength float64,
	targetSrid int,
) (*geometry.BoundingBox, error) {
	return ComputeBoundingBox(converter, center, centerSrid, sideLength, targetSrid, WebMercatorSrid)
}
