package geometry

import "math"

// Coordinate is a point in some reference system. X is longitude/easting and
// Y is latitude/northing, whatever the axis order the EPSG registry declares.
type Coordinate struct {
	X float64
	Y float64
	Z float64
}

// BoundingBox is an axis aligned box expressed in the reference system Srid.
type BoundingBox struct {
	Xmin float64
	Ymin float64
	Xmax float64
	Ymax float64
	Srid int
}

// NewBoundingBoxFromCorners builds a box from two opposite corners in any order.
// Reprojection can swap the sign or the order of the axes, so min and max are
// taken element-wise instead of trusting which corner came first.
func NewBoundingBoxFromCorners(a, b Coordinate, srid int) *BoundingBox {
	return &BoundingBox{
		Xmin: math.Min(a.X, b.X),
		Ymin: math.Min(a.Y, b.Y),
		Xmax: math.Max(a.X, b.X),
		Ymax: math.Max(a.Y, b.Y),
		Srid: srid,
	}
}

func (b *BoundingBox) Width() float64 {
	return b.Xmax - b.Xmin
}

func (b *BoundingBox) Height() float64 {
	return b.Ymax - b.Ymin
}

// Min returns the lower left corner.
func (b *BoundingBox) Min() Coordinate {
	return Coordinate{X: b.Xmin, Y: b.Ymin}
}

// Max returns the upper right corner.
func (b *BoundingBox) Max() Coordinate {
	return Coordinate{X: b.Xmax, Y: b.Ymax}
}
