package converters

import (
	"errors"
	"testing"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverter applies a per-target function and records the calls it receives.
type fakeConverter struct {
	convert func(source, target int, coord geometry.Coordinate) (geometry.Coordinate, error)
	calls   [][2]int
}

func (f *fakeConverter) ConvertCoordinateSrid(source, target int, coord geometry.Coordinate) (geometry.Coordinate, error) {
	f.calls = append(f.calls, [2]int{source, target})
	if f.convert == nil {
		return coord, nil
	}
	return f.convert(source, target, coord)
}

func (f *fakeConverter) Cleanup() {}

func TestComputeBoundingBox_EvenSide(t *testing.T) {
	conv := &fakeConverter{}
	box, err := ComputeBoundingBox(conv, geometry.Coordinate{X: 1000.4, Y: 2000.9}, 4326, 10, 3857, 3857)
	require.NoError(t, err)

	assert.Equal(t, 995.0, box.Xmin)
	assert.Equal(t, 1005.0, box.Xmax)
	assert.Equal(t, 1995.0, box.Ymin)
	assert.Equal(t, 2005.0, box.Ymax)
	assert.Equal(t, 3857, box.Srid)
	assert.Equal(t, [][2]int{{4326, 3857}, {3857, 3857}, {3857, 3857}}, conv.calls)
}

func TestComputeBoundingBox_OddSideBiasesUpperRight(t *testing.T) {
	conv := &fakeConverter{}
	box, err := ComputeBoundingBox(conv, geometry.Coordinate{X: 100, Y: 200}, 3857, 5, 3857, 3857)
	require.NoError(t, err)

	assert.Equal(t, 3.0, box.Xmax-100)
	assert.Equal(t, 2.0, 100-box.Xmin)
	assert.Equal(t, 3.0, box.Ymax-200)
	assert.Equal(t, 2.0, 200-box.Ymin)
	assert.Equal(t, 5.0, box.Width())
	assert.Equal(t, 5.0, box.Height())
}

func TestComputeBoundingBox_AxisFlip(t *testing.T) {
	// target system swaps axes and mirrors X
	conv := &fakeConverter{
		convert: func(source, target int, c geometry.Coordinate) (geometry.Coordinate, error) {
			if target == 9999 {
				return geometry.Coordinate{X: -c.Y, Y: c.X}, nil
			}
			return c, nil
		},
	}
	box, err := ComputeBoundingBox(conv, geometry.Coordinate{X: 10, Y: 20}, 3857, 4, 9999, 3857)
	require.NoError(t, err)

	assert.LessOrEqual(t, box.Xmin, box.Xmax)
	assert.LessOrEqual(t, box.Ymin, box.Ymax)
	assert.Equal(t, -22.0, box.Xmin)
	assert.Equal(t, -18.0, box.Xmax)
	assert.Equal(t, 8.0, box.Ymin)
	assert.Equal(t, 12.0, box.Ymax)
}

func TestComputeBoundingBox_PropagatesErrors(t *testing.T) {
	conv := &fakeConverter{
		convert: func(source, target int, c geometry.Coordinate) (geometry.Coordinate, error) {
			if target == 12345 {
				return geometry.Coordinate{}, &ReferenceSystemError{Srid: 12345}
			}
			return c, nil
		},
	}
	_, err := ComputeBoundingBox(conv, geometry.Coordinate{X: 1, Y: 1}, 3857, 4, 12345, 3857)

	var refErr *ReferenceSystemError
	require.True(t, errors.As(err, &refErr))
	assert.Equal(t, 12345, refErr.Srid)
}

func TestTransformErrorMessage(t *testing.T) {
	err := &TransformError{
		SourceSrid: 4326,
		TargetSrid: 3857,
		Coordinate: geometry.Coordinate{X: 0, Y: 90},
		Err:        errors.New("tolerance condition error"),
	}
	assert.Contains(t, err.Error(), "EPSG:4326")
	assert.Contains(t, err.Error(), "tolerance condition error")
}

func TestComputeBoundingBox_DegenerateBox(t *testing.T) {
	_, err := ComputeBoundingBox(&fakeConverter{}, geometry.Coordinate{X: 10, Y: 20}, 3857, 0, 3857, 3857)

	var transformErr *TransformError
	require.True(t, errors.As(err, &transformErr))
	assert.Equal(t, 3857, transformErr.TargetSrid)
	assert.ErrorIs(t, err, errDegenerateBox)

	// collapses on one axis only
	conv := &fakeConverter{
		convert: func(source, target int, c geometry.Coordinate) (geometry.Coordinate, error) {
			if target == 9999 {
				return geometry.Coordinate{X: c.X, Y: 0}, nil
			}
			return c, nil
		},
	}
	_, err = ComputeBoundingBox(conv, geometry.Coordinate{X: 10, Y: 20}, 3857, 4, 9999, 3857)
	assert.ErrorIs(t, err, errDegenerateBox)
}
