package footprints

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecopia-map/usgs_terrain/internal/config"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"
)

const sampleDocument = `{
  "queryGeometry": {
    "spatialReference": {"wkid": 102100, "latestWkid": 3857},
    "rings": [[[1000, 2000], [1100, 2000], [1100, 2100], [1000, 2100], [1000, 2000]]]
  },
  "features": [
    {"attributes": {"OBJECTID": 1}, "geometry": {"rings": [[[1020, 2020], [1060, 2020], [1060, 2060], [1020, 2060], [1020, 2020]]]}},
    {"attributes": {"OBJECTID": 2}, "geometry": {"rings": []}},
    {"attributes": {"OBJECTID": 3}, "geometry": {"rings": [[[1070, 2070], [1080, 2070], [1080, 2080], [1070, 2070]], [[1, 1], [2, 2], [3, 1]]]}}
  ]
}`

func square(x0, y0, x1, y1 float64) orb.Ring {
	return orb.Ring{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}
}

func TestDecode(t *testing.T) {
	set, err := Decode(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, 3857, set.Srid)
	assert.Len(t, set.Footprints, 2)
	assert.Equal(t, orb.Point{1020, 2020}, set.Footprints[0][0])
	assert.Len(t, set.Footprints[1], 4, "only the outer ring is kept")

	origin, ok := set.QueryOrigin()
	require.True(t, ok)
	assert.Equal(t, orb.Point{1000, 2000}, origin)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"features": [{"geometry": {"rings": [[[1]]]}}]}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`not json`))
	assert.Error(t, err)
}

func TestSpatialReferenceSrid(t *testing.T) {
	assert.Equal(t, 3857, SpatialReference{Wkid: 102100, LatestWkid: 3857}.Srid())
	assert.Equal(t, 4326, SpatialReference{Wkid: 4326}.Srid())
}

type offsetConverter struct{}

func (offsetConverter) ConvertCoordinateSrid(source, target int, c geometry.Coordinate) (geometry.Coordinate, error) {
	return geometry.Coordinate{X: c.X + 1, Y: c.Y - 1}, nil
}

func (offsetConverter) Cleanup() {}

func TestReproject(t *testing.T) {
	set := &FootprintSet{Srid: 4326, Query: square(0, 0, 10, 10), Footprints: []orb.Ring{square(1, 1, 2, 2)}}

	out, err := set.Reproject(offsetConverter{}, 3857)
	require.NoError(t, err)
	assert.Equal(t, 3857, out.Srid)
	assert.Equal(t, orb.Point{2, 0}, out.Footprints[0][0])
	assert.Equal(t, orb.Point{1, -1}, out.Query[0])
	assert.Equal(t, orb.Point{1, 1}, set.Footprints[0][0], "input is not modified")

	same, err := set.Reproject(offsetConverter{}, 4326)
	require.NoError(t, err)
	assert.Same(t, set, same)
}

func TestPlacementToPixel(t *testing.T) {
	p := Placement{Size: 100, Resolution: 1, Origin: orb.Point{1000, 2000}}

	assert.Equal(t, orb.Point{20, 80}, p.ToPixel(orb.Point{1020, 2020}))
	assert.Equal(t, orb.Point{0, 100}, p.ToPixel(orb.Point{900, 1900}), "clamped below the tile")
	assert.Equal(t, orb.Point{100, 0}, p.ToPixel(orb.Point{1500, 2500}), "clamped above the tile")

	half := Placement{Size: 100, Resolution: 2, Origin: orb.Point{0, 0}}
	assert.Equal(t, orb.Point{10, 40}, half.ToPixel(orb.Point{20, 20}))
}

func TestRasterize_SquareInsideTile(t *testing.T) {
	placement := Placement{Size: 100, Resolution: 1, Origin: orb.Point{1000, 2000}}
	mask := Rasterize([]orb.Ring{square(1020, 2020, 1060, 2060)}, placement)

	require.Equal(t, image.Rect(0, 0, 100, 100), mask.Bounds())

	for _, p := range []image.Point{{40, 60}, {20, 40}, {59, 79}} {
		assert.Equal(t, Occupied, mask.GrayAt(p.X, p.Y).Y, "interior %v", p)
	}
	for _, p := range []image.Point{{60, 60}, {19, 60}, {40, 39}, {40, 80}} {
		assert.Equal(t, Free, mask.GrayAt(p.X, p.Y).Y, "outside %v", p)
	}
	for i := 0; i < 100; i++ {
		assert.Equal(t, Free, mask.GrayAt(i, 0).Y)
		assert.Equal(t, Free, mask.GrayAt(i, 99).Y)
		assert.Equal(t, Free, mask.GrayAt(0, i).Y)
		assert.Equal(t, Free, mask.GrayAt(99, i).Y)
	}

	occupied := 0
	for _, v := range mask.Pix {
		if v == Occupied {
			occupied++
		}
	}
	assert.Equal(t, 40*40, occupied)
}

func TestRasterize_ClampsAtTileEdge(t *testing.T) {
	placement := Placement{Size: 50, Resolution: 1}
	mask := Rasterize([]orb.Ring{square(-30, 10, 10, 20)}, placement)

	assert.Equal(t, Occupied, mask.GrayAt(0, 35).Y)
	assert.Equal(t, Occupied, mask.GrayAt(9, 35).Y)
	assert.Equal(t, Free, mask.GrayAt(10, 35).Y)
	assert.Equal(t, Free, mask.GrayAt(49, 35).Y)
}

func TestRasterize_OverlapsAndDegenerateRings(t *testing.T) {
	placement := Placement{Size: 30, Resolution: 1}
	mask := Rasterize([]orb.Ring{
		square(0, 0, 20, 20),
		square(10, 10, 30, 30),
		{{1, 1}, {2, 2}},
	}, placement)

	assert.Equal(t, Occupied, mask.GrayAt(15, 15).Y)
	assert.Equal(t, Occupied, mask.GrayAt(5, 25).Y)
	assert.Equal(t, Occupied, mask.GrayAt(25, 5).Y)
	assert.Equal(t, Free, mask.GrayAt(25, 25).Y)
	assert.Equal(t, Free, mask.GrayAt(5, 5).Y)
}

func TestSaveImage(t *testing.T) {
	mask := Rasterize([]orb.Ring{square(2, 2, 6, 6)}, Placement{Size: 8, Resolution: 1})
	dir := t.TempDir()

	for _, name := range []string{"mask.png", "mask.jpg", "mask.tif", "mask.bmp"} {
		require.NoError(t, SaveImage(mask, filepath.Join(dir, name)), name)
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(0))
	}

	file, err := os.Open(filepath.Join(dir, "mask.tif"))
	require.NoError(t, err)
	defer file.Close()
	decoded, err := tiff.Decode(file)
	require.NoError(t, err)
	assert.Equal(t, mask.Bounds(), decoded.Bounds())

	err = SaveImage(mask, filepath.Join(dir, "mask.xyz"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(dir, "mask.xyz"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestBuildFootprints(t *testing.T) {
	dir := t.TempDir()
	mapJSON := filepath.Join(dir, "footprints.json")
	require.NoError(t, os.WriteFile(mapJSON, []byte(sampleDocument), 0644))

	cfg := &config.FootprintConfig{
		MapJSON:    mapJSON,
		Size:       100,
		Resolution: 1,
		Image:      filepath.Join(dir, "mask.png"),
	}
	require.NoError(t, BuildFootprints(cfg, offsetConverter{}))

	file, err := os.Open(cfg.Image)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	gray, ok := img.(*image.Gray)
	require.True(t, ok)
	// origin falls back to the query envelope corner (1000, 2000)
	assert.Equal(t, Occupied, gray.GrayAt(40, 60).Y)
	assert.Equal(t, Free, gray.GrayAt(0, 0).Y)
}

func TestBuildFootprints_ExplicitOrigin(t *testing.T) {
	dir := t.TempDir()
	mapJSON := filepath.Join(dir, "footprints.json")
	require.NoError(t, os.WriteFile(mapJSON, []byte(sampleDocument), 0644))

	cfg := &config.FootprintConfig{
		MapJSON:    mapJSON,
		Origin:     []float64{1010, 2010},
		Size:       100,
		Resolution: 1,
		Image:      filepath.Join(dir, "mask.png"),
	}
	require.NoError(t, BuildFootprints(cfg, offsetConverter{}))

	file, err := os.Open(cfg.Image)
	require.NoError(t, err)
	defer file.Close()
	img, err := png.Decode(file)
	require.NoError(t, err)

	gray := img.(*image.Gray)
	assert.Equal(t, Occupied, gray.GrayAt(10, 89).Y)
	assert.Equal(t, Free, gray.GrayAt(9, 89).Y)
}

func TestBuildFootprints_MissingMapJSON(t *testing.T) {
	cfg := &config.FootprintConfig{
		MapJSON:    filepath.Join(t.TempDir(), "missing.json"),
		Size:       10,
		Resolution: 1,
		Image:      filepath.Join(t.TempDir(), "mask.png"),
	}

	err := BuildFootprints(cfg, offsetConverter{})

	var cfgErr *config.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
