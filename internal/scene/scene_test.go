package scene

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/ecopia-map/usgs_terrain/internal/raster"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const earthRadius = 6378137.0

// sphericalMercator converts between EPSG:4326 and EPSG:3857 with the closed form
// definition of the latter.
type sphericalMercator struct{}

func (sphericalMercator) ConvertCoordinateSrid(source, target int, c geometry.Coordinate) (geometry.Coordinate, error) {
	switch {
	case source == target:
		return c, nil
	case source == converters.WGS84Srid && target == converters.WebMercatorSrid:
		return geometry.Coordinate{
			X: earthRadius * c.X * math.Pi / 180,
			Y: earthRadius * math.Log(math.Tan(math.Pi/4+c.Y*math.Pi/360)),
		}, nil
	case source == converters.WebMercatorSrid && target == converters.WGS84Srid:
		return geometry.Coordinate{
			X: c.X / earthRadius * 180 / math.Pi,
			Y: (2*math.Atan(math.Exp(c.Y/earthRadius)) - math.Pi/2) * 180 / math.Pi,
		}, nil
	}
	return geometry.Coordinate{}, &converters.ReferenceSystemError{Srid: target}
}

func (sphericalMercator) Cleanup() {}

func centerGrid(a, b, c, d float64) *raster.Grid {
	g := raster.NewGrid(4, 4, raster.GeoTransform{-105, 0.001, 0, 40, 0, -0.001})
	for i := range g.Values {
		g.Values[i] = 9999
	}
	g.Set(1, 1, a)
	g.Set(2, 1, b)
	g.Set(1, 2, c)
	g.Set(2, 2, d)
	return g
}

func TestDocument_SplicesOnlyValues(t *testing.T) {
	text := "<a>keep</a>\n<pos>  12.5\t-3 7 </pos>\n<size> 1028 </size><diffuse>file://worlds/old.png</diffuse>\n<size>1 1 1</size>\n"
	doc := ParseDocument(text)

	assert.Equal(t, 1, doc.Count(ElevationPosition))
	assert.Equal(t, 1, doc.Count(TextureSize))
	assert.Equal(t, 1, doc.Count(TextureDiffuse))
	assert.Equal(t, text, doc.String())

	doc.Set(ElevationPosition, "-1.500000")
	doc.Set(TextureSize, "2000")
	doc.Set(TextureDiffuse, "file://worlds/texture.png")

	assert.Equal(t,
		"<a>keep</a>\n<pos>  12.5\t-3 -1.500000 </pos>\n<size>2000</size><diffuse>file://worlds/texture.png</diffuse>\n<size>1 1 1</size>\n",
		doc.String())
	assert.Equal(t, []string{"2000"}, doc.Values(TextureSize))
}

func TestDocument_DefaultTemplate(t *testing.T) {
	doc := ParseDocument(DefaultTemplate)

	assert.Equal(t, 2, doc.Count(ElevationPosition))
	assert.Equal(t, []string{"0", "0"}, doc.Values(ElevationPosition))
	assert.Equal(t, []string{"1028"}, doc.Values(TextureSize))
	assert.Equal(t, []string{"file://worlds/texture.png"}, doc.Values(TextureDiffuse))
}

func TestDocument_MissingAnchor(t *testing.T) {
	doc := ParseDocument("<world/>")
	assert.Equal(t, 0, doc.Set(TextureSize, "10"))
	assert.Equal(t, "<world/>", doc.String())
}

func TestWorldFileUpdater_OpenClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "worlds")
	u := NewWorldFileUpdater(dir, "", sphericalMercator{}, raster.StaticOpener{})
	assert.Equal(t, filepath.Join(dir, DefaultWorldFile), u.Path())

	text, err := u.Open()
	require.NoError(t, err)
	assert.Equal(t, DefaultTemplate, text)

	_, err = u.Open()
	assert.Error(t, err, "second open without close")

	require.NoError(t, u.Close("short"))
	assert.Error(t, u.Close("again"))

	text, err = u.Open()
	require.NoError(t, err)
	assert.Equal(t, "short", text)
	require.NoError(t, u.Close("x"))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	assert.Equal(t, "x", string(data), "previous content is truncated")
}

func TestWorldFileUpdater_SetElevationOffsetTwice(t *testing.T) {
	dir := t.TempDir()
	opener := raster.StaticOpener{
		"first.tif":  centerGrid(10, 20, 30, 40),
		"second.tif": centerGrid(100, 101, 102, 102),
	}
	u := NewWorldFileUpdater(dir, "test.world", sphericalMercator{}, opener)
	u.Template = "<heightmap>\n  <pos>12.5 -3 0</pos>\n</heightmap>\n"

	require.NoError(t, u.SetElevationOffset("first.tif"))
	require.NoError(t, u.SetElevationOffset("second.tif"))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	assert.Equal(t, "<heightmap>\n  <pos>12.5 -3 -101.250000</pos>\n</heightmap>\n", string(data))
	assert.Equal(t, 1, strings.Count(string(data), "<pos>"))
}

func TestWorldFileUpdater_SetElevationOffsetDefaultTemplate(t *testing.T) {
	opener := raster.StaticOpener{"hm.tif": centerGrid(-2, -2, -2, -2)}
	u := NewWorldFileUpdater(t.TempDir(), "", sphericalMercator{}, opener)

	require.NoError(t, u.SetElevationOffset("hm.tif"))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	doc := ParseDocument(string(data))
	assert.Equal(t, []string{"2.000000", "2.000000"}, doc.Values(ElevationPosition))
	assert.Equal(t, 2, strings.Count(string(data), "<pos>0 0 2.000000</pos>"))
}

func TestWorldFileUpdater_TextureScaleMatchesBoundingBox(t *testing.T) {
	converter := sphericalMercator{}
	bbox, err := converters.ComputeBoundingBox(converter, geometry.Coordinate{X: -105.2705, Y: 40.015}, converters.WGS84Srid, 1000, converters.WGS84Srid, converters.WebMercatorSrid)
	require.NoError(t, err)

	grid := raster.NewGrid(513, 513, raster.GeoTransform{bbox.Xmin, bbox.Width() / 513, 0, bbox.Ymax, 0, -bbox.Height() / 513})
	u := NewWorldFileUpdater(t.TempDir(), "", converter, raster.StaticOpener{"hm.tif": grid})

	scale, err := u.TextureScale("hm.tif")
	require.NoError(t, err)
	assert.InDelta(t, 1000, scale, 1)

	require.NoError(t, u.SetTextureScale(0, "hm.tif"))
	text, err := u.Open()
	require.NoError(t, err)
	require.NoError(t, u.Close(text))
	assert.Equal(t, []string{"1000"}, ParseDocument(text).Values(TextureSize))
}

func TestWorldFileUpdater_TextureScaleRoundsToNearestMeter(t *testing.T) {
	for _, tc := range []struct {
		pixel float64
		want  int
	}{
		{249.99999, 1000},
		{250.1, 1000},
		{250.2, 1001},
		{0.1, 0},
	} {
		grid := raster.NewGrid(4, 4, raster.GeoTransform{500000, tc.pixel, 0, 4400000, 0, -tc.pixel})
		u := NewWorldFileUpdater(t.TempDir(), "", sphericalMercator{}, raster.StaticOpener{"hm.tif": grid})
		u.HeightmapSrid = converters.WebMercatorSrid

		scale, err := u.TextureScale("hm.tif")
		require.NoError(t, err)
		assert.Equal(t, tc.want, scale, "pixel size %g", tc.pixel)
	}
}

func TestWorldFileUpdater_ExplicitTextureScaleAndReference(t *testing.T) {
	u := NewWorldFileUpdater(t.TempDir(), "", sphericalMercator{}, raster.StaticOpener{})

	require.NoError(t, u.SetTextureScale(2048, "ignored.tif"))
	require.NoError(t, u.SetTextureReference("/tmp/out/imagery.png"))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "<size>2048</size>")
	assert.Contains(t, string(data), "<diffuse>file://worlds/imagery.png</diffuse>")
	assert.Contains(t, string(data), "<pos>0 0 0</pos>")
}

func TestWorldFileUpdater_FailuresLeaveNoFile(t *testing.T) {
	u := NewWorldFileUpdater(t.TempDir(), "", sphericalMercator{}, raster.StaticOpener{})

	assert.Error(t, u.SetElevationOffset("missing.tif"))
	assert.Error(t, u.SetTextureScale(0, "missing.tif"))
	_, err := os.Stat(u.Path())
	assert.True(t, os.IsNotExist(err))

	boom := errors.New("boom")
	err = u.Update(func(doc *Document) error { return boom })
	assert.ErrorIs(t, err, boom)
	_, err = os.Stat(u.Path())
	assert.True(t, os.IsNotExist(err), "created file is removed on abort")

	// handle was released, a new cycle works
	require.NoError(t, u.SetTextureReference("texture.jpg"))
}

func TestWorldFileUpdater_KeepsExistingContent(t *testing.T) {
	dir := t.TempDir()
	u := NewWorldFileUpdater(dir, "custom.world", sphericalMercator{}, raster.StaticOpener{})
	original := "<sdf>\n  <!-- hand edited -->\n  <diffuse>file://worlds/a.png</diffuse>\n</sdf>\n"
	require.NoError(t, os.WriteFile(u.Path(), []byte(original), 0644))

	require.NoError(t, u.SetTextureReference("b.png"))
	require.NoError(t, u.SetTextureScale(10, ""))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	assert.Equal(t, strings.Replace(original, "a.png", "b.png", 1), string(data))
}

func TestWorldFileUpdater_SetElevationFromCorrector(t *testing.T) {
	u := NewWorldFileUpdater(t.TempDir(), "", sphericalMercator{}, raster.StaticOpener{})

	require.NoError(t, u.SetElevation(offset_elevation_corrector.NewOffsetElevationCorrector(-12.5)))

	data, err := os.ReadFile(u.Path())
	require.NoError(t, err)
	assert.Equal(t, []string{"-12.500000", "-12.500000"}, ParseDocument(string(data)).Values(ElevationPosition))
}
