package scene

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/converters/elevation/offset_elevation_corrector"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/ecopia-map/usgs_terrain/internal/raster"
	"github.com/ecopia-map/usgs_terrain/tools"
	"github.com/golang/glog"
	"github.com/shopspring/decimal"
)

const (
	DefaultWorldFile = "usgs_simulation_environment.world"
	// Prefix the simulator resolves world assets against
	WorldsReference = "file://worlds/"
)

//go:embed world_template.world
var DefaultTemplate string

// WorldFileUpdater patches a single world file. It assumes it is the only
// writer of that file for the duration of each Open/Close cycle.
type WorldFileUpdater struct {
	Dir      string
	Filename string
	// Text used when the world file does not exist yet
	Template string
	// Reference system of the heightmap geotransform
	HeightmapSrid int

	converter converters.CoordinateConverter
	opener    raster.Opener

	file    *os.File
	created bool
}

func NewWorldFileUpdater(dir, filename string, converter converters.CoordinateConverter, opener raster.Opener) *WorldFileUpdater {
	if filename == "" {
		filename = DefaultWorldFile
	}
	return &WorldFileUpdater{
		Dir:           dir,
		Filename:      filename,
		Template:      DefaultTemplate,
		HeightmapSrid: converters.WGS84Srid,
		converter:     converter,
		opener:        opener,
	}
}

func (u *WorldFileUpdater) Path() string {
	return filepath.Join(u.Dir, u.Filename)
}

// Open returns the current world text, or the template when the file does not
// exist yet. The file handle stays open until Close.
func (u *WorldFileUpdater) Open() (string, error) {
	if u.file != nil {
		return "", fmt.Errorf("world file %s is already open", u.Path())
	}

	path := u.Path()
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if errors.Is(err, os.ErrNotExist) {
		if err := tools.CreateDirectoryIfDoesNotExist(u.Dir); err != nil {
			return "", fmt.Errorf("creating world directory: %w", err)
		}
		file, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0644)
		if err != nil {
			return "", fmt.Errorf("creating world file: %w", err)
		}
		u.file, u.created = file, true
		return u.Template, nil
	}
	if err != nil {
		return "", fmt.Errorf("opening world file: %w", err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		_ = file.Close()
		return "", fmt.Errorf("reading world file %s: %w", path, err)
	}
	u.file, u.created = file, false

	return string(data), nil
}

// Close replaces the whole content of the world file with text and releases
// the handle taken by Open.
func (u *WorldFileUpdater) Close(text string) error {
	if u.file == nil {
		return fmt.Errorf("world file %s is not open", u.Path())
	}
	file := u.file
	u.file = nil

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		_ = file.Close()
		return fmt.Errorf("rewinding world file: %w", err)
	}
	if err := file.Truncate(0); err != nil {
		_ = file.Close()
		return fmt.Errorf("truncating world file: %w", err)
	}
	if _, err := io.WriteString(file, text); err != nil {
		_ = file.Close()
		return fmt.Errorf("writing world file: %w", err)
	}

	return file.Close()
}

// abort releases the handle without writing. A file created by Open is removed
// again so a failed update never leaves an empty world behind.
func (u *WorldFileUpdater) abort() {
	if u.file == nil {
		return
	}
	_ = u.file.Close()
	if u.created {
		_ = os.Remove(u.file.Name())
	}
	u.file = nil
}

// Update runs a single read-modify-write cycle, letting several anchors be
// changed with one write.
func (u *WorldFileUpdater) Update(mutate func(doc *Document) error) error {
	text, err := u.Open()
	if err != nil {
		return err
	}

	doc := ParseDocument(text)
	if err := mutate(doc); err != nil {
		u.abort()
		return err
	}

	return u.Close(doc.String())
}

func (u *WorldFileUpdater) set(anchor Anchor, value string) error {
	return u.Update(func(doc *Document) error {
		if n := doc.Set(anchor, value); n == 0 {
			glog.Warningf("%s has no %s anchor, left unchanged", u.Path(), anchor)
		}
		return nil
	})
}

// SetElevationOffset moves the heightmap so its center sits on the world origin.
func (u *WorldFileUpdater) SetElevationOffset(heightmapPath string) error {
	offset, err := u.ElevationOffset(heightmapPath)
	if err != nil {
		return err
	}
	return u.set(ElevationPosition, offset.StringFixed(6))
}

// SetElevation writes the world height corrector gives the raster zero level.
func (u *WorldFileUpdater) SetElevation(corrector converters.ElevationCorrector) error {
	z := decimal.NewFromFloat(corrector.CorrectElevation(0, 0, 0))
	return u.set(ElevationPosition, z.StringFixed(6))
}

// ElevationOffset is the negated mean of the four center samples of the heightmap.
func (u *WorldFileUpdater) ElevationOffset(heightmapPath string) (decimal.Decimal, error) {
	heightmap, err := u.opener.Open(heightmapPath)
	if err != nil {
		return decimal.Zero, err
	}
	defer heightmap.Close()

	mean, err := offset_elevation_corrector.CenterElevation(heightmap)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", heightmapPath, err)
	}

	return mean.Neg(), nil
}

// SetTextureScale writes scale into the texture size anchor. A zero scale is
// derived from the metric width of heightmapPath instead.
func (u *WorldFileUpdater) SetTextureScale(scale int, heightmapPath string) error {
	if scale == 0 && heightmapPath != "" {
		derived, err := u.TextureScale(heightmapPath)
		if err != nil {
			return err
		}
		scale = derived
	}
	return u.set(TextureSize, strconv.Itoa(scale))
}

// TextureScale returns the east-west extent of the heightmap in Web Mercator
// meters, measured along its middle row.
func (u *WorldFileUpdater) TextureScale(heightmapPath string) (int, error) {
	heightmap, err := u.opener.Open(heightmapPath)
	if err != nil {
		return 0, err
	}
	defer heightmap.Close()

	gt := heightmap.GeoTransform()
	width, height := float64(heightmap.Width()), float64(heightmap.Height())
	row := gt[3] + height/2*gt[5]

	west, err := u.converter.ConvertCoordinateSrid(u.HeightmapSrid, converters.WebMercatorSrid, geometry.Coordinate{X: gt[0], Y: row})
	if err != nil {
		return 0, err
	}
	east, err := u.converter.ConvertCoordinateSrid(u.HeightmapSrid, converters.WebMercatorSrid, geometry.Coordinate{X: gt[0] + width*gt[1], Y: row})
	if err != nil {
		return 0, err
	}

	return int(math.Round(math.Abs(east.X - west.X))), nil
}

// SetTextureReference points the texture diffuse anchor at the basename of texturePath.
func (u *WorldFileUpdater) SetTextureReference(texturePath string) error {
	return u.set(TextureDiffuse, TextureReference(texturePath))
}

func TextureReference(texturePath string) string {
	return WorldsReference + filepath.Base(texturePath)
}
