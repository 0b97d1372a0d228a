package footprints

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ecopia-map/usgs_terrain/internal/config"
	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/golang/glog"
	"github.com/paulmach/orb"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/vector"
)

const (
	Free     uint8 = 255
	Occupied uint8 = 0
)

var colorOccupied = color.Gray{Y: Occupied}

// Placement maps footprint coordinates onto a Size x Size image
type Placement struct {
	Size       int
	Resolution float64
	Origin     orb.Point
}

// ToPixel maps a ground point to pixel space. Offsets are clamped to the tile so
// footprints crossing its edge are cut instead of wrapping, and y is flipped
// because image rows grow downward.
func (p Placement) ToPixel(pt orb.Point) orb.Point {
	size := float64(p.Size)
	x := clamp(pt[0]-p.Origin[0], 0, size) / p.Resolution
	y := (size - clamp(pt[1]-p.Origin[1], 0, size)) / p.Resolution
	return orb.Point{x, y}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

// Rasterize burns every footprint into a fresh mask. Overlapping footprints are
// simply drawn over each other.
func Rasterize(footprints []orb.Ring, placement Placement) *image.Gray {
	mask := image.NewGray(image.Rect(0, 0, placement.Size, placement.Size))
	for i := range mask.Pix {
		mask.Pix[i] = Free
	}

	rasterizer := vector.NewRasterizer(0, 0)
	for _, ring := range footprints {
		burnRing(mask, rasterizer, ring, placement)
	}

	return mask
}

func burnRing(mask *image.Gray, rasterizer *vector.Rasterizer, ring orb.Ring, placement Placement) {
	if len(ring) < 3 {
		return
	}

	pixels := make(orb.Ring, len(ring))
	for i, pt := range ring {
		pixels[i] = placement.ToPixel(pt)
	}

	bound := pixels.Bound()
	area := image.Rect(
		int(math.Floor(bound.Min[0])), int(math.Floor(bound.Min[1])),
		int(math.Ceil(bound.Max[0])), int(math.Ceil(bound.Max[1])),
	).Intersect(mask.Bounds())
	if area.Empty() {
		return
	}

	rasterizer.Reset(area.Dx(), area.Dy())
	rasterizer.DrawOp = draw.Src
	ox, oy := float64(area.Min.X), float64(area.Min.Y)
	rasterizer.MoveTo(float32(pixels[0][0]-ox), float32(pixels[0][1]-oy))
	for _, pt := range pixels[1:] {
		rasterizer.LineTo(float32(pt[0]-ox), float32(pt[1]-oy))
	}
	rasterizer.ClosePath()

	coverage := image.NewAlpha(image.Rect(0, 0, area.Dx(), area.Dy()))
	rasterizer.Draw(coverage, coverage.Bounds(), image.Opaque, image.Point{})

	for y := 0; y < area.Dy(); y++ {
		for x := 0; x < area.Dx(); x++ {
			// a pixel is occupied once the polygon covers its center
			if coverage.AlphaAt(x, y).A >= 0x80 {
				mask.SetGray(area.Min.X+x, area.Min.Y+y, colorOccupied)
			}
		}
	}
}

// SaveImage writes img in the format implied by the extension of path.
func SaveImage(img image.Image, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".png":
		err = png.Encode(file, img)
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 100})
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".bmp":
		err = bmp.Encode(file, img)
	default:
		err = fmt.Errorf("unsupported image format %q", ext)
	}

	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

// BuildFootprints renders the footprint document named by cfg into cfg.Image.
// When cfg.Srid names a system other than the document's, vertices are
// reprojected first; without an explicit origin the query envelope corner is used.
func BuildFootprints(cfg *config.FootprintConfig, converter converters.CoordinateConverter) error {
	set, err := LoadFile(cfg.MapJSON)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &config.ConfigurationError{Path: cfg.MapJSON, Err: err}
		}
		return err
	}

	if cfg.Srid != 0 && set.Srid != 0 && cfg.Srid != set.Srid {
		glog.Infof("reprojecting %d footprints from EPSG:%d to EPSG:%d", len(set.Footprints), set.Srid, cfg.Srid)
		set, err = set.Reproject(converter, cfg.Srid)
		if err != nil {
			return err
		}
	}

	placement := Placement{Size: cfg.Size, Resolution: cfg.Resolution}
	if cfg.HasOrigin() {
		placement.Origin = orb.Point{cfg.Origin[0], cfg.Origin[1]}
	} else if origin, ok := set.QueryOrigin(); ok {
		placement.Origin = origin
	}

	mask := Rasterize(set.Footprints, placement)
	glog.Infof("rasterized %d footprints into %s", len(set.Footprints), cfg.Image)

	return SaveImage(mask, cfg.Image)
}
