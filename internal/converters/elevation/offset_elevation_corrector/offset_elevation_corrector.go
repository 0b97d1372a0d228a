package offset_elevation_corrector

import (
	"fmt"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/raster"
	"github.com/shopspring/decimal"
)

type OffsetElevationCorrector struct {
	Offset float64
}

func NewOffsetElevationCorrector(offset float64) converters.ElevationCorrector {
	return &OffsetElevationCorrector{
		Offset: offset,
	}
}

// NewHeightmapCenterCorrector returns a corrector that moves the heightmap surface
// at its center down (or up) onto z = 0.
func NewHeightmapCenterCorrector(heightmap raster.Dataset) (*OffsetElevationCorrector, error) {
	mean, err := CenterElevation(heightmap)
	if err != nil {
		return nil, err
	}

	offset, _ := mean.Neg().Float64()
	return &OffsetElevationCorrector{Offset: offset}, nil
}

func (c *OffsetElevationCorrector) CorrectElevation(lon, lat, z float64) float64 {
	return z + c.Offset
}

// CenterElevation averages the four pixels nearest the center of the raster.
// Pixel centers sit at i+0.5, so the center of a w wide raster lies between
// columns floor((w-1)/2) and ceil((w-1)/2); for odd sizes both are the middle column.
func CenterElevation(heightmap raster.Dataset) (decimal.Decimal, error) {
	width, height := heightmap.Width(), heightmap.Height()
	if width < 1 || height < 1 {
		return decimal.Zero, fmt.Errorf("empty heightmap %dx%d", width, height)
	}

	cols := [2]int{(width - 1) / 2, width / 2}
	rows := [2]int{(height - 1) / 2, height / 2}

	samples := make([]decimal.Decimal, 0, 4)
	for _, col := range cols {
		for _, row := range rows {
			v, err := heightmap.PixelAt(col, row)
			if err != nil {
				return decimal.Zero, fmt.Errorf("sampling heightmap center: %w", err)
			}
			samples = append(samples, decimal.NewFromFloat(v))
		}
	}

	return decimal.Avg(samples[0], samples[1:]...), nil
}
