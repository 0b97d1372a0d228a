// Package raster exposes the small slice of a geospatial raster the terrain
// pipeline needs: its size, its geotransform and single pixel reads.
package raster

import (
	"fmt"
	"sync"

	"github.com/airbusgeo/godal"
)

// GeoTransform follows the GDAL convention:
// Xgeo = gt[0] + col*gt[1] + row*gt[2], Ygeo = gt[3] + col*gt[4] + row*gt[5]
type GeoTransform [6]float64

type Dataset interface {
	Width() int
	Height() int
	GeoTransform() GeoTransform
	// PixelAt returns the first band value at column x, row y
	PixelAt(x, y int) (float64, error)
	Close() error
}

type Opener interface {
	Open(path string) (Dataset, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(path string) (Dataset, error)

func (f OpenerFunc) Open(path string) (Dataset, error) {
	return f(path)
}

var registerOnce sync.Once

type gdalOpener struct{}

func NewGdalOpener() Opener {
	registerOnce.Do(godal.RegisterAll)
	return &gdalOpener{}
}

func (o *gdalOpener) Open(path string) (Dataset, error) {
	ds, err := godal.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening raster %s: %w", path, err)
	}

	structure := ds.Structure()
	if structure.NBands < 1 {
		_ = ds.Close()
		return nil, fmt.Errorf("raster %s has no bands", path)
	}

	gt, err := ds.GeoTransform()
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("reading geotransform of %s: %w", path, err)
	}

	return &gdalDataset{
		ds:     ds,
		band:   ds.Bands()[0],
		width:  structure.SizeX,
		height: structure.SizeY,
		gt:     GeoTransform(gt),
	}, nil
}

type gdalDataset struct {
	ds     *godal.Dataset
	band   godal.Band
	width  int
	height int
	gt     GeoTransform
}

func (d *gdalDataset) Width() int {
	return d.width
}

func (d *gdalDataset) Height() int {
	return d.height
}

func (d *gdalDataset) GeoTransform() GeoTransform {
	return d.gt
}

func (d *gdalDataset) PixelAt(x, y int) (float64, error) {
	if x < 0 || y < 0 || x >= d.width || y >= d.height {
		return 0, fmt.Errorf("pixel (%d, %d) outside %dx%d raster", x, y, d.width, d.height)
	}
	buf := make([]float64, 1)
	if err := d.band.Read(x, y, buf, 1, 1); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *gdalDataset) Close() error {
	return d.ds.Close()
}
