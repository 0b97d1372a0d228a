// Package footprints turns building footprint polygons from a feature service
// into an occupancy mask.
package footprints

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ecopia-map/usgs_terrain/internal/converters"
	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/paulmach/orb"
)

type SpatialReference struct {
	Wkid       int `json:"wkid"`
	LatestWkid int `json:"latestWkid"`
}

// Srid prefers the latest EPSG code the service reports.
func (s SpatialReference) Srid() int {
	if s.LatestWkid != 0 {
		return s.LatestWkid
	}
	return s.Wkid
}

type esriPolygon struct {
	Rings            [][][]float64     `json:"rings"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

type esriFeature struct {
	Geometry esriPolygon `json:"geometry"`
}

type esriDocument struct {
	QueryGeometry    esriPolygon       `json:"queryGeometry"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
	Features         []esriFeature     `json:"features"`
}

// FootprintSet holds the outer ring of every footprint and of the query envelope.
type FootprintSet struct {
	Srid       int
	Query      orb.Ring
	Footprints []orb.Ring
}

func LoadFile(path string) (*FootprintSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Decode(file)
}

func Decode(r io.Reader) (*FootprintSet, error) {
	var doc esriDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding footprints: %w", err)
	}

	set := &FootprintSet{
		Footprints: make([]orb.Ring, 0, len(doc.Features)),
	}

	switch {
	case doc.QueryGeometry.SpatialReference != nil:
		set.Srid = doc.QueryGeometry.SpatialReference.Srid()
	case doc.SpatialReference != nil:
		set.Srid = doc.SpatialReference.Srid()
	}

	if len(doc.QueryGeometry.Rings) > 0 {
		ring, err := toRing(doc.QueryGeometry.Rings[0])
		if err != nil {
			return nil, fmt.Errorf("queryGeometry: %w", err)
		}
		set.Query = ring
	}

	for i, feature := range doc.Features {
		// only the outer ring is drawn
		if len(feature.Geometry.Rings) == 0 {
			continue
		}
		ring, err := toRing(feature.Geometry.Rings[0])
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		set.Footprints = append(set.Footprints, ring)
	}

	return set, nil
}

func toRing(coords [][]float64) (orb.Ring, error) {
	ring := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("coordinate with %d values", len(c))
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	return ring, nil
}

// QueryOrigin returns the lower left corner of the query envelope.
func (s *FootprintSet) QueryOrigin() (orb.Point, bool) {
	if len(s.Query) == 0 {
		return orb.Point{}, false
	}
	return s.Query.Bound().Min, true
}

// Reproject returns a copy of the set with every vertex expressed in targetSrid.
func (s *FootprintSet) Reproject(converter converters.CoordinateConverter, targetSrid int) (*FootprintSet, error) {
	if s.Srid == targetSrid {
		return s, nil
	}

	query, err := reprojectRing(converter, s.Query, s.Srid, targetSrid)
	if err != nil {
		return nil, err
	}

	out := &FootprintSet{
		Srid:       targetSrid,
		Query:      query,
		Footprints: make([]orb.Ring, 0, len(s.Footprints)),
	}
	for _, ring := range s.Footprints {
		projected, err := reprojectRing(converter, ring, s.Srid, targetSrid)
		if err != nil {
			return nil, err
		}
		out.Footprints = append(out.Footprints, projected)
	}

	return out, nil
}

func reprojectRing(converter converters.CoordinateConverter, ring orb.Ring, sourceSrid, targetSrid int) (orb.Ring, error) {
	if ring == nil {
		return nil, nil
	}
	out := make(orb.Ring, len(ring))
	for i, p := range ring {
		c, err := converter.ConvertCoordinateSrid(sourceSrid, targetSrid, geometry.Coordinate{X: p[0], Y: p[1]})
		if err != nil {
			return nil, err
		}
		out[i] = orb.Point{c.X, c.Y}
	}
	return out, nil
}
