package io

import "github.com/ecopia-map/usgs_terrain/internal/mapservice"

// Contains the minimal data needed to fetch a single asset from the map service
type WorkUnit struct {
	Name     string // logical asset name, e.g. heightmap
	Request  mapservice.MapRequest
	Filename string // output path without extension
}
