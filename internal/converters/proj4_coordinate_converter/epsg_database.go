package proj4_coordinate_converter

import (
	"bufio"
	_ "embed"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	proj "github.com/xeonx/proj4"
)

//go:embed epsg_projections.txt
var epsgProjections string

var epsgLineRegex = regexp.MustCompile(`^<(\d+)>\s+(.+?)\s*<>$`)

type epsgProjection struct {
	EpsgCode    int
	Description string
	Proj4       string
	Projection  *proj.Proj
}

// Parses the static definitions and appends the generated UTM zones
func loadEpsgDatabase() (map[int]*epsgProjection, error) {
	database := make(map[int]*epsgProjection)

	description := ""
	scanner := bufio.NewScanner(strings.NewReader(epsgProjections))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			description = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			continue
		}

		match := epsgLineRegex.FindStringSubmatch(line)
		if match == nil {
			return nil, fmt.Errorf("malformed epsg definition %q", line)
		}
		code, err := strconv.Atoi(match[1])
		if err != nil {
			return nil, fmt.Errorf("malformed epsg code %q: %w", match[1], err)
		}
		database[code] = &epsgProjection{
			EpsgCode:    code,
			Description: description,
			Proj4:       match[2],
		}
		description = ""
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	addUtmZones(database)

	return database, nil
}

func addUtmZones(database map[int]*epsgProjection) {
	for zone := 1; zone <= 60; zone++ {
		north := 32600 + zone
		database[north] = &epsgProjection{
			EpsgCode:    north,
			Description: fmt.Sprintf("WGS 84 / UTM zone %dN", zone),
			Proj4:       fmt.Sprintf("+proj=utm +zone=%d +datum=WGS84 +units=m +no_defs", zone),
		}
		south := 32700 + zone
		database[south] = &epsgProjection{
			EpsgCode:    south,
			Description: fmt.Sprintf("WGS 84 / UTM zone %dS", zone),
			Proj4:       fmt.Sprintf("+proj=utm +zone=%d +south +datum=WGS84 +units=m +no_defs", zone),
		}
	}

	for zone := 1; zone <= 23; zone++ {
		code := 26900 + zone
		database[code] = &epsgProjection{
			EpsgCode:    code,
			Description: fmt.Sprintf("NAD83 / UTM zone %dN", zone),
			Proj4:       fmt.Sprintf("+proj=utm +zone=%d +ellps=GRS80 +datum=NAD83 +units=m +no_defs", zone),
		}
	}
}
