package mapservice

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
)

const (
	ResponseModeJSON  = "json"
	ResponseModeImage = "image"
)

// MapRequest is a service endpoint plus its query parameters.
type MapRequest struct {
	BaseURL string
	Params  url.Values
}

// URL returns the request with its parameters URL-encoded onto the base URL.
func (r MapRequest) URL() string {
	if len(r.Params) == 0 {
		return r.BaseURL
	}
	sep := "?"
	if strings.Contains(r.BaseURL, "?") {
		sep = "&"
	}
	return r.BaseURL + sep + r.Params.Encode()
}

// FileExtension maps the request format to the extension of the persisted raster.
func FileExtension(params url.Values) string {
	if _, ok := params["format"]; !ok {
		return "txt"
	}
	return FormatExtension(params.Get("format"))
}

func FormatExtension(format string) string {
	switch {
	case format == "tiff":
		return "tif"
	case format == "jpgpng":
		return "png"
	case strings.Contains(format, "png"):
		return "png"
	default:
		return format
	}
}

// NewExportImageRequest builds an ImageServer exportImage request covering bbox
// with a square image of sizePx pixels.
func NewExportImageRequest(baseURL string, bbox *geometry.BoundingBox, sizePx int, imageSrid int, format string, responseMode string) MapRequest {
	params := url.Values{}
	params.Set("bbox", formatBoundingBox(bbox))
	params.Set("bboxSR", strconv.Itoa(bbox.Srid))
	params.Set("size", fmt.Sprintf("%d,%d", sizePx, sizePx))
	params.Set("imageSR", strconv.Itoa(imageSrid))
	params.Set("format", format)
	if format == "tiff" {
		params.Set("pixelType", "F32")
	}
	params.Set("interpolation", "RSP_BilinearInterpolation")
	params.Set("f", responseMode)

	return MapRequest{BaseURL: baseURL, Params: params}
}

// NewFootprintQueryRequest builds a FeatureServer query returning every feature
// intersecting bbox, with geometries in outSrid and the query envelope echoed back.
func NewFootprintQueryRequest(baseURL string, bbox *geometry.BoundingBox, outSrid int) MapRequest {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("geometry", formatBoundingBox(bbox))
	params.Set("geometryType", "esriGeometryEnvelope")
	params.Set("inSR", strconv.Itoa(bbox.Srid))
	params.Set("spatialRel", "esriSpatialRelIntersects")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("returnQueryGeometry", "true")
	params.Set("outSR", strconv.Itoa(outSrid))
	params.Set("f", ResponseModeJSON)

	return MapRequest{BaseURL: baseURL, Params: params}
}

func formatBoundingBox(bbox *geometry.BoundingBox) string {
	return strings.Join([]string{
		strconv.FormatFloat(bbox.Xmin, 'f', -1, 64),
		strconv.FormatFloat(bbox.Ymin, 'f', -1, 64),
		strconv.FormatFloat(bbox.Xmax, 'f', -1, 64),
		strconv.FormatFloat(bbox.Ymax, 'f', -1, 64),
	}, ",")
}
