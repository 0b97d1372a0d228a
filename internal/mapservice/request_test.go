package mapservice

import (
	"net/url"
	"testing"

	"github.com/ecopia-map/usgs_terrain/internal/geometry"
	"github.com/stretchr/testify/assert"
)

func TestFileExtension(t *testing.T) {
	cases := map[string]string{
		"tiff":   "tif",
		"jpgpng": "png",
		"png8":   "png",
		"png32":  "png",
		"jpg":    "jpg",
		"lerc":   "lerc",
	}
	for format, want := range cases {
		assert.Equal(t, want, FileExtension(url.Values{"format": {format}}), format)
	}
	assert.Equal(t, "txt", FileExtension(url.Values{"f": {"json"}}))
}

func TestMapRequestURL(t *testing.T) {
	req := MapRequest{
		BaseURL: "https://example.test/ImageServer/exportImage",
		Params:  url.Values{"f": {"image"}, "bbox": {"1,2,3,4"}},
	}
	assert.Equal(t, "https://example.test/ImageServer/exportImage?bbox=1%2C2%2C3%2C4&f=image", req.URL())
	assert.Equal(t, req.URL(), NewMapFetcher(0).RequestURL(req))

	withQuery := MapRequest{BaseURL: "https://example.test/q?token=t", Params: url.Values{"f": {"json"}}}
	assert.Equal(t, "https://example.test/q?token=t&f=json", withQuery.URL())

	assert.Equal(t, "https://example.test/x", MapRequest{BaseURL: "https://example.test/x"}.URL())
}

func TestNewExportImageRequest(t *testing.T) {
	bbox := &geometry.BoundingBox{Xmin: -105.5, Ymin: 40, Xmax: -105.25, Ymax: 40.125, Srid: 4326}

	req := NewExportImageRequest("https://example.test/exportImage", bbox, 513, 4326, "tiff", ResponseModeImage)
	assert.Equal(t, "-105.5,40,-105.25,40.125", req.Params.Get("bbox"))
	assert.Equal(t, "4326", req.Params.Get("bboxSR"))
	assert.Equal(t, "513,513", req.Params.Get("size"))
	assert.Equal(t, "F32", req.Params.Get("pixelType"))
	assert.Equal(t, "image", req.Params.Get("f"))

	texture := NewExportImageRequest("https://example.test/exportImage", bbox, 1024, 4326, "jpgpng", ResponseModeJSON)
	assert.Empty(t, texture.Params.Get("pixelType"))
	assert.Equal(t, "png", FileExtension(texture.Params))
}

func TestNewFootprintQueryRequest(t *testing.T) {
	bbox := &geometry.BoundingBox{Xmin: 1, Ymin: 2, Xmax: 3, Ymax: 4, Srid: 3857}

	req := NewFootprintQueryRequest("https://example.test/FeatureServer/0/query", bbox, 3857)
	assert.Equal(t, "1,2,3,4", req.Params.Get("geometry"))
	assert.Equal(t, "esriGeometryEnvelope", req.Params.Get("geometryType"))
	assert.Equal(t, "true", req.Params.Get("returnQueryGeometry"))
	assert.Equal(t, "json", req.Params.Get("f"))
	assert.Equal(t, "txt", FileExtension(req.Params))
}
