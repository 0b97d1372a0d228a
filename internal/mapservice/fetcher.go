package mapservice

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/ecopia-map/usgs_terrain/tools"
	"github.com/golang/glog"
	"gopkg.in/yaml.v3"
)

const (
	StatusOK     = 0
	StatusFailed = -1

	// Logical name whose sidecar downstream tooling reads as JSON
	footprintsName = "footprints"
)

type MapFetcher struct {
	client *http.Client
}

func NewMapFetcher(timeout time.Duration) *MapFetcher {
	return &MapFetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// RequestURL returns the full request URL without dispatching it.
func (f *MapFetcher) RequestURL(req MapRequest) string {
	return req.URL()
}

// GetMap fetches req and persists the result next to filename: the raster with the
// extension derived from the request format, and for json responses a sidecar
// document with the remaining metadata. It returns StatusOK, or StatusFailed after
// logging why; failures never escape as errors.
func (f *MapFetcher) GetMap(req MapRequest, filename string) int {
	err := f.getMap(req, filename)
	if err == nil {
		return StatusOK
	}

	name := filepath.Base(filename)
	var netErr *NetworkError
	var fsErr *PersistenceError
	switch {
	case errors.As(err, &netErr):
		glog.Errorf("Fetch of %s from %s failed: %v", name, netErr.URL, netErr.Err)
	case errors.As(err, &fsErr):
		glog.Errorf("File problem with %s: %v", fsErr.Path, fsErr.Err)
	default:
		glog.Errorf("Fetch of %s failed: %v", name, err)
	}

	return StatusFailed
}

func (f *MapFetcher) getMap(req MapRequest, filename string) error {
	dir := filepath.Dir(filename)
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	extension := FileExtension(req.Params)

	var rasterData []byte

	switch mode := req.Params.Get("f"); mode {
	case ResponseModeJSON:
		body, err := f.get(req.URL())
		if err != nil {
			return err
		}

		document, data, err := decodeJSONResponse(req.URL(), body)
		if err != nil {
			return err
		}
		rasterData = data

		if err := writeSidecar(dir, stem, document); err != nil {
			return err
		}

		// documented shape: the raster lives behind a link
		if href, ok := document.String("href"); ok && href != "" {
			data, err := f.get(href)
			if err != nil {
				return err
			}
			rasterData = data
		}

	case ResponseModeImage:
		data, err := f.get(req.URL())
		if err != nil {
			return err
		}
		rasterData = data

	default:
		return fmt.Errorf("unsupported response mode f=%q", mode)
	}

	if len(rasterData) > 0 {
		path := filepath.Join(dir, stem+"."+extension)
		if err := tools.WriteFileAtomic(path, rasterData); err != nil {
			return &PersistenceError{Path: path, Err: err}
		}
		glog.Infof("wrote %d bytes to %s", len(rasterData), path)
	}

	return nil
}

func (f *MapFetcher) get(requestURL string) ([]byte, error) {
	glog.V(1).Infoln("GET", requestURL)

	resp, err := f.client.Get(requestURL)
	if err != nil {
		return nil, &NetworkError{URL: requestURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &NetworkError{URL: requestURL, Err: fmt.Errorf("HTTP status %s", resp.Status)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{URL: requestURL, Err: err}
	}

	return body, nil
}

// Decodes a json response. The undocumented inline shape carries the raster as
// base64 in imageData; both imageData and contentType are removed from the
// returned document. A raster that cannot be decoded is dropped with a warning.
func decodeJSONResponse(requestURL string, body []byte) (*responseDocument, []byte, error) {
	document, err := parseResponseDocument(body)
	if err != nil {
		return nil, nil, fmt.Errorf("decoding response: %w", err)
	}

	// the service reports errors as a 200 with an error object
	if raw, ok := document.values["error"]; ok {
		var serviceErr map[string]interface{}
		if json.Unmarshal(raw, &serviceErr) == nil && serviceErr != nil {
			return nil, nil, &NetworkError{URL: requestURL, Err: fmt.Errorf("service error: %v", serviceErr["message"])}
		}
	}

	if _, ok := document.values["imageData"]; !ok {
		return document, nil, nil
	}

	var rasterData []byte
	if text, isString := document.String("imageData"); !isString {
		glog.Warningf("imageData in %s is not a base64 string, no raster written", requestURL)
	} else if data, err := base64.StdEncoding.DecodeString(text); err != nil {
		glog.Warningf("imageData in %s is not valid base64, no raster written: %v", requestURL, err)
	} else {
		rasterData = data
	}
	document.Delete("imageData")
	document.Delete("contentType")

	return document, rasterData, nil
}

func writeSidecar(dir string, stem string, document *responseDocument) error {
	var (
		path string
		buf  bytes.Buffer
	)

	if stem == footprintsName {
		path = filepath.Join(dir, stem+".json")
		if err := json.Indent(&buf, document.compact(), "", "    "); err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		buf.WriteByte('\n')
	} else {
		path = filepath.Join(dir, stem+".yaml")
		node, err := document.yamlNode()
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		encoder := yaml.NewEncoder(&buf)
		encoder.SetIndent(4)
		if err := encoder.Encode(node); err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		if err := encoder.Close(); err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
	}

	if err := tools.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return &PersistenceError{Path: path, Err: err}
	}

	return nil
}
