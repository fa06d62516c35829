// Package govmap fetches POI layers from the GovMap GeoServer WFS endpoint
// and writes them as the raw category CSVs the pipeline loads.
package govmap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/neighborhood-insights/insights-cli/internal/model"
)

// DefaultLayers maps categories to their GovMap layer names.
// The train-stations typo is upstream's, not ours.
func DefaultLayers() map[model.Category]string {
	return map[model.Category]string{
		model.CategorySchools:       "opendata:layer_school",
		model.CategoryKindergartens: "opendata:layer_kids_g",
		model.CategoryClinics:       "opendata:layer_clinics",
		model.CategoryBusStops:      "opendata:layer_bus_stops",
		model.CategoryTrainStations: "opendata:layer_train_statoins",
	}
}

// Client pages through WFS 2.0.0 GetFeature responses. GovMap serves the
// geoserver behind a browser-oriented frontend, so requests carry
// browser-like headers to avoid HTML/Cesium responses.
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	limiter    *rate.Limiter
	log        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithPageSize sets the WFS page size (count parameter).
func WithPageSize(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRateLimit sets the requests-per-second politeness limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// NewClient creates a GovMap WFS client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		baseURL:    baseURL,
		pageSize:   5000,
		limiter:    rate.NewLimiter(4, 1),
		log:        zap.L().With(zap.String("component", "govmap")),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchLayer retrieves every feature of a layer, paging with count/startIndex
// until a short page arrives.
func (c *Client) FetchLayer(ctx context.Context, layer string) (*geojson.FeatureCollection, error) {
	all := geojson.NewFeatureCollection()

	for startIndex := 0; ; startIndex += c.pageSize {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "govmap: rate limiter")
		}

		page, err := c.fetchPage(ctx, layer, startIndex)
		if err != nil {
			return nil, err
		}

		all.Features = append(all.Features, page.Features...)
		c.log.Debug("fetched wfs page",
			zap.String("layer", layer),
			zap.Int("start_index", startIndex),
			zap.Int("features", len(page.Features)),
		)

		if len(page.Features) < c.pageSize {
			break
		}
	}

	c.log.Info("layer fetched", zap.String("layer", layer), zap.Int("features", len(all.Features)))
	return all, nil
}

func (c *Client) fetchPage(ctx context.Context, layer string, startIndex int) (*geojson.FeatureCollection, error) {
	params := url.Values{
		"service":      {"WFS"},
		"version":      {"2.0.0"},
		"request":      {"GetFeature"},
		"typeNames":    {layer},
		"outputFormat": {"application/json"},
		"srsName":      {"EPSG:4326"},
		"count":        {fmt.Sprintf("%d", c.pageSize)},
		"startIndex":   {fmt.Sprintf("%d", startIndex)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "govmap: build request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; neighborhood-insights-il/1.0)")
	req.Header.Set("Accept", "application/json,text/plain,*/*")
	req.Header.Set("Origin", "https://www.govmap.gov.il")
	req.Header.Set("Referer", "https://www.govmap.gov.il/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "govmap: fetch %s", layer)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("govmap: layer %s returned status %d", layer, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "govmap: read response")
	}

	fc, err := geojson.UnmarshalFeatureCollection(body)
	if err != nil {
		return nil, eris.Wrapf(err, "govmap: parse layer %s (got non-GeoJSON response?)", layer)
	}
	return fc, nil
}

// POIs converts a fetched feature collection into POI records for one
// category. Non-point geometries are reduced to their bound center.
// Features without usable geometry are skipped.
func POIs(fc *geojson.FeatureCollection, cat model.Category) []model.POI {
	pois := make([]model.POI, 0, len(fc.Features))
	for i, f := range fc.Features {
		if f.Geometry == nil {
			continue
		}

		var pt orb.Point
		if p, ok := f.Geometry.(orb.Point); ok {
			pt = p
		} else {
			pt = f.Geometry.Bound().Center()
		}

		poi := model.POI{
			ID:        featureID(f, i),
			Name:      featureName(f),
			Category:  cat,
			Latitude:  pt.Lat(),
			Longitude: pt.Lon(),
		}
		if err := poi.Validate(); err != nil {
			continue
		}
		pois = append(pois, poi)
	}
	return pois
}

// featureID extracts a stable numeric id, falling back to the feature's
// position in the collection.
func featureID(f *geojson.Feature, fallback int) int64 {
	for _, key := range []string{"id", "objectid", "oid"} {
		if v, ok := f.Properties[key]; ok {
			switch n := v.(type) {
			case float64:
				return int64(n)
			case int:
				return int64(n)
			}
		}
	}
	return int64(fallback + 1)
}

// featureName probes the candidate Hebrew name attributes GovMap layers use.
func featureName(f *geojson.Feature) string {
	for _, key := range []string{"name_he", "shem_mosad", "shem", "name"} {
		if v, ok := f.Properties[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
