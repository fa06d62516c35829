// Package geocode resolves street addresses to WGS84 coordinates through the
// Nominatim search API, with CSV batch processing that resumes from its own
// output file.
package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org/search"

// Result is one geocoded coordinate pair.
type Result struct {
	Latitude  float64
	Longitude float64
}

// Client geocodes a single structured address.
type Client interface {
	Geocode(ctx context.Context, street, city string) (*Result, error)
}

// ErrNotFound is returned when Nominatim has no match for an address.
var ErrNotFound = eris.New("geocode: address not found")

// HTTPClient is the Nominatim-backed Client. Public Nominatim requires a
// descriptive User-Agent and at most one request per second.
type HTTPClient struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	country    string
	limiter    *rate.Limiter
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// WithBaseURL overrides the Nominatim endpoint.
func WithBaseURL(u string) Option {
	return func(c *HTTPClient) { c.baseURL = u }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) { c.userAgent = ua }
}

// WithCountry sets the country appended to every query.
func WithCountry(country string) Option {
	return func(c *HTTPClient) { c.country = country }
}

// WithMinInterval sets the minimum delay between requests.
func WithMinInterval(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// NewClient creates a Nominatim client.
func NewClient(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		userAgent:  "neighborhood-insights-il/1.0",
		country:    "Israel",
		limiter:    rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type nominatimHit struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode resolves a street within a city. Returns ErrNotFound when the
// service has no candidate.
func (c *HTTPClient) Geocode(ctx context.Context, street, city string) (*Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limiter")
	}

	params := url.Values{
		"format":  {"jsonv2"},
		"limit":   {"1"},
		"street":  {street},
		"city":    {city},
		"country": {c.country},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "geocode: query %q", street)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: status %d for %q", resp.StatusCode, street)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read response")
	}

	var hits []nominatimHit
	if err := json.Unmarshal(body, &hits); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(hits) == 0 {
		return nil, ErrNotFound
	}

	lat, err := strconv.ParseFloat(hits[0].Lat, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lat")
	}
	lon, err := strconv.ParseFloat(hits[0].Lon, 64)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: parse lon")
	}
	return &Result{Latitude: lat, Longitude: lon}, nil
}
