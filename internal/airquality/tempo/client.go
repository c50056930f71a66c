// Package tempo provides the NASA TEMPO satellite adapter. Granules are
// located through the Earthdata CMR search API and converted to surface
// estimates with a column model.
package tempo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the CMR search endpoint host.
	DefaultBaseURL = "https://cmr.earthdata.nasa.gov"

	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "nasa_tempo"

	// NO2Collection is the TEMPO L2 NO2 collection concept ID.
	NO2Collection = "C2812438498-GES_DISC"

	// NadirLongitude is TEMPO's geostationary slot.
	NadirLongitude = -100.0

	// DefaultLookback bounds how old a granule may be.
	DefaultLookback = 24 * time.Hour
)

// Bounds is the TEMPO field of regard.
var Bounds = struct {
	North, South, West, East float64
}{North: 70, South: 15, West: -140, East: -50}

// Covers reports whether c lies inside the TEMPO field of regard.
func Covers(c airquality.Coordinate) bool {
	return c.Latitude >= Bounds.South && c.Latitude <= Bounds.North &&
		c.Longitude >= Bounds.West && c.Longitude <= Bounds.East
}

// ClientConfig holds configuration for the TEMPO client.
type ClientConfig struct {
	BaseURL string

	// Credentials supplies the Earthdata bearer token. Required for Fetch
	// to make requests; nil behaves as not configured.
	Credentials *CredentialCache

	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Timeout    time.Duration

	Collection string
	Lookback   time.Duration
	Clock      clockwork.Clock
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the TEMPO adapter.
type Client struct {
	baseURL     string
	credentials *CredentialCache
	httpClient  HTTPDoer
	collection  string
	lookback    time.Duration
	clock       clockwork.Clock
}

// NewClient creates a new TEMPO client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		rc.Registry = cfg.Registry
		httpClient = resilience.NewClient(rc)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = NO2Collection
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		credentials: cfg.Credentials,
		httpClient:  httpClient,
		collection:  collection,
		lookback:    lookback,
		clock:       clock,
	}
}

// Source implements airquality.Adapter.
func (c *Client) Source() airquality.Source {
	return airquality.SourceTEMPO
}

type searchResponse struct {
	Feed struct {
		Entry []granule `json:"entry"`
	} `json:"feed"`
}

type granule struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	TimeStart string `json:"time_start"`
}

// Fetch finds the most recent granule covering coord and estimates
// surface concentrations from it.
func (c *Client) Fetch(ctx context.Context, coord airquality.Coordinate) (*airquality.Reading, error) {
	source := c.Source()
	if c.credentials == nil || !c.credentials.Configured() {
		return nil, airquality.NewFailure(source, airquality.ReasonNotConfigured, ErrNoCredentials)
	}
	if !Covers(coord) {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, fmt.Errorf("%s outside field of regard", coord))
	}

	token, err := c.credentials.Token(ctx)
	if err != nil {
		return nil, credentialFailure(err)
	}

	g, err := c.latestGranule(ctx, coord, token)
	if err != nil {
		return nil, err
	}

	observed, err := time.Parse(time.RFC3339, g.TimeStart)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonMalformedResponse, fmt.Errorf("granule %s time_start: %w", g.ID, err))
	}

	columns := EstimateColumns(coord, observed)
	if columns.Quality == QualityPoor {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage,
			fmt.Errorf("granule %s cloud fraction %.2f", g.ID, columns.CloudFraction))
	}

	pollutants := columns.Surface()
	aqi, _ := airquality.OverallAQI(pollutants)

	return &airquality.Reading{
		Coordinates: coord,
		Location:    location(coord),
		AQI:         airquality.ClampAQI(aqi),
		Pollutants:  pollutants,
		Timestamp:   c.clock.Now().UTC(),
	}, nil
}

func (c *Client) latestGranule(ctx context.Context, coord airquality.Coordinate, token string) (*granule, error) {
	source := c.Source()
	now := c.clock.Now().UTC()

	q := url.Values{}
	q.Set("collection_concept_id", c.collection)
	q.Set("bounding_box", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f",
		coord.Longitude-0.1, coord.Latitude-0.1, coord.Longitude+0.1, coord.Latitude+0.1))
	q.Set("temporal", now.Add(-c.lookback).Format(time.RFC3339)+","+now.Format(time.RFC3339))
	q.Set("sort_key", "-start_date")
	q.Set("page_size", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search/granules.json?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonUnreachable, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonUnreachable, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.credentials.Reset()
	}
	if resp.StatusCode != http.StatusOK {
		return nil, airquality.StatusFailure(source, resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	if len(body.Feed.Entry) == 0 {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, errors.New("no recent granule"))
	}
	return &body.Feed.Entry[0], nil
}

// location names the pixel and the angle it was seen at.
func location(coord airquality.Coordinate) string {
	return fmt.Sprintf("%.2f, %.2f (TEMPO satellite, %.0f° view)",
		coord.Latitude, coord.Longitude, ViewingZenithAngle(coord))
}

func credentialFailure(err error) *airquality.Failure {
	switch {
	case errors.Is(err, ErrNoCredentials):
		return airquality.NewFailure(airquality.SourceTEMPO, airquality.ReasonNotConfigured, err)
	case errors.Is(err, ErrTokenRejected):
		return airquality.NewFailure(airquality.SourceTEMPO, airquality.ReasonUnauthorized, err)
	default:
		return airquality.NewFailure(airquality.SourceTEMPO, airquality.ReasonUnreachable, err)
	}
}
