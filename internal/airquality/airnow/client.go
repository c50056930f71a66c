// Package airnow provides the EPA AirNow adapter.
package airnow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the AirNow API.
	DefaultBaseURL = "https://www.airnowapi.org"

	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "epa_airnow"

	// DefaultDistance is the reporting area search radius in miles.
	DefaultDistance = 25
)

// Bounds is a lat/lon bounding box.
type Bounds struct {
	North, South, West, East float64
}

// Contains reports whether c lies inside b, edges included.
func (b Bounds) Contains(c airquality.Coordinate) bool {
	return c.Latitude >= b.South && c.Latitude <= b.North &&
		c.Longitude >= b.West && c.Longitude <= b.East
}

// Coverage spans the United States including Alaska, Hawaii and the
// territories AirNow reports on.
var Coverage = Bounds{North: 70, South: 14, West: -180, East: -50}

// ClientConfig holds configuration for the AirNow client.
type ClientConfig struct {
	BaseURL string

	// APIKey is passed as the API_KEY query parameter.
	APIKey string

	// HTTPClient is the HTTP client to use. If nil, a single-attempt
	// resilient client is created.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Timeout    time.Duration

	// Distance in miles (default: DefaultDistance).
	Distance int

	Clock clockwork.Clock
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the EPA AirNow adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPDoer
	distance   int
	clock      clockwork.Clock
}

// NewClient creates a new AirNow client.
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

	distance := cfg.Distance
	if distance <= 0 {
		distance = DefaultDistance
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		distance:   distance,
		clock:      clock,
	}
}

// Source implements airquality.Adapter.
func (c *Client) Source() airquality.Source {
	return airquality.SourceAirNow
}

// observation is one element of the current observations array.
type observation struct {
	ReportingArea string  `json:"ReportingArea"`
	StateCode     string  `json:"StateCode"`
	Latitude      float64 `json:"Latitude"`
	Longitude     float64 `json:"Longitude"`
	ParameterName string  `json:"ParameterName"`
	AQI           int     `json:"AQI"`
	Category      struct {
		Number int    `json:"Number"`
		Name   string `json:"Name"`
	} `json:"Category"`
}

// Fetch returns the current observations nearest to coord. AirNow reports
// per-pollutant AQI values; concentrations are derived from them.
func (c *Client) Fetch(ctx context.Context, coord airquality.Coordinate) (*airquality.Reading, error) {
	source := c.Source()
	if c.apiKey == "" {
		return nil, airquality.NewFailure(source, airquality.ReasonNotConfigured, errors.New("missing api key"))
	}
	if !Coverage.Contains(coord) {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, fmt.Errorf("%s outside coverage", coord))
	}

	observations, err := c.fetchObservations(ctx, coord)
	if err != nil {
		return nil, err
	}

	pollutants := airquality.Pollutants{}
	overall := 0
	var area, state string
	for _, obs := range observations {
		p, ok := mapParameter(obs.ParameterName)
		if !ok || obs.AQI <= 0 {
			continue
		}
		if obs.AQI > overall {
			overall = obs.AQI
		}
		if _, seen := pollutants[p]; !seen {
			pollutants.Set(p, airquality.ConcentrationForAQI(p, obs.AQI))
		}
		if area == "" {
			area, state = strings.TrimSpace(obs.ReportingArea), strings.TrimSpace(obs.StateCode)
		}
	}

	if overall == 0 {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, errors.New("no usable observations"))
	}

	location := area
	if state != "" {
		location = area + ", " + state
	}

	return &airquality.Reading{
		Coordinates: coord,
		Location:    location,
		AQI:         airquality.ClampAQI(overall),
		Pollutants:  pollutants,
		Timestamp:   c.clock.Now().UTC(),
	}, nil
}

func (c *Client) fetchObservations(ctx context.Context, coord airquality.Coordinate) ([]observation, error) {
	source := c.Source()

	q := url.Values{}
	q.Set("format", "application/json")
	q.Set("latitude", strconv.FormatFloat(coord.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(coord.Longitude, 'f', 4, 64))
	q.Set("distance", strconv.Itoa(c.distance))
	q.Set("API_KEY", c.apiKey)

	reqURL := c.baseURL + "/aq/observation/latLong/current/?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonUnreachable, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonUnreachable, redact(err, c.apiKey))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, airquality.StatusFailure(source, resp.StatusCode)
	}

	var observations []observation
	if err := json.NewDecoder(resp.Body).Decode(&observations); err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	if len(observations) == 0 {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, errors.New("no reporting area nearby"))
	}
	return observations, nil
}

func mapParameter(name string) (airquality.Pollutant, bool) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "PM2.5":
		return airquality.PollutantPM25, true
	case "PM10":
		return airquality.PollutantPM10, true
	case "OZONE", "O3":
		return airquality.PollutantO3, true
	case "NO2":
		return airquality.PollutantNO2, true
	case "SO2":
		return airquality.PollutantSO2, true
	case "CO":
		return airquality.PollutantCO, true
	default:
		return "", false
	}
}

// redact keeps the API key out of transport errors, which embed the URL.
func redact(err error, key string) error {
	return errors.New(strings.ReplaceAll(fmt.Sprintf("execute request: %v", err), key, "REDACTED"))
}
