// Package openaq provides the ground station adapter backed by the OpenAQ
// v3 API.
package openaq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the base URL for the OpenAQ v3 API.
	DefaultBaseURL = "https://api.openaq.org"

	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "openaq"

	// DefaultRadius is the station search radius in meters (API maximum).
	DefaultRadius = 25000

	// DefaultMaxLocations bounds how many stations are queried for latest
	// values per lookup.
	DefaultMaxLocations = 4
)

// Molar volume of an ideal gas at 25 °C and 1 atm, in liters.
const molarVolume = 24.45

// molecularWeight in g/mol, used to convert µg/m³ to mixing ratios.
var molecularWeight = map[airquality.Pollutant]float64{
	airquality.PollutantO3:  48.00,
	airquality.PollutantNO2: 46.01,
	airquality.PollutantSO2: 64.07,
	airquality.PollutantCO:  28.01,
}

// ClientConfig holds configuration for the OpenAQ client.
type ClientConfig struct {
	// BaseURL is the API base URL (defaults to DefaultBaseURL).
	BaseURL string

	// APIKey is sent as X-API-Key. Without it Fetch fails with
	// not_configured and makes no request.
	APIKey string

	// HTTPClient is the HTTP client to use (must implement HTTPDoer).
	// If nil, a single-attempt resilient client is created.
	HTTPClient HTTPDoer

	// Registry receives the default client for health reporting.
	Registry *resilience.Registry

	// Timeout for individual API requests (default: 10s).
	Timeout time.Duration

	Radius       int
	MaxLocations int

	// Interpolation zero fields fall back to the package defaults.
	Interpolation airquality.InterpolationConfig
	Clock         clockwork.Clock
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the OpenAQ ground station adapter.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   HTTPDoer
	radius       int
	maxLocations int
	interpolator *airquality.Interpolator
	clock        clockwork.Clock
}

// NewClient creates a new OpenAQ client.
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

	radius := cfg.Radius
	if radius <= 0 || radius > DefaultRadius {
		radius = DefaultRadius
	}
	maxLocations := cfg.MaxLocations
	if maxLocations <= 0 {
		maxLocations = DefaultMaxLocations
	}
	clock := cfg.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		apiKey:       cfg.APIKey,
		httpClient:   httpClient,
		radius:       radius,
		maxLocations: maxLocations,
		interpolator: airquality.NewInterpolator(cfg.Interpolation),
		clock:        clock,
	}
}

// Source implements airquality.Adapter.
func (c *Client) Source() airquality.Source {
	return airquality.SourceGroundStation
}

// API response types (from OpenAQ v3).

type locationsResponse struct {
	Results []locationData `json:"results"`
}

type locationData struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Locality    string         `json:"locality"`
	Coordinates coordinateData `json:"coordinates"`
	Sensors     []sensorData   `json:"sensors"`
	Distance    *float64       `json:"distance"`
}

type coordinateData struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type sensorData struct {
	ID        int64         `json:"id"`
	Parameter parameterData `json:"parameter"`
}

type parameterData struct {
	Name  string `json:"name"`
	Units string `json:"units"`
}

type latestResponse struct {
	Results []latestData `json:"results"`
}

type latestData struct {
	Datetime  datetimeData `json:"datetime"`
	Value     *float64     `json:"value"`
	SensorsID int64        `json:"sensorsId"`
}

type datetimeData struct {
	UTC string `json:"utc"`
}

// Fetch looks up nearby stations, pulls their latest values and
// interpolates them to the requested coordinate.
func (c *Client) Fetch(ctx context.Context, coord airquality.Coordinate) (*airquality.Reading, error) {
	source := c.Source()
	if c.apiKey == "" {
		return nil, airquality.NewFailure(source, airquality.ReasonNotConfigured, errors.New("missing api key"))
	}

	locations, err := c.fetchLocations(ctx, coord)
	if err != nil {
		return nil, err
	}
	if len(locations) == 0 {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage,
			fmt.Errorf("no stations within %d m", c.radius))
	}
	if len(locations) > c.maxLocations {
		locations = locations[:c.maxLocations]
	}

	snapshot, err := c.buildSnapshot(ctx, locations)
	if err != nil {
		return nil, err
	}

	point, err := c.interpolator.Interpolate(coord, snapshot)
	if err != nil {
		return nil, airquality.NewFailure(source, airquality.ReasonNoCoverage, err)
	}

	pollutants := point.Pollutants()
	aqi, _ := airquality.OverallAQI(pollutants)

	return &airquality.Reading{
		Coordinates: coord,
		Location:    locationName(snapshot, point),
		AQI:         airquality.ClampAQI(aqi),
		Pollutants:  pollutants,
		Timestamp:   c.clock.Now().UTC(),
	}, nil
}

func (c *Client) fetchLocations(ctx context.Context, coord airquality.Coordinate) ([]locationData, error) {
	q := url.Values{}
	q.Set("coordinates", fmt.Sprintf("%.4f,%.4f", coord.Latitude, coord.Longitude))
	q.Set("radius", strconv.Itoa(c.radius))
	q.Set("limit", "10")

	var resp locationsResponse
	if err := c.get(ctx, "/v3/locations?"+q.Encode(), &resp); err != nil {
		return nil, err
	}

	locations := resp.Results
	for i := range locations {
		if locations[i].Distance == nil {
			d := airquality.HaversineDistance(coord.Latitude, coord.Longitude,
				locations[i].Coordinates.Latitude, locations[i].Coordinates.Longitude)
			locations[i].Distance = &d
		}
	}
	sort.SliceStable(locations, func(i, j int) bool {
		return *locations[i].Distance < *locations[j].Distance
	})
	return locations, nil
}

func (c *Client) buildSnapshot(ctx context.Context, locations []locationData) (*airquality.AQSnapshot, error) {
	snapshot := airquality.NewAQSnapshot(ProviderName, c.clock.Now().UTC())

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, loc := range locations {
		sensors := sensorIndex(loc.Sensors)
		if len(sensors) == 0 {
			continue
		}

		g.Go(func() error {
			var resp latestResponse
			path := fmt.Sprintf("/v3/locations/%d/latest", loc.ID)
			if err := c.get(gctx, path, &resp); err != nil {
				return err
			}

			mu.Lock()
			defer mu.Unlock()
			addLocation(snapshot, loc, sensors, resp.Results)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	source := c.Source()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return airquality.NewFailure(source, airquality.ReasonUnreachable, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return airquality.NewFailure(source, airquality.ReasonUnreachable, fmt.Errorf("execute request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return airquality.StatusFailure(source, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return airquality.NewFailure(source, airquality.ReasonMalformedResponse, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

type sensorInfo struct {
	pollutant airquality.Pollutant
	units     string
}

func sensorIndex(sensors []sensorData) map[int64]sensorInfo {
	out := make(map[int64]sensorInfo, len(sensors))
	for _, s := range sensors {
		if p, ok := mapParameter(s.Parameter.Name); ok {
			out[s.ID] = sensorInfo{pollutant: p, units: s.Parameter.Units}
		}
	}
	return out
}

func addLocation(snapshot *airquality.AQSnapshot, loc locationData, sensors map[int64]sensorInfo, latest []latestData) {
	id := strconv.FormatInt(loc.ID, 10)
	station := &airquality.Station{
		ID:   id,
		Name: stationName(loc),
		Lat:  loc.Coordinates.Latitude,
		Lon:  loc.Coordinates.Longitude,
	}
	snapshot.Stations[id] = station

	for _, l := range latest {
		info, ok := sensors[l.SensorsID]
		if !ok || l.Value == nil || *l.Value < 0 {
			continue
		}
		value, ok := toCanonical(info.pollutant, *l.Value, info.units)
		if !ok {
			continue
		}

		measuredAt, _ := time.Parse(time.RFC3339, l.Datetime.UTC)
		if measuredAt.After(station.UpdatedAt) {
			station.UpdatedAt = measuredAt
		}
		snapshot.SetMeasurement(&airquality.Measurement{
			StationID:  id,
			Pollutant:  info.pollutant,
			Value:      value,
			MeasuredAt: measuredAt,
		})
	}
}

func mapParameter(name string) (airquality.Pollutant, bool) {
	switch strings.ToLower(name) {
	case "pm25", "pm2.5":
		return airquality.PollutantPM25, true
	case "pm10":
		return airquality.PollutantPM10, true
	case "o3":
		return airquality.PollutantO3, true
	case "no2":
		return airquality.PollutantNO2, true
	case "so2":
		return airquality.PollutantSO2, true
	case "co":
		return airquality.PollutantCO, true
	default:
		return "", false
	}
}

// toCanonical converts a value in the sensor's reported units to the
// pollutant's canonical unit.
func toCanonical(p airquality.Pollutant, v float64, units string) (float64, bool) {
	u := strings.ToLower(strings.TrimSpace(units))
	want := strings.ToLower(p.Unit())
	if u == want {
		return v, true
	}

	switch u {
	case "ppm":
		if want == "ppb" {
			return v * 1000, true
		}
	case "ppb":
		if want == "ppm" {
			return v / 1000, true
		}
	case "µg/m³", "ug/m3", "µg/m3":
		mw, ok := molecularWeight[p]
		if !ok {
			return 0, false
		}
		ppb := v * molarVolume / mw
		if want == "ppm" {
			return ppb / 1000, true
		}
		return ppb, true
	}
	return 0, false
}

func stationName(loc locationData) string {
	switch {
	case loc.Name != "" && loc.Locality != "":
		return loc.Name + ", " + loc.Locality
	case loc.Name != "":
		return loc.Name
	default:
		return loc.Locality
	}
}

func locationName(snapshot *airquality.AQSnapshot, point *airquality.InterpolatedPoint) string {
	id, _ := point.Nearest()
	if st, ok := snapshot.Stations[id]; ok && st.Name != "" {
		return st.Name
	}
	return point.Coordinate.String()
}
