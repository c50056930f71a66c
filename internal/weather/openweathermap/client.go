// Package openweathermap provides the OpenWeatherMap current weather provider.
package openweathermap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/provider/resilience"
	"github.com/airwatchpro/airwatch/internal/weather"
)

const (
	// ProviderName identifies this provider in the resilience registry.
	ProviderName = "openweathermap"

	// DefaultBaseURL is the OpenWeatherMap 2.5 API.
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	maxBodyBytes = 1 << 20
)

// ClientConfig holds configuration for the OpenWeatherMap client.
type ClientConfig struct {
	// APIKey is sent as appid. Without it every call fails with
	// weather.ErrNotConfigured.
	APIKey  string
	BaseURL string

	// HTTPClient defaults to a resilient client that retries 5xx.
	HTTPClient HTTPDoer
	Registry   *resilience.Registry
	Timeout    time.Duration

	Logger zerolog.Logger
	Clock  clockwork.Clock
}

// HTTPDoer abstracts HTTP request execution.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is an OpenWeatherMap API client.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient HTTPDoer
	logger     zerolog.Logger
	clock      clockwork.Clock
}

// NewClient creates a new OpenWeatherMap client.
func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.HTTPClient == nil {
		rc := resilience.DefaultClientConfig(ProviderName)
		rc.Retry = resilience.DefaultRetryPolicy()
		rc.Registry = cfg.Registry
		if cfg.Timeout > 0 {
			rc.Timeout = cfg.Timeout
		}
		cfg.HTTPClient = resilience.NewClient(rc)
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
		clock:      cfg.Clock,
	}
}

// Name implements weather.Provider.
func (c *Client) Name() string {
	return ProviderName
}

// GetCurrentWeather implements weather.Provider. A rejected key is
// reported as weather.ErrNotConfigured so callers stop treating it as an
// outage.
func (c *Client) GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error) {
	if c.apiKey == "" {
		return nil, weather.ErrNotConfigured
	}

	q := url.Values{
		"lat":   {strconv.FormatFloat(lat, 'f', 6, 64)},
		"lon":   {strconv.FormatFloat(lon, 'f', 6, 64)},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/weather?"+q.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %s", c.redact(err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %s", c.redact(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%w: api key rejected (status 401)", weather.ErrNotConfigured)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var body currentWeather
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	obs := body.observation(lat, lon, c.clock.Now())
	c.logger.Debug().
		Str("location", obs.Location).
		Float64("wind_speed", obs.WindSpeed).
		Str("condition", string(obs.Condition)).
		Msg("fetched current weather")
	return obs, nil
}

// redact strips the api key from errors that embed the request URL.
func (c *Client) redact(err error) string {
	return strings.ReplaceAll(err.Error(), c.apiKey, "REDACTED")
}

// conditions maps OpenWeatherMap "main" groups. Particulate groups all
// count as haze since they matter the same way for air quality.
var conditions = map[string]weather.Condition{
	"Clear":        weather.ConditionClear,
	"Clouds":       weather.ConditionClouds,
	"Rain":         weather.ConditionRain,
	"Drizzle":      weather.ConditionDrizzle,
	"Thunderstorm": weather.ConditionThunderstorm,
	"Snow":         weather.ConditionSnow,
	"Mist":         weather.ConditionMist,
	"Fog":          weather.ConditionFog,
	"Haze":         weather.ConditionHaze,
	"Smoke":        weather.ConditionHaze,
	"Dust":         weather.ConditionHaze,
	"Sand":         weather.ConditionHaze,
	"Ash":          weather.ConditionHaze,
	"Squall":       weather.ConditionHaze,
	"Tornado":      weather.ConditionHaze,
}

type currentWeather struct {
	Coord *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"coord"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Pressure float64 `json:"pressure"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Visibility int `json:"visibility"`
	Wind       struct {
		Speed float64 `json:"speed"`
		Deg   float64 `json:"deg"`
		Gust  float64 `json:"gust"`
	} `json:"wind"`
	Clouds struct {
		All float64 `json:"all"`
	} `json:"clouds"`
	Rain lastHour `json:"rain"`
	Snow lastHour `json:"snow"`
	Dt   int64    `json:"dt"`
	Name string   `json:"name"`
}

type lastHour struct {
	MM float64 `json:"1h"`
}

// observation converts the response. The requested point is kept when
// the provider omits coord.
func (w *currentWeather) observation(lat, lon float64, fetchedAt time.Time) *weather.Observation {
	if w.Coord != nil {
		lat, lon = w.Coord.Lat, w.Coord.Lon
	}
	obs := &weather.Observation{
		Lat:           lat,
		Lon:           lon,
		Location:      w.Name,
		Temperature:   w.Main.Temp,
		Humidity:      w.Main.Humidity,
		WindSpeed:     w.Wind.Speed,
		WindDirection: w.Wind.Deg,
		WindGust:      w.Wind.Gust,
		Pressure:      w.Main.Pressure,
		Precipitation: w.Rain.MM + w.Snow.MM,
		CloudCover:    w.Clouds.All,
		Visibility:    float64(w.Visibility),
		Condition:     weather.ConditionUnknown,
		ObservedAt:    time.Unix(w.Dt, 0).UTC(),
		FetchedAt:     fetchedAt.UTC(),
	}
	if len(w.Weather) > 0 {
		if cond, ok := conditions[w.Weather[0].Main]; ok {
			obs.Condition = cond
		}
		obs.Description = w.Weather[0].Description
	}
	return obs
}
