package airnow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/airquality/airnow"
)

var now = time.Date(2025, 10, 4, 15, 0, 0, 0, time.UTC)

func newClient(baseURL, key string) *airnow.Client {
	return airnow.NewClient(airnow.ClientConfig{
		BaseURL:    baseURL,
		APIKey:     key,
		HTTPClient: http.DefaultClient,
		Clock:      clockwork.NewFakeClockAt(now),
	})
}

func observation(param string, aqi int) map[string]any {
	return map[string]any{
		"DateObserved":  "2025-10-04 ",
		"HourObserved":  10,
		"LocalTimeZone": "EST",
		"ReportingArea": "New York City",
		"StateCode":     "NY",
		"Latitude":      40.7142,
		"Longitude":     -74.0064,
		"ParameterName": param,
		"AQI":           aqi,
		"Category":      map[string]any{"Number": 2, "Name": "Moderate"},
	}
}

func TestClient_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aq/observation/latLong/current/", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "application/json", q.Get("format"))
		assert.Equal(t, "40.7128", q.Get("latitude"))
		assert.Equal(t, "-74.0060", q.Get("longitude"))
		assert.Equal(t, "25", q.Get("distance"))
		assert.Equal(t, "secret", q.Get("API_KEY"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{
			observation("O3", 38),
			observation("PM2.5", 72),
			observation("PM10", -1),
		})
	}))
	defer server.Close()

	r, err := newClient(server.URL, "secret").Fetch(context.Background(),
		airquality.Coordinate{Latitude: 40.7128, Longitude: -74.0060})
	require.NoError(t, err)

	assert.Equal(t, 72, r.AQI)
	assert.Equal(t, airquality.LevelModerate, r.Level())
	assert.Equal(t, "New York City, NY", r.Location)
	assert.Len(t, r.Pollutants, 2)
	assert.InDelta(t, 72, airquality.CalculateAQI(airquality.PollutantPM25, r.Pollutants[airquality.PollutantPM25]), 1)
	assert.InDelta(t, 38, airquality.CalculateAQI(airquality.PollutantO3, r.Pollutants[airquality.PollutantO3]), 1)
	assert.Equal(t, now, r.Timestamp)
}

func TestClient_OutsideCoverage(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := newClient(server.URL, "secret").Fetch(context.Background(),
		airquality.Coordinate{Latitude: 51.5074, Longitude: -0.1278})

	var f *airquality.Failure
	require.True(t, errors.As(err, &f))
	assert.Equal(t, airquality.ReasonNoCoverage, f.Reason)
	assert.False(t, called)
}

func TestClient_FailureReasons(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		handler  http.HandlerFunc
		expected airquality.FailureReason
	}{
		{
			name:     "missing key",
			handler:  func(w http.ResponseWriter, r *http.Request) { t.Error("unexpected request") },
			expected: airquality.ReasonNotConfigured,
		},
		{
			name:     "bad key",
			key:      "wrong",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusForbidden) },
			expected: airquality.ReasonUnauthorized,
		},
		{
			name: "empty array",
			key:  "secret",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`[]`))
			},
			expected: airquality.ReasonNoCoverage,
		},
		{
			name: "html error page",
			key:  "secret",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`<html>maintenance</html>`))
			},
			expected: airquality.ReasonMalformedResponse,
		},
		{
			name: "only unknown parameters",
			key:  "secret",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode([]map[string]any{observation("PM1", 20)})
			},
			expected: airquality.ReasonNoCoverage,
		},
		{
			name:     "upstream outage",
			key:      "secret",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			expected: airquality.ReasonUnreachable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := newClient(server.URL, tt.key).Fetch(context.Background(),
				airquality.Coordinate{Latitude: 34.0522, Longitude: -118.2437})

			var f *airquality.Failure
			require.True(t, errors.As(err, &f))
			assert.Equal(t, tt.expected, f.Reason)
		})
	}
}

func TestClient_TransportErrorRedactsKey(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient(url, "super-secret-key").Fetch(context.Background(),
		airquality.Coordinate{Latitude: 34.0522, Longitude: -118.2437})

	require.Error(t, err)
	assert.NotContains(t, err.Error(), "super-secret-key")
}

func TestCoverage(t *testing.T) {
	assert.True(t, airnow.Coverage.Contains(airquality.Coordinate{Latitude: 61.2181, Longitude: -149.9003}))
	assert.True(t, airnow.Coverage.Contains(airquality.Coordinate{Latitude: 21.3069, Longitude: -157.8583}))
	assert.False(t, airnow.Coverage.Contains(airquality.Coordinate{Latitude: 48.8566, Longitude: 2.3522}))
	assert.False(t, airnow.Coverage.Contains(airquality.Coordinate{Latitude: -33.8688, Longitude: 151.2093}))
}
