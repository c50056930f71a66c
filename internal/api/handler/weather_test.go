package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/api/handler"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/weather"
)

type fakeWeather struct {
	obs *weather.Observation
	err error
}

func (f *fakeWeather) GetCurrentWeather(_ context.Context, lat, lon float64) (*weather.Observation, error) {
	if f.err != nil {
		return nil, f.err
	}
	o := *f.obs
	o.Lat, o.Lon = lat, lon
	return &o, nil
}

type weatherGate bool

func (g weatherGate) WeatherContextDisabled(context.Context) bool { return bool(g) }

func stagnantObservation() *weather.Observation {
	return &weather.Observation{
		Location:      "Denver",
		Temperature:   18,
		Humidity:      85,
		WindSpeed:     0.5,
		WindDirection: 90,
		Pressure:      1025,
		Condition:     weather.ConditionHaze,
		ObservedAt:    readingTime,
	}
}

func TestGetWeather(t *testing.T) {
	h := handler.NewWeatherHandler(&fakeWeather{obs: stagnantObservation()}, nil, zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetWeather(rec, httptest.NewRequest(http.MethodGet, "/api/weather?lat=39.74&lon=-104.99", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.WeatherResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, models.Point{Lat: 39.74, Lon: -104.99}, body.Data.Coordinates)
	assert.Equal(t, "E", body.Data.Wind.Compass)
	assert.Equal(t, string(weather.WindCalm), body.Data.Wind.Category)
	assert.Equal(t, "HAZE", body.Data.Condition)

	require.NotNil(t, body.Impact)
	m := weather.ModifiersFor(stagnantObservation())
	assert.InDelta(t, m.AQI, body.Impact.AQIModifier, 1e-9)
	assert.Equal(t, m.Impact(), body.Impact.Impact)
	assert.Equal(t, string(weather.TransportStagnant), body.Impact.Transport)
	assert.Contains(t, body.Impact.Factors, "Low wind speed limiting dispersion")
}

func TestGetWeather_ContextDisabled(t *testing.T) {
	h := handler.NewWeatherHandler(&fakeWeather{obs: stagnantObservation()}, weatherGate(true), zerolog.Nop())

	rec := httptest.NewRecorder()
	h.GetWeather(rec, httptest.NewRequest(http.MethodGet, "/api/weather?lat=39.74&lon=-104.99", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "airQualityImpact")
}

func TestGetWeather_Errors(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		err        error
		wantStatus int
		wantRetry  string
	}{
		{"missing lon", "?lat=1", nil, http.StatusBadRequest, ""},
		{"not configured", "?lat=1&lon=1", weather.ErrNotConfigured, http.StatusServiceUnavailable, ""},
		{"provider down", "?lat=1&lon=1", fmt.Errorf("%w: timeout", weather.ErrProviderUnavailable), http.StatusServiceUnavailable, "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewWeatherHandler(&fakeWeather{obs: stagnantObservation(), err: tt.err}, nil, zerolog.Nop())

			rec := httptest.NewRecorder()
			h.GetWeather(rec, httptest.NewRequest(http.MethodGet, "/api/weather"+tt.query, http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantRetry, rec.Header().Get("Retry-After"))
			decodeProblem(t, rec)
		})
	}
}
