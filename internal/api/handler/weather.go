package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
	"github.com/airwatchpro/airwatch/internal/weather"
)

// providerRetryAfter is the hint sent when the upstream provider fails.
const providerRetryAfter = 30 * time.Second

// WeatherService returns current weather.
type WeatherService interface {
	GetCurrentWeather(ctx context.Context, lat, lon float64) (*weather.Observation, error)
}

// WeatherContextGate reports whether modifiers are switched off.
type WeatherContextGate interface {
	WeatherContextDisabled(ctx context.Context) bool
}

// WeatherHandler handles weather endpoints.
type WeatherHandler struct {
	service WeatherService
	gate    WeatherContextGate
	logger  zerolog.Logger
}

// NewWeatherHandler creates a new WeatherHandler. gate may be nil.
func NewWeatherHandler(service WeatherService, gate WeatherContextGate, logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{service: service, gate: gate, logger: logger}
}

// GetWeather handles GET /api/weather.
func (h *WeatherHandler) GetWeather(w http.ResponseWriter, r *http.Request) {
	c, errs := parseCoordinate(r)
	if len(errs) > 0 {
		response.InvalidCoordinate(w, r, "lat and lon query parameters must be valid coordinates", errs)
		return
	}

	obs, err := h.service.GetCurrentWeather(r.Context(), c.Latitude, c.Longitude)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		response.ServiceUnavailable(w, r, "weather provider is not configured")
		return
	case errors.Is(err, weather.ErrInvalidCoordinates):
		response.InvalidCoordinate(w, r, err.Error(), nil)
		return
	case err != nil:
		h.logger.Warn().Err(err).Str("coordinate", c.String()).Msg("weather lookup failed")
		response.ServiceUnavailableRetry(w, r, "weather provider unavailable", providerRetryAfter)
		return
	}

	resp := models.WeatherResponse{
		Coordinates: point(c),
		Data:        weatherData(obs),
	}
	if h.gate == nil || !h.gate.WeatherContextDisabled(r.Context()) {
		resp.Impact = impact(obs)
	}
	response.JSON(w, r, http.StatusOK, resp)
}

func weatherData(o *weather.Observation) models.WeatherData {
	return models.WeatherData{
		Location:      o.Location,
		Coordinates:   models.Point{Lat: o.Lat, Lon: o.Lon},
		Temperature:   o.Temperature,
		Humidity:      o.Humidity,
		Pressure:      o.Pressure,
		Precipitation: o.Precipitation,
		CloudCover:    o.CloudCover,
		Visibility:    o.Visibility,
		Condition:     string(o.Condition),
		Description:   o.Description,
		Wind: models.WindData{
			Speed:     o.WindSpeed,
			Direction: o.WindDirection,
			Compass:   weather.CompassDirection(o.WindDirection),
			Gust:      o.WindGust,
			Category:  string(o.WindCategory()),
		},
		ObservedAt: models.Timestamp(o.ObservedAt),
	}
}

func impact(o *weather.Observation) *models.AirQualityImpact {
	m := weather.ModifiersFor(o)
	factors := weather.Factors(o)
	if factors == nil {
		factors = []string{}
	}
	return &models.AirQualityImpact{
		AQIModifier:         m.AQI,
		DispersionFactor:    m.Dispersion,
		PressureFactor:      m.Pressure,
		HumidityFactor:      m.Humidity,
		PrecipitationFactor: m.Precipitation,
		Impact:              m.Impact(),
		Transport:           string(weather.AssessTransport(o)),
		Factors:             factors,
	}
}
