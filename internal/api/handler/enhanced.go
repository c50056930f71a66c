package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
	"github.com/airwatchpro/airwatch/internal/weather"
)

// EnhancedAirQualityHandler combines a reading with the weather around it.
type EnhancedAirQualityHandler struct {
	airQuality AirQualityService
	weather    WeatherService
	gate       WeatherContextGate
	logger     zerolog.Logger
}

// NewEnhancedAirQualityHandler creates a new EnhancedAirQualityHandler.
// weather and gate may be nil.
func NewEnhancedAirQualityHandler(airQuality AirQualityService, weather WeatherService, gate WeatherContextGate, logger zerolog.Logger) *EnhancedAirQualityHandler {
	return &EnhancedAirQualityHandler{airQuality: airQuality, weather: weather, gate: gate, logger: logger}
}

// GetEnhancedAirQuality handles GET /v1/air-quality/enhanced. The reading's
// AQI is scaled by the weather modifier; when weather is unavailable or
// switched off the plain reading is returned with weatherApplied false.
func (h *EnhancedAirQualityHandler) GetEnhancedAirQuality(w http.ResponseWriter, r *http.Request) {
	c, errs := parseCoordinate(r)
	if len(errs) > 0 {
		response.InvalidCoordinate(w, r, "lat and lon query parameters must be valid coordinates", errs)
		return
	}

	reading, err := h.airQuality.Get(r.Context(), c)
	switch {
	case errors.Is(err, airquality.ErrInvalidCoordinate):
		response.InvalidCoordinate(w, r, err.Error(), nil)
		return
	case err != nil:
		h.logger.Error().Err(err).Str("coordinate", c.String()).Msg("failed to resolve air quality")
		response.InternalError(w, r, "could not resolve air quality")
		return
	}

	level := string(airquality.Classify(reading.AQI))
	resp := models.EnhancedAirQualityResponse{
		Coordinates:   point(c),
		Data:          models.NewAirQualityData(reading),
		BaseAQI:       reading.AQI,
		BaseLevel:     level,
		AdjustedAQI:   reading.AQI,
		AdjustedLevel: level,
	}

	if obs := h.observation(r, c); obs != nil {
		adjusted := weather.ModifiersFor(obs).Apply(reading.AQI)
		data := weatherData(obs)
		resp.AdjustedAQI = adjusted
		resp.AdjustedLevel = string(airquality.Classify(adjusted))
		resp.WeatherApplied = true
		resp.Weather = &data
		resp.Impact = impact(obs)
	}
	response.JSON(w, r, http.StatusOK, resp)
}

// observation returns current weather at c, or nil when the reading should
// go out unadjusted.
func (h *EnhancedAirQualityHandler) observation(r *http.Request, c airquality.Coordinate) *weather.Observation {
	if h.weather == nil || (h.gate != nil && h.gate.WeatherContextDisabled(r.Context())) {
		return nil
	}
	obs, err := h.weather.GetCurrentWeather(r.Context(), c.Latitude, c.Longitude)
	switch {
	case errors.Is(err, weather.ErrNotConfigured):
		return nil
	case err != nil:
		h.logger.Warn().Err(err).Str("coordinate", c.String()).Msg("weather unavailable, serving unadjusted air quality")
		return nil
	}
	return obs
}
