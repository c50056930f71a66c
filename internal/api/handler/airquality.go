package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
)

// AirQualityService resolves and stores readings.
type AirQualityService interface {
	Get(ctx context.Context, c airquality.Coordinate) (*airquality.Reading, error)
	Refresh(ctx context.Context, c airquality.Coordinate) (*airquality.Reading, error)
	Invalidate(ctx context.Context, c airquality.Coordinate) error
	History(ctx context.Context, c airquality.Coordinate, limit int) ([]*airquality.Reading, error)
	Sources() []airquality.Source
}

// AirQualityHandler handles air quality endpoints.
type AirQualityHandler struct {
	service AirQualityService
	logger  zerolog.Logger
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(service AirQualityService, logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{service: service, logger: logger}
}

// GetAirQuality handles GET /api/air-quality.
func (h *AirQualityHandler) GetAirQuality(w http.ResponseWriter, r *http.Request) {
	c, reading, ok := h.resolve(w, r, h.service.Get)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, models.AirQualityResponse{
		Coordinates: point(c),
		Data:        models.NewAirQualityData(reading),
	})
}

// GetAirQualityDetail handles GET /v1/air-quality.
func (h *AirQualityHandler) GetAirQualityDetail(w http.ResponseWriter, r *http.Request) {
	c, reading, ok := h.resolve(w, r, h.service.Get)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, h.detail(c, reading))
}

// RefreshAirQuality handles POST /v1/admin/air-quality/refresh.
func (h *AirQualityHandler) RefreshAirQuality(w http.ResponseWriter, r *http.Request) {
	c, reading, ok := h.resolve(w, r, h.service.Refresh)
	if !ok {
		return
	}
	response.JSON(w, r, http.StatusOK, h.detail(c, reading))
}

// InvalidateAirQuality handles DELETE /v1/admin/air-quality/cache.
func (h *AirQualityHandler) InvalidateAirQuality(w http.ResponseWriter, r *http.Request) {
	c, errs := parseCoordinate(r)
	if len(errs) > 0 {
		response.InvalidCoordinate(w, r, "lat and lon query parameters must be valid coordinates", errs)
		return
	}
	if err := h.service.Invalidate(r.Context(), c); err != nil {
		h.logger.Error().Err(err).Str("coordinate", c.String()).Msg("failed to invalidate cached reading")
		response.InternalError(w, r, "could not invalidate cached reading")
		return
	}
	response.NoContent(w, r)
}

// GetHistory handles GET /v1/air-quality/history.
func (h *AirQualityHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	c, errs := parseCoordinate(r)
	limit, limitErr := parseLimit(r, airquality.DefaultHistoryLimit, airquality.MaxHistoryLimit)
	if limitErr != nil {
		errs = append(errs, *limitErr)
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid history query", errs)
		return
	}

	readings, err := h.service.History(r.Context(), c, limit)
	if err != nil {
		h.logger.Error().Err(err).Str("coordinate", c.String()).Msg("failed to list reading history")
		response.InternalError(w, r, "could not load reading history")
		return
	}

	items := make([]models.AirQualityData, 0, len(readings))
	for _, reading := range readings {
		items = append(items, models.NewAirQualityData(reading))
	}
	response.JSON(w, r, http.StatusOK, models.AirQualityHistoryResponse{
		Coordinates: point(c),
		Limit:       limit,
		Items:       items,
	})
}

type resolveFunc func(context.Context, airquality.Coordinate) (*airquality.Reading, error)

func (h *AirQualityHandler) resolve(w http.ResponseWriter, r *http.Request, fn resolveFunc) (airquality.Coordinate, *airquality.Reading, bool) {
	c, errs := parseCoordinate(r)
	if len(errs) > 0 {
		response.InvalidCoordinate(w, r, "lat and lon query parameters must be valid coordinates", errs)
		return c, nil, false
	}

	reading, err := fn(r.Context(), c)
	switch {
	case errors.Is(err, airquality.ErrInvalidCoordinate):
		response.InvalidCoordinate(w, r, err.Error(), nil)
		return c, nil, false
	case err != nil:
		h.logger.Error().Err(err).Str("coordinate", c.String()).Msg("failed to resolve air quality")
		response.InternalError(w, r, "could not resolve air quality")
		return c, nil, false
	}
	return c, reading, true
}

func (h *AirQualityHandler) detail(c airquality.Coordinate, reading *airquality.Reading) models.AirQualityDetailResponse {
	sources := h.service.Sources()
	names := make([]string, 0, len(sources)+1)
	for _, s := range sources {
		names = append(names, string(s))
	}
	names = append(names, string(airquality.SourceSynthetic))

	return models.AirQualityDetailResponse{
		Coordinates:  point(c),
		Data:         models.NewAirQualityData(reading),
		LevelDetails: models.NewLevelDetails(reading.Level()),
		Sources:      names,
	}
}
