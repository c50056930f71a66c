package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
	"github.com/airwatchpro/airwatch/internal/health"
)

// HealthRiskHandler handles personal health risk endpoints.
type HealthRiskHandler struct {
	airQuality AirQualityService
	logger     zerolog.Logger
}

// NewHealthRiskHandler creates a new HealthRiskHandler.
func NewHealthRiskHandler(airQuality AirQualityService, logger zerolog.Logger) *HealthRiskHandler {
	return &HealthRiskHandler{airQuality: airQuality, logger: logger}
}

// GetHealthRisk handles GET /v1/health-risk?lat&lon&conditions&sensitivity.
func (h *HealthRiskHandler) GetHealthRisk(w http.ResponseWriter, r *http.Request) {
	c, errs := parseCoordinate(r)
	conditions, condErr := parseConditions(r)
	if condErr != nil {
		errs = append(errs, *condErr)
	}
	sensitivity, err := health.ParseSensitivity(r.URL.Query().Get("sensitivity"))
	if err != nil {
		errs = append(errs, models.FieldError{Field: "sensitivity", Message: "must be one of low, normal, high", Code: CodeInvalidValue})
	}
	if len(errs) > 0 {
		response.BadRequest(w, r, "invalid health risk query", errs)
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

	a := health.Assess(reading, health.Profile{Conditions: conditions, Sensitivity: sensitivity})
	response.JSON(w, r, http.StatusOK, models.HealthRiskResponse{
		Coordinates:      point(c),
		Data:             models.NewAirQualityData(reading),
		RiskLevel:        string(a.Level),
		PrimaryCondition: string(a.PrimaryCondition),
		Conditions:       models.Strings(conditions),
		AtRiskConditions: models.Strings(a.AtRisk),
		Sensitivity:      string(sensitivity),
		AdjustedAQI:      a.AdjustedAQI,
		AdjustmentFactor: a.Factor,
		Affected:         models.Strings(a.Affected),
		Recommendations:  a.Recommendations,
		UrgencyScore:     a.Urgency,
	})
}

// GetRiskLevels handles GET /v1/health-risk/levels.
func (h *HealthRiskHandler) GetRiskLevels(w http.ResponseWriter, r *http.Request) {
	levels := make([]models.RiskLevelInfo, 0, len(health.RiskLevels))
	for _, l := range health.RiskLevels {
		levels = append(levels, models.NewRiskLevelInfo(l))
	}
	response.JSON(w, r, http.StatusOK, models.RiskLevelsResponse{
		Levels:     levels,
		Conditions: models.Strings(health.Conditions),
	})
}

// GetRecommendations handles GET /v1/health-risk/recommendations/{level}.
func (h *HealthRiskHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	level, err := health.ParseRiskLevel(chi.URLParam(r, "level"))
	if err != nil {
		response.BadRequest(w, r, err.Error(), []models.FieldError{
			{Field: "level", Message: "must be a known risk level", Code: CodeInvalidValue},
		})
		return
	}
	conditions, condErr := parseConditions(r)
	if condErr != nil {
		response.BadRequest(w, r, "invalid conditions", []models.FieldError{*condErr})
		return
	}

	response.JSON(w, r, http.StatusOK, models.RiskRecommendationsResponse{
		RiskLevelInfo:   models.NewRiskLevelInfo(level),
		Conditions:      models.Strings(conditions),
		Recommendations: health.Recommendations(level, conditions),
	})
}

func parseConditions(r *http.Request) ([]health.Condition, *models.FieldError) {
	conditions, err := health.ParseConditions(r.URL.Query().Get("conditions"))
	if err != nil {
		return nil, &models.FieldError{Field: "conditions", Message: err.Error(), Code: CodeUnknownKey}
	}
	return conditions, nil
}
