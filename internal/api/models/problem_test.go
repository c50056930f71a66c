package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/api/models"
)

func TestProblemConstructors(t *testing.T) {
	tests := []struct {
		name       string
		problem    *models.Problem
		wantType   string
		wantTitle  string
		wantStatus int
		wantDetail string
	}{
		{"bad request", models.NewBadRequest("req_123", "invalid body", nil),
			models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "invalid body"},
		{"invalid coordinate", models.NewInvalidCoordinate("req_123", "lat and lon are required", nil),
			models.ProblemTypeInvalidCoordinate, "Invalid coordinate", http.StatusBadRequest, "lat and lon are required"},
		{"unauthorized", models.NewUnauthorized("req_123", "token expired"),
			models.ProblemTypeUnauthorized, "Unauthorized", http.StatusUnauthorized, "token expired"},
		{"forbidden", models.NewForbidden("req_123", "admin role required"),
			models.ProblemTypeForbidden, "Forbidden", http.StatusForbidden, "admin role required"},
		{"tls required", models.NewTLSRequired("req_123"),
			models.ProblemTypeTLSRequired, "TLS required", http.StatusForbidden, "This endpoint requires HTTPS"},
		{"not found", models.NewNotFound("req_123", "feature flag not found"),
			models.ProblemTypeNotFound, "Not found", http.StatusNotFound, "feature flag not found"},
		{"unsupported media type", models.NewUnsupportedMediaType("req_123", "Content-Type must be application/json"),
			models.ProblemTypeUnsupportedMediaType, "Unsupported media type", http.StatusUnsupportedMediaType, "Content-Type must be application/json"},
		{"too many requests", models.NewTooManyRequests("req_123", "rate limit exceeded"),
			models.ProblemTypeTooManyRequests, "Too many requests", http.StatusTooManyRequests, "rate limit exceeded"},
		{"internal", models.NewInternalError("req_123", "history store error"),
			models.ProblemTypeInternal, "Internal server error", http.StatusInternalServerError, "history store error"},
		{"unavailable", models.NewServiceUnavailable("req_123", "weather provider is not configured"),
			models.ProblemTypeUnavailable, "Service unavailable", http.StatusServiceUnavailable, "weather provider is not configured"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantType, tt.problem.Type)
			assert.Equal(t, tt.wantTitle, tt.problem.Title)
			assert.Equal(t, tt.wantStatus, tt.problem.Status)
			assert.Equal(t, tt.wantDetail, tt.problem.Detail)
			assert.Equal(t, "req_123", tt.problem.TraceID)
			assert.Empty(t, tt.problem.Instance)
		})
	}
}

func TestProblem_Write(t *testing.T) {
	p := models.NewInvalidCoordinate("req_test123", "lon must be a number", []models.FieldError{
		{Field: "lon", Message: "must be a number", Code: "INVALID_NUMBER"},
	})
	p.Instance = "/v1/air-quality"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_test123", w.Header().Get("X-Request-Id"))

	var result models.Problem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, *p, result)
}

func TestProblem_WriteWithoutTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	models.NewNotFound("", "no route").Write(w)

	assert.Equal(t, http.StatusNotFound, w.Code)
	_, present := w.Header()["X-Request-Id"]
	assert.False(t, present)
	assert.Contains(t, w.Body.String(), `"traceId":""`)
}
