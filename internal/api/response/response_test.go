package response_test

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/airwatchpro/airwatch/internal/api/middleware"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
)

// tagged returns a request carrying the id the RequestID middleware assigned.
func tagged(t *testing.T, method, path string) *http.Request {
	t.Helper()
	var out *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		out = r
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(method, path, http.NoBody))
	return out
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) models.Problem {
	t.Helper()
	if ct := rec.Header().Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("expected Content-Type application/problem+json, got %q", ct)
	}
	var problem models.Problem
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode problem: %v", err)
	}
	return problem
}

func TestJSON(t *testing.T) {
	req := tagged(t, http.MethodGet, "/api/air-quality")
	rec := httptest.NewRecorder()

	response.JSON(rec, req, http.StatusOK, models.Point{Lat: 40.71, Lon: -74.01})

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
	if id := rec.Header().Get("X-Request-Id"); id != middleware.GetRequestID(req.Context()) {
		t.Errorf("expected X-Request-Id %q, got %q", middleware.GetRequestID(req.Context()), id)
	}
	var p models.Point
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil || p.Lat != 40.71 {
		t.Errorf("unexpected body %q (%v)", rec.Body.String(), err)
	}
}

func TestJSON_WithoutRequestID(t *testing.T) {
	rec := httptest.NewRecorder()

	response.JSON(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody), http.StatusOK, nil)

	if id := rec.Header().Get("X-Request-Id"); id != "" {
		t.Errorf("expected no X-Request-Id without middleware, got %q", id)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for nil data, got %q", rec.Body.String())
	}
}

func TestJSON_UnencodableValueBecomes500(t *testing.T) {
	rec := httptest.NewRecorder()

	response.JSON(rec, tagged(t, http.MethodGet, "/api/air-quality"), http.StatusOK, map[string]float64{"aqi": math.NaN()})

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
	if problem := decodeProblem(t, rec); problem.TraceID == "" {
		t.Error("expected traceId on the problem")
	}
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()

	response.NoContent(rec, tagged(t, http.MethodDelete, "/v1/admin/air-quality/cache"))

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("expected X-Request-Id header to be set")
	}
	if rec.Body.Len() != 0 {
		t.Errorf("expected empty body for 204, got %q", rec.Body.String())
	}
}

func TestProblemWriters(t *testing.T) {
	latErr := []models.FieldError{{Field: "lat", Message: "must be a number", Code: "INVALID_NUMBER"}}

	tests := []struct {
		name       string
		path       string
		write      func(http.ResponseWriter, *http.Request)
		wantStatus int
		wantType   string
		wantErrors int
	}{
		{
			name:       "bad request",
			path:       "/v1/admin/feature-flags",
			write:      func(w http.ResponseWriter, r *http.Request) { response.BadRequest(w, r, "invalid body", nil) },
			wantStatus: http.StatusBadRequest,
			wantType:   models.ProblemTypeValidation,
		},
		{
			name:       "invalid coordinate",
			path:       "/api/air-quality",
			write:      func(w http.ResponseWriter, r *http.Request) { response.InvalidCoordinate(w, r, "lat must be a number", latErr) },
			wantStatus: http.StatusBadRequest,
			wantType:   models.ProblemTypeInvalidCoordinate,
			wantErrors: 1,
		},
		{
			name:       "not found",
			path:       "/v1/admin/feature-flags/unknown",
			write:      func(w http.ResponseWriter, r *http.Request) { response.NotFound(w, r, "unknown flag") },
			wantStatus: http.StatusNotFound,
			wantType:   models.ProblemTypeNotFound,
		},
		{
			name:       "internal error",
			path:       "/v1/air-quality/history",
			write:      func(w http.ResponseWriter, r *http.Request) { response.InternalError(w, r, "history unavailable") },
			wantStatus: http.StatusInternalServerError,
			wantType:   models.ProblemTypeInternal,
		},
		{
			name:       "service unavailable",
			path:       "/api/weather",
			write:      func(w http.ResponseWriter, r *http.Request) { response.ServiceUnavailable(w, r, "weather provider is not configured") },
			wantStatus: http.StatusServiceUnavailable,
			wantType:   models.ProblemTypeUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tagged(t, http.MethodGet, tt.path)
			rec := httptest.NewRecorder()

			tt.write(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			problem := decodeProblem(t, rec)
			if problem.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, problem.Type)
			}
			if problem.Status != tt.wantStatus {
				t.Errorf("expected problem status %d, got %d", tt.wantStatus, problem.Status)
			}
			if problem.Instance != tt.path {
				t.Errorf("expected instance %q, got %q", tt.path, problem.Instance)
			}
			if problem.TraceID != middleware.GetRequestID(req.Context()) {
				t.Errorf("expected traceId %q, got %q", middleware.GetRequestID(req.Context()), problem.TraceID)
			}
			if len(problem.Errors) != tt.wantErrors {
				t.Errorf("expected %d field errors, got %+v", tt.wantErrors, problem.Errors)
			}
		})
	}
}

func TestServiceUnavailableRetry(t *testing.T) {
	tests := []struct {
		after time.Duration
		want  string
	}{
		{30 * time.Second, "30"},
		{1500 * time.Millisecond, "2"},
		{time.Minute, "60"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := httptest.NewRecorder()

			response.ServiceUnavailableRetry(rec, tagged(t, http.MethodGet, "/api/weather"), "weather provider unavailable", tt.after)

			if rec.Code != http.StatusServiceUnavailable {
				t.Errorf("expected status 503, got %d", rec.Code)
			}
			if h := rec.Header().Get("Retry-After"); h != tt.want {
				t.Errorf("expected Retry-After %s, got %q", tt.want, h)
			}
		})
	}
}

func TestRequestIDPropagation(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/air-quality", http.NoBody)
	req.Header.Set("X-Request-Id", "dashboard-7f3a")

	var processed *http.Request
	middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		processed = r
	})).ServeHTTP(httptest.NewRecorder(), req)

	rec := httptest.NewRecorder()
	response.JSON(rec, processed, http.StatusOK, map[string]string{"status": "ok"})

	if id := rec.Header().Get("X-Request-Id"); id != "dashboard-7f3a" {
		t.Errorf("expected caller's X-Request-Id to be echoed, got %q", id)
	}
}
