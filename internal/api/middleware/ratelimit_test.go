package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/api/middleware"
	"github.com/airwatchpro/airwatch/internal/api/models"
)

// hit sends one GET to path from remoteAddr, with bearer set when non-empty.
func hit(h http.Handler, path, remoteAddr, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = remoteAddr
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute}
	handler := middleware.RateLimitByIP(cfg)(okHandler())

	for i := 1; i <= 3; i++ {
		rec := hit(handler, "/v1/air-quality", "10.0.0.1:5000", "")
		require.Equal(t, http.StatusOK, rec.Code, "request %d within budget", i)
	}

	rec := hit(handler, "/v1/air-quality", "10.0.0.1:5001", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code, "port does not matter")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit(handler, "/v1/air-quality", "10.0.0.2:5000", "").Code,
		"another client has its own budget")
}

func TestRateLimitBySubject(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute}
	svc := createTestTokenService(t, nil)
	token := issueToken(t, svc, "ops")

	t.Run("subject shares one budget across addresses", func(t *testing.T) {
		handler := middleware.AdminAuth(svc)(middleware.RateLimitBySubject(cfg)(okHandler()))

		assert.Equal(t, http.StatusOK, hit(handler, "/v1/admin/feature-flags", "192.168.1.1:1", token).Code)
		assert.Equal(t, http.StatusOK, hit(handler, "/v1/admin/feature-flags", "192.168.1.2:1", token).Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/admin/feature-flags", "192.168.1.3:1", token).Code)
	})

	t.Run("no subject falls back to ip", func(t *testing.T) {
		handler := middleware.RateLimitBySubject(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler())

		assert.Equal(t, http.StatusOK, hit(handler, "/v1/air-quality", "192.168.1.1:1", "").Code)
		assert.Equal(t, http.StatusTooManyRequests, hit(handler, "/v1/air-quality", "192.168.1.1:1", "").Code)
		assert.Equal(t, http.StatusOK, hit(handler, "/v1/air-quality", "192.168.1.2:1", "").Code)
	})
}

func TestRateLimit_ProblemResponse(t *testing.T) {
	tests := []struct {
		name           string
		window         time.Duration
		wantRetryAfter string
		wantDetail     string
	}{
		{"one minute", time.Minute, "60", "rate limit of 1 requests per 1m0s exceeded"},
		{"fifteen seconds", 15 * time.Second, "15", "rate limit of 1 requests per 15s exceeded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := middleware.RateLimitConfig{RequestLimit: 1, WindowLength: tt.window}
			handler := middleware.RequestID(middleware.RateLimitByIP(cfg)(okHandler()))

			hit(handler, "/v1/ops/status", "203.0.113.1:1", "")
			rec := hit(handler, "/v1/ops/status", "203.0.113.1:1", "")

			require.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, tt.wantRetryAfter, rec.Header().Get("Retry-After"))
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

			var problem models.Problem
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, models.ProblemTypeTooManyRequests, problem.Type)
			assert.Equal(t, tt.wantDetail, problem.Detail)
			assert.Equal(t, "/v1/ops/status", problem.Instance)
			assert.Equal(t, rec.Header().Get("X-Request-Id"), problem.TraceID)
		})
	}
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, middleware.RateLimitConfig{RequestLimit: 10, WindowLength: time.Minute}, middleware.AuthRateLimit)
	assert.Equal(t, middleware.RateLimitConfig{RequestLimit: 100, WindowLength: time.Minute}, middleware.StandardRateLimit)
}
