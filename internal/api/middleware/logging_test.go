package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/api/middleware"
)

// logLine serves req through wrap(Logger(next)) and returns the single
// decoded log entry.
func logLine(t *testing.T, wrap func(http.Handler) http.Handler, next http.HandlerFunc, req *http.Request) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	handler := middleware.Logger(zerolog.New(&buf))(next)
	if wrap != nil {
		handler = wrap(handler)
	}
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_RequestFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/air-quality?lat=40.71&lon=-74.01", http.NoBody)
	req.Header.Set("User-Agent", "airwatch-dashboard/2.1")

	entry := logLine(t, nil, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"aqi":42}`))
	}, req)

	assert.Equal(t, "request completed", entry["message"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/api/air-quality", entry["path"])
	assert.Equal(t, "/api/air-quality", entry["route"])
	assert.Equal(t, "lat=40.71&lon=-74.01", entry["query"])
	assert.Equal(t, float64(http.StatusOK), entry["status"], "implicit 200")
	assert.Equal(t, float64(len(`{"aqi":42}`)), entry["bytes"])
	assert.Equal(t, "airwatch-dashboard/2.1", entry["user_agent"])
	assert.Contains(t, entry, "duration")
}

func TestLogger_LevelByStatus(t *testing.T) {
	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel string
	}{
		{"success", "/api/air-quality", http.StatusOK, "info"},
		{"client error", "/api/air-quality", http.StatusBadRequest, "warn"},
		{"rate limited", "/v1/air-quality", http.StatusTooManyRequests, "warn"},
		{"server error", "/api/weather", http.StatusServiceUnavailable, "error"},
		{"health probe", "/api/health", http.StatusOK, "debug"},
		{"failing readiness probe", "/v1/ops/ready", http.StatusServiceUnavailable, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := logLine(t, nil, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, float64(tt.status), entry["status"])
		})
	}
}

func TestLogger_Correlation(t *testing.T) {
	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }

	t.Run("request id", func(t *testing.T) {
		entry := logLine(t, middleware.RequestID, ok, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
		assert.Contains(t, entry["request_id"], "req_")
	})

	t.Run("trace and span ids", func(t *testing.T) {
		setupTestTracer(t)
		entry := logLine(t, middleware.Tracing, ok, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
		assert.Len(t, entry["trace_id"], 32)
		assert.Len(t, entry["span_id"], 16)
	})

	t.Run("untraced request keeps empty fields", func(t *testing.T) {
		entry := logLine(t, nil, ok, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))
		assert.Equal(t, "", entry["trace_id"])
		assert.Equal(t, "", entry["span_id"])
		assert.Equal(t, "", entry["request_id"])
	})
}
