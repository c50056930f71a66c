package middleware_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airwatchpro/airwatch/internal/api/middleware"
)

func TestContentTypeJSON(t *testing.T) {
	handler := middleware.ContentTypeJSON(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))

	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestRequireJSON(t *testing.T) {
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		wantStatus  int
	}{
		{"get ignores content type", http.MethodGet, "text/plain", "{}", http.StatusOK},
		{"put with json", http.MethodPut, "application/json; charset=utf-8", "{}", http.StatusOK},
		{"put with uppercase json", http.MethodPut, "Application/JSON", "{}", http.StatusOK},
		{"put without content type", http.MethodPut, "", "{}", http.StatusUnsupportedMediaType},
		{"put with form", http.MethodPut, "application/x-www-form-urlencoded", "{}", http.StatusUnsupportedMediaType},
		{"post with text", http.MethodPost, "text/plain", "{}", http.StatusUnsupportedMediaType},
		{"post without body", http.MethodPost, "", "", http.StatusOK},
		{"json lookalike", http.MethodPost, "application/jsonp", "{}", http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := middleware.RequireJSON(okHandler())

			body := io.Reader(http.NoBody)
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/v1/admin/feature-flags", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusUnsupportedMediaType {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Body.String(), "unsupported-media-type")
			}
		})
	}
}
