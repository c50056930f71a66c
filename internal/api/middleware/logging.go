package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// probePaths are hit by load balancers every few seconds and logged at
// debug level.
var probePaths = map[string]bool{
	"/api/health":    true,
	"/v1/ops/health": true,
	"/v1/ops/ready":  true,
}

// Logger emits one "request completed" line per request, correlated with
// the request ID and, when tracing is on, the trace and span IDs.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			log.WithLevel(requestLevel(r.URL.Path, rec.statusCode)).
				Str("request_id", GetRequestID(r.Context())).
				Func(traceFields(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Str("query", r.URL.RawQuery).
				Int("status", rec.statusCode).
				Int64("bytes", rec.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

// traceFields adds trace_id and span_id, left empty for unsampled or
// untraced requests so the log schema stays fixed.
func traceFields(ctx context.Context) func(*zerolog.Event) {
	return func(e *zerolog.Event) {
		var traceID, spanID string
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			traceID = sc.TraceID().String()
			spanID = sc.SpanID().String()
		}
		e.Str("trace_id", traceID).Str("span_id", spanID)
	}
}

// requestLevel maps a response to its log level: 5xx error, 4xx warn,
// probes debug, everything else info.
func requestLevel(path string, status int) zerolog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zerolog.ErrorLevel
	case status >= http.StatusBadRequest:
		return zerolog.WarnLevel
	case probePaths[path]:
		return zerolog.DebugLevel
	default:
		return zerolog.InfoLevel
	}
}
