package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
// TraceID echoes the request id so a client report can be matched to logs.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one offending input, usually a query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Problem type URIs.
const (
	ProblemTypeValidation           = "https://api.airwatch.pro/problems/validation-error"
	ProblemTypeInvalidCoordinate    = "https://api.airwatch.pro/problems/invalid-coordinate"
	ProblemTypeUnauthorized         = "https://api.airwatch.pro/problems/unauthorized"
	ProblemTypeForbidden            = "https://api.airwatch.pro/problems/forbidden"
	ProblemTypeNotFound             = "https://api.airwatch.pro/problems/not-found"
	ProblemTypeUnsupportedMediaType = "https://api.airwatch.pro/problems/unsupported-media-type"
	ProblemTypeTooManyRequests      = "https://api.airwatch.pro/problems/too-many-requests"
	ProblemTypeTLSRequired          = "https://api.airwatch.pro/problems/tls-required"
	ProblemTypeInternal             = "https://api.airwatch.pro/problems/internal-error"
	ProblemTypeUnavailable          = "https://api.airwatch.pro/problems/service-unavailable"
)

var problemTitles = map[string]string{
	ProblemTypeValidation:           "Validation error",
	ProblemTypeInvalidCoordinate:    "Invalid coordinate",
	ProblemTypeUnauthorized:         "Unauthorized",
	ProblemTypeForbidden:            "Forbidden",
	ProblemTypeNotFound:             "Not found",
	ProblemTypeUnsupportedMediaType: "Unsupported media type",
	ProblemTypeTooManyRequests:      "Too many requests",
	ProblemTypeTLSRequired:          "TLS required",
	ProblemTypeInternal:             "Internal server error",
	ProblemTypeUnavailable:          "Service unavailable",
}

func newProblem(problemType string, status int, traceID, detail string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   problemTitles[problemType],
		Status:  status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// Write sends the problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	p := newProblem(ProblemTypeValidation, http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

// NewInvalidCoordinate creates a 400 problem for unusable lat/lon input.
func NewInvalidCoordinate(traceID, detail string, errors []FieldError) *Problem {
	p := newProblem(ProblemTypeInvalidCoordinate, http.StatusBadRequest, traceID, detail)
	p.Errors = errors
	return p
}

// NewUnauthorized creates a 401 problem for a missing or invalid admin token.
func NewUnauthorized(traceID, detail string) *Problem {
	return newProblem(ProblemTypeUnauthorized, http.StatusUnauthorized, traceID, detail)
}

// NewForbidden creates a 403 problem for a valid token without the admin role.
func NewForbidden(traceID, detail string) *Problem {
	return newProblem(ProblemTypeForbidden, http.StatusForbidden, traceID, detail)
}

// NewTLSRequired creates a 403 problem for plain HTTP requests.
func NewTLSRequired(traceID string) *Problem {
	return newProblem(ProblemTypeTLSRequired, http.StatusForbidden, traceID, "This endpoint requires HTTPS")
}

// NewNotFound creates a 404 problem.
func NewNotFound(traceID, detail string) *Problem {
	return newProblem(ProblemTypeNotFound, http.StatusNotFound, traceID, detail)
}

// NewUnsupportedMediaType creates a 415 problem.
func NewUnsupportedMediaType(traceID, detail string) *Problem {
	return newProblem(ProblemTypeUnsupportedMediaType, http.StatusUnsupportedMediaType, traceID, detail)
}

// NewTooManyRequests creates a 429 problem.
func NewTooManyRequests(traceID, detail string) *Problem {
	return newProblem(ProblemTypeTooManyRequests, http.StatusTooManyRequests, traceID, detail)
}

// NewInternalError creates a 500 problem.
func NewInternalError(traceID, detail string) *Problem {
	return newProblem(ProblemTypeInternal, http.StatusInternalServerError, traceID, detail)
}

// NewServiceUnavailable creates a 503 problem.
func NewServiceUnavailable(traceID, detail string) *Problem {
	return newProblem(ProblemTypeUnavailable, http.StatusServiceUnavailable, traceID, detail)
}
