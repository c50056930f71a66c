package handler

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/api/models"
)

// Field error codes.
const (
	CodeRequired      = "REQUIRED"
	CodeInvalidNumber = "INVALID_NUMBER"
	CodeOutOfRange    = "OUT_OF_RANGE"
	CodeUnknownKey    = "UNKNOWN_KEY"
	CodeInvalidValue  = "INVALID_VALUE"
)

// parseCoordinate reads lat and lon from the query string. A missing or
// non-numeric value is reported as a field error, never defaulted to zero.
func parseCoordinate(r *http.Request) (airquality.Coordinate, []models.FieldError) {
	var errs []models.FieldError
	lat, err := parseAxis(r, "lat", 90)
	if err != nil {
		errs = append(errs, *err)
	}
	lon, err := parseAxis(r, "lon", 180)
	if err != nil {
		errs = append(errs, *err)
	}
	return airquality.Coordinate{Latitude: lat, Longitude: lon}, errs
}

func parseAxis(r *http.Request, field string, limit float64) (float64, *models.FieldError) {
	raw := r.URL.Query().Get(field)
	if raw == "" {
		return 0, &models.FieldError{Field: field, Message: "is required", Code: CodeRequired}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &models.FieldError{Field: field, Message: "must be a finite number", Code: CodeInvalidNumber}
	}
	if v < -limit || v > limit {
		return 0, &models.FieldError{
			Field:   field,
			Message: fmt.Sprintf("must be between %g and %g", -limit, limit),
			Code:    CodeOutOfRange,
		}
	}
	return v, nil
}

// parseLimit reads an optional positive integer no larger than max.
func parseLimit(r *http.Request, def, max int) (int, *models.FieldError) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &models.FieldError{Field: "limit", Message: "must be an integer", Code: CodeInvalidNumber}
	}
	if n < 1 || n > max {
		return 0, &models.FieldError{
			Field:   "limit",
			Message: fmt.Sprintf("must be between 1 and %d", max),
			Code:    CodeOutOfRange,
		}
	}
	return n, nil
}

func point(c airquality.Coordinate) models.Point {
	return models.Point{Lat: c.Latitude, Lon: c.Longitude}
}
