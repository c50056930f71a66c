package models

import (
	"github.com/airwatchpro/airwatch/internal/airquality"
)

// AirQualityData is one reading on the wire.
type AirQualityData struct {
	Location    string             `json:"location"`
	Coordinates Point              `json:"coordinates"`
	AQI         int                `json:"aqi"`
	Level       string             `json:"level"`
	Pollutants  map[string]float64 `json:"pollutants"`
	Timestamp   Timestamp          `json:"timestamp"`
	Source      string             `json:"source"`
}

// AirQualityResponse is the body of GET /api/air-quality.
type AirQualityResponse struct {
	Coordinates Point          `json:"coordinates"`
	Data        AirQualityData `json:"data"`
}

// LevelDetails carries the advice attached to an AQI level.
type LevelDetails struct {
	Name            string   `json:"name"`
	Color           string   `json:"color"`
	HealthMessage   string   `json:"healthMessage"`
	Recommendations []string `json:"recommendations"`
}

// AirQualityDetailResponse is the body of GET /v1/air-quality.
type AirQualityDetailResponse struct {
	Coordinates  Point          `json:"coordinates"`
	Data         AirQualityData `json:"data"`
	LevelDetails LevelDetails   `json:"levelDetails"`
	Sources      []string       `json:"sources"`
}

// AirQualityHistoryResponse is the body of GET /v1/air-quality/history.
type AirQualityHistoryResponse struct {
	Coordinates Point            `json:"coordinates"`
	Limit       int              `json:"limit"`
	Items       []AirQualityData `json:"items"`
}

// EnhancedAirQualityResponse is the body of GET /v1/air-quality/enhanced.
// Without weather context the adjusted values equal the base ones.
type EnhancedAirQualityResponse struct {
	Coordinates    Point             `json:"coordinates"`
	Data           AirQualityData    `json:"data"`
	BaseAQI        int               `json:"baseAqi"`
	BaseLevel      string            `json:"baseLevel"`
	AdjustedAQI    int               `json:"adjustedAqi"`
	AdjustedLevel  string            `json:"adjustedLevel"`
	WeatherApplied bool              `json:"weatherApplied"`
	Weather        *WeatherData      `json:"weather,omitempty"`
	Impact         *AirQualityImpact `json:"airQualityImpact,omitempty"`
}

// NewAirQualityData converts a resolved reading to its wire form.
func NewAirQualityData(r *airquality.Reading) AirQualityData {
	pollutants := make(map[string]float64, len(r.Pollutants))
	for k, v := range r.Pollutants {
		pollutants[string(k)] = v
	}
	return AirQualityData{
		Location:    r.Location,
		Coordinates: Point{Lat: r.Coordinates.Latitude, Lon: r.Coordinates.Longitude},
		AQI:         r.AQI,
		Level:       string(r.Level()),
		Pollutants:  pollutants,
		Timestamp:   Timestamp(r.Timestamp),
		Source:      string(r.Source),
	}
}

// NewLevelDetails describes level l.
func NewLevelDetails(l airquality.Level) LevelDetails {
	return LevelDetails{
		Name:            string(l),
		Color:           l.Color(),
		HealthMessage:   l.HealthMessage(),
		Recommendations: l.Recommendations(),
	}
}
