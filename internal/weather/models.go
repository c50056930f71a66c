// Package weather provides current meteorological context and its effect
// on pollutant concentrations.
package weather

import (
	"errors"
	"time"
)

var (
	ErrProviderUnavailable = errors.New("weather provider unavailable")
	ErrNotConfigured       = errors.New("weather provider not configured")
	ErrInvalidCoordinates  = errors.New("invalid coordinates")
)

// Observation is the current weather at a point. Units are metric: °C,
// m/s, hPa, mm and metres. Zero means "not reported" for the optional
// fields (gust, precipitation, visibility).
type Observation struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Location string  `json:"location,omitempty"`

	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"` // percent

	WindSpeed     float64 `json:"wind_speed"`
	WindDirection float64 `json:"wind_direction"` // degrees clockwise from north
	WindGust      float64 `json:"wind_gust,omitempty"`

	Pressure      float64 `json:"pressure"`
	Precipitation float64 `json:"precipitation,omitempty"` // rain plus snow, last hour
	CloudCover    float64 `json:"cloud_cover"`             // percent
	Visibility    float64 `json:"visibility,omitempty"`

	Condition   Condition `json:"condition"`
	Description string    `json:"description,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
	FetchedAt  time.Time `json:"fetched_at"`
}

// Condition is the provider's coarse weather group.
type Condition string

const (
	ConditionClear        Condition = "CLEAR"
	ConditionClouds       Condition = "CLOUDS"
	ConditionRain         Condition = "RAIN"
	ConditionDrizzle      Condition = "DRIZZLE"
	ConditionThunderstorm Condition = "THUNDERSTORM"
	ConditionSnow         Condition = "SNOW"
	ConditionMist         Condition = "MIST"
	ConditionFog          Condition = "FOG"
	ConditionHaze         Condition = "HAZE"
	ConditionUnknown      Condition = "UNKNOWN"
)

// WindCategory buckets wind speed by its effect on dispersion.
type WindCategory string

const (
	WindCalm     WindCategory = "CALM"     // <= 2 m/s, pollutants accumulate
	WindLight    WindCategory = "LIGHT"    // <= 5 m/s
	WindModerate WindCategory = "MODERATE" // <= 10 m/s
	WindStrong   WindCategory = "STRONG"   // > 10 m/s
)

var dispersion = map[WindCategory]float64{
	WindCalm:     1.3,
	WindLight:    1.0,
	WindModerate: 0.85,
	WindStrong:   0.7,
}

// WindCategory classifies o.WindSpeed.
func (o *Observation) WindCategory() WindCategory {
	switch {
	case o.WindSpeed > 10:
		return WindStrong
	case o.WindSpeed > 5:
		return WindModerate
	case o.WindSpeed > 2:
		return WindLight
	default:
		return WindCalm
	}
}

// DispersionFactor scales concentrations for the current wind: above 1
// pollutants accumulate, below 1 they disperse.
func (o *Observation) DispersionFactor() float64 {
	return dispersion[o.WindCategory()]
}
