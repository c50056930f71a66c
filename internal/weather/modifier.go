package weather

import (
	"math"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// Transport classifies how current conditions move pollutants.
type Transport string

const (
	TransportRapid     Transport = "rapid_dispersion"
	TransportGood      Transport = "good_dispersion"
	TransportModerate  Transport = "moderate_dispersion"
	TransportInversion Transport = "poor_dispersion_inversion"
	TransportStagnant  Transport = "stagnant_conditions"
	TransportLimited   Transport = "limited_dispersion"
)

// Modifiers are multiplicative effects of weather on concentrations. Values
// above 1 worsen air quality.
type Modifiers struct {
	AQI           float64 `json:"aqiModifier"`
	Dispersion    float64 `json:"dispersionFactor"`
	Pressure      float64 `json:"pressureFactor"`
	Humidity      float64 `json:"humidityFactor"`
	Precipitation float64 `json:"precipitationFactor"`
}

// ModifiersFor derives modifiers from an observation.
func ModifiersFor(o *Observation) Modifiers {
	m := Modifiers{
		Dispersion:    o.DispersionFactor(),
		Pressure:      1.0,
		Humidity:      1.0,
		Precipitation: 1.0,
	}

	switch {
	case o.Pressure > 1020 && o.WindSpeed < 3:
		// Stable high pressure with light wind favours an inversion.
		m.Pressure = 1.25
	case o.Pressure > 0 && o.Pressure < 1000:
		m.Pressure = 0.9
	}

	switch {
	case o.Humidity > 80:
		m.Humidity = 1.15
	case o.Humidity < 30:
		m.Humidity = 0.95
	}

	switch {
	case o.Precipitation > 1.0:
		m.Precipitation = 0.6
	case o.Precipitation > 0.1:
		m.Precipitation = 0.8
	}

	m.AQI = m.Dispersion * m.Pressure * m.Humidity * m.Precipitation
	return m
}

// Apply scales aqi by the combined modifier.
func (m Modifiers) Apply(aqi int) int {
	if m.AQI <= 0 {
		return airquality.ClampAQI(aqi)
	}
	return airquality.ClampAQI(int(math.Round(float64(aqi) * m.AQI)))
}

// Impact describes the combined modifier in words.
func (m Modifiers) Impact() string {
	switch {
	case m.AQI > 1.3:
		return "Weather significantly worsening air quality"
	case m.AQI > 1.1:
		return "Weather moderately worsening air quality"
	case m.AQI < 0.8:
		return "Weather significantly improving air quality"
	case m.AQI < 0.95:
		return "Weather moderately improving air quality"
	default:
		return "Weather having neutral impact on air quality"
	}
}

// Factors lists the conditions currently driving the modifier.
func Factors(o *Observation) []string {
	var out []string
	if o.WindSpeed < 2 {
		out = append(out, "Low wind speed limiting dispersion")
	}
	if o.Pressure > 1020 {
		out = append(out, "High pressure potentially causing temperature inversion")
	}
	if o.Humidity > 80 {
		out = append(out, "High humidity promoting particle growth")
	}
	if o.Precipitation > 0.1 {
		out = append(out, "Precipitation providing washout effect")
	}
	return out
}

// AssessTransport classifies pollutant transport for an observation.
func AssessTransport(o *Observation) Transport {
	switch {
	case o.WindSpeed > 15:
		return TransportRapid
	case o.WindSpeed > 8:
		return TransportGood
	case o.WindSpeed > 3:
		return TransportModerate
	case o.Pressure > 1020 && o.Temperature > 25:
		return TransportInversion
	case o.WindSpeed < 1:
		return TransportStagnant
	default:
		return TransportLimited
	}
}

var compass = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

// CompassDirection maps degrees to a 16-point compass name.
func CompassDirection(degrees float64) string {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	return compass[int(math.Round(d/22.5))%16]
}
