// Package airquality resolves a coordinate to an air quality reading from
// live sources, falling back to a synthetic reading when none answers.
package airquality

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidCoordinate is the only error Resolve surfaces to callers.
	ErrInvalidCoordinate = errors.New("invalid coordinate")

	// ErrAllSourcesExhausted signals that every adapter failed. It never
	// leaves the resolver.
	ErrAllSourcesExhausted = errors.New("all air quality sources exhausted")
)

// Coordinate is a WGS84 point.
type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// Validate returns ErrInvalidCoordinate when either axis is out of range
// or not a finite number.
func (c Coordinate) Validate() error {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) || c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("%w: latitude %v outside [-90, 90]", ErrInvalidCoordinate, c.Latitude)
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("%w: longitude %v outside [-180, 180]", ErrInvalidCoordinate, c.Longitude)
	}
	return nil
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Pollutant is one of the six tracked pollutant keys.
type Pollutant string

const (
	PollutantPM25 Pollutant = "pm25"
	PollutantPM10 Pollutant = "pm10"
	PollutantO3   Pollutant = "o3"
	PollutantNO2  Pollutant = "no2"
	PollutantSO2  Pollutant = "so2"
	PollutantCO   Pollutant = "co"
)

// AllPollutants lists the tracked pollutants in reporting order.
var AllPollutants = []Pollutant{
	PollutantPM25, PollutantPM10, PollutantO3, PollutantNO2, PollutantSO2, PollutantCO,
}

// Unit returns the canonical unit for p.
func (p Pollutant) Unit() string {
	switch p {
	case PollutantPM25, PollutantPM10:
		return "µg/m³"
	case PollutantO3, PollutantNO2, PollutantSO2:
		return "ppb"
	case PollutantCO:
		return "ppm"
	default:
		return ""
	}
}

// Pollutants maps a pollutant to its concentration in canonical units.
// Values are never negative.
type Pollutants map[Pollutant]float64

// Set stores v for p, clamping negatives to zero.
func (p Pollutants) Set(pollutant Pollutant, v float64) {
	if v < 0 || math.IsNaN(v) {
		v = 0
	}
	p[pollutant] = v
}

// Source tags the provenance of a reading.
type Source string

const (
	SourceGroundStation Source = "ground_station"
	SourceAirNow        Source = "epa_airnow"
	SourceTEMPO         Source = "TEMPO"
	SourceSynthetic     Source = "synthetic"
)

// IsLive reports whether the reading came from a real provider.
func (s Source) IsLive() bool {
	return s != SourceSynthetic && s != ""
}

// Reading is a resolved air quality observation for a coordinate.
type Reading struct {
	Coordinates Coordinate
	Location    string
	AQI         int
	Pollutants  Pollutants
	Source      Source
	Timestamp   time.Time
}

// Level is derived from AQI on every call.
func (r *Reading) Level() Level {
	return Classify(r.AQI)
}

// Station is a monitoring station used for spatial interpolation.
type Station struct {
	ID         string
	Name       string
	Lat        float64
	Lon        float64
	Pollutants []Pollutant
	UpdatedAt  time.Time
}

// Measurement is the latest value of one pollutant at a station, in
// canonical units.
type Measurement struct {
	StationID  string
	Pollutant  Pollutant
	Value      float64
	MeasuredAt time.Time
}

// AQSnapshot holds stations and their latest measurements from one provider.
type AQSnapshot struct {
	Stations map[string]*Station

	// Measurements is keyed "stationID:pollutant".
	Measurements map[string]*Measurement

	FetchedAt time.Time
	Provider  string
}

// NewAQSnapshot creates an empty snapshot stamped fetchedAt.
func NewAQSnapshot(provider string, fetchedAt time.Time) *AQSnapshot {
	return &AQSnapshot{
		Stations:     make(map[string]*Station),
		Measurements: make(map[string]*Measurement),
		FetchedAt:    fetchedAt,
		Provider:     provider,
	}
}

// GetMeasurement returns the measurement for a station and pollutant.
func (s *AQSnapshot) GetMeasurement(stationID string, pollutant Pollutant) *Measurement {
	return s.Measurements[stationID+":"+string(pollutant)]
}

// SetMeasurement adds m and marks the pollutant on its station.
func (s *AQSnapshot) SetMeasurement(m *Measurement) {
	s.Measurements[m.StationID+":"+string(m.Pollutant)] = m
	if st, ok := s.Stations[m.StationID]; ok {
		for _, p := range st.Pollutants {
			if p == m.Pollutant {
				return
			}
		}
		st.Pollutants = append(st.Pollutants, m.Pollutant)
	}
}

// LatestMeasurement returns the newest measurement time in the snapshot.
func (s *AQSnapshot) LatestMeasurement() time.Time {
	var latest time.Time
	for _, m := range s.Measurements {
		if m.MeasuredAt.After(latest) {
			latest = m.MeasuredAt
		}
	}
	return latest
}
