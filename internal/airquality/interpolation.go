package airquality

import (
	"errors"
	"math"
	"sort"
)

var (
	ErrNoStationsInRange = errors.New("no stations within range")
	ErrInsufficientData  = errors.New("insufficient data for interpolation")
)

// Confidence grades an interpolated value by station proximity.
type Confidence string

const (
	ConfidenceLow    Confidence = "LOW"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceHigh   Confidence = "HIGH"
)

// InterpolationConfig tunes inverse distance weighting.
type InterpolationConfig struct {
	// MaxDistance in meters. Stations further away are ignored.
	MaxDistance float64

	MinStations int
	MaxStations int

	// Power is the IDW exponent.
	Power float64

	HighConfidenceMaxDistance   float64
	MediumConfidenceMaxDistance float64
}

// DefaultInterpolationConfig matches the 25 km search radius used against
// ground station networks.
func DefaultInterpolationConfig() InterpolationConfig {
	return InterpolationConfig{
		MaxDistance:                 25000,
		MinStations:                 1,
		MaxStations:                 5,
		Power:                       2.0,
		HighConfidenceMaxDistance:   5000,
		MediumConfidenceMaxDistance: 15000,
	}
}

// InterpolatedValue represents an interpolated air quality value at a point.
type InterpolatedValue struct {
	// Pollutant is the pollutant type.
	Pollutant Pollutant

	// Value is in the pollutant's canonical unit.
	Value float64

	// Confidence indicates the data quality.
	Confidence Confidence

	// StationsUsed is the number of stations used in interpolation.
	StationsUsed int

	// NearestStationDistance is the distance to the nearest station in meters.
	NearestStationDistance float64

	// ContributingStations lists the stations that contributed to this value.
	ContributingStations []StationContribution
}

// StationContribution describes a station's contribution to an interpolated value.
type StationContribution struct {
	StationID string
	Distance  float64 // meters
	Value     float64 // measured value
	Weight    float64 // normalized weight (0-1)
}

// InterpolatedPoint holds every interpolated pollutant at a coordinate.
type InterpolatedPoint struct {
	Coordinate Coordinate
	Values     map[Pollutant]*InterpolatedValue
}

// Pollutants flattens the interpolated values.
func (p *InterpolatedPoint) Pollutants() Pollutants {
	out := make(Pollutants, len(p.Values))
	for k, v := range p.Values {
		out.Set(k, v.Value)
	}
	return out
}

// Nearest returns the closest contributing station ID and its distance in
// meters across all pollutants.
func (p *InterpolatedPoint) Nearest() (stationID string, distance float64) {
	distance = math.Inf(1)
	for _, v := range p.Values {
		for _, c := range v.ContributingStations {
			if c.Distance < distance {
				stationID, distance = c.StationID, c.Distance
			}
		}
	}
	return stationID, distance
}

type stationDistance struct {
	station  *Station
	distance float64
}

// Interpolator estimates concentrations between stations.
type Interpolator struct {
	config InterpolationConfig
}

// NewInterpolator fills zero fields of config from the defaults.
func NewInterpolator(config InterpolationConfig) *Interpolator {
	def := DefaultInterpolationConfig()
	orDefault := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	orDefault(&config.MaxDistance, def.MaxDistance)
	orDefault(&config.Power, def.Power)
	orDefault(&config.HighConfidenceMaxDistance, def.HighConfidenceMaxDistance)
	orDefault(&config.MediumConfidenceMaxDistance, def.MediumConfidenceMaxDistance)
	if config.MinStations <= 0 {
		config.MinStations = def.MinStations
	}
	if config.MaxStations <= 0 {
		config.MaxStations = def.MaxStations
	}
	return &Interpolator{config: config}
}

// Interpolate estimates pollutant concentrations at c.
func (i *Interpolator) Interpolate(c Coordinate, snapshot *AQSnapshot) (*InterpolatedPoint, error) {
	if snapshot == nil || len(snapshot.Stations) == 0 {
		return nil, ErrNoStationsInRange
	}

	var nearby []stationDistance
	for _, station := range snapshot.Stations {
		if d := HaversineDistance(c.Latitude, c.Longitude, station.Lat, station.Lon); d <= i.config.MaxDistance {
			nearby = append(nearby, stationDistance{station: station, distance: d})
		}
	}
	if len(nearby) < i.config.MinStations {
		return nil, ErrNoStationsInRange
	}

	sort.Slice(nearby, func(a, b int) bool { return nearby[a].distance < nearby[b].distance })
	if len(nearby) > i.config.MaxStations {
		nearby = nearby[:i.config.MaxStations]
	}

	result := &InterpolatedPoint{
		Coordinate: c,
		Values:     make(map[Pollutant]*InterpolatedValue),
	}

	for _, pollutant := range AllPollutants {
		if value, err := i.interpolatePollutant(pollutant, nearby, snapshot); err == nil {
			result.Values[pollutant] = value
		}
	}

	if len(result.Values) == 0 {
		return nil, ErrInsufficientData
	}

	return result, nil
}

// interpolatePollutant weights each nearby station reporting pollutant by
// 1/d^power. A station closer than one meter dominates the result.
func (i *Interpolator) interpolatePollutant(
	pollutant Pollutant,
	nearby []stationDistance,
	snapshot *AQSnapshot,
) (*InterpolatedValue, error) {
	contributions := make([]StationContribution, 0, len(nearby))
	var totalWeight float64

	for _, sd := range nearby {
		m := snapshot.GetMeasurement(sd.station.ID, pollutant)
		if m == nil {
			continue
		}

		weight := 1e10
		if sd.distance >= 1 {
			weight = 1.0 / math.Pow(sd.distance, i.config.Power)
		}

		contributions = append(contributions, StationContribution{
			StationID: sd.station.ID,
			Distance:  sd.distance,
			Value:     m.Value,
			Weight:    weight,
		})
		totalWeight += weight
	}

	if len(contributions) == 0 {
		return nil, ErrInsufficientData
	}

	var value float64
	for idx := range contributions {
		contributions[idx].Weight /= totalWeight
		value += contributions[idx].Value * contributions[idx].Weight
	}

	nearest := contributions[0].Distance
	return &InterpolatedValue{
		Pollutant:              pollutant,
		Value:                  value,
		Confidence:             i.confidence(nearest, len(contributions)),
		StationsUsed:           len(contributions),
		NearestStationDistance: nearest,
		ContributingStations:   contributions,
	}, nil
}

func (i *Interpolator) confidence(nearest float64, stations int) Confidence {
	switch {
	case nearest <= i.config.HighConfidenceMaxDistance && stations >= 2:
		return ConfidenceHigh
	case nearest <= i.config.MediumConfidenceMaxDistance:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// HaversineDistance returns the great-circle distance in meters.
func HaversineDistance(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadius = 6371000 // meters

	lat1Rad := lat1 * math.Pi / 180
	lat2Rad := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
