// Package featureflags provides runtime switches for air quality sources.
package featureflags

import (
	"time"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// Well-known feature flag keys.
const (
	// FlagDisableGroundStation skips the ground station network.
	FlagDisableGroundStation = "disable_source_ground_station"

	// FlagDisableAirNow skips EPA AirNow.
	FlagDisableAirNow = "disable_source_epa_airnow"

	// FlagDisableTEMPO skips the TEMPO satellite.
	FlagDisableTEMPO = "disable_source_tempo"

	// FlagSyntheticOnly bypasses every live source.
	FlagSyntheticOnly = "synthetic_only"

	// FlagDisableWeatherContext omits weather modifiers from responses.
	FlagDisableWeatherContext = "disable_weather_context"
)

var sourceFlags = map[airquality.Source]string{
	airquality.SourceGroundStation: FlagDisableGroundStation,
	airquality.SourceAirNow:        FlagDisableAirNow,
	airquality.SourceTEMPO:         FlagDisableTEMPO,
}

// SourceFlag returns the key that disables source, or "" when the source
// cannot be toggled.
func SourceFlag(source airquality.Source) string {
	return sourceFlags[source]
}

// Flag represents a feature flag with its current value.
type Flag struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// FlagList represents a list of feature flags.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate represents a single flag update request.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest represents a request to update feature flags.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// BoolValue returns the flag value as a boolean.
// Returns the default value if the flag is nil or not a boolean.
func (f *Flag) BoolValue(defaultValue bool) bool {
	if f == nil {
		return defaultValue
	}
	switch v := f.Value.(type) {
	case bool:
		return v
	case float64:
		// JSON unmarshals numbers as float64
		return v != 0
	default:
		return defaultValue
	}
}

// IsKnown reports whether key is one of the well-known flags.
func IsKnown(key string) bool {
	_, ok := DefaultFlags(time.Time{})[key]
	return ok
}

// DefaultFlags returns the default feature flags. Every switch starts off.
func DefaultFlags(now time.Time) map[string]*Flag {
	keys := []string{
		FlagDisableGroundStation,
		FlagDisableAirNow,
		FlagDisableTEMPO,
		FlagSyntheticOnly,
		FlagDisableWeatherContext,
	}
	flags := make(map[string]*Flag, len(keys))
	for _, k := range keys {
		flags[k] = &Flag{Key: k, Value: false, UpdatedAt: now}
	}
	return flags
}
