package weather_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/airwatchpro/airwatch/internal/weather"
)

func TestObservation_WindBands(t *testing.T) {
	tests := []struct {
		speed      float64
		category   weather.WindCategory
		dispersion float64
	}{
		{0, weather.WindCalm, 1.3},
		{2.0, weather.WindCalm, 1.3},
		{2.01, weather.WindLight, 1.0},
		{5.0, weather.WindLight, 1.0},
		{5.01, weather.WindModerate, 0.85},
		{10.0, weather.WindModerate, 0.85},
		{10.01, weather.WindStrong, 0.7},
		{24.5, weather.WindStrong, 0.7},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%.2f m/s", tt.speed), func(t *testing.T) {
			obs := &weather.Observation{WindSpeed: tt.speed}
			assert.Equal(t, tt.category, obs.WindCategory())
			assert.Equal(t, tt.dispersion, obs.DispersionFactor())
		})
	}
}

func TestObservation_CalmAirAccumulatesMoreThanWind(t *testing.T) {
	calm := &weather.Observation{WindSpeed: 0.4}
	windy := &weather.Observation{WindSpeed: 14}
	assert.Greater(t, calm.DispersionFactor(), windy.DispersionFactor())
}
