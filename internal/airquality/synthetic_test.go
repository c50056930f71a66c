package airquality_test

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

var (
	newYork = airquality.Coordinate{Latitude: 40.7128, Longitude: -74.0060}
	boise   = airquality.Coordinate{Latitude: 43.6150, Longitude: -116.2023}
)

func seededGenerator(seed uint64, clock clockwork.Clock) *airquality.Generator {
	return airquality.NewGenerator(airquality.GeneratorConfig{
		Clock: clock,
		Rand:  rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	})
}

func TestGenerator_InvalidCoordinate(t *testing.T) {
	g := seededGenerator(1, nil)

	for _, c := range []airquality.Coordinate{
		{Latitude: 200, Longitude: 0},
		{Latitude: 0, Longitude: -181},
		{Latitude: math.NaN(), Longitude: 0},
		{Latitude: 0, Longitude: math.Inf(1)},
	} {
		_, err := g.Generate(c)
		assert.ErrorIs(t, err, airquality.ErrInvalidCoordinate, "%v", c)
	}
}

func TestGenerator_UrbanBaselineRange(t *testing.T) {
	g := seededGenerator(7, nil)

	for i := 0; i < 500; i++ {
		r, err := g.Generate(newYork)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.AQI, 60)
		assert.LessOrEqual(t, r.AQI, 100)
	}
}

func TestGenerator_RuralBaselineRange(t *testing.T) {
	g := seededGenerator(7, nil)

	for i := 0; i < 500; i++ {
		r, err := g.Generate(boise)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, r.AQI, 35)
		assert.LessOrEqual(t, r.AQI, 65)
	}
}

func TestGenerator_UrbanMeanExceedsRural(t *testing.T) {
	g := seededGenerator(42, nil)

	mean := func(c airquality.Coordinate) float64 {
		var sum int
		for i := 0; i < 1000; i++ {
			r, err := g.Generate(c)
			require.NoError(t, err)
			sum += r.AQI
		}
		return float64(sum) / 1000
	}

	assert.Greater(t, mean(newYork), mean(boise)+15)
}

func TestGenerator_ReadingInvariants(t *testing.T) {
	g := seededGenerator(3, nil)
	coords := []airquality.Coordinate{
		newYork, boise,
		{Latitude: 90, Longitude: 180},
		{Latitude: -90, Longitude: -180},
		{Latitude: 41.7, Longitude: -73.0},
	}

	for _, c := range coords {
		for i := 0; i < 200; i++ {
			r, err := g.Generate(c)
			require.NoError(t, err)

			assert.GreaterOrEqual(t, r.AQI, 1)
			assert.LessOrEqual(t, r.AQI, 500)
			assert.Equal(t, airquality.Classify(r.AQI), r.Level())
			assert.Equal(t, airquality.SourceSynthetic, r.Source)
			assert.GreaterOrEqual(t, r.Pollutants[airquality.PollutantPM10], r.Pollutants[airquality.PollutantPM25])
			assert.Len(t, r.Pollutants, 6)
			for p, v := range r.Pollutants {
				assert.GreaterOrEqual(t, v, 0.0, "%s", p)
			}
		}
	}
}

func TestGenerator_TimestampFromClock(t *testing.T) {
	now := time.Date(2025, 10, 4, 9, 30, 0, 0, time.UTC)
	g := seededGenerator(1, clockwork.NewFakeClockAt(now))

	r, err := g.Generate(newYork)
	require.NoError(t, err)
	assert.Equal(t, now, r.Timestamp)
	assert.Equal(t, newYork, r.Coordinates)
}

func TestGenerator_DeterministicWithSeed(t *testing.T) {
	clock := clockwork.NewFakeClock()
	a, err := seededGenerator(99, clock).Generate(boise)
	require.NoError(t, err)
	b, err := seededGenerator(99, clock).Generate(boise)
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestIsUrban(t *testing.T) {
	assert.True(t, airquality.IsUrban(newYork))
	assert.True(t, airquality.IsUrban(airquality.Coordinate{Latitude: 41.5, Longitude: -73.2}))
	assert.False(t, airquality.IsUrban(airquality.Coordinate{Latitude: 41.8, Longitude: -74.0}))
	assert.False(t, airquality.IsUrban(boise))
}
