package airquality

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"github.com/jonboulle/clockwork"
)

// Urban reference point for the synthetic baseline (New York City).
var urbanReference = Coordinate{Latitude: 40.7128, Longitude: -74.0060}

const urbanRadiusDegrees = 1.0

// Baseline AQI ranges, inclusive.
const (
	urbanBaselineMin, urbanBaselineMax = 60.0, 100.0
	ruralBaselineMin, ruralBaselineMax = 35.0, 65.0
)

// Generator produces plausible readings when no live source answers.
// It is safe for concurrent use.
type Generator struct {
	clock clockwork.Clock

	mu  sync.Mutex
	rnd *rand.Rand
}

// GeneratorConfig configures a Generator. Zero values use the wall clock
// and a randomly seeded source.
type GeneratorConfig struct {
	Clock clockwork.Clock
	Rand  *rand.Rand
}

// NewGenerator creates a synthetic reading generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Generator{clock: cfg.Clock, rnd: cfg.Rand}
}

// IsUrban reports whether c lies within one degree on both axes of the
// urban reference point.
func IsUrban(c Coordinate) bool {
	return math.Abs(c.Latitude-urbanReference.Latitude) <= urbanRadiusDegrees &&
		math.Abs(c.Longitude-urbanReference.Longitude) <= urbanRadiusDegrees
}

// Generate returns a synthetic reading for c.
func (g *Generator) Generate(c Coordinate) (*Reading, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	lo, hi := ruralBaselineMin, ruralBaselineMax
	if IsUrban(c) {
		lo, hi = urbanBaselineMin, urbanBaselineMax
	}
	aqi := ClampAQI(int(math.Round(g.uniform(lo, hi))))

	pollutants := make(Pollutants, len(AllPollutants))

	// PM10 is derived from PM2.5 so that it can never fall below it.
	pm25 := ConcentrationForAQI(PollutantPM25, aqi) * g.uniform(0.9, 1.1)
	pollutants.Set(PollutantPM25, round(pm25, 1))
	pollutants.Set(PollutantPM10, math.Max(round(pm25*g.uniform(1.3, 1.8), 1), pollutants[PollutantPM25]))

	pollutants.Set(PollutantO3, round(ConcentrationForAQI(PollutantO3, aqi)*g.uniform(0.5, 0.9), 1))
	pollutants.Set(PollutantNO2, round((8+float64(aqi)*0.35)*g.uniform(0.8, 1.2), 1))
	pollutants.Set(PollutantSO2, round((1+float64(aqi)*0.04)*g.uniform(0.7, 1.3), 1))
	pollutants.Set(PollutantCO, round((0.2+float64(aqi)*0.008)*g.uniform(0.8, 1.2), 2))

	return &Reading{
		Coordinates: c,
		Location:    syntheticLocation(c),
		AQI:         aqi,
		Pollutants:  pollutants,
		Source:      SourceSynthetic,
		Timestamp:   g.clock.Now().UTC(),
	}, nil
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rnd.Float64()*(hi-lo)
}

func syntheticLocation(c Coordinate) string {
	if IsUrban(c) {
		return "New York metropolitan area (estimated)"
	}
	return fmt.Sprintf("%.2f, %.2f (estimated)", c.Latitude, c.Longitude)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
