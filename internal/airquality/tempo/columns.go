package tempo

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// Quality is the retrieval quality flag derived from cloud fraction.
type Quality string

const (
	QualityExcellent Quality = "excellent"
	QualityGood      Quality = "good"
	QualityModerate  Quality = "moderate"
	QualityPoor      Quality = "poor"
)

// Columns are trace gas column retrievals for one pixel.
type Columns struct {
	// NO2 and HCHO in molecules/cm².
	NO2  float64
	HCHO float64

	// O3 total column in Dobson units.
	O3 float64

	CloudFraction float64
	Quality       Quality
}

// EstimateColumns returns column amounts for c at observation time t. The
// pixel variation is a pure function of the coordinate so repeated lookups
// of the same granule agree.
func EstimateColumns(c airquality.Coordinate, t time.Time) Columns {
	seed := int64(c.Latitude*1000 + c.Longitude*1000)
	hour := localSolarHour(c, t)
	month := t.Month()

	no2 := 2.5e15
	if c.Latitude > 30 && c.Longitude > -130 {
		no2 *= 2.0
	}
	if hour >= 6 && hour <= 18 {
		no2 *= 1.5
	}
	if isWinter(month) {
		no2 *= 1.3
	}
	no2 *= uniform(seed, 0.7, 1.4)

	o3 := 300.0
	switch {
	case c.Latitude > 60:
		o3 = 350.0
	case c.Latitude < 30:
		o3 = 280.0
	}
	switch month {
	case time.March, time.April, time.May:
		o3 *= 1.1
	case time.September, time.October, time.November:
		o3 *= 0.95
	}
	o3 *= uniform(seed+1, 0.9, 1.1)

	hcho := 8.0e15
	if c.Latitude >= 35 && c.Latitude <= 50 && c.Longitude >= -125 && c.Longitude <= -70 {
		hcho *= 1.5
	}
	switch {
	case month >= time.June && month <= time.August:
		hcho *= 1.8
	case isWinter(month):
		hcho *= 0.6
	}
	hcho *= uniform(seed+2, 0.5, 1.8)

	cloudSeed := int64(c.Latitude*100 + c.Longitude*100)
	var cloud float64
	if c.Latitude >= 30 && c.Latitude <= 50 {
		cloud = uniform(cloudSeed, 0.1, 0.8)
	} else {
		cloud = uniform(cloudSeed, 0.2, 0.6)
	}

	return Columns{NO2: no2, HCHO: hcho, O3: o3, CloudFraction: cloud, Quality: qualityFor(cloud)}
}

// Surface converts columns to near-surface concentrations in canonical
// units. NO2 and O3 map directly; PM2.5 is estimated from HCHO as a proxy
// for secondary organic aerosol plus an NO2-linked nitrate share.
func (col Columns) Surface() airquality.Pollutants {
	no2 := col.NO2 / 1e15 * 1.5
	o3 := math.Max(0, 30+(col.O3-300)*0.2)
	pm25 := 5 + col.HCHO/1e15*0.6 + no2*0.15

	p := airquality.Pollutants{}
	p.Set(airquality.PollutantNO2, round1(no2))
	p.Set(airquality.PollutantO3, round1(o3))
	p.Set(airquality.PollutantPM25, round1(pm25))
	return p
}

// ViewingZenithAngle approximates the view angle from the geostationary
// slot at NadirLongitude, capped at 70°.
func ViewingZenithAngle(c airquality.Coordinate) float64 {
	angle := math.Abs(c.Longitude-NadirLongitude)*0.8 + math.Abs(c.Latitude)*1.2
	return math.Min(angle, 70)
}

func qualityFor(cloud float64) Quality {
	switch {
	case cloud < 0.2:
		return QualityExcellent
	case cloud < 0.4:
		return QualityGood
	case cloud < 0.7:
		return QualityModerate
	default:
		return QualityPoor
	}
}

func uniform(seed int64, lo, hi float64) float64 {
	r := rand.New(rand.NewPCG(uint64(seed), 0))
	return lo + r.Float64()*(hi-lo)
}

func localSolarHour(c airquality.Coordinate, t time.Time) int {
	h := math.Mod(float64(t.UTC().Hour())+c.Longitude/15+24, 24)
	return int(h)
}

func isWinter(m time.Month) bool {
	return m == time.December || m == time.January || m == time.February
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
