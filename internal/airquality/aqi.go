package airquality

import "math"

// Level is an AQI category.
type Level string

const (
	LevelGood               Level = "Good"
	LevelModerate           Level = "Moderate"
	LevelUnhealthySensitive Level = "Unhealthy for Sensitive Groups"
	LevelUnhealthy          Level = "Unhealthy"
	LevelVeryUnhealthy      Level = "Very Unhealthy"
	LevelHazardous          Level = "Hazardous"
)

const (
	minAQI = 1
	maxAQI = 500
)

// Levels lists every category from cleanest to worst.
var Levels = []Level{
	LevelGood, LevelModerate, LevelUnhealthySensitive, LevelUnhealthy, LevelVeryUnhealthy, LevelHazardous,
}

type band struct {
	min, max       int
	color          string
	message        string
	recommendation []string
}

var bands = map[Level]band{
	LevelGood: {
		min: minAQI, max: 50, color: "green",
		message:        "Air quality is considered satisfactory, and air pollution poses little or no risk.",
		recommendation: []string{"Air quality is satisfactory. Enjoy outdoor activities."},
	},
	LevelModerate: {
		min: 51, max: 100, color: "yellow",
		message: "Air quality is acceptable for most people. However, sensitive groups may experience minor symptoms.",
		recommendation: []string{
			"Air quality is acceptable for most people.",
			"Sensitive individuals may experience minor irritation.",
		},
	},
	LevelUnhealthySensitive: {
		min: 101, max: 150, color: "orange",
		message: "Members of sensitive groups may experience health effects. The general public is not likely to be affected.",
		recommendation: []string{
			"Sensitive groups should limit prolonged outdoor exertion.",
			"General public can continue normal activities.",
		},
	},
	LevelUnhealthy: {
		min: 151, max: 200, color: "red",
		message: "Everyone may begin to experience health effects; members of sensitive groups may experience more serious health effects.",
		recommendation: []string{
			"Everyone should limit prolonged outdoor exertion.",
			"Sensitive groups should avoid outdoor activities.",
		},
	},
	LevelVeryUnhealthy: {
		min: 201, max: 300, color: "purple",
		message: "Health warnings of emergency conditions. The entire population is more likely to be affected.",
		recommendation: []string{
			"Everyone should avoid prolonged outdoor exertion.",
			"Consider staying indoors.",
		},
	},
	LevelHazardous: {
		min: 301, max: maxAQI, color: "maroon",
		message: "Health alert: everyone may experience more serious health effects.",
		recommendation: []string{
			"Health warning: everyone should avoid outdoor activities.",
			"Stay indoors and keep windows closed.",
		},
	},
}

// Classify maps any integer to its AQI band. Values at or below zero are
// treated as 1; values above 500 are Hazardous.
func Classify(aqi int) Level {
	aqi = ClampAQI(aqi)
	switch {
	case aqi <= 50:
		return LevelGood
	case aqi <= 100:
		return LevelModerate
	case aqi <= 150:
		return LevelUnhealthySensitive
	case aqi <= 200:
		return LevelUnhealthy
	case aqi <= 300:
		return LevelVeryUnhealthy
	default:
		return LevelHazardous
	}
}

// ClampAQI bounds aqi to [1, 500].
func ClampAQI(aqi int) int {
	if aqi < minAQI {
		return minAQI
	}
	if aqi > maxAQI {
		return maxAQI
	}
	return aqi
}

// Min is the lowest AQI in the band. Classify(l.Min()) == l.
func (l Level) Min() int { return bands[l].min }

// Max is the highest AQI in the band.
func (l Level) Max() int { return bands[l].max }

// Color is the conventional display colour for the band.
func (l Level) Color() string { return bands[l].color }

// HealthMessage is the general health statement for the band.
func (l Level) HealthMessage() string {
	if b, ok := bands[l]; ok {
		return b.message
	}
	return "Air quality information unavailable."
}

// Recommendations returns advice for the band.
func (l Level) Recommendations() []string {
	return append([]string(nil), bands[l].recommendation...)
}

// breakpoint is one EPA segment: concentrations [cLo, cHi] map linearly
// onto [iLo, iHi].
type breakpoint struct {
	cLo, cHi float64
	iLo, iHi int
}

// Concentration units follow Pollutant.Unit. O3 uses the 8-hour table
// expressed in ppb.
var breakpoints = map[Pollutant][]breakpoint{
	PollutantPM25: {
		{0.0, 12.0, 0, 50},
		{12.1, 35.4, 51, 100},
		{35.5, 55.4, 101, 150},
		{55.5, 150.4, 151, 200},
		{150.5, 250.4, 201, 300},
		{250.5, 500.4, 301, 500},
	},
	PollutantPM10: {
		{0, 54, 0, 50},
		{55, 154, 51, 100},
		{155, 254, 101, 150},
		{255, 354, 151, 200},
		{355, 424, 201, 300},
		{425, 604, 301, 500},
	},
	PollutantO3: {
		{0, 54, 0, 50},
		{55, 70, 51, 100},
		{71, 85, 101, 150},
		{86, 105, 151, 200},
		{106, 200, 201, 300},
	},
	PollutantNO2: {
		{0, 53, 0, 50},
		{54, 100, 51, 100},
		{101, 360, 101, 150},
		{361, 649, 151, 200},
		{650, 1249, 201, 300},
		{1250, 2049, 301, 500},
	},
	PollutantSO2: {
		{0, 35, 0, 50},
		{36, 75, 51, 100},
		{76, 185, 101, 150},
		{186, 304, 151, 200},
		{305, 604, 201, 300},
		{605, 1004, 301, 500},
	},
	PollutantCO: {
		{0.0, 4.4, 0, 50},
		{4.5, 9.4, 51, 100},
		{9.5, 12.4, 101, 150},
		{12.5, 15.4, 151, 200},
		{15.5, 30.4, 201, 300},
		{30.5, 50.4, 301, 500},
	},
}

// CalculateAQI converts a concentration in canonical units to its
// sub-index. Concentrations in the gap between two segments use the upper
// segment; anything above the table is 500. Unknown pollutants and
// negative values return 0.
func CalculateAQI(p Pollutant, concentration float64) int {
	table, ok := breakpoints[p]
	if !ok || concentration < 0 || math.IsNaN(concentration) {
		return 0
	}
	for _, bp := range table {
		if concentration <= bp.cHi {
			c := math.Max(concentration, bp.cLo)
			idx := float64(bp.iHi-bp.iLo)/(bp.cHi-bp.cLo)*(c-bp.cLo) + float64(bp.iLo)
			return int(math.Round(idx))
		}
	}
	return maxAQI
}

// ConcentrationForAQI is the inverse of CalculateAQI: it returns the
// concentration that yields aqi. Values above the table's top are capped at
// its highest concentration.
func ConcentrationForAQI(p Pollutant, aqi int) float64 {
	table, ok := breakpoints[p]
	if !ok || aqi <= 0 {
		return 0
	}
	for _, bp := range table {
		if aqi <= bp.iHi {
			i := aqi
			if i < bp.iLo {
				i = bp.iLo
			}
			return float64(i-bp.iLo)/float64(bp.iHi-bp.iLo)*(bp.cHi-bp.cLo) + bp.cLo
		}
	}
	return table[len(table)-1].cHi
}

// OverallAQI is the highest sub-index across pollutants, or 0 when none
// has a breakpoint table.
func OverallAQI(p Pollutants) (aqi int, dominant Pollutant) {
	for _, pollutant := range AllPollutants {
		v, ok := p[pollutant]
		if !ok {
			continue
		}
		if sub := CalculateAQI(pollutant, v); sub > aqi {
			aqi, dominant = sub, pollutant
		}
	}
	return aqi, dominant
}
