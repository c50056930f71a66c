// Package health scores air quality readings against the sensitivities of
// people with particular health conditions.
package health

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/airwatchpro/airwatch/internal/airquality"
)

// Condition is a health condition that changes sensitivity to pollution.
type Condition string

const (
	ConditionAsthma       Condition = "asthma"
	ConditionCOPD         Condition = "copd"
	ConditionHeartDisease Condition = "heart_disease"
	ConditionDiabetes     Condition = "diabetes"
	ConditionPregnancy    Condition = "pregnancy"
	ConditionElderly      Condition = "elderly"
	ConditionChildren     Condition = "children"
	ConditionHealthy      Condition = "healthy"
)

// Conditions lists every condition, most sensitive first. The first one a
// profile carries decides its thresholds.
var Conditions = []Condition{
	ConditionCOPD,
	ConditionAsthma,
	ConditionHeartDisease,
	ConditionPregnancy,
	ConditionElderly,
	ConditionChildren,
	ConditionDiabetes,
	ConditionHealthy,
}

// Sensitivity scales the whole assessment for a person.
type Sensitivity string

const (
	SensitivityLow    Sensitivity = "low"
	SensitivityNormal Sensitivity = "normal"
	SensitivityHigh   Sensitivity = "high"
)

// RiskLevel is the personal risk band of an assessment.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskVeryHigh RiskLevel = "very_high"
	RiskExtreme  RiskLevel = "extreme"
)

// RiskLevels lists the bands from least to most severe.
var RiskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskVeryHigh, RiskExtreme}

// extremeAQI is the adjusted AQI above which every profile is at extreme
// risk once past its very-high threshold.
const extremeAQI = 300

var (
	ErrUnknownCondition   = errors.New("unknown health condition")
	ErrUnknownSensitivity = errors.New("unknown sensitivity")
	ErrUnknownRiskLevel   = errors.New("unknown risk level")
)

// thresholds are the adjusted AQI values at which a condition enters the
// moderate, high and very high bands.
type thresholds struct {
	moderate, high, veryHigh int
}

type conditionProfile struct {
	multipliers     map[airquality.Pollutant]float64
	thresholds      thresholds
	highRisk        bool
	recommendations []string
}

var profiles = map[Condition]conditionProfile{
	ConditionAsthma: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 2.0, airquality.PollutantO3: 2.5,
			airquality.PollutantNO2: 2.0, airquality.PollutantSO2: 1.8,
		},
		thresholds: thresholds{50, 100, 150},
		highRisk:   true,
		recommendations: []string{
			"Keep rescue inhaler readily available",
			"Monitor for asthma symptoms closely",
			"Consider pre-medicating before outdoor exposure",
		},
	},
	ConditionCOPD: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 2.5, airquality.PollutantPM10: 2.0,
			airquality.PollutantO3: 2.2, airquality.PollutantNO2: 2.0,
		},
		thresholds: thresholds{45, 90, 130},
		highRisk:   true,
		recommendations: []string{
			"Use supplemental oxygen as prescribed",
			"Monitor breathing difficulty",
			"Stay hydrated and rest frequently",
		},
	},
	ConditionHeartDisease: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 2.0, airquality.PollutantPM10: 1.8,
			airquality.PollutantCO: 2.5, airquality.PollutantNO2: 1.5,
		},
		thresholds: thresholds{55, 110, 160},
		highRisk:   true,
		recommendations: []string{
			"Monitor for chest pain or discomfort",
			"Avoid strenuous activities",
			"Take medications as prescribed",
		},
	},
	ConditionDiabetes: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 1.5, airquality.PollutantO3: 1.8, airquality.PollutantNO2: 1.5,
		},
		thresholds: thresholds{60, 120, 170},
	},
	ConditionPregnancy: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 1.8, airquality.PollutantPM10: 1.5,
			airquality.PollutantCO: 2.0, airquality.PollutantO3: 1.6,
		},
		thresholds: thresholds{55, 110, 160},
		recommendations: []string{
			"Minimize outdoor exposure",
			"Monitor fetal movement",
			"Consult healthcare provider if concerned",
		},
	},
	ConditionElderly: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 1.8, airquality.PollutantPM10: 1.5,
			airquality.PollutantO3: 1.8, airquality.PollutantNO2: 1.5,
		},
		thresholds: thresholds{60, 120, 170},
	},
	ConditionChildren: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 1.6, airquality.PollutantO3: 2.0,
			airquality.PollutantNO2: 1.8, airquality.PollutantSO2: 1.5,
		},
		thresholds: thresholds{55, 110, 160},
	},
	ConditionHealthy: {
		multipliers: map[airquality.Pollutant]float64{
			airquality.PollutantPM25: 1.0, airquality.PollutantPM10: 1.0, airquality.PollutantO3: 1.0,
			airquality.PollutantNO2: 1.0, airquality.PollutantSO2: 1.0, airquality.PollutantCO: 1.0,
		},
		thresholds: thresholds{100, 150, 200},
	},
}

type riskBand struct {
	description     string
	color           string
	advice          string
	urgency         float64
	recommendations []string
}

var bands = map[RiskLevel]riskBand{
	RiskLow: {
		description: "Minimal health risk for most people",
		color:       "green",
		advice:      "Air quality is satisfactory for most people",
		urgency:     1,
		recommendations: []string{
			"Air quality is good - enjoy outdoor activities",
			"No special precautions needed for most people",
		},
	},
	RiskModerate: {
		description: "Acceptable for most, sensitive groups may experience minor symptoms",
		color:       "yellow",
		advice:      "Sensitive individuals should consider limiting prolonged outdoor exertion",
		urgency:     3,
		recommendations: []string{
			"Consider reducing prolonged outdoor exertion",
			"Sensitive individuals should monitor symptoms",
		},
	},
	RiskHigh: {
		description: "Health effects possible for sensitive groups",
		color:       "orange",
		advice:      "Sensitive groups should reduce outdoor activities",
		urgency:     6,
		recommendations: []string{
			"Reduce outdoor exercise and activities",
			"Consider wearing a mask outdoors",
			"Take frequent breaks if you must be outside",
		},
	},
	RiskVeryHigh: {
		description: "Health warnings of emergency conditions",
		color:       "red",
		advice:      "Everyone should reduce outdoor activities",
		urgency:     8,
		recommendations: []string{
			"Limit outdoor activities to essential only",
			"Wear N95 or P100 mask when outdoors",
			"Keep windows closed and use air conditioning",
		},
	},
	RiskExtreme: {
		description: "Health alert - emergency conditions affect everyone",
		color:       "purple",
		advice:      "Everyone should avoid outdoor activities",
		urgency:     10,
		recommendations: []string{
			"Stay indoors and keep windows closed",
			"Use air purifiers if available",
			"Avoid all outdoor activities",
			"Seek medical attention if experiencing symptoms",
		},
	},
}

// Description explains the band.
func (l RiskLevel) Description() string { return bands[l].description }

// Color is the display colour for the band.
func (l RiskLevel) Color() string { return bands[l].color }

// Advice is the one-line general advice for the band.
func (l RiskLevel) Advice() string { return bands[l].advice }

// ParseRiskLevel accepts a risk level name in any case.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	l := RiskLevel(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := bands[l]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRiskLevel, raw)
	}
	return l, nil
}

// ParseConditions splits a comma separated list. Blank entries are skipped,
// duplicates collapse and an empty list means healthy.
func ParseConditions(raw string) ([]Condition, error) {
	var out []Condition
	for _, part := range strings.Split(raw, ",") {
		c := Condition(strings.ToLower(strings.TrimSpace(part)))
		if c == "" {
			continue
		}
		if _, ok := profiles[c]; !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownCondition, part)
		}
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		out = []Condition{ConditionHealthy}
	}
	return out, nil
}

// ParseSensitivity accepts low, normal or high. Empty means normal.
func ParseSensitivity(raw string) (Sensitivity, error) {
	switch s := Sensitivity(strings.ToLower(strings.TrimSpace(raw))); s {
	case "":
		return SensitivityNormal, nil
	case SensitivityLow, SensitivityNormal, SensitivityHigh:
		return s, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownSensitivity, raw)
	}
}

// Profile is who the assessment is for.
type Profile struct {
	Conditions  []Condition
	Sensitivity Sensitivity
}

// Primary returns the most sensitive condition in the profile.
func (p Profile) Primary() Condition {
	for _, c := range Conditions {
		if slices.Contains(p.Conditions, c) {
			return c
		}
	}
	return ConditionHealthy
}

// Assessment is the personal risk of one reading.
type Assessment struct {
	Level            RiskLevel
	PrimaryCondition Condition
	BaseAQI          int
	AdjustedAQI      int
	Factor           float64

	// AtRisk are the profile's conditions whose moderate threshold the
	// unadjusted AQI reaches.
	AtRisk []Condition

	// Affected are pollutants whose own sub-index is above 100.
	Affected        []airquality.Pollutant
	Recommendations []string

	// Urgency ranks assessments from 1 to 10.
	Urgency float64
}

// Assess scores reading for profile. The AQI is scaled by the primary
// condition's largest multiplier among the pollutants the reading carries,
// then by the profile's sensitivity, and compared to that condition's
// thresholds.
func Assess(reading *airquality.Reading, p Profile) Assessment {
	primary := p.Primary()
	cp := profiles[primary]

	factor := 1.0
	if m := maxMultiplier(cp.multipliers, reading.Pollutants); m > 0 {
		factor = m
	}
	switch p.Sensitivity {
	case SensitivityHigh:
		factor *= 1.2
	case SensitivityLow:
		factor *= 0.9
	}

	adjusted := int(math.Round(float64(reading.AQI) * factor))
	level := riskFor(adjusted, cp.thresholds)

	var atRisk []Condition
	for _, c := range p.Conditions {
		if reading.AQI >= profiles[c].thresholds.moderate {
			atRisk = append(atRisk, c)
		}
	}

	return Assessment{
		Level:            level,
		PrimaryCondition: primary,
		BaseAQI:          reading.AQI,
		AdjustedAQI:      adjusted,
		Factor:           math.Round(factor*100) / 100,
		AtRisk:           atRisk,
		Affected:         affected(reading.Pollutants),
		Recommendations:  Recommendations(level, atRisk),
		Urgency:          urgency(level, atRisk),
	}
}

// Recommendations returns the advice for level followed by advice for each
// condition that has its own.
func Recommendations(level RiskLevel, conditions []Condition) []string {
	out := slices.Clone(bands[level].recommendations)
	for _, c := range conditions {
		out = append(out, profiles[c].recommendations...)
	}
	return out
}

func riskFor(aqi int, t thresholds) RiskLevel {
	switch {
	case aqi >= t.veryHigh && aqi >= extremeAQI:
		return RiskExtreme
	case aqi >= t.veryHigh:
		return RiskVeryHigh
	case aqi >= t.high:
		return RiskHigh
	case aqi >= t.moderate:
		return RiskModerate
	default:
		return RiskLow
	}
}

func maxMultiplier(multipliers map[airquality.Pollutant]float64, present airquality.Pollutants) float64 {
	var m float64
	for p := range present {
		m = max(m, multipliers[p])
	}
	return m
}

func affected(p airquality.Pollutants) []airquality.Pollutant {
	out := []airquality.Pollutant{}
	for _, pollutant := range airquality.AllPollutants {
		v, ok := p[pollutant]
		if ok && airquality.CalculateAQI(pollutant, v) > 100 {
			out = append(out, pollutant)
		}
	}
	return out
}

func urgency(level RiskLevel, atRisk []Condition) float64 {
	score := bands[level].urgency
	for _, c := range atRisk {
		if profiles[c].highRisk {
			score *= 1.3
		} else {
			score *= 1.1
		}
	}
	return math.Min(math.Round(score*10)/10, 10)
}
