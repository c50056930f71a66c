package models

import (
	"github.com/airwatchpro/airwatch/internal/health"
)

// HealthRiskResponse is the body of GET /v1/health-risk.
type HealthRiskResponse struct {
	Coordinates      Point          `json:"coordinates"`
	Data             AirQualityData `json:"data"`
	RiskLevel        string         `json:"riskLevel"`
	PrimaryCondition string         `json:"primaryCondition"`
	Conditions       []string       `json:"conditions"`
	AtRiskConditions []string       `json:"atRiskConditions"`
	Sensitivity      string         `json:"sensitivity"`
	AdjustedAQI      int            `json:"adjustedAqi"`
	AdjustmentFactor float64        `json:"adjustmentFactor"`
	Affected         []string       `json:"affectedPollutants"`
	Recommendations  []string       `json:"recommendations"`
	UrgencyScore     float64        `json:"urgencyScore"`
}

// RiskLevelInfo describes one risk band.
type RiskLevelInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Advice      string `json:"generalAdvice"`
}

// RiskLevelsResponse is the body of GET /v1/health-risk/levels.
type RiskLevelsResponse struct {
	Levels     []RiskLevelInfo `json:"levels"`
	Conditions []string        `json:"conditions"`
}

// RiskRecommendationsResponse is the body of
// GET /v1/health-risk/recommendations/{level}.
type RiskRecommendationsResponse struct {
	RiskLevelInfo
	Conditions      []string `json:"conditions"`
	Recommendations []string `json:"recommendations"`
}

// NewRiskLevelInfo describes risk band l.
func NewRiskLevelInfo(l health.RiskLevel) RiskLevelInfo {
	return RiskLevelInfo{
		Name:        string(l),
		Description: l.Description(),
		Color:       l.Color(),
		Advice:      l.Advice(),
	}
}

// Strings converts typed names to their wire form, never nil.
func Strings[T ~string](values []T) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, string(v))
	}
	return out
}
