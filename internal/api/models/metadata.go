package models

// LevelInfo describes one AQI band.
type LevelInfo struct {
	Name  string `json:"name"`
	Min   int    `json:"min"`
	Max   int    `json:"max"`
	Color string `json:"color"`
}

// PollutantInfo names a pollutant and its canonical unit.
type PollutantInfo struct {
	Key  string `json:"key"`
	Unit string `json:"unit"`
}

// Enums represents the enum values used by the API.
type Enums struct {
	Levels     []LevelInfo     `json:"levels"`
	Pollutants []PollutantInfo `json:"pollutants"`
	Sources    []string        `json:"sources"`
}
