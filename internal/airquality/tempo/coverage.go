package tempo

// Parameter describes one TEMPO retrieval product.
type Parameter struct {
	Name           string `json:"name"`
	FullName       string `json:"fullName"`
	Unit           string `json:"unit"`
	Precision      string `json:"precision"`
	DetectionLimit string `json:"detectionLimit"`
}

// CoverageInfo is the static description of the instrument's footprint.
type CoverageInfo struct {
	North          float64     `json:"north"`
	South          float64     `json:"south"`
	East           float64     `json:"east"`
	West           float64     `json:"west"`
	Region         string      `json:"region"`
	NadirLongitude float64     `json:"nadirLongitude"`
	Frequency      string      `json:"observationFrequency"`
	NadirPixel     string      `json:"nadirResolution"`
	EdgePixel      string      `json:"edgeResolution"`
	Latency        string      `json:"latency"`
	QualityFlags   []Quality   `json:"qualityFlags"`
	Parameters     []Parameter `json:"parameters"`
}

// Coverage returns the TEMPO footprint and product description.
func Coverage() CoverageInfo {
	return CoverageInfo{
		North:          Bounds.North,
		South:          Bounds.South,
		East:           Bounds.East,
		West:           Bounds.West,
		Region:         "North America",
		NadirLongitude: NadirLongitude,
		Frequency:      "Hourly during daytime",
		NadirPixel:     "2.1 km x 4.4 km",
		EdgePixel:      "8.0 km x 12.0 km",
		Latency:        "3-8 hours from observation",
		QualityFlags:   []Quality{QualityExcellent, QualityGood, QualityModerate, QualityPoor},
		Parameters: []Parameter{
			{Name: "NO2", FullName: "Nitrogen Dioxide", Unit: "molecules/cm²", Precision: "15%", DetectionLimit: "1.0e14 molecules/cm²"},
			{Name: "O3", FullName: "Total Column Ozone", Unit: "DU", Precision: "10%", DetectionLimit: "200 DU"},
			{Name: "HCHO", FullName: "Formaldehyde", Unit: "molecules/cm²", Precision: "20%", DetectionLimit: "5.0e14 molecules/cm²"},
		},
	}
}
