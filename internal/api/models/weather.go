package models

// WindData describes current wind.
type WindData struct {
	Speed     float64 `json:"speed"`
	Direction float64 `json:"direction"`
	Compass   string  `json:"compass"`
	Gust      float64 `json:"gust,omitempty"`
	Category  string  `json:"category"`
}

// WeatherData is a current observation on the wire.
type WeatherData struct {
	Location      string    `json:"location,omitempty"`
	Coordinates   Point     `json:"coordinates"`
	Temperature   float64   `json:"temperature"`
	Humidity      float64   `json:"humidity"`
	Pressure      float64   `json:"pressure"`
	Precipitation float64   `json:"precipitation"`
	CloudCover    float64   `json:"cloudCover"`
	Visibility    float64   `json:"visibility"`
	Condition     string    `json:"condition"`
	Description   string    `json:"description,omitempty"`
	Wind          WindData  `json:"wind"`
	ObservedAt    Timestamp `json:"observedAt"`
}

// AirQualityImpact summarises how weather moves the AQI.
type AirQualityImpact struct {
	AQIModifier         float64  `json:"aqiModifier"`
	DispersionFactor    float64  `json:"dispersionFactor"`
	PressureFactor      float64  `json:"pressureFactor"`
	HumidityFactor      float64  `json:"humidityFactor"`
	PrecipitationFactor float64  `json:"precipitationFactor"`
	Impact              string   `json:"impact"`
	Transport           string   `json:"transport"`
	Factors             []string `json:"factors"`
}

// WeatherResponse is the body of GET /api/weather.
type WeatherResponse struct {
	Coordinates Point             `json:"coordinates"`
	Data        WeatherData       `json:"data"`
	Impact      *AirQualityImpact `json:"airQualityImpact,omitempty"`
}
