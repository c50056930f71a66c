package handler

import (
	"net/http"

	"github.com/airwatchpro/airwatch/internal/airquality"
	"github.com/airwatchpro/airwatch/internal/airquality/tempo"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
)

// MetadataHandler handles metadata endpoints.
type MetadataHandler struct{}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler() *MetadataHandler {
	return &MetadataHandler{}
}

// GetSatelliteCoverage handles GET /v1/satellite/coverage.
func (h *MetadataHandler) GetSatelliteCoverage(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, tempo.Coverage())
}

// GetEnums handles GET /v1/metadata/enums - get enum values used by the API.
func (h *MetadataHandler) GetEnums(w http.ResponseWriter, r *http.Request) {
	enums := models.Enums{
		Levels:     make([]models.LevelInfo, 0, len(airquality.Levels)),
		Pollutants: make([]models.PollutantInfo, 0, len(airquality.AllPollutants)),
		Sources: []string{
			string(airquality.SourceGroundStation),
			string(airquality.SourceAirNow),
			string(airquality.SourceTEMPO),
			string(airquality.SourceSynthetic),
		},
	}
	for _, l := range airquality.Levels {
		enums.Levels = append(enums.Levels, models.LevelInfo{Name: string(l), Min: l.Min(), Max: l.Max(), Color: l.Color()})
	}
	for _, p := range airquality.AllPollutants {
		enums.Pollutants = append(enums.Pollutants, models.PollutantInfo{Key: string(p), Unit: p.Unit()})
	}
	response.JSON(w, r, http.StatusOK, enums)
}
