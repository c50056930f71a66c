// Package handler provides HTTP handlers for the AirWatch API.
package handler

import (
	"context"
	"net/http"
	"sort"

	"github.com/jonboulle/clockwork"
	"github.com/sony/gobreaker/v2"

	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/api/response"
	"github.com/airwatchpro/airwatch/internal/featureflags"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
)

// ServiceName is reported by GET /api/health.
const ServiceName = "airwatch-pro"

// ReadinessCheck probes one dependency.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// FlagLister returns the current feature flags.
type FlagLister interface {
	GetAllFlags(ctx context.Context) map[string]*featureflags.Flag
}

// OpsConfig holds configuration for the ops handler.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Registry supplies provider circuit state. Defaults to the global registry.
	Registry *resilience.Registry

	// Flags lists active degradation switches (optional).
	Flags FlagLister

	// Checks run on readiness and status requests.
	Checks []ReadinessCheck

	Clock clockwork.Clock
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	registry  *resilience.Registry
	flags     FlagLister
	checks    []ReadinessCheck
	clock     clockwork.Clock
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	h := &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		registry:  cfg.Registry,
		flags:     cfg.Flags,
		checks:    cfg.Checks,
		clock:     cfg.Clock,
	}
	if h.registry == nil {
		h.registry = resilience.GlobalRegistry
	}
	if h.clock == nil {
		h.clock = clockwork.NewRealClock()
	}
	return h
}

// ServiceHealth handles GET /api/health.
func (h *OpsHandler) ServiceHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.ServiceHealth{
		Status:    "healthy",
		Service:   ServiceName,
		Timestamp: models.Timestamp(h.clock.Now()),
		Version:   h.version,
	})
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(h.clock.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /v1/ops/ready. Any failing dependency makes
// the instance unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(h.clock.Now()),
	}
	status := http.StatusOK
	for _, s := range subsystems {
		if s.Status == models.HealthStatusFail {
			health.Status = models.HealthStatusFail
			status = http.StatusServiceUnavailable
		}
	}
	health.Subsystems = subsystems
	response.JSON(w, r, status, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(h.clock.Now()),
		Subsystems: h.runChecks(r.Context()),
		Providers:  h.providers(),
	}
	if h.flags != nil {
		status.ActiveDegradationFlags = activeFlags(h.flags.GetAllFlags(r.Context()))
	}

	for _, s := range status.Subsystems {
		status.Status = worst(status.Status, s.Status)
	}
	for _, p := range status.Providers {
		// A failing provider degrades the service; the synthetic fallback
		// keeps it answering.
		if p.Status != models.HealthStatusOK {
			status.Status = worst(status.Status, models.HealthStatusDegraded)
		}
	}
	if len(status.ActiveDegradationFlags) > 0 {
		status.Status = worst(status.Status, models.HealthStatusDegraded)
	}

	response.JSON(w, r, http.StatusOK, status)
}

func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	out := make([]models.SubsystemStatus, 0, len(h.checks))
	for _, c := range h.checks {
		s := models.SubsystemStatus{Name: c.Name, Status: models.HealthStatusOK}
		if err := c.Check(ctx); err != nil {
			detail := err.Error()
			s.Status = models.HealthStatusFail
			s.Detail = &detail
		}
		out = append(out, s)
	}
	return out
}

func (h *OpsHandler) providers() []models.ProviderStatus {
	all := h.registry.GetAllHealth()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		p := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              circuitHealth(ph.CircuitState),
			CircuitState:        ph.CircuitState.String(),
			ConsecutiveFailures: ph.ConsecutiveFailures,
			LastSuccessAt:       models.TimestampPtr(ph.LastSuccessAt),
			LastFailureAt:       models.TimestampPtr(ph.LastFailureAt),
		}
		if ph.LastError != "" {
			msg := ph.LastError
			p.Message = &msg
		}
		out = append(out, p)
	}
	return out
}

func circuitHealth(state gobreaker.State) models.HealthStatus {
	switch state {
	case gobreaker.StateOpen:
		return models.HealthStatusFail
	case gobreaker.StateHalfOpen:
		return models.HealthStatusDegraded
	default:
		return models.HealthStatusOK
	}
}

func activeFlags(flags map[string]*featureflags.Flag) []string {
	var out []string
	for key, f := range flags {
		if f.BoolValue(false) {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

var severity = map[models.HealthStatus]int{
	models.HealthStatusOK:       0,
	models.HealthStatusDegraded: 1,
	models.HealthStatusFail:     2,
}

func worst(a, b models.HealthStatus) models.HealthStatus {
	if severity[b] > severity[a] {
		return b
	}
	return a
}
