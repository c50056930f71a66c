package models

// Health is the body of the liveness and readiness probes. Liveness fills
// the build fields, readiness the per-dependency results.
type Health struct {
	Status     HealthStatus      `json:"status"`
	Time       Timestamp         `json:"time"`
	Version    string            `json:"version,omitempty"`
	BuildTime  string            `json:"buildTime,omitempty"`
	Subsystems []SubsystemStatus `json:"subsystems,omitempty"`
}

// ServiceHealth is the body of GET /api/health.
type ServiceHealth struct {
	Status    string    `json:"status"`
	Service   string    `json:"service"`
	Timestamp Timestamp `json:"timestamp"`
	Version   string    `json:"version"`
}

// SystemStatus is the body of GET /v1/ops/status. Status is FAIL when a
// subsystem fails and DEGRADED when a provider is unhealthy or a
// degradation flag is on.
type SystemStatus struct {
	Status                 HealthStatus      `json:"status"`
	Time                   Timestamp         `json:"time"`
	Subsystems             []SubsystemStatus `json:"subsystems"`
	Providers              []ProviderStatus  `json:"providers"`
	ActiveDegradationFlags []string          `json:"activeDegradationFlags,omitempty"`
}

// SubsystemStatus is the result of one readiness check.
type SubsystemStatus struct {
	Name   string       `json:"name"`
	Status HealthStatus `json:"status"`
	Detail *string      `json:"detail,omitempty"`
}

// ProviderStatus mirrors a provider's circuit breaker and last outcomes.
type ProviderStatus struct {
	Provider            string       `json:"provider"`
	Status              HealthStatus `json:"status"`
	CircuitState        string       `json:"circuitState"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	LastSuccessAt       *Timestamp   `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *Timestamp   `json:"lastFailureAt,omitempty"`
	Message             *string      `json:"message,omitempty"`
}
