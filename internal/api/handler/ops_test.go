package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/api/handler"
	"github.com/airwatchpro/airwatch/internal/api/models"
	"github.com/airwatchpro/airwatch/internal/featureflags"
	"github.com/airwatchpro/airwatch/internal/provider/resilience"
)

var opsNow = time.Date(2025, 10, 4, 12, 0, 0, 0, time.UTC)

type staticFlags map[string]*featureflags.Flag

func (f staticFlags) GetAllFlags(context.Context) map[string]*featureflags.Flag { return f }

func newRegistry(clock clockwork.Clock, names ...string) *resilience.Registry {
	registry := resilience.NewRegistryWithClock(clock)
	for _, name := range names {
		cfg := resilience.DefaultClientConfig(name)
		cfg.Registry = registry
		_ = resilience.NewClient(cfg)
	}
	return registry
}

func TestServiceHealth(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{Version: "1.2.3", Clock: clockwork.NewFakeClockAt(opsNow)})

	rec := httptest.NewRecorder()
	h.ServiceHealth(rec, httptest.NewRequest(http.MethodGet, "/api/health", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"airwatch-pro","timestamp":"2025-10-04T12:00:00Z","version":"1.2.3"}`, rec.Body.String())
}

func TestHealthCheck(t *testing.T) {
	h := handler.NewOpsHandler(handler.OpsConfig{Version: "1.2.3", BuildTime: "2025-10-01", Clock: clockwork.NewFakeClockAt(opsNow)})

	rec := httptest.NewRecorder()
	h.HealthCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	var health models.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "1.2.3", health.Version)
	assert.Equal(t, "2025-10-01", health.BuildTime)
}

func TestReadinessCheck(t *testing.T) {
	tests := []struct {
		name       string
		checkErr   error
		wantStatus int
		wantHealth models.HealthStatus
	}{
		{"all dependencies up", nil, http.StatusOK, models.HealthStatusOK},
		{"database down", errors.New("dial tcp: connection refused"), http.StatusServiceUnavailable, models.HealthStatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handler.NewOpsHandler(handler.OpsConfig{
				Checks: []handler.ReadinessCheck{
					{Name: "postgres", Check: func(context.Context) error { return tt.checkErr }},
				},
			})

			rec := httptest.NewRecorder()
			h.ReadinessCheck(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var health models.Health
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
			assert.Equal(t, tt.wantHealth, health.Status)
			require.Len(t, health.Subsystems, 1)
			assert.Equal(t, "postgres", health.Subsystems[0].Name)
		})
	}
}

func TestSystemStatus(t *testing.T) {
	clock := clockwork.NewFakeClockAt(opsNow)
	registry := newRegistry(clock, "openaq", "epa_airnow")
	registry.RecordSuccess("openaq")
	registry.RecordFailure("epa_airnow", errors.New("status 503"))

	t.Run("providers listed", func(t *testing.T) {
		h := handler.NewOpsHandler(handler.OpsConfig{Registry: registry, Clock: clock})

		rec := httptest.NewRecorder()
		h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

		require.Equal(t, http.StatusOK, rec.Code)
		var status models.SystemStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))

		assert.Equal(t, models.HealthStatusOK, status.Status)
		require.Len(t, status.Providers, 2)
		assert.Equal(t, "epa_airnow", status.Providers[0].Provider)
		assert.Equal(t, "closed", status.Providers[0].CircuitState)
		require.NotNil(t, status.Providers[0].Message)
		assert.Equal(t, "status 503", *status.Providers[0].Message)
		assert.Equal(t, 1, status.Providers[0].ConsecutiveFailures)
		assert.Zero(t, status.Providers[1].ConsecutiveFailures)
		require.NotNil(t, status.Providers[1].LastSuccessAt)
		assert.Equal(t, opsNow, status.Providers[1].LastSuccessAt.Time())
		assert.Empty(t, status.ActiveDegradationFlags)
	})

	t.Run("active flags degrade", func(t *testing.T) {
		flags := featureflags.DefaultFlags(opsNow)
		flags[featureflags.FlagSyntheticOnly].Value = true
		flags[featureflags.FlagDisableTEMPO].Value = true

		h := handler.NewOpsHandler(handler.OpsConfig{Registry: registry, Flags: staticFlags(flags), Clock: clock})

		rec := httptest.NewRecorder()
		h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

		var status models.SystemStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, models.HealthStatusDegraded, status.Status)
		assert.Equal(t, []string{featureflags.FlagDisableTEMPO, featureflags.FlagSyntheticOnly}, status.ActiveDegradationFlags)
	})

	t.Run("failing subsystem fails", func(t *testing.T) {
		h := handler.NewOpsHandler(handler.OpsConfig{
			Registry: registry,
			Clock:    clock,
			Checks: []handler.ReadinessCheck{
				{Name: "memcached", Check: func(context.Context) error { return errors.New("no servers") }},
			},
		})

		rec := httptest.NewRecorder()
		h.SystemStatus(rec, httptest.NewRequest(http.MethodGet, "/v1/ops/status", http.NoBody))

		var status models.SystemStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, models.HealthStatusFail, status.Status)
		require.Len(t, status.Subsystems, 1)
		require.NotNil(t, status.Subsystems[0].Detail)
		assert.Equal(t, "no servers", *status.Subsystems[0].Detail)
	})
}
