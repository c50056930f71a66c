package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airwatchpro/airwatch/internal/config"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ADAPTER_TIMEOUT", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, "airwatch.readings", cfg.KafkaTopic)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.False(t, cfg.IsProduction())
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("ADAPTER_TIMEOUT", "3s")
	t.Setenv("MEMCACHED_SERVERS", "cache-1:11211, cache-2:11211,")
	t.Setenv("DATABASE_ENABLED", "true")
	t.Setenv("EPA_AIRNOW_API_KEY", "airnow-key")

	cfg, err := config.FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.AdapterTimeout)
	assert.Equal(t, []string{"cache-1:11211", "cache-2:11211"}, cfg.MemcachedServers)
	assert.True(t, cfg.DatabaseEnabled)
	assert.Equal(t, "airnow-key", cfg.AirNowAPIKey)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
		want string
	}{
		{"duration", "CACHE_TTL", "soon", "CACHE_TTL"},
		{"negative duration", "ADAPTER_TIMEOUT", "-1s", "ADAPTER_TIMEOUT"},
		{"boolean", "OTEL_ENABLED", "maybe", "OTEL_ENABLED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := config.FromEnv()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestFromEnv_ProductionRequiresSigningKey(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ADMIN_JWT_SIGNING_KEY", "")

	_, err := config.FromEnv()
	require.Error(t, err)

	t.Setenv("ADMIN_JWT_SIGNING_KEY", "secret")
	cfg, err := config.FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPENWEATHER_API_KEY=from-dotenv\n"), 0o600))
	t.Chdir(dir)
	t.Setenv("OPENWEATHER_API_KEY", "")
	os.Unsetenv("OPENWEATHER_API_KEY")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.OpenWeatherAPIKey)
}

func TestLoad_NoDotEnv(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := config.Load()
	assert.NoError(t, err)
}
