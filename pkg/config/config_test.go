package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("SERVER_PORT", "")
	t.Setenv("ENVIRONMENT", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 60*time.Second, cfg.TeamCacheTTL)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORSAllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("TOKEN_TTL_MINUTES", "15")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.TokenTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("port", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "eighty")
		_, err := Load()
		assert.ErrorContains(t, err, "SERVER_PORT")
	})
	t.Run("driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load()
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
	t.Run("production secret", func(t *testing.T) {
		t.Setenv("ENVIRONMENT", "production")
		t.Setenv("JWT_SECRET", "")
		_, err := Load()
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}

func TestLoadTracing(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("TRACE_SAMPLE_RATIO", "0.1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "collector:4318", cfg.OTLPEndpoint)
	assert.Equal(t, 0.1, cfg.TraceSampleRatio)

	t.Setenv("TRACE_SAMPLE_RATIO", "most")
	_, err = Load()
	assert.ErrorContains(t, err, "TRACE_SAMPLE_RATIO")
}
