package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8084", cfg.Address())
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
	assert.Empty(t, cfg.Database.URL)
	assert.Equal(t, "degrade", cfg.Scoring.FallbackPolicy)
	assert.Equal(t, 5*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, 5, cfg.Scoring.BreakerFailures)
	assert.Equal(t, 8, cfg.Bulk.Concurrency)
	assert.Equal(t, int64(10<<20), cfg.Bulk.MaxUploadBytes)
	assert.Equal(t, 100, cfg.Bulk.SampleSize)
	assert.True(t, cfg.Security.EnableRateLimit)
	assert.Equal(t, "fraudguard", cfg.Tracing.ServiceName)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://fraud@localhost/fraud")
	t.Setenv("SCORING_SERVICE_URL", "http://scorer:8000")
	t.Setenv("SCORING_FALLBACK_POLICY", "strict")
	t.Setenv("SCORING_TIMEOUT", "750ms")
	t.Setenv("BULK_CONCURRENCY", "3")
	t.Setenv("SECURITY_RATE_LIMIT_ENABLED", "false")
	t.Setenv("SECURITY_ALLOWED_ORIGINS", "https://a.example,https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "postgres://fraud@localhost/fraud", cfg.Database.URL)
	assert.Equal(t, "http://scorer:8000", cfg.Scoring.ServiceURL)
	assert.Equal(t, "strict", cfg.Scoring.FallbackPolicy)
	assert.Equal(t, 750*time.Millisecond, cfg.Scoring.Timeout)
	assert.Equal(t, 3, cfg.Bulk.Concurrency)
	assert.False(t, cfg.Security.EnableRateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Security.AllowedOrigins)
}

func TestLoad_UnparseableValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SERVER_PORT", "eighty")
	t.Setenv("SCORING_TIMEOUT", "soon")
	t.Setenv("SECURITY_RATE_LIMIT_ENABLED", "perhaps")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8084, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Scoring.Timeout)
	assert.True(t, cfg.Security.EnableRateLimit)
}

func TestLoad_NormalisesFallbackPolicy(t *testing.T) {
	t.Setenv("SCORING_FALLBACK_POLICY", " Degrade ")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "degrade", cfg.Scoring.FallbackPolicy)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"port out of range", map[string]string{"SERVER_PORT": "70000"}, "server port"},
		{"log level", map[string]string{"LOG_LEVEL": "verbose"}, "invalid log level"},
		{"log format", map[string]string{"LOG_FORMAT": "xml"}, "invalid log format"},
		{"policy", map[string]string{"SCORING_FALLBACK_POLICY": "retry"}, "invalid fallback policy"},
		{"strict without url", map[string]string{"SCORING_FALLBACK_POLICY": "strict"}, "requires SCORING_SERVICE_URL"},
		{"zero concurrency", map[string]string{"BULK_CONCURRENCY": "0"}, "bulk concurrency"},
		{"negative sample", map[string]string{"BULK_SAMPLE_SIZE": "-1"}, "sample size"},
		{"zero breaker failures", map[string]string{"SCORING_BREAKER_FAILURES": "0"}, "breaker failures"},
		{"negative scoring timeout", map[string]string{"SCORING_TIMEOUT": "-1s"}, "scoring timeout"},
		{"zero upload limit", map[string]string{"BULK_MAX_UPLOAD_BYTES": "0"}, "max upload bytes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid configuration")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
