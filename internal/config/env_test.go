package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	for _, key := range []string{
		"GOOGLE_CREDENTIALS_FILE", "GOOGLE_TOKEN_FILE", "GOCHI_CALENDAR_MAX_RESULTS",
		"GOCHI_CALENDAR_TIMEOUT_SECONDS", "GOCHI_MODEL_URL", "GOCHI_MODEL_NAME",
		"GOCHI_MODEL_API_KEY", "GOCHI_MODEL_TIMEOUT_SECONDS", "GOCHI_SKIP_MODEL_CHECK",
		"GOCHI_HTTP_PORT", "GOCHI_LOG_LEVEL", "GOCHI_LOG_JSON",
	} {
		t.Setenv(key, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "./credentials.json", cfg.GoogleCredentialsFile)
	assert.Equal(t, "./token.json", cfg.GoogleTokenFile)
	assert.Equal(t, 5, cfg.CalendarMaxResults)
	assert.Equal(t, 15*time.Second, cfg.CalendarTimeout)
	assert.Equal(t, "http://127.0.0.1:8000/v1/", cfg.ModelURL)
	assert.Equal(t, "microsoft/Phi-3-mini-4k-instruct", cfg.ModelName)
	assert.Empty(t, cfg.ModelAPIKey)
	assert.Equal(t, 60*time.Second, cfg.ModelTimeout)
	assert.False(t, cfg.SkipModelCheck)
	assert.Equal(t, 8765, cfg.HTTPPort)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.LogJSON)
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("GOCHI_HTTP_PORT", "9000")
	t.Setenv("GOCHI_CALENDAR_MAX_RESULTS", "10")
	t.Setenv("GOCHI_MODEL_TIMEOUT_SECONDS", "5")
	t.Setenv("GOCHI_SKIP_MODEL_CHECK", "true")
	t.Setenv("GOCHI_LOG_JSON", "1")
	t.Setenv("GOCHI_MODEL_NAME", "phi3-local")

	cfg := LoadFromEnv()

	assert.Equal(t, 9000, cfg.HTTPPort)
	assert.Equal(t, 10, cfg.CalendarMaxResults)
	assert.Equal(t, 5*time.Second, cfg.ModelTimeout)
	assert.True(t, cfg.SkipModelCheck)
	assert.True(t, cfg.LogJSON)
	assert.Equal(t, "phi3-local", cfg.ModelName)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("GOCHI_HTTP_PORT", "not-a-port")
	t.Setenv("GOCHI_SKIP_MODEL_CHECK", "maybe")
	t.Setenv("GOCHI_CALENDAR_TIMEOUT_SECONDS", "-3")

	cfg := LoadFromEnv()

	assert.Equal(t, 8765, cfg.HTTPPort)
	assert.False(t, cfg.SkipModelCheck)
	assert.Equal(t, 15*time.Second, cfg.CalendarTimeout)
}
