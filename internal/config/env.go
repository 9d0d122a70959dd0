package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if it exists (silently ignore if not found)
	_ = godotenv.Load()
}

type Config struct {
	// Google Calendar
	GoogleCredentialsFile string
	GoogleTokenFile       string
	CalendarMaxResults    int
	CalendarTimeout       time.Duration

	// Model server
	ModelURL       string
	ModelName      string
	ModelAPIKey    string
	ModelTimeout   time.Duration
	SkipModelCheck bool

	// Optional with defaults
	HTTPPort int
	LogLevel string
	LogJSON  bool
}

func LoadFromEnv() *Config {
	cfg := &Config{
		GoogleCredentialsFile: getEnvOrDefault("GOOGLE_CREDENTIALS_FILE", "./credentials.json"),
		GoogleTokenFile:       getEnvOrDefault("GOOGLE_TOKEN_FILE", "./token.json"),
		CalendarMaxResults:    getEnvAsIntOrDefault("GOCHI_CALENDAR_MAX_RESULTS", 5),
		CalendarTimeout:       getEnvAsSecondsOrDefault("GOCHI_CALENDAR_TIMEOUT_SECONDS", 15*time.Second),

		ModelURL:       getEnvOrDefault("GOCHI_MODEL_URL", "http://127.0.0.1:8000/v1/"),
		ModelName:      getEnvOrDefault("GOCHI_MODEL_NAME", "microsoft/Phi-3-mini-4k-instruct"),
		ModelAPIKey:    os.Getenv("GOCHI_MODEL_API_KEY"),
		ModelTimeout:   getEnvAsSecondsOrDefault("GOCHI_MODEL_TIMEOUT_SECONDS", 60*time.Second),
		SkipModelCheck: getEnvAsBoolOrDefault("GOCHI_SKIP_MODEL_CHECK", false),

		HTTPPort: getEnvAsIntOrDefault("GOCHI_HTTP_PORT", 8765),
		LogLevel: getEnvOrDefault("GOCHI_LOG_LEVEL", "info"),
		LogJSON:  getEnvAsBoolOrDefault("GOCHI_LOG_JSON", false),
	}

	return cfg
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsSecondsOrDefault reads a whole number of seconds; non-positive values fall back
func getEnvAsSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
