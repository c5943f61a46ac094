package config

import (
	"os"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	FinnhubAPIKey string // Build-time default token; a runtime token set via the API overrides it
	Port          string
	DBPath        string
	LogLevel      string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Load reads configuration from environment variables, loading .env if present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		FinnhubAPIKey: getEnv("FINNHUB_API_KEY", ""),
		Port:          getEnv("PORT", "8090"),
		DBPath:        getEnv("DB_PATH", "./data/portfolio.db"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
	}
}
