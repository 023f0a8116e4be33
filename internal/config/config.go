// Package config reads service configuration from environment variables,
// with an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	Port        string
	DatabaseURL string // empty → in-memory store
	RedisURL    string // empty → no cache layer

	MarketTimezone string
	MarketOpen     int // HHMM, inclusive
	MarketClose    int // HHMM, inclusive

	// SweepSchedule is a cron expression (with seconds) for the
	// pending-order sweep.
	SweepSchedule string

	LogLevel string // debug, info, warn, error
}

// Load reads configuration from the environment. A .env file is loaded
// first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),
		MarketTimezone: getEnv("MARKET_TIMEZONE", "Europe/Istanbul"),
		MarketOpen:     getEnvAsInt("MARKET_OPEN", 955),
		MarketClose:    getEnvAsInt("MARKET_CLOSE", 1815),
		SweepSchedule:  getEnv("SWEEP_SCHEDULE", "0 * * * * *"), // every minute
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	if cfg.MarketOpen >= cfg.MarketClose {
		return nil, fmt.Errorf("MARKET_OPEN %d must precede MARKET_CLOSE %d", cfg.MarketOpen, cfg.MarketClose)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
