// Package config loads server configuration from the environment.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Web Server
	BindAddr string

	// Storage. DatabaseURL selects PostgreSQL when set; otherwise the
	// server falls back to SQLite at DBPath.
	DatabaseURL string
	DBPath      string

	// Session
	JWTSecret     string
	TokenDuration time.Duration

	// Logging
	LogLevel string
}

func Load() (*Config, error) {
	// Load environment variables from .env if present (non-fatal if missing)
	_ = godotenv.Load()

	cfg := &Config{
		BindAddr:    getEnvDefault("BIND_ADDR", "0.0.0.0:8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		DBPath:      getEnvDefault("DB_PATH", "data/splitkaro.db"),
		JWTSecret:   getEnvDefault("JWT_SECRET", "dev-only-change-me"),
		LogLevel:    getEnvDefault("LOG_LEVEL", "info"),
	}

	duration, err := time.ParseDuration(getEnvDefault("TOKEN_DURATION", "24h"))
	if err != nil {
		return nil, err
	}
	cfg.TokenDuration = duration

	return cfg, nil
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
