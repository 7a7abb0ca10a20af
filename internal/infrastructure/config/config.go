package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	DBDriver             string
	DBDSN                string
	ServerPort           string
	ServerHost           string
	PriceRefreshInterval time.Duration
	TwelveDataAPIKey     string
	LogLevel             string
}

func Load() (*Config, error) {
	driver := getEnvOrDefault("DB_DRIVER", "postgres")
	dsn := os.Getenv("DB_DSN")
	if driver != "memory" && dsn == "" {
		return nil, fmt.Errorf("DB_DSN environment variable is required for driver %q", driver)
	}

	refreshInterval, err := time.ParseDuration(getEnvOrDefault("PRICE_REFRESH_INTERVAL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_REFRESH_INTERVAL: %w", err)
	}

	return &Config{
		DBDriver:             driver,
		DBDSN:                dsn,
		ServerPort:           getEnvOrDefault("SERVER_PORT", "8080"),
		ServerHost:           getEnvOrDefault("SERVER_HOST", "localhost"),
		PriceRefreshInterval: refreshInterval,
		TwelveDataAPIKey:     os.Getenv("TWELVE_DATA_API_KEY"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
