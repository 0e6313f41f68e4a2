package config

import (
	"os"
	"strconv"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	APP_ENV   string
	HTTP_ADDR string

	DB_DRIVER   string
	DB_USERNAME string
	DB_PASSWORD string
	DB_HOST     string
	DB_PORT     string
	DB_NAME     string
	DISABLE_TLS string
	// Only used when DB_DRIVER is sqlite
	DB_PATH string

	MEDIA_WORKER_INTERVAL   time.Duration
	MEDIA_WORKER_BATCH_SIZE int

	// Redis backs the auth rate limiter when set, otherwise buckets live in memory
	REDIS_ADDR      string
	REDIS_PASSWORD  string
	REDIS_DB        int
	AUTH_RATE_LIMIT int64

	// Otel
	OTEL_EXPORTER_OTLP_ENDPOINT string

	ALLOWED_HEADERS string
}

func ReadConfig() *Config {
	return &Config{
		APP_ENV:   getEnvOrDefault("APP_ENV", "development"),
		HTTP_ADDR: getEnvOrDefault("HTTP_ADDR", "0.0.0.0:6060"),

		DB_DRIVER:   getEnvOrDefault("DB_DRIVER", DriverPostgres),
		DB_USERNAME: os.Getenv("DB_USERNAME"),
		DB_PASSWORD: os.Getenv("DB_PASSWORD"),
		DB_HOST:     os.Getenv("DB_HOST"),
		DB_PORT:     os.Getenv("DB_PORT"),
		DB_NAME:     os.Getenv("DB_NAME"),
		DISABLE_TLS: os.Getenv("DISABLE_TLS"),
		DB_PATH:     getEnvOrDefault("DB_PATH", "projectchron.db"),

		MEDIA_WORKER_INTERVAL:   time.Duration(getEnvIntOrDefault("MEDIA_WORKER_INTERVAL", 10000)) * time.Millisecond,
		MEDIA_WORKER_BATCH_SIZE: getEnvIntOrDefault("MEDIA_WORKER_BATCH_SIZE", 10),

		REDIS_ADDR:      os.Getenv("REDIS_ADDR"),
		REDIS_PASSWORD:  os.Getenv("REDIS_PASSWORD"),
		REDIS_DB:        getEnvIntOrDefault("REDIS_DB", 0),
		AUTH_RATE_LIMIT: int64(getEnvIntOrDefault("AUTH_RATE_LIMIT", 10)),

		OTEL_EXPORTER_OTLP_ENDPOINT: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		ALLOWED_HEADERS: getEnvOrDefault("ALLOWED_HEADERS", "Content-Type"),
	}
}

// IsProduction reports whether cookies should be marked Secure.
func (c *Config) IsProduction() bool {
	return c.APP_ENV == "production"
}

func GetEnvOrDefault(key, defaultValue string) string {
	return getEnvOrDefault(key, defaultValue)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
