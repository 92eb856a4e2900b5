package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"abo/internal/logger"
	"github.com/rs/zerolog"
)

type Config struct {
	// Storage
	DatabasePath string

	// Billing
	MaturityDays int
	BatchWorkers int

	// Optional infrastructure; empty means in-process locks and no events
	RedisURL    string
	RabbitMQURL string

	// Google Sheets Configuration
	GoogleSheetURL string

	// Plugin manifest; empty enables every built-in plugin
	PluginManifest string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	maturityDays, err := getEnvInt("ABO_MATURITY_DAYS", 14)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("BATCH_WORKERS", 4)
	if err != nil {
		return nil, err
	}

	config := &Config{
		DatabasePath:   getEnv("ABO_DATABASE_PATH", "abo.db"),
		MaturityDays:   maturityDays,
		BatchWorkers:   workers,
		RedisURL:       getEnv("REDIS_URL", ""),
		RabbitMQURL:    getEnv("RABBITMQ_URL", ""),
		GoogleSheetURL: getEnv("GOOGLE_SHEET_URL", ""),
		PluginManifest: getEnv("ABO_PLUGIN_MANIFEST", ""),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:  getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:      getEnv("LOG_OUTPUT", "stderr"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("ABO_DATABASE_PATH must not be empty")
	}
	if c.MaturityDays < 0 {
		return fmt.Errorf("ABO_MATURITY_DAYS must not be negative, got %d", c.MaturityDays)
	}
	if c.BatchWorkers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be at least 1, got %d", c.BatchWorkers)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

// MaturityOffset returns the default time between issue and maturity date.
func (c *Config) MaturityOffset() time.Duration {
	return time.Duration(c.MaturityDays) * 24 * time.Hour
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}
