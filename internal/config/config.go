package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/submgr/billing/internal/domain/models"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Redis   RedisConfig
	Logger  LoggerConfig
	Cron    CronConfig
	Revolut RevolutConfig

	// Currencies the rate refresher keeps cached, beyond EUR
	Currencies []models.Currency
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int
	MetricsPort int
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	URL string
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level       string // debug, info, warn, error
	Development bool
}

// CronConfig holds job schedules and the trigger endpoint secret
type CronConfig struct {
	Secret string

	BillingSchedule      string
	ReminderSchedule     string
	RateSchedule         string
	HousekeepingSchedule string
}

// RevolutConfig holds the exchange rate provider configuration
type RevolutConfig struct {
	BaseURL string
	Timeout int // seconds
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnvAsInt("SERVER_PORT", 8080),
			MetricsPort: getEnvAsInt("METRICS_PORT", 9090),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379/0"),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		Cron: CronConfig{
			Secret:               getEnv("CRON_SECRET", ""),
			BillingSchedule:      getEnv("BILLING_SCHEDULE", "55 11 * * *"),
			ReminderSchedule:     getEnv("REMINDER_SCHEDULE", "0 12 * * *"),
			RateSchedule:         getEnv("RATE_SCHEDULE", "0 10,22 * * *"),
			HousekeepingSchedule: getEnv("HOUSEKEEPING_SCHEDULE", "0 0,12 * * *"),
		},
		Revolut: RevolutConfig{
			BaseURL: getEnv("REVOLUT_BASE_URL", ""),
			Timeout: getEnvAsInt("REVOLUT_TIMEOUT", 30),
		},
	}

	currencies, err := parseCurrencies(getEnv("CURRENCIES", "TRY"))
	if err != nil {
		return nil, err
	}
	cfg.Currencies = currencies

	// Validate required fields
	if cfg.Cron.Secret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required")
	}

	return cfg, nil
}

func parseCurrencies(raw string) ([]models.Currency, error) {
	var currencies []models.Currency
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		cur, err := models.ParseCurrency(part)
		if err != nil {
			return nil, fmt.Errorf("CURRENCIES: %w", err)
		}
		currencies = append(currencies, cur)
	}
	return currencies, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
