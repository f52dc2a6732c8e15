package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL    string
	LogLevel       string
	Port           string
	PrometheusPort string

	// External calendar service
	CalendarBaseURL string
	CalendarToken   string

	// Synchronizer tuning
	ReminderLead    time.Duration
	SyncInterval    time.Duration
	SyncTimeout     time.Duration
	SyncMaxAttempts int

	// Optional Telegram notifications
	TelegramToken  string
	TelegramChatID int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		Port:            getEnvOrDefault("PORT", "8080"),
		PrometheusPort:  getEnvOrDefault("PROMETHEUS_PORT", "9090"),
		CalendarBaseURL: getEnvOrDefault("CALENDAR_API_URL", ""),
		CalendarToken:   os.Getenv("CALENDAR_API_TOKEN"),
		ReminderLead:    time.Duration(getEnvIntOrDefault("REMINDER_LEAD_MINUTES", 5)) * time.Minute,
		SyncInterval:    time.Duration(getEnvIntOrDefault("SYNC_INTERVAL_SECONDS", 30)) * time.Second,
		SyncTimeout:     time.Duration(getEnvIntOrDefault("SYNC_TIMEOUT_SECONDS", 10)) * time.Second,
		SyncMaxAttempts: getEnvIntOrDefault("SYNC_MAX_ATTEMPTS", 6),
		TelegramToken:   os.Getenv("TELEGRAM_TOKEN"),
	}

	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if raw := os.Getenv("TELEGRAM_CHAT_ID"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("TELEGRAM_CHAT_ID must be an integer: %w", err)
		}
		cfg.TelegramChatID = id
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return defaultValue
}
