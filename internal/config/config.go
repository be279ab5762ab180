// Package config handles application configuration from environment variables
// and the YAML feed profiles.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	Env         string
	LogLevel    slog.Level
	FeedsFile   string
	Feed        string
	HTTPTimeout time.Duration
	Departures  int
	MetricsAddr string

	NATSURL     string
	NATSSubject string

	DatabaseURL string
	AlertsFile  string

	NotifyDedupe time.Duration

	// CheckInterval runs the alert checker in-process; zero leaves each
	// cycle to POST /alerts/check.
	CheckInterval time.Duration
}

// Load reads a .env file when present, then environment variables with
// sensible defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := &Config{
		Port:        getEnv("PORT", "3000"),
		Env:         getEnv("ENV", "development"),
		FeedsFile:   getEnv("FEEDS_FILE", "feeds.yml"),
		Feed:        getEnv("FEED", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		NATSURL:     getEnv("NATS_URL", ""),
		NATSSubject: getEnv("NATS_SUBJECT", "busalert.alerts"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AlertsFile:  getEnv("ALERTS_FILE", "alerts.yml"),
	}

	var err error
	if cfg.LogLevel, err = getLevelEnv("LOG_LEVEL", slog.LevelInfo); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = getSecondsEnv("HTTP_TIMEOUT_SECONDS", 10); err != nil {
		return nil, err
	}
	if cfg.NotifyDedupe, err = getSecondsEnv("NOTIFY_DEDUPE_SECONDS", 300); err != nil {
		return nil, err
	}
	if cfg.CheckInterval, err = getSecondsEnv("CHECK_INTERVAL_SECONDS", 0); err != nil {
		return nil, err
	}
	if cfg.Departures, err = getIntEnv("DEPARTURES", 3); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid PORT %q", c.Port)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("HTTP_TIMEOUT_SECONDS must be positive")
	}
	if c.Departures <= 0 {
		return errors.New("DEPARTURES must be positive")
	}
	if c.NotifyDedupe < 0 {
		return errors.New("NOTIFY_DEDUPE_SECONDS must not be negative")
	}
	if c.CheckInterval < 0 {
		return errors.New("CHECK_INTERVAL_SECONDS must not be negative")
	}
	if c.NATSURL != "" && strings.TrimSpace(c.NATSSubject) == "" {
		return errors.New("NATS_SUBJECT is required with NATS_URL")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return n, nil
}

func getSecondsEnv(key string, defaultSeconds int) (time.Duration, error) {
	seconds, err := getIntEnv(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds) * time.Second, nil
}

func getLevelEnv(key string, defaultValue slog.Level) (slog.Level, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	return level, nil
}
