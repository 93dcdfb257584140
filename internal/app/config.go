package app

import (
	"errors"
	"fmt"
	"time"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	Files []string // task files or directories

	LogFormat string
	LogLevel  string

	Workers     int
	KeepGoing   bool
	RetryDelay  time.Duration
	Shell       string
	MetricsPort int
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Files) == 0 {
		return nil, errors.New("at least one task file is required")
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("invalid log format %q: must be 'text' or 'json'", cfg.LogFormat)
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel)
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry delay must not be negative, got %s", cfg.RetryDelay)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return nil, fmt.Errorf("metrics port out of range: %d", cfg.MetricsPort)
	}
	return &cfg, nil
}
