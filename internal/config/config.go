// Package config provides configuration management for the Gauge server,
// loaded from a TOML file with GAUGE_* environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config is the root server configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	SQLite     SQLiteConfig     `koanf:"sqlite"`
	Prometheus PrometheusConfig `koanf:"prometheus"`
	Postgres   PostgresConfig   `koanf:"postgres"`
	Alerts     AlertsConfig     `koanf:"alerts"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
	IdleTimeout  time.Duration `koanf:"idle_timeout"`
}

// SQLiteConfig holds the state database settings.
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// PrometheusConfig holds the pull-metrics backend settings.
type PrometheusConfig struct {
	URL          string        `koanf:"url"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// PostgresConfig holds the row-store backend settings. Leaving URL empty
// disables the backend.
type PostgresConfig struct {
	URL          string `koanf:"url"`
	Table        string `koanf:"table"`
	TimeColumn   string `koanf:"time_column"`
	ValueColumn  string `koanf:"value_column"`
	MetricColumn string `koanf:"metric_column"`
}

// AlertsConfig holds the alert scheduler settings.
type AlertsConfig struct {
	Enabled             bool          `koanf:"enabled"`
	TickInterval        time.Duration `koanf:"tick_interval"`
	NotificationTimeout time.Duration `koanf:"notification_timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Debug bool `koanf:"debug"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  2 * time.Minute,
		},
		SQLite: SQLiteConfig{
			Path: "gauge.db",
		},
		Prometheus: PrometheusConfig{
			URL:          "http://localhost:9090",
			QueryTimeout: 30 * time.Second,
		},
		Postgres: PostgresConfig{
			Table:        "metrics",
			TimeColumn:   "timestamp",
			ValueColumn:  "value",
			MetricColumn: "metric_name",
		},
		Alerts: AlertsConfig{
			Enabled:             true,
			TickInterval:        30 * time.Second,
			NotificationTimeout: 10 * time.Second,
		},
	}
}

// Load loads configuration from the given TOML file, if it exists, then
// applies GAUGE_* environment overrides (GAUGE_SERVER_ADDR -> server.addr).
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	cfg := Default()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("GAUGE_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "GAUGE_")), "_", ".", 1)
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}
