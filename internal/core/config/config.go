// Package config loads runtime configuration. Precedence, lowest to
// highest: built-in defaults, optional TOML file, environment
// variables (with .env loaded first when present).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port        string `toml:"port"`
	Env         string `toml:"env"`
	StoreDriver string `toml:"store_driver"` // "postgres" or "bolt"
	DatabaseURL string `toml:"database_url"`
	BoltPath    string `toml:"bolt_path"`
	WebhookURL  string `toml:"webhook_url"`

	// AllowNegativeStock preserves the historical contract: sales may
	// drive itemQuantity below zero. Set false to reject overselling.
	AllowNegativeStock bool `toml:"allow_negative_stock"`

	MetricsEnabled bool `toml:"metrics_enabled"`
}

func defaults() *Config {
	return &Config{
		Port:               "3030",
		Env:                "development",
		StoreDriver:        "postgres",
		BoltPath:           "billing.db",
		AllowNegativeStock: true,
		MetricsEnabled:     true,
	}
}

// Load reads the config file at path (skipped when empty or absent)
// and applies environment overrides on top.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	cfg := defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
			slog.Warn("Config file not found, using defaults", "path", path)
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.StoreDriver = getEnv("STORE_DRIVER", cfg.StoreDriver)
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.BoltPath = getEnv("BOLT_PATH", cfg.BoltPath)
	cfg.WebhookURL = getEnv("WEBHOOK_URL", cfg.WebhookURL)
	cfg.AllowNegativeStock = getEnvBool("ALLOW_NEGATIVE_STOCK", cfg.AllowNegativeStock)
	cfg.MetricsEnabled = getEnvBool("METRICS_ENABLED", cfg.MetricsEnabled)

	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "bolt" {
		return nil, fmt.Errorf("unknown store driver %q (want postgres or bolt)", cfg.StoreDriver)
	}
	return cfg, nil
}

// Helper to get env with a default fallback.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		slog.Warn("Ignoring unparseable boolean env value", "key", key, "value", value)
		return fallback
	}
	return b
}
