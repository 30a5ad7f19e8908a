// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"

	"github.com/tillkit/ledger-core/generic"
)

// Config holds application configuration loaded from the environment.
// Command-line flags in cmd/server override these values.
type Config struct {
	Port               int
	DBPath             string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	ValidationPolicy   generic.ValidationPolicy
	CatalogPath        string
	SessionIdleTimeout time.Duration
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}
	return fromKoanf(k)
}

func fromKoanf(k *koanf.Koanf) (*Config, error) {
	policy, err := generic.ParseValidationPolicy(k.String("VALIDATION_POLICY"))
	if err != nil {
		return nil, err
	}

	port := 8080
	if k.Exists("PORT") {
		port = k.Int("PORT")
		if port <= 0 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", k.String("PORT"))
		}
	}

	idle := 2 * time.Hour
	if k.Exists("SESSION_IDLE_TIMEOUT") {
		d, err := time.ParseDuration(strings.TrimSpace(k.String("SESSION_IDLE_TIMEOUT")))
		if err != nil || d < 0 {
			return nil, fmt.Errorf("invalid SESSION_IDLE_TIMEOUT %q", k.String("SESSION_IDLE_TIMEOUT"))
		}
		idle = d
	}

	origins := splitAndTrim(k.String("CORS_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	return &Config{
		Port:               port,
		DBPath:             valueOrDefault(k.String("DB_PATH"), "tillkit.db"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "console"),
		CORSAllowedOrigins: origins,
		ValidationPolicy:   policy,
		CatalogPath:        strings.TrimSpace(k.String("CATALOG_PATH")),
		SessionIdleTimeout: idle,
	}, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}
