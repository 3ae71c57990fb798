// Package config reads process configuration once at startup. Values come
// from the environment, optionally seeded from a .env file; an empty variable
// counts as unset.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
)

const (
	DefaultPort        = "3000"
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"
	DefaultAPIURL      = "http://localhost:3000"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// Error reports an invalid configuration value.
type Error struct {
	Key    string
	Value  string
	Reason string
}

func (e *Error) Error() string {
	return fmt.Sprintf("config: %s=%q: %s", e.Key, e.Value, e.Reason)
}

// Config is the API server configuration.
type Config struct {
	// Port is the TCP port the API listens on (PORT).
	Port string
	// Environment is reported by /api/hello and at startup (NODE_ENV).
	Environment string
	// LogLevel is a zap level name (LOG_LEVEL).
	LogLevel string
	// MetricsPort enables the Prometheus listener when set (METRICS_PORT).
	MetricsPort string
	// ProjectID enables Cloud Trace log correlation (GOOGLE_CLOUD_PROJECT).
	ProjectID string
}

// Addr is the listen address for the API.
func (c Config) Addr() string {
	return ":" + c.Port
}

// View is the frontend view configuration.
type View struct {
	// APIURL is the origin serving /api/hello (API_URL).
	APIURL string
	// LogLevel is a zap level name (LOG_LEVEL).
	LogLevel string
}

// Load reads the server configuration from the process environment after
// applying an optional .env file from the working directory.
func Load() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return FromLookup(os.LookupEnv)
}

// LoadView reads the view configuration the same way Load does.
func LoadView() (View, error) {
	if err := loadDotEnv(); err != nil {
		return View{}, err
	}
	return ViewFromLookup(os.LookupEnv)
}

// FromLookup builds and validates a Config from lookup.
func FromLookup(lookup LookupFunc) (Config, error) {
	cfg := Config{
		Port:        optional(lookup, "PORT", DefaultPort),
		Environment: optional(lookup, "NODE_ENV", DefaultEnvironment),
		LogLevel:    optional(lookup, "LOG_LEVEL", DefaultLogLevel),
		MetricsPort: optional(lookup, "METRICS_PORT", ""),
		ProjectID: firstNonEmpty(
			optional(lookup, "GOOGLE_CLOUD_PROJECT", ""),
			optional(lookup, "GCP_PROJECT", ""),
			optional(lookup, "PROJECT_ID", ""),
		),
	}
	if err := validatePort("PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if cfg.MetricsPort != "" {
		if err := validatePort("METRICS_PORT", cfg.MetricsPort); err != nil {
			return Config{}, err
		}
		if cfg.MetricsPort == cfg.Port {
			return Config{}, &Error{Key: "METRICS_PORT", Value: cfg.MetricsPort, Reason: "must differ from PORT"}
		}
	}
	if err := validateLogLevel(cfg.LogLevel); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ViewFromLookup builds and validates a View from lookup.
func ViewFromLookup(lookup LookupFunc) (View, error) {
	v := View{
		APIURL:   optional(lookup, "API_URL", DefaultAPIURL),
		LogLevel: optional(lookup, "LOG_LEVEL", DefaultLogLevel),
	}
	u, err := url.Parse(v.APIURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return View{}, &Error{Key: "API_URL", Value: v.APIURL, Reason: "must be an absolute http or https URL"}
	}
	if err := validateLogLevel(v.LogLevel); err != nil {
		return View{}, err
	}
	return v, nil
}

func loadDotEnv() error {
	// godotenv.Load never overrides variables that are already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config: load .env: %w", err)
	}
	return nil
}

func optional(lookup LookupFunc, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func validatePort(key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 || n > 65535 {
		return &Error{Key: key, Value: value, Reason: "must be an integer between 1 and 65535"}
	}
	return nil
}

func validateLogLevel(value string) error {
	if _, err := zapcore.ParseLevel(value); err != nil {
		return &Error{Key: "LOG_LEVEL", Value: value, Reason: "unknown log level"}
	}
	return nil
}
