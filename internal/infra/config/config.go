// Package config provides application-wide configuration loaded from env
// vars, optionally overlaid with a YAML file. All fields have safe
// defaults so the binary runs locally without any setup.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the dynmcp server.
type Config struct {
	Host          string        // DYNMCP_HOST — default: "127.0.0.1"
	Port          int           // DYNMCP_PORT — default: 8000
	DBPath        string        // DYNMCP_DB_PATH — default: ":memory:"
	InvokeTimeout time.Duration // DYNMCP_INVOKE_TIMEOUT — default: 30s; bounds each remote tool call
	LogLevel      string        // DYNMCP_LOG_LEVEL — default: "info"
}

const (
	envKeyHost          = "DYNMCP_HOST"
	envKeyPort          = "DYNMCP_PORT"
	envKeyDBPath        = "DYNMCP_DB_PATH"
	envKeyInvokeTimeout = "DYNMCP_INVOKE_TIMEOUT"
	envKeyLogLevel      = "DYNMCP_LOG_LEVEL"
)

// Load reads configuration from environment variables, applying defaults
// for missing values.
func Load() Config {
	return Config{
		Host:          envOr(envKeyHost, "127.0.0.1"),
		Port:          envIntOr(envKeyPort, 8000),
		DBPath:        envOr(envKeyDBPath, ":memory:"),
		InvokeTimeout: envDurationOr(envKeyInvokeTimeout, 30*time.Second),
		LogLevel:      envOr(envKeyLogLevel, "info"),
	}
}

// fileConfig mirrors Config for YAML decoding; absent keys leave the
// corresponding Config field untouched.
type fileConfig struct {
	Host          *string `yaml:"host"`
	Port          *int    `yaml:"port"`
	DBPath        *string `yaml:"db_path"`
	InvokeTimeout *string `yaml:"invoke_timeout"` // Go duration string, e.g. "30s"
	LogLevel      *string `yaml:"log_level"`
}

// LoadFile overlays the YAML file at path on top of cfg. Keys absent from
// the file keep their current values.
func LoadFile(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if fc.Host != nil {
		cfg.Host = *fc.Host
	}
	if fc.Port != nil {
		cfg.Port = *fc.Port
	}
	if fc.DBPath != nil {
		cfg.DBPath = *fc.DBPath
	}
	if fc.InvokeTimeout != nil {
		d, parseErr := time.ParseDuration(*fc.InvokeTimeout)
		if parseErr != nil {
			return cfg, fmt.Errorf("config: invoke_timeout: %w", parseErr)
		}
		cfg.InvokeTimeout = d
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
	}
	return cfg, nil
}

// envOr returns the value of the environment variable key, or fallback if not set.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr returns the integer value of key, or fallback when unset or invalid.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// envDurationOr returns the duration value of key, or fallback when unset or invalid.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
