// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-keyring.
//
// go-keyring is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package config loads and validates the keyring daemon configuration from
// YAML with environment variable overrides.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeremyhahn/go-keyring/pkg/keyring"
)

// DefaultContext is the keyring served when the configuration names none.
const DefaultContext = keyring.DefaultContext

// Config represents the complete daemon configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
	TLS       TLSConfig       `yaml:"tls"`
	RateLimit RateLimitConfig `yaml:"ratelimit"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Health    HealthConfig    `yaml:"health"`
	Keyring   KeyringConfig   `yaml:"keyring"`
}

// ServerConfig contains HTTP listener settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// LoggingConfig controls logging behavior
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TLSConfig controls TLS settings for the HTTP listener
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`

	// TLS version and cipher suites
	MinVersion   string   `yaml:"min_version"`   // TLS1.2, TLS1.3
	MaxVersion   string   `yaml:"max_version"`   // TLS1.2, TLS1.3
	CipherSuites []string `yaml:"cipher_suites"` // Specific cipher suites to allow
}

// RateLimitConfig controls rate limiting
type RateLimitConfig struct {
	Enabled        bool `yaml:"enabled"`
	RequestsPerMin int  `yaml:"requests_per_min"`
	Burst          int  `yaml:"burst"`
}

// MetricsConfig controls the Prometheus metrics endpoint
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// HealthConfig controls health check endpoints
type HealthConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// KeyringConfig controls which keyrings the daemon serves and their timing
// windows. Zero timing values defer to the keyring package defaults, which
// carry the reference cookie protocol constants.
type KeyringConfig struct {
	// User owns the home directory holding the keyrings. Empty means the
	// daemon's own user.
	User string `yaml:"user"`

	// Dir overrides the keyring directory entirely. Normally unset, so
	// keyrings live in <home>/.dbus-keyrings.
	Dir string `yaml:"dir"`

	// Contexts lists the keyrings to serve.
	Contexts []string `yaml:"contexts"`

	NewKeyTimeoutSecs     int `yaml:"new_key_timeout_secs"`
	ExpireKeysTimeoutSecs int `yaml:"expire_keys_timeout_secs"`
	MaxTimeTravelSecs     int `yaml:"max_time_travel_secs"`
	LockRetries           int `yaml:"lock_retries"`
	LockRetryIntervalMS   int `yaml:"lock_retry_interval_ms"`
}

// Default returns the daemon configuration used when no config file is given.
// The listener binds loopback only; keyring metadata is a local concern and
// exposing it wider is an explicit operator decision.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8448,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			RequestsPerMin: 300,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Health: HealthConfig{
			Enabled: true,
			Path:    "/health",
		},
		Keyring: KeyringConfig{
			Contexts: []string{DefaultContext},
		},
	}
}

// Load reads configuration from a YAML file and applies environment variable overrides
func Load(path string) (*Config, error) {
	// Read the config file
	// #nosec G304 - Config file path is provided by admin/user
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML over the defaults so omitted sections keep working values
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config file at path, or the built-in defaults when
// path is empty. Environment overrides and validation apply either way.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}

	cfg := Default()
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration
func applyEnvOverrides(cfg *Config) {
	// Server settings
	if host := os.Getenv("KEYRINGD_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portEnv := os.Getenv("KEYRINGD_PORT"); portEnv != "" {
		port, err := strconv.Atoi(portEnv)
		if err != nil {
			log.Printf("Warning: invalid KEYRINGD_PORT value %q, using default %d: %v",
				portEnv, cfg.Server.Port, err)
		} else if port < 1 || port > 65535 {
			log.Printf("Warning: invalid KEYRINGD_PORT value %q (out of range 1-65535), using default %d",
				portEnv, cfg.Server.Port)
		} else {
			cfg.Server.Port = port
		}
	}

	// Logging
	if level := os.Getenv("KEYRINGD_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if format := os.Getenv("KEYRINGD_LOG_FORMAT"); format != "" {
		cfg.Logging.Format = format
	}

	// Keyring settings
	if dir := os.Getenv("KEYRINGD_KEYRING_DIR"); dir != "" {
		cfg.Keyring.Dir = dir
	}
	if user := os.Getenv("KEYRINGD_KEYRING_USER"); user != "" {
		cfg.Keyring.User = user
	}
	if contexts := os.Getenv("KEYRINGD_CONTEXTS"); contexts != "" {
		var parsed []string
		for _, c := range strings.Split(contexts, ",") {
			if c = strings.TrimSpace(c); c != "" {
				parsed = append(parsed, c)
			}
		}
		if len(parsed) > 0 {
			cfg.Keyring.Contexts = parsed
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate listener
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, error, or fatal)", c.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"json": true, "text": true,
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		return fmt.Errorf("invalid log format: %s (must be json or text)", c.Logging.Format)
	}

	// Validate TLS settings
	if c.TLS.Enabled {
		if c.TLS.CertFile == "" {
			return fmt.Errorf("TLS cert_file is required when TLS is enabled")
		}
		if c.TLS.KeyFile == "" {
			return fmt.Errorf("TLS key_file is required when TLS is enabled")
		}
	}

	// Validate rate limiting
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerMin < 1 {
		return fmt.Errorf("ratelimit requests_per_min must be positive when enabled")
	}

	// Validate endpoint paths
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics path must start with /: %s", c.Metrics.Path)
	}
	if c.Health.Enabled && !strings.HasPrefix(c.Health.Path, "/") {
		return fmt.Errorf("health path must start with /: %s", c.Health.Path)
	}

	// Validate keyring settings
	if len(c.Keyring.Contexts) == 0 {
		return fmt.Errorf("at least one keyring context must be configured")
	}
	seen := make(map[string]bool, len(c.Keyring.Contexts))
	for _, context := range c.Keyring.Contexts {
		if err := keyring.ValidateContext(context); err != nil {
			return fmt.Errorf("invalid keyring context %q: %w", context, err)
		}
		if seen[context] {
			return fmt.Errorf("duplicate keyring context: %s", context)
		}
		seen[context] = true
	}
	if c.Keyring.NewKeyTimeoutSecs < 0 {
		return fmt.Errorf("new_key_timeout_secs cannot be negative")
	}
	if c.Keyring.ExpireKeysTimeoutSecs < 0 {
		return fmt.Errorf("expire_keys_timeout_secs cannot be negative")
	}
	if c.Keyring.MaxTimeTravelSecs < 0 {
		return fmt.Errorf("max_time_travel_secs cannot be negative")
	}
	if c.Keyring.LockRetries < 0 {
		return fmt.Errorf("lock_retries cannot be negative")
	}
	if c.Keyring.LockRetryIntervalMS < 0 {
		return fmt.Errorf("lock_retry_interval_ms cannot be negative")
	}

	return nil
}

// Addr returns the listener address in host:port form.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// KeyringConfig builds the construction config for one served context.
// The caller supplies the logger so all keyrings share the daemon's.
func (c *Config) KeyringConfig(context string) *keyring.Config {
	return &keyring.Config{
		Context:           context,
		User:              c.Keyring.User,
		Dir:               c.Keyring.Dir,
		NewKeyTimeout:     time.Duration(c.Keyring.NewKeyTimeoutSecs) * time.Second,
		ExpireKeysTimeout: time.Duration(c.Keyring.ExpireKeysTimeoutSecs) * time.Second,
		MaxTimeTravel:     time.Duration(c.Keyring.MaxTimeTravelSecs) * time.Second,
		LockRetries:       c.Keyring.LockRetries,
		LockRetryInterval: time.Duration(c.Keyring.LockRetryIntervalMS) * time.Millisecond,
	}
}
