package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// API configuration
	API APIConfig `json:"api" mapstructure:"api"`

	// Authentication configuration
	Auth AuthConfig `json:"auth" mapstructure:"auth"`

	// Persisted client state
	Storage StorageConfig `json:"storage" mapstructure:"storage"`

	// Effect runner behavior
	Effects EffectsConfig `json:"effects" mapstructure:"effects"`

	// Logging
	Log LogConfig `json:"log" mapstructure:"log"`
}

// APIConfig for server communication.
type APIConfig struct {
	BaseURL   string        `json:"base_url" mapstructure:"base_url"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	APIKey    string        `json:"api_key,omitempty" mapstructure:"api_key"`
	UserAgent string        `json:"user_agent" mapstructure:"user_agent"`
	RateLimit float64       `json:"rate_limit" mapstructure:"rate_limit"` // Requests per second, 0 = unlimited

	// Retries for idempotent reads only. Writes are never retried.
	MaxRetries int `json:"max_retries" mapstructure:"max_retries"`
}

// AuthConfig for authentication settings.
type AuthConfig struct {
	// Treat a token returned by registration as a login.
	AutoLoginOnRegister bool `json:"auto_login_on_register" mapstructure:"auto_login_on_register"`

	// Key the credential token is persisted under
	TokenKey string `json:"token_key" mapstructure:"token_key"`
}

// StorageConfig selects where the credential token is persisted.
type StorageConfig struct {
	Backend string `json:"backend" mapstructure:"backend"` // file, sqlite, memory
	Path    string `json:"path" mapstructure:"path"`
}

// EffectsConfig controls handler concurrency per intent type.
type EffectsConfig struct {
	Policy   string            `json:"policy" mapstructure:"policy"`     // every, serial
	Policies map[string]string `json:"policies" mapstructure:"policies"` // Per-intent overrides
}

// LogConfig for logging behavior.
type LogConfig struct {
	Level      string `json:"level" mapstructure:"level"`             // debug, info, warn, error
	Format     string `json:"format" mapstructure:"format"`           // text, json
	File       string `json:"file" mapstructure:"file"`               // Log file path (empty = stderr)
	MaxSize    int    `json:"max_size" mapstructure:"max_size"`       // Max log file size in MB
	MaxBackups int    `json:"max_backups" mapstructure:"max_backups"` // Max number of old logs
	MaxAge     int    `json:"max_age" mapstructure:"max_age"`         // Max age in days
	Compress   bool   `json:"compress" mapstructure:"compress"`
}

// DefaultTokenKey is the storage key of the persisted credential token.
const DefaultTokenKey = "authToken"

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() *Config {
	dataDir := ".songdeck"

	return &Config{
		API: APIConfig{
			BaseURL:   "http://localhost:5000/api/v1",
			Timeout:   15 * time.Second,
			UserAgent: "songdeck/1.0",
		},
		Auth: AuthConfig{
			AutoLoginOnRegister: true,
			TokenKey:            DefaultTokenKey,
		},
		Storage: StorageConfig{
			Backend: "file",
			Path:    filepath.Join(dataDir, "storage.json"),
		},
		Effects: EffectsConfig{
			Policy: "every",
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "text",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     7,
		},
	}
}

var (
	validLevels   = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats  = map[string]bool{"text": true, "json": true}
	validBackends = map[string]bool{"file": true, "sqlite": true, "memory": true}
	validPolicies = map[string]bool{"every": true, "serial": true}
)

// Validate checks configuration validity.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be positive")
	}

	if c.API.RateLimit < 0 {
		return errors.New("api.rate_limit must not be negative")
	}

	if c.API.MaxRetries < 0 {
		return errors.New("api.max_retries must not be negative")
	}

	if c.Auth.TokenKey == "" {
		return errors.New("auth.token_key is required")
	}

	if !validBackends[c.Storage.Backend] {
		return fmt.Errorf("invalid storage backend: %s", c.Storage.Backend)
	}

	if c.Storage.Backend != "memory" && c.Storage.Path == "" {
		return errors.New("storage.path is required")
	}

	if !validPolicies[c.Effects.Policy] {
		return fmt.Errorf("invalid effects policy: %s", c.Effects.Policy)
	}

	for intent, policy := range c.Effects.Policies {
		if !validPolicies[policy] {
			return fmt.Errorf("invalid effects policy for %s: %s", intent, policy)
		}
	}

	if !validLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}

	if !validFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	return nil
}

// PolicyFor returns the concurrency policy configured for an intent type.
// Intent keys match case-insensitively since viper lower-cases map keys
// read from files and the environment.
func (c *EffectsConfig) PolicyFor(intent string) string {
	if p, ok := c.Policies[intent]; ok && p != "" {
		return p
	}
	for key, p := range c.Policies {
		if p != "" && strings.EqualFold(key, intent) {
			return p
		}
	}
	return c.Policy
}

// EnsureDirectories creates required directories.
func (c *Config) EnsureDirectories() error {
	var dirs []string

	if c.Storage.Backend != "memory" {
		dirs = append(dirs, filepath.Dir(c.Storage.Path))
	}

	if c.Log.File != "" {
		dirs = append(dirs, filepath.Dir(c.Log.File))
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	return nil
}
