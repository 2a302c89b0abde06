package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Loader handles configuration loading from multiple sources.
type Loader struct {
	configPath string
	envFile    string
	envPrefix  string
}

// NewLoader creates a config loader.
func NewLoader(configPath string) *Loader {
	return &Loader{
		configPath: configPath,
		envFile:    ".env",
		envPrefix:  "SONGDECK",
	}
}

// WithEnvFile overrides the dotenv file read before the environment.
func (l *Loader) WithEnvFile(path string) *Loader {
	l.envFile = path
	return l
}

// Load reads configuration from defaults, file, .env and environment.
func (l *Loader) Load() (*Config, error) {
	// .env never overrides variables already set in the process
	if l.envFile != "" {
		if _, err := os.Stat(l.envFile); err == nil {
			if err := godotenv.Load(l.envFile); err != nil {
				return nil, fmt.Errorf("load env file %s: %w", l.envFile, err)
			}
		}
	}

	v := viper.New()
	l.setDefaults(v)

	v.SetEnvPrefix(l.envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Names used by the web frontend's build environment
	_ = v.BindEnv("api.base_url", l.envPrefix+"_API_BASE_URL", "API_BASE_URL")
	_ = v.BindEnv("api.api_key", l.envPrefix+"_API_KEY", "API_KEY")

	if l.configPath != "" {
		v.SetConfigFile(l.configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	} else {
		v.SetConfigName("songdeck")
		for _, path := range l.defaultPaths() {
			v.AddConfigPath(path)
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("load config file %s: %w", v.ConfigFileUsed(), err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	cfg.Log.Level = strings.ToLower(cfg.Log.Level)
	cfg.Log.Format = strings.ToLower(cfg.Log.Format)
	cfg.Storage.Path = expandHome(cfg.Storage.Path)
	cfg.Log.File = expandHome(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func (l *Loader) setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.api_key", d.API.APIKey)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.rate_limit", d.API.RateLimit)
	v.SetDefault("api.max_retries", d.API.MaxRetries)

	v.SetDefault("auth.auto_login_on_register", d.Auth.AutoLoginOnRegister)
	v.SetDefault("auth.token_key", d.Auth.TokenKey)

	v.SetDefault("storage.backend", d.Storage.Backend)
	v.SetDefault("storage.path", d.Storage.Path)

	v.SetDefault("effects.policy", d.Effects.Policy)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.max_size", d.Log.MaxSize)
	v.SetDefault("log.max_backups", d.Log.MaxBackups)
	v.SetDefault("log.max_age", d.Log.MaxAge)
	v.SetDefault("log.compress", d.Log.Compress)
}

// defaultPaths returns default config file locations.
func (l *Loader) defaultPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		paths = append(paths,
			filepath.Join(homeDir, ".config", "songdeck"),
			filepath.Join(homeDir, ".songdeck"),
		)
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
