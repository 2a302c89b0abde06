package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheMichaelB/songdeck/internal/config"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	assert.NotEmpty(t, cfg.API.BaseURL)
	assert.Positive(t, cfg.API.Timeout)
	assert.Equal(t, config.DefaultTokenKey, cfg.Auth.TokenKey)
	assert.True(t, cfg.Auth.AutoLoginOnRegister)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, "every", cfg.Effects.Policy)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*config.Config)
		wantErr string
	}{
		{
			name:    "valid config",
			modify:  func(c *config.Config) {},
			wantErr: "",
		},
		{
			name: "missing base URL",
			modify: func(c *config.Config) {
				c.API.BaseURL = ""
			},
			wantErr: "api.base_url is required",
		},
		{
			name: "negative timeout",
			modify: func(c *config.Config) {
				c.API.Timeout = -1
			},
			wantErr: "api.timeout must be positive",
		},
		{
			name: "negative rate limit",
			modify: func(c *config.Config) {
				c.API.RateLimit = -2
			},
			wantErr: "api.rate_limit must not be negative",
		},
		{
			name: "negative retries",
			modify: func(c *config.Config) {
				c.API.MaxRetries = -1
			},
			wantErr: "api.max_retries must not be negative",
		},
		{
			name: "unknown storage backend",
			modify: func(c *config.Config) {
				c.Storage.Backend = "cookie"
			},
			wantErr: "invalid storage backend",
		},
		{
			name: "memory backend needs no path",
			modify: func(c *config.Config) {
				c.Storage.Backend = "memory"
				c.Storage.Path = ""
			},
			wantErr: "",
		},
		{
			name: "invalid per-intent policy",
			modify: func(c *config.Config) {
				c.Effects.Policies = map[string]string{"songs/fetchRequest": "latest"}
			},
			wantErr: "invalid effects policy for songs/fetchRequest",
		},
		{
			name: "invalid log level",
			modify: func(c *config.Config) {
				c.Log.Level = "invalid"
			},
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr != "" {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPolicyFor(t *testing.T) {
	cfg := config.EffectsConfig{
		Policy:   "every",
		Policies: map[string]string{"songs/addRequest": "serial"},
	}

	assert.Equal(t, "serial", cfg.PolicyFor("songs/addRequest"))
	assert.Equal(t, "every", cfg.PolicyFor("songs/fetchRequest"))
}

func TestLoaderFilePolicies(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "policies.json")

	configJSON := `{
		"effects": {
			"policy": "every",
			"policies": {"songs/addRequest": "serial"}
		}
	}`
	require.NoError(t, os.WriteFile(configPath, []byte(configJSON), 0644))

	cfg, err := config.NewLoader(configPath).WithEnvFile("").Load()

	require.NoError(t, err)
	assert.Equal(t, "serial", cfg.Effects.PolicyFor("songs/addRequest"))
	assert.Equal(t, "every", cfg.Effects.PolicyFor("songs/fetchRequest"))
}

func TestLoaderEnv(t *testing.T) {
	t.Setenv("SONGDECK_API_BASE_URL", "https://test.example.com")
	t.Setenv("SONGDECK_API_TIMEOUT", "45s")
	t.Setenv("SONGDECK_LOG_LEVEL", "DEBUG")
	t.Setenv("SONGDECK_STORAGE_BACKEND", "memory")
	t.Setenv("SONGDECK_AUTH_AUTO_LOGIN_ON_REGISTER", "false")

	cfg, err := config.NewLoader("").WithEnvFile("").Load()

	require.NoError(t, err)
	assert.Equal(t, "https://test.example.com", cfg.API.BaseURL)
	assert.Equal(t, 45*time.Second, cfg.API.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.False(t, cfg.Auth.AutoLoginOnRegister)
}

func TestLoaderDotEnv(t *testing.T) {
	tmpDir := t.TempDir()
	envPath := filepath.Join(tmpDir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("API_KEY=from-dotenv\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("API_KEY") })

	cfg, err := config.NewLoader("").WithEnvFile(envPath).Load()

	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.API.APIKey)
}

func TestLoaderFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test.json")

	configJSON := `{
		"api": {
			"base_url": "https://file.example.com",
			"timeout": "5s"
		},
		"effects": {
			"policy": "serial"
		},
		"log": {
			"level": "warn",
			"format": "json"
		}
	}`

	err := os.WriteFile(configPath, []byte(configJSON), 0644)
	require.NoError(t, err)

	cfg, err := config.NewLoader(configPath).WithEnvFile("").Load()

	require.NoError(t, err)
	assert.Equal(t, "https://file.example.com", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "serial", cfg.Effects.Policy)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoaderInvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "broken.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"api": `), 0644))

	_, err := config.NewLoader(configPath).WithEnvFile("").Load()
	assert.Error(t, err)
}

func TestConfigEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = filepath.Join(tmpDir, "data", "storage.json")
	cfg.Log.File = filepath.Join(tmpDir, "logs", "app.log")

	err := cfg.EnsureDirectories()
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(tmpDir, "data"))
	assert.DirExists(t, filepath.Dir(cfg.Log.File))
}
