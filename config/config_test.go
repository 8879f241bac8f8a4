package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layer-3/stockflow/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv(APIURLEnv, "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, service.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, "/auth/refresh-token", cfg.API.RefreshPath)
	assert.Equal(t, "/login", cfg.API.LoginPage)
	assert.Equal(t, service.AuthModeCookie, cfg.API.AuthMode)
	assert.False(t, cfg.API.ShareRefresh)
	assert.Zero(t, cfg.API.Timeout)
	assert.Equal(t, "stockflow", cfg.Session.Product)
	assert.Equal(t, StoreMemory, cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.DevServer.AccessTTL)
	assert.Equal(t, 120*time.Hour, cfg.DevServer.RefreshTTL)
}

func TestLoad_FileWithEnvSubstitution(t *testing.T) {
	t.Setenv(APIURLEnv, "")
	t.Setenv("TEST_REDIS_URL", "redis://localhost:6379/1")

	path := writeConfig(t, `
api:
  base_url: http://localhost:8000/api/v1
  auth_mode: bearer
  share_refresh: true
  timeout: 15s
session:
  product: base44
  store: redis
  redis_url: ${TEST_REDIS_URL}
# events:
#   redis_url: ${NOT_SET_ANYWHERE}
devserver:
  access_ttl: 1m
  refresh_ttl: 1h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Session.RedisURL)
	assert.Equal(t, "redis://localhost:6379/1", cfg.Events.RedisURL)
	assert.Equal(t, time.Minute, cfg.DevServer.AccessTTL)

	client := cfg.ClientConfig()
	assert.Equal(t, "base44_currentUser", client.CurrentUserKey())
	assert.Equal(t, service.AuthModeBearer, client.AuthMode)
	assert.True(t, client.ShareRefresh)
}

func TestLoad_MissingEnvVar(t *testing.T) {
	path := writeConfig(t, "session:\n  redis_url: ${STOCKFLOW_TEST_UNSET_VAR}\n")

	_, err := Load(path)
	assert.ErrorContains(t, err, "STOCKFLOW_TEST_UNSET_VAR")
}

func TestLoad_APIURLOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv(APIURLEnv, "http://127.0.0.1:9000/api/v1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000/api/v1", cfg.API.BaseURL)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		var cfg Config
		applyDefaults(&cfg)
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "relative base url", mutate: func(c *Config) { c.API.BaseURL = "/api/v1" }, wantErr: "api.base_url"},
		{name: "unknown auth mode", mutate: func(c *Config) { c.API.AuthMode = "basic" }, wantErr: "api.auth_mode"},
		{name: "login page", mutate: func(c *Config) { c.API.LoginPage = "login" }, wantErr: "api.login_page"},
		{name: "redis without url", mutate: func(c *Config) { c.Session.Store = StoreRedis }, wantErr: "session.redis_url"},
		{name: "unknown store", mutate: func(c *Config) { c.Session.Store = "disk" }, wantErr: "session.store"},
		{name: "events without redis", mutate: func(c *Config) { c.Events.Enabled = true }, wantErr: "events.redis_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestConfig_ValidateDevServer(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Error(t, cfg.ValidateDevServer())

	cfg.DevServer.SecretKey = "0123456789abcdef0123456789abcdef"
	assert.NoError(t, cfg.ValidateDevServer())

	cfg.DevServer.AccessTTL = cfg.DevServer.RefreshTTL
	assert.Error(t, cfg.ValidateDevServer())
}
