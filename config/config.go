// Package config provides configuration loading for the StockFlow client and
// its development API.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/layer-3/stockflow/adapters/events"
	"github.com/layer-3/stockflow/devapi"
	"github.com/layer-3/stockflow/service"
	"gopkg.in/yaml.v3"
)

// APIURLEnv overrides api.base_url when set.
const APIURLEnv = "STOCKFLOW_API_URL"

// Session store backends.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the main configuration structure.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Session       SessionConfig       `yaml:"session"`
	Events        EventsConfig        `yaml:"events"`
	DevServer     DevServerConfig     `yaml:"devserver"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// APIConfig holds the settings of the API client.
type APIConfig struct {
	BaseURL      string            `yaml:"base_url"`
	RefreshPath  string            `yaml:"refresh_path"`
	LoginPage    string            `yaml:"login_page"`
	AuthMode     string            `yaml:"auth_mode"`
	ShareRefresh bool              `yaml:"share_refresh"`
	Timeout      time.Duration     `yaml:"timeout"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// SessionConfig holds where the local session state lives.
type SessionConfig struct {
	// Product prefixes the local keys, e.g. "stockflow_currentUser".
	Product  string `yaml:"product"`
	Store    string `yaml:"store"`
	RedisURL string `yaml:"redis_url,omitempty"`
}

// EventsConfig holds the session event stream configuration.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	// RedisURL defaults to session.redis_url.
	RedisURL string `yaml:"redis_url,omitempty"`
}

// DevServerConfig holds the development API configuration.
type DevServerConfig struct {
	Listen        string            `yaml:"listen"`
	SecretKey     string            `yaml:"secret_key"`
	AccessTTL     time.Duration     `yaml:"access_ttl"`
	RefreshTTL    time.Duration     `yaml:"refresh_ttl"`
	SecureCookies bool              `yaml:"secure_cookies"`
	Users         []devapi.UserSeed `yaml:"users,omitempty"`
}

// ObservabilityConfig holds observability configuration.
type ObservabilityConfig struct {
	MetricsEnabled bool `yaml:"metrics_enabled"`
	// MetricsPort serves /metrics on its own listener; zero mounts it on the development API.
	MetricsPort int `yaml:"metrics_port"`
}

// envVarPattern matches ${VAR_NAME} patterns for environment variable substitution.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Load loads configuration from a YAML file with environment variable substitution.
// Without a path and without CONFIG_PATH the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}

		substituted, err := substituteEnvVars(string(data))
		if err != nil {
			return nil, fmt.Errorf("substituting env vars: %w", err)
		}

		if err := yaml.Unmarshal([]byte(substituted), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if apiURL := os.Getenv(APIURLEnv); apiURL != "" {
		cfg.API.BaseURL = apiURL
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// substituteEnvVars replaces ${VAR_NAME} patterns with environment variable values.
// Comment lines are skipped so optional sections can stay commented out.
func substituteEnvVars(content string) (string, error) {
	var missingVars []string
	lines := strings.Split(content, "\n")

	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}

		lines[i] = envVarPattern.ReplaceAllStringFunc(line, func(match string) string {
			varName := envVarPattern.FindStringSubmatch(match)[1]
			value := os.Getenv(varName)
			if value == "" {
				missingVars = append(missingVars, varName)
				return match
			}

			return value
		})
	}

	if len(missingVars) > 0 {
		return "", fmt.Errorf("missing environment variables: %v", missingVars)
	}

	return strings.Join(lines, "\n"), nil
}

// applyDefaults sets default values for configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = service.DefaultBaseURL
	}

	if cfg.API.RefreshPath == "" {
		cfg.API.RefreshPath = service.DefaultRefreshPath
	}

	if cfg.API.LoginPage == "" {
		cfg.API.LoginPage = service.DefaultLoginPage
	}

	if cfg.API.AuthMode == "" {
		cfg.API.AuthMode = service.AuthModeCookie
	}

	if cfg.Session.Product == "" {
		cfg.Session.Product = service.DefaultProduct
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = StoreMemory
	}

	if cfg.Events.Topic == "" {
		cfg.Events.Topic = events.DefaultTopic
	}

	if cfg.Events.RedisURL == "" {
		cfg.Events.RedisURL = cfg.Session.RedisURL
	}

	if cfg.DevServer.Listen == "" {
		cfg.DevServer.Listen = ":8000"
	}

	if cfg.DevServer.AccessTTL == 0 {
		cfg.DevServer.AccessTTL = 30 * time.Minute
	}

	if cfg.DevServer.RefreshTTL == 0 {
		cfg.DevServer.RefreshTTL = 5 * 24 * time.Hour
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	base, err := url.Parse(c.API.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("api.base_url %q is not an absolute URL", c.API.BaseURL)
	}

	if !strings.HasPrefix(c.API.LoginPage, "/") {
		return errors.New("api.login_page must start with /")
	}

	switch c.API.AuthMode {
	case service.AuthModeCookie, service.AuthModeBearer:
	default:
		return fmt.Errorf("api.auth_mode must be %q or %q", service.AuthModeCookie, service.AuthModeBearer)
	}

	if c.API.Timeout < 0 {
		return errors.New("api.timeout cannot be negative")
	}

	switch c.Session.Store {
	case StoreMemory:
	case StoreRedis:
		if c.Session.RedisURL == "" {
			return errors.New("session.redis_url is required for the redis store")
		}
	default:
		return fmt.Errorf("session.store must be %q or %q", StoreMemory, StoreRedis)
	}

	if c.Events.Enabled && c.Events.RedisURL == "" {
		return errors.New("events.redis_url or session.redis_url is required when events are enabled")
	}

	return nil
}

// ValidateDevServer checks the settings only the development API needs.
func (c *Config) ValidateDevServer() error {
	if len(c.DevServer.SecretKey) < 32 {
		return errors.New("devserver.secret_key must be at least 32 characters")
	}

	if c.DevServer.AccessTTL >= c.DevServer.RefreshTTL {
		return errors.New("devserver.access_ttl must be shorter than devserver.refresh_ttl")
	}

	return nil
}

// ClientConfig converts the api and session sections for service.NewClient.
func (c *Config) ClientConfig() service.ClientConfig {
	return service.ClientConfig{
		BaseURL:      c.API.BaseURL,
		RefreshPath:  c.API.RefreshPath,
		LoginPage:    c.API.LoginPage,
		Product:      c.Session.Product,
		AuthMode:     c.API.AuthMode,
		ShareRefresh: c.API.ShareRefresh,
		Timeout:      c.API.Timeout,
		Headers:      c.API.Headers,
	}
}
