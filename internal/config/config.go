// Package config loads and validates the Gateway/Tool Server
// configuration surface.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	IDP         IDPConfig          `yaml:"idp"`
	Revocation  RevocationConfig   `yaml:"revocation"`
	Pending     PendingConfig      `yaml:"pending"`
	Timeout     TimeoutConfig      `yaml:"timeout"`
	Rate        RateConfig         `yaml:"rate"`
	Pagination  PaginationConfig   `yaml:"pagination"`
	LLM         LLMConfig          `yaml:"llm"`
	ToolServers []ToolServerConfig `yaml:"toolServers"`
	CORS        CORSConfig         `yaml:"cors"`
	Log         LogConfig          `yaml:"log"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	Tracing     TracingConfig      `yaml:"tracing"`
	Dev         DevConfig          `yaml:"dev"`
}

// IDPConfig configures credential verification against the identity
// provider (idp.*).
type IDPConfig struct {
	Issuer     string        `yaml:"issuer"`
	Audience   string        `yaml:"audience"`
	JWKSURL    string        `yaml:"jwksUrl"`
	MinRefresh time.Duration `yaml:"minRefresh"`
}

// RevocationConfig configures the Revocation Cache Client.
// FailOpen is a pointer so an explicit "failOpen: false" in YAML can be
// told apart from the field being absent; applyDefaults only fills it
// in when nil.
type RevocationConfig struct {
	RedisAddr    string        `yaml:"redisAddr"`
	KeyPrefix    string        `yaml:"keyPrefix"`
	SyncInterval time.Duration `yaml:"syncInterval"`
	FailOpen     *bool         `yaml:"failOpen"`
}

// FailOpenOrDefault reports the effective fail-open behavior, treating
// an unset value as true.
func (r RevocationConfig) FailOpenOrDefault() bool {
	if r.FailOpen == nil {
		return true
	}
	return *r.FailOpen
}

// PendingConfig configures the Pending Action Store.
type PendingConfig struct {
	RedisAddr string        `yaml:"redisAddr"`
	TTL       time.Duration `yaml:"ttl"`
}

// TimeoutConfig holds the Gateway's tool-invocation timeouts.
type TimeoutConfig struct {
	ToolRead     time.Duration `yaml:"toolRead"`
	ToolWrite    time.Duration `yaml:"toolWrite"`
	RequestTotal time.Duration `yaml:"requestTotal"`
}

// RateConfig holds the two Gateway rate-limit buckets (requests per
// minute).
type RateConfig struct {
	General float64 `yaml:"general"`
	Query   float64 `yaml:"query"`
}

// PaginationConfig bounds keyset-pagination page sizes.
type PaginationConfig struct {
	MaxLimit int `yaml:"maxLimit"`
}

// LLMConfig selects and configures the upstream LLM provider.
type LLMConfig struct {
	Provider string `yaml:"provider"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
	BaseURL  string `yaml:"baseUrl"`
}

// ToolServerConfig names one domain Tool Server the Gateway discovers
// tools from and proxies invocations to.
type ToolServerConfig struct {
	Name    string `yaml:"name"`
	BaseURL string `yaml:"baseUrl"`
	Backend string `yaml:"backend"` // "postgres" | "mongo" | "sqlite"
	DSN     string `yaml:"dsn"`
}

// CORSConfig lists allowed client origins.
type CORSConfig struct {
	Origins []string `yaml:"origins"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig toggles the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
}

// DevConfig enables the HS256 dev-mode credential path in place of
// JWKS verification (local development and tests only).
type DevConfig struct {
	AuthEnabled bool   `yaml:"authEnabled"`
	Secret      string `yaml:"secret"`
}

// ReloadableFields is the subset of configuration the hot-reload
// watcher is permitted to apply without a restart: rate limits,
// timeouts, and pagination bounds. Anything identity-critical
// (idp.*, dev.*) requires a restart.
type ReloadableFields struct {
	Timeout    TimeoutConfig
	Rate       RateConfig
	Pagination PaginationConfig
}

// Reloadable extracts the fields eligible for hot reload.
func (c *Config) Reloadable() ReloadableFields {
	return ReloadableFields{Timeout: c.Timeout, Rate: c.Rate, Pagination: c.Pagination}
}

// Load reads, merges ($include), expands (env), defaults, and
// validates the configuration at path.
func Load(path string) (*Config, error) {
	raw, err := loadRaw(path)
	if err != nil {
		return nil, err
	}
	cfg, err := decodeRaw(raw)
	if err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Revocation.SyncInterval <= 0 {
		cfg.Revocation.SyncInterval = 2 * time.Second
	}
	if cfg.Revocation.KeyPrefix == "" {
		cfg.Revocation.KeyPrefix = "revoked:"
	}
	if cfg.Revocation.FailOpen == nil {
		failOpen := true
		cfg.Revocation.FailOpen = &failOpen
	}
	if cfg.Pending.TTL <= 0 {
		cfg.Pending.TTL = 5 * time.Minute
	}
	if cfg.Timeout.ToolRead <= 0 {
		cfg.Timeout.ToolRead = 5 * time.Second
	}
	if cfg.Timeout.ToolWrite <= 0 {
		cfg.Timeout.ToolWrite = 10 * time.Second
	}
	if cfg.Timeout.RequestTotal <= 0 {
		cfg.Timeout.RequestTotal = 90 * time.Second
	}
	if cfg.Rate.General <= 0 {
		cfg.Rate.General = 100
	}
	if cfg.Rate.Query <= 0 {
		cfg.Rate.Query = 10
	}
	if cfg.Pagination.MaxLimit <= 0 {
		cfg.Pagination.MaxLimit = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.IDP.MinRefresh <= 0 {
		cfg.IDP.MinRefresh = 15 * time.Minute
	}
}

// ValidationError reports config validation failures.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validate(cfg *Config) error {
	var issues []string

	if !cfg.Dev.AuthEnabled {
		if strings.TrimSpace(cfg.IDP.JWKSURL) == "" {
			issues = append(issues, "idp.jwksUrl is required unless dev.authEnabled is set")
		}
		if strings.TrimSpace(cfg.IDP.Issuer) == "" {
			issues = append(issues, "idp.issuer is required unless dev.authEnabled is set")
		}
	} else if strings.TrimSpace(cfg.Dev.Secret) == "" {
		issues = append(issues, "dev.secret is required when dev.authEnabled is set")
	}

	if len(cfg.ToolServers) == 0 {
		issues = append(issues, "toolServers must list at least one Tool Server")
	}
	seen := map[string]bool{}
	for i, ts := range cfg.ToolServers {
		if strings.TrimSpace(ts.Name) == "" {
			issues = append(issues, fmt.Sprintf("toolServers[%d].name is required", i))
			continue
		}
		if seen[ts.Name] {
			issues = append(issues, fmt.Sprintf("toolServers[%d].name %q is duplicated", i, ts.Name))
		}
		seen[ts.Name] = true
		if strings.TrimSpace(ts.BaseURL) == "" {
			issues = append(issues, fmt.Sprintf("toolServers[%d].baseUrl is required", i))
		}
	}

	if cfg.Pagination.MaxLimit <= 0 {
		issues = append(issues, "pagination.maxLimit must be > 0")
	}
	if cfg.Rate.General <= 0 || cfg.Rate.Query <= 0 {
		issues = append(issues, "rate.general and rate.query must be > 0")
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}
	return nil
}
