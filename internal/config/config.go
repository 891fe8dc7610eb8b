// Package config loads courtbook configuration from the environment and an
// optional YAML file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "COURTBOOK"

// Config holds the application configuration
type Config struct {
	// Base URL of the court-booking REST backend
	APIURL string `mapstructure:"api_url"`

	// Directory holding credentials.json (empty means ~/.courtbook)
	StateDir string `mapstructure:"state_dir"`

	// Enable debug logging
	Debug bool `mapstructure:"debug"`

	// Identity provider configuration
	OIDC OIDCConfig `mapstructure:"oidc"`

	// Role cache tuning
	Roles RolesConfig `mapstructure:"roles"`

	// Local dashboard configuration
	Dashboard DashboardConfig `mapstructure:"dashboard"`

	// OpenTelemetry export configuration
	Observability ObservabilityConfig `mapstructure:"otel"`
}

// OIDCConfig configures sign-in against the identity provider.
type OIDCConfig struct {
	Issuer       string `mapstructure:"issuer"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`

	// RefreshLeeway is how long before expiry the access token is refreshed.
	RefreshLeeway time.Duration `mapstructure:"refresh_leeway"`
}

// RolesConfig tunes the role resolver.
type RolesConfig struct {
	// CacheSize bounds the number of identifiers with a cached role.
	CacheSize int `mapstructure:"cache_size"`
	// TTL is how long a resolved role is trusted before it is refetched.
	TTL time.Duration `mapstructure:"ttl"`
	// FetchTimeout bounds a single role request to the backend.
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

// DashboardConfig configures `courtctl serve`.
type DashboardConfig struct {
	Addr string `mapstructure:"addr"`
	// AllowedOrigins are the CORS origins allowed to call the dashboard.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	// CSRFKey authenticates CSRF tokens. Must be 32 bytes when set; a random key
	// is generated at start otherwise.
	CSRFKey string `mapstructure:"csrf_key"`
	// SettleWait is how long a page waits for session and role state to settle
	// before rendering the placeholder.
	SettleWait time.Duration `mapstructure:"settle_wait"`
}

// ObservabilityConfig configures tracing export. An empty OTLPEndpoint disables it.
type ObservabilityConfig struct {
	OTLPEndpoint   string `mapstructure:"endpoint"`
	OTLPProtocol   string `mapstructure:"protocol"`
	OTLPInsecure   bool   `mapstructure:"insecure"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_url", "http://localhost:8080/api")
	v.SetDefault("state_dir", "")
	v.SetDefault("debug", false)

	v.SetDefault("oidc.issuer", "")
	v.SetDefault("oidc.client_id", "courtbook")
	v.SetDefault("oidc.client_secret", "")
	v.SetDefault("oidc.refresh_leeway", time.Minute)

	v.SetDefault("roles.cache_size", 256)
	v.SetDefault("roles.ttl", 5*time.Minute)
	v.SetDefault("roles.fetch_timeout", 10*time.Second)

	v.SetDefault("dashboard.addr", "127.0.0.1:8088")
	v.SetDefault("dashboard.allowed_origins", []string{})
	v.SetDefault("dashboard.csrf_key", "")
	v.SetDefault("dashboard.settle_wait", 2*time.Second)

	v.SetDefault("otel.endpoint", "")
	v.SetDefault("otel.protocol", "http/protobuf")
	v.SetDefault("otel.insecure", false)
	v.SetDefault("otel.service_name", "courtbook")
	v.SetDefault("otel.service_version", "dev")
	v.SetDefault("otel.environment", "development")
}

// Load reads configuration from the global viper instance. Environment variables
// take the COURTBOOK_ prefix with dots replaced by underscores, so
// COURTBOOK_OIDC_ISSUER sets oidc.issuer. A config file read into viper by the
// caller (see ReadFile) is consulted before defaults.
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{}
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	if cfg.APIURL == "" {
		return nil, fmt.Errorf("api_url is required")
	}
	if cfg.Roles.CacheSize <= 0 {
		return nil, fmt.Errorf("roles.cache_size must be positive, got %d", cfg.Roles.CacheSize)
	}
	if cfg.Roles.TTL <= 0 {
		return nil, fmt.Errorf("roles.ttl must be positive, got %s", cfg.Roles.TTL)
	}
	if cfg.Dashboard.CSRFKey != "" && len(cfg.Dashboard.CSRFKey) != 32 {
		return nil, fmt.Errorf("dashboard.csrf_key must be exactly 32 bytes, got %d", len(cfg.Dashboard.CSRFKey))
	}

	return cfg, nil
}

// ReadFile loads path into the global viper instance. An empty path searches
// the working directory and ~/.courtbook for config.yaml; a missing default
// file is not an error.
func ReadFile(path string) error {
	v := viper.GetViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.courtbook")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}
