// Package config manages environment variables.
//
// It reads variables from the process environment (and a `.env` file when
// present), loads them into structured Go types, and validates that
// required values are present so they can be reused across the
// application runtime.
//
// Responsibilities:
//   - Load environment variables (optionally from a `.env` file).
//   - Map env vars into a structured Go config (structs).
//   - Validate required values so the app fails fast on bad/missing config.
//   - Provide sane defaults for every block so a bare environment works.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	// Side-effect import: loads `.env` into the process env before we read it.
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

/*
	Env vars are read using the CONTRIBS_ prefix. The prefix is stripped,
	the rest is lowercased and a double underscore marks nesting:

		CONTRIBS_SERVER__PORT            -> server.port
		CONTRIBS_SCRAPER__MAX_CONCURRENCY -> scraper.max_concurrency
		CONTRIBS_OBSERVABILITY__LOGGING__LEVEL -> observability.logging.level
*/

// EnvPrefix is the prefix every configuration variable carries.
const EnvPrefix = "CONTRIBS_"

// ServiceName identifies this service in logs and APM.
const ServiceName = "contributions-api"

// Config is the root configuration object for the application.
//
// Observability is a pointer because it is optional. Env values are
// overlaid on DefaultObservabilityConfig.
type Config struct {
	Primary       Primary              `koanf:"primary" validate:"required"`
	Server        ServerConfig         `koanf:"server" validate:"required"`
	Scraper       ScraperConfig        `koanf:"scraper" validate:"required"`
	Redis         RedisConfig          `koanf:"redis" validate:"required"`
	Cache         CacheConfig          `koanf:"cache"`
	RateLimit     RateLimitConfig      `koanf:"rate_limit"`
	Observability *ObservabilityConfig `koanf:"observability"`
}

// Primary holds top-level information about the runtime environment.
type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

// ServerConfig groups settings for the HTTP server runtime.
// Timeouts are in seconds.
type ServerConfig struct {
	Port               string   `koanf:"port" validate:"required"`
	ReadTimeout        int      `koanf:"read_timeout" validate:"required,min=1"`
	WriteTimeout       int      `koanf:"write_timeout" validate:"required,min=1"`
	IdleTimeout        int      `koanf:"idle_timeout" validate:"required,min=1"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins" validate:"required"`
}

// ScraperConfig controls how profile pages are fetched.
type ScraperConfig struct {
	// BaseURL is the origin of the profile pages.
	BaseURL string `koanf:"base_url" validate:"required,url"`

	UserAgent string `koanf:"user_agent" validate:"required"`

	// Timeout bounds each outbound request.
	Timeout time.Duration `koanf:"timeout" validate:"min=1s"`

	// MaxConcurrency bounds the per-year fan-out of a single lookup.
	MaxConcurrency int `koanf:"max_concurrency" validate:"min=1,max=32"`

	// MaxBodyBytes caps how much of an upstream response is read.
	MaxBodyBytes int64 `koanf:"max_body_bytes" validate:"min=1024"`

	Proxy ProxyConfig `koanf:"proxy"`
}

// ProxyConfig holds outbound proxy settings for the scraper.
type ProxyConfig struct {
	HTTPProxy   string `koanf:"http_proxy"`
	HTTPSProxy  string `koanf:"https_proxy"`
	SOCKS5Proxy string `koanf:"socks5_proxy"`
	NoProxy     string `koanf:"no_proxy"`
}

// HasProxy reports whether any proxy is configured.
func (p ProxyConfig) HasProxy() bool {
	return p.HTTPProxy != "" || p.HTTPSProxy != "" || p.SOCKS5Proxy != ""
}

// RedisConfig contains Redis connection details.
// Address is typically "host:port".
type RedisConfig struct {
	Address  string `koanf:"address" validate:"required"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db" validate:"min=0"`
}

// CacheConfig controls snapshot caching and the Cache-Control header.
type CacheConfig struct {
	Enabled bool `koanf:"enabled"`

	// TTL is how long a snapshot is served as fresh. It is also the
	// s-maxage advertised to shared caches.
	TTL time.Duration `koanf:"ttl" validate:"min=1s"`

	// StaleTTL is how long past TTL a snapshot may still be served while
	// a background refresh runs.
	StaleTTL time.Duration `koanf:"stale_ttl" validate:"min=0"`

	KeyPrefix string `koanf:"key_prefix" validate:"required"`
}

// CacheControl renders the Cache-Control value for successful responses.
func (c CacheConfig) CacheControl() string {
	return fmt.Sprintf("s-maxage=%d, stale-while-revalidate", int(c.TTL.Seconds()))
}

// RateLimitConfig controls per-client rate limiting of the API routes.
type RateLimitConfig struct {
	Enabled bool `koanf:"enabled"`

	// Requests allowed per Period for a single client IP.
	Requests int64         `koanf:"requests" validate:"min=1"`
	Period   time.Duration `koanf:"period" validate:"min=1s"`

	// Store is "memory" or "redis".
	Store string `koanf:"store" validate:"oneof=memory redis"`

	TrustForwardHeader bool `koanf:"trust_forward_header"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Primary: Primary{Env: "local"},
		Server: ServerConfig{
			Port:               "8080",
			ReadTimeout:        30,
			WriteTimeout:       60,
			IdleTimeout:        120,
			CORSAllowedOrigins: []string{"*"},
		},
		Scraper: ScraperConfig{
			BaseURL:        "https://github.com",
			UserAgent:      ServiceName + "/1.0",
			Timeout:        15 * time.Second,
			MaxConcurrency: 4,
			MaxBodyBytes:   5 << 20,
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
		},
		Cache: CacheConfig{
			Enabled:   false,
			TTL:       time.Hour,
			StaleTTL:  24 * time.Hour,
			KeyPrefix: "contributions",
		},
		RateLimit: RateLimitConfig{
			Enabled:  false,
			Requests: 60,
			Period:   time.Minute,
			Store:    "memory",
		},
		Observability: DefaultObservabilityConfig(),
	}
}

// envKey maps CONTRIBS_SCRAPER__BASE_URL to scraper.base_url.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// LoadConfig loads configuration from environment variables on top of
// DefaultConfig and validates it.
func LoadConfig() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("could not load env variables: %w", err)
	}

	mainConfig := DefaultConfig()

	if err := k.Unmarshal("", mainConfig); err != nil {
		return nil, fmt.Errorf("could not unmarshal main config: %w", err)
	}

	if err := validator.New().Struct(mainConfig); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	if mainConfig.Observability == nil {
		mainConfig.Observability = DefaultObservabilityConfig()
	}

	// Service name and environment always follow the primary block.
	mainConfig.Observability.ServiceName = ServiceName
	mainConfig.Observability.Environment = mainConfig.Primary.Env

	if err := mainConfig.Observability.Validate(); err != nil {
		return nil, fmt.Errorf("invalid observability config: %w", err)
	}

	return mainConfig, nil
}
