// Package config loads server configuration from defaults, an optional YAML
// file and the environment, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/neexbeast/tripfinder/internal/validation"
)

// PathEnvVar overrides the config file location.
const PathEnvVar = "CONFIG_PATH"

// DefaultPaths are searched in order when PathEnvVar is unset.
var DefaultPaths = []string{"config.yaml", "config.yml"}

// Config is the complete server configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Amadeus  AmadeusConfig  `koanf:"amadeus"`
	Geocode  GeocodeConfig  `koanf:"geocode"`
	Weather  WeatherConfig  `koanf:"weather"`
	Search   SearchConfig   `koanf:"search"`
	Breaker  BreakerConfig  `koanf:"breaker"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
}

type ServerConfig struct {
	Port            int           `koanf:"port" validate:"gte=1,lte=65535"`
	BearerToken     string        `koanf:"bearer_token"`
	RateLimit       int           `koanf:"rate_limit" validate:"gte=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

type AmadeusConfig struct {
	BaseURL      string        `koanf:"base_url" validate:"required,url"`
	ClientID     string        `koanf:"client_id"`
	ClientSecret string        `koanf:"client_secret"`
	Timeout      time.Duration `koanf:"timeout"`
	Currency     string        `koanf:"currency" validate:"len=3,alpha"`
}

type GeocodeConfig struct {
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries" validate:"gte=1"`
	RequestInterval time.Duration `koanf:"request_interval"`
}

type WeatherConfig struct {
	BaseURL          string        `koanf:"base_url" validate:"required,url"`
	Timeout          time.Duration `koanf:"timeout"`
	CacheTTL         time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries  int           `koanf:"cache_max_entries" validate:"gte=1"`
	SyntheticEnabled bool          `koanf:"synthetic_enabled"`
}

type SearchConfig struct {
	Timeout        time.Duration `koanf:"timeout"`
	MaxConcurrency int           `koanf:"max_concurrency" validate:"gte=0"`
	NonStop        bool          `koanf:"non_stop"`
}

type BreakerConfig struct {
	MaxRequests  uint32        `koanf:"max_requests"`
	Interval     time.Duration `koanf:"interval"`
	Timeout      time.Duration `koanf:"timeout"`
	MinRequests  uint32        `koanf:"min_requests"`
	FailureRatio float64       `koanf:"failure_ratio" validate:"gte=0,lte=1"`
}

// DatabaseConfig is optional; an empty URL runs without PostgreSQL.
type DatabaseConfig struct {
	URL           string `koanf:"url"`
	MaxConns      int32  `koanf:"max_conns" validate:"gte=0"`
	MigrationsDir string `koanf:"migrations_dir"`
}

// RedisConfig is optional; an empty URL keeps geocode results in memory only.
type RedisConfig struct {
	URL       string        `koanf:"url"`
	KeyPrefix string        `koanf:"key_prefix"`
	TTL       time.Duration `koanf:"ttl"`
}

// Enabled reports whether a database was configured.
func (c DatabaseConfig) Enabled() bool { return c.URL != "" }

// Enabled reports whether Redis was configured.
func (c RedisConfig) Enabled() bool { return c.URL != "" }

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			RateLimit:       60,
			ShutdownTimeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Amadeus: AmadeusConfig{
			BaseURL:  "https://test.api.amadeus.com",
			Timeout:  5 * time.Second,
			Currency: "EUR",
		},
		Geocode: GeocodeConfig{
			CacheTTL:        24 * time.Hour,
			CacheMaxEntries: 1000,
			RequestInterval: 100 * time.Millisecond,
		},
		Weather: WeatherConfig{
			BaseURL:          "https://api.open-meteo.com/v1/forecast",
			Timeout:          5 * time.Second,
			CacheTTL:         time.Hour,
			CacheMaxEntries:  5000,
			SyntheticEnabled: true,
		},
		Search: SearchConfig{
			Timeout:        20 * time.Second,
			MaxConcurrency: 8,
		},
		Breaker: BreakerConfig{
			MaxRequests:  3,
			Interval:     time.Minute,
			Timeout:      30 * time.Second,
			MinRequests:  5,
			FailureRatio: 0.6,
		},
		Database: DatabaseConfig{
			MaxConns:      10,
			MigrationsDir: "migrations",
		},
		Redis: RedisConfig{
			KeyPrefix: "geocode",
			TTL:       7 * 24 * time.Hour,
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(PathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var envMappings = map[string]string{
	"port":         "server.port",
	"bearer_token": "server.bearer_token",
	"rate_limit":   "server.rate_limit",

	"log_level":  "logging.level",
	"log_format": "logging.format",

	"amadeus_base_url":      "amadeus.base_url",
	"amadeus_client_id":     "amadeus.client_id",
	"amadeus_client_secret": "amadeus.client_secret",
	"amadeus_timeout":       "amadeus.timeout",
	"currency":              "amadeus.currency",

	"geocode_cache_ttl":        "geocode.cache_ttl",
	"geocode_cache_size":       "geocode.cache_max_entries",
	"geocode_request_interval": "geocode.request_interval",

	"weather_base_url":          "weather.base_url",
	"weather_timeout":           "weather.timeout",
	"weather_cache_ttl":         "weather.cache_ttl",
	"weather_cache_size":        "weather.cache_max_entries",
	"weather_synthetic_enabled": "weather.synthetic_enabled",

	"search_timeout":         "search.timeout",
	"search_max_concurrency": "search.max_concurrency",
	"search_non_stop":        "search.non_stop",

	"breaker_timeout":       "breaker.timeout",
	"breaker_failure_ratio": "breaker.failure_ratio",

	"database_url":       "database.url",
	"database_max_conns": "database.max_conns",
	"migrations_dir":     "database.migrations_dir",

	"redis_url": "redis.url",
	"redis_ttl": "redis.ttl",
}

// envTransform maps known variables onto config keys and drops the rest.
func envTransform(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	var errs []error
	if err := validation.Struct(c); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Server.BearerToken) == "" {
		errs = append(errs, errors.New("server.bearer_token is required (set BEARER_TOKEN)"))
	}
	if (c.Amadeus.ClientID == "") != (c.Amadeus.ClientSecret == "") {
		errs = append(errs, errors.New("amadeus.client_id and amadeus.client_secret must be set together"))
	}
	if c.Search.Timeout <= 0 {
		errs = append(errs, errors.New("search.timeout must be positive"))
	}
	return errors.Join(errs...)
}
