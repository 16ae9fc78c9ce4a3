// Package config loads catalog-browse settings from defaults, an optional
// YAML file, CATALOG_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/Sternrassler/catalog-client/pkg/projection"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CATALOG_API_BASE_URL.
const EnvPrefix = "CATALOG"

// Config holds all application configuration.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Browse  BrowseConfig  `mapstructure:"browse"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig describes the remote catalog.
type APIConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
	PageSize    int           `mapstructure:"page_size"`
	MaxAttempts int           `mapstructure:"max_attempts"` // detail requests only
	// BreakerFailures trips the circuit breaker; 0 disables it.
	BreakerFailures uint32 `mapstructure:"breaker_failures"`
}

// BrowseConfig drives one browsing session.
type BrowseConfig struct {
	Pages          int           `mapstructure:"pages"`
	Search         string        `mapstructure:"search"`
	SearchMode     string        `mapstructure:"search_mode"`
	SearchDebounce time.Duration `mapstructure:"search_debounce"`
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	Favorites      []string      `mapstructure:"favorites"`
}

// RedisConfig enables the HTTP response cache when Addr is set.
type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         "https://pokeapi.co/api/v2",
			UserAgent:       "catalog-browse/0.1.0",
			Timeout:         10 * time.Second,
			PageSize:        20,
			MaxAttempts:     3,
			BreakerFailures: 5,
		},
		Browse: BrowseConfig{
			Pages:          1,
			SearchMode:     string(projection.ModeSubstring),
			SearchDebounce: 300 * time.Millisecond,
			Favorites:      []string{},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: string(logging.FormatConsole),
		},
	}
}

// flagKeys maps command-line flags to configuration keys.
var flagKeys = map[string]string{
	"base-url":        "api.base_url",
	"user-agent":      "api.user_agent",
	"timeout":         "api.timeout",
	"page-size":       "api.page_size",
	"pages":           "browse.pages",
	"search":          "browse.search",
	"search-mode":     "browse.search_mode",
	"max-concurrency": "browse.max_concurrency",
	"favorite":        "browse.favorites",
	"redis-addr":      "redis.addr",
	"metrics-addr":    "metrics.addr",
	"log-level":       "logging.level",
	"log-format":      "logging.format",
}

// RegisterFlags defines the configuration flags on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := DefaultConfig()
	fs.String("config", "", "path to a YAML config file")
	fs.String("base-url", d.API.BaseURL, "catalog API base URL")
	fs.String("user-agent", d.API.UserAgent, "User-Agent header for catalog requests")
	fs.Duration("timeout", d.API.Timeout, "per-request timeout")
	fs.Int("page-size", d.API.PageSize, "records per page")
	fs.IntP("pages", "n", d.Browse.Pages, "pages to load")
	fs.StringP("search", "s", "", "search term applied to the loaded records")
	fs.String("search-mode", d.Browse.SearchMode, "search matching: substring or fuzzy")
	fs.Int("max-concurrency", 0, "maximum simultaneous detail lookups (0 = unbounded)")
	fs.StringArrayP("favorite", "f", nil, "mark a record as favorite (repeatable)")
	fs.String("redis-addr", "", "Redis address for the response cache")
	fs.String("metrics-addr", "", "address to serve Prometheus metrics on, e.g. :9090")
	fs.String("log-level", d.Logging.Level, "log level: debug, info, warn, error")
	fs.String("log-format", d.Logging.Format, "log format: console or json")
}

// Load resolves the configuration. fs may be nil; flags that were not set
// on the command line never override file or environment values.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigType("yaml")
	configFile := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			configFile = f.Value.String()
		}
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("catalog-browse")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "catalog-browse"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("api.base_url", d.API.BaseURL)
	v.SetDefault("api.user_agent", d.API.UserAgent)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("api.page_size", d.API.PageSize)
	v.SetDefault("api.max_attempts", d.API.MaxAttempts)
	v.SetDefault("api.breaker_failures", d.API.BreakerFailures)
	v.SetDefault("browse.pages", d.Browse.Pages)
	v.SetDefault("browse.search", d.Browse.Search)
	v.SetDefault("browse.search_mode", d.Browse.SearchMode)
	v.SetDefault("browse.search_debounce", d.Browse.SearchDebounce)
	v.SetDefault("browse.max_concurrency", d.Browse.MaxConcurrency)
	v.SetDefault("browse.favorites", d.Browse.Favorites)
	v.SetDefault("redis.addr", d.Redis.Addr)
	v.SetDefault("metrics.addr", d.Metrics.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	if c.API.PageSize <= 0 {
		return fmt.Errorf("api.page_size must be positive (got %d)", c.API.PageSize)
	}
	if c.Browse.Pages < 1 {
		return fmt.Errorf("browse.pages must be at least 1 (got %d)", c.Browse.Pages)
	}
	if c.Browse.MaxConcurrency < 0 {
		return fmt.Errorf("browse.max_concurrency must not be negative (got %d)", c.Browse.MaxConcurrency)
	}
	if _, err := projection.ParseMode(c.Browse.SearchMode); err != nil {
		return fmt.Errorf("browse.search_mode: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if _, err := logging.ParseFormat(c.Logging.Format); err != nil {
		return fmt.Errorf("logging.format: %w", err)
	}
	return nil
}
