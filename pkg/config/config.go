// Package config loads wikisum settings from defaults, an optional .env
// file, an optional YAML config file, environment variables and command-line
// flags, in increasing order of precedence.
//
// Every key is read from the environment under its upper-case name, e.g.
// cache_ttl_seconds from CACHE_TTL_SECONDS. List values accept a
// comma-separated string.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Rate limiter backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// DefaultUserAgent identifies wikisum to Wikimedia.
const DefaultUserAgent = "wikisum/1.0 (https://github.com/Sternrassler/wikisum)"

// Config holds every wikisum setting.
type Config struct {
	// Text generation
	ModelName         string  `mapstructure:"model_name"`
	OpenAIAPIKey      string  `mapstructure:"openai_api_key"`
	OpenAIBaseURL     string  `mapstructure:"openai_base_url"`
	MaxSummaryUnits   int     `mapstructure:"max_summary_units"`
	MaxInputUnits     int     `mapstructure:"max_input_units"`
	MaxOutputTokens   int     `mapstructure:"max_output_tokens"`
	Temperature       float64 `mapstructure:"temperature"`
	LLMTimeoutSeconds int     `mapstructure:"llm_timeout_seconds"`

	// Rate limiting
	RateLimitEnabled   bool   `mapstructure:"rate_limit_enabled"`
	RateLimitPerWindow int    `mapstructure:"rate_limit_per_window"`
	RateWindowSeconds  int    `mapstructure:"rate_window_seconds"`
	RateLimitBackend   string `mapstructure:"rate_limit_backend"`
	RedisURL           string `mapstructure:"redis_url"`

	// Result cache
	CacheEnabled    bool `mapstructure:"cache_enabled"`
	CacheTTLSeconds int  `mapstructure:"cache_ttl_seconds"`

	// HTTP
	Listen         string   `mapstructure:"listen"`
	CORSOrigins    []string `mapstructure:"cors_origins"`
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	// Wikipedia
	WikiBaseURL string `mapstructure:"wiki_base_url"`
	UserAgent   string `mapstructure:"user_agent"`

	// Logging
	LogLevel  string `mapstructure:"log_level"`
	LogPretty bool   `mapstructure:"log_pretty"`
	LogFile   string `mapstructure:"log_file"`

	// Startup warmup
	WarmTopics      []string `mapstructure:"warm_topics"`
	WarmConcurrency int      `mapstructure:"warm_concurrency"`
}

// defaults lists every key with its default value.
var defaults = map[string]any{
	"model_name":            "gpt-4o-mini",
	"openai_api_key":        "",
	"openai_base_url":       "",
	"max_summary_units":     300,
	"max_input_units":       6000,
	"max_output_tokens":     500,
	"temperature":           0.7,
	"llm_timeout_seconds":   120,
	"rate_limit_enabled":    true,
	"rate_limit_per_window": 10,
	"rate_window_seconds":   60,
	"rate_limit_backend":    BackendMemory,
	"redis_url":             "redis://localhost:6379/0",
	"cache_enabled":         true,
	"cache_ttl_seconds":     3600,
	"listen":                ":8000",
	"cors_origins":          []string{"*"},
	"trusted_proxies":       []string{},
	"wiki_base_url":         "https://en.wikipedia.org",
	"user_agent":            DefaultUserAgent,
	"log_level":             "info",
	"log_pretty":            false,
	"log_file":              "",
	"warm_topics":           []string{},
	"warm_concurrency":      2,
}

// LoadOptions selects the optional configuration sources.
type LoadOptions struct {
	// EnvFile is loaded into the process environment if it exists.
	// Variables already set are not overridden.
	EnvFile string

	// ConfigFile is a YAML file; empty means none
	ConfigFile string

	// Flags maps keys to command-line flags; a flag overrides every other
	// source when it was set explicitly
	Flags map[string]*pflag.Flag
}

// Default returns the configuration with every key at its default.
func Default() *Config {
	cfg, err := decode(newViper())
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads and validates the configuration.
func Load(opts LoadOptions) (*Config, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", opts.EnvFile, err)
		}
	}

	v := newViper()
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", opts.ConfigFile, err)
		}
	}

	for key, flag := range opts.Flags {
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", key, err)
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks every setting and reports all violations at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.ModelName != "", "model_name must not be empty")
	check(inRange(c.MaxSummaryUnits, 50, 1000), "max_summary_units must be between 50 and 1000, got %d", c.MaxSummaryUnits)
	check(inRange(c.MaxInputUnits, 1000, 16000), "max_input_units must be between 1000 and 16000, got %d", c.MaxInputUnits)
	check(inRange(c.MaxOutputTokens, 100, 2000), "max_output_tokens must be between 100 and 2000, got %d", c.MaxOutputTokens)
	check(c.Temperature >= 0 && c.Temperature <= 2, "temperature must be between 0 and 2, got %g", c.Temperature)
	check(c.LLMTimeoutSeconds > 0, "llm_timeout_seconds must be positive, got %d", c.LLMTimeoutSeconds)

	check(inRange(c.RateLimitPerWindow, 1, 100), "rate_limit_per_window must be between 1 and 100, got %d", c.RateLimitPerWindow)
	check(c.RateWindowSeconds >= 1, "rate_window_seconds must be at least 1, got %d", c.RateWindowSeconds)
	switch c.RateLimitBackend {
	case BackendMemory:
	case BackendRedis:
		_, err := redis.ParseURL(c.RedisURL)
		check(err == nil, "redis_url is invalid: %v", err)
	default:
		errs = append(errs, fmt.Errorf("rate_limit_backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.RateLimitBackend))
	}

	check(c.CacheTTLSeconds >= 60, "cache_ttl_seconds must be at least 60, got %d", c.CacheTTLSeconds)
	check(c.Listen != "", "listen must not be empty")
	check(c.UserAgent != "", "user_agent must not be empty")
	if u, err := url.Parse(c.WikiBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("wiki_base_url must be an absolute URL, got %q", c.WikiBaseURL))
	}
	for _, proxy := range c.TrustedProxies {
		_, _, cidrErr := net.ParseCIDR(proxy)
		check(cidrErr == nil || net.ParseIP(proxy) != nil, "trusted_proxies entry %q is not an IP or CIDR", proxy)
	}
	check(inRange(c.WarmConcurrency, 1, 16), "warm_concurrency must be between 1 and 16, got %d", c.WarmConcurrency)

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// CacheTTL returns the result cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// RateWindow returns the rate limiter window.
func (c *Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

// LLMTimeout returns the per-completion timeout.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutSeconds) * time.Second
}

// APIKeyConfigured reports whether an OpenAI API key is set.
func (c *Config) APIKeyConfigured() bool {
	return c.OpenAIAPIKey != ""
}

func inRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}
