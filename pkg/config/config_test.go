package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "gpt-4o-mini", cfg.ModelName)
	assert.Equal(t, 300, cfg.MaxSummaryUnits)
	assert.Equal(t, 6000, cfg.MaxInputUnits)
	assert.Equal(t, 500, cfg.MaxOutputTokens)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.True(t, cfg.RateLimitEnabled)
	assert.Equal(t, 10, cfg.RateLimitPerWindow)
	assert.Equal(t, time.Minute, cfg.RateWindow())
	assert.Equal(t, BackendMemory, cfg.RateLimitBackend)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, time.Hour, cfg.CacheTTL())
	assert.Equal(t, 120*time.Second, cfg.LLMTimeout())
	assert.Equal(t, ":8000", cfg.Listen)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Equal(t, "https://en.wikipedia.org", cfg.WikiBaseURL)
	assert.Equal(t, DefaultUserAgent, cfg.UserAgent)
	assert.Empty(t, cfg.WarmTopics)
	assert.False(t, cfg.APIKeyConfigured())

	require.NoError(t, cfg.Validate())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "120")
	t.Setenv("RATE_LIMIT_PER_WINDOW", "25")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8,192.0.2.10")
	t.Setenv("WARM_TOPICS", "Go,Rust")
	t.Setenv("OPENAI_API_KEY", "sk-env")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.CacheTTL())
	assert.Equal(t, 25, cfg.RateLimitPerWindow)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.10"}, cfg.TrustedProxies)
	assert.Equal(t, []string{"Go", "Rust"}, cfg.WarmTopics)
	assert.True(t, cfg.APIKeyConfigured())
}

func TestLoad_EnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MODEL_NAME=gpt-test\nMAX_SUMMARY_UNITS=150\n"), 0o600))

	// Clean up what godotenv writes into the process environment.
	t.Setenv("MODEL_NAME", "")
	os.Unsetenv("MODEL_NAME")
	t.Setenv("MAX_SUMMARY_UNITS", "")
	os.Unsetenv("MAX_SUMMARY_UNITS")

	cfg, err := Load(LoadOptions{EnvFile: envFile})
	require.NoError(t, err)

	assert.Equal(t, "gpt-test", cfg.ModelName)
	assert.Equal(t, 150, cfg.MaxSummaryUnits)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	_, err := Load(LoadOptions{EnvFile: filepath.Join(t.TempDir(), "missing.env")})
	require.NoError(t, err)
}

func TestLoad_ConfigFileAndPrecedence(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "wikisum.yaml")
	content := `
listen: ":9000"
max_input_units: 8000
rate_limit_backend: redis
redis_url: redis://cache:6379/1
warm_topics:
  - Machine learning
  - Go (programming language)
`
	require.NoError(t, os.WriteFile(configFile, []byte(content), 0o600))
	t.Setenv("MAX_INPUT_UNITS", "9000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":8000", "")
	require.NoError(t, flags.Parse([]string{"--listen", ":9100"}))

	cfg, err := Load(LoadOptions{
		ConfigFile: configFile,
		Flags:      map[string]*pflag.Flag{"listen": flags.Lookup("listen")},
	})
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Listen, "flag beats file")
	assert.Equal(t, 9000, cfg.MaxInputUnits, "env beats file")
	assert.Equal(t, BackendRedis, cfg.RateLimitBackend)
	assert.Equal(t, "redis://cache:6379/1", cfg.RedisURL)
	assert.Equal(t, []string{"Machine learning", "Go (programming language)"}, cfg.WarmTopics)
}

func TestLoad_UnsetFlagDoesNotOverride(t *testing.T) {
	t.Setenv("LISTEN", ":7000")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", ":8000", "")
	require.NoError(t, flags.Parse(nil))

	cfg, err := Load(LoadOptions{Flags: map[string]*pflag.Flag{"listen": flags.Lookup("listen")}})
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Listen)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config file")
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	t.Setenv("CACHE_TTL_SECONDS", "30")

	_, err := Load(LoadOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache_ttl_seconds must be at least 60")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults valid", func(c *Config) {}, ""},
		{"summary too short", func(c *Config) { c.MaxSummaryUnits = 49 }, "max_summary_units"},
		{"summary too long", func(c *Config) { c.MaxSummaryUnits = 1001 }, "max_summary_units"},
		{"input too small", func(c *Config) { c.MaxInputUnits = 999 }, "max_input_units"},
		{"input too large", func(c *Config) { c.MaxInputUnits = 16001 }, "max_input_units"},
		{"output tokens", func(c *Config) { c.MaxOutputTokens = 99 }, "max_output_tokens"},
		{"temperature", func(c *Config) { c.Temperature = 2.5 }, "temperature"},
		{"rate limit zero", func(c *Config) { c.RateLimitPerWindow = 0 }, "rate_limit_per_window"},
		{"rate limit too high", func(c *Config) { c.RateLimitPerWindow = 101 }, "rate_limit_per_window"},
		{"window", func(c *Config) { c.RateWindowSeconds = 0 }, "rate_window_seconds"},
		{"unknown backend", func(c *Config) { c.RateLimitBackend = "memcached" }, "rate_limit_backend"},
		{"bad redis url", func(c *Config) {
			c.RateLimitBackend = BackendRedis
			c.RedisURL = "http://nope"
		}, "redis_url"},
		{"redis url ignored for memory backend", func(c *Config) { c.RedisURL = "http://nope" }, ""},
		{"cache ttl", func(c *Config) { c.CacheTTLSeconds = 59 }, "cache_ttl_seconds"},
		{"empty model", func(c *Config) { c.ModelName = "" }, "model_name"},
		{"empty user agent", func(c *Config) { c.UserAgent = "" }, "user_agent"},
		{"relative wiki url", func(c *Config) { c.WikiBaseURL = "en.wikipedia.org" }, "wiki_base_url"},
		{"warm concurrency", func(c *Config) { c.WarmConcurrency = 0 }, "warm_concurrency"},
		{"trusted proxies", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/8", "2001:db8::1"} }, ""},
		{"bad trusted proxy", func(c *Config) { c.TrustedProxies = []string{"10.0.0.0/33"} }, "trusted_proxies"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ReportsAllViolations(t *testing.T) {
	cfg := Default()
	cfg.MaxSummaryUnits = 1
	cfg.CacheTTLSeconds = 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "max_summary_units") && strings.Contains(err.Error(), "cache_ttl_seconds"))
}
