package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/Sternrassler/wikisum/pkg/config"
	"github.com/Sternrassler/wikisum/pkg/llm"
	"github.com/Sternrassler/wikisum/pkg/logging"
	"github.com/Sternrassler/wikisum/pkg/orchestrator"
	"github.com/Sternrassler/wikisum/pkg/ratelimit"
	"github.com/Sternrassler/wikisum/pkg/resolver"
	"github.com/Sternrassler/wikisum/pkg/wiki"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// janitorInterval is how often expired cache entries and idle rate limit
// windows are reclaimed.
const janitorInterval = time.Minute

// app holds the explicitly constructed components of one process.
type app struct {
	cfg     *config.Config
	cache   *cache.Manager
	limiter orchestrator.RateLimiter
	sweeper interface{ Sweep() int }
	orch    *orchestrator.Orchestrator
	redis   *redis.Client
	logger  zerolog.Logger
}

// newApp wires configuration into a ready orchestrator.
func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	a.cache = cache.NewManager(cache.Config{
		Enabled: cfg.CacheEnabled,
		TTL:     cfg.CacheTTL(),
	}, logging.NewLogger("cache"))

	switch cfg.RateLimitBackend {
	case config.BackendRedis:
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		a.redis = redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", opts.Addr).Msg("Redis unreachable, rate limiter fails open until it recovers")
		} else {
			logger.Info().Str("addr", opts.Addr).Msg("Connected to Redis")
		}

		a.limiter = ratelimit.NewRedisLimiter(a.redis, ratelimit.RedisConfig{
			Enabled:  cfg.RateLimitEnabled,
			Limit:    cfg.RateLimitPerWindow,
			Window:   cfg.RateWindow(),
			FailOpen: true,
		}, logging.NewLogger("ratelimit"))
	default:
		limiter := ratelimit.NewLimiter(ratelimit.Config{
			Enabled: cfg.RateLimitEnabled,
			Limit:   cfg.RateLimitPerWindow,
			Window:  cfg.RateWindow(),
		}, logging.NewLogger("ratelimit"))
		a.limiter = limiter
		a.sweeper = limiter
	}

	wikiCfg := wiki.DefaultConfig(cfg.UserAgent)
	wikiCfg.BaseURL = cfg.WikiBaseURL
	wikiClient, err := wiki.New(wikiCfg)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create wiki client: %w", err)
	}

	if !cfg.APIKeyConfigured() {
		logger.Warn().Msg("OPENAI_API_KEY is not set, text generation will fail")
	}
	generator := llm.New(llm.Config{
		Model:       cfg.ModelName,
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: float32(cfg.Temperature),
		Timeout:     cfg.LLMTimeout(),
	}, logging.NewLogger("llm"))

	a.orch = orchestrator.New(
		orchestrator.Config{
			MaxSummaryUnits: cfg.MaxSummaryUnits,
			MaxInputUnits:   cfg.MaxInputUnits,
		},
		a.cache,
		a.limiter,
		resolver.New(wikiClient, logging.NewLogger("resolver")),
		generator,
		generator,
		logging.NewLogger("orchestrator"),
	)

	return a, nil
}

// runJanitor reclaims expired entries until ctx ends.
func (a *app) runJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.sweep()
		}
	}
}

func (a *app) sweep() {
	purged := a.cache.PurgeExpired()
	swept := 0
	if a.sweeper != nil {
		swept = a.sweeper.Sweep()
	}
	if purged > 0 || swept > 0 {
		a.logger.Debug().Int("cache_purged", purged).Int("identities_swept", swept).Msg("Janitor run")
	}
}

// Close releases external connections.
func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
}
