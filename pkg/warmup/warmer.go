// Package warmup precomputes summaries for a list of topics in parallel so
// that the first requests for popular articles are answered from the cache.
package warmup

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Config holds warmer configuration
type Config struct {
	// MaxConcurrency is the maximum number of topics computed at once.
	// Each topic costs one Wikipedia fetch and one completion.
	MaxConcurrency int
	// Timeout per topic
	Timeout time.Duration
}

// DefaultConfig returns conservative defaults
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 2,
		Timeout:        3 * time.Minute,
	}
}

// Target computes and caches the summary for one topic.
type Target interface {
	Warm(ctx context.Context, query string) error
}

// Report is the outcome of a warmup run.
type Report struct {
	Warmed   []string
	Failed   map[string]error
	Duration time.Duration
}

// Warmer runs warmups against a Target.
type Warmer struct {
	target Target
	config Config
	logger zerolog.Logger
}

// New creates a new warmer
func New(target Target, config Config, logger zerolog.Logger) *Warmer {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Minute
	}

	return &Warmer{
		target: target,
		config: config,
		logger: logger,
	}
}

// Run warms every topic, skipping blanks and duplicates. A failing topic is
// recorded in the report and does not stop the others. Run returns early
// only when ctx ends.
func (w *Warmer) Run(ctx context.Context, topics []string) (Report, error) {
	start := time.Now()
	topics = dedupe(topics)

	report := Report{Failed: make(map[string]error)}
	if len(topics) == 0 {
		return report, nil
	}

	w.logger.Info().
		Int("topics", len(topics)).
		Int("concurrency", w.config.MaxConcurrency).
		Msg("Starting cache warmup")

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.config.MaxConcurrency)

	for _, topic := range topics {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			topicCtx, cancel := context.WithTimeout(gctx, w.config.Timeout)
			defer cancel()

			err := w.target.Warm(topicCtx, topic)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[topic] = err
				w.logger.Warn().Err(err).Str("query", topic).Msg("Warmup failed")
				return nil
			}
			report.Warmed = append(report.Warmed, topic)
			w.logger.Debug().Str("query", topic).Msg("Warmed")
			return nil
		})
	}

	_ = g.Wait()
	report.Duration = time.Since(start)

	if err := ctx.Err(); err != nil {
		return report, err
	}

	w.logger.Info().
		Int("warmed", len(report.Warmed)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Cache warmup complete")

	return report, nil
}

func dedupe(topics []string) []string {
	seen := make(map[string]struct{}, len(topics))
	out := make([]string, 0, len(topics))
	for _, topic := range topics {
		key := cache.NormalizeKey(topic)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(topic))
	}
	return out
}
