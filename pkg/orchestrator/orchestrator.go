// Package orchestrator composes the rate limiter, result cache, document
// resolver, budget truncator and text generation into the summarize and chat
// operations.
//
// Summarize runs VALIDATE, RATE_CHECK, then a cache lookup whose miss path
// resolves, truncates and summarizes exactly once per topic at a time. Chat
// runs VALIDATE, RATE_CHECK, then requires a live cached document for the
// topic and answers against a truncated copy of it.
package orchestrator

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/Sternrassler/wikisum/pkg/budget"
	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/Sternrassler/wikisum/pkg/ratelimit"
	"github.com/Sternrassler/wikisum/pkg/resolver"
	"github.com/rs/zerolog"
)

// Resolver locates the reference document for a query.
type Resolver interface {
	Resolve(ctx context.Context, query string) (*resolver.Document, error)
}

// Summarizer produces a summary of at most about maxOutputUnits units.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxOutputUnits int) (string, error)
}

// QAEngine answers a question using only contextText.
type QAEngine interface {
	Answer(ctx context.Context, contextText, question string) (string, error)
}

// RateLimiter admits or rejects requests per caller identity.
type RateLimiter interface {
	Allow(ctx context.Context, identity string) (ratelimit.Decision, error)
}

// Defaults applied by New when the configuration leaves them unset.
const (
	DefaultMaxSummaryUnits = 300
	DefaultMaxInputUnits   = 6000
)

// Config holds the orchestrator budgets.
type Config struct {
	// MaxSummaryUnits is the requested summary length
	MaxSummaryUnits int

	// MaxInputUnits bounds the document text handed to the summarizer; the
	// chat context budget is derived from it
	MaxInputUnits int
}

// SummaryResult is the outcome of a successful Summarize.
type SummaryResult struct {
	Query    string `json:"query"`
	Summary  string `json:"summary"`
	SourceID string `json:"source_id"`
	Method   string `json:"method"`

	// Cached is true when this call did not run the computation itself
	Cached bool `json:"cached"`
}

// ChatResult is the outcome of a successful Chat.
type ChatResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Query    string `json:"query"`
	SourceID string `json:"source_id"`
}

// Orchestrator serves summarize and chat requests.
type Orchestrator struct {
	cache      *cache.Manager
	limiter    RateLimiter
	resolver   Resolver
	summarizer Summarizer
	qa         QAEngine
	config     Config
	logger     zerolog.Logger
}

// New creates an orchestrator from explicitly constructed collaborators.
func New(
	cfg Config,
	cacheManager *cache.Manager,
	limiter RateLimiter,
	res Resolver,
	summarizer Summarizer,
	qa QAEngine,
	logger zerolog.Logger,
) *Orchestrator {
	if cfg.MaxSummaryUnits <= 0 {
		cfg.MaxSummaryUnits = DefaultMaxSummaryUnits
	}
	if cfg.MaxInputUnits <= 0 {
		cfg.MaxInputUnits = DefaultMaxInputUnits
	}
	return &Orchestrator{
		cache:      cacheManager,
		limiter:    limiter,
		resolver:   res,
		summarizer: summarizer,
		qa:         qa,
		config:     cfg,
		logger:     logger,
	}
}

// Summarize returns the summary for query, computing it on a cache miss.
func (o *Orchestrator) Summarize(ctx context.Context, identity, query string) (*SummaryResult, error) {
	const op = "summarize"
	start := time.Now()

	query, err := validateField("query", query, MaxQueryLength)
	if err != nil {
		return nil, o.fail(op, newError(KindInvalidInput, op, query, err))
	}
	if err := o.checkRate(ctx, op, identity, query); err != nil {
		return nil, o.fail(op, err)
	}

	var computed atomic.Bool
	entry, err := o.cache.GetOrCompute(ctx, query, func(ctx context.Context) (cache.Value, error) {
		computed.Store(true)
		return o.compute(ctx, op, query)
	})
	if err != nil {
		return nil, o.fail(op, classify(op, query, err))
	}

	RequestsTotal.WithLabelValues(op, "ok").Inc()
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	o.logger.Info().
		Str("identity", identity).
		Str("query", query).
		Str("source_id", entry.SourceID).
		Bool("cached", !computed.Load()).
		Dur("duration", time.Since(start)).
		Msg("Summary served")

	return &SummaryResult{
		Query:    query,
		Summary:  entry.Summary,
		SourceID: entry.SourceID,
		Method:   entry.Method,
		Cached:   !computed.Load(),
	}, nil
}

// Warm populates the cache for query without a rate check.
func (o *Orchestrator) Warm(ctx context.Context, query string) error {
	const op = "warm"

	query, err := validateField("query", query, MaxQueryLength)
	if err != nil {
		return newError(KindInvalidInput, op, query, err)
	}

	_, err = o.cache.GetOrCompute(ctx, query, func(ctx context.Context) (cache.Value, error) {
		return o.compute(ctx, op, query)
	})
	if err != nil {
		return classify(op, query, err)
	}
	return nil
}

// compute is the cache miss path: resolve, truncate, summarize.
func (o *Orchestrator) compute(ctx context.Context, op, query string) (cache.Value, error) {
	doc, err := o.resolver.Resolve(ctx, query)
	if err != nil {
		return cache.Value{}, classify(op, query, err)
	}

	input := budget.Truncate(doc.Text, o.config.MaxInputUnits)
	o.logger.Debug().
		Str("query", query).
		Str("method", string(doc.Method)).
		Int("document_units", budget.CountUnits(doc.Text)).
		Int("input_units", budget.CountUnits(input)).
		Msg("Document resolved")

	summary, err := o.summarizer.Summarize(ctx, input, o.config.MaxSummaryUnits)
	if err != nil {
		return cache.Value{}, newError(KindGeneration, op, query, err)
	}

	return cache.Value{
		DocumentText: doc.Text,
		SourceID:     doc.SourceID,
		Method:       string(doc.Method),
		Summary:      summary,
	}, nil
}

// Chat answers question about a topic that has a live cached summary.
func (o *Orchestrator) Chat(ctx context.Context, identity, query, question string) (*ChatResult, error) {
	const op = "chat"
	start := time.Now()

	query, err := validateField("query", query, MaxQueryLength)
	if err != nil {
		return nil, o.fail(op, newError(KindInvalidInput, op, query, err))
	}
	question, err = validateField("question", question, MaxQuestionLength)
	if err != nil {
		return nil, o.fail(op, newError(KindInvalidInput, op, query, err))
	}
	if err := o.checkRate(ctx, op, identity, query); err != nil {
		return nil, o.fail(op, err)
	}

	entry, ok := o.cache.Get(query)
	if !ok {
		return nil, o.fail(op, newError(KindNotFound, op, query, ErrNoSummary))
	}

	contextText := budget.Truncate(entry.DocumentText, budget.ChatBudget(o.config.MaxInputUnits))
	answer, err := o.qa.Answer(ctx, contextText, question)
	if err != nil {
		return nil, o.fail(op, newError(KindGeneration, op, query, err))
	}

	RequestsTotal.WithLabelValues(op, "ok").Inc()
	RequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	o.logger.Info().
		Str("identity", identity).
		Str("query", query).
		Int("context_units", budget.CountUnits(contextText)).
		Dur("duration", time.Since(start)).
		Msg("Question answered")

	return &ChatResult{
		Question: question,
		Answer:   answer,
		Query:    query,
		SourceID: entry.SourceID,
	}, nil
}

// CacheStats returns the result cache counters.
func (o *Orchestrator) CacheStats() cache.Stats {
	return o.cache.Stats()
}

// ClearCache empties the result cache.
func (o *Orchestrator) ClearCache() {
	o.cache.Clear()
}

// CacheEnabled reports whether results are cached.
func (o *Orchestrator) CacheEnabled() bool {
	return o.cache.Enabled()
}

// CacheTTL returns the result cache entry lifetime.
func (o *Orchestrator) CacheTTL() time.Duration {
	return o.cache.TTL()
}

// checkRate consults the limiter. The limiter is never held while the cache
// or any collaborator is called.
func (o *Orchestrator) checkRate(ctx context.Context, op, identity, query string) *Error {
	decision, err := o.limiter.Allow(ctx, identity)
	if err != nil {
		return newError(KindUpstream, op, query, err)
	}
	if !decision.Allowed {
		e := newError(KindRateLimited, op, query, ErrRateLimited)
		e.RetryAfter = decision.RetryAfter
		return e
	}
	return nil
}

// fail records a failed request and returns err.
func (o *Orchestrator) fail(op string, err *Error) error {
	RequestsTotal.WithLabelValues(op, string(err.Kind)).Inc()

	event := o.logger.Warn()
	if err.Kind == KindInvalidInput || err.Kind == KindRateLimited {
		event = o.logger.Debug()
	}
	event.Err(err.Err).
		Str("op", op).
		Str("query", err.Query).
		Str("kind", string(err.Kind)).
		Msg("Request failed")

	return err
}
