// Package llm produces summaries and article-grounded answers through an
// OpenAI-compatible chat completion API.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// Defaults applied by New when the configuration leaves them unset.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 500
	DefaultTimeout   = 120 * time.Second

	// answerTemperature keeps answers close to the article text.
	answerTemperature = 0.3
)

const summarySystemPrompt = "You are a helpful assistant that creates clear, concise summaries of Wikipedia articles."

const answerSystemPrompt = `You are a helpful assistant that answers questions based ONLY on the provided Wikipedia article content.
If the question cannot be answered from the article, politely state that the information is not available in this article.
Do not use any external knowledge - only use information from the article text provided.`

// Config holds the text generation configuration.
type Config struct {
	Model       string
	APIKey      string
	BaseURL     string  // empty for api.openai.com
	MaxTokens   int     // completion token cap
	Temperature float32 // summary temperature
	Timeout     time.Duration

	// HTTPClient replaces the default client (for testing)
	HTTPClient *http.Client
}

// GenerationError reports a failed or empty completion.
type GenerationError struct {
	Op  string // "summarize" or "answer"
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("text generation (%s): %v", e.Op, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// ErrEmptyCompletion is wrapped when the API returns no usable text.
var ErrEmptyCompletion = errors.New("empty completion")

// Service implements summarization and question answering.
type Service struct {
	client *openai.Client
	config Config
	logger zerolog.Logger
}

// New creates a new text generation service.
func New(cfg Config, logger zerolog.Logger) *Service {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientConfig.HTTPClient = cfg.HTTPClient
	} else {
		clientConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Service{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		logger: logger,
	}
}

// Summarize returns a summary of text of approximately maxWords words.
func (s *Service) Summarize(ctx context.Context, text string, maxWords int) (string, error) {
	prompt := fmt.Sprintf(`Please provide a concise summary of the following Wikipedia article in approximately %d words or less.
Focus on the main points, key facts, and important information. Write in clear, readable prose.

Article content:
%s

Summary:`, maxWords, text)

	return s.complete(ctx, "summarize", summarySystemPrompt, prompt, s.config.Temperature)
}

// Answer answers question using only contextText.
func (s *Service) Answer(ctx context.Context, contextText, question string) (string, error) {
	prompt := fmt.Sprintf(`Based on the following Wikipedia article, please answer this question:

Question: %s

Article content:
%s

Answer (based only on the article above):`, question, contextText)

	return s.complete(ctx, "answer", answerSystemPrompt, prompt, answerTemperature)
}

func (s *Service) complete(ctx context.Context, op, system, user string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		MaxTokens:   s.config.MaxTokens,
		Temperature: temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	latency := time.Since(start)
	GenerationDuration.WithLabelValues(op).Observe(latency.Seconds())

	if err != nil {
		GenerationsTotal.WithLabelValues(op, "error").Inc()
		s.logger.Error().
			Err(err).
			Str("op", op).
			Str("model", s.config.Model).
			Dur("latency", latency).
			Msg("Chat completion failed")
		return "", &GenerationError{Op: op, Err: err}
	}

	if len(resp.Choices) == 0 {
		GenerationsTotal.WithLabelValues(op, "empty").Inc()
		return "", &GenerationError{Op: op, Err: ErrEmptyCompletion}
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		GenerationsTotal.WithLabelValues(op, "empty").Inc()
		return "", &GenerationError{Op: op, Err: ErrEmptyCompletion}
	}

	GenerationsTotal.WithLabelValues(op, "ok").Inc()
	GenerationTokens.WithLabelValues(op, "prompt").Add(float64(resp.Usage.PromptTokens))
	GenerationTokens.WithLabelValues(op, "completion").Add(float64(resp.Usage.CompletionTokens))

	s.logger.Info().
		Str("op", op).
		Str("model", s.config.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("latency", latency).
		Msg("Chat completion finished")

	return content, nil
}
