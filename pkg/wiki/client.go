// Package wiki provides a Wikipedia content client with retry, backoff and
// HTML to text conversion. It implements resolver.ContentSource.
package wiki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/wikisum/pkg/resolver"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the English Wikipedia.
	DefaultBaseURL = "https://en.wikipedia.org"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 16 << 20
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the wiki, without trailing slash
	BaseURL string

	// User-Agent header (REQUIRED by Wikimedia policy)
	// Format: "AppName/Version (contact)"
	UserAgent string

	// Timeout per HTTP attempt
	Timeout time.Duration

	// Retry; zero keeps the per error class defaults
	MaxRetries     int
	InitialBackoff time.Duration

	// HTTPClient replaces the default client (for testing)
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(userAgent string) Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		UserAgent:  userAgent,
		Timeout:    10 * time.Second,
		MaxRetries: 3,
	}
}

// Client fetches articles from the Wikipedia REST and action APIs.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	retry      retryPolicy
	config     Config
	logger     zerolog.Logger
}

var _ resolver.ContentSource = (*Client)(nil)

// New creates a new Wikipedia client.
func New(cfg Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    base,
		retry:      withOverrides(cfg.MaxRetries, cfg.InitialBackoff),
		config:     cfg,
		logger:     log.With().Str("component", "wiki-client").Logger(),
	}, nil
}

// FetchExact returns the plain text of the article titled title and its
// canonical URL. A missing article yields an error wrapping
// resolver.ErrNotFound.
func (c *Client) FetchExact(ctx context.Context, title string) (string, string, error) {
	pageTitle := pageTitle(title)
	if pageTitle == "" {
		return "", "", fmt.Errorf("empty title: %w", resolver.ErrNotFound)
	}

	endpoint := c.baseURL.JoinPath("api", "rest_v1", "page", "html")
	endpoint.RawPath = endpoint.Path + "/" + url.PathEscape(pageTitle)
	endpoint.Path = endpoint.Path + "/" + pageTitle

	var text string
	err := c.do(ctx, "fetch", endpoint.String(), "text/html", func(body io.Reader) error {
		var err error
		text, err = ExtractText(body)
		return err
	})
	if err != nil {
		return "", "", err
	}

	c.logger.Debug().
		Str("title", pageTitle).
		Int("bytes", len(text)).
		Msg("Fetched article")

	return text, c.CanonicalURL(title), nil
}

// searchResponse is the subset of the action API search result we read.
type searchResponse struct {
	Query struct {
		Search []struct {
			Title string `json:"title"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// Search returns the title of the top full-text search result for query.
// No results yield an error wrapping resolver.ErrNotFound.
func (c *Client) Search(ctx context.Context, query string) (string, error) {
	endpoint := c.baseURL.JoinPath("w", "api.php")
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", "1")
	endpoint.RawQuery = params.Encode()

	var result searchResponse
	err := c.do(ctx, "search", endpoint.String(), "application/json", func(body io.Reader) error {
		return json.NewDecoder(body).Decode(&result)
	})
	if err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", &WikiError{
			StatusCode: http.StatusOK,
			ErrorClass: ErrorClassProtocol,
			Message:    fmt.Sprintf("search api error %s: %s", result.Error.Code, result.Error.Info),
		}
	}
	if len(result.Query.Search) == 0 || result.Query.Search[0].Title == "" {
		return "", fmt.Errorf("search %q: %w", query, resolver.ErrNotFound)
	}

	title := result.Query.Search[0].Title
	c.logger.Debug().Str("query", query).Str("title", title).Msg("Search hit")
	return title, nil
}

// CanonicalURL returns the article URL for title.
func (c *Client) CanonicalURL(title string) string {
	u := c.baseURL.JoinPath("wiki")
	pageTitle := pageTitle(title)
	u.RawPath = u.Path + "/" + url.PathEscape(pageTitle)
	u.Path = u.Path + "/" + pageTitle
	return u.String()
}

// do performs a GET request with retry and hands a successful body to decode.
func (c *Client) do(ctx context.Context, op, rawURL, accept string, decode func(io.Reader) error) error {
	startTime := time.Now()
	defer func() {
		WikiRequestDuration.WithLabelValues(op).Observe(time.Since(startTime).Seconds())
	}()

	return retryWithBackoff(ctx, c.retry, c.logger, op, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", accept)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			WikiErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
			WikiRequestsTotal.WithLabelValues(op, "network_error").Inc()
			c.logger.Warn().Err(err).Str("op", op).Msg("HTTP request failed")
			return &WikiError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		WikiRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode == http.StatusNotFound {
			// Drain so the connection can be reused
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return &WikiError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassClient,
				Message:    resp.Status,
				Err:        resolver.ErrNotFound,
			}
		}

		if resp.StatusCode != http.StatusOK {
			errClass := classifyStatus(resp.StatusCode)
			if errClass == "" {
				errClass = ErrorClassProtocol
			}
			WikiErrorsTotal.WithLabelValues(string(errClass)).Inc()
			c.logger.Warn().
				Str("op", op).
				Int("status", resp.StatusCode).
				Str("error_class", string(errClass)).
				Msg("Wikipedia request error")
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
			return &WikiError{
				StatusCode: resp.StatusCode,
				ErrorClass: errClass,
				Message:    resp.Status,
			}
		}

		if err := decode(io.LimitReader(resp.Body, maxBodyBytes)); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			WikiErrorsTotal.WithLabelValues(string(ErrorClassProtocol)).Inc()
			return &WikiError{
				StatusCode: resp.StatusCode,
				ErrorClass: ErrorClassProtocol,
				Message:    "decode response",
				Err:        err,
			}
		}
		return nil
	})
}

// pageTitle converts a title or query into its URL form.
func pageTitle(title string) string {
	return strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
}
