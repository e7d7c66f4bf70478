// Package resolver turns a free-text query into a reference document by
// trying an exact title lookup first and falling back to a search.
package resolver

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// Method records how a document was located.
type Method string

const (
	// MethodExact means the query matched a document title directly.
	MethodExact Method = "exact"

	// MethodSearchFallback means the document is the top search result.
	MethodSearchFallback Method = "search_fallback"
)

// ContentSource is the external document source.
//
// Implementations signal "does not exist" by returning an error that wraps
// ErrNotFound. Every other error is a transport or protocol failure.
type ContentSource interface {
	// FetchExact returns the plain text and canonical identifier of the
	// document titled title.
	FetchExact(ctx context.Context, title string) (text string, canonicalID string, err error)

	// Search returns the title of the best match for query.
	Search(ctx context.Context, query string) (title string, err error)
}

// Document is a resolved reference document.
type Document struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	SourceID string `json:"source_id"`
	Method   Method `json:"method"`
}

// Resolver locates documents through a ContentSource. It does not cache.
type Resolver struct {
	source ContentSource
	logger zerolog.Logger
}

// New creates a resolver over source.
func New(source ContentSource, logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve locates the document for query.
//
// The search fallback runs only when the exact lookup reports not-found.
// Returns *NotFoundError when both attempts yield nothing and *UpstreamError
// for any other failure.
func (r *Resolver) Resolve(ctx context.Context, query string) (*Document, error) {
	query = strings.TrimSpace(query)

	text, sourceID, err := r.source.FetchExact(ctx, query)
	if err == nil {
		ResolutionsTotal.WithLabelValues(string(MethodExact)).Inc()
		r.logger.Debug().Str("query", query).Str("source_id", sourceID).Msg("Resolved by exact title")
		return &Document{Title: query, Text: text, SourceID: sourceID, Method: MethodExact}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		ResolutionsTotal.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Op: "fetch", Query: query, Err: err}
	}

	r.logger.Debug().Str("query", query).Msg("Exact title not found, trying search")

	title, err := r.source.Search(ctx, query)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ResolutionsTotal.WithLabelValues("not_found").Inc()
			r.logger.Info().Str("query", query).Msg("No search results")
			return nil, &NotFoundError{Query: query}
		}
		ResolutionsTotal.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Op: "search", Query: query, Err: err}
	}

	text, sourceID, err = r.source.FetchExact(ctx, title)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			ResolutionsTotal.WithLabelValues("not_found").Inc()
			return nil, &NotFoundError{Query: query}
		}
		ResolutionsTotal.WithLabelValues("upstream_error").Inc()
		return nil, &UpstreamError{Op: "fetch", Query: query, Err: err}
	}

	ResolutionsTotal.WithLabelValues(string(MethodSearchFallback)).Inc()
	r.logger.Info().
		Str("query", query).
		Str("title", title).
		Str("source_id", sourceID).
		Msg("Resolved by search fallback")

	return &Document{Title: title, Text: text, SourceID: sourceID, Method: MethodSearchFallback}, nil
}
