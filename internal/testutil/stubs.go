package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/wikisum/pkg/resolver"
)

// StubSource is an in-memory content source with call counters.
// Titles are matched exactly; Search hits are keyed by query.
type StubSource struct {
	mu         sync.RWMutex
	pages      map[string]string
	searchHits map[string]string

	// Gate, when set, blocks every FetchExact until it is closed.
	Gate chan struct{}

	// FetchErr and SearchErr, when set, are returned instead of a result.
	FetchErr  error
	SearchErr error

	FetchCalls  atomic.Int32
	SearchCalls atomic.Int32
}

// NewStubSource creates an empty stub source.
func NewStubSource() *StubSource {
	return &StubSource{
		pages:      make(map[string]string),
		searchHits: make(map[string]string),
	}
}

// AddPage registers a document under title.
func (s *StubSource) AddPage(title, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pages[title] = text
}

// AddSearchHit makes Search(query) return title.
func (s *StubSource) AddSearchHit(query, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.searchHits[query] = title
}

// FetchExact implements resolver.ContentSource.
func (s *StubSource) FetchExact(ctx context.Context, title string) (string, string, error) {
	s.FetchCalls.Add(1)
	if s.Gate != nil {
		select {
		case <-s.Gate:
		case <-ctx.Done():
			return "", "", ctx.Err()
		}
	}
	if s.FetchErr != nil {
		return "", "", s.FetchErr
	}

	s.mu.RLock()
	text, ok := s.pages[title]
	s.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("page %q: %w", title, resolver.ErrNotFound)
	}
	return text, StubSourceID(title), nil
}

// Search implements resolver.ContentSource.
func (s *StubSource) Search(ctx context.Context, query string) (string, error) {
	s.SearchCalls.Add(1)
	if s.SearchErr != nil {
		return "", s.SearchErr
	}

	s.mu.RLock()
	title, ok := s.searchHits[query]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("search %q: %w", query, resolver.ErrNotFound)
	}
	return title, nil
}

// StubSourceID is the canonical identifier StubSource reports for title.
func StubSourceID(title string) string {
	return "https://en.wikipedia.org/wiki/" + strings.ReplaceAll(title, " ", "_")
}

// StubSummarizer returns a fixed summary and records its inputs.
type StubSummarizer struct {
	Summary string
	Err     error

	Calls atomic.Int32

	mu         sync.Mutex
	lastText   string
	lastBudget int
}

// Summarize implements orchestrator.Summarizer.
func (s *StubSummarizer) Summarize(ctx context.Context, text string, maxOutputUnits int) (string, error) {
	s.Calls.Add(1)

	s.mu.Lock()
	s.lastText = text
	s.lastBudget = maxOutputUnits
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	return s.Summary, nil
}

// LastInput returns the text and budget of the most recent call.
func (s *StubSummarizer) LastInput() (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastText, s.lastBudget
}

// StubQA returns a fixed answer and records its inputs.
type StubQA struct {
	Reply string
	Err   error

	Calls atomic.Int32

	mu           sync.Mutex
	lastContext  string
	lastQuestion string
}

// Answer implements orchestrator.QAEngine.
func (s *StubQA) Answer(ctx context.Context, contextText, question string) (string, error) {
	s.Calls.Add(1)

	s.mu.Lock()
	s.lastContext = contextText
	s.lastQuestion = question
	s.mu.Unlock()

	if s.Err != nil {
		return "", s.Err
	}
	return s.Reply, nil
}

// LastInput returns the context and question of the most recent call.
func (s *StubQA) LastInput() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastContext, s.lastQuestion
}
