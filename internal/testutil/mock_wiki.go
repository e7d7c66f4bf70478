// Package testutil provides testing utilities for wikisum.
package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// Mock Wikipedia API paths.
const (
	PageHTMLPath  = "/api/rest_v1/page/html/"
	ActionAPIPath = "/w/api.php"
)

// MockWikiResponse defines a canned response for a mock endpoint.
type MockWikiResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockWiki is a configurable mock Wikipedia server for testing.
// Pages are keyed by their URL title (spaces replaced with underscores).
type MockWiki struct {
	server   *httptest.Server
	mu       sync.RWMutex
	pages    map[string]string
	searches map[string]string
	failures map[string][]MockWikiResponse
	handlers map[string]func(w http.ResponseWriter, r *http.Request)

	// Tracking
	RequestCount  int
	FetchCount    int
	SearchCount   int
	LastUserAgent string
	FetchedTitles []string
}

// NewMockWiki creates a new mock Wikipedia server.
func NewMockWiki() *MockWiki {
	mock := &MockWiki{
		pages:    make(map[string]string),
		searches: make(map[string]string),
		failures: make(map[string][]MockWikiResponse),
		handlers: make(map[string]func(w http.ResponseWriter, r *http.Request)),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastUserAgent = r.Header.Get("User-Agent")
		handler, exists := mock.handlers[r.URL.Path]
		failure, failing := mock.popFailure(r.URL.Path)
		mock.mu.Unlock()

		if failing {
			writeResponse(w, failure)
			return
		}
		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockWiki) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockWiki) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockWiki) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.FetchCount = 0
	m.SearchCount = 0
	m.LastUserAgent = ""
	m.FetchedTitles = nil
}

// AddPage registers an article. body is placed inside a minimal article
// document.
func (m *MockWiki) AddPage(title, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[strings.ReplaceAll(title, " ", "_")] = ArticleHTML(title, body)
}

// AddSearchResult makes a search for query return title as the top hit.
func (m *MockWiki) AddSearchResult(query, title string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searches[query] = title
}

// FailNext makes the next len(responses) requests to path return the given
// responses before normal handling resumes.
func (m *MockWiki) FailNext(path string, responses ...MockWikiResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[path] = append(m.failures[path], responses...)
}

// SetHandler sets a custom handler for a specific path.
func (m *MockWiki) SetHandler(path string, handler func(w http.ResponseWriter, r *http.Request)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockWiki) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetFetchCount returns the number of article fetches.
func (m *MockWiki) GetFetchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FetchCount
}

// GetSearchCount returns the number of search requests.
func (m *MockWiki) GetSearchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.SearchCount
}

// GetFetchedTitles returns the URL titles requested so far.
func (m *MockWiki) GetFetchedTitles() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.FetchedTitles...)
}

// GetLastUserAgent returns the User-Agent of the most recent request.
func (m *MockWiki) GetLastUserAgent() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastUserAgent
}

// popFailure must be called with mu held.
func (m *MockWiki) popFailure(path string) (MockWikiResponse, bool) {
	key := path
	if strings.HasPrefix(path, PageHTMLPath) {
		if _, ok := m.failures[path]; !ok {
			key = PageHTMLPath
		}
	}
	queue := m.failures[key]
	if len(queue) == 0 {
		return MockWikiResponse{}, false
	}
	m.failures[key] = queue[1:]
	return queue[0], true
}

// defaultHandler serves registered pages and search results.
func (m *MockWiki) defaultHandler(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, PageHTMLPath):
		title := strings.TrimPrefix(r.URL.Path, PageHTMLPath)

		m.mu.Lock()
		m.FetchCount++
		m.FetchedTitles = append(m.FetchedTitles, title)
		page, ok := m.pages[title]
		m.mu.Unlock()

		if !ok {
			writeResponse(w, NewNotFoundResponse())
			return
		}
		writeResponse(w, MockWikiResponse{
			StatusCode: http.StatusOK,
			Body:       page,
			Headers:    map[string]string{"Content-Type": "text/html; charset=utf-8"},
		})

	case r.URL.Path == ActionAPIPath:
		query := r.URL.Query().Get("srsearch")

		m.mu.Lock()
		m.SearchCount++
		title, ok := m.searches[query]
		m.mu.Unlock()

		writeResponse(w, NewSearchResponse(title, ok))

	default:
		writeResponse(w, NewNotFoundResponse())
	}
}

func writeResponse(w http.ResponseWriter, resp MockWikiResponse) {
	if resp.Delay > 0 {
		time.Sleep(resp.Delay)
	}
	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}
	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// ArticleHTML renders a minimal Parsoid-like article document with page
// chrome that text extraction is expected to drop.
func ArticleHTML(title, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><head><title>%s</title><style>.mw-body{color:black}</style></head>
<body>
<header>Site header</header>
<nav>Main menu</nav>
<section><p>%s</p></section>
<script>var tracking = true;</script>
<footer>Footer links</footer>
</body></html>`, html.EscapeString(title), body)
}

// NewSearchResponse creates an action API search response with at most one hit.
func NewSearchResponse(title string, found bool) MockWikiResponse {
	type hit struct {
		NS    int    `json:"ns"`
		Title string `json:"title"`
	}
	var payload struct {
		BatchComplete string `json:"batchcomplete"`
		Query         struct {
			Search []hit `json:"search"`
		} `json:"query"`
	}
	payload.Query.Search = []hit{}
	if found {
		payload.Query.Search = append(payload.Query.Search, hit{Title: title})
	}
	body, _ := json.Marshal(payload)

	return MockWikiResponse{
		StatusCode: http.StatusOK,
		Body:       string(body),
		Headers:    map[string]string{"Content-Type": "application/json; charset=utf-8"},
	}
}

// NewNotFoundResponse creates a REST API 404 response.
func NewNotFoundResponse() MockWikiResponse {
	return MockWikiResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"type":"https://mediawiki.org/wiki/HyperSwitch/errors/not_found","title":"Not found."}`,
		Headers:    map[string]string{"Content-Type": "application/problem+json"},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockWikiResponse {
	return MockWikiResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"title":"Too many requests"}`,
		Headers: map[string]string{
			"Retry-After":  "1",
			"Content-Type": "application/json",
		},
	}
}

// NewServerErrorResponse creates a 503 Service Unavailable response.
func NewServerErrorResponse() MockWikiResponse {
	return MockWikiResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       `{"title":"Service unavailable"}`,
		Headers:    map[string]string{"Content-Type": "application/json"},
	}
}
