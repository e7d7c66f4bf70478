package resolver_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Sternrassler/wikisum/pkg/resolver"
	"github.com/rs/zerolog"
)

// fakeSource serves documents from a map and records calls.
type fakeSource struct {
	pages       map[string]string
	searchHits  map[string]string
	fetchErr    error
	searchErr   error
	fetchCalls  []string
	searchCalls []string
}

func (f *fakeSource) FetchExact(ctx context.Context, title string) (string, string, error) {
	f.fetchCalls = append(f.fetchCalls, title)
	if f.fetchErr != nil {
		return "", "", f.fetchErr
	}
	text, ok := f.pages[title]
	if !ok {
		return "", "", fmt.Errorf("page %q: %w", title, resolver.ErrNotFound)
	}
	return text, "https://en.wikipedia.org/wiki/" + title, nil
}

func (f *fakeSource) Search(ctx context.Context, query string) (string, error) {
	f.searchCalls = append(f.searchCalls, query)
	if f.searchErr != nil {
		return "", f.searchErr
	}
	title, ok := f.searchHits[query]
	if !ok {
		return "", fmt.Errorf("search %q: %w", query, resolver.ErrNotFound)
	}
	return title, nil
}

func TestResolve_ExactMatch(t *testing.T) {
	source := &fakeSource{pages: map[string]string{"Go": "Go is a language."}}
	r := resolver.New(source, zerolog.Nop())

	doc, err := r.Resolve(context.Background(), "  Go ")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if doc.Method != resolver.MethodExact {
		t.Errorf("Method = %q, want %q", doc.Method, resolver.MethodExact)
	}
	if doc.Text != "Go is a language." {
		t.Errorf("Text = %q", doc.Text)
	}
	if doc.SourceID != "https://en.wikipedia.org/wiki/Go" {
		t.Errorf("SourceID = %q", doc.SourceID)
	}
	if len(source.searchCalls) != 0 {
		t.Errorf("Search called %d times, want 0", len(source.searchCalls))
	}
}

func TestResolve_SearchFallback(t *testing.T) {
	source := &fakeSource{
		pages:      map[string]string{"Machine learning": "ML text"},
		searchHits: map[string]string{"machine lerning": "Machine learning"},
	}
	r := resolver.New(source, zerolog.Nop())

	doc, err := r.Resolve(context.Background(), "machine lerning")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if doc.Method != resolver.MethodSearchFallback {
		t.Errorf("Method = %q, want %q", doc.Method, resolver.MethodSearchFallback)
	}
	if doc.Title != "Machine learning" {
		t.Errorf("Title = %q, want %q", doc.Title, "Machine learning")
	}
	if doc.SourceID != "https://en.wikipedia.org/wiki/Machine learning" {
		t.Errorf("SourceID = %q", doc.SourceID)
	}

	wantFetches := []string{"machine lerning", "Machine learning"}
	if fmt.Sprint(source.fetchCalls) != fmt.Sprint(wantFetches) {
		t.Errorf("fetch calls = %v, want %v", source.fetchCalls, wantFetches)
	}
}

func TestResolve_NotFound(t *testing.T) {
	source := &fakeSource{}
	r := resolver.New(source, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "xyzzy-nonexistent")

	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
	if nf.Query != "xyzzy-nonexistent" {
		t.Errorf("Query = %q", nf.Query)
	}
	if !errors.Is(err, resolver.ErrNotFound) {
		t.Error("NotFoundError should match ErrNotFound")
	}
}

func TestResolve_SearchHitVanished(t *testing.T) {
	source := &fakeSource{
		pages:      map[string]string{},
		searchHits: map[string]string{"ghost": "Ghost page"},
	}
	r := resolver.New(source, zerolog.Nop())

	_, err := r.Resolve(context.Background(), "ghost")

	var nf *resolver.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error = %v, want *NotFoundError", err)
	}
}

func TestResolve_UpstreamErrors(t *testing.T) {
	errTimeout := errors.New("connection timed out")

	tests := []struct {
		name      string
		source    *fakeSource
		wantOp    string
		wantCalls int
	}{
		{
			name:      "fetch fails",
			source:    &fakeSource{fetchErr: errTimeout},
			wantOp:    "fetch",
			wantCalls: 0,
		},
		{
			name:      "search fails",
			source:    &fakeSource{searchErr: errTimeout},
			wantOp:    "search",
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolver.New(tt.source, zerolog.Nop())
			_, err := r.Resolve(context.Background(), "anything")

			var ue *resolver.UpstreamError
			if !errors.As(err, &ue) {
				t.Fatalf("error = %v, want *UpstreamError", err)
			}
			if ue.Op != tt.wantOp {
				t.Errorf("Op = %q, want %q", ue.Op, tt.wantOp)
			}
			if !errors.Is(err, errTimeout) {
				t.Error("UpstreamError should unwrap to the source error")
			}
			if errors.Is(err, resolver.ErrNotFound) {
				t.Error("upstream failure must not look like not-found")
			}
			if len(tt.source.searchCalls) != tt.wantCalls {
				t.Errorf("search calls = %d, want %d", len(tt.source.searchCalls), tt.wantCalls)
			}
		})
	}
}
