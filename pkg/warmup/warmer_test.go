package warmup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Sternrassler/wikisum/pkg/cache"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTarget struct {
	mu      sync.Mutex
	calls   []string
	fail    map[string]error
	delay   time.Duration
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (f *fakeTarget) Warm(ctx context.Context, query string) error {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, query)
	err := f.fail[query]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func TestNew_Defaults(t *testing.T) {
	w := New(&fakeTarget{}, Config{}, zerolog.Nop())

	assert.Equal(t, 2, w.config.MaxConcurrency)
	assert.Equal(t, 3*time.Minute, w.config.Timeout)
}

func TestRun_WarmsEveryTopic(t *testing.T) {
	target := &fakeTarget{fail: map[string]error{"Broken": errors.New("boom")}}
	w := New(target, Config{MaxConcurrency: 3}, zerolog.Nop())

	report, err := w.Run(context.Background(), []string{"Go", "Rust", "Broken"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Go", "Rust"}, report.Warmed)
	require.Contains(t, report.Failed, "Broken")
	assert.EqualError(t, report.Failed["Broken"], "boom")
	assert.Len(t, target.calls, 3)
}

func TestRun_SkipsBlankAndDuplicateTopics(t *testing.T) {
	target := &fakeTarget{}
	w := New(target, DefaultConfig(), zerolog.Nop())

	report, err := w.Run(context.Background(), []string{"Go", " go ", "", "   ", "Rust"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Go", "Rust"}, report.Warmed)
	assert.Len(t, target.calls, 2)
}

func TestDedupe_MatchesCacheKeys(t *testing.T) {
	got := dedupe([]string{"Machine Learning", "\tMACHINE LEARNING  ", "machine learning", "GO\n", "go", " "})
	assert.Equal(t, []string{"Machine Learning", "GO"}, got)

	// Every surviving topic maps to a distinct cache entry.
	keys := make(map[string]struct{}, len(got))
	for _, topic := range got {
		keys[cache.NormalizeKey(topic)] = struct{}{}
	}
	assert.Len(t, keys, len(got))
}

func TestRun_NoTopics(t *testing.T) {
	target := &fakeTarget{}
	w := New(target, DefaultConfig(), zerolog.Nop())

	report, err := w.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, report.Warmed)
	assert.Empty(t, target.calls)
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	target := &fakeTarget{delay: 20 * time.Millisecond}
	w := New(target, Config{MaxConcurrency: 2}, zerolog.Nop())

	topics := []string{"a", "b", "c", "d", "e", "f"}
	report, err := w.Run(context.Background(), topics)
	require.NoError(t, err)

	assert.Len(t, report.Warmed, len(topics))
	assert.LessOrEqual(t, target.maxSeen.Load(), int32(2))
}

func TestRun_PerTopicTimeout(t *testing.T) {
	target := &fakeTarget{delay: time.Second}
	w := New(target, Config{MaxConcurrency: 1, Timeout: 10 * time.Millisecond}, zerolog.Nop())

	report, err := w.Run(context.Background(), []string{"slow"})
	require.NoError(t, err)
	assert.ErrorIs(t, report.Failed["slow"], context.DeadlineExceeded)
}

func TestRun_ContextCancelled(t *testing.T) {
	target := &fakeTarget{}
	w := New(target, DefaultConfig(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.Run(ctx, []string{"Go"})
	assert.ErrorIs(t, err, context.Canceled)
}
