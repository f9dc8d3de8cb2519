package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeResolver struct {
	mu      sync.Mutex
	calls   map[string]int
	known   map[string]bool
	delay   time.Duration
	lookups atomic.Int64
}

func newFakeResolver(known ...string) *fakeResolver {
	r := &fakeResolver{calls: make(map[string]int), known: make(map[string]bool)}
	for _, h := range known {
		r.known[h] = true
	}
	return r
}

func (r *fakeResolver) LookupHost(ctx context.Context, host string) ([]string, error) {
	r.lookups.Add(1)
	r.mu.Lock()
	r.calls[host]++
	r.mu.Unlock()
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.known[host] {
		return []string{"192.0.2.1"}, nil
	}
	return nil, errors.New("no such host")
}

func (r *fakeResolver) callsFor(host string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[host]
}

func newTestChecker(t *testing.T, r Resolver, size int) (*HostChecker, *HostCache) {
	t.Helper()
	cache, err := NewHostCache(size)
	require.NoError(t, err)
	return NewHostChecker(cache, testLogger(), WithResolver(r)), cache
}

func TestHostCheckerReachable(t *testing.T) {
	r := newFakeResolver("example.org")
	hc, _ := newTestChecker(t, r, 10)

	assert.True(t, hc.IsReachable(context.Background(), "https://example.org/news"))
	assert.False(t, hc.IsReachable(context.Background(), "https://nowhere.invalid/"))
}

func TestHostCheckerMemoizesPerHost(t *testing.T) {
	r := newFakeResolver("example.org")
	hc, cache := newTestChecker(t, r, 10)
	ctx := context.Background()

	for _, u := range []string{
		"https://example.org/a",
		"https://example.org/b?x=1",
		"http://example.org:8080/c",
	} {
		assert.True(t, hc.IsReachable(ctx, u))
	}
	assert.Equal(t, 1, r.callsFor("example.org"))

	// Negative verdicts are cached too.
	assert.False(t, hc.IsReachable(ctx, "https://gone.invalid/"))
	assert.False(t, hc.IsReachable(ctx, "https://gone.invalid/again"))
	assert.Equal(t, 1, r.callsFor("gone.invalid"))
	assert.Equal(t, 2, cache.Len())
}

func TestHostCheckerCoalescesConcurrentLookups(t *testing.T) {
	r := newFakeResolver("slow.example")
	r.delay = 50 * time.Millisecond
	hc, _ := newTestChecker(t, r, 10)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, hc.IsReachable(context.Background(), "https://slow.example/"))
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, r.callsFor("slow.example"))
}

func TestHostCheckerEvictsLeastRecentlyUsed(t *testing.T) {
	r := newFakeResolver("a.example", "b.example", "c.example")
	hc, cache := newTestChecker(t, r, 2)
	ctx := context.Background()

	hc.IsReachable(ctx, "https://a.example/")
	hc.IsReachable(ctx, "https://b.example/")
	hc.IsReachable(ctx, "https://c.example/")
	assert.Equal(t, 2, cache.Len())

	_, ok := cache.Get("a.example")
	assert.False(t, ok)

	hc.IsReachable(ctx, "https://a.example/")
	assert.Equal(t, 2, r.callsFor("a.example"))
}

func TestHostCheckerBadURL(t *testing.T) {
	r := newFakeResolver()
	hc, cache := newTestChecker(t, r, 10)

	assert.False(t, hc.IsReachable(context.Background(), "not a url"))
	assert.False(t, hc.IsReachable(context.Background(), "://"))
	assert.Zero(t, r.lookups.Load())
	assert.Zero(t, cache.Len())
}

func TestHostCheckerCancelledNotCached(t *testing.T) {
	r := newFakeResolver("example.org")
	r.delay = time.Second
	hc, cache := newTestChecker(t, r, 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, hc.IsReachable(ctx, "https://example.org/"))
	assert.Zero(t, cache.Len())
}

func TestHostCheckerDeadlineNotCached(t *testing.T) {
	r := newFakeResolver("example.org")
	r.delay = 200 * time.Millisecond
	hc, cache := newTestChecker(t, r, 10)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.False(t, hc.IsReachable(ctx, "https://example.org/"))
	assert.Zero(t, cache.Len())

	assert.True(t, hc.IsReachable(context.Background(), "https://example.org/"))
	assert.Equal(t, 2, r.callsFor("example.org"))
}
