package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/IshaanNene/medfeed/internal/observability"
)

// DefaultHostCacheSize bounds the host verdict cache when none is configured.
const DefaultHostCacheSize = 100

// Resolver resolves a hostname to addresses. *net.Resolver satisfies it.
type Resolver interface {
	LookupHost(ctx context.Context, host string) ([]string, error)
}

// HostCache memoizes reachability verdicts per hostname. Entries never
// expire; the least recently used host is evicted once the cache is full.
type HostCache struct {
	entries *lru.Cache[string, bool]
}

// NewHostCache creates a cache holding at most size hosts.
func NewHostCache(size int) (*HostCache, error) {
	if size <= 0 {
		size = DefaultHostCacheSize
	}
	c, err := lru.New[string, bool](size)
	if err != nil {
		return nil, fmt.Errorf("create host cache: %w", err)
	}
	return &HostCache{entries: c}, nil
}

// Get returns the cached verdict for host.
func (c *HostCache) Get(host string) (reachable, ok bool) {
	return c.entries.Get(host)
}

// Put stores a verdict for host.
func (c *HostCache) Put(host string, reachable bool) {
	c.entries.Add(host, reachable)
}

// Len returns the number of cached hosts.
func (c *HostCache) Len() int { return c.entries.Len() }

// HostChecker decides whether a URL's host resolves in DNS.
type HostChecker struct {
	resolver Resolver
	cache    *HostCache
	group    singleflight.Group
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// HostCheckerOption configures a HostChecker.
type HostCheckerOption func(*HostChecker)

// WithResolver replaces the system resolver.
func WithResolver(r Resolver) HostCheckerOption {
	return func(hc *HostChecker) { hc.resolver = r }
}

// WithHostMetrics records verdicts on m.
func WithHostMetrics(m *observability.Metrics) HostCheckerOption {
	return func(hc *HostChecker) { hc.metrics = m }
}

// NewHostChecker creates a checker that memoizes into cache.
func NewHostChecker(cache *HostCache, logger *slog.Logger, opts ...HostCheckerOption) *HostChecker {
	hc := &HostChecker{
		resolver: net.DefaultResolver,
		cache:    cache,
		logger:   logger.With("component", "host_checker"),
	}
	for _, opt := range opts {
		opt(hc)
	}
	return hc
}

// IsReachable reports whether the host of rawURL resolves. The first
// verdict for a host is cached; concurrent first checks of the same host
// share a single lookup. URLs without a host are never reachable.
func (hc *HostChecker) IsReachable(ctx context.Context, rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		hc.logger.Error("host check: unusable url", "url", rawURL, "error", err)
		return false
	}
	host := u.Hostname()

	if reachable, ok := hc.cache.Get(host); ok {
		hc.metrics.ObserveHostCheck(reachable, true)
		return reachable
	}

	v, err, _ := hc.group.Do(host, func() (any, error) {
		if reachable, ok := hc.cache.Get(host); ok {
			return reachable, nil
		}
		_, lookupErr := hc.resolver.LookupHost(ctx, host)
		if lookupErr != nil {
			// A lookup cut short by the caller says nothing about the host.
			if ctx.Err() != nil || errors.Is(lookupErr, context.Canceled) {
				return false, lookupErr
			}
			hc.logger.Error("host unreachable", "host", host, "error", lookupErr)
			hc.cache.Put(host, false)
			return false, nil
		}
		hc.cache.Put(host, true)
		return true, nil
	})
	if err != nil {
		hc.logger.Debug("host check cancelled", "host", host, "error", err)
		return false
	}

	reachable := v.(bool)
	hc.metrics.ObserveHostCheck(reachable, false)
	return reachable
}
