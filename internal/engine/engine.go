package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/fetcher"
	"github.com/IshaanNene/medfeed/internal/observability"
	"github.com/IshaanNene/medfeed/internal/parser"
	"github.com/IshaanNene/medfeed/internal/sources"
	"github.com/IshaanNene/medfeed/internal/types"
)

// Stats tracks scrape statistics across calls.
type Stats struct {
	SourcesAttempted atomic.Int64
	SourcesSucceeded atomic.Int64
	SourcesFailed    atomic.Int64
	HostsUnreachable atomic.Int64
	FetchAttempts    atomic.Int64
	BytesDownloaded  atomic.Int64
	StartTime        time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"sources_attempted": s.SourcesAttempted.Load(),
		"sources_succeeded": s.SourcesSucceeded.Load(),
		"sources_failed":    s.SourcesFailed.Load(),
		"hosts_unreachable": s.HostsUnreachable.Load(),
		"fetch_attempts":    s.FetchAttempts.Load(),
		"bytes_downloaded":  s.BytesDownloaded.Load(),
		"elapsed":           time.Since(s.StartTime).String(),
	}
}

// HostChecker reports whether a URL's host is worth contacting.
type HostChecker interface {
	IsReachable(ctx context.Context, rawURL string) bool
}

// Engine scrapes articles from the configured sources.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	registry  *sources.Registry
	hosts     HostChecker
	extractor *parser.Extractor
	fetchers  map[string]fetcher.Fetcher
	sleep     SleepFunc
	metrics   *observability.Metrics
	stats     *Stats
	mu        sync.RWMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithSources replaces the built-in source catalog.
func WithSources(r *sources.Registry) Option {
	return func(e *Engine) { e.registry = r }
}

// WithHostChecker replaces the DNS-backed host checker.
func WithHostChecker(h HostChecker) Option {
	return func(e *Engine) { e.hosts = h }
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(fn SleepFunc) Option {
	return func(e *Engine) { e.sleep = fn }
}

// WithMetrics records fetch and source outcomes on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine. Without options it scrapes the built-in catalog
// and checks hosts through the system resolver with a fresh cache.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
		fetchers: make(map[string]fetcher.Fetcher),
		sleep:    SleepContext,
		stats:    &Stats{StartTime: time.Now()},
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.registry == nil {
		e.registry = sources.Default()
	}
	if e.hosts == nil {
		cache, err := fetcher.NewHostCache(cfg.Scraper.HostCacheSize)
		if err != nil {
			return nil, err
		}
		e.hosts = fetcher.NewHostChecker(cache, logger, fetcher.WithHostMetrics(e.metrics))
	}
	e.extractor = parser.NewExtractor(logger, parser.WithMinLength(cfg.Scraper.MinContentLength))

	return e, nil
}

// SetFetcher registers a fetcher for a fetch strategy.
func (e *Engine) SetFetcher(strategy string, f fetcher.Fetcher) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fetchers[strategy] = f
}

// Sources returns the registry the engine scrapes.
func (e *Engine) Sources() *sources.Registry { return e.registry }

// Stats returns the live statistics.
func (e *Engine) Stats() *Stats { return e.stats }

// ScrapeByCategory scrapes every source in language that matches category,
// concurrently, and returns the articles that were built. A source that
// fails is logged and left out; it never affects the others. The result
// follows catalog order. An empty language means the configured default.
func (e *Engine) ScrapeByCategory(ctx context.Context, category, language string) []*types.Article {
	if language == "" {
		language = e.cfg.Scraper.DefaultLanguage
	}
	logger := e.logger.With("category", category, "language", language)

	selected := e.registry.Filter(category, language)
	if len(selected) == 0 {
		logger.Warn("no sources for category")
		return []*types.Article{}
	}
	logger.Info("scraping category", "sources", len(selected))

	results := make([]*types.Article, len(selected))
	var g errgroup.Group
	g.SetLimit(e.cfg.Scraper.Concurrency)
	for i := range selected {
		src := &selected[i]
		g.Go(func() error {
			results[i] = e.FetchSource(ctx, src, e.cfg.Scraper.MaxRetries)
			return nil
		})
	}
	_ = g.Wait()

	articles := make([]*types.Article, 0, len(results))
	for _, a := range results {
		if a != nil {
			articles = append(articles, a)
		}
	}

	logger.Info("category scrape complete",
		"sources", len(selected),
		"articles", len(articles),
	)
	return articles
}

// PageOptions controls ScrapePage.
type PageOptions struct {
	// Limit caps the number of entries. Zero means no cap.
	Limit int
	// SkipTLSVerify accepts any certificate the page presents.
	SkipTLSVerify bool
	// Rendered fetches the page through the rendered fetcher when one is
	// registered.
	Rendered bool
}

// ScrapePage fetches one index page and extracts its teaser entries.
func (e *Engine) ScrapePage(ctx context.Context, rawURL string, opts PageOptions) ([]types.ListingEntry, error) {
	req, err := types.NewRequest(rawURL)
	if err != nil {
		return nil, err
	}
	req.Timeout = e.cfg.Scraper.RequestTimeout
	req.SkipTLSVerify = opts.SkipTLSVerify

	strategy := types.StrategyStatic
	if opts.Rendered {
		strategy = types.StrategyRendered
	}
	req.Strategy = strategy
	f, _, err := e.fetcherFor(strategy)
	if err != nil {
		return nil, err
	}

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	e.stats.BytesDownloaded.Add(int64(len(resp.Body)))
	if resp.StatusCode != 200 {
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ParseError{URL: rawURL, Err: err}
	}

	entries := e.extractor.ExtractListing(doc, resp.FinalURL, opts.Limit)
	e.logger.Info("page scraped", "url", rawURL, "entries", len(entries))
	return entries, nil
}

// Close releases every registered fetcher.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for name, f := range e.fetchers {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s fetcher: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// fetcherFor picks the fetcher for strategy. Rendered requests fall back
// to the static fetcher when no browser is registered.
func (e *Engine) fetcherFor(strategy string) (fetcher.Fetcher, string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if f, ok := e.fetchers[strategy]; ok {
		return f, strategy, nil
	}
	if strategy == types.StrategyRendered {
		if f, ok := e.fetchers[types.StrategyStatic]; ok {
			e.logger.Debug("no rendered fetcher, using static")
			return f, types.StrategyStatic, nil
		}
	}
	return nil, "", fmt.Errorf("%w: %s", types.ErrNoFetcher, strategy)
}
