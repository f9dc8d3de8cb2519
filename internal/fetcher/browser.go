package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod. It
// serves sources that only render their content with JavaScript.
type BrowserFetcher struct {
	browser   *rod.Browser
	cfg       *config.BrowserConfig
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	pagePool  chan *rod.Page
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:       &cfg.Browser,
		timeout:   cfg.Scraper.RequestTimeout,
		userAgent: configuredUserAgent(cfg.Scraper.Headers),
		logger:    logger.With("component", "browser_fetcher"),
	}

	launchURL, err := launcher.New().
		Headless(cfg.Browser.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.pagePool = make(chan *rod.Page, cfg.Browser.MaxPages)

	bf.logger.Info("browser fetcher ready",
		"max_pages", cfg.Browser.MaxPages,
		"stealth", cfg.Browser.Stealth,
	)

	return bf, nil
}

// Fetch navigates to the request URL and returns the rendered HTML.
func (bf *BrowserFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: true}
	}
	defer bf.releasePage(page, reusable(req))

	ua := req.Headers.Get("User-Agent")
	if ua == "" {
		ua = bf.userAgent
	}
	if ua != "" {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: ua})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	if extra := extraHeaders(req.Headers); len(extra) > 0 {
		restore, err := page.SetExtraHeaders(extra)
		if err != nil {
			bf.logger.Warn("failed to set headers", "error", err)
		} else {
			defer restore()
		}
	}

	if req.SkipTLSVerify {
		if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: true}).Call(page); err != nil {
			bf.logger.Warn("failed to relax certificate checks", "error", err)
		}
	}

	timeout := bf.timeout
	if req.Timeout > 0 {
		timeout = req.Timeout
	}
	p := page.Context(ctx).Timeout(timeout)

	// The main document's status is only visible through network events.
	statusCode := 0
	waitStatus := p.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		statusCode = e.Response.Status
		return true
	})

	if err := p.Navigate(req.URLString()); err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: ctx.Err() == nil}
	}
	waitStatus()

	if err := p.WaitStable(bf.cfg.WaitIdle); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", req.URLString(), "error", err)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: ctx.Err() == nil}
	}

	finalURL := req.URLString()
	if info, err := p.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	duration := time.Since(start)
	resp := types.NewBrowserResponse(req, statusCode, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", req.URLString(),
		"final_url", finalURL,
		"status", statusCode,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetch strategy this fetcher serves.
func (bf *BrowserFetcher) Type() string {
	return types.StrategyRendered
}

// getPage retrieves a page from the pool or opens a new one, patched
// against headless detection when stealth is on.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
	}
	if bf.cfg.Stealth {
		page, err := stealth.Page(bf.browser)
		if err != nil {
			return nil, fmt.Errorf("stealth page: %w", err)
		}
		return page, nil
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// configuredUserAgent finds the User-Agent in the configured default
// headers, whose keys may have been lowercased by the config loader.
func configuredUserAgent(headers map[string]string) string {
	for k, v := range headers {
		if http.CanonicalHeaderKey(k) == "User-Agent" {
			return v
		}
	}
	return config.DefaultUserAgent
}

// reusable reports whether a page may go back to the pool after serving
// req. Pages that had certificate checks relaxed are never reused.
func reusable(req *types.Request) bool {
	return !req.SkipTLSVerify
}

// extraHeaders flattens request headers other than User-Agent into the
// key/value list rod expects, in key order.
func extraHeaders(h http.Header) []string {
	keys := make([]string, 0, len(h))
	for k := range h {
		if http.CanonicalHeaderKey(k) != "User-Agent" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	extra := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		for _, v := range h[k] {
			extra = append(extra, k, v)
		}
	}
	return extra
}

// releasePage pools page when reuse is set and closes it otherwise.
func (bf *BrowserFetcher) releasePage(page *rod.Page, reuse bool) {
	if !reuse {
		if err := (proto.SecuritySetIgnoreCertificateErrors{Ignore: false}).Call(page); err != nil {
			bf.logger.Debug("failed to restore certificate checks", "error", err)
		}
		_ = page.Close()
		return
	}
	bf.putPage(page)
}

// putPage returns a page to the pool.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
