package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

// HTTPFetcher implements Fetcher using net/http. It keeps two clients: the
// default one verifies certificates, the lenient one is used only for
// requests that opt out with SkipTLSVerify.
type HTTPFetcher struct {
	client  *http.Client
	lenient *http.Client
	cfg     *config.FetcherConfig
	headers http.Header
	logger  *slog.Logger
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.Config, logger *slog.Logger) (*HTTPFetcher, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	redirectPolicy := func(req *http.Request, via []*http.Request) error {
		if !cfg.Fetcher.FollowRedirects {
			return http.ErrUseLastResponse
		}
		if len(via) >= cfg.Fetcher.MaxRedirects {
			return fmt.Errorf("max redirects (%d) reached", cfg.Fetcher.MaxRedirects)
		}
		return nil
	}

	headers := make(http.Header, len(cfg.Scraper.Headers))
	for k, v := range cfg.Scraper.Headers {
		headers.Set(k, v)
	}
	if headers.Get("User-Agent") == "" {
		headers.Set("User-Agent", config.DefaultUserAgent)
	}

	return &HTTPFetcher{
		client: &http.Client{
			Transport:     newTransport(&cfg.Fetcher, false),
			Jar:           jar,
			Timeout:       cfg.Scraper.RequestTimeout,
			CheckRedirect: redirectPolicy,
		},
		lenient: &http.Client{
			Transport:     newTransport(&cfg.Fetcher, true),
			Jar:           jar,
			Timeout:       cfg.Scraper.RequestTimeout,
			CheckRedirect: redirectPolicy,
		},
		cfg:     &cfg.Fetcher,
		headers: headers,
		logger:  logger.With("component", "http_fetcher"),
	}, nil
}

func newTransport(cfg *config.FetcherConfig, insecure bool) *http.Transport {
	t := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		MaxIdleConnsPerHost: cfg.MaxConnsPerHost,
		IdleConnTimeout:     cfg.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decoded in decompressReader, brotli included
	}
	if insecure {
		// Accepts any certificate. Only reachable through SkipTLSVerify.
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	return t
}

// Fetch executes an HTTP request and returns the response.
func (f *HTTPFetcher) Fetch(ctx context.Context, req *types.Request) (*types.Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URLString(), nil)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), Err: err, Retryable: false}
	}

	for key, values := range f.headers {
		httpReq.Header[key] = values
	}
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")
	for key, values := range req.Headers {
		for _, v := range values {
			httpReq.Header.Set(key, v)
		}
	}

	client := f.client
	if req.SkipTLSVerify {
		client = f.lenient
	}

	start := time.Now()
	httpResp, err := client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{
			URL:       req.URLString(),
			Err:       err,
			Retryable: isRetryableError(err),
		}
	}
	defer httpResp.Body.Close()

	var reader io.Reader = httpResp.Body
	if f.cfg.MaxBodySize > 0 {
		reader = io.LimitReader(reader, f.cfg.MaxBodySize)
	}

	reader, err = decompressReader(httpResp, reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}

	reader, err = charset.NewReader(reader, httpResp.Header.Get("Content-Type"))
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: httpResp.StatusCode, Err: fmt.Errorf("decode charset: %w", err), Retryable: true}
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, &types.FetchError{URL: req.URLString(), StatusCode: httpResp.StatusCode, Err: err, Retryable: true}
	}

	resp := types.NewResponse(req, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", req.URLString(),
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
		"insecure", req.SkipTLSVerify,
	)

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	f.lenient.CloseIdleConnections()
	return nil
}

// Type returns the fetch strategy this fetcher serves.
func (f *HTTPFetcher) Type() string {
	return types.StrategyStatic
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// isRetryableError checks if a transport error warrants a retry. Timeouts,
// resets, refused connections and TLS failures all do; only cancellation of
// the caller's context does not.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, context.Canceled)
}
