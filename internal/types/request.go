package types

import (
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Request represents a single page fetch.
type Request struct {
	// URL is the target URL to fetch.
	URL *url.URL

	// Method is the HTTP method. Defaults to GET.
	Method string

	// Headers are sent on top of the fetcher's defaults and win on conflict.
	Headers http.Header

	// Timeout bounds this single attempt. Zero means the fetcher default.
	Timeout time.Duration

	// Strategy selects the fetcher: StrategyStatic or StrategyRendered.
	Strategy string

	// SkipTLSVerify disables certificate verification for this request.
	SkipTLSVerify bool

	// Attempt is the zero-based retry attempt this request belongs to.
	Attempt int

	// CreatedAt is when this request was created.
	CreatedAt time.Time
}

// NewRequest creates a GET request with defaults.
func NewRequest(rawURL string) (*Request, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidURL, rawURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w %q: missing host", ErrInvalidURL, rawURL)
	}

	return &Request{
		URL:       u,
		Method:    http.MethodGet,
		Headers:   make(http.Header),
		Strategy:  StrategyStatic,
		CreatedAt: time.Now(),
	}, nil
}

// NewSourceRequest builds the request for one fetch attempt of a source.
func NewSourceRequest(src *SourceSpec) (*Request, error) {
	req, err := NewRequest(src.URL)
	if err != nil {
		return nil, err
	}
	for k, v := range src.Headers {
		req.Headers.Set(k, v)
	}
	req.Strategy = src.Strategy()
	req.SkipTLSVerify = src.SkipTLSVerify
	return req, nil
}

// URLString returns the string representation of the request URL.
func (r *Request) URLString() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.String()
}

// Domain returns the hostname of the request URL.
func (r *Request) Domain() string {
	if r.URL == nil {
		return ""
	}
	return r.URL.Hostname()
}
