package fetcher

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/types"
)

func newTestHTTPFetcher(t *testing.T) *HTTPFetcher {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Scraper.RequestTimeout = 5 * time.Second
	f, err := NewHTTPFetcher(cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func mustRequest(t *testing.T, rawURL string) *types.Request {
	t.Helper()
	req, err := types.NewRequest(rawURL)
	require.NoError(t, err)
	return req
}

func TestHTTPFetcherMergesHeaders(t *testing.T) {
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(t)
	req := mustRequest(t, srv.URL)
	req.Headers.Set("User-Agent", "source-agent")

	resp, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, "source-agent", got.Get("User-Agent"))
	assert.Contains(t, got.Get("Accept-Language"), "ru-RU")
	assert.Contains(t, got.Get("Accept"), "text/html")
}

func TestHTTPFetcherReturnsNonOKResponses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("boom"))
	}))
	defer srv.Close()

	resp, err := newTestHTTPFetcher(t).Fetch(context.Background(), mustRequest(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.False(t, resp.IsAccepted())
	assert.True(t, resp.IsServerError())
}

func TestHTTPFetcherFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusFound)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := newTestHTTPFetcher(t).Fetch(context.Background(), mustRequest(t, srv.URL+"/old"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, srv.URL+"/new", resp.FinalURL)
	assert.Equal(t, "moved", string(resp.Body))
}

func TestHTTPFetcherDecodesBodies(t *testing.T) {
	const text = "<p>Сенсорная интеграция</p>"

	tests := []struct {
		name     string
		encoding string
		encode   func([]byte) []byte
	}{
		{"gzip", "gzip", func(b []byte) []byte {
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write(b)
			zw.Close()
			return buf.Bytes()
		}},
		{"brotli", "br", func(b []byte) []byte {
			var buf bytes.Buffer
			bw := brotli.NewWriter(&buf)
			bw.Write(b)
			bw.Close()
			return buf.Bytes()
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Header().Set("Content-Encoding", tt.encoding)
				w.Write(tt.encode([]byte(text)))
			}))
			defer srv.Close()

			resp, err := newTestHTTPFetcher(t).Fetch(context.Background(), mustRequest(t, srv.URL))
			require.NoError(t, err)
			assert.Equal(t, text, string(resp.Body))
		})
	}
}

func TestHTTPFetcherConvertsCharset(t *testing.T) {
	// "Привет" in windows-1251.
	cp1251 := []byte{0xcf, 0xf0, 0xe8, 0xe2, 0xe5, 0xf2}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=windows-1251")
		w.Write(cp1251)
	}))
	defer srv.Close()

	resp, err := newTestHTTPFetcher(t).Fetch(context.Background(), mustRequest(t, srv.URL))
	require.NoError(t, err)
	assert.Equal(t, "Привет", string(resp.Body))
}

func TestHTTPFetcherTLS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("secure"))
	}))
	defer srv.Close()

	f := newTestHTTPFetcher(t)

	_, err := f.Fetch(context.Background(), mustRequest(t, srv.URL))
	require.Error(t, err, "self-signed certificate must be rejected by default")
	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.IsRetryable())

	req := mustRequest(t, srv.URL)
	req.SkipTLSVerify = true
	resp, err := f.Fetch(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "secure", string(resp.Body))
}

func TestHTTPFetcherPerRequestTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	req := mustRequest(t, srv.URL)
	req.Timeout = 50 * time.Millisecond

	_, err := newTestHTTPFetcher(t).Fetch(context.Background(), req)
	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.True(t, fe.IsRetryable())
}

func TestHTTPFetcherCancelledIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestHTTPFetcher(t).Fetch(ctx, mustRequest(t, srv.URL))
	var fe *types.FetchError
	require.ErrorAs(t, err, &fe)
	assert.False(t, fe.IsRetryable())
}

func TestHTTPFetcherType(t *testing.T) {
	assert.Equal(t, types.StrategyStatic, newTestHTTPFetcher(t).Type())
}
