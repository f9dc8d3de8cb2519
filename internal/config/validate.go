package config

import (
	"fmt"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	s := cfg.Scraper
	if s.Concurrency < 1 {
		return fmt.Errorf("scraper.concurrency must be >= 1, got %d", s.Concurrency)
	}
	if s.Concurrency > 100 {
		return fmt.Errorf("scraper.concurrency must be <= 100, got %d", s.Concurrency)
	}
	if s.RequestTimeout <= 0 {
		return fmt.Errorf("scraper.request_timeout must be > 0")
	}
	if s.MaxRetries < 1 {
		return fmt.Errorf("scraper.max_retries must be >= 1, got %d", s.MaxRetries)
	}
	if s.BackoffBase < 0 || s.BackoffMax < 0 {
		return fmt.Errorf("scraper backoff durations must be >= 0")
	}
	if s.BackoffMax < s.BackoffBase {
		return fmt.Errorf("scraper.backoff_max (%s) must be >= scraper.backoff_base (%s)", s.BackoffMax, s.BackoffBase)
	}
	if s.MinContentLength < 0 {
		return fmt.Errorf("scraper.min_content_length must be >= 0, got %d", s.MinContentLength)
	}
	if s.HostCacheSize < 1 {
		return fmt.Errorf("scraper.host_cache_size must be >= 1, got %d", s.HostCacheSize)
	}

	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}
	if cfg.Fetcher.MaxConnsPerHost < 1 {
		return fmt.Errorf("fetcher.max_conns_per_host must be >= 1, got %d", cfg.Fetcher.MaxConnsPerHost)
	}

	if cfg.Browser.Enabled && cfg.Browser.MaxPages < 1 {
		return fmt.Errorf("browser.max_pages must be >= 1, got %d", cfg.Browser.MaxPages)
	}

	if cfg.QA.Threshold < 0 || cfg.QA.Threshold > 100 {
		return fmt.Errorf("qa.threshold must be within 0-100, got %v", cfg.QA.Threshold)
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongodb": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongodb)", cfg.Storage.Type)
	}
	seen := map[string]bool{cfg.Storage.Type: true}
	for _, m := range cfg.Storage.Mirrors {
		if !validStorageTypes[m] {
			return fmt.Errorf("storage.mirrors: %q is not supported (valid: json, jsonl, csv, mongodb)", m)
		}
		if seen[m] {
			return fmt.Errorf("storage.mirrors: %q is listed twice", m)
		}
		seen[m] = true
	}
	if seen["mongodb"] && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}

	if cfg.AI.Enabled {
		switch cfg.AI.Provider {
		case "gemini", "openai", "ollama":
		default:
			return fmt.Errorf("ai.provider must be gemini/openai/ollama, got %q", cfg.AI.Provider)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	return nil
}
