package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment.
// Priority (highest to lowest): env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("MEDFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("medfeed")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".medfeed"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers default values in viper so env overrides resolve.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.concurrency", cfg.Scraper.Concurrency)
	v.SetDefault("scraper.request_timeout", cfg.Scraper.RequestTimeout)
	v.SetDefault("scraper.max_retries", cfg.Scraper.MaxRetries)
	v.SetDefault("scraper.backoff_base", cfg.Scraper.BackoffBase)
	v.SetDefault("scraper.backoff_max", cfg.Scraper.BackoffMax)
	v.SetDefault("scraper.min_content_length", cfg.Scraper.MinContentLength)
	v.SetDefault("scraper.host_cache_size", cfg.Scraper.HostCacheSize)
	v.SetDefault("scraper.default_language", cfg.Scraper.DefaultLanguage)
	v.SetDefault("scraper.headers", cfg.Scraper.Headers)

	v.SetDefault("fetcher.follow_redirects", cfg.Fetcher.FollowRedirects)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_conns_per_host", cfg.Fetcher.MaxConnsPerHost)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)

	v.SetDefault("browser.enabled", cfg.Browser.Enabled)
	v.SetDefault("browser.headless", cfg.Browser.Headless)
	v.SetDefault("browser.stealth", cfg.Browser.Stealth)
	v.SetDefault("browser.max_pages", cfg.Browser.MaxPages)
	v.SetDefault("browser.wait_idle", cfg.Browser.WaitIdle)

	v.SetDefault("sources.file", cfg.Sources.File)

	v.SetDefault("qa.dsn", cfg.QA.DSN)
	v.SetDefault("qa.threshold", cfg.QA.Threshold)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.output_path", cfg.Storage.OutputPath)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.database", cfg.Storage.Database)
	v.SetDefault("storage.collection", cfg.Storage.Collection)
	v.SetDefault("storage.mirrors", cfg.Storage.Mirrors)

	v.SetDefault("ai.enabled", cfg.AI.Enabled)
	v.SetDefault("ai.provider", cfg.AI.Provider)
	v.SetDefault("ai.model", cfg.AI.Model)
	v.SetDefault("ai.endpoint", cfg.AI.Endpoint)
	v.SetDefault("ai.api_key", cfg.AI.APIKey)
	v.SetDefault("ai.timeout", cfg.AI.Timeout)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.addr", cfg.Metrics.Addr)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
