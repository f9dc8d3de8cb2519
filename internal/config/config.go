package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for medfeed.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper" yaml:"scraper"`
	Fetcher FetcherConfig `mapstructure:"fetcher" yaml:"fetcher"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Sources SourcesConfig `mapstructure:"sources" yaml:"sources"`
	QA      QAConfig      `mapstructure:"qa"      yaml:"qa"`
	Storage StorageConfig `mapstructure:"storage" yaml:"storage"`
	AI      AIConfig      `mapstructure:"ai"      yaml:"ai"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// ScraperConfig controls the retrying fetch of a source and the category fan-out.
type ScraperConfig struct {
	Concurrency      int               `mapstructure:"concurrency"        yaml:"concurrency"`
	RequestTimeout   time.Duration     `mapstructure:"request_timeout"    yaml:"request_timeout"`
	MaxRetries       int               `mapstructure:"max_retries"        yaml:"max_retries"`
	BackoffBase      time.Duration     `mapstructure:"backoff_base"       yaml:"backoff_base"`
	BackoffMax       time.Duration     `mapstructure:"backoff_max"        yaml:"backoff_max"`
	MinContentLength int               `mapstructure:"min_content_length" yaml:"min_content_length"`
	HostCacheSize    int               `mapstructure:"host_cache_size"    yaml:"host_cache_size"`
	DefaultLanguage  string            `mapstructure:"default_language"   yaml:"default_language"`
	Headers          map[string]string `mapstructure:"headers"            yaml:"headers"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	FollowRedirects bool          `mapstructure:"follow_redirects"   yaml:"follow_redirects"`
	MaxRedirects    int           `mapstructure:"max_redirects"      yaml:"max_redirects"`
	MaxBodySize     int64         `mapstructure:"max_body_size"      yaml:"max_body_size"`
	MaxConnsPerHost int           `mapstructure:"max_conns_per_host" yaml:"max_conns_per_host"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout"  yaml:"idle_conn_timeout"`
}

// BrowserConfig controls the headless browser used for rendered sources.
type BrowserConfig struct {
	Enabled  bool          `mapstructure:"enabled"   yaml:"enabled"`
	Headless bool          `mapstructure:"headless"  yaml:"headless"`
	Stealth  bool          `mapstructure:"stealth"   yaml:"stealth"`
	MaxPages int           `mapstructure:"max_pages" yaml:"max_pages"`
	WaitIdle time.Duration `mapstructure:"wait_idle" yaml:"wait_idle"`
}

// SourcesConfig points at the source catalog. An empty file means the
// built-in catalog.
type SourcesConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// QAConfig controls the question/answer store.
type QAConfig struct {
	DSN       string  `mapstructure:"dsn"       yaml:"dsn"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// StorageConfig controls article output.
type StorageConfig struct {
	Type       string `mapstructure:"type"        yaml:"type"`
	OutputPath string `mapstructure:"output_path" yaml:"output_path"`
	MongoURI   string `mapstructure:"mongo_uri"   yaml:"mongo_uri"`
	Database   string `mapstructure:"database"    yaml:"database"`
	Collection string `mapstructure:"collection"  yaml:"collection"`

	// Mirrors lists further backend types that receive every batch.
	Mirrors []string `mapstructure:"mirrors" yaml:"mirrors"`
}

// AIConfig controls LLM integration.
type AIConfig struct {
	Enabled  bool          `mapstructure:"enabled"  yaml:"enabled"`
	Provider string        `mapstructure:"provider" yaml:"provider"`
	Model    string        `mapstructure:"model"    yaml:"model"`
	Endpoint string        `mapstructure:"endpoint" yaml:"endpoint"`
	APIKey   string        `mapstructure:"api_key"  yaml:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"  yaml:"timeout"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Addr    string `mapstructure:"addr"    yaml:"addr"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultUserAgent is sent when neither the config nor the source sets one.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			Concurrency:      3,
			RequestTimeout:   60 * time.Second,
			MaxRetries:       3,
			BackoffBase:      1 * time.Second,
			BackoffMax:       10 * time.Second,
			MinContentLength: 50,
			HostCacheSize:    100,
			DefaultLanguage:  "ru",
			Headers: map[string]string{
				"User-Agent":      DefaultUserAgent,
				"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
				"Accept-Language": "ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
			},
		},
		Fetcher: FetcherConfig{
			FollowRedirects: true,
			MaxRedirects:    10,
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxConnsPerHost: 1,
			IdleConnTimeout: 90 * time.Second,
		},
		Browser: BrowserConfig{
			Enabled:  false,
			Headless: true,
			Stealth:  true,
			MaxPages: 2,
			WaitIdle: 2 * time.Second,
		},
		QA: QAConfig{
			DSN:       "medfeed.db",
			Threshold: 70,
		},
		Storage: StorageConfig{
			Type:       "jsonl",
			OutputPath: "./output",
			Database:   "medfeed",
			Collection: "articles",
		},
		AI: AIConfig{
			Enabled:  false,
			Provider: "gemini",
			Model:    "gemini-2.0-flash",
			Timeout:  60 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
			Path:    "/metrics",
		},
	}
}
