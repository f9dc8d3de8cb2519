package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/medfeed/internal/ai"
	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/observability"
	"github.com/IshaanNene/medfeed/internal/sources"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "medfeed",
		Short: "medfeed - content feed for parents of children with special needs",
		Long: `medfeed scrapes articles from a catalog of parenting and medical
websites, answers questions from a fuzzy-matched QA store, and can
turn scraped articles into channel posts with an LLM.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(pageCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(postCmd())
	rootCmd.AddCommand(qaCmd())
	rootCmd.AddCommand(sourcesCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, setupLogger(&cfg.Logging), nil
}

// setupLogger creates a structured logger on stderr.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// startMetrics serves Prometheus metrics until ctx is done. It returns nil
// when metrics are disabled; Observe* methods accept a nil receiver.
func startMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	m := observability.NewMetrics(logger)
	go func() {
		if err := m.Serve(ctx, cfg.Metrics.Addr, cfg.Metrics.Path); err != nil {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	return m
}

// openSources returns the configured catalog file, or the built-in one.
func openSources(cfg *config.Config) (*sources.Registry, error) {
	if cfg.Sources.File == "" {
		return sources.Default(), nil
	}
	return sources.Open(cfg.Sources.File)
}

// newGenerator builds the LLM client, or returns nil when AI is disabled.
func newGenerator(cfg *config.Config, logger *slog.Logger) (*ai.LLMClient, error) {
	if !cfg.AI.Enabled {
		return nil, nil
	}
	return ai.NewLLMClient(&cfg.AI, logger)
}

// postCmd creates the "post" subcommand, which writes a post on a topic
// without a source article.
func postCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "post [topic]",
		Short: "Generate a channel post on a topic with the LLM",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			gen, err := newGenerator(cfg, logger)
			if err != nil {
				return err
			}
			if gen == nil {
				return fmt.Errorf("post requires ai.enabled")
			}
			post, err := ai.WriteTopicPost(cmd.Context(), gen, strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Println(post)
			return nil
		},
	}
}

// sourcesCmd creates the "sources" subcommand.
func sourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sources",
		Short: "List the source catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}
			reg, err := openSources(cfg)
			if err != nil {
				return err
			}
			for _, src := range reg.All() {
				fmt.Printf("%-26s %-5s %-8s %s\n", src.Name, src.Language, src.Strategy(), src.URL)
				fmt.Printf("%-26s categories: %s\n", "", strings.Join(src.Categories, ", "))
			}
			fmt.Printf("\n%d sources, categories: %s\n", reg.Len(), strings.Join(reg.Categories(), ", "))
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("medfeed %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			fmt.Printf("Scraper:\n")
			fmt.Printf("  Concurrency:       %d\n", cfg.Scraper.Concurrency)
			fmt.Printf("  Request Timeout:   %s\n", cfg.Scraper.RequestTimeout)
			fmt.Printf("  Max Retries:       %d\n", cfg.Scraper.MaxRetries)
			fmt.Printf("  Backoff:           %s base, %s cap\n", cfg.Scraper.BackoffBase, cfg.Scraper.BackoffMax)
			fmt.Printf("  Min Content:       %d characters\n", cfg.Scraper.MinContentLength)
			fmt.Printf("  Host Cache:        %d entries\n", cfg.Scraper.HostCacheSize)
			fmt.Printf("  Language:          %s\n", cfg.Scraper.DefaultLanguage)
			fmt.Printf("\nFetcher:\n")
			fmt.Printf("  Follow Redirects:  %v (max %d)\n", cfg.Fetcher.FollowRedirects, cfg.Fetcher.MaxRedirects)
			fmt.Printf("  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Browser.Enabled)
			fmt.Printf("  Stealth:           %v\n", cfg.Browser.Stealth)
			fmt.Printf("\nSources:\n")
			if cfg.Sources.File == "" {
				fmt.Printf("  File:              (built-in catalog)\n")
			} else {
				fmt.Printf("  File:              %s\n", cfg.Sources.File)
			}
			fmt.Printf("\nQA:\n")
			fmt.Printf("  DSN:               %s\n", cfg.QA.DSN)
			fmt.Printf("  Threshold:         %.0f\n", cfg.QA.Threshold)
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:              %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Printf("\nAI:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.AI.Enabled)
			fmt.Printf("  Provider:          %s (%s)\n", cfg.AI.Provider, cfg.AI.Model)
			fmt.Printf("  API Key:           %s\n", maskSecret(cfg.AI.APIKey))
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Address:           %s%s\n", cfg.Metrics.Addr, cfg.Metrics.Path)
			return nil
		},
	}
}

func maskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	return "****"
}
