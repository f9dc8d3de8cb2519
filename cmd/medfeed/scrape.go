package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/medfeed/internal/config"
	"github.com/IshaanNene/medfeed/internal/engine"
	"github.com/IshaanNene/medfeed/internal/fetcher"
	"github.com/IshaanNene/medfeed/internal/observability"
	"github.com/IshaanNene/medfeed/internal/pipeline"
	"github.com/IshaanNene/medfeed/internal/storage"
	"github.com/IshaanNene/medfeed/internal/types"
)

var (
	scrapeLang   string
	outputPath   string
	outputType   string
	concurrent   int
	maxRetries   int
	rewritePosts bool
	pageLimit    int
	pageInsecure bool
	pageRendered bool
)

// scrapeCmd creates the "scrape" subcommand.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape [category]",
		Short: "Scrape every source tagged with a category",
		Long: `Scrape every catalog source whose category matches and store the
articles. A source matches when one of its tags equals the category or
appears inside it.`,
		Args: cobra.ExactArgs(1),
		RunE: runScrape,
	}

	cmd.Flags().StringVarP(&scrapeLang, "lang", "l", "", "source language (default from config)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "output format: json, jsonl, csv, mongodb")
	cmd.Flags().IntVarP(&concurrent, "concurrency", "n", 0, "sources scraped in parallel")
	cmd.Flags().IntVar(&maxRetries, "max-retries", -1, "attempts per source (-1 = config)")
	cmd.Flags().BoolVar(&rewritePosts, "rewrite", false, "write a channel post for each article with the configured LLM")

	return cmd
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	applyCLIOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics := startMetrics(ctx, cfg, logger)
	eng, err := newEngine(cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer eng.Close()

	pipe, err := newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	category := args[0]
	logger.Info("starting scrape",
		"category", category,
		"language", scrapeLang,
		"concurrency", cfg.Scraper.Concurrency,
		"output", cfg.Storage.OutputPath,
		"format", cfg.Storage.Type,
	)

	start := time.Now()
	articles := eng.ScrapeByCategory(ctx, category, scrapeLang)
	articles = pipe.Run(ctx, articles)

	if err := store.Store(ctx, articles); err != nil {
		store.Close()
		return fmt.Errorf("store articles: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}

	stats := eng.Stats().Snapshot()
	logger.Info("scrape complete",
		"elapsed", time.Since(start),
		"articles", len(articles),
		"attempted", stats["sources_attempted"],
		"failed", stats["sources_failed"],
	)

	fmt.Printf("\nScrape of %q complete in %s\n", category, time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Sources:   %v attempted, %v failed, %v unreachable\n",
		stats["sources_attempted"], stats["sources_failed"], stats["hosts_unreachable"])
	fmt.Printf("   Articles:  %d stored\n", len(articles))
	fmt.Printf("   Output:    %s (%s)\n", cfg.Storage.OutputPath, cfg.Storage.Type)
	for _, a := range articles {
		fmt.Printf("   - %s: %s\n", a.SourceName, a.Title)
	}
	return nil
}

// pageCmd creates the "page" subcommand.
func pageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "page [url]",
		Short: "Extract teaser entries from a listing page",
		Args:  cobra.ExactArgs(1),
		RunE:  runPage,
	}

	cmd.Flags().IntVar(&pageLimit, "limit", 10, "maximum entries")
	cmd.Flags().BoolVar(&pageInsecure, "insecure", false, "skip TLS certificate verification")
	cmd.Flags().BoolVar(&pageRendered, "render", false, "render the page in a headless browser")

	return cmd
}

func runPage(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if pageRendered {
		cfg.Browser.Enabled = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := newEngine(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	entries, err := eng.ScrapePage(ctx, args[0], engine.PageOptions{
		Limit:         pageLimit,
		SkipTLSVerify: pageInsecure,
		Rendered:      pageRendered,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(entries)
}

// newEngine wires fetchers and sources into an engine.
func newEngine(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*engine.Engine, error) {
	reg, err := openSources(cfg)
	if err != nil {
		return nil, fmt.Errorf("load sources: %w", err)
	}

	eng, err := engine.New(cfg, logger, engine.WithSources(reg), engine.WithMetrics(metrics))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	httpFetcher, err := fetcher.NewHTTPFetcher(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	eng.SetFetcher(types.StrategyStatic, httpFetcher)

	if cfg.Browser.Enabled {
		browserFetcher, err := fetcher.NewBrowserFetcher(cfg, logger)
		if err != nil {
			logger.Warn("browser unavailable, rendered sources fall back to HTTP", "error", err)
		} else {
			eng.SetFetcher(types.StrategyRendered, browserFetcher)
		}
	}
	return eng, nil
}

// newPipeline builds the post-processing chain for scraped articles.
func newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline.Pipeline, error) {
	pipe := pipeline.New(logger)
	pipe.Use(&pipeline.TrimMiddleware{})
	pipe.Use(pipeline.NewPIIRedactMiddleware(logger))
	pipe.Use(pipeline.NewDedupMiddleware())

	if rewritePosts {
		cfg.AI.Enabled = true
		gen, err := newGenerator(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("create LLM client: %w", err)
		}
		pipe.Use(pipeline.NewRewriteMiddleware(gen, logger))
	}
	return pipe, nil
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if scrapeLang == "" {
		scrapeLang = cfg.Scraper.DefaultLanguage
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
	if concurrent > 0 {
		cfg.Scraper.Concurrency = concurrent
	}
	if maxRetries >= 0 {
		cfg.Scraper.MaxRetries = maxRetries
	}
}
