package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/IshaanNene/medfeed/internal/textmatch"
	"github.com/IshaanNene/medfeed/internal/types"
)

// Outcome classifies a single fetch attempt.
type Outcome int

const (
	// OutcomeSuccess means an article was built.
	OutcomeSuccess Outcome = iota
	// OutcomeRetryable means the attempt failed but another may succeed.
	OutcomeRetryable
	// OutcomeFatal means no further attempt should be made.
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// AttemptResult is the result of one fetch-and-extract attempt.
type AttemptResult struct {
	Attempt    int
	Outcome    Outcome
	Strategy   string
	StatusCode int
	Article    *types.Article
	Err        error
	Duration   time.Duration
}

// SleepFunc waits for d or until ctx is done, whichever comes first.
type SleepFunc func(ctx context.Context, d time.Duration) error

// SleepContext is the default SleepFunc.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Backoff returns the wait after the given zero-based attempt:
// base doubled attempt times, capped at ceiling.
func Backoff(attempt int, base, ceiling time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt && d < ceiling; i++ {
		d *= 2
	}
	if d > ceiling {
		d = ceiling
	}
	return d
}

// FetchSource tries up to maxRetries times to build an article from src.
// It returns nil when the host does not resolve, on a fatal attempt, or
// once every attempt has failed. A maxRetries below one means the
// configured default.
func (e *Engine) FetchSource(ctx context.Context, src *types.SourceSpec, maxRetries int) *types.Article {
	if maxRetries < 1 {
		maxRetries = e.cfg.Scraper.MaxRetries
	}
	logger := e.logger.With("source", src.Name, "host", src.Host())
	e.stats.SourcesAttempted.Add(1)

	if !e.hosts.IsReachable(ctx, src.URL) {
		e.stats.HostsUnreachable.Add(1)
		e.recordSource(src, false)
		logger.Error("source skipped", "error", types.ErrHostUnreachable)
		return nil
	}

	var last AttemptResult
	for attempt := 0; attempt < maxRetries; attempt++ {
		last = e.attempt(ctx, src, attempt)
		e.stats.FetchAttempts.Add(1)
		e.metrics.ObserveFetch(last.Strategy, last.Outcome.String(), last.Duration)

		switch last.Outcome {
		case OutcomeSuccess:
			e.recordSource(src, true)
			logger.Info("article scraped",
				"attempt", attempt+1,
				"title", last.Article.Title,
			)
			return last.Article
		case OutcomeFatal:
			e.recordSource(src, false)
			logger.Error("scrape aborted", "attempt", attempt+1, "error", last.Err)
			return nil
		}

		logger.Warn("attempt failed",
			"attempt", attempt+1,
			"max_retries", maxRetries,
			"status", last.StatusCode,
			"error", last.Err,
		)

		if attempt < maxRetries-1 {
			delay := Backoff(attempt, e.cfg.Scraper.BackoffBase, e.cfg.Scraper.BackoffMax)
			logger.Debug("backing off", "delay", delay)
			if err := e.sleep(ctx, delay); err != nil {
				e.recordSource(src, false)
				logger.Error("scrape aborted while waiting", "error", err)
				return nil
			}
		}
	}

	e.recordSource(src, false)
	logger.Error("all attempts failed", "attempts", maxRetries, "error", last.Err)
	return nil
}

// attempt performs one fetch, status check, parse and extraction.
func (e *Engine) attempt(ctx context.Context, src *types.SourceSpec, n int) AttemptResult {
	start := time.Now()
	res := AttemptResult{Attempt: n, Strategy: src.Strategy()}
	done := func(outcome Outcome, err error) AttemptResult {
		res.Outcome = outcome
		res.Err = err
		res.Duration = time.Since(start)
		return res
	}

	req, err := types.NewSourceRequest(src)
	if err != nil {
		return done(OutcomeFatal, err)
	}
	req.Timeout = e.cfg.Scraper.RequestTimeout
	req.Attempt = n

	f, strategy, err := e.fetcherFor(req.Strategy)
	if err != nil {
		return done(OutcomeFatal, err)
	}
	res.Strategy = strategy

	resp, err := f.Fetch(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return done(OutcomeFatal, err)
		}
		var fe *types.FetchError
		if errors.As(err, &fe) && !fe.IsRetryable() {
			return done(OutcomeFatal, err)
		}
		return done(OutcomeRetryable, err)
	}
	res.StatusCode = resp.StatusCode
	e.stats.BytesDownloaded.Add(int64(len(resp.Body)))

	if !resp.IsAccepted() {
		return done(OutcomeRetryable, &types.FetchError{
			URL:        src.URL,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
			Retryable:  true,
		})
	}

	doc, err := resp.Document()
	if err != nil {
		return done(OutcomeRetryable, &types.ParseError{URL: src.URL, Err: err})
	}

	result := e.extractor.Extract(doc, src.Selectors)
	if missing := result.Missing(types.FieldTitle, types.FieldContent); len(missing) > 0 {
		return done(OutcomeRetryable, &types.ExtractError{URL: src.URL, Missing: missing})
	}

	content := result[types.FieldContent]
	article, err := types.NewArticle(src, result[types.FieldTitle], content,
		textmatch.ExtractKeywords(content, textmatch.DefaultMaxKeywords))
	if err != nil {
		return done(OutcomeRetryable, err)
	}

	res.Article = article
	return done(OutcomeSuccess, nil)
}

func (e *Engine) recordSource(src *types.SourceSpec, ok bool) {
	if ok {
		e.stats.SourcesSucceeded.Add(1)
	} else {
		e.stats.SourcesFailed.Add(1)
	}
	e.metrics.ObserveSource(src.Name, ok)
}
