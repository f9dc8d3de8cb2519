package types

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common failure modes.
var (
	ErrHostUnreachable      = errors.New("host unreachable")
	ErrIncompleteExtraction = errors.New("incomplete extraction")
	ErrContentTooShort      = errors.New("content too short")
	ErrEmptyTitle           = errors.New("empty title")
	ErrInvalidSource        = errors.New("invalid source")
	ErrInvalidURL           = errors.New("invalid URL")
	ErrNoFetcher            = errors.New("no fetcher available for request")
	ErrNoAnswer             = errors.New("no answer available")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ExtractError reports fields that no selector could fill.
type ExtractError struct {
	URL     string
	Missing []string
}

func (e *ExtractError) Error() string {
	return fmt.Sprintf("extraction for %s missing fields: %s", e.URL, strings.Join(e.Missing, ", "))
}

func (e *ExtractError) Unwrap() error { return ErrIncompleteExtraction }

// ParseError wraps errors raised while evaluating a single selector.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors raised by a post-processing stage.
type PipelineError struct {
	Stage string
	URL   string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q for %s: %v", e.Stage, e.URL, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
