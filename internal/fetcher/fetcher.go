package fetcher

import (
	"context"

	"github.com/IshaanNene/medfeed/internal/types"
)

// Fetcher is the interface for all request fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at the given request's URL. A response is
	// returned for any HTTP status; deciding whether it is usable is up to
	// the caller.
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetch strategy the fetcher serves.
	Type() string
}
