package pipeline

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/medfeed/internal/types"
)

// Middleware processes an article and returns the (possibly modified) article.
// Return nil to drop the article from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to drop it.
	Process(ctx context.Context, a *types.Article) (*types.Article, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order. An article
// that no longer satisfies Article.Validate afterwards is dropped.
func (p *Pipeline) Process(ctx context.Context, a *types.Article) (*types.Article, error) {
	current := a

	for _, mw := range p.middlewares {
		result, err := mw.Process(ctx, current)
		if err != nil {
			return nil, &types.PipelineError{Stage: mw.Name(), URL: a.SourceURL, Err: err}
		}
		if result == nil {
			p.logger.Debug("article dropped", "stage", mw.Name(), "source", a.SourceName)
			return nil, nil
		}
		current = result
	}

	if err := current.Validate(); err != nil {
		p.logger.Warn("article dropped after post-processing", "source", a.SourceName, "error", err)
		return nil, nil
	}
	return current, nil
}

// Run processes a batch. Articles that fail a stage are logged and left out
// of the result, as are dropped ones.
func (p *Pipeline) Run(ctx context.Context, articles []*types.Article) []*types.Article {
	out := make([]*types.Article, 0, len(articles))
	for _, a := range articles {
		result, err := p.Process(ctx, a)
		if err != nil {
			p.logger.Warn("article failed post-processing", "source", a.SourceName, "error", err)
			continue
		}
		if result != nil {
			out = append(out, result)
		}
	}
	return out
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware collapses runs of whitespace in the title and content.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(_ context.Context, a *types.Article) (*types.Article, error) {
	a.Title = strings.Join(strings.Fields(a.Title), " ")
	a.Content = collapseLines(a.Content)
	return a, nil
}

// collapseLines squeezes spaces inside each line and drops blank lines,
// keeping paragraph breaks.
func collapseLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// DedupMiddleware drops articles already seen in this run, keyed on source
// URL and title.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewDedupMiddleware() *DedupMiddleware {
	return &DedupMiddleware{seen: make(map[string]struct{})}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(_ context.Context, a *types.Article) (*types.Article, error) {
	key := a.SourceURL + "\x00" + a.Title

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[key]; exists {
		return nil, nil
	}
	m.seen[key] = struct{}{}
	return a, nil
}
