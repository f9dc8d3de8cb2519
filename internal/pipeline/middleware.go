package pipeline

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/IshaanNene/medfeed/internal/ai"
	"github.com/IshaanNene/medfeed/internal/types"
)

type piiPattern struct {
	kind string
	re   *regexp.Regexp
}

// PIIRedactMiddleware masks contact details that forum posts tend to carry.
type PIIRedactMiddleware struct {
	patterns []piiPattern
	logger   *slog.Logger
}

func NewPIIRedactMiddleware(logger *slog.Logger) *PIIRedactMiddleware {
	return &PIIRedactMiddleware{
		// Order matters: card numbers before phones.
		patterns: []piiPattern{
			{"email", regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)},
			{"card", regexp.MustCompile(`\b(?:\d{4}[-\s]?){3}\d{4}\b`)},
			{"phone", regexp.MustCompile(`(?:\+7|\b8)[\s\-]?\(?\d{3}\)?[\s\-]?\d{3}[\s\-]?\d{2}[\s\-]?\d{2}\b`)},
		},
		logger: logger.With("component", "pii_redact"),
	}
}

func (m *PIIRedactMiddleware) Name() string { return "pii_redact" }

func (m *PIIRedactMiddleware) Process(_ context.Context, a *types.Article) (*types.Article, error) {
	for _, p := range m.patterns {
		if p.re.MatchString(a.Content) {
			a.Content = p.re.ReplaceAllString(a.Content, "[REDACTED_"+strings.ToUpper(p.kind)+"]")
			m.logger.Debug("PII redacted", "source", a.SourceName, "type", p.kind)
		}
	}
	return a, nil
}

// RewriteMiddleware asks a generator to write a channel post for each
// article and stores it in Article.Post. Generation failures keep the
// article without a post.
type RewriteMiddleware struct {
	gen    ai.Generator
	logger *slog.Logger
}

func NewRewriteMiddleware(gen ai.Generator, logger *slog.Logger) *RewriteMiddleware {
	return &RewriteMiddleware{gen: gen, logger: logger.With("component", "rewrite")}
}

func (m *RewriteMiddleware) Name() string { return "rewrite" }

func (m *RewriteMiddleware) Process(ctx context.Context, a *types.Article) (*types.Article, error) {
	post, err := ai.WritePost(ctx, m.gen, a)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		m.logger.Warn("post generation failed", "source", a.SourceName, "error", err)
		return a, nil
	}
	a.Post = post
	return a, nil
}
