package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/IshaanNene/medfeed/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const longContent = "Сенсорная интеграция помогает детям справляться с повседневными задачами дома и в школе."

func newArticle(title, content string) *types.Article {
	return &types.Article{
		Title:      title,
		Content:    content,
		SourceName: "downsideup",
		SourceURL:  "https://downsideup.org/",
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	a := newArticle("  Ранняя   помощь  ", "  Сенсорная   интеграция помогает детям \n\n   справляться с повседневными  задачами дома и в школе. ")
	result, err := p.Process(context.Background(), a)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result == nil {
		t.Fatal("valid article was dropped")
	}
	if result.Title != "Ранняя помощь" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	want := "Сенсорная интеграция помогает детям\nсправляться с повседневными задачами дома и в школе."
	if result.Content != want {
		t.Errorf("expected collapsed content, got %q", result.Content)
	}
}

func TestPipelineKeepsAngleBrackets(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(NewPIIRedactMiddleware(testLogger))

	content := "Если вес ребенка < 10 кг, а рост > 80 см, стоит обратиться к педиатру за консультацией."
	result, err := p.Process(context.Background(), newArticle("Нормы роста", content))
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result == nil || result.Content != content {
		t.Fatalf("content changed: %+v", result)
	}
}

// shortenMiddleware cuts content down to n runes.
type shortenMiddleware struct{ n int }

func (shortenMiddleware) Name() string { return "shorten" }

func (m shortenMiddleware) Process(_ context.Context, a *types.Article) (*types.Article, error) {
	a.Content = string([]rune(a.Content)[:m.n])
	return a, nil
}

type blankTitleMiddleware struct{}

func (blankTitleMiddleware) Name() string { return "blank_title" }

func (blankTitleMiddleware) Process(_ context.Context, a *types.Article) (*types.Article, error) {
	a.Title = "  "
	return a, nil
}

func TestPipelineDropsArticlesBrokenByStages(t *testing.T) {
	tests := []struct {
		name string
		mw   Middleware
		kept bool
	}{
		{"content cut to limit", shortenMiddleware{n: types.MinContentLength}, false},
		{"content just over limit", shortenMiddleware{n: types.MinContentLength + 1}, true},
		{"title blanked", blankTitleMiddleware{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(testLogger)
			p.Use(tt.mw)

			out := p.Run(context.Background(), []*types.Article{newArticle("Заголовок", longContent)})
			if got := len(out) == 1; got != tt.kept {
				t.Errorf("kept = %v, want %v", got, tt.kept)
			}
		})
	}
}

func TestDedupMiddleware(t *testing.T) {
	p := New(testLogger)
	p.Use(NewDedupMiddleware())

	batch := []*types.Article{
		newArticle("Один", longContent),
		newArticle("Один", longContent+" Ещё абзац."),
		newArticle("Два", longContent),
	}
	out := p.Run(context.Background(), batch)
	if len(out) != 2 {
		t.Fatalf("expected 2 articles after dedup, got %d", len(out))
	}
	if out[1].Title != "Два" {
		t.Errorf("expected order kept, got %q", out[1].Title)
	}
}

func TestPIIRedactMiddleware(t *testing.T) {
	m := NewPIIRedactMiddleware(testLogger)
	a := newArticle("Контакты", "Пишите на mama@example.ru или звоните +7 (912) 345-67-89, карта 1234 5678 9012 3456.")

	result, err := m.Process(context.Background(), a)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, leaked := range []string{"mama@example.ru", "345-67-89", "9012"} {
		if strings.Contains(result.Content, leaked) {
			t.Errorf("content still contains %q: %s", leaked, result.Content)
		}
	}
	for _, marker := range []string{"[REDACTED_EMAIL]", "[REDACTED_PHONE]", "[REDACTED_CARD]"} {
		if !strings.Contains(result.Content, marker) {
			t.Errorf("content missing %s: %s", marker, result.Content)
		}
	}
}

type stubGenerator struct {
	post string
	err  error
}

func (g stubGenerator) Generate(context.Context, string) (string, error) { return g.post, g.err }

func TestRewriteMiddleware(t *testing.T) {
	m := NewRewriteMiddleware(stubGenerator{post: "Текст поста"}, testLogger)
	result, err := m.Process(context.Background(), newArticle("Заголовок", longContent))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.Post, "Текст поста") {
		t.Errorf("post missing generated body: %q", result.Post)
	}
	if !strings.Contains(result.Post, "🌐 Источник: downsideup") {
		t.Errorf("post missing attribution: %q", result.Post)
	}

	m = NewRewriteMiddleware(stubGenerator{err: errors.New("quota")}, testLogger)
	result, err = m.Process(context.Background(), newArticle("Заголовок", longContent))
	if err != nil || result == nil {
		t.Fatalf("generation failure should keep the article, got %v, %v", result, err)
	}
	if result.Post != "" {
		t.Errorf("post should be empty, got %q", result.Post)
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(context.Context, *types.Article) (*types.Article, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorNamesStage(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, err := p.Process(context.Background(), newArticle("a", longContent))
	var pe *types.PipelineError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if pe.Stage != "failing" {
		t.Errorf("stage = %q", pe.Stage)
	}

	if out := p.Run(context.Background(), []*types.Article{newArticle("a", longContent)}); len(out) != 0 {
		t.Errorf("failed article should be left out, got %d", len(out))
	}
	if p.Len() != 2 {
		t.Errorf("Len = %d", p.Len())
	}
}
