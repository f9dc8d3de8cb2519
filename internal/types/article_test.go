package types

import (
	"errors"
	"strings"
	"testing"
)

var testSpec = &SourceSpec{
	Name:       "downsideup",
	URL:        "https://downsideup.org:8443/ru/",
	Categories: []string{"parenting"},
	Language:   "ru",
}

func TestNewArticle(t *testing.T) {
	content := strings.Repeat("я", MinContentLength+1)
	a, err := NewArticle(testSpec, "  Заголовок ", " "+content+" ", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Title != "Заголовок" || a.Content != content {
		t.Errorf("text not trimmed: %q / %q", a.Title, a.Content)
	}
	if a.Keywords == nil {
		t.Error("keywords should be an empty slice, not nil")
	}

	if _, err := NewArticle(testSpec, "Заголовок", strings.Repeat("я", MinContentLength), nil); !errors.Is(err, ErrContentTooShort) {
		t.Errorf("expected ErrContentTooShort, got %v", err)
	}
	if _, err := NewArticle(testSpec, "   ", content, nil); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestArticleValidateAfterEdit(t *testing.T) {
	a, err := NewArticle(testSpec, "Заголовок", strings.Repeat("я", MinContentLength+1), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := a.Validate(); err != nil {
		t.Fatalf("fresh article invalid: %v", err)
	}

	a.Content = strings.Repeat("я", MinContentLength)
	if err := a.Validate(); !errors.Is(err, ErrContentTooShort) {
		t.Errorf("expected ErrContentTooShort, got %v", err)
	}

	a.Content = strings.Repeat("я", MinContentLength+1)
	a.Title = ""
	if err := a.Validate(); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("expected ErrEmptyTitle, got %v", err)
	}
}

func TestSourceSpecHost(t *testing.T) {
	if got := testSpec.Host(); got != "downsideup.org" {
		t.Errorf("Host() = %q", got)
	}
	bad := &SourceSpec{URL: "://broken"}
	if got := bad.Host(); got != "" {
		t.Errorf("Host() of bad url = %q", got)
	}
}
