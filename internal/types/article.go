package types

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MinContentLength is the number of characters an extracted field must
// exceed to be accepted.
const MinContentLength = 50

// Article is the structured result of a successful scrape of one source.
type Article struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Keywords    []string  `json:"keywords"`
	SourceName  string    `json:"source_name"`
	SourceURL   string    `json:"source_url"`
	Categories  []string  `json:"category"`
	Language    string    `json:"language"`
	RetrievedAt time.Time `json:"timestamp"`

	// Post is the channel post written from the article, when requested.
	Post string `json:"post,omitempty"`
}

// NewArticle builds an Article from extracted text. It refuses to build a
// record with an empty title or content at or below MinContentLength.
func NewArticle(src *SourceSpec, title, content string, keywords []string) (*Article, error) {
	title = strings.TrimSpace(title)
	content = strings.TrimSpace(content)
	if err := validateText(title, content); err != nil {
		return nil, err
	}
	if keywords == nil {
		keywords = []string{}
	}

	return &Article{
		ID:          uuid.New(),
		Title:       title,
		Content:     content,
		Keywords:    keywords,
		SourceName:  src.Name,
		SourceURL:   src.URL,
		Categories:  append([]string(nil), src.Categories...),
		Language:    src.Language,
		RetrievedAt: time.Now(),
	}, nil
}

// Validate re-checks the title and content rules NewArticle enforces. Code
// that edits an article after construction must call it before storing.
func (a *Article) Validate() error {
	return validateText(strings.TrimSpace(a.Title), strings.TrimSpace(a.Content))
}

func validateText(title, content string) error {
	if title == "" {
		return ErrEmptyTitle
	}
	if n := utf8.RuneCountInString(content); n <= MinContentLength {
		return fmt.Errorf("%w: %d characters", ErrContentTooShort, n)
	}
	return nil
}

// ToJSON serializes the article to JSON bytes.
func (a *Article) ToJSON() ([]byte, error) {
	return json.Marshal(a)
}

// ToFlatMap returns a flat map suitable for CSV export.
func (a *Article) ToFlatMap() map[string]string {
	return map[string]string{
		"id":          a.ID.String(),
		"title":       a.Title,
		"content":     a.Content,
		"keywords":    strings.Join(a.Keywords, ","),
		"source_name": a.SourceName,
		"source_url":  a.SourceURL,
		"category":    strings.Join(a.Categories, ","),
		"language":    a.Language,
		"timestamp":   a.RetrievedAt.Format(time.RFC3339),
		"post":        a.Post,
	}
}

// ListingEntry is one teaser scraped from an index page.
type ListingEntry struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	URL     string `json:"url"`
	Date    string `json:"date,omitempty"`
}
