package types

import (
	"fmt"
	"net/url"
	"strings"
)

// Selector field names every source must define.
const (
	FieldTitle   = "title"
	FieldContent = "content"
	FieldLink    = "link"
	FieldArticle = "article"
)

// RequiredFields lists the selector fields a SourceSpec must always carry.
var RequiredFields = []string{FieldTitle, FieldContent, FieldLink}

// Fetch strategies selected by SourceSpec.Strategy.
const (
	StrategyStatic   = "static"
	StrategyRendered = "rendered"
)

// SourceSpec describes one website to scrape. It is plain data and is never
// mutated after the registry has been loaded.
type SourceSpec struct {
	Name       string            `yaml:"name"            json:"name"`
	URL        string            `yaml:"url"             json:"url"`
	Categories []string          `yaml:"category"        json:"category"`
	Language   string            `yaml:"language"        json:"language"`
	Selectors  SelectorMap       `yaml:"selectors"       json:"selectors"`
	Headers    map[string]string `yaml:"headers"         json:"headers,omitempty"`
	RequiresJS bool              `yaml:"requires_js"     json:"requires_js"`

	// SkipTLSVerify accepts any certificate the site presents. It exists for
	// sources with broken certificate chains and must stay opt-in.
	SkipTLSVerify bool `yaml:"skip_tls_verify" json:"skip_tls_verify"`
}

// SelectorMap maps a field name to its selectors in priority order.
type SelectorMap map[string][]string

// Strategy returns the fetch strategy for the source.
func (s *SourceSpec) Strategy() string {
	if s.RequiresJS {
		return StrategyRendered
	}
	return StrategyStatic
}

// Host returns the hostname of the source URL, or "" if it does not parse.
func (s *SourceSpec) Host() string {
	u, err := url.Parse(s.URL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// HasCategory reports whether the source matches the requested category:
// either an exact tag, or a tag that appears inside the requested name.
func (s *SourceSpec) HasCategory(category string) bool {
	for _, tag := range s.Categories {
		if tag == category {
			return true
		}
	}
	for _, tag := range s.Categories {
		if strings.Contains(category, tag) {
			return true
		}
	}
	return false
}

// Validate checks the structural invariants of a source.
func (s *SourceSpec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidSource)
	}
	u, err := url.Parse(s.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %s: bad url %q", ErrInvalidSource, s.Name, s.URL)
	}
	if s.Language == "" {
		return fmt.Errorf("%w: %s: missing language", ErrInvalidSource, s.Name)
	}
	for _, field := range RequiredFields {
		if len(s.Selectors[field]) == 0 {
			return fmt.Errorf("%w: %s: no selectors for %q", ErrInvalidSource, s.Name, field)
		}
	}
	return nil
}
