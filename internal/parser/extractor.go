package parser

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/medfeed/internal/types"
)

// XPathPrefix marks a selector as an XPath expression instead of CSS.
const XPathPrefix = "xpath:"

// ExtractionResult maps a field name to the text found for it. A field
// with no qualifying match is absent.
type ExtractionResult map[string]string

// Get returns the value of field and whether it was found.
func (r ExtractionResult) Get(field string) (string, bool) {
	v, ok := r[field]
	return v, ok
}

// Missing returns the fields from want that have no value.
func (r ExtractionResult) Missing(want ...string) []string {
	var missing []string
	for _, f := range want {
		if _, ok := r[f]; !ok {
			missing = append(missing, f)
		}
	}
	return missing
}

// Extractor pulls field text out of a document using prioritized selectors.
type Extractor struct {
	minLength int
	logger    *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithMinLength sets how many characters a text must exceed to be taken.
func WithMinLength(n int) ExtractorOption {
	return func(e *Extractor) { e.minLength = n }
}

// NewExtractor creates an extractor with the default length threshold.
func NewExtractor(logger *slog.Logger, opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		minLength: types.MinContentLength,
		logger:    logger.With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fills one value per field. For each field the selectors are
// tried in order, and within a selector the matches in document order; the
// first text longer than the threshold wins and ends the search for that
// field. Broken selectors are logged and skipped.
func (e *Extractor) Extract(doc *goquery.Document, selectors types.SelectorMap) ExtractionResult {
	result := make(ExtractionResult)

	for _, field := range fieldOrder(selectors) {
		for _, sel := range selectors[field] {
			text, ok := e.firstQualifying(doc, field, sel)
			if !ok {
				continue
			}
			result[field] = text
			e.logger.Debug("field found",
				"field", field,
				"selector", sel,
				"length", utf8.RuneCountInString(text),
			)
			break
		}
		if _, ok := result[field]; !ok {
			e.logger.Debug("field not found", "field", field)
		}
	}

	return result
}

// fieldOrder lists title, content and article first, then any other field
// of the selector map in name order.
func fieldOrder(selectors types.SelectorMap) []string {
	order := []string{types.FieldTitle, types.FieldContent, types.FieldArticle}
	var extra []string
	for f := range selectors {
		switch f {
		case types.FieldTitle, types.FieldContent, types.FieldArticle:
		default:
			extra = append(extra, f)
		}
	}
	sort.Strings(extra)
	return append(order, extra...)
}

func (e *Extractor) firstQualifying(doc *goquery.Document, field, selector string) (string, bool) {
	selector = strings.TrimSpace(selector)
	if selector == "" {
		return "", false
	}

	if expr, ok := strings.CutPrefix(selector, XPathPrefix); ok {
		return e.firstQualifyingXPath(doc, field, expr)
	}

	matcher, err := cascadia.Compile(selector)
	if err != nil {
		e.logger.Warn("invalid selector",
			"field", field,
			"selector", selector,
			"error", &types.ParseError{Selector: selector, Err: err},
		)
		return "", false
	}

	var found string
	doc.FindMatcher(matcher).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := strings.TrimSpace(s.Text())
		if e.qualifies(text) {
			found = text
			return false
		}
		return true
	})
	return found, found != ""
}

func (e *Extractor) firstQualifyingXPath(doc *goquery.Document, field, expr string) (string, bool) {
	if len(doc.Nodes) == 0 {
		return "", false
	}
	nodes, err := htmlquery.QueryAll(doc.Nodes[0], expr)
	if err != nil {
		e.logger.Warn("invalid xpath",
			"field", field,
			"selector", expr,
			"error", &types.ParseError{Selector: XPathPrefix + expr, Err: err},
		)
		return "", false
	}
	for _, n := range nodes {
		if text := strings.TrimSpace(nodeText(n)); e.qualifies(text) {
			return text, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	return htmlquery.InnerText(n)
}

func (e *Extractor) qualifies(text string) bool {
	return utf8.RuneCountInString(text) > e.minLength
}
