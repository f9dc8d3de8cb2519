package textmatch

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxKeywords caps ExtractKeywords when the caller passes zero.
const DefaultMaxKeywords = 10

var stopWords = map[string]struct{}{
	"это": {}, "что": {}, "как": {}, "для": {}, "или": {}, "но": {}, "и": {},
}

// ExtractKeywords picks tag candidates from content: lowercase words longer
// than three characters that are not stop words, deduplicated, in order of
// first appearance, at most limit of them.
func ExtractKeywords(content string, limit int) []string {
	if limit <= 0 {
		limit = DefaultMaxKeywords
	}

	seen := make(map[string]struct{})
	keywords := make([]string, 0, limit)

	words := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !isWordRune(r)
	})
	for _, w := range words {
		if utf8.RuneCountInString(w) <= 3 {
			continue
		}
		if _, stop := stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
		if len(keywords) == limit {
			break
		}
	}

	return keywords
}
