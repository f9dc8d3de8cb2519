// Package textmatch normalizes free text and scores how closely two texts
// overlap. It backs the fuzzy question lookup and article keyword tags.
package textmatch

import (
	"strings"
	"unicode"
)

// edgeCutset is trimmed from both ends before anything else happens.
const edgeCutset = "?.,()[] "

// homoglyphs folds look-alike letters onto one canonical form. Applied after
// lowercasing, so only lowercase keys are needed.
var homoglyphs = strings.NewReplacer(
	"ё", "е",
)

// Normalize prepares text for comparison: edge punctuation is trimmed, the
// text is lowercased, remaining punctuation is dropped, homoglyphs are folded
// and whitespace is collapsed. Normalize(Normalize(x)) == Normalize(x).
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	text = strings.Trim(text, edgeCutset)
	text = strings.ToLower(text)
	text = strings.Map(func(r rune) rune {
		if isWordRune(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, text)
	text = homoglyphs.Replace(text)

	return strings.Join(strings.Fields(text), " ")
}

// Tokens returns the words of the normalized text.
func Tokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// isWordRune matches the Unicode notion of a word character: letters,
// numbers and the underscore.
func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
