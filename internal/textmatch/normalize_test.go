package textmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"edge punctuation", "(Как дела?)", "как дела"},
		{"inner punctuation", "Привет, мир!", "привет мир"},
		{"yo folding", "Ёжик ёлка", "ежик елка"},
		{"whitespace runs", "  много \t\n  пробелов  ", "много пробелов"},
		{"underscore kept", "snake_case word", "snake_case word"},
		{"digits kept", "Шаг 2: 3 раза", "шаг 2 3 раза"},
		{"only punctuation", "?!...", ""},
		{"latin", "Hello, World!!!", "hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"Привет, мир!",
		"  [Вопрос]: как помочь ребёнку?? ",
		"Ёлка — это «дерево»…",
		"mixed Latin и кириллица, 42!",
		"İstanbul",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestNormalizeCaseAndPunctuationInsensitive(t *testing.T) {
	assert.Equal(t, Normalize("привет мир"), Normalize("Привет, мир!"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"как", "помочь", "ребенку"}, Tokens("Как помочь ребёнку?"))
	assert.Empty(t, Tokens("?..."))
}
