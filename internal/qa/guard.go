package qa

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Limits applied to incoming questions.
const (
	MaxQuestionLength = 500
	MaxQuestionWords  = 500
)

// blockedTerms are matched case-insensitively as substrings of the question.
var blockedTerms = []string{
	"hack", "exploit", "injection", "malware", "trojans",
	"вирус", "атака", "взлом", "шпионаж", "паролей", "данные", "кража",
	"насилие", "оскорбление", "дискриминация",
}

// CheckQuestion rejects empty, oversized or unsafe questions.
func CheckQuestion(question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return ErrEmptyQuestion
	}
	if n := utf8.RuneCountInString(question); n > MaxQuestionLength {
		return fmt.Errorf("%w: %d characters, limit %d", ErrQuestionTooLong, n, MaxQuestionLength)
	}
	if n := len(strings.Fields(question)); n > MaxQuestionWords {
		return fmt.Errorf("%w: %d words, limit %d", ErrQuestionTooLong, n, MaxQuestionWords)
	}

	lower := strings.ToLower(question)
	for _, term := range blockedTerms {
		if strings.Contains(lower, term) {
			return fmt.Errorf("%w: contains %q", ErrQuestionRejected, term)
		}
	}
	return nil
}
