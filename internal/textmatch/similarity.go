package textmatch

import (
	"log/slog"
	"strings"
)

// DefaultThreshold is the minimum similarity a stored question needs to be
// returned as a match.
const DefaultThreshold = 70.0

// QAPair is a stored question with its answer.
type QAPair struct {
	ID       int64
	Question string
	Answer   string
}

// Similarity scores the word overlap of a and b in the range [0, 100].
//
// A word of a counts as matched when some word of b contains it or is
// contained in it; each word of a counts at most once. The count is divided
// by the larger of the two word counts. Short words match generously (a
// one-letter token is a substring of many words); stored pairs were matched
// under this rule, so it is kept as is.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}

	wordsA := Tokens(a)
	wordsB := Tokens(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	matched := 0
	for _, wa := range wordsA {
		for _, wb := range wordsB {
			if strings.Contains(wb, wa) || strings.Contains(wa, wb) {
				matched++
				break
			}
		}
	}

	return float64(matched) / float64(max(len(wordsA), len(wordsB))) * 100
}

// Match is a candidate together with its score.
type Match struct {
	Pair  QAPair
	Score float64
}

// FindBestMatch returns the candidate whose question scores highest against
// question, provided that score reaches threshold. Ties keep the earlier
// candidate. A candidate scoring zero is never returned.
func FindBestMatch(question string, candidates []QAPair, threshold float64) (*Match, bool) {
	var best *Match
	bestScore := 0.0

	for i := range candidates {
		score := Similarity(question, candidates[i].Question)
		if score > bestScore && score >= threshold {
			best = &Match{Pair: candidates[i], Score: score}
			bestScore = score
		}
	}

	return best, best != nil
}

// ScoreAll scores every candidate against question, in candidate order.
func ScoreAll(question string, candidates []QAPair) []Match {
	out := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Match{Pair: c, Score: Similarity(question, c.Question)})
	}
	return out
}

// LogValue lets a Match be passed straight to slog.
func (m Match) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("question", m.Pair.Question),
		slog.Float64("score", m.Score),
	)
}
