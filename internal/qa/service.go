// Package qa answers user questions from a store of known pairs, matched
// fuzzily, and falls back to a text generator for unknown questions.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/medfeed/internal/observability"
	"github.com/IshaanNene/medfeed/internal/textmatch"
	"github.com/IshaanNene/medfeed/internal/types"
)

var (
	ErrNotFound         = errors.New("qa pair not found")
	ErrEmptyPair        = errors.New("question and answer must be non-empty")
	ErrEmptyQuestion    = errors.New("empty question")
	ErrQuestionTooLong  = errors.New("question too long")
	ErrQuestionRejected = errors.New("question rejected")
)

// Answer sources reported in Result.Source.
const (
	SourceStored    = "stored"
	SourceGenerated = "generated"
)

// Generator produces an answer for a question the store cannot match.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is an answer together with where it came from.
type Result struct {
	Question string
	Answer   string
	Source   string
	// Matched is the stored pair used for a stored answer.
	Matched *textmatch.Match
}

// Candidate is one row of an Explain report.
type Candidate struct {
	Pair       textmatch.QAPair
	Score      float64
	Normalized string
}

// Explanation shows how a question scored against every stored pair.
type Explanation struct {
	Question   string
	Normalized string
	Threshold  float64
	Candidates []Candidate
	Best       *textmatch.Match
}

// Service answers questions.
type Service struct {
	store     Store
	gen       Generator
	threshold float64
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithGenerator sets the fallback generator. Without one, unmatched
// questions fail with types.ErrNoAnswer.
func WithGenerator(g Generator) Option { return func(s *Service) { s.gen = g } }

// WithThreshold overrides the match threshold.
func WithThreshold(t float64) Option { return func(s *Service) { s.threshold = t } }

// WithMetrics records lookup results.
func WithMetrics(m *observability.Metrics) Option { return func(s *Service) { s.metrics = m } }

// NewService creates a Service over store.
func NewService(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		threshold: textmatch.DefaultThreshold,
		logger:    logger.With("component", "qa"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Lookup returns the best stored match for question, or types.ErrNoAnswer.
func (s *Service) Lookup(ctx context.Context, question string) (*textmatch.Match, error) {
	pairs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}

	match, ok := textmatch.FindBestMatch(question, pairs, s.threshold)
	if !ok {
		s.metrics.ObserveQA("miss")
		s.logger.Debug("no stored match", "question", question, "candidates", len(pairs))
		return nil, types.ErrNoAnswer
	}
	s.metrics.ObserveQA("hit")
	s.logger.Debug("stored match", "match", match)
	return match, nil
}

// Answer checks the question, answers it from the store when a pair
// matches, and otherwise generates an answer and stores it.
func (s *Service) Answer(ctx context.Context, question string) (*Result, error) {
	if err := CheckQuestion(question); err != nil {
		return nil, err
	}

	match, err := s.Lookup(ctx, question)
	if err == nil {
		return &Result{Question: question, Answer: match.Pair.Answer, Source: SourceStored, Matched: match}, nil
	}
	if !errors.Is(err, types.ErrNoAnswer) {
		return nil, err
	}
	if s.gen == nil {
		return nil, err
	}

	answer, err := s.gen.Generate(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("generate answer: %w", err)
	}
	if _, err := s.store.Upsert(ctx, question, answer); err != nil {
		return nil, fmt.Errorf("store generated answer: %w", err)
	}
	s.metrics.ObserveQA("generated")
	s.logger.Info("generated answer stored", "question", question)

	return &Result{Question: question, Answer: answer, Source: SourceGenerated}, nil
}

// Add stores a pair directly.
func (s *Service) Add(ctx context.Context, question, answer string) (int64, error) {
	return s.store.Upsert(ctx, question, answer)
}

// Explain scores question against every stored pair without answering.
func (s *Service) Explain(ctx context.Context, question string) (*Explanation, error) {
	pairs, err := s.store.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load pairs: %w", err)
	}

	exp := &Explanation{
		Question:   question,
		Normalized: textmatch.Normalize(question),
		Threshold:  s.threshold,
	}
	for _, m := range textmatch.ScoreAll(question, pairs) {
		exp.Candidates = append(exp.Candidates, Candidate{
			Pair:       m.Pair,
			Score:      m.Score,
			Normalized: textmatch.Normalize(m.Pair.Question),
		})
	}
	exp.Best, _ = textmatch.FindBestMatch(question, pairs, s.threshold)
	return exp, nil
}
