package quiz

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/prompts"
	"github.com/kailas-cloud/quizgen/internal/retry"
	"github.com/kailas-cloud/quizgen/internal/validate"
)

// quizSchema shapes the quiz response: exactly QuizItemsPerSet quizzes,
// each with exactly QuizOptionCount non-empty options.
var quizSchema = validate.MustCompile(fmt.Sprintf(`{
	"type": "object",
	"required": ["quizzes"],
	"properties": {
		"quizzes": {
			"type": "array",
			"minItems": %[1]d,
			"maxItems": %[1]d,
			"items": {
				"type": "object",
				"required": ["question", "options"],
				"properties": {
					"question": {"type": "string", "minLength": 1},
					"options": {
						"type": "array",
						"minItems": %[2]d,
						"maxItems": %[2]d,
						"items": {"type": "string", "minLength": 1}
					}
				}
			}
		}
	}
}`, domain.QuizItemsPerSet, domain.QuizOptionCount))

// Synthesizer turns retrieved source material into a summary and quiz
// items through the generative capability.
type Synthesizer struct {
	gen    Generator
	exec   *retry.Executor
	logger *zap.Logger
}

// NewSynthesizer creates a synthesizer.
func NewSynthesizer(gen Generator, exec *retry.Executor, logger *zap.Logger) *Synthesizer {
	return &Synthesizer{gen: gen, exec: exec, logger: logger}
}

// Summarize condenses the retrieved reference material into one passage.
// Empty output is transient and retried; refusal is not.
func (s *Synthesizer) Summarize(ctx context.Context, set domain.ConceptSet, reference string) (string, error) {
	prompt := prompts.Summary(set.Area, set.Level, reference, set.Question)

	var summary string
	err := s.exec.Do(ctx, "summarize", retry.TransientGeneration, func(ctx context.Context) error {
		result, err := s.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt})
		if err != nil {
			return err
		}
		if strings.TrimSpace(result.Content) == "" {
			return domain.ErrEmptyCompletion
		}
		summary = result.Content
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}
	return summary, nil
}

// GenerateQuizzes produces the question's quiz items, validated against
// quizSchema before anything is returned. Every returned item has exactly
// domain.QuizOptionCount options with the correct answer first
// (CorrectIndex 0) -- the position is part of the output contract.
func (s *Synthesizer) GenerateQuizzes(ctx context.Context, set domain.ConceptSet, summary string) ([]domain.QuizItem, error) {
	prompt := prompts.QuizGeneration(
		set.Area, set.Level, summary, set.Question,
		domain.QuizItemsPerSet, domain.QuizOptionCount,
	)

	var parsed struct {
		Quizzes []struct {
			Question string   `json:"question"`
			Options  []string `json:"options"`
		} `json:"quizzes"`
	}
	err := s.exec.Do(ctx, "generate quizzes", retry.TransientGeneration, func(ctx context.Context) error {
		result, err := s.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt, JSONMode: true})
		if err != nil {
			return err
		}
		raw := []byte(result.Content)
		if err := validate.Against(quizSchema, raw); err != nil {
			s.logger.Debug("Quiz response failed validation",
				zap.String("question_id", set.QuestionID),
				zap.Error(err),
			)
			return err
		}
		return json.Unmarshal(raw, &parsed)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSynthesisFailed, err)
	}

	items := make([]domain.QuizItem, 0, domain.QuizItemsPerSet)
	for _, q := range parsed.Quizzes {
		items = append(items, domain.QuizItem{
			Question:     q.Question,
			Options:      q.Options,
			CorrectIndex: 0,
		})
	}
	return items, nil
}
