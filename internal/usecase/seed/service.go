// Package seed implements stage 1: generating seed questions for every
// (area, education level) pair.
package seed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/metrics"
	"github.com/kailas-cloud/quizgen/internal/prompts"
	"github.com/kailas-cloud/quizgen/internal/retry"
	"github.com/kailas-cloud/quizgen/internal/validate"
)

// Generator is the generation contract this stage consumes.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// responseSchema shapes the model output: at least QuestionsPerArea
// non-empty questions.
var responseSchema = validate.MustCompile(fmt.Sprintf(`{
	"type": "object",
	"required": ["questions"],
	"properties": {
		"questions": {
			"type": "array",
			"minItems": %d,
			"items": {"type": "string", "minLength": 1}
		}
	}
}`, domain.QuestionsPerArea))

// Service generates seed questions.
type Service struct {
	gen     Generator
	exec    *retry.Executor
	levels  []string
	workers int
	logger  *zap.Logger
}

// New creates the stage service. workers bounds the number of concurrent
// (area, level) generations.
func New(gen Generator, exec *retry.Executor, workers int, logger *zap.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		gen:     gen,
		exec:    exec,
		levels:  domain.EducationLevels,
		workers: workers,
		logger:  logger,
	}
}

// Run generates questions for every (area, level) pair. Per-pair failures
// are logged and skipped; the result holds whichever pairs succeeded, in
// deterministic (level, area) order.
func (s *Service) Run(ctx context.Context, areas []string) ([]domain.SeedQuestion, error) {
	type pair struct {
		level, area string
	}

	var pairs []pair
	for _, level := range s.levels {
		for _, raw := range areas {
			area, err := validate.SanitizeArea(raw)
			if err != nil {
				s.logger.Warn("Skipping invalid area", zap.String("area", raw), zap.Error(err))
				continue
			}
			pairs = append(pairs, pair{level: level, area: area})
		}
	}

	results := make([][]domain.SeedQuestion, len(pairs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			questions, err := s.generatePair(gctx, p.level, p.area)
			if err != nil {
				metrics.StageItemsTotal.WithLabelValues("seed", "skipped").Inc()
				s.logger.Error("Failed to seed questions, skipping pair",
					zap.String("level", p.level),
					zap.String("area", p.area),
					zap.Error(err),
				)
				return nil
			}
			metrics.StageItemsTotal.WithLabelValues("seed", "succeeded").Inc()
			results[i] = questions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []domain.SeedQuestion
	for _, qs := range results {
		out = append(out, qs...)
	}
	if len(out) == 0 {
		return nil, errors.New("no seed questions generated")
	}
	return out, nil
}

// generatePair asks the model for the pair's questions. Malformed or
// shape-invalid output is retried as a fresh generation.
func (s *Service) generatePair(ctx context.Context, level, area string) ([]domain.SeedQuestion, error) {
	prompt := prompts.SeedQuestions(area, level, domain.QuestionsPerArea)

	var parsed struct {
		Questions []string `json:"questions"`
	}
	err := s.exec.Do(ctx, "generate seed questions", retry.TransientGeneration, func(ctx context.Context) error {
		result, err := s.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt, JSONMode: true})
		if err != nil {
			return err
		}
		raw := []byte(result.Content)
		if err := validate.Against(responseSchema, raw); err != nil {
			return err
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("decode questions: %w", err)
		}
		if got := validate.FilterQuestions(parsed.Questions); len(got) >= domain.QuestionsPerArea {
			parsed.Questions = got
			return nil
		}
		return &validate.Error{Field: "questions", Constraint: "minimum length",
			Detail: fmt.Sprintf("need %d non-empty questions", domain.QuestionsPerArea)}
	})
	if err != nil {
		return nil, err
	}

	questions := make([]domain.SeedQuestion, 0, domain.QuestionsPerArea)
	for i, text := range parsed.Questions[:domain.QuestionsPerArea] {
		questions = append(questions, domain.SeedQuestion{
			ID:    domain.QuestionID(level, area, i),
			Area:  area,
			Level: level,
			Text:  text,
		})
	}
	return questions, nil
}
