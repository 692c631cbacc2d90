// Package concepts implements stage 2: extracting the key concepts of each
// seed question.
package concepts

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

// responseSchema shapes the model output: a non-empty concept list.
var responseSchema = validate.MustCompile(`{
	"type": "object",
	"required": ["concepts"],
	"properties": {
		"concepts": {
			"type": "array",
			"minItems": 1,
			"items": {"type": "string", "minLength": 1}
		}
	}
}`)

// Service extracts concepts from seed questions.
type Service struct {
	gen     Generator
	exec    *retry.Executor
	workers int
	logger  *zap.Logger
}

// New creates the stage service.
func New(gen Generator, exec *retry.Executor, workers int, logger *zap.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{gen: gen, exec: exec, workers: workers, logger: logger}
}

// Run extracts concepts for every question. Per-question failures are
// logged and skipped; output preserves question order.
func (s *Service) Run(ctx context.Context, questions []domain.SeedQuestion) ([]domain.ConceptSet, error) {
	results := make([]*domain.ConceptSet, len(questions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, q := range questions {
		i, q := i, q
		g.Go(func() error {
			set, err := s.extract(gctx, q)
			if err != nil {
				metrics.StageItemsTotal.WithLabelValues("concepts", "skipped").Inc()
				s.logger.Error("Failed to extract concepts, skipping question",
					zap.String("question_id", q.ID),
					zap.Error(err),
				)
				return nil
			}
			metrics.StageItemsTotal.WithLabelValues("concepts", "succeeded").Inc()
			results[i] = &set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ConceptSet, 0, len(questions))
	for _, set := range results {
		if set != nil {
			out = append(out, *set)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no concepts extracted")
	}
	return out, nil
}

func (s *Service) extract(ctx context.Context, q domain.SeedQuestion) (domain.ConceptSet, error) {
	prompt := prompts.ConceptExtraction(q.Text, q.Level, q.Area)

	var concepts []string
	err := s.exec.Do(ctx, "extract concepts", retry.TransientGeneration, func(ctx context.Context) error {
		result, err := s.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt, JSONMode: true})
		if err != nil {
			return err
		}
		raw := []byte(result.Content)
		if err := validate.Against(responseSchema, raw); err != nil {
			return err
		}
		var parsed struct {
			Concepts []string `json:"concepts"`
		}
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("decode concepts: %w", err)
		}
		concepts = validate.FilterConcepts(parsed.Concepts)
		if len(concepts) == 0 {
			return &validate.Error{Field: "concepts", Constraint: "minimum length",
				Detail: "no usable concepts after filtering"}
		}
		return nil
	})
	if err != nil {
		return domain.ConceptSet{}, err
	}

	return domain.ConceptSet{
		QuestionID: q.ID,
		Question:   q.Text,
		Area:       q.Area,
		Level:      q.Level,
		Concepts:   concepts,
	}, nil
}
