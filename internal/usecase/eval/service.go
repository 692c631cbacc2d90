// Package eval implements stage 4: LLM-as-judge scoring of each quiz set
// along the fixed rubric dimensions.
package eval

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

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

// scoreSchema shapes the judge output: exactly the five rubric dimensions,
// each an integer in [1,5].
var scoreSchema = validate.MustCompile(buildScoreSchema())

func buildScoreSchema() string {
	props := make([]string, 0, len(domain.EvaluationDimensions))
	required := make([]string, 0, len(domain.EvaluationDimensions))
	for _, dim := range domain.EvaluationDimensions {
		props = append(props,
			fmt.Sprintf(`%q: {"type": "integer", "minimum": 1, "maximum": 5}`, dim))
		required = append(required, fmt.Sprintf("%q", dim))
	}
	return fmt.Sprintf(`{
		"type": "object",
		"required": [%s],
		"additionalProperties": false,
		"properties": {%s}
	}`, strings.Join(required, ", "), strings.Join(props, ", "))
}

// Service scores quiz sets.
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

// Run evaluates every quiz set. A set that cannot be judged after retries
// is recorded with its failure reason rather than dropped, and seed questions
// that produced no quiz set at all get an all-zero score card, so the score
// file stays aligned with the question file.
func (s *Service) Run(ctx context.Context, questions []domain.SeedQuestion, sets []domain.QuizSet) ([]domain.Evaluation, error) {
	results := make([]domain.Evaluation, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			results[i] = s.evaluate(gctx, set)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	scored := 0
	for _, ev := range results {
		if ev.Error == "" {
			scored++
		}
	}
	if scored == 0 {
		return nil, errors.New("no quiz sets evaluated")
	}

	seen := make(map[string]struct{}, len(results))
	for _, ev := range results {
		seen[ev.QuestionID] = struct{}{}
	}
	for _, q := range questions {
		if _, ok := seen[q.ID]; ok {
			continue
		}
		s.logger.Warn("No quiz set for question, recording zero scores",
			zap.String("question_id", q.ID),
		)
		results = append(results, domain.Evaluation{QuestionID: q.ID, Scores: domain.ZeroScores()})
	}
	return results, nil
}

func (s *Service) evaluate(ctx context.Context, set domain.QuizSet) domain.Evaluation {
	if len(set.Items) == 0 {
		metrics.StageItemsTotal.WithLabelValues("eval", "succeeded").Inc()
		return domain.Evaluation{QuestionID: set.QuestionID, Scores: domain.ZeroScores()}
	}

	prompt := prompts.Evaluation(
		set.Area, set.Level, set.Question, set.Summary, formatQuizSet(set.Items),
	)

	var scores map[string]int
	err := s.exec.Do(ctx, "evaluate quiz set", retry.TransientGeneration, func(ctx context.Context) error {
		result, err := s.gen.Generate(ctx, domain.GenerationRequest{Prompt: prompt, JSONMode: true})
		if err != nil {
			return err
		}
		raw := []byte(result.Content)
		if err := validate.Against(scoreSchema, raw); err != nil {
			return err
		}
		return json.Unmarshal(raw, &scores)
	})
	if err != nil {
		metrics.StageItemsTotal.WithLabelValues("eval", "skipped").Inc()
		s.logger.Error("Failed to evaluate quiz set",
			zap.String("question_id", set.QuestionID),
			zap.Error(err),
		)
		return domain.Evaluation{QuestionID: set.QuestionID, Error: err.Error()}
	}

	metrics.StageItemsTotal.WithLabelValues("eval", "succeeded").Inc()
	return domain.Evaluation{QuestionID: set.QuestionID, Scores: scores}
}

// formatQuizSet renders the items the way the judge prompt expects them.
func formatQuizSet(items []domain.QuizItem) string {
	var b strings.Builder
	letters := []string{"A", "B", "C", "D"}
	for i, item := range items {
		fmt.Fprintf(&b, "%d: Quiz: %s\n", i+1, item.Question)
		for j, opt := range item.Options {
			label := letters[j%len(letters)]
			fmt.Fprintf(&b, "%s. %s\n", label, opt)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}
