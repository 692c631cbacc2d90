// Package quiz implements stage 3: the retrieval-augmented synthesis of
// grounded summaries and quiz sets from each question's concepts.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/index"
	"github.com/kailas-cloud/quizgen/internal/metrics"
)

// ErrSynthesisFailed marks a question whose quiz set could not be produced
// after retries. The question is skipped; the stage continues.
var ErrSynthesisFailed = errors.New("synthesis failed")

// Params configures the retrieval side of the stage.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
	TopK         int
}

// Service builds quiz sets. Index build and retrieval are pure per
// document set, so questions proceed in parallel without shared state; the
// resolver and the generator carry their own limits.
type Service struct {
	resolver Resolver
	embedder domain.Embedder
	synth    *Synthesizer
	params   Params
	workers  int
	logger   *zap.Logger
}

// New creates the stage service.
func New(
	resolver Resolver,
	embedder domain.Embedder,
	synth *Synthesizer,
	params Params,
	workers int,
	logger *zap.Logger,
) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{
		resolver: resolver,
		embedder: embedder,
		synth:    synth,
		params:   params,
		workers:  workers,
		logger:   logger,
	}
}

// Run produces a quiz set per concept set. Per-question failures are logged
// and skipped; output preserves input order.
func (s *Service) Run(ctx context.Context, sets []domain.ConceptSet) ([]domain.QuizSet, error) {
	results := make([]*domain.QuizSet, len(sets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, set := range sets {
		i, set := i, set
		g.Go(func() error {
			quizSet, err := s.synthesize(gctx, set)
			if err != nil {
				metrics.StageItemsTotal.WithLabelValues("quiz", "skipped").Inc()
				s.logger.Error("Failed to synthesize quiz set, skipping question",
					zap.String("question_id", set.QuestionID),
					zap.Error(err),
				)
				return nil
			}
			metrics.StageItemsTotal.WithLabelValues("quiz", "succeeded").Inc()
			results[i] = &quizSet
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.QuizSet, 0, len(sets))
	for _, quizSet := range results {
		if quizSet != nil {
			out = append(out, *quizSet)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no quiz sets synthesized")
	}
	return out, nil
}

// synthesize runs the full RAG path for one question: resolve pages, build
// the chunk index, retrieve, summarize, generate.
func (s *Service) synthesize(ctx context.Context, set domain.ConceptSet) (domain.QuizSet, error) {
	pages := s.resolvePages(ctx, set)
	if len(pages) == 0 {
		return domain.QuizSet{}, fmt.Errorf("no source pages for question %q: %w",
			set.QuestionID, ErrSynthesisFailed)
	}

	ix, err := index.Build(ctx, s.embedder, pages, index.Params{
		ChunkSize:    s.params.ChunkSize,
		ChunkOverlap: s.params.ChunkOverlap,
	})
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("build index: %w", err)
	}

	retrieved, err := ix.Search(ctx, set.Question, s.params.TopK)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("retrieve context: %w", err)
	}

	reference := formatReference(retrieved)

	summary, err := s.synth.Summarize(ctx, set, reference)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("summarize: %w", err)
	}

	items, err := s.synth.GenerateQuizzes(ctx, set, summary)
	if err != nil {
		return domain.QuizSet{}, fmt.Errorf("generate quizzes: %w", err)
	}

	return domain.QuizSet{
		QuestionID: set.QuestionID,
		Question:   set.Question,
		Area:       set.Area,
		Level:      set.Level,
		Concepts:   set.Concepts,
		Summary:    summary,
		Items:      items,
	}, nil
}

// resolvePages fetches the page for each concept. A concept without an
// article is dropped, not fatal: the question can still be grounded on the
// remaining pages.
func (s *Service) resolvePages(ctx context.Context, set domain.ConceptSet) []domain.Page {
	pages := make([]domain.Page, 0, len(set.Concepts))
	for _, concept := range set.Concepts {
		page, err := s.resolver.Resolve(ctx, concept)
		if err != nil {
			s.logger.Warn("Could not resolve concept",
				zap.String("question_id", set.QuestionID),
				zap.String("concept", concept),
				zap.Error(err),
			)
			continue
		}
		pages = append(pages, page)
	}
	return pages
}

// formatReference renders retrieved chunks the way the prompts expect them.
func formatReference(retrieved []domain.ScoredChunk) string {
	var b strings.Builder
	for i, sc := range retrieved {
		fmt.Fprintf(&b, "\n\nInformation %d:\n%s", i+1, sc.Chunk.Text)
	}
	return strings.TrimSpace(b.String())
}
