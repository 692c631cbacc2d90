package openai

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// LimitedGenerator caps in-flight generation calls. A local model serving
// one request at a time gains nothing from unbounded concurrency, so the
// limit should match the backend's real capacity.
type LimitedGenerator struct {
	inner domain.Generator
	sem   *semaphore.Weighted
}

// NewLimited wraps a generator with a concurrency cap. limit < 1 is treated
// as 1.
func NewLimited(inner domain.Generator, limit int) *LimitedGenerator {
	if limit < 1 {
		limit = 1
	}
	return &LimitedGenerator{inner: inner, sem: semaphore.NewWeighted(int64(limit))}
}

// Generate implements domain.Generator.
func (g *LimitedGenerator) Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return domain.GenerationResult{}, fmt.Errorf("acquire generation slot: %w", err)
	}
	defer g.sem.Release(1)

	return g.inner.Generate(ctx, req)
}
