package quiz

import (
	"context"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// Generator is the generation contract this stage consumes.
type Generator interface {
	Generate(ctx context.Context, req domain.GenerationRequest) (domain.GenerationResult, error)
}

// Resolver maps a concept to its source page.
type Resolver interface {
	Resolve(ctx context.Context, concept string) (domain.Page, error)
}
