package retry

import (
	"context"
	"errors"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// TransientGeneration is the classifier the generation stages hand to the
// executor: an explicit refusal is a property of the prompt and never
// retried; malformed, empty, or shape-invalid output and provider failures
// are all worth a fresh generation.
func TransientGeneration(err error) bool {
	return !errors.Is(err, domain.ErrGenerationRefused) &&
		!errors.Is(err, context.Canceled)
}
