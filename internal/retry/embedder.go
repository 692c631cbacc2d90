package retry

import (
	"context"
	"errors"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// Embedder decorates a domain.Embedder with retry. Provider errors and
// timeouts are transient; context cancellation is not.
type Embedder struct {
	inner domain.Embedder
	exec  *Executor
}

// NewEmbedder wraps an embedder with the executor's retry policy.
func NewEmbedder(inner domain.Embedder, exec *Executor) *Embedder {
	return &Embedder{inner: inner, exec: exec}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	var result domain.EmbeddingResult
	err := e.exec.Do(ctx, "embed", embedRetryable, func(ctx context.Context) error {
		var err error
		result, err = e.inner.Embed(ctx, text)
		return err
	})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return result, nil
}

func embedRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
