package resolve

import (
	"context"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// Fetcher retrieves a source page from the external content source.
type Fetcher interface {
	FetchPage(ctx context.Context, title string) (domain.Page, error)
}

// Cache is the page cache contract the resolver consumes.
type Cache interface {
	Get(ctx context.Context, concept string) (domain.Page, bool)
	Set(ctx context.Context, concept string, page domain.Page) error
}
