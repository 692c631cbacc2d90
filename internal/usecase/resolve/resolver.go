// Package resolve turns a concept string into a cached source page, fetching
// on miss under a shared rate limit with a single-flight guarantee per key.
package resolve

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/quizgen/internal/domain"
	"github.com/kailas-cloud/quizgen/internal/retry"
)

// Resolver maps concepts to pages. The limiter is process-wide and shared
// with every other resolver consumer, spacing all external fetches
// regardless of worker count.
type Resolver struct {
	cache   Cache
	fetcher Fetcher
	limiter *rate.Limiter
	exec    *retry.Executor
	group   singleflight.Group
	logger  *zap.Logger
}

// New creates a resolver. The limiter instance is passed in, never created
// here, so all resolutions share one fetch budget.
func New(cache Cache, fetcher Fetcher, limiter *rate.Limiter, exec *retry.Executor, logger *zap.Logger) *Resolver {
	return &Resolver{
		cache:   cache,
		fetcher: fetcher,
		limiter: limiter,
		exec:    exec,
		logger:  logger,
	}
}

// Resolve returns the page for a concept, from cache when possible.
// Concurrent resolutions of the same concept share one fetch: callers wait
// on the in-flight operation instead of racing check-then-fetch.
// domain.ErrPageNotFound is permanent and never retried; transient fetch
// failures go through the retry executor.
func (r *Resolver) Resolve(ctx context.Context, concept string) (domain.Page, error) {
	key := domain.NormalizeConcept(concept)
	if key == "" {
		return domain.Page{}, fmt.Errorf("empty concept: %w", domain.ErrPageNotFound)
	}

	if page, ok := r.cache.Get(ctx, key); ok {
		r.logger.Debug("Page cache hit", zap.String("concept", key))
		return page, nil
	}

	v, err, shared := r.group.Do(key, func() (any, error) {
		// Another caller may have finished the fetch while we waited for
		// the flight slot.
		if page, ok := r.cache.Get(ctx, key); ok {
			return page, nil
		}
		return r.fetchAndStore(ctx, key)
	})
	if err != nil {
		return domain.Page{}, err
	}
	if shared {
		r.logger.Debug("Shared in-flight fetch", zap.String("concept", key))
	}
	return v.(domain.Page), nil
}

func (r *Resolver) fetchAndStore(ctx context.Context, key string) (domain.Page, error) {
	var page domain.Page
	err := r.exec.Do(ctx, "fetch page", fetchRetryable, func(ctx context.Context) error {
		// Rate-limit every attempt, not just the first.
		if err := r.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		var err error
		page, err = r.fetcher.FetchPage(ctx, key)
		return err
	})
	if err != nil {
		return domain.Page{}, err
	}

	if err := r.cache.Set(ctx, key, page); err != nil {
		// The fetch succeeded; a failed cache write costs a refetch later,
		// not the result.
		r.logger.Warn("Failed to cache page", zap.String("concept", key), zap.Error(err))
	}
	return page, nil
}

// fetchRetryable classifies fetch failures: a missing article is a property
// of the input, everything else is assumed transient.
func fetchRetryable(err error) bool {
	return !errors.Is(err, domain.ErrPageNotFound) &&
		!errors.Is(err, context.Canceled)
}
