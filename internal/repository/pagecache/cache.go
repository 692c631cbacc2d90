// Package pagecache is the persistent, content-addressed store for fetched
// Wikipedia pages. Entries are keyed by the sha256 of the normalized concept
// and never expire; only an explicit Clear removes them.
package pagecache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/quizgen/internal/db"
	"github.com/kailas-cloud/quizgen/internal/domain"
)

const keyPrefix = "quizgen:page_cache:"

// store is the consumer interface for the page cache.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// Cache stores fetched pages in a key-value store.
type Cache struct {
	store      store
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a page cache. cacheTotal is a counter vec with label "result"
// ("hit"/"miss"), passed explicitly.
func New(s store, cacheTotal *prometheus.CounterVec, logger *zap.Logger) *Cache {
	return &Cache{store: s, cacheTotal: cacheTotal, logger: logger}
}

// Key derives the cache key for a concept: normalization first, then sha256,
// so concept variants address the same entry and the key is filesystem-safe.
func Key(concept string) string {
	h := sha256.Sum256([]byte(domain.NormalizeConcept(concept)))
	return keyPrefix + hex.EncodeToString(h[:])
}

// Get returns the cached page for a concept. A corrupt entry counts as a
// miss; the next Set overwrites it.
func (c *Cache) Get(ctx context.Context, concept string) (domain.Page, bool) {
	data, err := c.store.Get(ctx, Key(concept))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to read cached page", zap.String("concept", concept), zap.Error(err))
		}
		c.incCache("miss")
		return domain.Page{}, false
	}

	var page domain.Page
	if err := json.Unmarshal(data, &page); err != nil {
		c.logger.Warn("Failed to parse cached page", zap.String("concept", concept), zap.Error(err))
		c.incCache("miss")
		return domain.Page{}, false
	}

	c.incCache("hit")
	return page, true
}

// Set stores a page under the concept's key. Idempotent: re-storing a
// concept overwrites its entry.
func (c *Cache) Set(ctx context.Context, concept string, page domain.Page) error {
	page.Key = domain.NormalizeConcept(concept)
	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("encode page: %w", err)
	}
	if err := c.store.Set(ctx, Key(concept), data); err != nil {
		return fmt.Errorf("store page: %w", err)
	}
	return nil
}

// Clear removes every cache entry and returns how many were deleted. Stage
// artifacts are untouched; only cached source material is dropped.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return 0, fmt.Errorf("scan cache keys: %w", err)
	}

	cleared := 0
	for _, key := range keys {
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to delete cache entry", zap.String("key", key), zap.Error(err))
			continue
		}
		cleared++
	}
	return cleared, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int
	Bytes   int64
}

// Stats reports entry count and total stored bytes.
func (c *Cache) Stats(ctx context.Context) (Stats, error) {
	keys, err := c.store.Scan(ctx, keyPrefix+"*")
	if err != nil {
		return Stats{}, fmt.Errorf("scan cache keys: %w", err)
	}

	stats := Stats{Entries: len(keys)}
	for _, key := range keys {
		data, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}
		stats.Bytes += int64(len(data))
	}
	return stats, nil
}

func (c *Cache) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
