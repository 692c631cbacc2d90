package domain

import (
	"strings"
	"time"
)

// Page is an externally fetched source document (a Wikipedia article).
// Key is the normalized concept the page was resolved from and is the
// content-address of the cache entry.
type Page struct {
	Key       string    `json:"key"`
	Title     string    `json:"title"`
	PageID    int64     `json:"page_id"`
	Content   string    `json:"content"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Chunk is a fixed-size window of a page, the unit of embedding and
// retrieval. Offset is the rune offset of Text within the parent page.
// Chunks are derived from a page on index build and never persisted.
type Chunk struct {
	PageKey   string
	Offset    int
	Text      string
	Embedding []float32
}

// ScoredChunk pairs a chunk with its similarity to a query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// NormalizeConcept canonicalizes a concept string for cache addressing:
// case-folded with runs of whitespace collapsed to single spaces, so variants
// like "GAAP" and " gaap " share one cache entry.
func NormalizeConcept(concept string) string {
	return strings.ToLower(strings.Join(strings.Fields(concept), " "))
}
