package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// Params controls chunking at build time.
type Params struct {
	ChunkSize    int
	ChunkOverlap int
}

// Index is an immutable in-memory vector index over the chunks of one or
// more pages. Build it once per document set; retrieval never mutates it.
type Index struct {
	embedder domain.Embedder
	chunks   []domain.Chunk
	norms    []float64
}

// Build splits the pages into chunks, embeds each chunk, and returns the
// ready index. Deterministic given page content and embedding model.
func Build(ctx context.Context, embedder domain.Embedder, pages []domain.Page, p Params) (*Index, error) {
	ix := &Index{embedder: embedder}

	for _, page := range pages {
		chunks, err := Split(page, p.ChunkSize, p.ChunkOverlap)
		if err != nil {
			return nil, fmt.Errorf("split page %q: %w", page.Key, err)
		}
		for _, chunk := range chunks {
			result, err := embedder.Embed(ctx, chunk.Text)
			if err != nil {
				return nil, fmt.Errorf("embed chunk of %q at %d: %w", page.Key, chunk.Offset, err)
			}
			chunk.Embedding = result.Embedding
			ix.chunks = append(ix.chunks, chunk)
			ix.norms = append(ix.norms, norm(result.Embedding))
		}
	}

	return ix, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Search embeds the query and returns the topK most similar chunks by cosine
// similarity, in non-increasing score order. Ties keep original chunk order.
// topK larger than the chunk count returns every chunk.
func (ix *Index) Search(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	if topK <= 0 || len(ix.chunks) == 0 {
		return nil, nil
	}

	result, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	queryVec := result.Embedding
	queryNorm := norm(queryVec)

	scored := make([]domain.ScoredChunk, len(ix.chunks))
	for i, chunk := range ix.chunks {
		scored[i] = domain.ScoredChunk{
			Chunk: chunk,
			Score: cosine(chunk.Embedding, queryVec, ix.norms[i], queryNorm),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if topK < len(scored) {
		scored = scored[:topK]
	}
	return scored, nil
}

func cosine(a, b []float32, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}
