package index

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	vec, ok := m.vectors[text]
	if !ok {
		vec = []float32{0, 0, 1}
	}
	return domain.EmbeddingResult{Embedding: vec}, nil
}

func singleChunkPages(texts ...string) []domain.Page {
	pages := make([]domain.Page, len(texts))
	for i, text := range texts {
		pages[i] = domain.Page{Key: text, Content: text}
	}
	return pages
}

var wideParams = Params{ChunkSize: 1024, ChunkOverlap: 0}

func TestBuildEmbedsEveryChunk(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{}}

	ix, err := Build(context.Background(), emb, singleChunkPages("alpha", "beta", "gamma"), wideParams)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if ix.Len() != 3 {
		t.Errorf("Len() = %d, want 3", ix.Len())
	}
	if emb.calls != 3 {
		t.Errorf("embedder calls = %d, want 3", emb.calls)
	}
}

func TestBuildPropagatesEmbedError(t *testing.T) {
	emb := &mockEmbedder{err: errors.New("provider down")}

	if _, err := Build(context.Background(), emb, singleChunkPages("alpha"), wideParams); err == nil {
		t.Fatal("Build() should fail when embedding fails")
	}
}

func TestSearchRanksByCosine(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{
		"near":  {1, 0, 0},
		"mid":   {1, 1, 0},
		"far":   {0, 1, 0},
		"query": {1, 0, 0},
	}}

	ix, err := Build(context.Background(), emb, singleChunkPages("far", "near", "mid"), wideParams)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(got))
	}
	if got[0].Chunk.PageKey != "near" || got[1].Chunk.PageKey != "mid" {
		t.Errorf("order = %q, %q; want near, mid", got[0].Chunk.PageKey, got[1].Chunk.PageKey)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not non-increasing: %f then %f", got[0].Score, got[1].Score)
	}
}

func TestSearchStableOnTies(t *testing.T) {
	// Identical vectors score identically; insertion order must hold.
	emb := &mockEmbedder{vectors: map[string][]float32{
		"first":  {1, 0, 0},
		"second": {1, 0, 0},
		"third":  {1, 0, 0},
		"query":  {1, 0, 0},
	}}

	ix, err := Build(context.Background(), emb, singleChunkPages("first", "second", "third"), wideParams)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 3)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	wantOrder := []string{"first", "second", "third"}
	for i, w := range wantOrder {
		if got[i].Chunk.PageKey != w {
			t.Errorf("results[%d].PageKey = %q, want %q", i, got[i].Chunk.PageKey, w)
		}
	}
}

func TestSearchTopKLargerThanIndex(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{}}

	ix, err := Build(context.Background(), emb, singleChunkPages("alpha", "beta"), wideParams)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len(results) = %d, want every chunk", len(got))
	}
}

func TestSearchEmptyIndex(t *testing.T) {
	emb := &mockEmbedder{vectors: map[string][]float32{}}

	ix, err := Build(context.Background(), emb, nil, wideParams)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got, err := ix.Search(context.Background(), "query", 5)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len(results) = %d, want 0", len(got))
	}
	if emb.calls != 0 {
		t.Errorf("embedder calls = %d, empty index must not embed the query", emb.calls)
	}
}
