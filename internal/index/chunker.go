// Package index builds a semantic retrieval index over fixed-size,
// overlapping page chunks and answers top-K similarity queries.
package index

import (
	"fmt"

	"github.com/kailas-cloud/quizgen/internal/domain"
)

// Split cuts a page's content into rune windows of the given size, each
// overlapping the previous one by overlap runes, so the windows cover every
// offset of the page with no gaps. A page shorter than size yields exactly
// one chunk; the final chunk may be shorter than size. Requires
// 0 <= overlap < size.
func Split(page domain.Page, size, overlap int) ([]domain.Chunk, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}

	runes := []rune(page.Content)
	step := size - overlap

	var chunks []domain.Chunk
	for offset := 0; ; offset += step {
		end := offset + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, domain.Chunk{
			PageKey: page.Key,
			Offset:  offset,
			Text:    string(runes[offset:end]),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks, nil
}
