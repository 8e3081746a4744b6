package port

import "docrag/internal/domain"

// ChunkingStrategy splits text into positioned segments. Offsets are
// character (rune) offsets into text.
type ChunkingStrategy interface {
	SplitText(text string, chunkSize, overlapSize int) ([]domain.TextSegment, error)

	EstimateChunkCount(text string, chunkSize, overlapSize int) int
}
