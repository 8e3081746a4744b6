package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// ChunkingService turns a document's text into position-tracked chunks.
// It holds no state and is safe for concurrent use.
type ChunkingService struct{}

// NewChunkingService creates a new chunking service.
func NewChunkingService() *ChunkingService {
	return &ChunkingService{}
}

// CreateChunks validates the parameters, splits text with strategy and
// assembles the segments into chunks carrying index, total and overlap
// metadata. Empty or whitespace-only text yields no chunks. A strategy error
// is returned as is and no chunks are produced.
func (s *ChunkingService) CreateChunks(
	doc *domain.Document,
	text string,
	strategy port.ChunkingStrategy,
	chunkSize, overlapSize int,
) ([]domain.Chunk, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return []domain.Chunk{}, nil
	}

	segments, err := strategy.SplitText(text, chunkSize, overlapSize)
	if err != nil {
		return nil, err
	}

	total := len(segments)
	chunks := make([]domain.Chunk, 0, total)
	for i, seg := range segments {
		meta := domain.ChunkMetadata{
			ChunkIndex:    i,
			StartPosition: seg.Start,
			EndPosition:   seg.End,
			TotalChunks:   total,
		}
		if i > 0 {
			meta.OverlapWithPrevious = max(0, segments[i-1].End-seg.Start)
		}
		if i < total-1 {
			meta.OverlapWithNext = max(0, seg.End-segments[i+1].Start)
		}

		chunk, err := domain.NewChunk(doc.ID, seg.Text, meta)
		if err != nil {
			return nil, fmt.Errorf("segment %d [%d,%d): %w", i, seg.Start, seg.End, err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, nil
}

// UpdateDocumentChunks replaces the document's chunk set with chunks, in
// order. It fails if any chunk belongs to another document.
func (s *ChunkingService) UpdateDocumentChunks(doc *domain.Document, chunks []domain.Chunk) error {
	for _, c := range chunks {
		if c.DocumentID != doc.ID {
			return fmt.Errorf("%w: %s", domain.ErrChunkDocumentMismatch, c.DocumentID)
		}
	}
	doc.ClearChunks()
	for _, c := range chunks {
		if err := doc.AddChunk(c); err != nil {
			return err
		}
	}
	return nil
}

// CalculateChunkingMetrics estimates the chunk count analytically without
// running a strategy. Boundary-aware strategies may produce a different
// count; the figure is for planning only.
func (s *ChunkingService) CalculateChunkingMetrics(text string, chunkSize, overlapSize int) (domain.ChunkingMetrics, error) {
	if err := domain.ValidateChunkingParameters(chunkSize, overlapSize); err != nil {
		return domain.ChunkingMetrics{}, err
	}
	length := utf8.RuneCountInString(text)
	return domain.ChunkingMetrics{
		TextLength:          length,
		ChunkSize:           chunkSize,
		OverlapSize:         overlapSize,
		EstimatedChunkCount: domain.EstimateChunkCount(length, chunkSize, overlapSize),
	}, nil
}
