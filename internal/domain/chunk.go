package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	DefaultChunkSize   = 1000
	DefaultOverlapSize = 200
)

// TextSegment is one raw split produced by a chunking strategy. Start and
// End are character (rune) offsets into the source text.
type TextSegment struct {
	Text  string
	Start int
	End   int
}

// ChunkMetadata records where a chunk sits in its document and how much text
// it shares with its neighbours.
type ChunkMetadata struct {
	ChunkIndex          int `json:"chunk_index"`
	StartPosition       int `json:"start_position"`
	EndPosition         int `json:"end_position"`
	TotalChunks         int `json:"total_chunks"`
	OverlapWithPrevious int `json:"overlap_with_previous"`
	OverlapWithNext     int `json:"overlap_with_next"`
}

func (m ChunkMetadata) Size() int {
	return m.EndPosition - m.StartPosition
}

func (m ChunkMetadata) IsFirst() bool {
	return m.ChunkIndex == 0
}

func (m ChunkMetadata) IsLast() bool {
	return m.ChunkIndex == m.TotalChunks-1
}

// Chunk is an immutable slice of a document's text. Use WithEmbedding to
// derive a copy carrying a vector.
type Chunk struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"document_id"`
	Content    string        `json:"content"`
	Embedding  []float32     `json:"embedding,omitempty"`
	Metadata   ChunkMetadata `json:"metadata"`
}

// NewChunk builds a chunk with a fresh id after checking its position
// metadata against its content.
func NewChunk(documentID, content string, meta ChunkMetadata) (Chunk, error) {
	if documentID == "" {
		return Chunk{}, &ValidationError{Field: "document_id", Message: "must not be empty"}
	}
	if content == "" {
		return Chunk{}, &ValidationError{Field: "content", Message: "must not be empty"}
	}
	switch {
	case meta.StartPosition < 0:
		return Chunk{}, &ValidationError{Field: "start_position", Message: "must be non-negative"}
	case meta.EndPosition <= meta.StartPosition:
		return Chunk{}, &ValidationError{Field: "end_position", Message: "must be greater than start_position"}
	case meta.TotalChunks <= 0:
		return Chunk{}, &ValidationError{Field: "total_chunks", Message: "must be positive"}
	case meta.ChunkIndex < 0 || meta.ChunkIndex >= meta.TotalChunks:
		return Chunk{}, &ValidationError{Field: "chunk_index", Message: "must be within [0, total_chunks)"}
	case meta.OverlapWithPrevious < 0 || meta.OverlapWithNext < 0:
		return Chunk{}, &ValidationError{Field: "overlap", Message: "must be non-negative"}
	}
	if n := utf8.RuneCountInString(content); n != meta.Size() {
		return Chunk{}, &ValidationError{Field: "content", Message: "length does not match end_position - start_position"}
	}
	return Chunk{
		ID:         uuid.NewString(),
		DocumentID: documentID,
		Content:    content,
		Metadata:   meta,
	}, nil
}

func (c Chunk) HasEmbedding() bool {
	return c.Embedding != nil
}

func (c Chunk) WithEmbedding(embedding []float32) Chunk {
	out := c
	out.Embedding = append([]float32(nil), embedding...)
	return out
}

// ChunkingMetrics is an analytic estimate of a split, computed without
// running a strategy.
type ChunkingMetrics struct {
	TextLength          int `json:"text_length"`
	ChunkSize           int `json:"chunk_size"`
	OverlapSize         int `json:"overlap_size"`
	EstimatedChunkCount int `json:"estimated_chunk_count"`
}

// ValidateChunkingParameters checks the size/overlap pair shared by every
// chunking entry point.
func ValidateChunkingParameters(chunkSize, overlapSize int) error {
	if chunkSize <= 0 {
		return invalidParameter("chunk_size", "chunk size must be positive")
	}
	if overlapSize < 0 {
		return invalidParameter("overlap_size", "overlap size must be non-negative")
	}
	if overlapSize >= chunkSize {
		return invalidParameter("overlap_size", "overlap size must be less than chunk size")
	}
	return nil
}

// EstimateChunkCount is the planning formula: one chunk for the first
// chunkSize characters plus one per started step after that.
func EstimateChunkCount(textLength, chunkSize, overlapSize int) int {
	if textLength == 0 {
		return 0
	}
	if textLength <= chunkSize {
		return 1
	}
	step := chunkSize - overlapSize
	if step <= 0 {
		return 1
	}
	remaining := textLength - chunkSize
	return 1 + (remaining+step-1)/step
}
