package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const maxTitleLength = 255

type DocumentMetadata struct {
	FileName    string    `json:"file_name"`
	FilePath    string    `json:"file_path,omitempty"`
	FileSize    int64     `json:"file_size"`
	ContentType string    `json:"content_type"`
	Category    string    `json:"category,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	Author      string    `json:"author,omitempty"`
	Description string    `json:"description,omitempty"`
	SourceMTime int64     `json:"source_mtime,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Document owns its raw content and the chunk set derived from it.
type Document struct {
	ID       string
	Title    string
	Content  []byte
	Metadata DocumentMetadata
	Version  int

	chunks []Chunk
}

// NewDocument creates a version-1 document with a generated id.
func NewDocument(title string, content []byte, meta DocumentMetadata) (*Document, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = now
	}
	if meta.UpdatedAt.IsZero() {
		meta.UpdatedAt = now
	}
	return &Document{
		ID:       uuid.NewString(),
		Title:    title,
		Content:  content,
		Metadata: meta,
		Version:  1,
	}, nil
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", &ValidationError{Field: "title", Message: "title cannot be empty"}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", &ValidationError{Field: "title", Message: fmt.Sprintf("title cannot exceed %d characters", maxTitleLength)}
	}
	return title, nil
}

// Rename validates and sets a new title.
func (d *Document) Rename(title string) error {
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	d.Title = title
	return nil
}

// ParseDocumentID normalizes and validates a UUID document id.
func ParseDocumentID(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", &ValidationError{Field: "id", Message: "document id cannot be empty"}
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", &ValidationError{Field: "id", Message: fmt.Sprintf("invalid UUID format: %s", id)}
	}
	return parsed.String(), nil
}

// AddChunk appends a chunk. Chunks of other documents are rejected.
func (d *Document) AddChunk(chunk Chunk) error {
	if chunk.DocumentID != d.ID {
		return fmt.Errorf("%w: %s", ErrChunkDocumentMismatch, chunk.DocumentID)
	}
	d.chunks = append(d.chunks, chunk)
	return nil
}

func (d *Document) ClearChunks() {
	d.chunks = nil
}

// Chunks returns a copy of the chunk set in index order.
func (d *Document) Chunks() []Chunk {
	out := make([]Chunk, len(d.chunks))
	copy(out, d.chunks)
	return out
}

func (d *Document) ChunkCount() int {
	return len(d.chunks)
}

func (d *Document) HasChunks() bool {
	return len(d.chunks) > 0
}

func (d *Document) AllChunksHaveEmbeddings() bool {
	for _, c := range d.chunks {
		if !c.HasEmbedding() {
			return false
		}
	}
	return true
}

func (d *Document) ChunkByIndex(index int) (Chunk, bool) {
	for _, c := range d.chunks {
		if c.Metadata.ChunkIndex == index {
			return c, true
		}
	}
	return Chunk{}, false
}

// Touch bumps the version and the update timestamp.
func (d *Document) Touch() {
	d.Version++
	d.Metadata.UpdatedAt = time.Now().UTC()
}

// RestoreDocument rebuilds a persisted document. Chunks are taken as stored,
// in index order.
func RestoreDocument(id, title string, content []byte, meta DocumentMetadata, version int, chunks []Chunk) *Document {
	return &Document{
		ID:       id,
		Title:    title,
		Content:  content,
		Metadata: meta,
		Version:  version,
		chunks:   append([]Chunk(nil), chunks...),
	}
}

// DocumentSummary is the listing view of a document, without content or
// chunk bodies.
type DocumentSummary struct {
	ID         string           `json:"id"`
	Title      string           `json:"title"`
	Metadata   DocumentMetadata `json:"metadata"`
	Version    int              `json:"version"`
	ChunkCount int              `json:"chunk_count"`
}
