package port

import "docrag/internal/domain"

// DocumentRepository persists documents together with their chunk set.
// Save replaces any chunks previously stored for the document.
type DocumentRepository interface {
	Save(doc *domain.Document) error

	FindByID(id string) (*domain.Document, error)

	FindBySourcePath(path string) (*domain.Document, error)

	List() ([]domain.DocumentSummary, error)

	Delete(id string) error
}

// ChunkIndex is the read side used by keyword retrieval.
type ChunkIndex interface {
	GetChunk(id string) (domain.Chunk, error)

	GetPostings(term string) ([]domain.Posting, error)

	GetStats() (domain.Stats, error)
}

type IndexStore interface {
	DocumentRepository
	ChunkIndex

	Close() error
}
