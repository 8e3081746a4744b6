package port

import "context"

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	Dimension() int

	ModelName() string
}

// VectorStore stores and searches embedding vectors.
type VectorStore interface {
	Upsert(ctx context.Context, items []VectorItem) error

	// Search finds the k nearest vectors to the query.
	Search(ctx context.Context, query []float32, k int) ([]VectorResult, error)

	Delete(ctx context.Context, ids []string) error

	Count(ctx context.Context) (int, error)
}

type VectorItem struct {
	ID       string // chunk ID
	Vector   []float32
	Metadata map[string]string
}

type VectorResult struct {
	ID       string
	Score    float64 // cosine similarity, higher is better
	Metadata map[string]string
}
