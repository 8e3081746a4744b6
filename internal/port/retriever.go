package port

import (
	"context"

	"docrag/internal/domain"
)

// Retriever returns the top-k chunks for a query, best first.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
