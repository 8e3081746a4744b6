package retriever

import (
	"context"
	"errors"
	"fmt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var ErrSemanticUnavailable = errors.New("semantic search not available: embeddings not configured")

// SemanticRetriever embeds the query and looks up its nearest chunks.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
	index       port.ChunkIndex
}

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder, index port.ChunkIndex) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
		index:       index,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.vectorStore == nil || r.embedder == nil {
		return nil, ErrSemanticUnavailable
	}

	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.vectorStore.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	chunks := make([]domain.ScoredChunk, 0, len(results))
	for _, result := range results {
		// vectors can outlive their chunk until the next save
		chunk, err := r.index.GetChunk(result.ID)
		if err != nil {
			continue
		}
		chunks = append(chunks, domain.ScoredChunk{Chunk: chunk, Score: result.Score})
	}
	return chunks, nil
}
