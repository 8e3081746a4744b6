package retriever

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/domain"
)

func scored(id, content string, score float64) domain.ScoredChunk {
	return domain.ScoredChunk{Chunk: domain.Chunk{ID: id, Content: content}, Score: score}
}

func TestMMRReranker_Rerank(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()

	t.Run("Should prefer diverse results", func(t *testing.T) {
		reranker := NewMMRReranker(tokenizer, 0.7, 0.9)
		results := reranker.Rerank([]domain.ScoredChunk{
			scored("c1", "auth login user password", 1.0),
			scored("c2", "auth login user session", 0.9),
			scored("c3", "database query sql connection", 0.8),
			scored("c4", "auth jwt token oauth", 0.7),
		}, 3)

		require.Len(t, results, 3)
		assert.Equal(t, "c1", results[0].Chunk.ID)
		assert.Equal(t, "c3", results[1].Chunk.ID)
	})

	t.Run("Should drop near duplicates", func(t *testing.T) {
		reranker := NewMMRReranker(tokenizer, 0.5, 0.3)
		results := reranker.Rerank([]domain.ScoredChunk{
			scored("c1", "alpha beta gamma", 1.0),
			scored("c2", "alpha beta gamma", 0.9),
		}, 2)

		require.Len(t, results, 1)
		assert.Equal(t, "c1", results[0].Chunk.ID)
	})

	t.Run("Should return nil for no candidates", func(t *testing.T) {
		reranker := NewMMRReranker(tokenizer, 0.7, 0.8)
		assert.Nil(t, reranker.Rerank(nil, 10))
		assert.Nil(t, reranker.Rerank([]domain.ScoredChunk{}, 10))
	})
}

func TestJaccardSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []string
		b        []string
		expected float64
	}{
		{"identical", []string{"a", "b", "c"}, []string{"a", "b", "c"}, 1.0},
		{"no overlap", []string{"a", "b", "c"}, []string{"d", "e", "f"}, 0.0},
		{"half overlap", []string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
		{"empty a", []string{}, []string{"a", "b"}, 0.0},
		{"empty b", []string{"a", "b"}, []string{}, 0.0},
		{"both empty", []string{}, []string{}, 1.0},
		{"duplicates ignored", []string{"a", "a", "b"}, []string{"a", "b"}, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.expected, jaccardSimilarity(tc.a, tc.b), 0.001)
		})
	}
}
