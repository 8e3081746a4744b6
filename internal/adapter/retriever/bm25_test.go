package retriever

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/memstore"
	"docrag/internal/domain"
)

// indexCorpus stores each text as a single-chunk document and returns the
// chunk ids in input order.
func indexCorpus(t *testing.T, st *memstore.MemoryStore, texts ...string) []string {
	t.Helper()
	ids := make([]string, 0, len(texts))
	for _, text := range texts {
		doc, err := domain.NewDocument("doc", []byte(text), domain.DocumentMetadata{})
		require.NoError(t, err)
		c, err := domain.NewChunk(doc.ID, text, domain.ChunkMetadata{
			EndPosition: len([]rune(text)),
			TotalChunks: 1,
		})
		require.NoError(t, err)
		require.NoError(t, doc.AddChunk(c))
		require.NoError(t, st.Save(doc))
		ids = append(ids, c.ID)
	}
	return ids
}

func TestBM25Retriever_Search(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	st := memstore.NewMemoryStore(tokenizer)
	ids := indexCorpus(t, st,
		"This is a test document about authentication and login",
		"Database connection pooling and query optimization",
		"User authentication with JWT tokens and OAuth",
	)
	r := NewBM25Retriever(st, tokenizer, 1.2, 0.75)
	ctx := context.Background()

	t.Run("Should rank matching chunks", func(t *testing.T) {
		results, err := r.Search(ctx, "authentication", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		got := []string{results[0].Chunk.ID, results[1].Chunk.ID}
		assert.ElementsMatch(t, []string{ids[0], ids[2]}, got)
		assert.Greater(t, results[0].Score, 0.0)
	})

	t.Run("Should put the only match first", func(t *testing.T) {
		results, err := r.Search(ctx, "database", 10)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, ids[1], results[0].Chunk.ID)
	})

	t.Run("Should honour k", func(t *testing.T) {
		results, err := r.Search(ctx, "authentication", 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("Should return nothing for empty or unmatched queries", func(t *testing.T) {
		results, err := r.Search(ctx, "", 10)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = r.Search(ctx, "zzzznonexistent", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Should match CJK text by bigrams", func(t *testing.T) {
		cjk := indexCorpus(t, st, "東京都の天気は晴れです")
		results, err := r.Search(ctx, "東京の天気", 5)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Equal(t, cjk[0], results[0].Chunk.ID)
	})
}

func TestBM25Retriever_EmptyIndex(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	r := NewBM25Retriever(memstore.NewMemoryStore(tokenizer), tokenizer, 1.2, 0.75)
	results, err := r.Search(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBM25Retriever_ShorterChunkScoresHigher(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	st := memstore.NewMemoryStore(tokenizer)
	ids := indexCorpus(t, st,
		"kernel scheduler",
		"kernel memory allocator paging swapping tuning",
	)
	r := NewBM25Retriever(st, tokenizer, 1.2, 0.75)
	results, err := r.Search(context.Background(), "kernel", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, ids[0], results[0].Chunk.ID)
}

func TestUniqueTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, uniqueTerms([]string{"a", "b", "a"}))
	assert.Empty(t, uniqueTerms(nil))
}
