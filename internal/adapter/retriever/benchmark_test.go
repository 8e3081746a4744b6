package retriever

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/memstore"
)

// TestKeywordRetrievalQuality runs a small labelled query set against BM25
// and checks ranking metrics stay above a floor.
func TestKeywordRetrievalQuality(t *testing.T) {
	tokenizer := analyzer.NewTokenizer()
	st := memstore.NewMemoryStore(tokenizer)
	ids := indexCorpus(t, st,
		"Chunk overlap keeps context that straddles a chunk boundary.",
		"The token strategy windows text by tiktoken tokens.",
		"Sentence packing groups whole sentences up to the chunk size.",
		"Embeddings are stored in a vector store for similarity search.",
		"BM25 ranks chunks by term frequency and inverse document frequency.",
	)
	r := NewBM25Retriever(st, tokenizer, 1.2, 0.75)

	queries := []struct {
		text     string
		relevant string
	}{
		{"chunk overlap boundary", ids[0]},
		{"tiktoken tokens", ids[1]},
		{"sentence packing", ids[2]},
		{"vector similarity", ids[3]},
		{"term frequency ranking", ids[4]},
	}

	var mrr float64
	for _, q := range queries {
		results, err := r.Search(context.Background(), q.text, 3)
		require.NoError(t, err)
		retrieved := make([]string, len(results))
		for i, res := range results {
			retrieved[i] = res.Chunk.ID
		}
		mrr += reciprocalRank(retrieved, q.relevant)
		assert.Positive(t, recallAtK(retrieved, []string{q.relevant}), q.text)
	}
	assert.GreaterOrEqual(t, mrr/float64(len(queries)), 0.8)
}

func TestRankingMetrics(t *testing.T) {
	assert.InDelta(t, 0.666, precisionAtK([]string{"a", "b", "x"}, []string{"a", "b", "c"}), 0.01)
	assert.Zero(t, precisionAtK(nil, []string{"a"}))
	assert.InDelta(t, 0.666, recallAtK([]string{"a", "b", "x"}, []string{"a", "b", "c"}), 0.01)
	assert.Zero(t, recallAtK([]string{"a"}, nil))
	assert.InDelta(t, 0.5, reciprocalRank([]string{"x", "a"}, "a"), 1e-9)
	assert.Zero(t, reciprocalRank([]string{"x"}, "a"))
	assert.InDelta(t, 1.0, ndcg([]float64{3, 2, 1}, []float64{3, 2, 1}), 1e-9)
	assert.InDelta(t, 0.790, ndcg([]float64{1, 2, 3}, []float64{3, 2, 1}), 0.01)
	assert.Zero(t, ndcg([]float64{1}, []float64{0}))
}

func precisionAtK(retrieved, relevant []string) float64 {
	if len(retrieved) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(retrieved))
}

func recallAtK(retrieved, relevant []string) float64 {
	if len(relevant) == 0 {
		return 0
	}
	return float64(hits(retrieved, relevant)) / float64(len(relevant))
}

func hits(retrieved, relevant []string) int {
	set := make(map[string]bool, len(relevant))
	for _, r := range relevant {
		set[r] = true
	}
	n := 0
	for _, r := range retrieved {
		if set[r] {
			n++
		}
	}
	return n
}

func reciprocalRank(retrieved []string, relevant string) float64 {
	for i, r := range retrieved {
		if r == relevant {
			return 1.0 / float64(i+1)
		}
	}
	return 0
}

func ndcg(scores, ideal []float64) float64 {
	idcg := dcg(ideal)
	if idcg == 0 {
		return 0
	}
	return dcg(scores) / idcg
}

func dcg(scores []float64) float64 {
	total := 0.0
	for i, s := range scores {
		total += s / math.Log2(float64(i+2))
	}
	return total
}
