package retriever

import (
	"context"
	"math"
	"sort"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// BM25Retriever ranks chunks by Okapi BM25 over the keyword postings.
type BM25Retriever struct {
	index     port.ChunkIndex
	tokenizer port.Tokenizer
	k1        float64
	b         float64
}

func NewBM25Retriever(index port.ChunkIndex, tokenizer port.Tokenizer, k1, b float64) *BM25Retriever {
	return &BM25Retriever{
		index:     index,
		tokenizer: tokenizer,
		k1:        k1,
		b:         b,
	}
}

func (r *BM25Retriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	terms := uniqueTerms(r.tokenizer.Tokenize(query))
	if len(terms) == 0 || k <= 0 {
		return nil, nil
	}

	stats, err := r.index.GetStats()
	if err != nil {
		return nil, err
	}
	if stats.TotalChunks == 0 {
		return nil, nil
	}
	avgDl := stats.AvgChunkLen()
	N := float64(stats.TotalChunks)

	chunkScores := make(map[string]float64)
	for _, term := range terms {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		postings, err := r.index.GetPostings(term)
		if err != nil {
			return nil, err
		}

		n := float64(len(postings))
		idf := math.Log((N-n+0.5)/(n+0.5) + 1)
		for _, p := range postings {
			chunkScores[p.ChunkID] += termScore(idf, float64(p.TF), float64(p.ChunkLen), avgDl, r.k1, r.b)
		}
	}

	ids := make([]string, 0, len(chunkScores))
	for id := range chunkScores {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if chunkScores[ids[i]] == chunkScores[ids[j]] {
			return ids[i] < ids[j]
		}
		return chunkScores[ids[i]] > chunkScores[ids[j]]
	})
	if len(ids) > k {
		ids = ids[:k]
	}

	results := make([]domain.ScoredChunk, 0, len(ids))
	for _, id := range ids {
		chunk, err := r.index.GetChunk(id)
		if err != nil {
			continue
		}
		results = append(results, domain.ScoredChunk{Chunk: chunk, Score: chunkScores[id]})
	}
	return results, nil
}

func termScore(idf, tf, dl, avgDl, k1, b float64) float64 {
	if avgDl == 0 {
		avgDl = 1
	}
	return idf * (tf * (k1 + 1)) / (tf + k1*(1-b+b*dl/avgDl))
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := tokens[:0:0]
	for _, t := range tokens {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
