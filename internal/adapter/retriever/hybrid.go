package retriever

import (
	"context"
	"sort"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// HybridRetriever fuses keyword and vector rankings with weighted
// reciprocal rank fusion.
type HybridRetriever struct {
	keyword    port.Retriever
	vector     port.Retriever
	rrfK       int
	bm25Weight float64
}

func NewHybridRetriever(keyword, vector port.Retriever, rrfK int, bm25Weight float64) *HybridRetriever {
	if rrfK <= 0 {
		rrfK = 60
	}
	if bm25Weight < 0 || bm25Weight > 1 {
		bm25Weight = 0.5
	}
	return &HybridRetriever{
		keyword:    keyword,
		vector:     vector,
		rrfK:       rrfK,
		bm25Weight: bm25Weight,
	}
}

// Search falls back to whichever side still works when the other fails.
func (r *HybridRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	if r.vector == nil {
		return r.keyword.Search(ctx, query, k)
	}

	candidateK := k * 3
	if candidateK < 20 {
		candidateK = 20
	}

	keywordResults, err := r.keyword.Search(ctx, query, candidateK)
	if err != nil {
		return r.vector.Search(ctx, query, k)
	}

	vectorResults, err := r.vector.Search(ctx, query, candidateK)
	if err != nil {
		return keywordResults[:min(k, len(keywordResults))], nil
	}

	fused := r.rrfFuse(keywordResults, vectorResults)
	if len(fused) > k {
		fused = fused[:k]
	}
	return fused, nil
}

// rrfFuse scores each chunk by sum(weight / (rrfK + rank)) over both lists.
func (r *HybridRetriever) rrfFuse(keywordResults, vectorResults []domain.ScoredChunk) []domain.ScoredChunk {
	scores := make(map[string]float64)
	chunks := make(map[string]domain.Chunk)

	for rank, result := range keywordResults {
		scores[result.Chunk.ID] += r.bm25Weight / float64(r.rrfK+rank+1)
		chunks[result.Chunk.ID] = result.Chunk
	}
	vectorWeight := 1.0 - r.bm25Weight
	for rank, result := range vectorResults {
		scores[result.Chunk.ID] += vectorWeight / float64(r.rrfK+rank+1)
		if _, ok := chunks[result.Chunk.ID]; !ok {
			chunks[result.Chunk.ID] = result.Chunk
		}
	}

	fused := make([]domain.ScoredChunk, 0, len(scores))
	for id, score := range scores {
		fused = append(fused, domain.ScoredChunk{Chunk: chunks[id], Score: score})
	}
	sort.Slice(fused, func(i, j int) bool {
		if fused[i].Score == fused[j].Score {
			return fused[i].Chunk.ID < fused[j].Chunk.ID
		}
		return fused[i].Score > fused[j].Score
	})
	return fused
}
