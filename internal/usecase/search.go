package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"docrag/internal/domain"
	"docrag/internal/port"
)

const previewLength = 200

var ErrVectorSearchDisabled = errors.New("vector search requires embeddings to be enabled")

// SearchUseCase runs keyword, vector and hybrid searches and shapes the
// hits into result items.
type SearchUseCase struct {
	docs     port.DocumentRepository
	keyword  port.Retriever
	vector   port.Retriever
	hybrid   port.Retriever
	reranker port.DiversityReranker
	cache    port.ResultCache
}

// NewSearchUseCase wires the retrievers. vector and hybrid may be nil when
// embeddings are disabled; reranker and cache are optional.
func NewSearchUseCase(
	docs port.DocumentRepository,
	keyword, vector, hybrid port.Retriever,
	reranker port.DiversityReranker,
	cache port.ResultCache,
) *SearchUseCase {
	return &SearchUseCase{
		docs:     docs,
		keyword:  keyword,
		vector:   vector,
		hybrid:   hybrid,
		reranker: reranker,
		cache:    cache,
	}
}

func (u *SearchUseCase) Search(ctx context.Context, q domain.SearchQuery) (domain.SearchResult, error) {
	start := time.Now()
	if err := q.Validate(); err != nil {
		return domain.SearchResult{}, err
	}
	if u.cache != nil {
		if cached, ok := u.cache.Get(q); ok {
			cached.Elapsed = time.Since(start)
			return cached, nil
		}
	}

	hits, err := u.Retrieve(ctx, q)
	if err != nil {
		return domain.SearchResult{}, err
	}

	total := len(hits)
	from := min(q.Offset, total)
	to := min(q.Offset+q.Limit, total)
	page := hits[from:to]

	titles := make(map[string]string)
	items := make([]domain.SearchResultItem, 0, len(page))
	for _, h := range page {
		title, ok := titles[h.Chunk.DocumentID]
		if !ok {
			if doc, err := u.docs.FindByID(h.Chunk.DocumentID); err == nil {
				title = doc.Title
			}
			titles[h.Chunk.DocumentID] = title
		}
		items = append(items, domain.SearchResultItem{
			DocumentID:    h.Chunk.DocumentID,
			DocumentTitle: title,
			ChunkID:       h.Chunk.ID,
			ChunkIndex:    h.Chunk.Metadata.ChunkIndex,
			Preview:       preview(h.Chunk.Content),
			Score:         h.Score,
			Confidence:    domain.ConfidenceFor(h.Score),
		})
	}

	result := domain.SearchResult{
		Query: q.Text,
		Type:  q.Type,
		Items: items,
		Total: total,
	}
	if u.cache != nil {
		u.cache.Put(q, result)
	}
	result.Elapsed = time.Since(start)
	return result, nil
}

// Retrieve returns every hit for q up to offset+limit, best first, with
// scores in [0,1]. Document filters and the similarity threshold are
// applied before diversification.
func (u *SearchUseCase) Retrieve(ctx context.Context, q domain.SearchQuery) ([]domain.ScoredChunk, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	retriever, err := u.retrieverFor(q.Type)
	if err != nil {
		return nil, err
	}

	want := q.Offset + q.Limit
	fetch := want * 2
	if len(q.DocumentIDs) > 0 {
		fetch = want * 5
	}
	candidates, err := retriever.Search(ctx, q.Text, fetch)
	if err != nil {
		return nil, err
	}
	if q.Type != domain.SearchVector {
		normalizeScores(candidates)
	}

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if len(q.DocumentIDs) > 0 && !slices.Contains(q.DocumentIDs, c.Chunk.DocumentID) {
			continue
		}
		c.Score = clamp01(c.Score)
		if c.Score < q.SimilarityThreshold {
			continue
		}
		filtered = append(filtered, c)
	}

	if u.reranker != nil {
		return u.reranker.Rerank(filtered, want), nil
	}
	if len(filtered) > want {
		filtered = filtered[:want]
	}
	return filtered, nil
}

func (u *SearchUseCase) retrieverFor(t domain.SearchType) (port.Retriever, error) {
	switch t {
	case domain.SearchVector:
		if u.vector == nil {
			return nil, ErrVectorSearchDisabled
		}
		return u.vector, nil
	case domain.SearchHybrid:
		if u.hybrid == nil {
			return u.keyword, nil
		}
		return u.hybrid, nil
	default:
		return u.keyword, nil
	}
}

// normalizeScores rescales rank-based scores so the best hit is 1.
func normalizeScores(hits []domain.ScoredChunk) {
	top := 0.0
	for _, h := range hits {
		top = max(top, h.Score)
	}
	if top == 0 {
		return
	}
	for i := range hits {
		hits[i].Score /= top
	}
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func preview(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(text) <= previewLength {
		return text
	}
	return string([]rune(text)[:previewLength]) + "..."
}
