package usecase

import (
	"context"
	"fmt"
	"sort"

	"docrag/internal/domain"
	"docrag/internal/port"
)

// ContextUseCase assembles retrieved chunks into a prompt context that
// fits a token budget.
type ContextUseCase struct {
	search    *SearchUseCase
	docs      port.DocumentRepository
	tokenizer port.Tokenizer
}

func NewContextUseCase(search *SearchUseCase, docs port.DocumentRepository, tokenizer port.Tokenizer) *ContextUseCase {
	return &ContextUseCase{
		search:    search,
		docs:      docs,
		tokenizer: tokenizer,
	}
}

// Build searches for q and packs the hits into budget tokens.
func (u *ContextUseCase) Build(ctx context.Context, q domain.SearchQuery, budget int) (domain.RAGContext, error) {
	hits, err := u.search.Retrieve(ctx, q)
	if err != nil {
		return domain.RAGContext{}, err
	}
	return u.Pack(q.Text, hits, budget), nil
}

type packed struct {
	chunk  domain.Chunk
	score  float64
	tokens int
}

// Pack selects chunks greedily by score per token until the budget is
// spent, then merges chunks of one document whose ranges touch or
// overlap. Overlapping text appears once in the merged snippet.
func (u *ContextUseCase) Pack(query string, hits []domain.ScoredChunk, budget int) domain.RAGContext {
	out := domain.RAGContext{
		Query:        query,
		BudgetTokens: budget,
		Snippets:     []domain.Snippet{},
	}
	if len(hits) == 0 || budget <= 0 {
		return out
	}

	ranked := make([]packed, 0, len(hits))
	for _, h := range hits {
		tokens := max(1, u.tokenizer.CountTokens(h.Chunk.Content))
		ranked = append(ranked, packed{chunk: h.Chunk, score: h.Score, tokens: tokens})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score/float64(ranked[i].tokens) > ranked[j].score/float64(ranked[j].tokens)
	})

	var selected []packed
	used := 0
	for _, p := range ranked {
		if used+p.tokens > budget {
			continue
		}
		selected = append(selected, p)
		used += p.tokens
	}

	merged := u.mergeOverlapping(selected)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].score > merged[j].score
	})

	titles := make(map[string]string)
	for _, m := range merged {
		docID := m.chunk.DocumentID
		if _, ok := titles[docID]; !ok {
			if doc, err := u.docs.FindByID(docID); err == nil {
				titles[docID] = doc.Title
			}
		}
		out.Snippets = append(out.Snippets, domain.Snippet{
			DocumentID: docID,
			Title:      titles[docID],
			Range:      fmt.Sprintf("chars %d-%d", m.chunk.Metadata.StartPosition, m.chunk.Metadata.EndPosition),
			Score:      m.score,
			Text:       m.chunk.Content,
		})
		out.UsedTokens += m.tokens
	}
	return out
}

// mergeOverlapping joins chunks of the same document whose character
// ranges touch or overlap. A merge adds only the tokens of the appended
// tail, capped at the cost of the chunk it came from, so a merged snippet
// never costs more than its parts did when they were packed.
func (u *ContextUseCase) mergeOverlapping(selected []packed) []packed {
	byDoc := make(map[string][]packed)
	var order []string
	for _, p := range selected {
		id := p.chunk.DocumentID
		if _, ok := byDoc[id]; !ok {
			order = append(order, id)
		}
		byDoc[id] = append(byDoc[id], p)
	}

	result := make([]packed, 0, len(selected))
	for _, id := range order {
		group := byDoc[id]
		sort.Slice(group, func(i, j int) bool {
			return group[i].chunk.Metadata.StartPosition < group[j].chunk.Metadata.StartPosition
		})

		cur := group[0]
		for _, next := range group[1:] {
			curMeta, nextMeta := cur.chunk.Metadata, next.chunk.Metadata
			if nextMeta.StartPosition > curMeta.EndPosition {
				result = append(result, cur)
				cur = next
				continue
			}
			if nextMeta.EndPosition > curMeta.EndPosition {
				tail := string([]rune(next.chunk.Content)[curMeta.EndPosition-nextMeta.StartPosition:])
				cur.chunk.Content += tail
				cur.chunk.Metadata.EndPosition = nextMeta.EndPosition
				cur.tokens += min(u.tokenizer.CountTokens(tail), next.tokens)
			}
			cur.score = max(cur.score, next.score)
		}
		result = append(result, cur)
	}
	return result
}
