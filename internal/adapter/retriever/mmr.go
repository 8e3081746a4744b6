package retriever

import (
	"docrag/internal/domain"
	"docrag/internal/port"
)

// MMRReranker diversifies results with Maximal Marginal Relevance over the
// term sets of chunk contents.
type MMRReranker struct {
	tokenizer    port.Tokenizer
	lambda       float64
	dedupJaccard float64
}

func NewMMRReranker(tokenizer port.Tokenizer, lambda, dedupJaccard float64) *MMRReranker {
	return &MMRReranker{
		tokenizer:    tokenizer,
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
	}
}

type mmrCandidate struct {
	hit       domain.ScoredChunk
	terms     map[string]struct{}
	relevance float64
	// maxSim is the highest similarity to any chunk picked so far.
	maxSim float64
	used   bool
}

// Rerank picks up to k candidates maximising
// lambda*relevance - (1-lambda)*max_similarity(selected). Relevance is the
// score relative to the best candidate. Candidates more similar than
// dedupJaccard to a picked one are dropped as near duplicates.
func (r *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 {
		return nil
	}

	top := 0.0
	for _, c := range candidates {
		top = max(top, c.Score)
	}
	if top == 0 {
		top = 1
	}

	pool := make([]mmrCandidate, len(candidates))
	for i, c := range candidates {
		pool[i] = mmrCandidate{
			hit:       c,
			terms:     termSet(r.tokenizer.Tokenize(c.Chunk.Content)),
			relevance: c.Score / top,
		}
	}

	selected := make([]domain.ScoredChunk, 0, min(k, len(pool)))
	for len(selected) < k {
		best := -1
		bestValue := 0.0
		for i := range pool {
			c := &pool[i]
			if c.used || c.maxSim > r.dedupJaccard {
				continue
			}
			value := r.lambda*c.relevance - (1-r.lambda)*c.maxSim
			if best == -1 || value > bestValue {
				best, bestValue = i, value
			}
		}
		if best == -1 {
			break
		}

		picked := &pool[best]
		picked.used = true
		selected = append(selected, picked.hit)
		for i := range pool {
			if !pool[i].used {
				pool[i].maxSim = max(pool[i].maxSim, setJaccard(pool[i].terms, picked.terms))
			}
		}
	}
	return selected
}

func termSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return set
}

// setJaccard is |a∩b| / |a∪b|. Two empty sets are identical.
func setJaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	if len(a) > len(b) {
		a, b = b, a
	}
	shared := 0
	for t := range a {
		if _, ok := b[t]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(a)+len(b)-shared)
}

func jaccardSimilarity(a, b []string) float64 {
	return setJaccard(termSet(a), termSet(b))
}
