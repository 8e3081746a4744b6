package port

import "docrag/internal/domain"

type DiversityReranker interface {
	Rerank(chunks []domain.ScoredChunk, k int) []domain.ScoredChunk
}
