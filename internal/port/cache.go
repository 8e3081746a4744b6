package port

import "docrag/internal/domain"

// ResultCache memoises search results. Anything that changes the index
// must call Invalidate.
type ResultCache interface {
	Get(query domain.SearchQuery) (domain.SearchResult, bool)

	Put(query domain.SearchQuery, result domain.SearchResult)

	Invalidate()
}
