package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"docrag/internal/domain"
)

// QueryCache keeps recent search results in a size-bounded LRU whose
// entries expire after ttl.
type QueryCache struct {
	lru *expirable.LRU[string, domain.SearchResult]
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		lru: expirable.NewLRU[string, domain.SearchResult](maxSize, nil, ttl),
	}
}

func cacheKey(q domain.SearchQuery) string {
	ids := append([]string(nil), q.DocumentIDs...)
	sort.Strings(ids)
	raw := fmt.Sprintf("%s\x00%s\x00%d\x00%d\x00%g\x00%s",
		strings.TrimSpace(q.Text), q.Type, q.Limit, q.Offset, q.SimilarityThreshold, strings.Join(ids, ","))
	hash := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(q domain.SearchQuery) (domain.SearchResult, bool) {
	return c.lru.Get(cacheKey(q))
}

func (c *QueryCache) Put(q domain.SearchQuery, result domain.SearchResult) {
	c.lru.Add(cacheKey(q), result)
}

// Invalidate drops every entry.
func (c *QueryCache) Invalidate() {
	c.lru.Purge()
}

func (c *QueryCache) Size() int {
	return c.lru.Len()
}
