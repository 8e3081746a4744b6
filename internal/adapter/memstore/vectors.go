package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docrag/internal/port"
)

// VectorStore is a brute-force cosine VectorStore held in memory.
type VectorStore struct {
	mu        sync.RWMutex
	dimension int
	items     map[string]port.VectorItem
}

func NewVectorStore(dimension int) *VectorStore {
	return &VectorStore{dimension: dimension, items: make(map[string]port.VectorItem)}
}

func (v *VectorStore) Upsert(_ context.Context, items []port.VectorItem) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, item := range items {
		if len(item.Vector) != v.dimension {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", v.dimension, len(item.Vector))
		}
	}
	for _, item := range items {
		item.Vector = append([]float32(nil), item.Vector...)
		v.items[item.ID] = item
	}
	return nil
}

func (v *VectorStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if len(query) != v.dimension {
		return nil, fmt.Errorf("query dimension mismatch: expected %d, got %d", v.dimension, len(query))
	}
	if k <= 0 {
		return nil, nil
	}
	results := make([]port.VectorResult, 0, len(v.items))
	for id, item := range v.items {
		results = append(results, port.VectorResult{ID: id, Score: cosine(query, item.Vector), Metadata: item.Metadata})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ID < results[j].ID
		}
		return results[i].Score > results[j].Score
	})
	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

func (v *VectorStore) Delete(_ context.Context, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.items, id)
	}
	return nil
}

func (v *VectorStore) Count(_ context.Context) (int, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.items), nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
