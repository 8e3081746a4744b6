package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"sync"

	"go.etcd.io/bbolt"

	"docrag/internal/port"
)

var bucketVectors = []byte("vectors")

// BoltVectorStore persists chunk embeddings next to the keyword index and
// answers nearest-neighbour queries by exhaustive scan. Vectors are held in
// memory as unit vectors so a dot product gives the cosine similarity.
type BoltVectorStore struct {
	db        *bbolt.DB
	dimension int

	mu      sync.RWMutex
	entries map[string]unitVector
}

type unitVector struct {
	values []float32
	meta   map[string]string
}

type vectorRecord struct {
	Values []float32         `json:"values"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// NewBoltVectorStore opens the vector bucket in db and loads every stored
// vector.
func NewBoltVectorStore(db *bbolt.DB, dimension int) (*BoltVectorStore, error) {
	s := &BoltVectorStore{
		db:        db,
		dimension: dimension,
		entries:   make(map[string]unitVector),
	}
	err := db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketVectors)
		if err != nil {
			return err
		}
		return b.ForEach(func(k, v []byte) error {
			var rec vectorRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode vector %s: %w", k, err)
			}
			s.entries[string(k)] = unitVector{values: unit(rec.Values), meta: rec.Meta}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

func (s *BoltVectorStore) Upsert(_ context.Context, items []port.VectorItem) error {
	for _, item := range items {
		if len(item.Vector) != s.dimension {
			return fmt.Errorf("vector %s has dimension %d, want %d", item.ID, len(item.Vector), s.dimension)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, item := range items {
			data, err := json.Marshal(vectorRecord{Values: item.Vector, Meta: item.Metadata})
			if err != nil {
				return err
			}
			if err := b.Put([]byte(item.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, item := range items {
		s.entries[item.ID] = unitVector{values: unit(item.Vector), meta: item.Metadata}
	}
	return nil
}

// Search returns the k stored vectors most similar to query, best first.
// Equal scores are ordered by id.
func (s *BoltVectorStore) Search(_ context.Context, query []float32, k int) ([]port.VectorResult, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	q := unit(query)

	s.mu.RLock()
	results := make([]port.VectorResult, 0, len(s.entries))
	for id, e := range s.entries {
		results = append(results, port.VectorResult{ID: id, Score: dot(q, e.values), Metadata: e.meta})
	}
	s.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	return results[:min(k, len(results))], nil
}

func (s *BoltVectorStore) Delete(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for _, id := range ids {
			if err := b.Delete([]byte(id)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		delete(s.entries, id)
	}
	return nil
}

func (s *BoltVectorStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// unit returns v scaled to length 1. A zero vector stays zero and so scores
// 0 against everything.
func unit(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if sum == 0 {
		return out
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
