package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"docrag/internal/adapter/analyzer"
)

// MockEmbedder hashes index terms into a fixed number of buckets and
// normalises the result. Texts sharing terms get similar vectors, which is
// enough for offline runs and tests.
type MockEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension, tokenizer: analyzer.NewTokenizer()}
}

func (e *MockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := make([]float32, e.dimension)
		for _, term := range e.tokenizer.Tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(term))
			v[int(h.Sum32()%uint32(e.dimension))]++
		}
		normalize(v)
		out[i] = v
	}
	return out, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
