package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/config"
)

func TestOpenAIEmbedder_Embed(t *testing.T) {
	var requests [][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		requests = append(requests, req.Input)

		data := make([]map[string]any, len(req.Input))
		// reversed on purpose: the client must reorder by index
		for i := range req.Input {
			idx := len(req.Input) - 1 - i
			data[i] = map[string]any{
				"object":    "embedding",
				"index":     idx,
				"embedding": []float32{float32(len(req.Input[idx])), 1},
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	t.Setenv("TEST_EMBED_KEY", "secret")
	e, err := NewOpenAIEmbedder("TEST_EMBED_KEY", "text-embedding-3-small", srv.URL, 2)
	require.NoError(t, err)
	assert.Equal(t, 1536, e.Dimension())

	vectors, err := e.Embed(context.Background(), []string{"a", "bb", "ccc"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{1, 1}, vectors[0])
	assert.Equal(t, []float32{2, 1}, vectors[1])
	assert.Equal(t, []float32{3, 1}, vectors[2])
	assert.Equal(t, [][]string{{"a", "bb"}, {"ccc"}}, requests)
}

func TestOpenAIEmbedder_MissingKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	_, err := NewOpenAIEmbedder("TEST_EMBED_KEY", "text-embedding-3-small", "", 0)
	assert.Error(t, err)
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()
	vectors, err := e.Embed(ctx, []string{"chunk overlap", "chunk overlap", "unrelated words"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Len(t, vectors[0], 32)
	assert.Equal(t, vectors[0], vectors[1])
	assert.NotEqual(t, vectors[0], vectors[2])

	var norm float32
	for _, x := range vectors[0] {
		norm += x * x
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

type countingEmbedder struct {
	*MockEmbedder
	inputs int
}

func (c *countingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	c.inputs += len(texts)
	return c.MockEmbedder.Embed(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	c, err := NewCachedEmbedder(inner, 10)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := c.Embed(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	second, err := c.Embed(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)

	assert.Equal(t, 3, inner.inputs)
	assert.Equal(t, first[1], second[0])
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, 8, c.Dimension())
	assert.Equal(t, "mock", c.ModelName())

	_, err = NewCachedEmbedder(inner, 0)
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	e, err := New(config.EmbeddingConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, e)

	e, err = New(config.EmbeddingConfig{Enabled: true, Provider: "mock", Dimension: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimension())

	e, err = New(config.EmbeddingConfig{Enabled: true, Provider: "ollama", Model: "mxbai-embed-large"})
	require.NoError(t, err)
	assert.Equal(t, 1024, e.Dimension())

	_, err = New(config.EmbeddingConfig{Enabled: true, Provider: "nope"})
	assert.Error(t, err)
}
