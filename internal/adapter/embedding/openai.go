package embedding

import (
	"context"
	"fmt"
	"os"
	"sort"

	openai "github.com/sashabaranov/go-openai"

	"docrag/config"
	"docrag/internal/port"
)

const defaultBatchSize = 100

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint. Ollama is
// reached through its /v1 compatibility API.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	dimension int
	batchSize int
}

func NewOpenAIEmbedder(apiKeyEnv, model, baseURL string, batchSize int) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}
	return newEmbedder(apiKey, model, baseURL, modelDimension(model, 1536), batchSize), nil
}

func NewOllamaEmbedder(model, baseURL string, batchSize int) *OpenAIEmbedder {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	return newEmbedder("ollama", model, baseURL, modelDimension(model, 768), batchSize)
}

func newEmbedder(apiKey, model, baseURL string, dimension, batchSize int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		dimension: dimension,
		batchSize: batchSize,
	}
}

func modelDimension(model string, fallback int) int {
	switch model {
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "text-embedding-3-large":
		return 3072
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	default:
		return fallback
	}
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batchSize {
		end := min(i+e.batchSize, len(texts))
		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	data := resp.Data
	sort.Slice(data, func(i, j int) bool { return data[i].Index < data[j].Index })
	out := make([][]float32, len(data))
	for i, d := range data {
		v := make([]float32, len(d.Embedding))
		for j, x := range d.Embedding {
			v[j] = float32(x)
		}
		out[i] = v
	}
	return out, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}

// New builds the embedder named by cfg.Provider. Disabled embeddings yield
// a nil embedder and no error.
func New(cfg config.EmbeddingConfig) (port.Embedder, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Provider {
	case "openai", "":
		e, err := NewOpenAIEmbedder(cfg.APIKeyEnv, cfg.Model, cfg.BaseURL, cfg.BatchSize)
		if err != nil {
			return nil, err
		}
		if cfg.Dimension > 0 {
			e.dimension = cfg.Dimension
		}
		return e, nil
	case "ollama":
		e := NewOllamaEmbedder(cfg.Model, cfg.BaseURL, cfg.BatchSize)
		if cfg.Dimension > 0 {
			e.dimension = cfg.Dimension
		}
		return e, nil
	case "mock":
		return NewMockEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s", cfg.Provider)
	}
}
