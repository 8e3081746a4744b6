package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/memstore"
	"docrag/internal/adapter/retriever"
	"docrag/internal/domain"
)

const testDim = 32

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service unavailable")
}
func (failingEmbedder) Dimension() int    { return testDim }
func (failingEmbedder) ModelName() string { return "failing" }

// testEnv wires every use case over in-memory adapters.
type testEnv struct {
	tokenizer *analyzer.Tokenizer
	store     *memstore.MemoryStore
	vectors   *memstore.VectorStore
	cache     *cache.QueryCache
	chunker   *ChunkDocumentUseCase
	documents *DocumentsUseCase
	search    *SearchUseCase
	context   *ContextUseCase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokenizer := analyzer.NewTokenizer()
	st := memstore.NewMemoryStore(tokenizer)
	vs := memstore.NewVectorStore(testDim)
	emb := embedding.NewMockEmbedder(testDim)
	qc := cache.NewQueryCache(16, 0)

	keyword := retriever.NewBM25Retriever(st, tokenizer, 1.2, 0.75)
	vector := retriever.NewSemanticRetriever(vs, emb, st)
	hybrid := retriever.NewHybridRetriever(keyword, vector, 60, 0.5)
	search := NewSearchUseCase(st, keyword, vector, hybrid, nil, qc)

	return &testEnv{
		tokenizer: tokenizer,
		store:     st,
		vectors:   vs,
		cache:     qc,
		chunker:   NewChunkDocumentUseCase(st, extractor.NewDefault(), NewChunkingService(), emb, vs, 4),
		documents: NewDocumentsUseCase(st, vs, qc),
		search:    search,
		context:   NewContextUseCase(search, st, tokenizer),
	}
}

// addDocument stores a text/plain document without chunks.
func (e *testEnv) addDocument(t *testing.T, title, content string) *domain.Document {
	t.Helper()
	doc, err := domain.NewDocument(title, []byte(content), domain.DocumentMetadata{
		FileName:    title,
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	require.NoError(t, e.store.Save(doc))
	return doc
}
