package usecase

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/extractor"
	"docrag/internal/domain"
)

func TestChunkDocument_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("Should chunk, embed and save", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.addDocument(t, "guide.txt", strings.Repeat("0123456789", 10))

		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID:         doc.ID,
			Strategy:           chunker.NewFixedWindowStrategy(),
			ChunkSize:          30,
			OverlapSize:        10,
			GenerateEmbeddings: true,
		})
		require.NoError(t, err)
		assert.Equal(t, ChunkDocumentOutput{
			DocumentID:          doc.ID,
			ChunkCount:          5,
			TotalCharacters:     100,
			EmbeddingsGenerated: true,
			Status:              StatusCompleted,
		}, out)

		saved, err := env.store.FindByID(doc.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, saved.ChunkCount())
		assert.True(t, saved.AllChunksHaveEmbeddings())
		assert.Equal(t, 2, saved.Version)

		n, err := env.vectors.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
	})

	t.Run("Should replace previous chunks and vectors", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.addDocument(t, "a.txt", strings.Repeat("word ", 40))
		in := ChunkDocumentInput{
			DocumentID:         doc.ID,
			Strategy:           chunker.NewFixedWindowStrategy(),
			ChunkSize:          50,
			OverlapSize:        0,
			GenerateEmbeddings: true,
		}
		_, err := env.chunker.Execute(ctx, in)
		require.NoError(t, err)
		first, _ := env.store.FindByID(doc.ID)

		in.ChunkSize = 100
		out, err := env.chunker.Execute(ctx, in)
		require.NoError(t, err)
		assert.Equal(t, 2, out.ChunkCount)

		for _, c := range first.Chunks() {
			_, err := env.store.GetChunk(c.ID)
			assert.ErrorIs(t, err, domain.ErrChunkNotFound)
		}
		n, _ := env.vectors.Count(ctx)
		assert.Equal(t, 2, n)
	})

	t.Run("Should keep chunks when embedding fails", func(t *testing.T) {
		env := newTestEnv(t)
		uc := NewChunkDocumentUseCase(env.store, extractor.NewDefault(), NewChunkingService(), failingEmbedder{}, env.vectors, 10)
		doc := env.addDocument(t, "a.txt", "some text to chunk")

		out, err := uc.Execute(ctx, ChunkDocumentInput{
			DocumentID:         doc.ID,
			Strategy:           chunker.NewFixedWindowStrategy(),
			ChunkSize:          100,
			OverlapSize:        10,
			GenerateEmbeddings: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out.Status)
		assert.Equal(t, 1, out.ChunkCount)
		assert.False(t, out.EmbeddingsGenerated)

		saved, _ := env.store.FindByID(doc.ID)
		assert.False(t, saved.AllChunksHaveEmbeddings())
	})

	t.Run("Should skip embeddings when not requested", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.addDocument(t, "a.txt", "plain words")
		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID:  doc.ID,
			Strategy:    chunker.NewFixedWindowStrategy(),
			ChunkSize:   100,
			OverlapSize: 0,
		})
		require.NoError(t, err)
		assert.False(t, out.EmbeddingsGenerated)
		n, _ := env.vectors.Count(ctx)
		assert.Zero(t, n)
	})

	t.Run("Should produce no chunks for blank content", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.addDocument(t, "blank.txt", "  \n\n ")
		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID:         doc.ID,
			Strategy:           chunker.NewFixedWindowStrategy(),
			ChunkSize:          100,
			OverlapSize:        0,
			GenerateEmbeddings: true,
		})
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, out.Status)
		assert.Zero(t, out.ChunkCount)
		assert.False(t, out.EmbeddingsGenerated)
	})

	t.Run("Should fail on unknown documents", func(t *testing.T) {
		env := newTestEnv(t)
		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID: "missing",
			Strategy:   chunker.NewFixedWindowStrategy(),
			ChunkSize:  100,
		})
		assert.ErrorIs(t, err, domain.ErrDocumentNotFound)
		assert.Equal(t, StatusFailed, out.Status)
	})

	t.Run("Should fail on invalid parameters", func(t *testing.T) {
		env := newTestEnv(t)
		doc := env.addDocument(t, "a.txt", "text")
		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID:  doc.ID,
			Strategy:    chunker.NewFixedWindowStrategy(),
			ChunkSize:   10,
			OverlapSize: 10,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidParameter)
		assert.Equal(t, StatusFailed, out.Status)
	})

	t.Run("Should fail on unsupported content", func(t *testing.T) {
		env := newTestEnv(t)
		doc, err := domain.NewDocument("logo.png", []byte{0x89, 'P', 'N', 'G'}, domain.DocumentMetadata{ContentType: "image/png"})
		require.NoError(t, err)
		require.NoError(t, env.store.Save(doc))

		out, err := env.chunker.Execute(ctx, ChunkDocumentInput{
			DocumentID: doc.ID,
			Strategy:   chunker.NewFixedWindowStrategy(),
			ChunkSize:  100,
		})
		assert.ErrorIs(t, err, domain.ErrUnsupportedContentType)
		assert.Equal(t, StatusFailed, out.Status)
	})
}
