package usecase

import (
	"context"
	"fmt"
	"strconv"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type ChunkDocumentInput struct {
	DocumentID         string
	Strategy           port.ChunkingStrategy
	ChunkSize          int
	OverlapSize        int
	GenerateEmbeddings bool
}

type ChunkDocumentOutput struct {
	DocumentID          string `json:"document_id"`
	ChunkCount          int    `json:"chunk_count"`
	TotalCharacters     int    `json:"total_characters"`
	EmbeddingsGenerated bool   `json:"embeddings_generated"`
	Status              string `json:"status"`
}

// ChunkDocumentUseCase re-chunks a stored document from its raw content
// and optionally attaches embeddings to the new chunks.
type ChunkDocumentUseCase struct {
	docs      port.DocumentRepository
	extractor port.TextExtractor
	chunking  *ChunkingService
	embedder  port.Embedder
	vectors   port.VectorStore
	batchSize int
}

// NewChunkDocumentUseCase wires the use case. embedder and vectors may be
// nil when embeddings are disabled.
func NewChunkDocumentUseCase(
	docs port.DocumentRepository,
	extractor port.TextExtractor,
	chunking *ChunkingService,
	embedder port.Embedder,
	vectors port.VectorStore,
	batchSize int,
) *ChunkDocumentUseCase {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ChunkDocumentUseCase{
		docs:      docs,
		extractor: extractor,
		chunking:  chunking,
		embedder:  embedder,
		vectors:   vectors,
		batchSize: batchSize,
	}
}

// Execute runs extract, chunk, embed and save. Extraction and chunking
// errors produce a failed output alongside the error; embedding problems
// are logged and leave the chunks without vectors.
func (u *ChunkDocumentUseCase) Execute(ctx context.Context, in ChunkDocumentInput) (ChunkDocumentOutput, error) {
	log := logger.FromContext(ctx).With("document_id", in.DocumentID)
	failed := ChunkDocumentOutput{DocumentID: in.DocumentID, Status: StatusFailed}

	doc, err := u.docs.FindByID(in.DocumentID)
	if err != nil {
		return failed, err
	}
	previous := doc.Chunks()

	extracted, err := u.extractor.Extract(ctx, doc.Content, doc.Metadata.ContentType)
	if err != nil {
		return failed, fmt.Errorf("extract text: %w", err)
	}

	chunks, err := u.chunking.CreateChunks(doc, extracted.Content, in.Strategy, in.ChunkSize, in.OverlapSize)
	if err != nil {
		return failed, fmt.Errorf("create chunks: %w", err)
	}

	embedded := false
	if in.GenerateEmbeddings && u.embedder != nil && len(chunks) > 0 {
		withVectors, err := u.embedChunks(ctx, chunks)
		if err != nil {
			log.Warn("embedding generation failed, keeping chunks without vectors", "error", err)
		} else {
			chunks = withVectors
			embedded = true
		}
	}

	if err := u.chunking.UpdateDocumentChunks(doc, chunks); err != nil {
		return failed, err
	}
	doc.Touch()
	if err := u.docs.Save(doc); err != nil {
		return failed, fmt.Errorf("save document: %w", err)
	}

	u.syncVectors(ctx, log, previous, chunks, embedded)

	log.Debug("document chunked", "chunks", len(chunks), "characters", extracted.CharCount(), "embedded", embedded)
	return ChunkDocumentOutput{
		DocumentID:          doc.ID,
		ChunkCount:          len(chunks),
		TotalCharacters:     extracted.CharCount(),
		EmbeddingsGenerated: embedded,
		Status:              StatusCompleted,
	}, nil
}

func (u *ChunkDocumentUseCase) embedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.Chunk, error) {
	out := make([]domain.Chunk, len(chunks))
	for start := 0; start < len(chunks); start += u.batchSize {
		end := min(start+u.batchSize, len(chunks))
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Content)
		}
		vectors, err := u.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(texts))
		}
		for i, v := range vectors {
			out[start+i] = chunks[start+i].WithEmbedding(v)
		}
	}
	return out, nil
}

// syncVectors drops the vectors of replaced chunks and stores the new ones.
// The chunks are already saved, so failures here only degrade vector search.
func (u *ChunkDocumentUseCase) syncVectors(ctx context.Context, log logger.Logger, previous, chunks []domain.Chunk, embedded bool) {
	if u.vectors == nil {
		return
	}
	if len(previous) > 0 {
		ids := make([]string, len(previous))
		for i, c := range previous {
			ids[i] = c.ID
		}
		if err := u.vectors.Delete(ctx, ids); err != nil {
			log.Warn("failed to delete stale vectors", "error", err)
		}
	}
	if !embedded {
		return
	}
	items := make([]port.VectorItem, len(chunks))
	for i, c := range chunks {
		items[i] = port.VectorItem{
			ID:     c.ID,
			Vector: c.Embedding,
			Metadata: map[string]string{
				"document_id": c.DocumentID,
				"chunk_index": strconv.Itoa(c.Metadata.ChunkIndex),
			},
		}
	}
	if err := u.vectors.Upsert(ctx, items); err != nil {
		log.Warn("failed to store vectors", "error", err)
	}
}
