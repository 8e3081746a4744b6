package memstore

import (
	"fmt"
	"sort"
	"sync"

	"docrag/internal/domain"
	"docrag/internal/port"
)

type storedDoc struct {
	title    string
	content  []byte
	metadata domain.DocumentMetadata
	version  int
}

// MemoryStore is an IndexStore that lives in process memory. It indexes
// chunks the same way the bolt store does and is used by tests and
// throwaway runs.
type MemoryStore struct {
	mu        sync.RWMutex
	tokenizer port.Tokenizer
	docs      map[string]storedDoc
	paths     map[string]string
	chunks    map[string]domain.Chunk
	docChunks map[string][]string
	postings  map[string][]domain.Posting
	stats     domain.Stats
}

func NewMemoryStore(tokenizer port.Tokenizer) *MemoryStore {
	return &MemoryStore{
		tokenizer: tokenizer,
		docs:      make(map[string]storedDoc),
		paths:     make(map[string]string),
		chunks:    make(map[string]domain.Chunk),
		docChunks: make(map[string][]string),
		postings:  make(map[string][]domain.Posting),
	}
}

func (s *MemoryStore) Save(doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.docs[doc.ID]; !ok {
		s.stats.TotalDocs++
	} else if prev.metadata.FilePath != doc.Metadata.FilePath {
		delete(s.paths, prev.metadata.FilePath)
	}
	s.removeChunks(doc.ID)

	s.docs[doc.ID] = storedDoc{
		title:    doc.Title,
		content:  append([]byte(nil), doc.Content...),
		metadata: doc.Metadata,
		version:  doc.Version,
	}
	if doc.Metadata.FilePath != "" {
		s.paths[doc.Metadata.FilePath] = doc.ID
	}

	chunks := doc.Chunks()
	ids := make([]string, 0, len(chunks))
	for _, c := range chunks {
		s.chunks[c.ID] = c
		ids = append(ids, c.ID)

		tokens := s.tokenizer.Tokenize(c.Content)
		tf := make(map[string]int)
		for _, t := range tokens {
			tf[t]++
		}
		for term, n := range tf {
			s.postings[term] = append(s.postings[term], domain.Posting{ChunkID: c.ID, TF: n, ChunkLen: len(tokens)})
		}
		s.stats.TotalChunks++
		s.stats.TotalTokens += len(tokens)
	}
	s.docChunks[doc.ID] = ids
	return nil
}

func (s *MemoryStore) removeChunks(docID string) {
	ids := s.docChunks[docID]
	if len(ids) == 0 {
		return
	}
	removed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		removed[id] = struct{}{}
		delete(s.chunks, id)
		s.stats.TotalChunks--
	}
	for term, postings := range s.postings {
		filtered := postings[:0]
		for _, p := range postings {
			if _, gone := removed[p.ChunkID]; gone {
				s.stats.TotalTokens -= p.TF
				continue
			}
			filtered = append(filtered, p)
		}
		if len(filtered) == 0 {
			delete(s.postings, term)
		} else {
			s.postings[term] = filtered
		}
	}
	delete(s.docChunks, docID)
}

func (s *MemoryStore) FindByID(id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.findLocked(id)
}

func (s *MemoryStore) findLocked(id string) (*domain.Document, error) {
	d, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	ids := s.docChunks[id]
	chunks := make([]domain.Chunk, 0, len(ids))
	for _, cid := range ids {
		chunks = append(chunks, s.chunks[cid])
	}
	return domain.RestoreDocument(id, d.title, append([]byte(nil), d.content...), d.metadata, d.version, chunks), nil
}

func (s *MemoryStore) FindBySourcePath(path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.paths[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
	}
	return s.findLocked(id)
}

func (s *MemoryStore) List() ([]domain.DocumentSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.DocumentSummary, 0, len(s.docs))
	for id, d := range s.docs {
		out = append(out, domain.DocumentSummary{
			ID:         id,
			Title:      d.title,
			Metadata:   d.metadata,
			Version:    d.version,
			ChunkCount: len(s.docChunks[id]),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Metadata.CreatedAt.Equal(out[j].Metadata.CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].Metadata.CreatedAt.Before(out[j].Metadata.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
	}
	s.removeChunks(id)
	delete(s.paths, d.metadata.FilePath)
	delete(s.docs, id)
	s.stats.TotalDocs--
	return nil
}

func (s *MemoryStore) GetChunk(id string) (domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunk, ok := s.chunks[id]
	if !ok {
		return domain.Chunk{}, fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
	}
	return chunk, nil
}

func (s *MemoryStore) GetPostings(term string) ([]domain.Posting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Posting(nil), s.postings[term]...), nil
}

func (s *MemoryStore) GetStats() (domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
