package store

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.etcd.io/bbolt"

	"docrag/internal/domain"
	"docrag/internal/port"
)

var (
	bucketDocs       = []byte("docs")
	bucketBlobs      = []byte("blobs")
	bucketPaths      = []byte("paths")
	bucketChunks     = []byte("chunks")
	bucketDocChunks  = []byte("doc_chunks")
	bucketChunkTerms = []byte("chunk_terms")
	bucketTerms      = []byte("terms")
	bucketStats      = []byte("stats")
	keyStats         = []byte("corpus_stats")

	dataBuckets = [][]byte{bucketDocs, bucketBlobs, bucketPaths, bucketChunks, bucketDocChunks, bucketChunkTerms, bucketTerms}
)

// BoltStore keeps documents, their chunks and the keyword index in a single
// bolt file. Saving a document rewrites its chunks and postings in one
// transaction.
type BoltStore struct {
	db        *bbolt.DB
	tokenizer port.Tokenizer
}

func NewBoltStore(path string, tokenizer port.Tokenizer) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range append(dataBuckets, bucketStats) {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db, tokenizer: tokenizer}, nil
}

// DB exposes the handle so the vector store can share the file.
func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type docRecord struct {
	Title      string                  `json:"title"`
	Metadata   domain.DocumentMetadata `json:"metadata"`
	Version    int                     `json:"version"`
	ChunkCount int                     `json:"chunk_count"`
}

type chunkRecord struct {
	DocumentID string               `json:"document_id"`
	Content    string               `json:"content"`
	Embedding  []float32            `json:"embedding,omitempty"`
	Metadata   domain.ChunkMetadata `json:"metadata"`
}

func (s *BoltStore) Save(doc *domain.Document) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		stats, err := readStats(tx)
		if err != nil {
			return err
		}

		docs := tx.Bucket(bucketDocs)
		if prev := docs.Get([]byte(doc.ID)); prev == nil {
			stats.TotalDocs++
		} else {
			var old docRecord
			if err := json.Unmarshal(prev, &old); err == nil && old.Metadata.FilePath != doc.Metadata.FilePath {
				tx.Bucket(bucketPaths).Delete([]byte(old.Metadata.FilePath))
			}
		}
		if err := s.removeChunks(tx, doc.ID, &stats); err != nil {
			return err
		}

		chunks := doc.Chunks()
		rec := docRecord{
			Title:      doc.Title,
			Metadata:   doc.Metadata,
			Version:    doc.Version,
			ChunkCount: len(chunks),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(doc.ID), data); err != nil {
			return err
		}
		if err := tx.Bucket(bucketBlobs).Put([]byte(doc.ID), doc.Content); err != nil {
			return err
		}
		if doc.Metadata.FilePath != "" {
			if err := tx.Bucket(bucketPaths).Put([]byte(doc.Metadata.FilePath), []byte(doc.ID)); err != nil {
				return err
			}
		}

		chunkIDs := make([]string, 0, len(chunks))
		postings := make(map[string][]domain.Posting)
		for _, c := range chunks {
			if err := putChunk(tx, c); err != nil {
				return err
			}
			chunkIDs = append(chunkIDs, c.ID)

			tokens := s.tokenizer.Tokenize(c.Content)
			tf := make(map[string]int)
			for _, t := range tokens {
				tf[t]++
			}
			terms := make([]string, 0, len(tf))
			for term, n := range tf {
				terms = append(terms, term)
				postings[term] = append(postings[term], domain.Posting{ChunkID: c.ID, TF: n, ChunkLen: len(tokens)})
			}
			sort.Strings(terms)
			termsData, err := json.Marshal(terms)
			if err != nil {
				return err
			}
			if err := tx.Bucket(bucketChunkTerms).Put([]byte(c.ID), termsData); err != nil {
				return err
			}
			stats.TotalChunks++
			stats.TotalTokens += len(tokens)
		}

		idsData, err := json.Marshal(chunkIDs)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketDocChunks).Put([]byte(doc.ID), idsData); err != nil {
			return err
		}

		termsBucket := tx.Bucket(bucketTerms)
		for term, newPostings := range postings {
			var existing []domain.Posting
			if data := termsBucket.Get([]byte(term)); data != nil {
				if err := json.Unmarshal(data, &existing); err != nil {
					return err
				}
			}
			existing = append(existing, newPostings...)
			data, err := json.Marshal(existing)
			if err != nil {
				return err
			}
			if err := termsBucket.Put([]byte(term), data); err != nil {
				return err
			}
		}

		return writeStats(tx, stats)
	})
}

func putChunk(tx *bbolt.Tx, c domain.Chunk) error {
	data, err := json.Marshal(chunkRecord{
		DocumentID: c.DocumentID,
		Content:    c.Content,
		Embedding:  c.Embedding,
		Metadata:   c.Metadata,
	})
	if err != nil {
		return err
	}
	return tx.Bucket(bucketChunks).Put([]byte(c.ID), data)
}

// removeChunks drops a document's chunks and their postings and adjusts
// stats accordingly.
func (s *BoltStore) removeChunks(tx *bbolt.Tx, docID string, stats *domain.Stats) error {
	docChunks := tx.Bucket(bucketDocChunks)
	data := docChunks.Get([]byte(docID))
	if data == nil {
		return nil
	}
	var chunkIDs []string
	if err := json.Unmarshal(data, &chunkIDs); err != nil {
		return err
	}

	chunkBucket := tx.Bucket(bucketChunks)
	chunkTerms := tx.Bucket(bucketChunkTerms)
	termsBucket := tx.Bucket(bucketTerms)
	removed := make(map[string]struct{}, len(chunkIDs))
	touched := make(map[string]struct{})

	for _, id := range chunkIDs {
		removed[id] = struct{}{}
		if termsData := chunkTerms.Get([]byte(id)); termsData != nil {
			var terms []string
			if err := json.Unmarshal(termsData, &terms); err != nil {
				return err
			}
			for _, t := range terms {
				touched[t] = struct{}{}
			}
		}
		if err := chunkBucket.Delete([]byte(id)); err != nil {
			return err
		}
		if err := chunkTerms.Delete([]byte(id)); err != nil {
			return err
		}
		stats.TotalChunks--
	}

	for term := range touched {
		data := termsBucket.Get([]byte(term))
		if data == nil {
			continue
		}
		var postings []domain.Posting
		if err := json.Unmarshal(data, &postings); err != nil {
			return err
		}
		filtered := postings[:0]
		for _, p := range postings {
			if _, gone := removed[p.ChunkID]; gone {
				stats.TotalTokens -= p.TF
				continue
			}
			filtered = append(filtered, p)
		}
		if len(filtered) == 0 {
			if err := termsBucket.Delete([]byte(term)); err != nil {
				return err
			}
			continue
		}
		data, err := json.Marshal(filtered)
		if err != nil {
			return err
		}
		if err := termsBucket.Put([]byte(term), data); err != nil {
			return err
		}
	}
	return docChunks.Delete([]byte(docID))
}

func (s *BoltStore) FindByID(id string) (*domain.Document, error) {
	var doc *domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketDocs).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		content := append([]byte(nil), tx.Bucket(bucketBlobs).Get([]byte(id))...)

		chunks, err := chunksByDoc(tx, id)
		if err != nil {
			return err
		}
		doc = domain.RestoreDocument(id, rec.Title, content, rec.Metadata, rec.Version, chunks)
		return nil
	})
	return doc, err
}

func (s *BoltStore) FindBySourcePath(path string) (*domain.Document, error) {
	var id string
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketPaths).Get([]byte(path)); v != nil {
			id = string(v)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, path)
	}
	return s.FindByID(id)
}

func chunksByDoc(tx *bbolt.Tx, docID string) ([]domain.Chunk, error) {
	data := tx.Bucket(bucketDocChunks).Get([]byte(docID))
	if data == nil {
		return nil, nil
	}
	var chunkIDs []string
	if err := json.Unmarshal(data, &chunkIDs); err != nil {
		return nil, err
	}
	chunks := make([]domain.Chunk, 0, len(chunkIDs))
	for _, id := range chunkIDs {
		c, err := getChunk(tx, id)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, nil
}

func getChunk(tx *bbolt.Tx, id string) (domain.Chunk, error) {
	data := tx.Bucket(bucketChunks).Get([]byte(id))
	if data == nil {
		return domain.Chunk{}, fmt.Errorf("%w: %s", domain.ErrChunkNotFound, id)
	}
	var rec chunkRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Chunk{}, err
	}
	return domain.Chunk{
		ID:         id,
		DocumentID: rec.DocumentID,
		Content:    rec.Content,
		Embedding:  rec.Embedding,
		Metadata:   rec.Metadata,
	}, nil
}

func (s *BoltStore) List() ([]domain.DocumentSummary, error) {
	var docs []domain.DocumentSummary
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			var rec docRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return err
			}
			docs = append(docs, domain.DocumentSummary{
				ID:         string(k),
				Title:      rec.Title,
				Metadata:   rec.Metadata,
				Version:    rec.Version,
				ChunkCount: rec.ChunkCount,
			})
			return nil
		})
	})
	sort.Slice(docs, func(i, j int) bool {
		return docs[i].Metadata.CreatedAt.Before(docs[j].Metadata.CreatedAt)
	})
	return docs, err
}

func (s *BoltStore) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocs)
		data := docs.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, id)
		}
		var rec docRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}

		stats, err := readStats(tx)
		if err != nil {
			return err
		}
		if err := s.removeChunks(tx, id, &stats); err != nil {
			return err
		}
		if rec.Metadata.FilePath != "" {
			if err := tx.Bucket(bucketPaths).Delete([]byte(rec.Metadata.FilePath)); err != nil {
				return err
			}
		}
		if err := tx.Bucket(bucketBlobs).Delete([]byte(id)); err != nil {
			return err
		}
		if err := docs.Delete([]byte(id)); err != nil {
			return err
		}
		stats.TotalDocs--
		return writeStats(tx, stats)
	})
}

func (s *BoltStore) GetChunk(id string) (domain.Chunk, error) {
	var chunk domain.Chunk
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		chunk, err = getChunk(tx, id)
		return err
	})
	return chunk, err
}

func (s *BoltStore) GetPostings(term string) ([]domain.Posting, error) {
	var postings []domain.Posting
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketTerms).Get([]byte(term))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &postings)
	})
	return postings, err
}

func (s *BoltStore) GetStats() (domain.Stats, error) {
	var stats domain.Stats
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		stats, err = readStats(tx)
		return err
	})
	return stats, err
}

func readStats(tx *bbolt.Tx) (domain.Stats, error) {
	var stats domain.Stats
	data := tx.Bucket(bucketStats).Get(keyStats)
	if data == nil {
		return stats, nil
	}
	err := json.Unmarshal(data, &stats)
	return stats, err
}

func writeStats(tx *bbolt.Tx, stats domain.Stats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return tx.Bucket(bucketStats).Put(keyStats, data)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
