package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

type SearchType string

const (
	SearchKeyword SearchType = "keyword"
	SearchVector  SearchType = "vector"
	SearchHybrid  SearchType = "hybrid"
)

const (
	maxQueryLength = 1000
	MaxSearchLimit = 100
)

type SearchQuery struct {
	Text                string
	Type                SearchType
	Limit               int
	Offset              int
	SimilarityThreshold float64
	DocumentIDs         []string
}

func (q SearchQuery) Validate() error {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return &ValidationError{Field: "query_text", Message: "query text cannot be empty"}
	}
	if utf8.RuneCountInString(text) > maxQueryLength {
		return &ValidationError{Field: "query_text", Message: "query text cannot exceed 1000 characters"}
	}
	switch q.Type {
	case SearchKeyword, SearchVector, SearchHybrid:
	default:
		return &ValidationError{Field: "search_type", Message: "search type must be keyword, vector or hybrid"}
	}
	if q.Limit < 1 || q.Limit > MaxSearchLimit {
		return &ValidationError{Field: "limit", Message: "limit must be between 1 and 100"}
	}
	if q.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "offset must be non-negative"}
	}
	if q.SimilarityThreshold < 0 || q.SimilarityThreshold > 1 {
		return &ValidationError{Field: "similarity_threshold", Message: "similarity threshold must be between 0 and 1"}
	}
	return nil
}

type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

type ConfidenceLevel string

const (
	ConfidenceHigh   ConfidenceLevel = "high"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceLow    ConfidenceLevel = "low"
)

func ConfidenceFor(score float64) ConfidenceLevel {
	switch {
	case score >= 0.8:
		return ConfidenceHigh
	case score >= 0.5:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

type SearchResultItem struct {
	DocumentID    string          `json:"document_id"`
	DocumentTitle string          `json:"document_title"`
	ChunkID       string          `json:"chunk_id"`
	ChunkIndex    int             `json:"chunk_index"`
	Preview       string          `json:"preview"`
	Score         float64         `json:"score"`
	Confidence    ConfidenceLevel `json:"confidence"`
}

type SearchResult struct {
	Query   string             `json:"query"`
	Type    SearchType         `json:"search_type"`
	Items   []SearchResultItem `json:"items"`
	Total   int                `json:"total"`
	Elapsed time.Duration      `json:"elapsed"`
}

// Posting is one term occurrence entry. ChunkLen is the chunk's length in
// index tokens, kept here so scoring needs no chunk lookup.
type Posting struct {
	ChunkID  string `json:"chunk_id"`
	TF       int    `json:"tf"`
	ChunkLen int    `json:"chunk_len"`
}

type Stats struct {
	TotalDocs   int `json:"total_docs"`
	TotalChunks int `json:"total_chunks"`
	TotalTokens int `json:"total_tokens"`
}

func (s Stats) AvgChunkLen() float64 {
	if s.TotalChunks == 0 {
		return 0
	}
	return float64(s.TotalTokens) / float64(s.TotalChunks)
}

// ExtractedText is the plain text recovered from a document's raw bytes.
type ExtractedText struct {
	Content  string
	Metadata map[string]string
}

func (e ExtractedText) CharCount() int {
	return utf8.RuneCountInString(e.Content)
}

func (e ExtractedText) IsEmpty() bool {
	return strings.TrimSpace(e.Content) == ""
}

type RAGContext struct {
	Query        string    `json:"query"`
	BudgetTokens int       `json:"budget_tokens"`
	UsedTokens   int       `json:"used_tokens"`
	Snippets     []Snippet `json:"snippets"`
}

type Snippet struct {
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title"`
	Range      string  `json:"range"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}
