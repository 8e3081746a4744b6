package domain

import (
	"slices"
	"strings"
	"time"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// DocumentFilter narrows a document listing. Zero fields do not filter.
// Tags match when the document carries any of them.
type DocumentFilter struct {
	Title       string
	CreatedFrom time.Time
	CreatedTo   time.Time
	Category    string
	Tags        []string
	Limit       int
	Offset      int
}

// Normalize trims the title and tags, drops empty and duplicate tags and
// applies the default page size.
func (f DocumentFilter) Normalize() DocumentFilter {
	f.Title = strings.TrimSpace(f.Title)
	f.Category = strings.TrimSpace(f.Category)
	f.Tags = NormalizeTags(f.Tags)
	if f.Limit == 0 {
		f.Limit = DefaultPageSize
	}
	return f
}

func (f DocumentFilter) Validate() error {
	if !f.CreatedFrom.IsZero() && !f.CreatedTo.IsZero() && f.CreatedTo.Before(f.CreatedFrom) {
		return &ValidationError{Field: "created_to", Message: "created_to must be after or equal to created_from"}
	}
	if f.Limit < 1 || f.Limit > MaxPageSize {
		return &ValidationError{Field: "limit", Message: "limit must be between 1 and 100"}
	}
	if f.Offset < 0 {
		return &ValidationError{Field: "offset", Message: "offset must be non-negative"}
	}
	return nil
}

// Matches applies every criterion except paging.
func (f DocumentFilter) Matches(s DocumentSummary) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(s.Title), strings.ToLower(f.Title)) {
		return false
	}
	created := s.Metadata.CreatedAt
	if !f.CreatedFrom.IsZero() && created.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && created.After(f.CreatedTo) {
		return false
	}
	if f.Category != "" && s.Metadata.Category != f.Category {
		return false
	}
	if len(f.Tags) > 0 && !slices.ContainsFunc(f.Tags, func(tag string) bool {
		return slices.Contains(s.Metadata.Tags, tag)
	}) {
		return false
	}
	return true
}

// NormalizeTags trims tags and removes empty entries and duplicates,
// keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if tags == nil {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

// DocumentPage is one page of a filtered listing, newest first. Total
// counts every match, not just the page.
type DocumentPage struct {
	Items  []DocumentSummary `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
}

func (p DocumentPage) HasNext() bool {
	return p.Offset+len(p.Items) < p.Total
}
