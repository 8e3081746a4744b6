package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

// DocumentsUseCase answers document queries and removes documents together
// with their chunks, postings and vectors.
type DocumentsUseCase struct {
	docs    port.DocumentRepository
	vectors port.VectorStore
	cache   port.ResultCache
}

func NewDocumentsUseCase(docs port.DocumentRepository, vectors port.VectorStore, cache port.ResultCache) *DocumentsUseCase {
	return &DocumentsUseCase{docs: docs, vectors: vectors, cache: cache}
}

// List returns the page of documents matching filter, newest first.
func (u *DocumentsUseCase) List(filter domain.DocumentFilter) (domain.DocumentPage, error) {
	filter = filter.Normalize()
	if err := filter.Validate(); err != nil {
		return domain.DocumentPage{}, err
	}
	all, err := u.docs.List()
	if err != nil {
		return domain.DocumentPage{}, fmt.Errorf("list documents: %w", err)
	}

	matched := make([]domain.DocumentSummary, 0, len(all))
	for _, s := range all {
		if filter.Matches(s) {
			matched = append(matched, s)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Metadata.CreatedAt, matched[j].Metadata.CreatedAt
		if !a.Equal(b) {
			return a.After(b)
		}
		return matched[i].ID < matched[j].ID
	})

	page := domain.DocumentPage{Total: len(matched), Limit: filter.Limit, Offset: filter.Offset}
	if filter.Offset < len(matched) {
		end := min(filter.Offset+filter.Limit, len(matched))
		page.Items = matched[filter.Offset:end]
	} else {
		page.Items = []domain.DocumentSummary{}
	}
	return page, nil
}

// DocumentUpdate carries the metadata fields to change. Nil fields are
// left as they are.
type DocumentUpdate struct {
	Title       *string
	Category    *string
	Tags        *[]string
	Author      *string
	Description *string
}

func (d DocumentUpdate) empty() bool {
	return d.Title == nil && d.Category == nil && d.Tags == nil && d.Author == nil && d.Description == nil
}

var ErrNothingToUpdate = errors.New("at least one field must be provided for update")

// UpdateMetadata changes the title and descriptive metadata of a document
// and bumps its version. Content and chunks are untouched.
func (u *DocumentsUseCase) UpdateMetadata(ctx context.Context, id string, upd DocumentUpdate) (*domain.Document, error) {
	if upd.empty() {
		return nil, ErrNothingToUpdate
	}
	doc, err := u.Get(id)
	if err != nil {
		return nil, err
	}

	if upd.Title != nil {
		if err := doc.Rename(*upd.Title); err != nil {
			return nil, err
		}
	}
	if upd.Category != nil {
		doc.Metadata.Category = strings.TrimSpace(*upd.Category)
	}
	if upd.Tags != nil {
		doc.Metadata.Tags = domain.NormalizeTags(*upd.Tags)
	}
	if upd.Author != nil {
		doc.Metadata.Author = strings.TrimSpace(*upd.Author)
	}
	if upd.Description != nil {
		doc.Metadata.Description = *upd.Description
	}
	doc.Touch()

	if err := u.docs.Save(doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	// Titles appear in search results and context snippets.
	if u.cache != nil {
		u.cache.Invalidate()
	}
	logger.FromContext(ctx).Debug("document metadata updated", "document_id", doc.ID, "version", doc.Version)
	return doc, nil
}

func (u *DocumentsUseCase) Get(id string) (*domain.Document, error) {
	id, err := domain.ParseDocumentID(id)
	if err != nil {
		return nil, err
	}
	return u.docs.FindByID(id)
}

func (u *DocumentsUseCase) Delete(ctx context.Context, id string) error {
	doc, err := u.Get(id)
	if err != nil {
		return err
	}
	if err := u.docs.Delete(doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if u.cache != nil {
		u.cache.Invalidate()
	}

	if u.vectors == nil || !doc.HasChunks() {
		return nil
	}
	chunks := doc.Chunks()
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	if err := u.vectors.Delete(ctx, ids); err != nil {
		logger.FromContext(ctx).Warn("failed to delete vectors", "document_id", doc.ID, "error", err)
	}
	return nil
}
