package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"docrag/internal/adapter/fs"
	"docrag/internal/domain"
	"docrag/internal/logger"
	"docrag/internal/port"
)

type IngestOptions struct {
	Strategy           port.ChunkingStrategy
	ChunkSize          int
	OverlapSize        int
	GenerateEmbeddings bool
	// Force re-chunks files whose modification time is unchanged, e.g. when
	// the strategy differs from the one the index was built with.
	Force bool
	// Progress is called after each file with the number of files done so
	// far. It may be called from several goroutines.
	Progress func(done, total int)
}

type IngestResult struct {
	FilesIndexed     int
	FilesSkipped     int
	FilesUnsupported int
	FilesDeleted     int
	ChunksCreated    int
	Errors           []string
}

// IngestUseCase imports a directory tree. New files become documents,
// changed files are re-chunked in place and documents whose file vanished
// are deleted.
type IngestUseCase struct {
	docs        port.DocumentRepository
	walker      port.FileWalker
	extractor   port.TextExtractor
	chunker     *ChunkDocumentUseCase
	documents   *DocumentsUseCase
	cache       port.ResultCache
	maxFileSize int64
	workers     int
}

func NewIngestUseCase(
	docs port.DocumentRepository,
	walker port.FileWalker,
	extractor port.TextExtractor,
	chunker *ChunkDocumentUseCase,
	documents *DocumentsUseCase,
	cache port.ResultCache,
	maxFileSize int64,
	workers int,
) *IngestUseCase {
	if workers <= 0 {
		workers = 1
	}
	return &IngestUseCase{
		docs:        docs,
		walker:      walker,
		extractor:   extractor,
		chunker:     chunker,
		documents:   documents,
		cache:       cache,
		maxFileSize: maxFileSize,
		workers:     workers,
	}
}

type fileOutcome int

const (
	outcomeIndexed fileOutcome = iota
	outcomeSkipped
	outcomeUnsupported
)

func (u *IngestUseCase) Ingest(ctx context.Context, root string, opts IngestOptions) (*IngestResult, error) {
	log := logger.FromContext(ctx)

	files, err := u.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{}
	var mu sync.Mutex
	done := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.workers)
	for _, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			outcome, chunks, err := u.ingestFile(gctx, file, opts)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", file.Path, err))
				log.Warn("failed to ingest file", "path", file.Path, "error", err)
			case outcome == outcomeIndexed:
				result.FilesIndexed++
				result.ChunksCreated += chunks
			case outcome == outcomeSkipped:
				result.FilesSkipped++
			case outcome == outcomeUnsupported:
				result.FilesUnsupported++
			}
			done++
			if opts.Progress != nil {
				opts.Progress(done, len(files))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	deleted, errs := u.removeVanished(ctx, absRoot, files)
	result.FilesDeleted = deleted
	result.Errors = append(result.Errors, errs...)

	if u.cache != nil && (result.FilesIndexed > 0 || result.FilesDeleted > 0) {
		u.cache.Invalidate()
	}
	log.Info("ingest finished",
		"indexed", result.FilesIndexed,
		"skipped", result.FilesSkipped,
		"unsupported", result.FilesUnsupported,
		"deleted", result.FilesDeleted,
		"errors", len(result.Errors))
	return result, nil
}

func (u *IngestUseCase) ingestFile(ctx context.Context, file port.FileInfo, opts IngestOptions) (fileOutcome, int, error) {
	if u.maxFileSize > 0 && file.Size > u.maxFileSize {
		return outcomeSkipped, 0, fmt.Errorf("file exceeds %d bytes", u.maxFileSize)
	}

	existing, err := u.docs.FindBySourcePath(file.Path)
	switch {
	case err == nil:
		if !opts.Force && existing.Metadata.SourceMTime == file.ModTime {
			return outcomeSkipped, 0, nil
		}
	case errors.Is(err, domain.ErrDocumentNotFound):
		existing = nil
	default:
		return outcomeSkipped, 0, err
	}

	content, err := os.ReadFile(file.Path)
	if err != nil {
		return outcomeSkipped, 0, fmt.Errorf("read file: %w", err)
	}
	contentType := fs.DetectContentType(file.Path, content)
	if !u.extractor.Supports(contentType) {
		return outcomeUnsupported, 0, nil
	}

	doc := existing
	var (
		prevContent  []byte
		prevMetadata domain.DocumentMetadata
	)
	if doc == nil {
		doc, err = domain.NewDocument(filepath.Base(file.Path), content, domain.DocumentMetadata{
			FileName:    filepath.Base(file.Path),
			FilePath:    file.Path,
			FileSize:    int64(len(content)),
			ContentType: contentType,
			SourceMTime: file.ModTime,
		})
		if err != nil {
			return outcomeSkipped, 0, err
		}
	} else {
		prevContent, prevMetadata = doc.Content, doc.Metadata
		doc.Content = content
		doc.Metadata.FileSize = int64(len(content))
		doc.Metadata.ContentType = contentType
		doc.Metadata.SourceMTime = file.ModTime
	}
	if err := u.docs.Save(doc); err != nil {
		return outcomeSkipped, 0, fmt.Errorf("save document: %w", err)
	}

	out, err := u.chunker.Execute(ctx, ChunkDocumentInput{
		DocumentID:         doc.ID,
		Strategy:           opts.Strategy,
		ChunkSize:          opts.ChunkSize,
		OverlapSize:        opts.OverlapSize,
		GenerateEmbeddings: opts.GenerateEmbeddings,
	})
	if err != nil {
		// The stored modification time must not claim the file is indexed,
		// otherwise later runs skip it as unchanged.
		if rbErr := u.rollback(doc, existing == nil, prevContent, prevMetadata); rbErr != nil {
			logger.FromContext(ctx).Error("failed to roll back document", "path", file.Path, "error", rbErr)
		}
		return outcomeSkipped, 0, err
	}
	return outcomeIndexed, out.ChunkCount, nil
}

// rollback undoes the save that preceded a failed chunking run. A new
// document is removed; an existing one gets its previous content and
// metadata back and keeps the chunks it already had.
func (u *IngestUseCase) rollback(doc *domain.Document, created bool, content []byte, meta domain.DocumentMetadata) error {
	if created {
		return u.docs.Delete(doc.ID)
	}
	doc.Content = content
	doc.Metadata = meta
	return u.docs.Save(doc)
}

// removeVanished deletes documents sourced from under root whose file was
// not seen by the walk.
func (u *IngestUseCase) removeVanished(ctx context.Context, root string, files []port.FileInfo) (int, []string) {
	seen := make(map[string]struct{}, len(files))
	for _, f := range files {
		seen[f.Path] = struct{}{}
	}
	summaries, err := u.docs.List()
	if err != nil {
		return 0, []string{fmt.Sprintf("list documents: %v", err)}
	}

	prefix := root + string(filepath.Separator)
	deleted := 0
	var errs []string
	for _, s := range summaries {
		path := s.Metadata.FilePath
		if path == "" || !strings.HasPrefix(path, prefix) {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		if err := u.documents.Delete(ctx, s.ID); err != nil {
			errs = append(errs, fmt.Sprintf("delete %s: %v", path, err))
			continue
		}
		deleted++
	}
	return deleted, errs
}
