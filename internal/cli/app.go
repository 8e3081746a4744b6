package cli

import (
	"context"
	"fmt"
	"os"

	"docrag/config"
	"docrag/internal/adapter/analyzer"
	"docrag/internal/adapter/cache"
	"docrag/internal/adapter/chunker"
	"docrag/internal/adapter/embedding"
	"docrag/internal/adapter/extractor"
	"docrag/internal/adapter/fs"
	"docrag/internal/adapter/retriever"
	"docrag/internal/adapter/store"
	"docrag/internal/logger"
	"docrag/internal/port"
	"docrag/internal/usecase"
)

// app holds the adapters and use cases one command run needs.
type app struct {
	cfg       *config.Config
	store     *store.BoltStore
	tokenizer *analyzer.Tokenizer
	embedder  port.Embedder
	vectors   port.VectorStore
	cache     *cache.QueryCache

	chunker   *usecase.ChunkDocumentUseCase
	documents *usecase.DocumentsUseCase
	ingest    *usecase.IngestUseCase
	search    *usecase.SearchUseCase
	context   *usecase.ContextUseCase

	closers []func()
}

type openMode int

const (
	// openRead requires an existing index.
	openRead openMode = iota
	// openWrite creates the data directory and migrates the schema.
	openWrite
)

func openApp(ctx context.Context, mode openMode) (*app, error) {
	cfg := GetConfig()
	dir := GetRootDir()
	log := logger.FromContext(ctx)

	dbPath := config.IndexDBPath(dir)
	if mode == openRead {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("no index found. Run 'docrag ingest' first")
		}
	} else if err := config.EnsureDataDir(dir); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", config.DataDirName, err)
	}

	tokenizer := analyzer.NewTokenizer()
	st, err := store.NewBoltStore(dbPath, tokenizer)
	if err != nil {
		return nil, fmt.Errorf("failed to open index store: %w", err)
	}
	a := &app{cfg: cfg, store: st, tokenizer: tokenizer}
	a.closers = append(a.closers, func() { st.Close() })

	if mode == openWrite {
		if err := a.migrate(log); err != nil {
			a.Close()
			return nil, err
		}
	}

	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	if embedder != nil && cfg.Search.CacheSize > 0 {
		if embedder, err = embedding.NewCachedEmbedder(embedder, cfg.Search.CacheSize); err != nil {
			a.Close()
			return nil, err
		}
	}
	a.embedder = embedder

	if err := a.openVectors(ctx); err != nil {
		a.Close()
		return nil, err
	}
	a.wire()
	return a, nil
}

func (a *app) migrate(log logger.Logger) error {
	result, err := a.store.CheckMigration(a.cfg)
	if err != nil {
		return fmt.Errorf("failed to check migration: %w", err)
	}
	switch {
	case result.NeedsRebuild:
		log.Warn("index rebuild required, clearing existing index", "reason", result.Reason)
		if err := a.store.Clear(); err != nil {
			return fmt.Errorf("failed to clear index: %w", err)
		}
	case result.NeedsMigration:
		log.Info("running schema migration", "reason", result.Reason)
	default:
		return nil
	}
	if err := a.store.Migrate(a.cfg); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

func (a *app) openVectors(ctx context.Context) error {
	dimension := a.cfg.Embedding.Dimension
	if a.embedder != nil {
		dimension = a.embedder.Dimension()
	}

	switch a.cfg.Storage.VectorBackend {
	case "pgvector":
		if a.embedder == nil {
			return nil
		}
		dsn := os.Getenv(a.cfg.Storage.PostgresDSNEnv)
		if dsn == "" {
			return fmt.Errorf("%s environment variable not set", a.cfg.Storage.PostgresDSNEnv)
		}
		pg, closeFn, err := store.OpenPgVectorStore(ctx, dsn, a.cfg.Storage.PostgresTable, dimension)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, closeFn)
		if err := pg.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to prepare pgvector table: %w", err)
		}
		a.vectors = pg
	default:
		vs, err := store.NewBoltVectorStore(a.store.DB(), dimension)
		if err != nil {
			return fmt.Errorf("failed to create vector store: %w", err)
		}
		a.vectors = vs
	}
	return nil
}

func (a *app) wire() {
	cfg := a.cfg
	a.cache = cache.NewQueryCache(cfg.Search.CacheSize, cfg.Search.CacheTTL)

	keyword := retriever.NewBM25Retriever(a.store, a.tokenizer, cfg.Search.K1, cfg.Search.B)
	var vector, hybrid port.Retriever
	if a.embedder != nil {
		vector = retriever.NewSemanticRetriever(a.vectors, a.embedder, a.store)
		hybrid = retriever.NewHybridRetriever(keyword, vector, cfg.Search.RRFK, cfg.Search.BM25Weight)
	}
	var reranker port.DiversityReranker
	if cfg.Search.MMREnabled {
		reranker = retriever.NewMMRReranker(a.tokenizer, cfg.Search.MMRLambda, cfg.Search.DedupJaccard)
	}

	ext := extractor.NewDefault()
	a.chunker = usecase.NewChunkDocumentUseCase(a.store, ext, usecase.NewChunkingService(), a.embedder, a.vectors, cfg.Embedding.BatchSize)
	a.documents = usecase.NewDocumentsUseCase(a.store, a.vectors, a.cache)
	a.ingest = usecase.NewIngestUseCase(
		a.store,
		fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes),
		ext,
		a.chunker,
		a.documents,
		a.cache,
		cfg.Ingest.MaxFileSize,
		cfg.Ingest.Workers,
	)
	a.search = usecase.NewSearchUseCase(a.store, keyword, vector, hybrid, reranker, a.cache)
	a.context = usecase.NewContextUseCase(a.search, a.store, a.tokenizer)
}

// strategy builds the configured chunking strategy, or name when set.
func (a *app) strategy(name string) (port.ChunkingStrategy, error) {
	return newStrategy(a.cfg, name)
}

func newStrategy(cfg *config.Config, name string) (port.ChunkingStrategy, error) {
	if name == "" {
		name = cfg.Chunking.Strategy
	}
	return chunker.New(name, chunker.Options{
		Separators: cfg.Chunking.Separators,
		Encoding:   cfg.Chunking.Encoding,
	})
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
