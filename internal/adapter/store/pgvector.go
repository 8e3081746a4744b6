package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"docrag/internal/port"
)

// PgDB is the part of pgxpool.Pool the vector store uses. pgxmock pools
// satisfy it too.
type PgDB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgVectorStore keeps chunk embeddings in a Postgres table with the
// pgvector extension and lets the database rank them by cosine distance.
type PgVectorStore struct {
	db         PgDB
	tableIdent string
	dimension  int
}

func NewPgVectorStore(db PgDB, table string, dimension int) *PgVectorStore {
	if table == "" {
		table = "chunk_embeddings"
	}
	return &PgVectorStore{
		db:         db,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		dimension:  dimension,
	}
}

// OpenPgVectorStore connects to dsn and makes sure the table exists. The
// returned close func releases the pool.
func OpenPgVectorStore(ctx context.Context, dsn, table string, dimension int) (*PgVectorStore, func(), error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgvector: connect: %w", err)
	}
	s := NewPgVectorStore(pool, table, dimension)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return s, pool.Close, nil
}

func (p *PgVectorStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	embedding vector(%d),
	metadata JSONB,
	updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
)`, p.tableIdent, p.dimension)
	if _, err := p.db.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	return nil
}

func (p *PgVectorStore) Upsert(ctx context.Context, items []port.VectorItem) (err error) {
	if len(items) == 0 {
		return nil
	}
	for _, item := range items {
		if len(item.Vector) != p.dimension {
			return fmt.Errorf("pgvector: vector %q dimension mismatch (got %d want %d)", item.ID, len(item.Vector), p.dimension)
		}
	}

	tx, err := p.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()

	stmt := fmt.Sprintf(`INSERT INTO %s (id, embedding, metadata, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`, p.tableIdent)
	now := time.Now().UTC()
	for _, item := range items {
		metadata, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", item.ID, err)
		}
		if _, err := tx.Exec(ctx, stmt, item.ID, pgvector.NewVector(item.Vector), metadata, now); err != nil {
			return fmt.Errorf("pgvector: upsert %q: %w", item.ID, err)
		}
	}
	return nil
}

func (p *PgVectorStore) Search(ctx context.Context, query []float32, k int) ([]port.VectorResult, error) {
	if len(query) != p.dimension {
		return nil, fmt.Errorf("pgvector: query dimension mismatch (got %d want %d)", len(query), p.dimension)
	}
	if k <= 0 {
		return nil, nil
	}
	sql := fmt.Sprintf(
		"SELECT id, metadata, 1 - (embedding <=> $1) AS score FROM %s ORDER BY embedding <=> $1 ASC LIMIT $2",
		p.tableIdent,
	)
	rows, err := p.db.Query(ctx, sql, pgvector.NewVector(query), k)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()

	results := make([]port.VectorResult, 0, k)
	for rows.Next() {
		var (
			id          string
			metadataRaw []byte
			score       float64
		)
		if err := rows.Scan(&id, &metadataRaw, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		var meta map[string]string
		if len(metadataRaw) > 0 {
			if err := json.Unmarshal(metadataRaw, &meta); err != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", err)
			}
		}
		results = append(results, port.VectorResult{ID: id, Score: score, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return results, nil
}

func (p *PgVectorStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = ANY($1)", p.tableIdent)
	if _, err := p.db.Exec(ctx, sql, ids); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

func (p *PgVectorStore) Count(ctx context.Context) (int, error) {
	var n int64
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s", p.tableIdent)
	if err := p.db.QueryRow(ctx, sql).Scan(&n); err != nil {
		return 0, fmt.Errorf("pgvector: count: %w", err)
	}
	return int(n), nil
}
