// Package pgstore backs the vector store with Postgres and pgvector through
// bun. Search runs as an ORDER BY cosine distance LIMIT k query.
package pgstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"insurance-rag/internal/config"
	"insurance-rag/internal/models"
	"insurance-rag/internal/store"
)

// VectorEmbedding is one row in the vector_embeddings table. Rows are never
// updated in place; re-indexing deletes and re-inserts per entity.
type VectorEmbedding struct {
	bun.BaseModel `bun:"table:vector_embeddings,alias:ve"`
	ID            int64                   `bun:"id,pk,autoincrement"`
	EntityKind    string                  `bun:"entity_kind,notnull"`
	EntityID      int64                   `bun:"entity_id,notnull"`
	ChunkText     string                  `bun:"chunk_text,notnull"`
	Embedding     []float32               `bun:"embedding,notnull,type:vector(1536)"`
	Metadata      map[string]models.Value `bun:"metadata_json,type:jsonb"`
	CreatedAt     time.Time               `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	Distance      float64                 `bun:"distance,scanonly"`
}

type Store struct {
	db        *bun.DB
	dimension int
}

// ConnectDB opens a Postgres connection with the pgdriver connector.
func ConnectDB(cfg *config.DatabaseConfig) *sql.DB {
	return sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithPassword(cfg.Password),
	))
}

// NewDB wraps the sql connection in bun with the pg dialect, logging queries
// when debug is on.
func NewDB(sqldb *sql.DB, debug bool) *bun.DB {
	db := bun.NewDB(sqldb, pgdialect.New())
	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}
	return db
}

func New(db *bun.DB, dimension int) *Store {
	return &Store{db: db, dimension: dimension}
}

// Init creates the vector_embeddings table if it does not exist. The vector
// extension and the column dimension must match the configured embedding
// dimension.
func (s *Store) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return err
	}
	_, err := s.db.NewCreateTable().Model((*VectorEmbedding)(nil)).IfNotExists().Exec(ctx)
	return err
}

func (s *Store) UpsertEntity(ctx context.Context, kind models.EntityKind, entityID int64, chunks []store.Chunk) error {
	for _, c := range chunks {
		if len(c.Vector) != s.dimension {
			return fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(c.Vector), s.dimension)
		}
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*VectorEmbedding)(nil)).
			Where("entity_kind = ?", string(kind)).
			Where("entity_id = ?", entityID).
			Exec(ctx); err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}
		rows := make([]VectorEmbedding, len(chunks))
		for i, c := range chunks {
			rows[i] = VectorEmbedding{
				EntityKind: string(kind),
				EntityID:   entityID,
				ChunkText:  c.Text,
				Embedding:  c.Vector,
				Metadata:   c.Metadata,
			}
		}
		_, err := tx.NewInsert().Model(&rows).Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}

func (s *Store) DeleteEntity(ctx context.Context, kind models.EntityKind, entityID int64) error {
	_, err := s.db.NewDelete().
		Model((*VectorEmbedding)(nil)).
		Where("entity_kind = ?", string(kind)).
		Where("entity_id = ?", entityID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrIndexWrite, err)
	}
	return nil
}

func (s *Store) Search(ctx context.Context, queryVector []float32, k int, kindFilter models.EntityKind) ([]store.Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", models.ErrInvalidArgument, k)
	}
	if len(queryVector) != s.dimension {
		return nil, fmt.Errorf("%w: got %d, expected %d", models.ErrDimensionMismatch, len(queryVector), s.dimension)
	}

	var rows []VectorEmbedding
	q := s.db.NewSelect().
		Model(&rows).
		ColumnExpr("ve.*").
		ColumnExpr("(embedding <=> ?) AS distance", queryVector).
		OrderExpr("embedding <=> ?", queryVector).
		OrderExpr("id DESC").
		Limit(k)
	if kindFilter != "" {
		q = q.Where("entity_kind = ?", string(kindFilter))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	matches := make([]store.Match, len(rows))
	for i, r := range rows {
		matches[i] = store.Match{
			Record: store.Record{
				ID:        r.ID,
				Kind:      models.EntityKind(r.EntityKind),
				EntityID:  r.EntityID,
				ChunkText: r.ChunkText,
				Vector:    r.Embedding,
				Metadata:  r.Metadata,
				CreatedAt: r.CreatedAt,
			},
			Distance: r.Distance,
		}
	}
	return matches, nil
}
