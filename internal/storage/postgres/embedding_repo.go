package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/convert"
)

// embeddingRepo implements storage.EmbeddingProvider using PostgreSQL. The
// embedding is always stored in the binary BYTEA column; when pgvector is
// available it is also mirrored into embedding_vec, which no query in this
// repository reads. A pgvector write failure falls back to the BYTEA-only path
// rather than failing the whole store.
type embeddingRepo struct {
	db              *sql.DB
	pgvectorEnabled bool
}

func (r *embeddingRepo) StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, dimension int, model string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) != dimension {
		return fmt.Errorf("%w: embedding length (%d) does not match dimension (%d)",
			storage.ErrInvalidInput, len(embedding), dimension)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	buf := convert.EncodeEmbedding(embedding)

	if r.pgvectorEnabled {
		vec := pgvector.NewVector(embedding)
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO embeddings (memory_id, embedding, dimension, model, embedding_vec, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT(memory_id) DO UPDATE SET
				embedding = excluded.embedding, dimension = excluded.dimension,
				model = excluded.model, embedding_vec = excluded.embedding_vec,
				updated_at = now()`,
			memoryID, buf, dimension, model, vec)
		if err == nil {
			return nil
		}
		log.Printf("postgres: failed to store embedding_vec (falling back to BYTEA only): %v", err)
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO embeddings (memory_id, embedding, dimension, model, created_at, updated_at)
		VALUES ($1, $2, $3, $4, now(), now())
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding = excluded.embedding, dimension = excluded.dimension,
			model = excluded.model, updated_at = now()`,
		memoryID, buf, dimension, model)
	if err != nil {
		return fmt.Errorf("postgres: store embedding: %w", err)
	}
	return nil
}

func (r *embeddingRepo) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	var buf []byte
	var dimension int
	err := r.db.QueryRowContext(ctx, `SELECT embedding, dimension FROM embeddings WHERE memory_id = $1`, memoryID).
		Scan(&buf, &dimension)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get embedding: %w", err)
	}
	return convert.DecodeEmbedding(buf, dimension)
}

func (r *embeddingRepo) DeleteEmbedding(ctx context.Context, memoryID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = $1`, memoryID)
	if err != nil {
		return fmt.Errorf("postgres: delete embedding: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *embeddingRepo) GetDimension(ctx context.Context, model string) (int, error) {
	var dimension int
	err := r.db.QueryRowContext(ctx, `SELECT dimension FROM embeddings WHERE model = $1 LIMIT 1`, model).Scan(&dimension)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get dimension: %w", err)
	}
	return dimension, nil
}
