package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/convert"
)

type embeddingRepo struct{ db *sql.DB }

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
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO embeddings (memory_id, embedding, dimension, model, created_at, updated_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding = excluded.embedding, dimension = excluded.dimension,
			model = excluded.model, updated_at = CURRENT_TIMESTAMP`,
		memoryID, buf, dimension, model)
	if err != nil {
		return fmt.Errorf("sqlite: store embedding: %w", err)
	}
	return nil
}

func (r *embeddingRepo) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	var buf []byte
	var dimension int
	err := r.db.QueryRowContext(ctx, `SELECT embedding, dimension FROM embeddings WHERE memory_id = ?`, memoryID).
		Scan(&buf, &dimension)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get embedding: %w", err)
	}
	return convert.DecodeEmbedding(buf, dimension)
}

func (r *embeddingRepo) DeleteEmbedding(ctx context.Context, memoryID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM embeddings WHERE memory_id = ?`, memoryID)
	if err != nil {
		return fmt.Errorf("sqlite: delete embedding: %w", err)
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
	err := r.db.QueryRowContext(ctx, `SELECT dimension FROM embeddings WHERE model = ? LIMIT 1`, model).Scan(&dimension)
	if err == sql.ErrNoRows {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: get dimension: %w", err)
	}
	return dimension, nil
}
