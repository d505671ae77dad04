package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

type feedbackRepo struct{ db *sql.DB }

func (r *feedbackRepo) Append(ctx context.Context, fb storage.LearningFeedback) error {
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO learning_feedback (id, memory_id, signal, detail, created_at)
		VALUES ($1,$2,$3,$4,now())`,
		fb.ID, string(fb.MemoryID), fb.Signal, fb.Detail)
	if err != nil {
		return fmt.Errorf("postgres: append feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepo) Recent(ctx context.Context, since time.Time) ([]storage.LearningFeedback, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, memory_id, signal, detail, created_at FROM learning_feedback
		WHERE created_at >= $1 ORDER BY created_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent feedback: %w", err)
	}
	defer rows.Close()

	var out []storage.LearningFeedback
	for rows.Next() {
		var fb storage.LearningFeedback
		var memoryID, detail sql.NullString
		if err := rows.Scan(&fb.ID, &memoryID, &fb.Signal, &detail, &fb.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan feedback: %w", err)
		}
		fb.MemoryID = types.MemoryId(memoryID.String)
		fb.Detail = detail.String
		out = append(out, fb)
	}
	return out, rows.Err()
}
