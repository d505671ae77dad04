package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memento-engine/internal/storage"
)

type workingRepo struct{ db *sql.DB }

func (r *workingRepo) Put(ctx context.Context, sessionID string, item storage.WorkingMemoryItem, ttl time.Duration) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	now := time.Now()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	expiresAt := item.CreatedAt.Add(ttl)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO working_memory (id, session_id, content, created_at, expires_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT(id) DO UPDATE SET content = excluded.content, expires_at = excluded.expires_at`,
		item.ID, sessionID, item.Content, item.CreatedAt, expiresAt)
	if err != nil {
		return fmt.Errorf("postgres: put working memory: %w", err)
	}
	return nil
}

func (r *workingRepo) Get(ctx context.Context, sessionID string) ([]storage.WorkingMemoryItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, content, created_at, expires_at FROM working_memory
		WHERE session_id = $1 AND expires_at > now()
		ORDER BY created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("postgres: get working memory: %w", err)
	}
	defer rows.Close()

	var out []storage.WorkingMemoryItem
	for rows.Next() {
		var item storage.WorkingMemoryItem
		if err := rows.Scan(&item.ID, &item.SessionID, &item.Content, &item.CreatedAt, &item.ExpiresAt); err != nil {
			return nil, fmt.Errorf("postgres: scan working memory: %w", err)
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *workingRepo) Delete(ctx context.Context, sessionID string, itemID string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM working_memory WHERE session_id = $1 AND id = $2`, sessionID, itemID)
	if err != nil {
		return fmt.Errorf("postgres: delete working memory item: %w", err)
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

func (r *workingRepo) Clear(ctx context.Context, sessionID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM working_memory WHERE session_id = $1`, sessionID)
	if err != nil {
		return fmt.Errorf("postgres: clear working memory: %w", err)
	}
	return nil
}

func (r *workingRepo) CleanupExpired(ctx context.Context) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM working_memory WHERE expires_at <= now()`)
	if err != nil {
		return 0, fmt.Errorf("postgres: cleanup expired working memory: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
