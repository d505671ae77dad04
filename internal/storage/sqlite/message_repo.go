package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

type messageRepo struct{ db *sql.DB }

const messageColumns = `id, org_id, user_id, agent_id, role, text, structured_content, model,
	tool_calls, tool_results, group_id, created_at, updated_at, is_deleted`

func scanMessageRow(scan func(dest ...interface{}) error) (*types.Message, error) {
	var m types.Message
	var structuredContent, toolCalls, toolResults sql.NullString
	err := scan(&m.ID, &m.OrgID, &m.UserID, &m.AgentID, &m.Role, &m.Text, &structuredContent,
		&m.Model, &toolCalls, &toolResults, &m.GroupID, &m.CreatedAt, &m.UpdatedAt, &m.IsDeleted)
	if err != nil {
		return nil, err
	}
	if structuredContent.Valid && structuredContent.String != "" {
		if err := json.Unmarshal([]byte(structuredContent.String), &m.StructuredContent); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal structured_content: %w", err)
		}
	}
	if toolCalls.Valid && toolCalls.String != "" {
		if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal tool_calls: %w", err)
		}
	}
	if toolResults.Valid && toolResults.String != "" {
		if err := json.Unmarshal([]byte(toolResults.String), &m.ToolResults); err != nil {
			return nil, fmt.Errorf("sqlite: unmarshal tool_results: %w", err)
		}
	}
	return &m, nil
}

func (r *messageRepo) Create(ctx context.Context, m *types.Message) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	toolCalls, err := json.Marshal(m.ToolCalls)
	if err != nil {
		return err
	}
	toolResults, err := json.Marshal(m.ToolResults)
	if err != nil {
		return err
	}
	structuredContent, err := json.Marshal(m.StructuredContent)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,CURRENT_TIMESTAMP,CURRENT_TIMESTAMP,?)`,
		m.ID, m.OrgID, m.UserID, m.AgentID, m.Role, m.Text, string(structuredContent),
		m.Model, string(toolCalls), string(toolResults), m.GroupID, m.IsDeleted)
	if err != nil {
		return fmt.Errorf("sqlite: create message: %w", err)
	}
	return nil
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*types.Message, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+messageColumns+` FROM messages WHERE id = ?`, id)
	m, err := scanMessageRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find message: %w", err)
	}
	return m, nil
}

func (r *messageRepo) Update(ctx context.Context, m *types.Message) error {
	toolCalls, err := json.Marshal(m.ToolCalls)
	if err != nil {
		return err
	}
	toolResults, err := json.Marshal(m.ToolResults)
	if err != nil {
		return err
	}
	structuredContent, err := json.Marshal(m.StructuredContent)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE messages SET text=?, structured_content=?, model=?, tool_calls=?,
			tool_results=?, group_id=?, updated_at=CURRENT_TIMESTAMP, is_deleted=?
		WHERE id = ?`,
		m.Text, string(structuredContent), m.Model, string(toolCalls), string(toolResults),
		m.GroupID, m.IsDeleted, m.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update message: %w", err)
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

func (r *messageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete message: %w", err)
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

func (r *messageRepo) FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE agent_id = ? AND is_deleted = 0 ORDER BY created_at ASC LIMIT ?`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find messages by agent: %w", err)
	}
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		m, err := scanMessageRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *messageRepo) FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Message, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages
		WHERE user_id = ? AND is_deleted = 0 ORDER BY created_at ASC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find messages by user: %w", err)
	}
	defer rows.Close()

	var out []*types.Message
	for rows.Next() {
		m, err := scanMessageRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *messageRepo) DeleteByAgentID(ctx context.Context, agentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_deleted = 1 WHERE agent_id = ? AND is_deleted = 0`, agentID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete messages by agent: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}
