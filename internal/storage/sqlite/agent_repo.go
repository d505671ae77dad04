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

type agentRepo struct{ db *sql.DB }

const agentColumns = `id, organization_id, type, name, system_prompt, llm_config,
	embedding_config, tool_rules, message_ids, state, last_active_at, is_deleted`

func scanAgentRow(scan func(dest ...interface{}) error) (*types.Agent, error) {
	var a types.Agent
	var llmConfig, embeddingConfig, toolRules, messageIDs string
	var lastActive sql.NullTime
	err := scan(&a.ID, &a.OrgID, &a.Type, &a.Name, &a.SystemPrompt, &llmConfig,
		&embeddingConfig, &toolRules, &messageIDs, &a.State, &lastActive, &a.IsDeleted)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		a.LastActiveAt = lastActive.Time
	}
	if err := json.Unmarshal([]byte(llmConfig), &a.LLMConfig); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal llm_config: %w", err)
	}
	if err := json.Unmarshal([]byte(embeddingConfig), &a.EmbeddingConfig); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal embedding_config: %w", err)
	}
	if err := json.Unmarshal([]byte(toolRules), &a.ToolRules); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal tool_rules: %w", err)
	}
	if err := json.Unmarshal([]byte(messageIDs), &a.MessageIDs); err != nil {
		return nil, fmt.Errorf("sqlite: unmarshal message_ids: %w", err)
	}
	return &a, nil
}

func (r *agentRepo) Create(ctx context.Context, a *types.Agent) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	llmConfig, err := json.Marshal(a.LLMConfig)
	if err != nil {
		return err
	}
	embeddingConfig, err := json.Marshal(a.EmbeddingConfig)
	if err != nil {
		return err
	}
	toolRules, err := json.Marshal(a.ToolRules)
	if err != nil {
		return err
	}
	messageIDs, err := json.Marshal(a.MessageIDs)
	if err != nil {
		return err
	}
	if a.State == "" {
		a.State = types.AgentStateActive
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO agents (`+agentColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?)`,
		a.ID, a.OrgID, a.Type, a.Name, a.SystemPrompt, string(llmConfig),
		string(embeddingConfig), string(toolRules), string(messageIDs), a.State,
		nullTime(a.LastActiveAt), a.IsDeleted)
	if err != nil {
		return fmt.Errorf("sqlite: create agent: %w", err)
	}
	return nil
}

func (r *agentRepo) FindByID(ctx context.Context, id string) (*types.Agent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	a, err := scanAgentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find agent: %w", err)
	}
	return a, nil
}

func (r *agentRepo) Update(ctx context.Context, a *types.Agent) error {
	llmConfig, err := json.Marshal(a.LLMConfig)
	if err != nil {
		return err
	}
	embeddingConfig, err := json.Marshal(a.EmbeddingConfig)
	if err != nil {
		return err
	}
	toolRules, err := json.Marshal(a.ToolRules)
	if err != nil {
		return err
	}
	messageIDs, err := json.Marshal(a.MessageIDs)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE agents SET type=?, name=?, system_prompt=?, llm_config=?, embedding_config=?,
			tool_rules=?, message_ids=?, state=?, last_active_at=?, is_deleted=?
		WHERE id = ?`,
		a.Type, a.Name, a.SystemPrompt, string(llmConfig), string(embeddingConfig),
		string(toolRules), string(messageIDs), a.State, nullTime(a.LastActiveAt), a.IsDeleted, a.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update agent: %w", err)
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

func (r *agentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE agents SET is_deleted = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: delete agent: %w", err)
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

func (r *agentRepo) FindByOrganizationID(ctx context.Context, orgID string, limit int) ([]*types.Agent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents
		WHERE organization_id = ? AND is_deleted = 0 LIMIT ?`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find agents by org: %w", err)
	}
	defer rows.Close()

	var out []*types.Agent
	for rows.Next() {
		a, err := scanAgentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *agentRepo) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Agent], error) {
	opts.Normalize()

	where := "is_deleted = 0"
	if opts.IncludeDeleted {
		where = "1=1"
	}
	if opts.OnlyDeleted {
		where = "is_deleted = 1"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE `+where).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: count agents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE `+where+
		` LIMIT ? OFFSET ?`, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("sqlite: list agents: %w", err)
	}
	defer rows.Close()

	var items []*types.Agent
	for rows.Next() {
		a, err := scanAgentRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &storage.PaginatedResult[*types.Agent]{
		Items: items, Total: total, Page: opts.Page, PageSize: opts.Limit,
		HasMore: opts.Offset()+len(items) < total,
	}, nil
}

func nullTime(t interface{ IsZero() bool }) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
