package postgres

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
	var llmConfig, embeddingConfig, toolRules, messageIDs []byte
	var lastActive sql.NullTime
	err := scan(&a.ID, &a.OrgID, &a.Type, &a.Name, &a.SystemPrompt, &llmConfig,
		&embeddingConfig, &toolRules, &messageIDs, &a.State, &lastActive, &a.IsDeleted)
	if err != nil {
		return nil, err
	}
	if lastActive.Valid {
		a.LastActiveAt = lastActive.Time
	}
	if err := json.Unmarshal(llmConfig, &a.LLMConfig); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal llm_config: %w", err)
	}
	if err := json.Unmarshal(embeddingConfig, &a.EmbeddingConfig); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal embedding_config: %w", err)
	}
	if err := json.Unmarshal(toolRules, &a.ToolRules); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal tool_rules: %w", err)
	}
	if err := json.Unmarshal(messageIDs, &a.MessageIDs); err != nil {
		return nil, fmt.Errorf("postgres: unmarshal message_ids: %w", err)
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
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.OrgID, a.Type, a.Name, a.SystemPrompt, string(llmConfig),
		string(embeddingConfig), string(toolRules), string(messageIDs), a.State,
		nullableTime(a.LastActiveAt), a.IsDeleted)
	if err != nil {
		return fmt.Errorf("postgres: create agent: %w", err)
	}
	return nil
}

func (r *agentRepo) FindByID(ctx context.Context, id string) (*types.Agent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = $1`, id)
	a, err := scanAgentRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find agent: %w", err)
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
		UPDATE agents SET type=$1, name=$2, system_prompt=$3, llm_config=$4, embedding_config=$5,
			tool_rules=$6, message_ids=$7, state=$8, last_active_at=$9, is_deleted=$10
		WHERE id = $11`,
		a.Type, a.Name, a.SystemPrompt, string(llmConfig), string(embeddingConfig),
		string(toolRules), string(messageIDs), a.State, nullableTime(a.LastActiveAt), a.IsDeleted, a.ID)
	if err != nil {
		return fmt.Errorf("postgres: update agent: %w", err)
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
	res, err := r.db.ExecContext(ctx, `UPDATE agents SET is_deleted = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete agent: %w", err)
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
		WHERE organization_id = $1 AND is_deleted = false LIMIT $2`, orgID, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: find agents by org: %w", err)
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

	where := "is_deleted = false"
	if opts.IncludeDeleted {
		where = "1=1"
	}
	if opts.OnlyDeleted {
		where = "is_deleted = true"
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE `+where).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count agents: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE `+where+
		` LIMIT $1 OFFSET $2`, opts.Limit, opts.Offset())
	if err != nil {
		return nil, fmt.Errorf("postgres: list agents: %w", err)
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

func nullableTime(t interface{ IsZero() bool }) interface{} {
	if t.IsZero() {
		return nil
	}
	return t
}
