package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/convert"
	"github.com/scrypster/memento-engine/pkg/types"
)

// typedStore is the shared backing store for the Core/Episodic/Semantic/
// Procedural specialist agents (C8). It constrains every operation to
// memories whose core:memory_type attribute matches memoryType.
type typedStore struct {
	db         *sql.DB
	memoryType types.MemoryType
}

func (t *typedStore) Create(ctx context.Context, m *types.Memory) error {
	m.Attributes.Set(types.AttrMemoryType, types.StringValue(string(t.memoryType)))
	return (&memoryRepo{db: t.db}).Create(ctx, m)
}

func (t *typedStore) FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	m, err := (&memoryRepo{db: t.db}).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.MemoryType() != t.memoryType {
		return nil, storage.ErrNotFound
	}
	return m, nil
}

func (t *typedStore) Update(ctx context.Context, m *types.Memory) error {
	if m.MemoryType() != t.memoryType {
		return fmt.Errorf("%w: memory %s is not of type %s", storage.ErrInvalidInput, m.ID, t.memoryType)
	}
	return (&memoryRepo{db: t.db}).Update(ctx, m)
}

func (t *typedStore) Delete(ctx context.Context, id types.MemoryId) error {
	if _, err := t.FindByID(ctx, id); err != nil {
		return err
	}
	return (&memoryRepo{db: t.db}).Delete(ctx, id)
}

func (t *typedStore) Query(ctx context.Context, filter storage.TypedMemoryFilter) ([]*types.Memory, error) {
	filter.Normalize()

	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	conds := []string{"memory_type = " + arg(string(t.memoryType)), "is_deleted = false"}

	if filter.OrgID != "" {
		conds = append(conds, "organization_id = "+arg(filter.OrgID))
	}
	if filter.UserID != "" {
		conds = append(conds, "user_id = "+arg(filter.UserID))
	}
	if filter.AgentID != "" {
		conds = append(conds, "agent_id = "+arg(filter.AgentID))
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = "+arg(filter.SessionID))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.Since.Format(time.RFC3339Nano)))
	}
	if !filter.Until.IsZero() {
		conds = append(conds, "created_at <= "+arg(filter.Until.Format(time.RFC3339Nano)))
	}
	if filter.Category != "" {
		conds = append(conds, "extra_metadata::text LIKE "+arg("%"+filter.Category+"%"))
	}
	if filter.Skill != "" {
		conds = append(conds, "extra_metadata::text LIKE "+arg("%"+filter.Skill+"%"))
	}

	q := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + strings.Join(conds, " AND ") +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", filter.Limit)

	rows, err := t.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: typed query (%s): %w", t.memoryType, err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		var row convert.Row
		var hash, extra, rel sql.NullString
		if err := rows.Scan(&row.ID, &row.ContentKind, &row.ContentText, &row.ContentBinary,
			&row.OrganizationID, &row.UserID, &row.AgentID, &row.MemoryType, &row.Scope,
			&row.SessionID, &row.Importance, &row.Score, &row.IsDeleted, &row.CreatedByID,
			&row.LastUpdatedByID, &row.CreatedAt, &row.UpdatedAt, &row.AccessedAt,
			&row.AccessCount, &row.Version, &hash, &extra, &rel); err != nil {
			return nil, fmt.Errorf("postgres: scan typed row: %w", err)
		}
		row.Hash, row.ExtraMetadata, row.RelationsJSON = hash.String, extra.String, rel.String
		m, err := convert.RowToMemory(row)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
