package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/convert"
	"github.com/scrypster/memento-engine/pkg/types"
)

type memoryRepo struct{ db *sql.DB }

const memoryColumns = `id, content_kind, content_text, content_binary, organization_id, user_id,
	agent_id, memory_type, scope, session_id, importance, score, is_deleted, created_by_id,
	last_updated_by_id, created_at, updated_at, accessed_at, access_count, version, hash,
	extra_metadata, relations_json`

func scanMemoryRow(scan func(dest ...interface{}) error) (*types.Memory, error) {
	var row convert.Row
	var hash, extra, rel sql.NullString
	err := scan(&row.ID, &row.ContentKind, &row.ContentText, &row.ContentBinary, &row.OrganizationID,
		&row.UserID, &row.AgentID, &row.MemoryType, &row.Scope, &row.SessionID, &row.Importance,
		&row.Score, &row.IsDeleted, &row.CreatedByID, &row.LastUpdatedByID, &row.CreatedAt,
		&row.UpdatedAt, &row.AccessedAt, &row.AccessCount, &row.Version, &hash, &extra, &rel)
	if err != nil {
		return nil, err
	}
	row.Hash = hash.String
	row.ExtraMetadata = extra.String
	row.RelationsJSON = rel.String
	return convert.RowToMemory(row)
}

func (r *memoryRepo) Create(ctx context.Context, m *types.Memory) error {
	if m.ID == "" {
		m.ID = types.MemoryId(uuid.New().String())
	}
	row, err := convert.MemoryToRow(m)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO memories (`+memoryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		ON CONFLICT(id) DO UPDATE SET
			content_kind=excluded.content_kind, content_text=excluded.content_text,
			content_binary=excluded.content_binary, organization_id=excluded.organization_id,
			user_id=excluded.user_id, agent_id=excluded.agent_id, memory_type=excluded.memory_type,
			scope=excluded.scope, session_id=excluded.session_id, importance=excluded.importance,
			score=excluded.score, is_deleted=excluded.is_deleted, created_by_id=excluded.created_by_id,
			last_updated_by_id=excluded.last_updated_by_id, updated_at=excluded.updated_at,
			accessed_at=excluded.accessed_at, access_count=excluded.access_count,
			version=excluded.version, hash=excluded.hash, extra_metadata=excluded.extra_metadata,
			relations_json=excluded.relations_json
	`, row.ID, row.ContentKind, row.ContentText, row.ContentBinary, row.OrganizationID, row.UserID,
		row.AgentID, row.MemoryType, row.Scope, row.SessionID, row.Importance, row.Score,
		row.IsDeleted, row.CreatedByID, row.LastUpdatedByID, row.CreatedAt, row.UpdatedAt,
		row.AccessedAt, row.AccessCount, row.Version, row.Hash, row.ExtraMetadata, row.RelationsJSON)
	if err != nil {
		return fmt.Errorf("postgres: create memory: %w", err)
	}
	return nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = $1`, string(id))
	m, err := scanMemoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find memory: %w", err)
	}
	return m, nil
}

func (r *memoryRepo) queryMany(ctx context.Context, where string, limit int, args ...interface{}) ([]*types.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + where + ` ORDER BY created_at DESC`
	if limit > 0 {
		q += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query memories: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *memoryRepo) FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Memory, error) {
	return r.queryMany(ctx, "agent_id = $1 AND is_deleted = false", limit, agentID)
}

func (r *memoryRepo) FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Memory, error) {
	return r.queryMany(ctx, "user_id = $1 AND is_deleted = false", limit, userID)
}

func (r *memoryRepo) Search(ctx context.Context, text string, limit int) ([]*types.Memory, error) {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}
	tsQuery := strings.Join(terms, " & ")

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE content_tsv @@ to_tsquery('english', $1) AND is_deleted = false
		ORDER BY ts_rank(content_tsv, to_tsquery('english', $1)) DESC
		LIMIT $2`, tsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fts search: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan fts row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 && len(terms) > 1 {
		orQuery := strings.Join(terms, " | ")
		return r.rawTSQuery(ctx, orQuery, limit)
	}
	return out, nil
}

func (r *memoryRepo) rawTSQuery(ctx context.Context, tsQuery string, limit int) ([]*types.Memory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memories
		WHERE content_tsv @@ to_tsquery('english', $1) AND is_deleted = false
		ORDER BY ts_rank(content_tsv, to_tsquery('english', $1)) DESC
		LIMIT $2`, tsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: fuzzy fts search: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan fuzzy row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *memoryRepo) Update(ctx context.Context, m *types.Memory) error {
	row, err := convert.MemoryToRow(m)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE memories SET content_kind=$1, content_text=$2, content_binary=$3, organization_id=$4,
			user_id=$5, agent_id=$6, memory_type=$7, scope=$8, session_id=$9, importance=$10, score=$11,
			is_deleted=$12, created_by_id=$13, last_updated_by_id=$14, updated_at=$15, accessed_at=$16,
			access_count=$17, version=$18, hash=$19, extra_metadata=$20, relations_json=$21
		WHERE id = $22`,
		row.ContentKind, row.ContentText, row.ContentBinary, row.OrganizationID, row.UserID,
		row.AgentID, row.MemoryType, row.Scope, row.SessionID, row.Importance, row.Score,
		row.IsDeleted, row.CreatedByID, row.LastUpdatedByID, row.UpdatedAt, row.AccessedAt,
		row.AccessCount, row.Version, row.Hash, row.ExtraMetadata, row.RelationsJSON, row.ID)
	if err != nil {
		return fmt.Errorf("postgres: update memory: %w", err)
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

func (r *memoryRepo) Delete(ctx context.Context, id types.MemoryId) error {
	res, err := r.db.ExecContext(ctx, `UPDATE memories SET is_deleted = true, updated_at = now() WHERE id = $1`, string(id))
	if err != nil {
		return fmt.Errorf("postgres: delete memory: %w", err)
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

func (r *memoryRepo) DeleteByAgentID(ctx context.Context, agentID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE memories SET is_deleted = true, updated_at = now() WHERE agent_id = $1 AND is_deleted = false`, agentID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete by agent: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *memoryRepo) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	opts.Normalize()

	var conds []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !opts.IncludeDeleted {
		conds = append(conds, "is_deleted = false")
	}
	if opts.OnlyDeleted {
		conds = append(conds, "is_deleted = true")
	}
	if opts.MemoryType != "" {
		conds = append(conds, "memory_type = "+arg(opts.MemoryType))
	}
	if opts.OrgID != "" {
		conds = append(conds, "organization_id = "+arg(opts.OrgID))
	}
	if opts.UserID != "" {
		conds = append(conds, "user_id = "+arg(opts.UserID))
	}
	if opts.AgentID != "" {
		conds = append(conds, "agent_id = "+arg(opts.AgentID))
	}
	if opts.SessionID != "" {
		conds = append(conds, "session_id = "+arg(opts.SessionID))
	}

	where := "1=1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories WHERE `+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("postgres: count memories: %w", err)
	}

	limitArg := arg(opts.Limit)
	offsetArg := arg(opts.Offset())
	listQ := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT %s OFFSET %s", opts.SortBy, strings.ToUpper(opts.SortOrder), limitArg, offsetArg)

	rows, err := r.db.QueryContext(ctx, listQ, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list memories: %w", err)
	}
	defer rows.Close()

	var items []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan list row: %w", err)
		}
		items = append(items, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &storage.PaginatedResult[*types.Memory]{
		Items:    items,
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  opts.Offset()+len(items) < total,
	}, nil
}
