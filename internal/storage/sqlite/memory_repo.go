package sqlite

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
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)
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
		return fmt.Errorf("sqlite: create memory: %w", err)
	}
	return nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memories WHERE id = ?`, string(id))
	m, err := scanMemoryRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find memory: %w", err)
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
		return nil, fmt.Errorf("sqlite: query memories: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan memory: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *memoryRepo) FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Memory, error) {
	return r.queryMany(ctx, "agent_id = ? AND is_deleted = 0", limit, agentID)
}

func (r *memoryRepo) FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Memory, error) {
	return r.queryMany(ctx, "user_id = ? AND is_deleted = 0", limit, userID)
}

func (r *memoryRepo) Search(ctx context.Context, text string, limit int) ([]*types.Memory, error) {
	sanitized := sanitizeFTSQuery(text)
	if sanitized == "" {
		return nil, nil
	}
	q := `SELECT ` + memoryColumns + ` FROM memories
		JOIN memories_fts ON memories.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ? AND memories.is_deleted = 0
		ORDER BY rank LIMIT ?`
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, q, sanitized, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fts search: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan fts row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(out) == 0 {
		// Fuzzy OR-fallback: split into terms and retry once.
		terms := strings.Fields(sanitized)
		if len(terms) > 1 {
			orQuery := strings.Join(terms, " OR ")
			return r.rawFTSQuery(ctx, orQuery, limit)
		}
	}
	return out, nil
}

func (r *memoryRepo) rawFTSQuery(ctx context.Context, ftsQuery string, limit int) ([]*types.Memory, error) {
	q := `SELECT ` + memoryColumns + ` FROM memories
		JOIN memories_fts ON memories.rowid = memories_fts.rowid
		WHERE memories_fts MATCH ? AND memories.is_deleted = 0
		ORDER BY rank LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, ftsQuery, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: fuzzy fts search: %w", err)
	}
	defer rows.Close()

	var out []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan fuzzy row: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// sanitizeFTSQuery strips FTS5 special syntax characters so user input
// can never be interpreted as query-language operators.
func sanitizeFTSQuery(q string) string {
	replacer := strings.NewReplacer(`"`, " ", "*", " ", ":", " ", "(", " ", ")", " ", "-", " ")
	cleaned := replacer.Replace(q)
	fields := strings.Fields(cleaned)
	return strings.Join(fields, " ")
}

func (r *memoryRepo) Update(ctx context.Context, m *types.Memory) error {
	row, err := convert.MemoryToRow(m)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE memories SET content_kind=?, content_text=?, content_binary=?, organization_id=?,
			user_id=?, agent_id=?, memory_type=?, scope=?, session_id=?, importance=?, score=?,
			is_deleted=?, created_by_id=?, last_updated_by_id=?, updated_at=?, accessed_at=?,
			access_count=?, version=?, hash=?, extra_metadata=?, relations_json=?
		WHERE id = ?`,
		row.ContentKind, row.ContentText, row.ContentBinary, row.OrganizationID, row.UserID,
		row.AgentID, row.MemoryType, row.Scope, row.SessionID, row.Importance, row.Score,
		row.IsDeleted, row.CreatedByID, row.LastUpdatedByID, row.UpdatedAt, row.AccessedAt,
		row.AccessCount, row.Version, row.Hash, row.ExtraMetadata, row.RelationsJSON, row.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update memory: %w", err)
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
	res, err := r.db.ExecContext(ctx, `UPDATE memories SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("sqlite: delete memory: %w", err)
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
	res, err := r.db.ExecContext(ctx, `UPDATE memories SET is_deleted = 1, updated_at = CURRENT_TIMESTAMP WHERE agent_id = ? AND is_deleted = 0`, agentID)
	if err != nil {
		return 0, fmt.Errorf("sqlite: delete by agent: %w", err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (r *memoryRepo) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	opts.Normalize()

	var conds []string
	var args []interface{}
	if !opts.IncludeDeleted {
		conds = append(conds, "is_deleted = 0")
	}
	if opts.OnlyDeleted {
		conds = append(conds, "is_deleted = 1")
	}
	if opts.MemoryType != "" {
		conds = append(conds, "memory_type = ?")
		args = append(args, opts.MemoryType)
	}
	if opts.OrgID != "" {
		conds = append(conds, "organization_id = ?")
		args = append(args, opts.OrgID)
	}
	if opts.UserID != "" {
		conds = append(conds, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.AgentID != "" {
		conds = append(conds, "agent_id = ?")
		args = append(args, opts.AgentID)
	}
	if opts.SessionID != "" {
		conds = append(conds, "session_id = ?")
		args = append(args, opts.SessionID)
	}

	where := "1=1"
	if len(conds) > 0 {
		where = strings.Join(conds, " AND ")
	}

	var total int
	countQ := `SELECT COUNT(*) FROM memories WHERE ` + where
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("sqlite: count memories: %w", err)
	}

	listQ := `SELECT ` + memoryColumns + ` FROM memories WHERE ` + where +
		fmt.Sprintf(" ORDER BY %s %s LIMIT ? OFFSET ?", opts.SortBy, strings.ToUpper(opts.SortOrder))
	listArgs := append(append([]interface{}{}, args...), opts.Limit, opts.Offset())

	rows, err := r.db.QueryContext(ctx, listQ, listArgs...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list memories: %w", err)
	}
	defer rows.Close()

	var items []*types.Memory
	for rows.Next() {
		m, err := scanMemoryRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scan list row: %w", err)
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
