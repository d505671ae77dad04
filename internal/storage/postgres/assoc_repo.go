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

type assocRepo struct{ db *sql.DB }

const assocColumns = `id, org_id, user_id, agent_id, from_memory_id, to_memory_id,
	association_type, strength, confidence, metadata, created_at, updated_at`

func scanAssocRow(scan func(dest ...interface{}) error) (*types.Association, error) {
	var a types.Association
	var metadata []byte
	err := scan(&a.ID, &a.OrgID, &a.UserID, &a.AgentID, &a.FromMemoryID, &a.ToMemoryID,
		&a.AssociationType, &a.Strength, &a.Confidence, &metadata, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &a.Metadata); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal association metadata: %w", err)
		}
	}
	return &a, nil
}

func (r *assocRepo) Create(ctx context.Context, a *types.Association) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	metadata, err := json.Marshal(a.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO memory_associations (`+assocColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,now(),now())`,
		a.ID, a.OrgID, a.UserID, a.AgentID, string(a.FromMemoryID), string(a.ToMemoryID),
		a.AssociationType, a.Strength, a.Confidence, string(metadata))
	if err != nil {
		return fmt.Errorf("postgres: create association: %w", err)
	}
	return nil
}

func (r *assocRepo) FindByID(ctx context.Context, id string) (*types.Association, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assocColumns+` FROM memory_associations WHERE id = $1`, id)
	a, err := scanAssocRow(row.Scan)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find association: %w", err)
	}
	return a, nil
}

func (r *assocRepo) FindByMemoryID(ctx context.Context, memoryID types.MemoryId) ([]*types.Association, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+assocColumns+` FROM memory_associations
		WHERE from_memory_id = $1 OR to_memory_id = $1`, string(memoryID))
	if err != nil {
		return nil, fmt.Errorf("postgres: find associations by memory: %w", err)
	}
	defer rows.Close()

	var out []*types.Association
	for rows.Next() {
		a, err := scanAssocRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assocRepo) FindByType(ctx context.Context, associationType string, limit int) ([]*types.Association, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+assocColumns+` FROM memory_associations
		WHERE association_type = $1 LIMIT $2`, associationType, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: find associations by type: %w", err)
	}
	defer rows.Close()

	var out []*types.Association
	for rows.Next() {
		a, err := scanAssocRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assocRepo) UpdateStrength(ctx context.Context, id string, strength float64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE memory_associations SET strength = $1, updated_at = now() WHERE id = $2`,
		types.ClampUnit(strength), id)
	if err != nil {
		return fmt.Errorf("postgres: update association strength: %w", err)
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

func (r *assocRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM memory_associations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete association: %w", err)
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

func (r *assocRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_associations WHERE user_id = $1`, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count associations by user: %w", err)
	}
	return n, nil
}

func (r *assocRepo) CountByType(ctx context.Context, associationType string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memory_associations WHERE association_type = $1`, associationType).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("postgres: count associations by type: %w", err)
	}
	return n, nil
}

func (r *assocRepo) AvgStrength(ctx context.Context, userID string) (float64, error) {
	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx, `SELECT AVG(strength) FROM memory_associations WHERE user_id = $1`, userID).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("postgres: avg association strength: %w", err)
	}
	return avg.Float64, nil
}

func (r *assocRepo) FindStrongest(ctx context.Context, limit int) ([]*types.Association, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `SELECT `+assocColumns+` FROM memory_associations
		ORDER BY strength DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: find strongest associations: %w", err)
	}
	defer rows.Close()

	var out []*types.Association
	for rows.Next() {
		a, err := scanAssocRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
