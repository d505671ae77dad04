package conflict

import (
	"context"
	"fmt"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Resolve applies strategy to conflict against backend. Per spec §10,
// a conflict whose confidence is below the configured auto-resolution
// threshold is always resolved as MarkForManualReview regardless of what
// strategy requests, since auto-applying a low-confidence resolution is
// exactly the failure mode the threshold exists to prevent.
func (d *Detector) Resolve(ctx context.Context, backend storage.Backend, conflict Conflict, strategy Strategy) Outcome {
	if conflict.Confidence < d.cfg.AutoResolutionThreshold {
		return Outcome{RequiresManual: true, ManualReason: "confidence below auto-resolution threshold"}
	}

	switch strategy.Kind {
	case KindKeepLatest:
		return resolveKeepLatest(ctx, backend, conflict)
	case KindKeepHighestConfidence:
		return resolveKeepHighestConfidence(ctx, backend, conflict)
	case KindMerge:
		return resolveMerge(ctx, backend, conflict, strategy)
	case KindRemoveDuplicates:
		return resolveRemoveDuplicates(ctx, backend, conflict, strategy)
	case KindMarkForManualReview:
		return Outcome{RequiresManual: true, ManualReason: conflict.Description}
	default:
		return Outcome{Failed: true, Error: fmt.Sprintf("conflict: unknown resolution strategy %q", strategy.Kind)}
	}
}

func resolveKeepLatest(ctx context.Context, backend storage.Backend, conflict Conflict) Outcome {
	members, err := fetchMembers(ctx, backend, conflict.MemoryIDs)
	if err != nil {
		return Outcome{Failed: true, Error: err.Error()}
	}
	keep := members[0]
	for _, m := range members[1:] {
		if m.Metadata.CreatedAt.After(keep.Metadata.CreatedAt) {
			keep = m
		}
	}
	return softDeleteAllExcept(ctx, backend, members, keep.ID)
}

func resolveKeepHighestConfidence(ctx context.Context, backend storage.Backend, conflict Conflict) Outcome {
	members, err := fetchMembers(ctx, backend, conflict.MemoryIDs)
	if err != nil {
		return Outcome{Failed: true, Error: err.Error()}
	}
	keep := members[0]
	bestImportance := attrImportance(keep)
	for _, m := range members[1:] {
		if v := attrImportance(m); v > bestImportance {
			keep, bestImportance = m, v
		}
	}
	return softDeleteAllExcept(ctx, backend, members, keep.ID)
}

func attrImportance(m *types.Memory) float64 {
	v, ok := m.Attributes[types.AttrImportance]
	if !ok || v.Kind != types.AttrValNumber {
		return 0
	}
	return v.Num
}

func resolveMerge(ctx context.Context, backend storage.Backend, conflict Conflict, strategy Strategy) Outcome {
	if len(conflict.MemoryIDs) == 0 {
		return Outcome{Failed: true, Error: "conflict: merge requires at least one memory id"}
	}
	canonicalID := conflict.MemoryIDs[0]
	canonical, err := backend.Memories().FindByID(ctx, canonicalID)
	if err != nil {
		return Outcome{Failed: true, Error: err.Error()}
	}
	content := types.NewTextContent(strategy.MergedContent)
	canonical.ApplyUpdate(&content, nowUTC())
	if err := backend.Memories().Update(ctx, canonical); err != nil {
		return Outcome{Failed: true, Error: err.Error()}
	}

	var deleted []types.MemoryId
	for _, id := range conflict.MemoryIDs[1:] {
		m, err := backend.Memories().FindByID(ctx, id)
		if err != nil {
			continue
		}
		m.SoftDelete(nowUTC())
		if err := backend.Memories().Update(ctx, m); err != nil {
			return Outcome{Failed: true, Error: err.Error()}
		}
		deleted = append(deleted, id)
	}
	return Outcome{Success: true, UpdatedIDs: []types.MemoryId{canonicalID}, DeletedIDs: deleted}
}

func resolveRemoveDuplicates(ctx context.Context, backend storage.Backend, conflict Conflict, strategy Strategy) Outcome {
	members, err := fetchMembers(ctx, backend, conflict.MemoryIDs)
	if err != nil {
		return Outcome{Failed: true, Error: err.Error()}
	}
	keepID := strategy.KeepID
	if keepID == "" {
		keepID = members[0].ID
	}
	return softDeleteAllExcept(ctx, backend, members, keepID)
}

func fetchMembers(ctx context.Context, backend storage.Backend, ids []types.MemoryId) ([]*types.Memory, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("conflict: resolution requires at least one memory id")
	}
	out := make([]*types.Memory, 0, len(ids))
	for _, id := range ids {
		m, err := backend.Memories().FindByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("conflict: fetch member %s: %w", id, err)
		}
		out = append(out, m)
	}
	return out, nil
}

func softDeleteAllExcept(ctx context.Context, backend storage.Backend, members []*types.Memory, keepID types.MemoryId) Outcome {
	var deleted []types.MemoryId
	for _, m := range members {
		if m.ID == keepID {
			continue
		}
		m.SoftDelete(nowUTC())
		if err := backend.Memories().Update(ctx, m); err != nil {
			return Outcome{Failed: true, Error: err.Error()}
		}
		deleted = append(deleted, m.ID)
	}
	return Outcome{Success: true, UpdatedIDs: []types.MemoryId{keepID}, DeletedIDs: deleted}
}
