package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrypster/memento-engine/internal/storage"
)

// Scratchpad is the session-scoped, TTL-bounded working-memory store
// (spec §3.1's "Working memory" entity, invariant 10: expired entries
// are logically absent from reads). It is a thin façade over
// storage.WorkingMemoryStore — the TTL bookkeeping itself lives in the
// backend implementation, grounded the same way the teacher's
// DecayManager periodically revisits scored state rather than scoring
// it once at write time.
type Scratchpad struct {
	backend storage.Backend
}

// NewScratchpad builds a Scratchpad over backend.
func NewScratchpad(backend storage.Backend) *Scratchpad {
	return &Scratchpad{backend: backend}
}

// Remember stores content under sessionID, expiring after ttl.
func (s *Scratchpad) Remember(ctx context.Context, sessionID, content string, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	item := storage.WorkingMemoryItem{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Content:   content,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := s.backend.WorkingMemory().Put(ctx, sessionID, item, ttl); err != nil {
		return "", err
	}
	return item.ID, nil
}

// Recall returns sessionID's non-expired working-memory items.
func (s *Scratchpad) Recall(ctx context.Context, sessionID string) ([]storage.WorkingMemoryItem, error) {
	return s.backend.WorkingMemory().Get(ctx, sessionID)
}

// Forget removes a single item from sessionID's working memory.
func (s *Scratchpad) Forget(ctx context.Context, sessionID, itemID string) error {
	return s.backend.WorkingMemory().Delete(ctx, sessionID, itemID)
}

// Clear discards every item in sessionID's working memory.
func (s *Scratchpad) Clear(ctx context.Context, sessionID string) error {
	return s.backend.WorkingMemory().Clear(ctx, sessionID)
}

// CleanupExpired opportunistically sweeps every session's expired
// entries and returns how many were removed. Spec §4.12's "cleaned
// opportunistically" language means this is a caller-driven sweep, not
// a dedicated background task — unlike the embedding queue, there is no
// single owner of working-memory state that could run one.
func (s *Scratchpad) CleanupExpired(ctx context.Context) (int, error) {
	return s.backend.WorkingMemory().CleanupExpired(ctx)
}
