// Package conversation implements per-session conversation state (C12):
// an append-only message log and a TTL-bounded working-memory
// scratchpad, both thin façades over repositories the storage layer
// already implements.
package conversation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Log is the append-only session message log. It never mutates message
// ordering or deletes entries outright — Edit and Retract are the only
// sanctioned post-append operations, mirroring spec §3.1's Message
// schema (edits bump updated_at, retraction sets is_deleted).
type Log struct {
	backend storage.Backend
}

// NewLog builds a Log over backend.
func NewLog(backend storage.Backend) *Log {
	return &Log{backend: backend}
}

// Append records a new message. ID and CreatedAt/UpdatedAt are
// generated here when unset so callers never have to coordinate
// timestamps across a distributed ingestion path.
func (l *Log) Append(ctx context.Context, msg *types.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	return l.backend.Messages().Create(ctx, msg)
}

// Edit updates an existing message's text/structured content in place,
// bumping UpdatedAt. The message's position in the log and its
// CreatedAt are untouched.
func (l *Log) Edit(ctx context.Context, id, text string) error {
	msg, err := l.backend.Messages().FindByID(ctx, id)
	if err != nil {
		return err
	}
	msg.Text = text
	msg.UpdatedAt = time.Now().UTC()
	return l.backend.Messages().Update(ctx, msg)
}

// Retract tombstones a message (spec invariant 3: is_deleted, not a
// physical row removal).
func (l *Log) Retract(ctx context.Context, id string) error {
	msg, err := l.backend.Messages().FindByID(ctx, id)
	if err != nil {
		return err
	}
	msg.IsDeleted = true
	msg.UpdatedAt = time.Now().UTC()
	return l.backend.Messages().Update(ctx, msg)
}

// HistoryForAgent returns agentID's messages oldest first; with a positive
// limit only the earliest limit messages are returned, not the most recent.
func (l *Log) HistoryForAgent(ctx context.Context, agentID string, limit int) ([]*types.Message, error) {
	return l.backend.Messages().FindByAgentID(ctx, agentID, limit)
}

// HistoryForUser returns userID's messages oldest first; with a positive
// limit only the earliest limit messages are returned, not the most recent.
func (l *Log) HistoryForUser(ctx context.Context, userID string, limit int) ([]*types.Message, error) {
	return l.backend.Messages().FindByUserID(ctx, userID, limit)
}

// HistoryForSession narrows agentID's history to a single session
// (spec's group_id), since MessageRepository has no direct
// group-id-scoped query. limit bounds the agent-wide fetch, not the
// post-filter count, and that fetch takes the agent's earliest messages,
// so a recent or very quiet session can still be missed by a too-small limit — callers that need guaranteed session
// coverage should pass a generous limit.
func (l *Log) HistoryForSession(ctx context.Context, agentID, groupID string, limit int) ([]*types.Message, error) {
	all, err := l.backend.Messages().FindByAgentID(ctx, agentID, limit)
	if err != nil {
		return nil, err
	}
	var out []*types.Message
	for _, msg := range all {
		if msg.GroupID == groupID {
			out = append(out, msg)
		}
	}
	return out, nil
}
