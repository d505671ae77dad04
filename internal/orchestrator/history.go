package orchestrator

import (
	"context"
	"encoding/json"
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

// ChangeType classifies one entry in a memory's history log.
type ChangeType string

const (
	historyCreated ChangeType = "Created"
	historyUpdated ChangeType = "Updated"
	historyDeleted ChangeType = "Deleted"
)

// HistoryEntry is one recorded change to a memory, ordered oldest first.
type HistoryEntry struct {
	ChangeType ChangeType `json:"change_type"`
	Version    uint32     `json:"version"`
	At         time.Time  `json:"at"`
}

// AttrHistory carries a memory's change log as a JSON-encoded array of
// HistoryEntry, oldest first. There is no dedicated history table: a
// memory's own attribute bag already round-trips through every storage
// adapter without schema changes, and the log is small (one entry per
// create/update/delete), so piggy-backing it here avoids a second
// repository and a second place every adapter would need to implement
// the same "append, never truncate" semantics.
var AttrHistory = types.AttributeKey{Namespace: types.NamespaceSystem, Name: "history"}

// recordHistory appends a change entry to m's history attribute,
// reflecting m's current (already-mutated) version. Call it after
// applying the change being recorded, so Version matches what was
// persisted.
func (o *Orchestrator) recordHistory(m *types.Memory, change ChangeType) error {
	entries, err := decodeHistory(m)
	if err != nil {
		entries = nil
	}
	entries = append(entries, HistoryEntry{
		ChangeType: change,
		Version:    m.Metadata.Version,
		At:         time.Now().UTC(),
	})
	encoded, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	m.Attributes = m.Attributes.Set(AttrHistory, types.StringValue(string(encoded)))
	return nil
}

func decodeHistory(m *types.Memory) ([]HistoryEntry, error) {
	v, ok := m.Attributes.Get(AttrHistory)
	if !ok {
		return nil, nil
	}
	var entries []HistoryEntry
	if err := json.Unmarshal([]byte(v.AsString()), &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// History returns the ordered change log for id, oldest first. Unlike Get,
// History finds a memory regardless of its tombstone state: a soft-deleted
// memory's history still ends in a Deleted entry, per
// history(id).last().change_type == Deleted.
func (o *Orchestrator) History(ctx context.Context, id types.MemoryId) ([]HistoryEntry, error) {
	m, err := o.backend.Memories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := decodeHistory(m)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
