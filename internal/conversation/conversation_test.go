package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogAppendAssignsIDAndTimestamps(t *testing.T) {
	store := memstore.New()
	log := NewLog(store)
	msg := &types.Message{AgentID: "agent-1", UserID: "user-1", Role: types.RoleUser, Text: "hello"}

	require.NoError(t, log.Append(context.Background(), msg))
	assert.NotEmpty(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
	assert.False(t, msg.UpdatedAt.IsZero())
}

func TestLogHistoryForAgentReturnsAppendedMessages(t *testing.T) {
	store := memstore.New()
	log := NewLog(store)
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-1", Role: types.RoleUser, Text: "one"}))
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-1", Role: types.RoleAssistant, Text: "two"}))
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-2", Role: types.RoleUser, Text: "other agent"}))

	history, err := log.HistoryForAgent(context.Background(), "agent-1", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestLogHistoryForSessionFiltersByGroupID(t *testing.T) {
	store := memstore.New()
	log := NewLog(store)
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-1", GroupID: "session-a", Text: "a1"}))
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-1", GroupID: "session-b", Text: "b1"}))
	require.NoError(t, log.Append(context.Background(), &types.Message{AgentID: "agent-1", GroupID: "session-a", Text: "a2"}))

	history, err := log.HistoryForSession(context.Background(), "agent-1", "session-a", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "a1", history[0].Text)
	assert.Equal(t, "a2", history[1].Text)
}

func TestLogRetractTombstonesMessage(t *testing.T) {
	store := memstore.New()
	log := NewLog(store)
	msg := &types.Message{AgentID: "agent-1", Text: "oops"}
	require.NoError(t, log.Append(context.Background(), msg))

	require.NoError(t, log.Retract(context.Background(), msg.ID))

	history, err := log.HistoryForAgent(context.Background(), "agent-1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestLogEditUpdatesTextKeepsCreatedAt(t *testing.T) {
	store := memstore.New()
	log := NewLog(store)
	msg := &types.Message{AgentID: "agent-1", Text: "draft"}
	require.NoError(t, log.Append(context.Background(), msg))
	createdAt := msg.CreatedAt

	require.NoError(t, log.Edit(context.Background(), msg.ID, "final"))

	got, err := store.Messages().FindByID(context.Background(), msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Text)
	assert.Equal(t, createdAt, got.CreatedAt)
}

func TestScratchpadRecallOmitsExpiredItems(t *testing.T) {
	store := memstore.New()
	pad := NewScratchpad(store)
	_, err := pad.Remember(context.Background(), "session-1", "short-lived", time.Nanosecond)
	require.NoError(t, err)
	time.Sleep(time.Millisecond)

	items, err := pad.Recall(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestScratchpadRecallReturnsLiveItems(t *testing.T) {
	store := memstore.New()
	pad := NewScratchpad(store)
	id, err := pad.Remember(context.Background(), "session-1", "still here", time.Hour)
	require.NoError(t, err)

	items, err := pad.Recall(context.Background(), "session-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, id, items[0].ID)
	assert.Equal(t, "still here", items[0].Content)
}

func TestScratchpadClearRemovesAllItems(t *testing.T) {
	store := memstore.New()
	pad := NewScratchpad(store)
	_, err := pad.Remember(context.Background(), "session-1", "a", time.Hour)
	require.NoError(t, err)
	_, err = pad.Remember(context.Background(), "session-1", "b", time.Hour)
	require.NoError(t, err)

	require.NoError(t, pad.Clear(context.Background(), "session-1"))

	items, err := pad.Recall(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Empty(t, items)
}
