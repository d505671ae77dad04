package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributeKeyRoundTrip(t *testing.T) {
	key := AttributeKey{Namespace: NamespaceCore, Name: "memory_type"}
	assert.Equal(t, "core:memory_type", key.String())

	parsed, err := ParseAttributeKey("core:memory_type")
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = ParseAttributeKey("nocolon")
	assert.Error(t, err)
}

func TestContentTextRoundTrip(t *testing.T) {
	c := NewTextContent("Alice lives in Berlin")
	assert.Equal(t, "Alice lives in Berlin", c.String())
}

func TestNewMemorySetsVersionOne(t *testing.T) {
	m := NewMemory("mem:1", NewTextContent("hello"), nil)
	assert.EqualValues(t, 1, m.Metadata.Version)
	assert.EqualValues(t, 0, m.Metadata.AccessCount)
	require.NotNil(t, m.Metadata.Hash)
}

func TestTouchIsMonotonic(t *testing.T) {
	m := NewMemory("mem:1", NewTextContent("hello"), nil)
	first := m.Metadata.AccessedAt
	m.Touch(first.Add(-time.Hour))
	assert.Equal(t, first, m.Metadata.AccessedAt, "accessed_at must never move backward")
	assert.EqualValues(t, 1, m.Metadata.AccessCount)

	later := first.Add(time.Minute)
	m.Touch(later)
	assert.Equal(t, later, m.Metadata.AccessedAt)
	assert.EqualValues(t, 2, m.Metadata.AccessCount)
}

func TestApplyUpdateBumpsVersion(t *testing.T) {
	m := NewMemory("mem:1", NewTextContent("v1"), nil)
	prevUpdated := m.Metadata.UpdatedAt
	next := NewTextContent("v2")
	m.ApplyUpdate(&next, prevUpdated.Add(time.Second))
	assert.EqualValues(t, 2, m.Metadata.Version)
	assert.True(t, m.Metadata.UpdatedAt.After(prevUpdated))
	assert.Equal(t, "v2", m.Content.String())
}

func TestSoftDeleteSetsTombstone(t *testing.T) {
	m := NewMemory("mem:1", NewTextContent("x"), nil)
	assert.False(t, m.IsDeleted())
	m.SoftDelete(time.Now())
	assert.True(t, m.IsDeleted())
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 0.0, ClampUnit(-1))
	assert.Equal(t, 1.0, ClampUnit(2))
	assert.Equal(t, 0.5, ClampUnit(0.5))
}

func TestLegacyRoundTrip(t *testing.T) {
	now := time.Now().UTC()
	item := MemoryItem{
		ID:             "mem:1",
		Content:        "Alice lives in Berlin",
		OrganizationID: "org1",
		UserID:         "user1",
		AgentID:        "agent1",
		MemoryType:     string(MemoryTypeEpisodic),
		Importance:     0.8,
		Score:          0.5,
		CreatedAt:      now,
		UpdatedAt:      now,
		AccessedAt:     now,
		Version:        1,
	}

	m := item.ToMemory()
	back := FromMemory(m)

	assert.Equal(t, item.ID, back.ID)
	assert.Equal(t, item.Content, back.Content)
	assert.Equal(t, item.OrganizationID, back.OrganizationID)
	assert.Equal(t, item.MemoryType, back.MemoryType)
	assert.InDelta(t, item.Importance, back.Importance, 1e-9)
	assert.EqualValues(t, item.Version, back.Version)
}
