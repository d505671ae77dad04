package scoring

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryWithImportance(t *testing.T, store *memstore.Store, importance float64, updatedAt time.Time, accessCount uint32) *types.Memory {
	t.Helper()
	attrs := types.AttributeSet{}.Set(types.AttrImportance, types.NumberValue(importance))
	m := types.NewMemory("", types.NewTextContent("x"), attrs)
	m.Metadata.UpdatedAt = updatedAt
	m.Metadata.AccessCount = accessCount
	require.NoError(t, store.Memories().Create(context.Background(), m))
	return m
}

func TestCalculateBlendsImportanceRecencyAndAccess(t *testing.T) {
	store := memstore.New()
	scorer := New(store.Memories())

	fresh := newMemoryWithImportance(t, store, 1.0, time.Now(), 10)
	c := scorer.Calculate(fresh)

	assert.Equal(t, 1.0, c.Importance)
	assert.InDelta(t, 1.0, c.Recency, 1e-9)
	assert.Equal(t, 0.5, c.Access) // capped at 0.05*10 = 0.5, not yet saturated
	assert.InDelta(t, 1.0*0.4+1.0*0.3+0.5*0.2+0.1, c.Overall, 1e-9)
}

func TestCalculateDefaultsImportanceWhenUnset(t *testing.T) {
	store := memstore.New()
	scorer := New(store.Memories())
	m := types.NewMemory("", types.NewTextContent("x"), types.AttributeSet{})

	c := scorer.Calculate(m)
	assert.Equal(t, 0.5, c.Importance)
}

func TestCalculateOverallNeverExceedsOne(t *testing.T) {
	store := memstore.New()
	scorer := New(store.Memories())
	m := newMemoryWithImportance(t, store, 1.0, time.Now(), 1000)

	c := scorer.Calculate(m)
	assert.LessOrEqual(t, c.Overall, 1.0)
	assert.InDelta(t, 1.0, c.Overall, 1e-9)
}

func TestUpdatePersistsScoreAttribute(t *testing.T) {
	store := memstore.New()
	scorer := New(store.Memories())
	m := newMemoryWithImportance(t, store, 0.8, time.Now(), 2)

	c, err := scorer.Update(context.Background(), m.ID)
	require.NoError(t, err)

	got, err := store.Memories().FindByID(context.Background(), m.ID)
	require.NoError(t, err)
	scoreAttr, ok := got.Attributes.Get(types.AttrScore)
	require.True(t, ok)
	assert.InDelta(t, c.Overall, scoreAttr.Num, 1e-9)
}

func TestBatchUpdateSkipsUnknownIDsButUpdatesRest(t *testing.T) {
	store := memstore.New()
	scorer := New(store.Memories())
	m := newMemoryWithImportance(t, store, 0.6, time.Now(), 1)

	updated, err := scorer.BatchUpdate(context.Background(), []types.MemoryId{m.ID, "does-not-exist"})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
}
