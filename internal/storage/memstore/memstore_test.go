package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepoCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	repo := s.Memories()

	m := types.NewMemory("mem:1", types.NewTextContent("hello"), nil)
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, "mem:1")
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content.String())

	require.NoError(t, repo.Delete(ctx, "mem:1"))
	got, err = repo.FindByID(ctx, "mem:1")
	require.NoError(t, err) // delete is soft; row remains
	assert.True(t, got.IsDeleted())

	res, err := repo.List(ctx, storage.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total, "soft-deleted memories are excluded from list by default")
}

func TestWorkingMemoryTTL(t *testing.T) {
	ctx := context.Background()
	s := New()
	wm := s.WorkingMemory()

	require.NoError(t, wm.Put(ctx, "sess-1", storage.WorkingMemoryItem{Content: "scratch"}, -time.Second))
	items, err := wm.Get(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, items, "expired items must be logically absent")

	require.NoError(t, wm.Put(ctx, "sess-1", storage.WorkingMemoryItem{Content: "fresh"}, time.Hour))
	items, err = wm.Get(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Content)
}

func TestGraphTraverse(t *testing.T) {
	ctx := context.Background()
	s := New()
	assocs := s.Associations()

	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "a", ToMemoryID: "b", AssociationType: "related", Strength: 0.9}))
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "b", ToMemoryID: "c", AssociationType: "related", Strength: 0.8}))

	result, err := s.Graph().Traverse(ctx, "a", storage.GraphBounds{MaxHops: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, result.Nodes)
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := New()
	err := s.Embeddings().StoreEmbedding(ctx, "mem:1", []float32{0.1, 0.2}, 3, "fake-embed")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
