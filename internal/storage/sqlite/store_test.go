package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "memento.db")
	store, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryRepoCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
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

func TestMemoryRepoSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	repo := s.Memories()

	require.NoError(t, repo.Create(ctx, types.NewMemory("mem:1", types.NewTextContent("the quick brown fox"), nil)))
	require.NoError(t, repo.Create(ctx, types.NewMemory("mem:2", types.NewTextContent("lazy dog sleeps"), nil)))

	res, err := repo.Search(ctx, "fox", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, types.MemoryId("mem:1"), res[0].ID)
}

func TestWorkingMemoryTTL(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
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
	s := openTestStore(t)
	assocs := s.Associations()

	for _, id := range []types.MemoryId{"a", "b", "c"} {
		require.NoError(t, s.Memories().Create(ctx, types.NewMemory(id, types.NewTextContent(string(id)), nil)))
	}
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "a", ToMemoryID: "b", AssociationType: "related", Strength: 0.9}))
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "b", ToMemoryID: "c", AssociationType: "related", Strength: 0.8}))

	result, err := s.Graph().Traverse(ctx, "a", storage.GraphBounds{MaxHops: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, result.Nodes)
}

func TestGraphFindPath(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	assocs := s.Associations()

	for _, id := range []types.MemoryId{"a", "b", "c"} {
		require.NoError(t, s.Memories().Create(ctx, types.NewMemory(id, types.NewTextContent(string(id)), nil)))
	}
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "a", ToMemoryID: "b", AssociationType: "related", Strength: 0.9}))
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "b", ToMemoryID: "c", AssociationType: "related", Strength: 0.8}))

	path, err := s.Graph().FindPath(ctx, "a", "c", storage.GraphBounds{MaxHops: 3})
	require.NoError(t, err)
	assert.Equal(t, []types.MemoryId{"a", "b", "c"}, path)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.Memories().Create(ctx, types.NewMemory("mem:1", types.NewTextContent("x"), nil)))
	vec := []float32{0.25, -0.5, 0.75}
	require.NoError(t, s.Embeddings().StoreEmbedding(ctx, "mem:1", vec, 3, "fake-embed"))

	got, err := s.Embeddings().GetEmbedding(ctx, "mem:1")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	err := s.Embeddings().StoreEmbedding(ctx, "mem:1", []float32{0.1, 0.2}, 3, "fake-embed")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTypedStoreRejectsWrongType(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)
	episodic := s.TypedStore(types.MemoryTypeEpisodic)

	m := types.NewMemory("mem:1", types.NewTextContent("event happened"), nil)
	require.NoError(t, episodic.Create(ctx, m))

	semantic := s.TypedStore(types.MemoryTypeSemantic)
	_, err := semantic.FindByID(ctx, "mem:1")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
