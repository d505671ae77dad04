package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/postgres"
	"github.com/scrypster/memento-engine/pkg/types"
)

// postgresTestDSN returns the DSN for the test database. If
// POSTGRES_TEST_DSN is not set, tests are skipped — these require a live
// server and are not run as part of the default test suite.
func postgresTestDSN(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set; skipping PostgreSQL integration tests")
	}
	return dsn
}

func newTestStore(t *testing.T) *postgres.Store {
	t.Helper()
	store, err := postgres.Open(postgresTestDSN(t))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryRepoCreateGetDelete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := s.Memories()

	m := types.NewMemory("mem:pg-1", types.NewTextContent("hello postgres"), nil)
	require.NoError(t, repo.Create(ctx, m))

	got, err := repo.FindByID(ctx, "mem:pg-1")
	require.NoError(t, err)
	assert.Equal(t, "hello postgres", got.Content.String())

	require.NoError(t, repo.Delete(ctx, "mem:pg-1"))
	got, err = repo.FindByID(ctx, "mem:pg-1")
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
}

func TestMemoryRepoSearch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := s.Memories()

	require.NoError(t, repo.Create(ctx, types.NewMemory("mem:pg-2", types.NewTextContent("the quick brown fox"), nil)))
	require.NoError(t, repo.Create(ctx, types.NewMemory("mem:pg-3", types.NewTextContent("lazy dog sleeps"), nil)))

	res, err := repo.Search(ctx, "fox", 10)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, types.MemoryId("mem:pg-2"), res[0].ID)
}

func TestWorkingMemoryTTL(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	wm := s.WorkingMemory()

	require.NoError(t, wm.Put(ctx, "sess-pg-1", storage.WorkingMemoryItem{Content: "scratch"}, -time.Second))
	items, err := wm.Get(ctx, "sess-pg-1")
	require.NoError(t, err)
	assert.Empty(t, items)

	require.NoError(t, wm.Put(ctx, "sess-pg-1", storage.WorkingMemoryItem{Content: "fresh"}, time.Hour))
	items, err = wm.Get(ctx, "sess-pg-1")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "fresh", items[0].Content)
}

func TestGraphTraverse(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	assocs := s.Associations()

	for _, id := range []types.MemoryId{"pg-a", "pg-b", "pg-c"} {
		require.NoError(t, s.Memories().Create(ctx, types.NewMemory(id, types.NewTextContent(string(id)), nil)))
	}
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "pg-a", ToMemoryID: "pg-b", AssociationType: "related", Strength: 0.9}))
	require.NoError(t, assocs.Create(ctx, &types.Association{FromMemoryID: "pg-b", ToMemoryID: "pg-c", AssociationType: "related", Strength: 0.8}))

	result, err := s.Graph().Traverse(ctx, "pg-a", storage.GraphBounds{MaxHops: 2})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"pg-a", "pg-b", "pg-c"}, result.Nodes)
}

func TestEmbeddingRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Memories().Create(ctx, types.NewMemory("mem:pg-embed", types.NewTextContent("x"), nil)))
	vec := []float32{0.25, -0.5, 0.75}
	require.NoError(t, s.Embeddings().StoreEmbedding(ctx, "mem:pg-embed", vec, 3, "fake-embed"))

	got, err := s.Embeddings().GetEmbedding(ctx, "mem:pg-embed")
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestEmbeddingDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	err := s.Embeddings().StoreEmbedding(ctx, "mem:pg-embed-2", []float32{0.1, 0.2}, 3, "fake-embed")
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}
