package orchestrator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/scrypster/memento-engine/pkg/types"
)

func newCoreOrchestrator(t *testing.T) *Orchestrator {
	t.Helper()
	o, err := NewBuilder(memstore.New()).WithCoreFeatures().Build()
	require.NoError(t, err)
	return o
}

func TestAddVerbatimWithoutIntelligentFeatures(t *testing.T) {
	o := newCoreOrchestrator(t)
	ctx := context.Background()

	id, err := o.Add(ctx, "User likes tea", Scope{UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	m, err := o.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "User likes tea", m.Content.String())
}

func TestGetHidesDeletedMemory(t *testing.T) {
	o := newCoreOrchestrator(t)
	ctx := context.Background()

	id, err := o.Add(ctx, "temporary note", Scope{UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, o.Delete(ctx, id))

	_, err = o.Get(ctx, id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestHistoryRecordsCreateUpdateDelete(t *testing.T) {
	o := newCoreOrchestrator(t)
	ctx := context.Background()

	id, err := o.Add(ctx, "first version", Scope{UserID: "u1"})
	require.NoError(t, err)

	require.NoError(t, o.Update(ctx, id, "second version"))
	require.NoError(t, o.Delete(ctx, id))

	hist, err := o.History(ctx, id)
	require.NoError(t, err)
	require.Len(t, hist, 3)
	assert.Equal(t, historyCreated, hist[0].ChangeType)
	assert.Equal(t, historyUpdated, hist[1].ChangeType)
	assert.Equal(t, historyDeleted, hist[2].ChangeType)
}

func TestAddWithIntelligentFeaturesExtractsFacts(t *testing.T) {
	gen := &llm.FakeLLM{
		ResponseFunc: func(prompt string) (string, error) {
			return `[{"content":"User likes tea","importance":0.5,"confidence":0.9,"tags":[]}]`, nil
		},
	}
	embedder := &llm.FakeEmbedder{}

	o, err := NewBuilder(memstore.New()).WithIntelligentFeatures(gen, embedder).Build()
	require.NoError(t, err)

	id, err := o.Add(context.Background(), "I really like tea", Scope{UserID: "u1"})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	m, err := o.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "User likes tea", m.Content.String())
}

func TestAddNonFactChatterYieldsNoMemory(t *testing.T) {
	gen := &llm.FakeLLM{Response: `[]`}
	embedder := &llm.FakeEmbedder{}

	o, err := NewBuilder(memstore.New()).WithIntelligentFeatures(gen, embedder).Build()
	require.NoError(t, err)

	id, err := o.Add(context.Background(), "thanks!", Scope{UserID: "u1"})
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestSearchExcludesDeleted(t *testing.T) {
	o := newCoreOrchestrator(t)
	ctx := context.Background()

	id, err := o.Add(ctx, "findable note about kangaroos", Scope{UserID: "u1"})
	require.NoError(t, err)
	require.NoError(t, o.Delete(ctx, id))

	results, err := o.Search(ctx, "kangaroos", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestBuildRejectsNilBackend(t *testing.T) {
	_, err := NewBuilder(nil).Build()
	assert.Error(t, err)
}

func TestBuildRejectsInvalidSimilarityThreshold(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SimilarityThreshold = 0
	_, err := NewBuilder(memstore.New()).WithConfig(cfg).Build()
	assert.Error(t, err)
}

func TestGetWithScoringSetsScoreAttribute(t *testing.T) {
	o, err := NewBuilder(memstore.New()).WithCoreFeatures().WithScoring().Build()
	require.NoError(t, err)
	ctx := context.Background()

	id, err := o.Add(ctx, "a scored memory", Scope{UserID: "u1"})
	require.NoError(t, err)

	m, err := o.Get(ctx, id)
	require.NoError(t, err)
	_, ok := m.Attributes.Get(types.AttrScore)
	assert.True(t, ok)
}
