package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryAt(t *testing.T, store *memstore.Store, content string, at time.Time) *types.Memory {
	t.Helper()
	m := types.NewMemory("", types.NewTextContent(content), types.AttributeSet{})
	m.Metadata.CreatedAt = at
	require.NoError(t, store.Memories().Create(context.Background(), m))
	return m
}

func TestRuleBasedConflictDetectsNegation(t *testing.T) {
	has, severity, reason := ruleBasedConflict("the server is running", "the server is not running")
	assert.True(t, has)
	assert.Greater(t, severity, 0.0)
	assert.NotEmpty(t, reason)
}

func TestRuleBasedConflictDetectsNumericDisagreement(t *testing.T) {
	has, _, _ := ruleBasedConflict("the team has 5 members", "the team has 8 members")
	assert.True(t, has)
}

func TestRuleBasedConflictDetectsAntonyms(t *testing.T) {
	has, _, _ := ruleBasedConflict("the feature is enabled", "the feature is disabled")
	assert.True(t, has)
}

func TestRuleBasedConflictNoFalsePositiveOnUnrelatedText(t *testing.T) {
	has, _, _ := ruleBasedConflict("the sky is blue", "coffee tastes bitter")
	assert.False(t, has)
}

func TestDetectSemanticFallsBackToRulesWithoutGenerator(t *testing.T) {
	store := memstore.New()
	now := time.Now().UTC()
	a := newMemoryAt(t, store, "the deployment is enabled", now)
	b := newMemoryAt(t, store, "the deployment is disabled", now)

	d := New(DefaultConfig(), nil)
	embeddings := map[types.MemoryId][]float32{
		a.ID: {1, 0, 0},
		b.ID: {0.99, 0.01, 0},
	}
	conflicts := d.Detect(context.Background(), []*types.Memory{a}, []*types.Memory{b}, embeddings)
	require.NotEmpty(t, conflicts)
	foundSemantic := false
	for _, c := range conflicts {
		if c.Type == TypeSemantic {
			foundSemantic = true
		}
	}
	assert.True(t, foundSemantic)
}

func TestDetectDuplicateRequiresSimilarityAndLengthRatio(t *testing.T) {
	store := memstore.New()
	now := time.Now().UTC()
	a := newMemoryAt(t, store, "the quarterly report is due Friday", now)
	b := newMemoryAt(t, store, "the quarterly report is due on Friday", now)

	d := New(DefaultConfig(), nil)
	embeddings := map[types.MemoryId][]float32{
		a.ID: {1, 0, 0},
		b.ID: {0.999, 0.001, 0},
	}
	conflicts := d.detectDuplicate([]*types.Memory{a}, []*types.Memory{b}, embeddings)
	require.Len(t, conflicts, 1)
	assert.Equal(t, TypeDuplicate, conflicts[0].Type)
	assert.Equal(t, KindRemoveDuplicates, conflicts[0].SuggestedResolution.Kind)
}

func TestDetectTemporalRequiresOverlappingKeywordsWithinWindow(t *testing.T) {
	now := time.Now().UTC()
	a := &types.Memory{ID: "a", Content: types.NewTextContent("deployed yesterday"), Metadata: types.Metadata{CreatedAt: now}}
	b := &types.Memory{ID: "b", Content: types.NewTextContent("rolled back today"), Metadata: types.Metadata{CreatedAt: now.Add(time.Hour)}}

	d := New(DefaultConfig(), nil)
	conflicts := d.detectTemporal([]*types.Memory{a}, []*types.Memory{b})
	require.Len(t, conflicts, 1)
	assert.Equal(t, TypeTemporal, conflicts[0].Type)
}

func TestLowConfidenceConflictAlwaysMarkedForManualReview(t *testing.T) {
	store := memstore.New()
	d := New(DefaultConfig(), nil)
	now := time.Now().UTC()
	a := newMemoryAt(t, store, "alpha", now)
	b := newMemoryAt(t, store, "beta", now)

	conflict := Conflict{MemoryIDs: []types.MemoryId{a.ID, b.ID}, Confidence: 0.1}
	outcome := d.Resolve(context.Background(), store, conflict, Strategy{Kind: KindKeepLatest})
	assert.True(t, outcome.RequiresManual)
}

func TestResolveKeepLatestDeletesOlderMember(t *testing.T) {
	store := memstore.New()
	d := New(DefaultConfig(), nil)
	older := newMemoryAt(t, store, "old fact", time.Now().UTC().Add(-time.Hour))
	newer := newMemoryAt(t, store, "new fact", time.Now().UTC())

	conflict := Conflict{MemoryIDs: []types.MemoryId{older.ID, newer.ID}, Confidence: 0.9}
	outcome := d.Resolve(context.Background(), store, conflict, Strategy{Kind: KindKeepLatest})
	require.True(t, outcome.Success)
	assert.Equal(t, []types.MemoryId{older.ID}, outcome.DeletedIDs)

	got, err := store.Memories().FindByID(context.Background(), older.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted())
}

func TestResolveMergeUpdatesCanonicalAndDeletesRest(t *testing.T) {
	store := memstore.New()
	d := New(DefaultConfig(), nil)
	a := newMemoryAt(t, store, "partial fact one", time.Now().UTC())
	b := newMemoryAt(t, store, "partial fact two", time.Now().UTC())

	conflict := Conflict{MemoryIDs: []types.MemoryId{a.ID, b.ID}, Confidence: 0.9}
	outcome := d.Resolve(context.Background(), store, conflict, Strategy{Kind: KindMerge, MergedContent: "combined fact"})
	require.True(t, outcome.Success)
	assert.Equal(t, []types.MemoryId{a.ID}, outcome.UpdatedIDs)
	assert.Equal(t, []types.MemoryId{b.ID}, outcome.DeletedIDs)

	got, err := store.Memories().FindByID(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, "combined fact", got.Content.String())
}

func TestLLMConflictParsesValidJSON(t *testing.T) {
	gen := &llm.FakeLLM{Response: `{"has_conflict":true,"severity":"high","explanation":"direct contradiction"}`}
	d := New(DefaultConfig(), gen)
	has, severity, explanation, ok := d.llmConflict(context.Background(), "a", "b")
	require.True(t, ok)
	assert.True(t, has)
	assert.Equal(t, 0.9, severity)
	assert.Equal(t, "direct contradiction", explanation)
}
