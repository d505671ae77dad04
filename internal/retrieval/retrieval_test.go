package retrieval

import (
	"context"
	"testing"

	"github.com/scrypster/memento-engine/internal/agents"
	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/storage/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveWithoutRegistryYieldsMockResults(t *testing.T) {
	r, err := New(nil, nil, DefaultConfig())
	require.NoError(t, err)

	resp := r.Retrieve(context.Background(), Request{Query: "deploy pipeline", MaxResults: 5})
	assert.NotEmpty(t, resp.Memories)
	assert.GreaterOrEqual(t, resp.ProcessingTimeMs, int64(1))
	for _, rm := range resp.Memories {
		assert.True(t, rm.Mock)
	}
}

func TestRetrieveFansOutThroughRegisteredAgents(t *testing.T) {
	store := memstore.New()
	registry := agents.NewRegistry(store, 10)
	ctx := context.Background()
	registry.ExecuteTask(ctx, agents.Task{MemoryType: "Semantic", Operation: "create", Parameters: map[string]interface{}{
		"content": "Paris is the capital of France",
	}})

	r, err := New(registry, nil, DefaultConfig())
	require.NoError(t, err)

	resp := r.Retrieve(ctx, Request{Query: "Paris", TargetMemoryTypes: []string{"Semantic"}, MaxResults: 10})
	require.NotEmpty(t, resp.Memories)
	found := false
	for _, rm := range resp.Memories {
		if !rm.Mock {
			found = true
		}
	}
	assert.True(t, found, "expected at least one non-mock result from the registered Semantic agent")
}

func TestRetrieveCachesByFingerprint(t *testing.T) {
	r, err := New(nil, nil, DefaultConfig())
	require.NoError(t, err)

	first := r.Retrieve(context.Background(), Request{Query: "same query", MaxResults: 3})
	assert.False(t, first.FromCache)

	second := r.Retrieve(context.Background(), Request{Query: "same query", MaxResults: 3})
	assert.True(t, second.FromCache)
}

func TestRetrieveDisabledTopicExtractionYieldsEmptyList(t *testing.T) {
	gen := &llm.FakeLLM{Response: `[{"label":"deploy","category":"ops","confidence":0.9}]`}
	r, err := New(nil, gen, DefaultConfig())
	require.NoError(t, err)

	resp := r.Retrieve(context.Background(), Request{Query: "deploy", EnableTopicExtraction: false})
	assert.Empty(t, resp.ExtractedTopics)
}

func TestRetrieveExtractsTopicsWhenEnabled(t *testing.T) {
	gen := &llm.FakeLLM{Response: `[{"label":"deploy","category":"ops","confidence":0.9}]`}
	r, err := New(nil, gen, DefaultConfig())
	require.NoError(t, err)

	resp := r.Retrieve(context.Background(), Request{Query: "deploy the service", EnableTopicExtraction: true})
	require.Len(t, resp.ExtractedTopics, 1)
	assert.Equal(t, "deploy", resp.ExtractedTopics[0].Label)
}

func TestRetrieveSynthesisFallsBackToMostRecentWithoutGenerator(t *testing.T) {
	r, err := New(nil, nil, DefaultConfig())
	require.NoError(t, err)

	resp := r.Retrieve(context.Background(), Request{Query: "abc", MaxResults: 2, EnableContextSynthesis: true})
	require.NotNil(t, resp.Synthesis)
	assert.Equal(t, "most-recent", resp.Synthesis.ResolutionMethod)
	assert.LessOrEqual(t, resp.ConfidenceScore, 1.0)
}

func TestRelevanceFormula(t *testing.T) {
	assert.InDelta(t, 0.9, relevance(0, 1.0), 1e-9)
	assert.InDelta(t, 0.9*0.5, relevance(0, 0.5), 1e-9)
	// rank 1: base=0.8, decay=0.95 -> 0.76
	assert.InDelta(t, 0.76, relevance(1, 1.0), 1e-9)
}

func TestMockResultCountFormula(t *testing.T) {
	results := mockResults("abc", "Core")
	assert.Len(t, results, len("abc")%3+1)
}
