package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/pkg/types"
)

func TestExtractFactsParsesArray(t *testing.T) {
	gen := &llm.FakeLLM{Response: `[{"content":"User likes tea","importance":0.5,"confidence":0.9,"tags":["preference"]}]`}
	facts := ExtractFacts(context.Background(), gen, "I really like tea", "")
	require.Len(t, facts, 1)
	assert.Equal(t, "User likes tea", facts[0].Content)
}

func TestExtractFactsMalformedJSONYieldsEmpty(t *testing.T) {
	gen := &llm.FakeLLM{Response: "not json at all"}
	facts := ExtractFacts(context.Background(), gen, "hello", "")
	assert.Empty(t, facts)
}

func TestExtractFactsNoGeneratorYieldsEmpty(t *testing.T) {
	assert.Empty(t, ExtractFacts(context.Background(), nil, "hello", ""))
}

func TestDecideViaLLMUpdate(t *testing.T) {
	gen := &llm.FakeLLM{Response: `{"action":"UPDATE","target_index":2,"confidence":0.8,"reason":"refines prior fact"}`}
	candidates := []Candidate{
		{ID: "mem:1", Content: "old fact one", Similarity: 0.4},
		{ID: "mem:2", Content: "old fact two", Similarity: 0.9},
	}
	d := Decide(context.Background(), gen, Fact{Content: "new fact"}, candidates, 0, 0.85)
	assert.Equal(t, ActionUpdate, d.Action)
	assert.Equal(t, types.MemoryId("mem:2"), d.TargetID)
}

func TestDecideFallsBackWhenLLMUnparseable(t *testing.T) {
	gen := &llm.FakeLLM{Response: "garbage"}
	candidates := []Candidate{
		{ID: "mem:1", Content: "old fact", Similarity: 0.95},
	}
	d := Decide(context.Background(), gen, Fact{Content: "new fact"}, candidates, 0, 0.85)
	assert.Equal(t, ActionUpdate, d.Action)
	assert.Equal(t, types.MemoryId("mem:1"), d.TargetID)
}

func TestDecideDeterministicAddWhenBelowThreshold(t *testing.T) {
	d := decideDeterministic(Fact{Content: "new fact"}, []Candidate{{ID: "mem:1", Similarity: 0.3}}, 0.85)
	assert.Equal(t, ActionAdd, d.Action)
}

func TestDecideDeterministicNoCandidates(t *testing.T) {
	d := decideDeterministic(Fact{Content: "new fact"}, nil, 0.85)
	assert.Equal(t, ActionAdd, d.Action)
}
