package reasoning

import (
	"context"
	"testing"
	"time"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildChainGraph(t *testing.T) *CausalGraph {
	t.Helper()
	g := NewCausalGraph()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	g.AddNode(&types.CausalNode{ID: "n1", Content: "deployed", Type: types.CausalNodeEvent, Timestamp: base})
	g.AddNode(&types.CausalNode{ID: "n2", Content: "latency spiked", Type: types.CausalNodeEvent, Timestamp: base.Add(time.Minute)})
	g.AddNode(&types.CausalNode{ID: "n3", Content: "rolled back", Type: types.CausalNodeEvent, Timestamp: base.Add(2 * time.Minute)})
	require.NoError(t, g.AddEdge(&types.CausalEdge{ID: "e1", CauseID: "n1", EffectID: "n2", Strength: 0.9, Confidence: 0.95, RelationType: types.CausalDirect}))
	require.NoError(t, g.AddEdge(&types.CausalEdge{ID: "e2", CauseID: "n2", EffectID: "n3", Strength: 0.8, Confidence: 0.9, RelationType: types.CausalDirect}))
	return g
}

func TestFindCausalChainsMatchesSpecFormula(t *testing.T) {
	g := buildChainGraph(t)
	engine, err := NewEngine(g, DefaultConfig(), nil)
	require.NoError(t, err)

	chains, err := engine.FindCausalChains(context.Background(), "n1", "n3")
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, []string{"n1", "n2", "n3"}, chains[0].NodeIDs)
	assert.InDelta(t, 0.6156, chains[0].OverallConfidence, 1e-3)
}

func TestAddEdgeRejectsTimeOrderViolation(t *testing.T) {
	g := NewCausalGraph()
	later := time.Now().UTC()
	earlier := later.Add(-time.Hour)
	g.AddNode(&types.CausalNode{ID: "a", Timestamp: later})
	g.AddNode(&types.CausalNode{ID: "b", Timestamp: earlier})

	err := g.AddEdge(&types.CausalEdge{ID: "bad", CauseID: "a", EffectID: "b", Strength: 1, Confidence: 1})
	assert.Error(t, err)
}

func TestFindCausalChainsCachesResult(t *testing.T) {
	g := buildChainGraph(t)
	gen := &llm.FakeLLM{Response: "deployment caused the rollback"}
	engine, err := NewEngine(g, DefaultConfig(), gen)
	require.NoError(t, err)

	first, err := engine.FindCausalChains(context.Background(), "n1", "n3")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "deployment caused the rollback", first[0].Explanation)

	second, err := engine.FindCausalChains(context.Background(), "n1", "n3")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, first[0], second[0])
}

func TestFindCausalChainsPrunesBelowMinConfidence(t *testing.T) {
	g := buildChainGraph(t)
	cfg := DefaultConfig()
	cfg.MinConfidence = 0.7
	engine, err := NewEngine(g, cfg, nil)
	require.NoError(t, err)

	chains, err := engine.FindCausalChains(context.Background(), "n1", "n3")
	require.NoError(t, err)
	assert.Empty(t, chains)
}

func TestCounterfactualConfidenceDecaysWithBreadth(t *testing.T) {
	g := buildChainGraph(t)
	result := Counterfactual(g, "n1", "rollback avoided")
	assert.ElementsMatch(t, []string{"n2", "n3"}, result.AffectedNodeIDs)
	assert.InDelta(t, 0.81, result.Confidence, 1e-9)
}

func TestAnalogicalStrengthFormula(t *testing.T) {
	source := Domain{
		Features:  []string{"sun", "planet"},
		Relations: []Relation{{From: "sun", To: "planet", Label: "orbits"}},
	}
	target := Domain{
		Features:  []string{"nucleus", "electron"},
		Relations: []Relation{{From: "electron", To: "nucleus", Label: "orbits"}},
	}
	result := Analogical(source, target)
	assert.Equal(t, 1.0/3.0, result.Coverage)
	assert.InDelta(t, 0.4*(1.0/3.0)+0.6*1.0, result.Strength, 1e-9)
}

func TestAnalogicalNoMatchesYieldsZeroStrength(t *testing.T) {
	source := Domain{Features: []string{"apple"}}
	target := Domain{Features: []string{"banana"}}
	result := Analogical(source, target)
	assert.Equal(t, 0.0, result.Strength)
}

func TestCreateSchemaEnforcesMaxSchemaCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSchemaCount = 2
	store := NewSchemaStore(cfg)
	require.NoError(t, store.CreateSchema(&types.Schema{ID: "s1"}))
	require.NoError(t, store.CreateSchema(&types.Schema{ID: "s2"}))

	err := store.CreateSchema(&types.Schema{ID: "s3"})
	assert.ErrorIs(t, err, ErrSchemaLimitExceeded)
	assert.Len(t, store.All(), 2)
}

func TestUpdateSchemaFromMemoriesBumpsVersion(t *testing.T) {
	store := NewSchemaStore(DefaultConfig())
	require.NoError(t, store.CreateSchema(&types.Schema{ID: "s1", Version: 1}))

	m := types.NewMemory("m1", types.NewTextContent("alpha likes coffee"), types.AttributeSet{})
	err := store.UpdateSchemaFromMemories("s1", []types.MemoryId{m.ID}, []*types.Memory{m})
	require.NoError(t, err)

	schema, ok := store.Schema("s1")
	require.True(t, ok)
	assert.Equal(t, 2, schema.Version)
	assert.Contains(t, schema.MemoryIDs, m.ID)
	assert.Equal(t, "alpha likes coffee", schema.Pattern.CoreConcept)
}

func TestEvolveSchemasMergesSimilarSchemas(t *testing.T) {
	store := NewSchemaStore(DefaultConfig())
	require.NoError(t, store.CreateSchema(&types.Schema{
		ID:        "a",
		MemoryIDs: []types.MemoryId{"m1"},
		Pattern:   types.SchemaPattern{SemanticVector: []float32{1, 0, 0}},
	}))
	require.NoError(t, store.CreateSchema(&types.Schema{
		ID:        "b",
		MemoryIDs: []types.MemoryId{"m2"},
		Pattern:   types.SchemaPattern{SemanticVector: []float32{0.99, 0.01, 0}},
	}))

	history := store.EvolveSchemas(context.Background(), nil)
	require.NotEmpty(t, history)
	assert.Equal(t, "merge", history[0].Operation)
	assert.Len(t, store.All(), 1)
}

func TestEvolveSchemasSplitsLowDiversitySchema(t *testing.T) {
	store := NewSchemaStore(DefaultConfig())
	ids := []types.MemoryId{"m1", "m2", "m3", "m4"}
	require.NoError(t, store.CreateSchema(&types.Schema{ID: "big", MemoryIDs: ids}))

	embeddings := map[types.MemoryId][]float32{
		"m1": {1, 0, 0},
		"m2": {0.999, 0.001, 0},
		"m3": {0.998, 0.002, 0},
		"m4": {0.997, 0.003, 0},
	}
	history := store.EvolveSchemas(context.Background(), embeddings)
	require.NotEmpty(t, history)
	found := false
	for _, h := range history {
		if h.Operation == "split" {
			found = true
		}
	}
	assert.True(t, found)
	assert.Len(t, store.All(), 2)
}
