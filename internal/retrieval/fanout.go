package retrieval

import (
	"context"
	"fmt"

	"github.com/scrypster/memento-engine/internal/agents"
	"github.com/scrypster/memento-engine/pkg/types"
)

// fanOut runs every (memory_type, strategy) combo from decision
// concurrently, per spec §5's "retrieval fan-out over memory types" being
// one of the named sources of safe parallelism, and merges the per-combo
// ranked results into one slice.
func (r *Retriever) fanOut(ctx context.Context, req Request, decision RouteDecision) []RetrievedMemory {
	type job struct {
		memoryType types.MemoryType
		strategy   Strategy
	}
	jobs := make([]job, 0, len(decision.TargetMemoryTypes)*len(decision.SelectedStrategies))
	for _, mt := range decision.TargetMemoryTypes {
		for _, s := range decision.SelectedStrategies {
			jobs = append(jobs, job{mt, s})
		}
	}

	results := make(chan []RetrievedMemory, len(jobs))
	for _, j := range jobs {
		go func(j job) {
			weight := decision.StrategyWeights[j.strategy]
			results <- r.fanOutOne(ctx, req, j.memoryType, j.strategy, weight)
		}(j)
	}

	var merged []RetrievedMemory
	for range jobs {
		merged = append(merged, (<-results)...)
	}
	return merged
}

// fanOutOne retrieves for one (memory_type, strategy) combo: the
// registered specialist's search op when present, otherwise deterministic
// mock results sized by len(query)%3+1 (spec §9 step 4, preserved exactly
// per the load-bearing-formula note in DESIGN.md).
func (r *Retriever) fanOutOne(ctx context.Context, req Request, memoryType types.MemoryType, strategy Strategy, weight float64) []RetrievedMemory {
	var memories []*types.Memory
	mock := false

	if r.registry != nil && r.registry.HasAgent(memoryType) {
		resp := r.registry.ExecuteTask(ctx, agents.Task{
			TaskID:     fmt.Sprintf("retrieval-%s-%s", memoryType, strategy),
			MemoryType: memoryType,
			Operation:  "search",
			Parameters: map[string]interface{}{"query": req.Query, "limit": req.MaxResults},
		})
		if resp.Success {
			if items, ok := resp.Data.([]*types.Memory); ok {
				memories = items
			}
		}
	}
	if memories == nil {
		memories = mockResults(req.Query, memoryType)
		mock = true
	}

	out := make([]RetrievedMemory, 0, len(memories))
	for rank, m := range memories {
		out = append(out, RetrievedMemory{
			Memory:     m,
			Relevance:  relevance(rank, weight),
			MemoryType: memoryType,
			Strategy:   strategy,
			Mock:       mock,
		})
	}
	return out
}

// relevance implements spec §9 step 4's formula exactly:
// base(0.9 − 0.1·rank) · strategy_weight · (1 − 0.05·rank).
func relevance(rank int, strategyWeight float64) float64 {
	base := 0.9 - 0.1*float64(rank)
	if base < 0 {
		base = 0
	}
	decay := 1 - 0.05*float64(rank)
	if decay < 0 {
		decay = 0
	}
	return types.ClampUnit(base * strategyWeight * decay)
}

// mockResults generates deterministic placeholder memories for a
// memory_type with no registered agent (or whose agent declined the
// task), sized len(query)%3+1 per spec.
func mockResults(query string, memoryType types.MemoryType) []*types.Memory {
	count := len(query)%3 + 1
	out := make([]*types.Memory, 0, count)
	for i := 0; i < count; i++ {
		content := fmt.Sprintf("(mock %s result %d for %q)", memoryType, i+1, query)
		m := types.NewMemory("", types.NewTextContent(content), types.AttributeSet{
			types.AttrMemoryType: types.StringValue(string(memoryType)),
		})
		out = append(out, m)
	}
	return out
}
