package reasoning

import (
	"context"
	"log"
	"sort"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Engine is the causal reasoning façade: a graph, a bounded BFS chain
// search over it, and an optional LLM-backed explanation of the winning
// chain. textGen may be nil, in which case FindCausalChains returns
// chains with an empty Explanation instead of failing.
type Engine struct {
	graph   *CausalGraph
	cache   *chainCache
	cfg     Config
	textGen llm.TextGenerator
	breaker *llm.CircuitBreaker
}

// NewEngine builds an Engine over graph. Pass nil textGen to skip
// chain-explanation generation.
func NewEngine(graph *CausalGraph, cfg Config, textGen llm.TextGenerator) (*Engine, error) {
	cache, err := newChainCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	e := &Engine{graph: graph, cache: cache, cfg: cfg, textGen: textGen}
	if textGen != nil {
		e.breaker = llm.NewCircuitBreaker()
	}
	return e, nil
}

// FindCausalChains performs BFS from causeID to effectID bounded by
// cfg.MaxChainLength (hop count) and cfg.MinConfidence (per spec §11,
// per-step confidence multiplies edge.strength*edge.confidence along the
// path). Chains are returned ordered by overall confidence descending;
// the best one is cached per (causeID, effectID) with TTL alongside an
// LLM-generated explanation.
func (e *Engine) FindCausalChains(ctx context.Context, causeID, effectID string) ([]CausalChain, error) {
	if cached, ok := e.cache.get(causeID, effectID); ok {
		return []CausalChain{cached}, nil
	}

	chains := bfsChains(e.graph, causeID, effectID, e.cfg.MaxChainLength, e.cfg.MinConfidence)
	if len(chains) == 0 {
		return nil, nil
	}
	sort.SliceStable(chains, func(i, j int) bool { return chains[i].OverallConfidence > chains[j].OverallConfidence })

	best := chains[0]
	best.Explanation = e.explain(ctx, best)
	chains[0] = best
	e.cache.put(causeID, effectID, best)
	return chains, nil
}

// bfsFrontier is one in-flight partial path during bfsChains.
type bfsFrontier struct {
	nodeIDs    []string
	edges      []*types.CausalEdge
	confidence float64
}

// bfsChains explores forward causal edges breadth-first, tracking the
// running confidence product along each path. A node is never revisited
// within the same path (guards against cycles a malformed graph might
// still contain despite the time-ordering invariant).
func bfsChains(graph *CausalGraph, causeID, effectID string, maxLen int, minConfidence float64) []CausalChain {
	if maxLen <= 0 {
		maxLen = 6
	}
	queue := []bfsFrontier{{nodeIDs: []string{causeID}, confidence: 1.0}}
	var results []CausalChain

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		last := cur.nodeIDs[len(cur.nodeIDs)-1]
		if last == effectID && len(cur.edges) > 0 {
			results = append(results, CausalChain{
				NodeIDs:           append([]string{}, cur.nodeIDs...),
				Edges:             append([]*types.CausalEdge{}, cur.edges...),
				OverallConfidence: cur.confidence,
			})
			continue
		}
		if len(cur.nodeIDs) > maxLen {
			continue
		}
		for _, edge := range graph.OutEdges(last) {
			step := edge.Strength * edge.Confidence
			nextConfidence := cur.confidence * step
			if nextConfidence < minConfidence {
				continue
			}
			if containsID(cur.nodeIDs, edge.EffectID) {
				continue
			}
			queue = append(queue, bfsFrontier{
				nodeIDs:    append(append([]string{}, cur.nodeIDs...), edge.EffectID),
				edges:      append(append([]*types.CausalEdge{}, cur.edges...), edge),
				confidence: nextConfidence,
			})
		}
	}
	return results
}

func containsID(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func (e *Engine) explain(ctx context.Context, chain CausalChain) string {
	if e.textGen == nil || len(chain.NodeIDs) == 0 {
		return ""
	}
	prompt := llm.CausalExplanationPrompt(chain.NodeIDs)
	out, err := e.complete(ctx, prompt)
	if err != nil {
		log.Printf("reasoning: causal explanation call failed: %v", err)
		return ""
	}
	return out
}

func (e *Engine) complete(ctx context.Context, prompt string) (string, error) {
	if e.breaker == nil {
		return e.textGen.Complete(ctx, prompt)
	}
	result, err := e.breaker.Execute(ctx, func() (interface{}, error) {
		return e.textGen.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	out, _ := result.(string)
	return out, nil
}
