package reasoning

import (
	"fmt"
	"sync"

	"github.com/scrypster/memento-engine/pkg/types"
)

// CausalGraph maintains in-process {nodes, edges, cause_to_effect,
// effect_to_cause} maps per spec §11. Reads return copies so callers
// never observe a map mutated underneath them.
type CausalGraph struct {
	mu            sync.RWMutex
	nodes         map[string]*types.CausalNode
	edges         map[string]*types.CausalEdge
	causeToEffect map[string][]string // cause node id -> edge ids
	effectToCause map[string][]string // effect node id -> edge ids
}

// NewCausalGraph builds an empty graph.
func NewCausalGraph() *CausalGraph {
	return &CausalGraph{
		nodes:         make(map[string]*types.CausalNode),
		edges:         make(map[string]*types.CausalEdge),
		causeToEffect: make(map[string][]string),
		effectToCause: make(map[string][]string),
	}
}

// AddNode inserts or replaces a node.
func (g *CausalGraph) AddNode(n *types.CausalNode) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nodes[n.ID] = n
}

// AddEdge inserts an edge after enforcing invariant 8 (causal
// acyclicity-in-time): an edge cause->effect requires
// effect.timestamp >= cause.timestamp. Returns an error if either
// endpoint is unknown or the time ordering is violated.
func (g *CausalGraph) AddEdge(e *types.CausalEdge) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	cause, ok := g.nodes[e.CauseID]
	if !ok {
		return fmt.Errorf("reasoning: unknown cause node %q", e.CauseID)
	}
	effect, ok := g.nodes[e.EffectID]
	if !ok {
		return fmt.Errorf("reasoning: unknown effect node %q", e.EffectID)
	}
	if effect.Timestamp.Before(cause.Timestamp) {
		return fmt.Errorf("reasoning: edge %s->%s violates causal acyclicity-in-time", e.CauseID, e.EffectID)
	}

	g.edges[e.ID] = e
	g.causeToEffect[e.CauseID] = append(g.causeToEffect[e.CauseID], e.ID)
	g.effectToCause[e.EffectID] = append(g.effectToCause[e.EffectID], e.ID)
	return nil
}

// Node looks up a single node, returning the stored pointer (not a copy).
func (g *CausalGraph) Node(id string) (*types.CausalNode, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// OutEdges returns the edges leaving node id (cause -> effect), a fresh
// slice each call so the caller can't mutate graph state.
func (g *CausalGraph) OutEdges(id string) []*types.CausalEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.causeToEffect[id]
	out := make([]*types.CausalEdge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, g.edges[eid])
	}
	return out
}

// InEdges returns the edges arriving at node id (cause -> effect).
func (g *CausalGraph) InEdges(id string) []*types.CausalEdge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	ids := g.effectToCause[id]
	out := make([]*types.CausalEdge, 0, len(ids))
	for _, eid := range ids {
		out = append(out, g.edges[eid])
	}
	return out
}
