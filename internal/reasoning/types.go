// Package reasoning implements causal graph reasoning and schema
// evolution (C11): an in-process causal node/edge graph with bounded
// BFS chain search, stateless multi-hop/counterfactual/analogical
// helpers, and a schema store that merges, splits, and stubs-in new
// schemas over a memory set.
package reasoning

import (
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

// CausalChain is an ordered sequence of causal edges connecting two
// nodes, with combined confidence (the product of each edge's
// strength*confidence along the path).
type CausalChain struct {
	NodeIDs           []string
	Edges             []*types.CausalEdge
	OverallConfidence float64
	Explanation       string
}

// AnalogyResult is the outcome of mapping a source domain onto a target
// domain: which source features/relations found a match in the target,
// and how strong the mapping is overall.
type AnalogyResult struct {
	FeatureMatches  map[string]string // source feature -> target feature
	RelationMatches map[string]string // source relation label -> target relation label
	Coverage        float64
	Strength        float64
}

// Domain is the {features, relations} extraction Analogical reasons
// over. Relations are directed edges (Relation: From, To, Label) so two
// relations can be compared by label equality independent of endpoint
// names.
type Domain struct {
	Features  []string
	Relations []Relation
}

// Relation is one labeled edge within a Domain.
type Relation struct {
	From, To, Label string
}

// CounterfactualResult predicts how removing or altering a node's effect
// would propagate to its dependents, with confidence decaying as the
// breadth of impact grows.
type CounterfactualResult struct {
	NodeID          string
	AlteredOutcome  string
	AffectedNodeIDs []string
	Confidence      float64
}

// Config tunes the causal engine and schema store.
type Config struct {
	MaxChainLength int
	MinConfidence  float64
	CacheSize      int
	CacheTTL       time.Duration

	MaxSchemaCount int
	MergeThreshold float64
	SplitThreshold float64
}

// DefaultConfig matches spec §11's stated defaults and the bounded
// graph-traversal posture the causal engine inherits from the teacher's
// BoundsChecker.
func DefaultConfig() Config {
	return Config{
		MaxChainLength: 6,
		MinConfidence:  0.1,
		CacheSize:      256,
		CacheTTL:       10 * time.Minute,
		MaxSchemaCount: 100,
		MergeThreshold: 0.85,
		SplitThreshold: 0.3,
	}
}

// HistoryEntry records one schema-evolution step for audit purposes.
type HistoryEntry struct {
	Operation string // "merge", "split", "create"
	SchemaIDs []string
	At        time.Time
	Detail    string
}
