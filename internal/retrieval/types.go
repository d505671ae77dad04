// Package retrieval implements active retrieval (C9): a per-request
// pipeline of cache check, topic extraction, routing, fan-out across the
// typed memory agents, relevance-weighted merge, and optional synthesis.
package retrieval

import (
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

// Strategy is one retrieval strategy a route decision can select.
type Strategy string

const (
	StrategyStringMatch       Strategy = "StringMatch"
	StrategyVectorSimilarity  Strategy = "VectorSimilarity"
	StrategyHybrid            Strategy = "Hybrid"
	StrategyTemporalProximity Strategy = "TemporalProximity"
	StrategyGraph             Strategy = "Graph"
)

// allStrategies is the full strategy roster routing chooses from absent a
// PreferredStrategy hint.
var allStrategies = []Strategy{
	StrategyStringMatch, StrategyVectorSimilarity, StrategyHybrid,
	StrategyTemporalProximity, StrategyGraph,
}

// Request is one active-retrieval call.
type Request struct {
	Query                  string
	TargetMemoryTypes      []string
	MaxResults             int
	PreferredStrategy      Strategy
	Context                string
	EnableTopicExtraction  bool
	EnableContextSynthesis bool
}

// Topic is one extracted topic label.
type Topic struct {
	Label      string  `json:"label"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// RouteDecision is C9.2's routing output.
type RouteDecision struct {
	TargetMemoryTypes  []types.MemoryType
	SelectedStrategies []Strategy
	StrategyWeights    map[Strategy]float64
}

// RetrievedMemory is one fan-out result, carrying the relevance score and
// provenance (which memory type / strategy combo produced it) a caller
// needs to judge trust.
type RetrievedMemory struct {
	Memory     *types.Memory
	Relevance  float64
	MemoryType types.MemoryType
	Strategy   Strategy
	Mock       bool
}

// SynthesisResult is C9.3's optional combined-context output.
type SynthesisResult struct {
	Context          string
	ConfidenceScore  float64
	ResolutionMethod string
}

// Response is the full pipeline's output (spec §9 step 7).
type Response struct {
	Memories         []RetrievedMemory
	ExtractedTopics  []Topic
	Routing          RouteDecision
	Synthesis        *SynthesisResult
	ProcessingTimeMs int64
	ConfidenceScore  float64
	FromCache        bool
}

func elapsedMs(start time.Time) int64 {
	ms := time.Since(start).Milliseconds()
	if ms < 1 {
		return 1
	}
	return ms
}
