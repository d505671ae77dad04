// Package extraction implements the fact extractor and decision engine
// (C5): turning raw ingested content into discrete facts, and classifying
// each fact against existing candidate memories as ADD, UPDATE, DELETE, or
// NOOP. Every LLM-driven step here has a deterministic fallback; a parse
// failure never surfaces as an error to the caller, only a degraded
// (but defined) result.
package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Fact is one discrete, memorable statement pulled out of raw content.
type Fact struct {
	Content    string   `json:"content"`
	Importance float64  `json:"importance"`
	Confidence float64  `json:"confidence"`
	Tags       []string `json:"tags"`
}

// ExtractFacts asks the LLM to decompose content into a JSON array of
// facts. Parse failure or a nil generator both yield an empty slice, never
// an error — non-fact chatter is expected to produce no facts, and a
// malformed LLM response must degrade the same way.
func ExtractFacts(ctx context.Context, generator llm.TextGenerator, content, persona string) []Fact {
	if generator == nil || content == "" {
		return nil
	}

	raw, err := generator.Complete(ctx, llm.FactExtractionPrompt(content, persona))
	if err != nil {
		log.Printf("extraction: fact extraction call failed: %v", err)
		return nil
	}
	return ParseFacts(raw)
}

// ParseFacts extracts and validates the fact array out of a raw LLM
// response, applying the same malformed-input-yields-empty-slice rule
// ExtractFacts does. Exposed separately so callers that already have a raw
// completion in hand (e.g. one issued through their own rate-limited or
// stage-timed wrapper around TextGenerator) don't need a second round trip
// just to parse it.
func ParseFacts(raw string) []Fact {
	cleaned := llm.ExtractJSONArray(raw)
	var facts []Fact
	if err := json.Unmarshal([]byte(cleaned), &facts); err != nil {
		log.Printf("extraction: fact extraction response was not valid JSON: %v", err)
		return nil
	}

	out := make([]Fact, 0, len(facts))
	for _, f := range facts {
		if f.Content == "" {
			continue
		}
		f.Confidence = types.ClampUnit(f.Confidence)
		f.Importance = types.ClampUnit(f.Importance)
		out = append(out, f)
	}
	return out
}

// DecisionAction is the classification a fact receives against its
// candidate memories.
type DecisionAction string

const (
	ActionAdd    DecisionAction = "ADD"
	ActionUpdate DecisionAction = "UPDATE"
	ActionDelete DecisionAction = "DELETE"
	ActionNoop   DecisionAction = "NOOP"
)

// Candidate is an existing memory considered against a new fact, already
// scored by cosine similarity (internal/vectormath) against the fact's
// embedding.
type Candidate struct {
	ID         types.MemoryId
	Content    string
	Similarity float64
}

// Decision is the engine's classification of a fact against its
// candidates.
type Decision struct {
	Action     DecisionAction
	TargetID   types.MemoryId
	Confidence float64
	Reason     string
}

// decisionResponse is the JSON shape the decision prompt asks for.
type decisionResponse struct {
	Action      string  `json:"action"`
	TargetIndex int     `json:"target_index"`
	Confidence  float64 `json:"confidence"`
	Reason      string  `json:"reason"`
}

// Decide classifies fact against candidates. candidates should already be
// sorted most-recent-first; only the first maxConsideration are ever
// placed in the prompt (a wider set would blow the prompt budget without
// changing the decision a human would make). similarityThreshold drives
// the deterministic fallback used when the LLM is unavailable or its
// response doesn't parse.
func Decide(ctx context.Context, generator llm.TextGenerator, fact Fact, candidates []Candidate, maxConsideration int, similarityThreshold float64) Decision {
	if maxConsideration <= 0 || maxConsideration > len(candidates) {
		maxConsideration = len(candidates)
	}
	considered := candidates[:maxConsideration]

	if generator != nil {
		if d, ok := decideViaLLM(ctx, generator, fact, considered); ok {
			return d
		}
	}
	return decideDeterministic(fact, considered, similarityThreshold)
}

func decideViaLLM(ctx context.Context, generator llm.TextGenerator, fact Fact, candidates []Candidate) (Decision, bool) {
	contents := make([]string, len(candidates))
	for i, c := range candidates {
		contents[i] = c.Content
	}

	raw, err := generator.Complete(ctx, llm.DecisionPrompt(fact.Content, contents))
	if err != nil {
		return Decision{}, false
	}

	cleaned := llm.ExtractJSONObject(raw)
	var resp decisionResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return Decision{}, false
	}

	action := DecisionAction(resp.Action)
	switch action {
	case ActionAdd, ActionNoop:
		return Decision{Action: action, Confidence: types.ClampUnit(resp.Confidence), Reason: resp.Reason}, true
	case ActionUpdate, ActionDelete:
		idx := resp.TargetIndex - 1
		if idx < 0 || idx >= len(candidates) {
			return Decision{}, false
		}
		return Decision{
			Action: action, TargetID: candidates[idx].ID,
			Confidence: types.ClampUnit(resp.Confidence), Reason: resp.Reason,
		}, true
	default:
		return Decision{}, false
	}
}

// decideDeterministic implements the spec's fallback rule: ADD if no
// candidate exceeds the similarity threshold, UPDATE on the
// highest-similarity candidate otherwise.
func decideDeterministic(fact Fact, candidates []Candidate, threshold float64) Decision {
	if len(candidates) == 0 {
		return Decision{Action: ActionAdd, Confidence: 1, Reason: "no candidates"}
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Similarity > best.Similarity {
			best = c
		}
	}

	if best.Similarity < threshold {
		return Decision{Action: ActionAdd, Confidence: 1 - best.Similarity, Reason: "no candidate met similarity threshold"}
	}
	return Decision{
		Action: ActionUpdate, TargetID: best.ID,
		Confidence: best.Similarity,
		Reason:     fmt.Sprintf("highest-similarity candidate (%.2f) exceeds threshold", best.Similarity),
	}
}

// SortCandidatesByRecency orders candidates so the most recently created
// memories are first, matching the "most recent" truncation rule used by
// both Decide and conflict detection (C10).
func SortCandidatesByRecency(memories []*types.Memory) []*types.Memory {
	sorted := make([]*types.Memory, len(memories))
	copy(sorted, memories)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Metadata.CreatedAt.After(sorted[j].Metadata.CreatedAt)
	})
	return sorted
}
