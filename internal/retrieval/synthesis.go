package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/scrypster/memento-engine/internal/llm"
)

// synthesize implements C9.3: combine the top-k retrieved memories into
// one unified context string. With a text generator configured it asks
// the LLM to reconcile cross-source conflicts; otherwise it falls back to
// a deterministic most-recent-first concatenation, matching the
// "most-recent, highest-confidence, or LLM-reconciled" resolution menu
// spec §9 names.
func (r *Retriever) synthesize(ctx context.Context, req Request, topK []RetrievedMemory) *SynthesisResult {
	if len(topK) == 0 {
		return nil
	}

	if r.textGen != nil {
		contents := make([]string, 0, len(topK))
		for _, rm := range topK {
			contents = append(contents, rm.Memory.Content.String())
		}
		if out, ok := r.complete(ctx, synthesisTimeout, llm.SynthesisPrompt(req.Query, contents)); ok && strings.TrimSpace(out) != "" {
			return &SynthesisResult{
				Context:          strings.TrimSpace(out),
				ConfidenceScore:  meanRelevance(topK),
				ResolutionMethod: "llm-reconciled",
			}
		}
	}

	ordered := append([]RetrievedMemory{}, topK...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Memory.Metadata.CreatedAt.After(ordered[j].Memory.Metadata.CreatedAt)
	})
	var b strings.Builder
	for i, rm := range ordered {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(rm.Memory.Content.String())
	}
	return &SynthesisResult{
		Context:          b.String(),
		ConfidenceScore:  meanRelevance(topK),
		ResolutionMethod: "most-recent",
	}
}

func meanRelevance(items []RetrievedMemory) float64 {
	if len(items) == 0 {
		return 0
	}
	sum := 0.0
	for _, rm := range items {
		sum += rm.Relevance
	}
	return sum / float64(len(items))
}
