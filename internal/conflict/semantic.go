package conflict

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/vectormath"
	"github.com/scrypster/memento-engine/pkg/types"
)

const semanticDetectionTimeout = 20 * time.Second

// conflictLLMResponse mirrors llm.ConflictDetectionPrompt's strict JSON
// schema. Severity arrives as a low/medium/high label; severityValue
// converts it to the 0..1 scale the rest of the package uses.
type conflictLLMResponse struct {
	HasConflict bool   `json:"has_conflict"`
	Severity    string `json:"severity"`
	Explanation string `json:"explanation"`
}

func severityValue(label string) float64 {
	switch label {
	case "high":
		return 0.9
	case "medium":
		return 0.6
	default:
		return 0.3
	}
}

// detectSemantic implements spec §10's semantic detector: for every pair
// of (new, existing) memories whose embedding similarity clears
// cfg.SemanticSimilarityThreshold, prompt the LLM with the strict
// has_conflict/severity/explanation schema; a parse failure (or no
// generator configured) falls back to the deterministic rule-based
// detector instead of dropping the pair silently.
func (d *Detector) detectSemantic(ctx context.Context, newMemories, existing []*types.Memory, embeddings map[types.MemoryId][]float32) []Conflict {
	var out []Conflict
	for _, nm := range newMemories {
		nmEmb, ok := embeddings[nm.ID]
		if !ok {
			continue
		}
		for _, em := range existing {
			emEmb, ok := embeddings[em.ID]
			if !ok {
				continue
			}
			sim := vectormath.CosineSimilarity(nmEmb, emEmb)
			if sim < d.cfg.SemanticSimilarityThreshold {
				continue
			}
			if c, ok := d.semanticPair(ctx, nm, em); ok {
				out = append(out, c)
			}
		}
	}
	return out
}

func (d *Detector) semanticPair(ctx context.Context, a, b *types.Memory) (Conflict, bool) {
	contentA, contentB := a.Content.String(), b.Content.String()

	hasConflict, severity, explanation, ok := d.llmConflict(ctx, contentA, contentB)
	if !ok {
		var ruleHas bool
		ruleHas, severity, explanation = ruleBasedConflict(contentA, contentB)
		hasConflict = ruleHas
	}
	if !hasConflict {
		return Conflict{}, false
	}

	confidence := severity
	strategy := Strategy{Kind: KindMarkForManualReview}
	if confidence >= d.cfg.AutoResolutionThreshold {
		strategy = Strategy{Kind: KindKeepLatest}
	}

	return Conflict{
		Type:                TypeSemantic,
		MemoryIDs:           []types.MemoryId{a.ID, b.ID},
		Description:         explanation,
		Severity:            severity,
		Confidence:          confidence,
		SuggestedResolution: strategy,
	}, true
}

// llmConflict runs the LLM-backed check through the circuit breaker.
// Returns ok=false on any failure (no generator, timeout, breaker open,
// malformed JSON) so the caller falls back to rule-based detection.
func (d *Detector) llmConflict(ctx context.Context, a, b string) (hasConflict bool, severity float64, explanation string, ok bool) {
	if d.textGen == nil {
		return false, 0, "", false
	}
	stageCtx, cancel := context.WithTimeout(ctx, semanticDetectionTimeout)
	defer cancel()

	raw, err := d.complete(stageCtx, llm.ConflictDetectionPrompt(a, b))
	if err != nil {
		log.Printf("conflict: semantic detection call failed, falling back to rules: %v", err)
		return false, 0, "", false
	}

	cleaned := llm.ExtractJSONObject(raw)
	var parsed conflictLLMResponse
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		log.Printf("conflict: semantic detection response was not valid JSON, falling back to rules: %v", err)
		return false, 0, "", false
	}
	return parsed.HasConflict, severityValue(parsed.Severity), parsed.Explanation, true
}

func (d *Detector) complete(ctx context.Context, prompt string) (string, error) {
	if d.breaker == nil {
		return d.textGen.Complete(ctx, prompt)
	}
	result, err := d.breaker.Execute(ctx, func() (interface{}, error) {
		return d.textGen.Complete(ctx, prompt)
	})
	if err != nil {
		return "", err
	}
	out, _ := result.(string)
	return out, nil
}
