package conflict

import (
	"context"
	"sort"
	"strconv"

	"github.com/scrypster/memento-engine/internal/extraction"
	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Detector runs all three conflict detectors (semantic, temporal,
// duplicate) over a (new, existing) memory pair set. textGen may be nil,
// in which case semantic detection runs the rule-based fallback
// exclusively.
type Detector struct {
	cfg     Config
	textGen llm.TextGenerator
	breaker *llm.CircuitBreaker
}

// New builds a Detector. Pass nil textGen to run rule-based-only
// semantic detection.
func New(cfg Config, textGen llm.TextGenerator) *Detector {
	d := &Detector{cfg: cfg, textGen: textGen}
	if textGen != nil {
		d.breaker = llm.NewCircuitBreaker()
	}
	return d
}

// Detect runs all three detectors and returns every conflict found,
// sorted by confidence, highest first (ties keep the order the detectors
// ran in: semantic, temporal, duplicate), each stamped with a deterministic ID and
// detection timestamp. existing is capped to cfg.MaxConsiderationMemories
// (most recent) per spec §10.
func (d *Detector) Detect(ctx context.Context, newMemories, existing []*types.Memory, embeddings map[types.MemoryId][]float32) []Conflict {
	capped := extraction.SortCandidatesByRecency(existing)
	if d.cfg.MaxConsiderationMemories > 0 && len(capped) > d.cfg.MaxConsiderationMemories {
		capped = capped[:d.cfg.MaxConsiderationMemories]
	}

	var all []Conflict
	all = append(all, d.detectSemantic(ctx, newMemories, capped, embeddings)...)
	all = append(all, d.detectTemporal(newMemories, capped)...)
	all = append(all, d.detectDuplicate(newMemories, capped, embeddings)...)

	now := nowUTC()
	for i := range all {
		all[i].ID = conflictID(all[i], i)
		all[i].DetectedAt = now
		if all[i].Confidence < d.cfg.AutoResolutionThreshold {
			all[i].SuggestedResolution = Strategy{Kind: KindMarkForManualReview}
		}
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].Confidence > all[j].Confidence })
	return all
}

func conflictID(c Conflict, index int) string {
	ids := ""
	for _, id := range c.MemoryIDs {
		ids += string(id) + ":"
	}
	return string(c.Type) + ":" + ids + strconv.Itoa(index)
}
