package conflict

import "github.com/scrypster/memento-engine/pkg/types"

// detectTemporal implements spec §10's temporal detector: pairs created
// within cfg.TemporalConflictWindow of each other whose content both
// carry overlapping time keywords (already classified "overlapping" by
// simple co-occurrence — the spec does not call for a calendar parser
// here, only keyword presence).
func (d *Detector) detectTemporal(newMemories, existing []*types.Memory) []Conflict {
	var out []Conflict
	for _, nm := range newMemories {
		for _, em := range existing {
			if nm.ID == em.ID {
				continue
			}
			delta := nm.Metadata.CreatedAt.Sub(em.Metadata.CreatedAt)
			if delta < 0 {
				delta = -delta
			}
			if delta > d.cfg.TemporalConflictWindow {
				continue
			}
			contentA, contentB := nm.Content.String(), em.Content.String()
			if !hasTemporalKeyword(contentA) || !hasTemporalKeyword(contentB) {
				continue
			}
			out = append(out, Conflict{
				Type:                TypeTemporal,
				MemoryIDs:           []types.MemoryId{nm.ID, em.ID},
				Description:         "memories created close together both reference overlapping time periods",
				Severity:            0.4,
				Confidence:          0.5,
				SuggestedResolution: Strategy{Kind: KindMarkForManualReview},
			})
		}
	}
	return out
}
