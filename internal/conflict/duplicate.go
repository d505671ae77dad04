package conflict

import (
	"unicode/utf8"

	"github.com/scrypster/memento-engine/internal/vectormath"
	"github.com/scrypster/memento-engine/pkg/types"
)

// detectDuplicate implements spec §10's duplicate detector: similarity
// at or above cfg.DuplicateSimilarityMin and a length ratio within
// [DuplicateLengthRatioMin, DuplicateLengthRatioMax] (guards against a
// short substring scoring as a near-duplicate of a much longer memory
// purely on embedding similarity).
func (d *Detector) detectDuplicate(newMemories, existing []*types.Memory, embeddings map[types.MemoryId][]float32) []Conflict {
	var out []Conflict
	for _, nm := range newMemories {
		nmEmb, ok := embeddings[nm.ID]
		if !ok {
			continue
		}
		nmLen := utf8.RuneCountInString(nm.Content.String())
		if nmLen == 0 {
			continue
		}
		for _, em := range existing {
			if nm.ID == em.ID {
				continue
			}
			emEmb, ok := embeddings[em.ID]
			if !ok {
				continue
			}
			sim := vectormath.CosineSimilarity(nmEmb, emEmb)
			if sim < d.cfg.DuplicateSimilarityMin {
				continue
			}
			emLen := utf8.RuneCountInString(em.Content.String())
			if emLen == 0 {
				continue
			}
			ratio := float64(nmLen) / float64(emLen)
			if ratio < d.cfg.DuplicateLengthRatioMin || ratio > d.cfg.DuplicateLengthRatioMax {
				continue
			}
			out = append(out, Conflict{
				Type:                TypeDuplicate,
				MemoryIDs:           []types.MemoryId{nm.ID, em.ID},
				Description:         "near-identical content and length",
				Severity:            0.2,
				Confidence:          sim,
				SuggestedResolution: Strategy{Kind: KindRemoveDuplicates, KeepID: em.ID},
			})
		}
	}
	return out
}
