// Package scoring recalculates a memory's core:score attribute from
// recency, access frequency, and importance — a composite distinct from
// the importance value an agent or extractor assigns at write time.
package scoring

import (
	"context"
	"math"
	"time"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// recencyHalfLifeDays is the number of days recencyFactor takes to halve
// without a fresh access or update.
const recencyHalfLifeDays = 60.0

// Weights controls how the four factors combine into an overall score.
// The zero value is not usable; call DefaultWeights.
type Weights struct {
	Importance float64
	Recency    float64
	Access     float64
	Base       float64
}

// DefaultWeights mirrors the teacher's entity/relationship/source/age
// four-factor split (ConfidenceScorer.CalculateMemoryConfidence),
// re-weighted onto this domain's available signals: importance
// (author-assigned), recency (half-life decay, the teacher's
// ComputeDecayScore formula), access frequency, and a flat base so a
// brand-new, never-touched memory still scores above 0.
func DefaultWeights() Weights {
	return Weights{Importance: 0.4, Recency: 0.3, Access: 0.2, Base: 0.1}
}

// Scorer recomputes and persists core:score for memories via a
// MemoryRepository.
type Scorer struct {
	memories storage.MemoryRepository
	weights  Weights
}

// New builds a Scorer over repo using DefaultWeights.
func New(repo storage.MemoryRepository) *Scorer {
	return &Scorer{memories: repo, weights: DefaultWeights()}
}

// NewWithWeights builds a Scorer with caller-supplied weights.
func NewWithWeights(repo storage.MemoryRepository, w Weights) *Scorer {
	return &Scorer{memories: repo, weights: w}
}

// Components is the per-factor breakdown behind an overall score, kept
// around for callers that want to explain a score rather than just use it.
type Components struct {
	Overall    float64
	Importance float64
	Recency    float64
	Access     float64
}

// Calculate computes m's composite score without persisting it.
func (s *Scorer) Calculate(memory *types.Memory) Components {
	c := Components{
		Importance: importanceFactor(memory),
		Recency:    recencyFactor(memory),
		Access:     accessFactor(memory),
	}
	w := s.weights
	c.Overall = types.ClampUnit(
		c.Importance*w.Importance + c.Recency*w.Recency + c.Access*w.Access + w.Base,
	)
	return c
}

func importanceFactor(m *types.Memory) float64 {
	v, ok := m.Attributes.Get(types.AttrImportance)
	if !ok || v.Kind != types.AttrValNumber {
		return 0.5
	}
	return types.ClampUnit(v.Num)
}

// recencyFactor applies exponential half-life decay since the memory was
// last updated: recencyHalfLifeDays without a touch halves the factor.
func recencyFactor(m *types.Memory) float64 {
	daysSince := time.Since(m.Metadata.UpdatedAt).Hours() / 24.0
	return types.ClampUnit(math.Pow(2, -daysSince/recencyHalfLifeDays))
}

// accessFactor rewards memories that keep getting retrieved, up to a cap
// so a handful of early accesses doesn't saturate the score forever.
func accessFactor(m *types.Memory) float64 {
	return types.ClampUnit(float64(m.Metadata.AccessCount) * 0.05)
}

// Update recalculates memoryID's score, writes it back to core:score, and
// persists the memory.
func (s *Scorer) Update(ctx context.Context, memoryID types.MemoryId) (Components, error) {
	memory, err := s.memories.FindByID(ctx, memoryID)
	if err != nil {
		return Components{}, err
	}
	c := s.Calculate(memory)
	memory.Attributes = memory.Attributes.Set(types.AttrScore, types.NumberValue(c.Overall))
	if err := s.memories.Update(ctx, memory); err != nil {
		return Components{}, err
	}
	return c, nil
}

// BatchUpdate recalculates scores for every id in ids, skipping (not
// aborting on) individual failures, and returns how many succeeded.
func (s *Scorer) BatchUpdate(ctx context.Context, ids []types.MemoryId) (int, error) {
	updated := 0
	for _, id := range ids {
		if _, err := s.Update(ctx, id); err != nil {
			continue
		}
		updated++
	}
	return updated, nil
}
