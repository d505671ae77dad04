// Package conflict implements conflict detection and resolution (C10):
// three structural/semantic detectors surface contradictions between a
// batch of new memories and the existing set, and five resolution
// strategies turn a detected conflict into a concrete storage mutation
// (or a manual-review flag).
package conflict

import (
	"time"

	"github.com/scrypster/memento-engine/pkg/types"
)

// Type discriminates which detector raised a Conflict.
type Type string

const (
	TypeSemantic  Type = "semantic"
	TypeTemporal  Type = "temporal"
	TypeDuplicate Type = "duplicate"
)

// Conflict is one detected conflict between two (or more) memories.
type Conflict struct {
	ID                  string
	Type                Type
	MemoryIDs           []types.MemoryId
	Description         string
	Severity            float64
	Confidence          float64
	SuggestedResolution Strategy
	DetectedAt          time.Time
}

// Strategy is a resolution strategy a caller applies to a Conflict.
type Strategy struct {
	Kind          StrategyKind
	MergeStrategy string         // only meaningful for KindMerge
	MergedContent string         // only meaningful for KindMerge
	KeepID        types.MemoryId // only meaningful for KindRemoveDuplicates
}

// StrategyKind enumerates spec §10's five resolution strategies.
type StrategyKind string

const (
	KindKeepLatest            StrategyKind = "KeepLatest"
	KindKeepHighestConfidence StrategyKind = "KeepHighestConfidence"
	KindMerge                 StrategyKind = "Merge"
	KindMarkForManualReview   StrategyKind = "MarkForManualReview"
	KindRemoveDuplicates      StrategyKind = "RemoveDuplicates"
)

// Outcome is the result of applying a Strategy to a Conflict.
type Outcome struct {
	Success        bool
	UpdatedIDs     []types.MemoryId
	DeletedIDs     []types.MemoryId
	RequiresManual bool
	ManualReason   string
	Failed         bool
	Error          string
}

// Config tunes detection thresholds.
type Config struct {
	SemanticSimilarityThreshold float64
	MaxConsiderationMemories    int
	TemporalConflictWindow      time.Duration
	DuplicateSimilarityMin      float64
	DuplicateLengthRatioMin     float64
	DuplicateLengthRatioMax     float64
	AutoResolutionThreshold     float64
}

// DefaultConfig matches spec §10's stated defaults.
func DefaultConfig() Config {
	return Config{
		SemanticSimilarityThreshold: 0.75,
		MaxConsiderationMemories:    50,
		TemporalConflictWindow:      24 * time.Hour,
		DuplicateSimilarityMin:      0.95,
		DuplicateLengthRatioMin:     0.8,
		DuplicateLengthRatioMax:     1.2,
		AutoResolutionThreshold:     0.7,
	}
}
