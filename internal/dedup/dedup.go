// Package dedup implements the deduplicator (C6): before a new memory is
// committed, it is checked against recently-created memories in the same
// scope and either merged into an existing one, suppressed outright, or
// let through unchanged.
package dedup

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/scrypster/memento-engine/internal/vectormath"
	"github.com/scrypster/memento-engine/pkg/types"
)

// AttrMergeHistory records the content superseded by an intelligent
// merge, as a JSON array of strings, oldest first. Populated only when
// Config.PreserveHistory is set.
var AttrMergeHistory = types.AttributeKey{Namespace: types.NamespaceCustom, Name: "merge_history"}

// Config mirrors the teacher's "one struct of tunables per stateless
// algorithm" shape (see internal/engine/decay.go's DecayConfig).
type Config struct {
	SimilarityThreshold    float64
	TimeWindow             time.Duration
	BatchSize              int
	EnableIntelligentMerge bool
	PreserveHistory        bool
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:    0.85,
		TimeWindow:             24 * time.Hour,
		BatchSize:              20,
		EnableIntelligentMerge: true,
		PreserveHistory:        true,
	}
}

// Outcome describes what a dedup check decided to do with a new memory.
type Outcome struct {
	// Action is one of "keep", "suppress", "merge".
	Action string
	// ExistingID is set for "suppress" and "merge".
	ExistingID types.MemoryId
	// MergedContent is set for "merge": the content the existing memory
	// should be updated to.
	MergedContent string
}

// Deduplicator scans a bounded window of recent, same-scope memories for
// near-duplicates of an incoming one.
type Deduplicator struct {
	cfg Config
}

func New(cfg Config) *Deduplicator { return &Deduplicator{cfg: cfg} }

// Check compares newMemory (with its already-computed embedding) against
// existing memories and their embeddings (keyed by ID). Only existing
// memories within the configured time window of newMemory's creation are
// considered; callers should pre-filter to "same scope"
// (org/user/agent/session) before calling, mirroring the spec's "scans
// existing memories in the same scope" wording.
func (d *Deduplicator) Check(newMemory *types.Memory, newEmbedding []float32, existing []*types.Memory, embeddings map[types.MemoryId][]float32) Outcome {
	windowStart := newMemory.Metadata.CreatedAt.Add(-d.cfg.TimeWindow)

	batch := existing
	if d.cfg.BatchSize > 0 && len(batch) > d.cfg.BatchSize {
		batch = batch[:d.cfg.BatchSize]
	}

	var best *types.Memory
	var bestSim float64
	for _, m := range batch {
		if m.Metadata.CreatedAt.Before(windowStart) {
			continue
		}
		sim := vectormath.CosineSimilarity(newEmbedding, embeddings[m.ID])
		if sim >= d.cfg.SimilarityThreshold && sim > bestSim {
			best, bestSim = m, sim
		}
	}

	if best == nil {
		return Outcome{Action: "keep"}
	}

	if !d.cfg.EnableIntelligentMerge {
		return Outcome{Action: "suppress", ExistingID: best.ID}
	}

	return Outcome{
		Action:        "merge",
		ExistingID:    best.ID,
		MergedContent: Merge(best.Content.String(), newMemory.Content.String()),
	}
}

// Merge concatenates the unique information in a and b. It is idempotent:
// Merge(Merge(a, b), b) == Merge(a, b), since any sentence from b already
// present in the merged result is not appended again. Order is
// deterministic: a's sentences first (in their original order), then any
// of b's sentences not already present.
func Merge(a, b string) string {
	existing := splitSentences(a)
	seen := make(map[string]bool, len(existing))
	for _, s := range existing {
		seen[normalize(s)] = true
	}

	merged := make([]string, len(existing))
	copy(merged, existing)

	for _, s := range splitSentences(b) {
		key := normalize(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, s)
	}

	return strings.Join(merged, " ")
}

func splitSentences(s string) []string {
	raw := strings.FieldsFunc(s, func(r rune) bool { return r == '.' || r == '\n' })
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r+".")
		}
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimSuffix(s, ".")))
}

// RecordHistory appends the superseded content to m's merge-history
// attribute when history preservation is enabled.
func (d *Deduplicator) RecordHistory(m *types.Memory, supersededContent string) {
	if !d.cfg.PreserveHistory {
		return
	}
	var history []string
	if v, ok := m.Attributes.Get(AttrMergeHistory); ok {
		_ = json.Unmarshal([]byte(v.AsString()), &history)
	}
	history = append(history, supersededContent)
	encoded, err := json.Marshal(history)
	if err != nil {
		return
	}
	m.Attributes = m.Attributes.Set(AttrMergeHistory, types.StringValue(string(encoded)))
}
