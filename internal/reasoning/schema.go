package reasoning

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/scrypster/memento-engine/internal/vectormath"
	"github.com/scrypster/memento-engine/pkg/types"
)

// ErrSchemaLimitExceeded is returned by CreateSchema once the store
// already holds cfg.MaxSchemaCount schemas (spec §11's max_schema_count
// validation, E6).
var ErrSchemaLimitExceeded = errors.New("reasoning: schema limit exceeded")

// SchemaStore maintains a set of Schemas and a memory_id -> schema_ids
// index (spec invariant 9: a memory id may appear in at most
// cfg.MaxSchemaCount... schemas, enforced per-schema at CreateSchema
// time, not per-membership — the store does not additionally cap how
// many schemas a single memory id can join).
type SchemaStore struct {
	mu              sync.RWMutex
	cfg             Config
	schemas         map[string]*types.Schema
	memoryToSchemas map[types.MemoryId][]string
	history         []HistoryEntry
}

// NewSchemaStore builds an empty store.
func NewSchemaStore(cfg Config) *SchemaStore {
	return &SchemaStore{
		cfg:             cfg,
		schemas:         make(map[string]*types.Schema),
		memoryToSchemas: make(map[types.MemoryId][]string),
	}
}

// CreateSchema inserts s, enforcing cfg.MaxSchemaCount.
func (s *SchemaStore) CreateSchema(schema *types.Schema) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.schemas) >= s.cfg.MaxSchemaCount {
		return fmt.Errorf("%w: max %d schemas", ErrSchemaLimitExceeded, s.cfg.MaxSchemaCount)
	}
	s.schemas[schema.ID] = schema
	for _, id := range schema.MemoryIDs {
		s.memoryToSchemas[id] = append(s.memoryToSchemas[id], schema.ID)
	}
	s.recordHistory("create", []string{schema.ID}, "schema created")
	return nil
}

// Schema returns a schema by id.
func (s *SchemaStore) Schema(id string) (*types.Schema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	schema, ok := s.schemas[id]
	return schema, ok
}

// All returns every schema in the store (one per id), sorted by id
// (a flat copy, safe for the caller to sort/filter further).
func (s *SchemaStore) All() []*types.Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Schema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		out = append(out, schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UpdateSchemaFromMemories re-extracts id's pattern from the memories
// backing newIDs and bumps its version, per spec §11.
func (s *SchemaStore) UpdateSchemaFromMemories(id string, newIDs []types.MemoryId, memories []*types.Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	schema, ok := s.schemas[id]
	if !ok {
		return fmt.Errorf("reasoning: unknown schema %q", id)
	}
	schema.Pattern = extractPattern(memories)
	schema.MemoryIDs = mergeMemoryIDs(schema.MemoryIDs, newIDs)
	schema.Version++
	schema.UpdatedAt = time.Now().UTC()
	for _, mid := range newIDs {
		s.memoryToSchemas[mid] = appendUnique(s.memoryToSchemas[mid], id)
	}
	s.recordHistory("update", []string{id}, "pattern re-extracted from memories")
	return nil
}

// extractPattern builds a SchemaPattern from a set of memories. Absent
// an LLM-driven extractor, the pattern's core_concept is the first
// memory's content (when non-empty) and typical_examples samples up to
// three distinct memory contents — a lightweight heuristic, not a claim of semantic
// understanding.
func extractPattern(memories []*types.Memory) types.SchemaPattern {
	pattern := types.SchemaPattern{}
	seen := map[string]bool{}
	for i, m := range memories {
		content := m.Content.String()
		if content == "" {
			continue
		}
		if !seen[content] && len(pattern.TypicalExamples) < 3 {
			seen[content] = true
			pattern.TypicalExamples = append(pattern.TypicalExamples, content)
		}
		if i == 0 {
			pattern.CoreConcept = content
		}
	}
	return pattern
}

func mergeMemoryIDs(existing, added []types.MemoryId) []types.MemoryId {
	seen := map[types.MemoryId]bool{}
	var out []types.MemoryId
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range added {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func appendUnique(ids []string, id string) []string {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// EvolveSchemas runs merge, then split, then create (currently a stub
// returning no ops per spec §11), recording a history entry per step
// that produced at least one operation. embeddings backs the split
// step's internal-diversity computation (member-to-member cosine
// similarity) and may be nil, in which case no schema is ever split —
// diversity cannot be judged without vectors.
func (s *SchemaStore) EvolveSchemas(ctx context.Context, embeddings map[types.MemoryId][]float32) []HistoryEntry {
	var steps []HistoryEntry
	steps = append(steps, s.mergeSchemas()...)
	steps = append(steps, s.splitSchemas(embeddings)...)
	steps = append(steps, s.createStub()...)
	return steps
}

// mergeSchemas pairs schemas whose SemanticVector cosine similarity
// clears cfg.MergeThreshold, merging the union of their member ids into
// the lower-ID schema and removing the other.
func (s *SchemaStore) mergeSchemas() []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*types.Schema, 0, len(s.schemas))
	for _, schema := range s.schemas {
		all = append(all, schema)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	var history []HistoryEntry
	merged := map[string]bool{}
	for i := 0; i < len(all); i++ {
		if merged[all[i].ID] {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if merged[all[j].ID] {
				continue
			}
			if len(all[i].Pattern.SemanticVector) == 0 || len(all[j].Pattern.SemanticVector) == 0 {
				continue
			}
			sim := vectormath.CosineSimilarity(all[i].Pattern.SemanticVector, all[j].Pattern.SemanticVector)
			if sim < s.cfg.MergeThreshold {
				continue
			}
			all[i].MemoryIDs = mergeMemoryIDs(all[i].MemoryIDs, all[j].MemoryIDs)
			all[i].Version++
			all[i].UpdatedAt = time.Now().UTC()
			for _, mid := range all[j].MemoryIDs {
				s.memoryToSchemas[mid] = appendUnique(s.memoryToSchemas[mid], all[i].ID)
			}
			delete(s.schemas, all[j].ID)
			merged[all[j].ID] = true
			history = append(history, HistoryEntry{
				Operation: "merge",
				SchemaIDs: []string{all[i].ID, all[j].ID},
				At:        time.Now().UTC(),
				Detail:    fmt.Sprintf("merged %s into %s at similarity %.3f", all[j].ID, all[i].ID, sim),
			})
		}
	}
	s.history = append(s.history, history...)
	return history
}

// splitSchemas flags large schemas whose internal diversity (1 minus the
// mean pairwise cosine similarity among members' embeddings) falls
// below cfg.SplitThreshold — the members are too uniform to justify
// staying lumped together once there are enough of them to meaningfully
// subdivide — by halving their member set into two new schema stubs.
// Schemas with fewer than 4 members, or fewer than 2 members with known
// embeddings, are never split (diversity can't be judged otherwise).
func (s *SchemaStore) splitSchemas(embeddings map[types.MemoryId][]float32) []HistoryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []HistoryEntry
	for id, schema := range s.schemas {
		if len(schema.MemoryIDs) < 4 {
			continue
		}
		diversity, ok := internalDiversity(schema.MemoryIDs, embeddings)
		if !ok || diversity >= s.cfg.SplitThreshold {
			continue
		}
		mid := len(schema.MemoryIDs) / 2
		left, right := schema.MemoryIDs[:mid], schema.MemoryIDs[mid:]

		newID := id + "-split"
		newSchema := &types.Schema{
			ID:          newID,
			Name:        schema.Name + " (split)",
			Description: schema.Description,
			Pattern:     schema.Pattern,
			MemoryIDs:   right,
			Version:     1,
			CreatedAt:   time.Now().UTC(),
			UpdatedAt:   time.Now().UTC(),
		}
		schema.MemoryIDs = left
		schema.Version++
		schema.UpdatedAt = time.Now().UTC()
		s.schemas[newID] = newSchema
		for _, mid := range right {
			s.memoryToSchemas[mid] = appendUnique(s.memoryToSchemas[mid], newID)
		}

		history = append(history, HistoryEntry{
			Operation: "split",
			SchemaIDs: []string{id, newID},
			At:        time.Now().UTC(),
			Detail:    fmt.Sprintf("split %s into %s and %s", id, id, newID),
		})
	}
	s.history = append(s.history, history...)
	return history
}

// internalDiversity returns 1 minus the mean pairwise cosine similarity
// among memberIDs' known embeddings. ok is false when fewer than two
// members have a known embedding, since diversity is undefined for a
// single point.
func internalDiversity(memberIDs []types.MemoryId, embeddings map[types.MemoryId][]float32) (float64, bool) {
	var vectors [][]float32
	for _, id := range memberIDs {
		if v, ok := embeddings[id]; ok {
			vectors = append(vectors, v)
		}
	}
	if len(vectors) < 2 {
		return 0, false
	}
	var total float64
	var pairs int
	for i := 0; i < len(vectors); i++ {
		for j := i + 1; j < len(vectors); j++ {
			total += vectormath.CosineSimilarity(vectors[i], vectors[j])
			pairs++
		}
	}
	if pairs == 0 {
		return 0, false
	}
	return 1.0 - total/float64(pairs), true
}

// createStub is the spec-mandated no-op third evolution step.
func (s *SchemaStore) createStub() []HistoryEntry {
	return nil
}

// History returns every recorded evolution step, oldest first.
func (s *SchemaStore) History() []HistoryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]HistoryEntry{}, s.history...)
}

func (s *SchemaStore) recordHistory(op string, ids []string, detail string) {
	s.history = append(s.history, HistoryEntry{Operation: op, SchemaIDs: ids, At: time.Now().UTC(), Detail: detail})
}
