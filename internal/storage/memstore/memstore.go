// Package memstore is the in-process storage adapter, constructed with
// New (no storage URL is parsed to select it). It backs tests and edge
// deployments that want the full storage.Backend contract without a
// database file. It is grounded on the teacher's test-only in-memory
// fakes, promoted here to a first-class adapter.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Store is the in-memory implementation of storage.Backend. All access
// is guarded by a single RWMutex; no lock is ever held across a suspend
// point because every operation here is pure CPU work.
type Store struct {
	mu sync.RWMutex

	memories     map[types.MemoryId]*types.Memory
	agents       map[string]*types.Agent
	messages     map[string]*types.Message
	associations map[string]*types.Association
	embeddings   map[string]embeddingEntry
	working      map[string][]storage.WorkingMemoryItem // session -> items
	feedback     []storage.LearningFeedback
}

type embeddingEntry struct {
	vector    []float32
	dimension int
	model     string
}

// New constructs an empty in-memory Backend.
func New() *Store {
	return &Store{
		memories:     map[types.MemoryId]*types.Memory{},
		agents:       map[string]*types.Agent{},
		messages:     map[string]*types.Message{},
		associations: map[string]*types.Association{},
		embeddings:   map[string]embeddingEntry{},
		working:      map[string][]storage.WorkingMemoryItem{},
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) Memories() storage.MemoryRepository         { return (*memoryRepo)(s) }
func (s *Store) Agents() storage.AgentRepository             { return (*agentRepo)(s) }
func (s *Store) Messages() storage.MessageRepository         { return (*messageRepo)(s) }
func (s *Store) Associations() storage.AssociationRepository { return (*assocRepo)(s) }
func (s *Store) WorkingMemory() storage.WorkingMemoryStore   { return (*workingRepo)(s) }
func (s *Store) LearningFeedback() storage.LearningFeedbackStore { return (*feedbackRepo)(s) }
func (s *Store) Embeddings() storage.EmbeddingProvider       { return (*embeddingRepo)(s) }
func (s *Store) Graph() storage.GraphProvider                { return (*graphRepo)(s) }

func (s *Store) TypedStore(memoryType types.MemoryType) storage.TypedMemoryStore {
	return &typedStore{s: s, memoryType: memoryType}
}

// --- MemoryRepository ---

type memoryRepo Store

func (r *memoryRepo) s() *Store { return (*Store)(r) }

func (r *memoryRepo) Create(ctx context.Context, m *types.Memory) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = types.MemoryId(uuid.New().String())
	}
	cp := *m
	s.memories[m.ID] = &cp
	return nil
}

func (r *memoryRepo) FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memories[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *memoryRepo) FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Memory, error) {
	return r.filterAndLimit(limit, func(m *types.Memory) bool {
		return m.Attributes.GetString(types.AttrAgentID) == agentID
	})
}

func (r *memoryRepo) FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Memory, error) {
	return r.filterAndLimit(limit, func(m *types.Memory) bool {
		return m.Attributes.GetString(types.AttrUserID) == userID
	})
}

func (r *memoryRepo) filterAndLimit(limit int, pred func(*types.Memory) bool) ([]*types.Memory, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Memory
	for _, m := range sortedByCreatedAt(s.memories) {
		if m.IsDeleted() || !pred(m) {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memoryRepo) Search(ctx context.Context, text string, limit int) ([]*types.Memory, error) {
	text = strings.ToLower(text)
	return r.filterAndLimit(limit, func(m *types.Memory) bool {
		return strings.Contains(strings.ToLower(m.Content.String()), text)
	})
}

func (r *memoryRepo) Update(ctx context.Context, m *types.Memory) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.memories[m.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *m
	s.memories[m.ID] = &cp
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id types.MemoryId) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memories[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.SoftDelete(time.Now().UTC())
	return nil
}

func (r *memoryRepo) DeleteByAgentID(ctx context.Context, agentID string) (int, error) {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	now := time.Now().UTC()
	for _, m := range s.memories {
		if m.Attributes.GetString(types.AttrAgentID) == agentID && !m.IsDeleted() {
			m.SoftDelete(now)
			n++
		}
	}
	return n, nil
}

func (r *memoryRepo) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	opts.Normalize()
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*types.Memory
	for _, m := range sortedByCreatedAt(s.memories) {
		if !opts.IncludeDeleted && m.IsDeleted() {
			continue
		}
		if opts.OnlyDeleted && !m.IsDeleted() {
			continue
		}
		if opts.MemoryType != "" && string(m.MemoryType()) != opts.MemoryType {
			continue
		}
		if opts.OrgID != "" && m.Attributes.GetString(types.AttrOrganizationID) != opts.OrgID {
			continue
		}
		if opts.UserID != "" && m.Attributes.GetString(types.AttrUserID) != opts.UserID {
			continue
		}
		if opts.AgentID != "" && m.Attributes.GetString(types.AttrAgentID) != opts.AgentID {
			continue
		}
		if opts.SessionID != "" && m.Attributes.GetString(types.AttrSessionID) != opts.SessionID {
			continue
		}
		cp := *m
		matched = append(matched, &cp)
	}

	total := len(matched)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	return &storage.PaginatedResult[*types.Memory]{
		Items:    matched[start:end],
		Total:    total,
		Page:     opts.Page,
		PageSize: opts.Limit,
		HasMore:  end < total,
	}, nil
}

func sortedByCreatedAt(m map[types.MemoryId]*types.Memory) []*types.Memory {
	out := make([]*types.Memory, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Metadata.CreatedAt.Before(out[j].Metadata.CreatedAt) })
	return out
}

// --- AgentRepository ---

type agentRepo Store

func (r *agentRepo) s() *Store { return (*Store)(r) }

func (r *agentRepo) Create(ctx context.Context, a *types.Agent) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (r *agentRepo) FindByID(ctx context.Context, id string) (*types.Agent, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.agents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *agentRepo) Update(ctx context.Context, a *types.Agent) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.agents[a.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *a
	s.agents[a.ID] = &cp
	return nil
}

func (r *agentRepo) Delete(ctx context.Context, id string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.agents[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.IsDeleted = true
	return nil
}

func (r *agentRepo) FindByOrganizationID(ctx context.Context, orgID string, limit int) ([]*types.Agent, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Agent
	for _, a := range s.agents {
		if a.OrgID == orgID && !a.IsDeleted {
			cp := *a
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *agentRepo) List(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Agent], error) {
	opts.Normalize()
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var all []*types.Agent
	for _, a := range s.agents {
		if a.IsDeleted && !opts.IncludeDeleted {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	total := len(all)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return &storage.PaginatedResult[*types.Agent]{Items: all[start:end], Total: total, Page: opts.Page, PageSize: opts.Limit, HasMore: end < total}, nil
}

// --- MessageRepository ---

type messageRepo Store

func (r *messageRepo) s() *Store { return (*Store)(r) }

func (r *messageRepo) Create(ctx context.Context, msg *types.Message) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (r *messageRepo) FindByID(ctx context.Context, id string) (*types.Message, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *messageRepo) Update(ctx context.Context, msg *types.Message) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[msg.ID]; !ok {
		return storage.ErrNotFound
	}
	cp := *msg
	s.messages[msg.ID] = &cp
	return nil
}

func (r *messageRepo) Delete(ctx context.Context, id string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return storage.ErrNotFound
	}
	m.IsDeleted = true
	return nil
}

func (r *messageRepo) FindByAgentID(ctx context.Context, agentID string, limit int) ([]*types.Message, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Message
	for _, m := range s.messages {
		if m.AgentID == agentID && !m.IsDeleted {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *messageRepo) FindByUserID(ctx context.Context, userID string, limit int) ([]*types.Message, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Message
	for _, m := range s.messages {
		if m.UserID == userID && !m.IsDeleted {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *messageRepo) DeleteByAgentID(ctx context.Context, agentID string) (int, error) {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.messages {
		if m.AgentID == agentID && !m.IsDeleted {
			m.IsDeleted = true
			n++
		}
	}
	return n, nil
}

// --- AssociationRepository ---

type assocRepo Store

func (r *assocRepo) s() *Store { return (*Store)(r) }

func (r *assocRepo) Create(ctx context.Context, a *types.Association) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	cp := *a
	s.associations[a.ID] = &cp
	return nil
}

func (r *assocRepo) FindByID(ctx context.Context, id string) (*types.Association, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.associations[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *assocRepo) FindByMemoryID(ctx context.Context, memoryID types.MemoryId) ([]*types.Association, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Association
	for _, a := range s.associations {
		if a.FromMemoryID == memoryID || a.ToMemoryID == memoryID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *assocRepo) FindByType(ctx context.Context, associationType string, limit int) ([]*types.Association, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*types.Association
	for _, a := range s.associations {
		if a.AssociationType == associationType {
			cp := *a
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

func (r *assocRepo) UpdateStrength(ctx context.Context, id string, strength float64) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.associations[id]
	if !ok {
		return storage.ErrNotFound
	}
	a.Strength = types.ClampUnit(strength)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *assocRepo) Delete(ctx context.Context, id string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.associations[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.associations, id)
	return nil
}

func (r *assocRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.associations {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (r *assocRepo) CountByType(ctx context.Context, associationType string) (int, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, a := range s.associations {
		if a.AssociationType == associationType {
			n++
		}
	}
	return n, nil
}

func (r *assocRepo) AvgStrength(ctx context.Context, userID string) (float64, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var sum float64
	var n int
	for _, a := range s.associations {
		if a.UserID == userID {
			sum += a.Strength
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return sum / float64(n), nil
}

func (r *assocRepo) FindStrongest(ctx context.Context, limit int) ([]*types.Association, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]*types.Association, 0, len(s.associations))
	for _, a := range s.associations {
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Strength > all[j].Strength })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// --- TypedMemoryStore ---

type typedStore struct {
	s          *Store
	memoryType types.MemoryType
}

func (t *typedStore) Create(ctx context.Context, m *types.Memory) error {
	m.Attributes.Set(types.AttrMemoryType, types.StringValue(string(t.memoryType)))
	return (*memoryRepo)(t.s).Create(ctx, m)
}

func (t *typedStore) FindByID(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	m, err := (*memoryRepo)(t.s).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.MemoryType() != t.memoryType {
		return nil, storage.ErrNotFound
	}
	return m, nil
}

func (t *typedStore) Update(ctx context.Context, m *types.Memory) error {
	return (*memoryRepo)(t.s).Update(ctx, m)
}

func (t *typedStore) Delete(ctx context.Context, id types.MemoryId) error {
	return (*memoryRepo)(t.s).Delete(ctx, id)
}

func (t *typedStore) Query(ctx context.Context, filter storage.TypedMemoryFilter) ([]*types.Memory, error) {
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	var out []*types.Memory
	for _, m := range sortedByCreatedAt(t.s.memories) {
		if m.IsDeleted() || m.MemoryType() != t.memoryType {
			continue
		}
		if filter.Category != "" && m.Attributes.GetString(types.AttributeKey{Namespace: types.NamespaceCustom, Name: "category"}) != filter.Category {
			continue
		}
		if filter.Skill != "" && m.Attributes.GetString(types.AttributeKey{Namespace: types.NamespaceCustom, Name: "skill"}) != filter.Skill {
			continue
		}
		if !filter.Since.IsZero() && m.Metadata.CreatedAt.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && m.Metadata.CreatedAt.After(filter.Until) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// --- WorkingMemoryStore ---

type workingRepo Store

func (r *workingRepo) s() *Store { return (*Store)(r) }

func (r *workingRepo) Put(ctx context.Context, sessionID string, item storage.WorkingMemoryItem, ttl time.Duration) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.SessionID = sessionID
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.ExpiresAt = item.CreatedAt.Add(ttl)
	s.working[sessionID] = append(s.working[sessionID], item)
	return nil
}

func (r *workingRepo) Get(ctx context.Context, sessionID string) ([]storage.WorkingMemoryItem, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := time.Now().UTC()
	var out []storage.WorkingMemoryItem
	for _, item := range s.working[sessionID] {
		if item.ExpiresAt.After(now) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (r *workingRepo) Delete(ctx context.Context, sessionID string, itemID string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	items := s.working[sessionID]
	for i, item := range items {
		if item.ID == itemID {
			s.working[sessionID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return storage.ErrNotFound
}

func (r *workingRepo) Clear(ctx context.Context, sessionID string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.working, sessionID)
	return nil
}

func (r *workingRepo) CleanupExpired(ctx context.Context) (int, error) {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	removed := 0
	for session, items := range s.working {
		var kept []storage.WorkingMemoryItem
		for _, item := range items {
			if item.ExpiresAt.After(now) {
				kept = append(kept, item)
			} else {
				removed++
			}
		}
		s.working[session] = kept
	}
	return removed, nil
}

// --- LearningFeedbackStore ---

type feedbackRepo Store

func (r *feedbackRepo) s() *Store { return (*Store)(r) }

func (r *feedbackRepo) Append(ctx context.Context, fb storage.LearningFeedback) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if fb.ID == "" {
		fb.ID = uuid.New().String()
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	s.feedback = append(s.feedback, fb)
	return nil
}

func (r *feedbackRepo) Recent(ctx context.Context, since time.Time) ([]storage.LearningFeedback, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []storage.LearningFeedback
	for _, fb := range s.feedback {
		if fb.CreatedAt.After(since) {
			out = append(out, fb)
		}
	}
	return out, nil
}

// --- EmbeddingProvider ---

type embeddingRepo Store

func (r *embeddingRepo) s() *Store { return (*Store)(r) }

func (r *embeddingRepo) StoreEmbedding(ctx context.Context, memoryID string, embedding []float32, dimension int, model string) error {
	if memoryID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if len(embedding) != dimension {
		return fmt.Errorf("%w: embedding length (%d) does not match dimension (%d)", storage.ErrInvalidInput, len(embedding), dimension)
	}
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	vec := make([]float32, len(embedding))
	copy(vec, embedding)
	s.embeddings[memoryID] = embeddingEntry{vector: vec, dimension: dimension, model: model}
	return nil
}

func (r *embeddingRepo) GetEmbedding(ctx context.Context, memoryID string) ([]float32, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.embeddings[memoryID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	out := make([]float32, len(e.vector))
	copy(out, e.vector)
	return out, nil
}

func (r *embeddingRepo) DeleteEmbedding(ctx context.Context, memoryID string) error {
	s := r.s()
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.embeddings[memoryID]; !ok {
		return storage.ErrNotFound
	}
	delete(s.embeddings, memoryID)
	return nil
}

func (r *embeddingRepo) GetDimension(ctx context.Context, model string) (int, error) {
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.embeddings {
		if e.model == model {
			return e.dimension, nil
		}
	}
	return 0, storage.ErrNotFound
}

// --- GraphProvider ---

type graphRepo Store

func (r *graphRepo) s() *Store { return (*Store)(r) }

func (r *graphRepo) Traverse(ctx context.Context, startID types.MemoryId, bounds storage.GraphBounds) (*storage.GraphResult, error) {
	bounds.Normalize()
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()

	visited := map[types.MemoryId]bool{startID: true}
	frontier := []types.MemoryId{startID}
	result := &storage.GraphResult{Nodes: []string{string(startID)}}

	for hop := 0; hop < bounds.MaxHops && len(result.Nodes) < bounds.MaxNodes; hop++ {
		var next []types.MemoryId
		for _, id := range frontier {
			for _, a := range s.associations {
				if len(result.Edges) >= bounds.MaxEdges {
					result.BoundsReached = append(result.BoundsReached, "max_edges")
					return result, nil
				}
				var neighbor types.MemoryId
				if a.FromMemoryID == id {
					neighbor = a.ToMemoryID
				} else if a.ToMemoryID == id {
					neighbor = a.FromMemoryID
				} else {
					continue
				}
				result.Edges = append(result.Edges, storage.GraphEdge{From: string(id), To: string(neighbor), RelationType: a.AssociationType, Weight: a.Strength})
				if !visited[neighbor] {
					visited[neighbor] = true
					next = append(next, neighbor)
					result.Nodes = append(result.Nodes, string(neighbor))
					if len(result.Nodes) >= bounds.MaxNodes {
						result.BoundsReached = append(result.BoundsReached, "max_nodes")
						return result, nil
					}
				}
			}
		}
		if len(next) == 0 {
			break
		}
		frontier = next
	}

	return result, nil
}

func (r *graphRepo) FindPath(ctx context.Context, startID, endID types.MemoryId, bounds storage.GraphBounds) ([]types.MemoryId, error) {
	bounds.Normalize()
	s := r.s()
	s.mu.RLock()
	defer s.mu.RUnlock()

	type node struct {
		id   types.MemoryId
		path []types.MemoryId
	}
	visited := map[types.MemoryId]bool{startID: true}
	queue := []node{{id: startID, path: []types.MemoryId{startID}}}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.id == endID {
			return cur.path, nil
		}
		if len(cur.path) > bounds.MaxHops {
			continue
		}
		for _, a := range s.associations {
			var neighbor types.MemoryId
			if a.FromMemoryID == cur.id {
				neighbor = a.ToMemoryID
			} else if a.ToMemoryID == cur.id {
				neighbor = a.FromMemoryID
			} else {
				continue
			}
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			nextPath := append(append([]types.MemoryId{}, cur.path...), neighbor)
			queue = append(queue, node{id: neighbor, path: nextPath})
		}
	}
	return nil, storage.ErrNotFound
}

func (r *graphRepo) GetNeighbors(ctx context.Context, memoryID types.MemoryId, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	opts.Normalize()
	s := r.s()
	s.mu.RLock()
	neighborIDs := map[types.MemoryId]bool{}
	for _, a := range s.associations {
		if a.FromMemoryID == memoryID {
			neighborIDs[a.ToMemoryID] = true
		} else if a.ToMemoryID == memoryID {
			neighborIDs[a.FromMemoryID] = true
		}
	}
	s.mu.RUnlock()

	var items []*types.Memory
	for id := range neighborIDs {
		m, err := (*memoryRepo)(s).FindByID(ctx, id)
		if err == nil {
			items = append(items, m)
		}
	}
	total := len(items)
	start := opts.Offset()
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}
	return &storage.PaginatedResult[*types.Memory]{Items: items[start:end], Total: total, Page: opts.Page, PageSize: opts.Limit, HasMore: end < total}, nil
}
