// Package orchestrator implements the memory orchestration engine's public
// façade (C7): the single entry point ingest(), get(), update(), delete(),
// search(), get_all() and history() are built against. It owns one
// embedder (optionally behind an llm.EmbeddingQueue), one text generator,
// the seven storage repositories bundled behind storage.Backend, the
// deduplicator (C6), and the fact extraction / decision engine (C5). When
// no text generator is configured every intelligence-layer feature
// degrades to its deterministic fallback rather than failing.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/scrypster/memento-engine/internal/dedup"
	"github.com/scrypster/memento-engine/internal/extraction"
	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/scoring"
	"github.com/scrypster/memento-engine/internal/storage"
	"github.com/scrypster/memento-engine/internal/vectormath"
	"github.com/scrypster/memento-engine/pkg/types"
)

// Config holds the tunables the builder presets assemble. Build does not
// fill in zero-valued fields; it rejects a SimilarityThreshold outside (0, 1].
type Config struct {
	SimilarityThreshold      float64
	MaxConsiderationMemories int
	CandidatePoolSize        int
	EmbeddingCacheSize       int
	LLMRateLimit             rate.Limit // requests/sec; 0 disables limiting
	LLMBurst                 int
	Timeouts                 map[Stage]time.Duration
	Dedup                    dedup.Config
}

// DefaultConfig matches the spec's stated defaults for the decision engine
// and deduplicator.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:      0.85,
		MaxConsiderationMemories: 20,
		CandidatePoolSize:        50,
		EmbeddingCacheSize:       512,
		LLMRateLimit:             0,
		LLMBurst:                 1,
		Timeouts:                 map[Stage]time.Duration{},
		Dedup:                    dedup.DefaultConfig(),
	}
}

// Scope narrows which existing memories are eligible as decision/dedup
// candidates and is stamped onto every memory created through Add.
type Scope struct {
	OrganizationID string
	UserID         string
	AgentID        string
	SessionID      string
	MemoryType     types.MemoryType
	Persona        string
}

// Orchestrator is the memory engine façade. The zero value is not usable;
// construct one with NewBuilder.
type Orchestrator struct {
	cfg      Config
	backend  storage.Backend
	textGen  llm.TextGenerator
	embedder llm.EmbeddingGenerator
	queue    *llm.EmbeddingQueue
	dedup    *dedup.Deduplicator
	limiter  *rate.Limiter
	breaker  *llm.CircuitBreaker
	scorer   *scoring.Scorer

	embedCache *lru.Cache[string, []float32]

	mu            sync.RWMutex
	intelligentOn bool

	stats struct {
		sync.Mutex
		added, updated, deleted, noop uint64
	}
}

// intelligentFeaturesEnabled reports whether the LLM-backed pipeline
// (extraction + decision + conflict handling) is active, vs. the
// deterministic-only core path.
func (o *Orchestrator) intelligentFeaturesEnabled() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.intelligentOn
}

// embed computes an embedding for text, going through the embedding queue
// when one is configured, and caching the result by exact text match
// (repeated identical content — the common case across a decision's
// re-embed-on-update path — never pays for a second round trip).
func (o *Orchestrator) embed(ctx context.Context, text string) ([]float32, error) {
	if o.embedder == nil {
		return nil, nil
	}
	if o.embedCache != nil {
		if v, ok := o.embedCache.Get(text); ok {
			return v, nil
		}
	}

	var (
		vec []float32
		err error
	)
	if o.queue != nil {
		vec, err = o.queue.Submit(ctx, text)
	} else {
		vec, err = o.embedder.Embed(ctx, text)
	}
	if err != nil {
		return nil, err
	}
	if o.embedCache != nil {
		o.embedCache.Add(text, vec)
	}
	return vec, nil
}

// complete runs a rate-limited, stage-bounded LLM completion. Returns
// ("", false) when no generator is configured, the limiter context is
// cancelled, or the call errors — callers fall back to their
// deterministic path in every case.
func (o *Orchestrator) complete(ctx context.Context, stage Stage, prompt string) (string, bool) {
	if o.textGen == nil {
		return "", false
	}
	if o.limiter != nil {
		if err := o.limiter.Wait(ctx); err != nil {
			return "", false
		}
	}
	stageCtx, cancel := o.withStageTimeout(ctx, stage)
	defer cancel()

	var (
		out string
		err error
	)
	if o.breaker != nil {
		var result interface{}
		result, err = o.breaker.Execute(stageCtx, func() (interface{}, error) {
			return o.textGen.Complete(stageCtx, prompt)
		})
		if err == nil {
			out, _ = result.(string)
		}
	} else {
		out, err = o.textGen.Complete(stageCtx, prompt)
	}
	if err != nil {
		budget := o.cfg.Timeouts[stage]
		if budget <= 0 {
			budget = defaultTimeouts[stage]
		}
		log.Printf("orchestrator: stage %q call failed: %v", stage, asTimeout(stageCtx, stage, budget, err))
		return "", false
	}
	return out, true
}

// scopeAttributes stamps a Scope's identity fields onto a fresh memory's
// attribute set.
func scopeAttributes(scope Scope, importance float64) types.AttributeSet {
	attrs := types.AttributeSet{}
	if scope.OrganizationID != "" {
		attrs = attrs.Set(types.AttrOrganizationID, types.StringValue(scope.OrganizationID))
	}
	if scope.UserID != "" {
		attrs = attrs.Set(types.AttrUserID, types.StringValue(scope.UserID))
	}
	if scope.AgentID != "" {
		attrs = attrs.Set(types.AttrAgentID, types.StringValue(scope.AgentID))
	}
	if scope.SessionID != "" {
		attrs = attrs.Set(types.AttrSessionID, types.StringValue(scope.SessionID))
	}
	if scope.MemoryType != "" {
		attrs = attrs.Set(types.AttrMemoryType, types.StringValue(string(scope.MemoryType)))
	}
	attrs = attrs.Set(types.AttrImportance, types.NumberValue(types.ClampUnit(importance)))
	return attrs
}

// candidatePool fetches up to cfg.CandidatePoolSize non-deleted memories in
// scope, most recently created first, for use as decision/dedup
// candidates.
func (o *Orchestrator) candidatePool(ctx context.Context, scope Scope) ([]*types.Memory, error) {
	opts := storage.ListOptions{
		Page: 1, Limit: o.cfg.CandidatePoolSize,
		OrgID: scope.OrganizationID, UserID: scope.UserID, AgentID: scope.AgentID,
		SessionID: scope.SessionID, MemoryType: string(scope.MemoryType),
		SortBy: "created_at", SortOrder: "desc",
	}
	opts.Normalize()
	result, err := o.backend.Memories().List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: list candidate pool: %w", err)
	}
	return extraction.SortCandidatesByRecency(result.Items), nil
}

// scoredCandidates scores pool against the already-computed factEmbedding,
// fetching each candidate's stored embedding (skipping those with none).
func (o *Orchestrator) scoredCandidates(ctx context.Context, factEmbedding []float32, pool []*types.Memory) []extraction.Candidate {
	if len(factEmbedding) == 0 {
		return nil
	}
	out := make([]extraction.Candidate, 0, len(pool))
	for _, m := range pool {
		emb, err := o.backend.Embeddings().GetEmbedding(ctx, string(m.ID))
		if err != nil || len(emb) == 0 {
			continue
		}
		out = append(out, extraction.Candidate{
			ID:         m.ID,
			Content:    m.Content.String(),
			Similarity: vectormath.CosineSimilarity(factEmbedding, emb),
		})
	}
	return out
}

// recordStat increments the stats counter matching action.
func (o *Orchestrator) recordStat(action extraction.DecisionAction) {
	o.stats.Lock()
	defer o.stats.Unlock()
	switch action {
	case extraction.ActionAdd:
		o.stats.added++
	case extraction.ActionUpdate:
		o.stats.updated++
	case extraction.ActionDelete:
		o.stats.deleted++
	case extraction.ActionNoop:
		o.stats.noop++
	}
}

// Stats is a snapshot of cumulative ingest outcomes, for observability.
type Stats struct{ Added, Updated, Deleted, Noop uint64 }

// Stats returns a snapshot of cumulative ingest outcome counts.
func (o *Orchestrator) Stats() Stats {
	o.stats.Lock()
	defer o.stats.Unlock()
	return Stats{o.stats.added, o.stats.updated, o.stats.deleted, o.stats.noop}
}

// Add ingests raw content. With the intelligent pipeline enabled, content
// is decomposed into facts (C5), each fact is classified against existing
// candidates and deduplicated (C6), and the corresponding ADD/UPDATE/
// DELETE/NOOP action is applied. Facts are processed in order and each
// sees the effects of the ones before it within the same call. With the
// pipeline disabled, content is stored verbatim as a single new memory.
// The returned id is the primary resulting memory (first ADD/UPDATE
// target), or "" if every action was NOOP or DELETE-only.
func (o *Orchestrator) Add(ctx context.Context, content string, scope Scope) (types.MemoryId, error) {
	if content == "" {
		return "", fmt.Errorf("%w: content is empty", storage.ErrInvalidInput)
	}

	if !o.intelligentFeaturesEnabled() {
		return o.addVerbatim(ctx, content, scope)
	}

	raw, ok := o.complete(ctx, StageFactExtraction, llm.FactExtractionPrompt(content, scope.Persona))
	var facts []extraction.Fact
	if ok {
		facts = extraction.ParseFacts(raw)
	}
	if len(facts) == 0 {
		return "", nil
	}

	pool, err := o.candidatePool(ctx, scope)
	if err != nil {
		return "", err
	}

	var primary types.MemoryId
	for _, fact := range facts {
		id, err := o.applyFact(ctx, fact, scope, &pool)
		if err != nil {
			return primary, err
		}
		if id != "" && primary == "" {
			primary = id
		}
	}
	return primary, nil
}

// applyFact embeds fact, classifies it against *pool, applies the
// resulting action, and — for ADD — prepends the newly created memory to
// *pool so later facts in the same Add call see it as a candidate too.
func (o *Orchestrator) applyFact(ctx context.Context, fact extraction.Fact, scope Scope, pool *[]*types.Memory) (types.MemoryId, error) {
	embedding, err := o.embed(ctx, fact.Content)
	if err != nil {
		log.Printf("orchestrator: embedding fact failed, proceeding without similarity scoring: %v", err)
	}
	candidates := o.scoredCandidates(ctx, embedding, *pool)

	decision := extraction.Decide(ctx, o.llmForDecision(ctx), fact, candidates, o.cfg.MaxConsiderationMemories, o.cfg.SimilarityThreshold)
	o.recordStat(decision.Action)

	switch decision.Action {
	case extraction.ActionAdd:
		return o.createFromFact(ctx, fact, scope, embedding, pool)
	case extraction.ActionUpdate:
		return decision.TargetID, o.updateTarget(ctx, decision.TargetID, fact.Content, embedding)
	case extraction.ActionDelete:
		return "", o.softDelete(ctx, decision.TargetID)
	default:
		return "", nil
	}
}

// llmForDecision returns o.textGen wrapped so extraction.Decide's
// LLM call goes through the same rate limit and stage timeout as every
// other orchestrator-issued completion; it implements llm.TextGenerator
// directly against Orchestrator.complete.
func (o *Orchestrator) llmForDecision(ctx context.Context) llm.TextGenerator {
	if o.textGen == nil {
		return nil
	}
	return stageGenerator{o: o, stage: StageDecision}
}

type stageGenerator struct {
	o     *Orchestrator
	stage Stage
}

func (g stageGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	out, ok := g.o.complete(ctx, g.stage, prompt)
	if !ok {
		return "", fmt.Errorf("orchestrator: stage %q call unavailable", g.stage)
	}
	return out, nil
}

func (g stageGenerator) GetModel() string { return g.o.textGen.GetModel() }

// createFromFact runs the deduplicator before committing a brand-new
// memory for fact, merging into or suppressed by a near-duplicate within
// the configured time window when one is found. On a genuine create, the
// new memory is prepended to *pool so subsequent facts in the same Add
// call can match against it.
func (o *Orchestrator) createFromFact(ctx context.Context, fact extraction.Fact, scope Scope, embedding []float32, pool *[]*types.Memory) (types.MemoryId, error) {
	now := time.Now().UTC()
	candidate := types.NewMemory("", types.NewTextContent(fact.Content), scopeAttributes(scope, fact.Importance))
	candidate.Metadata.CreatedAt = now

	if o.dedup != nil && len(embedding) > 0 {
		embeddings := make(map[types.MemoryId][]float32, len(*pool))
		for _, m := range *pool {
			if emb, err := o.backend.Embeddings().GetEmbedding(ctx, string(m.ID)); err == nil {
				embeddings[m.ID] = emb
			}
		}
		switch outcome := o.dedup.Check(candidate, embedding, *pool, embeddings); outcome.Action {
		case "suppress":
			return outcome.ExistingID, nil
		case "merge":
			merged := outcome.MergedContent
			return outcome.ExistingID, o.updateTarget(ctx, outcome.ExistingID, merged, embedding)
		}
	}

	id := types.MemoryId(uuid.NewString())
	candidate.ID = id
	if err := o.recordHistory(candidate, historyCreated); err != nil {
		log.Printf("orchestrator: recording create history: %v", err)
	}
	if err := o.backend.Memories().Create(ctx, candidate); err != nil {
		return "", fmt.Errorf("orchestrator: create memory: %w", err)
	}
	if len(embedding) > 0 {
		if err := o.backend.Embeddings().StoreEmbedding(ctx, string(id), embedding, len(embedding), o.embedder.GetModel()); err != nil {
			log.Printf("orchestrator: storing embedding for %s: %v", id, err)
		}
	}
	*pool = append([]*types.Memory{candidate}, *pool...)
	return id, nil
}

// updateTarget applies newContent to the memory at id, re-embeds it, and
// updates the stored embedding.
func (o *Orchestrator) updateTarget(ctx context.Context, id types.MemoryId, newContent string, embedding []float32) error {
	target, err := o.backend.Memories().FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("orchestrator: find update target %s: %w", id, err)
	}
	newC := types.NewTextContent(newContent)
	target.ApplyUpdate(&newC, time.Now().UTC())
	if err := o.recordHistory(target, historyUpdated); err != nil {
		log.Printf("orchestrator: recording update history: %v", err)
	}
	if err := o.backend.Memories().Update(ctx, target); err != nil {
		return fmt.Errorf("orchestrator: update memory %s: %w", id, err)
	}
	if o.embedder != nil {
		vec := embedding
		if len(vec) == 0 {
			vec, err = o.embed(ctx, newContent)
			if err != nil {
				log.Printf("orchestrator: re-embedding updated memory %s: %v", id, err)
				return nil
			}
		}
		if err := o.backend.Embeddings().StoreEmbedding(ctx, string(id), vec, len(vec), o.embedder.GetModel()); err != nil {
			log.Printf("orchestrator: storing embedding for %s: %v", id, err)
		}
	}
	return nil
}

// addVerbatim is the core (non-intelligent) ingest path: the raw content
// becomes a single new memory, no extraction or deduplication applied.
func (o *Orchestrator) addVerbatim(ctx context.Context, content string, scope Scope) (types.MemoryId, error) {
	id := types.MemoryId(uuid.NewString())
	m := types.NewMemory(id, types.NewTextContent(content), scopeAttributes(scope, 0.5))
	if err := o.recordHistory(m, historyCreated); err != nil {
		log.Printf("orchestrator: recording create history: %v", err)
	}
	if err := o.backend.Memories().Create(ctx, m); err != nil {
		return "", fmt.Errorf("orchestrator: create memory: %w", err)
	}
	if o.embedder != nil {
		vec, err := o.embed(ctx, content)
		if err != nil {
			log.Printf("orchestrator: embedding new memory %s: %v", id, err)
		} else if len(vec) > 0 {
			if err := o.backend.Embeddings().StoreEmbedding(ctx, string(id), vec, len(vec), o.embedder.GetModel()); err != nil {
				log.Printf("orchestrator: storing embedding for %s: %v", id, err)
			}
		}
	}
	o.recordStat(extraction.ActionAdd)
	return id, nil
}

// Get fetches a memory by id and records an access. Tombstoned (soft
// deleted) memories are reported as not found, matching the spec's
// "tombstone-aware" read semantics: the row survives for history and
// graph integrity, but callers never see it through Get.
func (o *Orchestrator) Get(ctx context.Context, id types.MemoryId) (*types.Memory, error) {
	m, err := o.backend.Memories().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.IsDeleted() {
		return nil, storage.ErrNotFound
	}
	m.Touch(time.Now().UTC())
	if o.scorer != nil {
		c := o.scorer.Calculate(m)
		m.Attributes = m.Attributes.Set(types.AttrScore, types.NumberValue(c.Overall))
	}
	if err := o.backend.Memories().Update(ctx, m); err != nil {
		log.Printf("orchestrator: recording access to %s: %v", id, err)
	}
	return m, nil
}

// Update replaces a memory's content directly (bypassing fact extraction
// and decision-making — the caller already knows which memory and what
// it should now say).
func (o *Orchestrator) Update(ctx context.Context, id types.MemoryId, newContent string) error {
	target, err := o.backend.Memories().FindByID(ctx, id)
	if err != nil {
		return err
	}
	newC := types.NewTextContent(newContent)
	target.ApplyUpdate(&newC, time.Now().UTC())
	if err := o.recordHistory(target, historyUpdated); err != nil {
		log.Printf("orchestrator: recording update history: %v", err)
	}
	if err := o.backend.Memories().Update(ctx, target); err != nil {
		return fmt.Errorf("orchestrator: update memory %s: %w", id, err)
	}
	if o.embedder != nil {
		vec, err := o.embed(ctx, newContent)
		if err != nil {
			log.Printf("orchestrator: re-embedding updated memory %s: %v", id, err)
		} else if len(vec) > 0 {
			if err := o.backend.Embeddings().StoreEmbedding(ctx, string(id), vec, len(vec), o.embedder.GetModel()); err != nil {
				log.Printf("orchestrator: storing embedding for %s: %v", id, err)
			}
		}
	}
	o.recordStat(extraction.ActionUpdate)
	return nil
}

// Delete soft-deletes a memory: the row, its history, and its graph edges
// are retained; Get and Search stop surfacing it.
func (o *Orchestrator) Delete(ctx context.Context, id types.MemoryId) error {
	if err := o.softDelete(ctx, id); err != nil {
		return err
	}
	o.recordStat(extraction.ActionDelete)
	return nil
}

// softDelete is Delete's body without the stats increment, so the
// decision-engine DELETE path (which already recorded its action via
// recordStat before dispatching) doesn't double-count.
func (o *Orchestrator) softDelete(ctx context.Context, id types.MemoryId) error {
	target, err := o.backend.Memories().FindByID(ctx, id)
	if err != nil {
		return err
	}
	target.SoftDelete(time.Now().UTC())
	if err := o.recordHistory(target, historyDeleted); err != nil {
		log.Printf("orchestrator: recording delete history: %v", err)
	}
	if err := o.backend.Memories().Update(ctx, target); err != nil {
		return fmt.Errorf("orchestrator: soft-delete memory %s: %w", id, err)
	}
	return nil
}

// Search performs a text search for query, returning at most limit
// results and excluding tombstoned memories.
func (o *Orchestrator) Search(ctx context.Context, query string, limit int) ([]*types.Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	results, err := o.backend.Memories().Search(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: search: %w", err)
	}
	out := make([]*types.Memory, 0, len(results))
	for _, m := range results {
		if !m.IsDeleted() {
			out = append(out, m)
		}
	}
	return out, nil
}

// GetAll returns a paginated listing, honoring opts.IncludeDeleted as-is.
func (o *Orchestrator) GetAll(ctx context.Context, opts storage.ListOptions) (*storage.PaginatedResult[*types.Memory], error) {
	return o.backend.Memories().List(ctx, opts)
}

