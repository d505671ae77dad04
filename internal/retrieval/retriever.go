package retrieval

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/scrypster/memento-engine/internal/agents"
	"github.com/scrypster/memento-engine/internal/llm"
)

// topicExtractionTimeout matches spec §5's named topic-extraction budget.
// synthesisTimeout has no named budget in the spec's timeout table; it
// reuses the decision budget (15s), longer than topic extraction (10s)
// since synthesis reads more input.
const (
	topicExtractionTimeout = 10 * time.Second
	synthesisTimeout       = 15 * time.Second
)

// Config tunes the retrieval pipeline.
type Config struct {
	CacheSize int
	CacheTTL  time.Duration
}

// DefaultConfig matches the spec's stated retrieval-cache defaults.
func DefaultConfig() Config {
	return Config{CacheSize: 256, CacheTTL: 5 * time.Minute}
}

// Retriever is the C9 active-retrieval pipeline's entry point: one
// Retrieve call per request, cache-checked, topic-extracted, routed,
// fanned out across the typed-agent registry, merged, and optionally
// synthesized.
type Retriever struct {
	registry *agents.Registry
	textGen  llm.TextGenerator
	breaker  *llm.CircuitBreaker
	cache    *responseCache
	cfg      Config
}

// New builds a Retriever. registry may be nil (every memory type then
// falls back to mock fan-out); textGen may be nil (topic extraction and
// LLM-reconciled synthesis both degrade to their deterministic paths).
func New(registry *agents.Registry, textGen llm.TextGenerator, cfg Config) (*Retriever, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = DefaultConfig().CacheSize
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	cache, err := newResponseCache(cfg.CacheSize, cfg.CacheTTL)
	if err != nil {
		return nil, err
	}
	r := &Retriever{registry: registry, textGen: textGen, cache: cache, cfg: cfg}
	if textGen != nil {
		r.breaker = llm.NewCircuitBreaker()
	}
	return r, nil
}

// complete runs an LLM call through the circuit breaker, bounded by
// timeout. Returns ("", false) on any failure or missing generator so
// callers fall back to their deterministic path.
func (r *Retriever) complete(ctx context.Context, timeout time.Duration, prompt string) (string, bool) {
	if r.textGen == nil {
		return "", false
	}
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if r.breaker == nil {
		out, err := r.textGen.Complete(stageCtx, prompt)
		if err != nil {
			log.Printf("retrieval: llm call failed: %v", err)
			return "", false
		}
		return out, true
	}
	result, err := r.breaker.Execute(stageCtx, func() (interface{}, error) {
		return r.textGen.Complete(stageCtx, prompt)
	})
	if err != nil {
		log.Printf("retrieval: llm call failed: %v", err)
		return "", false
	}
	out, _ := result.(string)
	return out, true
}

// extractTopics implements C9.2: an LLM call over query+context, parsed
// as a JSON array of {label, category, confidence}. The disabled path
// (EnableTopicExtraction=false, or no generator configured) returns an
// empty list rather than an error.
func (r *Retriever) extractTopics(ctx context.Context, req Request) []Topic {
	if !req.EnableTopicExtraction || r.textGen == nil {
		return nil
	}
	raw, ok := r.complete(ctx, topicExtractionTimeout, llm.TopicExtractionPrompt(req.Query, req.Context))
	if !ok {
		return nil
	}
	cleaned := llm.ExtractJSONArray(raw)
	var topics []Topic
	if err := json.Unmarshal([]byte(cleaned), &topics); err != nil {
		log.Printf("retrieval: topic extraction response was not valid JSON: %v", err)
		return nil
	}
	return topics
}

// Retrieve runs the full pipeline (spec §9 steps 1-7).
func (r *Retriever) Retrieve(ctx context.Context, req Request) Response {
	start := time.Now()
	if req.MaxResults <= 0 {
		req.MaxResults = 10
	}

	key := fingerprint(req)
	if cached, ok := r.cache.get(key); ok {
		cached.FromCache = true
		return cached
	}

	topics := r.extractTopics(ctx, req)
	decision := route(req)
	merged := r.fanOut(ctx, req, decision)

	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Relevance > merged[j].Relevance })
	if len(merged) > req.MaxResults {
		merged = merged[:req.MaxResults]
	}

	resp := Response{
		Memories:        merged,
		ExtractedTopics: topics,
		Routing:         decision,
	}

	if req.EnableContextSynthesis {
		resp.Synthesis = r.synthesize(ctx, req, merged)
	}

	resp.ConfidenceScore = confidenceScore(merged, resp.Synthesis)
	resp.ProcessingTimeMs = elapsedMs(start)

	r.cache.put(key, resp)
	return resp
}

// confidenceScore implements spec §9 step 7's formula exactly:
// mean(relevance) + 0.2·synthesis_confidence, clamped to 1.
func confidenceScore(memories []RetrievedMemory, synthesis *SynthesisResult) float64 {
	score := meanRelevance(memories)
	if synthesis != nil {
		score += 0.2 * synthesis.ConfidenceScore
	}
	if score > 1 {
		score = 1
	}
	return score
}
