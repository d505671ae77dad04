package orchestrator

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/scrypster/memento-engine/internal/dedup"
	"github.com/scrypster/memento-engine/internal/llm"
	"github.com/scrypster/memento-engine/internal/scoring"
	"github.com/scrypster/memento-engine/internal/storage"
)

// Builder assembles an Orchestrator. The zero value is not usable; start
// with NewBuilder.
type Builder struct {
	backend    storage.Backend
	textGen    llm.TextGenerator
	embedder   llm.EmbeddingGenerator
	useQueue   bool
	useScoring bool
	cfg        Config
	err        error
}

// NewBuilder starts a Builder bound to backend. backend must be non-nil.
func NewBuilder(backend storage.Backend) *Builder {
	b := &Builder{cfg: DefaultConfig()}
	if backend == nil {
		b.err = fmt.Errorf("orchestrator: storage backend is required")
		return b
	}
	b.backend = backend
	return b
}

// WithCoreFeatures configures deterministic-only operation: CRUD, search,
// and vector similarity, with no LLM-driven fact extraction, decision
// making, deduplication, or conflict detection. This is the preset a
// deployment with no LLM budget reaches for.
func (b *Builder) WithCoreFeatures() *Builder {
	b.textGen = nil
	return b
}

// WithIntelligentFeatures enables the full pipeline: fact extraction,
// decision making, and deduplication all run through generator and
// embedder. Passing a nil generator is equivalent to WithCoreFeatures.
func (b *Builder) WithIntelligentFeatures(generator llm.TextGenerator, embedder llm.EmbeddingGenerator) *Builder {
	b.textGen = generator
	b.embedder = embedder
	return b
}

// WithEmbeddingQueue enables batching of embed calls behind an
// llm.EmbeddingQueue instead of issuing one round trip per fact. Only
// meaningful once an embedder is configured (directly, or via
// WithAutoConfig).
func (b *Builder) WithEmbeddingQueue() *Builder {
	b.useQueue = true
	return b
}

// WithScoring enables automatic core:score recalculation on every read
// (internal/scoring.Scorer, weighted blend of importance/recency/access).
// Without it, core:score is left exactly as the caller or extractor set
// it.
func (b *Builder) WithScoring() *Builder {
	b.useScoring = true
	return b
}

// WithDedup overrides the deduplicator's configuration.
func (b *Builder) WithDedup(cfg dedup.Config) *Builder {
	b.cfg.Dedup = cfg
	return b
}

// WithRateLimit caps outgoing LLM completions to limit requests/sec, burst
// in excess of that rate. A zero limit disables rate limiting (the
// default): useful once a real, metered vendor provider is registered
// against the generator passed to WithIntelligentFeatures.
func (b *Builder) WithRateLimit(limit rate.Limit, burst int) *Builder {
	b.cfg.LLMRateLimit = limit
	b.cfg.LLMBurst = burst
	return b
}

// WithConfig overrides the full Config. Call before the other With*
// methods that target individual fields if you want them to still apply
// on top of it.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	return b
}

// autoConfigEnvVars lists the environment variables WithAutoConfig probes
// for, in the order a deployment is most likely to have set them.
var autoConfigEnvVars = []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "MEMENTO_LLM_PROVIDER"}

// WithAutoConfig inspects the environment for a recognized LLM provider
// credential and, if registry has a provider registered under the
// matching name ("openai", "anthropic", or the value of
// MEMENTO_LLM_PROVIDER), wires it in via WithIntelligentFeatures.
// Concrete vendor constructors are never bundled here — a deployment that
// wants one registers it against registry first. With nothing registered
// or no credential present, this is equivalent to WithCoreFeatures, which
// is always a safe, fully-functional fallback.
func (b *Builder) WithAutoConfig(registry *llm.Registry) *Builder {
	if registry == nil {
		return b.WithCoreFeatures()
	}
	provider := ""
	switch {
	case os.Getenv("OPENAI_API_KEY") != "":
		provider = "openai"
	case os.Getenv("ANTHROPIC_API_KEY") != "":
		provider = "anthropic"
	case os.Getenv("MEMENTO_LLM_PROVIDER") != "":
		provider = os.Getenv("MEMENTO_LLM_PROVIDER")
	default:
		return b.WithCoreFeatures()
	}

	gen, err := registry.NewTextGenerator(provider, nil)
	if err != nil {
		b.err = fmt.Errorf("orchestrator: auto-config found %s but no generator registered: %w", provider, err)
		return b.WithCoreFeatures()
	}
	emb, err := registry.NewEmbeddingGenerator(provider, nil)
	if err != nil {
		b.err = fmt.Errorf("orchestrator: auto-config found %s but no embedder registered: %w", provider, err)
		return b.WithCoreFeatures()
	}
	return b.WithIntelligentFeatures(gen, emb)
}

// Build validates the assembled configuration and returns a ready
// Orchestrator.
func (b *Builder) Build() (*Orchestrator, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.backend == nil {
		return nil, fmt.Errorf("orchestrator: storage backend is required")
	}
	if b.cfg.SimilarityThreshold <= 0 || b.cfg.SimilarityThreshold > 1 {
		return nil, fmt.Errorf("orchestrator: similarity threshold must be in (0,1], got %v", b.cfg.SimilarityThreshold)
	}

	o := &Orchestrator{
		cfg:           b.cfg,
		backend:       b.backend,
		textGen:       b.textGen,
		embedder:      b.embedder,
		dedup:         dedup.New(b.cfg.Dedup),
		intelligentOn: b.textGen != nil,
	}
	if o.textGen != nil {
		o.breaker = llm.NewCircuitBreaker()
	}

	if b.cfg.LLMRateLimit > 0 {
		o.limiter = rate.NewLimiter(b.cfg.LLMRateLimit, b.cfg.LLMBurst)
	}
	if b.cfg.EmbeddingCacheSize > 0 {
		cache, err := lru.New[string, []float32](b.cfg.EmbeddingCacheSize)
		if err != nil {
			return nil, fmt.Errorf("orchestrator: init embedding cache: %w", err)
		}
		o.embedCache = cache
	}
	if b.useQueue && o.embedder != nil {
		o.queue = llm.NewEmbeddingQueue(o.embedder, 0, 0, 0)
	}
	if b.useScoring {
		o.scorer = scoring.New(o.backend.Memories())
	}

	return o, nil
}
