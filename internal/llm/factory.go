package llm

import (
	"context"
	"fmt"
	"sync"
)

// FakeLLM is a deterministic TextGenerator for tests and offline
// operation. It never calls out to a real model; Complete returns
// whatever Response (or ResponseFunc, if set) produces, so callers can
// exercise the extraction/decision/conflict pipelines without a live
// vendor connection.
type FakeLLM struct {
	Model        string
	Response     string
	ResponseFunc func(prompt string) (string, error)
}

func (f *FakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	if f.ResponseFunc != nil {
		return f.ResponseFunc(prompt)
	}
	return f.Response, nil
}

func (f *FakeLLM) GetModel() string {
	if f.Model == "" {
		return "fake-llm"
	}
	return f.Model
}

// FakeEmbedder is a deterministic EmbeddingGenerator for tests and
// offline operation. With no VectorFunc set it derives a stable
// low-dimensional vector from the text's length and byte sum, so the
// same input always embeds to the same output without needing a real
// embedding model.
type FakeEmbedder struct {
	Model      string
	Dimension  int
	VectorFunc func(text string) ([]float32, error)
}

func (f *FakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.VectorFunc != nil {
		return f.VectorFunc(text)
	}
	dim := f.Dimension
	if dim <= 0 {
		dim = 8
	}
	vec := make([]float32, dim)
	var sum int
	for _, b := range []byte(text) {
		sum += int(b)
	}
	for i := range vec {
		vec[i] = float32((sum+i*31)%101) / 100.0
	}
	return vec, nil
}

func (f *FakeEmbedder) GetModel() string {
	if f.Model == "" {
		return "fake-embed"
	}
	return f.Model
}

// EmbedBatch implements BatchEmbeddingGenerator so EmbeddingQueue exercises
// its batch path against the fake in tests.
func (f *FakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// TextGeneratorFactory builds a TextGenerator from a provider-specific
// config blob. Registered under a provider name via RegisterTextGenerator.
type TextGeneratorFactory func(config map[string]string) (TextGenerator, error)

// EmbeddingGeneratorFactory builds an EmbeddingGenerator from a
// provider-specific config blob.
type EmbeddingGeneratorFactory func(config map[string]string) (EmbeddingGenerator, error)

// Registry resolves LLM/embedder providers by name. Vendor wiring
// (OpenAI, Anthropic, Ollama, etc.) is out of scope here: a deployment
// that needs a real model registers its own constructor against this
// registry. The "fake" provider is always available and backs tests and
// offline runs.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]TextGeneratorFactory
	embedders  map[string]EmbeddingGeneratorFactory
}

// NewRegistry returns a Registry pre-populated with the "fake" provider.
func NewRegistry() *Registry {
	r := &Registry{
		generators: make(map[string]TextGeneratorFactory),
		embedders:  make(map[string]EmbeddingGeneratorFactory),
	}
	r.RegisterTextGenerator("fake", func(config map[string]string) (TextGenerator, error) {
		return &FakeLLM{Model: config["model"], Response: config["response"]}, nil
	})
	r.RegisterEmbeddingGenerator("fake", func(config map[string]string) (EmbeddingGenerator, error) {
		return &FakeEmbedder{Model: config["model"]}, nil
	})
	return r
}

func (r *Registry) RegisterTextGenerator(provider string, factory TextGeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generators[provider] = factory
}

func (r *Registry) RegisterEmbeddingGenerator(provider string, factory EmbeddingGeneratorFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedders[provider] = factory
}

func (r *Registry) NewTextGenerator(provider string, config map[string]string) (TextGenerator, error) {
	r.mu.RLock()
	factory, ok := r.generators[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: no text generator registered for provider %q", provider)
	}
	return factory(config)
}

func (r *Registry) NewEmbeddingGenerator(provider string, config map[string]string) (EmbeddingGenerator, error) {
	r.mu.RLock()
	factory, ok := r.embedders[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("llm: no embedding generator registered for provider %q", provider)
	}
	return factory(config)
}
