package llm

import "context"

// TextGenerator is the interface for LLM text completion.
// All enrichment prompts use single-string completion style (not chat).
type TextGenerator interface {
	Complete(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// EmbeddingGenerator is the interface for generating vector embeddings.
// Returns float32 slice; callers convert to float64 for storage.
type EmbeddingGenerator interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	GetModel() string
}

// BatchEmbeddingGenerator is an optional capability an EmbeddingGenerator
// may implement for providers whose API supports embedding many texts in
// one round trip. EmbeddingQueue prefers this when available.
type BatchEmbeddingGenerator interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
