package domain

import "context"

// Embedder computes fixed-dimension embedding vectors. The same model must
// be used for ingestion and for queries; mixing models silently degrades
// retrieval, so callers share one Embedder instance.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, text string) ([]float64, error)
}

// Generator produces a completion for an assembled prompt. Implementations
// use deterministic decoding (temperature 0) and a bounded output length.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// VectorStore persists embedded chunks and serves similarity search.
// Re-running ingestion appends under the same store; deduplication is the
// store's concern, not the caller's.
type VectorStore interface {
	Add(ctx context.Context, chunks []EmbeddedChunk) error
	SearchWithScores(ctx context.Context, query []float64, k int) ([]SearchResult, error)
	Count(ctx context.Context) (int, error)
}
