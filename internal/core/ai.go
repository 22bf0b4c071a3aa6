package core

import "context"

// EmbeddingProvider converts chunk text into fixed-dimensionality vectors.
// EmbedText is per chunk: a failure on one chunk must not discard siblings.
type EmbeddingProvider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}
