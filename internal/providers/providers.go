package providers

import (
	"context"
	"fmt"
)

// Config represents the configuration for an embedding provider
type Config struct {
	Model string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// BatchSize caps the number of texts sent per request. Zero means the
	// provider default.
	BatchSize int
}

// Embedder turns texts into dense vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}

// Batches calls fn for consecutive chunks of texts of at most size entries
// and concatenates the results.
func Batches(ctx context.Context, texts []string, size int, fn func(context.Context, []string) ([][]float32, error)) ([][]float32, error) {
	if size <= 0 {
		size = len(texts)
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += size {
		end := min(start+size, len(texts))
		vectors, err := fn(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		if len(vectors) != end-start {
			return nil, fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), end-start)
		}
		out = append(out, vectors...)
	}
	return out, nil
}
