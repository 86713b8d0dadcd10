package similarity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
)

// Dense embeds documents with a sentence embedding provider.
type Dense struct {
	embedder providers.Embedder
}

// NewDenseVectorizer wraps an embedding provider.
func NewDenseVectorizer(e providers.Embedder) *Dense {
	return &Dense{embedder: e}
}

func (d *Dense) Name() string { return "dense" }

func (d *Dense) Vectorize(ctx context.Context, docs []string) (*Matrix, error) {
	slog.Info("Embedding documents", "model", d.embedder.Model(), "documents", len(docs))
	vectors, err := d.embedder.Embed(ctx, docs)
	if err != nil {
		return nil, fmt.Errorf("failed to embed documents: %w", err)
	}
	if len(vectors) != len(docs) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d documents", len(vectors), len(docs))
	}
	return NewDense(vectors)
}
