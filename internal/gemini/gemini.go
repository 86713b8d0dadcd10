package gemini

import (
	"context"
	"fmt"
	"os"

	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	// DefaultModel is a multilingual embedding model.
	DefaultModel = "text-embedding-004"
	// maxBatch is the request limit of batchEmbedContents.
	maxBatch = 100
)

// Gemini is an embedding provider for Google Gemini
type Gemini struct {
	config providers.Config
}

// New returns a new Gemini provider
func New(config providers.Config) *Gemini {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BatchSize <= 0 || config.BatchSize > maxBatch {
		config.BatchSize = maxBatch
	}
	return &Gemini{config: config}
}

func (g *Gemini) Model() string { return g.config.Model }

// Embed embeds texts with the semantic similarity task type
func (g *Gemini) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable not set")
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if g.config.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.config.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create new gemini client: %w", err)
	}
	defer client.Close()

	model := client.EmbeddingModel(g.config.Model)
	model.TaskType = genai.TaskTypeSemanticSimilarity

	return providers.Batches(ctx, texts, g.config.BatchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		b := model.NewBatch()
		for _, text := range batch {
			b.AddContent(genai.Text(text))
		}
		resp, err := model.BatchEmbedContents(ctx, b)
		if err != nil {
			return nil, fmt.Errorf("failed to embed contents: %w", err)
		}
		out := make([][]float32, 0, len(resp.Embeddings))
		for _, e := range resp.Embeddings {
			if e == nil {
				return nil, fmt.Errorf("empty embedding returned from Gemini")
			}
			out = append(out, e.Values)
		}
		return out, nil
	})
}
