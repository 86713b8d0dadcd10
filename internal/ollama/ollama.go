package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
)

// DefaultModel is a multilingual sentence embedding model.
const DefaultModel = "paraphrase-multilingual"

// Ollama is an embedding provider for Ollama
type Ollama struct {
	config providers.Config
	client *http.Client
}

// New returns a new Ollama provider
func New(config providers.Config) *Ollama {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}
	return &Ollama{config: config, client: &http.Client{}}
}

func (o *Ollama) Model() string { return o.config.Model }

// Embed embeds texts with the /api/embed endpoint
func (o *Ollama) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	ollamaURL := o.config.BaseURL
	if ollamaURL == "" {
		ollamaURL = os.Getenv("OLLAMA_URL")
	}
	if ollamaURL == "" {
		ollamaURL = "http://localhost:11434"
	}
	url := ollamaURL + "/api/embed"

	return providers.Batches(ctx, texts, o.config.BatchSize, func(ctx context.Context, batch []string) ([][]float32, error) {
		requestBody, err := json.Marshal(map[string]interface{}{
			"model": o.config.Model,
			"input": batch,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
		if err != nil {
			return nil, fmt.Errorf("failed to create new request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := o.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to send request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(resp.Body)
			return nil, fmt.Errorf("received non-200 status code: %d - %s", resp.StatusCode, string(body))
		}

		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}
		return response.Embeddings, nil
	})
}
