package openai

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

const (
	DefaultModel   = "text-embedding-3-small"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAI is an embedding provider for OpenAI
type OpenAI struct {
	config providers.Config
	client *http.Client
}

// New returns a new OpenAI provider
func New(config providers.Config) *OpenAI {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 256
	}
	return &OpenAI{config: config, client: &http.Client{}}
}

func (o *OpenAI) Model() string { return o.config.Model }

// Embed embeds texts with the /embeddings endpoint
func (o *OpenAI) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY environment variable not set")
	}
	url := o.config.BaseURL + "/embeddings"

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
		req.Header.Set("Authorization", "Bearer "+apiKey)

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
			Data []struct {
				Index     int       `json:"index"`
				Embedding []float32 `json:"embedding"`
			} `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
			return nil, fmt.Errorf("failed to decode response body: %w", err)
		}

		// entries carry their input position and are not guaranteed in order
		out := make([][]float32, len(batch))
		for _, d := range response.Data {
			if d.Index < 0 || d.Index >= len(out) {
				return nil, fmt.Errorf("embedding index %d out of range", d.Index)
			}
			out[d.Index] = d.Embedding
		}
		for i, v := range out {
			if v == nil {
				return nil, fmt.Errorf("no embedding returned for input %d", i)
			}
		}
		return out, nil
	})
}
