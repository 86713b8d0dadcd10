package gemini

import (
	"context"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	g := New(providers.Config{BatchSize: 500})
	assert.Equal(t, DefaultModel, g.Model())
	assert.Equal(t, maxBatch, g.config.BatchSize)
}

func TestEmbedRequiresAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, err := New(providers.Config{}).Embed(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}
