package config

import (
	"math"
	"os"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/grounding"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/dalia"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var variables = []string{
	"OERBSERVATORY_OUTPUT_DIR", "OERBSERVATORY_CACHE_DIR", "OERBSERVATORY_PARALLEL",
	"OERBSERVATORY_SIMILARITY_CUTOFF", "OERBSERVATORY_GROUNDING", "ORCID_API_URL", "ROR_API_URL",
	"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "DALIA_CURATION_DIR", "TESS_INSTANCES",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range variables {
		t.Setenv(v, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, fetch.DefaultCacheDir, cfg.CacheDir)
	assert.False(t, cfg.Parallel)
	assert.Equal(t, 0.7, cfg.Cutoff)
	assert.Equal(t, GroundingOnline, cfg.Grounding)
	assert.Equal(t, grounding.DefaultORCIDURL, cfg.ORCIDURL)
	assert.Equal(t, grounding.DefaultRORURL, cfg.RORURL)
	assert.Empty(t, cfg.EmbeddingProvider)
	assert.Empty(t, cfg.TeSSInstances)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("OERBSERVATORY_OUTPUT_DIR", "/tmp/out")
	t.Setenv("OERBSERVATORY_PARALLEL", "true")
	t.Setenv("OERBSERVATORY_SIMILARITY_CUTOFF", "0.85")
	t.Setenv("OERBSERVATORY_GROUNDING", "OFF")
	t.Setenv("EMBEDDING_PROVIDER", "Ollama")
	t.Setenv("EMBEDDING_MODEL", "nomic-embed-text")
	t.Setenv("DALIA_CURATION_URLS", "https://example.org/a.csv, ,https://example.org/b.csv")
	t.Setenv("TESS_INSTANCES", "tess,taxila")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/out", cfg.OutputDir)
	assert.True(t, cfg.Parallel)
	assert.Equal(t, 0.85, cfg.Cutoff)
	assert.Equal(t, GroundingOff, cfg.Grounding)
	assert.Equal(t, "ollama", cfg.EmbeddingProvider)
	assert.Equal(t, "nomic-embed-text", cfg.EmbeddingModel)
	assert.Equal(t, []string{"https://example.org/a.csv", "https://example.org/b.csv"}, cfg.DALIACurationURLs)
	assert.Equal(t, []string{"tess", "taxila"}, cfg.TeSSInstances)
}

func TestLoadCurationURLs(t *testing.T) {
	clearEnv(t)

	t.Run("default sheet", func(t *testing.T) {
		t.Setenv("DALIA_CURATION_URLS", "")
		require.NoError(t, os.Unsetenv("DALIA_CURATION_URLS"))
		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, []string{dalia.DefaultCurationURL}, cfg.DALIACurationURLs)
	})

	t.Run("explicitly empty", func(t *testing.T) {
		t.Setenv("DALIA_CURATION_URLS", "")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Empty(t, cfg.DALIACurationURLs)
	})
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "parallel", key: "OERBSERVATORY_PARALLEL", value: "sometimes"},
		{name: "cutoff not a number", key: "OERBSERVATORY_SIMILARITY_CUTOFF", value: "high"},
		{name: "cutoff out of range", key: "OERBSERVATORY_SIMILARITY_CUTOFF", value: "1.5"},
		{name: "cutoff NaN", key: "OERBSERVATORY_SIMILARITY_CUTOFF", value: "NaN"},
		{name: "grounding", key: "OERBSERVATORY_GROUNDING", value: "offline"},
		{name: "provider", key: "EMBEDDING_PROVIDER", value: "word2vec"},
		{name: "grounder url", key: "ORCID_API_URL", value: "not a url"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}

func TestValidateCutoff(t *testing.T) {
	assert.NoError(t, ValidateCutoff(0))
	assert.NoError(t, ValidateCutoff(1))
	assert.Error(t, ValidateCutoff(-0.1))
	assert.Error(t, ValidateCutoff(1.01))
	assert.Error(t, ValidateCutoff(math.NaN()))
}
