package openai

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedReordersByIndex(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	o := New(providers.Config{BaseURL: srv.URL + "/v1"})
	assert.Equal(t, DefaultModel, o.Model())
	got, err := o.Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, got)
}

func TestEmbedMissingEntry(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":[{"index":0,"embedding":[1,0]}]}`))
	}))
	defer srv.Close()

	_, err := New(providers.Config{BaseURL: srv.URL}).Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)
}

func TestEmbedRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := New(providers.Config{}).Embed(context.Background(), []string{"a"})
	require.Error(t, err)
}
