package grounding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGrounder struct {
	calls int
	out   []Match
}

func (c *countingGrounder) GetMatches(context.Context, string) ([]Match, error) {
	c.calls++
	return c.out, nil
}

func TestCached(t *testing.T) {
	inner := &countingGrounder{out: []Match{{Name: "A", Identifier: "1"}}}
	c := NewCached(inner)

	for _, name := range []string{"Ada Lovelace", "ada  lovelace", "ADA LOVELACE"} {
		got, err := c.GetMatches(context.Background(), name)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	}
	assert.Equal(t, 1, inner.calls)
}

func TestStatic(t *testing.T) {
	s := NewStatic(
		Match{Name: "TIB", Identifier: "04aj4c181"},
		Match{Name: "Jane Doe", Identifier: "0000-0001"},
		Match{Name: "jane doe", Identifier: "0000-0002"},
	)
	got, _ := s.GetMatches(context.Background(), "tib")
	assert.Equal(t, []Match{{Name: "TIB", Identifier: "04aj4c181"}}, got)

	got, _ = s.GetMatches(context.Background(), "Jane Doe")
	assert.Len(t, got, 2)

	got, _ = None{}.GetMatches(context.Background(), "anyone")
	assert.Empty(t, got)
}

func TestORCID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/expanded-search/", r.URL.Path)
		assert.Contains(t, r.URL.Query().Get("q"), "Hoyt")
		_, _ = w.Write([]byte(`{"num-found":2,"expanded-result":[
			{"orcid-id":"0000-0003-4423-4370","given-names":"Charles Tapley","family-names":"Hoyt"},
			{"orcid-id":"0000-0000-0000-0001","given-names":"Charles","family-names":"Hoyt"}
		]}`))
	}))
	defer srv.Close()

	g := NewORCID(fetch.New(fetch.Config{CacheDir: t.TempDir()}), srv.URL)
	got, err := g.GetMatches(context.Background(), "Charles Tapley Hoyt")
	require.NoError(t, err)
	assert.Equal(t, []Match{{Name: "Charles Tapley Hoyt", Identifier: "0000-0003-4423-4370"}}, got)

	got, err = g.GetMatches(context.Background(), "Hoyt, Charles Tapley")
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestROR(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/organizations", r.URL.Path)
		_, _ = w.Write([]byte(`{"items":[
			{"id":"https://ror.org/04aj4c181","names":[
				{"value":"TIB - Leibniz Information Centre for Science and Technology and University Library","types":["ror_display","label"]},
				{"value":"TIB","types":["acronym"]}]},
			{"id":"https://ror.org/000000000","names":[{"value":"Tibet University","types":["ror_display"]}]}
		]}`))
	}))
	defer srv.Close()

	g := NewROR(fetch.New(fetch.Config{CacheDir: t.TempDir()}), srv.URL)
	got, err := g.GetMatches(context.Background(), "TIB")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "04aj4c181", got[0].Identifier)
	assert.Equal(t, "TIB - Leibniz Information Centre for Science and Technology and University Library", got[0].Name)
}
