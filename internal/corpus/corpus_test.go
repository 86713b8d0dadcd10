package corpus

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/export"
	"github.com/data-literacy-alliance/oerbservatory/internal/fulltext"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBroken = errors.New("broken record")

type fakeSource struct {
	name   string
	titles []string
	// failAt is the index of a record whose mapping fails, or -1.
	failAt int
	// noRef maps every record to the same link and no reference.
	noRef bool
}

func (f fakeSource) Name() string { return f.name }

func (f fakeSource) Records(context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		for i, title := range f.titles {
			if !yield(sources.Record{sources.IDKey: strconv.Itoa(i), "title": title}, nil) {
				return
			}
		}
	}
}

func (f fakeSource) Map(_ context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	if strconv.Itoa(f.failAt) == r.ID() {
		return nil, errBroken
	}
	title := r.String("title")
	if title == "" {
		return sources.Drop(rec, r, "missing_title")
	}
	if f.noRef {
		return oer.New(oer.Resource{
			Platform:    f.name,
			Title:       oer.Lang("en", title),
			ExternalURI: "https://example.org/same",
		})
	}
	return oer.New(oer.Resource{
		Platform:  f.name,
		Reference: oer.NewReference(f.name, r.ID()),
		Title:     oer.Lang("en", title),
	})
}

type fakeEmbedder struct{}

func (fakeEmbedder) Model() string { return "fake" }

func (fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

var errEmbed = errors.New("embedding service unavailable")

// failingEmbedder rejects any batch containing "explode".
type failingEmbedder struct{ fakeEmbedder }

func (f failingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for _, t := range texts {
		if strings.Contains(t, "explode") {
			return nil, errEmbed
		}
	}
	return f.fakeEmbedder.Embed(ctx, texts)
}

func testSources() []sources.Source {
	return []sources.Source{
		fakeSource{name: "dalia", titles: []string{"Introduction to chemistry data management", ""}, failAt: -1},
		fakeSource{name: "tess", titles: []string{"Fine", "Broken"}, failAt: 1},
		fakeSource{name: "oerhub", titles: []string{"Introduction to chemistry data management", "Astronomy for beginners"}, failAt: -1},
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestRun(t *testing.T) {
	out := t.TempDir()
	var tables bytes.Buffer
	a := New(Config{OutputDir: out, Cutoff: 0.7, Out: &tables})

	results, err := a.Run(context.Background(), testSources(), true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBroken)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"oerhub", "tess", "dalia"}, []string{results[0].Source, results[1].Source, results[2].Source})
	assert.Error(t, results[1].Err)
	assert.Nil(t, results[1].Resources)

	all := PathsFor(out, AllKey)
	merged, err := export.ReadJSONL(all.JSONL)
	require.NoError(t, err)
	assert.Equal(t, []string{"oerhub:0", "oerhub:1", "dalia:0"}, Keys(merged))

	pairs := readLines(t, all.TFIDFSimilarities)
	require.Len(t, pairs, 2)
	assert.True(t, strings.HasPrefix(pairs[1], "oerhub:0\tIntroduction to chemistry data management\tdalia:0\t"), pairs[1])

	index := readLines(t, all.TFIDFIndex)
	assert.Len(t, index, 4)
	assert.True(t, strings.HasPrefix(index[0], "curie\t"))

	fromParquet, err := export.ReadParquet(all.Parquet)
	require.NoError(t, err)
	assert.Equal(t, merged, fromParquet)

	idx, err := fulltext.Open(all.FullTextIndex)
	require.NoError(t, err)
	defer idx.Close()
	hits, err := idx.Search(context.Background(), "astronomy", fulltext.DefaultWeights, 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "oerhub:1", hits[0].Key)

	for _, key := range []string{"oerhub", "dalia"} {
		p := PathsFor(out, key)
		for _, f := range []string{p.JSONL, p.Parquet, p.TFIDFIndex, p.TFIDFSimilarities, p.FullTextIndex, p.DiagnosticsReport} {
			assert.FileExists(t, f)
		}
		assert.NoFileExists(t, p.DenseIndex)
	}

	failed := PathsFor(out, "tess")
	assert.FileExists(t, failed.DiagnosticsReport)
	assert.NoFileExists(t, failed.JSONL)

	rep, err := diagnostics.ReadYAML(all.DiagnosticsReport)
	require.NoError(t, err)
	assert.Equal(t, AllKey, rep.Source)
	assert.Contains(t, tables.String(), "dalia: dropped (1)")
}

func TestRunWithoutMerge(t *testing.T) {
	out := t.TempDir()
	a := New(Config{OutputDir: out, Cutoff: 0.7})

	_, err := a.Run(context.Background(), testSources()[:1], false)
	require.NoError(t, err)
	assert.FileExists(t, PathsFor(out, "dalia").JSONL)
	assert.NoDirExists(t, PathsFor(out, AllKey).Dir)
}

func TestParallelMatchesSequential(t *testing.T) {
	run := func(parallel bool) string {
		out := t.TempDir()
		a := New(Config{OutputDir: out, Cutoff: 0.7, Parallel: parallel})
		_, _ = a.Run(context.Background(), testSources(), true)
		data, err := os.ReadFile(PathsFor(out, AllKey).JSONL)
		require.NoError(t, err)
		return string(data)
	}
	assert.Equal(t, run(false), run(true))
}

func TestDenseOutputs(t *testing.T) {
	out := t.TempDir()
	a := New(Config{OutputDir: out, Cutoff: 0.99, Embedder: fakeEmbedder{}})

	_, err := a.Run(context.Background(), testSources()[2:], false)
	require.NoError(t, err)

	p := PathsFor(out, "oerhub")
	index := readLines(t, p.DenseIndex)
	require.Len(t, index, 3)
	assert.Equal(t, "curie\t0\t1", index[0])
	assert.FileExists(t, p.DenseSimilarities)
}

func TestRunIsolatesWriteFailures(t *testing.T) {
	out := t.TempDir()
	a := New(Config{OutputDir: out, Cutoff: 0.7, Embedder: failingEmbedder{}})

	srcs := []sources.Source{
		fakeSource{name: "oerhub", titles: []string{"How to explode a star", "Astronomy"}, failAt: -1},
		fakeSource{name: "gtn", titles: []string{"Galaxy basics", "Galaxy workflows"}, failAt: -1},
	}
	results, err := a.Run(context.Background(), srcs, true)
	require.Error(t, err)
	assert.ErrorIs(t, err, errEmbed)

	require.Len(t, results, 2)
	assert.Equal(t, "oerhub", results[0].Source)
	assert.ErrorIs(t, results[0].Err, errEmbed)
	assert.Nil(t, results[0].Resources)
	assert.NoError(t, results[1].Err)

	failed := PathsFor(out, "oerhub")
	assert.FileExists(t, failed.DiagnosticsReport)
	for _, f := range []string{failed.JSONL, failed.Parquet, failed.TFIDFIndex, failed.FullTextIndex} {
		assert.NoFileExists(t, f)
	}

	gtn := PathsFor(out, "gtn")
	for _, f := range []string{gtn.JSONL, gtn.Parquet, gtn.TFIDFIndex, gtn.DenseIndex, gtn.FullTextIndex, gtn.DiagnosticsReport} {
		assert.FileExists(t, f)
	}

	merged, err := export.ReadJSONL(PathsFor(out, AllKey).JSONL)
	require.NoError(t, err)
	assert.Equal(t, []string{"gtn:0", "gtn:1"}, Keys(merged))
}

func TestRunSeedlessKeys(t *testing.T) {
	out := t.TempDir()
	a := New(Config{OutputDir: out, Cutoff: 0.7})

	srcs := []sources.Source{
		fakeSource{name: "dalia", titles: []string{"First sheet row", "Second sheet row"}, failAt: -1, noRef: true},
	}
	_, err := a.Run(context.Background(), srcs, true)
	require.NoError(t, err)

	merged, err := export.ReadJSONL(PathsFor(out, AllKey).JSONL)
	require.NoError(t, err)
	assert.Equal(t, []string{
		oer.StableUUID("dalia", "0").String(),
		oer.StableUUID("dalia", "1").String(),
	}, Keys(merged))

	idx, err := fulltext.Open(PathsFor(out, AllKey).FullTextIndex)
	require.NoError(t, err)
	defer idx.Close()
	n, err := idx.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSortSources(t *testing.T) {
	srcs := []sources.Source{
		fakeSource{name: "zeta"}, fakeSource{name: "dalia"}, fakeSource{name: "alpha"},
		fakeSource{name: "gtn"}, fakeSource{name: "oersi"},
	}
	var names []string
	for _, s := range SortSources(srcs) {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"oersi", "gtn", "dalia", "alpha", "zeta"}, names)
	assert.Equal(t, "zeta", srcs[0].Name(), "input is not reordered")
}

func TestPathsFor(t *testing.T) {
	p := PathsFor("out", "gtn")
	assert.Equal(t, filepath.Join("out", "gtn"), p.Dir)
	assert.Equal(t, filepath.Join("out", "gtn", "gtn-sqlite-full-text-index.db"), p.FullTextIndex)
	assert.Equal(t, filepath.Join("out", "gtn", "gtn-tfidf-similarities.tsv"), p.TFIDFSimilarities)
}
