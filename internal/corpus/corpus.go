// Package corpus runs the source mappers, concatenates their output in a
// fixed order and writes every per-source and merged artifact.
package corpus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/providers"
	"github.com/data-literacy-alliance/oerbservatory/internal/similarity"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"golang.org/x/sync/errgroup"
)

// AllKey names the merged output.
const AllKey = "all"

// Order is the merged-corpus order of the known sources. Sources not listed
// sort after these, by name.
var Order = []string{"oerhub", "oersi", "tess", "gtn", "dalia"}

// Config controls an assembler run.
type Config struct {
	OutputDir string
	Cutoff    float64
	// Parallel maps sources concurrently. Output order is unaffected.
	Parallel bool
	// Embedder enables the dense similarity outputs when set.
	Embedder  providers.Embedder
	StopWords []string
	// Out receives the diagnostics tables. Nil discards them.
	Out        io.Writer
	TableLimit int
}

// Assembler builds corpora and their artifacts.
type Assembler struct {
	cfg   Config
	tfidf *similarity.TFIDF
	dense *similarity.Dense
}

// New creates an assembler.
func New(cfg Config) *Assembler {
	if cfg.Out == nil {
		cfg.Out = io.Discard
	}
	if cfg.StopWords == nil {
		cfg.StopWords = similarity.DefaultStopWords()
	}
	if cfg.TableLimit == 0 {
		cfg.TableLimit = 25
	}
	a := &Assembler{cfg: cfg, tfidf: similarity.NewTFIDF(cfg.StopWords)}
	if cfg.Embedder != nil {
		a.dense = similarity.NewDenseVectorizer(cfg.Embedder)
	}
	return a
}

// Result is one source's mapped records and diagnostics. Err is set when the
// source failed; its Resources are then discarded.
type Result struct {
	Source      string
	Resources   []*oer.Resource
	Diagnostics *diagnostics.Recorder
	Err         error
}

// SortSources orders srcs by Order.
func SortSources(srcs []sources.Source) []sources.Source {
	out := slices.Clone(srcs)
	rank := func(name string) int {
		if i := slices.Index(Order, name); i >= 0 {
			return i
		}
		return len(Order)
	}
	slices.SortStableFunc(out, func(a, b sources.Source) int {
		if d := rank(a.Name()) - rank(b.Name()); d != 0 {
			return d
		}
		if rank(a.Name()) == len(Order) {
			switch {
			case a.Name() < b.Name():
				return -1
			case a.Name() > b.Name():
				return 1
			}
		}
		return 0
	})
	return out
}

// Collect maps every source. A failing source is logged and reported in its
// Result; the others still run. Results follow the order of srcs.
func (a *Assembler) Collect(ctx context.Context, srcs []sources.Source) []Result {
	results := make([]Result, len(srcs))
	run := func(i int) {
		src := srcs[i]
		rec := diagnostics.NewRecorder(src.Name())
		start := time.Now()
		resources, err := sources.Collect(ctx, src, rec)
		results[i] = Result{Source: src.Name(), Diagnostics: rec}
		if err != nil {
			slog.Error("Source failed", "source", src.Name(), "error", err)
			results[i].Err = err
			return
		}
		results[i].Resources = resources
		slog.Info("Collected source", "source", src.Name(), "resources", len(resources), "elapsed", time.Since(start).Round(time.Millisecond))
	}

	if !a.cfg.Parallel {
		for i := range srcs {
			run(i)
		}
		return results
	}

	var g errgroup.Group
	for i := range srcs {
		g.Go(func() error {
			run(i)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Run collects srcs in merged order and writes each successful source's
// outputs. With merged set it also writes the concatenated AllKey corpus.
// A source that fails while mapping or writing keeps only its diagnostics
// report and is left out of the merged corpus; the others are still
// written. The returned error joins the failures.
func (a *Assembler) Run(ctx context.Context, srcs []sources.Source, merged bool) ([]Result, error) {
	results := a.Collect(ctx, SortSources(srcs))

	var (
		all      []*oer.Resource
		allDiag  = diagnostics.NewRecorder(AllKey)
		failures []error
	)
	for i := range results {
		res := &results[i]
		allDiag.Merge(res.Diagnostics)
		if res.Err == nil {
			if err := a.Write(ctx, res.Source, res.Resources, res.Diagnostics); err != nil {
				slog.Error("Failed to write source", "source", res.Source, "error", err)
				res.Err = err
				res.Resources = nil
			}
		}
		if res.Err != nil {
			failures = append(failures, res.Err)
			if err := a.discard(res.Source, res.Diagnostics); err != nil {
				failures = append(failures, err)
			}
			continue
		}
		all = append(all, res.Resources...)
	}

	if merged {
		if err := a.Write(ctx, AllKey, all, allDiag); err != nil {
			slog.Error("Failed to write merged corpus", "error", err)
			failures = append(failures, err)
			if err := a.discard(AllKey, allDiag); err != nil {
				failures = append(failures, err)
			}
		}
	}
	return results, errors.Join(failures...)
}

// discard removes any partial outputs for key and writes only its
// diagnostics.
func (a *Assembler) discard(key string, rec *diagnostics.Recorder) error {
	if err := os.RemoveAll(a.paths(key).Dir); err != nil {
		return fmt.Errorf("failed to remove partial outputs for %s: %w", key, err)
	}
	return a.writeDiagnostics(key, rec)
}

// Paths lists the artifacts written for key under dir.
type Paths struct {
	Dir               string
	JSONL             string
	Parquet           string
	TFIDFIndex        string
	TFIDFSimilarities string
	DenseIndex        string
	DenseSimilarities string
	FullTextIndex     string
	DiagnosticsReport string
}

// PathsFor returns the artifact layout for key.
func PathsFor(outputDir, key string) Paths {
	dir := filepath.Join(outputDir, key)
	name := func(suffix string) string { return filepath.Join(dir, key+suffix) }
	return Paths{
		Dir:               dir,
		JSONL:             name(".jsonl"),
		Parquet:           name(".parquet"),
		TFIDFIndex:        name("-tfidf-index.tsv"),
		TFIDFSimilarities: name("-tfidf-similarities.tsv"),
		DenseIndex:        name("-dense-index.tsv"),
		DenseSimilarities: name("-dense-similarities.tsv"),
		FullTextIndex:     name("-sqlite-full-text-index.db"),
		DiagnosticsReport: name("-diagnostics.yaml"),
	}
}

func (a *Assembler) paths(key string) Paths {
	return PathsFor(a.cfg.OutputDir, key)
}

// Keys returns the index key of each resource.
func Keys(resources []*oer.Resource) []string {
	keys := make([]string, len(resources))
	for i, r := range resources {
		keys[i] = r.Key()
	}
	return keys
}

// Documents returns the text each vectorizer indexes.
func Documents(resources []*oer.Resource) []string {
	docs := make([]string, len(resources))
	for i, r := range resources {
		docs[i] = r.Document()
	}
	return docs
}

func (a *Assembler) index(ctx context.Context, v similarity.Vectorizer, resources []*oer.Resource, indexPath, simPath string) error {
	start := time.Now()
	m, err := v.Vectorize(ctx, Documents(resources))
	if err != nil {
		return fmt.Errorf("failed to vectorize with %s: %w", v.Name(), err)
	}
	if err := similarity.WriteVectors(indexPath, Keys(resources), m); err != nil {
		return err
	}
	pairs, err := similarity.Pairs(ctx, resources, m, a.cfg.Cutoff)
	if err != nil {
		return err
	}
	if err := similarity.WriteSimilarities(simPath, pairs); err != nil {
		return err
	}
	slog.Info("Wrote similarity index",
		"vectorizer", v.Name(),
		"resources", len(resources),
		"dimensions", m.Dim(),
		"pairs", len(pairs),
		"cutoff", a.cfg.Cutoff,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func (a *Assembler) writeDiagnostics(key string, rec *diagnostics.Recorder) error {
	p := a.paths(key)
	rep := rec.Report()
	if err := rep.WriteYAML(p.DiagnosticsReport); err != nil {
		return err
	}
	if err := rep.WriteTable(a.cfg.Out, a.cfg.TableLimit); err != nil {
		return fmt.Errorf("failed to print diagnostics: %w", err)
	}
	return nil
}
