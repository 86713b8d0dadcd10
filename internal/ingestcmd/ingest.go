// Package ingestcmd holds the ingestion, search and inspection commands.
package ingestcmd

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/data-literacy-alliance/oerbservatory/internal/config"
	"github.com/data-literacy-alliance/oerbservatory/internal/corpus"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/spf13/cobra"
)

type ingestOptions struct {
	refresh bool
	cutoff  float64
}

func (o *ingestOptions) bind(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.refresh, "refresh", false, "Re-fetch remote data instead of using the cache")
	cmd.Flags().Float64Var(&o.cutoff, "cutoff", 0, "Similarity cutoff; pairs must exceed it (default from OERBSERVATORY_SIMILARITY_CUTOFF, else 0.7)")
}

// resolveCutoff prefers the flag when it was given.
func (o *ingestOptions) resolveCutoff(cmd *cobra.Command, rt *runtime) (float64, error) {
	if !cmd.Flags().Changed("cutoff") {
		return rt.cfg.Cutoff, nil
	}
	if err := config.ValidateCutoff(o.cutoff); err != nil {
		return 0, err
	}
	return o.cutoff, nil
}

func newSourceCmd(name, short, long, example string) *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:     name,
		Short:   short,
		Long:    long,
		Example: example,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeIngest(cmd, &opts, []string{name}, false)
		},
	}
	opts.bind(cmd)
	return cmd
}

// NewDALIACmd ingests the DALIA curation sheets.
func NewDALIACmd() *cobra.Command {
	return newSourceCmd("dalia",
		"Ingest DALIA curation sheets",
		`Reads DALIA curation sheets in CSV or XLSX form, from DALIA_CURATION_DIR
and DALIA_CURATION_URLS, and writes the dalia corpus and its indexes.`,
		`  # Ingest the default NFDI4Chem sheet
  oerbservatory dalia

  # Ingest a local checkout of the curation repository
  DALIA_CURATION_DIR=./dalia-curation/curation oerbservatory dalia`)
}

// NewGTNCmd ingests the Galaxy Training Network.
func NewGTNCmd() *cobra.Command {
	return newSourceCmd("gtn",
		"Ingest Galaxy Training Network tutorials",
		`Walks the GTN topic API, reads each tutorial's front matter and writes the
gtn corpus and its indexes.`,
		`  oerbservatory gtn --refresh`)
}

// NewOERhubCmd ingests OERhub.
func NewOERhubCmd() *cobra.Command {
	return newSourceCmd("oerhub",
		"Ingest OERhub search results",
		`Runs one bulk OERhub search, caches the response and writes the oerhub
corpus and its indexes.`,
		`  oerbservatory oerhub --cutoff 0.8`)
}

// NewOERSICmd ingests the OERSI dump.
func NewOERSICmd() *cobra.Command {
	return newSourceCmd("oersi",
		"Ingest the OERSI dump",
		`Streams the gzip-compressed OERSI dump and writes the oersi corpus and its
indexes.`,
		`  oerbservatory oersi`)
}

// NewTeSSCmd ingests TeSS instances.
func NewTeSSCmd() *cobra.Command {
	return newSourceCmd("tess",
		"Ingest TeSS training materials",
		`Pages through the materials of every configured TeSS instance (TESS_INSTANCES,
default all known) and writes the tess corpus and its indexes.`,
		`  TESS_INSTANCES=tess,taxila oerbservatory tess`)
}

// NewAllCmd ingests every source and writes the merged corpus.
func NewAllCmd() *cobra.Command {
	var opts ingestOptions
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Ingest every source and build the merged corpus",
		Long: `Runs every source in a fixed order (` + strings.Join(corpus.Order, ", ") + `), writes
each source's outputs and a merged "all" corpus. A source that fails is
reported and skipped; the remaining sources are still written.`,
		Example: `  oerbservatory all
  OERBSERVATORY_PARALLEL=true EMBEDDING_PROVIDER=ollama oerbservatory all --refresh`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeIngest(cmd, &opts, corpus.Order, true)
		},
	}
	opts.bind(cmd)
	return cmd
}

func executeIngest(cmd *cobra.Command, opts *ingestOptions, names []string, merged bool) error {
	rt, err := loadRuntime(opts.refresh)
	if err != nil {
		return err
	}
	cutoff, err := opts.resolveCutoff(cmd, rt)
	if err != nil {
		return err
	}

	srcs := make([]sources.Source, 0, len(names))
	for _, name := range names {
		src, err := rt.source(name)
		if err != nil {
			return err
		}
		srcs = append(srcs, src)
	}

	var out io.Writer = os.Stdout
	if cmd != nil {
		out = cmd.OutOrStdout()
	}
	return runIngest(contextOf(cmd), rt.assembler(cutoff, out), srcs, merged)
}

func runIngest(ctx context.Context, a *corpus.Assembler, srcs []sources.Source, merged bool) error {
	start := time.Now()
	results, err := a.Run(ctx, srcs, merged)

	total := 0
	for _, res := range results {
		if res.Err == nil {
			total += len(res.Resources)
		}
	}
	slog.Info("Ingestion finished", "sources", len(results), "resources", total, "elapsed", time.Since(start).Round(time.Millisecond))
	return err
}

func contextOf(cmd *cobra.Command) context.Context {
	if cmd != nil && cmd.Context() != nil {
		return cmd.Context()
	}
	return context.Background()
}
