package ingestcmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/data-literacy-alliance/oerbservatory/internal/config"
	"github.com/data-literacy-alliance/oerbservatory/internal/corpus"
	"github.com/data-literacy-alliance/oerbservatory/internal/fulltext"
	"github.com/spf13/cobra"
)

// NewSearchCmd queries a corpus' full-text index.
func NewSearchCmd() *cobra.Command {
	var (
		corpusKey string
		dbPath    string
		limit     int
		weights   = fulltext.DefaultWeights
	)

	cmd := &cobra.Command{
		Use:   "search QUERY...",
		Short: "Search a corpus' full-text index",
		Long: `Runs a ranked full-text query against the SQLite index written by an ingest
command. The query uses SQLite FTS syntax: terms, "quoted phrases", prefix*
terms and AND/OR/NOT.`,
		Example: `  # Search the merged corpus
  oerbservatory search "research data management"

  # Prefix search in the GTN corpus only
  oerbservatory search --corpus gtn 'chem*'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dbPath = corpus.PathsFor(cfg.OutputDir, corpusKey).FullTextIndex
			}
			return executeSearch(cmd, dbPath, strings.Join(args, " "), weights, limit)
		},
	}

	cmd.Flags().StringVar(&corpusKey, "corpus", corpus.AllKey, "Corpus to search (a source key or all)")
	cmd.Flags().StringVar(&dbPath, "db", "", "Path to an index database (overrides --corpus)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of hits (0 for all)")
	cmd.Flags().Float64Var(&weights.Title, "title-weight", weights.Title, "Ranking weight of title matches")
	cmd.Flags().Float64Var(&weights.Description, "description-weight", weights.Description, "Ranking weight of description matches")
	cmd.Flags().Float64Var(&weights.Keywords, "keywords-weight", weights.Keywords, "Ranking weight of keyword matches")

	return cmd
}

func executeSearch(cmd *cobra.Command, dbPath, query string, weights fulltext.Weights, limit int) error {
	idx, err := fulltext.Open(dbPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	hits, err := idx.Search(contextOf(cmd), query, weights, limit)
	if err != nil {
		return err
	}
	return writeHits(cmd.OutOrStdout(), hits)
}

func writeHits(w io.Writer, hits []fulltext.Hit) error {
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, "No matches.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tSCORE\tKEY\tTITLE")
	for i, h := range hits {
		fmt.Fprintf(tw, "%d\t%.3f\t%s\t%s\n", i+1, h.Score, h.Key, h.Title)
	}
	return tw.Flush()
}
