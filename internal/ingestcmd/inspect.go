package ingestcmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/config"
	"github.com/data-literacy-alliance/oerbservatory/internal/corpus"
	"github.com/data-literacy-alliance/oerbservatory/internal/export"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/spf13/cobra"
)

// NewInspectCmd prints records from a written corpus.
func NewInspectCmd() *cobra.Command {
	var (
		corpusKey string
		file      string
		limit     int
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print records from a JSONL or Parquet corpus",
		Long: `Reads a corpus file written by an ingest command and prints its records,
either as a readable summary or as the stored JSON.`,
		Example: `  # First 5 records of the merged corpus
  oerbservatory inspect --limit 5

  # Every TeSS record from the Parquet file, as JSON
  oerbservatory inspect --file output/tess/tess.parquet --limit 0 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				file = corpus.PathsFor(cfg.OutputDir, corpusKey).JSONL
			}
			return executeInspect(cmd.OutOrStdout(), file, limit, asJSON)
		},
	}

	cmd.Flags().StringVar(&corpusKey, "corpus", corpus.AllKey, "Corpus to read (a source key or all)")
	cmd.Flags().StringVar(&file, "file", "", "Path to a .jsonl or .parquet corpus (overrides --corpus)")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of records to print (0 for all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON lines")

	return cmd
}

func executeInspect(w io.Writer, file string, limit int, asJSON bool) error {
	resources, err := export.Load(file)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}
	total := len(resources)
	if limit > 0 && len(resources) > limit {
		resources = resources[:limit]
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetEscapeHTML(false)
		for _, r := range resources {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprintf(w, "Loaded %d records from %s\n", total, file)
	fmt.Fprintln(w, strings.Repeat("=", 80))
	for i, r := range resources {
		fmt.Fprintf(w, "\nRECORD %d/%d\n", i+1, total)
		fmt.Fprintln(w, strings.Repeat("-", 80))
		printResource(w, r)
	}
	return nil
}

func printResource(w io.Writer, r *oer.Resource) {
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%-14s %s\n", label+":", value)
		}
	}
	field("Key", r.Key())
	field("Platform", r.Platform)
	field("Title", r.BestTitle())
	if r.License != nil {
		field("License", r.License.String())
	}
	var authors []string
	for _, a := range r.Authors {
		authors = append(authors, a.DisplayName())
	}
	field("Authors", strings.Join(authors, "; "))
	field("Languages", strings.Join(r.Languages, ", "))
	field("Keywords", r.KeywordText())
	field("Types", strings.Join(r.ResourceTypes, ", "))
	field("Difficulty", strings.Join(r.DifficultyLevel, ", "))
	field("Published", r.DatePublished)
	field("URL", r.ExternalURI)
	if desc := r.Description.Best(); desc != "" {
		if runes := []rune(desc); len(runes) > 500 {
			desc = string(runes[:500]) + "..."
		}
		fmt.Fprintf(w, "\n%s\n", desc)
	}
}
