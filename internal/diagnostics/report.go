package diagnostics

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"gopkg.in/yaml.v3"
)

// WriteYAML saves the report to path.
func (rep Report) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}

	data, err := yaml.Marshal(&rep)
	if err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write YAML file: %w", err)
	}
	return nil
}

// ReadYAML loads a report written by WriteYAML.
func ReadYAML(path string) (Report, error) {
	var rep Report
	data, err := os.ReadFile(path)
	if err != nil {
		return rep, fmt.Errorf("failed to read report: %w", err)
	}
	if err := yaml.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("failed to parse report: %w", err)
	}
	return rep, nil
}

// WriteTable prints the report as aligned text tables, at most limit rows
// per list (0 for all).
func (rep Report) WriteTable(w io.Writer, limit int) error {
	if rep.Empty() {
		_, err := fmt.Fprintf(w, "%s: nothing to report\n", rep.Source)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(rep.Unmapped) > 0 {
		fmt.Fprintf(tw, "\n%s: unmapped fields\n", rep.Source)
		fmt.Fprintln(tw, "FIELD\tCOUNT\tEXAMPLE")
		for _, it := range head(rep.Unmapped, limit) {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", it.Key, it.Count, it.Example)
		}
	}
	for _, c := range rep.Categories {
		fmt.Fprintf(tw, "\n%s: %s (%d)\n", rep.Source, c.Name, c.Total)
		fmt.Fprintln(tw, "VALUE\tCOUNT\tEXAMPLE")
		for _, it := range head(c.Items, limit) {
			fmt.Fprintf(tw, "%s\t%d\t%s\n", it.Key, it.Count, it.Example)
		}
	}
	return tw.Flush()
}

func head(items []Item, limit int) []Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
