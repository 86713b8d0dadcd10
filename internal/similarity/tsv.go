package similarity

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// IndexColumn heads the key column of the vector file.
const IndexColumn = "curie"

// SimilarityHeader is the header row of the similarity file.
var SimilarityHeader = []string{"key_a", "title_a", "key_b", "title_b", "similarity"}

// WriteVectors writes one row per resource: its key followed by the vector.
// Sparse matrices are written expanded, with feature names as the header;
// dense matrices get numbered columns.
func WriteVectors(path string, keys []string, m *Matrix) error {
	if len(keys) != m.Len() {
		return fmt.Errorf("got %d keys for %d vectors", len(keys), m.Len())
	}
	return writeTSV(path, func(w *csv.Writer) error {
		header := make([]string, 0, m.Dim()+1)
		header = append(header, IndexColumn)
		if m.Sparse() {
			header = append(header, m.Features...)
		} else {
			for j := 0; j < m.Dim(); j++ {
				header = append(header, strconv.Itoa(j))
			}
		}
		if err := w.Write(header); err != nil {
			return err
		}

		record := make([]string, m.Dim()+1)
		for i, key := range keys {
			record[0] = key
			for j, x := range m.Row(i) {
				record[j+1] = formatFloat(x)
			}
			if err := w.Write(record); err != nil {
				return err
			}
		}
		return nil
	})
}

// WriteSimilarities writes the pair list with a header row.
func WriteSimilarities(path string, pairs []Pair) error {
	return writeTSV(path, func(w *csv.Writer) error {
		if err := w.Write(SimilarityHeader); err != nil {
			return err
		}
		for _, p := range pairs {
			if err := w.Write([]string{p.KeyA, p.TitleA, p.KeyB, p.TitleB, formatFloat(p.Similarity)}); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeTSV(path string, fn func(*csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'
	if err := fn(w); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
