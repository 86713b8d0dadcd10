// Package export writes a corpus to line-delimited JSON and Parquet and reads
// either format back.
package export

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
)

// maxLine bounds a single JSONL record.
const maxLine = 10 * 1024 * 1024

// Load reads a corpus file, choosing the format from its extension.
func Load(path string) ([]*oer.Resource, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".parquet":
		return ReadParquet(path)
	case ".jsonl", ".json":
		return ReadJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .parquet, .jsonl)", ext)
	}
}

// WriteJSONL writes one compact JSON object per resource.
func WriteJSONL(path string, resources []*oer.Resource) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range resources {
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("failed to encode %s: %w", r.Key(), err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	slog.Debug("Wrote JSONL", "path", path, "resources", len(resources))
	return f.Close()
}

// ReadJSONL reads a file written by WriteJSONL. Blank lines are skipped.
func ReadJSONL(path string) ([]*oer.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	var out []*oer.Resource
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var r oer.Resource
		if err := json.Unmarshal(line, &r); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		out = append(out, &r)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading corpus: %w", err)
	}
	return out, nil
}
