package normalize

import (
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
)

// Vocabulary maps raw categorical values to controlled terms. A key mapped to
// "" is known but has no useful term and is dropped silently; keys missing
// from the table are dropped and counted.
type Vocabulary struct {
	Name     string
	Terms    map[string]string
	FoldCase bool
}

// Lookup maps one value. ok is false when the value is not in the table.
func (v Vocabulary) Lookup(raw string) (term string, ok bool) {
	key := strings.TrimSpace(raw)
	if v.FoldCase {
		key = strings.ToLower(key)
	}
	term, ok = v.Terms[key]
	return term, ok
}

// Map maps every value, keeping order and dropping duplicates. Unknown values
// are counted on rec under the vocabulary's name.
func (v Vocabulary) Map(values []string, rec *diagnostics.Recorder) []string {
	var out []string
	seen := make(map[string]bool)
	for _, raw := range values {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		term, ok := v.Lookup(raw)
		if !ok {
			if rec != nil {
				rec.Count(diagnostics.UnmappedValueCategory(v.Name), strings.ToLower(strings.TrimSpace(raw)))
			}
			continue
		}
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		out = append(out, term)
	}
	return out
}
