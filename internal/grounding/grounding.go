// Package grounding resolves free-text person and organization names to
// registry identifiers.
package grounding

import (
	"context"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Match is one registry candidate for a name.
type Match struct {
	Name       string
	Identifier string
}

// Grounder looks up registry candidates for a free-text name. Callers treat
// anything other than exactly one match as unresolved.
type Grounder interface {
	GetMatches(ctx context.Context, text string) ([]Match, error)
}

var folder = cases.Fold()

// NormalizeName folds case, applies NFC and collapses whitespace so names
// from different sources compare equal.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(folder.String(norm.NFC.String(name))), " ")
}

// Static grounds names from a fixed table. It is used for offline runs and
// for curated overrides.
type Static struct {
	entries map[string][]Match
}

// NewStatic builds a static grounder; lookups ignore case and spacing.
func NewStatic(matches ...Match) *Static {
	s := &Static{entries: make(map[string][]Match)}
	for _, m := range matches {
		key := NormalizeName(m.Name)
		s.entries[key] = append(s.entries[key], m)
	}
	return s
}

func (s *Static) GetMatches(_ context.Context, text string) ([]Match, error) {
	return s.entries[NormalizeName(text)], nil
}

// None never finds a match.
type None struct{}

func (None) GetMatches(context.Context, string) ([]Match, error) { return nil, nil }

// Cached memoizes another grounder. Authors repeat heavily across a catalog,
// so each distinct name is looked up once per run.
type Cached struct {
	inner Grounder
	mu    sync.Mutex
	seen  map[string][]Match
}

// NewCached wraps inner.
func NewCached(inner Grounder) *Cached {
	return &Cached{inner: inner, seen: make(map[string][]Match)}
}

func (c *Cached) GetMatches(ctx context.Context, text string) ([]Match, error) {
	key := NormalizeName(text)

	c.mu.Lock()
	matches, ok := c.seen[key]
	c.mu.Unlock()
	if ok {
		return matches, nil
	}

	matches, err := c.inner.GetMatches(ctx, text)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.seen[key] = matches
	c.mu.Unlock()
	return matches, nil
}
