package similarity

import (
	"context"
	"fmt"
	"runtime"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"golang.org/x/sync/errgroup"
)

// DefaultCutoff is the similarity a pair must exceed to be reported.
const DefaultCutoff = 0.7

// Pair is a near-duplicate candidate. A is the resource that comes first in
// the corpus.
type Pair struct {
	KeyA       string
	TitleA     string
	KeyB       string
	TitleB     string
	Similarity float64
}

// Pairs compares every unordered pair of resources and returns those whose
// cosine similarity strictly exceeds cutoff. Rows are ordered by the later
// resource's corpus position, then by the earlier one's. Row comparisons run
// in parallel; the result does not depend on scheduling.
func Pairs(ctx context.Context, resources []*oer.Resource, m *Matrix, cutoff float64) ([]Pair, error) {
	if m.Len() != len(resources) {
		return nil, fmt.Errorf("matrix has %d rows for %d resources", m.Len(), len(resources))
	}

	keys := make([]string, len(resources))
	titles := make([]string, len(resources))
	for i, r := range resources {
		keys[i] = r.Key()
		titles[i] = r.BestTitle()
	}

	found := make([][]Pair, len(resources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range resources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var out []Pair
			for j := 0; j < i; j++ {
				if sim := m.Cosine(i, j); sim > cutoff {
					out = append(out, Pair{
						KeyA: keys[j], TitleA: titles[j],
						KeyB: keys[i], TitleB: titles[i],
						Similarity: sim,
					})
				}
			}
			found[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var pairs []Pair
	for _, p := range found {
		pairs = append(pairs, p...)
	}
	return pairs, nil
}
