// Package similarity builds per-resource document vectors, finds
// near-duplicate pairs by cosine similarity and writes both as TSV files.
package similarity

import (
	"context"
	"fmt"
	"math"
)

// Vectorizer turns documents into one vector each, in input order.
type Vectorizer interface {
	// Name labels output files, such as "tfidf".
	Name() string
	Vectorize(ctx context.Context, docs []string) (*Matrix, error)
}

type row struct {
	// idx is nil for dense rows.
	idx  []int
	val  []float64
	norm float64
}

// Matrix holds one row per document. Rows are either all sparse, indexed
// into Features, or all dense with Dim columns.
type Matrix struct {
	// Features names the columns of a sparse matrix. It is nil for dense
	// matrices, whose columns are anonymous.
	Features []string
	dim      int
	rows     []row
}

// NewDense builds a dense matrix. Every vector must have the same length.
func NewDense(vectors [][]float32) (*Matrix, error) {
	m := &Matrix{rows: make([]row, len(vectors))}
	for i, v := range vectors {
		if i == 0 {
			m.dim = len(v)
		} else if len(v) != m.dim {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), m.dim)
		}
		val := make([]float64, len(v))
		for j, x := range v {
			val[j] = float64(x)
		}
		m.rows[i] = row{val: val, norm: l2(val)}
	}
	return m, nil
}

// newSparse builds a sparse matrix; each row's indices must be ascending.
func newSparse(features []string, idx [][]int, val [][]float64) *Matrix {
	m := &Matrix{Features: features, dim: len(features), rows: make([]row, len(idx))}
	for i := range idx {
		m.rows[i] = row{idx: idx[i], val: val[i], norm: l2(val[i])}
	}
	return m
}

// Len is the number of rows.
func (m *Matrix) Len() int { return len(m.rows) }

// Dim is the number of columns.
func (m *Matrix) Dim() int { return m.dim }

// Sparse reports whether the columns are named features.
func (m *Matrix) Sparse() bool { return m.Features != nil }

// Row expands row i into a dense slice.
func (m *Matrix) Row(i int) []float64 {
	r := m.rows[i]
	if r.idx == nil {
		return r.val
	}
	out := make([]float64, m.dim)
	for k, j := range r.idx {
		out[j] = r.val[k]
	}
	return out
}

// Cosine returns the cosine similarity of rows i and j. A zero vector has
// similarity 0 to everything.
func (m *Matrix) Cosine(i, j int) float64 {
	a, b := m.rows[i], m.rows[j]
	if a.norm == 0 || b.norm == 0 {
		return 0
	}
	return dot(a, b) / (a.norm * b.norm)
}

func dot(a, b row) float64 {
	var sum float64
	if a.idx == nil {
		for k := range a.val {
			sum += a.val[k] * b.val[k]
		}
		return sum
	}
	for p, q := 0, 0; p < len(a.idx) && q < len(b.idx); {
		switch {
		case a.idx[p] == b.idx[q]:
			sum += a.val[p] * b.val[q]
			p++
			q++
		case a.idx[p] < b.idx[q]:
			p++
		default:
			q++
		}
	}
	return sum
}

func l2(v []float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
