package similarity

import (
	"context"
	"math"
	"slices"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// TFIDF weights raw term counts by smoothed inverse document frequency,
// idf(t) = ln((1+n)/(1+df(t))) + 1, and L2-normalizes each row. Tokens are
// runs of at least two letters, digits or underscores after case folding.
type TFIDF struct {
	stopWords map[string]struct{}
}

// NewTFIDF creates a vectorizer that drops the given stop words. Stop words
// are case-folded the same way as documents.
func NewTFIDF(stopWords []string) *TFIDF {
	folder := cases.Fold()
	sw := make(map[string]struct{}, len(stopWords))
	for _, w := range stopWords {
		sw[folder.String(w)] = struct{}{}
	}
	return &TFIDF{stopWords: sw}
}

func (t *TFIDF) Name() string { return "tfidf" }

// Tokenize returns the indexed terms of doc in order.
func (t *TFIDF) Tokenize(doc string) []string {
	doc = cases.Fold().String(norm.NFC.String(doc))

	var out []string
	start := -1
	flush := func(end int) {
		if start < 0 {
			return
		}
		tok := doc[start:end]
		start = -1
		if utf8.RuneCountInString(tok) < 2 {
			return
		}
		if _, stop := t.stopWords[tok]; stop {
			return
		}
		out = append(out, tok)
	}
	for i, r := range doc {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(doc))
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

// Vectorize fits the vocabulary on docs and returns their weighted vectors.
// Features are sorted lexicographically.
func (t *TFIDF) Vectorize(ctx context.Context, docs []string) (*Matrix, error) {
	counts := make([]map[string]int, len(docs))
	df := make(map[string]int)
	for i, doc := range docs {
		if i%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		c := make(map[string]int)
		for _, tok := range t.Tokenize(doc) {
			c[tok]++
		}
		for tok := range c {
			df[tok]++
		}
		counts[i] = c
	}

	features := make([]string, 0, len(df))
	for tok := range df {
		features = append(features, tok)
	}
	slices.Sort(features)
	index := make(map[string]int, len(features))
	idf := make([]float64, len(features))
	n := float64(len(docs))
	for j, tok := range features {
		index[tok] = j
		idf[j] = math.Log((1+n)/(1+float64(df[tok]))) + 1
	}

	idx := make([][]int, len(docs))
	val := make([][]float64, len(docs))
	for i, c := range counts {
		cols := make([]int, 0, len(c))
		for tok := range c {
			cols = append(cols, index[tok])
		}
		slices.Sort(cols)

		weights := make([]float64, len(cols))
		for k, j := range cols {
			weights[k] = float64(c[features[j]]) * idf[j]
		}
		if length := l2(weights); length > 0 {
			for k := range weights {
				weights[k] /= length
			}
		}
		idx[i], val[i] = cols, weights
	}
	return newSparse(features, idx, val), nil
}
