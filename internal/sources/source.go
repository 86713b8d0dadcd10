// Package sources defines the contract every provider mapper implements and
// the helpers they share for reading untyped provider records.
package sources

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
)

// Source is one provider. Records is a lazy sequence of raw records; each
// call starts a fresh pass. Map converts one record and returns nil without
// an error when the record is dropped. A non-nil error from either method is
// fatal for the whole source.
type Source interface {
	Name() string
	Records(ctx context.Context) iter.Seq2[Record, error]
	Map(ctx context.Context, r Record, rec *diagnostics.Recorder) (*oer.Resource, error)
}

// MappingError attaches the offending record to a fatal mapping failure.
type MappingError struct {
	Source string
	Record string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("%s: failed to map record %s: %v", e.Source, e.Record, e.Err)
}

func (e *MappingError) Unwrap() error { return e.Err }

// Collect drains src into a list of resources in record order. Resources
// without a reference are identified by their record locator, numbered when
// a locator repeats. A resource whose key was already collected is dropped
// as a duplicate.
func Collect(ctx context.Context, src Source, rec *diagnostics.Recorder) ([]*oer.Resource, error) {
	var out []*oer.Resource
	seen := 0
	locators := map[string]int{}
	keys := map[string]struct{}{}
	for r, err := range src.Records(ctx) {
		if err != nil {
			return out, fmt.Errorf("%s: failed to read records: %w", src.Name(), err)
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		seen++

		res, err := src.Map(ctx, r, rec)
		if err != nil {
			return out, &MappingError{Source: src.Name(), Record: r.ID(), Err: err}
		}
		if res == nil {
			continue
		}

		locator := r.ID()
		locators[locator]++
		if n := locators[locator]; n > 1 {
			locator = fmt.Sprintf("%s#%d", locator, n)
		}
		res.Identify(locator)
		if _, dup := keys[res.Key()]; dup {
			slog.Warn("Duplicate resource key", "source", src.Name(), "record", r.ID(), "key", res.Key())
			Drop(rec, r, "duplicate_key")
			continue
		}
		keys[res.Key()] = struct{}{}
		out = append(out, res)

		if seen%1000 == 0 {
			slog.Debug("Mapping records", "source", src.Name(), "records_read", seen, "resources", len(out))
		}
	}

	slog.Info("Mapped source", "source", src.Name(), "records", seen, "resources", len(out))
	return out, nil
}

// Drop counts a record that was skipped and returns the nil resource that
// signals it.
func Drop(rec *diagnostics.Recorder, r Record, reason string) (*oer.Resource, error) {
	slog.Debug("Dropping record", "source", rec.Source(), "record", r.ID(), "reason", reason)
	rec.CountExample(diagnostics.CategoryDropped, reason, r.ID())
	return nil, nil
}
