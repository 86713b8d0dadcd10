package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/export"
	"github.com/data-literacy-alliance/oerbservatory/internal/fulltext"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
)

// Write produces every artifact for one corpus under <output>/<key>/.
func (a *Assembler) Write(ctx context.Context, key string, resources []*oer.Resource, rec *diagnostics.Recorder) error {
	p := a.paths(key)
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	slog.Info("Writing corpus", "corpus", key, "resources", len(resources), "dir", p.Dir)

	if err := export.WriteJSONL(p.JSONL, resources); err != nil {
		return err
	}
	if err := export.WriteParquet(p.Parquet, resources); err != nil {
		return err
	}

	if err := a.index(ctx, a.tfidf, resources, p.TFIDFIndex, p.TFIDFSimilarities); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if a.dense != nil {
		if err := a.index(ctx, a.dense, resources, p.DenseIndex, p.DenseSimilarities); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}

	idx, err := fulltext.Build(ctx, p.FullTextIndex, resources)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if err := idx.Close(); err != nil {
		return fmt.Errorf("failed to close full text index: %w", err)
	}

	return a.writeDiagnostics(key, rec)
}
