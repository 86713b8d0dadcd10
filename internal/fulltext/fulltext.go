// Package fulltext persists a corpus to SQLite with an FTS4 index over each
// resource's key, title, description and keywords, and answers ranked
// queries against it.
package fulltext

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when no resource has the requested key.
var ErrNotFound = errors.New("resource not found")

// Weights are per-column multipliers for the ranking function.
type Weights struct {
	Key         float64
	Title       float64
	Description float64
	Keywords    float64
}

// DefaultWeights favor titles over descriptions over keywords and ignore
// matches in the key.
var DefaultWeights = Weights{Key: 0, Title: 5, Description: 1, Keywords: 0.5}

func (w Weights) columns() []float64 {
	return []float64{w.Key, w.Title, w.Description, w.Keywords}
}

// StoredResource is one corpus entry, kept alongside the index so hits can
// be resolved to full records.
type StoredResource struct {
	Key      string `gorm:"primaryKey"`
	UUID     string `gorm:"index"`
	Platform string `gorm:"index"`
	Title    string
	Data     string
}

func (StoredResource) TableName() string { return "resources" }

const createDocuments = `CREATE VIRTUAL TABLE documents USING fts4(resource_key, title, description, keywords, tokenize=unicode61)`

// Hit is one ranked search result.
type Hit struct {
	Key   string
	Title string
	Score float64
}

// Index is an open full-text store.
type Index struct {
	db *gorm.DB
}

func open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return db, nil
}

// Open opens an existing index.
func Open(path string) (*Index, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

// Build writes a fresh index for resources at path, replacing any existing
// file. On failure the database handle is closed.
func Build(ctx context.Context, path string, resources []*oer.Resource) (*Index, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to remove old index: %w", err)
	}
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	idx := &Index{db: db}
	if err := populate(db.WithContext(ctx), resources); err != nil {
		if cerr := idx.Close(); cerr != nil {
			slog.Warn("Failed to close full text index", "path", path, "error", cerr)
		}
		return nil, err
	}

	slog.Info("Built full text index", "path", path, "resources", len(resources))
	return idx, nil
}

func populate(db *gorm.DB, resources []*oer.Resource) error {
	if err := db.AutoMigrate(&StoredResource{}); err != nil {
		return fmt.Errorf("failed to migrate resources table: %w", err)
	}
	if err := db.Exec(createDocuments).Error; err != nil {
		return fmt.Errorf("failed to create full text table: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		for _, r := range resources {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to encode %s: %w", r.Key(), err)
			}
			row := StoredResource{
				Key:      r.Key(),
				UUID:     r.UUID.String(),
				Platform: r.Platform,
				Title:    r.BestTitle(),
				Data:     string(data),
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to store %s: %w", row.Key, err)
			}
			err = tx.Exec(
				"INSERT INTO documents (resource_key, title, description, keywords) VALUES (?, ?, ?, ?)",
				r.Key(),
				strings.Join(r.Title.Texts(), " "),
				strings.Join(r.Description.Texts(), " "),
				r.KeywordText(),
			).Error
			if err != nil {
				return fmt.Errorf("failed to index %s: %w", row.Key, err)
			}
		}
		return nil
	})
}

// Close releases the database handle.
func (i *Index) Close() error {
	sqlDB, err := i.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type matchRow struct {
	ResourceKey string
	Title       string
	Info        []byte
}

// Search runs an FTS4 query, such as `chem*` or `"data management"`, and
// returns hits ranked by weighted term frequency, best first. Ties are
// broken by key. A limit of zero returns every hit.
func (i *Index) Search(ctx context.Context, query string, w Weights, limit int) ([]Hit, error) {
	var rows []matchRow
	err := i.db.WithContext(ctx).Raw(
		"SELECT resource_key, title, matchinfo(documents, 'pcx') AS info FROM documents WHERE documents MATCH ?",
		query,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", query, err)
	}

	weights := w.columns()
	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		score, err := rank(row.Info, weights)
		if err != nil {
			return nil, err
		}
		hits = append(hits, Hit{Key: row.ResourceKey, Title: row.Title, Score: score})
	}
	slices.SortStableFunc(hits, func(a, b Hit) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return strings.Compare(a.Key, b.Key)
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// rank scores a 'pcx' matchinfo blob: for every phrase and column, the
// column weight times this row's share of the phrase's hits in that column.
func rank(info []byte, weights []float64) (float64, error) {
	if len(info)%4 != 0 || len(info) < 8 {
		return 0, fmt.Errorf("malformed matchinfo of %d bytes", len(info))
	}
	ints := make([]uint32, len(info)/4)
	for k := range ints {
		ints[k] = binary.NativeEndian.Uint32(info[4*k:])
	}
	phrases, cols := int(ints[0]), int(ints[1])
	if len(ints) != 2+3*phrases*cols {
		return 0, fmt.Errorf("matchinfo has %d values for %d phrases and %d columns", len(ints), phrases, cols)
	}

	var score float64
	for p := 0; p < phrases; p++ {
		for c := 0; c < cols && c < len(weights); c++ {
			base := 2 + 3*(p*cols+c)
			hitsThisRow, hitsAllRows := ints[base], ints[base+1]
			if hitsAllRows > 0 {
				score += weights[c] * float64(hitsThisRow) / float64(hitsAllRows)
			}
		}
	}
	return score, nil
}

// Resource loads the stored record for key.
func (i *Index) Resource(ctx context.Context, key string) (*oer.Resource, error) {
	var row StoredResource
	err := i.db.WithContext(ctx).Where(&StoredResource{Key: key}).Limit(1).Find(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", key, err)
	}
	if row.Key == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	var r oer.Resource
	if err := json.Unmarshal([]byte(row.Data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return &r, nil
}

// Count returns the number of stored resources.
func (i *Index) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := i.db.WithContext(ctx).Model(&StoredResource{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count resources: %w", err)
	}
	return n, nil
}
