package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"
)

// Row is the flattened Parquet layout of a resource. Localized strings,
// authors and communities are stored as JSON text; everything else is a
// plain column.
type Row struct {
	UUID      string `parquet:"uuid"`
	Key       string `parquet:"key"`
	Reference string `parquet:"reference"`
	Platform  string `parquet:"platform"`

	Title           string `parquet:"title"`
	TitleJSON       string `parquet:"title_json"`
	DescriptionJSON string `parquet:"description_json"`
	KeywordsJSON    string `parquet:"keywords_json"`
	AuthorsJSON     string `parquet:"authors_json"`
	License         string `parquet:"license"`

	Disciplines     []string `parquet:"disciplines,list"`
	ResourceTypes   []string `parquet:"resource_types,list"`
	MediaTypes      []string `parquet:"media_types,list"`
	DifficultyLevel []string `parquet:"difficulty_level,list"`
	Audience        []string `parquet:"audience,list"`
	Languages       []string `parquet:"languages,list"`
	FileFormats     []string `parquet:"file_formats,list"`
	Xrefs           []string `parquet:"xrefs,list"`

	FileSize *int64 `parquet:"file_size,optional"`

	Logo              string   `parquet:"logo"`
	ExternalURI       string   `parquet:"external_uri"`
	ExternalURIExtras []string `parquet:"external_uri_extras,list"`

	Version            string `parquet:"version"`
	DatePublished      string `parquet:"date_published"`
	DateModified       string `parquet:"date_modified"`
	Status             string `parquet:"status"`
	LearningObjectives string `parquet:"learning_objectives"`
	DerivedFrom        string `parquet:"derived_from"`

	SupportingJSON   string `parquet:"supporting_communities_json"`
	RecommendingJSON string `parquet:"recommending_communities_json"`
}

func encode[T any](v T, empty bool) (string, error) {
	if empty {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decode[T any](s string, v *T) error {
	if s == "" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

func nonEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return slices.Clone(s)
}

// ToRow flattens a resource.
func ToRow(r *oer.Resource) (Row, error) {
	row := Row{
		UUID:               r.UUID.String(),
		Key:                r.Key(),
		Platform:           r.Platform,
		Title:              r.BestTitle(),
		Disciplines:        r.Disciplines,
		ResourceTypes:      r.ResourceTypes,
		MediaTypes:         r.MediaTypes,
		DifficultyLevel:    r.DifficultyLevel,
		Audience:           r.Audience,
		Languages:          r.Languages,
		FileFormats:        r.FileFormats,
		FileSize:           r.FileSize,
		Logo:               r.Logo,
		ExternalURI:        r.ExternalURI,
		ExternalURIExtras:  r.ExternalURIExtras,
		Version:            r.Version,
		DatePublished:      r.DatePublished,
		DateModified:       r.DateModified,
		Status:             r.Status,
		LearningObjectives: r.LearningObjectives,
		DerivedFrom:        r.DerivedFrom,
	}
	if r.Reference != nil {
		row.Reference = r.Reference.String()
	}
	if r.License != nil {
		row.License = r.License.String()
	}
	for _, x := range r.Xrefs {
		row.Xrefs = append(row.Xrefs, x.String())
	}

	var err error
	if row.TitleJSON, err = encode(r.Title, len(r.Title) == 0); err != nil {
		return Row{}, err
	}
	if row.DescriptionJSON, err = encode(r.Description, len(r.Description) == 0); err != nil {
		return Row{}, err
	}
	if row.KeywordsJSON, err = encode(r.Keywords, len(r.Keywords) == 0); err != nil {
		return Row{}, err
	}
	if row.AuthorsJSON, err = encode(r.Authors, len(r.Authors) == 0); err != nil {
		return Row{}, err
	}
	if row.SupportingJSON, err = encode(r.SupportingCommunities, len(r.SupportingCommunities) == 0); err != nil {
		return Row{}, err
	}
	if row.RecommendingJSON, err = encode(r.RecommendingCommunities, len(r.RecommendingCommunities) == 0); err != nil {
		return Row{}, err
	}
	return row, nil
}

// Resource rebuilds the resource a row was flattened from.
func (row Row) Resource() (*oer.Resource, error) {
	id, err := uuid.Parse(row.UUID)
	if err != nil {
		return nil, fmt.Errorf("invalid uuid %q: %w", row.UUID, err)
	}
	r := &oer.Resource{
		UUID:               id,
		Platform:           row.Platform,
		Disciplines:        nonEmpty(row.Disciplines),
		ResourceTypes:      nonEmpty(row.ResourceTypes),
		MediaTypes:         nonEmpty(row.MediaTypes),
		DifficultyLevel:    nonEmpty(row.DifficultyLevel),
		Audience:           nonEmpty(row.Audience),
		Languages:          nonEmpty(row.Languages),
		FileFormats:        nonEmpty(row.FileFormats),
		Logo:               row.Logo,
		ExternalURI:        row.ExternalURI,
		ExternalURIExtras:  nonEmpty(row.ExternalURIExtras),
		Version:            row.Version,
		DatePublished:      row.DatePublished,
		DateModified:       row.DateModified,
		Status:             row.Status,
		LearningObjectives: row.LearningObjectives,
		DerivedFrom:        row.DerivedFrom,
	}
	if row.FileSize != nil {
		size := *row.FileSize
		r.FileSize = &size
	}
	if row.Reference != "" {
		ref, err := oer.ParseReference(row.Reference)
		if err != nil {
			return nil, err
		}
		r.Reference = &ref
	}
	if row.License != "" {
		r.License = oer.ParseLicense(row.License).Ptr()
	}
	for _, x := range row.Xrefs {
		ref, err := oer.ParseReference(x)
		if err != nil {
			return nil, err
		}
		r.Xrefs = append(r.Xrefs, ref)
	}

	for _, decErr := range []error{
		decode(row.TitleJSON, &r.Title),
		decode(row.DescriptionJSON, &r.Description),
		decode(row.KeywordsJSON, &r.Keywords),
		decode(row.AuthorsJSON, &r.Authors),
		decode(row.SupportingJSON, &r.SupportingCommunities),
		decode(row.RecommendingJSON, &r.RecommendingCommunities),
	} {
		if decErr != nil {
			return nil, fmt.Errorf("failed to decode row %s: %w", row.Key, decErr)
		}
	}
	return r, nil
}

// WriteParquet writes the corpus as a single Parquet file.
func WriteParquet(path string, resources []*oer.Resource) error {
	rows := make([]Row, 0, len(resources))
	for _, r := range resources {
		row, err := ToRow(r)
		if err != nil {
			return fmt.Errorf("failed to flatten %s: %w", r.Key(), err)
		}
		rows = append(rows, row)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	w := parquet.NewGenericWriter[Row](f)
	if _, err := w.Write(rows); err != nil {
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	slog.Debug("Wrote Parquet", "path", path, "resources", len(rows))
	return f.Close()
}

// ReadParquet reads a file written by WriteParquet.
func ReadParquet(path string) ([]*oer.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var out []*oer.Resource
	batch := make([]Row, 128)
	for {
		n, err := reader.Read(batch)
		for _, row := range batch[:n] {
			r, convErr := row.Resource()
			if convErr != nil {
				return nil, convErr
			}
			out = append(out, r)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	slog.Debug("Read Parquet", "path", path, "resources", len(out), "row_groups", len(pf.RowGroups()))
	return out, nil
}
