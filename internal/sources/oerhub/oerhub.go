// Package oerhub ingests the OERhub search index with a single bulk query.
package oerhub

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
)

const (
	// Name is the platform key.
	Name = "oerhub"

	DefaultSearchURL = "https://oerhub.at/search"
	// PageSize covers the whole catalog in one page.
	PageSize = 10000
)

var resourceTypes = normalize.Vocabulary{
	Name: "oerhub_resource_type",
	Terms: map[string]string{
		"Document":      oer.TypeDigitalDocument,
		"Video":         oer.TypeVideo,
		"Picture":       oer.TypePhotograph,
		"unknown":       "",
		"Miscellaneous": "",
		"iMooX":         "",
	},
}

var (
	knownSource = sources.Known(
		"general", "technical", "oea_title", "oea_title_ml", "oea_authors", "rights",
		"oea_thumbnail_url", "oea_object_direct_link",
		"oea_classification_00", "oea_classification_01", "oea_classification_02",
		"oea_classification_03", "oea_classification_05", "oea_classification_06",
		// ingestion bookkeeping
		"oea_valid", "oea_ingest",
	)
	knownGeneral   = sources.Known("title", "description", "language", "identifiers")
	knownTechnical = sources.Known("duration", "thumbnail", "format", "size")
)

// Config configures the OERhub source.
type Config struct {
	Client    *fetch.Client
	Authors   normalize.AuthorResolver
	SearchURL string
}

// Source reads OERhub.
type Source struct {
	client    *fetch.Client
	authors   normalize.AuthorResolver
	searchURL string
}

// New creates the OERhub source.
func New(cfg Config) *Source {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	return &Source{client: cfg.Client, authors: cfg.Authors, searchURL: cfg.SearchURL}
}

func (s *Source) Name() string { return Name }

type searchResponse struct {
	Data struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	} `json:"data"`
}

// Records runs the bulk query, or reads its cached response, and yields each
// hit's source document.
func (s *Source) Records(ctx context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		query := map[string]any{"query": "*", "page": 0, "size": PageSize}
		path, err := s.client.EnsurePost(ctx, s.searchURL, query, "oerhub/oerhub-raw.json")
		if err != nil {
			yield(nil, fmt.Errorf("failed to query OERhub: %w", err))
			return
		}

		var resp searchResponse
		if err := fetch.ReadJSON(path, &resp); err != nil {
			yield(nil, err)
			return
		}
		hits := resp.Data.Hits.Hits
		slog.Info("Read OERhub search results", "hits", len(hits))

		for _, hit := range hits {
			r := sources.Record(hit.Source).With(sources.IDKey, hit.ID)
			if !yield(r, nil) {
				return
			}
		}
	}
}

// Map converts one search hit.
func (s *Source) Map(ctx context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	general := r.Map("general")
	technical := r.Map("technical")

	title := resolveTitle(r, general)
	if len(title) == 0 {
		return sources.Drop(rec, r, "missing_title")
	}

	res := oer.Resource{
		Platform:      Name,
		Title:         title,
		License:       s.license(r, rec),
		Keywords:      keywords(r),
		Authors:       s.authors.Resolve(ctx, r.Strings("oea_authors"), rec),
		ResourceTypes: resourceTypes.Map(r.Strings("oea_classification_00"), rec),
		Languages:     normalize.Alpha3List(general.Strings("language")),
		ExternalURI:   r.String("oea_object_direct_link"),
		DatePublished: normalize.Date(r.String("oea_classification_03")),
	}
	if id := r.ID(); id != "" {
		res.Reference = oer.NewReference(Name, id)
	}

	if descriptions := general.Maps("description"); len(descriptions) > 0 {
		res.Description = normalize.LangMap(descriptions[0])
	}

	res.Logo = r.String("oea_thumbnail_url")
	if res.Logo == "" {
		res.Logo = technical.Map("thumbnail").String("url")
	}

	for _, id := range general.Maps("identifiers") {
		catalog, entry := id.String("catalog"), id.String("entry")
		if catalog != "" && entry != "" {
			res.Xrefs = append(res.Xrefs, oer.Reference{Prefix: catalog, Identifier: entry})
		}
	}

	if mime := technical.String("format"); mime != "" {
		rec.Count(diagnostics.CategoryMediaType, mime)
	}
	if format := r.String("oea_classification_05"); format != "" && format != "unknown" {
		res.FileFormats = []string{format}
	}
	if size, ok := technical.Int64("size"); ok && size > 0 {
		res.FileSize = &size
	}

	r.ReportUnmapped(knownSource, rec, "")
	general.ReportUnmapped(knownGeneral, rec, "general")
	technical.ReportUnmapped(knownTechnical, rec, "technical")

	return oer.New(res)
}

// resolveTitle prefers the multilingual title object, then the first
// localized title, then the plain German title.
func resolveTitle(r, general sources.Record) oer.LangString {
	if ml := normalize.LangMap(r.Raw("oea_title_ml")); len(ml) > 0 {
		return ml
	}
	if titles := general.Maps("title"); len(titles) > 0 {
		if t := normalize.LangMap(titles[0]); len(t) > 0 {
			return t
		}
	}
	return normalize.LangText("de", r.String("oea_title"))
}

func keywords(r sources.Record) []oer.LangString {
	var out []oer.LangString
	for _, c := range r.Maps("oea_classification_01") {
		var kw oer.LangString
		if en := normalize.Text(c.String("name_en")); en != "" {
			kw = kw.With("en", en)
		}
		if de := normalize.Text(c.String("name_de")); de != "" {
			kw = kw.With("de", de)
		}
		if len(kw) > 0 {
			out = append(out, kw)
		}
	}
	return out
}

func (s *Source) license(r sources.Record, rec *diagnostics.Recorder) *oer.License {
	classification := r.String("oea_classification_02")
	if classification == "" {
		rec.CountExample(diagnostics.CategoryUnknownLicense, "(empty classification)", r.String("rights"))
		return nil
	}
	l, ok := normalize.OERhubLicense(classification)
	if !ok {
		slog.Warn("Unknown OERhub license classification", "record", r.ID(), "classification", classification)
		rec.CountExample(diagnostics.CategoryUnknownLicense, classification, r.ID())
		return nil
	}
	return l
}
