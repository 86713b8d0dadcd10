// Package oersi ingests the OERSI search index dump, a gzip-compressed
// stream of schema.org LearningResource documents, one per line.
package oersi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
)

const (
	// Name is the platform key.
	Name = "oersi"

	DefaultDumpURL = "https://oersi.org/dumps/oer_data.ndjson.gz"
)

var known = sources.Known(
	"id", "name", "description", "inLanguage", "audience", "about", "learningResourceType",
	"datePublished", "dateModified", "keywords", "creator", "license", "image",
	// not part of the resource
	"@context", "conditionsOfAccess",
)

// Config configures the OERSI source.
type Config struct {
	Client  *fetch.Client
	DumpURL string
}

// Source streams the OERSI dump.
type Source struct {
	client  *fetch.Client
	dumpURL string
}

// New creates the OERSI source.
func New(cfg Config) *Source {
	if cfg.DumpURL == "" {
		cfg.DumpURL = DefaultDumpURL
	}
	return &Source{client: cfg.Client, dumpURL: cfg.DumpURL}
}

func (s *Source) Name() string { return Name }

// Records downloads the dump once and decodes it document by document
// without loading it into memory.
func (s *Source) Records(ctx context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		path, err := s.client.Ensure(ctx, s.dumpURL, "oersi/oer_data.ndjson.gz")
		if err != nil {
			yield(nil, fmt.Errorf("failed to fetch OERSI dump: %w", err))
			return
		}
		f, err := fetch.OpenGzip(path)
		if err != nil {
			yield(nil, err)
			return
		}
		defer f.Close()

		dec := json.NewDecoder(f)
		line := 0
		for {
			var doc map[string]any
			if err := dec.Decode(&doc); err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				yield(nil, fmt.Errorf("failed to decode OERSI document %d: %w", line+1, err))
				return
			}
			line++
			r := sources.Record(doc)
			r = r.With(sources.IDKey, r.String("id"))
			if !yield(r, nil) {
				return
			}
		}
		slog.Info("Read OERSI dump", "documents", line)
	}
}

// Map converts one LearningResource document.
func (s *Source) Map(_ context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	languages := r.Strings("inLanguage")
	lang := "en"
	if len(languages) > 0 {
		if code, ok := normalize.Alpha2(languages[0]); ok {
			lang = code
		}
	}

	title := normalize.LangText(lang, r.String("name"))
	if len(title) == 0 {
		return sources.Drop(rec, r, "missing_title")
	}

	authors, err := creators(r)
	if err != nil {
		return nil, err
	}

	var keywords []oer.LangString
	for _, kw := range r.Strings("keywords") {
		if kw = normalize.Text(kw); kw != "" {
			keywords = append(keywords, oer.Lang(lang, kw))
		}
	}

	res := oer.Resource{
		Platform:      Name,
		Title:         title,
		Description:   normalize.LangText(lang, r.String("description")),
		Keywords:      keywords,
		Authors:       authors,
		License:       license(r, rec),
		Audience:      ids(r, "audience"),
		Disciplines:   ids(r, "about"),
		ResourceTypes: ids(r, "learningResourceType"),
		Languages:     normalize.Alpha3List(languages),
		ExternalURI:   r.String("id"),
		Logo:          r.String("image"),
		DatePublished: normalize.Date(r.String("datePublished")),
		DateModified:  normalize.Date(r.String("dateModified")),
	}

	r.ReportUnmapped(known, rec, "")
	return oer.New(res)
}

func ids(r sources.Record, key string) []string {
	var out []string
	for _, m := range r.Maps(key) {
		if id := m.String("id"); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// creators maps the typed creator list. Any type other than Person or
// Organization is fatal.
func creators(r sources.Record) (oer.Agents, error) {
	var out oer.Agents
	for _, c := range r.Maps("creator") {
		name := normalize.Text(c.String("name"))
		if name == "" {
			continue
		}
		id := c.String("id")
		switch t := c.String("type"); t {
		case "Person":
			out = append(out, oer.Person{Name: name, ORCID: strings.TrimPrefix(id, "https://orcid.org/")})
		case "Organization":
			org := oer.Organization{Name: name}
			switch {
			case strings.HasPrefix(id, "https://ror.org/"):
				org.ROR = strings.TrimPrefix(id, "https://ror.org/")
			case strings.HasPrefix(id, "http://www.wikidata.org/entity/"):
				org.Wikidata = strings.TrimPrefix(id, "http://www.wikidata.org/entity/")
			}
			out = append(out, org)
		default:
			return nil, fmt.Errorf("%w: creator type %q", oer.ErrUnknownAuthorVariant, t)
		}
	}
	return out, nil
}

// license maps a Creative Commons license URL. Anything else is kept as free
// text and counted.
func license(r sources.Record, rec *diagnostics.Recorder) *oer.License {
	u := r.Map("license").String("id")
	if u == "" {
		return nil
	}
	if l, ok := normalize.CreativeCommonsLicense(u); ok {
		return l
	}
	rec.CountExample(diagnostics.CategoryUnknownLicense, u, r.ID())
	return oer.FreeText(u)
}
