// Package gtn ingests training materials from the Galaxy Training Network.
package gtn

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
)

const (
	// Name is the platform key.
	Name = "gtn"

	DefaultSiteBase = "https://training.galaxyproject.org/training-material"
	DefaultRawBase  = "https://github.com/galaxyproject/training-material/raw/refs/heads/main"
)

// ErrUnknownMaterialType is returned for a material type other than
// tutorial or slides.
var ErrUnknownMaterialType = errors.New("unknown GTN material type")

// skippedTopics are never ingested.
var skippedTopics = map[string]bool{"admin": true}

var levels = normalize.Vocabulary{
	Name: "gtn_level",
	Terms: map[string]string{
		"Advanced":     oer.Expert,
		"Beginner":     oer.Beginner,
		"Intermediate": oer.Competent,
		"Introductory": oer.Novice,
	},
}

var known = sources.Known(
	"_topic", "tutorial_name", "type", "lang", "title", "questions", "key_points",
	"draft", "edam_ontology", "tags", "subtopic", "short_id", "url", "objectives",
	"level", "mod_date", "pub_date", "version", "license", "logo", "contributors",
	// present but not part of the learning material itself
	"js_requirements", "layout", "priority", "admin_install", "admin_install_yaml",
	"tours", "zenodo_link",
)

// Config configures the GTN source.
type Config struct {
	Client *fetch.Client
	// SiteBase is the training site root; it hosts the topic API.
	SiteBase string
	// RawBase serves the tutorial markdown sources.
	RawBase string
}

// Source reads the GTN topic API.
type Source struct {
	client   *fetch.Client
	siteBase string
	rawBase  string
}

// New creates the GTN source.
func New(cfg Config) *Source {
	if cfg.SiteBase == "" {
		cfg.SiteBase = DefaultSiteBase
	}
	if cfg.RawBase == "" {
		cfg.RawBase = DefaultRawBase
	}
	return &Source{
		client:   cfg.Client,
		siteBase: strings.TrimRight(cfg.SiteBase, "/"),
		rawBase:  strings.TrimRight(cfg.RawBase, "/"),
	}
}

func (s *Source) Name() string { return Name }

// Records yields every material of every topic, topics in name order.
func (s *Source) Records(ctx context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		topicsPath, err := s.client.Ensure(ctx, s.siteBase+"/api/topics.json", "gtn/topics.json")
		if err != nil {
			yield(nil, fmt.Errorf("failed to fetch GTN topics: %w", err))
			return
		}
		var topics map[string]any
		if err := fetch.ReadJSON(topicsPath, &topics); err != nil {
			yield(nil, err)
			return
		}

		names := make([]string, 0, len(topics))
		for name := range topics {
			if skippedTopics[name] {
				slog.Debug("Skipping GTN topic", "topic", name)
				continue
			}
			names = append(names, name)
		}
		sort.Strings(names)

		for _, topic := range names {
			url := fmt.Sprintf("%s/api/topics/%s.json", s.siteBase, topic)
			path, err := s.client.Ensure(ctx, url, "gtn/topics/"+topic+".json")
			if err != nil {
				yield(nil, fmt.Errorf("failed to fetch GTN topic %s: %w", topic, err))
				return
			}
			var body struct {
				Materials []map[string]any `json:"materials"`
			}
			if err := fetch.ReadJSON(path, &body); err != nil {
				yield(nil, err)
				return
			}

			slog.Debug("Read GTN topic", "topic", topic, "materials", len(body.Materials))
			for _, m := range body.Materials {
				r := sources.Record(m)
				r = r.With("_topic", topic).With(sources.IDKey, topic+"/"+r.String("tutorial_name"))
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// Map converts one material.
func (s *Source) Map(ctx context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	topic := r.String("_topic")
	tutorial := r.String("tutorial_name")

	lang := "en"
	if code, ok := normalize.Alpha2(r.String("lang")); ok {
		lang = code
	}

	var resourceType string
	switch t := r.String("type"); t {
	case "tutorial":
		resourceType = oer.TypeTutorial
	case "slides":
		resourceType = oer.TypeSlide
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMaterialType, t)
	}

	title := normalize.Text(r.String("title"))
	if title == "" {
		return sources.Drop(rec, r, "missing_title")
	}

	description := s.tutorialSummary(ctx, topic, tutorial, rec)
	if questions := r.Strings("questions"); len(questions) > 0 {
		description += "\n\nThis tutorial covers the following questions:\n" + bullets(questions) + "\n"
	}
	if keyPoints := r.Strings("key_points"); len(keyPoints) > 0 {
		description += "\n\nThis tutorial covers the key points:\n" + bullets(keyPoints) + "\n"
	}

	status := oer.StatusActive
	if r.Bool("draft") {
		status = oer.StatusDraft
	}

	var xrefs []oer.Reference
	for _, id := range r.Strings("edam_ontology") {
		xrefs = append(xrefs, oer.Reference{Prefix: "edam", Identifier: id})
	}

	var keywords []oer.LangString
	for _, tag := range r.Strings("tags") {
		keywords = append(keywords, oer.Lang(lang, tag))
	}
	if subtopic := r.String("subtopic"); subtopic != "" {
		keywords = append(keywords, oer.Lang(lang, subtopic))
	}

	res := oer.Resource{
		Platform:        Name,
		Title:           oer.Lang(lang, title),
		Description:     oer.Lang(lang, normalize.Text(description)),
		Keywords:        keywords,
		Authors:         contributors(r),
		ResourceTypes:   []string{resourceType},
		DifficultyLevel: levels.Map(r.Strings("level"), rec),
		Languages:       normalize.Alpha3List([]string{lang}),
		Xrefs:           xrefs,
		Logo:            r.String("logo"),
		Version:         r.String("version"),
		DatePublished:   normalize.Date(r.String("pub_date")),
		DateModified:    normalize.Date(r.String("mod_date")),
		Status:          status,
		DerivedFrom:     fmt.Sprintf("%s/api/topics/%s.json", s.siteBase, topic),
	}
	if id := r.String("short_id"); id != "" {
		res.Reference = oer.NewReference("gtn", id)
	}
	if u := r.String("url"); u != "" {
		res.ExternalURI = s.siteBase + u
	}
	if objectives := r.Strings("objectives"); len(objectives) > 0 {
		res.LearningObjectives = bullets(objectives)
	}
	if license := r.String("license"); license != "" {
		res.License = oer.SPDX(license)
	}

	r.ReportUnmapped(known, rec, "")
	return oer.New(res)
}

// tutorialSummary downloads the tutorial markdown and returns the first line
// after the front matter. A failed download is logged and yields "".
func (s *Source) tutorialSummary(ctx context.Context, topic, tutorial string, rec *diagnostics.Recorder) string {
	url := fmt.Sprintf("%s/topics/%s/tutorials/%s/tutorial.md", s.rawBase, topic, tutorial)
	path, err := s.client.Ensure(ctx, url, fmt.Sprintf("gtn/tutorials/%s-%s-tutorial.md", topic, tutorial))
	if err != nil {
		slog.Warn("Could not download tutorial", "topic", topic, "tutorial", tutorial, "url", url, "err", err)
		rec.CountExample(diagnostics.CategoryFetchFailure, "tutorial.md", topic+"/"+tutorial)
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("Could not read tutorial", "path", path, "err", err)
		rec.CountExample(diagnostics.CategoryFetchFailure, "tutorial.md", topic+"/"+tutorial)
		return ""
	}
	return firstBodyLine(string(data))
}

// firstBodyLine skips a ---delimited front matter block and returns the
// first line of what follows.
func firstBodyLine(text string) string {
	parts := strings.SplitN(text, "---", 3)
	if len(parts) < 3 {
		return ""
	}
	rest := strings.TrimSpace(parts[2])
	if i := strings.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	return strings.TrimSpace(rest)
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// contributors maps the API's contributor objects. Entries without a name
// are GitHub handles only and are skipped.
func contributors(r sources.Record) oer.Agents {
	var out oer.Agents
	for _, c := range r.Maps("contributors") {
		name := normalize.Text(c.String("name"))
		if name == "" {
			continue
		}
		out = append(out, oer.Person{Name: name, ORCID: c.String("orcid")})
	}
	return out
}
