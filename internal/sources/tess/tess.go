// Package tess ingests learning materials from TeSS training portals
// through their JSON:API listing.
package tess

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"gopkg.in/yaml.v3"
)

const (
	// Name is the source key. Resources carry their instance key as platform.
	Name = "tess"

	DefaultLicenceDictionaryURL = "https://raw.githubusercontent.com/ElixirTeSS/TeSS/master/config/dictionaries/licences.yml"
	PageSize                    = 100
)

// Instance is one TeSS deployment.
type Instance struct {
	Key     string
	BaseURL string
}

// Instances are the known TeSS deployments, in ingestion order.
var Instances = []Instance{
	{Key: "tess", BaseURL: "https://tess.elixir-europe.org"},
	{Key: "taxila", BaseURL: "https://taxila.nl"},
	{Key: "scilifelab", BaseURL: "https://training.scilifelab.se"},
	{Key: "pantraining", BaseURL: "https://pan-training.eu"},
}

// LookupInstances resolves instance keys. Unknown keys are an error.
func LookupInstances(keys []string) ([]Instance, error) {
	var out []Instance
	for _, key := range keys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		found := false
		for _, inst := range Instances {
			if inst.Key == key {
				out = append(out, inst)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("unknown TeSS instance %q", key)
		}
	}
	return out, nil
}

var resourceTypes = normalize.Vocabulary{
	Name:     "tess_resource_type",
	FoldCase: true,
	Terms: map[string]string{
		"video":            oer.TypeVideo,
		"series of videos": oer.TypeVideo,
		"youtube video":    oer.TypeVideo,

		"computer software": oer.TypeSoftware,
		"coding":            oer.TypeSoftware,
		"scripts":           oer.TypeSoftware,
		"programming":       oer.TypeSoftware,

		"poster":   oer.TypePoster,
		"workshop": oer.TypeWorkshop,
		"podcast":  oer.TypePodcastEpisode,

		"slidedeck":                 oer.TypeSlide,
		"slideshow":                 oer.TypeSlide,
		"slides":                    oer.TypeSlide,
		"slide deck / presentation": oer.TypeSlide,
		"slides / presentation":     oer.TypeSlide,
		"slideck/ presentation":     oer.TypeSlide,
		"presentation":              oer.TypeSlide,

		"jupyter notebooks": oer.TypeCodeNotebook,
		"jupyter notebook":  oer.TypeCodeNotebook,

		"book": oer.TypeBook,

		"blog post":                         "",
		"training materials":                "",
		"examples":                          "",
		"documentation":                     "",
		"bioinformatics":                    "",
		"hands-on tutorial":                 "",
		"learning pathway":                  "",
		"tutorials":                         "",
		"handbook":                          "",
		"case studies":                      "",
		"implementation guidelines":         "",
		"additional reading":                "",
		"didactic activities":               "",
		"mock data":                         "",
		"how-to guide":                      "",
		"online course":                     "",
		"online material":                   "",
		"education":                         "",
		"open educational resource":         "",
		"tool":                              "",
		"toolkit":                           "",
		"e-learning + workshop":             "",
		"pdf":                               "",
		"recording":                         "",
		"r shiny application":               "",
		"free online course":                "",
		"carpentries style curriculum":      "",
		"training materials with mock data": "",
		"online modules":                    "",
		"hackathon":                         "",
		"vignette":                          "",
		"api reference":                     "",
		"educational materials":             "",
		"exercise":                          "",
		"handout":                           "",
		"workflow":                          "",
		"installation instructions":         "",
		"manual":                            "",
		"talk":                              "",
		"knowledgebase":                     "",
		"notes":                             "",

		// topics entered as types
		"computational biology": "",
		"computer science":      "",
		"data science":          "",
		"transcriptomics":       "",
		"machine learning":      "",

		// databases entered as types
		"life sciences literature database": "",
		"life science literature database":  "",
		"viralzone":                         "",
	},
}

var difficultyLevels = normalize.Vocabulary{
	Name:     "tess_difficulty_level",
	FoldCase: true,
	Terms: map[string]string{
		"advanced":     oer.Expert,
		"beginner":     oer.Beginner,
		"intermediate": oer.Competent,
		"notspecified": "",
	},
}

var (
	knownItem       = sources.Known("_instance", "_base_url", "id", "type", "attributes", "links", "relationships", "meta")
	knownAttributes = sources.Known(
		"title", "description", "keywords", "licence", "difficulty-level", "resource-type",
		"doi", "url", "authors", "date-published", "date-modified", "version",
		"learning-objectives", "scientific-topics", "status",
		// portal bookkeeping
		"slug", "created-at", "updated-at", "remote-created-date", "remote-updated-date",
		"last-scraped", "scraper-record", "content-provider", "user", "node", "event-ids",
		"collection-ids", "external-resources", "contact", "subsets", "fields", "other-types",
		"operations", "prerequisites", "syllabus", "target-audience", "contributors", "date-created",
	)
)

// Config configures the TeSS source.
type Config struct {
	Client  *fetch.Client
	Authors normalize.AuthorResolver
	// Instances defaults to all known instances.
	Instances            []Instance
	LicenceDictionaryURL string
}

// Source reads one or more TeSS instances.
type Source struct {
	client     *fetch.Client
	authors    normalize.AuthorResolver
	instances  []Instance
	licenceURL string
	licences   *normalize.LicenseDictionary
}

// New creates the TeSS source.
func New(cfg Config) *Source {
	if len(cfg.Instances) == 0 {
		cfg.Instances = Instances
	}
	if cfg.LicenceDictionaryURL == "" {
		cfg.LicenceDictionaryURL = DefaultLicenceDictionaryURL
	}
	return &Source{
		client:     cfg.Client,
		authors:    cfg.Authors,
		instances:  cfg.Instances,
		licenceURL: cfg.LicenceDictionaryURL,
	}
}

func (s *Source) Name() string { return Name }

type licenceEntry struct {
	Title string `yaml:"title"`
	URL   string `yaml:"url"`
}

// LoadLicences downloads, or reads from cache, the TeSS licence dictionary.
func (s *Source) LoadLicences(ctx context.Context) error {
	path, err := s.client.Ensure(ctx, s.licenceURL, "tess/licences.yml")
	if err != nil {
		return fmt.Errorf("failed to fetch TeSS licence dictionary: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read TeSS licence dictionary: %w", err)
	}
	var entries map[string]licenceEntry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse TeSS licence dictionary: %w", err)
	}

	urls := make(map[string]string, len(entries))
	for key, entry := range entries {
		if entry.URL != "" {
			urls[key] = entry.URL
		}
	}
	s.licences = normalize.NewLicenseDictionary(urls)
	slog.Debug("Loaded TeSS licence dictionary", "entries", len(urls))
	return nil
}

type materialsPage struct {
	Data  []map[string]any `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

// Records loads the licence dictionary, then pages through the materials of
// every configured instance. Each page is cached.
func (s *Source) Records(ctx context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		if err := s.LoadLicences(ctx); err != nil {
			yield(nil, err)
			return
		}
		for _, inst := range s.instances {
			if !s.instanceRecords(ctx, inst, yield) {
				return
			}
		}
	}
}

func (s *Source) instanceRecords(ctx context.Context, inst Instance, yield func(sources.Record, error) bool) bool {
	base := strings.TrimRight(inst.BaseURL, "/")
	next := fmt.Sprintf("/materials.json_api?page_number=1&page_size=%d", PageSize)
	total := 0

	for page := 1; next != ""; page++ {
		pageURL, err := resolve(base, next)
		if err != nil {
			return yield(nil, fmt.Errorf("invalid next link %q from %s: %w", next, inst.Key, err))
		}
		path, err := s.client.Ensure(ctx, pageURL, fmt.Sprintf("tess/%s/materials-%04d.json", inst.Key, page))
		if err != nil {
			return yield(nil, fmt.Errorf("failed to fetch %s materials page %d: %w", inst.Key, page, err))
		}
		var body materialsPage
		if err := fetch.ReadJSON(path, &body); err != nil {
			return yield(nil, err)
		}
		if len(body.Data) == 0 {
			break
		}

		for _, item := range body.Data {
			r := sources.Record(item).With("_instance", inst.Key).With("_base_url", base)
			r = r.With(sources.IDKey, inst.Key+"/"+r.String("id"))
			if !yield(r, nil) {
				return false
			}
		}
		total += len(body.Data)
		next = body.Links.Next
	}

	slog.Info("Read TeSS instance", "instance", inst.Key, "materials", total)
	return true
}

func resolve(base, ref string) (string, error) {
	b, err := url.Parse(base + "/")
	if err != nil {
		return "", err
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// Map converts one JSON:API material item.
func (s *Source) Map(ctx context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	instance := r.String("_instance")
	attrs := r.Map("attributes")

	title := normalize.Text(attrs.String("title"))
	if title == "" {
		return sources.Drop(rec, r, "missing_title")
	}

	license, err := s.license(r, attrs, rec)
	if err != nil {
		return nil, err
	}

	var keywords []oer.LangString
	for _, kw := range attrs.Strings("keywords") {
		if kw = normalize.Text(kw); kw != "" {
			keywords = append(keywords, oer.Lang("en", kw))
		}
	}

	res := oer.Resource{
		Platform:           instance,
		Title:              oer.Lang("en", title),
		Description:        normalize.LangText("en", attrs.String("description")),
		Keywords:           keywords,
		Authors:            s.resolveAuthors(ctx, attrs, rec),
		License:            license,
		ResourceTypes:      resourceTypes.Map(attrs.Strings("resource-type"), rec),
		DifficultyLevel:    difficultyLevels.Map(attrs.Strings("difficulty-level"), rec),
		Xrefs:              topicXrefs(attrs),
		ExternalURI:        normalize.DOIURL(attrs.String("doi")),
		Version:            attrs.String("version"),
		DatePublished:      normalize.Date(attrs.String("date-published")),
		DateModified:       normalize.Date(attrs.String("date-modified")),
		LearningObjectives: normalize.Text(attrs.String("learning-objectives")),
	}
	if res.ExternalURI == "" {
		res.ExternalURI = attrs.String("url")
	} else if u := attrs.String("url"); u != "" {
		res.ExternalURIExtras = []string{u}
	}
	if id := r.String("id"); id != "" {
		res.Reference = oer.NewReference(instance, id)
	}
	if self := r.Map("links").String("self"); self != "" {
		res.DerivedFrom = r.String("_base_url") + self
	}
	switch strings.ToLower(attrs.String("status")) {
	case "active":
		res.Status = oer.StatusActive
	case "draft", "under development":
		res.Status = oer.StatusDraft
	}

	r.ReportUnmapped(knownItem, rec, "")
	attrs.ReportUnmapped(knownAttributes, rec, "attributes")
	return oer.New(res)
}

// license resolves the licence key. An unknown key is counted and kept as
// free text; a dictionary entry that is not an SPDX document is fatal.
func (s *Source) license(r, attrs sources.Record, rec *diagnostics.Recorder) (*oer.License, error) {
	key := attrs.String("licence")
	l, known, err := s.licences.Resolve(key)
	if err != nil {
		return nil, err
	}
	if !known {
		slog.Debug("Missing TeSS licence mapping", "record", r.ID(), "licence", key)
		rec.CountExample(diagnostics.CategoryUnknownLicense, strings.ToLower(key), r.ID())
	}
	return l, nil
}

// resolveAuthors accepts both plain author strings and the structured
// {name, orcid} objects newer portals emit.
func (s *Source) resolveAuthors(ctx context.Context, attrs sources.Record, rec *diagnostics.Recorder) oer.Agents {
	var out oer.Agents
	for _, author := range attrs.Maps("authors") {
		name := normalize.Text(author.String("name"))
		if name == "" {
			name = normalize.Text(author.String("full-name"))
		}
		if orcid := strings.TrimPrefix(author.String("orcid"), "https://orcid.org/"); orcid != "" && name != "" {
			out = append(out, oer.Person{Name: name, ORCID: orcid})
			continue
		}
		out = append(out, s.authors.Resolve(ctx, []string{name}, rec)...)
	}
	if len(out) > 0 {
		return out
	}
	return s.authors.Resolve(ctx, attrs.Strings("authors"), rec)
}

const edamPrefix = "http://edamontology.org/"

func topicXrefs(attrs sources.Record) []oer.Reference {
	var out []oer.Reference
	for _, topic := range attrs.Maps("scientific-topics") {
		if id, ok := strings.CutPrefix(topic.String("uri"), edamPrefix); ok && id != "" {
			out = append(out, oer.Reference{Prefix: "edam", Identifier: id})
		}
	}
	return out
}
