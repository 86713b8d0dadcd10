// Package dalia ingests DALIA curation sheets: one OER per row, in the DIF
// v1.3 column layout, from CSV or Excel workbooks.
package dalia

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/xuri/excelize/v2"
)

const (
	// Name is the platform key.
	Name = "dalia"
	// ReferencePrefix namespaces the sheet UUIDs.
	ReferencePrefix = "dalia.oer"

	DefaultCurationURL = "https://raw.githubusercontent.com/data-literacy-alliance/dalia-curation/main/curation/NFDI4Chem.csv"

	// Separator splits multi-valued cells.
	Separator = " * "
)

// Sheet columns.
const (
	ColumnTitle            = "Title"
	ColumnDescription      = "Description"
	ColumnLink             = "Link"
	ColumnAuthors          = "Authors"
	ColumnLicense          = "License"
	ColumnCommunity        = "Community"
	ColumnDiscipline       = "Discipline"
	ColumnFileFormat       = "File format"
	ColumnKeywords         = "Keywords"
	ColumnLanguage         = "Language"
	ColumnResourceType     = "Learning Resource Type"
	ColumnMediaType        = "Media Type"
	ColumnProficiencyLevel = "Proficiency Level"
	ColumnPublicationDate  = "Publication Date"
	ColumnSize             = "Size"
	ColumnTargetGroup      = "Target Group"
	ColumnVersion          = "Version"
	ColumnUUID             = "UUID"
)

var known = sources.Known(
	ColumnTitle, ColumnDescription, ColumnLink, ColumnAuthors, ColumnLicense, ColumnCommunity,
	ColumnDiscipline, ColumnFileFormat, ColumnKeywords, ColumnLanguage, ColumnResourceType,
	ColumnMediaType, ColumnProficiencyLevel, ColumnPublicationDate, ColumnSize, ColumnTargetGroup,
	ColumnVersion, ColumnUUID,
	// curation notes
	"Comment", "Curator",
)

var (
	resourceTypes = normalize.Vocabulary{
		Name:     "dalia_resource_type",
		FoldCase: true,
		Terms: map[string]string{
			"tutorial":         oer.TypeTutorial,
			"workshop":         oer.TypeWorkshop,
			"code notebook":    oer.TypeCodeNotebook,
			"slides":           oer.TypeSlide,
			"video":            oer.TypeVideo,
			"poster":           oer.TypePoster,
			"podcast":          oer.TypePodcastEpisode,
			"book":             oer.TypeBook,
			"code":             oer.TypeSoftware,
			"lecture":          oer.ModaliaNS + "Lecture",
			"exercise":         oer.ModaliaNS + "Exercise",
			"handout":          oer.ModaliaNS + "Handout",
			"best practice":    oer.ModaliaNS + "BestPractice",
			"educational game": oer.ModaliaNS + "EducationalGame",
			"quiz":             oer.ModaliaNS + "Quiz",
			"audio":            oer.ModaliaNS + "Audio",
			"other":            "",
		},
	}

	mediaTypes = normalize.Vocabulary{
		Name:     "dalia_media_type",
		FoldCase: true,
		Terms: map[string]string{
			"audio":      oer.ModaliaNS + "Audio",
			"video":      oer.ModaliaNS + "Video",
			"text":       oer.ModaliaNS + "Text",
			"image":      oer.ModaliaNS + "Image",
			"multipart":  oer.ModaliaNS + "Multipart",
			"multimedia": oer.ModaliaNS + "Multipart",
		},
	}

	targetGroups = normalize.Vocabulary{
		Name:     "dalia_target_group",
		FoldCase: true,
		Terms: map[string]string{
			"student (ba)":               oer.ModaliaNS + "StudentBA",
			"student (ma)":               oer.ModaliaNS + "StudentMA",
			"student (phd)":              oer.ModaliaNS + "StudentPhD",
			"researcher":                 oer.ModaliaNS + "Researcher",
			"teacher":                    oer.ModaliaNS + "Teacher",
			"data steward":               oer.ModaliaNS + "DataSteward",
			"research software engineer": oer.ModaliaNS + "ResearchSoftwareEngineer",
			"librarian":                  oer.ModaliaNS + "Librarian",
			"other":                      "",
		},
	}

	proficiencyLevels = normalize.Vocabulary{
		Name:     "dalia_proficiency_level",
		FoldCase: true,
		Terms: map[string]string{
			"novice":            oer.Novice,
			"beginner":          oer.Beginner,
			"advanced beginner": oer.AdvancedBeginner,
			"competent":         oer.Competent,
			"proficient":        oer.Proficient,
			"expert":            oer.Expert,
		},
	}
)

var (
	orcidPattern     = regexp.MustCompile(`^\d{4}-\d{4}-\d{4}-\d{3}(\d|X)$`)
	communityPattern = regexp.MustCompile(`^(.*)\s\((S|R|SR|RS)\)$`)
)

const (
	orcidURIPrefix    = "https://orcid.org/"
	rorURIPrefix      = "https://ror.org/"
	wikidataURIPrefix = "http://www.wikidata.org/entity/"
)

// Config configures the DALIA source.
type Config struct {
	Client *fetch.Client
	// Dir is searched recursively for .csv and .xlsx sheets.
	Dir string
	// URLs are remote sheets, downloaded through the cache.
	URLs []string
}

// Source reads curation sheets.
type Source struct {
	client *fetch.Client
	dir    string
	urls   []string
}

// New creates the DALIA source.
func New(cfg Config) *Source {
	return &Source{client: cfg.Client, dir: cfg.Dir, urls: cfg.URLs}
}

func (s *Source) Name() string { return Name }

// Paths lists the sheets to read: local files in name order, then remote
// sheets in configuration order.
func (s *Source) Paths(ctx context.Context) ([]string, error) {
	var paths []string
	if s.dir != "" {
		matches, err := doublestar.Glob(os.DirFS(s.dir), "**/*.{csv,xlsx}")
		if err != nil {
			return nil, fmt.Errorf("failed to list curation sheets in %s: %w", s.dir, err)
		}
		slices.Sort(matches)
		for _, m := range matches {
			paths = append(paths, filepath.Join(s.dir, filepath.FromSlash(m)))
		}
	}
	for _, u := range s.urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		path, err := s.client.Ensure(ctx, u, "")
		if err != nil {
			return nil, fmt.Errorf("failed to fetch curation sheet: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// Records yields every data row of every sheet. Row locators are
// "<file>:<line>" with the header on line 1.
func (s *Source) Records(ctx context.Context) iter.Seq2[sources.Record, error] {
	return func(yield func(sources.Record, error) bool) {
		paths, err := s.Paths(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, path := range paths {
			rows, err := ReadSheet(path)
			if err != nil {
				yield(nil, err)
				return
			}
			slog.Debug("Read curation sheet", "path", path, "rows", len(rows))
			for _, r := range rows {
				if !yield(r, nil) {
					return
				}
			}
		}
	}
}

// ReadSheet reads a .csv or .xlsx curation sheet into records keyed by
// header. Blank rows are skipped.
func ReadSheet(path string) ([]sources.Record, error) {
	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	name := filepath.Base(path)

	var out []sources.Record
	for i, row := range rows[1:] {
		r := sources.Record{}
		blank := true
		for j, cell := range row {
			if j >= len(header) || header[j] == "" {
				continue
			}
			if strings.TrimSpace(cell) != "" {
				blank = false
			}
			r[header[j]] = cell
		}
		if blank {
			continue
		}
		out = append(out, r.With(sources.IDKey, fmt.Sprintf("%s:%d", name, i+2)))
	}
	return out, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

// Map converts one sheet row. An unknown license, a malformed size or a
// malformed organization entry is fatal for the sheet.
func (s *Source) Map(_ context.Context, r sources.Record, rec *diagnostics.Recorder) (*oer.Resource, error) {
	title := normalize.Text(r.String(ColumnTitle))
	if title == "" {
		return sources.Drop(rec, r, "missing_title")
	}

	languages := split(r.String(ColumnLanguage))
	lang := "en"
	if len(languages) > 0 {
		if code, ok := normalize.Alpha2(languages[0]); ok {
			lang = code
		}
	}

	license, err := normalize.DALIALicense(r.String(ColumnLicense))
	if err != nil {
		return nil, err
	}

	authors, err := parseAuthors(split(r.String(ColumnAuthors)), rec)
	if err != nil {
		return nil, err
	}

	var keywords []oer.LangString
	for _, kw := range split(r.String(ColumnKeywords)) {
		keywords = append(keywords, oer.Lang(lang, kw))
	}

	res := oer.Resource{
		Platform:        Name,
		Title:           oer.Lang(lang, title),
		Description:     normalize.LangText(lang, r.String(ColumnDescription)),
		Keywords:        keywords,
		Authors:         authors,
		License:         license,
		Disciplines:     disciplines(split(r.String(ColumnDiscipline)), rec),
		ResourceTypes:   resourceTypes.Map(split(r.String(ColumnResourceType)), rec),
		MediaTypes:      mediaTypes.Map(split(r.String(ColumnMediaType)), rec),
		DifficultyLevel: minimumProficiency(proficiencyLevels.Map(split(r.String(ColumnProficiencyLevel)), rec)),
		Audience:        targetGroups.Map(split(r.String(ColumnTargetGroup)), rec),
		Languages:       normalize.Alpha3List(languages),
		FileFormats:     split(r.String(ColumnFileFormat)),
		Version:         r.String(ColumnVersion),
		DatePublished:   normalize.Date(r.String(ColumnPublicationDate)),
	}
	if id := r.String(ColumnUUID); id != "" {
		res.Reference = oer.NewReference(ReferencePrefix, strings.ToLower(id))
	}
	if links := split(r.String(ColumnLink)); len(links) > 0 {
		res.ExternalURI = links[0]
		if len(links) > 1 {
			res.ExternalURIExtras = links[1:]
		}
	}
	if size := r.String(ColumnSize); size != "" {
		n, err := normalize.ParseFileSize(size)
		if err != nil {
			return nil, err
		}
		res.FileSize = &n
	}
	res.SupportingCommunities, res.RecommendingCommunities = communities(split(r.String(ColumnCommunity)), rec)

	r.ReportUnmapped(known, rec, "")
	return oer.New(res)
}

func split(cell string) []string {
	var out []string
	for _, part := range strings.Split(cell, Separator) {
		if part = normalize.Text(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseAuthors reads "{Organization : uri}" and "Person : orcid-uri"
// entries. A brace that is not closed is an unknown variant.
func parseAuthors(entries []string, rec *diagnostics.Recorder) (oer.Agents, error) {
	var out oer.Agents
	for _, entry := range entries {
		if strings.HasPrefix(entry, "{") {
			if !strings.HasSuffix(entry, "}") {
				return nil, fmt.Errorf("%w: %q", oer.ErrUnknownAuthorVariant, entry)
			}
			name, uri := nameAndURI(strings.TrimSuffix(strings.TrimPrefix(entry, "{"), "}"))
			org := oer.Organization{Name: name}
			switch {
			case strings.HasPrefix(uri, rorURIPrefix):
				org.ROR = strings.TrimPrefix(uri, rorURIPrefix)
			case strings.HasPrefix(uri, wikidataURIPrefix):
				org.Wikidata = strings.TrimPrefix(uri, wikidataURIPrefix)
			}
			out = append(out, org)
			continue
		}

		name, uri := nameAndURI(entry)
		person := oer.Person{Name: name}
		if uri != "" {
			orcid := strings.TrimPrefix(uri, orcidURIPrefix)
			if orcidPattern.MatchString(orcid) {
				person.ORCID = orcid
			} else {
				rec.CountExample(diagnostics.CategoryAuthor, "malformed_orcid", entry)
			}
		}
		out = append(out, person)
	}
	return out, nil
}

func nameAndURI(s string) (string, string) {
	name, uri, _ := strings.Cut(s, " : ")
	return strings.TrimSpace(name), strings.TrimSpace(uri)
}

// disciplines keeps the entries that are vocabulary URIs.
func disciplines(values []string, rec *diagnostics.Recorder) []string {
	var out []string
	for _, v := range values {
		if strings.HasPrefix(v, "http://") || strings.HasPrefix(v, "https://") {
			out = append(out, v)
			continue
		}
		rec.Count(diagnostics.UnmappedValueCategory("dalia_discipline"), v)
	}
	return out
}

// minimumProficiency returns the easiest level as a one-element list.
func minimumProficiency(levels []string) []string {
	if len(levels) == 0 {
		return nil
	}
	lowest := slices.MinFunc(levels, func(a, b string) int {
		return oer.ProficiencyOrder[a] - oer.ProficiencyOrder[b]
	})
	return []string{lowest}
}

// communities splits "Name (S)", "Name (R)" and "Name (SR)" entries into
// supporting and recommending organizations.
func communities(values []string, rec *diagnostics.Recorder) (supporting, recommending []oer.Organization) {
	for _, v := range values {
		m := communityPattern.FindStringSubmatch(v)
		if m == nil {
			rec.Count(diagnostics.UnmappedValueCategory("dalia_community"), v)
			continue
		}
		name, uri := nameAndURI(m[1])
		org := oer.Organization{Name: name}
		if id, ok := strings.CutPrefix(uri, rorURIPrefix); ok {
			org.ROR = id
		}
		if strings.Contains(m[2], "S") {
			supporting = append(supporting, org)
		}
		if strings.Contains(m[2], "R") {
			recommending = append(recommending, org)
		}
	}
	return supporting, recommending
}
