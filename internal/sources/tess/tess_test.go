package tess

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const licences = `APSL-2.0:
  title: Apple Public Source License 2.0
  url: https://spdx.org/licenses/APSL-2.0.html
BROKEN-1.0:
  title: Broken
  url: https://example.org/broken
`

const firstPage = `{"data":[
 {"id":"1","type":"materials","links":{"self":"/materials/1"},
  "attributes":{"title":" Intro to RNA-seq ","description":"Counting reads.","keywords":["rna"," seq "],
   "licence":"CC-BY-4.0","difficulty-level":"beginner","resource-type":["Slides","Blog post","Mystery"],
   "doi":"https://doi.org/10.1234/abc","url":"https://example.org/rna",
   "authors":["Anne Fouilloux (orcid: 0000-0002-1784-2920)","Unknown"],
   "scientific-topics":[{"preferred_label":"RNA-Seq","uri":"http://edamontology.org/topic_3170"}],
   "date-published":"2021-05-04","made-up-field":"x"}},
 {"id":"2","type":"materials","attributes":{"title":"  "}}
],"links":{"next":"/materials.json_api?page_number=2&page_size=100"}}`

const secondPage = `{"data":[
 {"id":"3","type":"materials","links":{"self":"/materials/3"},
  "attributes":{"title":"Notebook","licence":"apsl-2.0","difficulty-level":"notspecified",
   "doi":"bad doi","url":"https://example.org/3",
   "authors":[{"name":"Jane Doe","orcid":"https://orcid.org/0000-0001-0000-0001"}]}},
 {"id":"4","type":"materials","links":{"self":"/materials/4"},
  "attributes":{"title":"Weird","licence":"my-own"}},
 {"id":"5","type":"materials","links":{"self":"/materials/5"},
  "attributes":{"title":"Unlicensed","licence":"notspecified"}}
],"links":{}}`

const brokenPage = `{"data":[
 {"id":"9","type":"materials","attributes":{"title":"Broken","licence":"broken-1.0"}}
],"links":{}}`

func newServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/licences.yml":
			_, _ = w.Write([]byte(licences))
		case "/materials.json_api":
			assert.Equal(t, "100", r.URL.Query().Get("page_size"))
			body, ok := pages[r.URL.Query().Get("page_number")]
			if !ok {
				http.NotFound(w, r)
				return
			}
			_, _ = w.Write([]byte(body))
		default:
			http.NotFound(w, r)
		}
	}))
}

func newSource(t *testing.T, srv *httptest.Server) *Source {
	client := fetch.New(fetch.Config{
		CacheDir: t.TempDir(),
		Retry:    fetch.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
	})
	return New(Config{
		Client:               client,
		Authors:              normalize.AuthorResolver{},
		Instances:            []Instance{{Key: "demo", BaseURL: srv.URL}},
		LicenceDictionaryURL: srv.URL + "/licences.yml",
	})
}

func TestTeSSIngest(t *testing.T) {
	srv := newServer(t, map[string]string{"1": firstPage, "2": secondPage})
	defer srv.Close()

	rec := diagnostics.NewRecorder(Name)
	resources, err := sources.Collect(context.Background(), newSource(t, srv), rec)
	require.NoError(t, err)
	require.Len(t, resources, 4)

	rna := resources[0]
	assert.Equal(t, "demo", rna.Platform)
	assert.Equal(t, "demo:1", rna.Key())
	assert.Equal(t, "Intro to RNA-seq", rna.BestTitle())
	assert.Equal(t, "rna seq", rna.KeywordText())
	assert.Equal(t, "spdx:CC-BY-4.0", rna.License.String())
	assert.Equal(t, []string{oer.Beginner}, rna.DifficultyLevel)
	assert.Equal(t, []string{oer.TypeSlide}, rna.ResourceTypes)
	assert.Equal(t, "https://doi.org/10.1234/abc", rna.ExternalURI)
	assert.Equal(t, []string{"https://example.org/rna"}, rna.ExternalURIExtras)
	assert.Equal(t, srv.URL+"/materials/1", rna.DerivedFrom)
	assert.Equal(t, "2021-05-04", rna.DatePublished)
	assert.Equal(t, []oer.Reference{{Prefix: "edam", Identifier: "topic_3170"}}, rna.Xrefs)
	assert.Equal(t, oer.Agents{oer.Person{Name: "Anne Fouilloux", ORCID: "0000-0002-1784-2920"}}, rna.Authors)

	notebook := resources[1]
	assert.Equal(t, "spdx:APSL-2.0", notebook.License.String())
	assert.Empty(t, notebook.DifficultyLevel)
	assert.Equal(t, "https://example.org/3", notebook.ExternalURI, "malformed DOI falls back to the landing page")
	assert.Equal(t, oer.Agents{oer.Person{Name: "Jane Doe", ORCID: "0000-0001-0000-0001"}}, notebook.Authors)

	weird := resources[2]
	require.NotNil(t, weird.License)
	assert.Equal(t, oer.LicenseText, weird.License.Kind)
	assert.Equal(t, "my-own", weird.License.Value)

	assert.Nil(t, resources[3].License, "notspecified means no licence")

	assert.Equal(t, 1, rec.Total(diagnostics.CategoryDropped))
	assert.Equal(t, 1, rec.Total(diagnostics.CategoryUnknownLicense))
	assert.Equal(t, 1, rec.Total(diagnostics.UnmappedValueCategory("tess_resource_type")))

	report := rec.Report()
	require.Len(t, report.Unmapped, 1)
	assert.Equal(t, "attributes.made-up-field", report.Unmapped[0].Key)
}

func TestTeSSNonSPDXDictionaryEntryIsFatal(t *testing.T) {
	srv := newServer(t, map[string]string{"1": brokenPage})
	defer srv.Close()

	rec := diagnostics.NewRecorder(Name)
	_, err := sources.Collect(context.Background(), newSource(t, srv), rec)
	require.Error(t, err)

	var mappingErr *sources.MappingError
	require.ErrorAs(t, err, &mappingErr)
	assert.Equal(t, "demo/9", mappingErr.Record)
	assert.ErrorIs(t, err, normalize.ErrUnknownLicense)
}

func TestLookupInstances(t *testing.T) {
	tests := []struct {
		name    string
		keys    []string
		want    []string
		wantErr bool
	}{
		{name: "subset", keys: []string{"taxila", " tess "}, want: []string{"taxila", "tess"}},
		{name: "empty entries", keys: []string{"", "pantraining"}, want: []string{"pantraining"}},
		{name: "unknown", keys: []string{"nope"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LookupInstances(tt.keys)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			var keys []string
			for _, inst := range got {
				keys = append(keys, inst.Key)
			}
			assert.Equal(t, tt.want, keys)
		})
	}
}
