package oerhub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/grounding"
	"github.com/data-literacy-alliance/oerbservatory/internal/normalize"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchBody = `{"data":{"hits":{"hits":[
 {"_id":"a1","_source":{
   "general":{"title":[{"de":"Ignoriert"}],"description":[{"en_us_wp":"About cells","de":"Über Zellen"}],
              "language":["de","en"],"identifiers":[{"catalog":"doi","entry":"10.1/abc"}]},
   "technical":{"format":"video/mp4","size":2048,"duration":"PT3M","thumbnail":{"url":"http://t/2.png"}},
   "oea_title_ml":{"de":"Zellbiologie","en_us_wp":"Cell biology"},
   "oea_classification_00":"Video","oea_classification_01":[{"name_en":"Biology","name_de":"Biologie"}],
   "oea_classification_02":"CC-BY-SA-3.0-AT","oea_classification_03":"2021-05-04",
   "oea_classification_05":"mp4","oea_classification_06":"x",
   "oea_authors":["Unknown","Universität Wien"],"oea_object_direct_link":"https://oerhub.at/v/1",
   "oea_valid":true,"oea_classification_04":"Lecture"}},
 {"_id":"a2","_source":{"general":{"title":[]},"technical":{},"oea_title":"Nur Deutsch",
   "oea_classification_02":"Proprietary","oea_classification_00":"Hologram","oea_thumbnail_url":"http://t/1.png"}},
 {"_id":"a3","_source":{"general":{},"technical":{},"oea_classification_02":""}}
]}}}`

func TestOERhubIngest(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	client := fetch.New(fetch.Config{CacheDir: t.TempDir()})
	src := New(Config{
		Client:    client,
		SearchURL: srv.URL,
		Authors: normalize.AuthorResolver{
			Organizations: grounding.NewStatic(grounding.Match{Name: "Universität Wien", Identifier: "03prydq77"}),
		},
	})

	rec := diagnostics.NewRecorder(Name)
	resources, err := sources.Collect(context.Background(), src, rec)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	cells := resources[0]
	assert.Equal(t, "oerhub:a1", cells.Key())
	assert.Equal(t, oer.LangString{{Lang: "de", Text: "Zellbiologie"}, {Lang: "en", Text: "Cell biology"}}, cells.Title)
	assert.Equal(t, "Cell biology", cells.BestTitle())
	assert.Equal(t, "About cells", cells.Description.Best())
	assert.Equal(t, "spdx:CC-BY-SA-3.0", cells.License.String())
	assert.Equal(t, []oer.LangString{{{Lang: "en", Text: "Biology"}, {Lang: "de", Text: "Biologie"}}}, cells.Keywords)
	assert.Equal(t, []string{oer.TypeVideo}, cells.ResourceTypes)
	assert.Equal(t, []string{"deu", "eng"}, cells.Languages)
	assert.Equal(t, oer.Agents{oer.Organization{Name: "Universität Wien", ROR: "03prydq77"}}, cells.Authors)
	assert.Equal(t, []oer.Reference{{Prefix: "doi", Identifier: "10.1/abc"}}, cells.Xrefs)
	assert.Equal(t, "http://t/2.png", cells.Logo)
	assert.Equal(t, []string{"mp4"}, cells.FileFormats)
	require.NotNil(t, cells.FileSize)
	assert.Equal(t, int64(2048), *cells.FileSize)
	assert.Equal(t, "2021-05-04", cells.DatePublished)
	assert.Equal(t, "https://oerhub.at/v/1", cells.ExternalURI)

	german := resources[1]
	assert.Equal(t, oer.Lang("de", "Nur Deutsch"), german.Title)
	assert.Nil(t, german.License)
	assert.Empty(t, german.ResourceTypes)
	assert.Equal(t, "http://t/1.png", german.Logo)

	assert.Equal(t, 1, rec.Total(diagnostics.CategoryDropped))
	assert.Equal(t, 1, rec.Total(diagnostics.CategoryMediaType))
	assert.Equal(t, 1, rec.Total(diagnostics.UnmappedValueCategory("oerhub_resource_type")))
	assert.Equal(t, 1, rec.Total(diagnostics.CategoryUnknownLicense))

	unmapped := map[string]int{}
	for _, it := range rec.Report().Unmapped {
		unmapped[it.Key] = it.Count
	}
	assert.Equal(t, map[string]int{"oea_classification_04": 1}, unmapped)

	_, err = sources.Collect(context.Background(), src, diagnostics.NewRecorder(Name))
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second pass must reuse the cached response")
}
