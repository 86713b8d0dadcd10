package oersi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dump = `{"@context":["https://w3id.org/kim/amb/context.jsonld"],"id":"https://example.org/oer/1","name":"Einführung in die Chemie","description":"Grundlagen","inLanguage":["de"],"keywords":["Chemie","Labor"],"audience":[{"id":"http://purl.org/dcx/lrmi-vocabs/educationalAudienceRole/student"}],"about":[{"id":"https://w3id.org/kim/hochschulfaechersystematik/n40"}],"learningResourceType":[{"id":"https://w3id.org/kim/hcrt/video"}],"license":{"id":"https://creativecommons.org/licenses/by-sa/4.0/"},"creator":[{"type":"Person","name":"Erika Mustermann","id":"https://orcid.org/0000-0001-2345-6789"},{"type":"Organization","name":"TIB","id":"https://ror.org/04aj4c181"}],"datePublished":"2022-03-01","publisher":[{"name":"TIB AV-Portal"}]}
{"id":"https://example.org/oer/2","description":"no name"}
{"id":"https://example.org/oer/3","name":"Proprietary","license":{"id":"https://example.org/terms"}}
`

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func newSource(t *testing.T, body []byte) (*Source, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(body)
	}))
	client := fetch.New(fetch.Config{
		CacheDir: t.TempDir(),
		Retry:    fetch.RetryConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
	})
	return New(Config{Client: client, DumpURL: srv.URL + "/dump.ndjson.gz"}), srv.Close
}

func TestOERSIIngest(t *testing.T) {
	src, done := newSource(t, gzipped(t, dump))
	defer done()

	rec := diagnostics.NewRecorder(Name)
	resources, err := sources.Collect(context.Background(), src, rec)
	require.NoError(t, err)
	require.Len(t, resources, 2)

	chem := resources[0]
	title, ok := chem.Title.Get("de")
	require.True(t, ok)
	assert.Equal(t, "Einführung in die Chemie", title)
	assert.Equal(t, []string{"deu"}, chem.Languages)
	assert.Equal(t, "Chemie Labor", chem.KeywordText())
	assert.Equal(t, "spdx:CC-BY-SA-4.0", chem.License.String())
	assert.Equal(t, []string{"http://purl.org/dcx/lrmi-vocabs/educationalAudienceRole/student"}, chem.Audience)
	assert.Equal(t, []string{"https://w3id.org/kim/hochschulfaechersystematik/n40"}, chem.Disciplines)
	assert.Equal(t, []string{"https://w3id.org/kim/hcrt/video"}, chem.ResourceTypes)
	assert.Equal(t, "https://example.org/oer/1", chem.ExternalURI)
	assert.Equal(t, oer.Agents{
		oer.Person{Name: "Erika Mustermann", ORCID: "0000-0001-2345-6789"},
		oer.Organization{Name: "TIB", ROR: "04aj4c181"},
	}, chem.Authors)

	proprietary := resources[1]
	assert.Equal(t, oer.LicenseText, proprietary.License.Kind)

	assert.Equal(t, 1, rec.Total(diagnostics.CategoryDropped))
	assert.Equal(t, 1, rec.Total(diagnostics.CategoryUnknownLicense))
	report := rec.Report()
	require.Len(t, report.Unmapped, 1)
	assert.Equal(t, "publisher", report.Unmapped[0].Key)
}

func TestOERSIUnknownCreatorTypeIsFatal(t *testing.T) {
	src, done := newSource(t, gzipped(t, `{"id":"x","name":"X","creator":[{"type":"Robot","name":"R2"}]}`+"\n"))
	defer done()

	_, err := sources.Collect(context.Background(), src, diagnostics.NewRecorder(Name))
	require.Error(t, err)
	assert.ErrorIs(t, err, oer.ErrUnknownAuthorVariant)
}
