package oer

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBestTitle(t *testing.T) {
	tests := []struct {
		name  string
		title LangString
		want  string
	}{
		{"english wins", LangString{{"fr", "Bonjour"}, {"de", "Hallo"}, {"en", "Hello"}}, "Hello"},
		{"german second", LangString{{"fr", "Bonjour"}, {"de", "Hallo"}}, "Hallo"},
		{"smallest code", LangString{{"it", "Ciao"}, {"fr", "Bonjour"}, {"nl", "Hoi"}}, "Bonjour"},
		{"single entry", Lang("es", "Hola"), "Hola"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resource{Platform: "test", Title: tt.title}
			got := r.BestTitle()
			assert.Equal(t, tt.want, got)
			assert.Contains(t, tt.title.Texts(), got)
		})
	}
}

func TestDocumentOrder(t *testing.T) {
	r := Resource{
		Platform:    "test",
		Title:       LangString{{"de", "Titel"}, {"en", "Title"}},
		Description: LangString{{"en", "Body"}},
		Keywords:    []LangString{{{"en", "chem"}, {"de", "Chemie"}}, Lang("en", "fair")},
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, "Titel Title Body chem Chemie fair", r.Document())
	}
	assert.Equal(t, "chem Chemie fair", r.KeywordText())
}

func TestNew(t *testing.T) {
	t.Run("rejects empty title", func(t *testing.T) {
		_, err := New(Resource{Platform: "test"})
		assert.ErrorIs(t, err, ErrEmptyTitle)
	})

	t.Run("rejects missing platform", func(t *testing.T) {
		_, err := New(Resource{Title: Lang("en", "x")})
		assert.ErrorIs(t, err, ErrMissingPlatform)
	})

	t.Run("rejects bad languages", func(t *testing.T) {
		_, err := New(Resource{Platform: "test", Title: Lang("eng", "x")})
		assert.ErrorIs(t, err, ErrInvalidLanguage)

		_, err = New(Resource{Platform: "test", Title: Lang("en", "x"), Languages: []string{"en"}})
		assert.ErrorIs(t, err, ErrInvalidLanguage)
	})

	t.Run("deterministic uuid from reference", func(t *testing.T) {
		base := Resource{Platform: "gtn", Title: Lang("en", "x"), Reference: NewReference("gtn", "abc")}
		a, err := New(base)
		require.NoError(t, err)
		b, err := New(base)
		require.NoError(t, err)
		assert.Equal(t, a.UUID, b.UUID)
		assert.Equal(t, "gtn:abc", a.Key())
	})

	t.Run("random uuid without seed", func(t *testing.T) {
		base := Resource{Platform: "test", Title: Lang("en", "x")}
		a, err := New(base)
		require.NoError(t, err)
		b, err := New(base)
		require.NoError(t, err)
		assert.NotEqual(t, a.UUID, b.UUID)
		assert.Equal(t, a.UUID.String(), a.Key())
	})

	t.Run("shared external uri does not share a key", func(t *testing.T) {
		base := Resource{Platform: "dalia", Title: Lang("en", "x"), ExternalURI: "https://example.org/same"}
		a, err := New(base)
		require.NoError(t, err)
		b, err := New(base)
		require.NoError(t, err)
		assert.NotEqual(t, a.Key(), b.Key())
	})

	t.Run("keeps preassigned uuid", func(t *testing.T) {
		id := uuid.New()
		r, err := New(Resource{UUID: id, Platform: "test", Title: Lang("en", "x")})
		require.NoError(t, err)
		assert.Equal(t, id, r.UUID)
	})
}

func TestIdentify(t *testing.T) {
	a, err := New(Resource{Platform: "dalia", Title: Lang("en", "x"), ExternalURI: "https://example.org/same"})
	require.NoError(t, err)
	b, err := New(Resource{Platform: "dalia", Title: Lang("en", "y"), ExternalURI: "https://example.org/same"})
	require.NoError(t, err)

	a.Identify("sheet.csv:2")
	b.Identify("sheet.csv:3")
	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, StableUUID("dalia", "sheet.csv:2"), a.UUID)

	again, err := New(Resource{Platform: "dalia", Title: Lang("en", "x")})
	require.NoError(t, err)
	again.Identify("sheet.csv:2")
	assert.Equal(t, a.UUID, again.UUID, "same locator, same uuid across runs")

	ref, err := New(Resource{Platform: "gtn", Title: Lang("en", "x"), Reference: NewReference("gtn", "abc")})
	require.NoError(t, err)
	before := ref.UUID
	ref.Identify("topic/abc")
	assert.Equal(t, before, ref.UUID)
}

func TestResourceJSON(t *testing.T) {
	size := int64(12500000)
	r, err := New(Resource{
		Platform:  "dalia",
		Reference: NewReference("dalia.oer", "1234"),
		Title:     LangString{{"en", "B"}, {"de", "A"}},
		Authors:   Agents{Person{Name: "Ada", ORCID: "0000-0001"}, Organization{Name: "ZB MED", ROR: "0259fwx54"}},
		License:   SPDX("CC-BY-4.0"),
		Languages: []string{"eng"},
		FileSize:  &size,
		Xrefs:     []Reference{{Prefix: "edam", Identifier: "topic_0091"}},
	})
	require.NoError(t, err)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	s := string(data)
	assert.Contains(t, s, `"title":{"en":"B","de":"A"}`)
	assert.Contains(t, s, `"reference":"dalia.oer:1234"`)
	assert.Contains(t, s, `{"type":"Person","name":"Ada","orcid":"0000-0001"}`)
	assert.Contains(t, s, `{"type":"Organization","name":"ZB MED","ror":"0259fwx54"}`)
	assert.Contains(t, s, `"license":"spdx:CC-BY-4.0"`)
	assert.NotContains(t, s, "description")
	assert.NotContains(t, s, "logo")

	var back Resource
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, *r, back)

	again, err := json.Marshal(&back)
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestAgentsUnknownVariant(t *testing.T) {
	var as Agents
	err := json.Unmarshal([]byte(`[{"type":"Robot","name":"R2"}]`), &as)
	assert.ErrorIs(t, err, ErrUnknownAuthorVariant)
}

func TestLicenseRoundTrip(t *testing.T) {
	tests := []struct {
		in   License
		want string
	}{
		{*SPDX("MIT"), "spdx:MIT"},
		{Unspecified, "https://w3id.org/license-ontology/unspecified"},
		{*FreeText("Some custom terms"), "Some custom terms"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.String())
			assert.Equal(t, tt.in, ParseLicense(tt.want))
		})
	}
	assert.True(t, Unspecified.IsUnspecified())
}

func TestLangStringWith(t *testing.T) {
	ls := Lang("de", "Hallo").With("en", "Hello").With("de", "Servus")
	assert.Equal(t, LangString{{"de", "Servus"}, {"en", "Hello"}}, ls)
	assert.Equal(t, LangString{{"en", "Hello"}}, ls.Without("de"))
	assert.Equal(t, LangString{{"a", "1"}, {"b", "2"}}, LangStringFromMap(map[string]string{"b": "2", "a": "1"}))
}
