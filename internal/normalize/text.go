// Package normalize holds the field-level helpers shared by the source
// mappers: license tables, localized strings, language codes, vocabularies,
// file sizes, DOIs, dates and author resolution.
package normalize

import (
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
	"golang.org/x/text/unicode/norm"
)

// Text trims s and converts it to NFC.
func Text(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// providerEnglishKey is an English locale variant emitted by OERhub.
const providerEnglishKey = "en_us_wp"

// LangMap builds a localized string from a raw provider map. Values are
// cleaned and empty ones dropped. The provider key en_us_wp becomes en,
// unless en is already present, in which case it is discarded. Keys that are
// not language codes are dropped.
func LangMap(raw map[string]any) oer.LangString {
	clean := make(map[string]string, len(raw))
	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		if s = Text(s); s != "" {
			clean[k] = s
		}
	}

	if wp, ok := clean[providerEnglishKey]; ok {
		delete(clean, providerEnglishKey)
		if _, hasEN := clean["en"]; !hasEN {
			clean["en"] = wp
		}
	}

	out := make(map[string]string, len(clean))
	for k, v := range clean {
		if code, ok := Alpha2(k); ok {
			if _, dup := out[code]; !dup {
				out[code] = v
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return oer.LangStringFromMap(out)
}

// LangText wraps a single value in a localized string, or returns nil when
// the cleaned value is empty.
func LangText(lang, s string) oer.LangString {
	if s = Text(s); s == "" {
		return nil
	}
	return oer.Lang(lang, s)
}
