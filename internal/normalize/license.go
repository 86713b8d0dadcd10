package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
)

// ErrUnknownLicense marks license values that no mapping table covers in a
// source where that is a data-integrity failure.
var ErrUnknownLicense = errors.New("unknown license")

// LicenseError reports the raw value that could not be mapped.
type LicenseError struct {
	Source string
	Value  string
}

func (e *LicenseError) Error() string {
	return fmt.Sprintf("%s: %v: %q", e.Source, ErrUnknownLicense, e.Value)
}

func (e *LicenseError) Unwrap() error { return ErrUnknownLicense }

// proprietaryLicenses are non-SPDX license URIs used by the curation sheets.
var proprietaryLicenses = map[string]oer.License{
	oer.ModaliaNS + "ProprietaryLicense": oer.Unspecified,
}

// DALIALicense maps a curation-sheet license URI. SPDX license URIs become
// spdx references; anything outside the SPDX namespace and the proprietary
// exception table is an error.
func DALIALicense(uri string) (*oer.License, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, nil
	}
	if l, ok := proprietaryLicenses[uri]; ok {
		return l.Ptr(), nil
	}
	for _, prefix := range []string{oer.SPDXLicensesURL, "https://spdx.org/licenses/"} {
		if id, ok := strings.CutPrefix(uri, prefix); ok && id != "" {
			return oer.SPDX(id), nil
		}
	}
	return nil, &LicenseError{Source: "dalia", Value: uri}
}

// oerhubLicenses maps OERhub license classifications to SPDX identifiers.
// The Austrian ported CC variants map to their unported versions.
var oerhubLicenses = map[string]string{
	"CC-BY-4.0":       "CC-BY-4.0",
	"CC-BY-3.0-AT":    "CC-BY-3.0",
	"CC-BY-SA-4.0":    "CC-BY-SA-4.0",
	"CC-BY-ND-4.0":    "CC-BY-ND-4.0",
	"CC-BY-SA-3.0-AT": "CC-BY-SA-3.0",
	"CC-BY-NC-4.0":    "CC-BY-NC-4.0",
	"CC-BY-NC-ND-4.0": "CC-BY-NC-ND-4.0",
	"CC-BY-NC-SA-4.0": "CC-BY-NC-SA-4.0",
	"CC-BY-SA-2.0":    "CC-BY-SA-2.0",
}

// OERhubLicense maps a license classification. The boolean is false when the
// classification is non-empty but unknown; callers log and count it.
func OERhubLicense(classification string) (*oer.License, bool) {
	classification = strings.TrimSpace(classification)
	if classification == "" {
		return nil, true
	}
	id, ok := oerhubLicenses[classification]
	if !ok {
		return nil, false
	}
	return oer.SPDX(id), true
}

// tessNotSpecified is the TeSS key for materials without a licence.
const tessNotSpecified = "notspecified"

// tessTerms maps TeSS's non-SPDX licence keys to license ontology terms.
var tessTerms = map[string]oer.License{
	"other-at":     oer.RequiresAttribution,
	"other-closed": oer.NotOpen,
	"other-open":   oer.Open,
	"other-nc":     oer.NonCommercial,
	"other-pd":     oer.PublicDomain,
}

// tessOverrides fixes licence keys whose dictionary entries are missing or
// point to deprecated SPDX identifiers. Keys are lower case.
var tessOverrides = map[string]string{
	"cc-by-1.0":       "CC-BY-1.0",
	"cc-by-2.0":       "CC-BY-2.0",
	"cc-by-3.0":       "CC-BY-3.0",
	"cc-by-4.0":       "CC-BY-4.0",
	"cc-by-sa-4.0":    "CC-BY-SA-4.0",
	"cc-by-nd-4.0":    "CC-BY-ND-4.0",
	"cc-by-nd-2.0":    "CC-BY-ND-2.0",
	"cc-by-nc-4.0":    "CC-BY-NC-4.0",
	"cc-by-nc-2.0":    "CC-BY-NC-2.0",
	"cc-by-nc-sa-3.0": "CC-BY-NC-SA-3.0",
	"cc-by-nc-sa-4.0": "CC-BY-NC-SA-4.0",
	"cc-by-nc-nd-3.0": "CC-BY-NC-ND-3.0",
	"cc-by-nc-nd-4.0": "CC-BY-NC-ND-4.0",
	"cc0-1.0":         "CC0-1.0",
	"mit":             "MIT",
	"gpl-2.0":         "GPL-2.0",
	"gpl-3.0-only":    "GPL-3.0-only",
	"gpl-3.0":         "GPL-3.0-or-later",
	"agpl-3.0-only":   "AGPL-3.0-only",
	"unlicense":       "Unlicense",
	"apache-2.0":      "Apache-2.0",
	"bsd-3-clause":    "BSD-3-Clause",
	"artistic-2.0":    "Artistic-2.0",
	"afl-3.0":         "AFL-3.0",
	"odc-by-1.0":      "ODC-By-1.0",
	"wtfpl":           "WTFPL",
}

var spdxDocumentURL = regexp.MustCompile(`^https?://spdx\.org/licenses/([A-Za-z0-9.+-]+)\.(html|json)$`)

// LicenseDictionary resolves TeSS licence keys. Entries come from the TeSS
// licence dictionary and map a key to the URL of its SPDX document.
type LicenseDictionary struct {
	entries map[string]string
}

// NewLicenseDictionary builds a dictionary from key to URL. Keys are matched
// case-insensitively.
func NewLicenseDictionary(urls map[string]string) *LicenseDictionary {
	d := &LicenseDictionary{entries: make(map[string]string, len(urls))}
	for k, u := range urls {
		d.entries[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(u)
	}
	return d
}

// Resolve maps a licence key. Local term and override tables win over the
// dictionary. A dictionary entry whose URL is not an SPDX license document is
// an error. A key found nowhere is returned as free text with known=false.
func (d *LicenseDictionary) Resolve(key string) (l *oer.License, known bool, err error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || key == tessNotSpecified {
		return nil, true, nil
	}
	if term, ok := tessTerms[key]; ok {
		return term.Ptr(), true, nil
	}
	if id, ok := tessOverrides[key]; ok {
		return oer.SPDX(id), true, nil
	}
	if d != nil {
		if u, ok := d.entries[key]; ok {
			m := spdxDocumentURL.FindStringSubmatch(u)
			if m == nil {
				return nil, false, &LicenseError{Source: "tess", Value: key + " -> " + u}
			}
			return oer.SPDX(m[1]), true, nil
		}
	}
	return oer.FreeText(key), false, nil
}

// creativeCommonsURL matches license deeds such as
// https://creativecommons.org/licenses/by-sa/4.0/deed.de.
var creativeCommonsURL = regexp.MustCompile(`^https?://creativecommons\.org/(licenses|publicdomain)/([a-z-]+)/(\d\.\d)(/[a-z]{2})?(/.*)?$`)

// CreativeCommonsLicense maps a Creative Commons URL to its SPDX identifier.
// Jurisdiction ports map to the unported version. The boolean is false for
// anything that is not a recognizable Creative Commons URL.
func CreativeCommonsLicense(u string) (*oer.License, bool) {
	m := creativeCommonsURL.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return nil, false
	}
	kind, version := m[2], m[3]
	switch {
	case m[1] == "publicdomain" && kind == "zero":
		return oer.SPDX("CC0-" + version), true
	case m[1] == "publicdomain" && kind == "mark":
		return oer.PublicDomain.Ptr(), true
	case m[1] == "licenses" && strings.HasPrefix(kind, "by"):
		return oer.SPDX("CC-" + strings.ToUpper(kind) + "-" + version), true
	}
	return nil, false
}
