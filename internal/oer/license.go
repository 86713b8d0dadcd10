package oer

import (
	"encoding/json"
	"strings"
)

// LicenseKind tells how a License value should be read.
type LicenseKind int

const (
	// LicenseSPDX is an SPDX license identifier.
	LicenseSPDX LicenseKind = iota + 1
	// LicenseTerm is a term from the license ontology, e.g. "unspecified".
	LicenseTerm
	// LicenseText is free text that no mapping table recognized.
	LicenseText
)

// License is a normalized license reference or a free-text fallback.
type License struct {
	Kind  LicenseKind
	Value string
}

// Common license ontology terms.
var (
	Unspecified         = License{Kind: LicenseTerm, Value: "unspecified"}
	RequiresAttribution = License{Kind: LicenseTerm, Value: "requires-attribution"}
	NotOpen             = License{Kind: LicenseTerm, Value: "not-open"}
	Open                = License{Kind: LicenseTerm, Value: "open"}
	NonCommercial       = License{Kind: LicenseTerm, Value: "non-commercial"}
	PublicDomain        = License{Kind: LicenseTerm, Value: "public-domain"}
)

// SPDX returns the license for an SPDX identifier such as "CC-BY-4.0".
func SPDX(id string) *License {
	return &License{Kind: LicenseSPDX, Value: id}
}

// FreeText wraps an unmapped license string.
func FreeText(text string) *License {
	return &License{Kind: LicenseText, Value: text}
}

// Ptr returns a pointer to a copy of l, for use with the package-level terms.
func (l License) Ptr() *License {
	return &l
}

// IsUnspecified reports whether l is the unspecified/proprietary sentinel.
func (l License) IsUnspecified() bool {
	return l == Unspecified
}

func (l License) String() string {
	switch l.Kind {
	case LicenseSPDX:
		return "spdx:" + l.Value
	case LicenseTerm:
		return LicenseOntologyNS + l.Value
	default:
		return l.Value
	}
}

func (l License) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

func (l *License) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*l = ParseLicense(s)
	return nil
}

// ParseLicense is the inverse of License.String.
func ParseLicense(s string) License {
	switch {
	case strings.HasPrefix(s, "spdx:"):
		return License{Kind: LicenseSPDX, Value: strings.TrimPrefix(s, "spdx:")}
	case strings.HasPrefix(s, LicenseOntologyNS):
		return License{Kind: LicenseTerm, Value: strings.TrimPrefix(s, LicenseOntologyNS)}
	default:
		return License{Kind: LicenseText, Value: s}
	}
}
