// Package oer defines the canonical educational resource record that every
// source is normalized into.
package oer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrEmptyTitle      = errors.New("resource has no title")
	ErrMissingPlatform = errors.New("resource has no platform")
	ErrInvalidLanguage = errors.New("invalid language code")
)

// uuidNamespace scopes deterministic resource UUIDs.
var uuidNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://w3id.org/oerbservatory"))

// Resource is a normalized open educational resource. Values are built once
// with New and treated as read-only afterwards.
type Resource struct {
	UUID      uuid.UUID  `json:"uuid"`
	Reference *Reference `json:"reference,omitempty"`
	Platform  string     `json:"platform"`

	Title       LangString   `json:"title"`
	Description LangString   `json:"description,omitempty"`
	Keywords    []LangString `json:"keywords,omitempty"`
	Authors     Agents       `json:"authors,omitempty"`
	License     *License     `json:"license,omitempty"`

	Disciplines     []string `json:"disciplines,omitempty"`
	ResourceTypes   []string `json:"resource_types,omitempty"`
	MediaTypes      []string `json:"media_types,omitempty"`
	DifficultyLevel []string `json:"difficulty_level,omitempty"`
	Audience        []string `json:"audience,omitempty"`
	Languages       []string `json:"languages,omitempty"`

	FileSize    *int64      `json:"file_size,omitempty"`
	FileFormats []string    `json:"file_formats,omitempty"`
	Xrefs       []Reference `json:"xrefs,omitempty"`

	Logo              string   `json:"logo,omitempty"`
	ExternalURI       string   `json:"external_uri,omitempty"`
	ExternalURIExtras []string `json:"external_uri_extras,omitempty"`

	Version            string `json:"version,omitempty"`
	DatePublished      string `json:"date_published,omitempty"`
	DateModified       string `json:"date_modified,omitempty"`
	Status             string `json:"status,omitempty"`
	LearningObjectives string `json:"learning_objectives,omitempty"`
	DerivedFrom        string `json:"derived_from,omitempty"`

	SupportingCommunities   []Organization `json:"supporting_communities,omitempty"`
	RecommendingCommunities []Organization `json:"recommending_communities,omitempty"`
}

// New validates r and assigns its UUID. A resource with a reference gets a
// UUID derived from it, so repeated runs produce the same UUID. Others get a
// random UUID until Identify gives them a stable one.
func New(r Resource) (*Resource, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	if r.UUID == uuid.Nil {
		if r.Reference != nil {
			r.UUID = StableUUID(r.Platform, r.Reference.String())
		} else {
			r.UUID = uuid.New()
		}
	}
	return &r, nil
}

// StableUUID derives a name-based UUID for seed within platform.
func StableUUID(platform, seed string) uuid.UUID {
	return uuid.NewSHA1(uuidNamespace, []byte(platform+"\x00"+seed))
}

// Identify replaces the UUID of a resource without a reference by one
// derived from seed, which must be unique to the record within its
// platform. Resources with a reference are left alone.
func (r *Resource) Identify(seed string) {
	if r.Reference == nil {
		r.UUID = StableUUID(r.Platform, seed)
	}
}

// Validate checks the invariants every resource must satisfy.
func (r *Resource) Validate() error {
	if r.Platform == "" {
		return ErrMissingPlatform
	}
	if len(r.Title) == 0 {
		return ErrEmptyTitle
	}
	if err := r.Title.Validate(); err != nil {
		return fmt.Errorf("invalid title: %w", err)
	}
	if err := r.Description.Validate(); err != nil {
		return fmt.Errorf("invalid description: %w", err)
	}
	for i, kw := range r.Keywords {
		if err := kw.Validate(); err != nil {
			return fmt.Errorf("invalid keyword %d: %w", i, err)
		}
	}
	for _, a := range r.Authors {
		if err := validateAgent(a); err != nil {
			return err
		}
	}
	for _, lang := range r.Languages {
		if !isAlpha3(lang) {
			return fmt.Errorf("%w: %q is not a three-letter code", ErrInvalidLanguage, lang)
		}
	}
	return nil
}

// Key is the canonical index key: the external reference when present,
// otherwise the UUID.
func (r *Resource) Key() string {
	if r.Reference != nil {
		return r.Reference.String()
	}
	return r.UUID.String()
}

// BestTitle returns the display title.
func (r *Resource) BestTitle() string {
	return r.Title.Best()
}

// KeywordText joins every keyword value in stored order.
func (r *Resource) KeywordText() string {
	var parts []string
	for _, kw := range r.Keywords {
		parts = append(parts, kw.Texts()...)
	}
	return strings.Join(parts, " ")
}

// Document is the plain-text projection used by the indexers: title values,
// then description values, then keyword values.
func (r *Resource) Document() string {
	var parts []string
	parts = append(parts, r.Title.Texts()...)
	parts = append(parts, r.Description.Texts()...)
	for _, kw := range r.Keywords {
		parts = append(parts, kw.Texts()...)
	}
	return strings.Join(parts, " ")
}
