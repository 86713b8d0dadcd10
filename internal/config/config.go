// Package config reads run settings from the environment.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/fetch"
	"github.com/data-literacy-alliance/oerbservatory/internal/grounding"
	"github.com/data-literacy-alliance/oerbservatory/internal/similarity"
	"github.com/data-literacy-alliance/oerbservatory/internal/sources/dalia"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	GroundingOnline = "online"
	GroundingOff    = "off"
)

// Embedding providers accepted by EMBEDDING_PROVIDER.
var EmbeddingProviders = []string{"gemini", "ollama", "openai"}

// Config holds every environment-driven setting. The json names are the
// variables each field is read from and label validation errors.
type Config struct {
	OutputDir string  `json:"OERBSERVATORY_OUTPUT_DIR"`
	CacheDir  string  `json:"OERBSERVATORY_CACHE_DIR"`
	Parallel  bool    `json:"OERBSERVATORY_PARALLEL"`
	Cutoff    float64 `json:"OERBSERVATORY_SIMILARITY_CUTOFF"`

	Grounding string `json:"OERBSERVATORY_GROUNDING"`
	ORCIDURL  string `json:"ORCID_API_URL"`
	RORURL    string `json:"ROR_API_URL"`

	// EmbeddingProvider is empty when dense similarity is disabled.
	EmbeddingProvider string `json:"EMBEDDING_PROVIDER"`
	EmbeddingModel    string `json:"EMBEDDING_MODEL"`

	DALIACurationDir  string   `json:"DALIA_CURATION_DIR"`
	DALIACurationURLs []string `json:"DALIA_CURATION_URLS"`
	TeSSInstances     []string `json:"TESS_INSTANCES"`
}

// Load reads the configuration. Unset variables take their defaults; set but
// malformed values are errors.
func Load() (Config, error) {
	cfg := Config{
		OutputDir:         getenv("OERBSERVATORY_OUTPUT_DIR", "output"),
		CacheDir:          getenv("OERBSERVATORY_CACHE_DIR", fetch.DefaultCacheDir),
		Cutoff:            similarity.DefaultCutoff,
		Grounding:         strings.ToLower(getenv("OERBSERVATORY_GROUNDING", GroundingOnline)),
		ORCIDURL:          getenv("ORCID_API_URL", grounding.DefaultORCIDURL),
		RORURL:            getenv("ROR_API_URL", grounding.DefaultRORURL),
		EmbeddingProvider: strings.ToLower(strings.TrimSpace(os.Getenv("EMBEDDING_PROVIDER"))),
		EmbeddingModel:    strings.TrimSpace(os.Getenv("EMBEDDING_MODEL")),
		DALIACurationDir:  os.Getenv("DALIA_CURATION_DIR"),
		DALIACurationURLs: []string{dalia.DefaultCurationURL},
		TeSSInstances:     list(os.Getenv("TESS_INSTANCES")),
	}

	if v := os.Getenv("OERBSERVATORY_PARALLEL"); v != "" {
		parallel, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OERBSERVATORY_PARALLEL %q: %w", v, err)
		}
		cfg.Parallel = parallel
	}

	if v := os.Getenv("OERBSERVATORY_SIMILARITY_CUTOFF"); v != "" {
		cutoff, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OERBSERVATORY_SIMILARITY_CUTOFF %q: %w", v, err)
		}
		cfg.Cutoff = cutoff
	}

	if v, ok := os.LookupEnv("DALIA_CURATION_URLS"); ok {
		cfg.DALIACurationURLs = list(v)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.OutputDir, validation.Required),
		validation.Field(&c.CacheDir, validation.Required),
		validation.Field(&c.Cutoff, finite, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.Grounding,
			validation.Required,
			validation.In(GroundingOnline, GroundingOff).Error("must be online or off"),
		),
		validation.Field(&c.ORCIDURL, validation.Required, is.URL),
		validation.Field(&c.RORURL, validation.Required, is.URL),
		validation.Field(&c.EmbeddingProvider,
			validation.In(embeddingProviders()...).Error("must be one of "+strings.Join(EmbeddingProviders, ", ")),
		),
		validation.Field(&c.DALIACurationURLs, validation.Each(is.URL)),
	)
}

// ValidateCutoff rejects cutoffs outside [0, 1].
func ValidateCutoff(cutoff float64) error {
	if err := validation.Validate(cutoff, finite, validation.Min(0.0), validation.Max(1.0)); err != nil {
		return fmt.Errorf("similarity cutoff %v: %w", cutoff, err)
	}
	return nil
}

var finite = validation.By(func(v any) error {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return errors.New("must be a finite number")
	}
	return nil
})

func embeddingProviders() []any {
	out := make([]any, len(EmbeddingProviders))
	for i, p := range EmbeddingProviders {
		out[i] = p
	}
	return out
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// list splits a comma-separated value, dropping blanks.
func list(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
