package grounding

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultRORURL is the public ROR API.
const DefaultRORURL = "https://api.ror.org/v2"

// ROR grounds organization names against the Research Organization Registry.
// Only organizations with a name, alias or label equal to the query match.
type ROR struct {
	baseURL string
	client  JSONGetter
}

// NewROR creates an organization grounder. An empty baseURL uses DefaultRORURL.
func NewROR(client JSONGetter, baseURL string) *ROR {
	if baseURL == "" {
		baseURL = DefaultRORURL
	}
	return &ROR{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

type rorSearchResponse struct {
	Items []struct {
		ID    string `json:"id"`
		Names []struct {
			Value string   `json:"value"`
			Types []string `json:"types"`
		} `json:"names"`
	} `json:"items"`
}

func (r *ROR) GetMatches(ctx context.Context, text string) ([]Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	var resp rorSearchResponse
	if err := r.client.GetJSON(ctx, r.baseURL+"/organizations?query="+url.QueryEscape(text), &resp); err != nil {
		return nil, fmt.Errorf("failed to search ROR for %q: %w", text, err)
	}

	want := NormalizeName(text)
	var matches []Match
	for _, item := range resp.Items {
		display := ""
		matched := false
		for _, n := range item.Names {
			for _, t := range n.Types {
				if t == "ror_display" {
					display = n.Value
				}
			}
			if NormalizeName(n.Value) == want {
				matched = true
			}
		}
		if !matched {
			continue
		}
		if display == "" {
			display = text
		}
		matches = append(matches, Match{Name: display, Identifier: strings.TrimPrefix(item.ID, "https://ror.org/")})
	}
	return matches, nil
}
