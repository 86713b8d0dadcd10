package grounding

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// DefaultORCIDURL is the public ORCID API.
const DefaultORCIDURL = "https://pub.orcid.org/v3.0"

// JSONGetter is the part of the retrieval client the registry grounders need.
type JSONGetter interface {
	GetJSON(ctx context.Context, rawURL string, out any) error
}

// ORCID grounds person names against the ORCID expanded search. Only results
// whose full name equals the query are returned.
type ORCID struct {
	baseURL string
	client  JSONGetter
	rows    int
}

// NewORCID creates a person grounder. An empty baseURL uses DefaultORCIDURL.
func NewORCID(client JSONGetter, baseURL string) *ORCID {
	if baseURL == "" {
		baseURL = DefaultORCIDURL
	}
	return &ORCID{baseURL: strings.TrimRight(baseURL, "/"), client: client, rows: 20}
}

type orcidSearchResponse struct {
	NumFound int `json:"num-found"`
	Results  []struct {
		ORCID       string   `json:"orcid-id"`
		GivenNames  string   `json:"given-names"`
		FamilyNames string   `json:"family-names"`
		CreditName  string   `json:"credit-name"`
		OtherNames  []string `json:"other-name"`
	} `json:"expanded-result"`
}

func (o *ORCID) GetMatches(ctx context.Context, text string) ([]Match, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	q := url.Values{}
	q.Set("q", fmt.Sprintf("given-and-family-names:%q", text))
	q.Set("rows", fmt.Sprint(o.rows))

	var resp orcidSearchResponse
	if err := o.client.GetJSON(ctx, o.baseURL+"/expanded-search/?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("failed to search ORCID for %q: %w", text, err)
	}

	want := NormalizeName(text)
	var matches []Match
	for _, r := range resp.Results {
		forward := strings.TrimSpace(r.GivenNames + " " + r.FamilyNames)
		inverted := strings.TrimSpace(r.FamilyNames + ", " + r.GivenNames)
		candidates := append([]string{forward, inverted, r.CreditName}, r.OtherNames...)
		for _, c := range candidates {
			if c != "" && NormalizeName(c) == want {
				matches = append(matches, Match{Name: forward, Identifier: r.ORCID})
				break
			}
		}
	}
	return matches, nil
}
