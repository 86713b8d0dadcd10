package normalize

import "strings"

// DOIURL normalizes a DOI to its https://doi.org/ form. Empty values and
// values containing spaces are discarded.
func DOIURL(doi string) string {
	if strings.TrimSpace(doi) == "" || strings.Contains(doi, " ") {
		return ""
	}
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi:"} {
		doi = strings.TrimPrefix(doi, prefix)
	}
	doi = strings.TrimSpace(doi)
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + doi
}
