package normalize

import (
	"strings"

	"golang.org/x/text/language"
)

// Alpha2 converts an ISO 639 code (two or three letters, any case) to its
// two-letter form. Region suffixes such as en-US are ignored.
func Alpha2(code string) (string, bool) {
	base, ok := parseBase(code)
	if !ok {
		return "", false
	}
	s := base.String()
	if len(s) != 2 {
		return "", false
	}
	return s, true
}

// Alpha3 converts an ISO 639 code to its three-letter form.
func Alpha3(code string) (string, bool) {
	base, ok := parseBase(code)
	if !ok {
		return "", false
	}
	s := base.ISO3()
	if len(s) != 3 {
		return "", false
	}
	return s, true
}

// Alpha3List converts codes to three-letter codes, dropping unknown and
// duplicate entries while keeping order.
func Alpha3List(codes []string) []string {
	var out []string
	seen := make(map[string]bool, len(codes))
	for _, c := range codes {
		if a3, ok := Alpha3(c); ok && !seen[a3] {
			seen[a3] = true
			out = append(out, a3)
		}
	}
	return out
}

func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if i := strings.IndexAny(code, "-_"); i > 0 {
		code = code[:i]
	}
	if code == "" {
		return language.Base{}, false
	}
	base, err := language.ParseBase(code)
	if err != nil {
		return language.Base{}, false
	}
	return base, true
}
