package normalize

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05",
	time.DateOnly,
	"2006-01",
	"2006",
}

// Date reduces a provider date or timestamp to YYYY-MM-DD. Values that match
// none of the known layouts are returned trimmed but otherwise unchanged.
func Date(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			switch layout {
			case "2006":
				return t.Format("2006")
			case "2006-01":
				return t.Format("2006-01")
			}
			return t.Format(time.DateOnly)
		}
	}
	return s
}
