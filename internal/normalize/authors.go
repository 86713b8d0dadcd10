package normalize

import (
	"context"
	"log/slog"
	"strings"

	"github.com/data-literacy-alliance/oerbservatory/internal/diagnostics"
	"github.com/data-literacy-alliance/oerbservatory/internal/grounding"
	"github.com/data-literacy-alliance/oerbservatory/internal/oer"
)

var placeholderAuthors = map[string]bool{
	"unknown":         true,
	"unknown unknown": true,
}

// AuthorResolver turns free-text author strings into Person or Organization
// entries. A registry identifier is only attached when the lookup returns
// exactly one candidate.
type AuthorResolver struct {
	People        grounding.Grounder
	Organizations grounding.Grounder
}

// Resolve maps names in order. Placeholder names are dropped. A name carrying
// an embedded "(orcid: ...)" becomes a Person with that ORCID without any
// lookup, even when no name precedes it. Grounding failures are logged, counted on rec and treated as no
// match.
func (ar AuthorResolver) Resolve(ctx context.Context, names []string, rec *diagnostics.Recorder) oer.Agents {
	var out oer.Agents
	for _, raw := range names {
		if a := ar.resolveOne(ctx, raw, rec); a != nil {
			out = append(out, a)
		}
	}
	return out
}

func (ar AuthorResolver) resolveOne(ctx context.Context, raw string, rec *diagnostics.Recorder) oer.Agent {
	name := Text(raw)
	if name == "" || placeholderAuthors[strings.ToLower(name)] {
		return nil
	}

	if strings.Contains(name, "orcid:") {
		before, after, _ := strings.Cut(name, "(orcid:")
		orcid := strings.TrimSpace(strings.Trim(strings.TrimSpace(after), ")"))
		p := oer.Person{Name: strings.TrimSpace(before), ORCID: orcid}
		if p.Name == "" && p.ORCID == "" {
			return nil
		}
		return p
	}

	if m, ok := ar.single(ctx, ar.People, name, rec); ok {
		return oer.Person{Name: m.Name, ORCID: m.Identifier}
	}
	if m, ok := ar.single(ctx, ar.Organizations, name, rec); ok {
		return oer.Organization{Name: m.Name, ROR: m.Identifier}
	}
	return oer.Person{Name: name}
}

func (ar AuthorResolver) single(ctx context.Context, g grounding.Grounder, name string, rec *diagnostics.Recorder) (grounding.Match, bool) {
	if g == nil {
		return grounding.Match{}, false
	}
	matches, err := g.GetMatches(ctx, name)
	if err != nil {
		slog.Warn("Grounding failed", "name", name, "err", err)
		if rec != nil {
			rec.CountExample(diagnostics.CategoryAuthor, "grounding_error", name)
		}
		return grounding.Match{}, false
	}
	if len(matches) > 1 && rec != nil {
		rec.CountExample(diagnostics.CategoryAuthor, "ambiguous", name)
	}
	if len(matches) != 1 {
		return grounding.Match{}, false
	}
	return matches[0], true
}
