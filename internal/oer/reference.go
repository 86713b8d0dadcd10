package oer

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reference is a compact URI, prefix:identifier.
type Reference struct {
	Prefix     string
	Identifier string
}

// NewReference returns a pointer to a reference, for optional fields.
func NewReference(prefix, identifier string) *Reference {
	return &Reference{Prefix: prefix, Identifier: identifier}
}

// ParseReference splits a CURIE on its first colon.
func ParseReference(curie string) (Reference, error) {
	prefix, id, ok := strings.Cut(curie, ":")
	if !ok || prefix == "" || id == "" {
		return Reference{}, fmt.Errorf("invalid compact URI %q", curie)
	}
	return Reference{Prefix: prefix, Identifier: id}, nil
}

func (r Reference) String() string {
	return r.Prefix + ":" + r.Identifier
}

func (r Reference) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

func (r *Reference) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseReference(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
