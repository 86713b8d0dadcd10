package oer

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownAuthorVariant is returned when an author entry is neither a
// Person nor an Organization.
var ErrUnknownAuthorVariant = errors.New("unknown author variant")

// Agent is an author entry. Person and Organization are the only
// implementations.
type Agent interface {
	DisplayName() string
	agent()
}

// Person is an individual author, optionally identified by an ORCID.
type Person struct {
	Name  string `json:"name"`
	ORCID string `json:"orcid,omitempty"`
}

// Organization is an institutional author, optionally identified by a ROR
// and a Wikidata ID.
type Organization struct {
	Name     string `json:"name"`
	ROR      string `json:"ror,omitempty"`
	Wikidata string `json:"wikidata,omitempty"`
}

func (p Person) DisplayName() string       { return p.Name }
func (o Organization) DisplayName() string { return o.Name }

func (Person) agent()       {}
func (Organization) agent() {}

const (
	personTag       = "Person"
	organizationTag = "Organization"
)

// Agents is an ordered author list, serialized as tagged objects.
type Agents []Agent

type taggedPerson struct {
	Type string `json:"type"`
	Person
}

type taggedOrganization struct {
	Type string `json:"type"`
	Organization
}

func (as Agents) MarshalJSON() ([]byte, error) {
	out := make([]any, 0, len(as))
	for _, a := range as {
		switch v := a.(type) {
		case Person:
			out = append(out, taggedPerson{Type: personTag, Person: v})
		case Organization:
			out = append(out, taggedOrganization{Type: organizationTag, Organization: v})
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownAuthorVariant, a)
		}
	}
	return json.Marshal(out)
}

func (as *Agents) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := make(Agents, 0, len(raw))
	for _, msg := range raw {
		a, err := decodeAgent(msg)
		if err != nil {
			return err
		}
		out = append(out, a)
	}
	*as = out
	return nil
}

func decodeAgent(msg json.RawMessage) (Agent, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(msg, &head); err != nil {
		return nil, fmt.Errorf("failed to decode author: %w", err)
	}

	switch head.Type {
	case personTag:
		var p Person
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, fmt.Errorf("failed to decode person: %w", err)
		}
		return p, nil
	case organizationTag:
		var o Organization
		if err := json.Unmarshal(msg, &o); err != nil {
			return nil, fmt.Errorf("failed to decode organization: %w", err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAuthorVariant, head.Type)
	}
}

func validateAgent(a Agent) error {
	switch v := a.(type) {
	case Person:
		if v.Name == "" && v.ORCID == "" {
			return errors.New("person has neither name nor ORCID")
		}
	case Organization:
		if v.Name == "" {
			return errors.New("organization has no name")
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAuthorVariant, a)
	}
	return nil
}
