package location

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Ref is a Location reference decodable from a YAML scalar. The zero Ref is
// "no location".
type Ref struct {
	Location Location
}

// IsZero reports whether the reference is unset.
func (r Ref) IsZero() bool { return r.Location == nil }

func (r Ref) String() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.String()
}

// UnmarshalYAML decodes and parses a location string.
func (r *Ref) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("location must be a string: %w", err)
	}
	loc, err := Parse(s)
	if err != nil {
		return err
	}
	r.Location = loc
	return nil
}

// MarshalYAML renders the location string.
func (r Ref) MarshalYAML() (any, error) {
	if r.Location == nil {
		return nil, nil
	}
	return r.Location.String(), nil
}
