// Package field implements the typed question field kinds: bool, date,
// email, number, select and text. Every field follows the same two-stage
// contract: coerce the raw submitted value (trim strings, empty to nil when
// optional), then validate it against the field's constraints.
package field

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/location"
	"github.com/parley-stack/parley/internal/template"
)

// Field is a typed question field.
type Field interface {
	// Type returns the field kind tag.
	Type() string

	// Set returns the location the answer lands at, or nil.
	Set() location.Location

	// Optional reports whether nil is an accepted value.
	Optional() bool

	// Process coerces and validates a raw submitted value, returning the
	// value to store. The error, if any, carries the reason only; callers
	// attach the field name.
	Process(raw any) (any, error)

	// Ask returns the client-facing view of the field. Only client-safe
	// constraints are included; rendering labels may fail with a
	// *location.UndefinedError.
	Ask(ctx map[string]any) (AskField, error)
}

// AskField is the rendered, client-facing view of a field.
type AskField map[string]any

// Name returns the response slot name for the i-th field of a question.
func Name(i int) string {
	return fmt.Sprintf("field_%d", i)
}

// errRequired is the reason reported when a required value is missing.
var errRequired = fmt.Errorf("a value is required")

// Parse decodes a field definition, dispatching on its "type" tag.
func Parse(node *yaml.Node) (Field, error) {
	var probe struct {
		Type string `yaml:"type"`
	}
	if err := node.Decode(&probe); err != nil {
		return nil, errors.Wrap(errors.CodeConfigParse, "invalid field", err)
	}

	var f Field
	switch probe.Type {
	case "bool":
		f = &BoolField{}
	case "date":
		f = &DateField{}
	case "email":
		f = &EmailField{}
	case "number":
		f = &NumberField{}
	case "select":
		f = &SelectField{Min: 1, Max: 1, Component: "dropdown"}
	case "text":
		f = &TextField{Max: DefaultMaxTextLength}
	case "":
		return nil, errors.Newf(errors.CodeConfigInvalid, "field is missing a type (line %d)", node.Line)
	default:
		return nil, errors.Newf(errors.CodeConfigInvalid, "unknown field type: %q", probe.Type)
	}

	if err := node.Decode(f); err != nil {
		return nil, errors.Wrapf(errors.CodeConfigParse, err, "invalid %s field", probe.Type)
	}
	if v, ok := f.(interface{ validate() error }); ok {
		if err := v.validate(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Base carries the settings shared by every field kind.
type Base struct {
	TypeTag  string             `yaml:"type"`
	SetRef   location.Ref       `yaml:"set"`
	IsOpt    bool               `yaml:"optional"`
	Default  any                `yaml:"default"`
	Label    *template.Template `yaml:"label"`
}

// Type returns the field kind tag.
func (b *Base) Type() string { return b.TypeTag }

// Set returns the location the answer lands at, or nil.
func (b *Base) Set() location.Location { return b.SetRef.Location }

// Optional reports whether nil is an accepted value.
func (b *Base) Optional() bool { return b.IsOpt }

// ask builds the AskField entries common to all kinds.
func (b *Base) ask(ctx map[string]any) (AskField, error) {
	var label any
	if b.Label != nil {
		rendered, err := b.Label.Render(ctx)
		if err != nil {
			return nil, err
		}
		label = rendered
	}
	return AskField{
		"type":     b.TypeTag,
		"optional": b.IsOpt,
		"default":  b.Default,
		"label":    label,
	}, nil
}

// checkRequired applies the shared nil handling: nil is accepted for
// optional fields and rejected otherwise. done is true when the caller
// should stop with the returned value.
func (b *Base) checkRequired(raw any) (val any, done bool, err error) {
	if raw != nil {
		return raw, false, nil
	}
	if b.IsOpt {
		return nil, true, nil
	}
	return nil, true, errRequired
}
