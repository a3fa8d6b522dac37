// Package question implements the question model: typed fields bundled with
// optional buttons, response parsing into location assignments, and the
// QuestionBank index used to find questions providing a variable location.
package question

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/field"
	"github.com/parley-stack/parley/internal/location"
	"github.com/parley-stack/parley/internal/template"
)

// identifierPattern restricts ids to alphanumerics, "-" and "_", starting
// with a letter.
var identifierPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]*$`)

// ValidateIdentifier rejects invalid interview/question identifiers.
// Identifiers must start with a letter and must not end with "-".
func ValidateIdentifier(id string) error {
	if !identifierPattern.MatchString(id) || strings.HasSuffix(id, "-") {
		return errors.Newf(errors.CodeConfigInvalid, "invalid identifier: %q", id)
	}
	return nil
}

// Button is a question button. When buttons are present, one must be
// submitted with the response.
type Button struct {
	Label   *template.Template `yaml:"label"`
	Value   any                `yaml:"value"`
	Primary bool               `yaml:"primary"`
	Default bool               `yaml:"default"`
}

// UnmarshalYAML decodes a button; primary and default are true unless
// overridden.
func (b *Button) UnmarshalYAML(node *yaml.Node) error {
	type plain Button
	out := plain{Primary: true, Default: true}
	if err := node.Decode(&out); err != nil {
		return err
	}
	*b = Button(out)
	return nil
}

// Question bundles fields and optional buttons behind a when guard.
type Question struct {
	ID          string
	Title       *template.Template
	Description *template.Template
	Fields      []field.Field
	Buttons     []Button
	ButtonsSet  location.Location
	When        template.Condition

	provides []location.Location
}

// UnmarshalYAML decodes a question, dispatching each field on its type tag.
func (q *Question) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		ID          string             `yaml:"id"`
		Title       *template.Template `yaml:"title"`
		Description *template.Template `yaml:"description"`
		Fields      []yaml.Node        `yaml:"fields"`
		Buttons     []Button           `yaml:"buttons"`
		ButtonsSet  location.Ref       `yaml:"buttons_set"`
		When        template.Condition `yaml:"when"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	if err := ValidateIdentifier(raw.ID); err != nil {
		return fmt.Errorf("question (line %d): %w", node.Line, err)
	}

	fields := make([]field.Field, 0, len(raw.Fields))
	for i := range raw.Fields {
		f, err := field.Parse(&raw.Fields[i])
		if err != nil {
			return fmt.Errorf("question %q: %w", raw.ID, err)
		}
		fields = append(fields, f)
	}

	*q = Question{
		ID:          raw.ID,
		Title:       raw.Title,
		Description: raw.Description,
		Fields:      fields,
		Buttons:     raw.Buttons,
		ButtonsSet:  raw.ButtonsSet.Location,
		When:        raw.When,
	}
	q.provides = computeProvides(fields)
	return nil
}

// computeProvides collects the distinct non-nil field set locations.
func computeProvides(fields []field.Field) []location.Location {
	var provides []location.Location
	for _, f := range fields {
		loc := f.Set()
		if loc == nil {
			continue
		}
		duplicate := false
		for _, existing := range provides {
			if existing.Equal(loc) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			provides = append(provides, loc)
		}
	}
	return provides
}

// Provides returns the set of locations this question's fields write to.
// Computed once at parse time; stable for the question's lifetime.
func (q *Question) Provides() []location.Location {
	return q.provides
}

// WhenMatches evaluates the question's guard. An undefined variable in the
// guard propagates so the stepper can resolve it first.
func (q *Question) WhenMatches(ctx map[string]any) (bool, error) {
	return q.When.Evaluate(ctx)
}

// Assignment is a location/value pair produced by parsing a response.
type Assignment struct {
	Loc   location.Location
	Value any
}

// ParseResponse validates a raw response against the question's fields and
// buttons, returning the assignments to apply. Field failures are collected
// into a single validation error naming each offending slot. The state is
// never touched here; validation errors leave it unchanged.
func (q *Question) ParseResponse(responses map[string]any, button *int) ([]Assignment, error) {
	var assignments []Assignment
	fieldErrors := map[string]any{}

	for i, f := range q.Fields {
		name := field.Name(i)
		value, err := f.Process(responses[name])
		if err != nil {
			fieldErrors[name] = err.Error()
			continue
		}
		if loc := f.Set(); loc != nil {
			assignments = append(assignments, Assignment{Loc: loc, Value: value})
		}
	}
	if len(fieldErrors) > 0 {
		err := errors.New(errors.CodeValidationField, "invalid field values")
		for name, reason := range fieldErrors {
			err = err.WithDetail(name, reason)
		}
		return nil, err
	}

	if len(q.Buttons) == 0 {
		// Submitted buttons are ignored when the question defines none.
		return assignments, nil
	}
	if button == nil {
		return nil, errors.ValidationShape("button value required")
	}
	if *button < 0 || *button >= len(q.Buttons) {
		return nil, errors.ValidationShape("invalid button value")
	}
	if q.ButtonsSet != nil {
		assignments = append(assignments, Assignment{Loc: q.ButtonsSet, Value: q.Buttons[*button].Value})
	}
	return assignments, nil
}

// AskFields renders the client-facing view of every field, keyed by slot
// name.
func (q *Question) AskFields(ctx map[string]any) (map[string]field.AskField, error) {
	out := make(map[string]field.AskField, len(q.Fields))
	for i, f := range q.Fields {
		ask, err := f.Ask(ctx)
		if err != nil {
			return nil, err
		}
		out[field.Name(i)] = ask
	}
	return out, nil
}
