package field

import (
	"fmt"
	"sort"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/template"
)

// Option is a selectable choice. The declared value is what gets stored; the
// label is what clients display.
type Option struct {
	Value any                `yaml:"value"`
	Label *template.Template `yaml:"label"`
}

// SelectField accepts an option index (when max is 1) or a list of indices.
// Submitted indices are translated to their declared option values before
// storage; multi-selects are stored sorted by index.
type SelectField struct {
	Base                `yaml:",inline"`
	RequireValue        any    `yaml:"require_value"`
	RequireValueMessage string `yaml:"require_value_message"`

	Min          int      `yaml:"min"`
	Max          int      `yaml:"max"`
	Component    string   `yaml:"component"`
	Options      []Option `yaml:"options"`
	InputMode    string   `yaml:"input_mode"`
	Autocomplete string   `yaml:"autocomplete"`
}

func (f *SelectField) validate() error {
	if len(f.Options) == 0 {
		return errors.Newf(errors.CodeConfigInvalid, "select field: options are required")
	}
	if f.Min < 0 || f.Max < 1 || f.Min > f.Max {
		return errors.Newf(errors.CodeConfigInvalid, "select field: invalid min/max: %d/%d", f.Min, f.Max)
	}
	switch f.Component {
	case "dropdown", "checkbox", "radio":
	default:
		return errors.Newf(errors.CodeConfigInvalid, "select field: unknown component: %q", f.Component)
	}
	return nil
}

func (f *SelectField) Process(raw any) (any, error) {
	if f.Max == 1 {
		return f.processSingle(raw)
	}
	return f.processList(raw)
}

func (f *SelectField) processSingle(raw any) (any, error) {
	if raw == nil {
		if f.Min == 0 || f.IsOpt {
			return nil, nil
		}
		return nil, errRequired
	}
	value, err := f.optionValue(raw)
	if err != nil {
		return nil, err
	}
	if f.RequireValue != nil {
		expected, err := f.requiredValue()
		if err != nil {
			return nil, err
		}
		if value != expected {
			return nil, requireValueError(f.RequireValueMessage)
		}
	}
	return value, nil
}

func (f *SelectField) processList(raw any) (any, error) {
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("not a list: %v", raw)
	}
	if len(items) < f.Min {
		return nil, fmt.Errorf("at least %d items required", f.Min)
	}
	if len(items) > f.Max {
		return nil, fmt.Errorf("at most %d items allowed", f.Max)
	}

	indices := make([]int, 0, len(items))
	seen := make(map[int]bool, len(items))
	for _, item := range items {
		i, ok := optionIndex(item)
		if !ok {
			return nil, fmt.Errorf("not a valid option: %v", item)
		}
		if seen[i] {
			return nil, fmt.Errorf("duplicate values not allowed")
		}
		seen[i] = true
		indices = append(indices, i)
	}
	// Sorted for stable storage and require_value comparison.
	sort.Ints(indices)

	values := make([]any, 0, len(indices))
	for _, i := range indices {
		value, err := f.optionValue(i)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}

	if f.RequireValue != nil {
		expected, err := f.requiredValues()
		if err != nil {
			return nil, err
		}
		if !equalValues(values, expected) {
			return nil, requireValueError(f.RequireValueMessage)
		}
	}
	return values, nil
}

// optionValue translates a submitted index into its declared option value.
func (f *SelectField) optionValue(raw any) (any, error) {
	i, ok := optionIndex(raw)
	if !ok || i < 0 || i >= len(f.Options) {
		return nil, fmt.Errorf("not a valid option: %v", raw)
	}
	return f.Options[i].Value, nil
}

// requiredValue translates the configured require_value index.
func (f *SelectField) requiredValue() (any, error) {
	return f.optionValue(f.RequireValue)
}

// requiredValues translates a configured require_value index list, sorted.
func (f *SelectField) requiredValues() ([]any, error) {
	list, ok := f.RequireValue.([]any)
	if !ok {
		return nil, fmt.Errorf("require_value must be a list")
	}
	indices := make([]int, 0, len(list))
	for _, item := range list {
		i, ok := optionIndex(item)
		if !ok {
			return nil, fmt.Errorf("invalid require_value entry: %v", item)
		}
		indices = append(indices, i)
	}
	sort.Ints(indices)
	values := make([]any, 0, len(indices))
	for _, i := range indices {
		value, err := f.optionValue(i)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

// optionIndex normalizes a submitted index. Strings never convert.
func optionIndex(raw any) (int, bool) {
	switch v := raw.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		if v == float64(int(v)) {
			return int(v), true
		}
	}
	return 0, false
}

func equalValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (f *SelectField) Ask(ctx map[string]any) (AskField, error) {
	ask, err := f.Base.ask(ctx)
	if err != nil {
		return nil, err
	}
	labels := make([]string, 0, len(f.Options))
	for _, opt := range f.Options {
		if opt.Label != nil {
			rendered, err := opt.Label.Render(ctx)
			if err != nil {
				return nil, err
			}
			labels = append(labels, rendered)
		} else {
			labels = append(labels, template.Stringify(opt.Value))
		}
	}
	ask["min"] = f.Min
	ask["max"] = f.Max
	ask["component"] = f.Component
	ask["options"] = labels
	ask["input_mode"] = f.InputMode
	ask["autocomplete"] = f.Autocomplete
	if f.RequireValue != nil {
		ask["require_value"] = f.RequireValue
		ask["require_value_message"] = f.RequireValueMessage
	}
	return ask, nil
}
