package field

import (
	"fmt"
	"math"
)

// NumberField accepts a numeric value. Strings are never coerced; an integer
// value is accepted for a float field but not the other way around when
// integer is set.
type NumberField struct {
	Base         `yaml:",inline"`
	Min          *float64 `yaml:"min"`
	Max          *float64 `yaml:"max"`
	Integer      bool     `yaml:"integer"`
	InputMode    string   `yaml:"input_mode"`
	Autocomplete string   `yaml:"autocomplete"`
}

func (f *NumberField) Process(raw any) (any, error) {
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}
	num, integral, ok := toNumber(raw)
	if !ok {
		return nil, fmt.Errorf("not a number: %v", raw)
	}
	if f.Integer && !integral {
		return nil, fmt.Errorf("must be an integer")
	}
	if f.Min != nil && num < *f.Min {
		return nil, fmt.Errorf("must be at least %v", *f.Min)
	}
	if f.Max != nil && num > *f.Max {
		return nil, fmt.Errorf("must be at most %v", *f.Max)
	}
	if f.Integer {
		return int(num), nil
	}
	return num, nil
}

// toNumber normalizes the numeric kinds produced by YAML and JSON decoding.
// Booleans count as 0/1 integers; strings never convert.
func toNumber(raw any) (val float64, integral bool, ok bool) {
	switch v := raw.(type) {
	case int:
		return float64(v), true, true
	case int64:
		return float64(v), true, true
	case float64:
		return v, v == math.Trunc(v), true
	case bool:
		if v {
			return 1, true, true
		}
		return 0, true, true
	default:
		return 0, false, false
	}
}

func (f *NumberField) Ask(ctx map[string]any) (AskField, error) {
	ask, err := f.Base.ask(ctx)
	if err != nil {
		return nil, err
	}
	ask["min"] = f.Min
	ask["max"] = f.Max
	ask["integer"] = f.Integer
	ask["input_mode"] = f.InputMode
	ask["autocomplete"] = f.Autocomplete
	return ask, nil
}
