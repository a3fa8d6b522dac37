package field

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/parley-stack/parley/internal/errors"
)

// DefaultMaxTextLength is the maximum length of a text field unless
// configured otherwise.
const DefaultMaxTextLength = 300

// TextField accepts a string. Input is trimmed and an empty string becomes
// nil. Regex only gates server acceptance; RegexJS is forwarded to clients
// and never enforced here.
type TextField struct {
	Base                `yaml:",inline"`
	RequireValue        string `yaml:"require_value"`
	RequireValueMessage string `yaml:"require_value_message"`

	Min          int    `yaml:"min"`
	Max          int    `yaml:"max"`
	Regex        string `yaml:"regex"`
	RegexJS      string `yaml:"regex_js"`
	InputMode    string `yaml:"input_mode"`
	Autocomplete string `yaml:"autocomplete"`

	compiled *regexp.Regexp
}

func (f *TextField) validate() error {
	if f.Min < 0 {
		return errors.Newf(errors.CodeConfigInvalid, "text field: min must not be negative")
	}
	if f.Max < f.Min {
		return errors.Newf(errors.CodeConfigInvalid, "text field: max must not be less than min")
	}
	if f.Regex != "" {
		compiled, err := regexp.Compile(f.Regex)
		if err != nil {
			return errors.Wrap(errors.CodeConfigInvalid, "text field: invalid regex", err)
		}
		f.compiled = compiled
	}
	return nil
}

func (f *TextField) Process(raw any) (any, error) {
	if s, ok := raw.(string); ok {
		trimmed := strings.TrimSpace(s)
		if trimmed == "" {
			raw = nil
		} else {
			raw = trimmed
		}
	}
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}
	v, ok := raw.(string)
	if !ok {
		return nil, fmt.Errorf("not a string: %v", raw)
	}
	if len(v) < f.Min {
		return nil, fmt.Errorf("must be at least %d characters", f.Min)
	}
	if len(v) > f.Max {
		return nil, fmt.Errorf("must be at most %d characters", f.Max)
	}
	if f.compiled != nil && !f.compiled.MatchString(v) {
		return nil, fmt.Errorf("invalid format")
	}
	if f.RequireValue != "" && v != f.RequireValue {
		return nil, requireValueError(f.RequireValueMessage)
	}
	return v, nil
}

func (f *TextField) Ask(ctx map[string]any) (AskField, error) {
	ask, err := f.Base.ask(ctx)
	if err != nil {
		return nil, err
	}
	ask["min"] = f.Min
	ask["max"] = f.Max
	ask["input_mode"] = f.InputMode
	ask["autocomplete"] = f.Autocomplete
	// Clients get the JS variant when present; the server-side regex is
	// only a fallback hint.
	regex := f.RegexJS
	if regex == "" {
		regex = f.Regex
	}
	ask["regex"] = regex
	if f.RequireValue != "" {
		ask["require_value"] = f.RequireValue
		ask["require_value_message"] = f.RequireValueMessage
	}
	return ask, nil
}
