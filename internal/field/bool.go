package field

import "fmt"

// BoolField accepts true or false only; numbers and strings are rejected.
type BoolField struct {
	Base                `yaml:",inline"`
	RequireValue        *bool  `yaml:"require_value"`
	RequireValueMessage string `yaml:"require_value_message"`
}

func (f *BoolField) Process(raw any) (any, error) {
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}
	v, ok := raw.(bool)
	if !ok {
		return nil, fmt.Errorf("not a boolean: %v", raw)
	}
	if f.RequireValue != nil && v != *f.RequireValue {
		return nil, requireValueError(f.RequireValueMessage)
	}
	return v, nil
}

func (f *BoolField) Ask(ctx map[string]any) (AskField, error) {
	ask, err := f.Base.ask(ctx)
	if err != nil {
		return nil, err
	}
	ask["require_value"] = f.RequireValue
	ask["require_value_message"] = f.RequireValueMessage
	return ask, nil
}

// requireValueError reports a require_value mismatch with the configured
// message, or "Required" when none is set.
func requireValueError(message string) error {
	if message == "" {
		message = "Required"
	}
	return fmt.Errorf("%s", message)
}
