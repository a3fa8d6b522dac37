package field

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// dateLayout is the accepted wire format for dates.
const dateLayout = "2006-01-02"

// DateSpec is a date bound or default: either a literal date or the sentinel
// "today", resolved when the field is processed or rendered.
type DateSpec struct {
	today bool
	value time.Time
}

// Resolve returns the concrete date, resolving "today" against the current
// clock.
func (d *DateSpec) Resolve(now func() time.Time) time.Time {
	if d.today {
		y, m, day := now().UTC().Date()
		return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
	}
	return d.value
}

// UnmarshalYAML decodes a date literal or the "today" sentinel.
func (d *DateSpec) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if s == "today" {
		*d = DateSpec{today: true}
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}
	*d = DateSpec{value: t}
	return nil
}

// DateField accepts an RFC 3339 full-date string. Bounds are inclusive and
// may use the "today" sentinel.
type DateField struct {
	Base                `yaml:",inline"`
	RequireValue        *DateSpec `yaml:"require_value"`
	RequireValueMessage string    `yaml:"require_value_message"`

	Min *DateSpec `yaml:"min"`
	Max *DateSpec `yaml:"max"`

	// Now is the clock used to resolve "today"; tests may replace it.
	Now func() time.Time `yaml:"-"`
}

func (f *DateField) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *DateField) Process(raw any) (any, error) {
	if s, ok := raw.(string); ok && strings.TrimSpace(s) == "" {
		raw = nil
	}
	raw, done, err := f.checkRequired(raw)
	if done {
		return raw, err
	}

	var v time.Time
	switch t := raw.(type) {
	case time.Time:
		v = t.UTC().Truncate(24 * time.Hour)
	case string:
		parsed, err := time.ParseInLocation(dateLayout, strings.TrimSpace(t), time.UTC)
		if err != nil {
			return nil, fmt.Errorf("invalid date: %v", raw)
		}
		v = parsed
	default:
		return nil, fmt.Errorf("not a date: %v", raw)
	}

	if f.Min != nil {
		if min := f.Min.Resolve(f.now); v.Before(min) {
			return nil, fmt.Errorf("must be on or after %s", min.Format(dateLayout))
		}
	}
	if f.Max != nil {
		if max := f.Max.Resolve(f.now); v.After(max) {
			return nil, fmt.Errorf("must be on or before %s", max.Format(dateLayout))
		}
	}
	if f.RequireValue != nil && !v.Equal(f.RequireValue.Resolve(f.now)) {
		return nil, requireValueError(f.RequireValueMessage)
	}
	return v.Format(dateLayout), nil
}

func (f *DateField) Ask(ctx map[string]any) (AskField, error) {
	ask, err := f.Base.ask(ctx)
	if err != nil {
		return nil, err
	}
	ask["min"] = f.askDate(f.Min)
	ask["max"] = f.askDate(f.Max)
	if d, ok := f.Default.(string); ok && d == "today" {
		ask["default"] = f.askDate(&DateSpec{today: true})
	}
	if f.RequireValue != nil {
		ask["require_value"] = f.askDate(f.RequireValue)
		ask["require_value_message"] = f.RequireValueMessage
	}
	return ask, nil
}

func (f *DateField) askDate(d *DateSpec) any {
	if d == nil {
		return nil
	}
	return d.Resolve(f.now).Format(dateLayout)
}
