package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// exprPattern matches {{ expression }} interpolations.
var exprPattern = regexp.MustCompile(`\{\{([^{}]+)\}\}`)

// Template is a string with {{ expression }} interpolations evaluated
// against the template context.
type Template struct {
	src   string
	parts []part
}

// part is either a literal string or a compiled expression.
type part struct {
	literal string
	expr    *Expression
}

// NewTemplate parses a template string, compiling each interpolation.
func NewTemplate(src string) (*Template, error) {
	var parts []part
	last := 0
	for _, m := range exprPattern.FindAllStringSubmatchIndex(src, -1) {
		if m[0] > last {
			parts = append(parts, part{literal: src[last:m[0]]})
		}
		inner := strings.TrimSpace(src[m[2]:m[3]])
		expr, err := NewExpression(inner)
		if err != nil {
			return nil, err
		}
		parts = append(parts, part{expr: expr})
		last = m[1]
	}
	if last < len(src) {
		parts = append(parts, part{literal: src[last:]})
	}
	return &Template{src: src, parts: parts}, nil
}

func (t *Template) String() string { return t.src }

// Render evaluates the template against ctx. An undefined variable in any
// interpolation aborts with its *location.UndefinedError.
func (t *Template) Render(ctx map[string]any) (string, error) {
	var b strings.Builder
	for _, p := range t.parts {
		if p.expr == nil {
			b.WriteString(p.literal)
			continue
		}
		val, err := p.expr.Evaluate(ctx)
		if err != nil {
			return "", err
		}
		b.WriteString(Stringify(val))
	}
	return b.String(), nil
}

// UnmarshalYAML decodes a template from a YAML scalar.
func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	var src string
	if err := node.Decode(&src); err != nil {
		return fmt.Errorf("template must be a string: %w", err)
	}
	parsed, err := NewTemplate(src)
	if err != nil {
		return err
	}
	*t = *parsed
	return nil
}

// Stringify converts a value to its template rendering. Maps and slices are
// JSON-marshalled instead of using Go's %v format.
func Stringify(val any) string {
	if val == nil {
		return ""
	}
	switch v := val.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case map[string]any, []any:
		if b, err := json.Marshal(v); err == nil {
			return string(b)
		}
	}
	return fmt.Sprintf("%v", val)
}
