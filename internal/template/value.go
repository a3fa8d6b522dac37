package template

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Value is a literal value or an expression. In YAML a string is always an
// expression; string literals are written quoted inside the expression, e.g.
// value: "'hello'".
type Value struct {
	literal any
	expr    *Expression
}

// NewLiteral wraps a plain value.
func NewLiteral(v any) Value { return Value{literal: v} }

// NewExprValue wraps an expression.
func NewExprValue(e *Expression) Value { return Value{expr: e} }

// IsZero reports whether the value was never set.
func (v Value) IsZero() bool { return v.expr == nil && v.literal == nil }

// Evaluate resolves the value against ctx.
func (v Value) Evaluate(ctx map[string]any) (any, error) {
	if v.expr != nil {
		return v.expr.Evaluate(ctx)
	}
	return v.literal, nil
}

func (v Value) String() string {
	if v.expr != nil {
		return v.expr.String()
	}
	return fmt.Sprintf("%v", v.literal)
}

// UnmarshalYAML decodes a value: string scalars compile as expressions,
// everything else is taken literally.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		var s string
		if err := node.Decode(&s); err == nil && node.Tag == "!!str" {
			expr, err := NewExpression(s)
			if err != nil {
				return err
			}
			*v = Value{expr: expr}
			return nil
		}
	}
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*v = Value{literal: raw}
	return nil
}
