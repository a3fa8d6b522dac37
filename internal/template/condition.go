package template

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Condition is a conjunction of expressions. An empty condition is true.
//
// In YAML a condition is a single expression string, a boolean literal, or a
// sequence of either.
type Condition []*Expression

// Evaluate reports whether every expression in the conjunction is truthy.
// Evaluation stops at the first false or failing expression.
func (c Condition) Evaluate(ctx map[string]any) (bool, error) {
	for _, expr := range c {
		val, err := expr.Evaluate(ctx)
		if err != nil {
			return false, err
		}
		if !Truthy(val) {
			return false, nil
		}
	}
	return true, nil
}

// And returns the conjunction of two conditions.
func (c Condition) And(other Condition) Condition {
	if len(c) == 0 {
		return other
	}
	if len(other) == 0 {
		return c
	}
	combined := make(Condition, 0, len(c)+len(other))
	combined = append(combined, c...)
	combined = append(combined, other...)
	return combined
}

// UnmarshalYAML decodes a condition from a scalar or a sequence of scalars.
func (c *Condition) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		expr, err := conditionExpr(node)
		if err != nil {
			return err
		}
		*c = Condition{expr}
		return nil
	case yaml.SequenceNode:
		out := make(Condition, 0, len(node.Content))
		for _, item := range node.Content {
			expr, err := conditionExpr(item)
			if err != nil {
				return err
			}
			out = append(out, expr)
		}
		*c = out
		return nil
	default:
		return fmt.Errorf("invalid condition (line %d)", node.Line)
	}
}

// conditionExpr compiles a single condition entry. Boolean literals become
// constant expressions.
func conditionExpr(node *yaml.Node) (*Expression, error) {
	var b bool
	if err := node.Decode(&b); err == nil {
		if b {
			return NewExpression("true")
		}
		return NewExpression("false")
	}
	var src string
	if err := node.Decode(&src); err != nil {
		return nil, fmt.Errorf("invalid condition entry (line %d)", node.Line)
	}
	return NewExpression(src)
}

// Truthy reports whether a value counts as true in a condition: nil, false,
// zero numbers, empty strings and empty collections are false.
func Truthy(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case int:
		return v != 0
	case int64:
		return v != 0
	case float64:
		return v != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
