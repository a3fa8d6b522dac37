package location

import (
	"fmt"
	"regexp"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// namePattern restricts names to letters followed by letters, digits or
// underscores.
var namePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Parse parses a variable location string such as "a", "a.b" or "a[b[0]].c".
// Whitespace between tokens is permitted. Anything outside the location
// grammar (operators, calls, literals in non-index position) is an error.
func Parse(s string) (Location, error) {
	tree, err := parser.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", s, err)
	}
	loc, err := FromNode(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", s, err)
	}
	return loc, nil
}

// MustParse is Parse for statically known locations; it panics on error.
func MustParse(s string) Location {
	loc, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return loc
}

// FromNode converts an expression AST node into a Location. Only identifier,
// member and constant-integer-index nodes are accepted.
func FromNode(node ast.Node) (Location, error) {
	switch n := node.(type) {
	case *ast.IdentifierNode:
		if !namePattern.MatchString(n.Value) {
			return nil, fmt.Errorf("invalid name: %s", n.Value)
		}
		return Name{Name: n.Value}, nil
	case *ast.MemberNode:
		target, err := FromNode(n.Node)
		if err != nil {
			return nil, err
		}
		switch p := n.Property.(type) {
		case *ast.StringNode:
			if !namePattern.MatchString(p.Value) {
				return nil, fmt.Errorf("invalid attribute name: %s", p.Value)
			}
			return AttributeAccess{Target: target, Name: p.Value}, nil
		case *ast.IntegerNode:
			if p.Value < 0 {
				return nil, fmt.Errorf("negative index: %d", p.Value)
			}
			return IndexAccess{Target: target, Index: Const{Value: p.Value}}, nil
		default:
			index, err := FromNode(n.Property)
			if err != nil {
				return nil, err
			}
			return IndexAccess{Target: target, Index: index}, nil
		}
	default:
		return nil, fmt.Errorf("not a location: %T", node)
	}
}
