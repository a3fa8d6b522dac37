// Package template provides the expression, template and condition types used
// throughout interview definitions. Expressions are compiled with
// expr-lang/expr; before a program runs, every variable location its AST
// references is evaluated against the context so that a missing variable
// surfaces as a *location.UndefinedError naming the exact missing piece.
package template

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/location"
)

// Expression is a compiled expression evaluated against a template context.
type Expression struct {
	src  string
	prog *vm.Program
	refs []location.Location
}

// NewExpression parses and compiles an expression.
func NewExpression(src string) (*Expression, error) {
	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}

	var refs []location.Location
	collectRefs(tree.Node, &refs)

	// Builtins are disabled so that names like count or len always resolve
	// as interview variables.
	prog, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.DisableAllBuiltins(),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid expression %q: %w", src, err)
	}

	return &Expression{src: src, prog: prog, refs: refs}, nil
}

func (e *Expression) String() string { return e.src }

// Refs returns the variable locations the expression reads.
func (e *Expression) Refs() []location.Location { return e.refs }

// Evaluate runs the expression against ctx. Referenced locations are checked
// first; the first undefined one aborts with its *location.UndefinedError.
func (e *Expression) Evaluate(ctx map[string]any) (any, error) {
	for _, ref := range e.refs {
		if _, err := ref.Evaluate(ctx); err != nil {
			return nil, err
		}
	}
	out, err := expr.Run(e.prog, ctx)
	if err != nil {
		return nil, fmt.Errorf("evaluating %q: %w", e.src, err)
	}
	return out, nil
}

// UnmarshalYAML decodes an expression from a YAML scalar.
func (e *Expression) UnmarshalYAML(node *yaml.Node) error {
	var src string
	if err := node.Decode(&src); err != nil {
		return fmt.Errorf("expression must be a string: %w", err)
	}
	parsed, err := NewExpression(src)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// collectRefs gathers the variable locations an AST reads. Member chains that
// form a valid location are recorded whole and not descended into; their
// dynamic index sub-locations are evaluated as part of the outer location.
func collectRefs(node ast.Node, refs *[]location.Location) {
	if node == nil {
		return
	}
	switch n := node.(type) {
	case *ast.IdentifierNode:
		if loc, err := location.FromNode(n); err == nil {
			addRef(refs, loc)
		}
	case *ast.MemberNode:
		if loc, err := location.FromNode(n); err == nil {
			addRef(refs, loc)
			return
		}
		collectRefs(n.Node, refs)
		collectRefs(n.Property, refs)
	case *ast.UnaryNode:
		collectRefs(n.Node, refs)
	case *ast.BinaryNode:
		collectRefs(n.Left, refs)
		collectRefs(n.Right, refs)
	case *ast.ConditionalNode:
		collectRefs(n.Cond, refs)
		collectRefs(n.Exp1, refs)
		collectRefs(n.Exp2, refs)
	case *ast.CallNode:
		// A bare identifier callee is a function, not a variable.
		if _, ok := n.Callee.(*ast.IdentifierNode); !ok {
			collectRefs(n.Callee, refs)
		}
		for _, arg := range n.Arguments {
			collectRefs(arg, refs)
		}
	case *ast.BuiltinNode:
		for _, arg := range n.Arguments {
			collectRefs(arg, refs)
		}
	case *ast.ArrayNode:
		for _, el := range n.Nodes {
			collectRefs(el, refs)
		}
	case *ast.MapNode:
		for _, pair := range n.Pairs {
			collectRefs(pair, refs)
		}
	case *ast.PairNode:
		collectRefs(n.Value, refs)
	case *ast.SliceNode:
		collectRefs(n.Node, refs)
		collectRefs(n.From, refs)
		collectRefs(n.To, refs)
	case *ast.ChainNode:
		collectRefs(n.Node, refs)
	case *ast.PredicateNode:
		collectRefs(n.Node, refs)
	}
}

func addRef(refs *[]location.Location, loc location.Location) {
	for _, existing := range *refs {
		if existing.Equal(loc) {
			return
		}
	}
	*refs = append(*refs, loc)
}
