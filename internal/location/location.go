// Package location implements the variable location language used in
// interview definitions: dotted/indexed paths such as "a.b[c]" that name a
// position in the interview data tree. Locations are parsed once and then
// evaluated or assigned against a context map.
package location

import (
	"fmt"
)

// Location is a parsed variable location term.
//
// A location is one of Name, AttributeAccess, IndexAccess or Const. Const
// terms only appear as evaluated index literals; they are not valid
// assignment targets.
type Location interface {
	fmt.Stringer

	// Evaluate resolves the location against ctx. A missing key or index
	// produces an *UndefinedError carrying the deepest defined prefix plus
	// the first missing step.
	Evaluate(ctx map[string]any) (any, error)

	// Assign writes value at the location. The container holding the final
	// step must already exist; only a top-level Name creates its key.
	Assign(value any, ctx map[string]any) error

	// Equal reports structural equality.
	Equal(other Location) bool
}

// UndefinedError reports access to an undefined location. The Location is the
// deepest defined prefix augmented by the first missing step, which is what
// lets the stepper find a question providing that specific missing piece.
type UndefinedError struct {
	Location Location
}

func (e *UndefinedError) Error() string {
	return fmt.Sprintf("undefined location: %s", e.Location)
}

// Undefined returns the *UndefinedError in err's chain, or nil.
func Undefined(err error) *UndefinedError {
	for err != nil {
		if u, ok := err.(*UndefinedError); ok {
			return u
		}
		err = unwrap(err)
	}
	return nil
}

func unwrap(err error) error {
	u, ok := err.(interface{ Unwrap() error })
	if !ok {
		return nil
	}
	return u.Unwrap()
}

// Name is a top-level variable name.
type Name struct {
	Name string
}

func (n Name) String() string { return n.Name }

func (n Name) Evaluate(ctx map[string]any) (any, error) {
	val, ok := ctx[n.Name]
	if !ok {
		return nil, &UndefinedError{Location: n}
	}
	return val, nil
}

func (n Name) Assign(value any, ctx map[string]any) error {
	ctx[n.Name] = value
	return nil
}

func (n Name) Equal(other Location) bool {
	o, ok := other.(Name)
	return ok && o.Name == n.Name
}

// Const is a constant index value, either an int or a string. It only occurs
// as an evaluated index term and cannot be assigned to.
type Const struct {
	Value any // int or string
}

func (c Const) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", c.Value)
}

func (c Const) Evaluate(ctx map[string]any) (any, error) { return c.Value, nil }

func (c Const) Assign(value any, ctx map[string]any) error {
	return fmt.Errorf("cannot assign to a constant")
}

func (c Const) Equal(other Location) bool {
	o, ok := other.(Const)
	return ok && o.Value == c.Value
}

// AttributeAccess is dotted member access, e.g. "a.b". It is evaluated as a
// string-keyed map lookup.
type AttributeAccess struct {
	Target Location
	Name   string
}

func (a AttributeAccess) String() string {
	return fmt.Sprintf("%s.%s", a.Target, a.Name)
}

func (a AttributeAccess) Evaluate(ctx map[string]any) (any, error) {
	target, err := a.Target.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := target.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: not a map: %T", a.Target, target)
	}
	val, ok := m[a.Name]
	if !ok {
		return nil, &UndefinedError{Location: canonicalize(a, ctx)}
	}
	return val, nil
}

func (a AttributeAccess) Assign(value any, ctx map[string]any) error {
	target, err := a.Target.Evaluate(ctx)
	if err != nil {
		return err
	}
	m, ok := target.(map[string]any)
	if !ok {
		return fmt.Errorf("%s: not a map: %T", a.Target, target)
	}
	m[a.Name] = value
	return nil
}

func (a AttributeAccess) Equal(other Location) bool {
	o, ok := other.(AttributeAccess)
	return ok && o.Name == a.Name && o.Target.Equal(a.Target)
}

// IndexAccess is subscript access, e.g. "a[0]" or "a[b]". The index term must
// evaluate to an int or string.
type IndexAccess struct {
	Target Location
	Index  Location
}

func (i IndexAccess) String() string {
	return fmt.Sprintf("%s[%s]", i.Target, i.Index)
}

func (i IndexAccess) Evaluate(ctx map[string]any) (any, error) {
	index, err := evalIndex(i.Index, ctx)
	if err != nil {
		return nil, err
	}
	target, err := i.Target.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	val, ok, err := getIndex(target, index)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", i.Target, err)
	}
	if !ok {
		missing := IndexAccess{Target: canonicalize(i.Target, ctx), Index: Const{Value: index}}
		return nil, &UndefinedError{Location: missing}
	}
	return val, nil
}

func (i IndexAccess) Assign(value any, ctx map[string]any) error {
	index, err := evalIndex(i.Index, ctx)
	if err != nil {
		return err
	}
	target, err := i.Target.Evaluate(ctx)
	if err != nil {
		return err
	}
	return setIndex(target, index, value)
}

func (i IndexAccess) Equal(other Location) bool {
	o, ok := other.(IndexAccess)
	return ok && o.Target.Equal(i.Target) && o.Index.Equal(i.Index)
}

// canonicalize rewrites indexes to constants for error reporting. The
// target was just evaluated, so its indexes are defined; on any failure the
// location is reported as written.
func canonicalize(loc Location, ctx map[string]any) Location {
	canonical, err := EvaluateIndexes(loc, ctx)
	if err != nil {
		return loc
	}
	return canonical
}

// evalIndex evaluates an index term and checks it is an int or string.
func evalIndex(loc Location, ctx map[string]any) (any, error) {
	index, err := loc.Evaluate(ctx)
	if err != nil {
		return nil, err
	}
	switch v := index.(type) {
	case int, string:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON-decoded data stores numbers as float64.
		if v == float64(int(v)) {
			return int(v), nil
		}
	}
	return nil, fmt.Errorf("invalid index type: %T", index)
}

// getIndex indexes a list or map. ok is false when the key or position does
// not exist.
func getIndex(target, index any) (val any, ok bool, err error) {
	switch t := target.(type) {
	case []any:
		i, isInt := index.(int)
		if !isInt {
			return nil, false, nil
		}
		if i < 0 || i >= len(t) {
			return nil, false, nil
		}
		return t[i], true, nil
	case map[string]any:
		k, isStr := index.(string)
		if !isStr {
			return nil, false, nil
		}
		v, present := t[k]
		return v, present, nil
	default:
		return nil, false, fmt.Errorf("not a list or map: %T", target)
	}
}

// setIndex assigns into a list or map. List positions must already be in
// range.
func setIndex(target, index, value any) error {
	switch t := target.(type) {
	case []any:
		i, isInt := index.(int)
		if !isInt {
			return fmt.Errorf("invalid list index: %v", index)
		}
		if i < 0 || i >= len(t) {
			return fmt.Errorf("list index out of range: %d", i)
		}
		t[i] = value
		return nil
	case map[string]any:
		k, isStr := index.(string)
		if !isStr {
			return fmt.Errorf("invalid map key: %v", index)
		}
		t[k] = value
		return nil
	default:
		return fmt.Errorf("not a list or map: %T", target)
	}
}

// EvaluateIndexes returns loc with every non-const index term replaced by a
// Const of its evaluated value. Locations are normalized this way before
// comparison and bank lookup.
func EvaluateIndexes(loc Location, ctx map[string]any) (Location, error) {
	switch l := loc.(type) {
	case IndexAccess:
		index, err := evalIndex(l.Index, ctx)
		if err != nil {
			return nil, err
		}
		target, err := EvaluateIndexes(l.Target, ctx)
		if err != nil {
			return nil, err
		}
		return IndexAccess{Target: target, Index: Const{Value: index}}, nil
	case AttributeAccess:
		target, err := EvaluateIndexes(l.Target, ctx)
		if err != nil {
			return nil, err
		}
		return AttributeAccess{Target: target, Name: l.Name}, nil
	default:
		return loc, nil
	}
}

// Prefixes returns the chain of locations from the root name to loc itself,
// outermost last. For "a.b[0]" it returns [a, a.b, a.b[0]].
func Prefixes(loc Location) []Location {
	switch l := loc.(type) {
	case IndexAccess:
		return append(Prefixes(l.Target), loc)
	case AttributeAccess:
		return append(Prefixes(l.Target), loc)
	default:
		return []Location{loc}
	}
}
