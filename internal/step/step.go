// Package step implements the interview step model: a sum type of Set, Ask,
// Exit, Eval, Hook and Block steps, block flattening, and per-step handling
// against an interview state.
package step

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/location"
	"github.com/parley-stack/parley/internal/question"
	"github.com/parley-stack/parley/internal/template"
)

// Step is a discriminated union over the step kinds, tagged by which key is
// present in the YAML mapping. Exactly one variant pointer is non-nil.
type Step struct {
	Set   *SetStep
	Ask   *AskStep
	Exit  *ExitStep
	Eval  *EvalStep
	Hook  *HookStep
	Block *BlockStep

	When template.Condition
}

// SetStep assigns a value to a location. Unless always is set, it fires only
// while the target is still undefined.
type SetStep struct {
	Target location.Ref   `yaml:"set"`
	Value  template.Value `yaml:"value"`
	Always bool           `yaml:"always"`
}

// AskStep surfaces a question by id, at most once per interview.
type AskStep struct {
	QuestionID string `yaml:"ask"`
}

// ExitStep halts the interview with a rendered message.
type ExitStep struct {
	Title       *template.Template `yaml:"exit"`
	Description *template.Template `yaml:"description"`
}

// EvalStep evaluates expressions for their undefined checks. In YAML, eval
// is a single value or a sequence of values.
type EvalStep struct {
	Values []template.Value
}

// HookStep delegates to the hook dispatcher.
type HookStep struct {
	Config HookConfig `yaml:"hook"`
}

// BlockStep groups steps under a shared guard; flattening removes it.
type BlockStep struct {
	Steps []Step `yaml:"block"`
}

// Kind returns the step's tag name.
func (s *Step) Kind() string {
	switch {
	case s.Set != nil:
		return "set"
	case s.Ask != nil:
		return "ask"
	case s.Exit != nil:
		return "exit"
	case s.Eval != nil:
		return "eval"
	case s.Hook != nil:
		return "hook"
	case s.Block != nil:
		return "block"
	}
	return ""
}

// UnmarshalYAML decodes a step, dispatching on which tag key is present.
func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	var probe struct {
		Set   yaml.Node          `yaml:"set"`
		Ask   yaml.Node          `yaml:"ask"`
		Exit  yaml.Node          `yaml:"exit"`
		Eval  yaml.Node          `yaml:"eval"`
		Hook  yaml.Node          `yaml:"hook"`
		Block yaml.Node          `yaml:"block"`
		When  template.Condition `yaml:"when"`
	}
	if err := node.Decode(&probe); err != nil {
		return err
	}

	present := 0
	for _, n := range []yaml.Node{probe.Set, probe.Ask, probe.Exit, probe.Eval, probe.Hook, probe.Block} {
		if n.Kind != 0 {
			present++
		}
	}
	if present != 1 {
		return errors.Newf(errors.CodeConfigInvalid,
			"step (line %d): exactly one of set, ask, exit, eval, hook or block is required", node.Line)
	}

	*s = Step{When: probe.When}
	switch {
	case probe.Set.Kind != 0:
		s.Set = &SetStep{}
		return node.Decode(s.Set)
	case probe.Ask.Kind != 0:
		s.Ask = &AskStep{}
		return node.Decode(s.Ask)
	case probe.Exit.Kind != 0:
		s.Exit = &ExitStep{}
		return node.Decode(s.Exit)
	case probe.Eval.Kind != 0:
		s.Eval = &EvalStep{}
		return s.Eval.decode(&probe.Eval)
	case probe.Hook.Kind != 0:
		s.Hook = &HookStep{}
		return node.Decode(s.Hook)
	default:
		s.Block = &BlockStep{}
		return node.Decode(s.Block)
	}
}

// decode accepts a single value or a sequence of values.
func (s *EvalStep) decode(node *yaml.Node) error {
	if node.Kind == yaml.SequenceNode {
		var values []template.Value
		if err := node.Decode(&values); err != nil {
			return err
		}
		s.Values = values
		return nil
	}
	var value template.Value
	if err := node.Decode(&value); err != nil {
		return err
	}
	s.Values = []template.Value{value}
	return nil
}

func (s *Step) String() string {
	switch s.Kind() {
	case "set":
		return fmt.Sprintf("set %s", s.Set.Target.Location)
	case "ask":
		return fmt.Sprintf("ask %s", s.Ask.QuestionID)
	case "hook":
		return s.Hook.Config.String()
	case "":
		return "empty step"
	}
	return s.Kind()
}

// Flatten expands blocks depth-first into a flat step list. Each emitted
// step's guard is the conjunction of its enclosing blocks' guards and its
// own.
func Flatten(steps []Step) []Step {
	return flatten(steps, nil, nil)
}

func flatten(steps []Step, parent template.Condition, out []Step) []Step {
	for _, s := range steps {
		cond := parent.And(s.When)
		if s.Block != nil {
			out = flatten(s.Block.Steps, cond, out)
			continue
		}
		flat := s
		flat.When = cond
		out = append(out, flat)
	}
	return out
}

// Validate checks that every ask step references a question in the bank.
// Called at load time after flattening.
func Validate(steps []Step, bank *question.Bank) error {
	for _, s := range steps {
		if s.Ask != nil && bank.ByID(s.Ask.QuestionID) == nil {
			return errors.Newf(errors.CodeConfigQuestion,
				"ask step references unknown question %q", s.Ask.QuestionID)
		}
	}
	return nil
}
