package step

import (
	"context"
	"log/slog"

	"github.com/parley-stack/parley/internal/location"
	"github.com/parley-stack/parley/internal/question"
	"github.com/parley-stack/parley/internal/state"
)

// Env carries the per-request collaborators a step may need. Immutable
// during an advance.
type Env struct {
	Bank   *question.Bank
	Hooks  HookDispatcher
	Logger *slog.Logger
}

// Handle applies a step to a state, returning the possibly-updated state and
// the step's result. The when guard is the caller's concern. An undefined
// location error propagates unhandled; it is the stepper's signal to insert
// an ask.
func (s *Step) Handle(ctx context.Context, env *Env, st *state.State) (*state.State, Result, error) {
	switch {
	case s.Set != nil:
		return s.Set.handle(st)
	case s.Ask != nil:
		return s.Ask.handle(env, st)
	case s.Exit != nil:
		return s.Exit.handle(st)
	case s.Eval != nil:
		return s.Eval.handle(st)
	case s.Hook != nil:
		return env.Hooks.Dispatch(ctx, &s.Hook.Config, st)
	}
	return st, StatusSkipped, nil
}

func (s *SetStep) handle(st *state.State) (*state.State, Result, error) {
	ctx := st.TemplateContext()

	// A defined target means the step already ran, unless always forces a
	// rewrite. Undefined index variables surface during assignment below.
	if !s.Always {
		if _, err := s.Target.Location.Evaluate(ctx); err == nil {
			return st, StatusSkipped, nil
		} else if location.Undefined(err) == nil {
			return nil, nil, err
		}
	}

	value, err := s.Value.Evaluate(ctx)
	if err != nil {
		return nil, nil, err
	}
	next, err := SetValue(st, s.Target.Location, value)
	if err != nil {
		return nil, nil, err
	}
	return next, StatusChanged, nil
}

func (s *AskStep) handle(env *Env, st *state.State) (*state.State, Result, error) {
	if st.Answered(s.QuestionID) {
		return st, StatusSkipped, nil
	}
	q := env.Bank.ByID(s.QuestionID)
	result, err := q.Ask(st.TemplateContext())
	if err != nil {
		return nil, nil, err
	}
	return st.WithQuestion(s.QuestionID), result, nil
}

func (s *ExitStep) handle(st *state.State) (*state.State, Result, error) {
	ctx := st.TemplateContext()
	title, err := s.Title.Render(ctx)
	if err != nil {
		return nil, nil, err
	}
	result := &ExitResult{Type: "exit", Title: title}
	if s.Description != nil {
		if result.Description, err = s.Description.Render(ctx); err != nil {
			return nil, nil, err
		}
	}
	return st, result, nil
}

func (s *EvalStep) handle(st *state.State) (*state.State, Result, error) {
	ctx := st.TemplateContext()
	for _, v := range s.Values {
		if _, err := v.Evaluate(ctx); err != nil {
			return nil, nil, err
		}
	}
	return st, StatusSkipped, nil
}

// SetValue assigns value at loc in a fresh copy of the state's data tree.
// Index expressions resolve against the full template context; the
// assignment itself only ever touches data.
func SetValue(st *state.State, loc location.Location, value any) (*state.State, error) {
	canonical, err := location.EvaluateIndexes(loc, st.TemplateContext())
	if err != nil {
		return nil, err
	}
	data := st.CloneData()
	if err := canonical.Assign(value, data); err != nil {
		return nil, err
	}
	return st.WithData(data), nil
}
