// Package stepper drives an interview: it applies submitted responses,
// scans the flattened step list, resolves undefined locations into asks, and
// reports completion.
package stepper

import (
	"context"
	"fmt"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/location"
	"github.com/parley-stack/parley/internal/state"
	"github.com/parley-stack/parley/internal/step"
)

// Advance moves the interview forward by one user interaction. It returns
// the next state snapshot and a terminal result: a question to ask, an exit,
// or completed. Validation failures propagate without a new state; the
// caller retries against the same token, whose question id still names the
// pending question.
func Advance(ctx context.Context, steps []step.Step, env *step.Env, st *state.State, responses map[string]any, button *int) (*state.State, step.Result, error) {
	if st.Complete {
		return nil, nil, errors.InvalidState(fmt.Errorf("interview already complete"))
	}

	if st.QuestionID != "" {
		next, err := applyResponses(env, st, responses, button)
		if err != nil {
			return nil, nil, err
		}
		st = next
	}

	r := &runner{ctx: ctx, steps: steps, env: env}
	return r.run(st)
}

// applyResponses parses the pending question's answer and writes each
// resulting assignment into the data tree.
func applyResponses(env *step.Env, st *state.State, responses map[string]any, button *int) (*state.State, error) {
	q := env.Bank.ByID(st.QuestionID)
	if q == nil {
		return nil, errors.InvalidState(fmt.Errorf("unknown question %q", st.QuestionID))
	}
	assignments, err := q.ParseResponse(responses, button)
	if err != nil {
		return nil, err
	}
	for _, a := range assignments {
		if st, err = step.SetValue(st, a.Loc, a.Value); err != nil {
			return nil, err
		}
	}
	return st.WithoutQuestion(), nil
}

type runner struct {
	ctx   context.Context
	steps []step.Step
	env   *step.Env
}

// run scans the steps in order, restarting from the top after every change,
// until a step produces a terminal result or a full pass changes nothing.
func (r *runner) run(st *state.State) (*state.State, step.Result, error) {
scan:
	for {
		for i := range r.steps {
			s := &r.steps[i]

			match, err := s.When.Evaluate(st.TemplateContext())
			if err != nil {
				return r.resolve(st, err)
			}
			if !match {
				continue
			}

			next, result, err := s.Handle(r.ctx, r.env, st)
			if err != nil {
				return r.resolve(st, err)
			}
			if step.Terminal(result) {
				return next, result, nil
			}
			switch result {
			case step.StatusChanged:
				st = next
				continue scan
			case step.StatusCompleted:
				return next.WithComplete(), step.StatusCompleted, nil
			}
		}
		return st.WithComplete(), step.StatusCompleted, nil
	}
}

// resolve turns an undefined-location error into an ask for a question
// providing that location; any other error propagates.
func (r *runner) resolve(st *state.State, err error) (*state.State, step.Result, error) {
	u := location.Undefined(err)
	if u == nil {
		return nil, nil, err
	}
	return r.recursiveAsk(st, u.Location, 0)
}

// recursiveAsk finds the first unanswered question providing loc whose guard
// matches and renders it. Rendering or guard evaluation may itself hit an
// undefined location, in which case the search recurses on that location.
// The depth guard bounds pathological question graphs; the bank is finite
// and a productive recursion always targets a new question.
func (r *runner) recursiveAsk(st *state.State, loc location.Location, depth int) (*state.State, step.Result, error) {
	if depth > r.env.Bank.Len() {
		return nil, nil, errors.NoQuestion(loc)
	}
	ctx := st.TemplateContext()

	candidates, err := r.env.Bank.Providing(loc, ctx)
	if err != nil {
		if u := location.Undefined(err); u != nil {
			return r.recursiveAsk(st, u.Location, depth+1)
		}
		return nil, nil, err
	}

	for _, q := range candidates {
		if st.Answered(q.ID) {
			continue
		}
		match, err := q.WhenMatches(ctx)
		if err != nil {
			if u := location.Undefined(err); u != nil {
				return r.recursiveAsk(st, u.Location, depth+1)
			}
			return nil, nil, err
		}
		if !match {
			continue
		}

		result, err := q.Ask(ctx)
		if err != nil {
			if u := location.Undefined(err); u != nil {
				return r.recursiveAsk(st, u.Location, depth+1)
			}
			return nil, nil, err
		}
		return st.WithQuestion(q.ID), result, nil
	}
	return nil, nil, errors.NoQuestion(loc)
}
