package stepper

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/logging"
	"github.com/parley-stack/parley/internal/question"
	"github.com/parley-stack/parley/internal/state"
	"github.com/parley-stack/parley/internal/step"
)

func parseEnv(t *testing.T, questionsYAML string) *step.Env {
	t.Helper()
	var questions []*question.Question
	require.NoError(t, yaml.Unmarshal([]byte(questionsYAML), &questions))
	return &step.Env{
		Bank:   question.NewBank(questions, logging.NewForTest()),
		Logger: logging.NewForTest(),
	}
}

func parseSteps(t *testing.T, src string) []step.Step {
	t.Helper()
	var steps []step.Step
	require.NoError(t, yaml.Unmarshal([]byte(src), &steps))
	return step.Flatten(steps)
}

func advance(t *testing.T, steps []step.Step, env *step.Env, st *state.State, responses map[string]any, button *int) (*state.State, step.Result) {
	t.Helper()
	next, result, err := Advance(context.Background(), steps, env, st, responses, button)
	require.NoError(t, err)
	return next, result
}

func TestTwoFieldCompletion(t *testing.T) {
	env := parseEnv(t, `
- id: q1
  fields:
    - type: text
      set: first_name
    - type: text
      set: last_name
`)
	steps := parseSteps(t, "- ask: q1")
	st := state.New(state.Options{InterviewID: "test1"})

	st, result := advance(t, steps, env, st, nil, nil)
	assert.Equal(t, "question", result.ResultType())
	assert.Equal(t, "q1", st.QuestionID)

	st, result = advance(t, steps, env, st, map[string]any{
		"field_0": "fname",
		"field_1": " lname ",
	}, nil)
	assert.Equal(t, step.StatusCompleted, result)
	assert.True(t, st.Complete)
	assert.Equal(t, map[string]any{
		"first_name": "fname",
		"last_name":  "lname",
	}, st.Data)
}

func TestOptionalThenExit(t *testing.T) {
	env := parseEnv(t, `
- id: q1
  fields:
    - type: text
      set: v
      optional: true
`)
	steps := parseSteps(t, `
- ask: q1
- exit: Required
  when: v == nil
`)
	st := state.New(state.Options{InterviewID: "test2"})

	asked, result := advance(t, steps, env, st, nil, nil)
	assert.Equal(t, "question", result.ResultType())

	_, result = advance(t, steps, env, asked, map[string]any{"field_0": " "}, nil)
	exit, ok := result.(*step.ExitResult)
	require.True(t, ok)
	assert.Equal(t, "Required", exit.Title)

	done, result := advance(t, steps, env, asked, map[string]any{"field_0": "test"}, nil)
	assert.Equal(t, step.StatusCompleted, result)
	assert.Equal(t, "test", done.Data["v"])
}

func TestRecursiveResolution(t *testing.T) {
	env := parseEnv(t, `
- id: q2
  fields:
    - type: text
      set: c
- id: q3
  description: "{{c}}"
  fields:
    - type: text
      set: d
- id: q4
  when: d
  fields:
    - type: text
      set: e
`)
	steps := parseSteps(t, "- eval: e")

	ask := func(data map[string]any) string {
		st := state.New(state.Options{InterviewID: "t", Data: data})
		next, result := advance(t, steps, env, st, nil, nil)
		require.Equal(t, "question", result.ResultType())
		return next.QuestionID
	}

	assert.Equal(t, "q2", ask(nil), "needs c before q3 can even render")
	assert.Equal(t, "q3", ask(map[string]any{"c": "x"}))
	assert.Equal(t, "q4", ask(map[string]any{"c": "x", "d": "y"}))
}

func TestIndexedAsk(t *testing.T) {
	env := parseEnv(t, `
- id: q6
  fields:
    - type: number
      set: x
- id: q5
  fields:
    - type: text
      set: f[x]
`)
	steps := parseSteps(t, "- eval: f[0]")

	t.Run("index variable resolved first", func(t *testing.T) {
		st := state.New(state.Options{InterviewID: "t", Data: map[string]any{"f": []any{}}})
		next, result := advance(t, steps, env, st, nil, nil)
		require.Equal(t, "question", result.ResultType())
		assert.Equal(t, "q6", next.QuestionID, "x gates both the query and the q5 edge")
	})

	t.Run("matching index surfaces the provider", func(t *testing.T) {
		st := state.New(state.Options{InterviewID: "t", Data: map[string]any{"f": []any{}, "x": 0}})
		next, result := advance(t, steps, env, st, nil, nil)
		require.Equal(t, "question", result.ResultType())
		assert.Equal(t, "q5", next.QuestionID)
	})

	t.Run("mismatched index has no provider", func(t *testing.T) {
		st := state.New(state.Options{InterviewID: "t", Data: map[string]any{"f": []any{}, "x": 1}})
		_, _, err := Advance(context.Background(), steps, env, st, nil, nil)
		assert.True(t, errors.HasCode(err, errors.CodeNoQuestion))
	})
}

func TestSetSkipping(t *testing.T) {
	env := parseEnv(t, `
- id: qb
  fields:
    - type: text
      set: b
`)
	steps := parseSteps(t, `
- set: a
  value: "'a'"
- set: a
  value: "'x'"
- eval: [a, b]
- set: a
  value: "'x'"
  always: true
  when: a != 'x'
`)
	st := state.New(state.Options{InterviewID: "t"})

	st, result := advance(t, steps, env, st, nil, nil)
	require.Equal(t, "question", result.ResultType())
	assert.Equal(t, "qb", st.QuestionID)
	assert.Equal(t, "a", st.Data["a"], "second set must not fire while a is defined")

	st, result = advance(t, steps, env, st, map[string]any{"field_0": "b"}, nil)
	assert.Equal(t, step.StatusCompleted, result)
	assert.Equal(t, "x", st.Data["a"], "the always set rewrites a once its guard holds")
	assert.Equal(t, "b", st.Data["b"])
}

func TestAdvanceRejectsComplete(t *testing.T) {
	env := parseEnv(t, "[]")
	st := state.New(state.Options{InterviewID: "t"}).WithComplete()

	_, _, err := Advance(context.Background(), nil, env, st, nil, nil)
	assert.True(t, errors.HasCode(err, errors.CodeStateInvalid))
}

func TestValidationPreservesQuestion(t *testing.T) {
	env := parseEnv(t, `
- id: q1
  fields:
    - type: number
      set: n
`)
	steps := parseSteps(t, "- ask: q1")
	st := state.New(state.Options{InterviewID: "t"})

	st, _ = advance(t, steps, env, st, nil, nil)
	require.Equal(t, "q1", st.QuestionID)

	// A rejected answer produces no new state; the caller retries against
	// the same token, still pointing at q1.
	_, _, err := Advance(context.Background(), steps, env, st, map[string]any{"field_0": "not a number"}, nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Equal(t, "q1", st.QuestionID)

	st, result := advance(t, steps, env, st, map[string]any{"field_0": 4}, nil)
	assert.Equal(t, step.StatusCompleted, result)
	assert.Equal(t, 4.0, st.Data["n"])
}

func TestMonotoneAnsweredIDs(t *testing.T) {
	env := parseEnv(t, `
- id: q1
  fields:
    - type: text
      set: a
- id: q2
  fields:
    - type: text
      set: b
`)
	steps := parseSteps(t, "- ask: q1\n- ask: q2")
	st := state.New(state.Options{InterviewID: "t"})

	st, _ = advance(t, steps, env, st, nil, nil)
	first := append([]string(nil), st.AnsweredQuestionIDs...)

	st, _ = advance(t, steps, env, st, map[string]any{"field_0": "x"}, nil)
	for _, id := range first {
		assert.Contains(t, st.AnsweredQuestionIDs, id)
	}
	assert.Equal(t, "q2", st.QuestionID)
}

func TestNoQuestionForLocation(t *testing.T) {
	env := parseEnv(t, "[]")
	steps := parseSteps(t, "- eval: missing")
	st := state.New(state.Options{InterviewID: "t"})

	_, _, err := Advance(context.Background(), steps, env, st, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNoQuestion))
}

func TestSelfReferentialQuestionFails(t *testing.T) {
	// q1 needs its own answer to render; the depth guard turns the cycle
	// into an author error instead of recursing forever.
	env := parseEnv(t, `
- id: q1
  title: "{{a}}"
  fields:
    - type: text
      set: a
`)
	steps := parseSteps(t, "- eval: a")
	st := state.New(state.Options{InterviewID: "t"})

	_, _, err := Advance(context.Background(), steps, env, st, nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNoQuestion))
}
