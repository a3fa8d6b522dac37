package question

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/location"
)

func parseQuestion(t *testing.T, src string) *Question {
	t.Helper()
	var q Question
	require.NoError(t, yaml.Unmarshal([]byte(src), &q))
	return &q
}

func TestValidateIdentifier(t *testing.T) {
	for _, id := range []string{"a", "q1", "my-question", "My_Question2"} {
		assert.NoError(t, ValidateIdentifier(id), id)
	}
	for _, id := range []string{"", "1q", "-q", "_q", "q-", "q q", "q.1"} {
		assert.Error(t, ValidateIdentifier(id), id)
	}
}

func TestQuestionParse(t *testing.T) {
	q := parseQuestion(t, `
id: q1
title: Name
fields:
  - type: text
    set: first_name
  - type: text
    set: last_name
  - type: text
`)
	assert.Equal(t, "q1", q.ID)
	require.Len(t, q.Fields, 3)

	provides := q.Provides()
	require.Len(t, provides, 2)
	assert.Equal(t, "first_name", provides[0].String())
	assert.Equal(t, "last_name", provides[1].String())

	t.Run("invalid id", func(t *testing.T) {
		var bad Question
		err := yaml.Unmarshal([]byte("id: 1bad\nfields: []"), &bad)
		assert.Error(t, err)
	})

	t.Run("duplicate set locations collapse", func(t *testing.T) {
		q := parseQuestion(t, `
id: q2
fields:
  - type: text
    set: a
  - type: number
    set: a
`)
		assert.Len(t, q.Provides(), 1)
	})
}

func TestParseResponse(t *testing.T) {
	q := parseQuestion(t, `
id: q1
fields:
  - type: text
    set: first_name
  - type: text
    set: last_name
`)

	t.Run("assignments in field order", func(t *testing.T) {
		got, err := q.ParseResponse(map[string]any{
			"field_0": "fname",
			"field_1": " lname ",
		}, nil)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "first_name", got[0].Loc.String())
		assert.Equal(t, "fname", got[0].Value)
		assert.Equal(t, "last_name", got[1].Loc.String())
		assert.Equal(t, "lname", got[1].Value)
	})

	t.Run("missing required field", func(t *testing.T) {
		_, err := q.ParseResponse(map[string]any{"field_0": "fname"}, nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeValidationField))
	})

	t.Run("collects every failure", func(t *testing.T) {
		_, err := q.ParseResponse(nil, nil)
		require.Error(t, err)
		var coded *errors.Error
		require.ErrorAs(t, err, &coded)
		assert.Contains(t, coded.Details, "field_0")
		assert.Contains(t, coded.Details, "field_1")
	})

	t.Run("button ignored without buttons", func(t *testing.T) {
		two := 2
		got, err := q.ParseResponse(map[string]any{
			"field_0": "a",
			"field_1": "b",
		}, &two)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})
}

func TestParseResponseButtons(t *testing.T) {
	q := parseQuestion(t, `
id: q1
buttons_set: choice
buttons:
  - label: Yes
    value: true
  - label: No
    value: false
    primary: false
fields:
  - type: text
    set: name
`)

	t.Run("button required", func(t *testing.T) {
		_, err := q.ParseResponse(map[string]any{"field_0": "x"}, nil)
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.CodeValidationShape))
	})

	t.Run("button out of range", func(t *testing.T) {
		five := 5
		_, err := q.ParseResponse(map[string]any{"field_0": "x"}, &five)
		assert.Error(t, err)
	})

	t.Run("button value recorded", func(t *testing.T) {
		one := 1
		got, err := q.ParseResponse(map[string]any{"field_0": "x"}, &one)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "choice", got[1].Loc.String())
		assert.Equal(t, false, got[1].Value)
	})
}

func TestAsk(t *testing.T) {
	q := parseQuestion(t, `
id: q1
title: "Hello {{name}}"
description: "You said {{c}}"
buttons:
  - label: OK
fields:
  - type: text
    set: answer
    label: "Answer for {{name}}"
`)

	t.Run("renders against context", func(t *testing.T) {
		result, err := q.Ask(map[string]any{"name": "Ada", "c": "hi"})
		require.NoError(t, err)
		assert.Equal(t, "question", result.ResultType())
		assert.Equal(t, "Hello Ada", result.Title)
		assert.Equal(t, "You said hi", result.Description)
		require.Contains(t, result.Fields, "field_0")
		assert.Equal(t, "Answer for Ada", result.Fields["field_0"]["label"])
		require.Len(t, result.Buttons, 1)
		assert.Equal(t, "OK", result.Buttons[0].Label)
		assert.True(t, result.Buttons[0].Primary)
		assert.True(t, result.Buttons[0].Default)
	})

	t.Run("undefined propagates", func(t *testing.T) {
		_, err := q.Ask(map[string]any{"name": "Ada"})
		u := location.Undefined(err)
		require.NotNil(t, u)
		assert.Equal(t, "c", u.Location.String())
	})
}
