package interview

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-stack/parley/internal/logging"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "interviews.yml", `
interviews:
  - id: registration
    title: Registration
    version: "2"
    questions:
      - id: q1
        fields:
          - type: text
            set: name
    steps:
      - ask: q1
      - block:
          - set: done
            value: true
        when: name
`)

	registry, err := Load(path, logging.NewForTest())
	require.NoError(t, err)
	require.Len(t, registry.Interviews(), 1)

	iv := registry.Get("registration")
	require.NotNil(t, iv)
	assert.Equal(t, "Registration", iv.Title)
	assert.Equal(t, "2", iv.Version)
	assert.Equal(t, 1, iv.Bank.Len())
	require.Len(t, iv.Flattened, 2)
	assert.Equal(t, "set", iv.Flattened[1].Kind())
	assert.Len(t, iv.Flattened[1].When, 1)
	assert.Empty(t, registry.Warnings())
}

func TestLoadQuestionFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "common.yml", `
- id: q1
  fields:
    - type: text
      set: a
- id: q2
  fields:
    - type: text
      set: b
`)
	path := writeFile(t, dir, "interviews.yml", `
interviews:
  - id: test1
    questions:
      - common.yml
      - id: q3
        fields:
          - type: text
            set: c
    steps:
      - ask: q2
`)

	registry, err := Load(path, logging.NewForTest())
	require.NoError(t, err)

	iv := registry.Get("test1")
	require.NotNil(t, iv)
	assert.Equal(t, 3, iv.Bank.Len())
	assert.NotNil(t, iv.Bank.ByID("q1"))
	assert.NotNil(t, iv.Bank.ByID("q3"))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yml"), logging.NewForTest())
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeFile(t, dir, "bad.yml", "interviews: [")
		_, err := Load(path, logging.NewForTest())
		assert.Error(t, err)
	})

	t.Run("invalid interview id", func(t *testing.T) {
		path := writeFile(t, dir, "badid.yml", `
interviews:
  - id: 9lives
    steps: []
`)
		_, err := Load(path, logging.NewForTest())
		assert.Error(t, err)
	})

	t.Run("unknown ask reference", func(t *testing.T) {
		path := writeFile(t, dir, "badask.yml", `
interviews:
  - id: test1
    steps:
      - ask: ghost
`)
		_, err := Load(path, logging.NewForTest())
		assert.Error(t, err)
	})

	t.Run("missing question file", func(t *testing.T) {
		path := writeFile(t, dir, "badref.yml", `
interviews:
  - id: test1
    questions:
      - does-not-exist.yml
    steps: []
`)
		_, err := Load(path, logging.NewForTest())
		assert.Error(t, err)
	})
}

func TestLoadDuplicates(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "dups.yml", `
interviews:
  - id: test1
    questions:
      - id: q1
        fields:
          - type: text
            set: a
      - id: q1
        fields:
          - type: text
            set: b
    steps:
      - ask: q1
  - id: test1
    steps: []
`)

	registry, err := Load(path, logging.NewForTest())
	require.NoError(t, err)

	// Last definitions win, but the problems are reported for strict
	// callers.
	require.Len(t, registry.Interviews(), 1)
	assert.Empty(t, registry.Get("test1").Flattened)
	assert.Len(t, registry.Warnings(), 2)
}
