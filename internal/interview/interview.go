// Package interview loads interview definitions from YAML and exposes them
// as immutable, shareable values: each interview carries its question bank
// and flattened step list, built once at startup.
package interview

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/question"
	"github.com/parley-stack/parley/internal/step"
)

// Interview is a loaded interview definition. Immutable after Load; safe to
// share across requests without locks.
type Interview struct {
	ID      string
	Title   string
	Version string

	Questions []*question.Question
	Steps     []step.Step

	Bank      *question.Bank
	Flattened []step.Step
}

// Registry holds loaded interviews by id, in declaration order.
type Registry struct {
	interviews []*Interview
	byID       map[string]*Interview
	warnings   []string
}

// Get returns the interview with the given id, or nil.
func (r *Registry) Get(id string) *Interview {
	return r.byID[id]
}

// Interviews returns all interviews in declaration order.
func (r *Registry) Interviews() []*Interview {
	return r.interviews
}

// Warnings returns the duplicate-id warnings recorded during loading. Loads
// succeed with last-wins semantics; strict callers treat these as errors.
func (r *Registry) Warnings() []string {
	return r.warnings
}

type rawInterview struct {
	ID        string      `yaml:"id"`
	Title     string      `yaml:"title"`
	Version   string      `yaml:"version"`
	Questions []yaml.Node `yaml:"questions"`
	Steps     []step.Step `yaml:"steps"`
}

type configFile struct {
	Interviews []rawInterview `yaml:"interviews"`
}

// Load reads the interviews YAML at path. Question entries are inline
// question mappings or relative paths to YAML files holding question lists,
// resolved against the directory containing path. Duplicate interview or
// question ids log a warning and the last definition wins.
func Load(path string, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.CodeConfigParse, "reading interviews file", err)
	}

	var file configFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, errors.Wrap(errors.CodeConfigParse, "parsing interviews file", err)
	}

	registry := &Registry{byID: make(map[string]*Interview, len(file.Interviews))}
	baseDir := filepath.Dir(path)

	for i := range file.Interviews {
		iv, warnings, err := build(&file.Interviews[i], baseDir, logger)
		if err != nil {
			return nil, err
		}
		registry.warnings = append(registry.warnings, warnings...)

		if _, exists := registry.byID[iv.ID]; exists {
			logger.Warn("duplicate interview id, replacing earlier definition", "interview_id", iv.ID)
			registry.warnings = append(registry.warnings,
				fmt.Sprintf("duplicate interview id %q", iv.ID))
			for j, existing := range registry.interviews {
				if existing.ID == iv.ID {
					registry.interviews = append(registry.interviews[:j], registry.interviews[j+1:]...)
					break
				}
			}
		}
		registry.byID[iv.ID] = iv
		registry.interviews = append(registry.interviews, iv)
	}
	return registry, nil
}

func build(raw *rawInterview, baseDir string, logger *slog.Logger) (*Interview, []string, error) {
	if err := question.ValidateIdentifier(raw.ID); err != nil {
		return nil, nil, err
	}

	var questions []*question.Question
	for i := range raw.Questions {
		loaded, err := loadQuestionEntry(&raw.Questions[i], baseDir)
		if err != nil {
			return nil, nil, errors.Wrapf(errors.CodeConfigParse, err,
				"interview %q: loading questions", raw.ID)
		}
		questions = append(questions, loaded...)
	}

	var warnings []string
	seen := map[string]bool{}
	for _, q := range questions {
		if seen[q.ID] {
			warnings = append(warnings,
				fmt.Sprintf("interview %q: duplicate question id %q", raw.ID, q.ID))
		}
		seen[q.ID] = true
	}

	bank := question.NewBank(questions, logger)
	flattened := step.Flatten(raw.Steps)
	if err := step.Validate(flattened, bank); err != nil {
		return nil, nil, errors.Wrapf(errors.Code(err), err, "interview %q", raw.ID)
	}

	return &Interview{
		ID:        raw.ID,
		Title:     raw.Title,
		Version:   raw.Version,
		Questions: questions,
		Steps:     raw.Steps,
		Bank:      bank,
		Flattened: flattened,
	}, warnings, nil
}

// loadQuestionEntry decodes an inline question, or reads a YAML file holding
// a question list when the entry is a path string.
func loadQuestionEntry(node *yaml.Node, baseDir string) ([]*question.Question, error) {
	if node.Kind == yaml.ScalarNode {
		var path string
		if err := node.Decode(&path); err != nil {
			return nil, err
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		var questions []*question.Question
		if err := yaml.Unmarshal(raw, &questions); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return questions, nil
	}

	var q question.Question
	if err := node.Decode(&q); err != nil {
		return nil, err
	}
	return []*question.Question{&q}, nil
}
