package step

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/parley-stack/parley/internal/errors"
	"github.com/parley-stack/parley/internal/state"
)

// HookConfig selects one hook transport. Exactly one of URL, Executable or
// Inline must be set.
type HookConfig struct {
	URL        string   `yaml:"url"`
	Executable string   `yaml:"executable"`
	Args       []string `yaml:"args"`
	Inline     string   `yaml:"inline"`
}

// Kind returns the configured transport name.
func (c *HookConfig) Kind() string {
	switch {
	case c.URL != "":
		return "http"
	case c.Executable != "":
		return "executable"
	case c.Inline != "":
		return "inline"
	}
	return ""
}

// UnmarshalYAML decodes a hook config and enforces the exactly-one rule.
func (c *HookConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain HookConfig
	var out plain
	if err := node.Decode(&out); err != nil {
		return err
	}
	*c = HookConfig(out)

	configured := 0
	for _, v := range []string{c.URL, c.Executable, c.Inline} {
		if v != "" {
			configured++
		}
	}
	if configured != 1 {
		return errors.Newf(errors.CodeConfigInvalid,
			"hook (line %d): exactly one of url, executable or inline is required", node.Line)
	}
	if len(c.Args) > 0 && c.Executable == "" {
		return errors.Newf(errors.CodeConfigInvalid,
			"hook (line %d): args require an executable hook", node.Line)
	}
	return nil
}

func (c *HookConfig) String() string {
	switch c.Kind() {
	case "http":
		return fmt.Sprintf("http hook %s", c.URL)
	case "executable":
		return fmt.Sprintf("executable hook %s", c.Executable)
	case "inline":
		return fmt.Sprintf("inline hook %s", c.Inline)
	}
	return "unconfigured hook"
}

// HookDispatcher invokes a hook with the current state and returns the
// updated state plus the hook's result. Implementations must honor the
// context deadline; a cancelled hook leaves the state unadvanced.
type HookDispatcher interface {
	Dispatch(ctx context.Context, cfg *HookConfig, st *state.State) (*state.State, Result, error)
}
