package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/parley-stack/parley/internal/config"
	"github.com/parley-stack/parley/internal/interview"
	"github.com/parley-stack/parley/internal/logging"
)

var validateCmd = &cobra.Command{
	Use:   "validate [interviews.yml]",
	Short: "Load and check an interviews file",
	Long: `Validate parses an interviews YAML file, builds every question bank
and flattened step list, and reports problems. Duplicate ids, which the
server tolerates with last-wins semantics, are errors here.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		path = cfg.InterviewsFile(filepath.Dir(configPath))
	}

	registry, err := interview.Load(path, logging.NewForTest())
	if err != nil {
		return err
	}
	if warnings := registry.Warnings(); len(warnings) > 0 {
		for _, w := range warnings {
			fmt.Fprintln(cmd.ErrOrStderr(), w)
		}
		return fmt.Errorf("%d problem(s) found", len(warnings))
	}

	for _, iv := range registry.Interviews() {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d question(s), %d step(s)\n",
			iv.ID, iv.Bank.Len(), len(iv.Flattened))
	}
	return nil
}
