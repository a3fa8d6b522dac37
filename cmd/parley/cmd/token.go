package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/parley-stack/parley/internal/config"
	"github.com/parley-stack/parley/internal/interview"
	"github.com/parley-stack/parley/internal/logging"
	"github.com/parley-stack/parley/internal/state"
)

var (
	tokenTargetURL string
	tokenContext   string
)

var tokenCmd = &cobra.Command{
	Use:   "token <interview-id>",
	Short: "Mint a fresh state token for an interview",
	Long: `Token creates a starting state for the named interview and prints its
encrypted token. Intended for development and testing; in production a
cooperating service mints tokens.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().StringVar(&tokenTargetURL, "target-url", "", "URL to submit completed data to")
	tokenCmd.Flags().StringVar(&tokenContext, "context", "", "session context as a JSON object")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	baseDir := filepath.Dir(configPath)

	key, err := state.LoadKeyFile(cfg.KeyFile(baseDir))
	if err != nil {
		return err
	}
	registry, err := interview.Load(cfg.InterviewsFile(baseDir), logging.NewForTest())
	if err != nil {
		return err
	}
	iv := registry.Get(args[0])
	if iv == nil {
		return fmt.Errorf("unknown interview %q", args[0])
	}

	var sessionCtx map[string]any
	if tokenContext != "" {
		if err := json.Unmarshal([]byte(tokenContext), &sessionCtx); err != nil {
			return fmt.Errorf("parsing context: %w", err)
		}
	}

	st := state.New(state.Options{
		InterviewID:      iv.ID,
		InterviewVersion: iv.Version,
		TargetURL:        tokenTargetURL,
		ExpirationDate:   time.Now().Add(cfg.Interviews.StateTTL),
		Context:          sessionCtx,
	})
	token, err := state.Encrypt(st, key)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
