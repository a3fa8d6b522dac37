package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parley-stack/parley/internal/config"
	"github.com/parley-stack/parley/internal/field"
	"github.com/parley-stack/parley/internal/hook"
	"github.com/parley-stack/parley/internal/interview"
	"github.com/parley-stack/parley/internal/logging"
	"github.com/parley-stack/parley/internal/server"
	"github.com/parley-stack/parley/internal/state"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the interview HTTP service",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	baseDir := filepath.Dir(configPath)

	logger, closer, err := logging.NewFromConfig(cfg, baseDir)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	key, err := state.LoadKeyFile(cfg.KeyFile(baseDir))
	if err != nil {
		return err
	}

	// Applies to fields without their own check_domain setting; must be set
	// before the interviews parse.
	field.DefaultCheckDomain = cfg.Interviews.CheckEmailDomain

	registry, err := interview.Load(cfg.InterviewsFile(baseDir), logger)
	if err != nil {
		return err
	}
	logger.Info("interviews loaded",
		"file", cfg.InterviewsFile(baseDir),
		"count", len(registry.Interviews()))

	hooks := hook.NewDispatcher(
		hook.WithTimeout(cfg.Hooks.Timeout),
		hook.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg, registry, key, hooks, logger)
	return srv.ListenAndServe(ctx)
}
