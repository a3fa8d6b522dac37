package cmd

import (
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time via ldflags
	Version = "dev"

	// Global flags
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "parley",
	Short: "Parley - declarative interview service",
	Long: `Parley is a declarative, resumable interview engine.

Interviews are defined in YAML as questions and conditional steps. The
engine walks a user through them, collects validated answers into a data
tree, and hands back an encrypted state token that carries the whole
continuation; the service itself stores nothing between requests.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "parley.toml", "service config file")

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("parley {{.Version}}\n")
}
