package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parley-stack/parley/internal/state"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a state encryption key",
	Long:  `Keygen prints a fresh base64 32-byte key suitable for the key file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := state.GenerateKey()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), key.Encode())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
