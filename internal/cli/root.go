// Package cli implements the CodeForge command-line interface using Cobra.
// Each subcommand maps to one engagement or catalog capability.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "codeforge",
	Short: "CodeForge — redemption code tracker",
	Long: `CodeForge tracks redemption codes for Genshin Impact, Honkai: Star Rail,
and Zenless Zone Zero, with an XP ledger, achievements, and a leaderboard.

Run 'codeforge serve' to start the API server for the web UI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called from main.go.
func Execute(version string) {
	rootCmd.Version = version

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
