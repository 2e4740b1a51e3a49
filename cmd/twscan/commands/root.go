package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "twscan",
	Short: "Taiwan equity breakout scanner",
	Long: `twscan polls Taiwan equity quotes, screens them against a
breakout strategy, and pushes grouped reports over LINE.

Usage:
  go run ./cmd/twscan [command]

Examples:
  go run ./cmd/twscan serve
  go run ./cmd/twscan scan --profile live
  go run ./cmd/twscan universe`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
