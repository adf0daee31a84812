package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	targetDate   string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rps",
	Short: "strongpool - daily relative-strength signal pool",
	Long: `strongpool CLI

Maintains a daily-refreshed relative-strength signal pool: multi-horizon
percentile scoring over the equity and ETF universes, threshold
filtering, and streak/delta continuity tracking against the persisted
table.

Usage:
  go run ./cmd/rps [command]

Examples:
  go run ./cmd/rps scan all
  go run ./cmd/rps scan stock --date 2026-08-28
  go run ./cmd/rps api
  go run ./cmd/rps scheduler
  go run ./cmd/rps check`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategies", "", "strategy YAML file (default: built-in stock and etf strategies)")
}
