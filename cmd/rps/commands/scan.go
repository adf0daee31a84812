package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/chilam/strongpool/internal/contracts"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [stock|etf|all]",
	Short: "Run the daily signal-pool scan",
	Long: `Runs the full ranking-and-continuity batch for one strategy or all
strategies: resolves the trading date, scores the universe across every
horizon, applies the threshold filter, merges against the previous
table, and replaces the persisted pool.

On a non-trading day the scan exits cleanly without touching the store.

Example:
  go run ./cmd/rps scan all
  go run ./cmd/rps scan stock --date 2026-08-28
  go run ./cmd/rps scan etf`,
	Args: cobra.ExactArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&targetDate, "date", "", "target trading date as YYYY-MM-DD (default: today)")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Println("=== strongpool scan ===")

	// 1. Resolve the target date.
	target := time.Now()
	if targetDate != "" {
		parsed, err := time.Parse("2006-01-02", targetDate)
		if err != nil {
			return fmt.Errorf("parse --date %q: %w", targetDate, err)
		}
		target = parsed
	}

	// 2. Wire shared dependencies.
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	// 3. Select strategies.
	names, err := selectStrategies(a, args[0])
	if err != nil {
		return err
	}

	// 4. Run each pipeline in turn. A non-trading day skips the whole
	// batch; any other failure aborts it.
	ctx := context.Background()
	for _, name := range names {
		strat := a.strategies[name]

		pipe, err := a.pipelineFor(ctx, strat)
		if err != nil {
			return fmt.Errorf("wire pipeline %s: %w", name, err)
		}

		summary, err := pipe.Run(ctx, target)
		if errors.Is(err, contracts.ErrNonTradingDay) {
			a.log.WithField("strategy", name).Info("Not a trading day, nothing to do")
			fmt.Printf("\n%s: %s is not a trading day, store left untouched\n", name, target.Format("2006-01-02"))
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", name, err)
		}

		fmt.Printf("\n✅ %s: %d qualified (%d new) of %d instruments on %s in %s\n",
			summary.Strategy,
			summary.Qualified,
			summary.NewEntries,
			summary.Universe,
			summary.TradingDate.Format("2006-01-02"),
			summary.Duration.Round(time.Millisecond))
	}

	return nil
}

// selectStrategies expands the positional argument to strategy names,
// sorted for a stable run order.
func selectStrategies(a *app, arg string) ([]string, error) {
	if arg == "all" {
		names := make([]string, 0, len(a.strategies))
		for name := range a.strategies {
			names = append(names, name)
		}
		sort.Strings(names)
		return names, nil
	}
	if _, ok := a.strategies[arg]; !ok {
		return nil, fmt.Errorf("unknown strategy %q", arg)
	}
	return []string{arg}, nil
}
