package commands

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check configuration and upstream connectivity",
	Long: `Verifies the runtime environment without writing anything:

- Loads config and strategies
- Pings the database when the postgres store is selected
- Reports Redis cache status
- Probes the Tushare trading calendar
- Counts rows in each strategy's signal store

Example:
  go run ./cmd/rps check`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("=== strongpool check ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	fmt.Printf("\nConfig:\n")
	fmt.Printf("  env:           %s\n", a.cfg.Env)
	fmt.Printf("  store driver:  %s\n", a.cfg.Store.Driver)
	fmt.Printf("  strategies:    %d\n", len(a.strategies))

	// Database only matters for the postgres store.
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			fmt.Printf("  database:      ❌ %v\n", err)
		} else {
			fmt.Printf("  database:      ✅ connected\n")
		}
	}

	if a.redis.Enabled() {
		fmt.Printf("  redis cache:   ✅ enabled\n")
	} else {
		fmt.Printf("  redis cache:   disabled\n")
	}

	// Probe the trading calendar over the last two weeks. This is the
	// cheapest call that exercises the token and the rate limiter.
	fmt.Printf("\nTushare:\n")
	if a.tushare.IsAnonymous() {
		fmt.Printf("  token:         ⚠️  not configured\n")
	} else {
		fmt.Printf("  token:         configured\n")
	}

	cal := a.calendarProvider()
	end := time.Now()
	dates, err := cal.TradingDates(ctx, end.AddDate(0, 0, -14), end)
	if err != nil {
		fmt.Printf("  trade_cal:     ❌ %v\n", err)
	} else {
		last := "none"
		if len(dates) > 0 {
			last = dates[0].Format("2006-01-02")
		}
		fmt.Printf("  trade_cal:     ✅ %d trading days in last 14, latest %s\n", len(dates), last)
	}

	fmt.Printf("\nSignal stores:\n")
	names := make([]string, 0, len(a.strategies))
	for name := range a.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sigStore, err := a.storeFor(ctx, a.strategies[name])
		if err != nil {
			fmt.Printf("  %-8s ❌ %v\n", name, err)
			continue
		}
		records, err := sigStore.Load(ctx)
		if err != nil {
			fmt.Printf("  %-8s ❌ %v\n", name, err)
			continue
		}
		fmt.Printf("  %-8s %d records\n", name, len(records))
	}

	return nil
}
