package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/chilam/strongpool/internal/scheduler"
	"github.com/chilam/strongpool/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily scan scheduler",
	Long: `Starts the cron scheduler with one scan job per strategy.

Each job fires after the market close on weekdays and runs the full
pipeline for its strategy. Non-trading days are detected by the
pipeline itself and recorded as skipped, so holidays need no special
handling here.

Subcommands:
  start  - Start the scheduler daemon
  run    - Run one job immediately

Example:
  go run ./cmd/rps scheduler start
  go run ./cmd/rps scheduler run scan_stock`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler daemon",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run one job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}

	scanSchedule string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&scanSchedule, "schedule", "", "cron expression with seconds for scan jobs (default: 17:30 on weekdays)")
}

// buildScheduler wires one scan job per strategy into a scheduler.
func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	names := make([]string, 0, len(a.strategies))
	for name := range a.strategies {
		names = append(names, name)
	}
	sort.Strings(names)

	ctx := context.Background()
	for _, name := range names {
		pipe, err := a.pipelineFor(ctx, a.strategies[name])
		if err != nil {
			return nil, fmt.Errorf("wire pipeline %s: %w", name, err)
		}
		if err := sched.AddJob(jobs.NewScanJob(name, scanSchedule, pipe, a.log)); err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== strongpool scheduler ===")

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return err
	}

	sched.Start()

	fmt.Println("\n✅ Scheduler running")
	fmt.Println("\nRegistered jobs:")
	jobNames := sched.GetAllJobs()
	sort.Strings(jobNames)
	for _, name := range jobNames {
		fmt.Printf("  %s\n", name)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := buildScheduler(a)
	if err != nil {
		return err
	}

	jobName := args[0]
	if err := sched.RunJob(jobName); err != nil {
		return err
	}

	fmt.Printf("✅ Job %s triggered\n", jobName)

	// RunJob is asynchronous; hold the process until interrupted so the
	// job can finish and log its outcome.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
